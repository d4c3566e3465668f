// Package conversation holds the two client-side state machines that fold a
// stream of text deltas into something a user looks at: the chat transcript
// and the generated case file.
package conversation

import (
	"context"

	"github.com/legalsakhi/sakhi/pkg/casefile"
	"github.com/legalsakhi/sakhi/pkg/client"
	"github.com/legalsakhi/sakhi/pkg/sse"
)

// Role is the author of a turn.
type Role = client.Role

const (
	RoleUser      = client.RoleUser
	RoleAssistant = client.RoleAssistant
)

// Turn is one message in the transcript. ID is local only and never sent.
type Turn struct {
	ID      string
	Role    Role
	Content string
}

// State is the lifecycle of a Conversation.
type State int

const (
	// StateIdle accepts a new Send.
	StateIdle State = iota

	// StateSending has a reply in flight. Send is a no-op until it ends.
	StateSending
)

func (s State) String() string {
	if s == StateSending {
		return "sending"
	}
	return "idle"
}

// Snapshot is a consistent copy of a Conversation.
type Snapshot struct {
	Turns []Turn
	State State
	Err   string
}

// Streamer opens the chat stream for a history.
type Streamer interface {
	StreamChat(ctx context.Context, messages []client.Message) (*sse.Stream, error)
}

// CaseFileStreamer opens the case-file stream for a form.
type CaseFileStreamer interface {
	StreamCaseFile(ctx context.Context, form casefile.Form) (*sse.Stream, error)
}
