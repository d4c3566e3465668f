package conversation

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/legalsakhi/sakhi/pkg/client"
	"github.com/legalsakhi/sakhi/pkg/logger"
	"github.com/legalsakhi/sakhi/pkg/sse"
)

// Option configures a Conversation.
type Option func(*Conversation)

// WithOnChange registers fn to be called with a fresh Snapshot after every
// change, including each folded delta. fn runs on the goroutine that made
// the change and must not call back into the Conversation synchronously.
func WithOnChange(fn func(Snapshot)) Option {
	return func(c *Conversation) {
		c.onChange = fn
	}
}

// WithLogger sets the logger. Defaults to logger.Nop().
func WithLogger(l *slog.Logger) Option {
	return func(c *Conversation) {
		c.logger = l
	}
}

// WithIDFunc overrides how turn IDs are generated.
func WithIDFunc(fn func() string) Option {
	return func(c *Conversation) {
		c.newID = fn
	}
}

// Conversation is a single chat session.
//
//	┌──────┐  Send   ┌─────────┐
//	│ idle │────────▶│ sending │
//	└──────┘◀────────└─────────┘
//	   done | error | Clear
//
// Every exchange is tagged with the generation it started in. Clear bumps the
// generation and cancels the exchange in flight, so late deltas from it are
// dropped instead of resurrecting the cleared transcript.
type Conversation struct {
	streamer Streamer
	logger   *slog.Logger
	onChange func(Snapshot)
	newID    func() string

	mu     sync.Mutex
	turns  []Turn
	state  State
	err    string
	gen    uint64
	cancel context.CancelFunc
}

// New returns an empty, idle Conversation.
func New(s Streamer, opts ...Option) *Conversation {
	c := &Conversation{
		streamer: s,
		logger:   logger.Nop(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send appends text as a user turn and streams the assistant's reply into
// the transcript. It blocks until the exchange ends and reports whether the
// input was accepted: blank input, or a Send while another is in flight, is
// ignored.
func (c *Conversation) Send(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	c.mu.Lock()
	if c.state == StateSending {
		c.mu.Unlock()
		return false
	}

	c.turns = append(c.turns, Turn{ID: c.newID(), Role: RoleUser, Content: text})
	c.state = StateSending
	c.err = ""

	history := make([]client.Message, len(c.turns))
	for i, t := range c.turns {
		history[i] = client.Message{Role: t.Role, Content: t.Content}
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	gen := c.gen
	snap := c.snapshotLocked()
	c.mu.Unlock()

	defer cancel()
	c.notify(snap)

	c.logger.Debug("sending chat message", "turns", len(history))

	stream, err := c.streamer.StreamChat(ctx, history)
	if err != nil {
		c.fail(gen, err)
		return true
	}
	defer stream.Close()

	var acc strings.Builder
	_ = sse.Consume(stream, sse.Handlers{
		OnDelta: func(delta string) {
			acc.WriteString(delta)
			c.fold(gen, acc.String())
		},
		OnDone: func() {
			c.finish(gen)
		},
		OnError: func(err error) {
			c.fail(gen, err)
		},
	})

	return true
}

// Clear discards the transcript and any error and returns to idle. A reply
// still streaming is cancelled and its remaining deltas are ignored.
func (c *Conversation) Clear() {
	c.mu.Lock()
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.turns = nil
	c.state = StateIdle
	c.err = ""
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// Turns returns a copy of the transcript.
func (c *Conversation) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.turns)
}

// State returns the current state.
func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the user-visible error of the last exchange, or "".
func (c *Conversation) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Snapshot returns a consistent copy of the whole conversation.
func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// fold replaces the trailing assistant turn with content, or starts one.
func (c *Conversation) fold(gen uint64, content string) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}

	if n := len(c.turns); n > 0 && c.turns[n-1].Role == RoleAssistant {
		c.turns[n-1].Content = content
	} else {
		c.turns = append(c.turns, Turn{ID: c.newID(), Role: RoleAssistant, Content: content})
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

func (c *Conversation) finish(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.state = StateIdle
	c.cancel = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// fail records the user-visible message for err. Partial assistant content
// already folded into the transcript is kept.
func (c *Conversation) fail(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.logger.Debug("dropping error from cleared exchange", "error", err)
		return
	}
	c.state = StateIdle
	c.cancel = nil
	c.err = client.UserMessage(err, client.MsgChatConnection)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Error("chat exchange failed", "error", err)
	c.notify(snap)
}

func (c *Conversation) snapshotLocked() Snapshot {
	return Snapshot{
		Turns: slices.Clone(c.turns),
		State: c.state,
		Err:   c.err,
	}
}

func (c *Conversation) notify(s Snapshot) {
	if c.onChange != nil {
		c.onChange(s)
	}
}
