// Package sse provides a small, purpose-built reassembler for the
// OpenAI-style chat-completion streams relayed by the sakhi proxy.
//
// Upstream bytes arrive in arbitrary chunks. The Reassembler buffers them,
// frames "\n"-terminated lines and turns every "data: {json}" record into
// the text delta carried in choices[0].delta.content. A "data: [DONE]"
// record terminates the stream. Stream wraps a Reassembler around an
// io.Reader and exposes the deltas as a pull-based sequence, optionally
// teeing the raw bytes to a downstream writer.
//
// This package intentionally does NOT implement the full SSE event model
// (event types, ids, retry). Only "data: " lines are meaningful here.
//
// See the WHATWG event stream format:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import "errors"

const (
	// dataPrefix is the literal prefix of a meaningful line. "data:" without
	// the trailing space is not accepted.
	dataPrefix = "data: "

	// DoneSentinel is the payload that marks the end of a stream.
	DoneSentinel = "[DONE]"
)

var (
	// ErrMalformedRecord is returned once a complete line that is not valid
	// JSON has been pushed back more times than the configured limit.
	ErrMalformedRecord = errors.New("malformed stream record")

	// ErrBufferOverflow is returned when the unparsed tail of the stream grows
	// beyond the configured limit.
	ErrBufferOverflow = errors.New("stream buffer overflow")
)

// record is the subset of a streaming chat-completion chunk the reassembler
// reads.
type record struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Handlers is the callback surface for consumers that prefer push-style
// delivery over Stream.Next. Any nil field is skipped.
type Handlers struct {
	// OnDelta is invoked once per delta, in arrival order.
	OnDelta func(text string)

	// OnDone is invoked exactly once after every available delta has been
	// delivered, whether the stream ended on the sentinel or on EOF.
	OnDone func()

	// OnError is invoked at most once. No other callback fires afterwards.
	OnError func(err error)
}

func (h Handlers) delta(text string) {
	if h.OnDelta != nil {
		h.OnDelta(text)
	}
}

func (h Handlers) done() {
	if h.OnDone != nil {
		h.OnDone()
	}
}

func (h Handlers) fail(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}
