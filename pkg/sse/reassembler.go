package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

var (
	defaultMaxPushbacks = 8
	defaultMaxBuffer    = 1024 * 1024
	defaultReadSize     = 4 * 1024
)

// lineKind is the outcome of classifying a single framed line.
type lineKind int

const (
	lineSkip lineKind = iota
	lineDelta
	lineDone
	lineMalformed
)

// Option configures a Reassembler or a Stream.
type Option func(*options)

type options struct {
	maxPushbacks int
	maxBuffer    int
	readSize     int
	tee          io.Writer
}

// WithMaxPushbacks bounds how many times a complete but unparsable line may be
// pushed back onto the buffer before Feed fails with ErrMalformedRecord.
// Zero or a negative value removes the bound.
func WithMaxPushbacks(n int) Option {
	return func(o *options) {
		o.maxPushbacks = n
	}
}

// WithMaxBuffer bounds the number of unparsed bytes the reassembler retains
// between chunks. Zero or a negative value removes the bound.
func WithMaxBuffer(n int) Option {
	return func(o *options) {
		o.maxBuffer = n
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		maxPushbacks: defaultMaxPushbacks,
		maxBuffer:    defaultMaxBuffer,
		readSize:     defaultReadSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Reassembler incrementally turns raw stream bytes into text deltas.
//
// ┌───────────┐   ┌────────────────┐   ┌────────────────┐
// │ Feed(raw) │──▶│ buffered lines │──▶│ ordered deltas │
// └───────────┘   └────────────────┘   └────────────────┘
//
// Only complete lines are decoded, so a multi-byte character split across
// two chunks is reassembled before it is interpreted. A line that is not yet
// terminated by "\n" always stays in the buffer for the next chunk.
//
// A Reassembler is not safe for concurrent use.
type Reassembler struct {
	buf        []byte
	terminated bool
	pushbacks  int

	maxPushbacks int
	maxBuffer    int
}

// NewReassembler returns an empty Reassembler.
func NewReassembler(opts ...Option) *Reassembler {
	o := newOptions(opts)
	return &Reassembler{
		maxPushbacks: o.maxPushbacks,
		maxBuffer:    o.maxBuffer,
	}
}

// Feed appends chunk to the buffer and returns the deltas of every complete
// record now available, in arrival order.
//
// Framing stops early in two cases: on the done sentinel, after which the
// reassembler is terminated and ignores all further input, and on a line that
// is not valid JSON. Such a line is assumed to be a record still in flight; it
// stays at the front of the buffer and is retried when the next chunk arrives.
func (r *Reassembler) Feed(chunk []byte) ([]string, error) {
	if r.terminated {
		return nil, nil
	}

	r.buf = append(r.buf, chunk...)

	var deltas []string
	for {
		idx := bytes.IndexByte(r.buf, '\n')
		if idx < 0 {
			break
		}

		delta, kind := classify(r.buf[:idx])
		if kind == lineMalformed {
			r.pushbacks++
			if r.maxPushbacks > 0 && r.pushbacks > r.maxPushbacks {
				return deltas, fmt.Errorf("%w: %q", ErrMalformedRecord, preview(r.buf[:idx]))
			}
			return deltas, r.checkBuffer()
		}

		r.buf = r.buf[idx+1:]
		r.pushbacks = 0

		if kind == lineDone {
			r.terminated = true
			r.buf = nil
			return deltas, nil
		}
		if kind == lineDelta {
			deltas = append(deltas, delta)
		}
	}

	if len(r.buf) == 0 {
		r.buf = nil
	}

	return deltas, r.checkBuffer()
}

// Flush processes whatever is left in the buffer once the source is
// exhausted. The last line does not need a trailing newline. Lines that still
// fail to parse are dropped since no more data is coming. Flush returns nothing
// when the stream was already terminated by the sentinel.
func (r *Reassembler) Flush() []string {
	rest := r.buf
	r.buf = nil
	r.pushbacks = 0

	if r.terminated || len(bytes.TrimSpace(rest)) == 0 {
		return nil
	}

	var deltas []string
	for _, raw := range bytes.Split(rest, []byte{'\n'}) {
		delta, kind := classify(raw)
		switch kind {
		case lineDone:
			r.terminated = true
			return deltas
		case lineDelta:
			deltas = append(deltas, delta)
		default:
			// lineSkip and lineMalformed are both dropped here.
		}
	}

	return deltas
}

// Terminated reports whether the done sentinel has been seen.
func (r *Reassembler) Terminated() bool {
	return r.terminated
}

// Buffered returns the number of unparsed bytes currently retained.
func (r *Reassembler) Buffered() int {
	return len(r.buf)
}

func (r *Reassembler) checkBuffer() error {
	if r.maxBuffer > 0 && len(r.buf) > r.maxBuffer {
		return fmt.Errorf("%w: %d bytes buffered (limit %d)", ErrBufferOverflow, len(r.buf), r.maxBuffer)
	}
	return nil
}

// classify decodes one framed line (without its "\n") and decides what it
// contributes to the stream.
func classify(raw []byte) (string, lineKind) {
	line := strings.ToValidUTF8(string(raw), "\uFFFD")
	line = strings.TrimSuffix(line, "\r")

	if strings.HasPrefix(line, ":") || strings.TrimSpace(line) == "" {
		return "", lineSkip
	}

	payload, ok := strings.CutPrefix(line, dataPrefix)
	if !ok {
		return "", lineSkip
	}

	payload = strings.TrimSpace(payload)
	if payload == DoneSentinel {
		return "", lineDone
	}

	if !json.Valid([]byte(payload)) {
		return "", lineMalformed
	}

	// Valid JSON with an unexpected shape carries no delta.
	var rec record
	if err := json.Unmarshal([]byte(payload), &rec); err != nil || len(rec.Choices) == 0 {
		return "", lineSkip
	}

	if content := rec.Choices[0].Delta.Content; content != "" {
		return content, lineDelta
	}

	return "", lineSkip
}

func preview(b []byte) string {
	const limit = 64
	if len(b) <= limit {
		return string(b)
	}
	return string(b[:limit]) + "..."
}
