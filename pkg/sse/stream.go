package sse

import (
	"errors"
	"io"
	"iter"
)

// WithTee writes every raw byte read from the source to w before it is
// parsed. The proxy uses this to relay the upstream body verbatim to the
// client while observing the deltas.
func WithTee(w io.Writer) Option {
	return func(o *options) {
		o.tee = w
	}
}

// WithReadSize sets the size of the buffer used for each read from the
// source.
func WithReadSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.readSize = n
		}
	}
}

// Stream is a lazy, finite, non-restartable sequence of text deltas read from
// an HTTP response body (or any io.Reader).
//
// ┌──────────────────┐
// │ source io.Reader │
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐   ┌────────────────────┐
// │  Stream.Next()   │──▶│ optional io.Writer │
// └──────────────────┘   └────────────────────┘
// │
// ▼
// ┌──────────────────┐
// │      delta       │
// └──────────────────┘
type Stream struct {
	src io.Reader
	tee io.Writer
	r   *Reassembler

	chunk   []byte
	pending []string
	done    bool
	err     error

	deltas int
	bytes  int
}

// NewStream returns a Stream that reads src in chunks and yields the deltas
// it carries.
func NewStream(src io.Reader, opts ...Option) *Stream {
	o := newOptions(opts)

	return &Stream{
		src: src,
		tee: o.tee,
		r: &Reassembler{
			maxPushbacks: o.maxPushbacks,
			maxBuffer:    o.maxBuffer,
		},
		chunk: make([]byte, o.readSize),
	}
}

// Next returns the next delta. It blocks until a delta is available, the
// stream completes or reading fails.
//
// Next returns io.EOF once the stream has completed, either on the done
// sentinel or at the end of the source after the remaining buffer has been
// flushed. Any other error is terminal and is returned by every later call.
func (s *Stream) Next() (string, error) {
	for {
		if len(s.pending) > 0 {
			delta := s.pending[0]
			s.pending = s.pending[1:]
			s.deltas++
			s.bytes += len(delta)
			return delta, nil
		}

		if s.err != nil {
			return "", s.err
		}

		if s.done {
			return "", io.EOF
		}

		s.fill()
	}
}

// fill performs one read from the source and feeds it to the reassembler.
func (s *Stream) fill() {
	if s.r.Terminated() {
		s.done = true
		return
	}

	n, err := s.src.Read(s.chunk)
	if n > 0 {
		if s.tee != nil {
			if _, werr := s.tee.Write(s.chunk[:n]); werr != nil {
				s.err = werr
				return
			}
		}

		deltas, ferr := s.r.Feed(s.chunk[:n])
		s.pending = append(s.pending, deltas...)
		if ferr != nil {
			s.err = ferr
			return
		}

		if s.r.Terminated() {
			s.done = true
			return
		}
	}

	switch {
	case errors.Is(err, io.EOF):
		s.pending = append(s.pending, s.r.Flush()...)
		s.done = true
	case err != nil:
		s.err = err
	}
}

// All returns the remaining deltas as an iterator. Iteration stops after the
// first error, which is yielded with an empty delta. Completion is not
// yielded.
func (s *Stream) All() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for {
			delta, err := s.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
			if !yield(delta, nil) {
				return
			}
		}
	}
}

// Terminated reports whether the stream ended on the done sentinel rather
// than on the end of the source.
func (s *Stream) Terminated() bool {
	return s.r.Terminated()
}

// Delivered returns the number of deltas and delta bytes returned so far.
func (s *Stream) Delivered() (deltas, bytes int) {
	return s.deltas, s.bytes
}

// Close closes the source if it is an io.Closer.
func (s *Stream) Close() error {
	if c, ok := s.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Consume drives s to completion, dispatching to h. It returns the error
// reported to OnError, if any.
func Consume(s *Stream, h Handlers) error {
	for {
		delta, err := s.Next()
		switch {
		case errors.Is(err, io.EOF):
			h.done()
			return nil
		case err != nil:
			h.fail(err)
			return err
		}
		h.delta(delta)
	}
}
