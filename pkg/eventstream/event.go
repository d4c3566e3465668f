// Package eventstream defines the transport-neutral events the sakhi proxy
// emits after each relayed exchange. Events carry metadata only; message
// content never leaves the proxy.
package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeExchangeCompleted is emitted after a proxied stream ends.
	EventTypeExchangeCompleted = "sakhi.exchange.completed"
)

// ExchangeCompletedEvent describes one proxied request to the gateway.
type ExchangeCompletedEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`
	RequestMeta   RequestMeta `json:"request_meta"`
	Stream        StreamMeta  `json:"stream"`
}

// EventSource identifies where the exchange was served.
type EventSource struct {
	Endpoint string `json:"endpoint"`
	Model    string `json:"model"`
}

// RequestMeta captures request lifecycle metadata for the event.
type RequestMeta struct {
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
	DurationMs   int64     `json:"duration_ms"`
	HTTPStatus   int       `json:"http_status"`
	MessageCount int       `json:"message_count"`
}

// StreamMeta summarizes what was relayed back to the client.
type StreamMeta struct {
	Deltas       int    `json:"deltas"`
	ContentBytes int    `json:"content_bytes"`
	Terminated   bool   `json:"terminated"`
	Error        string `json:"error,omitempty"`
}

// NewExchangeCompletedEvent returns an event with the envelope fields set.
func NewExchangeCompletedEvent(source EventSource, req RequestMeta, stream StreamMeta) *ExchangeCompletedEvent {
	if req.DurationMs == 0 && !req.CompletedAt.IsZero() {
		req.DurationMs = req.CompletedAt.Sub(req.StartedAt).Milliseconds()
	}

	return &ExchangeCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeExchangeCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		RequestMeta:   req,
		Stream:        stream,
	}
}
