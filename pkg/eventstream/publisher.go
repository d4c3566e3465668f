package eventstream

import "context"

// Publisher publishes exchange events to an event stream backend.
type Publisher interface {
	Publish(ctx context.Context, event *ExchangeCompletedEvent) error
	Close() error
}
