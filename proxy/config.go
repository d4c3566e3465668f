package proxy

import (
	"time"

	"github.com/legalsakhi/sakhi/pkg/eventstream"
	"github.com/legalsakhi/sakhi/pkg/gateway"
	"github.com/legalsakhi/sakhi/pkg/prompts"
)

// Config is the proxy server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8090")
	ListenAddr string

	// Upstream is the LLM gateway both endpoints stream from. When nil the
	// proxy still starts but every exchange fails with a 500 explaining that
	// the gateway key is not configured.
	Upstream *gateway.Upstream

	// Prompts supplies the system prompts. Defaults to the embedded catalog.
	Prompts *prompts.Store

	// RateLimit is the sustained number of exchanges per second accepted
	// across all clients. Zero disables inbound rate limiting.
	RateLimit float64

	// RateBurst is the number of exchanges allowed in a burst. Defaults to
	// twice RateLimit, and at least one.
	RateBurst int

	// Publisher receives an event after every relayed exchange. Defaults to
	// the nop publisher.
	Publisher eventstream.Publisher

	// DisableMCP turns off the /mcp endpoint.
	DisableMCP bool

	// ShutdownTimeout bounds how long Close waits for in-flight streams.
	ShutdownTimeout time.Duration
}
