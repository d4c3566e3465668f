// Package header provides header filtering for the sakhi proxy.
//
// This proxy sits between a client and the upstream LLM gateway like so:
//
//	Client <--> Proxy <--> LLM Gateway
//
// and headers are handled accordingly as each leg negotiates compression, hops,
// encoding, etc. independently. The proxy never forwards client request
// headers upstream: the gateway request carries only the proxy's own
// credential.
package header

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Handler manages headers between proxy connections.
type Handler struct{}

// NewHandler creates a new header Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// AllowHeaders is the CORS allow-list for browser clients of the two
// endpoints.
var AllowHeaders = []string{
	"authorization",
	"x-client-info",
	"apikey",
	"content-type",
	"x-supabase-client-platform",
	"x-supabase-client-platform-version",
	"x-supabase-client-runtime",
	"x-supabase-client-runtime-version",
}

// skipResponse is the set of upstream response headers (client <-- proxy <-- upstream)
// that are not copied back to the downstream client.
var skipResponse = map[string]struct{}{
	// Hop-by-hop headers: only meaningful for a single transport-level connection.
	"Connection": {},
	"Keep-Alive": {},

	// Hop-by-hop headers: fasthttp manages chunked transfer encoding for the
	// client-facing response independently.
	"Transfer-Encoding": {},

	// The proxy always reads a decompressed body (Go's http.Transport strips
	// Content-Encoding after auto-decompression). Forwarding a stale
	// Content-Encoding would claim an encoding the body no longer has.
	"Content-Encoding": {},

	// The relayed stream has no known length.
	"Content-Length": {},

	// The gateway's cookies and CORS policy belong to the gateway, not to
	// this origin.
	"Set-Cookie":                       {},
	"Access-Control-Allow-Origin":      {},
	"Access-Control-Allow-Headers":     {},
	"Access-Control-Allow-Methods":     {},
	"Access-Control-Allow-Credentials": {},
	"Access-Control-Expose-Headers":    {},
}

// SetClientResponseHeaders copies response headers from the upstream
// http.Response to the Fiber context, filtering headers that the proxy should
// not forward back down to the client.
func (h *Handler) SetClientResponseHeaders(c *fiber.Ctx, resp *http.Response) {
	for k, v := range resp.Header {
		if _, skip := skipResponse[http.CanonicalHeaderKey(k)]; !skip {
			c.Set(k, strings.Join(v, ", "))
		}
	}
}

// SetEventStreamHeaders marks the client response as an uncached event
// stream.
func (h *Handler) SetEventStreamHeaders(c *fiber.Ctx) {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set("X-Accel-Buffering", "no")
}
