// Package proxy provides the sakhi HTTP proxy: two thin streaming endpoints
// that prepend a system prompt to the caller's request, forward it to the LLM
// gateway and relay the event stream back verbatim.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/legalsakhi/sakhi/pkg/casefile"
	"github.com/legalsakhi/sakhi/pkg/client"
	"github.com/legalsakhi/sakhi/pkg/eventstream"
	"github.com/legalsakhi/sakhi/pkg/eventstream/nop"
	"github.com/legalsakhi/sakhi/pkg/gateway"
	"github.com/legalsakhi/sakhi/pkg/prompts"
	"github.com/legalsakhi/sakhi/pkg/sse"
	"github.com/legalsakhi/sakhi/proxy/header"
	"github.com/legalsakhi/sakhi/proxy/mcp"
	"github.com/legalsakhi/sakhi/proxy/worker"
)

const (
	endpointChat     = "legal-chat"
	endpointCaseFile = "generate-case-file"

	tracerName = "github.com/legalsakhi/sakhi/proxy"
)

// Error bodies returned to clients. They mirror what the browser client
// expects to display.
const (
	msgRateLimited    = "Rate limit exceeded. Please try again in a moment."
	msgQuotaExhausted = "Service temporarily unavailable. Please try again later."
	msgGatewayFailure = "AI service error"
	msgNotConfigured  = "gateway API key is not configured"
	msgInvalidBody    = "invalid request body"
)

// ErrorResponse is the JSON body of every non-streaming response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Proxy serves the chat and case-file endpoints.
type Proxy struct {
	config        Config
	upstream      *gateway.Upstream
	prompts       *prompts.Store
	workerPool    *worker.Pool
	logger        *slog.Logger
	server        *fiber.App
	headerHandler *header.Handler
	limiter       *rate.Limiter
	registry      *prometheus.Registry
	metrics       *metrics
	tracer        trace.Tracer
}

// New creates a new Proxy.
func New(config Config, logger *slog.Logger) (*Proxy, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	store := config.Prompts
	if store == nil {
		store = prompts.NewStore(prompts.Default(), logger)
	}

	publisher := config.Publisher
	if publisher == nil {
		publisher = nop.NewPublisher()
	}

	wp, err := worker.NewPool(&worker.Config{
		Publisher: publisher,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		// Enable streaming
		StreamRequestBody: true,
	})

	registry := prometheus.NewRegistry()

	p := &Proxy{
		config:        config,
		upstream:      config.Upstream,
		prompts:       store,
		workerPool:    wp,
		logger:        logger,
		server:        app,
		headerHandler: header.NewHandler(),
		registry:      registry,
		metrics:       newMetrics(registry),
		tracer:        otel.Tracer(tracerName),
	}

	if config.RateLimit > 0 {
		burst := config.RateBurst
		if burst <= 0 {
			burst = max(1, int(config.RateLimit*2))
		}
		p.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}

	if p.upstream == nil {
		logger.Warn("no gateway API key configured, exchanges will fail")
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: strings.Join(header.AllowHeaders, ", "),
		AllowMethods: "GET,POST,OPTIONS",
	}))

	app.Get("/healthz", p.handleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	fn := app.Group("/functions/v1")
	fn.Post("/"+endpointChat, p.limit(endpointChat), p.handleChat)
	fn.Post("/"+endpointCaseFile, p.limit(endpointCaseFile), p.handleCaseFile)

	if !config.DisableMCP && p.upstream != nil {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Upstream: p.upstream,
			Prompts:  store,
			Logger:   logger,
		})
		if err != nil {
			wp.Close()
			return nil, fmt.Errorf("could not create MCP server: %w", err)
		}
		app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))
	}

	return p, nil
}

// Run starts the proxy server on the configured listening address
func (p *Proxy) Run() error {
	p.logger.Info("starting proxy server",
		"listen", p.config.ListenAddr,
		"model", p.model(),
	)

	return p.server.Listen(p.config.ListenAddr)
}

// RunWithListener starts the proxy server using the provided listener.
func (p *Proxy) RunWithListener(listener net.Listener) error {
	p.logger.Info("starting proxy server",
		"listen", listener.Addr().String(),
		"model", p.model(),
	)

	return p.server.Listener(listener)
}

// Close gracefully shuts down the proxy and waits for queued events to be
// published.
func (p *Proxy) Close() error {
	var err error
	if p.config.ShutdownTimeout > 0 {
		err = p.server.ShutdownWithTimeout(p.config.ShutdownTimeout)
	} else {
		err = p.server.Shutdown()
	}
	p.workerPool.Close()
	return err
}

func (p *Proxy) model() string {
	if p.upstream == nil {
		return ""
	}
	return p.upstream.Model()
}

func (p *Proxy) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":     "ok",
		"configured": p.upstream != nil,
	})
}

// limit rejects requests once the inbound rate limit is exhausted.
func (p *Proxy) limit(endpoint string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if p.limiter != nil && !p.limiter.Allow() {
			p.metrics.requests.WithLabelValues(endpoint, strconv.Itoa(fiber.StatusTooManyRequests)).Inc()
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{Error: msgRateLimited})
		}
		return c.Next()
	}
}

func (p *Proxy) handleChat(c *fiber.Ctx) error {
	var req client.ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil || req.Messages == nil {
		return p.reject(c, endpointChat, fiber.StatusBadRequest, msgInvalidBody)
	}

	history := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		history = append(history, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	messages := gateway.WithSystemPrompt(p.prompts.Get().ChatSystem, history...)
	return p.relay(c, endpointChat, messages)
}

func (p *Proxy) handleCaseFile(c *fiber.Ctx) error {
	var req client.CaseFileRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return p.reject(c, endpointCaseFile, fiber.StatusBadRequest, msgInvalidBody)
	}
	if err := req.FormData.Validate(); err != nil {
		return p.reject(c, endpointCaseFile, fiber.StatusBadRequest, err.Error())
	}

	messages := gateway.WithSystemPrompt(p.prompts.Get().CaseFileSystem, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: casefile.BuildPrompt(req.FormData),
	})
	return p.relay(c, endpointCaseFile, messages)
}

func (p *Proxy) reject(c *fiber.Ctx, endpoint string, status int, msg string) error {
	p.metrics.requests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	return c.Status(status).JSON(ErrorResponse{Error: msg})
}

// relay opens the upstream stream and pipes it to the client.
func (p *Proxy) relay(c *fiber.Ctx, endpoint string, messages []openai.ChatCompletionMessage) error {
	if p.upstream == nil {
		p.logger.Error("exchange rejected", "endpoint", endpoint, "error", gateway.ErrMissingAPIKey)
		return p.reject(c, endpoint, fiber.StatusInternalServerError, msgNotConfigured)
	}

	startTime := time.Now()

	// Use context.Background() instead of c.Context() because fasthttp recycles
	// its RequestCtx after the handler returns, but the stream is relayed
	// from a separate goroutine and needs the upstream connection to remain
	// open.
	ctx, span := p.tracer.Start(context.Background(), "gateway.exchange",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("sakhi.endpoint", endpoint),
			attribute.String("sakhi.model", p.upstream.Model()),
			attribute.Int("sakhi.message_count", len(messages)),
		),
	)

	p.logger.Debug("forwarding request to gateway",
		"endpoint", endpoint,
		"message_count", len(messages),
	)

	httpResp, err := p.upstream.Open(ctx, messages)
	if err != nil {
		status, msg := failureResponse(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Int("http.status_code", status))
		span.End()

		p.logger.Error("gateway request failed",
			"endpoint", endpoint,
			"status", status,
			"error", err,
		)
		p.enqueue(endpoint, len(messages), status, startTime, eventstream.StreamMeta{Error: err.Error()})
		return p.reject(c, endpoint, status, msg)
	}

	p.headerHandler.SetClientResponseHeaders(c, httpResp)
	p.headerHandler.SetEventStreamHeaders(c)
	p.metrics.requests.WithLabelValues(endpoint, strconv.Itoa(fiber.StatusOK)).Inc()

	// Use io.Pipe + SetBodyStream instead of SetBodyStreamWriter: pw.Write
	// blocks until fasthttp's chunked writer has consumed the data, which
	// gives per-chunk flushing and direct backpressure.
	pr, pw := io.Pipe()
	go p.pipe(span, httpResp, pw, endpoint, len(messages), startTime)

	// Unknown size (-1) triggers chunked transfer encoding in fasthttp.
	c.Status(fiber.StatusOK)
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// pipe copies the upstream body to pw while observing its deltas, then
// records the exchange.
func (p *Proxy) pipe(span trace.Span, httpResp *http.Response, pw *io.PipeWriter, endpoint string, messageCount int, startTime time.Time) {
	defer span.End()
	defer httpResp.Body.Close()

	stream := sse.NewStream(httpResp.Body, sse.WithTee(pw))

	var streamErr error
	for _, err := range stream.All() {
		if err != nil {
			streamErr = err
			break
		}
	}

	// A record the reassembler cannot follow only ends the observation. The
	// client still receives every remaining byte. Bytes after the sentinel
	// are relayed the same way.
	var relayErr error
	if streamErr == nil || isParseError(streamErr) {
		if _, err := io.Copy(pw, httpResp.Body); err != nil {
			relayErr = err
			streamErr = errors.Join(streamErr, err)
		}
	} else {
		relayErr = streamErr
	}

	deltas, size := stream.Delivered()
	meta := eventstream.StreamMeta{
		Deltas:       deltas,
		ContentBytes: size,
		Terminated:   stream.Terminated(),
	}

	if streamErr != nil {
		meta.Error = streamErr.Error()
		span.RecordError(streamErr)
		p.logger.Warn("relayed stream ended with error",
			"endpoint", endpoint,
			"error", streamErr,
		)
	}

	p.metrics.deltas.WithLabelValues(endpoint).Add(float64(deltas))
	p.metrics.duration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	span.SetAttributes(
		attribute.Int("http.status_code", httpResp.StatusCode),
		attribute.Int("sakhi.deltas", deltas),
		attribute.Int("sakhi.content_bytes", size),
		attribute.Bool("sakhi.terminated", meta.Terminated),
	)

	p.logger.Debug("streaming complete",
		"endpoint", endpoint,
		"deltas", deltas,
		"content_bytes", size,
		"duration", time.Since(startTime),
	)

	p.enqueue(endpoint, messageCount, httpResp.StatusCode, startTime, meta)

	// The exchange is recorded before the client sees the end of the stream.
	pw.CloseWithError(relayErr)
}

func (p *Proxy) enqueue(endpoint string, messageCount, status int, startTime time.Time, meta eventstream.StreamMeta) {
	event := eventstream.NewExchangeCompletedEvent(
		eventstream.EventSource{Endpoint: endpoint, Model: p.model()},
		eventstream.RequestMeta{
			StartedAt:    startTime.UTC(),
			CompletedAt:  time.Now().UTC(),
			HTTPStatus:   status,
			MessageCount: messageCount,
		},
		meta,
	)

	// Non-blocking enqueue for async publishing
	if !p.workerPool.Enqueue(worker.Job{Event: event}) {
		p.metrics.dropped.Inc()
	}
}

func isParseError(err error) bool {
	return errors.Is(err, sse.ErrMalformedRecord) || errors.Is(err, sse.ErrBufferOverflow)
}

// failureResponse maps an upstream error to the status and message returned
// to the client.
func failureResponse(err error) (int, string) {
	var statusErr *gateway.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Kind() {
		case gateway.KindRateLimited:
			return fiber.StatusTooManyRequests, msgRateLimited
		case gateway.KindQuotaExhausted:
			return fiber.StatusPaymentRequired, msgQuotaExhausted
		}
	}
	return fiber.StatusInternalServerError, msgGatewayFailure
}
