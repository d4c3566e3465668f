// Package client opens the two sakhi proxy streams from a terminal or any
// other Go consumer.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/legalsakhi/sakhi/pkg/casefile"
	"github.com/legalsakhi/sakhi/pkg/gateway"
	"github.com/legalsakhi/sakhi/pkg/sse"
)

const (
	// ChatPath is the proxy route for the legal-awareness chat.
	ChatPath = "/functions/v1/legal-chat"

	// CaseFilePath is the proxy route for case-file generation.
	CaseFilePath = "/functions/v1/generate-case-file"

	// DefaultBaseURL is where `sakhi serve` listens by default.
	DefaultBaseURL = "http://localhost:8090"
)

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the chat history sent to the proxy.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of a chat request.
type ChatRequest struct {
	Messages []Message `json:"messages"`
}

// CaseFileRequest is the body of a case-file request.
type CaseFileRequest struct {
	FormData casefile.Form `json:"formData"`
}

// Config holds everything the client needs. Nothing is read from the
// environment.
type Config struct {
	// BaseURL is the scheme and host of the proxy.
	BaseURL string

	// APIKey is attached as a bearer token, unchanged.
	APIKey string

	// HTTPClient is used for every request. Defaults to http.DefaultClient,
	// without a timeout, since streams stay open for as long as the model
	// generates.
	HTTPClient *http.Client

	// StreamOptions are applied to every returned stream.
	StreamOptions []sse.Option
}

// Client talks to the sakhi proxy.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	opts    []sse.Option
}

// New returns a Client for c.
func New(c Config) *Client {
	cl := &Client{
		baseURL: strings.TrimRight(c.BaseURL, "/"),
		apiKey:  c.APIKey,
		http:    c.HTTPClient,
		opts:    c.StreamOptions,
	}
	if cl.baseURL == "" {
		cl.baseURL = DefaultBaseURL
	}
	if cl.http == nil {
		cl.http = http.DefaultClient
	}
	return cl
}

// StreamChat sends the role and content history and returns the reply as a
// stream of deltas.
func (c *Client) StreamChat(ctx context.Context, messages []Message) (*sse.Stream, error) {
	return c.open(ctx, ChatPath, ChatRequest{Messages: messages})
}

// StreamCaseFile sends form and returns the generated case file as a stream
// of markdown deltas.
func (c *Client) StreamCaseFile(ctx context.Context, form casefile.Form) (*sse.Stream, error) {
	return c.open(ctx, CaseFilePath, CaseFileRequest{FormData: form})
}

// open posts body to path and classifies the response before any delta is
// read. Errors are *TransportError, *gateway.StatusError or gateway.ErrNoBody.
func (c *Client) open(ctx context.Context, path string, body any) (*sse.Stream, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Path: path, Err: err}
	}

	if err := gateway.CheckResponse(resp); err != nil {
		return nil, err
	}

	return sse.NewStream(resp.Body, c.opts...), nil
}
