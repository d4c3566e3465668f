// Package gateway opens streaming chat-completion requests against the
// OpenAI-compatible LLM gateway that backs both sakhi endpoints.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultURL is the chat-completions endpoint of the hosted gateway.
	DefaultURL = "https://ai.gateway.lovable.dev/v1/chat/completions"

	// DefaultModel is the model requested when none is configured.
	DefaultModel = "google/gemini-3-flash-preview"

	// maxErrorBody bounds how much of a failed response is kept for logs.
	maxErrorBody = 4 * 1024
)

// Config configures an Upstream.
type Config struct {
	// URL is the full chat-completions URL. Defaults to DefaultURL.
	URL string

	// APIKey is sent as a bearer token. Required.
	APIKey string

	// Model is the requested model. Defaults to DefaultModel.
	Model string

	// HTTPClient is used for every request. Defaults to a client with a
	// five minute timeout.
	HTTPClient *http.Client
}

// Upstream is a handle on the LLM gateway.
type Upstream struct {
	url    string
	apiKey string
	model  string
	client *http.Client
}

// New validates c and returns an Upstream.
func New(c Config) (*Upstream, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	u := &Upstream{
		url:    c.URL,
		apiKey: c.APIKey,
		model:  c.Model,
		client: c.HTTPClient,
	}
	if u.url == "" {
		u.url = DefaultURL
	}
	if u.model == "" {
		u.model = DefaultModel
	}
	if u.client == nil {
		u.client = &http.Client{
			// Long generations (case files) can take minutes to finish.
			Timeout: 5 * time.Minute,
		}
	}

	return u, nil
}

// Model returns the model requested by Open.
func (u *Upstream) Model() string {
	return u.model
}

// Open posts messages as a streaming chat-completion request.
//
// On a 2xx response the caller owns the returned response and must close its
// body. A non-2xx response is drained, closed and returned as *StatusError.
// A 2xx response without a body yields ErrNoBody.
func (u *Upstream) Open(ctx context.Context, messages []openai.ChatCompletionMessage) (*http.Response, error) {
	payload, err := json.Marshal(openai.ChatCompletionRequest{
		Model:    u.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+u.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling gateway: %w", err)
	}

	if err := CheckResponse(resp); err != nil {
		return nil, err
	}

	return resp, nil
}

// CheckResponse classifies resp before its body is streamed. On error the
// body has been drained and closed.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		if resp.Body != nil {
			resp.Body.Close()
		}
		return ErrNoBody
	}

	return nil
}

// WithSystemPrompt returns messages prefixed by a system message carrying
// system.
func WithSystemPrompt(system string, messages ...openai.ChatCompletionMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	out = append(out, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	return append(out, messages...)
}
