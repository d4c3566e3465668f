// Package mcp provides an MCP (Model Context Protocol) server exposing the
// legal chat and case-file generation to MCP clients.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	openai "github.com/sashabaranov/go-openai"

	"github.com/legalsakhi/sakhi/pkg/client"
	"github.com/legalsakhi/sakhi/pkg/prompts"
	"github.com/legalsakhi/sakhi/pkg/sse"
	"github.com/legalsakhi/sakhi/pkg/utils"
)

// Opener opens a streaming chat completion. *gateway.Upstream satisfies it.
type Opener interface {
	Open(ctx context.Context, messages []openai.ChatCompletionMessage) (*http.Response, error)
}

type Config struct {
	// Upstream streams the completions the tools assemble. Required.
	Upstream Opener

	// Prompts supplies the system prompts. Required.
	Prompts *prompts.Store

	// Logger is the configured slog logger. Required.
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the chat and case-file tools.
func NewServer(c Config) (*Server, error) {
	if c.Upstream == nil {
		return nil, errors.New("upstream is required")
	}
	if c.Prompts == nil {
		return nil, errors.New("prompt store is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	s := &Server{config: c}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "sakhi",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        askToolName,
		Description: askDescription,
	}, s.handleAsk)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        caseFileToolName,
		Description: caseFileDescription,
	}, s.handleCaseFile)

	s.mcpServer = mcpServer

	// Stateless streamable HTTP: every tool call is self-contained.
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer returns the underlying server, for in-process transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// complete streams messages from the upstream and returns the assembled
// text and the number of deltas it was made of.
func (s *Server) complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, int, error) {
	resp, err := s.config.Upstream.Open(ctx, messages)
	if err != nil {
		return "", 0, err
	}

	stream := sse.NewStream(resp.Body)
	defer stream.Close()

	var b strings.Builder
	for delta, err := range stream.All() {
		if err != nil {
			return b.String(), 0, err
		}
		b.WriteString(delta)
	}

	deltas, _ := stream.Delivered()
	return b.String(), deltas, nil
}

// errorResult is a tool result carrying a user-facing failure.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}

// jsonResult serializes output as the text content of a tool result.
// Clients that ignore structured content still receive the JSON.
func jsonResult(output any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(output)
	if err != nil {
		return nil, fmt.Errorf("encoding tool output: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil
}

// failure logs err and maps it to the same text the terminal client shows.
func (s *Server) failure(tool string, err error, connectivityMsg string) *mcp.CallToolResult {
	s.config.Logger.Error("mcp tool failed",
		"tool", tool,
		"error", err,
	)
	return errorResult(client.UserMessage(err, connectivityMsg))
}
