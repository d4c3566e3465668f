package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	openai "github.com/sashabaranov/go-openai"

	"github.com/legalsakhi/sakhi/pkg/client"
	"github.com/legalsakhi/sakhi/pkg/gateway"
)

var (
	askToolName    = "ask_legal_question"
	askDescription = "Ask the Indian legal-awareness assistant a question. Optionally pass the earlier turns of the conversation. Returns legal awareness, not legal advice."
)

// HistoryTurn is one earlier message of the conversation.
type HistoryTurn struct {
	Role    string `json:"role" jsonschema:"either user or assistant"`
	Content string `json:"content" jsonschema:"the message text"`
}

// AskInput represents the input arguments for the ask tool.
type AskInput struct {
	Question string        `json:"question" jsonschema:"the question or situation to ask about"`
	History  []HistoryTurn `json:"history,omitempty" jsonschema:"earlier turns, oldest first"`
}

// AskOutput represents the output of the ask tool.
type AskOutput struct {
	Answer string `json:"answer"`
	Deltas int    `json:"deltas"`
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return errorResult("question must not be empty"), AskOutput{}, nil
	}

	s.config.Logger.Debug("MCP ask request",
		"history", len(input.History),
	)

	history := make([]openai.ChatCompletionMessage, 0, len(input.History)+1)
	for _, turn := range input.History {
		role := openai.ChatMessageRoleUser
		if turn.Role == string(client.RoleAssistant) {
			role = openai.ChatMessageRoleAssistant
		}
		history = append(history, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	history = append(history, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: question,
	})

	messages := gateway.WithSystemPrompt(s.config.Prompts.Get().ChatSystem, history...)

	answer, deltas, err := s.complete(ctx, messages)
	if err != nil {
		return s.failure(askToolName, err, client.MsgChatConnection), AskOutput{}, nil
	}

	output := AskOutput{Answer: answer, Deltas: deltas}
	result, err := jsonResult(output)
	if err != nil {
		return errorResult(err.Error()), AskOutput{}, nil
	}
	return result, output, nil
}
