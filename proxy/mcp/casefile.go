package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	openai "github.com/sashabaranov/go-openai"

	"github.com/legalsakhi/sakhi/pkg/casefile"
	"github.com/legalsakhi/sakhi/pkg/client"
	"github.com/legalsakhi/sakhi/pkg/gateway"
)

var (
	caseFileToolName    = "generate_case_file"
	caseFileDescription = "Generate a structured legal case file in markdown from an incident description. Requires an issue type and a description of at least 20 characters."
)

// CaseFileInput represents the input arguments for the case-file tool.
type CaseFileInput struct {
	IssueType         string `json:"issueType" jsonschema:"the kind of legal issue, e.g. Domestic Violence"`
	Description       string `json:"description" jsonschema:"what happened, at least 20 characters"`
	IncidentDate      string `json:"incidentDate,omitempty" jsonschema:"when it happened"`
	Location          string `json:"location,omitempty" jsonschema:"city or place"`
	State             string `json:"state,omitempty" jsonschema:"Indian state or union territory"`
	PartiesInvolved   string `json:"partiesInvolved,omitempty" jsonschema:"people or organisations involved"`
	EvidenceAvailable string `json:"evidenceAvailable,omitempty" jsonschema:"comma separated list of available evidence"`
	ActionTaken       string `json:"actionTaken,omitempty" jsonschema:"anything already done about it"`
}

// Form converts the input to a case-file form.
func (in CaseFileInput) Form() casefile.Form {
	return casefile.Form{
		IssueType:         in.IssueType,
		IncidentDate:      in.IncidentDate,
		Location:          in.Location,
		State:             in.State,
		PartiesInvolved:   in.PartiesInvolved,
		Description:       in.Description,
		EvidenceAvailable: in.EvidenceAvailable,
		ActionTaken:       in.ActionTaken,
	}
}

// CaseFileOutput represents the output of the case-file tool.
type CaseFileOutput struct {
	Markdown string `json:"markdown"`
	FileName string `json:"fileName"`
}

func (s *Server) handleCaseFile(ctx context.Context, _ *mcp.CallToolRequest, input CaseFileInput) (*mcp.CallToolResult, CaseFileOutput, error) {
	form := input.Form()
	if err := form.Validate(); err != nil {
		return errorResult(err.Error()), CaseFileOutput{}, nil
	}

	s.config.Logger.Debug("MCP case file request",
		"issue_type", form.IssueType,
	)

	messages := gateway.WithSystemPrompt(s.config.Prompts.Get().CaseFileSystem, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: casefile.BuildPrompt(form),
	})

	markdown, _, err := s.complete(ctx, messages)
	if err != nil {
		return s.failure(caseFileToolName, err, client.MsgCaseFileConnection), CaseFileOutput{}, nil
	}

	output := CaseFileOutput{
		Markdown: markdown,
		FileName: casefile.FileName(time.Now().Format(time.DateOnly)),
	}
	result, err := jsonResult(output)
	if err != nil {
		return errorResult(err.Error()), CaseFileOutput{}, nil
	}
	return result, output, nil
}
