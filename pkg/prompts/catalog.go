// Package prompts provides the system prompts and the option lists used by
// the chat and case-file flows. A default catalog is embedded in the binary
// and can be replaced by a YAML file at runtime.
package prompts

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrIncompleteCatalog is returned when a catalog is missing a system prompt.
var ErrIncompleteCatalog = errors.New("incomplete prompt catalog")

// QuickPrompt is a canned chat opener.
type QuickPrompt struct {
	Emoji string `yaml:"emoji"`
	Text  string `yaml:"text"`
}

// String renders the prompt as shown in a picker.
func (q QuickPrompt) String() string {
	return q.Emoji + " " + q.Text
}

// Catalog is every piece of copy the model or the user sees that is not
// generated.
type Catalog struct {
	Version         int           `yaml:"version"`
	ChatSystem      string        `yaml:"chat_system"`
	CaseFileSystem  string        `yaml:"case_file_system"`
	QuickPrompts    []QuickPrompt `yaml:"quick_prompts"`
	IssueTypes      []string      `yaml:"issue_types"`
	States          []string      `yaml:"states"`
	EvidenceOptions []string      `yaml:"evidence_options"`
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded prompt catalog: %v", err))
	}
	return c
}

// Parse decodes and validates a YAML catalog. Lists that are absent fall
// back to the embedded defaults; the two system prompts are required.
func Parse(data []byte) (*Catalog, error) {
	c := &Catalog{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("decoding prompt catalog: %w", err)
	}

	var missing []string
	if strings.TrimSpace(c.ChatSystem) == "" {
		missing = append(missing, "chat_system")
	}
	if strings.TrimSpace(c.CaseFileSystem) == "" {
		missing = append(missing, "case_file_system")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrIncompleteCatalog, strings.Join(missing, ", "))
	}

	if c.QuickPrompts == nil || c.IssueTypes == nil || c.States == nil || c.EvidenceOptions == nil {
		var base Catalog
		if err := yaml.Unmarshal(defaultCatalog, &base); err != nil {
			return nil, fmt.Errorf("decoding embedded catalog: %w", err)
		}
		if c.QuickPrompts == nil {
			c.QuickPrompts = base.QuickPrompts
		}
		if c.IssueTypes == nil {
			c.IssueTypes = base.IssueTypes
		}
		if c.States == nil {
			c.States = base.States
		}
		if c.EvidenceOptions == nil {
			c.EvidenceOptions = base.EvidenceOptions
		}
	}

	return c, nil
}

// Load reads a catalog from path. An empty path returns the embedded default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompt catalog: %w", err)
	}

	return Parse(data)
}
