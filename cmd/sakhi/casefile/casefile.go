// Package casefilecmder provides the casefile command, which turns a short
// questionnaire into a structured legal case file.
package casefilecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/legalsakhi/sakhi/pkg/casefile"
	"github.com/legalsakhi/sakhi/pkg/cliui"
	"github.com/legalsakhi/sakhi/pkg/client"
	"github.com/legalsakhi/sakhi/pkg/config"
	"github.com/legalsakhi/sakhi/pkg/conversation"
	"github.com/legalsakhi/sakhi/pkg/credentials"
	"github.com/legalsakhi/sakhi/pkg/logger"
	"github.com/legalsakhi/sakhi/pkg/prompts"
)

type casefileCommander struct {
	configDir   string
	proxyTarget string
	apiKey      string
	debug       bool

	form   casefile.Form
	out    string
	save   bool
	stream bool
	raw    bool
	edit   bool
	copy   bool
	noForm bool

	stdout io.Writer
	logger *slog.Logger
}

// errIncomplete means the stream ended without a finished case file, as
// when it is cancelled.
var errIncomplete = errors.New("case file generation did not finish")

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

var casefileFlags = []string{
	config.FlagProxyTarget,
	config.FlagClientAPIKey,
}

const casefileLongDesc string = `Generate a structured legal case file.

Answer a few questions about what happened and sakhi drafts a case file
with a summary, a timeline, the laws that may apply, the evidence to
collect and the next steps. Only the issue type and a description of at
least 20 characters are required.

In a terminal the questions are asked interactively. Pass the answers as
flags, or --no-form, to skip the questionnaire.

Examples:
  sakhi casefile
  sakhi casefile --save --copy
  sakhi casefile --issue-type "Salary not paid / Wage theft" \
    --description "My employer has not paid me for the last three months." \
    --state Karnataka --out salary.md`

const casefileShortDesc string = "Generate a legal case file"

func NewCaseFileCmd() *cobra.Command {
	cmder := &casefileCommander{}

	cmd := &cobra.Command{
		Use:     "casefile",
		Aliases: []string{"case-file"},
		Short:   casefileShortDesc,
		Long:    casefileLongDesc,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, casefileFlags)

			cmder.proxyTarget = v.GetString("client.proxy_target")
			cmder.apiKey = v.GetString("client.api_key")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.stdout = cmd.OutOrStdout()

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagProxyTarget, &cmder.proxyTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagClientAPIKey, &cmder.apiKey)

	cmd.Flags().StringVar(&cmder.form.IssueType, "issue-type", "", "Type of legal issue")
	cmd.Flags().StringVar(&cmder.form.IncidentDate, "incident-date", "", "Date of the incident (YYYY-MM-DD)")
	cmd.Flags().StringVar(&cmder.form.Location, "location", "", "City or place of the incident")
	cmd.Flags().StringVar(&cmder.form.State, "state", "", "State or union territory")
	cmd.Flags().StringVar(&cmder.form.PartiesInvolved, "parties", "", "People or organisations involved")
	cmd.Flags().StringVar(&cmder.form.Description, "description", "", "What happened, in your own words")
	cmd.Flags().StringVar(&cmder.form.EvidenceAvailable, "evidence", "", "Evidence you have")
	cmd.Flags().StringVar(&cmder.form.ActionTaken, "action-taken", "", "Anything you have already done")

	cmd.Flags().StringVarP(&cmder.out, "out", "o", "", "Write the case file to this markdown file")
	cmd.Flags().BoolVar(&cmder.save, "save", false, "Write the case file to Legal_Case_File_<date>.md")
	cmd.Flags().BoolVar(&cmder.stream, "stream", false, "Print the case file as it is written")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print markdown without terminal rendering")
	cmd.Flags().BoolVar(&cmder.edit, "edit", false, "Review and edit the case file before saving")
	cmd.Flags().BoolVar(&cmder.copy, "copy", false, "Copy the case file to the clipboard")
	cmd.Flags().BoolVar(&cmder.noForm, "no-form", false, "Never ask questions interactively")

	return cmd
}

func (c *casefileCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.stdout == nil {
		c.stdout = os.Stdout
	}

	c.logger = logger.Nop()
	if c.debug {
		c.logger = logger.New(logger.WithDebug(true), logger.WithPretty(true), logger.WithWriter(os.Stderr))
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
	catalog := prompts.Default()

	if !c.form.CanSubmit() {
		if c.noForm || !interactive {
			return c.form.Validate()
		}
		if err := askForm(&c.form, catalog); err != nil {
			return err
		}
	}

	apiKey, err := resolveAPIKey(c.configDir, c.apiKey)
	if err != nil {
		return err
	}
	cl := client.New(client.Config{BaseURL: c.proxyTarget, APIKey: apiKey})

	gen, err := c.generate(ctx, cl, interactive)
	if err != nil {
		return err
	}

	if c.edit && interactive {
		edited, err := editContent(gen.Content())
		if err != nil {
			return err
		}
		gen.Edit(edited)
	}
	content := gen.Content()

	if !c.stream {
		c.print(content, interactive)
	}

	if err := c.write(content, time.Now()); err != nil {
		return err
	}
	return c.copyContent(content)
}

// generate drives a Generator to its result step.
func (c *casefileCommander) generate(ctx context.Context, s conversation.CaseFileStreamer, interactive bool) (*conversation.Generator, error) {
	opts := []conversation.GeneratorOption{conversation.WithGeneratorLogger(c.logger)}

	if c.stream {
		printed := 0
		opts = append(opts, conversation.WithGeneratorOnChange(func(snap conversation.GeneratorSnapshot) {
			if len(snap.Content) > printed {
				fmt.Fprint(c.stdout, snap.Content[printed:])
				printed = len(snap.Content)
			}
		}))
	}

	gen := conversation.NewGenerator(s, opts...)

	run := func() error {
		if !gen.Generate(ctx, c.form) {
			return c.form.Validate()
		}
		if gen.Step() == conversation.StepResult {
			return nil
		}
		if msg := gen.Err(); msg != "" {
			return errors.New(msg)
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", errIncomplete, err)
		}
		return errIncomplete
	}

	var err error
	if interactive && !c.stream {
		err = cliui.Step(c.stdout, "Generating your case file", run)
	} else {
		err = run()
		if c.stream {
			fmt.Fprintln(c.stdout)
		}
	}
	if err != nil {
		return nil, err
	}

	return gen, nil
}

func (c *casefileCommander) print(content string, interactive bool) {
	if c.raw || !interactive {
		fmt.Fprintln(c.stdout, content)
		return
	}

	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = min(w-4, 100)
	}

	rendered, err := cliui.RenderMarkdown(content, width)
	if err != nil {
		c.logger.Debug("rendering markdown", "error", err)
	}
	fmt.Fprint(c.stdout, rendered)
}

func (c *casefileCommander) write(content string, now time.Time) error {
	path := c.out
	if path == "" && c.save {
		path = casefile.FileName(now.Format(time.DateOnly))
	}
	if path == "" {
		return nil
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing case file: %w", err)
	}
	fmt.Fprintf(c.stdout, "\n  %s Saved %s\n\n", cliui.SuccessMark, cliui.NameStyle.Render(path))
	return nil
}

func (c *casefileCommander) copyContent(content string) error {
	if !c.copy {
		return nil
	}
	if err := writeClipboard(content); err != nil {
		return fmt.Errorf("copying case file: %w", err)
	}
	fmt.Fprintf(c.stdout, "  %s Copied to clipboard\n", cliui.SuccessMark)
	return nil
}

// resolveAPIKey prefers an explicit key and falls back to the stored proxy
// credential.
func resolveAPIKey(configDir, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return "", fmt.Errorf("loading credentials: %w", err)
	}
	key, _, err := mgr.ResolveKey(credentials.Proxy)
	if err != nil {
		return "", fmt.Errorf("resolving proxy key: %w", err)
	}
	return key, nil
}
