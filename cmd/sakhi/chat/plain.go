package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/legalsakhi/sakhi/pkg/cliui"
	"github.com/legalsakhi/sakhi/pkg/conversation"
	"github.com/legalsakhi/sakhi/pkg/prompts"
)

// printer writes the growing assistant reply to out as it streams, so each
// delta is printed exactly once.
type printer struct {
	out     io.Writer
	printed int
	started bool
}

func (p *printer) reset() {
	p.printed = 0
	p.started = false
}

func (p *printer) onChange(s conversation.Snapshot) {
	n := len(s.Turns)
	if n == 0 || s.Turns[n-1].Role != conversation.RoleAssistant {
		return
	}

	content := s.Turns[n-1].Content
	if !p.started {
		fmt.Fprint(p.out, cliui.AssistantPrompt)
		p.started = true
	}
	if len(content) > p.printed {
		fmt.Fprint(p.out, content[p.printed:])
		p.printed = len(content)
	}
}

func runPlain(ctx context.Context, s conversation.Streamer, catalog *prompts.Catalog, in io.Reader, out io.Writer, log *slog.Logger) error {
	p := &printer{out: out}
	conv := conversation.New(s,
		conversation.WithOnChange(p.onChange),
		conversation.WithLogger(log),
	)

	fmt.Fprintf(out, "\n  %s\n", cliui.HeaderStyle.Render("Legal Sakhi"))
	fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("General legal information, not legal advice. /prompts for ideas, /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, cliui.UserPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch {
		case input == "":
			continue
		case input == "/exit":
			fmt.Fprintln(out)
			return nil
		case input == "/clear":
			conv.Clear()
			fmt.Fprintf(out, "  %s Conversation cleared\n\n", cliui.SuccessMark)
			continue
		case input == "/prompts":
			printQuickPrompts(out, catalog.QuickPrompts)
			continue
		case strings.HasPrefix(input, "/"):
			qp, ok := quickPrompt(catalog.QuickPrompts, input)
			if !ok {
				fmt.Fprintf(out, "  %s Unknown command %s\n\n", cliui.FailMark, input)
				continue
			}
			input = qp.Text
			fmt.Fprintf(out, "%s%s\n", cliui.UserPrompt, input)
		}

		p.reset()
		conv.Send(ctx, input)
		if p.started {
			fmt.Fprintln(out)
		}
		if msg := conv.Err(); msg != "" {
			fmt.Fprintf(out, "  %s %s\n", cliui.FailMark, cliui.ErrorStyle.Render(msg))
		}
		fmt.Fprintln(out)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(out)
	return nil
}

func printQuickPrompts(out io.Writer, qps []prompts.QuickPrompt) {
	fmt.Fprintln(out)
	for i, qp := range qps {
		fmt.Fprintf(out, "  %s %s\n", cliui.KeyStyle.Render(fmt.Sprintf("/%d", i+1)), qp)
	}
	fmt.Fprintln(out)
}

// quickPrompt resolves "/N" to the Nth quick prompt, counting from one.
func quickPrompt(qps []prompts.QuickPrompt, input string) (prompts.QuickPrompt, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(input, "/"))
	if err != nil || n < 1 || n > len(qps) {
		return prompts.QuickPrompt{}, false
	}
	return qps[n-1], true
}
