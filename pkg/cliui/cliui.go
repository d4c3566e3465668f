// Package cliui provides the terminal styling shared by sakhi commands:
// marks, label styles, a step spinner and markdown rendering.
package cliui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const (
	accent = lipgloss.Color("212")
	green  = lipgloss.Color("82")
	red    = lipgloss.Color("196")
	amber  = lipgloss.Color("214")
	dim    = lipgloss.Color("245")
)

var (
	SuccessMark = lipgloss.NewStyle().Foreground(green).Render("✓")
	FailMark    = lipgloss.NewStyle().Foreground(red).Render("✗")

	StepStyle   = lipgloss.NewStyle().Foreground(dim)
	DimStyle    = lipgloss.NewStyle().Foreground(dim)
	KeyStyle    = lipgloss.NewStyle().Foreground(accent).Bold(true)
	ValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	NameStyle   = lipgloss.NewStyle().Foreground(green).Bold(true)
	WarnStyle   = lipgloss.NewStyle().Foreground(amber).Bold(true)
	ErrorStyle  = lipgloss.NewStyle().Foreground(red)
	HeaderStyle = lipgloss.NewStyle().Foreground(accent).Bold(true).Underline(true)

	UserPrompt      = lipgloss.NewStyle().Foreground(green).Bold(true).Render("you> ")
	AssistantPrompt = lipgloss.NewStyle().Foreground(accent).Render("sakhi> ")

	spinnerStyle = lipgloss.NewStyle().Foreground(accent)
)

// spinnerFrames matches bubbles' spinner.Dot.
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Step prints an animated spinner while fn runs, then replaces it with
// a ✓ or ✗ mark and the elapsed time.
func Step(w io.Writer, msg string, fn func() error) error {
	done := make(chan struct{})
	var mu sync.Mutex

	go func() {
		frame := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			mu.Lock()
			fmt.Fprintf(w, "\r  %s %s",
				spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]),
				msg,
			)
			mu.Unlock()

			select {
			case <-done:
				return
			case <-ticker.C:
				frame++
			}
		}
	}()

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	close(done)

	mu.Lock()
	fmt.Fprintf(w, "\r  %s %s %s\n",
		Mark(err),
		msg,
		StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))),
	)
	mu.Unlock()

	return err
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// MarkdownStyle picks the glamour style for the current terminal: "notty"
// when colors are unavailable, otherwise dark or light to match the
// background.
func MarkdownStyle() string {
	if termenv.EnvColorProfile() == termenv.Ascii {
		return "notty"
	}
	if termenv.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

// RenderMarkdown renders markdown content for terminal display, wrapped at
// width columns. On failure the raw content is returned with the error.
func RenderMarkdown(content string, width int) (string, error) {
	return renderMarkdown(content, width, MarkdownStyle())
}

func renderMarkdown(content string, width int, style string) (string, error) {
	if width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}
