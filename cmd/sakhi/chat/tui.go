package chatcmder

import (
	"context"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/legalsakhi/sakhi/pkg/cliui"
	"github.com/legalsakhi/sakhi/pkg/conversation"
	"github.com/legalsakhi/sakhi/pkg/prompts"
	"github.com/legalsakhi/sakhi/pkg/utils"
)

var (
	chatTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	chatUserStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("82"))
	chatAsstStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	chatMutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	chatDividerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
)

// chrome is the number of lines around the viewport: title, divider,
// status, input and help.
const (
	inputHeight = 3
	chrome      = 4 + inputHeight
)

type chatKeyMap struct {
	Send   key.Binding
	Prompt key.Binding
	Clear  key.Binding
	Scroll key.Binding
	Quit   key.Binding
}

func (k chatKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Prompt, k.Clear, k.Scroll, k.Quit}
}

func (k chatKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Send, k.Prompt}, {k.Clear, k.Scroll, k.Quit}}
}

func defaultKeyMap() chatKeyMap {
	return chatKeyMap{
		Send:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Prompt: key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "quick prompt")),
		Clear:  key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear")),
		Scroll: key.NewBinding(key.WithKeys("pgup", "pgdown"), key.WithHelp("pgup/pgdn", "scroll")),
		Quit:   key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
	}
}

type snapshotMsg conversation.Snapshot

// sentMsg reports that a Send call returned, and whether it took text.
type sentMsg struct {
	text     string
	accepted bool
}

// rendered caches the markdown rendering of a finished assistant turn.
type rendered struct {
	content string
	width   int
	out     string
}

type chatModel struct {
	ctx     context.Context
	conv    *conversation.Conversation
	updates chan conversation.Snapshot
	quick   []prompts.QuickPrompt

	snap      conversation.Snapshot
	pending   bool
	nextQuick int
	cache     map[string]rendered

	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	keys     chatKeyMap

	width  int
	height int
	ready  bool
}

func runTUI(ctx context.Context, s conversation.Streamer, catalog *prompts.Catalog, log *slog.Logger) error {
	model := newChatModel(ctx, s, catalog, log)
	program := bubbletea.NewProgram(model, bubbletea.WithAltScreen(), bubbletea.WithContext(ctx))
	_, err := program.Run()
	return err
}

func newChatModel(ctx context.Context, s conversation.Streamer, catalog *prompts.Catalog, log *slog.Logger) chatModel {
	updates := make(chan conversation.Snapshot, 1)
	conv := conversation.New(s,
		conversation.WithOnChange(func(snap conversation.Snapshot) { publishLatest(updates, snap) }),
		conversation.WithLogger(log),
	)

	ta := textarea.New()
	ta.Placeholder = "Describe your situation or ask about your rights..."
	ta.ShowLineNumbers = false
	ta.Prompt = "┃ "
	ta.CharLimit = 4000
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))

	return chatModel{
		ctx:      ctx,
		conv:     conv,
		updates:  updates,
		quick:    catalog.QuickPrompts,
		cache:    map[string]rendered{},
		input:    ta,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		help:     help.New(),
		keys:     defaultKeyMap(),
	}
}

// publishLatest hands s to the UI without blocking the stream: an older
// snapshot still waiting is replaced, since every snapshot is a full copy.
func publishLatest(ch chan conversation.Snapshot, s conversation.Snapshot) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func waitForSnapshot(ch chan conversation.Snapshot) bubbletea.Cmd {
	return func() bubbletea.Msg {
		return snapshotMsg(<-ch)
	}
}

func sendCmd(ctx context.Context, conv *conversation.Conversation, text string) bubbletea.Cmd {
	return func() bubbletea.Msg {
		return sentMsg{text: text, accepted: conv.Send(ctx, text)}
	}
}

func (m chatModel) Init() bubbletea.Cmd {
	return bubbletea.Batch(textarea.Blink, waitForSnapshot(m.updates), m.spinner.Tick)
}

func (m chatModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.SetWidth(msg.Width)
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chrome, 3)
		m.help.Width = msg.Width
		m.ready = true
		m.refresh()
		return m, nil

	case snapshotMsg:
		m.snap = conversation.Snapshot(msg)
		m.refresh()
		return m, waitForSnapshot(m.updates)

	case sentMsg:
		m.pending = false
		if !msg.accepted && m.input.Value() == "" {
			m.input.SetValue(msg.text)
			m.input.CursorEnd()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd bubbletea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case bubbletea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, bubbletea.Quit
		case key.Matches(msg, m.keys.Clear):
			m.conv.Clear()
			m.cache = map[string]rendered{}
			return m, nil
		case key.Matches(msg, m.keys.Prompt):
			if len(m.quick) > 0 {
				m.input.SetValue(m.quick[m.nextQuick%len(m.quick)].Text)
				m.input.CursorEnd()
				m.nextQuick++
			}
			return m, nil
		case key.Matches(msg, m.keys.Send):
			return m.send()
		case key.Matches(msg, m.keys.Scroll):
			var cmd bubbletea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd bubbletea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m chatModel) send() (bubbletea.Model, bubbletea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.pending || m.conv.State() == conversation.StateSending {
		return m, nil
	}
	m.pending = true
	m.input.Reset()
	return m, sendCmd(m.ctx, m.conv, text)
}

func (m chatModel) View() string {
	if !m.ready {
		return "\n  " + chatMutedStyle.Render("Loading...")
	}

	var b strings.Builder
	b.WriteString(chatTitleStyle.Render("⚖ Legal Sakhi"))
	b.WriteString(chatMutedStyle.Render("  general legal information, not legal advice"))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(chatDividerStyle.Render(strings.Repeat("─", max(m.width, 1))))
	b.WriteString("\n")
	b.WriteString(m.status())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m chatModel) status() string {
	switch {
	case m.pending || m.snap.State == conversation.StateSending:
		return m.spinner.View() + " " + chatMutedStyle.Render("Sakhi is typing...")
	case m.snap.Err != "":
		return cliui.FailMark + " " + cliui.ErrorStyle.Render(m.snap.Err)
	default:
		return ""
	}
}

// refresh rebuilds the transcript and keeps the view pinned to the latest
// message.
func (m *chatModel) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m *chatModel) transcript() string {
	width := max(m.width-2, 20)

	if len(m.snap.Turns) == 0 {
		var b strings.Builder
		b.WriteString("\n")
		b.WriteString(chatMutedStyle.Render("Ask anything about your rights. Try one of these (ctrl+p):"))
		b.WriteString("\n\n")
		for _, qp := range m.quick {
			b.WriteString("  " + utils.Truncate(qp.String(), width-2) + "\n")
		}
		return b.String()
	}

	var b strings.Builder
	last := len(m.snap.Turns) - 1
	for i, t := range m.snap.Turns {
		b.WriteString("\n")
		if t.Role == conversation.RoleUser {
			b.WriteString(chatUserStyle.Render("You"))
			b.WriteString("\n")
			b.WriteString(lipgloss.NewStyle().Width(width).Render(t.Content))
			b.WriteString("\n")
			continue
		}

		b.WriteString(chatAsstStyle.Render("Sakhi"))
		b.WriteString("\n")
		streaming := i == last && m.snap.State == conversation.StateSending
		if streaming {
			b.WriteString(lipgloss.NewStyle().Width(width).Render(t.Content))
			b.WriteString("\n")
			continue
		}
		b.WriteString(m.markdown(t, width))
	}
	return b.String()
}

// markdown renders a finished assistant turn, reusing the previous rendering
// when neither the text nor the width changed.
func (m *chatModel) markdown(t conversation.Turn, width int) string {
	if r, ok := m.cache[t.ID]; ok && r.content == t.Content && r.width == width {
		return r.out
	}

	out, err := cliui.RenderMarkdown(t.Content, width)
	if err != nil {
		out = t.Content + "\n"
	}
	m.cache[t.ID] = rendered{content: t.Content, width: width, out: out}
	return out
}
