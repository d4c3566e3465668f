package conversation

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/legalsakhi/sakhi/pkg/casefile"
	"github.com/legalsakhi/sakhi/pkg/client"
	"github.com/legalsakhi/sakhi/pkg/logger"
	"github.com/legalsakhi/sakhi/pkg/sse"
)

// Step is where the case-file flow currently is.
type Step int

const (
	StepForm Step = iota
	StepGenerating
	StepResult
)

func (s Step) String() string {
	switch s {
	case StepGenerating:
		return "generating"
	case StepResult:
		return "result"
	default:
		return "form"
	}
}

// GeneratorSnapshot is a consistent copy of a Generator.
type GeneratorSnapshot struct {
	Step    Step
	Content string
	Err     string
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithGeneratorOnChange registers fn to be called after every change.
func WithGeneratorOnChange(fn func(GeneratorSnapshot)) GeneratorOption {
	return func(g *Generator) {
		g.onChange = fn
	}
}

// WithGeneratorLogger sets the logger. Defaults to logger.Nop().
func WithGeneratorLogger(l *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = l
	}
}

// Generator drives one case file from form to result, folding the streamed
// markdown into a single document.
type Generator struct {
	streamer CaseFileStreamer
	logger   *slog.Logger
	onChange func(GeneratorSnapshot)

	mu      sync.Mutex
	step    Step
	content string
	err     string
	gen     uint64
	cancel  context.CancelFunc
}

// NewGenerator returns a Generator at StepForm.
func NewGenerator(s CaseFileStreamer, opts ...GeneratorOption) *Generator {
	g := &Generator{
		streamer: s,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate streams the case file for form. It blocks until the stream ends
// and reports whether generation started; an invalid form or a generation
// already in flight is ignored. On failure the flow returns to StepForm with
// a user-visible error.
func (g *Generator) Generate(ctx context.Context, form casefile.Form) bool {
	if !form.CanSubmit() {
		return false
	}

	g.mu.Lock()
	if g.step == StepGenerating {
		g.mu.Unlock()
		return false
	}
	g.step = StepGenerating
	g.content = ""
	g.err = ""
	ctx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	gen := g.gen
	snap := g.snapshotLocked()
	g.mu.Unlock()

	defer cancel()
	g.notify(snap)

	stream, err := g.streamer.StreamCaseFile(ctx, form)
	if err != nil {
		g.fail(gen, err)
		return true
	}
	defer stream.Close()

	var acc strings.Builder
	_ = sse.Consume(stream, sse.Handlers{
		OnDelta: func(delta string) {
			acc.WriteString(delta)
			g.update(gen, func() { g.content = acc.String() })
		},
		OnDone: func() {
			g.update(gen, func() {
				g.step = StepResult
				g.cancel = nil
			})
		},
		OnError: func(err error) {
			g.fail(gen, err)
		},
	})

	return true
}

// Edit replaces the generated document. It only applies at StepResult.
func (g *Generator) Edit(content string) bool {
	g.mu.Lock()
	if g.step != StepResult {
		g.mu.Unlock()
		return false
	}
	g.content = content
	snap := g.snapshotLocked()
	g.mu.Unlock()

	g.notify(snap)
	return true
}

// Reset cancels any generation in flight and returns to an empty form.
func (g *Generator) Reset() {
	g.mu.Lock()
	g.gen++
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	g.step = StepForm
	g.content = ""
	g.err = ""
	snap := g.snapshotLocked()
	g.mu.Unlock()

	g.notify(snap)
}

// Step returns the current step.
func (g *Generator) Step() Step {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.step
}

// Content returns the markdown generated so far.
func (g *Generator) Content() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.content
}

// Err returns the user-visible error of the last generation, or "".
func (g *Generator) Err() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Snapshot returns a consistent copy of the generator.
func (g *Generator) Snapshot() GeneratorSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *Generator) update(gen uint64, fn func()) {
	g.mu.Lock()
	if gen != g.gen {
		g.mu.Unlock()
		return
	}
	fn()
	snap := g.snapshotLocked()
	g.mu.Unlock()

	g.notify(snap)
}

func (g *Generator) fail(gen uint64, err error) {
	g.mu.Lock()
	if gen != g.gen {
		g.mu.Unlock()
		return
	}
	g.step = StepForm
	g.cancel = nil
	g.err = client.UserMessage(err, client.MsgCaseFileConnection)
	snap := g.snapshotLocked()
	g.mu.Unlock()

	g.logger.Error("case file generation failed", "error", err)
	g.notify(snap)
}

func (g *Generator) snapshotLocked() GeneratorSnapshot {
	return GeneratorSnapshot{Step: g.step, Content: g.content, Err: g.err}
}

func (g *Generator) notify(s GeneratorSnapshot) {
	if g.onChange != nil {
		g.onChange(s)
	}
}
