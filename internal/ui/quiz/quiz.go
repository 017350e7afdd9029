// Package quiz runs adaptive test items and free-text questions in the
// terminal.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/skillprobe/internal/cat"
	"github.com/abhisek/skillprobe/internal/item"
	"github.com/abhisek/skillprobe/internal/ui/components"
	"github.com/abhisek/skillprobe/internal/ui/theme"
)

// ErrAborted is returned when the learner quits mid-question.
var ErrAborted = errors.New("quiz aborted")

// Self-report options for items without choices.
var selfReport = []string{"I got it right", "I missed it"}

const barWidth = 40

// runner executes a Bubble Tea model to completion.
type runner func(ctx context.Context, m tea.Model) (tea.Model, error)

// Option configures an Oracle.
type Option func(*Oracle)

// WithIO sets the terminal input and output.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(o *Oracle) {
		o.in = in
		o.out = out
	}
}

// WithTotal sets the test length shown in the progress bar.
func WithTotal(n int) Option {
	return func(o *Oracle) { o.total = n }
}

// WithContext ties every prompt to ctx.
func WithContext(ctx context.Context) Option {
	return func(o *Oracle) { o.ctx = ctx }
}

// Oracle asks each item in the terminal. It implements cat.Oracle.
type Oracle struct {
	ctx   context.Context
	in    io.Reader
	out   io.Writer
	total int
	asked int
	run   runner
}

var _ cat.Oracle = (*Oracle)(nil)

// New creates a terminal oracle.
func New(opts ...Option) *Oracle {
	o := &Oracle{ctx: context.Background()}
	for _, opt := range opts {
		opt(o)
	}
	o.run = o.program
	return o
}

func (o *Oracle) program(ctx context.Context, m tea.Model) (tea.Model, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if o.in != nil {
		opts = append(opts, tea.WithInput(o.in))
	}
	if o.out != nil {
		opts = append(opts, tea.WithOutput(o.out))
	}
	return tea.NewProgram(m, opts...).Run()
}

// Respond shows the item and returns 1 for a correct answer. Items with
// no choices are self-reported.
func (o *Oracle) Respond(it item.Item) (int, error) {
	o.asked++
	final, err := o.run(o.ctx, newItemModel(it, o.asked, o.total))
	if err != nil {
		return 0, fmt.Errorf("run item %q: %w", it.ID, err)
	}
	m, ok := final.(itemModel)
	if !ok {
		return 0, fmt.Errorf("unexpected model %T", final)
	}
	if m.aborted {
		return 0, ErrAborted
	}
	return m.response(), nil
}

// AskText shows prompt and returns the learner's typed answer.
func (o *Oracle) AskText(ctx context.Context, prompt string) (string, error) {
	final, err := o.run(ctx, newTextModel(prompt))
	if err != nil {
		return "", fmt.Errorf("ask text: %w", err)
	}
	m, ok := final.(textModel)
	if !ok {
		return "", fmt.Errorf("unexpected model %T", final)
	}
	if m.aborted {
		return "", ErrAborted
	}
	return m.input.Value(), nil
}

// itemModel renders one test item.
type itemModel struct {
	item       item.Item
	selfReport bool
	choice     components.MultiChoice
	progress   components.ProgressBar
	aborted    bool
}

func newItemModel(it item.Item, n, total int) itemModel {
	m := itemModel{
		item:     it,
		progress: components.NewProgressBar("Item", n, max(total, n), barWidth),
	}
	if it.HasChoices() {
		m.choice = components.NewMultiChoice(it.Prompt, it.Choices, *it.CorrectIndex)
	} else {
		m.selfReport = true
		prompt := it.Prompt
		if prompt == "" {
			prompt = fmt.Sprintf("Answer item %s, then report how it went.", it.ID)
		}
		m.choice = components.NewMultiChoice(prompt, selfReport, 0)
	}
	return m
}

func (m itemModel) Init() tea.Cmd { return nil }

func (m itemModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyPressMsg); ok && isQuit(k) {
		m.aborted = true
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.choice, cmd = m.choice.Update(msg)
	if m.choice.Submitted {
		return m, tea.Quit
	}
	return m, cmd
}

func (m itemModel) View() tea.View {
	return tea.NewView(m.render())
}

func (m itemModel) render() string {
	var b strings.Builder
	b.WriteString(m.progress.View())
	b.WriteString("\n\n")
	b.WriteString(m.choice.View())
	b.WriteString("\n")
	if m.selfReport {
		b.WriteString(theme.Hint.Render("Work it out on paper, then report honestly."))
		b.WriteString("\n")
	}
	b.WriteString(theme.Hint.Render("↑/↓ or 1-9 to choose • enter to answer • esc to quit"))
	return theme.Card.Render(b.String()) + "\n"
}

func (m itemModel) response() int {
	if m.choice.IsCorrect() {
		return 1
	}
	return 0
}

// textModel collects a free-text answer.
type textModel struct {
	prompt  string
	input   components.TextInput
	aborted bool
}

func newTextModel(prompt string) textModel {
	return textModel{
		prompt: prompt,
		input:  components.NewTextInput("Type your answer", 2000),
	}
}

func (m textModel) Init() tea.Cmd { return nil }

func (m textModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyPressMsg); ok && isQuit(k) {
		m.aborted = true
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Submitted() {
		return m, tea.Quit
	}
	return m, cmd
}

func (m textModel) View() tea.View {
	return tea.NewView(m.render())
}

func (m textModel) render() string {
	var b strings.Builder
	b.WriteString(theme.Title.Render(m.prompt))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(theme.Hint.Render("enter to submit • esc to quit"))
	return theme.Card.Render(b.String()) + "\n"
}

func isQuit(k tea.KeyPressMsg) bool {
	switch k.String() {
	case "esc", "ctrl+c":
		return true
	}
	return false
}
