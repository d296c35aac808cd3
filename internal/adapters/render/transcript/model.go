package transcript

import (
	"errors"
	"io"

	"github.com/bnema/codex-console/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type renderReadyMsg struct{}

type model struct {
	view   func(styles) string
	styles styles
	output string
}

func newModel(view func(styles) string) model {
	return model{
		view:   view,
		styles: newStyles(),
	}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output = m.view(m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

// Render draws one completed run through a non-interactive bubbletea
// program so one-shot output is styled the same way as the chat surface.
func Render(turn Turn, opts RenderOptions) (string, error) {
	return runProgram(func(s styles) string {
		return renderView(turn, opts, s)
	})
}

// RenderHistory draws a conversation directory listing.
func RenderHistory(entries []domain.ConversationEntry, opts RenderOptions) (string, error) {
	return runProgram(func(s styles) string {
		return renderHistoryView(entries, opts, s)
	})
}

func runProgram(view func(styles) string) (string, error) {
	p := tea.NewProgram(
		newModel(view),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}
