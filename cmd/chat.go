package cmd

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/bnema/codex-console/internal/adapters/render/transcript"
	"github.com/bnema/codex-console/internal/application"
	"github.com/bnema/codex-console/internal/domain"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

func newChatCmd(app *app) *cobra.Command {
	var (
		conversationDir string
		showThinking    bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive console",
		RunE: func(cmd *cobra.Command, _ []string) error {
			wired, err := app.buildStack(cmd.Context())
			if err != nil {
				return err
			}

			dir := conversationDir
			if dir == "" {
				dir = wired.settings.ConversationDir
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			worker := wired.newWorker()
			worker.Enqueue(application.PipelineRequest{ConversationDir: dir})
			go worker.Run(ctx)

			model := newChatModel(worker, cancel, dir, wired.driver.Describe(), showThinking)
			p := tea.NewProgram(model, tea.WithAltScreen())
			_, runErr := p.Run()

			// The worker goroutine only exits once its events are drained.
			cancel()
			for range worker.Events() {
			}

			return runErr
		},
	}

	cmd.Flags().StringVar(&conversationDir, "dir", "", "Conversation directory override")
	cmd.Flags().BoolVar(&showThinking, "thinking", false, "Show the reasoning stream inline")

	return cmd
}

type workerEventMsg struct {
	event application.Event
}

type workerDoneMsg struct{}

type chatStyles struct {
	title    lipgloss.Style
	answer   lipgloss.Style
	log      lipgloss.Style
	stderr   lipgloss.Style
	thinking lipgloss.Style
	task     lipgloss.Style
	tokens   lipgloss.Style
	divider  lipgloss.Style
}

func newChatStyles() chatStyles {
	return chatStyles{
		title:    lipgloss.NewStyle().Bold(true),
		answer:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		log:      lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		stderr:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		thinking: lipgloss.NewStyle().Faint(true),
		task:     lipgloss.NewStyle().Foreground(lipgloss.Color("69")),
		tokens:   lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		divider:  lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	}
}

type chatModel struct {
	worker *application.Worker
	cancel context.CancelFunc
	events <-chan application.Event

	textarea textarea.Model
	viewport viewport.Model
	renderer *glamour.TermRenderer
	styles   chatStyles

	describe         string
	baseDir          string
	conversationPath string
	showThinking     bool

	lines            []string
	entries          []domain.ConversationEntry
	wantHistoryPrint bool
	wantFilePrint    bool
	task             string
	usage            domain.TokenUsage
	running          bool
	quitting         bool
	ready            bool
	width            int
	height           int
}

func newChatModel(worker *application.Worker, cancel context.CancelFunc, baseDir, describe string, showThinking bool) chatModel {
	ta := textarea.New()
	ta.Placeholder = "Type a prompt (Enter to send, /help for commands)"
	ta.Focus()
	ta.SetHeight(3)
	ta.CharLimit = 0

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)

	return chatModel{
		worker:       worker,
		cancel:       cancel,
		events:       worker.Events(),
		textarea:     ta,
		renderer:     renderer,
		styles:       newChatStyles(),
		describe:     describe,
		baseDir:      baseDir,
		showThinking: showThinking,
		task:         "Starting",
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitForEvent())
}

// waitForEvent pumps one worker event into the update loop; it is
// re-armed after every receipt so the single-consumer channel keeps
// draining.
func (m chatModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.events
		if !ok {
			return workerDoneMsg{}
		}
		return workerEventMsg{event: event}
	}
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		viewportHeight := msg.Height - m.textarea.Height() - 4
		if viewportHeight < 1 {
			viewportHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, viewportHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = viewportHeight
		}
		m.textarea.SetWidth(msg.Width - 2)
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m.beginQuit()
		case tea.KeyEnter:
			return m.submit()
		}

	case workerEventMsg:
		m.applyEvent(msg.event)
		return m, m.waitForEvent()

	case workerDoneMsg:
		return m, tea.Quit
	}

	var taCmd, vpCmd tea.Cmd
	m.textarea, taCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(taCmd, vpCmd)
}

func (m chatModel) View() string {
	if !m.ready {
		return "Starting codex console..."
	}

	title := "Codex Console - " + m.describe
	if m.conversationPath != "" {
		title += " - " + domain.HistoryLabel(m.conversationPath, m.baseDir)
	}

	status := m.task
	if m.running {
		status = "[running] " + status
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.styles.title.Render(title),
		m.viewport.View(),
		m.styles.tokens.Render(transcript.FormatTokenLine(m.usage)),
		m.styles.task.Render(status),
		m.textarea.View(),
	)
}

func (m chatModel) beginQuit() (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, tea.Quit
	}
	m.quitting = true
	m.task = "Shutting down"
	m.cancel()
	return m, nil
}

func (m chatModel) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.textarea.Value())
	if text == "" {
		return m, nil
	}
	m.textarea.Reset()

	if strings.HasPrefix(text, "/") {
		return m.handleCommand(text)
	}

	m.appendLine(m.styles.log.Render("> " + text))
	m.worker.Enqueue(application.PromptRequest{
		Prompt:           text,
		ConversationPath: m.conversationPath,
		ConversationDir:  m.baseDir,
	})
	return m, nil
}

func (m chatModel) handleCommand(text string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(text)
	switch fields[0] {
	case "/quit", "/exit":
		return m.beginQuit()
	case "/new":
		m.worker.Enqueue(application.NewConversationRequest{ConversationDir: m.baseDir})
	case "/history":
		m.wantHistoryPrint = true
		m.worker.Enqueue(application.RefreshHistoryRequest{ConversationDir: m.baseDir})
	case "/open":
		if len(fields) < 2 {
			m.appendLine(m.styles.log.Render("Usage: /open <path>"))
			break
		}
		m.wantFilePrint = true
		m.worker.Enqueue(application.OpenHistoryRequest{Path: m.resolvePath(fields[1])})
	case "/rename":
		if len(fields) < 2 {
			m.appendLine(m.styles.log.Render("Usage: /rename <title>"))
			break
		}
		if m.conversationPath == "" {
			m.appendLine(m.styles.log.Render("No conversation open."))
			break
		}
		m.worker.Enqueue(application.RenameConversationRequest{
			Path:            m.conversationPath,
			Title:           strings.Join(fields[1:], " "),
			ConversationDir: m.baseDir,
		})
	case "/config":
		m.worker.Enqueue(application.LoadConfigRequest{})
	case "/help":
		m.appendLine(m.styles.log.Render("Commands: /new /history /open <path> /rename <title> /config /quit"))
	default:
		m.appendLine(m.styles.log.Render("Unknown command: " + fields[0]))
	}
	m.refreshViewport()
	return m, nil
}

func (m *chatModel) applyEvent(event application.Event) {
	switch ev := event.(type) {
	case application.LogEvent:
		m.appendLine(m.styles.log.Render(ev.Text))
	case application.AnswerEvent:
		if strings.HasPrefix(ev.Text, domain.StderrMarker) {
			m.appendLine(m.styles.stderr.Render(ev.Text))
		} else {
			m.appendLine(m.styles.answer.Render(ev.Text))
		}
	case application.ThinkingEvent:
		if m.showThinking {
			for _, line := range strings.Split(ev.Text, "\n") {
				m.appendLine(m.styles.thinking.Render(line))
			}
		}
	case application.TaskEvent:
		m.task = ev.Text
	case application.TokensEvent:
		m.usage = ev.Usage
	case application.RunBeginEvent:
		m.running = true
	case application.RunEndEvent:
		m.running = false
		if !ev.OK {
			m.appendLine(m.styles.stderr.Render("[run failed]"))
		}
	case application.HistoryEvent:
		m.entries = ev.Entries
		if m.wantHistoryPrint {
			m.wantHistoryPrint = false
			m.appendHistory(ev.Entries)
		}
	case application.HistoryFileEvent:
		m.applyFile(ev.Path, ev.Text)
	case application.ConversationStartedEvent:
		m.conversationPath = ev.Path
	case application.ConversationRenamedEvent:
		if m.conversationPath == ev.OldPath {
			m.conversationPath = ev.NewPath
		}
	}
	m.refreshViewport()
}

func (m *chatModel) appendHistory(entries []domain.ConversationEntry) {
	m.appendLine(m.styles.divider.Render(fmt.Sprintf("-- conversations (%d) --", len(entries))))
	for _, entry := range entries {
		m.appendLine(m.styles.log.Render(domain.HistoryLabel(entry.Path, m.baseDir)))
	}
}

func (m *chatModel) applyFile(filePath, text string) {
	m.conversationPath = filePath
	if !m.wantFilePrint {
		return
	}
	m.wantFilePrint = false

	m.appendLine(m.styles.divider.Render("-- " + domain.HistoryLabel(filePath, m.baseDir) + " --"))
	rendered := text
	if m.renderer != nil {
		if pretty, err := m.renderer.Render(text); err == nil {
			rendered = pretty
		}
	}
	for _, line := range strings.Split(strings.TrimRight(rendered, "\n"), "\n") {
		m.appendLine(line)
	}
}

func (m *chatModel) appendLine(line string) {
	m.lines = append(m.lines, line)
}

func (m *chatModel) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

func (m chatModel) resolvePath(target string) string {
	if strings.HasPrefix(target, "/") || m.baseDir == "" {
		return target
	}
	return path.Join(m.baseDir, target)
}
