// Package application runs the single background worker that drives the
// Codex CLI. Front ends enqueue typed requests and drain typed events;
// all conversational state (session map, token metrics, router memory)
// is owned by the worker goroutine and never shared.
package application

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/bnema/codex-console/internal/domain"
	"github.com/bnema/codex-console/internal/ports"
)

// Options configure a Worker. Zero values fall back to the domain
// defaults; a nil Logger disables diagnostics.
type Options struct {
	// Password is the sudo or login password forwarded to the backend.
	Password string
	// TokenBudget seeds the per-conversation token metrics.
	TokenBudget int
	// ExecTimeout caps one codex exec turn; zero uses the driver default.
	ExecTimeout time.Duration
	// FallbackDir is used when a prompt request names no conversation
	// directory.
	FallbackDir string
	Logger      *zap.Logger
}

// Worker executes requests one at a time from an unbounded FIFO queue
// and reports through a single-consumer event channel.
type Worker struct {
	codex  ports.CodexDriver
	store  ports.ConversationStore
	logger *zap.Logger

	password    string
	tokenBudget int
	execTimeout time.Duration
	fallbackDir string

	queue  *requestQueue
	events chan Event
	halt   atomic.Bool

	// owned by the Run goroutine
	router     *domain.Router
	tracker    *domain.TokenTracker
	sessionIDs map[string]string
}

func NewWorker(driver ports.CodexDriver, store ports.ConversationStore, opts Options) *Worker {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	fallback := opts.FallbackDir
	if fallback == "" {
		fallback = domain.DefaultSettings().ConversationDir
	}
	tracker := domain.NewTokenTracker()
	tracker.SeedBudget(opts.TokenBudget)

	return &Worker{
		codex:       driver,
		store:       store,
		logger:      logger,
		password:    opts.Password,
		tokenBudget: opts.TokenBudget,
		execTimeout: opts.ExecTimeout,
		fallbackDir: fallback,
		queue:       newRequestQueue(),
		events:      make(chan Event, 64),
		router:      domain.NewRouter(),
		tracker:     tracker,
		sessionIDs:  make(map[string]string),
	}
}

// Enqueue adds a request without ever blocking the caller.
func (w *Worker) Enqueue(req Request) {
	w.queue.push(req)
}

// Events returns the outbound channel. Exactly one consumer must drain
// it until it closes, or the worker stalls mid-action.
func (w *Worker) Events() <-chan Event {
	return w.events
}

// Stop makes the worker exit between actions. In-flight work is not
// interrupted; anything still queued is discarded.
func (w *Worker) Stop() {
	w.halt.Store(true)
	w.queue.close()
}

// Run drains the queue until Stop is called or ctx is canceled, then
// closes the event channel. An unexpected panic inside an action is
// logged and the loop keeps going.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.events)
	unwatch := context.AfterFunc(ctx, w.Stop)
	defer unwatch()

	for {
		req, ok := w.queue.pop()
		if !ok || w.halt.Load() {
			return
		}
		w.dispatch(ctx, req)
	}
}

func (w *Worker) dispatch(ctx context.Context, req Request) {
	defer func() {
		if rec := recover(); rec != nil {
			w.logger.Error("worker action panicked", zap.Any("recover", rec))
			w.log(fmt.Sprintf("Worker exception: %v", rec))
		}
	}()
	w.logger.Debug("dispatch", zap.String("request", fmt.Sprintf("%T", req)))

	switch req := req.(type) {
	case PipelineRequest:
		w.pipeline(ctx, req.ConversationDir)
	case PromptRequest:
		w.runPrompt(ctx, req)
	case LoadConfigRequest:
		w.loadConfig(ctx)
	case SaveConfigRequest:
		w.saveConfig(ctx, req.Options)
	case RefreshHistoryRequest:
		w.refreshHistory(ctx, req.ConversationDir)
	case OpenHistoryRequest:
		w.openHistory(ctx, req.Path)
	case NewConversationRequest:
		w.newConversation(ctx, req.ConversationDir)
	case RenameConversationRequest:
		w.renameConversation(ctx, req)
	case StopRequest:
		w.Stop()
	}
}

// Event helpers ------------------------------------------------------

func (w *Worker) emit(ev Event) {
	w.events <- ev
}

func (w *Worker) log(text string) {
	if text == "" {
		return
	}
	w.emit(LogEvent{Text: text})
	w.observe(text)
}

func (w *Worker) task(text string) {
	w.emit(TaskEvent{Text: text})
}

func (w *Worker) answer(text string) {
	if text == "" {
		return
	}
	w.emit(AnswerEvent{Text: text})
	w.observe(text)
}

func (w *Worker) thinking(text string) {
	clean := domain.NormalizeThinking(text)
	if clean == "" {
		return
	}
	w.emit(ThinkingEvent{Text: clean})
	w.observe(clean)
}

// observe feeds displayed text to the token tracker: telemetry can hide
// inside any channel, not just routed telemetry lines.
func (w *Worker) observe(text string) {
	if w.tracker.Observe(text) {
		w.emit(TokensEvent{Usage: w.tracker.Usage()})
	}
}

// startConversation resets the token metrics for a fresh transcript and
// tells the front end to follow the new path.
func (w *Worker) startConversation(path string) {
	w.tracker = domain.NewTokenTracker()
	w.tracker.SeedBudget(w.tokenBudget)
	w.emit(ConversationStartedEvent{Path: path})
	w.emit(TokensEvent{Usage: w.tracker.Usage()})
}

// Pipeline ------------------------------------------------------------

// HealthCheckTask is the progress label for the pipeline's final exec
// probe. Front ends can key on it to tell a full pipeline pass from one
// aborted by a failed shell or CLI check.
const HealthCheckTask = "Running codex exec health check"

func (w *Worker) pipeline(ctx context.Context, conversationDir string) {
	w.task("Checking backend shell")
	msg, err := w.codex.CheckShell(ctx)
	if msg != "" {
		w.log(msg)
	} else if err != nil {
		w.log(err.Error())
	}
	if err != nil {
		w.task("Idle")
		return
	}

	w.task("Checking codex CLI")
	msg, err = w.codex.CheckInstalled(ctx)
	if msg != "" {
		w.log(msg)
	} else if err != nil {
		w.log(err.Error())
	}
	if err != nil {
		w.task("Idle")
		return
	}

	if conversationDir != "" {
		dir, err := w.store.EnsureDir(ctx, conversationDir)
		if err != nil {
			w.log(fmt.Sprintf("Conversation dir error: %s", errText(err)))
		} else {
			w.log(fmt.Sprintf("Conversation dir ready: %s", dir))
		}
	}

	w.task("codex help")
	if help := w.codex.Help(ctx); help != "" {
		w.log(help)
	}

	w.task("Writing default 'no-approval' config")
	confMsg, err := w.codex.PushConfig(ctx, domain.DefaultSettings().Codex, w.password)
	if err != nil {
		w.log(errText(err))
	} else {
		w.log(confMsg)
	}
	w.log(w.codex.ReadConfig(ctx, w.password))

	w.task(HealthCheckTask)
	res, err := w.codex.Exec(ctx, ports.CodexExec{
		Prompt:       domain.HealthCheckPrompt,
		SudoPassword: w.password,
		Timeout:      w.execTimeout,
	}, nil)
	if err != nil {
		res = ports.ExecResult{ExitCode: 1, Stderr: err.Error()}
	}
	w.log(fmt.Sprintf("[codex exec] rc=%d", res.ExitCode))
	if out := strings.TrimSpace(res.Stdout); out != "" {
		w.log(out)
	}
	if errOut := strings.TrimSpace(res.Stderr); errOut != "" {
		w.log("[stderr] " + errOut)
	}

	w.refreshHistory(ctx, conversationDir)
	w.task("Idle")
}

// Prompt execution ----------------------------------------------------

func (w *Worker) runPrompt(ctx context.Context, req PromptRequest) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		w.log("No prompt provided.")
		return
	}

	conversationPath := req.ConversationPath
	baseDir := req.ConversationDir
	if baseDir == "" {
		baseDir = w.fallbackDir
	}
	if baseDir != "" && baseDir != req.ConversationDir {
		w.log(fmt.Sprintf("Using fallback conversation directory: %s", baseDir))
	} else if baseDir == "" {
		w.log("Conversation directory not set; history will not be saved.")
	}

	if conversationPath == "" && baseDir != "" {
		path, err := w.store.Create(ctx, baseDir)
		if err != nil {
			w.log(fmt.Sprintf("Failed to prepare conversation file: %s", errText(err)))
		} else {
			conversationPath = path
			w.log(fmt.Sprintf("Auto-created conversation file: %s", conversationPath))
			w.startConversation(conversationPath)
			w.sessionIDs[conversationPath] = ""
		}
	}

	w.emit(RunBeginEvent{})
	before := w.codex.SnapshotSessions(ctx, w.password)
	w.task("Running codex exec")
	w.thinking(fmt.Sprintf("Executing prompt: %s", prompt))

	w.router.BeginTurn(prompt)
	stdoutParser := domain.NewSplitter()
	stderrParser := domain.NewSplitter()
	var stdoutRaw, stderrRaw strings.Builder

	onLine := func(src domain.Stream, line string) {
		if src == domain.StreamStderr {
			stderrRaw.WriteString(line)
		} else {
			stdoutRaw.WriteString(line)
		}
		w.emit(RawChunkEvent{Chunk: line})
		parser := stdoutParser
		if src == domain.StreamStderr {
			parser = stderrParser
		}
		w.handleStreamLine(parser, src, line)
	}

	res := w.execTurn(ctx, prompt, conversationPath, req.ResumeLast, onLine)

	if block, ok := stdoutParser.Flush(); ok {
		w.thinking(block)
	}
	if block, ok := stderrParser.Flush(); ok {
		w.thinking(block)
	}

	w.log(fmt.Sprintf("[cmd] rc=%d", res.ExitCode))

	after := w.codex.SnapshotSessions(ctx, w.password)

	if conversationPath != "" {
		record := domain.TurnRecord{
			Prompt: prompt,
			Output: stdoutRaw.String(),
			Stderr: stderrRaw.String(),
		}
		if err := w.store.Append(ctx, conversationPath, record); err != nil {
			w.log(fmt.Sprintf("Conversation append failed: %s", errText(err)))
		} else {
			w.openHistory(ctx, conversationPath)
		}
		if res.OK {
			if sid, ok := domain.Correlate(before, after); ok {
				w.sessionIDs[conversationPath] = sid
			}
		}
	}

	refreshDir := baseDir
	if refreshDir == "" {
		refreshDir = req.ConversationDir
	}
	w.refreshHistory(ctx, refreshDir)
	w.emit(RunEndEvent{OK: res.OK})
}

// execTurn runs the exec stream, resuming the conversation's session when
// one is known and falling back to a fresh session exactly once if the
// resume fails.
func (w *Worker) execTurn(ctx context.Context, prompt, conversationPath string, resumeLast bool, onLine ports.LineFunc) ports.ExecResult {
	run := func(req ports.CodexExec) ports.ExecResult {
		res, err := w.codex.Exec(ctx, req, onLine)
		if err != nil {
			return ports.ExecResult{ExitCode: 1, Stderr: err.Error()}
		}
		return res
	}

	base := ports.CodexExec{
		Prompt:       prompt,
		SudoPassword: w.password,
		Timeout:      w.execTimeout,
	}
	sessionID := ""
	if conversationPath != "" {
		sessionID = w.sessionIDs[conversationPath]
	}

	switch {
	case sessionID != "":
		attempt := base
		attempt.SessionID = sessionID
		res := run(attempt)
		if !res.OK {
			w.log(fmt.Sprintf("Resume failed (session %s), falling back to new session: rc=%d", sessionID, res.ExitCode))
			w.sessionIDs[conversationPath] = ""
			res = run(base)
		}
		return res
	case resumeLast:
		attempt := base
		attempt.ResumeLast = true
		res := run(attempt)
		if !res.OK {
			w.log(fmt.Sprintf("Resume failed (session last), falling back to new session: rc=%d", res.ExitCode))
			res = run(base)
		}
		return res
	default:
		return run(base)
	}
}

// handleStreamLine pushes one raw line through the splitter and routes
// whatever comes out.
func (w *Worker) handleStreamLine(parser *domain.Splitter, src domain.Stream, line string) {
	blocks, cleaned, ok := parser.FeedLine(line)
	for _, block := range blocks {
		w.thinking(block)
	}
	if !ok {
		return
	}
	routed := w.router.Route(cleaned, src)
	switch routed.Kind {
	case domain.RouteTelemetry:
		w.observe(routed.Text)
	case domain.RouteThinking:
		w.thinking(routed.Text)
	case domain.RouteAnswer:
		w.answer(routed.Text)
	}
}

// Config --------------------------------------------------------------

func (w *Worker) loadConfig(ctx context.Context) {
	w.task(fmt.Sprintf("Loading config from %s", w.codex.Describe()))
	txt := w.codex.ReadConfig(ctx, w.password)
	w.emit(ConfigEvent{TOML: txt})
	w.log("Loaded config:")
	w.log(txt)
	w.task("Idle")
}

func (w *Worker) saveConfig(ctx context.Context, opts domain.CodexOptions) {
	w.task(fmt.Sprintf("Saving config to %s", w.codex.Describe()))
	msg, err := w.codex.PushConfig(ctx, opts, w.password)
	if err != nil {
		w.log(errText(err))
	} else {
		w.log(msg)
	}
	cfg := w.codex.ReadConfig(ctx, w.password)
	w.log(cfg)
	if err == nil {
		w.emit(ConfigEvent{TOML: cfg})
	}
	w.task("Idle")
}

// History -------------------------------------------------------------

func (w *Worker) refreshHistory(ctx context.Context, conversationDir string) {
	label := conversationDir
	if label == "" {
		label = "(not set)"
	}
	w.task(fmt.Sprintf("Scanning conversation directory: %s", label))
	if conversationDir == "" {
		w.log("Conversation directory not set.")
		w.emit(HistoryEvent{})
		w.task("Idle")
		return
	}
	if _, err := w.store.EnsureDir(ctx, conversationDir); err != nil {
		w.log(fmt.Sprintf("Conversation dir error: %s", errText(err)))
	}
	entries, err := w.store.List(ctx, conversationDir)
	w.emit(HistoryEvent{Entries: entries})
	if err != nil {
		w.log(fmt.Sprintf("History scan error: %s", errText(err)))
	}
	w.log(fmt.Sprintf("Found %d history files.", len(entries)))
	w.task("Idle")
}

func (w *Worker) openHistory(ctx context.Context, path string) {
	if path == "" {
		return
	}
	w.task(fmt.Sprintf("Opening: %s", path))
	text, err := w.store.Read(ctx, path)
	if err != nil {
		text = errText(err)
	}
	w.emit(HistoryFileEvent{Path: path, Text: text})
	w.task("Idle")
}

func (w *Worker) newConversation(ctx context.Context, conversationDir string) {
	w.task("Starting new conversation")
	if conversationDir == "" {
		w.log("Conversation directory not set. Set it before starting a new conversation.")
		w.task("Idle")
		return
	}
	path, err := w.store.Create(ctx, conversationDir)
	if err != nil {
		w.log(fmt.Sprintf("Failed to start conversation: %s", errText(err)))
	} else {
		w.log(fmt.Sprintf("New conversation file: %s", path))
		w.sessionIDs[path] = ""
		w.startConversation(path)
	}
	w.task("Idle")
}

func (w *Worker) renameConversation(ctx context.Context, req RenameConversationRequest) {
	w.task(fmt.Sprintf("Renaming: %s", req.Path))
	newPath, err := w.store.Rename(ctx, req.Path, req.Title)
	if err != nil {
		w.log(fmt.Sprintf("Rename failed: %s", errText(err)))
		w.task("Idle")
		return
	}
	w.log(fmt.Sprintf("Renamed conversation: %s", newPath))
	if sid, ok := w.sessionIDs[req.Path]; ok {
		delete(w.sessionIDs, req.Path)
		w.sessionIDs[newPath] = sid
	}
	w.emit(ConversationRenamedEvent{OldPath: req.Path, NewPath: newPath})
	w.openHistory(ctx, newPath)
	if req.ConversationDir != "" {
		w.refreshHistory(ctx, req.ConversationDir)
	}
	w.task("Idle")
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
