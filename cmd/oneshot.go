package cmd

import (
	"context"

	"github.com/bnema/codex-console/internal/application"
	"github.com/bnema/codex-console/internal/domain"
)

// collected gathers everything a finished worker emitted. Log and answer
// lines land in transcript in arrival order, matching how the chat
// surface interleaves them.
type collected struct {
	transcript  []string
	thinking    []string
	tasks       []string
	usage       domain.TokenUsage
	entries     []domain.ConversationEntry
	sawEntries  bool
	filePath    string
	fileText    string
	sawFile     bool
	configTOML  string
	sawConfig   bool
	startedPath string
	sawStarted  bool
	renamedTo   string
	sawRenamed  bool
	runOK       bool
	sawRun      bool
}

// drainWorker runs the worker until its queue closes and collects every
// event. Callers enqueue their requests plus a StopRequest beforehand.
func drainWorker(ctx context.Context, worker *application.Worker) *collected {
	out := &collected{}
	done := make(chan struct{})

	go func() {
		defer close(done)
		for event := range worker.Events() {
			switch ev := event.(type) {
			case application.LogEvent:
				out.transcript = append(out.transcript, ev.Text)
			case application.AnswerEvent:
				out.transcript = append(out.transcript, ev.Text)
			case application.ThinkingEvent:
				out.thinking = append(out.thinking, ev.Text)
			case application.TaskEvent:
				out.tasks = append(out.tasks, ev.Text)
			case application.TokensEvent:
				out.usage = ev.Usage
			case application.HistoryEvent:
				out.entries = ev.Entries
				out.sawEntries = true
			case application.HistoryFileEvent:
				out.filePath = ev.Path
				out.fileText = ev.Text
				out.sawFile = true
			case application.ConfigEvent:
				out.configTOML = ev.TOML
				out.sawConfig = true
			case application.ConversationStartedEvent:
				out.startedPath = ev.Path
				out.sawStarted = true
			case application.ConversationRenamedEvent:
				out.renamedTo = ev.NewPath
				out.sawRenamed = true
			case application.RunEndEvent:
				out.runOK = ev.OK
				out.sawRun = true
			}
		}
	}()

	worker.Run(ctx)
	<-done
	return out
}

func (c *collected) sawTask(name string) bool {
	for _, task := range c.tasks {
		if task == name {
			return true
		}
	}
	return false
}
