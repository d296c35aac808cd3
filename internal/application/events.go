package application

import "github.com/bnema/codex-console/internal/domain"

// Event is one message on the worker's outbound channel. The worker is
// the only writer; a single consumer drains the channel until it closes.
type Event interface {
	isEvent()
}

// LogEvent is a worker status line for the user-visible transcript.
type LogEvent struct {
	Text string
}

// AnswerEvent is answer content routed to the user-visible transcript.
type AnswerEvent struct {
	Text string
}

// ThinkingEvent is normalized reasoning text for the thinking pane.
type ThinkingEvent struct {
	Text string
}

// TaskEvent names what the worker is doing right now.
type TaskEvent struct {
	Text string
}

// RunBeginEvent marks the start of a raw run log.
type RunBeginEvent struct{}

// RawChunkEvent is one verbatim output line for the raw run log,
// interleaved across both streams in arrival order.
type RawChunkEvent struct {
	Chunk string
}

// RunEndEvent closes the raw run log with the turn's outcome.
type RunEndEvent struct {
	OK bool
}

// HistoryEvent replaces the conversation listing, newest first.
type HistoryEvent struct {
	Entries []domain.ConversationEntry
}

// HistoryFileEvent carries one transcript body for display.
type HistoryFileEvent struct {
	Path string
	Text string
}

// ConversationStartedEvent announces a fresh transcript file. Token
// metrics are reset alongside; front ends typically respond by opening
// the new path.
type ConversationStartedEvent struct {
	Path string
}

// ConversationRenamedEvent announces a retitled transcript so front ends
// can follow the path.
type ConversationRenamedEvent struct {
	OldPath string
	NewPath string
}

// ConfigEvent carries the config.toml body currently on the backend.
type ConfigEvent struct {
	TOML string
}

// TokensEvent publishes the token metrics after a change.
type TokensEvent struct {
	Usage domain.TokenUsage
}

func (LogEvent) isEvent()                 {}
func (AnswerEvent) isEvent()              {}
func (ThinkingEvent) isEvent()            {}
func (TaskEvent) isEvent()                {}
func (RunBeginEvent) isEvent()            {}
func (RawChunkEvent) isEvent()            {}
func (RunEndEvent) isEvent()              {}
func (HistoryEvent) isEvent()             {}
func (HistoryFileEvent) isEvent()         {}
func (ConversationStartedEvent) isEvent() {}
func (ConversationRenamedEvent) isEvent() {}
func (ConfigEvent) isEvent()              {}
func (TokensEvent) isEvent()              {}
