package application

import "github.com/bnema/codex-console/internal/domain"

// Request is one unit of work for the worker. The set of variants is
// closed: the worker dispatches on concrete type, so front ends can only
// ask for what the switch understands.
type Request interface {
	isRequest()
}

// PipelineRequest runs the startup sequence: shell probe, CLI probe,
// conversation dir preparation, default config push, and a health-check
// exec turn.
type PipelineRequest struct {
	ConversationDir string
}

// PromptRequest executes one codex exec turn, resuming the conversation's
// session when one is known. ResumeLast instead resumes the backend's most
// recent session when the conversation has none of its own.
type PromptRequest struct {
	Prompt           string
	ConversationPath string
	ConversationDir  string
	ResumeLast       bool
}

// LoadConfigRequest reads the pushed config.toml back from the backend.
type LoadConfigRequest struct{}

// SaveConfigRequest pushes new Codex options and reads the result back.
type SaveConfigRequest struct {
	Options domain.CodexOptions
}

// RefreshHistoryRequest rescans the conversation directory.
type RefreshHistoryRequest struct {
	ConversationDir string
}

// OpenHistoryRequest reads one transcript file for display.
type OpenHistoryRequest struct {
	Path string
}

// NewConversationRequest creates a fresh transcript file.
type NewConversationRequest struct {
	ConversationDir string
}

// RenameConversationRequest retitles a transcript file, keeping its
// session association.
type RenameConversationRequest struct {
	Path            string
	Title           string
	ConversationDir string
}

// StopRequest asks the worker to finish the current action and exit.
type StopRequest struct{}

func (PipelineRequest) isRequest()           {}
func (PromptRequest) isRequest()             {}
func (LoadConfigRequest) isRequest()         {}
func (SaveConfigRequest) isRequest()         {}
func (RefreshHistoryRequest) isRequest()     {}
func (OpenHistoryRequest) isRequest()        {}
func (NewConversationRequest) isRequest()    {}
func (RenameConversationRequest) isRequest() {}
func (StopRequest) isRequest()               {}
