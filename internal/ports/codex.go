package ports

import (
	"context"
	"time"

	"github.com/bnema/codex-console/internal/domain"
)

// CodexExec describes one codex exec invocation. A non-empty SessionID
// resumes that session; ResumeLast resumes the most recent one.
type CodexExec struct {
	Prompt       string
	SessionID    string
	ResumeLast   bool
	SudoPassword string
	Timeout      time.Duration
}

// CodexDriver wraps the Codex CLI running behind a Backend.
type CodexDriver interface {
	Describe() string
	CheckShell(ctx context.Context) (string, error)
	CheckInstalled(ctx context.Context) (string, error)
	Help(ctx context.Context) string
	EnsureLatest(ctx context.Context, sudoPassword string) (string, error)
	PushConfig(ctx context.Context, opts domain.CodexOptions, sudoPassword string) (string, error)
	ReadConfig(ctx context.Context, sudoPassword string) string
	SnapshotSessions(ctx context.Context, sudoPassword string) domain.SessionSnapshot
	Exec(ctx context.Context, req CodexExec, onLine LineFunc) (ExecResult, error)
}
