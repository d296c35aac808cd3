package ports

import (
	"context"
	"time"

	"github.com/bnema/codex-console/internal/domain"
)

// LineFunc receives one raw output line, newline included, tagged with
// the stream it arrived on.
type LineFunc func(src domain.Stream, line string)

// ExecRequest is one shell invocation. The script runs under a login
// shell; AsRoot additionally escalates and exports the quiet terminal
// environment Codex needs for machine-readable output.
type ExecRequest struct {
	Script       string
	Input        string
	Timeout      time.Duration
	AsRoot       bool
	SudoPassword string
}

// ExecResult mirrors the child process outcome. Timeouts surface as exit
// code 124 with a synthesized stderr message, not as an error.
type ExecResult struct {
	OK       bool
	ExitCode int
	Stdout   string
	Stderr   string
}

// Backend runs shell commands in one execution context: the native
// shell, a WSL distribution, or a remote SSH host.
type Backend interface {
	Run(ctx context.Context, req ExecRequest) (ExecResult, error)
	Stream(ctx context.Context, req ExecRequest, onLine LineFunc) (ExecResult, error)
	Quote(text string) string
	Describe() string
}
