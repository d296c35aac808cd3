package wsl

import (
	"context"

	"github.com/bnema/codex-console/internal/adapters/exec/shell"
	"github.com/bnema/codex-console/internal/ports"
)

// Backend runs scripts inside the default WSL distribution via wsl.exe.
// Escalation tries sudo with the stored password first and falls back
// to the distribution's root user.
type Backend struct{}

var _ ports.Backend = (*Backend)(nil)

func New() *Backend {
	return &Backend{}
}

func (b *Backend) Quote(text string) string {
	return shell.BashSingleQuote(text)
}

func (b *Backend) Describe() string {
	return "Local WSL"
}

func (b *Backend) Run(ctx context.Context, req ports.ExecRequest) (ports.ExecResult, error) {
	return b.exec(ctx, req, nil)
}

func (b *Backend) Stream(ctx context.Context, req ports.ExecRequest, onLine ports.LineFunc) (ports.ExecResult, error) {
	return b.exec(ctx, req, shell.NewSink(onLine))
}

func (b *Backend) exec(ctx context.Context, req ports.ExecRequest, sink *shell.Sink) (ports.ExecResult, error) {
	if !req.AsRoot {
		argv := []string{"wsl.exe", "-e", "bash", "-lc", req.Script}
		return shell.RunPipes(ctx, argv, req.Input, req.Timeout, sink)
	}

	if req.SudoPassword != "" {
		argv := []string{"wsl.exe", "-e", "bash", "-lc", shell.SudoWrap(req.Script)}
		res, err := shell.RunPipes(ctx, argv, req.SudoPassword, req.Timeout, sink)
		if err != nil || res.OK {
			return res, err
		}
	}

	argv := []string{"wsl.exe", "-u", "root", "-e", "bash", "-lc", shell.RootShellWrap(req.Script)}
	return shell.RunPipes(ctx, argv, "", req.Timeout, sink)
}
