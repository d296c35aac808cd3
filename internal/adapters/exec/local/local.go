package local

import (
	"context"
	"os"

	"github.com/bnema/codex-console/internal/adapters/exec/shell"
	"github.com/bnema/codex-console/internal/ports"
)

// Backend runs scripts under the native login shell. Escalation uses
// sudo when a password is available and falls back to a direct run,
// which already is root in the common container and WSL-guest setups.
type Backend struct{}

var _ ports.Backend = (*Backend)(nil)

func New() *Backend {
	return &Backend{}
}

func (b *Backend) Quote(text string) string {
	return shell.BashSingleQuote(text)
}

func (b *Backend) Describe() string {
	return "Local shell"
}

func (b *Backend) Run(ctx context.Context, req ports.ExecRequest) (ports.ExecResult, error) {
	return b.exec(ctx, req, nil)
}

func (b *Backend) Stream(ctx context.Context, req ports.ExecRequest, onLine ports.LineFunc) (ports.ExecResult, error) {
	return b.exec(ctx, req, shell.NewSink(onLine))
}

func (b *Backend) exec(ctx context.Context, req ports.ExecRequest, sink *shell.Sink) (ports.ExecResult, error) {
	if !req.AsRoot {
		return shell.RunPipes(ctx, []string{"bash", "-lc", req.Script}, req.Input, req.Timeout, sink)
	}

	if req.SudoPassword != "" && os.Geteuid() != 0 {
		argv := []string{"bash", "-lc", shell.SudoWrap(req.Script)}
		res, err := shell.RunPipes(ctx, argv, req.SudoPassword, req.Timeout, sink)
		if err != nil || res.OK {
			return res, err
		}
	}

	argv := []string{"bash", "-lc", shell.QuietEnvExport + " " + req.Script}
	return shell.RunPipes(ctx, argv, req.Input, req.Timeout, sink)
}
