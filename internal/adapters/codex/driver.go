// Package codex wraps the Codex CLI running behind an execution
// backend: command construction, health checks, config pushes, and
// session artifact scouting.
package codex

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/codex-console/internal/domain"
	"github.com/bnema/codex-console/internal/ports"
)

// baseCommand disables every interactive gate so exec runs
// unattended end to end.
const baseCommand = "codex --search --dangerously-bypass-approvals-and-sandbox exec --skip-git-repo-check"

const defaultExecTimeout = 900 * time.Second

type Driver struct {
	be ports.Backend
}

var _ ports.CodexDriver = (*Driver)(nil)

func NewDriver(be ports.Backend) *Driver {
	return &Driver{be: be}
}

// Describe names the execution context Codex runs in.
func (d *Driver) Describe() string {
	return d.be.Describe()
}

func (d *Driver) buildExec(req ports.CodexExec) string {
	parts := []string{baseCommand}
	switch {
	case req.SessionID != "":
		parts = append(parts, "resume", d.be.Quote(strings.TrimSpace(req.SessionID)))
	case req.ResumeLast:
		parts = append(parts, "resume", "--last")
	}
	parts = append(parts, d.be.Quote(req.Prompt))
	return strings.Join(parts, " ")
}

// Exec runs one codex exec turn, streaming output lines when a callback
// is given.
func (d *Driver) Exec(ctx context.Context, req ports.CodexExec, onLine ports.LineFunc) (ports.ExecResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultExecTimeout
	}
	exec := ports.ExecRequest{
		Script:       d.buildExec(req),
		Timeout:      timeout,
		AsRoot:       true,
		SudoPassword: req.SudoPassword,
	}
	if onLine == nil {
		return d.be.Run(ctx, exec)
	}
	return d.be.Stream(ctx, exec, onLine)
}

// CheckShell probes the backend with a marker echo.
func (d *Driver) CheckShell(ctx context.Context) (string, error) {
	res, err := d.be.Run(ctx, ports.ExecRequest{Script: "echo SHELL_OK"})
	if err != nil {
		return "", err
	}
	msg := strings.TrimSpace(res.Stdout)
	if msg == "" {
		msg = strings.TrimSpace(res.Stderr)
	}
	if !res.OK || !strings.Contains(res.Stdout, "SHELL_OK") {
		return msg, domain.ErrShellNotReady
	}
	return msg, nil
}

// CheckInstalled locates the codex binary and verifies it actually
// runs, catching broken installs such as wrong-architecture binaries.
func (d *Driver) CheckInstalled(ctx context.Context) (string, error) {
	res, err := d.be.Run(ctx, ports.ExecRequest{Script: "command -v codex || true"})
	if err != nil {
		return "", err
	}
	path := strings.TrimSpace(res.Stdout)
	if path == "" {
		return "codex not found in PATH", domain.ErrCodexNotInstalled
	}

	ver, err := d.be.Run(ctx, ports.ExecRequest{Script: "codex --version"})
	if err != nil {
		return "", err
	}
	if !ver.OK {
		detail := strings.TrimSpace(ver.Stderr)
		if detail == "" {
			detail = strings.TrimSpace(ver.Stdout)
		}
		return fmt.Sprintf("codex found at %s but failed to run: %s", path, detail), domain.ErrCodexNotInstalled
	}
	return path, nil
}

// Help captures the CLI usage text for the run log.
func (d *Driver) Help(ctx context.Context) string {
	res, err := d.be.Run(ctx, ports.ExecRequest{Script: "codex --help"})
	if err != nil {
		return ""
	}
	out := strings.TrimSpace(res.Stdout)
	if out == "" {
		out = strings.TrimSpace(res.Stderr)
	}
	return out
}
