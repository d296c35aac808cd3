// Package shell holds the quoting and subprocess plumbing shared by the
// process-spawning backends.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	osexec "os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bnema/codex-console/internal/domain"
	"github.com/bnema/codex-console/internal/ports"
)

const (
	// QuietEnvExport silences terminal decoration inside escalated
	// shells so Codex output stays machine readable.
	QuietEnvExport = "export NO_COLOR=1 CLICOLOR=0 CI=1 TERM=dumb;"
	// QuietEnvPrefix is the env(1) form of the same environment.
	QuietEnvPrefix = "env NO_COLOR=1 CLICOLOR=0 CI=1 TERM=dumb"
)

// BashSingleQuote wraps text in single quotes for safe interpolation
// into a bash command line, escaping embedded quotes with the '"'"'
// sequence.
func BashSingleQuote(text string) string {
	return "'" + strings.ReplaceAll(text, "'", `'"'"'`) + "'"
}

// SudoWrap builds the escalated form of cmd: sudo reads the password
// from stdin with an empty prompt and runs the command under a quiet
// root login shell.
func SudoWrap(cmd string) string {
	return "sudo -S -p '' bash -lc " + BashSingleQuote(QuietEnvExport+" "+cmd)
}

// RootShellWrap builds the form of cmd run inside an already privileged
// login shell.
func RootShellWrap(cmd string) string {
	return "bash -lc " + BashSingleQuote(QuietEnvExport+" "+cmd)
}

// TimeoutMessage is the stderr text synthesized when a command is
// killed at its deadline and produced no stderr of its own.
func TimeoutMessage(timeout time.Duration) string {
	return fmt.Sprintf("Timeout after %d seconds", int(timeout/time.Second))
}

// Sink serializes line delivery across the stdout and stderr readers so
// a callback never runs concurrently with itself.
type Sink struct {
	mu sync.Mutex
	fn ports.LineFunc
}

func NewSink(fn ports.LineFunc) *Sink {
	if fn == nil {
		return nil
	}
	return &Sink{fn: fn}
}

func (s *Sink) Emit(src domain.Stream, line string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn(src, line)
}

// CollectLines drains r line by line into buf, emitting each line to the
// sink as it arrives. The final line is passed through even without a
// trailing newline.
func CollectLines(r io.Reader, buf *strings.Builder, src domain.Stream, sink *Sink) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			buf.WriteString(line)
			sink.Emit(src, line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, fs.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return fmt.Errorf("read %s: %w", src, err)
		}
	}
}

// RunPipes spawns argv, feeds it input, and fans output lines to the
// sink. The timeout kills the process and surfaces as exit code 124; a
// missing binary surfaces as exit code 127. Both are results, not
// errors.
func RunPipes(ctx context.Context, argv []string, input string, timeout time.Duration, sink *Sink) (ports.ExecResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.ExecResult{}, err
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := osexec.CommandContext(runCtx, argv[0], argv[1:]...)
	if input != "" {
		if !strings.HasSuffix(input, "\n") {
			input += "\n"
		}
		cmd.Stdin = strings.NewReader(input)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return ports.ExecResult{}, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return ports.ExecResult{}, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, osexec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return ports.ExecResult{
				ExitCode: 127,
				Stderr:   fmt.Sprintf("command not found: %s", argv[0]),
			}, nil
		}
		return ports.ExecResult{}, fmt.Errorf("start %s: %w", argv[0], err)
	}

	var outBuf, errBuf strings.Builder
	g := new(errgroup.Group)
	g.Go(func() error { return CollectLines(stdout, &outBuf, domain.StreamStdout, sink) })
	g.Go(func() error { return CollectLines(stderr, &errBuf, domain.StreamStderr, sink) })

	readErr := g.Wait()
	waitErr := cmd.Wait()

	if err := ctx.Err(); err != nil {
		return ports.ExecResult{}, err
	}
	if readErr != nil {
		return ports.ExecResult{}, readErr
	}

	res := ports.ExecResult{Stdout: outBuf.String(), Stderr: errBuf.String()}
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		res.ExitCode = 124
		if res.Stderr == "" {
			res.Stderr = TimeoutMessage(timeout)
		}
	case waitErr == nil:
		res.ExitCode = 0
	default:
		var exitErr *osexec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return ports.ExecResult{}, fmt.Errorf("wait %s: %w", argv[0], waitErr)
		}
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode < 0 {
			res.ExitCode = 1
		}
	}
	res.OK = res.ExitCode == 0
	return res, nil
}
