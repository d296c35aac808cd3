package ssh

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	gossh "golang.org/x/crypto/ssh"
	"golang.org/x/sync/errgroup"

	"github.com/bnema/codex-console/internal/adapters/exec/shell"
	"github.com/bnema/codex-console/internal/domain"
	"github.com/bnema/codex-console/internal/ports"
)

const dialTimeout = 15 * time.Second

// Backend runs scripts on a remote host over SSH. The connection is
// established lazily and reused across commands; Codex runs as the
// login user, so escalation only applies the quiet environment.
type Backend struct {
	target   domain.SSHTarget
	password string

	mu     sync.Mutex
	client *gossh.Client
}

var _ ports.Backend = (*Backend)(nil)

func New(target domain.SSHTarget, password string) *Backend {
	return &Backend{target: target, password: password}
}

func (b *Backend) Quote(text string) string {
	return shell.BashSingleQuote(text)
}

func (b *Backend) Describe() string {
	user := b.target.User
	if user == "" {
		user = "root"
	}
	return fmt.Sprintf("Remote SSH %s@%s", user, b.target.Address())
}

// Close drops the cached connection. Safe to call when none is open.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client == nil {
		return nil
	}
	err := b.client.Close()
	b.client = nil
	return err
}

func (b *Backend) Run(ctx context.Context, req ports.ExecRequest) (ports.ExecResult, error) {
	return b.exec(ctx, req, nil)
}

func (b *Backend) Stream(ctx context.Context, req ports.ExecRequest, onLine ports.LineFunc) (ports.ExecResult, error) {
	return b.exec(ctx, req, shell.NewSink(onLine))
}

func (b *Backend) ensureClient() (*gossh.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil {
		if _, _, err := b.client.SendRequest("keepalive@openssh.com", true, nil); err == nil {
			return b.client, nil
		}
		b.client.Close()
		b.client = nil
	}

	cfg := &gossh.ClientConfig{
		User:            b.target.User,
		Auth:            []gossh.AuthMethod{gossh.Password(b.password)},
		HostKeyCallback: gossh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	}
	client, err := gossh.Dial("tcp", b.target.Address(), cfg)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", b.target.Address(), err)
	}
	b.client = client
	return client, nil
}

func (b *Backend) exec(ctx context.Context, req ports.ExecRequest, sink *shell.Sink) (ports.ExecResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.ExecResult{}, err
	}

	script := req.Script
	if req.AsRoot {
		script = shell.QuietEnvPrefix + " " + script
	}
	command := "bash -lc " + shell.BashSingleQuote(script)

	client, err := b.ensureClient()
	if err != nil {
		return ports.ExecResult{}, err
	}

	session, err := client.NewSession()
	if err != nil {
		return ports.ExecResult{}, fmt.Errorf("ssh session: %w", err)
	}
	defer session.Close()

	if req.Input != "" {
		input := req.Input
		if !strings.HasSuffix(input, "\n") {
			input += "\n"
		}
		session.Stdin = strings.NewReader(input)
	}

	stdout, err := session.StdoutPipe()
	if err != nil {
		return ports.ExecResult{}, fmt.Errorf("ssh stdout pipe: %w", err)
	}
	stderr, err := session.StderrPipe()
	if err != nil {
		return ports.ExecResult{}, fmt.Errorf("ssh stderr pipe: %w", err)
	}

	if err := session.Start(command); err != nil {
		return ports.ExecResult{}, fmt.Errorf("ssh start: %w", err)
	}

	var outBuf, errBuf strings.Builder
	g := new(errgroup.Group)
	g.Go(func() error { return shell.CollectLines(stdout, &outBuf, domain.StreamStdout, sink) })
	g.Go(func() error { return shell.CollectLines(stderr, &errBuf, domain.StreamStderr, sink) })

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	var timeoutCh <-chan time.Time
	if req.Timeout > 0 {
		timer := time.NewTimer(req.Timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	timedOut := false
	var waitErr error
	select {
	case waitErr = <-done:
	case <-timeoutCh:
		timedOut = true
		session.Close()
		waitErr = <-done
	case <-ctx.Done():
		session.Close()
		<-done
		_ = g.Wait()
		return ports.ExecResult{}, ctx.Err()
	}

	if err := g.Wait(); err != nil {
		return ports.ExecResult{}, err
	}

	res := ports.ExecResult{Stdout: outBuf.String(), Stderr: errBuf.String()}
	switch {
	case timedOut:
		res.ExitCode = 124
		if res.Stderr == "" {
			res.Stderr = shell.TimeoutMessage(req.Timeout)
		}
	case waitErr == nil:
		res.ExitCode = 0
	default:
		var exitErr *gossh.ExitError
		if errors.As(waitErr, &exitErr) {
			res.ExitCode = exitErr.ExitStatus()
		} else {
			res.ExitCode = 1
			if res.Stderr == "" {
				res.Stderr = waitErr.Error()
			}
		}
	}
	res.OK = res.ExitCode == 0
	return res, nil
}
