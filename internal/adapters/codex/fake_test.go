package codex

import (
	"context"
	"strings"
	"sync"

	"github.com/bnema/codex-console/internal/adapters/exec/shell"
	"github.com/bnema/codex-console/internal/domain"
	"github.com/bnema/codex-console/internal/ports"
)

// fakeBackend answers scripted responses and records every request.
// Exact script matches win over substring matches so short stubs do not
// shadow longer scripts that happen to contain them.
type fakeBackend struct {
	mu    sync.Mutex
	stubs []stubResponse
	calls []ports.ExecRequest
}

type stubResponse struct {
	match  string
	result ports.ExecResult
	err    error
}

var _ ports.Backend = (*fakeBackend)(nil)

func newFakeBackend() *fakeBackend {
	return &fakeBackend{}
}

func (f *fakeBackend) stub(match string, result ports.ExecResult) {
	f.stubs = append(f.stubs, stubResponse{match: match, result: result})
}

func (f *fakeBackend) stubErr(match string, err error) {
	f.stubs = append(f.stubs, stubResponse{match: match, err: err})
}

func okResult(stdout string) ports.ExecResult {
	return ports.ExecResult{OK: true, Stdout: stdout}
}

func failResult(code int, stderr string) ports.ExecResult {
	return ports.ExecResult{ExitCode: code, Stderr: stderr}
}

func (f *fakeBackend) Run(_ context.Context, req ports.ExecRequest) (ports.ExecResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	for _, s := range f.stubs {
		if s.match == req.Script {
			return s.result, s.err
		}
	}
	for _, s := range f.stubs {
		if strings.Contains(req.Script, s.match) {
			return s.result, s.err
		}
	}
	return ports.ExecResult{OK: true}, nil
}

func (f *fakeBackend) Stream(ctx context.Context, req ports.ExecRequest, onLine ports.LineFunc) (ports.ExecResult, error) {
	res, err := f.Run(ctx, req)
	if err != nil {
		return res, err
	}
	if onLine != nil {
		emitLines(onLine, domain.StreamStdout, res.Stdout)
		emitLines(onLine, domain.StreamStderr, res.Stderr)
	}
	return res, nil
}

func emitLines(onLine ports.LineFunc, src domain.Stream, text string) {
	for _, line := range strings.SplitAfter(text, "\n") {
		if line != "" {
			onLine(src, line)
		}
	}
}

func (f *fakeBackend) Quote(text string) string {
	return shell.BashSingleQuote(text)
}

func (f *fakeBackend) Describe() string {
	return "fake"
}

func (f *fakeBackend) scripts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, call := range f.calls {
		out[i] = call.Script
	}
	return out
}

func (f *fakeBackend) lastCall() ports.ExecRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}
