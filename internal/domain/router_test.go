package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterHidesBannerLines(t *testing.T) {
	r := NewRouter()

	tests := []struct {
		name string
		line string
	}{
		{name: "version banner", line: "OpenAI Codex v0.5.0 (research preview)"},
		{name: "workdir", line: "workdir: /root/project"},
		{name: "model", line: "model: gpt-5-codex"},
		{name: "provider", line: "provider: openai"},
		{name: "approval", line: "approval: never"},
		{name: "sandbox", line: "sandbox: danger-full-access"},
		{name: "reasoning effort", line: "reasoning effort: high"},
		{name: "reasoning summaries", line: "reasoning summaries: auto"},
		{name: "user instructions", line: "user instructions: be brief"},
		{name: "divider", line: "--------"},
		{name: "tagged banner", line: "[2024-01-01T00:00:00] model: gpt-5-codex"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			routed := r.Route(tt.line, StreamStdout)
			assert.Equal(t, RouteHidden, routed.Kind)
		})
	}
}

func TestRouterRoutesTelemetryLines(t *testing.T) {
	r := NewRouter()

	routed := r.Route("tokens used: 1234", StreamStdout)
	assert.Equal(t, RouteTelemetry, routed.Kind)

	routed = r.Route("token usage for turn: input 100, output 50, total = 150", StreamStdout)
	assert.Equal(t, RouteTelemetry, routed.Kind)

	routed = r.Route("context remaining: 500 (25%)", StreamStdout)
	assert.Equal(t, RouteTelemetry, routed.Kind)
}

func TestRouterRecombinesStderrTokenLabel(t *testing.T) {
	r := NewRouter()

	routed := r.Route("tokens used", StreamStderr)
	assert.Equal(t, RouteHidden, routed.Kind)

	routed = r.Route("4096", StreamStderr)
	require.Equal(t, RouteTelemetry, routed.Kind)
	assert.Equal(t, "tokens used: 4096", routed.Text)
}

func TestRouterStderrTokenLabelFollowedByTextFallsThrough(t *testing.T) {
	r := NewRouter()

	_ = r.Route("tokens used", StreamStderr)
	routed := r.Route("some other message", StreamStderr)
	require.Equal(t, RouteAnswer, routed.Kind)
	assert.Equal(t, StderrMarker+"some other message", routed.Text)
}

func TestRouterStdoutBareNumberIsAnswer(t *testing.T) {
	r := NewRouter()

	routed := r.Route("4096", StreamStdout)
	assert.Equal(t, RouteAnswer, routed.Kind)
}

func TestRouterSuppressesPromptEcho(t *testing.T) {
	r := NewRouter()
	r.BeginTurn("list the files")

	routed := r.Route("list the files", StreamStderr)
	assert.Equal(t, RouteHidden, routed.Kind)

	routed = r.Route("user: list the files", StreamStderr)
	assert.Equal(t, RouteHidden, routed.Kind)

	// Prompt echoes on stdout are not suppressed.
	routed = r.Route("list the files", StreamStdout)
	assert.Equal(t, RouteAnswer, routed.Kind)
}

func TestRouterSuppressesAnswerFirstLineEcho(t *testing.T) {
	r := NewRouter()
	r.BeginTurn("hello")

	routed := r.Route("The files are as follows:", StreamStdout)
	require.Equal(t, RouteAnswer, routed.Kind)

	routed = r.Route("The files are as follows:", StreamStderr)
	assert.Equal(t, RouteHidden, routed.Kind)

	routed = r.Route("The files are", StreamStderr)
	assert.Equal(t, RouteHidden, routed.Kind)
}

func TestRouterAnswerFirstLineSurvivesIntoNextTurn(t *testing.T) {
	r := NewRouter()
	r.BeginTurn("first prompt")
	_ = r.Route("Answer opening line", StreamStdout)

	r.BeginTurn("second prompt")
	routed := r.Route("Answer opening line", StreamStderr)
	assert.Equal(t, RouteHidden, routed.Kind)

	_ = r.Route("Fresh answer", StreamStdout)
	first, ok := r.AnswerFirstLine()
	require.True(t, ok)
	assert.Equal(t, "Fresh answer", first)
}

func TestRouterSuppressesSessionIDLines(t *testing.T) {
	r := NewRouter()

	routed := r.Route("session id: 5c9f26b4-1111-2222-3333-444455556666", StreamStderr)
	assert.Equal(t, RouteHidden, routed.Kind)

	routed = r.Route("session_id: 5c9f26b4-1111-2222-3333-444455556666", StreamStderr)
	assert.Equal(t, RouteHidden, routed.Kind)

	// Only a stderr rule.
	routed = r.Route("session id: abc", StreamStdout)
	assert.Equal(t, RouteAnswer, routed.Kind)
}

func TestRouterThinkingHeuristics(t *testing.T) {
	r := NewRouter()

	tests := []struct {
		name string
		line string
		src  Stream
		want RouteKind
	}{
		{name: "thinking prefix", line: "thinking about the request", src: StreamStdout, want: RouteThinking},
		{name: "bracketed thinking", line: "[thinking] still working", src: StreamStdout, want: RouteThinking},
		{name: "bold marker", line: "**Considering edge cases**", src: StreamStdout, want: RouteThinking},
		{name: "double question with search", line: "should I search here?? maybe", src: StreamStdout, want: RouteThinking},
		{name: "searched marker", line: "Searched: golang context cancellation", src: StreamStdout, want: RouteThinking},
		{name: "search query marker", line: "search query: rollout files", src: StreamStdout, want: RouteThinking},
		{name: "codex suffix", line: "handing back to codex", src: StreamStdout, want: RouteThinking},
		{name: "bare codex", line: "codex", src: StreamStdout, want: RouteThinking},
		{name: "stderr planning opener", line: "I'll start by reading the config", src: StreamStderr, want: RouteThinking},
		{name: "stderr let me", line: "let me check the sessions directory", src: StreamStderr, want: RouteThinking},
		{name: "stderr shell noise", line: "bash -lc 'uname -a'", src: StreamStderr, want: RouteThinking},
		{name: "stderr inventory noise", line: "uname -a", src: StreamStderr, want: RouteThinking},
		{name: "stdout planning opener stays answer", line: "I'll start by reading the config", src: StreamStdout, want: RouteAnswer},
		{name: "stderr bullet overrides planning", line: "- I'll fix the leak in the watcher", src: StreamStderr, want: RouteAnswer},
		{name: "stderr glyph bullet overrides planning", line: "• let me know if this works", src: StreamStderr, want: RouteAnswer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			routed := r.Route(tt.line, tt.src)
			assert.Equal(t, tt.want, routed.Kind)
		})
	}
}

func TestRouterMarksStderrAnswers(t *testing.T) {
	r := NewRouter()

	routed := r.Route("warning: deprecated flag", StreamStderr)
	require.Equal(t, RouteAnswer, routed.Kind)
	assert.Equal(t, StderrMarker+"warning: deprecated flag", routed.Text)

	routed = r.Route("plain stdout answer", StreamStdout)
	require.Equal(t, RouteAnswer, routed.Kind)
	assert.Equal(t, "plain stdout answer", routed.Text)
}

func TestRouterDropsBlankStderrLines(t *testing.T) {
	r := NewRouter()

	routed := r.Route("", StreamStderr)
	assert.Equal(t, RouteHidden, routed.Kind)

	routed = r.Route("", StreamStdout)
	assert.Equal(t, RouteAnswer, routed.Kind)
}

func TestNormalizeThinking(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "strips tags and blanks", in: "[2024-01-01T00:00:00] planning\n\nreading the config\n", want: "planning\nreading the config"},
		{name: "codex becomes finished", in: "codex", want: "finished!"},
		{name: "multiline keeps order", in: "step one\nstep two", want: "step one\nstep two"},
		{name: "empty stays empty", in: "  \n ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeThinking(tt.in))
		})
	}
}
