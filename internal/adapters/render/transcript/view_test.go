package transcript

import (
	"strings"
	"testing"
	"time"

	"github.com/bnema/codex-console/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTurnShowsTranscriptAndTokens(t *testing.T) {
	output, err := Render(Turn{
		Transcript: []string{
			"The answer is ready.",
			"[stderr] warning: deprecated flag",
		},
		Usage: domain.TokenUsage{Used: 1234, Budget: 8000, Remaining: 6766, HasRemaining: true},
	}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "Codex Console")
	assert.Contains(t, output, "The answer is ready.")
	assert.Contains(t, output, "[stderr] warning: deprecated flag")
	assert.Contains(t, output, "Tokens used: 1,234")
	assert.Contains(t, output, "Remaining: 6,766")
	assert.Contains(t, output, "(84.6% left)")
	assert.NotContains(t, output, "[run failed]")
}

func TestRenderTurnWithoutBudgetOmitsRemaining(t *testing.T) {
	output, err := Render(Turn{
		Transcript: []string{"512"},
		Usage:      domain.TokenUsage{Used: 512},
	}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "Tokens used: 512")
	assert.NotContains(t, output, "Remaining:")
}

func TestRenderTurnShowsThinkingOnlyWhenRequested(t *testing.T) {
	turn := Turn{
		Transcript: []string{"Done."},
		Thinking:   []string{"Considering the layout\nfinished!"},
	}

	output, err := Render(turn, RenderOptions{ShowThinking: true})
	require.NoError(t, err)
	assert.Contains(t, output, "thinking")
	assert.Contains(t, output, "Considering the layout")
	assert.Contains(t, output, "finished!")

	output, err = Render(turn, RenderOptions{})
	require.NoError(t, err)
	assert.NotContains(t, output, "Considering the layout")
}

func TestRenderTurnMarksFailedRun(t *testing.T) {
	output, err := Render(Turn{
		Transcript: []string{"[stderr] codex: not found"},
		Failed:     true,
	}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "[run failed]")
}

func TestRenderTurnWithoutOutput(t *testing.T) {
	output, err := Render(Turn{Title: "Doctor"}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "Doctor")
	assert.Contains(t, output, "No output.")
}

func TestRenderHistoryListsEntries(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	output, err := RenderHistory([]domain.ConversationEntry{
		{Path: "/c/front_conversations/plan.md", ModTime: now.Add(-5 * time.Minute)},
		{Path: "/root/.codex/sessions/rollout.jsonl", ModTime: now.Add(-3 * 24 * time.Hour)},
	}, RenderOptions{Now: now, BaseDir: "/c"})

	require.NoError(t, err)
	assert.Contains(t, output, "Conversations")
	assert.Contains(t, output, "files: 2")
	assert.Contains(t, output, "front_conversations/plan.md")
	assert.Contains(t, output, "sessions/rollout.jsonl")
	assert.Contains(t, output, "5 minutes ago")
	assert.Contains(t, output, "3 days ago")
}

func TestRenderHistoryEmpty(t *testing.T) {
	output, err := RenderHistory(nil, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "files: 0")
	assert.Contains(t, output, "No conversation files found.")
}

func TestFormatTokenLine(t *testing.T) {
	tests := []struct {
		name  string
		usage domain.TokenUsage
		want  string
	}{
		{
			name:  "usage only",
			usage: domain.TokenUsage{Used: 999},
			want:  "Tokens used: 999",
		},
		{
			name:  "grouped thousands",
			usage: domain.TokenUsage{Used: 1234567, Budget: 2000000, Remaining: 765433, HasRemaining: true},
			want:  "Tokens used: 1,234,567   Remaining: 765,433 (38.3% left)",
		},
		{
			name:  "remaining derived from budget",
			usage: domain.TokenUsage{Used: 100, Budget: 1000},
			want:  "Tokens used: 100   Remaining: 900 (90.0% left)",
		},
		{
			name:  "overrun clamps to zero",
			usage: domain.TokenUsage{Used: 1500, Budget: 1000},
			want:  "Tokens used: 1,500   Remaining: 0 (0.0% left)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTokenLine(tt.usage))
		})
	}
}

func TestRenderTokenBar(t *testing.T) {
	s := newStyles()

	halfway := renderTokenBar(domain.TokenUsage{Used: 4000, Budget: 8000}, 24, s)
	assert.Equal(t, 12, strings.Count(halfway, "="))
	assert.Equal(t, 12, strings.Count(halfway, "-"))

	spent := renderTokenBar(domain.TokenUsage{Used: 9000, Budget: 8000}, 24, s)
	assert.Equal(t, 0, strings.Count(spent, "="))
	assert.Equal(t, 24, strings.Count(spent, "-"))

	assert.Empty(t, renderTokenBar(domain.TokenUsage{Used: 100}, 24, s))
}

func TestFormatModifiedRelative(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	assert.Equal(t, "just now", formatModifiedRelative(now.Add(-30*time.Second), now))
	assert.Equal(t, "1 minute ago", formatModifiedRelative(now.Add(-90*time.Second), now))
	assert.Equal(t, "2 hours ago", formatModifiedRelative(now.Add(-150*time.Minute), now))
	assert.Equal(t, "1 day ago", formatModifiedRelative(now.Add(-30*time.Hour), now))
	assert.Equal(t, "unknown", formatModifiedRelative(time.Time{}, now))
	assert.Equal(t, "09:00 on 10 Feb", formatModifiedRelative(time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC), time.Time{}))
}
