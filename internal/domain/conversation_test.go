package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{name: "punctuation dropped", title: "Fix bug: memory leak!!", want: "Fix_bug_memory_leak"},
		{name: "kept characters", title: "notes-2024.draft_v2", want: "notes-2024.draft_v2"},
		{name: "surrounding space trimmed", title: "  hello world  ", want: "hello_world"},
		{name: "only punctuation", title: "!?!", want: ""},
		{name: "empty", title: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeTitle(tt.title))
		})
	}
}

func TestEnsureExtension(t *testing.T) {
	assert.Equal(t, "notes.md", EnsureExtension("notes", ConversationExt))
	assert.Equal(t, "notes.md", EnsureExtension("notes.md", ConversationExt))
	assert.Equal(t, "notes.MD", EnsureExtension("notes.MD", ConversationExt))
}

func TestHistoryLabel(t *testing.T) {
	tests := []struct {
		name string
		path string
		base string
		want string
	}{
		{name: "under base dir", path: "/root/convos/chat.md", base: "/root/convos", want: "chat.md"},
		{name: "base with trailing slash", path: "/root/convos/chat.md", base: "/root/convos/", want: "chat.md"},
		{name: "outside base dir", path: "/root/.codex/sessions/rollout.jsonl", base: "/root/convos", want: "sessions/rollout.jsonl"},
		{name: "no base dir", path: "/root/.codex/front_conversations/x.md", base: "", want: "front_conversations/x.md"},
		{name: "unrelated path", path: "/tmp/notes.md", base: "", want: "/tmp/notes.md"},
		{name: "empty", path: "", base: "/root/convos", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HistoryLabel(tt.path, tt.base))
		})
	}
}

func TestIsConversationHistory(t *testing.T) {
	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "session rollout", path: "/root/.codex/sessions/2024/01/rollout-x.jsonl", want: true},
		{name: "front conversation", path: "/root/.codex/front_conversations/chat.md", want: true},
		{name: "history log", path: "/root/.codex/history/run.log", want: true},
		{name: "wrong directory", path: "/root/.codex/cache/blob.json", want: false},
		{name: "wrong suffix", path: "/root/.codex/sessions/state.db", want: false},
		{name: "empty", path: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConversationHistory(tt.path))
		})
	}
}
