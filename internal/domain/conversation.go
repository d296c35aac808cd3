package domain

import (
	"strings"
	"time"
)

// ConversationExt is the extension forced onto conversation transcript
// files.
const ConversationExt = ".md"

// ConversationEntry is one listed transcript artifact.
type ConversationEntry struct {
	Path    string
	ModTime time.Time
}

// TurnRecord is one prompt/response exchange appended to a conversation
// transcript. Output and Stderr hold the raw streams, not the routed
// views.
type TurnRecord struct {
	Prompt string
	Output string
	Stderr string
}

// HistoryDirNames is the allowlist of directory names whose files count as
// conversation history.
var HistoryDirNames = []string{"sessions", "history", "conversations", "front_conversations"}

// HistorySuffixes is the allowlist of filename suffixes that count as
// conversation history.
var HistorySuffixes = []string{".json", ".jsonl", ".md", ".markdown", ".txt", ".log"}

// IsConversationHistory reports whether a path sits under an allowlisted
// directory name and carries an allowlisted suffix.
func IsConversationHistory(path string) bool {
	if path == "" {
		return false
	}
	rel := strings.TrimPrefix(path, "/root/.codex/")
	lower := strings.ToLower(rel)

	parts := strings.Split(lower, "/")
	inAllowedDir := false
	for _, part := range parts {
		for _, name := range HistoryDirNames {
			if part == name {
				inAllowedDir = true
				break
			}
		}
	}
	if !inAllowedDir {
		return false
	}

	for _, suffix := range HistorySuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// HistoryLabel shortens a transcript path for display: relative to the
// conversation directory when it sits under it, otherwise relative to
// /root/.codex/, otherwise unchanged.
func HistoryLabel(path, baseDir string) string {
	if path == "" {
		return path
	}
	if baseDir != "" {
		prefix := strings.TrimRight(baseDir, "/") + "/"
		if strings.HasPrefix(path, prefix) {
			if rel := path[len(prefix):]; rel != "" {
				return rel
			}
			return path
		}
	}
	if strings.HasPrefix(path, "/root/.codex/") {
		return strings.TrimPrefix(path, "/root/.codex/")
	}
	return path
}

// SanitizeTitle reduces a requested conversation title to the
// filename-safe alphabet: alphanumerics, dot, underscore, and dash are
// kept, spaces become underscores, everything else is dropped.
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(title) {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// EnsureExtension appends ext unless name already ends with it
// (case-insensitive).
func EnsureExtension(name, ext string) string {
	if strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext)) {
		return name
	}
	return name + ext
}
