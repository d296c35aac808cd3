package ports

import (
	"context"

	"github.com/bnema/codex-console/internal/domain"
)

// ConversationStore persists conversation transcripts on the execution
// backend's filesystem. Callers resolve the base directory; the store
// itself holds no directory state.
type ConversationStore interface {
	// EnsureDir creates dir when missing and echoes the path back.
	EnsureDir(ctx context.Context, dir string) (string, error)
	// List returns the transcripts under dir, newest first.
	List(ctx context.Context, dir string) ([]domain.ConversationEntry, error)
	// Read returns a transcript body, or the backend's own error text
	// when the file is unreadable.
	Read(ctx context.Context, path string) (string, error)
	// Create starts a fresh timestamped transcript under dir and
	// returns its path.
	Create(ctx context.Context, dir string) (string, error)
	// Append writes one prompt/output/stderr turn onto an existing
	// transcript.
	Append(ctx context.Context, path string, rec domain.TurnRecord) error
	// Rename retitles a transcript in place and returns the new path.
	Rename(ctx context.Context, path string, title string) (string, error)
}
