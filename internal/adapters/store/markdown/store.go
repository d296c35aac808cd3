// Package markdown keeps conversation transcripts as Markdown files on
// the execution backend's filesystem. Every operation shells out through
// the backend so local, WSL, and remote targets behave identically.
package markdown

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/codex-console/internal/domain"
	"github.com/bnema/codex-console/internal/ports"
)

type Store struct {
	be       ports.Backend
	clock    ports.Clock
	password func() string
}

var _ ports.ConversationStore = (*Store)(nil)

// New builds a store over the given backend. password supplies the
// current sudo password for escalated runs; nil means no password.
func New(be ports.Backend, clock ports.Clock, password func() string) *Store {
	if password == nil {
		password = func() string { return "" }
	}
	return &Store{be: be, clock: clock, password: password}
}

func (s *Store) run(ctx context.Context, script string, timeout time.Duration) (ports.ExecResult, error) {
	return s.be.Run(ctx, ports.ExecRequest{
		Script:       script,
		Timeout:      timeout,
		AsRoot:       true,
		SudoPassword: s.password(),
	})
}

func (s *Store) EnsureDir(ctx context.Context, dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", domain.ErrConversationDirUnset
	}
	script := "mkdir -p " + s.be.Quote(dir) + " && printf '%s\n' " + s.be.Quote(dir)
	res, err := s.run(ctx, script, 30*time.Second)
	if err != nil {
		return "", err
	}
	if !res.OK {
		return "", fmt.Errorf("ensure conversation dir: %s", failText(res))
	}
	return strings.TrimSpace(res.Stdout), nil
}

// List scans dir for transcripts, newest first. When the allowlist
// filter would hide everything it returns the unfiltered listing so a
// customized directory layout still shows its files.
func (s *Store) List(ctx context.Context, dir string) ([]domain.ConversationEntry, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, domain.ErrConversationDirUnset
	}
	script := "dir=" + s.be.Quote(dir) +
		"; if [ -d \"$dir\" ]; then find \"$dir\" -maxdepth 4 -type f -printf '%T@\\t%p\\n' 2>/dev/null; fi"
	res, err := s.run(ctx, script, 60*time.Second)
	if err != nil {
		return nil, err
	}
	if !res.OK {
		detail := strings.TrimSpace(res.Stderr)
		if detail == "" {
			detail = strings.TrimSpace(res.Stdout)
		}
		if detail == "" {
			detail = fmt.Sprintf("find failed (rc=%d)", res.ExitCode)
		}
		return nil, fmt.Errorf("list conversations: %s", detail)
	}

	var entries []domain.ConversationEntry
	for _, raw := range strings.Split(res.Stdout, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		tsStr, p, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		ts, err := strconv.ParseFloat(tsStr, 64)
		if err != nil {
			continue
		}
		entries = append(entries, domain.ConversationEntry{
			Path:    strings.TrimSpace(p),
			ModTime: epochTime(ts),
		})
	}
	if len(entries) == 0 {
		return nil, nil
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ModTime.After(entries[j].ModTime)
	})

	var filtered []domain.ConversationEntry
	for _, e := range entries {
		if domain.IsConversationHistory(e.Path) {
			filtered = append(filtered, e)
		}
	}
	if len(filtered) > 0 {
		return filtered, nil
	}
	return entries, nil
}

// Read returns the transcript body. Unreadable paths yield the shell's
// own "not found" text rather than an error so the UI always has
// something to show.
func (s *Store) Read(ctx context.Context, filePath string) (string, error) {
	safe := strings.ReplaceAll(filePath, "'", "")
	script := "test -f " + s.be.Quote(safe) + " && cat " + s.be.Quote(safe) + " || echo 'not found'"
	res, err := s.run(ctx, script, 60*time.Second)
	if err != nil {
		return "", err
	}
	out := strings.TrimSpace(res.Stdout)
	if out == "" {
		out = strings.TrimSpace(res.Stderr)
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, dir string) (string, error) {
	if _, err := s.EnsureDir(ctx, dir); err != nil {
		return "", err
	}
	script := "dir=" + s.be.Quote(dir) + "; " +
		"stamp=$(date +%Y%m%dT%H%M%S); " +
		"file=\"$dir/conversation_${stamp}.md\"; " +
		"while [ -e \"$file\" ]; do stamp=$(date +%Y%m%dT%H%M%S_%N); file=\"$dir/conversation_${stamp}.md\"; done; " +
		"printf '# Conversation started %s\\n\\n' \"$(date -Iseconds)\" > \"$file\" || exit 1; " +
		"printf '%s\\n' \"$file\""
	res, err := s.run(ctx, script, 30*time.Second)
	if err != nil {
		return "", err
	}
	if !res.OK {
		return "", fmt.Errorf("create conversation: %s", failText(res))
	}
	p := lastLine(res.Stdout)
	if p == "" {
		return "", errors.New("conversation path missing")
	}
	return p, nil
}

func (s *Store) Append(ctx context.Context, filePath string, rec domain.TurnRecord) error {
	stamp := s.clock.Now().Format("2006-01-02 15:04:05 MST")
	prompt := rec.Prompt
	if prompt == "" {
		prompt = "(empty)"
	}
	parts := []string{fmt.Sprintf("## Prompt (%s)", stamp), prompt, ""}
	if out := strings.TrimRight(rec.Output, "\n"); out != "" {
		parts = append(parts, "### Output", out, "")
	}
	if errText := strings.TrimRight(rec.Stderr, "\n"); errText != "" {
		parts = append(parts, "### Stderr", errText, "")
	}
	payload := strings.Join(parts, "\n") + "\n"

	script := "path=" + s.be.Quote(filePath) + "; " +
		"if [ ! -e \"$path\" ]; then exit 1; fi; " +
		"payload=$(cat <<'EOF'\n" +
		payload +
		"EOF\n); " +
		"printf \"%s\" \"$payload\" >> \"$path\" || exit 1"
	res, err := s.run(ctx, script, 30*time.Second)
	if err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("append conversation entry: %s", failText(res))
	}
	return nil
}

// Rename retitles a transcript next to its current location. The title
// is reduced to the filename-safe alphabet and the transcript extension
// is enforced; collisions get a timestamp suffix like Create uses.
func (s *Store) Rename(ctx context.Context, filePath string, title string) (string, error) {
	sanitized := domain.SanitizeTitle(title)
	if sanitized == "" {
		return "", errors.New("title has no filename-safe characters")
	}
	name := domain.EnsureExtension(sanitized, domain.ConversationExt)
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	script := "src=" + s.be.Quote(filePath) + "; " +
		"dir=$(dirname \"$src\"); " +
		"dst=\"$dir/" + name + "\"; " +
		"if [ ! -e \"$src\" ]; then exit 2; fi; " +
		"if [ -e \"$dst\" ] && [ \"$dst\" != \"$src\" ]; then stamp=$(date +%Y%m%dT%H%M%S); dst=\"$dir/" + stem + "_${stamp}" + ext + "\"; fi; " +
		"while [ -e \"$dst\" ] && [ \"$dst\" != \"$src\" ]; do stamp=$(date +%Y%m%dT%H%M%S_%N); dst=\"$dir/" + stem + "_${stamp}" + ext + "\"; done; " +
		"mv \"$src\" \"$dst\" || exit 1; " +
		"printf '%s\\n' \"$dst\""
	res, err := s.run(ctx, script, 30*time.Second)
	if err != nil {
		return "", err
	}
	if res.ExitCode == 2 {
		return "", domain.ErrConversationNotFound
	}
	if !res.OK {
		return "", fmt.Errorf("rename conversation: %s", failText(res))
	}
	p := lastLine(res.Stdout)
	if p == "" {
		return "", errors.New("renamed path missing")
	}
	return p, nil
}

func epochTime(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

func lastLine(s string) string {
	trimmed := strings.TrimSpace(s)
	if i := strings.LastIndex(trimmed, "\n"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	return strings.TrimSpace(trimmed)
}

func failText(res ports.ExecResult) string {
	if t := strings.TrimSpace(res.Stderr); t != "" {
		return t
	}
	if t := strings.TrimSpace(res.Stdout); t != "" {
		return t
	}
	return fmt.Sprintf("rc=%d", res.ExitCode)
}
