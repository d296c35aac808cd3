package transcript

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/codex-console/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	Now          time.Time
	BaseDir      string
	ShowThinking bool
}

// Turn is the routed output of one completed codex run.
type Turn struct {
	Title      string
	Transcript []string
	Thinking   []string
	Usage      domain.TokenUsage
	Failed     bool
}

func renderView(turn Turn, opts RenderOptions, s styles) string {
	title := turn.Title
	if title == "" {
		title = "Codex Console"
	}
	lines := []string{s.title.Render(title)}

	if len(turn.Transcript) == 0 {
		lines = append(lines, s.empty.Render("No output."))
	} else {
		lines = append(lines, s.section.Render(renderTranscript(turn.Transcript, s)))
	}

	if opts.ShowThinking && len(turn.Thinking) > 0 {
		lines = append(lines, s.section.Render(renderThinking(turn.Thinking, s)))
	}

	lines = append(lines, s.section.Render(renderFooter(turn, s)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderTranscript(transcript []string, s styles) string {
	parts := make([]string, 0, len(transcript))
	for _, line := range transcript {
		parts = append(parts, transcriptLine(line, s))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func transcriptLine(line string, s styles) string {
	if strings.HasPrefix(line, domain.StderrMarker) {
		return s.stderr.Render(line)
	}

	return s.answer.Render(line)
}

func renderThinking(blocks []string, s styles) string {
	parts := []string{s.header.Render("thinking")}
	for _, block := range blocks {
		for _, line := range strings.Split(block, "\n") {
			parts = append(parts, s.thinking.Render(line))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderFooter(turn Turn, s styles) string {
	tokens := s.tokens.Render(FormatTokenLine(turn.Usage))
	if turn.Usage.Budget > 0 {
		tokens = lipgloss.JoinHorizontal(lipgloss.Top, renderTokenBar(turn.Usage, 24, s), " ", tokens)
	}

	parts := []string{tokens}
	if turn.Failed {
		parts = append(parts, s.failed.Render("[run failed]"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderTokenBar draws the remaining-budget gauge, full when nothing has
// been spent yet.
func renderTokenBar(usage domain.TokenUsage, width int, s styles) string {
	if width <= 0 || usage.Budget <= 0 {
		return ""
	}

	leftFraction := float64(remainingTokens(usage)) / float64(usage.Budget)
	if leftFraction > 1 {
		leftFraction = 1
	}
	filled := int(math.Round(float64(width) * leftFraction))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	empty := width - filled

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", empty)),
		s.barBracket.Render("]"),
	)
}

// FormatTokenLine renders token metrics as a single status line: usage
// alone when no budget is known, usage plus remaining headroom otherwise.
func FormatTokenLine(usage domain.TokenUsage) string {
	if usage.Budget <= 0 {
		return fmt.Sprintf("Tokens used: %s", groupThousands(usage.Used))
	}

	remaining := remainingTokens(usage)
	pct := float64(remaining) / float64(usage.Budget) * 100

	return fmt.Sprintf(
		"Tokens used: %s   Remaining: %s (%.1f%% left)",
		groupThousands(usage.Used),
		groupThousands(remaining),
		pct,
	)
}

func remainingTokens(usage domain.TokenUsage) int {
	remaining := usage.Remaining
	if !usage.HasRemaining {
		remaining = usage.Budget - usage.Used
	}
	if remaining < 0 {
		return 0
	}

	return remaining
}

func groupThousands(n int) string {
	digits := strconv.Itoa(n)
	if n < 0 {
		return digits
	}

	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}

	return b.String()
}

func renderHistoryView(entries []domain.ConversationEntry, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Conversations"),
		s.header.Render(fmt.Sprintf("files: %d", len(entries))),
	}

	if len(entries) == 0 {
		lines = append(lines, s.empty.Render("No conversation files found."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, entry := range entries {
		lines = append(lines, historyLine(entry, opts, s))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func historyLine(entry domain.ConversationEntry, opts RenderOptions, s styles) string {
	label := s.entry.Render(domain.HistoryLabel(entry.Path, opts.BaseDir))
	modified := s.modified.Render(fmt.Sprintf("(%s)", formatModifiedRelative(entry.ModTime, opts.Now)))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		label,
		"  ",
		modified,
	)
}

func formatModifiedRelative(modTime, now time.Time) string {
	if modTime.IsZero() {
		return "unknown"
	}
	if now.IsZero() || modTime.After(now) {
		return modTime.Format("15:04 on 02 Jan")
	}

	elapsed := now.Sub(modTime)
	if elapsed < time.Minute {
		return "just now"
	}
	if elapsed < time.Hour {
		minutes := int(elapsed.Minutes())
		suffix := "minutes"
		if minutes == 1 {
			suffix = "minute"
		}
		return fmt.Sprintf("%d %s ago", minutes, suffix)
	}
	if elapsed < 24*time.Hour {
		hours := int(elapsed.Hours())
		suffix := "hours"
		if hours == 1 {
			suffix = "hour"
		}
		return fmt.Sprintf("%d %s ago", hours, suffix)
	}

	days := int(elapsed.Hours() / 24)
	suffix := "days"
	if days == 1 {
		suffix = "day"
	}

	return fmt.Sprintf("%d %s ago", days, suffix)
}
