package domain

import (
	"regexp"
	"strings"
)

// Stream identifies which child-process stream a line arrived on.
type Stream int

const (
	StreamStdout Stream = iota
	StreamStderr
)

func (s Stream) String() string {
	if s == StreamStderr {
		return "stderr"
	}
	return "stdout"
}

// RouteKind is the channel a cleaned line belongs to.
type RouteKind int

const (
	// RouteHidden drops the line entirely (banners, echoes, session ids).
	RouteHidden RouteKind = iota
	// RouteTelemetry hands the line to the token tracker, never displayed.
	RouteTelemetry
	// RouteThinking shows the line in the thinking pane.
	RouteThinking
	// RouteAnswer shows the line in the user-visible transcript.
	RouteAnswer
)

type Routed struct {
	Kind RouteKind
	Text string
}

// StderrMarker prefixes stderr lines that reach the user-visible
// transcript.
const StderrMarker = "[stderr] "

var (
	bareNumberRe      = regexp.MustCompile(`^[0-9][0-9,]*$`)
	sessionAnnounceRe = regexp.MustCompile(`(?i)session[\s_-]?id\s*[:=]`)
)

var bannerPrefixes = []string{
	"openai codex v",
	"workdir:",
	"model:",
	"provider:",
	"approval:",
	"sandbox:",
	"reasoning effort:",
	"reasoning summaries:",
	"user instructions:",
	"--------",
}

var planningOpeners = []string{
	"i'm ",
	"i’m ",
	"i'll ",
	"i’ll ",
	"let me ",
	"here's the plan",
	"here’s the plan",
}

// shellNoiseCommands are first tokens of stderr lines that read as tool or
// system-inventory chatter rather than answer content.
var shellNoiseCommands = map[string]struct{}{
	"bash":   {},
	"sh":     {},
	"zsh":    {},
	"exec":   {},
	"uname":  {},
	"lscpu":  {},
	"nproc":  {},
	"df":     {},
	"free":   {},
	"ps":     {},
	"whoami": {},
}

// Router classifies cleaned lines into hidden, telemetry, thinking, and
// answer channels. It carries the cross-line state the stderr rules need:
// the prompt of the current turn, the first answer line of the latest
// turn, and a held "tokens used" label awaiting its value.
type Router struct {
	prompt            string
	answerFirstLine   string
	sawAnswer         bool
	pendingTokenLabel bool
}

func NewRouter() *Router {
	return &Router{}
}

// BeginTurn records the outgoing prompt and arms first-answer-line
// capture. The previous turn's first answer line is kept until replaced:
// early stderr echoes may still reproduce it.
func (r *Router) BeginTurn(prompt string) {
	r.prompt = strings.TrimSpace(prompt)
	r.sawAnswer = false
	r.pendingTokenLabel = false
}

// AnswerFirstLine returns the remembered first answer line of the most
// recent turn, if any.
func (r *Router) AnswerFirstLine() (string, bool) {
	return r.answerFirstLine, r.answerFirstLine != ""
}

// Route applies the classification rules in order, first match wins.
func (r *Router) Route(line string, src Stream) Routed {
	trimmed := strings.TrimSpace(line)

	// A stderr "tokens used" label and its figure can arrive as two
	// consecutive lines; recombine them into one telemetry event.
	if src == StreamStderr && r.pendingTokenLabel {
		r.pendingTokenLabel = false
		if bareNumberRe.MatchString(trimmed) {
			return Routed{Kind: RouteTelemetry, Text: "tokens used: " + trimmed}
		}
	}

	if isBanner(line) {
		return Routed{Kind: RouteHidden}
	}

	if src == StreamStderr && isBareTokenLabel(trimmed) {
		r.pendingTokenLabel = true
		return Routed{Kind: RouteHidden}
	}
	if hasUsageFigure(line) || hasRemainingFigure(line) {
		return Routed{Kind: RouteTelemetry, Text: line}
	}

	if src == StreamStderr && r.isEcho(trimmed) {
		return Routed{Kind: RouteHidden}
	}

	if src == StreamStderr && sessionAnnounceRe.MatchString(line) {
		return Routed{Kind: RouteHidden}
	}

	if looksLikeThinking(line) {
		return Routed{Kind: RouteThinking, Text: line}
	}
	if src == StreamStderr && !isBulletItem(trimmed) &&
		(opensWithPlanning(trimmed) || looksLikeShellNoise(trimmed)) {
		return Routed{Kind: RouteThinking, Text: line}
	}

	if src == StreamStderr {
		if trimmed == "" {
			return Routed{Kind: RouteHidden}
		}
		return Routed{Kind: RouteAnswer, Text: StderrMarker + line}
	}

	if !r.sawAnswer && trimmed != "" {
		r.answerFirstLine = trimmed
		r.sawAnswer = true
	}
	return Routed{Kind: RouteAnswer, Text: line}
}

func (r *Router) isEcho(trimmed string) bool {
	if trimmed == "" {
		return false
	}
	if r.prompt != "" {
		if trimmed == r.prompt || trimmed == "user: "+r.prompt {
			return true
		}
	}
	if r.answerFirstLine != "" && strings.HasPrefix(r.answerFirstLine, trimmed) {
		return true
	}
	return false
}

// isBanner hides CLI startup banners: after stripping one leading
// bracketed tag, the remainder starts with a known announcement prefix.
func isBanner(line string) bool {
	stripped := strings.TrimSpace(line)
	if stripped == "" {
		return false
	}

	candidate := stripped
	if strings.HasPrefix(candidate, "[") {
		if close := strings.Index(candidate, "]"); close != -1 && close+1 < len(candidate) {
			candidate = strings.TrimLeft(candidate[close+1:], " \t")
		}
	}

	if strings.HasPrefix(strings.ToLower(stripped), "--------") {
		return true
	}
	candidateLower := strings.ToLower(candidate)
	for _, prefix := range bannerPrefixes {
		if strings.HasPrefix(candidateLower, prefix) {
			return true
		}
	}
	return false
}

// isBareTokenLabel matches a "tokens used" label carrying no figure.
func isBareTokenLabel(trimmed string) bool {
	lower := strings.ToLower(trimmed)
	return lower == "tokens used" || lower == "tokens used:"
}

func looksLikeThinking(line string) bool {
	clean := strings.TrimSpace(line)
	if clean == "" {
		return false
	}
	lower := strings.ToLower(clean)
	switch {
	case strings.HasPrefix(lower, "thinking"), strings.HasPrefix(lower, "[thinking"):
		return true
	case strings.HasPrefix(lower, "**"):
		return true
	case strings.Contains(clean, "??") && strings.Contains(lower, "search"):
		return true
	case strings.Contains(lower, "searched:"), strings.Contains(lower, "search query:"):
		return true
	case strings.HasSuffix(lower, " codex"), lower == "codex":
		return true
	}
	return false
}

// isBulletItem marks list items, which stay answer content even when they
// open with planning language.
func isBulletItem(trimmed string) bool {
	return strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "•")
}

func opensWithPlanning(trimmed string) bool {
	lower := strings.ToLower(trimmed)
	for _, opener := range planningOpeners {
		if strings.HasPrefix(lower, opener) {
			return true
		}
	}
	return false
}

func looksLikeShellNoise(trimmed string) bool {
	first, _, _ := strings.Cut(trimmed, " ")
	first = strings.TrimSuffix(strings.ToLower(first), ":")
	if i := strings.LastIndex(first, "/"); i != -1 {
		first = first[i+1:]
	}
	_, ok := shellNoiseCommands[first]
	return ok
}

// NormalizeThinking tidies a thinking block for display: tag prefixes are
// stripped per line, blank lines dropped, and the bare "codex" sign-off
// token becomes "finished!".
func NormalizeThinking(text string) string {
	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(raw)
		if stripped == "" {
			continue
		}
		if m := timestampTagRe.FindStringSubmatch(stripped); m != nil {
			stripped = strings.TrimSpace(m[1])
		}
		if strings.ToLower(stripped) == "codex" {
			stripped = "finished!"
		}
		if stripped != "" {
			lines = append(lines, stripped)
		}
	}
	if len(lines) == 0 {
		stripped := strings.TrimSpace(text)
		if stripped == "" {
			return ""
		}
		if m := timestampTagRe.FindStringSubmatch(stripped); m != nil {
			stripped = strings.TrimSpace(m[1])
		}
		if strings.ToLower(stripped) == "codex" {
			stripped = "finished!"
		}
		return stripped
	}
	return strings.Join(lines, "\n")
}
