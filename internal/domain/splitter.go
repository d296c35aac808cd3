package domain

import (
	"regexp"
	"strings"
)

// timestampTagRe matches the bracketed ISO-8601 tag lines Codex uses to
// label stream sections, e.g. "[2024-01-01T00:00:00] thinking".
var timestampTagRe = regexp.MustCompile(`^\[[0-9]{4}-[0-9]{2}-[0-9]{2}T[^\]]*\]\s*(.*)$`)

// Splitter incrementally separates tagged thinking blocks from the rest of
// a Codex output stream. One instance per stream direction per invocation;
// the caller buffers raw bytes and feeds whole lines.
type Splitter struct {
	capturing bool
	segment   []string
}

func NewSplitter() *Splitter {
	return &Splitter{}
}

// FeedLine consumes one line (trailing newline optional) and returns the
// thinking blocks it completed plus the cleaned line, when the input was
// not swallowed by a thinking section. A non-thinking tag line closes an
// open block and is itself returned as the cleaned line in the same call.
func (s *Splitter) FeedLine(raw string) (blocks []string, cleaned string, ok bool) {
	text := strings.TrimRight(raw, "\r\n")

	if m := timestampTagRe.FindStringSubmatch(text); m != nil {
		label := strings.ToLower(strings.TrimSpace(m[1]))
		if s.capturing && len(s.segment) > 0 {
			if block := strings.TrimSpace(strings.Join(s.segment, "\n")); block != "" {
				blocks = append(blocks, block)
			}
			s.segment = nil
		}
		if strings.HasPrefix(label, "thinking") {
			s.capturing = true
			return blocks, "", false
		}
		s.capturing = false
		return blocks, text, true
	}

	if s.capturing {
		// Blank lines inside a block are kept; leading blanks are not.
		if text != "" || len(s.segment) > 0 {
			s.segment = append(s.segment, text)
		}
		return nil, "", false
	}

	return nil, text, true
}

// Flush drains a trailing open thinking block at stream end. Must be
// called once per stream after the process exits.
func (s *Splitter) Flush() (string, bool) {
	if !s.capturing || len(s.segment) == 0 {
		return "", false
	}

	block := strings.TrimSpace(strings.Join(s.segment, "\n"))
	s.segment = nil
	s.capturing = false
	if block == "" {
		return "", false
	}

	return block, true
}

// SplitText is the batch form of the splitter: it separates all thinking
// blocks from text in one pass and returns them with the cleaned
// remainder. Equivalent to feeding every line through FeedLine and
// flushing at the end.
func SplitText(text string) ([]string, string) {
	if text == "" {
		return nil, ""
	}

	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(normalized, "\n")
	if strings.HasSuffix(normalized, "\n") {
		lines = lines[:len(lines)-1]
	}

	var (
		blocks    []string
		cleaned   []string
		segment   []string
		capturing bool
	)

	flushSegment := func() {
		if len(segment) == 0 {
			return
		}
		if block := strings.TrimSpace(strings.Join(segment, "\n")); block != "" {
			blocks = append(blocks, block)
		}
		segment = nil
	}

	for _, line := range lines {
		if m := timestampTagRe.FindStringSubmatch(line); m != nil {
			label := strings.ToLower(strings.TrimSpace(m[1]))
			if capturing {
				flushSegment()
			}
			if strings.HasPrefix(label, "thinking") {
				capturing = true
				continue
			}
			capturing = false
			cleaned = append(cleaned, line)
			continue
		}

		if capturing {
			segment = append(segment, line)
		} else {
			cleaned = append(cleaned, line)
		}
	}

	if capturing {
		flushSegment()
	}

	out := strings.Join(cleaned, "\n")
	if strings.HasSuffix(text, "\n") && out != "" {
		out += "\n"
	}

	return blocks, out
}
