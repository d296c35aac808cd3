package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	tokensUsedRe  = regexp.MustCompile(`(?i)tokens\s+used:\s*([0-9,]+)`)
	tokenUsageRe  = regexp.MustCompile(`(?i)token\s+usage[^:]*:\s*(.*)`)
	usageTotalRe  = regexp.MustCompile(`(?i)total\s*(?:tokens?)?\s*=?\s*([0-9,]+)`)
	totalTokensRe = regexp.MustCompile(`(?i)total\s+tokens?:\s*([0-9,]+)`)
	anyNumberRe   = regexp.MustCompile(`[0-9][0-9,]*`)
	remainingRe   = regexp.MustCompile(`(?i)(?:context\s*(?:remaining|left|available)|(?:remaining|left)\s*(?:context|tokens?))[\s:=-]*([0-9][0-9,]*)`)
	percentRe     = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*%`)
)

// TokenUsage is a point-in-time view of the tracker state. Budget 0 means
// unknown.
type TokenUsage struct {
	Used         int
	Budget       int
	Remaining    int
	HasRemaining bool
}

// PercentLeft reports remaining headroom as a percentage of the budget.
func (u TokenUsage) PercentLeft() (float64, bool) {
	if u.Budget <= 0 {
		return 0, false
	}
	remaining := u.Remaining
	if !u.HasRemaining {
		remaining = u.Budget - u.Used
	}
	if remaining < 0 {
		remaining = 0
	}
	return float64(remaining) / float64(u.Budget) * 100, true
}

// TokenTracker reconciles the usage and remaining-context figures Codex
// reports through independent, inconsistently formatted lines into one
// monotonic usage/budget model. The budget only ever grows; remaining is
// clamped to [0, budget] once a budget is known.
type TokenTracker struct {
	used         int
	budget       int
	remaining    int
	hasRemaining bool
}

func NewTokenTracker() *TokenTracker {
	return &TokenTracker{}
}

// Observe scans one line for token figures and reports whether state
// changed.
func (t *TokenTracker) Observe(line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}

	changed := false
	if n, ok := matchTokensUsed(line); ok {
		changed = t.setUsed(n)
	} else if n, ok := matchTokenUsageTotal(line); ok {
		changed = t.setUsed(n)
	} else if n, ok := matchTotalTokens(line); ok {
		changed = t.setUsed(n)
	}

	if remaining, pct, hasPct, ok := matchRemainingContext(line); ok {
		t.remaining = remaining
		t.hasRemaining = true

		estimate := 0
		if hasPct && pct > 0 && pct <= 1 {
			estimate = int(math.Round(float64(remaining) / pct))
		}
		if estimate == 0 {
			estimate = remaining + t.used
		}

		if estimate > 0 && estimate >= t.used {
			if estimate > t.budget {
				t.budget = estimate
			}
			if t.remaining > t.budget {
				t.remaining = t.budget
			}
		} else if t.budget <= 0 {
			t.budget = remaining + t.used
		}
		changed = true
	}

	return changed
}

// SeedBudget establishes a starting budget without recording usage.
// Values below an already-established budget are ignored, so the budget
// stays monotonic.
func (t *TokenTracker) SeedBudget(n int) {
	if n > t.budget {
		t.budget = n
	}
	if t.budget > 0 && !t.hasRemaining {
		t.remaining = t.budget - t.used
		if t.remaining < 0 {
			t.remaining = 0
		}
		t.hasRemaining = true
	}
}

func (t *TokenTracker) setUsed(n int) bool {
	if n < 0 {
		return false
	}
	t.used = n
	if t.used > t.budget {
		t.budget = t.used
	}
	if t.budget > 0 {
		t.remaining = t.budget - t.used
		if t.remaining < 0 {
			t.remaining = 0
		}
		t.hasRemaining = true
	} else {
		t.hasRemaining = false
	}
	return true
}

func (t *TokenTracker) Usage() TokenUsage {
	return TokenUsage{
		Used:         t.used,
		Budget:       t.budget,
		Remaining:    t.remaining,
		HasRemaining: t.hasRemaining,
	}
}

// matchTokensUsed recognizes an explicit "tokens used: N" phrase.
func matchTokensUsed(line string) (int, bool) {
	m := tokensUsedRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	return parseFigure(m[1])
}

// matchTokenUsageTotal recognizes "token usage ...: ..." and pulls the
// "total = N" sub-phrase, or failing that the last number in the payload.
func matchTokenUsageTotal(line string) (int, bool) {
	m := tokenUsageRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	payload := m[1]
	if tm := usageTotalRe.FindStringSubmatch(payload); tm != nil {
		return parseFigure(tm[1])
	}
	numbers := anyNumberRe.FindAllString(payload, -1)
	if len(numbers) == 0 {
		return 0, false
	}
	return parseFigure(numbers[len(numbers)-1])
}

// matchTotalTokens recognizes a standalone "total tokens: N" phrase.
func matchTotalTokens(line string) (int, bool) {
	m := totalTokensRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	return parseFigure(m[1])
}

// matchRemainingContext recognizes remaining-context phrases on lines that
// mention context at all, returning the remaining figure and a trailing
// percentage when one follows the match.
func matchRemainingContext(line string) (remaining int, pct float64, hasPct bool, ok bool) {
	lower := strings.ToLower(line)
	if !strings.Contains(lower, "context") && !strings.Contains(lower, "ctx") {
		return 0, 0, false, false
	}
	loc := remainingRe.FindStringSubmatchIndex(line)
	if loc == nil {
		return 0, 0, false, false
	}
	remaining, ok = parseFigure(line[loc[2]:loc[3]])
	if !ok {
		return 0, 0, false, false
	}
	tail := line[loc[1]:]
	if pm := percentRe.FindStringSubmatch(tail); pm != nil {
		if v, err := strconv.ParseFloat(pm[1], 64); err == nil {
			pct = v / 100
			hasPct = true
		}
	}
	return remaining, pct, hasPct, true
}

func hasUsageFigure(line string) bool {
	if _, ok := matchTokensUsed(line); ok {
		return true
	}
	if _, ok := matchTokenUsageTotal(line); ok {
		return true
	}
	_, ok := matchTotalTokens(line)
	return ok
}

func hasRemainingFigure(line string) bool {
	_, _, _, ok := matchRemainingContext(line)
	return ok
}

func parseFigure(s string) (int, bool) {
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
