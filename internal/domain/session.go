package domain

import (
	"regexp"
	"sort"

	"github.com/google/uuid"
)

// sessionFileRe matches rollout artifact filenames, whose tail encodes the
// resumable session id: rollout-<timestamp>-<uuid>.jsonl.
var sessionFileRe = regexp.MustCompile(`rollout-[0-9T:-]+-([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})\.jsonl$`)

// SessionSnapshot maps session artifact paths to their last-modified time
// in seconds since the epoch.
type SessionSnapshot map[string]float64

// SessionIDFromPath extracts the session id encoded in a rollout artifact
// filename, normalized through uuid parsing. Paths that do not carry the
// pattern yield no id.
func SessionIDFromPath(path string) (string, bool) {
	m := sessionFileRe.FindStringSubmatch(path)
	if m == nil {
		return "", false
	}
	id, err := uuid.Parse(m[1])
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// Correlate diffs two snapshots taken around one invocation and returns
// the session id of the newest artifact that appeared or grew newer
// in between. Only pattern-matching paths qualify; ties on mtime are
// broken deterministically.
func Correlate(before, after SessionSnapshot) (string, bool) {
	type candidate struct {
		ts  float64
		sid string
	}

	var candidates []candidate
	for path, ts := range after {
		if prev, seen := before[path]; seen && ts <= prev {
			continue
		}
		if sid, ok := SessionIDFromPath(path); ok {
			candidates = append(candidates, candidate{ts: ts, sid: sid})
		}
	}
	if len(candidates) == 0 {
		return "", false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].ts != candidates[j].ts {
			return candidates[i].ts < candidates[j].ts
		}
		return candidates[i].sid < candidates[j].sid
	})
	return candidates[len(candidates)-1].sid, true
}
