package codex

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/codex-console/internal/domain"
	"github.com/bnema/codex-console/internal/ports"
)

// sessionListScript lists the newest rollout artifacts with their epoch
// mtimes, capped so deep session trees stay cheap to scan.
const sessionListScript = "dir=$HOME/.codex/sessions; " +
	"if [ -d \"$dir\" ]; then " +
	"find \"$dir\" -maxdepth 5 -type f -printf '%T@\\t%p\\n' 2>/dev/null | " +
	"sort -nr | head -n 200; " +
	"fi"

// SnapshotSessions captures the current session artifact state. Failures
// degrade to an empty snapshot; a turn then simply runs without resume
// correlation.
func (d *Driver) SnapshotSessions(ctx context.Context, sudoPassword string) domain.SessionSnapshot {
	snapshot := domain.SessionSnapshot{}
	res, err := d.be.Run(ctx, ports.ExecRequest{
		Script:       sessionListScript,
		Timeout:      30 * time.Second,
		AsRoot:       true,
		SudoPassword: sudoPassword,
	})
	if err != nil || !res.OK {
		return snapshot
	}

	for _, raw := range strings.Split(res.Stdout, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		tsStr, path, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		ts, err := strconv.ParseFloat(tsStr, 64)
		if err != nil {
			continue
		}
		snapshot[strings.TrimSpace(path)] = ts
	}
	return snapshot
}
