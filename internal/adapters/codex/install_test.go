package codex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureLatestAlreadyCurrent(t *testing.T) {
	be := newFakeBackend()
	be.stub(fastCheckScript, okResult("HAS|codex-cli 0.21.0\n"))
	be.stub(npmLatestScript, okResult("0.21.0\n"))
	d := NewDriver(be)

	msg, err := d.EnsureLatest(context.Background(), "pw")
	require.NoError(t, err)
	assert.Equal(t, "Codex present (codex-cli 0.21.0)", msg)

	for _, script := range be.scripts() {
		assert.NotContains(t, script, "npm install")
	}
}

func TestEnsureLatestInstallsWhenMissing(t *testing.T) {
	be := newFakeBackend()
	be.stub(fastCheckScript, okResult("MISSING\n"))
	be.stub("command -v npm >/dev/null 2>&1", okResult(""))
	be.stub("npm install -g @openai/codex", okResult("added 1 package\n"))
	be.stub("codex --version", okResult("codex-cli 0.22.0\n"))
	d := NewDriver(be)

	msg, err := d.EnsureLatest(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Codex installed: codex-cli 0.22.0", msg)

	assert.Contains(t, be.scripts(), "npm install -g @openai/codex")
}

func TestEnsureLatestUpdatesStaleVersion(t *testing.T) {
	be := newFakeBackend()
	be.stub(fastCheckScript, okResult("HAS|codex-cli 0.21.0\n"))
	be.stub(npmLatestScript, okResult("0.22.0\n"))
	be.stub("command -v npm >/dev/null 2>&1", okResult(""))
	be.stub("npm install -g @openai/codex --force", okResult("changed 1 package\n"))
	be.stub("codex --version", okResult("codex-cli 0.22.0\n"))
	d := NewDriver(be)

	msg, err := d.EnsureLatest(context.Background(), "pw")
	require.NoError(t, err)
	assert.Equal(t, "Codex updated: codex-cli 0.22.0", msg)

	assert.Contains(t, be.scripts(), "npm install -g @openai/codex --force")
}

func TestEnsureLatestReinstallsBrokenBinary(t *testing.T) {
	be := newFakeBackend()
	be.stub(fastCheckScript, okResult("BROKEN\n"))
	be.stub("command -v npm >/dev/null 2>&1", okResult(""))
	be.stub("npm install -g @openai/codex", okResult(""))
	be.stub("codex --version", okResult("codex-cli 0.22.0\n"))
	d := NewDriver(be)

	msg, err := d.EnsureLatest(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Codex installed: codex-cli 0.22.0", msg)
}

func TestEnsureLatestInstallsNodeWhenNpmMissing(t *testing.T) {
	be := newFakeBackend()
	be.stub(fastCheckScript, okResult("MISSING\n"))
	be.stub("command -v npm >/dev/null 2>&1", failResult(1, ""))
	be.stub("cat /etc/os-release", okResult("ID=debian\nPRETTY_NAME=\"Debian GNU/Linux 12\"\n"))
	be.stub("apt-get install", okResult(""))
	be.stub("npm install -g @openai/codex", okResult(""))
	be.stub("codex --version", okResult("codex-cli 0.22.0\n"))
	d := NewDriver(be)

	msg, err := d.EnsureLatest(context.Background(), "pw")
	require.NoError(t, err)
	assert.Equal(t, "Codex installed: codex-cli 0.22.0", msg)

	assert.Contains(t, be.scripts(), "apt-get update -qq && apt-get install -y -qq nodejs npm")
}

func TestEnsureLatestPackageManagerFailure(t *testing.T) {
	be := newFakeBackend()
	be.stub(fastCheckScript, okResult("MISSING\n"))
	be.stub("command -v npm >/dev/null 2>&1", failResult(1, ""))
	be.stub("cat /etc/os-release", okResult("ID=fedora\n"))
	be.stub("dnf install", failResult(1, "no network"))
	d := NewDriver(be)

	_, err := d.EnsureLatest(context.Background(), "")
	require.EqualError(t, err, "no network")
}

func TestEnsureLatestVerifyFailure(t *testing.T) {
	be := newFakeBackend()
	be.stub(fastCheckScript, okResult("MISSING\n"))
	be.stub("command -v npm >/dev/null 2>&1", okResult(""))
	be.stub("npm install -g @openai/codex", okResult(""))
	be.stub("codex --version", failResult(127, "bash: codex: command not found"))
	d := NewDriver(be)

	_, err := d.EnsureLatest(context.Background(), "")
	require.EqualError(t, err, "bash: codex: command not found")
}

func TestPackageInstallCommandPerDistro(t *testing.T) {
	tests := []struct {
		name   string
		osText string
		want   string
	}{
		{name: "debian", osText: "ID=debian\n", want: "apt-get install -y -qq nodejs npm"},
		{name: "ubuntu pretty name", osText: "PRETTY_NAME=\"Ubuntu 24.04 LTS\"\n", want: "apt-get"},
		{name: "fedora", osText: "ID=fedora\n", want: "dnf install -y -q nodejs npm"},
		{name: "arch", osText: "ID=arch\n", want: "pacman -Sy --noconfirm nodejs npm"},
		{name: "macos", osText: "Darwin\n", want: "brew install node"},
		{name: "unknown falls back to probe chain", osText: "ID=sles\n", want: "elif command -v brew"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be := newFakeBackend()
			be.stub("cat /etc/os-release", okResult(tt.osText))
			d := NewDriver(be)

			assert.Contains(t, d.packageInstallCommand(context.Background()), tt.want)
		})
	}
}

func TestSnapshotSessionsParsesFindOutput(t *testing.T) {
	be := newFakeBackend()
	be.stub(".codex/sessions", okResult(
		"1700000100.5\t/root/.codex/sessions/2024/01/rollout-a.jsonl\n"+
			"1700000000.0\t/root/.codex/sessions/2024/01/rollout-b.jsonl\n"+
			"garbage without tab\n"))
	d := NewDriver(be)

	snap := d.SnapshotSessions(context.Background(), "pw")
	require.Len(t, snap, 2)
	assert.Equal(t, 1700000100.5, snap["/root/.codex/sessions/2024/01/rollout-a.jsonl"])
	assert.Equal(t, 1700000000.0, snap["/root/.codex/sessions/2024/01/rollout-b.jsonl"])

	call := be.lastCall()
	assert.True(t, call.AsRoot)
	assert.Contains(t, call.Script, "-maxdepth 5")
}

func TestSnapshotSessionsFailureYieldsEmpty(t *testing.T) {
	be := newFakeBackend()
	be.stub(".codex/sessions", failResult(1, "find: permission denied"))
	d := NewDriver(be)

	assert.Empty(t, d.SnapshotSessions(context.Background(), ""))
}
