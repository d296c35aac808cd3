package codex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/codex-console/internal/domain"
)

func TestBuildConfigTOML(t *testing.T) {
	opts := domain.CodexOptions{
		Model:          "gpt-5",
		ApprovalPolicy: "never",
		SandboxMode:    "danger-full-access",
		WebSearch:      true,
		TrustPaths:     []string{"/root/work", "  ", "/srv/app"},
	}

	want := `model = "gpt-5"
approval_policy = "never"
sandbox_mode = "danger-full-access"

[tools]
web_search = true

[projects."/root/work"]
trust_level = "trusted"

[projects."/srv/app"]
trust_level = "trusted"
`
	assert.Equal(t, want, BuildConfigTOML(opts))
}

func TestBuildConfigTOMLMinimal(t *testing.T) {
	opts := domain.CodexOptions{ApprovalPolicy: "on-request", SandboxMode: "workspace-write"}

	want := "approval_policy = \"on-request\"\nsandbox_mode = \"workspace-write\"\n"
	assert.Equal(t, want, BuildConfigTOML(opts))
}

func TestParseConfigTOMLRoundTrip(t *testing.T) {
	opts := domain.CodexOptions{
		Model:          "gpt-5",
		ApprovalPolicy: "never",
		SandboxMode:    "danger-full-access",
		WebSearch:      true,
		TrustPaths:     []string{"/root/work", "/srv/app"},
	}

	parsed, err := ParseConfigTOML(BuildConfigTOML(opts))
	require.NoError(t, err)
	assert.Equal(t, opts, parsed)
}

func TestParseConfigTOMLRejectsGarbage(t *testing.T) {
	_, err := ParseConfigTOML("approval_policy = [broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config.toml")
}

func TestPushConfigSuccess(t *testing.T) {
	be := newFakeBackend()
	be.stub("cat > ~/.codex/config.toml", okResult("OK\n"))
	d := NewDriver(be)

	msg, err := d.PushConfig(context.Background(), domain.DefaultSettings().Codex, "pw")
	require.NoError(t, err)
	assert.Equal(t, "config.toml written for root user.", msg)

	call := be.lastCall()
	assert.True(t, call.AsRoot)
	assert.Equal(t, "pw", call.SudoPassword)
	assert.Contains(t, call.Script, "install -m 700 -d ~/.codex")
	assert.Contains(t, call.Script, "chmod 600 ~/.codex/config.toml")
	assert.Contains(t, call.Script, `approval_policy = "never"`)
	assert.Contains(t, call.Script, `[projects."/mnt/c/Users"]`)
}

func TestPushConfigFailure(t *testing.T) {
	be := newFakeBackend()
	be.stub("cat > ~/.codex/config.toml", failResult(1, "read-only file system"))
	d := NewDriver(be)

	msg, err := d.PushConfig(context.Background(), domain.DefaultSettings().Codex, "")
	require.Error(t, err)
	assert.Empty(t, msg)
	assert.Contains(t, err.Error(), "rc=1")
	assert.Contains(t, err.Error(), "read-only file system")
}

func TestReadConfigReturnsBody(t *testing.T) {
	be := newFakeBackend()
	be.stub("test -f ~/.codex/config.toml", okResult("model = \"gpt-5\"\n"))
	d := NewDriver(be)

	assert.Equal(t, `model = "gpt-5"`, d.ReadConfig(context.Background(), ""))
}

func TestReadConfigMissingFile(t *testing.T) {
	be := newFakeBackend()
	be.stub("test -f ~/.codex/config.toml", okResult("no config\n"))
	d := NewDriver(be)

	assert.Equal(t, "no config", d.ReadConfig(context.Background(), ""))
}
