package codex

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bnema/codex-console/internal/domain"
	"github.com/bnema/codex-console/internal/ports"
)

// BuildConfigTOML renders the Codex CLI's config.toml. The layout is
// fixed rather than marshaled so the file on disk stays stable across
// pushes.
func BuildConfigTOML(opts domain.CodexOptions) string {
	var lines []string
	if opts.Model != "" {
		lines = append(lines, fmt.Sprintf("model = %q", opts.Model))
	}
	lines = append(lines, fmt.Sprintf("approval_policy = %q", opts.ApprovalPolicy))
	lines = append(lines, fmt.Sprintf("sandbox_mode = %q", opts.SandboxMode))
	if opts.WebSearch {
		lines = append(lines, "", "[tools]", "web_search = true")
	}
	for _, path := range opts.TrustPaths {
		clean := strings.TrimSpace(path)
		if clean == "" {
			continue
		}
		lines = append(lines, "", fmt.Sprintf("[projects.%q]", clean), `trust_level = "trusted"`)
	}
	return strings.Join(lines, "\n") + "\n"
}

type configFile struct {
	Model          string `toml:"model"`
	ApprovalPolicy string `toml:"approval_policy"`
	SandboxMode    string `toml:"sandbox_mode"`
	Tools          struct {
		WebSearch bool `toml:"web_search"`
	} `toml:"tools"`
	Projects map[string]struct {
		TrustLevel string `toml:"trust_level"`
	} `toml:"projects"`
}

// ParseConfigTOML reads a pushed config back into options. Unknown keys
// are ignored.
func ParseConfigTOML(text string) (domain.CodexOptions, error) {
	var cfg configFile
	if err := toml.Unmarshal([]byte(text), &cfg); err != nil {
		return domain.CodexOptions{}, fmt.Errorf("parse config.toml: %w", err)
	}
	opts := domain.CodexOptions{
		Model:          cfg.Model,
		ApprovalPolicy: cfg.ApprovalPolicy,
		SandboxMode:    cfg.SandboxMode,
		WebSearch:      cfg.Tools.WebSearch,
	}
	for path := range cfg.Projects {
		opts.TrustPaths = append(opts.TrustPaths, path)
	}
	sort.Strings(opts.TrustPaths)
	return opts, nil
}

// PushConfig writes config.toml into the root user's ~/.codex with tight
// permissions, creating the directory when missing.
func (d *Driver) PushConfig(ctx context.Context, opts domain.CodexOptions, sudoPassword string) (string, error) {
	content := BuildConfigTOML(opts)
	script := "install -m 700 -d ~/.codex && " +
		"cat > ~/.codex/config.toml <<'EOF'\n" +
		content +
		"EOF\n" +
		"chmod 600 ~/.codex/config.toml && echo OK"

	res, err := d.be.Run(ctx, ports.ExecRequest{
		Script:       script,
		Timeout:      60 * time.Second,
		AsRoot:       true,
		SudoPassword: sudoPassword,
	})
	if err != nil {
		return "", err
	}
	if res.OK && strings.Contains(res.Stdout, "OK") {
		return "config.toml written for root user.", nil
	}
	return "", fmt.Errorf("failed to write config.toml: rc=%d out=%s err=%s",
		res.ExitCode, strings.TrimSpace(res.Stdout), strings.TrimSpace(res.Stderr))
}

// ReadConfig returns the current config.toml body, or the CLI's
// "no config" placeholder when none exists.
func (d *Driver) ReadConfig(ctx context.Context, sudoPassword string) string {
	res, err := d.be.Run(ctx, ports.ExecRequest{
		Script:       "test -f ~/.codex/config.toml && cat ~/.codex/config.toml || echo 'no config'",
		Timeout:      30 * time.Second,
		AsRoot:       true,
		SudoPassword: sudoPassword,
	})
	if err != nil {
		return ""
	}
	out := strings.TrimSpace(res.Stdout)
	if out == "" {
		out = strings.TrimSpace(res.Stderr)
	}
	return out
}
