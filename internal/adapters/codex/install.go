package codex

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/codex-console/internal/ports"
)

const fastCheckScript = `if command -v codex >/dev/null 2>&1; then
    ver=$(codex --version 2>/dev/null)
    if [ $? -eq 0 ] && [ -n "$ver" ]; then
        echo "HAS|"${ver}
        exit 0
    fi
    echo "BROKEN"
    exit 0
fi
echo "MISSING"`

const npmLatestScript = `if command -v npm >/dev/null 2>&1; then
    if command -v timeout >/dev/null 2>&1; then
        timeout 3s npm view @openai/codex version 2>/dev/null
    else
        npm view @openai/codex version 2>/dev/null
    fi
fi`

// EnsureLatest installs or updates the Codex CLI through npm, pulling in
// nodejs via the distribution's package manager when npm itself is
// missing. Cheap existence and version probes run first so the common
// already-current case skips the network-heavy steps.
func (d *Driver) EnsureLatest(ctx context.Context, sudoPassword string) (string, error) {
	run := func(script string, timeout time.Duration) (ports.ExecResult, error) {
		return d.be.Run(ctx, ports.ExecRequest{
			Script:       script,
			Timeout:      timeout,
			AsRoot:       true,
			SudoPassword: sudoPassword,
		})
	}

	res, err := run(fastCheckScript, 6*time.Second)
	if err != nil {
		return "", err
	}
	state := firstLine(res.Stdout)
	hasCodex := strings.HasPrefix(state, "HAS|")
	currentVer := strings.TrimSpace(strings.TrimPrefix(state, "HAS|"))

	needsUpdate := false
	if hasCodex {
		latestRes, err := run(npmLatestScript, 6*time.Second)
		if err != nil {
			return "", err
		}
		latest := firstLine(latestRes.Stdout)
		if latest != "" && !strings.Contains(currentVer, latest) {
			needsUpdate = true
		}
		if !needsUpdate {
			return fmt.Sprintf("Codex present (%s)", currentVer), nil
		}
	}

	npmExists, err := run("command -v npm >/dev/null 2>&1", 5*time.Second)
	if err != nil {
		return "", err
	}
	if !npmExists.OK {
		pkgRes, err := run(d.packageInstallCommand(ctx), 180*time.Second)
		if err != nil {
			return "", err
		}
		if !pkgRes.OK {
			return "", errors.New(resultDetail(pkgRes, "npm install failed"))
		}
	}

	mode := "install"
	npmCmd := "npm install -g @openai/codex"
	if needsUpdate {
		mode = "update"
		npmCmd += " --force"
	}
	installRes, err := run(npmCmd, 240*time.Second)
	if err != nil {
		return "", err
	}
	if !installRes.OK {
		return "", errors.New(resultDetail(installRes, mode+" failed"))
	}

	verify, err := run("codex --version", 10*time.Second)
	if err != nil {
		return "", err
	}
	if verify.OK && strings.TrimSpace(verify.Stdout) != "" {
		return fmt.Sprintf("Codex %sed: %s", mode, strings.TrimSpace(verify.Stdout)), nil
	}
	return "", errors.New(resultDetail(verify, "codex verify failed"))
}

func (d *Driver) packageInstallCommand(ctx context.Context) string {
	osName := d.detectOS(ctx)
	switch {
	case containsAny(osName, "debian", "ubuntu", "kali", "mint", "pop"):
		return "apt-get update -qq && apt-get install -y -qq nodejs npm"
	case containsAny(osName, "fedora", "red hat", "rhel", "centos", "amzn", "alma", "rocky", "oracle"):
		return "if command -v dnf >/dev/null; then dnf install -y -q nodejs npm; else yum install -y -q nodejs npm; fi"
	case containsAny(osName, "arch", "manjaro", "endeavour"):
		return "pacman -Sy --noconfirm nodejs npm"
	case strings.Contains(osName, "darwin"):
		return "brew install node"
	default:
		return "if command -v apt-get >/dev/null; then apt-get update -qq && apt-get install -y -qq nodejs npm; " +
			"elif command -v dnf >/dev/null; then dnf install -y -q nodejs npm; " +
			"elif command -v yum >/dev/null; then yum install -y -q nodejs npm; " +
			"elif command -v pacman >/dev/null; then pacman -Sy --noconfirm nodejs npm; " +
			"elif command -v brew >/dev/null; then brew install node; " +
			"else echo 'ERROR|Package manager not found'; exit 1; fi"
	}
}

func (d *Driver) detectOS(ctx context.Context) string {
	res, err := d.be.Run(ctx, ports.ExecRequest{
		Script:  "cat /etc/os-release 2>/dev/null || uname -s",
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return ""
	}
	return strings.ToLower(res.Stdout)
}

func firstLine(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	line, _, _ := strings.Cut(trimmed, "\n")
	return strings.TrimSpace(line)
}

func resultDetail(res ports.ExecResult, fallback string) string {
	if s := strings.TrimSpace(res.Stderr); s != "" {
		return s
	}
	if s := strings.TrimSpace(res.Stdout); s != "" {
		return s
	}
	return fallback
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
