package domain

import (
	"fmt"
	"time"
)

// BackendKind selects the execution context Codex runs in.
type BackendKind string

const (
	BackendLocal BackendKind = "local"
	BackendWSL   BackendKind = "wsl"
	BackendSSH   BackendKind = "ssh"
)

func (k BackendKind) Valid() bool {
	switch k {
	case BackendLocal, BackendWSL, BackendSSH:
		return true
	default:
		return false
	}
}

// LocalPasswordKey names the stored sudo password used by the local and
// WSL backends.
const LocalPasswordKey = "codex-console/local_password"

// HealthCheckPrompt is the exec turn the startup pipeline sends to prove
// the CLI answers end to end.
const HealthCheckPrompt = "Health check: state your current approval policy and sandbox mode, then stop."

// SSHTarget identifies the remote host used by the ssh backend.
type SSHTarget struct {
	Host string
	Port int
	User string
}

func (t SSHTarget) Address() string {
	port := t.Port
	if port == 0 {
		port = 22
	}
	return fmt.Sprintf("%s:%d", t.Host, port)
}

// PasswordKey names the stored login password for this target.
func (t SSHTarget) PasswordKey() string {
	user := t.User
	if user == "" {
		user = "root"
	}
	return fmt.Sprintf("codex-console/remote:%s:%s", t.Host, user)
}

// CodexOptions mirror the fields the front end manages in the Codex CLI's
// own config.toml.
type CodexOptions struct {
	Model          string
	ApprovalPolicy string
	SandboxMode    string
	WebSearch      bool
	TrustPaths     []string
}

// Settings hold the front-end configuration.
type Settings struct {
	Backend         BackendKind
	SSH             SSHTarget
	ConversationDir string
	TokenBudget     int
	ExecTimeout     time.Duration
	Codex           CodexOptions
}

func DefaultSettings() Settings {
	return Settings{
		Backend:         BackendLocal,
		SSH:             SSHTarget{Port: 22, User: "root"},
		ConversationDir: "/root/.codex/conversations",
		TokenBudget:     8000,
		ExecTimeout:     900 * time.Second,
		Codex: CodexOptions{
			ApprovalPolicy: "never",
			SandboxMode:    "danger-full-access",
			WebSearch:      true,
			TrustPaths:     []string{"/root", "/home", "/mnt/c", "/mnt/c/Users"},
		},
	}
}

func (s Settings) Validate() error {
	if !s.Backend.Valid() {
		return fmt.Errorf("%w: backend %q", ErrInvalidSettings, s.Backend)
	}
	if s.Backend == BackendSSH {
		if s.SSH.Host == "" {
			return fmt.Errorf("%w: ssh backend requires a host", ErrInvalidSettings)
		}
		if s.SSH.User == "" {
			return fmt.Errorf("%w: ssh backend requires a user", ErrInvalidSettings)
		}
	}
	if s.ExecTimeout < 0 {
		return fmt.Errorf("%w: negative exec timeout", ErrInvalidSettings)
	}
	return nil
}
