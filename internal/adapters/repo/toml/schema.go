package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int            `toml:"version"`
	Settings settingsSchema `toml:"settings"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported settings schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type settingsSchema struct {
	Backend         string      `toml:"backend"`
	ConversationDir string      `toml:"conversation_dir"`
	TokenBudget     int         `toml:"token_budget"`
	ExecTimeoutSecs int         `toml:"exec_timeout_secs"`
	SSH             sshSchema   `toml:"ssh"`
	Codex           codexSchema `toml:"codex"`
}

type sshSchema struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	User string `toml:"user"`
}

type codexSchema struct {
	Model          string   `toml:"model,omitempty"`
	ApprovalPolicy string   `toml:"approval_policy"`
	SandboxMode    string   `toml:"sandbox_mode"`
	WebSearch      bool     `toml:"web_search"`
	TrustPaths     []string `toml:"trust_paths"`
}
