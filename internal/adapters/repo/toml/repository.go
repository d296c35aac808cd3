package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/bnema/codex-console/internal/domain"
	"github.com/bnema/codex-console/internal/ports"
)

const (
	configName       = "config"
	configType       = "toml"
	settingsPathKey  = "settings.path"
	settingsFileMode = 0o600
	settingsDirMode  = 0o700
	configDirName    = ".config"
	appDirName       = "codex-console"
	settingsFileName = "settings.toml"
	tempFilePattern  = ".settings-*.toml.tmp"
)

type Repository struct {
	settingsPath string
	mu           *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.SettingsRepository = (*Repository)(nil)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	appDir := filepath.Join(homeDir, configDirName, appDirName)
	defaultPath := filepath.Join(appDir, settingsFileName)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(appDir)
	cfg.SetDefault(settingsPathKey, defaultPath)

	err = cfg.ReadInConfig()
	if err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	settingsPath := cfg.GetString(settingsPathKey)
	if settingsPath == "" {
		return nil, errors.New("settings path is empty")
	}
	settingsPath, err = normalizeSettingsPath(settingsPath)
	if err != nil {
		return nil, err
	}

	return &Repository{settingsPath: settingsPath, mu: lockForPath(settingsPath)}, nil
}

// Load returns the stored settings, or the defaults when no settings
// file exists yet. Missing keys inside an existing file fall back
// per-field so hand-edited files stay loadable.
func (r *Repository) Load(ctx context.Context) (domain.Settings, error) {
	if err := ctx.Err(); err != nil {
		return domain.Settings{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, found, err := r.readSchema()
	if err != nil {
		return domain.Settings{}, err
	}
	if !found {
		return domain.DefaultSettings(), nil
	}

	return fromSchema(file.Settings), nil
}

func (r *Repository) Save(ctx context.Context, settings domain.Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file := fileSchema{Settings: toSchema(settings)}
	file.applyDefaults()

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *Repository) readSchema() (fileSchema, bool, error) {
	data, err := os.ReadFile(r.settingsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, false, nil
		}
		return fileSchema{}, false, fmt.Errorf("read settings file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, false, fmt.Errorf("decode settings file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, false, err
	}
	file.applyDefaults()

	return file, true, nil
}

func normalizeSettingsPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve settings path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.settingsPath), settingsDirMode); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode settings file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.settingsPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp settings file: %w", err)
	}

	if err := tempFile.Chmod(settingsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp settings file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp settings file: %w", err)
	}

	if err := os.Rename(tempName, r.settingsPath); err != nil {
		return fmt.Errorf("replace settings file: %w", err)
	}

	cleanup = false

	if err := os.Chmod(r.settingsPath, settingsFileMode); err != nil {
		return fmt.Errorf("chmod settings file: %w", err)
	}

	return nil
}

func toSchema(settings domain.Settings) settingsSchema {
	return settingsSchema{
		Backend:         string(settings.Backend),
		ConversationDir: settings.ConversationDir,
		TokenBudget:     settings.TokenBudget,
		ExecTimeoutSecs: int(settings.ExecTimeout / time.Second),
		SSH: sshSchema{
			Host: settings.SSH.Host,
			Port: settings.SSH.Port,
			User: settings.SSH.User,
		},
		Codex: codexSchema{
			Model:          settings.Codex.Model,
			ApprovalPolicy: settings.Codex.ApprovalPolicy,
			SandboxMode:    settings.Codex.SandboxMode,
			WebSearch:      settings.Codex.WebSearch,
			TrustPaths:     append([]string(nil), settings.Codex.TrustPaths...),
		},
	}
}

func fromSchema(s settingsSchema) domain.Settings {
	settings := domain.Settings{
		Backend:         domain.BackendKind(s.Backend),
		ConversationDir: s.ConversationDir,
		TokenBudget:     s.TokenBudget,
		ExecTimeout:     time.Duration(s.ExecTimeoutSecs) * time.Second,
		SSH: domain.SSHTarget{
			Host: s.SSH.Host,
			Port: s.SSH.Port,
			User: s.SSH.User,
		},
		Codex: domain.CodexOptions{
			Model:          s.Codex.Model,
			ApprovalPolicy: s.Codex.ApprovalPolicy,
			SandboxMode:    s.Codex.SandboxMode,
			WebSearch:      s.Codex.WebSearch,
			TrustPaths:     append([]string(nil), s.Codex.TrustPaths...),
		},
	}

	defaults := domain.DefaultSettings()
	if settings.Backend == "" {
		settings.Backend = defaults.Backend
	}
	if settings.SSH.Port == 0 {
		settings.SSH.Port = defaults.SSH.Port
	}
	if settings.SSH.User == "" {
		settings.SSH.User = defaults.SSH.User
	}
	if settings.ConversationDir == "" {
		settings.ConversationDir = defaults.ConversationDir
	}
	if settings.ExecTimeout == 0 {
		settings.ExecTimeout = defaults.ExecTimeout
	}
	if settings.Codex.ApprovalPolicy == "" {
		settings.Codex.ApprovalPolicy = defaults.Codex.ApprovalPolicy
	}
	if settings.Codex.SandboxMode == "" {
		settings.Codex.SandboxMode = defaults.Codex.SandboxMode
	}

	return settings
}
