package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	codexadapter "github.com/bnema/codex-console/internal/adapters/codex"
	"github.com/bnema/codex-console/internal/adapters/exec/local"
	"github.com/bnema/codex-console/internal/adapters/exec/ssh"
	"github.com/bnema/codex-console/internal/adapters/exec/wsl"
	tomlrepo "github.com/bnema/codex-console/internal/adapters/repo/toml"
	chainstore "github.com/bnema/codex-console/internal/adapters/secrets/chain"
	markdownstore "github.com/bnema/codex-console/internal/adapters/store/markdown"
	"github.com/bnema/codex-console/internal/application"
	"github.com/bnema/codex-console/internal/domain"
	"github.com/bnema/codex-console/internal/ports"
	"github.com/spf13/viper"
)

type app struct {
	repo        ports.SettingsRepository
	secretStore ports.SecretStore
	now         func() time.Time
}

func wireApp() (*app, error) {
	repo, err := tomlrepo.NewRepository(viper.New())
	if err != nil {
		return nil, fmt.Errorf("wire settings repository: %w", err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	secretStore, err := chainstore.NewPassFirstWithFileFallback(filepath.Join(homeDir, ".config", "codex-console", "secrets"))
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}

	return &app{
		repo:        repo,
		secretStore: secretStore,
		now:         time.Now,
	}, nil
}

// stack is the execution backend wired up for the configured target,
// built per command invocation so settings edits take effect immediately.
type stack struct {
	settings domain.Settings
	driver   *codexadapter.Driver
	store    ports.ConversationStore
	password string
}

func (a *app) buildStack(ctx context.Context) (*stack, error) {
	settings, err := a.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	password := a.lookupPassword(ctx, settings)
	backend := backendFor(settings, password)

	return &stack{
		settings: settings,
		driver:   codexadapter.NewDriver(backend),
		store:    markdownstore.New(backend, ports.SystemClock{}, func() string { return password }),
		password: password,
	}, nil
}

func (s *stack) newWorker() *application.Worker {
	return application.NewWorker(s.driver, s.store, application.Options{
		Password:    s.password,
		TokenBudget: s.settings.TokenBudget,
		ExecTimeout: s.settings.ExecTimeout,
		FallbackDir: s.settings.ConversationDir,
		Logger:      logger,
	})
}

func (a *app) lookupPassword(ctx context.Context, settings domain.Settings) string {
	value, err := a.secretStore.Get(ctx, passwordKeyFor(settings))
	if err != nil {
		return ""
	}
	return value
}

func passwordKeyFor(settings domain.Settings) string {
	if settings.Backend == domain.BackendSSH {
		return settings.SSH.PasswordKey()
	}
	return domain.LocalPasswordKey
}

func backendFor(settings domain.Settings, password string) ports.Backend {
	switch settings.Backend {
	case domain.BackendWSL:
		return wsl.New()
	case domain.BackendSSH:
		return ssh.New(settings.SSH, password)
	default:
		return local.New()
	}
}
