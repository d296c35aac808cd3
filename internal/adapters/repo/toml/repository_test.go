package toml

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/codex-console/internal/domain"
)

func testSettings() domain.Settings {
	settings := domain.DefaultSettings()
	settings.Backend = domain.BackendSSH
	settings.SSH = domain.SSHTarget{Host: "orion", Port: 2222, User: "root"}
	settings.ConversationDir = "/root/.codex/front_conversations"
	settings.TokenBudget = 16000
	settings.Codex.Model = "gpt-5"
	return settings
}

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	settingsPath := filepath.Join(t.TempDir(), "settings.toml")
	config := viper.New()
	config.Set("settings.path", settingsPath)

	repo, err := NewRepository(config)
	require.NoError(t, err)
	return repo
}

func TestRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	want := testSettings()

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRepositoryLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	settingsPath := filepath.Join(t.TempDir(), "missing", "settings.toml")
	config := viper.New()
	config.Set("settings.path", settingsPath)

	repo, err := NewRepository(config)
	require.NoError(t, err)

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), got)
}

func TestRepositoryLoadFillsMissingKeys(t *testing.T) {
	t.Parallel()

	settingsPath := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(settingsPath, []byte(strings.Join([]string{
		"version = 1",
		"",
		"[settings]",
		"backend = \"wsl\"",
		"",
	}, "\n")), 0o600))

	config := viper.New()
	config.Set("settings.path", settingsPath)
	repo, err := NewRepository(config)
	require.NoError(t, err)

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.BackendWSL, got.Backend)
	assert.Equal(t, 22, got.SSH.Port)
	assert.Equal(t, "root", got.SSH.User)
	assert.Equal(t, "/root/.codex/conversations", got.ConversationDir)
	assert.Equal(t, 900*time.Second, got.ExecTimeout)
	assert.Equal(t, "never", got.Codex.ApprovalPolicy)
	assert.Equal(t, "danger-full-access", got.Codex.SandboxMode)
}

func TestRepositorySaveCreatesDefaultPathAndEnforcesPermissions(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)

	repo, err := NewRepository(viper.New())
	require.NoError(t, err)

	require.NoError(t, repo.Save(context.Background(), domain.DefaultSettings()))

	settingsPath := filepath.Join(homeDir, ".config", "codex-console", "settings.toml")
	info, err := os.Stat(settingsPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRepositorySaveRejectsInvalidSettings(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	settings := domain.DefaultSettings()
	settings.Backend = domain.BackendSSH
	settings.SSH.Host = ""

	err := repo.Save(context.Background(), settings)
	require.ErrorIs(t, err, domain.ErrInvalidSettings)

	_, err = os.Stat(repo.settingsPath)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRepositoryLoadMalformedTOMLReturnsError(t *testing.T) {
	t.Parallel()

	settingsPath := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(settingsPath, []byte("settings = ["), 0o600))

	config := viper.New()
	config.Set("settings.path", settingsPath)
	repo, err := NewRepository(config)
	require.NoError(t, err)

	_, err = repo.Load(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "decode settings file")
}

func TestRepositorySaveCanceledContextReturnsContextError(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.Save(ctx, domain.DefaultSettings())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRepositoryConcurrentSavesAcrossInstancesStayConsistent(t *testing.T) {
	t.Parallel()

	settingsPath := filepath.Join(t.TempDir(), "settings.toml")

	newRepo := func() *Repository {
		config := viper.New()
		config.Set("settings.path", settingsPath)
		repo, err := NewRepository(config)
		require.NoError(t, err)
		return repo
	}

	repoA := newRepo()
	repoB := newRepo()

	withBudget := func(budget int) domain.Settings {
		settings := domain.DefaultSettings()
		settings.TokenBudget = budget
		return settings
	}

	const perRepoWrites = 50
	start := make(chan struct{})
	errCh := make(chan error, perRepoWrites*2)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < perRepoWrites; i++ {
			errCh <- repoA.Save(context.Background(), withBudget(1000))
		}
	}()

	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < perRepoWrites; i++ {
			errCh <- repoB.Save(context.Background(), withBudget(2000))
		}
	}()

	close(start)
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	got, err := repoA.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, []int{1000, 2000}, got.TokenBudget)
}

func TestRepositorySaveSerializedTOMLIncludesVersion(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)

	require.NoError(t, repo.Save(context.Background(), domain.DefaultSettings()))

	data, err := os.ReadFile(repo.settingsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version = 1")
}

func TestRepositoryFutureSchemaVersionReturnsError(t *testing.T) {
	t.Parallel()

	settingsPath := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(settingsPath, []byte(strings.Join([]string{
		"version = 999",
		"",
		"[settings]",
		"backend = \"local\"",
		"",
	}, "\n")), 0o600))

	config := viper.New()
	config.Set("settings.path", settingsPath)
	repo, err := NewRepository(config)
	require.NoError(t, err)

	_, err = repo.Load(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "unsupported settings schema version")
}
