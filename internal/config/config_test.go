package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:     AppConfig{Environment: "development"},
		Logger:  LoggerConfig{Level: "info"},
		Storage: StorageConfig{RootPath: "/card"},
		Cache:   CacheConfig{ItemsPerSide: 10, EdgeMargin: 1, IdleRecenter: 10 * time.Second},
		Locks:   LockConfig{Library: time.Second, Bus: time.Second, BusLong: 5 * time.Second, Queue: 100 * time.Millisecond},
		Worker:  WorkerConfig{LyricsScanTrackCap: 5, MaxRetries: 2},
		Shelf:   ShelfConfig{DiscTheme: "#1E88E5", BookTheme: "#8D6E63"},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env
			if tt.valid {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestValidate_ItemsPerSide(t *testing.T) {
	tests := []struct {
		perSide int
		valid   bool
	}{
		{5, true},
		{10, true},
		{15, true},
		{0, false},
		{7, false},
		{20, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.perSide), func(t *testing.T) {
			cfg := validConfig()
			cfg.Cache.ItemsPerSide = tt.perSide
			cfg.Cache.EdgeMargin = 0
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, "items per side")
			}
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad log level", func(c *Config) { c.Logger.Level = "loud" }, "invalid log level"},
		{"empty root", func(c *Config) { c.Storage.RootPath = "" }, "root path"},
		{"edge margin too wide", func(c *Config) { c.Cache.EdgeMargin = 10 }, "edge margin"},
		{"zero bus timeout", func(c *Config) { c.Locks.Bus = 0 }, "bus lock timeout"},
		{"negative retries", func(c *Config) { c.Worker.MaxRetries = -1 }, "max retries"},
		{"bad theme", func(c *Config) { c.Shelf.BookTheme = "brown" }, "theme color"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("LIBRARIAN_ROOT", "")
	t.Setenv("CACHE_ITEMS_PER_SIDE", "")

	cfg, err := Load([]string{"-env-file", filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, 10, cfg.Cache.ItemsPerSide)
	assert.Equal(t, 1, cfg.Cache.EdgeMargin)
	assert.Equal(t, 10*time.Second, cfg.Cache.IdleRecenter)
	assert.Equal(t, 5*time.Second, cfg.Locks.BusLong)
	assert.Equal(t, 100*time.Millisecond, cfg.Locks.Queue)
	assert.Equal(t, 5, cfg.Worker.LyricsScanTrackCap)
	assert.True(t, filepath.IsAbs(cfg.Storage.RootPath))
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	t.Setenv("CACHE_ITEMS_PER_SIDE", "5")
	t.Setenv("LIBRARIAN_ROOT", "/from/env")

	cfg, err := Load([]string{
		"-env-file", filepath.Join(t.TempDir(), "missing.env"),
		"-cache-items-per-side", "15",
		"-bus-lock-timeout", "250ms",
	})
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.Cache.ItemsPerSide)
	assert.Equal(t, 250*time.Millisecond, cfg.Locks.Bus)
	assert.Equal(t, "/from/env", cfg.Storage.RootPath)
}

func TestLoad_InvalidDuration(t *testing.T) {
	_, err := Load([]string{
		"-env-file", filepath.Join(t.TempDir(), "missing.env"),
		"-library-lock-timeout", "soon",
	})
	assert.ErrorContains(t, err, "LIBRARY_LOCK_TIMEOUT")
}

func TestExpandRootPath(t *testing.T) {
	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty uses default", "", filepath.Join(homeDir, "Librarian", "card")},
		{"tilde", "~/sd", filepath.Join(homeDir, "sd")},
		{"absolute", "/mnt/sd/", "/mnt/sd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Storage: StorageConfig{RootPath: tt.input}}
			require.NoError(t, cfg.expandRootPath())
			assert.Equal(t, tt.want, cfg.Storage.RootPath)
		})
	}
}

func TestGetConfigValue_Precedence(t *testing.T) {
	assert.Equal(t, "flag-value", getConfigValue("flag-value", "TEST_ENV_KEY", "default-value"))

	t.Setenv("TEST_ENV_KEY", "env-value")
	assert.Equal(t, "env-value", getConfigValue("", "TEST_ENV_KEY", "default-value"))
	assert.Equal(t, "default-value", getConfigValue("", "NONEXISTENT_KEY", "default-value"))
}

func TestGetIntConfigValue_FallsBackOnGarbage(t *testing.T) {
	t.Setenv("TEST_INT", "many")
	assert.Equal(t, 7, getIntConfigValue("", "TEST_INT", 7))
	assert.Equal(t, 3, getIntConfigValue("3", "TEST_INT", 7))
}

func TestLoadEnvFile_ValidFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	content := `# card settings
LIBRARIAN_TEST_ROOT=/mnt/sd
# Comment line
QUOTED_VALUE="some value"
SINGLE_QUOTED='another value'
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	t.Setenv("LIBRARIAN_TEST_ROOT", "")
	t.Setenv("QUOTED_VALUE", "")
	t.Setenv("SINGLE_QUOTED", "")

	require.NoError(t, loadEnvFile(envFile))

	assert.Equal(t, "/mnt/sd", os.Getenv("LIBRARIAN_TEST_ROOT"))
	assert.Equal(t, "some value", os.Getenv("QUOTED_VALUE"))
	assert.Equal(t, "another value", os.Getenv("SINGLE_QUOTED"))
}

func TestLoadEnvFile_InvalidFormat(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("VALID=1\nINVALID LINE\n"), 0o644))

	err := loadEnvFile(envFile)
	assert.ErrorContains(t, err, "invalid format")
}

func TestLoadEnvFile_ExistingEnvVarsNotOverwritten(t *testing.T) {
	t.Setenv("TEST_VAR", "original-value")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TEST_VAR=new-value"), 0o644))

	require.NoError(t, loadEnvFile(envFile))
	assert.Equal(t, "original-value", os.Getenv("TEST_VAR"))
}
