// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"
)

// AllowedItemsPerSide lists the navigation window half-widths the cache supports.
var AllowedItemsPerSide = []int{5, 10, 15}

var themeColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Storage StorageConfig
	Cache   CacheConfig
	Locks   LockConfig
	Worker  WorkerConfig
	Shelf   ShelfConfig
	Lookup  LookupConfig
	Metrics MetricsConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string
	Format string // json or pretty; empty picks by environment
}

// StorageConfig locates the removable card.
type StorageConfig struct {
	// RootPath is the card mount point; /db, /tracks, /lyrics and /covers live under it.
	RootPath string
}

// CacheConfig holds navigation cache configuration.
type CacheConfig struct {
	ItemsPerSide int           // one of AllowedItemsPerSide (default: 10)
	EdgeMargin   int           // slots from an edge that trigger a shift (default: 1)
	IdleRecenter time.Duration // re-center delay after navigation stops (default: 10s)
}

// LockConfig holds the acquisition timeouts of the shared locks.
type LockConfig struct {
	Library time.Duration // default: 1s
	Bus     time.Duration // default: 1s
	BusLong time.Duration // bulk rewrites and wipes (default: 5s)
	Queue   time.Duration // job queue (default: 100ms)
}

// WorkerConfig holds background job engine configuration.
type WorkerConfig struct {
	IdlePoll           time.Duration // default: 100ms
	ItemPacing         time.Duration // delay between bulk sync items (default: 10ms)
	LyricsPacing       time.Duration // delay between tracks of one release (default: 50ms)
	ScanPacing         time.Duration // delay between tracks during a library scan (default: 100ms)
	LyricsScanTrackCap int           // tracks probed per release during a scan (default: 5)
	MaxRetries         int           // collaborator retries per item (default: 2)
}

// ShelfConfig holds per-kind shelf layout and theme.
type ShelfConfig struct {
	DiscStart int
	BookStart int
	DiscTheme string
	BookTheme string
}

// LookupConfig holds metadata, cover and lyrics collaborator settings.
type LookupConfig struct {
	Country     string
	UserAgent   string
	HTTPTimeout time.Duration
}

// MetricsConfig holds the optional Prometheus listener.
type MetricsConfig struct {
	Addr string // empty disables the listener
}

// LoadConfig loads configuration from the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("librarian", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", "", "Log format (json, pretty)")
	rootPath := fs.String("root", "", "Card mount point")
	itemsPerSide := fs.String("cache-items-per-side", "", "Navigation window half-width (5, 10, 15)")
	edgeMargin := fs.String("cache-edge-margin", "", "Slots from a window edge that trigger a shift")
	idleRecenter := fs.String("cache-idle-recenter", "", "Re-center delay after navigation stops")
	libraryTimeout := fs.String("library-lock-timeout", "", "Library lock timeout")
	busTimeout := fs.String("bus-lock-timeout", "", "Bus lock timeout")
	maxRetries := fs.String("max-retries", "", "Collaborator retries per item")
	metricsAddr := fs.String("metrics-addr", "", "Prometheus listener address")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level:  getConfigValue(*logLevel, "LOG_LEVEL", "info"),
			Format: getConfigValue(*logFormat, "LOG_FORMAT", ""),
		},
		Storage: StorageConfig{
			RootPath: getConfigValue(*rootPath, "LIBRARIAN_ROOT", ""),
		},
		Cache: CacheConfig{
			ItemsPerSide: getIntConfigValue(*itemsPerSide, "CACHE_ITEMS_PER_SIDE", 10),
			EdgeMargin:   getIntConfigValue(*edgeMargin, "CACHE_EDGE_MARGIN", 1),
		},
		Worker: WorkerConfig{
			LyricsScanTrackCap: getIntConfigValue("", "LYRICS_SCAN_TRACK_CAP", 5),
			MaxRetries:         getIntConfigValue(*maxRetries, "MAX_RETRIES", 2),
		},
		Shelf: ShelfConfig{
			DiscStart: getIntConfigValue("", "SHELF_DISC_START", 0),
			BookStart: getIntConfigValue("", "SHELF_BOOK_START", 0),
			DiscTheme: getConfigValue("", "THEME_DISC", "#1E88E5"),
			BookTheme: getConfigValue("", "THEME_BOOK", "#8D6E63"),
		},
		Lookup: LookupConfig{
			Country:   getConfigValue("", "LOOKUP_COUNTRY", "US"),
			UserAgent: getConfigValue("", "LOOKUP_USER_AGENT", "Librarian/1.0"),
		},
		Metrics: MetricsConfig{
			Addr: getConfigValue(*metricsAddr, "METRICS_ADDR", ""),
		},
	}

	durations := []struct {
		dst  *time.Duration
		flag string
		env  string
		def  string
	}{
		{&cfg.Cache.IdleRecenter, *idleRecenter, "CACHE_IDLE_RECENTER", "10s"},
		{&cfg.Locks.Library, *libraryTimeout, "LIBRARY_LOCK_TIMEOUT", "1s"},
		{&cfg.Locks.Bus, *busTimeout, "BUS_LOCK_TIMEOUT", "1s"},
		{&cfg.Locks.BusLong, "", "BUS_LOCK_LONG_TIMEOUT", "5s"},
		{&cfg.Locks.Queue, "", "QUEUE_LOCK_TIMEOUT", "100ms"},
		{&cfg.Worker.IdlePoll, "", "WORKER_IDLE_POLL", "100ms"},
		{&cfg.Worker.ItemPacing, "", "WORKER_ITEM_PACING", "10ms"},
		{&cfg.Worker.LyricsPacing, "", "WORKER_LYRICS_PACING", "50ms"},
		{&cfg.Worker.ScanPacing, "", "WORKER_SCAN_PACING", "100ms"},
		{&cfg.Lookup.HTTPTimeout, "", "LOOKUP_HTTP_TIMEOUT", "30s"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flag, d.env, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.env, raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandRootPath(); err != nil {
		return nil, fmt.Errorf("invalid root path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Storage.RootPath == "" {
		return errors.New("storage root path cannot be empty after expansion")
	}

	if !slices.Contains(AllowedItemsPerSide, c.Cache.ItemsPerSide) {
		return fmt.Errorf("invalid cache items per side: %d (must be 5, 10, or 15)", c.Cache.ItemsPerSide)
	}
	if c.Cache.EdgeMargin < 0 || c.Cache.EdgeMargin >= c.Cache.ItemsPerSide {
		return fmt.Errorf("invalid cache edge margin: %d (must be in [0, %d))", c.Cache.EdgeMargin, c.Cache.ItemsPerSide)
	}

	for name, d := range map[string]time.Duration{
		"library lock timeout": c.Locks.Library,
		"bus lock timeout":     c.Locks.Bus,
		"queue lock timeout":   c.Locks.Queue,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if c.Worker.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}
	if c.Worker.LyricsScanTrackCap <= 0 {
		return errors.New("lyrics scan track cap must be positive")
	}

	for _, theme := range []string{c.Shelf.DiscTheme, c.Shelf.BookTheme} {
		if !themeColorPattern.MatchString(theme) {
			return fmt.Errorf("invalid theme color: %q (must be #RRGGBB)", theme)
		}
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandRootPath defaults the card root to ~/Librarian/card.
func (c *Config) expandRootPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	expanded, err := expandPath(c.Storage.RootPath, filepath.Join(homeDir, "Librarian", "card"))
	if err != nil {
		return err
	}
	c.Storage.RootPath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Env vars take precedence over the .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
