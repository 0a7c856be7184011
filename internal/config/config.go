package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables before they are mapped
// onto config keys. A double underscore separates nesting levels, so
// HALOSYNC_AUTH__CLIENT_ID maps to auth.client_id.
const EnvPrefix = "HALOSYNC_"

// MemoryLedgerPath is the ledger path used for dry runs so nothing is
// persisted to disk.
const MemoryLedgerPath = ":memory:"

// Config is the full configuration of a sync run.
type Config struct {
	DryRun bool         `koanf:"dry_run"`
	Auth   AuthConfig   `koanf:"auth"`
	Halo   HaloConfig   `koanf:"halo"`
	Nsight NsightConfig `koanf:"nsight"`
	Ledger LedgerConfig `koanf:"ledger"`
	Log    LogConfig    `koanf:"log"`
	Retry  RetryConfig  `koanf:"retry"`
}

// AuthConfig holds the Halo OAuth2 client-credentials settings.
type AuthConfig struct {
	URL      string `koanf:"url"`
	Tenant   string `koanf:"tenant"`
	ClientID string `koanf:"client_id"`
	Secret   string `koanf:"secret"`
}

// HaloConfig holds the Halo API base URL and endpoint fragments.
type HaloConfig struct {
	APIURL           string `koanf:"api_url"`
	ClientEndpoint   string `koanf:"client_endpoint"`
	ToplevelEndpoint string `koanf:"toplevel_endpoint"`
}

// NsightConfig holds the N-sight API settings. Toplevel is the name of the
// Halo toplevel that synced clients are bucketed under; empty disables
// grouping.
type NsightConfig struct {
	BaseURL  string `koanf:"base_url"`
	APIKey   string `koanf:"api_key"`
	Toplevel string `koanf:"toplevel"`
}

// LedgerConfig holds the backup ledger settings. Active=false turns every
// ledger write into a logged no-op.
type LedgerConfig struct {
	Path   string `koanf:"path"`
	Active bool   `koanf:"active"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `koanf:"level"`
}

// RetryConfig tunes the retry wrapper shared by both API clients.
type RetryConfig struct {
	Attempts    int `koanf:"attempts"`
	IntervalSec int `koanf:"interval_sec"`
}

// Interval returns the wait between retry attempts.
func (r RetryConfig) Interval() time.Duration {
	return time.Duration(r.IntervalSec) * time.Second
}

func defaults() Config {
	return Config{
		DryRun: true, // writes are opt-in
		Halo: HaloConfig{
			ClientEndpoint:   "Client",
			ToplevelEndpoint: "Toplevel",
		},
		Ledger: LedgerConfig{
			Path:   "halosync_backup.db",
			Active: true,
		},
		Log: LogConfig{
			Level: "info",
		},
		Retry: RetryConfig{
			Attempts:    3,
			IntervalSec: 3,
		},
	}
}

// Load reads configuration from the settings file, the secrets file and
// the environment. Either path may be empty or point to a missing file;
// environment variables alone can carry a full configuration.
func Load(settingsPath, envPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if settingsPath != "" {
		if _, err := os.Stat(settingsPath); err == nil {
			if err := k.Load(file.Provider(settingsPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load settings file %s: %w", settingsPath, err)
			}
		}
	}

	if envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			if err := k.Load(file.Provider(envPath), dotenv.ParserEnv("", ".", envKey)); err != nil {
				return nil, fmt.Errorf("load env file %s: %w", envPath, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return envKey(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LedgerPath returns the path the ledger should open. Dry runs always use
// an in-memory database so nothing persists, regardless of the configured
// path.
func (c *Config) LedgerPath() string {
	if c.DryRun {
		return MemoryLedgerPath
	}
	return c.Ledger.Path
}

// envKey maps AUTH__CLIENT_ID style keys to auth.client_id.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// Validate reports every missing required setting in a single error, so a
// misconfigured deployment is fixed in one pass instead of one variable at
// a time.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"auth.url", c.Auth.URL},
		{"auth.tenant", c.Auth.Tenant},
		{"auth.client_id", c.Auth.ClientID},
		{"auth.secret", c.Auth.Secret},
		{"halo.api_url", c.Halo.APIURL},
		{"nsight.base_url", c.Nsight.BaseURL},
		{"nsight.api_key", c.Nsight.APIKey},
	}

	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// LogLevel parses the configured log level, defaulting to info on
// unrecognized values.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
