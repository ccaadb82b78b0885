package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Vault       VaultConfig     `toml:"vault"`
	Browser     BrowserConfig   `toml:"browser"`
	Scrape      ScrapeConfig    `toml:"scrape"`
	Acquire     AcquireConfig   `toml:"acquire"`
	Tokens      TokensConfig    `toml:"tokens"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
}

// StorageConfig holds badger database settings
type StorageConfig struct {
	Path string `toml:"path" validate:"required"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=trace debug info warn error"`
	Output []string `toml:"output"` // "stdout", "file"
}

// VaultConfig holds the credential encryption key. The key itself should
// come from the environment, not the config file on disk.
type VaultConfig struct {
	// Key is the base64-encoded 32-byte encryption key.
	Key string `toml:"key"`
}

// BrowserConfig controls the automation sessions
type BrowserConfig struct {
	Headless   bool   `toml:"headless"`
	UserAgent  string `toml:"user_agent"`
	WindowW    int    `toml:"window_width" validate:"gt=0"`
	WindowH    int    `toml:"window_height" validate:"gt=0"`
	ChromePath string `toml:"chrome_path"` // empty = let chromedp find it
}

// ScrapeConfig tunes the scraping pipelines
type ScrapeConfig struct {
	// TypingPaceMs is the per-keystroke delay when filling login forms.
	TypingPaceMs int `toml:"typing_pace_ms" validate:"gte=0"`
	// RequestsPerMinute bounds page interactions per source.
	RequestsPerMinute int `toml:"requests_per_minute" validate:"gt=0"`
	// SecondFactorWaitSec is the budget for an attended 2FA approval.
	SecondFactorWaitSec int `toml:"second_factor_wait_sec" validate:"gt=0"`
}

// AcquireConfig sets acquisition defaults used when a request leaves them out
type AcquireConfig struct {
	DefaultQuota    int      `toml:"default_quota" validate:"gt=0"`
	DefaultSources  []string `toml:"default_sources"`
	DefaultLocation string   `toml:"default_location"`
}

// ProviderConfig describes one OAuth provider's refresh endpoint
type ProviderConfig struct {
	TokenURL     string `toml:"token_url" validate:"omitempty,url"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// TokensConfig maps provider names to their refresh endpoints
type TokensConfig struct {
	Providers map[string]ProviderConfig `toml:"providers"`
}

// SchedulerConfig controls the background maintenance jobs
type SchedulerConfig struct {
	Enabled bool `toml:"enabled"`
	// TokenSweepSchedule refreshes soon-to-expire provider tokens.
	TokenSweepSchedule string `toml:"token_sweep_schedule"`
	// PruneSchedule removes stale placeholder records.
	PruneSchedule string `toml:"prune_schedule"`
	// PruneAfterHours is the placeholder record retention window.
	PruneAfterHours int `toml:"prune_after_hours" validate:"gt=0"`
}

// NewDefaultConfig returns the configuration defaults. Only user-facing
// settings are exposed in venator.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Path: "./data",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Browser: BrowserConfig{
			Headless:  true,
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			WindowW:   1920,
			WindowH:   1080,
		},
		Scrape: ScrapeConfig{
			TypingPaceMs:        100,
			RequestsPerMinute:   12,
			SecondFactorWaitSec: 60,
		},
		Acquire: AcquireConfig{
			DefaultQuota:    10,
			DefaultSources:  []string{"linkedin", "careerportal", "websearch"},
			DefaultLocation: "New York, NY",
		},
		Tokens: TokensConfig{
			Providers: map[string]ProviderConfig{},
		},
		Scheduler: SchedulerConfig{
			Enabled:            true,
			TokenSweepSchedule: "0 */6 * * *",
			PruneSchedule:      "30 3 * * *",
			PruneAfterHours:    72,
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("VENATOR_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Storage configuration
	if path := os.Getenv("VENATOR_STORAGE_PATH"); path != "" {
		config.Storage.Path = path
	}

	// Logging configuration
	if level := os.Getenv("VENATOR_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("VENATOR_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Vault key only ever comes from the environment in production
	if key := os.Getenv("VENATOR_VAULT_KEY"); key != "" {
		config.Vault.Key = key
	}

	// Browser configuration
	if headless := os.Getenv("VENATOR_BROWSER_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = h
		}
	}
	if ua := os.Getenv("VENATOR_BROWSER_USER_AGENT"); ua != "" {
		config.Browser.UserAgent = ua
	}
	if path := os.Getenv("VENATOR_CHROME_PATH"); path != "" {
		config.Browser.ChromePath = path
	}

	// Scrape configuration
	if rpm := os.Getenv("VENATOR_SCRAPE_REQUESTS_PER_MINUTE"); rpm != "" {
		if n, err := strconv.Atoi(rpm); err == nil {
			config.Scrape.RequestsPerMinute = n
		}
	}

	// Acquisition configuration
	if quota := os.Getenv("VENATOR_ACQUIRE_QUOTA"); quota != "" {
		if q, err := strconv.Atoi(quota); err == nil {
			config.Acquire.DefaultQuota = q
		}
	}

	// Provider secrets
	applyProviderEnvOverrides(config, "graph", "VENATOR_GRAPH")
	applyProviderEnvOverrides(config, "strava", "VENATOR_STRAVA")
}

// applyProviderEnvOverrides fills one provider's endpoint from the
// environment, creating the provider entry when the config file omits it.
func applyProviderEnvOverrides(config *Config, name, prefix string) {
	tokenURL := os.Getenv(prefix + "_TOKEN_URL")
	clientID := os.Getenv(prefix + "_CLIENT_ID")
	clientSecret := os.Getenv(prefix + "_CLIENT_SECRET")
	if tokenURL == "" && clientID == "" && clientSecret == "" {
		return
	}

	if config.Tokens.Providers == nil {
		config.Tokens.Providers = map[string]ProviderConfig{}
	}
	provider := config.Tokens.Providers[name]
	if tokenURL != "" {
		provider.TokenURL = tokenURL
	}
	if clientID != "" {
		provider.ClientID = clientID
	}
	if clientSecret != "" {
		provider.ClientSecret = clientSecret
	}
	config.Tokens.Providers[name] = provider
}

// Validate checks field constraints and the cron schedules
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Scheduler.Enabled {
		if err := ValidateSchedule(c.Scheduler.TokenSweepSchedule); err != nil {
			return fmt.Errorf("invalid token sweep schedule: %w", err)
		}
		if err := ValidateSchedule(c.Scheduler.PruneSchedule); err != nil {
			return fmt.Errorf("invalid prune schedule: %w", err)
		}
	}
	return nil
}

// ValidateSchedule checks a cron expression (5-field, standard parser)
func ValidateSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("schedule is empty")
	}
	_, err := cron.ParseStandard(schedule)
	return err
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
