package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Services ServicesConfig `toml:"services"`
	Matching MatchingConfig `toml:"matching"`
	Artwork  ArtworkConfig  `toml:"artwork"`
	Retry    RetryConfig    `toml:"retry"`
}

// ServicesConfig contains settings for the external lookup services.
type ServicesConfig struct {
	UserAgent   string        `toml:"user_agent"`
	MusicBrainz ServiceConfig `toml:"musicbrainz"`
	CoverArt    ServiceConfig `toml:"coverart"`
	ITunes      ServiceConfig `toml:"itunes"`
}

// ServiceConfig contains per-service connection settings.
type ServiceConfig struct {
	BaseURL   string  `toml:"base_url"`
	RateLimit float64 `toml:"rate_limit"` // requests per second
}

// MatchingConfig contains the scoring thresholds for accept/flag/skip
// decisions.
type MatchingConfig struct {
	AutoAcceptThreshold float64 `toml:"auto_accept_threshold"`
	ReviewThreshold     float64 `toml:"review_threshold"`
	ConfirmSimilarity   float64 `toml:"confirm_similarity"`
	CandidateLimit      int     `toml:"candidate_limit"`
}

// ArtworkConfig contains artwork selection settings.
type ArtworkConfig struct {
	UpgradeMargin int `toml:"upgrade_margin"`
}

// RetryConfig bounds the retry behavior on per-call network failures.
// Backoff is exponential starting from InitialBackoffMS.
type RetryConfig struct {
	MaxAttempts      int `toml:"max_attempts"`
	InitialBackoffMS int `toml:"initial_backoff_ms"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
