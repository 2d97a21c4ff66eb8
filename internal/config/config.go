package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/Kamar-Folarin/cpython-stats/internal/utils"
)

type Config struct {
	Port                    string `env:"PORT" env-default:"8080"`
	LogLevel                string `env:"LOG_LEVEL" env-default:"info"`
	DBConnectionString      string `env:"DB_CONNECTION_STRING"`
	CacheDBConnectionString string `env:"CACHE_DB_CONNECTION_STRING"`
	CoreDevsPath            string `env:"CORE_DEVS_TOML" env-default:"python-core.toml"`

	GitHub GitHubConfig
	Ingest IngestConfig
	Batch  BatchConfig
}

// Load reads the configuration from the environment
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if cfg.CacheDBConnectionString == "" {
		cfg.CacheDBConnectionString = cfg.DBConnectionString
	}

	cutoff, err := time.Parse(dateLayout, cfg.Ingest.CutoffDate)
	if err != nil {
		return nil, fmt.Errorf("invalid COMMIT_CUTOFF %q: %w", cfg.Ingest.CutoffDate, err)
	}
	cfg.Ingest.Cutoff = cutoff

	owner, name, err := utils.ParseRepo(cfg.GitHub.Repo)
	if err != nil {
		return nil, fmt.Errorf("invalid GITHUB_REPO %q: %w", cfg.GitHub.Repo, err)
	}
	cfg.GitHub.Owner, cfg.GitHub.Name = owner, name

	return &cfg, nil
}

// RequireDatabase fails when no database is configured
func (c *Config) RequireDatabase() error {
	if c.DBConnectionString == "" {
		return fmt.Errorf("missing required configuration (DB_CONNECTION_STRING must be set)")
	}
	return nil
}

// RequireGitHub fails when no API token is configured
func (c *Config) RequireGitHub() error {
	if c.GitHub.Token == "" {
		return fmt.Errorf("missing required configuration (GITHUB_API_TOKEN must be set)")
	}
	return nil
}
