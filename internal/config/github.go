package config

import "time"

// GitHubConfig holds GitHub-specific configuration
type GitHubConfig struct {
	Token         string        `env:"GITHUB_API_TOKEN"`
	APIBaseURL    string        `env:"GITHUB_API_URL" env-default:"https://api.github.com/"`
	Repo          string        `env:"GITHUB_REPO" env-default:"python/cpython"`
	NoreplyDomain string        `env:"GITHUB_NOREPLY_DOMAIN" env-default:"users.noreply.github.com"`
	Timeout       time.Duration `env:"GITHUB_TIMEOUT" env-default:"120s"`
	RateLimit     RateLimitConfig

	Owner string `env:"-"`
	Name  string `env:"-"`
}

// RateLimitConfig holds rate limit configuration
type RateLimitConfig struct {
	// Tick is the sleep granularity while waiting for quota.
	Tick time.Duration `env:"RATE_LIMIT_TICK" env-default:"1s"`
	// RetryBackoff is the pause between failed rate limit reads.
	RetryBackoff time.Duration `env:"RATE_LIMIT_RETRY_BACKOFF" env-default:"1s"`
	Ratio        float64       `env:"RATE_LIMIT_RATIO" env-default:"0.25"`
	// SlowdownRemaining is the quota above which callers only pause for one tick.
	SlowdownRemaining int           `env:"RATE_LIMIT_SLOWDOWN_REMAINING" env-default:"50"`
	ResetGrace        time.Duration `env:"RATE_LIMIT_RESET_GRACE" env-default:"3s"`
}

// DefaultGitHubConfig returns the default GitHub configuration
func DefaultGitHubConfig() *GitHubConfig {
	return &GitHubConfig{
		APIBaseURL:    "https://api.github.com/",
		Repo:          "python/cpython",
		Owner:         "python",
		Name:          "cpython",
		NoreplyDomain: "users.noreply.github.com",
		Timeout:       120 * time.Second,
		RateLimit:     DefaultRateLimitConfig(),
	}
}

// DefaultRateLimitConfig returns the default throttling thresholds
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Tick:              time.Second,
		RetryBackoff:      time.Second,
		Ratio:             0.25,
		SlowdownRemaining: 50,
		ResetGrace:        3 * time.Second,
	}
}
