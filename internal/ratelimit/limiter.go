package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/cpython-stats/internal/config"
	"github.com/Kamar-Folarin/cpython-stats/internal/progress"
)

// Domain is a GitHub quota bucket
type Domain string

const (
	Core    Domain = "core"
	Search  Domain = "search"
	GraphQL Domain = "graphql"
)

// Rate is the live quota of one domain
type Rate struct {
	Remaining int
	Limit     int
	Reset     time.Time
}

// Source reads the current quotas from the API
type Source interface {
	RateLimits(ctx context.Context) (map[Domain]Rate, error)
}

// Throttler blocks until a request in domain may be issued
type Throttler interface {
	Throttle(ctx context.Context, domain Domain, precise bool) error
}

// Limiter throttles callers against the live GitHub quota
type Limiter struct {
	source   Source
	cfg      config.RateLimitConfig
	logger   *logrus.Logger
	progress progress.Reporter
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures a Limiter
type Option func(*Limiter)

// WithProgress sets the indicator updated while waiting for a reset
func WithProgress(r progress.Reporter) Option {
	return func(l *Limiter) {
		l.progress = r
	}
}

// WithClock replaces the time source and sleeper
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Limiter) {
		l.now = now
		l.sleep = sleep
	}
}

// NewLimiter creates a limiter reading quotas from source
func NewLimiter(source Source, cfg config.RateLimitConfig, logger *logrus.Logger, opts ...Option) *Limiter {
	l := &Limiter{
		source:   source,
		cfg:      cfg,
		logger:   logger,
		progress: progress.Discard,
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Throttle returns once a request in domain may be issued. In precise mode
// any remaining quota above one request is enough; otherwise the caller
// proceeds while more than Ratio of the limit is left, and pauses for a tick
// while more than SlowdownRemaining requests are left. Below that it waits
// for the reset. Only context cancellation is returned as an error.
func (l *Limiter) Throttle(ctx context.Context, domain Domain, precise bool) error {
	for {
		rate, err := l.read(ctx, domain)
		if err != nil {
			return err
		}

		if precise && rate.Remaining > 1 {
			return nil
		}
		if rate.Limit > 0 && float64(rate.Remaining)/float64(rate.Limit) > l.cfg.Ratio {
			return nil
		}
		if rate.Remaining > l.cfg.SlowdownRemaining {
			return l.sleep(ctx, l.cfg.Tick)
		}

		delta := rate.Reset.Sub(l.now())
		if delta < 0 {
			return nil
		}

		l.logger.WithFields(logrus.Fields{
			"domain":    domain,
			"remaining": rate.Remaining,
			"limit":     rate.Limit,
			"reset":     rate.Reset,
		}).Warn("Rate limit nearly exhausted, waiting for reset")

		if err := l.wait(ctx, delta, rate); err != nil {
			return err
		}
	}
}

func (l *Limiter) read(ctx context.Context, domain Domain) (Rate, error) {
	for {
		rates, err := l.source.RateLimits(ctx)
		if err == nil {
			if rate, ok := rates[domain]; ok {
				return rate, nil
			}
			err = fmt.Errorf("no quota reported for domain %q", domain)
		}

		l.logger.WithError(err).WithField("domain", domain).Warn("Failed to read rate limit, retrying")
		if err := l.sleep(ctx, l.cfg.RetryBackoff); err != nil {
			return Rate{}, err
		}
	}
}

func (l *Limiter) wait(ctx context.Context, delta time.Duration, rate Rate) error {
	tick := l.cfg.Tick
	if tick <= 0 {
		tick = time.Second
	}
	ticks := int(math.Ceil(float64(delta)/float64(tick))) + int((l.cfg.ResetGrace+tick-1)/tick)

	for left := ticks; left > 0; left-- {
		l.progress.Describe(fmt.Sprintf("sleeping for %d seconds (%d/%d requests remaining)",
			int((time.Duration(left) * tick).Seconds()), rate.Remaining, rate.Limit))
		if err := l.sleep(ctx, tick); err != nil {
			return err
		}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
