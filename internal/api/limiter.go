package api

import (
	"context"
	"pappaliiga-stats/internal/config"
	"time"
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// AdaptiveLimiter holds one delay shared by every outbound request.
// Not safe for concurrent use; the sync loop is its only caller.
type AdaptiveLimiter struct {
	base         time.Duration
	max          time.Duration
	growth       float64
	recovery     float64
	recoverAfter int

	current time.Duration
	streak  int
	sleep   SleepFunc
}

func NewAdaptiveLimiter(cfg config.LimiterConfig) *AdaptiveLimiter {
	cfg = cfg.WithDefaults()
	return &AdaptiveLimiter{
		base:         cfg.BaseDelay,
		max:          cfg.MaxDelay,
		growth:       cfg.Growth,
		recovery:     cfg.Recovery,
		recoverAfter: cfg.RecoverAfter,
		current:      cfg.BaseDelay,
		sleep:        sleepContext,
	}
}

func NewAdaptiveLimiterFromConfig(cfg *config.Config) *AdaptiveLimiter {
	return NewAdaptiveLimiter(cfg.Limiter)
}

// WithSleep replaces the sleep used by Wait.
func (l *AdaptiveLimiter) WithSleep(fn SleepFunc) *AdaptiveLimiter {
	l.sleep = fn
	return l
}

func (l *AdaptiveLimiter) Delay() time.Duration { return l.current }

func (l *AdaptiveLimiter) OnThrottle() { l.grow() }

func (l *AdaptiveLimiter) OnError() { l.grow() }

func (l *AdaptiveLimiter) grow() {
	next := time.Duration(float64(max(l.current, l.base)) * l.growth)
	l.current = min(l.max, next)
	l.streak = 0
}

func (l *AdaptiveLimiter) OnSuccess() {
	l.streak++
	if l.streak < l.recoverAfter {
		return
	}
	l.streak = 0
	if l.current > l.base {
		l.current = max(l.base, time.Duration(float64(l.current)*l.recovery))
	}
}

// Wait sleeps for the current delay before a request.
func (l *AdaptiveLimiter) Wait(ctx context.Context) error {
	if l.current <= 0 {
		return ctx.Err()
	}
	return l.sleep(ctx, l.current)
}
