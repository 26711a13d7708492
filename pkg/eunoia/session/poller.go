package session

import (
	"context"
	"time"
)

const (
	DefaultRefreshThreshold = 5 * time.Minute
	DefaultPollInterval     = 60 * time.Second

	refreshTotal = "eunoia_session_refresh_total"
)

type Metrics interface {
	IncrementCounter(ctx context.Context, name string, labels ...string)
}

// Poller refreshes the session in the background whenever it is within the threshold of expiring.
// Failures are logged and otherwise ignored; the request path recovers on its own.
type Poller struct {
	provider  Provider
	interval  time.Duration
	threshold time.Duration
	logger    Logger
	metrics   Metrics
	now       func() time.Time
}

func NewPoller(provider Provider, interval, threshold time.Duration, logger Logger, metrics Metrics) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	if threshold <= 0 {
		threshold = DefaultRefreshThreshold
	}

	if logger == nil {
		logger = nopLogger{}
	}

	return &Poller{
		provider:  provider,
		interval:  interval,
		threshold: threshold,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Run checks the session once immediately and then on every tick until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}

// Check refreshes the session when less than the threshold is left, including sessions that already expired.
// It reports whether a refresh was attempted.
func (p *Poller) Check(ctx context.Context) bool {
	s, err := p.provider.GetSession(ctx)
	if err != nil {
		p.logger.Warnf("session poll: %v", err)

		return false
	}

	if !s.Valid() || s.RefreshToken == "" || s.Remaining(p.now()) >= p.threshold {
		return false
	}

	outcome := "success"

	if _, err := p.provider.RefreshSession(ctx); err != nil {
		outcome = "failure"

		p.logger.Warnf("background session refresh failed: %v", err)
	}

	if p.metrics != nil {
		p.metrics.IncrementCounter(ctx, refreshTotal, "trigger", "poll", "outcome", outcome)
	}

	return true
}
