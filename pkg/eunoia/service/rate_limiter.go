package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
)

// ErrRateLimited is wrapped by the LocalFailure of a request the local rate limiter refused.
var ErrRateLimited = errors.New("local rate limit exceeded")

// RateLimiterConfig throttles outbound requests with a token bucket.
// A request waits for a token; it fails when the wait would outlast its deadline.
type RateLimiterConfig struct {
	RequestsPerSecond float64
	Burst             int
}

func (c *RateLimiterConfig) AddOption(svc HTTP) HTTP {
	if c.RequestsPerSecond <= 0 {
		return svc
	}

	burst := c.Burst
	if burst < 1 {
		burst = 1
	}

	return &rateLimiter{
		limiter: rate.NewLimiter(rate.Limit(c.RequestsPerSecond), burst),
		HTTP:    svc,
	}
}

type rateLimiter struct {
	limiter *rate.Limiter
	HTTP
}

func (r *rateLimiter) Send(ctx context.Context, req Request) Result {
	if err := r.limiter.Wait(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return localFailure(err)
		}

		return localFailure(fmt.Errorf("%w: %v", ErrRateLimited, err))
	}

	return r.HTTP.Send(ctx, req)
}
