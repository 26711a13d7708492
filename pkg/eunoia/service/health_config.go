package service

import "context"

// HealthConfig points HealthCheck at a different endpoint. Timeout is in seconds.
type HealthConfig struct {
	HealthEndpoint string
	Timeout        int
}

func (h *HealthConfig) AddOption(svc HTTP) HTTP {
	endpoint := h.HealthEndpoint
	if endpoint == "" {
		endpoint = defaultHealthEndpoint
	}

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &customHealthService{
		healthEndpoint: endpoint,
		timeout:        timeout,
		HTTP:           svc,
	}
}

type customHealthService struct {
	healthEndpoint string
	timeout        int
	HTTP
}

func (c *customHealthService) HealthCheck(ctx context.Context) *Health {
	return checkHealth(ctx, c.HTTP, c.healthEndpoint, c.timeout)
}
