package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

const (
	serviceUp   = "UP"
	serviceDown = "DOWN"

	defaultHealthEndpoint = "health"
	defaultTimeout        = 5
)

type Health struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details"`
}

func (h *httpService) HealthCheck(ctx context.Context) *Health {
	return checkHealth(ctx, h, defaultHealthEndpoint, defaultTimeout)
}

// checkHealth sends GET endpoint through svc, so decorators such as DefaultHeaders apply to health checks too.
func checkHealth(ctx context.Context, svc HTTP, endpoint string, timeoutSeconds int) *Health {
	health := Health{
		Details: make(map[string]any),
	}

	if base := extractHTTPService(svc); base != nil {
		if u, err := url.Parse(base.url); err == nil {
			health.Details["host"] = u.Host
		}
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
	defer cancel()

	res := svc.Send(ctx, Request{Method: http.MethodGet, Path: endpoint})
	if res.Err != nil {
		health.Status = serviceDown
		health.Details["error"] = res.Err.Error()

		return &health
	}

	health.Status = serviceUp

	var body map[string]any
	if json.Unmarshal(res.Body, &body) == nil {
		for k, v := range body {
			if k != "host" {
				health.Details[k] = v
			}
		}
	}

	return &health
}
