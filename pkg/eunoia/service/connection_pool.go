package service

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	errNegativeMaxIdleConns        = errors.New("MaxIdleConns cannot be negative")
	errNegativeMaxIdleConnsPerHost = errors.New("MaxIdleConnsPerHost cannot be negative")
	errNegativeIdleConnTimeout     = errors.New("IdleConnTimeout cannot be negative")
)

const (
	defaultMaxIdleConns    = 100
	defaultIdleConnTimeout = 90 * time.Second
)

// ConnectionPoolConfig tunes keep-alive reuse of the transport's connections.
// Zero fields keep the defaults (100 idle connections, 90s idle timeout, Go's per-host default).
type ConnectionPoolConfig struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

func (c *ConnectionPoolConfig) Validate() error {
	if c.MaxIdleConns < 0 {
		return fmt.Errorf("%w, got: %d", errNegativeMaxIdleConns, c.MaxIdleConns)
	}

	if c.MaxIdleConnsPerHost < 0 {
		return fmt.Errorf("%w, got: %d", errNegativeMaxIdleConnsPerHost, c.MaxIdleConnsPerHost)
	}

	if c.IdleConnTimeout < 0 {
		return fmt.Errorf("%w, got: %v", errNegativeIdleConnTimeout, c.IdleConnTimeout)
	}

	return nil
}

// AddOption replaces the base transport's connection pool. An invalid config leaves svc unchanged.
func (c *ConnectionPoolConfig) AddOption(svc HTTP) HTTP {
	httpSvc := extractHTTPService(svc)
	if httpSvc == nil || c.Validate() != nil {
		return svc
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()

	transport.MaxIdleConns = defaultMaxIdleConns
	if c.MaxIdleConns > 0 {
		transport.MaxIdleConns = c.MaxIdleConns
	}

	if c.MaxIdleConnsPerHost > 0 {
		transport.MaxIdleConnsPerHost = c.MaxIdleConnsPerHost
	}

	transport.IdleConnTimeout = defaultIdleConnTimeout
	if c.IdleConnTimeout > 0 {
		transport.IdleConnTimeout = c.IdleConnTimeout
	}

	httpSvc.Client.Transport = transport

	return svc
}
