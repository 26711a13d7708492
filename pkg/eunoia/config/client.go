package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAPIURL           = "http://localhost:8000"
	defaultRequestTimeout   = 10 * time.Second
	defaultRefreshThreshold = 5 * time.Minute
	defaultPollInterval     = 60 * time.Second
	defaultRedisPort        = 6379
)

var (
	errInvalidValue  = errors.New("invalid config value")
	errMissingValue  = errors.New("missing config value")
	errUnknownStore  = errors.New("unknown session store")
	errUnknownSource = errors.New("no session refresh backend configured")
)

// Session store kinds accepted by SESSION_STORE.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Client holds the typed settings of the journal client.
type Client struct {
	APIURL           string
	RequestTimeout   time.Duration
	RefreshThreshold time.Duration
	PollInterval     time.Duration

	SupabaseURL     string
	SupabaseAnonKey string

	OAuthTokenURL     string
	OAuthClientID     string
	OAuthClientSecret string

	SessionStore   string
	SessionFile    string
	SessionProfile string
	Redis          Redis

	// RateLimit is the outbound request rate per second; zero disables the limiter.
	RateLimit float64
	RateBurst int

	LogLevel       string
	MetricsEnabled bool
}

type Redis struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port.
func (r Redis) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LoadClient reads the client settings from c, applying defaults for unset keys.
func LoadClient(c Config) (*Client, error) {
	var err error

	cl := &Client{
		APIURL:            strings.TrimRight(c.GetOrDefault("EUNOIA_API_URL", defaultAPIURL), "/"),
		SupabaseURL:       strings.TrimRight(c.Get("SUPABASE_URL"), "/"),
		SupabaseAnonKey:   c.Get("SUPABASE_ANON_KEY"),
		OAuthTokenURL:     c.Get("OAUTH_TOKEN_URL"),
		OAuthClientID:     c.Get("OAUTH_CLIENT_ID"),
		OAuthClientSecret: c.Get("OAUTH_CLIENT_SECRET"),
		SessionStore:      strings.ToLower(c.GetOrDefault("SESSION_STORE", StoreFile)),
		SessionFile:       c.Get("SESSION_FILE"),
		SessionProfile:    c.GetOrDefault("SESSION_PROFILE", "default"),
		LogLevel:          c.GetOrDefault("LOG_LEVEL", "INFO"),
		Redis: Redis{
			Host:     c.GetOrDefault("REDIS_HOST", "localhost"),
			Password: c.Get("REDIS_PASSWORD"),
		},
	}

	if cl.RequestTimeout, err = duration(c, "EUNOIA_REQUEST_TIMEOUT", defaultRequestTimeout); err != nil {
		return nil, err
	}

	if cl.RefreshThreshold, err = duration(c, "EUNOIA_REFRESH_THRESHOLD", defaultRefreshThreshold); err != nil {
		return nil, err
	}

	if cl.PollInterval, err = duration(c, "EUNOIA_SESSION_POLL_INTERVAL", defaultPollInterval); err != nil {
		return nil, err
	}

	if cl.Redis.Port, err = integer(c, "REDIS_PORT", defaultRedisPort); err != nil {
		return nil, err
	}

	if cl.Redis.DB, err = integer(c, "REDIS_DB", 0); err != nil {
		return nil, err
	}

	if cl.RateLimit, err = float(c, "EUNOIA_RATE_LIMIT", 0); err != nil {
		return nil, err
	}

	if cl.RateBurst, err = integer(c, "EUNOIA_RATE_BURST", 1); err != nil {
		return nil, err
	}

	if cl.MetricsEnabled, err = boolean(c, "METRICS_ENABLED", false); err != nil {
		return nil, err
	}

	if err = cl.validate(); err != nil {
		return nil, err
	}

	return cl, nil
}

func (cl *Client) validate() error {
	switch cl.SessionStore {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		return fmt.Errorf("%w: SESSION_STORE=%q", errUnknownStore, cl.SessionStore)
	}

	if cl.SupabaseURL != "" && cl.SupabaseAnonKey == "" {
		return fmt.Errorf("%w: SUPABASE_ANON_KEY is required with SUPABASE_URL", errMissingValue)
	}

	if cl.OAuthTokenURL != "" && cl.OAuthClientID == "" {
		return fmt.Errorf("%w: OAUTH_CLIENT_ID is required with OAUTH_TOKEN_URL", errMissingValue)
	}

	return nil
}

// RefreshBackend names the configured token refresh backend: "supabase", "oauth2", or an error when neither is set.
func (cl *Client) RefreshBackend() (string, error) {
	switch {
	case cl.SupabaseURL != "":
		return "supabase", nil
	case cl.OAuthTokenURL != "":
		return "oauth2", nil
	default:
		return "", errUnknownSource
	}
}

func duration(c Config, key string, def time.Duration) (time.Duration, error) {
	raw := c.Get(key)
	if raw == "" {
		return def, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %s=%q", errInvalidValue, key, raw)
	}

	return d, nil
}

func integer(c Config, key string, def int) (int, error) {
	raw := c.Get(key)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s=%q", errInvalidValue, key, raw)
	}

	return v, nil
}

func float(c Config, key string, def float64) (float64, error) {
	raw := c.Get(key)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s=%q", errInvalidValue, key, raw)
	}

	return v, nil
}

func boolean(c Config, key string, def bool) (bool, error) {
	raw := c.Get(key)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", errInvalidValue, key, raw)
	}

	return v, nil
}
