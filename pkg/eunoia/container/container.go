/*
Package container builds the dependencies shared by every eunoia command from configuration: the logger,
metrics, error service, session manager and its store, the HTTP transport, the API client and the journal API.
*/
package container

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"eunoia.dev/pkg/eunoia/config"
	"eunoia.dev/pkg/eunoia/handler"
	"eunoia.dev/pkg/eunoia/journal"
	"eunoia.dev/pkg/eunoia/logging"
	"eunoia.dev/pkg/eunoia/metrics"
	"eunoia.dev/pkg/eunoia/serrors"
	"eunoia.dev/pkg/eunoia/service"
	"eunoia.dev/pkg/eunoia/session"
)

const (
	appName          = "eunoia"
	redisPingTimeout = 5 * time.Second
)

var errNoAuthenticator = errors.New("no sign-in backend configured; set SUPABASE_URL or OAUTH_TOKEN_URL")

// Container is a collection of the client level concerns shared across commands.
type Container struct {
	logging.Logger

	Config   *config.Client
	Metrics  *metrics.Exporter
	Errors   *serrors.Service
	Sessions *session.Manager
	Poller   *session.Poller
	HTTP     service.HTTP
	Client   *service.Client
	Journal  *journal.API
	Handler  *handler.Handler

	auth  session.Authenticator
	redis *redis.Client
}

// NewContainer reads the client settings from conf. A nil logger gets one at the configured LOG_LEVEL.
func NewContainer(conf config.Config, logger logging.Logger) (*Container, error) {
	cl, err := config.LoadClient(conf)
	if err != nil {
		return nil, misconfigured(serrors.NewService(logger, nil), "load_config", err)
	}

	if logger == nil {
		logger = logging.NewLogger(logging.GetLevelFromString(cl.LogLevel))
	}

	c := &Container{Logger: logger, Config: cl}

	c.Debug("container is being created")

	c.Metrics = metrics.NewExporter(appName, logger)
	metrics.RegisterClient(c.Metrics)

	c.Errors = serrors.NewService(logger, c.Metrics)

	store, err := c.sessionStore()
	if err != nil {
		_ = c.Metrics.Shutdown(context.Background())

		return nil, misconfigured(c.Errors, "session_store", err)
	}

	var refresher session.Refresher

	if c.auth = c.authenticator(); c.auth != nil {
		refresher = c.auth
	}

	c.Sessions = session.NewManager(store, refresher, logger)
	c.Poller = session.NewPoller(c.Sessions, cl.PollInterval, cl.RefreshThreshold, logger, c.Metrics)

	c.HTTP = service.NewHTTPService(cl.APIURL, logger, c.Metrics, c.transportOptions()...)

	c.Client = service.NewClient(c.HTTP, c.Sessions, c.Errors,
		service.WithRefreshThreshold(cl.RefreshThreshold),
		service.WithRequestTimeout(cl.RequestTimeout),
		service.WithLogger(logger),
		service.WithMetrics(c.Metrics))

	c.Client.OnLogout(func(rec *serrors.Record) {
		c.Warnf("signed out after an unrecoverable 401: %s", rec.UserMessage())
	})

	c.Journal = journal.New(c.Client, c.Metrics)
	c.Handler = handler.New(c.Errors, logger)

	return c, nil
}

func misconfigured(errs *serrors.Service, action string, err error) *serrors.Record {
	return errs.Create(serrors.Configuration, "Client settings are invalid",
		serrors.WithDetail(err.Error()),
		serrors.WithSeverity(serrors.Critical),
		serrors.WithCause(err),
		serrors.WithContext(serrors.NewContext("container", action)))
}

// SignIn opens a session with the configured backend and stores it.
func (c *Container) SignIn(ctx context.Context, email, password string) (*session.Session, error) {
	if c.auth == nil {
		return nil, errNoAuthenticator
	}

	s, err := c.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, c.signInFailure(err)
	}

	if err := c.Sessions.SignIn(ctx, s); err != nil {
		return nil, err
	}

	return s, nil
}

// signInFailure records rejected credentials as a failed login. Other auth backend statuses are
// classified like any HTTP failure, and errors without a response as network failures.
func (c *Container) signInFailure(err error) *serrors.Record {
	at := serrors.NewContext("auth", "sign_in")

	var re *session.RefreshError
	if !errors.As(err, &re) {
		return c.Errors.ClassifyHTTPFailure(&serrors.NetworkFailure{Cause: err}, at)
	}

	if re.Status == http.StatusBadRequest || re.Status == http.StatusUnauthorized {
		return c.Errors.Create(serrors.AuthLoginFailed, "Sign in failed",
			serrors.WithDetail(re.Message),
			serrors.WithStatus(re.Status),
			serrors.WithCause(err),
			serrors.WithContext(at))
	}

	body, _ := json.Marshal(map[string]string{"detail": re.Message})

	return c.Errors.ClassifyHTTPFailure(&serrors.HTTPFailure{Status: re.Status, Method: http.MethodPost, Body: body}, at)
}

// Close flushes metrics to the log when enabled and releases the Redis connection.
func (c *Container) Close(ctx context.Context) error {
	var errs []error

	if c.Config.MetricsEnabled {
		errs = append(errs, c.Metrics.Flush(ctx))
	}

	errs = append(errs, c.Metrics.Shutdown(ctx))

	if c.redis != nil {
		errs = append(errs, c.redis.Close())
	}

	return errors.Join(errs...)
}

func (c *Container) authenticator() session.Authenticator {
	switch backend, _ := c.Config.RefreshBackend(); backend {
	case "supabase":
		return session.NewSupabaseRefresher(c.Config.SupabaseURL, c.Config.SupabaseAnonKey, nil)
	case "oauth2":
		return session.NewOAuth2Refresher(c.Config.OAuthTokenURL, c.Config.OAuthClientID, c.Config.OAuthClientSecret, nil)
	default:
		c.Warn("no refresh backend configured, sessions will not be refreshed")
		return nil
	}
}

func (c *Container) sessionStore() (session.Store, error) {
	switch c.Config.SessionStore {
	case config.StoreMemory:
		return session.NewMemoryStore(), nil
	case config.StoreRedis:
		rc, err := c.connectRedis()
		if err != nil {
			return nil, err
		}

		c.redis = rc

		return session.NewRedisStore(rc, c.Config.SessionProfile), nil
	default:
		path := c.Config.SessionFile
		if path == "" {
			path = session.DefaultFilePath()
		}

		return session.NewFileStore(path), nil
	}
}

func (c *Container) connectRedis() (*redis.Client, error) {
	rc := redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Addr(),
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	rc.AddHook(&queryLogger{logger: c.Logger})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()

	if err := rc.Ping(ctx).Err(); err != nil {
		c.Errorf("could not connect to redis at %s: %v", c.Config.Redis.Addr(), err)
		_ = rc.Close()

		return nil, err
	}

	if err := redisotel.InstrumentTracing(rc); err != nil {
		c.Warnf("redis tracing disabled: %v", err)
	}

	c.Logf("connected to redis at %s", c.Config.Redis.Addr())

	return rc, nil
}

func (c *Container) transportOptions() []service.Options {
	opts := []service.Options{
		&service.ConnectionPoolConfig{MaxIdleConnsPerHost: 10},
		&service.HealthConfig{HealthEndpoint: "health"},
		&service.RateLimiterConfig{RequestsPerSecond: c.Config.RateLimit, Burst: c.Config.RateBurst},
	}

	if c.Config.SupabaseAnonKey != "" {
		opts = append(opts, &service.DefaultHeaders{Headers: map[string]string{"apikey": c.Config.SupabaseAnonKey}})
	}

	return opts
}
