// Command eunoia-devserver runs the in-memory journal backend on a local port.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"eunoia.dev/internal/devserver"
	"eunoia.dev/pkg/eunoia/config"
	"eunoia.dev/pkg/eunoia/logging"
	"eunoia.dev/pkg/eunoia/metrics"
	"eunoia.dev/pkg/eunoia/version"
)

const shutdownTimeout = 5 * time.Second

var errNoSecret = errors.New("JWT_SECRET is required")

func main() {
	var configDir string

	cmd := &cobra.Command{
		Use:          "eunoia-devserver",
		Short:        "Serve an in-memory Eunoia journal API",
		Version:      version.Client,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := logging.NewLogger(logging.GetLevelFromString(os.Getenv("LOG_LEVEL")))

			srv, err := newServer(config.NewEnvFile(configDir, logger), logger)
			if err != nil {
				return err
			}

			return serve(cmd.Context(), srv, logger)
		},
	}

	cmd.Flags().StringVar(&configDir, "config", "./configs", "folder holding .env files")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}

// newServer reads DEVSERVER_ADDR, JWT_SECRET, SUPABASE_ANON_KEY and TOKEN_TTL.
func newServer(conf config.Config, logger logging.Logger) (*http.Server, error) {
	secret := conf.Get("JWT_SECRET")
	if secret == "" {
		return nil, errNoSecret
	}

	ttl, err := time.ParseDuration(conf.GetOrDefault("TOKEN_TTL", "1h"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL must be a positive duration, got %q", conf.Get("TOKEN_TTL"))
	}

	exporter := metrics.NewExporter("eunoia-devserver", logger)

	backend := devserver.New(devserver.Config{Secret: secret, AnonKey: conf.Get("SUPABASE_ANON_KEY"), TokenTTL: ttl},
		devserver.WithLogger(logger), devserver.WithMetrics(exporter, exporter.Handler()))

	return &http.Server{
		Addr:              conf.GetOrDefault("DEVSERVER_ADDR", "localhost:8000"),
		Handler:           backend.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}, nil
}

func serve(ctx context.Context, srv *http.Server, logger logging.Logger) error {
	errCh := make(chan error, 1)

	go func() {
		logger.Infof("starting journal API at %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		logger.Errorf("error while listening to http server: %v", err)
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down journal API")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
