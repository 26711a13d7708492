// Command eunoia is a terminal client for the Eunoia journal.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"eunoia.dev/pkg/eunoia/config"
	"eunoia.dev/pkg/eunoia/container"
	"eunoia.dev/pkg/eunoia/logging"
	"eunoia.dev/pkg/eunoia/serrors"
	"eunoia.dev/pkg/eunoia/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}

type cli struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configDir string
	jsonOut   bool
	verbose   bool

	c *container.Container
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	app := &cli{in: in, out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "eunoia",
		Short: "Write and review your Eunoia journal from the terminal",
		Long: `eunoia talks to the Eunoia journal API on behalf of the signed-in user.

Settings are read from <config>/.env, <config>/.local.env and the environment.

Examples:
  # Sign in and write an entry
  eunoia login --email me@example.com
  eunoia entries create "Finished the draft, feeling proud"

  # Review the last two weeks
  eunoia trends --days 14`,
		Version:            version.Client,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  app.setup,
		PersistentPostRunE: app.teardown,
	}

	root.PersistentFlags().StringVar(&app.configDir, "config", "./configs", "folder holding .env files")
	root.PersistentFlags().BoolVar(&app.jsonOut, "json", false, "print responses as JSON")
	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "print the full error record on failure")

	root.AddCommand(
		app.loginCmd(),
		app.logoutCmd(),
		app.sessionCmd(),
		app.entriesCmd(),
		app.trendsCmd(),
		app.insightsCmd(),
		app.statsCmd(),
		app.profileCmd(),
		app.healthCmd(),
	)

	return root
}

func (app *cli) setup(*cobra.Command, []string) error {
	level := logging.WARN
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		level = logging.GetLevelFromString(raw)
	}

	logger := logging.NewLogger(level)

	c, err := container.NewContainer(config.NewEnvFile(app.configDir, logger), logger)
	if err != nil {
		return app.fail(err)
	}

	app.c = c

	return nil
}

func (app *cli) teardown(cmd *cobra.Command, _ []string) error {
	if app.c == nil {
		return nil
	}

	return app.c.Close(cmd.Context())
}

// run executes op through the error handler and reports a failure on errOut.
func (app *cli) run(cmd *cobra.Command, op func(ctx context.Context) error) error {
	err := app.c.Handler.HandleAsync(cmd.Context(), op)
	if err != nil {
		return app.fail(err)
	}

	return nil
}

func (app *cli) fail(err error) error {
	var rec *serrors.Record
	if !errors.As(err, &rec) {
		fmt.Fprintf(app.errOut, "eunoia: %v\n", err)
		return err
	}

	fmt.Fprintf(app.errOut, "eunoia: %s\n", rec.UserMessage())

	if app.verbose {
		rec.PrettyPrint(app.errOut)
	}

	return err
}
