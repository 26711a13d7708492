package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"eunoia.dev/pkg/eunoia/journal"
)

func (app *cli) trendsCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Daily sentiment and stress averages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.run(cmd, func(ctx context.Context) error {
				t, err := app.c.Journal.SentimentTrends(ctx, days)
				if err != nil {
					return err
				}

				return app.print(t, func(w io.Writer) { printTrends(w, t) })
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", journal.DefaultTrendDays, "days to look back (max 365)")

	return cmd
}

func (app *cli) insightsCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Patterns and suggestions drawn from recent entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.run(cmd, func(ctx context.Context) error {
				in, err := app.c.Journal.Insights(ctx, days)
				if err != nil {
					return err
				}

				return app.print(in, func(w io.Writer) { printInsights(w, in) })
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", journal.DefaultInsightDays, "days to look back (max 30)")

	return cmd
}

func (app *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Totals over every entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.run(cmd, func(ctx context.Context) error {
				st, err := app.c.Journal.Stats(ctx)
				if err != nil {
					return err
				}

				return app.print(st, func(w io.Writer) { printStats(w, st) })
			})
		},
	}
}

func (app *cli) profileCmd() *cobra.Command {
	var displayName, fullName string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.run(cmd, func(ctx context.Context) error {
				p, err := app.c.Journal.Profile(ctx)
				if err != nil {
					return err
				}

				return app.print(p, func(w io.Writer) { printProfile(w, p) })
			})
		},
	}

	set := &cobra.Command{
		Use:   "set",
		Short: "Change your display or full name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var update journal.ProfileUpdate

			if cmd.Flags().Changed("display-name") {
				update.DisplayName = &displayName
			}

			if cmd.Flags().Changed("full-name") {
				update.FullName = &fullName
			}

			return app.run(cmd, func(ctx context.Context) error {
				p, err := app.c.Journal.UpdateProfile(ctx, update)
				if err != nil {
					return err
				}

				return app.print(p, func(w io.Writer) { printProfile(w, p) })
			})
		},
	}

	set.Flags().StringVar(&displayName, "display-name", "", "2 to 50 characters")
	set.Flags().StringVar(&fullName, "full-name", "", "full name")

	cmd.AddCommand(set)

	return cmd
}

func (app *cli) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the journal API is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h := app.c.HTTP.HealthCheck(cmd.Context())

			if err := app.print(h, func(w io.Writer) { printHealth(w, h) }); err != nil {
				return app.fail(err)
			}

			if h.Status != "UP" {
				return errServiceDown
			}

			return nil
		},
	}
}
