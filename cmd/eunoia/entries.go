package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"eunoia.dev/pkg/eunoia/journal"
)

func (app *cli) entriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entries",
		Aliases: []string{"entry"},
		Short:   "Create, list, show, edit and delete journal entries",
	}

	cmd.AddCommand(app.listEntriesCmd(), app.createEntryCmd(), app.getEntryCmd(), app.updateEntryCmd(),
		app.deleteEntryCmd())

	return cmd
}

func (app *cli) listEntriesCmd() *cobra.Command {
	var opts journal.ListOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.run(cmd, func(ctx context.Context) error {
				page, err := app.c.Journal.ListEntries(ctx, opts)
				if err != nil {
					return err
				}

				return app.print(page, func(w io.Writer) { printPage(w, page) })
			})
		},
	}

	cmd.Flags().IntVar(&opts.Page, "page", 0, "page number, starting at 1")
	cmd.Flags().IntVar(&opts.PerPage, "per-page", 0, "entries per page (max 100)")
	cmd.Flags().StringVar(&opts.Search, "search", "", "only entries containing this text")
	cmd.Flags().StringVar(&opts.Emotion, "emotion", "", "only entries with this emotion")
	cmd.Flags().StringVar(&opts.EmotionGroup, "emotion-group", "", "positive, negative or neutral")
	cmd.Flags().StringVar(&opts.SortBy, "sort-by", "", "created_at, date, sentiment_score or stress_level")
	cmd.Flags().StringVar(&opts.SortOrder, "sort-order", "", "asc or desc")

	return cmd
}

func (app *cli) createEntryCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "create [content]",
		Short: "Write a new entry; without arguments the content is read from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			content := strings.Join(args, " ")

			if len(args) == 0 {
				b, err := io.ReadAll(app.in)
				if err != nil {
					return app.fail(err)
				}

				content = string(b)
			}

			entry := journal.NewEntry{Content: content}

			if date != "" {
				d, err := parseDate(date)
				if err != nil {
					return app.fail(err)
				}

				entry.Date = &d
			}

			return app.run(cmd, func(ctx context.Context) error {
				e, err := app.c.Journal.CreateEntry(ctx, entry)
				if err != nil {
					return err
				}

				return app.print(e, func(w io.Writer) { printEntry(w, e) })
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "entry date, YYYY-MM-DD or RFC 3339")

	return cmd
}

func (app *cli) getEntryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one entry with its analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := entryID(args[0])
			if err != nil {
				return app.fail(err)
			}

			return app.run(cmd, func(ctx context.Context) error {
				e, err := app.c.Journal.GetEntry(ctx, id)
				if err != nil {
					return err
				}

				return app.print(e, func(w io.Writer) { printEntry(w, e) })
			})
		},
	}
}

func (app *cli) updateEntryCmd() *cobra.Command {
	var content, date string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the content or date of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := entryID(args[0])
			if err != nil {
				return app.fail(err)
			}

			var update journal.EntryUpdate

			if cmd.Flags().Changed("content") {
				update.Content = &content
			}

			if date != "" {
				d, err := parseDate(date)
				if err != nil {
					return app.fail(err)
				}

				update.Date = &d
			}

			return app.run(cmd, func(ctx context.Context) error {
				e, err := app.c.Journal.UpdateEntry(ctx, id, update)
				if err != nil {
					return err
				}

				return app.print(e, func(w io.Writer) { printEntry(w, e) })
			})
		},
	}

	cmd.Flags().StringVar(&content, "content", "", "new content")
	cmd.Flags().StringVar(&date, "date", "", "new date, YYYY-MM-DD or RFC 3339")

	return cmd
}

func (app *cli) deleteEntryCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an entry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := entryID(args[0])
			if err != nil {
				return app.fail(err)
			}

			return app.run(cmd, func(ctx context.Context) error {
				if err := app.c.Journal.DeleteEntry(ctx, id); err != nil {
					return err
				}

				fmt.Fprintf(app.out, "Deleted entry %d\n", id)

				return nil
			})
		},
	}
}

func entryID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("entry id must be a number, got %q", raw)
	}

	return id, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("date %q is neither YYYY-MM-DD nor RFC 3339", raw)
}
