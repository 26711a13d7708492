package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"eunoia.dev/pkg/eunoia/journal"
	"eunoia.dev/pkg/eunoia/service"
)

const previewLength = 60

var errServiceDown = errors.New("journal API is down")

// print writes v as indented JSON with --json, and through human otherwise.
func (app *cli) print(v any, human func(w io.Writer)) error {
	if !app.jsonOut {
		human(app.out)
		return nil
	}

	enc := json.NewEncoder(app.out)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func printPage(w io.Writer, p *journal.Page) {
	if p.Total == 0 {
		fmt.Fprintln(w, "No entries yet")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tDATE\tEMOTION\tSENTIMENT\tSTRESS\tCONTENT")

	for i := range p.Entries {
		e := &p.Entries[i]
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", e.ID, day(e.Date), e.Emotion, score(e.SentimentScore),
			score(e.StressLevel), preview(e.Content))
	}

	_ = tw.Flush()

	fmt.Fprintf(w, "\npage %d of %d, %d entries\n", p.Page, p.TotalPages, p.Total)
}

func printEntry(w io.Writer, e *journal.Entry) {
	fmt.Fprintf(w, "#%d  %s\n\n%s\n\n", e.ID, day(e.Date), e.Content)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "emotion\t%s (%s)\n", e.Emotion, e.EmotionGroup)
	fmt.Fprintf(tw, "sentiment\t%s / 10\n", score(e.SentimentScore))
	fmt.Fprintf(tw, "stress\t%s / 10\n", score(e.StressLevel))

	if e.WordCount != nil {
		fmt.Fprintf(tw, "words\t%d\n", *e.WordCount)
	}

	_ = tw.Flush()
}

func printTrends(w io.Writer, t *journal.Trends) {
	fmt.Fprintf(w, "%d entries over %d days, average sentiment %.1f, stress %.1f, mostly %s\n\n",
		t.TotalEntries, t.DaysAnalyzed, t.Summary.AvgSentiment, t.Summary.AvgStress, t.Summary.MostCommonEmotion)

	if len(t.Trends) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "DATE\tENTRIES\tSENTIMENT\tSTRESS\tEMOTION")

	for _, p := range t.Trends {
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t%.1f\t%s\n", p.Date, p.EntryCount, p.AvgSentiment, p.AvgStress, p.MostCommonEmotion)
	}

	_ = tw.Flush()
}

func printInsights(w io.Writer, in *journal.Insights) {
	section := func(title string, lines []string) {
		if len(lines) == 0 {
			return
		}

		fmt.Fprintln(w, title)

		for _, l := range lines {
			fmt.Fprintf(w, "  - %s\n", l)
		}
	}

	section("Insights", in.Insights)
	section("Suggestions", in.Suggestions)
	section("Recommendations", in.Recommendations)

	if len(in.Patterns) == 0 {
		return
	}

	keys := make([]string, 0, len(in.Patterns))
	for k := range in.Patterns {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	fmt.Fprintln(w, "Patterns")

	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %s\n", strings.ReplaceAll(k, "_", " "), in.Patterns[k])
	}
}

func printStats(w io.Writer, st *journal.Stats) {
	fmt.Fprintf(w, "%d entries", st.TotalEntries)

	if st.DateRange != nil {
		fmt.Fprintf(w, " over %d days", st.DateRange.SpanDays)
	}

	fmt.Fprintln(w)

	if st.TotalEntries == 0 {
		return
	}

	fmt.Fprintf(w, "sentiment  avg %.1f  min %.1f  max %.1f\n", st.SentimentStats.Avg, st.SentimentStats.Min,
		st.SentimentStats.Max)
	fmt.Fprintf(w, "stress     avg %.1f  min %.1f  max %.1f\n", st.StressStats.Avg, st.StressStats.Min, st.StressStats.Max)
	fmt.Fprintf(w, "words      %d total, %.0f per entry\n", st.WritingStats.TotalWords, st.WritingStats.AvgWordCount)

	emotions := make([]string, 0, len(st.EmotionDistribution))
	for e := range st.EmotionDistribution {
		emotions = append(emotions, e)
	}

	sort.Slice(emotions, func(i, j int) bool {
		a, b := st.EmotionDistribution[emotions[i]], st.EmotionDistribution[emotions[j]]
		if a != b {
			return a > b
		}

		return emotions[i] < emotions[j]
	})

	for _, e := range emotions {
		fmt.Fprintf(w, "  %-10s %d\n", e, st.EmotionDistribution[e])
	}
}

func printProfile(w io.Writer, p *journal.Profile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "email\t%s\n", p.Email)
	fmt.Fprintf(tw, "display name\t%s\n", p.DisplayName)

	if p.FullName != "" {
		fmt.Fprintf(tw, "full name\t%s\n", p.FullName)
	}

	fmt.Fprintf(tw, "role\t%s\n", p.Role)
	fmt.Fprintf(tw, "member since\t%s\n", day(p.CreatedAt))

	_ = tw.Flush()
}

func printHealth(w io.Writer, h *service.Health) {
	fmt.Fprintf(w, "%s", h.Status)

	if host, ok := h.Details["host"]; ok {
		fmt.Fprintf(w, " %v", host)
	}

	if msg, ok := h.Details["error"]; ok {
		fmt.Fprintf(w, ": %v", msg)
	} else if v, ok := h.Details["version"]; ok {
		fmt.Fprintf(w, " (api %v)", v)
	}

	fmt.Fprintln(w)
}

func day(t journal.Time) string {
	if t.IsZero() {
		return "-"
	}

	return t.Local().Format(time.DateOnly)
}

func score(v *float64) string {
	if v == nil {
		return "-"
	}

	return fmt.Sprintf("%.1f", *v)
}

func preview(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(content) <= previewLength {
		return content
	}

	return string([]rune(content)[:previewLength-3]) + "..."
}
