package devserver

import (
	"math"
	"net/http"
	"sort"
	"time"

	"eunoia.dev/pkg/eunoia/journal"
)

// since returns u's entries dated within the last days days.
func (s *Server) since(u *user, days int) []journal.Entry {
	cutoff := s.now().AddDate(0, 0, -days)

	var out []journal.Entry

	for _, e := range s.owned(u) {
		if !e.Date.Before(cutoff) {
			out = append(out, e)
		}
	}

	return out
}

type aggregate struct {
	sentiment, stress, words float64
	emotions, groups         map[string]int
	count                    int
}

func newAggregate(entries []journal.Entry) aggregate {
	a := aggregate{emotions: map[string]int{}, groups: map[string]int{}}

	for _, e := range entries {
		a.sentiment += deref(e.SentimentScore)
		a.stress += deref(e.StressLevel)

		if e.WordCount != nil {
			a.words += float64(*e.WordCount)
		}

		a.emotions[e.Emotion]++
		a.groups[e.EmotionGroup]++
		a.count++
	}

	return a
}

func (a aggregate) avg(total float64) float64 {
	if a.count == 0 {
		return 0
	}

	return round(total / float64(a.count))
}

// mostCommon picks the highest count, breaking ties alphabetically.
func mostCommon(counts map[string]int, fallback string) string {
	best, bestN := fallback, 0

	for k, n := range counts {
		if n > bestN || (n == bestN && k < best) {
			best, bestN = k, n
		}
	}

	return best
}

func (s *Server) sentimentTrends(w http.ResponseWriter, r *http.Request) {
	days, ok := intParam(w, r, "days", journal.DefaultTrendDays, 1, journal.MaxTrendDays)
	if !ok {
		return
	}

	entries := s.since(currentUser(r), days)

	byDay := map[string][]journal.Entry{}
	for _, e := range entries {
		byDay[dayOf(e.Date.Time)] = append(byDay[dayOf(e.Date.Time)], e)
	}

	points := make([]journal.TrendPoint, 0, len(byDay))

	for day, group := range byDay {
		a := newAggregate(group)
		points = append(points, journal.TrendPoint{
			Date:                   day,
			AvgSentiment:           a.avg(a.sentiment),
			AvgStress:              a.avg(a.stress),
			AvgWordCount:           a.avg(a.words),
			MostCommonEmotion:      mostCommon(a.emotions, "neutral"),
			MostCommonEmotionGroup: mostCommon(a.groups, "neutral"),
			EntryCount:             a.count,
		})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })

	all := newAggregate(entries)

	writeJSON(w, http.StatusOK, journal.Trends{
		Trends:       points,
		TotalEntries: len(entries),
		DaysAnalyzed: days,
		Summary: journal.TrendSummary{
			AvgSentiment:      all.avg(all.sentiment),
			AvgStress:         all.avg(all.stress),
			MostCommonEmotion: mostCommon(all.emotions, "neutral"),
			TotalEntries:      len(entries),
		},
	})
}

func (s *Server) insights(w http.ResponseWriter, r *http.Request) {
	days, ok := intParam(w, r, "days", journal.DefaultInsightDays, 1, journal.MaxInsightDays)
	if !ok {
		return
	}

	entries := s.since(currentUser(r), days)
	if len(entries) == 0 {
		writeJSON(w, http.StatusOK, journal.Insights{
			Insights:        []string{"Start journaling to get personalized insights!"},
			Suggestions:     []string{"Try writing about your day, feelings, or experiences."},
			DataAvailable:   false,
			Patterns:        map[string]string{},
			Recommendations: []string{"Write a few entries this week to unlock your first insights."},
		})

		return
	}

	a := newAggregate(entries)
	stats := &journal.InsightStatistics{
		AvgSentiment:           a.avg(a.sentiment),
		AvgStress:              a.avg(a.stress),
		AvgWordCount:           a.avg(a.words),
		MostCommonEmotion:      mostCommon(a.emotions, "neutral"),
		MostCommonEmotionGroup: mostCommon(a.groups, "neutral"),
		EntryCount:             a.count,
		DaysAnalyzed:           days,
	}

	writeJSON(w, http.StatusOK, describe(stats))
}

// describe turns averages into readable patterns and advice.
func describe(st *journal.InsightStatistics) journal.Insights {
	out := journal.Insights{DataAvailable: true, Statistics: st, Patterns: map[string]string{}}

	switch {
	case st.AvgSentiment >= 6.5:
		out.Patterns["sentiment_trend"] = "positive"
		out.Insights = append(out.Insights, "Your entries have been mostly positive lately.")
	case st.AvgSentiment <= 3.5:
		out.Patterns["sentiment_trend"] = "negative"
		out.Insights = append(out.Insights, "Your recent entries lean negative.")
		out.Suggestions = append(out.Suggestions, "Consider writing about one good thing that happened each day.")
	default:
		out.Patterns["sentiment_trend"] = "neutral"
		out.Insights = append(out.Insights, "Your mood has been fairly balanced.")
	}

	switch {
	case st.AvgStress >= 7:
		out.Patterns["stress_level"] = "high"
		out.Recommendations = append(out.Recommendations, "Short breaks and breathing exercises can help with high stress.")
	case st.AvgStress >= 4:
		out.Patterns["stress_level"] = "moderate"
		out.Recommendations = append(out.Recommendations, "Keep an eye on what raises your stress during the week.")
	default:
		out.Patterns["stress_level"] = "low"
	}

	out.Patterns["emotion_dominance"] = st.MostCommonEmotionGroup

	switch {
	case st.AvgWordCount > 200:
		out.Patterns["writing_style"] = "detailed"
	case st.AvgWordCount > 50:
		out.Patterns["writing_style"] = "moderate"
	default:
		out.Patterns["writing_style"] = "brief"
		out.Suggestions = append(out.Suggestions, "Writing a little more can surface patterns more clearly.")
	}

	ratio := float64(st.EntryCount) / float64(st.DaysAnalyzed)

	switch {
	case ratio >= 0.8:
		out.Patterns["consistency"] = "excellent"
	case ratio >= 0.5:
		out.Patterns["consistency"] = "good"
	case ratio >= 0.2:
		out.Patterns["consistency"] = "building"
	default:
		out.Patterns["consistency"] = "irregular"
		out.Recommendations = append(out.Recommendations, "A regular journaling time makes the habit easier to keep.")
	}

	if out.Suggestions == nil {
		out.Suggestions = []string{"Keep writing regularly to track how you feel over time."}
	}

	if out.Recommendations == nil {
		out.Recommendations = []string{}
	}

	return out
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	entries := s.owned(currentUser(r))

	st := journal.Stats{
		TotalEntries:             len(entries),
		EmotionDistribution:      map[string]int{},
		EmotionGroupDistribution: map[string]int{},
	}

	if len(entries) == 0 {
		writeJSON(w, http.StatusOK, st)
		return
	}

	first, last := entries[0].Date.Time, entries[0].Date.Time
	sentiment := scoreStats{min: math.Inf(1), max: math.Inf(-1)}
	stress := scoreStats{min: math.Inf(1), max: math.Inf(-1)}
	minWords, maxWords, totalWords := math.MaxInt, 0, 0

	for _, e := range entries {
		if e.Date.Before(first) {
			first = e.Date.Time
		}

		if e.Date.After(last) {
			last = e.Date.Time
		}

		st.EmotionDistribution[e.Emotion]++
		st.EmotionGroupDistribution[e.EmotionGroup]++

		sentiment.add(e.SentimentScore)
		stress.add(e.StressLevel)

		if e.WordCount != nil {
			minWords = min(minWords, *e.WordCount)
			maxWords = max(maxWords, *e.WordCount)
			totalWords += *e.WordCount
		}
	}

	if minWords == math.MaxInt {
		minWords = 0
	}

	st.DateRange = &journal.DateRange{
		FirstEntry: first.UTC().Format(time.RFC3339),
		LastEntry:  last.UTC().Format(time.RFC3339),
		SpanDays:   int(last.Sub(first).Hours() / 24),
	}
	st.SentimentStats = sentiment.result()
	st.StressStats = stress.result()
	st.WritingStats = journal.WritingStats{
		AvgWordCount: round(float64(totalWords) / float64(len(entries))),
		MinWordCount: minWords,
		MaxWordCount: maxWords,
		TotalWords:   totalWords,
	}

	writeJSON(w, http.StatusOK, st)
}

type scoreStats struct {
	sum, min, max float64
	count         int
}

func (s *scoreStats) add(v *float64) {
	if v == nil {
		return
	}

	s.sum += *v
	s.min = math.Min(s.min, *v)
	s.max = math.Max(s.max, *v)
	s.count++
}

func (s *scoreStats) result() journal.ScoreStats {
	if s.count == 0 {
		return journal.ScoreStats{}
	}

	return journal.ScoreStats{Avg: round(s.sum / float64(s.count)), Min: s.min, Max: s.max, Count: s.count}
}
