package journal

import (
	"encoding/json"
	"fmt"
	"time"
)

// Time decodes both RFC 3339 timestamps and the zone-less ISO timestamps the backend emits for naive datetimes.
// Zone-less values are read as UTC.
type Time struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func (t *Time) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for _, layout := range timeLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			t.Time = parsed
			return nil
		}
	}

	return fmt.Errorf("journal: cannot parse time %q", raw)
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}

	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// EmotionScore is one detected emotion. On the wire it is a two-element array: ["joy", 0.91].
type EmotionScore struct {
	Emotion    string
	Confidence float64
}

func (e EmotionScore) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.Emotion, e.Confidence})
}

func (e *EmotionScore) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}

	if len(pair) != 2 {
		return fmt.Errorf("journal: emotion score needs 2 elements, got %d", len(pair))
	}

	if err := json.Unmarshal(pair[0], &e.Emotion); err != nil {
		return err
	}

	return json.Unmarshal(pair[1], &e.Confidence)
}

// Entry is a journal entry with the analysis the backend attached to it. Analysis fields are nil until computed.
type Entry struct {
	ID                int            `json:"id"`
	Date              Time           `json:"date"`
	Content           string         `json:"content"`
	SentimentScore    *float64       `json:"sentiment_score"`
	Emotion           string         `json:"emotion,omitempty"`
	EmotionConfidence *float64       `json:"emotion_confidence"`
	EmotionsDetected  []EmotionScore `json:"emotions_detected"`
	EmotionGroup      string         `json:"emotion_group,omitempty"`
	StressLevel       *float64       `json:"stress_level"`
	WordCount         *int           `json:"word_count"`
	CreatedAt         Time           `json:"created_at"`
	UpdatedAt         Time           `json:"updated_at"`
}

type NewEntry struct {
	Content string     `json:"content"`
	Date    *time.Time `json:"date,omitempty"`
}

// EntryUpdate changes only the fields that are set.
type EntryUpdate struct {
	Content *string    `json:"content,omitempty"`
	Date    *time.Time `json:"date,omitempty"`
}

// Page is one page of entries.
type Page struct {
	Entries    []Entry `json:"entries"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
	TotalPages int     `json:"total_pages"`
	HasNext    bool    `json:"has_next"`
	HasPrev    bool    `json:"has_prev"`
}

type TrendPoint struct {
	Date                   string  `json:"date"`
	AvgSentiment           float64 `json:"avg_sentiment"`
	AvgStress              float64 `json:"avg_stress"`
	AvgWordCount           float64 `json:"avg_word_count"`
	MostCommonEmotion      string  `json:"most_common_emotion"`
	MostCommonEmotionGroup string  `json:"most_common_emotion_group"`
	EntryCount             int     `json:"entry_count"`
}

type TrendSummary struct {
	AvgSentiment      float64 `json:"avg_sentiment"`
	AvgStress         float64 `json:"avg_stress"`
	MostCommonEmotion string  `json:"most_common_emotion"`
	TotalEntries      int     `json:"total_entries"`
}

// Trends is the per-day sentiment series for the last DaysAnalyzed days.
type Trends struct {
	Trends       []TrendPoint `json:"trends"`
	TotalEntries int          `json:"total_entries"`
	DaysAnalyzed int          `json:"days_analyzed"`
	Summary      TrendSummary `json:"summary"`
}

type InsightStatistics struct {
	AvgSentiment           float64 `json:"avg_sentiment"`
	AvgStress              float64 `json:"avg_stress"`
	AvgWordCount           float64 `json:"avg_word_count"`
	MostCommonEmotion      string  `json:"most_common_emotion"`
	MostCommonEmotionGroup string  `json:"most_common_emotion_group"`
	EntryCount             int     `json:"entry_count"`
	DaysAnalyzed           int     `json:"days_analyzed"`
}

type Insights struct {
	Insights        []string           `json:"insights"`
	Suggestions     []string           `json:"suggestions"`
	DataAvailable   bool               `json:"data_available"`
	Patterns        map[string]string  `json:"patterns"`
	Recommendations []string           `json:"recommendations"`
	Statistics      *InsightStatistics `json:"statistics,omitempty"`
}

type DateRange struct {
	FirstEntry string `json:"first_entry"`
	LastEntry  string `json:"last_entry"`
	SpanDays   int    `json:"span_days"`
}

type ScoreStats struct {
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

type WritingStats struct {
	AvgWordCount float64 `json:"avg_word_count"`
	MinWordCount int     `json:"min_word_count"`
	MaxWordCount int     `json:"max_word_count"`
	TotalWords   int     `json:"total_words"`
}

// Stats summarizes every entry of the user.
type Stats struct {
	TotalEntries             int            `json:"total_entries"`
	DateRange                *DateRange     `json:"date_range"`
	EmotionDistribution      map[string]int `json:"emotion_distribution"`
	EmotionGroupDistribution map[string]int `json:"emotion_group_distribution,omitempty"`
	SentimentStats           ScoreStats     `json:"sentiment_stats"`
	StressStats              ScoreStats     `json:"stress_stats"`
	WritingStats             WritingStats   `json:"writing_stats"`
}

type Profile struct {
	ID          int    `json:"id"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role"`
	IsActive    string `json:"is_active"`
	CreatedAt   Time   `json:"created_at"`
	UpdatedAt   Time   `json:"updated_at"`
	LastLogin   Time   `json:"last_login"`
}

// ProfileUpdate changes only the fields that are set.
type ProfileUpdate struct {
	FullName    *string `json:"full_name,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	Role        *string `json:"role,omitempty"`
	IsActive    *string `json:"is_active,omitempty"`
}

type Health struct {
	Status          string `json:"status"`
	Timestamp       string `json:"timestamp"`
	Version         string `json:"version"`
	MLModelsLoading bool   `json:"ml_models_loading"`
}
