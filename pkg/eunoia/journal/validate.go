package journal

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"eunoia.dev/pkg/eunoia/serrors"
)

const (
	MaxContentLength = 10000
	MaxPerPage       = 100
	MaxTrendDays     = 365
	MaxInsightDays   = 30

	DefaultPerPage     = 10
	DefaultTrendDays   = 30
	DefaultInsightDays = 7
)

var (
	sortFields = map[string]bool{"created_at": true, "date": true, "sentiment_score": true, "stress_level": true}
	sortOrders = map[string]bool{"asc": true, "desc": true}
)

// invalid describes a request rejected before it was sent.
type invalid struct {
	code    serrors.Code
	message string
	field   string
}

func checkContent(content string) *invalid {
	if strings.TrimSpace(content) == "" {
		return &invalid{serrors.MissingField, "Content cannot be empty", "content"}
	}

	if n := utf8.RuneCountInString(content); n > MaxContentLength {
		return &invalid{serrors.Validation,
			fmt.Sprintf("Content is %d characters, the limit is %d", n, MaxContentLength), "content"}
	}

	return nil
}

func checkID(id int) *invalid {
	if id < 1 {
		return &invalid{serrors.InvalidFormat, fmt.Sprintf("Entry id must be positive, got %d", id), "id"}
	}

	return nil
}

func checkRange(field string, v, lo, hi int) *invalid {
	if v < lo || v > hi {
		return &invalid{serrors.Validation, fmt.Sprintf("%s must be between %d and %d, got %d", field, lo, hi, v), field}
	}

	return nil
}

func (o ListOptions) check() *invalid {
	if o.Page < 1 {
		return &invalid{serrors.Validation, fmt.Sprintf("page must be at least 1, got %d", o.Page), "page"}
	}

	if bad := checkRange("per_page", o.PerPage, 1, MaxPerPage); bad != nil {
		return bad
	}

	if o.SortBy != "" && !sortFields[o.SortBy] {
		return &invalid{serrors.InvalidFormat, fmt.Sprintf("cannot sort by %q", o.SortBy), "sort_by"}
	}

	if o.SortOrder != "" && !sortOrders[o.SortOrder] {
		return &invalid{serrors.InvalidFormat, fmt.Sprintf("sort order must be asc or desc, got %q", o.SortOrder),
			"sort_order"}
	}

	if o.EmotionGroup != "" && o.EmotionGroup != "positive" && o.EmotionGroup != "negative" &&
		o.EmotionGroup != "neutral" {
		return &invalid{serrors.InvalidFormat, fmt.Sprintf("unknown emotion group %q", o.EmotionGroup), "emotion_group"}
	}

	return nil
}
