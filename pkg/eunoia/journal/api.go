// Package journal is the typed surface of the journal backend: entries, analytics, profile and health.
// Arguments are checked before anything is sent; a rejected call returns a *serrors.Record like any other failure.
package journal

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"eunoia.dev/pkg/eunoia/serrors"
	"eunoia.dev/pkg/eunoia/service"
)

const requestsTotal = "eunoia_journal_requests_total"

type Metrics interface {
	IncrementCounter(ctx context.Context, name string, labels ...string)
}

// ListOptions filters and orders ListEntries. Zero Page and PerPage mean the first page of DefaultPerPage entries.
type ListOptions struct {
	Page         int
	PerPage      int
	Search       string
	Emotion      string
	EmotionGroup string
	SortBy       string
	SortOrder    string
}

func (o ListOptions) query() url.Values {
	q := url.Values{
		"page":     {strconv.Itoa(o.Page)},
		"per_page": {strconv.Itoa(o.PerPage)},
	}

	set := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}

	set("search", o.Search)
	set("emotion", o.Emotion)
	set("emotion_group", o.EmotionGroup)
	set("sort_by", o.SortBy)
	set("sort_order", o.SortOrder)

	return q
}

type API struct {
	client  *service.Client
	errs    *serrors.Service
	metrics Metrics
}

// New returns the journal API over client. metrics may be nil.
func New(client *service.Client, metrics Metrics) *API {
	return &API{
		client:  client,
		errs:    client.Errors(),
		metrics: metrics,
	}
}

func (a *API) CreateEntry(ctx context.Context, entry NewEntry) (*Entry, error) {
	if bad := checkContent(entry.Content); bad != nil {
		return nil, a.reject(ctx, "create_entry", bad)
	}

	var out Entry

	if err := a.call(ctx, "create_entry", service.Request{Method: http.MethodPost, Path: "entries/"}, entry, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (a *API) ListEntries(ctx context.Context, opts ListOptions) (*Page, error) {
	if opts.Page == 0 {
		opts.Page = 1
	}

	if opts.PerPage == 0 {
		opts.PerPage = DefaultPerPage
	}

	if bad := opts.check(); bad != nil {
		return nil, a.reject(ctx, "list_entries", bad)
	}

	var out Page

	req := service.Request{Method: http.MethodGet, Path: "entries/", Query: opts.query()}
	if err := a.call(ctx, "list_entries", req, nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (a *API) GetEntry(ctx context.Context, id int) (*Entry, error) {
	if bad := checkID(id); bad != nil {
		return nil, a.reject(ctx, "get_entry", bad)
	}

	var out Entry

	if err := a.entryCall(ctx, "get_entry", id, http.MethodGet, nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (a *API) UpdateEntry(ctx context.Context, id int, update EntryUpdate) (*Entry, error) {
	bad := checkID(id)
	if bad == nil && update.Content != nil {
		bad = checkContent(*update.Content)
	}

	if bad == nil && update.Content == nil && update.Date == nil {
		bad = &invalid{serrors.MissingField, "Nothing to update", "content"}
	}

	if bad != nil {
		return nil, a.reject(ctx, "update_entry", bad)
	}

	var out Entry

	if err := a.entryCall(ctx, "update_entry", id, http.MethodPut, update, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (a *API) DeleteEntry(ctx context.Context, id int) error {
	if bad := checkID(id); bad != nil {
		return a.reject(ctx, "delete_entry", bad)
	}

	return a.entryCall(ctx, "delete_entry", id, http.MethodDelete, nil, nil)
}

// SentimentTrends returns the per-day series for the last days days. Zero days means DefaultTrendDays.
func (a *API) SentimentTrends(ctx context.Context, days int) (*Trends, error) {
	if days == 0 {
		days = DefaultTrendDays
	}

	if bad := checkRange("days", days, 1, MaxTrendDays); bad != nil {
		return nil, a.reject(ctx, "sentiment_trends", bad)
	}

	var out Trends

	req := service.Request{Method: http.MethodGet, Path: "analytics/sentiment-trends", Query: daysQuery(days)}
	if err := a.call(ctx, "sentiment_trends", req, nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Insights returns generated insights over the last days days. Zero days means DefaultInsightDays.
func (a *API) Insights(ctx context.Context, days int) (*Insights, error) {
	if days == 0 {
		days = DefaultInsightDays
	}

	if bad := checkRange("days", days, 1, MaxInsightDays); bad != nil {
		return nil, a.reject(ctx, "insights", bad)
	}

	var out Insights

	req := service.Request{Method: http.MethodGet, Path: "analytics/insights", Query: daysQuery(days)}
	if err := a.call(ctx, "insights", req, nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (a *API) Stats(ctx context.Context) (*Stats, error) {
	var out Stats

	if err := a.call(ctx, "stats", service.Request{Method: http.MethodGet, Path: "analytics/stats"}, nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (a *API) Profile(ctx context.Context) (*Profile, error) {
	var out Profile

	if err := a.call(ctx, "get_profile", service.Request{Method: http.MethodGet, Path: "profile"}, nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (a *API) UpdateProfile(ctx context.Context, update ProfileUpdate) (*Profile, error) {
	if update.DisplayName != nil {
		if bad := checkRange("display_name length", len([]rune(*update.DisplayName)), 2, 50); bad != nil {
			bad.field = "display_name"
			return nil, a.reject(ctx, "update_profile", bad)
		}
	}

	var out Profile

	req := service.Request{Method: http.MethodPut, Path: "profile"}
	if err := a.call(ctx, "update_profile", req, update, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Health reports the backend status. It needs no session.
func (a *API) Health(ctx context.Context) (*Health, error) {
	var out Health

	if err := a.call(ctx, "health", service.Request{Method: http.MethodGet, Path: "health"}, nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (a *API) call(ctx context.Context, op string, req service.Request, in, out any) error {
	err := a.client.DoJSON(ctx, req, in, out)

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}

	a.count(ctx, op, outcome)

	return err
}

// entryCall sends a request for a single entry. A 404 means the entry does not exist, so the
// generic not-found record is restated as data-not-found for that entry.
func (a *API) entryCall(ctx context.Context, op string, id int, method string, in, out any) error {
	err := a.call(ctx, op, service.Request{Method: method, Path: entryPath(id)}, in, out)

	var rec *serrors.Record
	if !errors.As(err, &rec) || rec.Code() != serrors.NotFound {
		return err
	}

	c := serrors.NewContext("journal", op)
	c.AdditionalData = map[string]any{"entry_id": id}

	return a.errs.Create(serrors.DataNotFound, "Journal entry not found",
		serrors.WithDetail(rec.Detail()),
		serrors.WithStatus(rec.Status()),
		serrors.WithCause(rec),
		serrors.WithContext(c))
}

func (a *API) reject(ctx context.Context, op string, bad *invalid) *serrors.Record {
	a.count(ctx, op, "invalid")

	c := serrors.NewContext("journal", op)
	c.AdditionalData = map[string]any{"field": bad.field}

	return a.errs.Create(bad.code, bad.message, serrors.WithSeverity(serrors.Low), serrors.WithContext(c))
}

func (a *API) count(ctx context.Context, op, outcome string) {
	if a.metrics != nil {
		a.metrics.IncrementCounter(ctx, requestsTotal, "operation", op, "outcome", outcome)
	}
}

func entryPath(id int) string {
	return "entries/" + strconv.Itoa(id)
}

func daysQuery(days int) url.Values {
	return url.Values{"days": {strconv.Itoa(days)}}
}
