package service

import (
	"context"
	"fmt"
	"io"
	"time"
)

type Logger interface {
	Log(args ...any)
}

type Metrics interface {
	IncrementCounter(ctx context.Context, name string, labels ...string)
	RecordHistogram(ctx context.Context, name string, value float64, labels ...string)
}

// Log is the line written for every dispatched request.
type Log struct {
	Timestamp     time.Time `json:"timestamp"`
	ResponseTime  int64     `json:"latency"`
	CorrelationID string    `json:"correlationId"`
	ResponseCode  int       `json:"responseCode"`
	HTTPMethod    string    `json:"httpMethod"`
	URI           string    `json:"uri"`
	Attempt       int       `json:"attempt,omitempty"`
}

func (l *Log) PrettyPrint(writer io.Writer) {
	fmt.Fprintf(writer, "\u001B[38;5;8m%s \u001B[38;5;%dm%-6d\u001B[0m %8d\u001B[38;5;8mµs\u001B[0m %s %s",
		l.CorrelationID, colorForStatusCode(l.ResponseCode), l.ResponseCode, l.ResponseTime, l.HTTPMethod, l.URI)

	if l.Attempt > 0 {
		fmt.Fprintf(writer, " \u001B[38;5;8m(retry %d)\u001B[0m", l.Attempt)
	}

	fmt.Fprint(writer, " \n")
}

// ErrorLog is written instead of Log when no response was received.
type ErrorLog struct {
	*Log
	ErrorMessage string `json:"errorMessage"`
}

func (l *ErrorLog) PrettyPrint(writer io.Writer) {
	l.Log.PrettyPrint(writer)
}

func colorForStatusCode(status int) int {
	const (
		blue   = 34
		red    = 202
		yellow = 220
	)

	switch {
	case status >= 200 && status < 300:
		return blue
	case status >= 400 && status < 500:
		return yellow
	default:
		return red
	}
}
