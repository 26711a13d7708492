package container

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// QueryLog is logged at DEBUG for every Redis command the session store runs.
type QueryLog struct {
	Query    string `json:"query"`
	Duration int64  `json:"duration"`
	Args     []any  `json:"args,omitempty"`
}

func (ql *QueryLog) PrettyPrint(writer io.Writer) {
	fmt.Fprintf(writer, "\u001B[38;5;8m%-32s \u001B[38;5;24m%s\u001B[0m %8d\u001B[38;5;8mµs\u001B[0m %v\n",
		"REDIS", ql.Query, ql.Duration, ql.Args)
}

// redactArgs drops the value of SET, which holds the serialized session.
func redactArgs(query string, args []any) []any {
	if query == "set" && len(args) > 2 {
		return append(append([]any{}, args[:2]...), "<redacted>")
	}

	return args
}

type queryLogger struct {
	logger interface{ Debug(args ...any) }
}

func (q *queryLogger) log(start time.Time, query string, args []any) {
	q.logger.Debug(&QueryLog{
		Query:    query,
		Duration: time.Since(start).Microseconds(),
		Args:     redactArgs(query, args),
	})
}

func (*queryLogger) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (q *queryLogger) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		q.log(start, cmd.Name(), cmd.Args())

		return err
	}
}

func (q *queryLogger) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)

		names := make([]any, 0, len(cmds))
		for _, cmd := range cmds {
			names = append(names, cmd.Name())
		}

		q.log(start, "pipeline", names)

		return err
	}
}
