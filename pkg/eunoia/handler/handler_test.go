package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eunoia.dev/pkg/eunoia/logging"
	"eunoia.dev/pkg/eunoia/serrors"
)

func TestHandler_HandleAsync(t *testing.T) {
	errs := serrors.NewService(nil, nil)
	notFound := errs.Create(serrors.NotFound, "Resource not found")

	tests := []struct {
		desc string
		op   Operation
		code serrors.Code
		ok   bool
	}{
		{"success", func(context.Context) error { return nil }, 0, true},
		{"record is kept as is", func(context.Context) error { return notFound }, serrors.NotFound, false},
		{"wrapped record", func(context.Context) error { return errors.Join(errors.New("listing"), notFound) },
			serrors.NotFound, false},
		{"plain error is classified", func(context.Context) error { return errors.New("boom") }, serrors.Unknown, false},
		{"network failure is classified", func(context.Context) error {
			return &serrors.NetworkFailure{Cause: errors.New("connection refused")}
		}, serrors.Network, false},
	}

	for i, tc := range tests {
		h := New(errs, logging.NewMockLogger(logging.DEBUG))

		err := h.HandleAsync(context.Background(), tc.op)

		assert.Falsef(t, h.IsLoading(), "TEST[%d], Failed.\n%s", i, tc.desc)

		if tc.ok {
			require.NoErrorf(t, err, "TEST[%d], Failed.\n%s", i, tc.desc)
			assert.Nilf(t, h.Error(), "TEST[%d], Failed.\n%s", i, tc.desc)

			continue
		}

		var rec *serrors.Record

		require.ErrorAsf(t, err, &rec, "TEST[%d], Failed.\n%s", i, tc.desc)
		assert.Equalf(t, tc.code, rec.Code(), "TEST[%d], Failed.\n%s", i, tc.desc)
		assert.Samef(t, rec, h.Error(), "TEST[%d], Failed.\n%s", i, tc.desc)
	}
}

func TestHandler_LoadingIsVisibleWhileRunning(t *testing.T) {
	h := New(nil, nil)

	var states []State

	h.Subscribe(func(s State) { states = append(states, s) })
	h.Subscribe(nil)

	err := h.HandleAsync(context.Background(), func(context.Context) error {
		assert.True(t, h.IsLoading())
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []State{{Loading: true}, {}}, states)
}

func TestHandler_RetryRunsLastOperation(t *testing.T) {
	h := New(nil, nil)

	require.ErrorIs(t, h.Retry(context.Background()), ErrNothingToRetry)

	calls := 0

	op := func(context.Context) error {
		calls++

		if calls == 1 {
			return &serrors.NetworkFailure{Cause: errors.New("reset")}
		}

		return nil
	}

	require.Error(t, h.HandleAsync(context.Background(), op))
	require.NotNil(t, h.Error())
	assert.True(t, h.Error().Retryable())

	require.NoError(t, h.Retry(context.Background()))
	assert.Nil(t, h.Error())
	assert.Equal(t, 2, calls)
}

func TestHandler_ClearError(t *testing.T) {
	h := New(nil, nil)

	_ = h.HandleAsync(context.Background(), func(context.Context) error { return errors.New("boom") })
	require.NotNil(t, h.Error())

	h.ClearError()

	assert.Nil(t, h.Error())
	assert.NoError(t, h.HandleAsync(context.Background(), nil))
}

func TestHandler_RecoversPanic(t *testing.T) {
	logger := logging.NewMockLogger(logging.DEBUG)
	h := New(nil, logger)

	err := h.HandleAsync(context.Background(), func(context.Context) error { panic("nil map write") })

	var rec *serrors.Record

	require.ErrorAs(t, err, &rec)
	assert.Equal(t, serrors.Unknown, rec.Code())
	assert.Equal(t, serrors.Critical, rec.Severity())
	assert.Equal(t, "nil map write", rec.Detail())
	assert.False(t, h.IsLoading())
	assert.Len(t, logger.EntriesAt(logging.ERROR), 1)
}
