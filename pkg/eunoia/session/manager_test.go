package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"eunoia.dev/pkg/eunoia/logging"
)

func TestManager_GetSessionLoadsOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)

	store.EXPECT().Load(gomock.Any()).Return(testSession(), nil).Times(1)

	m := NewManager(store, nil, logging.NewMockLogger(logging.DEBUG))

	for i := 0; i < 3; i++ {
		s, err := m.GetSession(context.Background())

		require.NoErrorf(t, err, "TEST[%d], Failed.\n", i)
		assert.Equalf(t, testSession(), s, "TEST[%d], Failed.\n", i)
	}
}

func TestManager_GetSessionStoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	errDown := errors.New("redis down")

	store.EXPECT().Load(gomock.Any()).Return(nil, errDown)
	store.EXPECT().Load(gomock.Any()).Return(nil, nil)

	m := NewManager(store, nil, logging.NewMockLogger(logging.DEBUG))

	_, err := m.GetSession(context.Background())
	require.ErrorIs(t, err, errDown)

	s, err := m.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestManager_RefreshSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	refresher := NewMockRefresher(ctrl)
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSession()))

	refresher.EXPECT().Refresh(gomock.Any(), "refresh-1").
		Return(&Session{AccessToken: "access-2", ExpiresAt: time.Date(2026, 5, 1, 11, 0, 0, 0, time.UTC)}, nil)

	m := NewManager(store, refresher, logging.NewMockLogger(logging.DEBUG))

	var events []Event

	m.OnSessionChange(func(e Event, _ *Session) { events = append(events, e) })
	m.OnSessionChange(nil)

	s, err := m.RefreshSession(ctx)
	require.NoError(t, err)

	assert.Equal(t, "access-2", s.AccessToken)
	assert.Equal(t, "refresh-1", s.RefreshToken, "TEST Failed. old refresh token must be kept")
	assert.Equal(t, "user-1", s.UserID)
	assert.Equal(t, []Event{TokenRefreshed}, events)

	stored, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-2", stored.AccessToken)
}

func TestManager_RefreshSessionFailures(t *testing.T) {
	errRejected := &RefreshError{Status: 400, Message: "Invalid Refresh Token"}

	tests := []struct {
		desc    string
		stored  *Session
		refresh func(r *MockRefresherMockRecorder)
		err     error
	}{
		{"no session", nil, nil, ErrNoSession},
		{"no refresh token", &Session{AccessToken: "a"}, nil, ErrNoRefreshToken},
		{"backend rejects", testSession(), func(r *MockRefresherMockRecorder) {
			r.Refresh(gomock.Any(), "refresh-1").Return(nil, errRejected)
		}, errRejected},
		{"backend returns empty session", testSession(), func(r *MockRefresherMockRecorder) {
			r.Refresh(gomock.Any(), "refresh-1").Return(&Session{}, nil)
		}, ErrNoSession},
	}

	for i, tc := range tests {
		ctrl := gomock.NewController(t)
		refresher := NewMockRefresher(ctrl)
		store := NewMemoryStore()

		require.NoError(t, store.Save(context.Background(), tc.stored))

		if tc.refresh != nil {
			tc.refresh(refresher.EXPECT())
		}

		m := NewManager(store, refresher, logging.NewMockLogger(logging.DEBUG))

		s, err := m.RefreshSession(context.Background())

		assert.Nilf(t, s, "TEST[%d], Failed.\n%s", i, tc.desc)
		require.ErrorIsf(t, err, tc.err, "TEST[%d], Failed.\n%s", i, tc.desc)

		cur, _ := m.GetSession(context.Background())
		assert.Equalf(t, tc.stored, cur, "TEST[%d], Failed.\nsession must be left untouched", i)
	}
}

func TestManager_RefreshWithoutBackend(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), testSession()))

	m := NewManager(store, nil, logging.NewMockLogger(logging.DEBUG))

	_, err := m.RefreshSession(context.Background())
	require.ErrorIs(t, err, ErrNoRefreshToken)
}

func TestManager_SignInAndOut(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store, nil, logging.NewMockLogger(logging.DEBUG))

	var events []Event

	m.OnSessionChange(func(e Event, s *Session) {
		events = append(events, e)

		if e == SignedOut {
			assert.Nil(t, s)
		}
	})

	require.ErrorIs(t, m.SignIn(ctx, &Session{}), ErrNoSession)
	require.NoError(t, m.SignIn(ctx, testSession()))

	s, err := m.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, testSession(), s)

	require.NoError(t, m.SignOut(ctx))

	s, err = m.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)

	stored, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, stored)

	assert.Equal(t, []Event{SignedIn, SignedOut}, events)
}

func TestManager_SignOutStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	logger := logging.NewMockLogger(logging.DEBUG)
	errDown := errors.New("disk gone")

	store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
	store.EXPECT().Clear(gomock.Any()).Return(errDown)

	m := NewManager(store, nil, logger)

	require.NoError(t, m.SignIn(context.Background(), testSession()))
	require.ErrorIs(t, m.SignOut(context.Background()), errDown)

	s, err := m.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s, "TEST Failed. memory must be cleared even if the store fails")
	assert.Len(t, logger.EntriesAt(logging.ERROR), 1)
}

func TestManager_NilLoggerDiscards(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	refresher := NewMockRefresher(ctrl)

	next := &Session{AccessToken: "access-2", RefreshToken: "refresh-2", ExpiresAt: time.Date(2026, 5, 1, 11, 0, 0, 0, time.UTC)}
	refresher.EXPECT().Refresh(gomock.Any(), "refresh-1").Return(next, nil)

	m := NewManager(nil, refresher, nil)

	assert.NotPanics(t, func() {
		require.NoError(t, m.SignIn(ctx, testSession()))

		s, err := m.RefreshSession(ctx)
		require.NoError(t, err)
		assert.Equal(t, next, s)

		require.NoError(t, m.SignOut(ctx))
	})
}
