package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeboard/authkit/internal/domain"
)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionStore(client)
}

func newSession(userID domain.UserID, ttl time.Duration) *domain.Session {
	now := time.Now()
	return &domain.Session{
		ID:        domain.NewSessionID(uuid.New()),
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UserAgent: "test-agent",
		IP:        "127.0.0.1",
	}
}

func TestSessionStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := domain.NewUserID(uuid.New())

	session := newSession(userID, time.Hour)
	require.NoError(t, store.Create(ctx, session))

	got, err := store.GetByID(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, userID, got.UserID)
	assert.Equal(t, "test-agent", got.UserAgent)
	assert.WithinDuration(t, session.ExpiresAt, got.ExpiresAt, time.Second)
}

func TestSessionStoreMissReturnsNil(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetByID(context.Background(), domain.NewSessionID(uuid.New()))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionStoreLazyExpiry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := newSession(domain.NewUserID(uuid.New()), 30*time.Millisecond)
	require.NoError(t, store.Create(ctx, session))

	time.Sleep(50 * time.Millisecond)

	got, err := store.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "expired session must read as a miss")

	got, err = store.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "expired session stays gone after the lazy delete")
}

func TestSessionStoreRefreshExtends(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := newSession(domain.NewUserID(uuid.New()), time.Minute)
	require.NoError(t, store.Create(ctx, session))

	newExpiry := time.Now().Add(2 * time.Hour)
	refreshed, err := store.Refresh(ctx, session.ID, newExpiry)
	require.NoError(t, err)
	require.NotNil(t, refreshed)
	assert.WithinDuration(t, newExpiry, refreshed.ExpiresAt, time.Second)

	got, err := store.GetByID(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.WithinDuration(t, newExpiry, got.ExpiresAt, time.Second)
}

func TestSessionStoreRefreshExpiredIsMiss(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := newSession(domain.NewUserID(uuid.New()), 20*time.Millisecond)
	require.NoError(t, store.Create(ctx, session))
	time.Sleep(40 * time.Millisecond)

	refreshed, err := store.Refresh(ctx, session.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Nil(t, refreshed)
}

func TestSessionStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := newSession(domain.NewUserID(uuid.New()), time.Hour)
	require.NoError(t, store.Create(ctx, session))
	require.NoError(t, store.Delete(ctx, session.ID))

	got, err := store.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting an unknown session is not an error.
	require.NoError(t, store.Delete(ctx, domain.NewSessionID(uuid.New())))
}

func TestSessionStoreDeleteAllForUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := domain.NewUserID(uuid.New())
	otherID := domain.NewUserID(uuid.New())

	first := newSession(userID, time.Hour)
	second := newSession(userID, time.Hour)
	other := newSession(otherID, time.Hour)
	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Create(ctx, second))
	require.NoError(t, store.Create(ctx, other))

	require.NoError(t, store.DeleteAllForUser(ctx, userID))

	for _, id := range []domain.SessionID{first.ID, second.ID} {
		got, err := store.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got)
	}
	got, err := store.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.NotNil(t, got, "other users' sessions survive")
}

func TestSessionStoreDeleteExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := domain.NewUserID(uuid.New())

	expired := newSession(userID, 20*time.Millisecond)
	live := newSession(userID, time.Hour)
	require.NoError(t, store.Create(ctx, expired))
	require.NoError(t, store.Create(ctx, live))

	time.Sleep(1100 * time.Millisecond)

	count, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	got, err := store.GetByID(ctx, live.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}
