package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"exoplanet-ai/internal/common"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Needs a live server: REDIS_URL=redis://localhost:6379/15 go test ./internal/storage
func redisStore(t *testing.T) *RedisSessionStore {
	url := os.Getenv(common.EnvRedisURL)
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	r, err := NewRedisSessionStore(ctx, url, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestNewRedisSessionStore_BadURL(t *testing.T) {
	_, err := NewRedisSessionStore(context.Background(), "not-a-url", time.Minute)
	assert.Error(t, err)
}

func TestRedisSessionStore_RoundTrip(t *testing.T) {
	r := redisStore(t)
	token := uuid.NewString()
	now := time.Now()

	require.NoError(t, r.CreateSession(Session{Token: token, UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(time.Minute)}))

	got, err := r.GetSession(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	require.NoError(t, r.DeleteSession(token))
	_, err = r.GetSession(token)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestRedisSessionStore_ExpiredNotStored(t *testing.T) {
	r := redisStore(t)
	token := uuid.NewString()
	now := time.Now()

	require.NoError(t, r.CreateSession(Session{Token: token, UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(-time.Second)}))
	_, err := r.GetSession(token)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestWithRedisSessions(t *testing.T) {
	r := redisStore(t)
	base := NewMemoryStore()
	store := WithRedisSessions(base, r)
	token := uuid.NewString()

	require.NoError(t, store.CreateSession(Session{Token: token, UserID: "u1", CreatedAt: time.Now()}))
	_, err := base.GetSession(token)
	assert.True(t, errors.Is(err, common.ErrNotFound), "session must not land in the base store")

	got, err := store.GetSession(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	require.NoError(t, store.DeleteSession(token))
}
