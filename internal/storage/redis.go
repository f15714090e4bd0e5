package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"exoplanet-ai/internal/common"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "exoplanet:session:"

// RedisSessionStore keeps sessions in Redis and lets Redis expire them.
type RedisSessionStore struct {
	client  *redis.Client
	ttl     time.Duration
	timeout time.Duration
}

// NewRedisSessionStore connects to url (redis://host:port/db) and pings it.
// Sessions without an explicit expiry get ttl.
func NewRedisSessionStore(ctx context.Context, url string, ttl time.Duration) (*RedisSessionStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisSessionStore{client: client, ttl: ttl, timeout: 2 * time.Second}, nil
}

func (r *RedisSessionStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

func (r *RedisSessionStore) CreateSession(s Session) error {
	ttl := r.ttl
	if !s.ExpiresAt.IsZero() {
		ttl = time.Until(s.ExpiresAt)
		if ttl <= 0 {
			return nil
		}
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.Set(ctx, sessionKeyPrefix+s.Token, data, ttl).Err()
}

func (r *RedisSessionStore) GetSession(token string) (Session, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	data, err := r.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, fmt.Errorf("session: %w", common.ErrNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("redis get session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return s, nil
}

func (r *RedisSessionStore) DeleteSession(token string) error {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.Del(ctx, sessionKeyPrefix+token).Err()
}

// Close closes the Redis client.
func (r *RedisSessionStore) Close() error {
	return r.client.Close()
}

// splitStore serves sessions from a separate backend.
type splitStore struct {
	Store
	sessions *RedisSessionStore
}

// WithRedisSessions returns base with its sessions moved to r.
func WithRedisSessions(base Store, r *RedisSessionStore) Store {
	return &splitStore{Store: base, sessions: r}
}

func (s *splitStore) CreateSession(sess Session) error         { return s.sessions.CreateSession(sess) }
func (s *splitStore) GetSession(token string) (Session, error) { return s.sessions.GetSession(token) }
func (s *splitStore) DeleteSession(token string) error         { return s.sessions.DeleteSession(token) }

func (s *splitStore) Close() error {
	return errors.Join(s.sessions.Close(), s.Store.Close())
}
