package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"giftmatch/pkg"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// ErrKeyNotFound is returned by GetJSON for a missing key
var ErrKeyNotFound = errors.New("key not found")

// RedisStorage handles Redis operations. Every key is namespaced by prefix.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// NewRedisStorage connects to redisURL and verifies the connection
func NewRedisStorage(ctx context.Context, redisURL, prefix string) (*RedisStorage, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStorageFromClient(client, prefix), nil
}

// NewRedisStorageFromClient wraps an existing client
func NewRedisStorageFromClient(client *redis.Client, prefix string) *RedisStorage {
	return &RedisStorage{client: client, prefix: prefix}
}

// Key returns the namespaced key for name
func (r *RedisStorage) Key(name string) string {
	return r.prefix + name
}

// Client exposes the underlying client for multi-key commands
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

// SetJSON stores v as JSON under name. ttl 0 means no expiry.
func (r *RedisStorage) SetJSON(ctx context.Context, name string, v any, ttl time.Duration) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	if err := r.client.Set(ctx, r.Key(name), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", name, err)
	}
	return nil
}

// GetJSON decodes the JSON value stored under name into dest
func (r *RedisStorage) GetJSON(ctx context.Context, name string, dest any) error {
	data, err := r.client.Get(ctx, r.Key(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", ErrKeyNotFound, name)
		}
		return fmt.Errorf("failed to get %s: %w", name, err)
	}
	if err := sonic.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	return nil
}

// Delete removes name
func (r *RedisStorage) Delete(ctx context.Context, name string) error {
	if err := r.client.Del(ctx, r.Key(name)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

// Exists checks if name exists
func (r *RedisStorage) Exists(ctx context.Context, name string) (bool, error) {
	count, err := r.client.Exists(ctx, r.Key(name)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check existence of %s: %w", name, err)
	}
	return count > 0, nil
}

// TTL gets the remaining TTL of name
func (r *RedisStorage) TTL(ctx context.Context, name string) (time.Duration, error) {
	ttl, err := r.client.TTL(ctx, r.Key(name)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get TTL of %s: %w", name, err)
	}
	return ttl, nil
}

// Close closes the Redis connection
func (r *RedisStorage) Close() error {
	return r.client.Close()
}

// Ping tests Redis connection
func (r *RedisStorage) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// RedisSessionManager keeps sessions as JSON values that expire after ttl of inactivity
type RedisSessionManager struct {
	store       *RedisStorage
	ttl         time.Duration
	maxMessages int
}

// NewRedisSessionManager creates a session manager on top of store
func NewRedisSessionManager(store *RedisStorage, ttl time.Duration, maxMessages int) *RedisSessionManager {
	if ttl <= 0 {
		ttl = SessionTTL
	}
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &RedisSessionManager{store: store, ttl: ttl, maxMessages: maxMessages}
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

// GetSession retrieves a session by ID
func (m *RedisSessionManager) GetSession(ctx context.Context, sessionID string) (*pkg.Session, error) {
	var session pkg.Session
	if err := m.store.GetJSON(ctx, sessionKey(sessionID), &session); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, err
	}
	return &session, nil
}

// SaveSession saves the session and refreshes its TTL
func (m *RedisSessionManager) SaveSession(ctx context.Context, session *pkg.Session) error {
	if err := ValidateSession(session); err != nil {
		return err
	}
	stored := cloneSession(session)
	touch(stored, time.Now(), m.maxMessages)
	return m.store.SetJSON(ctx, sessionKey(stored.ID), stored, m.ttl)
}

// maxAppendAttempts bounds the optimistic retries of AppendTurn under contention
const maxAppendAttempts = 16

// ErrSessionConflict is returned when concurrent turns kept invalidating an update
var ErrSessionConflict = errors.New("session updated concurrently")

// AppendTurn adds messages to the session, creating it when it does not exist.
// The read-modify-write runs under WATCH so concurrent turns never drop each other's messages.
func (m *RedisSessionManager) AppendTurn(ctx context.Context, sessionID string, giftCtx pkg.GiftContext, messages ...pkg.ConversationMessage) (*pkg.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID cannot be empty")
	}

	key := m.store.Key(sessionKey(sessionID))
	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		var session *pkg.Session
		err := m.store.Client().Watch(ctx, func(tx *redis.Tx) error {
			var err error
			session, err = readSession(ctx, tx, key, sessionID)
			if err != nil {
				return err
			}

			session.Messages = append(session.Messages, messages...)
			session.Context = giftCtx.Clone()
			touch(session, time.Now(), m.maxMessages)

			data, err := sonic.Marshal(session)
			if err != nil {
				return fmt.Errorf("failed to marshal session %s: %w", sessionID, err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, m.ttl)
				return nil
			})
			return err
		}, key)

		switch {
		case err == nil:
			return session, nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		default:
			return nil, fmt.Errorf("failed to append to session %s: %w", sessionID, err)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSessionConflict, sessionID)
}

// readSession loads the watched session, or a fresh one when the key is missing
func readSession(ctx context.Context, tx *redis.Tx, key, sessionID string) (*pkg.Session, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return &pkg.Session{ID: sessionID}, nil
	}
	if err != nil {
		return nil, err
	}
	var session pkg.Session
	if err := sonic.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", sessionID, err)
	}
	return &session, nil
}

// DeleteSession removes session from Redis
func (m *RedisSessionManager) DeleteSession(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, sessionKey(sessionID))
}
