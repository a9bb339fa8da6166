package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/canvas-sync/domain/canvas"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces canvas keys.
const DefaultRedisPrefix = "canvas:"

// RedisStore keeps each document as a JSON string under <prefix><roomID>.
// Keys never expire.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a store over an existing client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Kind returns the backend name.
func (s *RedisStore) Kind() string {
	return BackendRedis
}

// Save stores the document.
func (s *RedisStore) Save(ctx context.Context, doc canvas.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal canvas: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+doc.ID, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

// Load reads the document.
func (s *RedisStore) Load(ctx context.Context, roomID string) (*canvas.Document, error) {
	data, err := s.client.Get(ctx, s.prefix+roomID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCanvasNotFound
		}
		return nil, fmt.Errorf("redis get error: %w", err)
	}
	return decodeDocument(data, roomID)
}

// Ping checks the redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
