package redis

// Package redis provides the Redis-backed session slot.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/assignpro/assignpro-web/internal/ports"
)

// DefaultPrefix namespaces slot keys.
const DefaultPrefix = "assignpro:"

var _ ports.SlotStore = (*SlotStore)(nil)

// SlotStore keeps the remembered identity record under a single Redis key without expiry.
type SlotStore struct {
	client redis.UniversalClient
	key    string
}

// SlotStoreOptions configures a SlotStore.
type SlotStoreOptions struct {
	Prefix string // default DefaultPrefix
	Key    string // default "user"
}

// NewSlotStore creates a Redis-backed slot.
func NewSlotStore(client redis.UniversalClient, opts SlotStoreOptions) *SlotStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	key := strings.TrimSpace(opts.Key)
	if key == "" {
		key = "user"
	}
	return &SlotStore{client: client, key: prefix + key}
}

// Key returns the full Redis key of the slot.
func (s *SlotStore) Key() string { return s.key }

func (s *SlotStore) Read(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ports.ErrSlotEmpty
		}
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return data, nil
}

func (s *SlotStore) Write(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

func (s *SlotStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", s.key, err)
	}
	return nil
}
