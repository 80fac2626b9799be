package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assignpro/assignpro-web/internal/ports"
	"github.com/assignpro/assignpro-web/internal/testutil"
)

// setupTestRedis creates a Redis client for testing.
// Tests will be skipped if Redis is not available.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := testutil.SetupTestRedis(t)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestSlotStore_WriteReadClear(t *testing.T) {
	client := setupTestRedis(t)
	store := NewSlotStore(client, SlotStoreOptions{Prefix: testutil.UniquePrefix("slot")})
	ctx := context.Background()

	_, err := store.Read(ctx)
	require.ErrorIs(t, err, ports.ErrSlotEmpty)

	record := []byte(`{"id":"1","name":"bob","email":"bob@x.com","role":"client"}`)
	require.NoError(t, store.Write(ctx, record))

	got, err := store.Read(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, string(record), string(got))

	ttl, err := client.TTL(ctx, store.Key()).Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl, "slot must not expire")

	require.NoError(t, store.Clear(ctx))
	_, err = store.Read(ctx)
	require.ErrorIs(t, err, ports.ErrSlotEmpty)

	// clearing an empty slot is fine
	require.NoError(t, store.Clear(ctx))
}

func TestSlotStore_OverwriteKeepsSingleRecord(t *testing.T) {
	client := setupTestRedis(t)
	prefix := testutil.UniquePrefix("slot")
	store := NewSlotStore(client, SlotStoreOptions{Prefix: prefix})
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, []byte(`{"id":"1"}`)))
	require.NoError(t, store.Write(ctx, []byte(`{"id":"2"}`)))

	keys, err := client.Keys(ctx, prefix+"*").Result()
	require.NoError(t, err)
	assert.Equal(t, []string{prefix + "user"}, keys)

	got, err := store.Read(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"2"}`, string(got))
	require.NoError(t, store.Clear(ctx))
}

func TestNewSlotStore_Defaults(t *testing.T) {
	store := NewSlotStore(nil, SlotStoreOptions{})
	assert.Equal(t, "assignpro:user", store.Key())

	store = NewSlotStore(nil, SlotStoreOptions{Prefix: "x:", Key: " viewer "})
	assert.Equal(t, "x:viewer", store.Key())
}
