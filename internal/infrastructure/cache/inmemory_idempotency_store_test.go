package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		txID := uuid.New()
		require.NoError(t, store.Set(context.Background(), "key-1", txID, time.Minute))

		got, err := store.Get(context.Background(), "key-1")
		require.NoError(t, err)
		assert.Equal(t, txID, got)
	})

	t.Run("unknown key returns nil uuid", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		got, err := store.Get(context.Background(), "never-stored")
		require.NoError(t, err)
		assert.Equal(t, uuid.Nil, got)
	})

	t.Run("expired key returns nil uuid", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		require.NoError(t, store.Set(context.Background(), "key-1", uuid.New(), time.Nanosecond))
		time.Sleep(5 * time.Millisecond)

		got, err := store.Get(context.Background(), "key-1")
		require.NoError(t, err)
		assert.Equal(t, uuid.Nil, got)
	})

	t.Run("cleanup removes expired entries", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		require.NoError(t, store.Set(context.Background(), "stale", uuid.New(), time.Nanosecond))
		require.NoError(t, store.Set(context.Background(), "fresh", uuid.New(), time.Hour))
		time.Sleep(5 * time.Millisecond)

		store.cleanup()
		assert.Equal(t, 1, store.Size())
	})

	t.Run("close is safe to call twice", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		require.NoError(t, store.Close())
		require.NoError(t, store.Close())
	})
}
