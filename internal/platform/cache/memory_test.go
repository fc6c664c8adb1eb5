package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetGetExpire(t *testing.T) {
	s, err := NewMemoryStore(4)
	require.NoError(t, err)
	now := time.Unix(1735689600, 0)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "tenant:slug:acme", []byte(`{"id":"t1"}`), time.Minute))
	b, err := s.Get(ctx, "tenant:slug:acme")
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"t1"}`, string(b))

	now = now.Add(time.Minute)
	_, err = s.Get(ctx, "tenant:slug:acme")
	require.ErrorIs(t, err, ErrMiss)
	require.Equal(t, 0, s.Len())
}

func TestMemoryStore_Delete(t *testing.T) {
	s, err := NewMemoryStore(0)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, s.Delete(ctx, "a", "b", "missing"))

	_, err = s.Get(ctx, "a")
	require.ErrorIs(t, err, ErrMiss)
	_, err = s.Get(ctx, "b")
	require.ErrorIs(t, err, ErrMiss)
}
