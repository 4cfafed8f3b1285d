package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10, time.Minute)

	_, ok, err := m.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, m.Set(ctx, "k", Entry{Value: []byte("v1"), StoredAt: at}))
	require.NoError(t, m.Set(ctx, "k", Entry{Value: []byte("v2"), StoredAt: at}))

	e, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", string(e.Value))
	assert.Equal(t, at, e.StoredAt)

	n, _ := m.Len(ctx)
	assert.Equal(t, 1, n)
}

func TestMemoryNeverExceedsCapacity(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(3, time.Minute)

	for i := 0; i < 3; i++ {
		require.NoError(t, m.Set(ctx, fmt.Sprintf("k%d", i), Entry{Value: []byte{byte(i)}}))
	}
	// touch k0 so k1 becomes the least recently used
	_, ok, _ := m.Get(ctx, "k0")
	require.True(t, ok)

	for i := 3; i < 10; i++ {
		require.NoError(t, m.Set(ctx, fmt.Sprintf("k%d", i), Entry{Value: []byte{byte(i)}}))
		n, _ := m.Len(ctx)
		assert.LessOrEqual(t, n, 3)
	}

	_, ok, _ = m.Get(ctx, "k9")
	assert.True(t, ok)
	_, ok, _ = m.Get(ctx, "k1")
	assert.False(t, ok)
}

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2, time.Minute)

	require.NoError(t, m.Set(ctx, "a", Entry{}))
	require.NoError(t, m.Set(ctx, "b", Entry{}))
	_, _, _ = m.Get(ctx, "a")
	require.NoError(t, m.Set(ctx, "c", Entry{}))

	_, okA, _ := m.Get(ctx, "a")
	_, okB, _ := m.Get(ctx, "b")
	assert.True(t, okA)
	assert.False(t, okB)
}

func TestMemorySweep(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory(10, 30*time.Minute).WithClock(func() time.Time { return now })

	require.NoError(t, m.Set(ctx, "old", Entry{StoredAt: now.Add(-31 * time.Minute)}))
	require.NoError(t, m.Set(ctx, "fresh", Entry{StoredAt: now.Add(-5 * time.Minute)}))

	assert.Equal(t, 1, m.Sweep())

	_, ok, _ := m.Get(ctx, "old")
	assert.False(t, ok)
	_, ok, _ = m.Get(ctx, "fresh")
	assert.True(t, ok)
}

func TestMemoryRunStopsWithContext(t *testing.T) {
	m := NewMemory(10, time.Nanosecond)
	require.NoError(t, m.Set(context.Background(), "k", Entry{StoredAt: time.Now().Add(-time.Hour)}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		n, _ := m.Len(context.Background())
		return n == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
