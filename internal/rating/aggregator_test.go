package rating

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	ratings map[string][]int
	stored  map[string][2]float64
	loadErr error
	saveErr error

	active    atomic.Int32
	maxActive atomic.Int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{ratings: map[string][]int{}, stored: map[string][2]float64{}}
}

func (f *fakeStore) RatingsForMovie(ctx context.Context, movieID string) ([]int, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)

	if f.loadErr != nil {
		return nil, f.loadErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.ratings[movieID]...), nil
}

func (f *fakeStore) UpdateRating(ctx context.Context, movieID string, average float64, count int) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored[movieID] = [2]float64{average, float64(count)}
	return nil
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 4.0, Mean([]int{3, 5}))
	assert.InDelta(t, 3.6667, Mean([]int{5, 5, 1}), 0.0001)
}

func TestRecomputeTwoReviews(t *testing.T) {
	store := newFakeStore()
	store.ratings["m1"] = []int{3, 5}
	agg := NewAggregator(store, store)

	sum, err := agg.Recompute(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", sum.MovieID)
	assert.Equal(t, 4.0, sum.AverageRating)
	assert.Equal(t, 2, sum.ReviewCount)
	assert.Equal(t, [2]float64{4, 2}, store.stored["m1"])
}

func TestRecomputeNoReviewsResetsToZero(t *testing.T) {
	store := newFakeStore()
	store.stored["m1"] = [2]float64{4, 2}
	agg := NewAggregator(store, store)

	sum, err := agg.Recompute(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, sum.AverageRating)
	assert.Equal(t, 0, sum.ReviewCount)
	assert.Equal(t, [2]float64{0, 0}, store.stored["m1"])
}

func TestRecomputePropagatesErrors(t *testing.T) {
	store := newFakeStore()
	store.loadErr = errors.New("disk gone")
	_, err := NewAggregator(store, store).Recompute(context.Background(), "m1")
	require.ErrorIs(t, err, store.loadErr)

	store = newFakeStore()
	store.saveErr = errors.New("readonly")
	_, err = NewAggregator(store, store).Recompute(context.Background(), "m1")
	require.ErrorIs(t, err, store.saveErr)
}

func TestRecomputeSerializesPerMovie(t *testing.T) {
	store := newFakeStore()
	store.ratings["m1"] = []int{1, 2, 3}
	agg := NewAggregator(store, store)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := agg.Recompute(context.Background(), "m1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), store.maxActive.Load())
	assert.Empty(t, agg.locks)
}
