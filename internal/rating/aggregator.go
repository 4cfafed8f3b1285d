// Package rating keeps a movie's averageRating and reviewCount equal to the
// mean and count of its current reviews.
package rating

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"moviehub/pkg/models"
)

// Source lists the ratings of every current review of a movie.
type Source interface {
	RatingsForMovie(ctx context.Context, movieID string) ([]int, error)
}

// Sink persists the derived aggregate on the movie record.
type Sink interface {
	UpdateRating(ctx context.Context, movieID string, average float64, count int) error
}

type Aggregator struct {
	source Source
	sink   Sink

	mu    sync.Mutex
	locks map[string]*movieLock
}

type movieLock struct {
	mu   sync.Mutex
	refs int
}

func NewAggregator(source Source, sink Sink) *Aggregator {
	return &Aggregator{
		source: source,
		sink:   sink,
		locks:  make(map[string]*movieLock),
	}
}

// Recompute reads the movie's ratings and writes the new aggregate. Calls for
// the same movie run one at a time; different movies proceed in parallel.
func (a *Aggregator) Recompute(ctx context.Context, movieID string) (models.RatingSummary, error) {
	unlock := a.lock(movieID)
	defer unlock()

	ratings, err := a.source.RatingsForMovie(ctx, movieID)
	if err != nil {
		return models.RatingSummary{}, fmt.Errorf("load ratings: %w", err)
	}

	sum := models.RatingSummary{
		MovieID:       movieID,
		AverageRating: Mean(ratings),
		ReviewCount:   len(ratings),
	}
	if err := a.sink.UpdateRating(ctx, movieID, sum.AverageRating, sum.ReviewCount); err != nil {
		return models.RatingSummary{}, fmt.Errorf("store rating: %w", err)
	}

	log.WithFields(log.Fields{
		"component": "rating",
		"movie_id":  movieID,
		"average":   sum.AverageRating,
		"count":     sum.ReviewCount,
	}).Debug("aggregate recomputed")
	return sum, nil
}

// lock takes the per-movie mutex and returns its release func. Entries are
// refcounted and dropped once nobody holds or waits on them.
func (a *Aggregator) lock(movieID string) func() {
	a.mu.Lock()
	l, ok := a.locks[movieID]
	if !ok {
		l = &movieLock{}
		a.locks[movieID] = l
	}
	l.refs++
	a.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		a.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(a.locks, movieID)
		}
		a.mu.Unlock()
	}
}

// Mean is the arithmetic mean of ratings, 0 for none.
func Mean(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	total := 0
	for _, r := range ratings {
		total += r
	}
	return float64(total) / float64(len(ratings))
}
