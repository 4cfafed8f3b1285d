package events

import (
	"time"

	"moviehub/pkg/models"
)

const (
	ReviewCreate    = "review.create"
	ReviewUpdate    = "review.update"
	ReviewDelete    = "review.delete"
	WatchlistAdd    = "watchlist.add"
	WatchlistRemove = "watchlist.remove"
)

type Event struct {
	Type     string                `json:"type"`
	UserID   string                `json:"userId"`
	MovieID  string                `json:"movieId"`
	ReviewID string                `json:"reviewId,omitempty"`
	Rating   *models.RatingSummary `json:"rating,omitempty"`
	At       time.Time             `json:"at"`
}

// Publisher is what handlers depend on. A nil Publisher in a handler means
// events are switched off.
type Publisher interface {
	Publish(e Event)
}
