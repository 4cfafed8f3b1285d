package models

import "time"

// WatchlistItem keeps a copy of the movie title and poster so a watchlist
// renders without a catalog lookup per row.
type WatchlistItem struct {
	ID          string    `json:"id" bson:"_id"`
	UserID      string    `json:"userId" bson:"userId"`
	MovieID     string    `json:"movieId" bson:"movieId"`
	MovieTitle  string    `json:"movieTitle" bson:"movieTitle"`
	MoviePoster string    `json:"moviePoster" bson:"moviePoster"`
	DateAdded   time.Time `json:"dateAdded" bson:"dateAdded"`
}
