package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"moviehub/internal/watchlist"
	"moviehub/pkg/models"
)

// Watchlist implements watchlist.Store.
type Watchlist struct {
	col *mongo.Collection
}

func NewWatchlist(db *mongo.Database) *Watchlist {
	return &Watchlist{col: db.Collection(colWatchlist)}
}

var _ watchlist.Store = (*Watchlist)(nil)

func (r *Watchlist) List(ctx context.Context, userID string) ([]models.WatchlistItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "dateAdded", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find watchlist: %w", err)
	}
	return decodeAll[models.WatchlistItem](ctx, cur)
}

func (r *Watchlist) Add(ctx context.Context, it *models.WatchlistItem) error {
	if it.DateAdded.IsZero() {
		it.DateAdded = time.Now().UTC()
	}
	if _, err := r.col.InsertOne(ctx, it); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return watchlist.ErrAlreadyListed
		}
		return fmt.Errorf("insert watchlist: %w", err)
	}
	return nil
}

func (r *Watchlist) Remove(ctx context.Context, userID, movieID string) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{"userId": userID, "movieId": movieID})
	if err != nil {
		return false, fmt.Errorf("delete watchlist: %w", err)
	}
	return res.DeletedCount > 0, nil
}
