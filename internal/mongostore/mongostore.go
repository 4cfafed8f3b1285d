// Package mongostore implements the user, movie, review and watchlist
// stores on MongoDB. It is selected with MOVIEHUB_STORE=mongo.
package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	colUsers     = "users"
	colMovies    = "movies"
	colReviews   = "reviews"
	colWatchlist = "watchlist"
)

// EnsureIndexes creates the unique indexes the stores rely on to report
// conflicts. It is safe to call on every start.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_email")},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_username")},
		},
		colMovies: {
			{Keys: bson.D{{Key: "imdbID", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true).SetName("uniq_imdb")},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		colReviews: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "movieId", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_user_movie")},
			{Keys: bson.D{{Key: "movieId", Value: 1}, {Key: "timestamp", Value: -1}}},
		},
		colWatchlist: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "movieId", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_user_movie")},
		},
	}

	for col, models := range specs {
		if _, err := db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("indexes %s: %w", col, err)
		}
	}
	return nil
}

func decodeAll[T any](ctx context.Context, cur *mongo.Cursor) ([]T, error) {
	defer cur.Close(ctx)

	out := []T{}
	for cur.Next(ctx) {
		var v T
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, cur.Err()
}
