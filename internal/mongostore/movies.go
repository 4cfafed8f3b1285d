package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"moviehub/internal/movies"
	"moviehub/pkg/models"
)

// Movies implements movies.Store. Delete also removes the movie's reviews
// and watchlist entries.
type Movies struct {
	col       *mongo.Collection
	reviews   *mongo.Collection
	watchlist *mongo.Collection
}

func NewMovies(db *mongo.Database) *Movies {
	return &Movies{
		col:       db.Collection(colMovies),
		reviews:   db.Collection(colReviews),
		watchlist: db.Collection(colWatchlist),
	}
}

var _ movies.Store = (*Movies)(nil)

func listFilter(q movies.ListQuery) bson.M {
	filter := bson.M{}
	if q.Search != "" {
		filter["title"] = bson.M{"$regex": regexp.QuoteMeta(q.Search), "$options": "i"}
	}
	if q.Genre != "" {
		// matches any element of the genre array
		filter["genre"] = bson.M{"$regex": "^" + regexp.QuoteMeta(q.Genre) + "$", "$options": "i"}
	}
	if q.Year > 0 {
		filter["releaseYear"] = q.Year
	}
	return filter
}

func (r *Movies) List(ctx context.Context, q movies.ListQuery) ([]models.Movie, int, error) {
	q = q.Normalize()
	filter := listFilter(q)

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count movies: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(q.Offset())).
		SetLimit(int64(q.Limit))
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find movies: %w", err)
	}
	out, err := decodeAll[models.Movie](ctx, cur)
	if err != nil {
		return nil, 0, fmt.Errorf("decode movies: %w", err)
	}
	return out, int(total), nil
}

func (r *Movies) findOne(ctx context.Context, filter bson.M) (*models.Movie, error) {
	var m models.Movie
	err := r.col.FindOne(ctx, filter).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find movie: %w", err)
	}
	return &m, nil
}

func (r *Movies) GetByID(ctx context.Context, id string) (*models.Movie, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *Movies) GetByImdbID(ctx context.Context, imdbID string) (*models.Movie, error) {
	return r.findOne(ctx, bson.M{"imdbID": imdbID})
}

func (r *Movies) Create(ctx context.Context, m *models.Movie) error {
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	m.AverageRating, m.ReviewCount = 0, 0
	if m.Genre == nil {
		m.Genre = []string{}
	}
	if m.Cast == nil {
		m.Cast = []string{}
	}

	if _, err := r.col.InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return movies.ErrDuplicateImdbID
		}
		return fmt.Errorf("insert movie: %w", err)
	}
	return nil
}

func (r *Movies) Update(ctx context.Context, m *models.Movie) error {
	m.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"title":       m.Title,
		"genre":       m.Genre,
		"releaseYear": m.ReleaseYear,
		"director":    m.Director,
		"cast":        m.Cast,
		"synopsis":    m.Synopsis,
		"posterUrl":   m.PosterURL,
		"trailerUrl":  m.TrailerURL,
		"updatedAt":   m.UpdatedAt,
	}
	change := bson.M{"$set": set}
	if m.ImdbID != "" {
		set["imdbID"] = m.ImdbID
	} else {
		change["$unset"] = bson.M{"imdbID": ""}
	}

	if _, err := r.col.UpdateByID(ctx, m.ID, change); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return movies.ErrDuplicateImdbID
		}
		return fmt.Errorf("update movie: %w", err)
	}
	return nil
}

func (r *Movies) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete movie: %w", err)
	}
	if res.DeletedCount == 0 {
		return false, nil
	}
	if _, err := r.reviews.DeleteMany(ctx, bson.M{"movieId": id}); err != nil {
		return true, fmt.Errorf("delete movie reviews: %w", err)
	}
	if _, err := r.watchlist.DeleteMany(ctx, bson.M{"movieId": id}); err != nil {
		return true, fmt.Errorf("delete movie watchlist: %w", err)
	}
	return true, nil
}

func (r *Movies) UpdateRating(ctx context.Context, id string, average float64, count int) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"averageRating": average,
		"reviewCount":   count,
	}})
	if err != nil {
		return fmt.Errorf("update rating: %w", err)
	}
	return nil
}
