package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"moviehub/internal/reviews"
	"moviehub/pkg/models"
)

// Reviews implements reviews.Store. The author's username is stored on the
// review document at creation.
type Reviews struct {
	col *mongo.Collection
}

func NewReviews(db *mongo.Database) *Reviews {
	return &Reviews{col: db.Collection(colReviews)}
}

var _ reviews.Store = (*Reviews)(nil)

var newestFirst = bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: 1}}

func (r *Reviews) Create(ctx context.Context, rv *models.Review) error {
	now := time.Now().UTC()
	rv.Timestamp, rv.UpdatedAt = now, now
	if _, err := r.col.InsertOne(ctx, rv); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return reviews.ErrDuplicateReview
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *Reviews) GetByID(ctx context.Context, id string) (*models.Review, error) {
	var rv models.Review
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&rv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find review: %w", err)
	}
	return &rv, nil
}

func (r *Reviews) ListByMovie(ctx context.Context, movieID string) ([]models.Review, error) {
	cur, err := r.col.Find(ctx, bson.M{"movieId": movieID}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("find reviews: %w", err)
	}
	return decodeAll[models.Review](ctx, cur)
}

func (r *Reviews) ListAll(ctx context.Context, page, limit int) ([]models.Review, int, error) {
	page, limit = reviews.ClampPage(page, limit)
	total, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}
	opts := options.Find().
		SetSort(newestFirst).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find reviews: %w", err)
	}
	out, err := decodeAll[models.Review](ctx, cur)
	if err != nil {
		return nil, 0, err
	}
	return out, int(total), nil
}

func (r *Reviews) Update(ctx context.Context, rv *models.Review) error {
	rv.UpdatedAt = time.Now().UTC()
	_, err := r.col.UpdateByID(ctx, rv.ID, bson.M{"$set": bson.M{
		"rating":     rv.Rating,
		"reviewText": rv.ReviewText,
		"updatedAt":  rv.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	return nil
}

func (r *Reviews) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete review: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *Reviews) RatingsForMovie(ctx context.Context, movieID string) ([]int, error) {
	opts := options.Find().SetProjection(bson.M{"rating": 1})
	cur, err := r.col.Find(ctx, bson.M{"movieId": movieID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find ratings: %w", err)
	}
	docs, err := decodeAll[struct {
		Rating int `bson:"rating"`
	}](ctx, cur)
	if err != nil {
		return nil, fmt.Errorf("decode ratings: %w", err)
	}

	out := make([]int, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Rating)
	}
	return out, nil
}
