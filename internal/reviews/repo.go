package reviews

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"moviehub/pkg/database"
	"moviehub/pkg/models"
)

var ErrDuplicateReview = errors.New("You have already reviewed this movie")

// MaxPage bounds feed page numbers so offsets stay far from integer overflow.
const MaxPage = 10000

// ClampPage keeps page in 1..MaxPage and limit in 1..100 (default 10).
func ClampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return page, limit
}

// Store persists reviews. GetByID returns (nil, nil) for unknown ids.
type Store interface {
	Create(ctx context.Context, r *models.Review) error
	GetByID(ctx context.Context, id string) (*models.Review, error)
	ListByMovie(ctx context.Context, movieID string) ([]models.Review, error)
	ListAll(ctx context.Context, page, limit int) ([]models.Review, int, error)
	Update(ctx context.Context, r *models.Review) error
	Delete(ctx context.Context, id string) (bool, error)
	RatingsForMovie(ctx context.Context, movieID string) ([]int, error)
}

// Repo is the SQLite Store.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const reviewSelect = `
	SELECT r.id, r.user_id, COALESCE(u.username, ''), r.movie_id, r.rating, r.review_text, r.timestamp, r.updated_at
	FROM reviews r
	LEFT JOIN users u ON u.id = r.user_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner) (models.Review, error) {
	var rv models.Review
	err := row.Scan(&rv.ID, &rv.UserID, &rv.Username, &rv.MovieID, &rv.Rating, &rv.ReviewText, &rv.Timestamp, &rv.UpdatedAt)
	return rv, err
}

func (r *Repo) Create(ctx context.Context, rv *models.Review) error {
	now := time.Now().UTC()
	rv.Timestamp, rv.UpdatedAt = now, now

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO reviews (id, user_id, movie_id, rating, review_text, timestamp, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rv.ID, rv.UserID, rv.MovieID, rv.Rating, rv.ReviewText, rv.Timestamp, rv.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "reviews.user_id") {
			return ErrDuplicateReview
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.Review, error) {
	rv, err := scanReview(r.DB.QueryRowContext(ctx, reviewSelect+` WHERE r.id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}
	return &rv, nil
}

func (r *Repo) ListByMovie(ctx context.Context, movieID string) ([]models.Review, error) {
	rows, err := r.DB.QueryContext(ctx, reviewSelect+`
		WHERE r.movie_id = ?
		ORDER BY r.timestamp DESC, r.id ASC
	`, movieID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return collect(rows, 0)
}

// ListAll pages through every review, newest first.
func (r *Repo) ListAll(ctx context.Context, page, limit int) ([]models.Review, int, error) {
	page, limit = ClampPage(page, limit)
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, reviewSelect+`
		ORDER BY r.timestamp DESC, r.id ASC
		LIMIT ? OFFSET ?
	`, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list all reviews: %w", err)
	}
	out, err := collect(rows, limit)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func collect(rows *sql.Rows, capHint int) ([]models.Review, error) {
	defer rows.Close()

	out := make([]models.Review, 0, capHint)
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Update writes rating and text. Ownership and movie never change.
func (r *Repo) Update(ctx context.Context, rv *models.Review) error {
	rv.UpdatedAt = time.Now().UTC()
	_, err := r.DB.ExecContext(ctx, `
		UPDATE reviews
		SET rating = ?, review_text = ?, updated_at = ?
		WHERE id = ?
	`, rv.Rating, rv.ReviewText, rv.UpdatedAt, rv.ID)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete review: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) RatingsForMovie(ctx context.Context, movieID string) ([]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT rating FROM reviews WHERE movie_id = ?`, movieID)
	if err != nil {
		return nil, fmt.Errorf("ratings query: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
