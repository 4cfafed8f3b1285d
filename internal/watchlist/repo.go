package watchlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"moviehub/pkg/database"
	"moviehub/pkg/models"
)

var ErrAlreadyListed = errors.New("Movie already in watchlist")

type Store interface {
	List(ctx context.Context, userID string) ([]models.WatchlistItem, error)
	Add(ctx context.Context, it *models.WatchlistItem) error
	Remove(ctx context.Context, userID, movieID string) (bool, error)
}

// Repo is the SQLite Store.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) List(ctx context.Context, userID string) ([]models.WatchlistItem, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, user_id, movie_id, movie_title, movie_poster, date_added
		FROM watchlist
		WHERE user_id = ?
		ORDER BY date_added DESC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	defer rows.Close()

	out := []models.WatchlistItem{}
	for rows.Next() {
		var it models.WatchlistItem
		if err := rows.Scan(&it.ID, &it.UserID, &it.MovieID, &it.MovieTitle, &it.MoviePoster, &it.DateAdded); err != nil {
			return nil, fmt.Errorf("scan watchlist row: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) Add(ctx context.Context, it *models.WatchlistItem) error {
	if it.DateAdded.IsZero() {
		it.DateAdded = time.Now().UTC()
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO watchlist (id, user_id, movie_id, movie_title, movie_poster, date_added)
		VALUES (?, ?, ?, ?, ?, ?)
	`, it.ID, it.UserID, it.MovieID, it.MovieTitle, it.MoviePoster, it.DateAdded)
	if err != nil {
		if database.IsUniqueViolation(err, "watchlist.user_id") {
			return ErrAlreadyListed
		}
		return fmt.Errorf("insert watchlist: %w", err)
	}
	return nil
}

func (r *Repo) Remove(ctx context.Context, userID, movieID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM watchlist
		WHERE user_id = ? AND movie_id = ?
	`, userID, movieID)
	if err != nil {
		return false, fmt.Errorf("delete watchlist: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
