package movies

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"moviehub/pkg/database"
	"moviehub/pkg/models"
)

var ErrDuplicateImdbID = errors.New("a movie with this imdbID already exists")

type ListQuery struct {
	Search string // case-insensitive title substring
	Genre  string // exact genre, any-match against the list
	Year   int
	Page   int
	Limit  int
}

// MaxPage bounds page numbers so offsets stay far from integer overflow.
const MaxPage = 10000

// Normalize clamps paging to page in 1..MaxPage and limit in 1..100
// (default 10).
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 10
	}
	q.Search = strings.TrimSpace(q.Search)
	q.Genre = strings.TrimSpace(q.Genre)
	return q
}

func (q ListQuery) Offset() int { return (q.Page - 1) * q.Limit }

// Store persists the catalog. GetByID and GetByImdbID return (nil, nil)
// for unknown movies.
type Store interface {
	List(ctx context.Context, q ListQuery) ([]models.Movie, int, error)
	GetByID(ctx context.Context, id string) (*models.Movie, error)
	GetByImdbID(ctx context.Context, imdbID string) (*models.Movie, error)
	Create(ctx context.Context, m *models.Movie) error
	Update(ctx context.Context, m *models.Movie) error
	Delete(ctx context.Context, id string) (bool, error)
	UpdateRating(ctx context.Context, id string, average float64, count int) error
}

// Repo is the SQLite Store.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const movieColumns = `id, title, genre, release_year, director, cast_members, synopsis,
	poster_url, trailer_url, average_rating, review_count, imdb_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovie(row rowScanner) (models.Movie, error) {
	var (
		m         models.Movie
		genreJSON string
		castJSON  string
		imdbID    sql.NullString
	)
	if err := row.Scan(
		&m.ID, &m.Title, &genreJSON, &m.ReleaseYear, &m.Director, &castJSON, &m.Synopsis,
		&m.PosterURL, &m.TrailerURL, &m.AverageRating, &m.ReviewCount, &imdbID, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return m, err
	}
	m.ImdbID = imdbID.String
	if err := json.Unmarshal([]byte(genreJSON), &m.Genre); err != nil {
		return m, fmt.Errorf("decode genre of movie %s: %w", m.ID, err)
	}
	if err := json.Unmarshal([]byte(castJSON), &m.Cast); err != nil {
		return m, fmt.Errorf("decode cast of movie %s: %w", m.ID, err)
	}
	if m.Genre == nil {
		m.Genre = []string{}
	}
	if m.Cast == nil {
		m.Cast = []string{}
	}
	return m, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.Movie, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = ?`, id)
	m, err := scanMovie(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByID: %w", err)
	}
	return &m, nil
}

func (r *Repo) GetByImdbID(ctx context.Context, imdbID string) (*models.Movie, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE imdb_id = ?`, imdbID)
	m, err := scanMovie(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByImdbID: %w", err)
	}
	return &m, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Movie, int, error) {
	q = q.Normalize()

	countSQL, countArgs := buildListSQL(q, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count movies: %w", err)
	}

	listSQL, args := buildListSQL(q, false)
	rows, err := r.DB.QueryContext(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := make([]models.Movie, 0, q.Limit)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}
	return out, total, nil
}

// buildListSQL builds either COUNT(*) or the paged SELECT.
func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	sqlStr := `SELECT ` + movieColumns + ` FROM movies`
	if countOnly {
		sqlStr = `SELECT COUNT(*) FROM movies`
	}

	var where []string
	var args []any

	if q.Search != "" {
		where = append(where, `LOWER(title) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(q.Search))+"%")
	}
	if q.Genre != "" {
		where = append(where, `EXISTS (SELECT 1 FROM json_each(movies.genre) g WHERE LOWER(g.value) = ?)`)
		args = append(args, strings.ToLower(q.Genre))
	}
	if q.Year > 0 {
		where = append(where, "release_year = ?")
		args = append(args, q.Year)
	}

	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		sqlStr += " ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset())
	}
	return sqlStr, args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func nullableImdb(id string) sql.NullString {
	if id == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: id, Valid: true}
}

func (r *Repo) Create(ctx context.Context, m *models.Movie) error {
	genreJSON, err := json.Marshal(nonNil(m.Genre))
	if err != nil {
		return fmt.Errorf("marshal genre: %w", err)
	}
	castJSON, err := json.Marshal(nonNil(m.Cast))
	if err != nil {
		return fmt.Errorf("marshal cast: %w", err)
	}

	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO movies (id, title, genre, release_year, director, cast_members, synopsis,
			poster_url, trailer_url, average_rating, review_count, imdb_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?, ?)
	`, m.ID, m.Title, string(genreJSON), m.ReleaseYear, m.Director, string(castJSON), m.Synopsis,
		m.PosterURL, m.TrailerURL, nullableImdb(m.ImdbID), m.CreatedAt, m.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "movies.imdb_id") {
			return ErrDuplicateImdbID
		}
		return fmt.Errorf("insert movie: %w", err)
	}
	m.AverageRating, m.ReviewCount = 0, 0
	return nil
}

// Update writes the editable fields of m. Derived rating fields are left
// alone.
func (r *Repo) Update(ctx context.Context, m *models.Movie) error {
	genreJSON, err := json.Marshal(nonNil(m.Genre))
	if err != nil {
		return fmt.Errorf("marshal genre: %w", err)
	}
	castJSON, err := json.Marshal(nonNil(m.Cast))
	if err != nil {
		return fmt.Errorf("marshal cast: %w", err)
	}
	m.UpdatedAt = time.Now().UTC()

	_, err = r.DB.ExecContext(ctx, `
		UPDATE movies
		SET title = ?, genre = ?, release_year = ?, director = ?, cast_members = ?, synopsis = ?,
			poster_url = ?, trailer_url = ?, imdb_id = ?, updated_at = ?
		WHERE id = ?
	`, m.Title, string(genreJSON), m.ReleaseYear, m.Director, string(castJSON), m.Synopsis,
		m.PosterURL, m.TrailerURL, nullableImdb(m.ImdbID), m.UpdatedAt, m.ID)
	if err != nil {
		if database.IsUniqueViolation(err, "movies.imdb_id") {
			return ErrDuplicateImdbID
		}
		return fmt.Errorf("update movie: %w", err)
	}
	return nil
}

// Delete removes the movie; reviews and watchlist rows go with it through
// ON DELETE CASCADE.
func (r *Repo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete movie: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) UpdateRating(ctx context.Context, id string, average float64, count int) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE movies
		SET average_rating = ?, review_count = ?
		WHERE id = ?
	`, average, count, id)
	if err != nil {
		return fmt.Errorf("update rating: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
