package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"moviehub/internal/movies"
	"moviehub/internal/stores"
	"moviehub/pkg/models"
	"moviehub/pkg/utils"
)

const pageSize = 100

type MovieLister interface {
	List(ctx context.Context, q movies.ListQuery) ([]models.Movie, int, error)
}

type ReviewLister interface {
	ListAll(ctx context.Context, page, limit int) ([]models.Review, int, error)
}

func main() {
	var (
		moviesOut  = flag.String("movies", "data/movies.csv", "output CSV path for movies")
		reviewsOut = flag.String("reviews", "data/reviews.csv", "output CSV path for reviews")
	)
	flag.Parse()

	utils.LoadEnv()
	utils.SetupLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	st, err := stores.Open(ctx, utils.LoadStoreConfig())
	if err != nil {
		log.WithError(err).Fatal("[export] open store failed")
	}
	defer st.Close()

	n, err := writeFile(*moviesOut, func(w io.Writer) (int, error) { return exportMovies(ctx, st.Movies, w) })
	if err != nil {
		log.WithError(err).Fatal("[export] export movies failed")
	}
	log.WithFields(log.Fields{"file": *moviesOut, "rows": n}).Info("[export] movies written")

	n, err = writeFile(*reviewsOut, func(w io.Writer) (int, error) { return exportReviews(ctx, st.Reviews, w) })
	if err != nil {
		log.WithError(err).Fatal("[export] export reviews failed")
	}
	log.WithFields(log.Fields{"file": *reviewsOut, "rows": n}).Info("[export] reviews written")
}

func writeFile(path string, write func(io.Writer) (int, error)) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := write(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// exportMovies writes the catalog in the column layout import-csv reads,
// plus the derived rating columns.
func exportMovies(ctx context.Context, store MovieLister, out io.Writer) (int, error) {
	w := csv.NewWriter(out)
	if err := w.Write([]string{
		"id", "title", "genre", "release_year", "director", "cast", "synopsis",
		"poster_url", "trailer_url", "imdb_id", "average_rating", "review_count",
	}); err != nil {
		return 0, err
	}

	written := 0
	for page := 1; ; page++ {
		items, total, err := store.List(ctx, movies.ListQuery{Page: page, Limit: pageSize})
		if err != nil {
			return written, err
		}
		for _, m := range items {
			if err := w.Write([]string{
				m.ID,
				m.Title,
				strings.Join(m.Genre, "|"),
				strconv.Itoa(m.ReleaseYear),
				m.Director,
				strings.Join(m.Cast, "|"),
				m.Synopsis,
				m.PosterURL,
				m.TrailerURL,
				m.ImdbID,
				strconv.FormatFloat(m.AverageRating, 'f', -1, 64),
				strconv.Itoa(m.ReviewCount),
			}); err != nil {
				return written, err
			}
			written++
		}
		if len(items) == 0 || page*pageSize >= total {
			break
		}
	}

	w.Flush()
	return written, w.Error()
}

func exportReviews(ctx context.Context, store ReviewLister, out io.Writer) (int, error) {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"id", "user_id", "username", "movie_id", "rating", "review_text", "timestamp", "updated_at"}); err != nil {
		return 0, err
	}

	written := 0
	for page := 1; ; page++ {
		items, total, err := store.ListAll(ctx, page, pageSize)
		if err != nil {
			return written, err
		}
		for _, rv := range items {
			if err := w.Write([]string{
				rv.ID,
				rv.UserID,
				rv.Username,
				rv.MovieID,
				strconv.Itoa(rv.Rating),
				rv.ReviewText,
				rv.Timestamp.UTC().Format(time.RFC3339),
				rv.UpdatedAt.UTC().Format(time.RFC3339),
			}); err != nil {
				return written, err
			}
			written++
		}
		if len(items) == 0 || page*pageSize >= total {
			break
		}
	}

	w.Flush()
	return written, w.Error()
}
