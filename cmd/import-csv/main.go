package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"moviehub/internal/movies"
	"moviehub/internal/stores"
	"moviehub/pkg/models"
	"moviehub/pkg/utils"
)

// Catalog is what the importer needs from the movie store.
type Catalog interface {
	GetByImdbID(ctx context.Context, imdbID string) (*models.Movie, error)
	Create(ctx context.Context, m *models.Movie) error
	Update(ctx context.Context, m *models.Movie) error
}

type stats struct {
	Created, Updated, Skipped int
}

func main() {
	in := flag.String("movies", "data/movies.csv", "input CSV path for movies")
	flag.Parse()

	utils.LoadEnv()
	utils.SetupLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	st, err := stores.Open(ctx, utils.LoadStoreConfig())
	if err != nil {
		log.WithError(err).Fatal("[import] open store failed")
	}
	defer st.Close()

	f, err := os.Open(*in)
	if err != nil {
		log.WithError(err).Fatal("[import] open csv failed")
	}
	defer f.Close()

	s, err := importMovies(ctx, st.Movies, f)
	if err != nil {
		log.WithError(err).Fatal("[import] import movies failed")
	}

	log.WithFields(log.Fields{
		"file":    *in,
		"created": s.Created,
		"updated": s.Updated,
		"skipped": s.Skipped,
	}).Info("[import] done")
}

// importMovies reads movie rows and upserts them. Rows with an imdb_id that
// is already in the catalog update that movie; everything else is created.
func importMovies(ctx context.Context, catalog Catalog, src io.Reader) (stats, error) {
	var s stats

	r := csv.NewReader(src)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return s, err
	}

	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return s, err
		}
		line++
		if len(row) == 0 {
			continue
		}

		m, err := parseMovie(ctx, header, row)
		if err != nil {
			log.WithError(err).WithField("line", line).Warn("[import] skipping row")
			s.Skipped++
			continue
		}

		if m.ImdbID != "" {
			existing, err := catalog.GetByImdbID(ctx, m.ImdbID)
			if err != nil {
				return s, fmt.Errorf("line %d: %w", line, err)
			}
			if existing != nil {
				m.ID = existing.ID
				m.CreatedAt = existing.CreatedAt
				if err := catalog.Update(ctx, m); err != nil {
					return s, fmt.Errorf("line %d: update %s: %w", line, m.ImdbID, err)
				}
				s.Updated++
				continue
			}
		}

		m.ID = uuid.NewString()
		if err := catalog.Create(ctx, m); err != nil {
			if errors.Is(err, movies.ErrDuplicateImdbID) {
				s.Skipped++
				continue
			}
			return s, fmt.Errorf("line %d: create %q: %w", line, m.Title, err)
		}
		s.Created++
	}

	return s, nil
}

func parseMovie(ctx context.Context, header map[string]int, row []string) (*models.Movie, error) {
	m := &models.Movie{
		Title:      valueAt(header, row, "title"),
		Genre:      splitList(valueAt(header, row, "genre")),
		Director:   valueAt(header, row, "director"),
		Cast:       splitList(valueAt(header, row, "cast")),
		Synopsis:   valueAt(header, row, "synopsis"),
		PosterURL:  valueAt(header, row, "poster_url"),
		TrailerURL: valueAt(header, row, "trailer_url"),
		ImdbID:     valueAt(header, row, "imdb_id"),
	}

	year, err := strconv.Atoi(valueAt(header, row, "release_year"))
	if err != nil {
		return nil, fmt.Errorf("parse release_year for %q: %w", m.Title, err)
	}
	m.ReleaseYear = year
	if err := movies.Validate(ctx, m); err != nil {
		return nil, errors.New(movies.ValidationMessage(err))
	}
	return m, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// splitList parses "Drama|Crime" style cells.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	return movies.TrimList(strings.Split(raw, "|"))
}
