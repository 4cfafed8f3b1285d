package omdb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"moviehub/internal/movies"
	"moviehub/pkg/models"
)

// ErrIncompleteRecord marks an OMDB record that lacks fields every catalog
// entry needs (director, plot, genre, ...).
var ErrIncompleteRecord = errors.New("incomplete movie record")

// Import resolves imdbID (or, when empty, title) through the lookup and adds
// the movie to the catalog. An IMDb id already in the catalog fails with
// movies.ErrDuplicateImdbID; a record that would not pass as a create
// request fails with ErrIncompleteRecord.
func Import(ctx context.Context, l *Lookup, catalog Catalog, imdbID, title string) (*models.Movie, error) {
	imdbID = strings.TrimSpace(imdbID)
	title = strings.TrimSpace(title)

	var (
		ext *models.ExternalMovie
		err error
	)
	if imdbID != "" {
		ext, err = l.ByID(ctx, imdbID)
	} else {
		ext, err = l.ByTitle(ctx, title)
	}
	if err != nil {
		return nil, err
	}

	existing, err := catalog.GetByImdbID(ctx, ext.ImdbID)
	if err != nil {
		return nil, fmt.Errorf("check catalog: %w", err)
	}
	if existing != nil {
		return nil, movies.ErrDuplicateImdbID
	}

	m := ToMovie(ext)
	if err := movies.Validate(ctx, m); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrIncompleteRecord, movies.ValidationMessage(err))
	}
	m.ID = uuid.NewString()
	if err := catalog.Create(ctx, m); err != nil {
		if errors.Is(err, movies.ErrDuplicateImdbID) {
			return nil, err
		}
		return nil, fmt.Errorf("create movie: %w", err)
	}
	return m, nil
}

// ToMovie maps an OMDB record onto a new catalog entry. Ratings start
// empty; the IMDb rating is not carried over.
func ToMovie(ext *models.ExternalMovie) *models.Movie {
	return &models.Movie{
		Title:       ext.Title,
		Genre:       ext.Genre,
		ReleaseYear: ext.Year,
		Director:    ext.Director,
		Cast:        ext.Cast,
		Synopsis:    ext.Plot,
		PosterURL:   ext.PosterURL,
		ImdbID:      ext.ImdbID,
	}
}

func isLookupErr(err error) bool {
	return errors.Is(err, ErrEmptyQuery) || errors.Is(err, ErrNoResults) || errors.Is(err, ErrUpstreamUnavailable)
}
