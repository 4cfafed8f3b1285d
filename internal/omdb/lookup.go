package omdb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"moviehub/internal/cache"
	"moviehub/pkg/models"
)

var ErrEmptyQuery = errors.New("search is required")

const DefaultTTL = 30 * time.Minute

// Lookup answers external searches from the cache when a stored response
// is younger than TTL and from the provider otherwise. Only successful
// provider answers are stored, keyed by the constructed query string.
type Lookup struct {
	Provider Provider
	Cache    cache.Cache
	TTL      time.Duration
	Now      func() time.Time

	group singleflight.Group
}

func NewLookup(p Provider, c cache.Cache, ttl time.Duration) *Lookup {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Lookup{Provider: p, Cache: c, TTL: ttl, Now: time.Now}
}

// SearchParams builds the provider parameters for q. OMDB has no genre
// filter, so a genre narrows the free text instead.
func SearchParams(q models.LookupQuery) url.Values {
	text := q.Search
	if q.Genre != "" {
		text += " " + q.Genre
	}
	v := url.Values{}
	v.Set("s", text)
	if q.Year > 0 {
		v.Set("y", strconv.Itoa(q.Year))
	}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("type", "movie")
	return v
}

// Search runs q. When the attempt fails and q carries a genre or year, it
// retries once without them; that fallback answer is never cached. If the
// provider reported no match on the final attempt the result is empty,
// otherwise the error wraps ErrUpstreamUnavailable.
func (l *Lookup) Search(ctx context.Context, q models.LookupQuery) (*models.LookupResult, error) {
	q.Search = strings.TrimSpace(q.Search)
	q.Genre = strings.TrimSpace(q.Genre)
	if q.Search == "" {
		return nil, ErrEmptyQuery
	}
	if q.Page < 1 {
		q.Page = 1
	}

	res, err := l.search(ctx, q, true)
	if err == nil {
		return res, nil
	}
	if !q.HasFilters() {
		return l.finalFailure(q, err)
	}

	log.WithFields(log.Fields{
		"component": "omdb",
		"search":    q.Search,
		"genre":     q.Genre,
		"year":      q.Year,
	}).WithError(err).Info("lookup failed, retrying without filters")

	res, err = l.search(ctx, q.WithoutFilters(), false)
	if err != nil {
		return l.finalFailure(q, err)
	}
	res.Query = q
	res.Fallback = true
	return res, nil
}

func (l *Lookup) finalFailure(q models.LookupQuery, err error) (*models.LookupResult, error) {
	if errors.Is(err, ErrNoResults) {
		return &models.LookupResult{Query: q, Results: []models.LookupHit{}}, nil
	}
	return nil, err
}

func (l *Lookup) search(ctx context.Context, q models.LookupQuery, cached bool) (*models.LookupResult, error) {
	params := SearchParams(q)
	key := params.Encode()

	if cached {
		if body, ok := l.fresh(ctx, key); ok {
			hits, total, err := decodeSearch(body)
			if err == nil {
				return &models.LookupResult{Query: q, Results: hits, TotalResults: total, Cached: true}, nil
			}
		}
	}

	body, err := l.fetch(ctx, key, params)
	if err != nil {
		return nil, err
	}
	hits, total, err := decodeSearch(body)
	if err != nil {
		return nil, err
	}
	if cached {
		l.store(ctx, key, body)
	}
	return &models.LookupResult{Query: q, Results: hits, TotalResults: total}, nil
}

// ByID fetches the full record for an IMDb id.
func (l *Lookup) ByID(ctx context.Context, imdbID string) (*models.ExternalMovie, error) {
	imdbID = strings.TrimSpace(imdbID)
	if imdbID == "" {
		return nil, ErrEmptyQuery
	}
	params := url.Values{}
	params.Set("i", imdbID)
	params.Set("plot", "full")
	return l.title(ctx, params)
}

// ByTitle fetches the best match for an exact title.
func (l *Lookup) ByTitle(ctx context.Context, title string) (*models.ExternalMovie, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyQuery
	}
	params := url.Values{}
	params.Set("t", title)
	params.Set("plot", "full")
	return l.title(ctx, params)
}

func (l *Lookup) title(ctx context.Context, params url.Values) (*models.ExternalMovie, error) {
	key := params.Encode()
	if body, ok := l.fresh(ctx, key); ok {
		if m, err := decodeTitle(body); err == nil {
			return m, nil
		}
	}

	body, err := l.fetch(ctx, key, params)
	if err != nil {
		return nil, err
	}
	m, err := decodeTitle(body)
	if err != nil {
		return nil, err
	}
	l.store(ctx, key, body)
	return m, nil
}

// fetch collapses concurrent identical provider calls into one. The shared
// call runs detached from any single caller's cancellation (the client
// timeout still bounds it); each caller stops waiting when its own ctx ends.
func (l *Lookup) fetch(ctx context.Context, key string, params url.Values) ([]byte, error) {
	ch := l.group.DoChan(key, func() (any, error) {
		return l.Provider.Fetch(context.WithoutCancel(ctx), params)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch %q: %w", key, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("fetch %q: %w", key, res.Err)
		}
		if res.Shared {
			log.WithField("component", "omdb").Debugf("shared provider call for %q", key)
		}
		return res.Val.([]byte), nil
	}
}

func (l *Lookup) fresh(ctx context.Context, key string) ([]byte, bool) {
	if l.Cache == nil {
		return nil, false
	}
	e, ok, err := l.Cache.Get(ctx, key)
	if err != nil {
		log.WithField("component", "omdb").WithError(err).Warn("cache read failed")
		return nil, false
	}
	if !ok || l.Now().Sub(e.StoredAt) >= l.TTL {
		return nil, false
	}
	return e.Value, true
}

func (l *Lookup) store(ctx context.Context, key string, body []byte) {
	if l.Cache == nil {
		return
	}
	if err := l.Cache.Set(ctx, key, cache.Entry{Value: body, StoredAt: l.Now()}); err != nil {
		log.WithField("component", "omdb").WithError(err).Warn("cache write failed")
	}
}
