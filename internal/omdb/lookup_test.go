package omdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviehub/internal/cache"
	"moviehub/pkg/models"
)

const alienSearch = `{"Search":[{"Title":"Alien","Year":"1979","imdbID":"tt0078748","Type":"movie","Poster":"N/A"}],"totalResults":"1","Response":"True"}`

// fakeOMDB records every request and answers with respond.
type fakeOMDB struct {
	calls   atomic.Int32
	mu      sync.Mutex
	queries []string
	respond func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeOMDB) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	f.mu.Lock()
	f.queries = append(f.queries, r.URL.RawQuery)
	f.mu.Unlock()
	f.respond(w, r)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newLookup(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) (*Lookup, *fakeOMDB, *clock) {
	t.Helper()
	fake := &fakeOMDB{respond: respond}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	clk := &clock{t: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
	l := NewLookup(NewClient(srv.URL, "secret", 2*time.Second), cache.NewMemory(100, DefaultTTL), DefaultTTL)
	l.Now = clk.now
	return l, fake, clk
}

func respondWith(body string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestSearchParams(t *testing.T) {
	p := SearchParams(models.LookupQuery{Search: "alien", Genre: "horror", Year: 1979, Page: 2})
	assert.Equal(t, "page=2&s=alien+horror&type=movie&y=1979", p.Encode())

	p = SearchParams(models.LookupQuery{Search: "alien", Page: 1})
	assert.Equal(t, "page=1&s=alien&type=movie", p.Encode())
}

func TestSearchServesRepeatsFromCache(t *testing.T) {
	l, fake, _ := newLookup(t, respondWith(alienSearch))
	ctx := context.Background()

	first, err := l.Search(ctx, models.LookupQuery{Search: "alien"})
	require.NoError(t, err)
	assert.False(t, first.Cached)
	require.Len(t, first.Results, 1)
	assert.Equal(t, "tt0078748", first.Results[0].ImdbID)
	assert.Equal(t, "", first.Results[0].PosterURL)
	assert.Equal(t, 1, first.TotalResults)

	second, err := l.Search(ctx, models.LookupQuery{Search: "alien"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Results, second.Results)
	assert.Equal(t, int32(1), fake.calls.Load())

	// the api key goes upstream but never into the cache key
	assert.Contains(t, fake.queries[0], "apikey=secret")
	_, found, _ := l.Cache.Get(ctx, "page=1&s=alien&type=movie")
	assert.True(t, found)
}

func TestSearchRefetchesAfterTTL(t *testing.T) {
	l, fake, clk := newLookup(t, respondWith(alienSearch))
	ctx := context.Background()

	_, err := l.Search(ctx, models.LookupQuery{Search: "alien"})
	require.NoError(t, err)

	clk.advance(29 * time.Minute)
	res, err := l.Search(ctx, models.LookupQuery{Search: "alien"})
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, int32(1), fake.calls.Load())

	clk.advance(2 * time.Minute)
	res, err = l.Search(ctx, models.LookupQuery{Search: "alien"})
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, int32(2), fake.calls.Load())
}

func TestSearchFallsBackWithoutFilters(t *testing.T) {
	l, fake, _ := newLookup(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("y") != "" {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		respondWith(alienSearch)(w, r)
	})
	ctx := context.Background()
	q := models.LookupQuery{Search: "alien", Genre: "horror", Year: 1979}

	res, err := l.Search(ctx, q)
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, "horror", res.Query.Genre)
	require.Len(t, res.Results, 1)
	require.Equal(t, int32(2), fake.calls.Load())
	assert.Contains(t, fake.queries[1], "s=alien&")
	assert.NotContains(t, fake.queries[1], "&y=")

	// fallback answers are not cached, so the same query goes upstream again
	_, err = l.Search(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int32(4), fake.calls.Load())
	n, _ := l.Cache.Len(ctx)
	assert.Equal(t, 0, n)
}

func TestSearchUnavailableAfterFallbackFails(t *testing.T) {
	l, fake, _ := newLookup(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})

	_, err := l.Search(context.Background(), models.LookupQuery{Search: "alien", Year: 1979})
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, int32(2), fake.calls.Load())
}

func TestSearchWithoutFiltersDoesNotRetry(t *testing.T) {
	l, fake, _ := newLookup(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	})

	_, err := l.Search(context.Background(), models.LookupQuery{Search: "alien"})
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, int32(1), fake.calls.Load())
}

func TestSearchNoMatchIsEmptyAndUncached(t *testing.T) {
	l, fake, _ := newLookup(t, respondWith(`{"Response":"False","Error":"Movie not found!"}`))
	ctx := context.Background()

	res, err := l.Search(ctx, models.LookupQuery{Search: "zzzz", Genre: "drama"})
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.NotNil(t, res.Results)
	assert.Equal(t, int32(2), fake.calls.Load())

	n, _ := l.Cache.Len(ctx)
	assert.Equal(t, 0, n)
}

func TestSearchTimeoutIsUnavailable(t *testing.T) {
	release := make(chan struct{})
	l, _, _ := newLookup(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	l.Provider.(*Client).HTTP.Timeout = 50 * time.Millisecond

	_, err := l.Search(context.Background(), models.LookupQuery{Search: "alien"})
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestSearchRequiresText(t *testing.T) {
	l, fake, _ := newLookup(t, respondWith(alienSearch))
	_, err := l.Search(context.Background(), models.LookupQuery{Search: "   ", Genre: "drama"})
	require.ErrorIs(t, err, ErrEmptyQuery)
	assert.Equal(t, int32(0), fake.calls.Load())
}

const matrixTitle = `{"Title":"The Matrix","Year":"1999","Genre":"Action, Sci-Fi","Director":"Lana Wachowski, Lilly Wachowski",
"Actors":"Keanu Reeves, Laurence Fishburne","Plot":"A hacker learns the truth.","Poster":"https://img/matrix.jpg",
"imdbRating":"8.7","imdbID":"tt0133093","Response":"True"}`

func TestByIDDecodesAndCaches(t *testing.T) {
	l, fake, _ := newLookup(t, respondWith(matrixTitle))
	ctx := context.Background()

	m, err := l.ByID(ctx, "tt0133093")
	require.NoError(t, err)
	assert.Equal(t, "The Matrix", m.Title)
	assert.Equal(t, 1999, m.Year)
	assert.Equal(t, []string{"Action", "Sci-Fi"}, m.Genre)
	assert.Equal(t, []string{"Keanu Reeves", "Laurence Fishburne"}, m.Cast)
	assert.Equal(t, 8.7, m.ImdbRating)

	_, err = l.ByID(ctx, "tt0133093")
	require.NoError(t, err)
	assert.Equal(t, int32(1), fake.calls.Load())
	assert.Contains(t, fake.queries[0], "i=tt0133093")
}

func TestByIDNotFound(t *testing.T) {
	l, _, _ := newLookup(t, respondWith(`{"Response":"False","Error":"Incorrect IMDb ID."}`))
	_, err := l.ByID(context.Background(), "tt000")
	require.ErrorIs(t, err, ErrNoResults)
}

func TestParseYear(t *testing.T) {
	assert.Equal(t, 1999, parseYear("1999"))
	assert.Equal(t, 2005, parseYear("2005–2010"))
	assert.Equal(t, 0, parseYear("N/A"))
}

// gatedProvider blocks every call until release is closed.
type gatedProvider struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (p *gatedProvider) Fetch(ctx context.Context, _ url.Values) ([]byte, error) {
	if p.calls.Add(1) == 1 {
		close(p.started)
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.release:
		return []byte(matrixTitle), nil
	}
}

func TestSharedFetchSurvivesCallerCancel(t *testing.T) {
	p := &gatedProvider{started: make(chan struct{}), release: make(chan struct{})}
	l := NewLookup(p, cache.NewMemory(10, DefaultTTL), DefaultTTL)

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	errA := make(chan error, 1)
	go func() {
		_, err := l.ByID(ctxA, "tt0133093")
		errA <- err
	}()
	<-p.started

	type outcome struct {
		m   *models.ExternalMovie
		err error
	}
	resB := make(chan outcome, 1)
	go func() {
		m, err := l.ByID(context.Background(), "tt0133093")
		resB <- outcome{m, err}
	}()
	// give B time to join the in-flight call
	time.Sleep(50 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(p.release)
	select {
	case out := <-resB:
		require.NoError(t, out.err)
		assert.Equal(t, "The Matrix", out.m.Title)
	case <-time.After(2 * time.Second):
		t.Fatal("joined caller never returned")
	}
	assert.Equal(t, int32(1), p.calls.Load())
}
