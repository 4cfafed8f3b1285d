package reviews

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviehub/internal/auth"
	"moviehub/internal/events"
	"moviehub/internal/movies"
	"moviehub/internal/rating"
	"moviehub/pkg/database"
	"moviehub/pkg/models"
)

type recordedEvents struct {
	mu  sync.Mutex
	got []events.Event
}

func (r *recordedEvents) Publish(e events.Event) {
	r.mu.Lock()
	r.got = append(r.got, e)
	r.mu.Unlock()
}

type fixture struct {
	db     *sql.DB
	movies *movies.Repo
	store  *Repo
	events *recordedEvents
	router *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))

	users := auth.NewRepo(db)
	for _, id := range []string{"alice", "bob"} {
		require.NoError(t, users.CreateUser(context.Background(), auth.User{
			ID: id, Username: id, Email: id + "@example.com", PasswordHash: "x",
		}))
	}

	f := &fixture{
		db:     db,
		movies: movies.NewRepo(db),
		store:  NewRepo(db),
		events: &recordedEvents{},
		router: gin.New(),
	}
	agg := rating.NewAggregator(f.store, f.movies)
	h := NewHandler(f.store, f.movies, agg, f.events)

	// the test identity comes from a header instead of a JWT
	fakeAuth := func(c *gin.Context) {
		if id := c.GetHeader("X-User"); id != "" {
			c.Set(auth.CtxClaimsKey, &auth.Claims{UserID: id, Username: id})
		}
		c.Next()
	}
	h.RegisterRoutes(f.router.Group("/api/reviews"), fakeAuth)
	return f
}

func (f *fixture) addMovie(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, f.movies.Create(context.Background(), &models.Movie{
		ID: id, Title: "Movie " + id, Genre: []string{"Drama"}, ReleaseYear: 2001,
		Director: "Someone", Synopsis: "Plot",
	}))
}

func (f *fixture) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User", user)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) movie(t *testing.T, id string) *models.Movie {
	t.Helper()
	m, err := f.movies.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, m)
	return m
}

func decodeReview(t *testing.T, w *httptest.ResponseRecorder) models.Review {
	t.Helper()
	var rv models.Review
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rv))
	return rv
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestTwoReviewsAverageToFour(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, "m1")

	w := f.do(t, http.MethodPost, "/api/reviews/m1", "alice", gin.H{"rating": 3, "reviewText": "ok"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = f.do(t, http.MethodPost, "/api/reviews/m1", "bob", gin.H{"rating": 5, "reviewText": "great"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	m := f.movie(t, "m1")
	assert.Equal(t, 4.0, m.AverageRating)
	assert.Equal(t, 2, m.ReviewCount)

	require.Len(t, f.events.got, 2)
	assert.Equal(t, events.ReviewCreate, f.events.got[1].Type)
	assert.Equal(t, 4.0, f.events.got[1].Rating.AverageRating)
}

func TestDuplicateReviewRejected(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, "m1")

	w := f.do(t, http.MethodPost, "/api/reviews/m1", "alice", gin.H{"rating": 4, "reviewText": "first"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodPost, "/api/reviews/m1", "alice", gin.H{"rating": 1, "reviewText": "second"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "You have already reviewed this movie", errorOf(t, w))

	m := f.movie(t, "m1")
	assert.Equal(t, 4.0, m.AverageRating)
	assert.Equal(t, 1, m.ReviewCount)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, "m1")

	cases := []struct {
		name string
		body gin.H
		want string
	}{
		{"rating too high", gin.H{"rating": 6, "reviewText": "x"}, msgBadRating},
		{"rating missing", gin.H{"reviewText": "x"}, msgBadRating},
		{"blank text", gin.H{"rating": 3, "reviewText": "   "}, msgTextMissing},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/reviews/m1", "alice", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.want, errorOf(t, w))
		})
	}

	assert.Equal(t, 0, f.movie(t, "m1").ReviewCount)
}

func TestCreateRequiresAuthAndMovie(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/reviews/m1", "", gin.H{"rating": 3, "reviewText": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/api/reviews/missing", "alice", gin.H{"rating": 3, "reviewText": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNonOwnerCannotMutate(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, "m1")

	w := f.do(t, http.MethodPost, "/api/reviews/m1", "alice", gin.H{"rating": 2, "reviewText": "meh"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeReview(t, w).ID

	w = f.do(t, http.MethodPut, "/api/reviews/"+id, "bob", gin.H{"rating": 5})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = f.do(t, http.MethodDelete, "/api/reviews/"+id, "bob", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	rv, err := f.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, rv)
	assert.Equal(t, 2, rv.Rating)
	assert.Equal(t, "meh", rv.ReviewText)
	assert.Equal(t, 2.0, f.movie(t, "m1").AverageRating)
}

func TestUpdateAndDeleteKeepAggregateInSync(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, "m1")

	w := f.do(t, http.MethodPost, "/api/reviews/m1", "alice", gin.H{"rating": 1, "reviewText": "bad"})
	require.Equal(t, http.StatusCreated, w.Code)
	aliceID := decodeReview(t, w).ID
	w = f.do(t, http.MethodPost, "/api/reviews/m1", "bob", gin.H{"rating": 4, "reviewText": "good"})
	require.Equal(t, http.StatusCreated, w.Code)
	bobID := decodeReview(t, w).ID
	assert.Equal(t, 2.5, f.movie(t, "m1").AverageRating)

	w = f.do(t, http.MethodPut, "/api/reviews/"+aliceID, "alice", gin.H{"rating": 5, "reviewText": "  changed my mind "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeReview(t, w)
	assert.Equal(t, 5, updated.Rating)
	assert.Equal(t, "changed my mind", updated.ReviewText)
	assert.Equal(t, 4.5, f.movie(t, "m1").AverageRating)

	w = f.do(t, http.MethodPut, "/api/reviews/"+aliceID, "alice", gin.H{"rating": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = f.do(t, http.MethodPut, "/api/reviews/"+aliceID, "alice", gin.H{"reviewText": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, msgTextMissing, errorOf(t, w))

	w = f.do(t, http.MethodDelete, "/api/reviews/"+bobID, "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	m := f.movie(t, "m1")
	assert.Equal(t, 5.0, m.AverageRating)
	assert.Equal(t, 1, m.ReviewCount)

	w = f.do(t, http.MethodDelete, "/api/reviews/"+aliceID, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	m = f.movie(t, "m1")
	assert.Equal(t, 0.0, m.AverageRating)
	assert.Equal(t, 0, m.ReviewCount)

	w = f.do(t, http.MethodDelete, "/api/reviews/"+aliceID, "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListAndFeed(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, "m1")
	f.addMovie(t, "m2")

	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/reviews/m1", "alice", gin.H{"rating": 3, "reviewText": "a"}).Code)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/reviews/m2", "alice", gin.H{"rating": 4, "reviewText": "b"}).Code)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/reviews/m2", "bob", gin.H{"rating": 5, "reviewText": "c"}).Code)

	w := f.do(t, http.MethodGet, "/api/reviews/m2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Review
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	for _, rv := range list {
		assert.Equal(t, "m2", rv.MovieID)
		assert.Equal(t, rv.UserID, rv.Username)
	}

	w = f.do(t, http.MethodGet, "/api/reviews?limit=2&page=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var feed struct {
		Reviews     []models.Review `json:"reviews"`
		TotalPages  int             `json:"totalPages"`
		CurrentPage int             `json:"currentPage"`
		Total       int             `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &feed))
	assert.Equal(t, 3, feed.Total)
	assert.Equal(t, 2, feed.TotalPages)
	assert.Equal(t, 2, feed.CurrentPage)
	assert.Len(t, feed.Reviews, 1)
}

func TestFeedClampsHugePage(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, "m1")
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/reviews/m1", "alice", gin.H{"rating": 3, "reviewText": "a"}).Code)

	w := f.do(t, http.MethodGet, "/api/reviews?page=9223372036854775807&limit=100", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var feed struct {
		Reviews     []models.Review `json:"reviews"`
		CurrentPage int             `json:"currentPage"`
		Total       int             `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &feed))
	assert.Equal(t, MaxPage, feed.CurrentPage)
	assert.Equal(t, 1, feed.Total)
	assert.Empty(t, feed.Reviews)

	items, total, err := f.store.ListAll(t.Context(), math.MaxInt, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Empty(t, items)
}

func TestDeletingMovieRemovesReviews(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, "m1")
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/reviews/m1", "alice", gin.H{"rating": 3, "reviewText": "a"}).Code)

	ok, err := f.movies.Delete(context.Background(), "m1")
	require.NoError(t, err)
	require.True(t, ok)

	ratings, err := f.store.RatingsForMovie(context.Background(), "m1")
	require.NoError(t, err)
	assert.Empty(t, ratings)
}
