package movies

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviehub/pkg/database"
	"moviehub/pkg/models"
)

type stubReviews map[string][]models.Review

func (s stubReviews) ListByMovie(_ context.Context, movieID string) ([]models.Review, error) {
	return s[movieID], nil
}

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "movies.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))
	return NewRepo(db)
}

func newTestRouter(t *testing.T, repo *Repo, reviews ReviewLister) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewHandler(repo, reviews)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/movies"))
	h.RegisterAdminRoutes(r.Group("/api/movies"))
	return r
}

func seed(t *testing.T, repo *Repo, id, title string, year int, genres ...string) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &models.Movie{
		ID: id, Title: title, Genre: genres, ReleaseYear: year,
		Director: "D", Synopsis: "S", CreatedAt: time.Now().UTC(),
	}))
	// distinct created_at values keep the newest-first order stable
	time.Sleep(2 * time.Millisecond)
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type listBody struct {
	Movies      []models.Movie `json:"movies"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
	Total       int            `json:"total"`
}

func TestListFiltersAndPages(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo, "m1", "Alien", 1979, "Horror", "Sci-Fi")
	seed(t, repo, "m2", "Aliens", 1986, "Action", "Sci-Fi")
	seed(t, repo, "m3", "Heat", 1995, "Crime")
	seed(t, repo, "m4", "100%_Real", 2020, "Drama")
	r := newTestRouter(t, repo, nil)

	var body listBody
	w := doJSON(r, http.MethodGet, "/api/movies?search=ALIEN", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)
	assert.Equal(t, "m2", body.Movies[0].ID)

	body = listBody{}
	w = doJSON(r, http.MethodGet, "/api/movies?genre=sci-fi&year=1979", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Movies, 1)
	assert.Equal(t, "m1", body.Movies[0].ID)
	assert.Equal(t, []string{"Horror", "Sci-Fi"}, body.Movies[0].Genre)

	body = listBody{}
	w = doJSON(r, http.MethodGet, "/api/movies?search=%25_", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Movies, 1)
	assert.Equal(t, "m4", body.Movies[0].ID)

	body = listBody{}
	w = doJSON(r, http.MethodGet, "/api/movies?limit=3&page=2", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Total)
	assert.Equal(t, 2, body.TotalPages)
	assert.Equal(t, 2, body.CurrentPage)
	require.Len(t, body.Movies, 1)
	assert.Equal(t, "m1", body.Movies[0].ID)

	body = listBody{}
	w = doJSON(r, http.MethodGet, "/api/movies?limit=500&page=-3", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.CurrentPage)
	assert.Equal(t, 1, body.TotalPages)
}

func TestGetIncludesReviews(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo, "m1", "Alien", 1979, "Horror")
	reviews := stubReviews{"m1": {{ID: "r1", MovieID: "m1", Rating: 5, ReviewText: "classic"}}}
	r := newTestRouter(t, repo, reviews)

	w := doJSON(r, http.MethodGet, "/api/movies/m1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Movie   models.Movie    `json:"movie"`
		Reviews []models.Review `json:"reviews"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Alien", body.Movie.Title)
	require.Len(t, body.Reviews, 1)
	assert.Equal(t, "classic", body.Reviews[0].ReviewText)

	w = doJSON(r, http.MethodGet, "/api/movies/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateValidates(t *testing.T) {
	r := newTestRouter(t, newTestRepo(t), nil)

	w := doJSON(r, http.MethodPost, "/api/movies", gin.H{"title": "  ", "genre": []string{"Drama"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Validation failed")

	valid := gin.H{
		"title": "Heat", "genre": []string{" Crime ", ""}, "releaseYear": 1995,
		"director": "Michael Mann", "synopsis": "Cops and robbers", "imdbID": "tt0113277",
		"averageRating": 5, "reviewCount": 99,
	}
	w = doJSON(r, http.MethodPost, "/api/movies", valid)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var m models.Movie
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, []string{"Crime"}, m.Genre)
	assert.Equal(t, 0.0, m.AverageRating)
	assert.Equal(t, 0, m.ReviewCount)

	w = doJSON(r, http.MethodPost, "/api/movies", valid)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "imdbID already exists")
}

func TestUpdateAndDelete(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo, "m1", "Alien", 1979, "Horror")
	require.NoError(t, repo.UpdateRating(context.Background(), "m1", 4.5, 2))
	r := newTestRouter(t, repo, nil)

	w := doJSON(r, http.MethodPut, "/api/movies/m1", gin.H{"title": "Alien (Director's Cut)", "averageRating": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	m, err := repo.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "Alien (Director's Cut)", m.Title)
	assert.Equal(t, 1979, m.ReleaseYear)
	assert.Equal(t, 4.5, m.AverageRating)
	assert.Equal(t, 2, m.ReviewCount)

	w = doJSON(r, http.MethodPut, "/api/movies/m1", gin.H{"releaseYear": 1500})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(r, http.MethodPut, "/api/movies/missing", gin.H{"title": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodDelete, "/api/movies/m1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Movie removed"}`, w.Body.String())
	w = doJSON(r, http.MethodDelete, "/api/movies/m1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateRejectsBlankFields(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo, "m1", "Alien", 1979, "Horror")
	r := newTestRouter(t, repo, nil)

	for _, body := range []gin.H{
		{"title": "   "},
		{"genre": []string{"  "}},
		{"genre": []string{}},
		{"director": "\t"},
		{"synopsis": " "},
		{"posterUrl": "not a url"},
		{"trailerUrl": "  ftp//broken "},
	} {
		w := doJSON(r, http.MethodPut, "/api/movies/m1", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, fmt.Sprint(body))
	}

	w := doJSON(r, http.MethodPut, "/api/movies/m1", gin.H{"posterUrl": "not a url"})
	assert.JSONEq(t, `{"error":"Validation failed: PosterURL failed url"}`, w.Body.String())

	m, err := repo.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "Alien", m.Title)
	assert.Equal(t, []string{"Horror"}, m.Genre)
	assert.Equal(t, "D", m.Director)
	assert.Equal(t, "S", m.Synopsis)
}

func TestUpdateTrimsFields(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo, "m1", "Alien", 1979, "Horror")
	r := newTestRouter(t, repo, nil)

	w := doJSON(r, http.MethodPut, "/api/movies/m1", gin.H{
		"title":     "  Aliens ",
		"genre":     []string{" Action ", "", "Horror"},
		"posterUrl": " https://img.example.com/aliens.jpg ",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	m, err := repo.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "Aliens", m.Title)
	assert.Equal(t, []string{"Action", "Horror"}, m.Genre)
	assert.Equal(t, "https://img.example.com/aliens.jpg", m.PosterURL)

	w = doJSON(r, http.MethodPut, "/api/movies/m1", gin.H{"posterUrl": ""})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	m, err = repo.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Empty(t, m.PosterURL)
}

func TestCorruptListColumnIsAnError(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo, "m1", "Alien", 1979, "Horror")
	seed(t, repo, "m2", "Heat", 1995, "Crime")
	_, err := repo.DB.Exec(`UPDATE movies SET genre = 'not json' WHERE id = 'm1'`)
	require.NoError(t, err)

	_, err = repo.GetByID(context.Background(), "m1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode genre")

	_, err = repo.DB.Exec(`UPDATE movies SET cast_members = '{' WHERE id = 'm2'`)
	require.NoError(t, err)
	_, err = repo.GetByID(context.Background(), "m2")
	assert.ErrorContains(t, err, "decode cast")

	_, _, err = repo.List(context.Background(), ListQuery{})
	assert.Error(t, err)

	r := newTestRouter(t, repo, nil)
	w := doJSON(r, http.MethodGet, "/api/movies/m1", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestListHugePage(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo, "m1", "Alien", 1979, "Horror")
	r := newTestRouter(t, repo, nil)

	w := doJSON(r, http.MethodGet, "/api/movies?page=9223372036854775807&limit=100", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Movies      []models.Movie `json:"movies"`
		CurrentPage int            `json:"currentPage"`
		Total       int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, MaxPage, body.CurrentPage)
	assert.Equal(t, 1, body.Total)
	assert.Empty(t, body.Movies)
}

func TestListQueryNormalize(t *testing.T) {
	for _, tc := range []struct{ page, limit, wantPage, wantLimit int }{
		{0, 0, 1, 10},
		{3, 100, 3, 100},
		{2, 101, 2, 10},
		{MaxPage + 1, 10, MaxPage, 10},
		{math.MaxInt, 100, MaxPage, 100},
	} {
		q := ListQuery{Page: tc.page, Limit: tc.limit}.Normalize()
		assert.Equal(t, tc.wantPage, q.Page, fmt.Sprint(tc))
		assert.Equal(t, tc.wantLimit, q.Limit, fmt.Sprint(tc))
	}
}
