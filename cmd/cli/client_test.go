package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClientDo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/reviews/m1":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, float64(4), body["rating"])
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"r1"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Movie not found"}`))
		}
	}))
	defer srv.Close()

	api := &apiClient{http: srv.Client(), baseURL: srv.URL + "/api"}

	var out struct {
		ID string `json:"id"`
	}
	err := api.do(context.Background(), http.MethodPost, "/reviews/m1", "tok", map[string]any{"rating": 4}, &out)
	require.NoError(t, err)
	assert.Equal(t, "r1", out.ID)

	err = api.do(context.Background(), http.MethodGet, "/movies/nope", "", nil, nil)
	assert.EqualError(t, err, "Movie not found (404)")
}

func TestTokenFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "token.json")

	require.Error(t, saveToken(path, tokenData{}))
	require.NoError(t, saveToken(path, tokenData{Token: "abc", UserID: "u1"}))

	td, err := readToken(path)
	require.NoError(t, err)
	assert.Equal(t, tokenData{Token: "abc", UserID: "u1"}, td)

	require.NoError(t, clearToken(path))
	require.NoError(t, clearToken(path))
	_, err = readToken(path)
	assert.Error(t, err)
}

func TestWebsocketURL(t *testing.T) {
	u, err := websocketURL("https://movies.example.com:8443", "/ws")
	require.NoError(t, err)
	assert.Equal(t, "wss://movies.example.com:8443/ws", u)

	u, err = websocketURL("http://localhost:8080", "/ws")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/ws", u)
}
