package omdb

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"moviehub/pkg/models"
)

type searchHit struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	ImdbID string `json:"imdbID"`
	Type   string `json:"Type"`
	Poster string `json:"Poster"`
}

type searchResponse struct {
	Search       []searchHit `json:"Search,omitempty"`
	TotalResults string      `json:"totalResults,omitempty"`
	Response     string      `json:"Response"`
	Error        string      `json:"Error,omitempty"`
}

// Record is a full OMDB title response. List fields are comma separated and
// missing values are "N/A".
type Record struct {
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Type       string `json:"Type,omitempty"`
	Genre      string `json:"Genre"`
	Director   string `json:"Director"`
	Actors     string `json:"Actors"`
	Plot       string `json:"Plot"`
	Poster     string `json:"Poster"`
	ImdbRating string `json:"imdbRating"`
	ImdbID     string `json:"imdbID"`
	Response   string `json:"Response"`
	Error      string `json:"Error,omitempty"`
}

// decodeSearch turns a raw search body into hits. Response "False" is
// ErrNoResults; a body that isn't JSON is a transport failure.
func decodeSearch(body []byte) ([]models.LookupHit, int, error) {
	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, 0, fmt.Errorf("%w: decode search: %v", ErrUpstreamUnavailable, err)
	}
	if sr.Response != "True" {
		return nil, 0, fmt.Errorf("%w: %s", ErrNoResults, sr.Error)
	}

	hits := make([]models.LookupHit, 0, len(sr.Search))
	for _, s := range sr.Search {
		hits = append(hits, models.LookupHit{
			Title:     s.Title,
			Year:      s.Year,
			ImdbID:    s.ImdbID,
			Type:      s.Type,
			PosterURL: na(s.Poster),
		})
	}
	total, _ := strconv.Atoi(sr.TotalResults)
	return hits, total, nil
}

func decodeTitle(body []byte) (*models.ExternalMovie, error) {
	var tr Record
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("%w: decode title: %v", ErrUpstreamUnavailable, err)
	}
	if tr.Response != "True" {
		return nil, fmt.Errorf("%w: %s", ErrNoResults, tr.Error)
	}

	rating, _ := strconv.ParseFloat(na(tr.ImdbRating), 64)
	return &models.ExternalMovie{
		ImdbID:     tr.ImdbID,
		Title:      tr.Title,
		Year:       parseYear(tr.Year),
		Genre:      splitList(tr.Genre),
		Director:   na(tr.Director),
		Cast:       splitList(tr.Actors),
		Plot:       na(tr.Plot),
		PosterURL:  na(tr.Poster),
		ImdbRating: rating,
	}, nil
}

// na maps OMDB's "N/A" placeholder to empty.
func na(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "N/A") {
		return ""
	}
	return s
}

func splitList(s string) []string {
	s = na(s)
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseYear reads the leading year of "1999" or "2005–2010".
func parseYear(s string) int {
	s = na(s)
	if len(s) < 4 {
		return 0
	}
	n, err := strconv.Atoi(s[:4])
	if err != nil {
		return 0
	}
	return n
}
