package omdb

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"moviehub/pkg/models"
)

const mirrorPageSize = 10

// Mirror answers OMDB-style queries from a fixed set of records so the API
// can run without the real service.
type Mirror struct {
	records []Record
}

func NewMirror(records []Record) *Mirror {
	return &Mirror{records: records}
}

// LoadRecords reads a JSON array of records, as written by export-mirror.
func LoadRecords(path string) ([]Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []Record
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("%s: invalid JSON: %w", path, err)
	}
	return out, nil
}

// RecordFromMovie renders a catalog movie the way OMDB would describe it.
func RecordFromMovie(m models.Movie) Record {
	orNA := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return "N/A"
		}
		return s
	}
	rating := "N/A"
	if m.ReviewCount > 0 {
		// catalog ratings are 1-5, OMDB's are out of 10
		rating = strconv.FormatFloat(m.AverageRating*2, 'f', 1, 64)
	}
	return Record{
		Title:      m.Title,
		Year:       strconv.Itoa(m.ReleaseYear),
		Type:       "movie",
		Genre:      orNA(strings.Join(m.Genre, ", ")),
		Director:   orNA(m.Director),
		Actors:     orNA(strings.Join(m.Cast, ", ")),
		Plot:       orNA(m.Synopsis),
		Poster:     orNA(m.PosterURL),
		ImdbRating: rating,
		ImdbID:     m.ImdbID,
		Response:   "True",
	}
}

func (m *Mirror) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/", m.query)
	return r
}

func (m *Mirror) query(c *gin.Context) {
	if strings.TrimSpace(c.Query("apikey")) == "" {
		c.JSON(http.StatusUnauthorized, searchResponse{Response: "False", Error: "No API key provided."})
		return
	}

	switch {
	case c.Query("i") != "":
		m.byID(c, c.Query("i"))
	case c.Query("t") != "":
		m.byTitle(c, c.Query("t"), c.Query("y"))
	case c.Query("s") != "":
		m.search(c)
	default:
		c.JSON(http.StatusOK, searchResponse{Response: "False", Error: "Incorrect IMDb ID."})
	}
}

func (m *Mirror) byID(c *gin.Context, id string) {
	for _, r := range m.records {
		if strings.EqualFold(r.ImdbID, id) {
			r.Response = "True"
			c.JSON(http.StatusOK, r)
			return
		}
	}
	c.JSON(http.StatusOK, searchResponse{Response: "False", Error: "Incorrect IMDb ID."})
}

func (m *Mirror) byTitle(c *gin.Context, title, year string) {
	for _, r := range m.records {
		if strings.EqualFold(r.Title, strings.TrimSpace(title)) && yearMatches(r, year) {
			r.Response = "True"
			c.JSON(http.StatusOK, r)
			return
		}
	}
	c.JSON(http.StatusOK, searchResponse{Response: "False", Error: "Movie not found!"})
}

// search matches every word of s against title and genre, then applies the
// y and type filters.
func (m *Mirror) search(c *gin.Context) {
	words := strings.Fields(strings.ToLower(c.Query("s")))
	year := c.Query("y")
	kind := strings.ToLower(c.Query("type"))

	var hits []searchHit
	for _, r := range m.records {
		hay := strings.ToLower(r.Title + " " + r.Genre)
		if !slices.ContainsFunc(words, func(w string) bool { return !strings.Contains(hay, w) }) &&
			yearMatches(r, year) && typeMatches(r, kind) {
			hits = append(hits, searchHit{Title: r.Title, Year: r.Year, ImdbID: r.ImdbID, Type: recordType(r), Poster: r.Poster})
		}
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	if page > (len(hits)+mirrorPageSize-1)/mirrorPageSize {
		c.JSON(http.StatusOK, searchResponse{Response: "False", Error: "Movie not found!"})
		return
	}
	start := (page - 1) * mirrorPageSize
	end := min(start+mirrorPageSize, len(hits))

	c.JSON(http.StatusOK, searchResponse{
		Search:       hits[start:end],
		TotalResults: strconv.Itoa(len(hits)),
		Response:     "True",
	})
}

func yearMatches(r Record, year string) bool {
	year = strings.TrimSpace(year)
	return year == "" || strings.HasPrefix(r.Year, year)
}

func typeMatches(r Record, kind string) bool {
	return kind == "" || recordType(r) == kind
}

func recordType(r Record) string {
	if r.Type == "" {
		return "movie"
	}
	return strings.ToLower(r.Type)
}
