package models

// LookupQuery describes one external search. Genre and Year are the
// optional filters dropped by the fallback attempt.
type LookupQuery struct {
	Search string `json:"search"`
	Genre  string `json:"genre,omitempty"`
	Year   int    `json:"year,omitempty"`
	Page   int    `json:"page"`
}

// HasFilters reports whether q carries any optional filter.
func (q LookupQuery) HasFilters() bool {
	return q.Genre != "" || q.Year != 0
}

// WithoutFilters returns q with the optional filters stripped.
func (q LookupQuery) WithoutFilters() LookupQuery {
	q.Genre = ""
	q.Year = 0
	return q
}

// LookupHit is one row of an external search result.
type LookupHit struct {
	Title     string `json:"title"`
	Year      string `json:"year"`
	ImdbID    string `json:"imdbID"`
	Type      string `json:"type"`
	PosterURL string `json:"posterUrl"`
}

type LookupResult struct {
	Query        LookupQuery `json:"query"`
	Results      []LookupHit `json:"results"`
	TotalResults int         `json:"totalResults"`
	Cached       bool        `json:"cached"`
	Fallback     bool        `json:"fallback"`
}

// ExternalMovie is the detailed record returned by a lookup by external id.
type ExternalMovie struct {
	ImdbID     string   `json:"imdbID"`
	Title      string   `json:"title"`
	Year       int      `json:"year"`
	Genre      []string `json:"genre"`
	Director   string   `json:"director"`
	Cast       []string `json:"cast"`
	Plot       string   `json:"plot"`
	PosterURL  string   `json:"posterUrl"`
	ImdbRating float64  `json:"imdbRating"`
}
