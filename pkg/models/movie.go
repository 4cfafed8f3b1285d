package models

import "time"

// Movie is a catalog entry. AverageRating and ReviewCount are derived from
// the movie's reviews and only ever written by the rating aggregator.
type Movie struct {
	ID            string    `json:"id" bson:"_id"`
	Title         string    `json:"title" bson:"title"`
	Genre         []string  `json:"genre" bson:"genre"`
	ReleaseYear   int       `json:"releaseYear" bson:"releaseYear"`
	Director      string    `json:"director" bson:"director"`
	Cast          []string  `json:"cast" bson:"cast"`
	Synopsis      string    `json:"synopsis" bson:"synopsis"`
	PosterURL     string    `json:"posterUrl" bson:"posterUrl"`
	TrailerURL    string    `json:"trailerUrl" bson:"trailerUrl"`
	AverageRating float64   `json:"averageRating" bson:"averageRating"`
	ReviewCount   int       `json:"reviewCount" bson:"reviewCount"`
	ImdbID        string    `json:"imdbID,omitempty" bson:"imdbID,omitempty"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updatedAt"`
}

// MoviePatch carries a partial update. Nil fields are left untouched; a set
// field is validated like its counterpart on create. The URL fields may be
// set to "" to clear them.
type MoviePatch struct {
	Title       *string   `json:"title,omitempty" validate:"omitnil,min=1,max=300"`
	Genre       *[]string `json:"genre,omitempty" validate:"omitnil,min=1,dive,required"`
	ReleaseYear *int      `json:"releaseYear,omitempty" validate:"omitnil,gte=1870,lte=2100"`
	Director    *string   `json:"director,omitempty" validate:"omitnil,min=1"`
	Cast        *[]string `json:"cast,omitempty" validate:"omitnil,dive,required"`
	Synopsis    *string   `json:"synopsis,omitempty" validate:"omitnil,min=1"`
	PosterURL   *string   `json:"posterUrl,omitempty"`
	TrailerURL  *string   `json:"trailerUrl,omitempty"`
}

// Apply copies the set fields of p onto m.
func (p MoviePatch) Apply(m *Movie) {
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Genre != nil {
		m.Genre = *p.Genre
	}
	if p.ReleaseYear != nil {
		m.ReleaseYear = *p.ReleaseYear
	}
	if p.Director != nil {
		m.Director = *p.Director
	}
	if p.Cast != nil {
		m.Cast = *p.Cast
	}
	if p.Synopsis != nil {
		m.Synopsis = *p.Synopsis
	}
	if p.PosterURL != nil {
		m.PosterURL = *p.PosterURL
	}
	if p.TrailerURL != nil {
		m.TrailerURL = *p.TrailerURL
	}
}

// RatingSummary is the aggregate written back onto a movie.
type RatingSummary struct {
	MovieID       string  `json:"movieId"`
	AverageRating float64 `json:"averageRating"`
	ReviewCount   int     `json:"reviewCount"`
}
