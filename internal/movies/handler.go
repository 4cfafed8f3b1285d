package movies

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"moviehub/pkg/models"
)

// ReviewLister supplies the reviews shown on a movie's detail page.
type ReviewLister interface {
	ListByMovie(ctx context.Context, movieID string) ([]models.Review, error)
}

type Handler struct {
	Store    Store
	Reviews  ReviewLister
	validate *validator.Validate
}

func NewHandler(store Store, reviews ReviewLister) *Handler {
	return &Handler{Store: store, Reviews: reviews, validate: validator.New()}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)        // GET /api/movies
	rg.GET("/:id", h.getByID) // GET /api/movies/:id
}

// RegisterAdminRoutes expects rg to already carry auth + admin middleware.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.create)
	rg.PUT("/:id", h.update)
	rg.DELETE("/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Search: c.Query("search"),
		Genre:  c.Query("genre"),
		Year:   parseInt(c.Query("year"), 0),
		Page:   parseInt(c.Query("page"), 1),
		Limit:  parseInt(c.Query("limit"), 10),
	}.Normalize()

	items, total, err := h.Store.List(c.Request.Context(), q)
	if err != nil {
		log.WithError(err).Error("[movies] list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"movies":      items,
		"totalPages":  int(math.Ceil(float64(total) / float64(q.Limit))),
		"currentPage": q.Page,
		"total":       total,
	})
}

func (h *Handler) getByID(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	m, err := h.Store.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).WithField("movie_id", id).Error("[movies] get failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Movie not found"})
		return
	}

	reviews := []models.Review{}
	if h.Reviews != nil {
		reviews, err = h.Reviews.ListByMovie(ctx, id)
		if err != nil {
			log.WithError(err).WithField("movie_id", id).Error("[movies] list reviews failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"movie": m, "reviews": reviews})
}

type createReq struct {
	Title       string   `json:"title" validate:"required,max=300"`
	Genre       []string `json:"genre" validate:"required,min=1,dive,required"`
	ReleaseYear int      `json:"releaseYear" validate:"required,gte=1870,lte=2100"`
	Director    string   `json:"director" validate:"required"`
	Cast        []string `json:"cast" validate:"dive,required"`
	Synopsis    string   `json:"synopsis" validate:"required"`
	PosterURL   string   `json:"posterUrl" validate:"omitempty,url"`
	TrailerURL  string   `json:"trailerUrl" validate:"omitempty,url"`
	ImdbID      string   `json:"imdbID" validate:"omitempty,startswith=tt"`
}

func (r *createReq) trim() {
	r.Title = strings.TrimSpace(r.Title)
	r.Director = strings.TrimSpace(r.Director)
	r.Synopsis = strings.TrimSpace(r.Synopsis)
	r.PosterURL = strings.TrimSpace(r.PosterURL)
	r.TrailerURL = strings.TrimSpace(r.TrailerURL)
	r.ImdbID = strings.TrimSpace(r.ImdbID)
	r.Genre = TrimList(r.Genre)
	r.Cast = TrimList(r.Cast)
}

var movieRules = validator.New()

// Validate checks m against the rules a create request has to pass. Movies
// that reach the catalog by other routes (imports, seeders) go through it.
func Validate(ctx context.Context, m *models.Movie) error {
	req := createReq{
		Title:       m.Title,
		Genre:       m.Genre,
		ReleaseYear: m.ReleaseYear,
		Director:    m.Director,
		Cast:        m.Cast,
		Synopsis:    m.Synopsis,
		PosterURL:   m.PosterURL,
		TrailerURL:  m.TrailerURL,
		ImdbID:      m.ImdbID,
	}
	req.trim()
	return movieRules.StructCtx(ctx, req)
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req.trim()
	if err := h.validate.StructCtx(c.Request.Context(), req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ValidationMessage(err)})
		return
	}

	m := &models.Movie{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Genre:       req.Genre,
		ReleaseYear: req.ReleaseYear,
		Director:    req.Director,
		Cast:        req.Cast,
		Synopsis:    req.Synopsis,
		PosterURL:   req.PosterURL,
		TrailerURL:  req.TrailerURL,
		ImdbID:      req.ImdbID,
	}
	if err := h.Store.Create(c.Request.Context(), m); err != nil {
		if errors.Is(err, ErrDuplicateImdbID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.WithError(err).Error("[movies] create failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	log.WithFields(log.Fields{"movie_id": m.ID, "title": m.Title}).Info("[movies] created")
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) update(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	var patch models.MoviePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	trimPatch(&patch)
	if msg := h.validatePatch(ctx, patch); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	m, err := h.Store.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).WithField("movie_id", id).Error("[movies] get failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Movie not found"})
		return
	}

	patch.Apply(m)
	if err := h.Store.Update(ctx, m); err != nil {
		if errors.Is(err, ErrDuplicateImdbID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.WithError(err).WithField("movie_id", id).Error("[movies] update failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	ok, err := h.Store.Delete(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).WithField("movie_id", id).Error("[movies] delete failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Movie not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Movie removed"})
}

// trimPatch normalizes the set fields of p the same way create does.
func trimPatch(p *models.MoviePatch) {
	for _, s := range []*string{p.Title, p.Director, p.Synopsis, p.PosterURL, p.TrailerURL} {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
	if p.Genre != nil {
		g := TrimList(*p.Genre)
		p.Genre = &g
	}
	if p.Cast != nil {
		cast := TrimList(*p.Cast)
		p.Cast = &cast
	}
}

// validatePatch returns the message for the first problem in p, or "".
func (h *Handler) validatePatch(ctx context.Context, p models.MoviePatch) string {
	if err := h.validate.StructCtx(ctx, p); err != nil {
		return ValidationMessage(err)
	}
	// "" clears a URL, anything else must parse.
	urls := []struct {
		field string
		v     *string
	}{{"PosterURL", p.PosterURL}, {"TrailerURL", p.TrailerURL}}
	for _, u := range urls {
		if u.v != nil && h.validate.VarCtx(ctx, *u.v, "omitempty,url") != nil {
			return fmt.Sprintf("Validation failed: %s failed url", u.field)
		}
	}
	return ""
}

// TrimList trims every entry and drops empty ones.
func TrimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ValidationMessage turns validator errors into one readable line.
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return "Validation failed: " + strings.Join(parts, ", ")
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
