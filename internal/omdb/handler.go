package omdb

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"moviehub/internal/movies"
	"moviehub/pkg/models"
)

// Catalog is the slice of the movie store that imports need.
type Catalog interface {
	GetByImdbID(ctx context.Context, imdbID string) (*models.Movie, error)
	Create(ctx context.Context, m *models.Movie) error
}

type Handler struct {
	Lookup  *Lookup
	Catalog Catalog
}

func NewHandler(lookup *Lookup, catalog Catalog) *Handler {
	return &Handler{Lookup: lookup, Catalog: catalog}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.search)          // GET /api/lookup
	rg.GET("/:imdbID", h.getByID) // GET /api/lookup/:imdbID
}

// RegisterImportRoute mounts POST /import on the admin movies group.
func (h *Handler) RegisterImportRoute(rg *gin.RouterGroup) {
	rg.POST("/import", h.importMovie)
}

func (h *Handler) search(c *gin.Context) {
	year, _ := strconv.Atoi(strings.TrimSpace(c.Query("year")))
	page, _ := strconv.Atoi(strings.TrimSpace(c.Query("page")))

	res, err := h.Lookup.Search(c.Request.Context(), models.LookupQuery{
		Search: c.Query("search"),
		Genre:  c.Query("genre"),
		Year:   year,
		Page:   page,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) getByID(c *gin.Context) {
	m, err := h.Lookup.ByID(c.Request.Context(), c.Param("imdbID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

type importReq struct {
	ImdbID string `json:"imdbID"`
	Title  string `json:"title"`
}

func (h *Handler) importMovie(c *gin.Context) {
	var req importReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req.ImdbID = strings.TrimSpace(req.ImdbID)
	req.Title = strings.TrimSpace(req.Title)
	if req.ImdbID == "" && req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "imdbID or title required"})
		return
	}

	m, err := Import(c.Request.Context(), h.Lookup, h.Catalog, req.ImdbID, req.Title)
	switch {
	case err == nil:
	case errors.Is(err, movies.ErrDuplicateImdbID), errors.Is(err, ErrIncompleteRecord):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case isLookupErr(err):
		h.fail(c, err)
		return
	default:
		log.WithError(err).Error("[omdb] import failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	log.WithFields(log.Fields{"movie_id": m.ID, "imdb_id": m.ImdbID}).Info("[omdb] imported")
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrEmptyQuery):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNoResults):
		c.JSON(http.StatusNotFound, gin.H{"error": "Movie not found"})
	default:
		log.WithError(err).Warn("[omdb] lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": ErrUpstreamUnavailable.Error()})
	}
}
