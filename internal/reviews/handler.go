package reviews

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"moviehub/internal/auth"
	"moviehub/internal/events"
	"moviehub/pkg/models"
)

const (
	msgBadRating   = "Rating must be between 1 and 5"
	msgTextMissing = "Review text is required"
)

type MovieFinder interface {
	GetByID(ctx context.Context, id string) (*models.Movie, error)
}

// Recomputer refreshes a movie's aggregate after a review write.
type Recomputer interface {
	Recompute(ctx context.Context, movieID string) (models.RatingSummary, error)
}

type Handler struct {
	Store   Store
	Movies  MovieFinder
	Ratings Recomputer
	Events  events.Publisher

	validate *validator.Validate
}

func NewHandler(store Store, movies MovieFinder, ratings Recomputer, pub events.Publisher) *Handler {
	return &Handler{
		Store:    store,
		Movies:   movies,
		Ratings:  ratings,
		Events:   pub,
		validate: validator.New(),
	}
}

// RegisterRoutes mounts the review routes on rg (/api/reviews). Mutations
// go through requireAuth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.GET("", h.feed)
	rg.GET("/:movieId", h.listByMovie)
	rg.POST("/:movieId", requireAuth, h.create)
	rg.PUT("/:id", requireAuth, h.update)
	rg.DELETE("/:id", requireAuth, h.delete)
}

func (h *Handler) feed(c *gin.Context) {
	page, limit := ClampPage(parseInt(c.Query("page"), 1), parseInt(c.Query("limit"), 10))

	items, total, err := h.Store.ListAll(c.Request.Context(), page, limit)
	if err != nil {
		log.WithError(err).Error("[reviews] feed failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reviews":     items,
		"totalPages":  int(math.Ceil(float64(total) / float64(limit))),
		"currentPage": page,
		"total":       total,
	})
}

func (h *Handler) listByMovie(c *gin.Context) {
	items, err := h.Store.ListByMovie(c.Request.Context(), c.Param("movieId"))
	if err != nil {
		log.WithError(err).Error("[reviews] list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, items)
}

type createReq struct {
	Rating     int    `json:"rating" validate:"min=1,max=5"`
	ReviewText string `json:"reviewText" validate:"required"`
}

type updateReq struct {
	Rating     *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	ReviewText *string `json:"reviewText"`
}

func (h *Handler) create(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	ctx := c.Request.Context()
	movieID := strings.TrimSpace(c.Param("movieId"))

	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req.ReviewText = strings.TrimSpace(req.ReviewText)
	if err := h.validate.StructCtx(ctx, req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}

	m, err := h.Movies.GetByID(ctx, movieID)
	if err != nil {
		log.WithError(err).WithField("movie_id", movieID).Error("[reviews] movie lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Movie not found"})
		return
	}

	rv := &models.Review{
		ID:         uuid.NewString(),
		UserID:     claims.UserID,
		Username:   claims.Username,
		MovieID:    m.ID,
		Rating:     req.Rating,
		ReviewText: req.ReviewText,
	}
	if err := h.Store.Create(ctx, rv); err != nil {
		if errors.Is(err, ErrDuplicateReview) {
			c.JSON(http.StatusBadRequest, gin.H{"error": ErrDuplicateReview.Error()})
			return
		}
		log.WithError(err).Error("[reviews] create failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if !h.afterWrite(c, events.ReviewCreate, rv) {
		return
	}
	c.JSON(http.StatusCreated, rv)
}

func (h *Handler) update(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	ctx := c.Request.Context()

	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.ReviewText != nil {
		trimmed := strings.TrimSpace(*req.ReviewText)
		if trimmed == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgTextMissing})
			return
		}
		req.ReviewText = &trimmed
	}
	if err := h.validate.StructCtx(ctx, req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}

	rv, ok := h.loadOwned(c, claims.UserID)
	if !ok {
		return
	}
	if req.Rating != nil {
		rv.Rating = *req.Rating
	}
	if req.ReviewText != nil {
		rv.ReviewText = *req.ReviewText
	}

	if err := h.Store.Update(ctx, rv); err != nil {
		log.WithError(err).WithField("review_id", rv.ID).Error("[reviews] update failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if !h.afterWrite(c, events.ReviewUpdate, rv) {
		return
	}
	c.JSON(http.StatusOK, rv)
}

func (h *Handler) delete(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	rv, ok := h.loadOwned(c, claims.UserID)
	if !ok {
		return
	}

	if _, err := h.Store.Delete(c.Request.Context(), rv.ID); err != nil {
		log.WithError(err).WithField("review_id", rv.ID).Error("[reviews] delete failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if !h.afterWrite(c, events.ReviewDelete, rv) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review removed"})
}

// loadOwned fetches the review in the :id param and checks it belongs to
// userID. It writes the error response itself.
func (h *Handler) loadOwned(c *gin.Context, userID string) (*models.Review, bool) {
	id := strings.TrimSpace(c.Param("id"))
	rv, err := h.Store.GetByID(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).WithField("review_id", id).Error("[reviews] get failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return nil, false
	}
	if rv == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
		return nil, false
	}
	if rv.UserID != userID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authorized"})
		return nil, false
	}
	return rv, true
}

// afterWrite recomputes the movie aggregate using the review's stored movie
// id and publishes the event.
func (h *Handler) afterWrite(c *gin.Context, kind string, rv *models.Review) bool {
	sum, err := h.Ratings.Recompute(c.Request.Context(), rv.MovieID)
	if err != nil {
		log.WithError(err).WithField("movie_id", rv.MovieID).Error("[reviews] recompute failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return false
	}

	if h.Events != nil {
		h.Events.Publish(events.Event{
			Type:     kind,
			UserID:   rv.UserID,
			MovieID:  rv.MovieID,
			ReviewID: rv.ID,
			Rating:   &sum,
		})
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if verrs[0].Field() == "Rating" {
			return msgBadRating
		}
		return msgTextMissing
	}
	return "invalid request"
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
