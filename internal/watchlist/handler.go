package watchlist

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"moviehub/internal/auth"
	"moviehub/internal/events"
	"moviehub/pkg/models"
)

type MovieFinder interface {
	GetByID(ctx context.Context, id string) (*models.Movie, error)
}

type Handler struct {
	Store  Store
	Movies MovieFinder
	Events events.Publisher
}

func NewHandler(store Store, movies MovieFinder, pub events.Publisher) *Handler {
	return &Handler{Store: store, Movies: movies, Events: pub}
}

// RegisterRoutes expects rg (/api/watchlist) to carry the auth middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:userId", h.list)
	rg.POST("/:userId", h.add)
	rg.DELETE("/:userId/:movieId", h.remove)
}

// owner returns the path user when it matches the caller.
func owner(c *gin.Context) (string, bool) {
	claims := auth.MustGetClaims(c)
	userID := strings.TrimSpace(c.Param("userId"))
	if claims == nil || claims.UserID != userID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authorized"})
		return "", false
	}
	return userID, true
}

func (h *Handler) list(c *gin.Context) {
	userID, ok := owner(c)
	if !ok {
		return
	}

	items, err := h.Store.List(c.Request.Context(), userID)
	if err != nil {
		log.WithError(err).Error("[watchlist] list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, items)
}

type addReq struct {
	MovieID string `json:"movieId"`
}

func (h *Handler) add(c *gin.Context) {
	userID, ok := owner(c)
	if !ok {
		return
	}

	var req addReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	movieID := strings.TrimSpace(req.MovieID)
	if movieID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "movieId required"})
		return
	}

	ctx := c.Request.Context()
	m, err := h.Movies.GetByID(ctx, movieID)
	if err != nil {
		log.WithError(err).WithField("movie_id", movieID).Error("[watchlist] movie lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Movie not found"})
		return
	}

	it := &models.WatchlistItem{
		ID:          uuid.NewString(),
		UserID:      userID,
		MovieID:     m.ID,
		MovieTitle:  m.Title,
		MoviePoster: m.PosterURL,
	}
	if err := h.Store.Add(ctx, it); err != nil {
		if errors.Is(err, ErrAlreadyListed) {
			c.JSON(http.StatusBadRequest, gin.H{"error": ErrAlreadyListed.Error()})
			return
		}
		log.WithError(err).Error("[watchlist] add failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	h.publish(events.WatchlistAdd, userID, m.ID)
	c.JSON(http.StatusCreated, it)
}

func (h *Handler) remove(c *gin.Context) {
	userID, ok := owner(c)
	if !ok {
		return
	}
	movieID := strings.TrimSpace(c.Param("movieId"))

	removed, err := h.Store.Remove(c.Request.Context(), userID, movieID)
	if err != nil {
		log.WithError(err).Error("[watchlist] remove failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Movie not in watchlist"})
		return
	}

	h.publish(events.WatchlistRemove, userID, movieID)
	c.JSON(http.StatusOK, gin.H{"message": "Movie removed from watchlist"})
}

func (h *Handler) publish(kind, userID, movieID string) {
	if h.Events == nil {
		return
	}
	h.Events.Publish(events.Event{Type: kind, UserID: userID, MovieID: movieID})
}
