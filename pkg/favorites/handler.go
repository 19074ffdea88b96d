package favorites

import (
	"net/http"

	"places_backend/pkg/apperr"
	"places_backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the favorites routes behind requireUser.
func (h *Handler) Register(r gin.IRouter, requireUser gin.HandlerFunc) {
	group := r.Group("/favorites", requireUser)
	group.GET("", h.list)
	group.POST("/:placeId/toggle", h.toggle)
	group.GET("/:placeId", h.status)
}

func (h *Handler) list(c *gin.Context) {
	entries, err := h.service.List(c.Request.Context(), c.GetString(middleware.UserIDKey))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) toggle(c *gin.Context) {
	favorited, err := h.service.Toggle(c.Request.Context(), c.GetString(middleware.UserIDKey), c.Param("placeId"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorited": favorited})
}

func (h *Handler) status(c *gin.Context) {
	favorited, err := h.service.IsFavorite(c.Request.Context(), c.GetString(middleware.UserIDKey), c.Param("placeId"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorited": favorited})
}
