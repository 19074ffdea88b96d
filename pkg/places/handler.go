package places

import (
	"net/http"
	"strings"

	"places_backend/pkg/apperr"
	"places_backend/pkg/models"

	"github.com/gin-gonic/gin"
)

// ContextKey is where RequirePlace stores the loaded *models.Place.
const ContextKey = "place"

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/places", h.list)
	r.GET("/places/search", h.search)
	r.GET("/places/tags", h.tags)
	r.GET("/places/:placeId", h.get)
}

func (h *Handler) list(c *gin.Context) {
	result, err := h.service.List(c.Request.Context())
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) search(c *gin.Context) {
	filter := Filter{
		Query: c.Query("q"),
		Type:  models.PlaceType(strings.ToUpper(strings.TrimSpace(c.Query("type")))),
		Tags:  ParseTags(c.Query("tags")),
	}
	result, err := h.service.Search(c.Request.Context(), filter)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) tags(c *gin.Context) {
	tags, err := h.service.Tags(c.Request.Context())
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (h *Handler) get(c *gin.Context) {
	place, err := h.service.Get(c.Request.Context(), c.Param("placeId"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, place)
}

// RequirePlace rejects requests whose :placeId does not name an existing
// place, so handlers below it never repeat the check.
func RequirePlace(service *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		placeID := c.Param("placeId")
		if placeID == "" {
			c.Next()
			return
		}
		place, err := service.Find(c.Request.Context(), placeID)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.Set(ContextKey, place)
		c.Next()
	}
}
