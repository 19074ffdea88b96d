package images

import (
	"errors"
	"io"
	"net/http"

	"places_backend/pkg/apperr"

	"github.com/gin-gonic/gin"
)

// multipartOverhead is allowed on top of the file size for form boundaries
// and the other fields.
const multipartOverhead = 64 * 1024

type ImportRequest struct {
	SourceURL string `json:"sourceUrl" binding:"required,http_url"`
	IsPrimary *bool  `json:"isPrimary"`
}

type Handler struct {
	service  *Service
	maxBytes int64
}

func NewHandler(service *Service, maxUploadBytes int64) *Handler {
	return &Handler{service: service, maxBytes: maxUploadBytes}
}

// Register mounts the image routes under /places/:placeId/images.
// requirePlace runs before every route; importGuards run before import only.
func (h *Handler) Register(r gin.IRouter, requirePlace gin.HandlerFunc, importGuards ...gin.HandlerFunc) {
	group := r.Group("/places/:placeId/images", requirePlace)
	group.GET("", h.list)
	group.POST("/upload", h.upload)
	group.POST("/import", append(importGuards, h.importURL)...)
	group.DELETE("/:imageId", h.remove)
	group.PATCH("/:imageId/primary", h.setPrimary)
}

func (h *Handler) list(c *gin.Context) {
	result, err := h.service.List(c.Request.Context(), c.Param("placeId"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apperr.Respond(c, h.tooLarge())
			return
		}
		apperr.Respond(c, apperr.Validation("File missing", apperr.FieldError{Field: "file", Error: "file is required"}))
		return
	}
	if header.Size > h.maxBytes {
		apperr.Respond(c, h.tooLarge())
		return
	}

	file, err := header.Open()
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	image, err := h.service.Upload(c.Request.Context(), c.Param("placeId"), data, header.Filename, c.PostForm("isPrimary") == "true")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, image)
}

func (h *Handler) importURL(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.FromBinding(err))
		return
	}
	primary := req.IsPrimary != nil && *req.IsPrimary

	image, err := h.service.Import(c.Request.Context(), c.Param("placeId"), req.SourceURL, primary)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, image)
}

func (h *Handler) remove(c *gin.Context) {
	image, err := h.service.Delete(c.Request.Context(), c.Param("placeId"), c.Param("imageId"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, image)
}

func (h *Handler) setPrimary(c *gin.Context) {
	image, err := h.service.SetPrimary(c.Request.Context(), c.Param("placeId"), c.Param("imageId"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, image)
}

func (h *Handler) tooLarge() error {
	return apperr.Validation("File too large",
		apperr.FieldError{Field: "file", Error: "file exceeds the upload size limit"})
}
