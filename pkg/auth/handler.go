package auth

import (
	"net/http"
	"strings"

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

// Register mounts the auth routes. requireUser guards change-password.
func (h *Handler) Register(r gin.IRouter, requireUser gin.HandlerFunc) {
	r.POST("/auth/register", h.register)
	r.POST("/auth/login", h.login)
	r.POST("/auth/change-password", requireUser, h.changePassword)
}

func (h *Handler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.FromBinding(err))
		return
	}
	session, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.FromBinding(err))
		return
	}
	session, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) changePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.FromBinding(err))
		return
	}
	if err := h.service.ChangePassword(c.Request.Context(), c.GetString(middleware.UserIDKey), req); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RequireUser accepts "Authorization: Bearer <token>" and stores the token
// subject under middleware.UserIDKey.
func RequireUser(tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			apperr.Respond(c, apperr.Unauthorized("Authorization header missing"))
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			apperr.Respond(c, apperr.Unauthorized("Invalid authorization format"))
			return
		}
		userID, err := tokens.Validate(strings.TrimSpace(token))
		if err != nil {
			apperr.Respond(c, apperr.Unauthorized("Invalid or expired token"))
			return
		}
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	}
}
