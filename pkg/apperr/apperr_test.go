package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func respond(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	Respond(c, err)
	return w
}

func TestRespondStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", Validation("bad"), http.StatusBadRequest},
		{"conflict", Conflict("taken"), http.StatusConflict},
		{"not found", NotFound("Place not found"), http.StatusNotFound},
		{"unauthorized", Unauthorized("no token"), http.StatusUnauthorized},
		{"unavailable", Unavailable("fetch failed", errors.New("dial")), http.StatusBadGateway},
		{"wrapped", fmt.Errorf("toggle: %w", NotFound("Place not found")), http.StatusNotFound},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, respond(tt.err).Code)
		})
	}
}

func TestRespondHidesInternalErrors(t *testing.T) {
	w := respond(errors.New("pq: connection refused"))
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestFromBindingListsFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope","password":"123"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	err := c.ShouldBindJSON(&req)
	require.Error(t, err)
	Respond(c, FromBinding(err))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Errors []FieldError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Errors, 2)
	assert.Equal(t, "email", body.Errors[0].Field)
	assert.Equal(t, "password must be at least 6 characters", body.Errors[1].Error)
}
