package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/places/:placeId", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", Handler())

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/places/:placeId", "200"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/places/abc", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/places/:placeId", "200")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "places_http_requests_total")
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(favoriteToggles.WithLabelValues("added"))
	RecordFavoriteToggle(true)
	assert.Equal(t, before+1, testutil.ToFloat64(favoriteToggles.WithLabelValues("added")))

	before = testutil.ToFloat64(imageOperations.WithLabelValues("set_primary"))
	RecordImageOperation("set_primary")
	assert.Equal(t, before+1, testutil.ToFloat64(imageOperations.WithLabelValues("set_primary")))
}

func TestMiddlewareReleasesInFlightOnPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery(), Middleware())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	before := testutil.ToFloat64(httpInFlight)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, before, testutil.ToFloat64(httpInFlight))
}
