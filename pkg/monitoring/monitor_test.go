package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsMiddlewareCountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(MetricsMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	before := testutil.ToFloat64(RequestCounter.WithLabelValues("GET", "/ping", "200"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(RequestCounter.WithLabelValues("GET", "/ping", "200")))
}

func TestDomainCounters(t *testing.T) {
	passed := testutil.ToFloat64(AttemptsCompleted.WithLabelValues("true"))
	ObserveAttemptCompleted(true)
	assert.Equal(t, passed+1, testutil.ToFloat64(AttemptsCompleted.WithLabelValues("true")))

	invalid := testutil.ToFloat64(VerificationChecks.WithLabelValues("invalid"))
	ObserveVerificationCheck(false)
	assert.Equal(t, invalid+1, testutil.ToFloat64(VerificationChecks.WithLabelValues("invalid")))
}

func TestInitIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Init()
		Init()
	})
}
