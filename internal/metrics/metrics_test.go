package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_ServedOnRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	m.NotificationsTotal.WithLabelValues("server", "settled").Inc()
	m.RejectedTotal.WithLabelValues("browser", "signature").Add(2)

	r := gin.New()
	m.Register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `payzen_notifications_total{action="settled",channel="server"} 1`)
	assert.Contains(t, rec.Body.String(), `payzen_notifications_rejected_total{channel="browser",reason="signature"} 2`)
}

func TestNew_IndependentRegistries(t *testing.T) {
	// two instances must not collide on registration
	New()
	New()
}
