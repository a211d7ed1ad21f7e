package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/academic-standing/internal/service"
)

func TestMetricsRecordsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/students/:studentId/transcript", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	for _, id := range []string{"stu-1", "stu-2"} {
		req, _ := http.NewRequest(http.MethodGet, "/students/"+id+"/transcript", nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	req, _ := http.NewRequest(http.MethodGet, "/nowhere", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	w := httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)

	body := w.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",path="/students/:studentId/transcript",status="200"} 2`)
	assert.Contains(t, body, `path="unmatched"`)
	assert.NotContains(t, body, "stu-1")
	assert.Equal(t, uint64(4), metrics.Snapshot().RequestsTotal)
}
