package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nonsonwune/admission_cycle/status"
)

func TestObserveDerivation(t *testing.T) {
	m := New()
	m.ObserveDerivation(status.Outcome{AppNo: "A1", Status: "accept"})
	m.ObserveDerivation(status.Outcome{AppNo: "A2", Status: "accept"})
	m.ObserveDerivation(status.Outcome{AppNo: "A3", Skipped: true})

	if got := testutil.ToFloat64(m.derivations.WithLabelValues("accept")); got != 2 {
		t.Fatalf("accept derivations = %v", got)
	}
	if got := testutil.ToFloat64(m.skipped); got != 1 {
		t.Fatalf("skipped = %v", got)
	}
}

func TestObserveBatch(t *testing.T) {
	m := New()
	m.ObserveBatch("FEES_PAID", "success", 3)
	m.ObserveBatch("FEES_PAID", "rejected", 5)
	if got := testutil.ToFloat64(m.rows.WithLabelValues("FEES_PAID")); got != 3 {
		t.Fatalf("rows = %v", got)
	}
	if got := testutil.ToFloat64(m.batches.WithLabelValues("FEES_PAID", "rejected")); got != 1 {
		t.Fatalf("rejected batches = %v", got)
	}
}

func TestHandlerExposesRequestDurations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := w.Body.String()
	if !strings.Contains(body, `admission_http_request_duration_seconds_count{code="200",method="GET",route="/ping"} 1`) {
		t.Fatalf("request histogram missing from output:\n%s", body)
	}
}
