package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveTickCountsOutcomes(t *testing.T) {
	recorder := NewRecorder()

	recorder.ObserveTick("dispatched", 250*time.Millisecond)
	recorder.ObserveTick("idle", time.Millisecond)
	recorder.ObserveTick("idle", time.Millisecond)

	if got := testutil.ToFloat64(recorder.reminderTicks.WithLabelValues("idle")); got != 2 {
		t.Fatalf("expected 2 idle ticks, got %v", got)
	}
	if got := testutil.ToFloat64(recorder.reminderTicks.WithLabelValues("dispatched")); got != 1 {
		t.Fatalf("expected 1 dispatched tick, got %v", got)
	}
}

func TestObserveDispatchAccumulatesResults(t *testing.T) {
	recorder := NewRecorder()

	recorder.ObserveDispatch("reminder", 2, 3, 1, 2, 1)
	recorder.ObserveDispatch("reminder", 1, 1, 1, 0, 0)

	if got := testutil.ToFloat64(recorder.dispatchDeliveries.WithLabelValues("reminder", "success")); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(recorder.dispatchDeliveries.WithLabelValues("reminder", "removed")); got != 1 {
		t.Fatalf("expected 1 removal, got %v", got)
	}
	if got := testutil.ToFloat64(recorder.dispatchEligibleUsers.WithLabelValues("reminder")); got != 3 {
		t.Fatalf("expected 3 eligible users, got %v", got)
	}
}

func TestMiddlewareAndHandlerExposeRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := NewRecorder()
	router := gin.New()
	router.Use(recorder.Middleware())
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(recorder.Handler()))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if got := testutil.ToFloat64(recorder.httpRequests.WithLabelValues("/healthz", http.MethodGet, "200")); got != 1 {
		t.Fatalf("expected one recorded request, got %v", got)
	}

	response := httptest.NewRecorder()
	router.ServeHTTP(response, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(response.Body)
	if !strings.Contains(string(body), "frogsy_http_requests_total") {
		t.Fatalf("expected exposition to contain request counter")
	}
}
