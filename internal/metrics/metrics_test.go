package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordQuery(t *testing.T) {
	m := New()
	m.RecordQuery("pdf", 3, time.Millisecond)
	m.RecordQuery("pdf", 0, time.Millisecond)
	m.RecordQuery("google", 0, time.Millisecond)

	if got := testutil.ToFloat64(m.queriesTotal.WithLabelValues("pdf")); got != 2 {
		t.Errorf("pdf = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.queriesTotal.WithLabelValues("google")); got != 1 {
		t.Errorf("google = %v, want 1", got)
	}
}

func TestRecordIngest(t *testing.T) {
	m := New()
	m.RecordIngest("indexed", 5)
	m.RecordIngest("failed", 0)

	if got := testutil.ToFloat64(m.ingestedChunks); got != 5 {
		t.Errorf("chunks = %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.ingestTotal.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed = %v, want 1", got)
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", m.Handler())

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
	}

	if got := testutil.ToFloat64(m.requestTotal.WithLabelValues("GET", "/items/{id}", "418")); got != 2 {
		t.Errorf("requests = %v, want 2", got)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "docchat_http_requests_total") {
		t.Error("exposition missing request counter")
	}
}
