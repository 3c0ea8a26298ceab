package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *HTTPServerMetrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestMiddlewareCountsRequests(t *testing.T) {
	m := NewHTTPServerMetrics("backend")
	handler := m.Middleware("backend", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/chat", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/random/1", nil))

	out := scrape(t, m)
	for _, want := range []string{
		`bafoeg_http_requests_total{method="POST",path="/chat",service="backend",status="418"} 1`,
		`bafoeg_http_requests_total{method="GET",path="other",service="backend",status="418"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in metrics:\n%s", want, out)
		}
	}
}

func TestRecordChat(t *testing.T) {
	m := NewHTTPServerMetrics("backend")
	m.RecordChat("backend", "success", 2, false, time.Second)
	m.RecordChat("backend", "success", 1, true, time.Second)
	m.RecordChat("backend", "rate-limited", 0, false, time.Second)
	m.RecordTokenUsage("backend", "", 10, 5)

	out := scrape(t, m)
	for _, want := range []string{
		`bafoeg_chat_requests_total{outcome="success",service="backend"} 2`,
		`bafoeg_chat_requests_total{outcome="rate-limited",service="backend"} 1`,
		`bafoeg_chat_fallback_sources_total{service="backend"} 1`,
		`bafoeg_chat_sources_count{service="backend"} 2`,
		`bafoeg_llm_tokens_total{direction="in",model="unknown",service="backend"} 10`,
		`bafoeg_llm_tokens_total{direction="out",model="unknown",service="backend"} 5`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in metrics:\n%s", want, out)
		}
	}
}

func TestIndexMetricsShareRegistry(t *testing.T) {
	m := NewHTTPServerMetrics("backend")
	index := NewIndexMetrics(m.Registry(), "backend")

	index.SetDocuments(4)
	index.FinishReload("backend", 10*time.Millisecond, 7, nil)
	index.FinishReload("backend", 10*time.Millisecond, 0, errors.New("broken"))

	out := scrape(t, m)
	for _, want := range []string{
		`bafoeg_index_documents{service="backend"} 7`,
		`bafoeg_index_reloads_total{service="backend",status="success"} 1`,
		`bafoeg_index_reloads_total{service="backend",status="error"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in metrics:\n%s", want, out)
		}
	}
}
