package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/events/{eventID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/42", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status: got %d", rec.Code)
	}

	body := scrape(t, m)
	want := `volunteerhub_http_requests_total{method="GET",route="/events/{eventID}",status="418"} 1`
	if !strings.Contains(body, want) {
		t.Errorf("expected %q in metrics output", want)
	}
}

func TestCounters(t *testing.T) {
	m := New()
	m.MessageStored("socket")
	m.Delivery(true)
	m.Delivery(false)
	m.Registration("ok")
	m.SocketOpened()
	m.SocketOpened()
	m.SocketClosed()

	body := scrape(t, m)
	for _, want := range []string{
		`volunteerhub_chat_messages_total{channel="socket"} 1`,
		`volunteerhub_chat_live_deliveries_total{result="delivered"} 1`,
		`volunteerhub_chat_live_deliveries_total{result="offline"} 1`,
		`volunteerhub_event_registrations_total{result="ok"} 1`,
		`volunteerhub_sockets_connected 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.MessageStored("rest")
	m.Delivery(true)
	m.Registration("full")
	m.SocketOpened()
	m.SocketClosed()

	called := false
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("nil middleware must pass through")
	}
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rec.Code)
	}
	return rec.Body.String()
}
