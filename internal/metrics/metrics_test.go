package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	handler := m.Handler()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	handler(w, req)
	return w.Body.String()
}

func TestMetrics_RecordRequest(t *testing.T) {
	m := New()

	m.RecordRequest("POST", "/api/auth/login", 200, 100*time.Millisecond)
	m.RecordRequest("POST", "/api/auth/login", 200, 150*time.Millisecond)
	m.RecordRequest("POST", "/api/auth/login", 401, 50*time.Millisecond)

	body := scrape(t, m)

	if !strings.Contains(body, "authsvc_http_requests_total") {
		t.Error("expected authsvc_http_requests_total metric")
	}
	if !strings.Contains(body, "authsvc_http_request_duration_seconds") {
		t.Error("expected authsvc_http_request_duration_seconds metric")
	}
	if !strings.Contains(body, `status_class="4xx"`) {
		t.Error("expected a 4xx error series")
	}
}

func TestMetrics_AuthEvents(t *testing.T) {
	m := New()

	m.IncAuthEvent("login_success")
	m.IncAuthEvent("login_success")
	m.IncAuthEvent("rate_limited")

	body := scrape(t, m)

	if !strings.Contains(body, `authsvc_auth_events_total{event="login_success"} 2`) {
		t.Errorf("expected login_success counter = 2, got:\n%s", body)
	}
	if !strings.Contains(body, `authsvc_auth_events_total{event="rate_limited"} 1`) {
		t.Errorf("expected rate_limited counter = 1, got:\n%s", body)
	}

	counts := m.AuthEventCounts()
	if counts["login_success"] != 2 || counts["rate_limited"] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestMetrics_Uptime(t *testing.T) {
	m := New()

	time.Sleep(10 * time.Millisecond)

	if m.Uptime() <= 0 {
		t.Error("expected positive uptime")
	}
	if !strings.Contains(scrape(t, m), "authsvc_uptime_seconds") {
		t.Error("expected authsvc_uptime_seconds metric")
	}
}

func TestMetrics_EndpointNormalization(t *testing.T) {
	m := New()

	// These should be normalized to the same endpoint
	m.RecordRequest("GET", "/api/users/123e4567-e89b-12d3-a456-426614174000", 200, 10*time.Millisecond)
	m.RecordRequest("GET", "/api/users/550e8400-e29b-41d4-a716-446655440000", 200, 10*time.Millisecond)

	if !strings.Contains(scrape(t, m), "/api/users/{id}") {
		t.Error("expected normalized endpoint /api/users/{id}")
	}
}

func TestMetricsMiddleware(t *testing.T) {
	m := New()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	wrappedHandler := MetricsMiddleware(m)(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	w := httptest.NewRecorder()

	wrappedHandler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(scrape(t, m), "/api/auth/me") {
		t.Error("expected endpoint /api/auth/me in metrics")
	}
}

func TestMetrics_ConcurrentAuthEvents(t *testing.T) {
	m := New()

	// A growing key set forces map inserts to interleave with increments on
	// existing counters; run under -race.
	events := []string{
		"login_success", "login_failed", "register_success",
		"password_reset_success", "rate_limited", "logout_success",
	}

	const workers = 16
	const perWorker = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.IncAuthEvent(events[(offset+j)%len(events)])
			}
		}(i)
	}
	wg.Wait()

	var total uint64
	for _, count := range m.AuthEventCounts() {
		total += count
	}
	if total != workers*perWorker {
		t.Errorf("expected %d events recorded, got %d", workers*perWorker, total)
	}
}

func TestMetrics_ConcurrentRecordRequest(t *testing.T) {
	m := New()

	paths := []string{
		"/api/auth/login", "/api/auth/register", "/api/auth/me",
		"/api/auth/forgot-password", "/api/auth/reset-password",
	}
	statuses := []int{200, 201, 400, 401, 429, 500}

	const workers = 16
	const perWorker = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.RecordRequest("POST", paths[(offset+j)%len(paths)], statuses[(offset+j)%len(statuses)], time.Millisecond)
			}
		}(i)
	}
	wg.Wait()

	body := scrape(t, m)
	for _, path := range paths {
		if !strings.Contains(body, path) {
			t.Errorf("expected endpoint %s in metrics output", path)
		}
	}
	if !strings.Contains(body, `status_class="4xx"`) || !strings.Contains(body, `status_class="5xx"`) {
		t.Error("expected 4xx and 5xx error series")
	}
}

func TestMetrics_CustomGauge(t *testing.T) {
	m := New()

	m.SetGauge("active_sessions", 3.0)

	if !strings.Contains(scrape(t, m), `authsvc_gauge{name="active_sessions"}`) {
		t.Error("expected active_sessions gauge")
	}
}
