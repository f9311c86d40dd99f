package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/giygas/vaccination-book-api/config"
	"github.com/giygas/vaccination-book-api/data"
	"github.com/giygas/vaccination-book-api/vaccineparser/entities"
	"github.com/giygas/vaccination-book-api/validation"
	"github.com/go-chi/chi/v5"
)

type stubSource struct{}

func (stubSource) FetchRecords(ctx context.Context, childID string) ([]entities.RawDoseRecord, error) {
	return nil, nil
}

// routeRecorder answers every handler method with its own name
type routeRecorder struct{}

func (routeRecorder) write(w http.ResponseWriter, name string) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(name))
}

func (h routeRecorder) ServeVaccinationBook(w http.ResponseWriter, r *http.Request) {
	h.write(w, "book:"+chi.URLParam(r, "childId"))
}
func (h routeRecorder) CreateView(w http.ResponseWriter, r *http.Request) { h.write(w, "create") }
func (h routeRecorder) GetView(w http.ResponseWriter, r *http.Request) {
	h.write(w, "get:"+chi.URLParam(r, "viewId"))
}
func (h routeRecorder) UpdateView(w http.ResponseWriter, r *http.Request) {
	h.write(w, "update:"+chi.URLParam(r, "viewId"))
}
func (h routeRecorder) RefetchView(w http.ResponseWriter, r *http.Request) {
	h.write(w, "refetch:"+chi.URLParam(r, "viewId"))
}
func (h routeRecorder) DeleteView(w http.ResponseWriter, r *http.Request) {
	h.write(w, "delete:"+chi.URLParam(r, "viewId"))
}
func (h routeRecorder) HealthCheck(w http.ResponseWriter, r *http.Request) { h.write(w, "health") }

func testConfig(env config.Environment) *config.Config {
	return &config.Config{
		Port:            "8000",
		Address:         "127.0.0.1",
		Env:             env,
		MaxRequestBody:  1024 * 1024,
		MaxHeaderSize:   8192,
		UpstreamTimeout: time.Second,
	}
}

func newTestServer(t *testing.T, env config.Environment) *Server {
	t.Helper()
	store := data.NewDataContainer(stubSource{}, validation.NewDataValidator(), 3)
	s := NewServer(testConfig(env), store, routeRecorder{})
	t.Cleanup(s.rateLimiter.Stop)
	return s
}

func TestServerRoutes(t *testing.T) {
	s := newTestServer(t, config.EnvTest)

	tests := []struct {
		method   string
		path     string
		expected string
	}{
		{http.MethodGet, "/v1/children/c42/vaccination-book", "book:c42"},
		{http.MethodPost, "/v1/views", "create"},
		{http.MethodGet, "/v1/views/v1", "get:v1"},
		{http.MethodPatch, "/v1/views/v1", "update:v1"},
		{http.MethodPost, "/v1/views/v1/refetch", "refetch:v1"},
		{http.MethodDelete, "/v1/views/v1", "delete:v1"},
		{http.MethodGet, "/health", "health"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rr := httptest.NewRecorder()
			s.Router().ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", rr.Code)
			}
			if rr.Body.String() != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, rr.Body.String())
			}
		})
	}
}

func TestServerUnknownRoute(t *testing.T) {
	s := newTestServer(t, config.EnvTest)

	req := httptest.NewRequest(http.MethodGet, "/v1/unknown", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rr.Code)
	}
}

func TestServerMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, config.EnvTest)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if rr.Body.Len() == 0 {
		t.Error("Expected metrics output")
	}
}

func TestServerRequestIDAndRateHeaders(t *testing.T) {
	s := newTestServer(t, config.EnvTest)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Header().Get("X-RateLimit-Limit") == "" {
		t.Error("Expected rate limit headers on responses")
	}
}

func TestServerProductionBlocksDirectAccess(t *testing.T) {
	s := newTestServer(t, config.EnvProduction)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "198.51.100.9:4000"
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for direct access in production, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "198.51.100.9:4000"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	rr = httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200 through the proxy, got %d", rr.Code)
	}
}

func TestServerShutdownWithoutStart(t *testing.T) {
	s := newTestServer(t, config.EnvTest)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Expected clean shutdown, got %v", err)
	}
}
