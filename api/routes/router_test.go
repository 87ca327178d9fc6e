package routes

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rahulnegi20/recolora-backend/pkg/config"
	"github.com/rahulnegi20/recolora-backend/pkg/logger"
)

func testParams() Params {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT.Secret = "test-secret-test-secret-test-1234"
	cfg.JWT.Issuer = "recolora"
	cfg.Admin.Key = "admin-test-key"

	return Params{
		Config: cfg,
		Logger: logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard}),
	}
}

func serve(t *testing.T, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(testParams())
	req := httptest.NewRequest(method, target, nil)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealthRoutes(t *testing.T) {
	rec := serve(t, http.MethodGet, "/health/live", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /health/live, got %d", rec.Code)
	}

	rec = serve(t, http.MethodGet, "/health/ready", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /health/ready with no deps, got %d", rec.Code)
	}
}

func TestRouterMetricsDisabledWithoutRegistry(t *testing.T) {
	rec := serve(t, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a registry, got %d", rec.Code)
	}
}

func TestRouterAdminRoutesRequireKey(t *testing.T) {
	rec := serve(t, http.MethodGet, "/api/admin/v1/payments/search", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without admin key, got %d", rec.Code)
	}

	rec = serve(t, http.MethodGet, "/api/admin/v1/payments/search", map[string]string{"X-Admin-Key": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong admin key, got %d", rec.Code)
	}
}

func TestRouterPublicRoutesAreRegistered(t *testing.T) {
	// Services are nil in this fixture, so reaching a handler reports 500,
	// while an unregistered route reports 404 from chi.
	for _, route := range []struct {
		method string
		target string
	}{
		{http.MethodPost, "/api/v1/jobs/"},
		{http.MethodPost, "/api/v1/orders/"},
		{http.MethodGet, "/api/v1/orders/status"},
		{http.MethodPost, "/api/v1/orders/verify"},
		{http.MethodPost, "/api/v1/webhooks/phonepe"},
		{http.MethodPost, "/api/v1/webhooks/cashfree"},
	} {
		rec := serve(t, route.method, route.target, nil)
		if rec.Code == http.StatusNotFound || rec.Code == http.StatusMethodNotAllowed {
			t.Fatalf("route %s %s not registered (%d)", route.method, route.target, rec.Code)
		}
	}
}
