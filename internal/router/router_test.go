package router_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dropline/vendor-console/internal/auth"
	"github.com/dropline/vendor-console/internal/bulk"
	"github.com/dropline/vendor-console/internal/config"
	"github.com/dropline/vendor-console/internal/live"
	"github.com/dropline/vendor-console/internal/metrics"
	"github.com/dropline/vendor-console/internal/router"
	"github.com/dropline/vendor-console/internal/service"
	"github.com/dropline/vendor-console/internal/vendorapi"
	"github.com/dropline/vendor-console/internal/ws"
)

const testSecret = "router-secret"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{
		AllowedOrigins:     []string{"http://localhost:5173"},
		JWTSecret:          testSecret,
		SessionTTL:         time.Hour,
		BulkDefaultVehicle: "BIKE",
	}
	platform := vendorapi.New(vendorapi.Options{BaseURL: "http://platform.invalid"})
	reg := metrics.NewRegistry()
	hub := ws.NewHub()
	bulkSvc := service.NewBulkService(
		service.BulkConfig{Schema: bulk.Paired, Duplicates: bulk.DuplicateReject},
		bulk.NewRegistry(time.Hour),
		func(token string) service.BulkUpstream { return platform.WithToken(token) },
		nil, hub, reg,
	)
	return router.New(cfg, platform, bulkSvc, hub, live.NewTracker(0), reg)
}

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Errorf("health: %d %s", rr.Code, rr.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "vendor_bulk_sessions") {
		t.Error("expected vendor metrics in exposition")
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	r := newTestRouter(t)
	for _, path := range []string{"/stores", "/riders", "/orders", "/orders/bulk", "/dashboard/summary", "/reports/orders", "/auth/me"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s: got %d, want %d", path, rr.Code, http.StatusUnauthorized)
		}
	}
}

func TestSessionReachesHandlers(t *testing.T) {
	token, err := auth.GenerateToken(testSecret, "V1", "ops@acme.test", "upstream", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	r := newTestRouter(t)

	// Served locally, without a platform round trip.
	for _, path := range []string{"/auth/me", "/orders/bulk", "/orders/bulk/template"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("%s: got %d, want %d; body: %s", path, rr.Code, http.StatusOK, rr.Body.String())
		}
	}
}

func TestSessionWithoutUpstreamTokenForbidden(t *testing.T) {
	token, err := auth.GenerateToken(testSecret, "V1", "ops@acme.test", "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/stores", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/stores", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow origin: got %q", got)
	}
}
