package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dropline/vendor-console/internal/auth"
	"github.com/dropline/vendor-console/internal/bulk"
	"github.com/dropline/vendor-console/internal/middleware"
	"github.com/dropline/vendor-console/internal/vendorapi"
)

const (
	testSecret        = "test-secret"
	testVendorID      = "V1"
	testUpstreamToken = "upstream-token"
)

// --- Mock platform ---

// mockPlatform stands in for *vendorapi.Client across all handler interfaces.
type mockPlatform struct {
	mu sync.Mutex

	err    error // returned by every call when set
	tokens []string

	stores []vendorapi.Store
	riders map[string]vendorapi.Rider
	orders map[string]vendorapi.Order
	page   *vendorapi.OrderPage
	report []vendorapi.Order

	login    *vendorapi.LoginResult
	loginErr error

	bulkErr   error
	bulkCalls []bulk.BulkCreateRequest

	lastOrderFilter  vendorapi.OrderFilter
	lastReportFilter vendorapi.ReportFilter
	createdStores    []vendorapi.StoreInput
	createdOrders    []bulk.ParsedOrderRequest
	assigned         map[string]string
	cancelled        map[string]string
	statusChanges    map[string]string
	deleted          []string
}

func newMockPlatform() *mockPlatform {
	return &mockPlatform{
		riders:        make(map[string]vendorapi.Rider),
		orders:        make(map[string]vendorapi.Order),
		assigned:      make(map[string]string),
		cancelled:     make(map[string]string),
		statusChanges: make(map[string]string),
	}
}

// as records the session token a handler built its client with.
func (m *mockPlatform) as(token string) *mockPlatform {
	m.mu.Lock()
	m.tokens = append(m.tokens, token)
	m.mu.Unlock()
	return m
}

func (m *mockPlatform) Login(_ context.Context, email, password string) (*vendorapi.LoginResult, error) {
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return m.login, nil
}

func (m *mockPlatform) ListStores(context.Context) ([]vendorapi.Store, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.stores, nil
}

func (m *mockPlatform) CreateStore(_ context.Context, in vendorapi.StoreInput) (*vendorapi.Store, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.createdStores = append(m.createdStores, in)
	return &vendorapi.Store{StoreID: "S-new", Name: in.Name, Lat: in.Lat, Lng: in.Lng, Status: "ACTIVE"}, nil
}

func (m *mockPlatform) UpdateStore(_ context.Context, storeID string, in vendorapi.StoreInput) (*vendorapi.Store, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &vendorapi.Store{StoreID: storeID, Name: in.Name, Lat: in.Lat, Lng: in.Lng}, nil
}

func (m *mockPlatform) ChangeStoreStatus(_ context.Context, storeID, status string) error {
	if m.err != nil {
		return m.err
	}
	m.statusChanges[storeID] = status
	return nil
}

func (m *mockPlatform) DeleteStore(_ context.Context, storeID string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, storeID)
	return nil
}

func (m *mockPlatform) ListRiders(context.Context) ([]vendorapi.Rider, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]vendorapi.Rider, 0, len(m.riders))
	for _, r := range m.riders {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockPlatform) GetRider(_ context.Context, riderID string) (*vendorapi.Rider, error) {
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.riders[riderID]
	if !ok {
		return nil, &vendorapi.APIError{Status: http.StatusNotFound, Message: "Rider not found"}
	}
	return &r, nil
}

func (m *mockPlatform) ChangeRiderStatus(_ context.Context, riderID, status string) error {
	if m.err != nil {
		return m.err
	}
	m.statusChanges[riderID] = status
	return nil
}

func (m *mockPlatform) AssignRiderToStore(_ context.Context, riderID, storeID string) error {
	if m.err != nil {
		return m.err
	}
	m.assigned[riderID] = storeID
	return nil
}

func (m *mockPlatform) ListOrders(_ context.Context, f vendorapi.OrderFilter) (*vendorapi.OrderPage, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.lastOrderFilter = f
	if m.page == nil {
		return &vendorapi.OrderPage{}, nil
	}
	return m.page, nil
}

func (m *mockPlatform) GetOrder(_ context.Context, orderID string) (*vendorapi.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	o, ok := m.orders[orderID]
	if !ok {
		return nil, &vendorapi.APIError{Status: http.StatusNotFound, Message: "Order not found"}
	}
	return &o, nil
}

func (m *mockPlatform) CreateOrder(_ context.Context, req bulk.ParsedOrderRequest) (*vendorapi.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.createdOrders = append(m.createdOrders, req)
	return &vendorapi.Order{OrderID: "O-new", StoreID: req.StoreID, Status: "NEW", Source: req.Source}, nil
}

func (m *mockPlatform) CreateOrdersBulk(_ context.Context, batch bulk.BulkCreateRequest) (*vendorapi.BulkCreateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bulkCalls = append(m.bulkCalls, batch)
	if m.bulkErr != nil {
		return nil, m.bulkErr
	}
	return &vendorapi.BulkCreateResult{Created: len(batch.Orders)}, nil
}

func (m *mockPlatform) AssignRider(_ context.Context, orderID, riderID string) (*vendorapi.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.assigned[orderID] = riderID
	o := m.orders[orderID]
	o.Status = "ASSIGNED"
	o.AssignedRiderID = riderID
	return &o, nil
}

func (m *mockPlatform) CancelOrder(_ context.Context, orderID, reason string) error {
	if m.err != nil {
		return m.err
	}
	m.cancelled[orderID] = reason
	return nil
}

func (m *mockPlatform) NearbyDrivers(context.Context, string) ([]vendorapi.NearbyDriver, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []vendorapi.NearbyDriver{{ID: "R1", Name: "Ravi", Distance: 1.2}}, nil
}

func (m *mockPlatform) ReportOrders(_ context.Context, f vendorapi.ReportFilter, page, limit int) (*vendorapi.ReportPage, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.lastReportFilter = f
	start := (page - 1) * limit
	if start > len(m.report) {
		start = len(m.report)
	}
	end := start + limit
	if end > len(m.report) {
		end = len(m.report)
	}
	totalPages := (len(m.report) + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}
	return &vendorapi.ReportPage{
		Orders:     m.report[start:end],
		Pagination: vendorapi.Pagination{Page: page, Limit: limit, Total: len(m.report), TotalPages: totalPages},
	}, nil
}

// --- Helpers ---

func withSession(r *http.Request) *http.Request {
	claims := &auth.Claims{
		VendorID:         testVendorID,
		Email:            "ops@acme.test",
		UpstreamToken:    testUpstreamToken,
		RegisteredClaims: jwt.RegisteredClaims{ID: "session-1"},
	}
	return r.WithContext(middleware.WithClaims(r.Context(), claims))
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, router, http.MethodPost, path, body, false)
}

// sessionJSON sends a request carrying the test session's claims.
func sessionJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, router, method, path, body, true)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}, session bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("marshal request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if session {
		req = withSession(req)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func decodeList(t *testing.T, rr *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var resp []map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func ptr[T any](v T) *T { return &v }
