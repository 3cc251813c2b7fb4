package handler_test

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/dropline/vendor-console/internal/handler"
	"github.com/dropline/vendor-console/internal/vendorapi"
)

func newStoreRouter(m *mockPlatform) chi.Router {
	h := handler.NewStoreHandler(func(token string) handler.StoreUpstream { return m.as(token) })
	r := chi.NewRouter()
	r.Route("/stores", h.RegisterRoutes)
	return r
}

func TestStoreList(t *testing.T) {
	m := newMockPlatform()
	m.stores = []vendorapi.Store{{StoreID: "S1", Name: "Acme Store", Lat: 17.44, Lng: 78.38, Status: "ACTIVE"}}

	rr := sessionJSON(t, newStoreRouter(m), http.MethodGet, "/stores", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	list := decodeList(t, rr)
	if len(list) != 1 || list[0]["storeId"] != "S1" {
		t.Errorf("stores: got %v", list)
	}
	if len(m.tokens) != 1 || m.tokens[0] != testUpstreamToken {
		t.Errorf("upstream token: got %v", m.tokens)
	}
}

func TestStoreList_EmptyIsArray(t *testing.T) {
	rr := sessionJSON(t, newStoreRouter(newMockPlatform()), http.MethodGet, "/stores", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if body := rr.Body.String(); body != "[]\n" {
		t.Errorf("body: got %q, want []", body)
	}
}

func TestStoreList_SessionExpired(t *testing.T) {
	m := newMockPlatform()
	m.err = &vendorapi.APIError{Status: http.StatusUnauthorized, Message: "jwt expired"}

	rr := sessionJSON(t, newStoreRouter(m), http.MethodGet, "/stores", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	if resp := decodeResponse(t, rr); resp["error"] != "session expired" {
		t.Errorf("error: got %v", resp["error"])
	}
}

func TestStoreCreate(t *testing.T) {
	m := newMockPlatform()
	rr := sessionJSON(t, newStoreRouter(m), http.MethodPost, "/stores", map[string]interface{}{
		"name": "Lake Road", "lat": 17.41, "lng": 78.48, "address": "5 Lake Rd",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	if len(m.createdStores) != 1 || m.createdStores[0].Address != "5 Lake Rd" || m.createdStores[0].Lng != 78.48 {
		t.Errorf("created: got %+v", m.createdStores)
	}
}

func TestStoreCreate_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    map[string]interface{}
		wantErr string
	}{
		{"missing name", map[string]interface{}{"lat": 1.0, "lng": 1.0}, "name is required"},
		{"missing lat", map[string]interface{}{"name": "A", "lng": 1.0}, "lat is required"},
		{"lat out of range", map[string]interface{}{"name": "A", "lat": 91.0, "lng": 1.0}, "lat is out of range"},
		{"lng out of range", map[string]interface{}{"name": "A", "lat": 1.0, "lng": -181.0}, "lng is out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockPlatform()
			rr := sessionJSON(t, newStoreRouter(m), http.MethodPost, "/stores", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
			}
			if resp := decodeResponse(t, rr); resp["error"] != tt.wantErr {
				t.Errorf("error: got %v, want %q", resp["error"], tt.wantErr)
			}
			if len(m.createdStores) != 0 {
				t.Error("invalid store must not reach the platform")
			}
		})
	}
}

func TestStoreCreate_ZeroCoordinatesAllowed(t *testing.T) {
	m := newMockPlatform()
	rr := sessionJSON(t, newStoreRouter(m), http.MethodPost, "/stores", map[string]interface{}{
		"name": "Null Island", "lat": 0, "lng": 0,
	})
	if rr.Code != http.StatusCreated {
		t.Errorf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
}

func TestStoreUpdate(t *testing.T) {
	rr := sessionJSON(t, newStoreRouter(newMockPlatform()), http.MethodPatch, "/stores/S1", map[string]interface{}{
		"name": "Renamed", "lat": 17.4, "lng": 78.4,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if resp := decodeResponse(t, rr); resp["storeId"] != "S1" || resp["name"] != "Renamed" {
		t.Errorf("store: got %v", resp)
	}
}

func TestStoreChangeStatus(t *testing.T) {
	m := newMockPlatform()
	r := newStoreRouter(m)

	rr := sessionJSON(t, r, http.MethodPatch, "/stores/S1/status", map[string]string{"status": "INACTIVE"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if m.statusChanges["S1"] != "INACTIVE" {
		t.Errorf("status change: got %v", m.statusChanges)
	}

	rr = sessionJSON(t, r, http.MethodPatch, "/stores/S1/status", map[string]string{"status": "PAUSED"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestStoreDelete(t *testing.T) {
	m := newMockPlatform()
	rr := sessionJSON(t, newStoreRouter(m), http.MethodDelete, "/stores/S9", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNoContent)
	}
	if len(m.deleted) != 1 || m.deleted[0] != "S9" {
		t.Errorf("deleted: got %v", m.deleted)
	}
}

func TestStoreDelete_PlatformRefuses(t *testing.T) {
	m := newMockPlatform()
	m.err = &vendorapi.APIError{Status: http.StatusConflict, Message: "Store has active orders"}

	rr := sessionJSON(t, newStoreRouter(m), http.MethodDelete, "/stores/S1", nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
	if resp := decodeResponse(t, rr); resp["error"] != "Store has active orders" {
		t.Errorf("error: got %v", resp["error"])
	}
}
