package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropline/vendor-console/internal/vendorapi"
)

// StoreUpstream defines the platform calls needed by store handlers.
// Satisfied by *vendorapi.Client.
type StoreUpstream interface {
	ListStores(ctx context.Context) ([]vendorapi.Store, error)
	CreateStore(ctx context.Context, in vendorapi.StoreInput) (*vendorapi.Store, error)
	UpdateStore(ctx context.Context, storeID string, in vendorapi.StoreInput) (*vendorapi.Store, error)
	ChangeStoreStatus(ctx context.Context, storeID, status string) error
	DeleteStore(ctx context.Context, storeID string) error
}

// StoreHandler handles the vendor's pickup locations.
type StoreHandler struct {
	upstream func(token string) StoreUpstream
}

// NewStoreHandler creates a new StoreHandler. upstream returns a client
// acting as the session's vendor.
func NewStoreHandler(upstream func(token string) StoreUpstream) *StoreHandler {
	return &StoreHandler{upstream: upstream}
}

// RegisterRoutes registers store endpoints. Expected to be mounted at /stores.
func (h *StoreHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Patch("/", h.Update)
		r.Patch("/status", h.ChangeStatus)
		r.Delete("/", h.Delete)
	})
}

// --- Request types ---

type storeRequest struct {
	Name    string   `json:"name" validate:"required,max=120"`
	Address string   `json:"address" validate:"max=300"`
	Phone   string   `json:"phone" validate:"max=20"`
	Lat     *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng     *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
}

func (s storeRequest) input() vendorapi.StoreInput {
	return vendorapi.StoreInput{Name: s.Name, Address: s.Address, Phone: s.Phone, Lat: *s.Lat, Lng: *s.Lng}
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE INACTIVE"`
}

// --- Handlers ---

func (h *StoreHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	stores, err := h.upstream(claims.UpstreamToken).ListStores(r.Context())
	if err != nil {
		writeUpstreamError(w, "list stores", err)
		return
	}
	if stores == nil {
		stores = []vendorapi.Store{}
	}
	writeJSON(w, http.StatusOK, stores)
}

func (h *StoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req storeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	store, err := h.upstream(claims.UpstreamToken).CreateStore(r.Context(), req.input())
	if err != nil {
		writeUpstreamError(w, "create store", err)
		return
	}
	writeJSON(w, http.StatusCreated, store)
}

func (h *StoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req storeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	store, err := h.upstream(claims.UpstreamToken).UpdateStore(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeUpstreamError(w, "update store", err)
		return
	}
	writeJSON(w, http.StatusOK, store)
}

func (h *StoreHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.upstream(claims.UpstreamToken).ChangeStoreStatus(r.Context(), id, req.Status); err != nil {
		writeUpstreamError(w, "change store status", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"store_id": id, "status": req.Status})
}

func (h *StoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	if err := h.upstream(claims.UpstreamToken).DeleteStore(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeUpstreamError(w, "delete store", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
