package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropline/vendor-console/internal/vendorapi"
)

// RiderUpstream defines the platform calls needed by rider handlers.
type RiderUpstream interface {
	ListRiders(ctx context.Context) ([]vendorapi.Rider, error)
	GetRider(ctx context.Context, riderID string) (*vendorapi.Rider, error)
	ChangeRiderStatus(ctx context.Context, riderID, status string) error
	AssignRiderToStore(ctx context.Context, riderID, storeID string) error
}

// RiderHandler handles the vendor's rider roster.
type RiderHandler struct {
	upstream func(token string) RiderUpstream
}

func NewRiderHandler(upstream func(token string) RiderUpstream) *RiderHandler {
	return &RiderHandler{upstream: upstream}
}

// RegisterRoutes registers rider endpoints. Expected to be mounted at /riders.
func (h *RiderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/status", h.ChangeStatus)
		r.Patch("/store", h.AssignStore)
	})
}

type riderStoreRequest struct {
	StoreID string `json:"storeId" validate:"required"`
}

func (h *RiderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	riders, err := h.upstream(claims.UpstreamToken).ListRiders(r.Context())
	if err != nil {
		writeUpstreamError(w, "list riders", err)
		return
	}
	if riders == nil {
		riders = []vendorapi.Rider{}
	}
	writeJSON(w, http.StatusOK, riders)
}

func (h *RiderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	rider, err := h.upstream(claims.UpstreamToken).GetRider(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeUpstreamError(w, "get rider", err)
		return
	}
	writeJSON(w, http.StatusOK, rider)
}

func (h *RiderHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.upstream(claims.UpstreamToken).ChangeRiderStatus(r.Context(), id, req.Status); err != nil {
		writeUpstreamError(w, "change rider status", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"rider_id": id, "status": req.Status})
}

// AssignStore moves a rider to another of the vendor's stores.
func (h *RiderHandler) AssignStore(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req riderStoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.upstream(claims.UpstreamToken).AssignRiderToStore(r.Context(), id, req.StoreID); err != nil {
		writeUpstreamError(w, "assign rider store", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"rider_id": id, "store_id": req.StoreID})
}
