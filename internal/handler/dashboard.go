package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropline/vendor-console/internal/enum"
	"github.com/dropline/vendor-console/internal/vendorapi"
)

// summarySample is how many of the latest orders the summary counts over.
const summarySample = 50

// DashboardUpstream defines the platform calls needed by the summary.
type DashboardUpstream interface {
	ListStores(ctx context.Context) ([]vendorapi.Store, error)
	ListOrders(ctx context.Context, f vendorapi.OrderFilter) (*vendorapi.OrderPage, error)
}

type DashboardHandler struct {
	upstream func(token string) DashboardUpstream
}

func NewDashboardHandler(upstream func(token string) DashboardUpstream) *DashboardHandler {
	return &DashboardHandler{upstream: upstream}
}

func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard/summary", h.Summary)
}

type summaryResponse struct {
	Stores    int `json:"stores"`
	New       int `json:"new"`
	InTransit int `json:"in_transit"`
	Delivered int `json:"delivered"`
	Sampled   int `json:"sampled"`
}

// Summary counts stores and the status mix of the latest orders.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	api := h.upstream(claims.UpstreamToken)

	stores, err := api.ListStores(r.Context())
	if err != nil {
		writeUpstreamError(w, "summary stores", err)
		return
	}
	page, err := api.ListOrders(r.Context(), vendorapi.OrderFilter{Page: 1, Limit: summarySample})
	if err != nil {
		writeUpstreamError(w, "summary orders", err)
		return
	}

	resp := summaryResponse{Stores: len(stores), Sampled: len(page.Items)}
	for _, o := range page.Items {
		switch {
		case o.Status == enum.OrderStatusNew:
			resp.New++
		case enum.IsInTransit(o.Status):
			resp.InTransit++
		case o.Status == enum.OrderStatusDelivered:
			resp.Delivered++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
