package handler

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropline/vendor-console/internal/enum"
	"github.com/dropline/vendor-console/internal/report"
	"github.com/dropline/vendor-console/internal/vendorapi"
)

// ReportUpstream defines the platform calls needed by report handlers.
// Satisfied by *vendorapi.Client.
type ReportUpstream interface {
	ReportOrders(ctx context.Context, f vendorapi.ReportFilter, page, limit int) (*vendorapi.ReportPage, error)
	ListStores(ctx context.Context) ([]vendorapi.Store, error)
	ListRiders(ctx context.Context) ([]vendorapi.Rider, error)
}

// ReportsHandler handles the vendor order report and its export.
type ReportsHandler struct {
	upstream func(token string) ReportUpstream
	now      func() time.Time
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(upstream func(token string) ReportUpstream) *ReportsHandler {
	return &ReportsHandler{upstream: upstream, now: time.Now}
}

// RegisterRoutes registers report endpoints. Expected to be mounted at /reports.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.Orders)
	r.Get("/orders/export", h.Export)
}

// --- Response types ---

type reportResponse struct {
	Rows       []report.Row         `json:"rows"`
	Totals     report.Totals        `json:"totals"`
	Pagination vendorapi.Pagination `json:"pagination"`
}

// --- Handlers ---

// Orders returns one page of the report with store and rider names resolved.
func (h *ReportsHandler) Orders(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	f, err := parseReportFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	page, limit := 1, 20
	if s := r.URL.Query().Get("page"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			page = v
		}
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	api := h.upstream(claims.UpstreamToken)
	res, err := api.ReportOrders(r.Context(), f, page, limit)
	if err != nil {
		writeUpstreamError(w, "report orders", err)
		return
	}
	stores, riders, err := names(r.Context(), api)
	if err != nil {
		writeUpstreamError(w, "report names", err)
		return
	}

	rows := report.BuildRows(res.Orders, stores, riders)
	writeJSON(w, http.StatusOK, reportResponse{
		Rows:       rows,
		Totals:     report.Sum(rows),
		Pagination: res.Pagination,
	})
}

// Export streams every page of the report as a workbook.
func (h *ReportsHandler) Export(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	f, err := parseReportFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	api := h.upstream(claims.UpstreamToken)
	orders, err := report.Collect(r.Context(), api, f)
	if err != nil {
		writeUpstreamError(w, "export report", err)
		return
	}
	stores, riders, err := names(r.Context(), api)
	if err != nil {
		writeUpstreamError(w, "export report names", err)
		return
	}

	rows := report.BuildRows(orders, stores, riders)
	now := h.now()
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, rows, report.Sum(rows), now); err != nil {
		log.Printf("ERROR: write report workbook: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	filename := "orders-report-" + now.Format("2006-01-02") + ".xlsx"
	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("ERROR: send report workbook: %v", err)
	}
}

// --- Helpers ---

func names(ctx context.Context, api ReportUpstream) ([]vendorapi.Store, []vendorapi.Rider, error) {
	stores, err := api.ListStores(ctx)
	if err != nil {
		return nil, nil, err
	}
	riders, err := api.ListRiders(ctx)
	if err != nil {
		return nil, nil, err
	}
	return stores, riders, nil
}

// parseReportFilter reads storeId, riderId, status, fromDate and toDate.
// Status defaults to DELIVERED; "ALL" lifts the status filter.
func parseReportFilter(r *http.Request) (vendorapi.ReportFilter, error) {
	const layout = "2006-01-02"
	q := r.URL.Query()

	f := vendorapi.ReportFilter{
		StoreID: q.Get("storeId"),
		RiderID: q.Get("riderId"),
		Status:  enum.OrderStatusDelivered,
	}
	switch s := q.Get("status"); {
	case s == "":
	case s == "ALL":
		f.Status = ""
	case isOrderStatus(s):
		f.Status = s
	default:
		return f, fmt.Errorf("invalid status %q", s)
	}

	var from, to time.Time
	if s := q.Get("fromDate"); s != "" {
		t, err := time.Parse(layout, s)
		if err != nil {
			return f, fmt.Errorf("invalid fromDate format, use YYYY-MM-DD")
		}
		from = t
		f.FromDate = s
	}
	if s := q.Get("toDate"); s != "" {
		t, err := time.Parse(layout, s)
		if err != nil {
			return f, fmt.Errorf("invalid toDate format, use YYYY-MM-DD")
		}
		to = t
		f.ToDate = s
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return f, fmt.Errorf("fromDate must not be after toDate")
	}
	return f, nil
}
