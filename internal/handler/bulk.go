package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropline/vendor-console/internal/auth"
	"github.com/dropline/vendor-console/internal/bulk"
	"github.com/dropline/vendor-console/internal/journal"
	"github.com/dropline/vendor-console/internal/service"
	"github.com/dropline/vendor-console/internal/vendorapi"
)

const (
	maxBulkText   = 2 << 20
	maxBulkUpload = 10 << 20
	xlsxMIME      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// BulkServicer defines the service methods needed by bulk handlers.
// Satisfied by *service.BulkService.
type BulkServicer interface {
	Schema(name string) (bulk.Schema, error)
	ParseText(ctx context.Context, c service.Caller, text, schemaName string) (bulk.Snapshot, error)
	ParseXLSX(ctx context.Context, c service.Caller, r io.Reader, schemaName string) (bulk.Snapshot, error)
	Snapshot(c service.Caller) bulk.Snapshot
	Submit(ctx context.Context, c service.Caller) (*service.SubmitResult, error)
	History(ctx context.Context, c service.Caller, limit int) ([]journal.Entry, error)
}

// BulkHandler handles pasted and uploaded bulk order ingestion.
type BulkHandler struct {
	svc BulkServicer
}

func NewBulkHandler(svc BulkServicer) *BulkHandler {
	return &BulkHandler{svc: svc}
}

// RegisterRoutes registers bulk endpoints under /bulk of the orders router.
func (h *BulkHandler) RegisterRoutes(r chi.Router) {
	r.Route("/bulk", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/parse", h.Parse)
		r.Post("/upload", h.Upload)
		r.Post("/submit", h.Submit)
		r.Get("/template", h.Template)
		r.Get("/history", h.History)
	})
}

// --- Request / Response types ---

type bulkParseRequest struct {
	Text   string `json:"text" validate:"required"`
	Schema string `json:"schema" validate:"omitempty,oneof=paired split csv"`
}

type bulkResponse struct {
	bulk.Snapshot
	Accepted  int  `json:"accepted"`
	Rejected  int  `json:"rejected"`
	CanSubmit bool `json:"can_submit"`
}

func toBulkResponse(s bulk.Snapshot) bulkResponse {
	resp := bulkResponse{Snapshot: s}
	if s.Result != nil {
		resp.Accepted = s.Result.Accepted()
		resp.Rejected = s.Result.Rejected()
		resp.CanSubmit = !s.Result.Blocked() && !s.InFlight && s.State != bulk.StateSubmitted.String()
	}
	return resp
}

// --- Handlers ---

func (h *BulkHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toBulkResponse(h.svc.Snapshot(callerOf(claims))))
}

// Parse classifies pasted text. Every non-blank line becomes an order or a
// row error; row errors are part of a 200 response.
func (h *BulkHandler) Parse(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBulkText)
	var req bulkParseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	snap, err := h.svc.ParseText(r.Context(), callerOf(claims), req.Text, req.Schema)
	if err != nil {
		h.writeParseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBulkResponse(snap))
}

// Upload classifies the first sheet of a multipart .xlsx file (field "file").
func (h *BulkHandler) Upload(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBulkUpload)
	if err := r.ParseMultipartForm(maxBulkUpload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file is required"})
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "only .xlsx files are supported"})
		return
	}

	snap, err := h.svc.ParseXLSX(r.Context(), callerOf(claims), file, r.FormValue("schema"))
	if err != nil {
		h.writeParseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBulkResponse(snap))
}

// Submit posts the reviewed batch once.
func (h *BulkHandler) Submit(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	res, err := h.svc.Submit(r.Context(), callerOf(claims))
	switch {
	case err == nil:
	case errors.Is(err, bulk.ErrSubmitInFlight), errors.Is(err, bulk.ErrAlreadySubmitted):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, bulk.ErrNothingParsed), errors.Is(err, bulk.ErrRowErrors), errors.Is(err, bulk.ErrNoOrders):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, vendorapi.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "session expired"})
		return
	case errors.Is(err, service.ErrSubmitFailed):
		log.Printf("ERROR: bulk submit for vendor %s: %v", claims.VendorID, err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	default:
		log.Printf("ERROR: bulk submit: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if res.Stale {
		writeJSON(w, http.StatusOK, res)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Template serves an empty workbook with the schema's header row.
func (h *BulkHandler) Template(w http.ResponseWriter, r *http.Request) {
	schema, err := h.svc.Schema(r.URL.Query().Get("schema"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	blob, err := bulk.Template(schema)
	if err != nil {
		log.Printf("ERROR: build bulk template: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "bulk-orders-"+schema.Name+".xlsx"))
	w.Header().Set("Content-Length", strconv.Itoa(len(blob)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(blob); err != nil {
		log.Printf("ERROR: write bulk template: %v", err)
	}
}

// History lists the vendor's recent bulk submissions.
func (h *BulkHandler) History(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}
	entries, err := h.svc.History(r.Context(), callerOf(claims), limit)
	if err != nil {
		log.Printf("ERROR: bulk history: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *BulkHandler) writeParseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bulk.ErrUnknownSchema):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, bulk.ErrNotWorkbook):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file is not a readable .xlsx workbook"})
	default:
		writeUpstreamError(w, "bulk parse", err)
	}
}

func callerOf(c *auth.Claims) service.Caller {
	return service.Caller{VendorID: c.VendorID, SessionID: c.SessionID(), Token: c.UpstreamToken}
}
