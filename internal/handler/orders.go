package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dropline/vendor-console/internal/bulk"
	"github.com/dropline/vendor-console/internal/enum"
	"github.com/dropline/vendor-console/internal/live"
	"github.com/dropline/vendor-console/internal/vendorapi"
)

const (
	defaultOrderLimit = 6
	maxOrderLimit     = 100
)

// OrderUpstream defines the platform calls needed by order handlers.
// Satisfied by *vendorapi.Client.
type OrderUpstream interface {
	ListOrders(ctx context.Context, f vendorapi.OrderFilter) (*vendorapi.OrderPage, error)
	GetOrder(ctx context.Context, orderID string) (*vendorapi.Order, error)
	CreateOrder(ctx context.Context, req bulk.ParsedOrderRequest) (*vendorapi.Order, error)
	AssignRider(ctx context.Context, orderID, riderID string) (*vendorapi.Order, error)
	CancelOrder(ctx context.Context, orderID, reason string) error
	NearbyDrivers(ctx context.Context, orderID string) ([]vendorapi.NearbyDriver, error)
	ListStores(ctx context.Context) ([]vendorapi.Store, error)
	GetRider(ctx context.Context, riderID string) (*vendorapi.Rider, error)
}

// PositionSource is satisfied by *live.Tracker.
type PositionSource interface {
	Last(vendorID, orderID string) (live.Position, bool)
}

// OrderHandler handles single-order endpoints.
type OrderHandler struct {
	upstream       func(token string) OrderUpstream
	positions      PositionSource
	defaultVehicle string
}

// NewOrderHandler creates a new OrderHandler. positions may be nil when no
// live stream is configured.
func NewOrderHandler(upstream func(token string) OrderUpstream, positions PositionSource, defaultVehicle string) *OrderHandler {
	if defaultVehicle == "" {
		defaultVehicle = enum.VehicleTypeBike
	}
	return &OrderHandler{upstream: upstream, positions: positions, defaultVehicle: defaultVehicle}
}

// RegisterRoutes registers order endpoints. Expected to be mounted at /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/assign", h.Assign)
		r.Post("/cancel", h.Cancel)
		r.Get("/nearby-drivers", h.NearbyDrivers)
		r.Get("/tracking", h.Tracking)
	})
}

// --- Request / Response types ---

type pointRequest struct {
	Lat     *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng     *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
	Address string   `json:"address" validate:"max=300"`
}

type customerRequest struct {
	Name  string `json:"name" validate:"required,max=120"`
	Phone string `json:"phone" validate:"required,min=5,max=20"`
}

type createOrderRequest struct {
	ClientOrderID string          `json:"clientOrderId" validate:"max=64"`
	StoreID       string          `json:"storeId" validate:"required"`
	Drop          pointRequest    `json:"drop"`
	Customer      customerRequest `json:"customer"`
	VehicleType   string          `json:"vehicleType" validate:"omitempty,oneof=BIKE AUTO VAN TRUCK"`
	Notes         string          `json:"notes" validate:"max=500"`
}

type assignRequest struct {
	RiderID string `json:"riderId" validate:"required"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"required,max=300"`
}

type trackingResponse struct {
	OrderID       string          `json:"order_id"`
	Status        string          `json:"status"`
	Pickup        vendorapi.Point `json:"pickup"`
	Drop          vendorapi.Point `json:"drop"`
	Rider         *live.Position  `json:"rider,omitempty"`
	DistanceKm    float64         `json:"distance_km"`
	DirectionsURL string          `json:"directions_url"`
}

// --- Handlers ---

// List handles GET /orders?page=&limit=&status=.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	f := vendorapi.OrderFilter{Page: 1, Limit: defaultOrderLimit}
	if s := r.URL.Query().Get("page"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			f.Page = v
		}
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			f.Limit = v
		}
	}
	if f.Limit > maxOrderLimit {
		f.Limit = maxOrderLimit
	}
	if s := r.URL.Query().Get("status"); s != "" {
		if !isOrderStatus(s) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		f.Status = s
	}

	page, err := h.upstream(claims.UpstreamToken).ListOrders(r.Context(), f)
	if err != nil {
		writeUpstreamError(w, "list orders", err)
		return
	}
	if page.Items == nil {
		page.Items = []vendorapi.Order{}
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	order, err := h.upstream(claims.UpstreamToken).GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeUpstreamError(w, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Create handles the single order form. Pickup is the chosen store's location.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req createOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	api := h.upstream(claims.UpstreamToken)
	stores, err := api.ListStores(r.Context())
	if err != nil {
		writeUpstreamError(w, "list stores for order", err)
		return
	}
	var store *vendorapi.Store
	for i := range stores {
		if stores[i].StoreID == req.StoreID {
			store = &stores[i]
			break
		}
	}
	if store == nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "store not found"})
		return
	}

	order := bulk.ParsedOrderRequest{
		StoreID:     store.StoreID,
		Pickup:      bulk.LatLng{Lat: store.Lat, Lng: store.Lng},
		Drop:        bulk.LatLng{Lat: *req.Drop.Lat, Lng: *req.Drop.Lng},
		Customer:    bulk.Customer{Name: req.Customer.Name, Phone: req.Customer.Phone},
		VehicleType: req.VehicleType,
		Notes:       req.Notes,
		Source:      enum.SourceDashboard,
	}
	if req.ClientOrderID != "" {
		id := req.ClientOrderID
		order.ClientOrderID = &id
	}
	if order.VehicleType == "" {
		order.VehicleType = h.defaultVehicle
	}
	if order.Notes == "" {
		order.Notes = req.Drop.Address
	}

	created, err := api.CreateOrder(r.Context(), order)
	if err != nil {
		writeUpstreamError(w, "create order", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Assign hands a NEW order to an ACTIVE rider.
func (h *OrderHandler) Assign(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req assignRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	api := h.upstream(claims.UpstreamToken)
	orderID := chi.URLParam(r, "id")

	order, err := api.GetOrder(r.Context(), orderID)
	if err != nil {
		writeUpstreamError(w, "get order for assign", err)
		return
	}
	if order.Status != enum.OrderStatusNew {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "only NEW orders can be assigned"})
		return
	}

	rider, err := api.GetRider(r.Context(), req.RiderID)
	if err != nil {
		writeUpstreamError(w, "get rider for assign", err)
		return
	}
	if rider.Status != enum.RiderStatusActive {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "rider is not active"})
		return
	}

	assigned, err := api.AssignRider(r.Context(), orderID, req.RiderID)
	if err != nil {
		writeUpstreamError(w, "assign rider", err)
		return
	}
	writeJSON(w, http.StatusOK, assigned)
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	api := h.upstream(claims.UpstreamToken)
	orderID := chi.URLParam(r, "id")

	order, err := api.GetOrder(r.Context(), orderID)
	if err != nil {
		writeUpstreamError(w, "get order for cancel", err)
		return
	}
	switch order.Status {
	case enum.OrderStatusDelivered:
		writeJSON(w, http.StatusConflict, map[string]string{"error": "cannot cancel a delivered order"})
		return
	case enum.OrderStatusCancelled:
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order is already cancelled"})
		return
	}

	if err := api.CancelOrder(r.Context(), orderID, req.Reason); err != nil {
		writeUpstreamError(w, "cancel order", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"order_id": orderID, "status": enum.OrderStatusCancelled})
}

func (h *OrderHandler) NearbyDrivers(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	drivers, err := h.upstream(claims.UpstreamToken).NearbyDrivers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeUpstreamError(w, "nearby drivers", err)
		return
	}
	if drivers == nil {
		drivers = []vendorapi.NearbyDriver{}
	}
	writeJSON(w, http.StatusOK, drivers)
}

// Tracking combines the order's endpoints with the rider's last live position.
// Distance is measured from the rider to the drop when a position is known,
// otherwise from pickup to drop.
func (h *OrderHandler) Tracking(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	order, err := h.upstream(claims.UpstreamToken).GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeUpstreamError(w, "get order for tracking", err)
		return
	}

	resp := trackingResponse{
		OrderID: order.OrderID,
		Status:  order.Status,
		Pickup:  order.Pickup,
		Drop:    order.Drop,
	}
	from := order.Pickup
	if h.positions != nil {
		if pos, ok := h.positions.Last(claims.VendorID, order.OrderID); ok {
			resp.Rider = &pos
			from = vendorapi.Point{Lat: pos.Lat, Lng: pos.Lng}
		}
	}
	resp.DistanceKm = roundKm(haversineKm(from.Lat, from.Lng, order.Drop.Lat, order.Drop.Lng))
	resp.DirectionsURL = directionsURL(from, order.Drop)
	writeJSON(w, http.StatusOK, resp)
}

func isOrderStatus(s string) bool {
	switch s {
	case enum.OrderStatusNew, enum.OrderStatusAssigned, enum.OrderStatusPickedUp,
		enum.OrderStatusOnTheWay, enum.OrderStatusDelivered, enum.OrderStatusCancelled:
		return true
	}
	return false
}
