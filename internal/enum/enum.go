package enum

// ── Group A: Upstream state machines (owned by the platform, mirrored here) ──

const (
	OrderStatusNew       = "NEW"
	OrderStatusAssigned  = "ASSIGNED"
	OrderStatusPickedUp  = "PICKED_UP"
	OrderStatusOnTheWay  = "ON_THE_WAY"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCancelled = "CANCELLED"
)

const (
	RiderStatusActive   = "ACTIVE"
	RiderStatusInactive = "INACTIVE"
)

const (
	StoreStatusActive   = "ACTIVE"
	StoreStatusInactive = "INACTIVE"
)

// ── Group B: Values this service stamps on outgoing requests ──

const (
	VehicleTypeBike  = "BIKE"
	VehicleTypeAuto  = "AUTO"
	VehicleTypeVan   = "VAN"
	VehicleTypeTruck = "TRUCK"
)

const (
	SourceDashboard = "VENDOR_DASHBOARD"
	SourceBulk      = "VENDOR_BULK"
	SourceBulkXLSX  = "VENDOR_BULK_XLSX"
)

// ── Group C: Live stream event names ──

const (
	EventRiderLocation = "rider:location:update"
	EventOrderUpdated  = "vendor:order_updated"
	EventBulkSubmitted = "vendor:bulk_submitted"
)

// IsFinalOrderStatus reports whether an order can no longer change.
func IsFinalOrderStatus(s string) bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// IsInTransit reports whether an order is between assignment and delivery.
func IsInTransit(s string) bool {
	switch s {
	case OrderStatusAssigned, OrderStatusPickedUp, OrderStatusOnTheWay:
		return true
	}
	return false
}

// IsVehicleType reports whether v is a known vehicle category.
func IsVehicleType(v string) bool {
	switch v {
	case VehicleTypeBike, VehicleTypeAuto, VehicleTypeVan, VehicleTypeTruck:
		return true
	}
	return false
}
