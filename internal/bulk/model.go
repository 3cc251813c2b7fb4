// Package bulk turns operator-pasted tabular text into validated order-creation
// requests. Every non-blank input line ends up as exactly one ParsedOrderRequest
// or exactly one RowError.
package bulk

// StoreRecord is a vendor store as returned by the platform's store listing.
type StoreRecord struct {
	StoreID string  `json:"storeId"`
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// LatLng is a geographic point.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Customer is the receiving party of an order.
type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// ParsedOrderRequest is the submission-ready form of one bulk row.
type ParsedOrderRequest struct {
	ClientOrderID *string  `json:"clientOrderId"`
	StoreID       string   `json:"storeId"`
	Pickup        LatLng   `json:"pickup"`
	Drop          LatLng   `json:"drop"`
	Customer      Customer `json:"customer"`
	VehicleType   string   `json:"vehicleType"`
	Notes         string   `json:"notes"`
	Source        string   `json:"source"`
	Status        string   `json:"status,omitempty"`
}

// RowError describes why a single input line was rejected.
type RowError struct {
	LineNumber int    `json:"lineNumber"`
	Message    string `json:"message"`
}

func (e RowError) Error() string { return e.Message }

// RawRow is the tokenized form of one non-blank input line.
type RawRow struct {
	Line   int
	Tokens []string
}

// BulkCreateRequest is the body of the platform's bulk order-creation call.
type BulkCreateRequest struct {
	Orders []ParsedOrderRequest `json:"orders"`
}
