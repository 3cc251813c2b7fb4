package vendorapi

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Vendor struct {
	VendorID      string `json:"vendorId"`
	Name          string `json:"name"`
	Username      string `json:"username,omitempty"`
	Email         string `json:"email,omitempty"`
	ProfilePicURL string `json:"profilePicUrl,omitempty"`
}

type LoginResult struct {
	Token  string `json:"token"`
	Vendor Vendor `json:"vendor"`
}

type Store struct {
	StoreID string  `json:"storeId"`
	Name    string  `json:"name"`
	Address string  `json:"address,omitempty"`
	Phone   string  `json:"phone,omitempty"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Status  string  `json:"status"`
}

type StoreInput struct {
	Name    string  `json:"name"`
	Address string  `json:"address,omitempty"`
	Phone   string  `json:"phone,omitempty"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

type Rider struct {
	RiderID     string `json:"riderId"`
	Name        string `json:"name"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	Status      string `json:"status"`
	StoreID     string `json:"storeId,omitempty"`
	VehicleType string `json:"vehicleType,omitempty"`
}

type Point struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type Billing struct {
	TotalKm     *decimal.Decimal `json:"totalKm"`
	TotalAmount *decimal.Decimal `json:"totalAmount"`
}

type Order struct {
	OrderID         string    `json:"orderId"`
	ClientOrderID   string    `json:"clientOrderId,omitempty"`
	StoreID         string    `json:"storeId"`
	Pickup          Point     `json:"pickup"`
	Drop            Point     `json:"drop"`
	Customer        Customer  `json:"customer"`
	VehicleType     string    `json:"vehicleType,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	Source          string    `json:"source,omitempty"`
	Status          string    `json:"status"`
	AssignedRiderID string    `json:"assignedRiderId,omitempty"`
	Billing         *Billing  `json:"billing,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type OrderPage struct {
	Items      []Order    `json:"items"`
	Pagination Pagination `json:"pagination"`
}

type NearbyDriver struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}

type BulkCreateResult struct {
	Created int     `json:"created"`
	Orders  []Order `json:"orders,omitempty"`
}

type OrderFilter struct {
	Page   int
	Limit  int
	Status string
}

type ReportFilter struct {
	StoreID  string
	RiderID  string
	Status   string
	FromDate string
	ToDate   string
}

type ReportPage struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// listOf accepts both {"items": [...]} and a bare array.
type listOf[T any] struct {
	Items      []T
	Pagination *Pagination
}

func (l *listOf[T]) UnmarshalJSON(b []byte) error {
	var arr []T
	if err := json.Unmarshal(b, &arr); err == nil {
		l.Items = arr
		return nil
	}
	var wrapped struct {
		Items      []T         `json:"items"`
		Pagination *Pagination `json:"pagination"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	l.Items = wrapped.Items
	l.Pagination = wrapped.Pagination
	return nil
}
