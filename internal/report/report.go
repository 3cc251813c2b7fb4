// Package report builds the vendor order report and its spreadsheet export.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/dropline/vendor-console/internal/vendorapi"
)

const (
	pageSize = 50
	maxPages = 200
)

// Source is satisfied by *vendorapi.Client.
type Source interface {
	ReportOrders(ctx context.Context, f vendorapi.ReportFilter, page, limit int) (*vendorapi.ReportPage, error)
}

// Collect fetches every page of the report for f.
func Collect(ctx context.Context, src Source, f vendorapi.ReportFilter) ([]vendorapi.Order, error) {
	var all []vendorapi.Order
	totalPages := 1
	for page := 1; page <= totalPages; page++ {
		if page > maxPages {
			return nil, fmt.Errorf("report exceeds %d pages", maxPages)
		}
		res, err := src.ReportOrders(ctx, f, page, pageSize)
		if err != nil {
			return nil, fmt.Errorf("fetch report page %d: %w", page, err)
		}
		all = append(all, res.Orders...)
		totalPages = res.Pagination.TotalPages
	}
	if all == nil {
		all = []vendorapi.Order{}
	}
	return all, nil
}

type Row struct {
	No       int              `json:"no"`
	OrderID  string           `json:"order_id"`
	Store    string           `json:"store"`
	Customer string           `json:"customer"`
	Mobile   string           `json:"mobile"`
	Address  string           `json:"address"`
	Km       *decimal.Decimal `json:"km"`
	Amount   *decimal.Decimal `json:"amount"`
	Status   string           `json:"status"`
	Rider    string           `json:"rider"`
	Date     string           `json:"date"`
}

type Totals struct {
	Orders int             `json:"orders"`
	Km     decimal.Decimal `json:"km"`
	Amount decimal.Decimal `json:"amount"`
}

// BuildRows resolves store and rider names and applies the report's
// display fallbacks.
func BuildRows(orders []vendorapi.Order, stores []vendorapi.Store, riders []vendorapi.Rider) []Row {
	storeNames := make(map[string]string, len(stores))
	for _, s := range stores {
		storeNames[s.StoreID] = s.Name
	}
	riderNames := make(map[string]string, len(riders))
	for _, r := range riders {
		riderNames[r.RiderID] = r.Name
	}

	rows := make([]Row, 0, len(orders))
	for i, o := range orders {
		row := Row{
			No:       i + 1,
			OrderID:  orDash(o.ClientOrderID),
			Store:    storeNames[o.StoreID],
			Customer: orDash(o.Customer.Name),
			Mobile:   orDash(o.Customer.Phone),
			Address:  dropAddress(o),
			Status:   o.Status,
			Rider:    riderNames[o.AssignedRiderID],
			Date:     orderDate(o),
		}
		if row.Store == "" {
			row.Store = o.StoreID
		}
		if row.Rider == "" {
			row.Rider = orDash(o.AssignedRiderID)
		}
		if o.Billing != nil {
			row.Km = o.Billing.TotalKm
			row.Amount = o.Billing.TotalAmount
		}
		rows = append(rows, row)
	}
	return rows
}

func Sum(rows []Row) Totals {
	t := Totals{Orders: len(rows), Km: decimal.Zero, Amount: decimal.Zero}
	for _, r := range rows {
		if r.Km != nil {
			t.Km = t.Km.Add(*r.Km)
		}
		if r.Amount != nil {
			t.Amount = t.Amount.Add(*r.Amount)
		}
	}
	return t
}

var headers = []string{"#", "Order ID", "Store", "Customer", "Mobile", "Delivery Address", "KM", "Amount", "Status", "Rider", "Date"}

// WriteXLSX writes the report as a single-sheet workbook.
func WriteXLSX(w io.Writer, rows []Row, totals Totals, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetName(sheet, "Orders"); err != nil {
		return err
	}
	sheet = "Orders"

	_ = f.SetCellValue(sheet, "A1", "Vendor Orders Report")
	_ = f.SetCellValue(sheet, "A2", "Generated on: "+generatedAt.Format("02/01/2006, 15:04:05"))

	const headerRow = 4
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := headerRow + 1 + i
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.No)
		set(2, row.OrderID)
		set(3, row.Store)
		set(4, row.Customer)
		set(5, row.Mobile)
		set(6, row.Address)
		set(7, decimalCell(row.Km))
		set(8, decimalCell(row.Amount))
		set(9, row.Status)
		set(10, row.Rider)
		set(11, row.Date)
	}

	totalRow := headerRow + 1 + len(rows)
	set := func(col int, value any) {
		cell, _ := excelize.CoordinatesToCellName(col, totalRow)
		_ = f.SetCellValue(sheet, cell, value)
	}
	set(1, "Total")
	set(2, totals.Orders)
	set(7, totals.Km.InexactFloat64())
	set(8, totals.Amount.InexactFloat64())

	_, err := f.WriteTo(w)
	return err
}

func decimalCell(d *decimal.Decimal) any {
	if d == nil {
		return "-"
	}
	return d.InexactFloat64()
}

func dropAddress(o vendorapi.Order) string {
	if a := strings.TrimSpace(o.Drop.Address); a != "" {
		return a
	}
	if n := strings.TrimSpace(o.Notes); n != "" {
		return n
	}
	return "-"
}

func orderDate(o vendorapi.Order) string {
	t := o.UpdatedAt
	if t.IsZero() {
		t = o.CreatedAt
	}
	if t.IsZero() {
		return "-"
	}
	return t.Format("02/01/2006")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
