package bulk

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownSchema = errors.New("unknown bulk schema")

// Field names a logical column of a bulk row.
type Field string

const (
	FieldStore         Field = "store"
	FieldClientOrderID Field = "clientOrderId"
	FieldAddress       Field = "address"
	FieldCoords        Field = "coords"
	FieldLat           Field = "lat"
	FieldLng           Field = "lng"
	FieldCustomerName  Field = "customerName"
	FieldPhone         Field = "phone"
	FieldStatus        Field = "status"
	FieldVehicle       Field = "vehicle"
)

// Schema maps logical fields to column positions. Columns at or beyond
// MinColumns are optional and only read when the row has them.
type Schema struct {
	Name       string
	Delimiter  Delimiter
	MinColumns int
	CoordPair  bool
	Columns    map[Field]int
	Headers    []string
}

// Column returns the position of f and whether the schema defines it.
func (s Schema) Column(f Field) (int, bool) {
	i, ok := s.Columns[f]
	return i, ok
}

// Paired is the default layout: coordinates as one "lat,lng" cell and an
// optional trailing status column.
var Paired = Schema{
	Name:       "paired",
	Delimiter:  DelimTab,
	MinColumns: 6,
	CoordPair:  true,
	Columns: map[Field]int{
		FieldStore:         0,
		FieldClientOrderID: 1,
		FieldAddress:       2,
		FieldCoords:        3,
		FieldCustomerName:  4,
		FieldPhone:         5,
		FieldStatus:        6,
	},
	Headers: []string{"Store Name", "Order ID", "Address", "Lat,Lng", "Customer Name", "Phone", "Status"},
}

// Split has latitude and longitude in separate columns and an optional
// trailing vehicle type.
var Split = Schema{
	Name:       "split",
	Delimiter:  DelimTab,
	MinColumns: 7,
	Columns: map[Field]int{
		FieldStore:         0,
		FieldClientOrderID: 1,
		FieldAddress:       2,
		FieldLat:           3,
		FieldLng:           4,
		FieldCustomerName:  5,
		FieldPhone:         6,
		FieldVehicle:       7,
	},
	Headers: []string{"Store Name", "Order ID", "Address", "Lat", "Lng", "Customer Name", "Phone", "Vehicle"},
}

// CSV is Split with comma separators. A coordinate pair cannot share a
// cell here, so latitude and longitude stay apart.
var CSV = Schema{
	Name:       "csv",
	Delimiter:  DelimComma,
	MinColumns: 7,
	Columns:    Split.Columns,
	Headers:    Split.Headers,
}

var schemas = map[string]Schema{
	Paired.Name: Paired,
	Split.Name:  Split,
	CSV.Name:    CSV,
}

// SchemaByName looks up a built-in schema. An empty name selects Paired.
func SchemaByName(name string) (Schema, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Paired, nil
	}
	s, ok := schemas[name]
	if !ok {
		return Schema{}, fmt.Errorf("%w %q", ErrUnknownSchema, name)
	}
	return s, nil
}
