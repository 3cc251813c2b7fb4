package bulk

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dropline/vendor-console/internal/enum"
)

// Fields is a validated row, extracted by the schema's column table.
type Fields struct {
	Line          int
	StoreName     string
	ClientOrderID string
	Address       string
	Drop          LatLng
	CustomerName  string
	Phone         string
	Status        string
	Vehicle       string
}

var requiredFields = []struct {
	field Field
	label string
}{
	{FieldStore, "store name"},
	{FieldCustomerName, "customer name"},
	{FieldPhone, "phone"},
}

// Validate checks a tokenized row against the schema and extracts its
// fields. A non-nil RowError means the row is rejected as a whole.
func Validate(row RawRow, s Schema) (Fields, *RowError) {
	n := row.Line
	if len(row.Tokens) < s.MinColumns {
		return Fields{}, rowErrorf(n, "Invalid format")
	}

	get := func(f Field) string {
		i, ok := s.Column(f)
		if !ok || i >= len(row.Tokens) {
			return ""
		}
		return row.Tokens[i]
	}

	// Coordinates come first so a non-numeric row always gets the numeric error.
	var latStr, lngStr string
	if s.CoordPair {
		parts := strings.Split(get(FieldCoords), ",")
		if len(parts) != 2 {
			return Fields{}, rowErrorf(n, "Invalid Lat,Lng")
		}
		latStr, lngStr = parts[0], parts[1]
	} else {
		latStr, lngStr = get(FieldLat), get(FieldLng)
	}

	drop, ok := parseLatLng(latStr, lngStr)
	if !ok {
		return Fields{}, rowErrorf(n, "Invalid Lat,Lng")
	}

	for _, rf := range requiredFields {
		if get(rf.field) == "" {
			return Fields{}, rowErrorf(n, "Missing %s", rf.label)
		}
	}

	vehicle := strings.ToUpper(get(FieldVehicle))
	if vehicle != "" && !enum.IsVehicleType(vehicle) {
		return Fields{}, rowErrorf(n, "Invalid vehicle type %q", get(FieldVehicle))
	}

	return Fields{
		Line:          n,
		StoreName:     get(FieldStore),
		ClientOrderID: get(FieldClientOrderID),
		Address:       get(FieldAddress),
		Drop:          drop,
		CustomerName:  get(FieldCustomerName),
		Phone:         get(FieldPhone),
		Status:        strings.ToUpper(get(FieldStatus)),
		Vehicle:       vehicle,
	}, nil
}

// parseLatLng parses both coordinates as finite numbers inside the valid
// latitude and longitude ranges.
func parseLatLng(latStr, lngStr string) (LatLng, bool) {
	lat, ok := parseCoord(latStr, 90)
	if !ok {
		return LatLng{}, false
	}
	lng, ok := parseCoord(lngStr, 180)
	if !ok {
		return LatLng{}, false
	}
	return LatLng{Lat: lat, Lng: lng}, true
}

// Plain decimal notation only. ParseFloat alone would also take hex floats,
// underscores, Inf and NaN.
var decimalPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

func parseCoord(s string, limit float64) (float64, bool) {
	s = strings.TrimSpace(s)
	if !decimalPattern.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if v < -limit || v > limit {
		return 0, false
	}
	return v, true
}

func rowErrorf(line int, format string, args ...any) *RowError {
	return &RowError{
		LineNumber: line,
		Message:    fmt.Sprintf("Line %d: ", line) + fmt.Sprintf(format, args...),
	}
}
