package bulk

import "github.com/dropline/vendor-console/internal/enum"

// AssembleOptions carries the values stamped onto every assembled order.
type AssembleOptions struct {
	DefaultVehicle string
	Source         string
}

func (o AssembleOptions) withDefaults() AssembleOptions {
	if o.DefaultVehicle == "" {
		o.DefaultVehicle = enum.VehicleTypeBike
	}
	if o.Source == "" {
		o.Source = enum.SourceBulk
	}
	return o
}

// Assemble builds the order request for a validated row and its resolved
// store. It performs no I/O and cannot fail.
func Assemble(f Fields, store StoreRecord, opts AssembleOptions) ParsedOrderRequest {
	opts = opts.withDefaults()

	var clientOrderID *string
	if f.ClientOrderID != "" {
		id := f.ClientOrderID
		clientOrderID = &id
	}

	vehicle := opts.DefaultVehicle
	if f.Vehicle != "" {
		vehicle = f.Vehicle
	}

	return ParsedOrderRequest{
		ClientOrderID: clientOrderID,
		StoreID:       store.StoreID,
		Pickup:        LatLng{Lat: store.Lat, Lng: store.Lng},
		Drop:          f.Drop,
		Customer:      Customer{Name: f.CustomerName, Phone: f.Phone},
		VehicleType:   vehicle,
		Notes:         f.Address,
		Source:        opts.Source,
		Status:        f.Status,
	}
}
