package live

import (
	"encoding/json"
	"log"

	"github.com/dropline/vendor-console/internal/enum"
	"github.com/dropline/vendor-console/internal/ws"
)

// Broadcaster is satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToVendor(vendorID string, event ws.Event)
}

// Relay applies upstream events to the tracker and fans them out to
// browser clients.
type Relay struct {
	Tracker *Tracker
	Hub     Broadcaster
	// OnEvent, if set, is called with the event type of every relayed event.
	OnEvent func(eventType string)
}

func (r *Relay) Location(u LocationUpdate) {
	// Browsers see the same timestamp the tracker keeps.
	u.At = r.Tracker.Update(u.VendorID, Position{
		OrderID: u.OrderID,
		RiderID: u.RiderID,
		Lat:     u.Lat,
		Lng:     u.Lng,
		At:      u.At,
	}).At
	r.emit(u.VendorID, enum.EventRiderLocation, u.OrderID, u)
}

func (r *Relay) OrderUpdated(u OrderUpdate) {
	if enum.IsFinalOrderStatus(u.Status) {
		r.Tracker.Forget(u.VendorID, u.OrderID)
	}
	r.emit(u.VendorID, enum.EventOrderUpdated, u.OrderID, u)
}

func (r *Relay) emit(vendorID, eventType, orderID string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("ERROR: encode %s event: %v", eventType, err)
		return
	}
	r.Hub.BroadcastToVendor(vendorID, ws.Event{Type: eventType, OrderID: orderID, Payload: payload})
	if r.OnEvent != nil {
		r.OnEvent(eventType)
	}
}
