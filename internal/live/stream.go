// Package live consumes the platform's live event stream and relays rider
// positions and order updates to connected dashboards.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dropline/vendor-console/internal/enum"
)

// Frame is one message on the upstream stream.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type LocationUpdate struct {
	VendorID string    `json:"vendorId"`
	OrderID  string    `json:"orderId"`
	RiderID  string    `json:"riderId,omitempty"`
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
	At       time.Time `json:"at"`
}

type OrderUpdate struct {
	VendorID string `json:"vendorId"`
	OrderID  string `json:"orderId"`
	Status   string `json:"status"`
}

// Sink receives decoded events. *Relay is the production Sink.
type Sink interface {
	Location(LocationUpdate)
	OrderUpdated(OrderUpdate)
}

var ErrClosed = errors.New("live stream closed")

// Stream is the single upstream connection, owned by main: opened by Run
// at startup and torn down by Close or context cancellation.
type Stream struct {
	url    string
	token  string
	sink   Sink
	dialer *websocket.Dialer

	minBackoff time.Duration
	maxBackoff time.Duration
	// A connection that lasts this long resets the backoff even without frames.
	stableAfter time.Duration

	// OnConnected, if set, is called with true on connect and false on disconnect.
	OnConnected func(bool)

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	done   chan struct{}
}

func NewStream(url, token string, sink Sink) *Stream {
	return &Stream{
		url:        url,
		token:      token,
		sink:       sink,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		minBackoff:  time.Second,
		maxBackoff:  30 * time.Second,
		stableAfter: time.Minute,
		done:        make(chan struct{}),
	}
}

// Run connects and reads until ctx is cancelled or Close is called,
// reconnecting with exponential backoff.
func (s *Stream) Run(ctx context.Context) error {
	backoff := s.minBackoff
	for {
		if s.isClosed() {
			return ErrClosed
		}
		if ctx.Err() != nil {
			return nil
		}

		conn, err := s.dial(ctx)
		if err != nil {
			log.Printf("WARN: live stream dial failed: %v (retry in %s)", err, backoff)
		} else {
			s.setConnected(true)
			connectedAt := time.Now()
			frames, err := s.readLoop(ctx, conn)
			s.setConnected(false)
			if ctx.Err() != nil {
				return nil
			}
			if s.isClosed() {
				return ErrClosed
			}
			if frames > 0 || time.Since(connectedAt) >= s.stableAfter {
				backoff = s.minBackoff
			}
			log.Printf("WARN: live stream disconnected: %v (retry in %s)", err, backoff)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return ErrClosed
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, s.maxBackoff)
	}
}

// Close stops Run and closes the current connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Stream) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if s.token != "" {
		header.Set("Authorization", "Bearer "+s.token)
	}
	conn, resp, err := s.dialer.DialContext(ctx, s.url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		conn.Close()
		return nil, ErrClosed
	}
	s.conn = conn
	return conn, nil
}

// readLoop returns the number of frames read before the connection ended.
func (s *Stream) readLoop(ctx context.Context, conn *websocket.Conn) (int, error) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()
	defer func() {
		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		s.mu.Unlock()
		conn.Close()
	}()

	frames := 0
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return frames, err
		}
		frames++
		s.dispatch(msg)
	}
}

func (s *Stream) dispatch(msg []byte) {
	var f Frame
	if err := json.Unmarshal(msg, &f); err != nil {
		log.Printf("WARN: live stream: bad frame: %v", err)
		return
	}

	switch f.Event {
	case enum.EventRiderLocation:
		u, ok := decodeLocation(f.Data)
		if !ok {
			return
		}
		s.sink.Location(u)
	case enum.EventOrderUpdated:
		var u OrderUpdate
		if err := json.Unmarshal(f.Data, &u); err != nil || u.VendorID == "" || u.OrderID == "" {
			return
		}
		s.sink.OrderUpdated(u)
	}
}

// decodeLocation rejects frames whose coordinates are not JSON numbers or
// not finite, and frames that cannot be routed.
func decodeLocation(data json.RawMessage) (LocationUpdate, bool) {
	var raw struct {
		VendorID string     `json:"vendorId"`
		OrderID  string     `json:"orderId"`
		RiderID  string     `json:"riderId"`
		Lat      *float64   `json:"lat"`
		Lng      *float64   `json:"lng"`
		At       *time.Time `json:"at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return LocationUpdate{}, false
	}
	if raw.VendorID == "" || raw.OrderID == "" || raw.Lat == nil || raw.Lng == nil {
		return LocationUpdate{}, false
	}
	lat, lng := *raw.Lat, *raw.Lng
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return LocationUpdate{}, false
	}

	u := LocationUpdate{VendorID: raw.VendorID, OrderID: raw.OrderID, RiderID: raw.RiderID, Lat: lat, Lng: lng}
	if raw.At != nil {
		u.At = *raw.At
	}
	return u, true
}

func (s *Stream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Stream) setConnected(v bool) {
	if s.OnConnected != nil {
		s.OnConnected(v)
	}
}
