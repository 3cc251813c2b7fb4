package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dropline/vendor-console/internal/auth"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, vendorID, orderID string) *Client {
	return &Client{
		hub:      hub,
		vendorID: vendorID,
		orderID:  orderID,
		send:     make(chan []byte, 256),
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})
	return hub
}

func TestHubRegistration(t *testing.T) {
	hub := startHub(t)
	client := mockClient(hub, "V1", "")

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms["V1"] == nil {
		t.Fatal("vendor room not created")
	}
	if !hub.rooms["V1"][client] {
		t.Fatal("client not registered in vendor room")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := startHub(t)
	client := mockClient(hub, "V1", "")

	hub.register <- client
	time.Sleep(10 * time.Millisecond)
	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms["V1"] != nil {
		t.Fatal("vendor room not cleaned up after last client unregistered")
	}
}

func TestBroadcastToSingleVendor(t *testing.T) {
	hub := startHub(t)
	client1 := mockClient(hub, "V1", "")
	client2 := mockClient(hub, "V2", "")

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	payload := json.RawMessage(`{"orderId":"O1","status":"PICKED_UP"}`)
	hub.BroadcastToVendor("V1", Event{Type: "vendor:order_updated", OrderID: "O1", Payload: payload})

	select {
	case msg := <-client1.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if received.Type != "vendor:order_updated" {
			t.Errorf("type: got %q", received.Type)
		}
		if string(received.Payload) != string(payload) {
			t.Errorf("payload: got %s", received.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client1 did not receive message")
	}

	select {
	case <-client2.send:
		t.Fatal("client2 should not receive another vendor's events")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOrderFilter(t *testing.T) {
	hub := startHub(t)
	all := mockClient(hub, "V1", "")
	follower := mockClient(hub, "V1", "O1")

	hub.register <- all
	hub.register <- follower
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastToVendor("V1", Event{Type: "rider:location:update", OrderID: "O2", Payload: json.RawMessage(`{}`)})
	hub.BroadcastToVendor("V1", Event{Type: "rider:location:update", OrderID: "O1", Payload: json.RawMessage(`{}`)})
	hub.BroadcastToVendor("V1", Event{Type: "vendor:bulk_submitted", Payload: json.RawMessage(`{}`)})
	time.Sleep(20 * time.Millisecond)

	if got := len(all.send); got != 3 {
		t.Errorf("unfiltered client: got %d events, want 3", got)
	}
	if got := len(follower.send); got != 1 {
		t.Fatalf("order follower: got %d events, want 1", got)
	}
	var received Event
	json.Unmarshal(<-follower.send, &received)
	if received.OrderID != "O1" {
		t.Errorf("follower got order %q", received.OrderID)
	}
}

func TestHubRunStopsOnCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	client := mockClient(hub, "V1", "")
	hub.register <- client
	cancel()

	select {
	case <-hub.Done():
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	if _, ok := <-client.send; ok {
		t.Error("client send channel should be closed on shutdown")
	}

	done := make(chan struct{})
	go func() {
		hub.BroadcastToVendor("V1", Event{Type: "x"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast after shutdown should not block")
	}
}

func TestSlowClientDropped(t *testing.T) {
	hub := startHub(t)
	slow := &Client{hub: hub, vendorID: "V1", send: make(chan []byte)}

	hub.register <- slow
	time.Sleep(10 * time.Millisecond)
	hub.BroadcastToVendor("V1", Event{Type: "x", Payload: json.RawMessage(`{}`)})
	time.Sleep(20 * time.Millisecond)

	if n := hub.ClientCount(); n != 0 {
		t.Errorf("client count: got %d, want 0", n)
	}
}

func TestClientCountHook(t *testing.T) {
	hub := NewHub()
	counts := make(chan int, 8)
	hub.OnClientCount = func(n int) { counts <- n }
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	hub.register <- mockClient(hub, "V1", "")
	select {
	case n := <-counts:
		if n != 1 {
			t.Errorf("count: got %d, want 1", n)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("hook not called")
	}
}

func TestServeWS(t *testing.T) {
	const secret = "ws-secret"
	hub := startHub(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, secret, w, r)
	}))
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http")

	if _, resp, err := websocket.DefaultDialer.Dial(base+"/ws/live", nil); err == nil {
		t.Fatal("dial without token should fail")
	} else if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token: got %v", resp)
	}

	token, _ := auth.GenerateToken(secret, "V1", "e", "up", time.Hour)
	conn, _, err := websocket.DefaultDialer.Dial(base+"/ws/live?token="+token+"&order=O1", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	hub.BroadcastToVendor("V1", Event{Type: "vendor:order_updated", OrderID: "O1", Payload: json.RawMessage(`{"status":"DELIVERED"}`)})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var received Event
	if err := json.Unmarshal(msg, &received); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if received.Type != "vendor:order_updated" || received.OrderID != "O1" {
		t.Errorf("received %+v", received)
	}
}
