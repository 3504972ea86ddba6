package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/tonshield/tonshield/internal/risk"
)

func testHub() *Hub {
	return NewHub(slog.Default())
}

// ---------------------------------------------------------------------------
// shouldSend tests
// ---------------------------------------------------------------------------

func TestShouldSend_AllEvents(t *testing.T) {
	h := testHub()
	client := &Client{sub: Subscription{AllEvents: true}}

	event := &Event{Type: EventCheckCompleted, Timestamp: time.Now()}
	if !h.shouldSend(client, event) {
		t.Error("AllEvents client should receive all events")
	}
}

func TestShouldSend_EventTypeFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		EventTypes: []EventType{EventCriticalAlert},
	}}

	completed := &Event{Type: EventCheckCompleted}
	alert := &Event{Type: EventCriticalAlert}

	if h.shouldSend(client, completed) {
		t.Error("Should NOT receive check_completed events")
	}
	if !h.shouldSend(client, alert) {
		t.Error("Should receive critical_alert events")
	}
}

func TestShouldSend_KindFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		Kinds: []risk.Kind{risk.KindLink, risk.KindJetton},
	}}

	link := &Event{
		Type: EventCheckCompleted,
		Data: CheckEvent{Kind: risk.KindLink, Level: risk.LevelSafe},
	}
	address := &Event{
		Type: EventCheckCompleted,
		Data: CheckEvent{Kind: risk.KindAddress, Level: risk.LevelSafe},
	}

	if !h.shouldSend(client, link) {
		t.Error("Should match watched kinds")
	}
	if h.shouldSend(client, address) {
		t.Error("Should NOT match unwatched kinds")
	}
}

func TestShouldSend_MinScoreFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		MinScore: 50,
	}}

	risky := &Event{
		Type: EventCheckCompleted,
		Data: CheckEvent{Kind: risk.KindAddress, Score: 80},
	}
	boring := &Event{
		Type: EventCheckCompleted,
		Data: CheckEvent{Kind: risk.KindAddress, Score: 10},
	}

	if !h.shouldSend(client, risky) {
		t.Error("Should receive high-score checks")
	}
	if h.shouldSend(client, boring) {
		t.Error("Should NOT receive low-score checks")
	}
}

func TestShouldSend_EmptySubscription(t *testing.T) {
	h := testHub()

	// No filters, not AllEvents
	client := &Client{sub: Subscription{}}

	event := &Event{Type: EventCheckCompleted}
	if !h.shouldSend(client, event) {
		t.Error("Empty subscription (no filters) should receive events")
	}
}

// ---------------------------------------------------------------------------
// Hub lifecycle tests
// ---------------------------------------------------------------------------

func TestHub_Stats_Initial(t *testing.T) {
	h := testHub()

	stats := h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients, got %v", stats["connectedClients"])
	}
	if stats["totalEvents"].(int64) != 0 {
		t.Errorf("Expected 0 total events, got %v", stats["totalEvents"])
	}
}

func TestHub_BroadcastAndStats(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Broadcast an event
	h.Broadcast(&Event{Type: EventCheckCompleted, Timestamp: time.Now()})
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["totalEvents"].(int64) != 1 {
		t.Errorf("Expected 1 total event, got %v", stats["totalEvents"])
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["connectedClients"].(int) != 1 {
		t.Errorf("Expected 1 connected client, got %v", stats["connectedClients"])
	}
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak 1, got %v", stats["peakClients"])
	}

	h.unregister <- client
	time.Sleep(50 * time.Millisecond)

	stats = h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients after unregister, got %v", stats["connectedClients"])
	}
	// Peak should still be 1
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak still 1, got %v", stats["peakClients"])
	}
}

func TestHub_CheckCompletedBroadcast(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	h.CheckCompleted(risk.Assessment{
		Kind:   risk.KindLink,
		Target: "https://phish.example",
		Level:  risk.LevelWarning,
		Score:  45,
	})

	select {
	case msg := <-client.send:
		var e Event
		if err := json.Unmarshal(msg, &e); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if e.Type != EventCheckCompleted || e.Data.Score != 45 {
			t.Errorf("unexpected event: %+v", e)
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for broadcast")
	}
}

func TestHub_CriticalFindingRaisesAlert(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{EventTypes: []EventType{EventCriticalAlert}},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	h.CheckCompleted(risk.Assessment{
		Kind:   risk.KindAddress,
		Target: "EQscam",
		Level:  risk.LevelCritical,
		Score:  90,
	})

	select {
	case msg := <-client.send:
		var e Event
		if err := json.Unmarshal(msg, &e); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if e.Type != EventCriticalAlert {
			t.Errorf("expected critical_alert, got %s", e.Type)
		}
	case <-time.After(time.Second):
		t.Error("Client should receive the critical alert")
	}

	// A safe check must not raise an alert for this client.
	h.CheckCompleted(risk.Assessment{Kind: risk.KindAddress, Level: risk.LevelSafe, Score: 0})
	time.Sleep(100 * time.Millisecond)
	select {
	case <-client.send:
		t.Error("Safe checks must not produce critical alerts")
	default:
	}
}

func TestHub_ContextCancellation(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
		// Hub stopped
	case <-time.After(2 * time.Second):
		t.Error("Hub did not stop after context cancellation")
	}
}

func TestHub_FilteredBroadcast(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Client only wants jetton checks
	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{Kinds: []risk.Kind{risk.KindJetton}},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	// Send an address check (should be filtered out)
	h.Broadcast(&Event{
		Type: EventCheckCompleted,
		Data: CheckEvent{Kind: risk.KindAddress},
	})
	time.Sleep(100 * time.Millisecond)

	select {
	case <-client.send:
		t.Error("Client should NOT receive address checks")
	default:
		// Good - filtered out
	}

	// Send a jetton check (should be received)
	h.Broadcast(&Event{
		Type: EventCheckCompleted,
		Data: CheckEvent{Kind: risk.KindJetton},
	})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Client should receive jetton checks")
	}
}
