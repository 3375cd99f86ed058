package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sanya94592-stack/ecu-editor/internal/session"
)

func waitForClients(t *testing.T, s *Server, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Clients() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Clients() = %d, want %d", s.Clients(), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEvents(t *testing.T) {
	s, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	waitForClients(t, s, 1)

	u := ts.URL + "/api/session?profile=" + url.QueryEscape("Bench 1+")
	resp := do(t, http.MethodPost, u, bytes.NewReader(testImage()))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("load status = %d", resp.StatusCode)
	}
	do(t, http.MethodPut, ts.URL+"/api/session/maps/Fuel", strings.NewReader(`{"values": [[1.1, 1.1], [1.1, 1.1]]}`))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for _, want := range []session.EventType{session.EventLoaded, session.EventEdited} {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage() error = %v", err)
		}
		var ev session.Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if ev.Type != want {
			t.Errorf("event type = %q, want %q", ev.Type, want)
		}
		if ev.Profile != "Bench 1+" {
			t.Errorf("event profile = %q", ev.Profile)
		}
	}
}

func TestHub_CloseDisconnects(t *testing.T) {
	s, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	waitForClients(t, s, 1)

	s.hub.Close()
	if s.Clients() != 0 {
		t.Errorf("Clients() after Close = %d, want 0", s.Clients())
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected the connection to be closed")
	}

	// Broadcasting to a closed hub is a no-op
	s.hub.Broadcast(session.Event{Type: session.EventLoaded})
}
