package fanout

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", u, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("got %d clients, want %d", h.ClientCount(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func read(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func TestHub_PublishFiltersByGame(t *testing.T) {
	h := NewHub()
	h.now = func() time.Time { return time.Date(2026, 4, 1, 20, 0, 0, 0, time.UTC) }
	srv := httptest.NewServer(h)
	defer srv.Close()

	all := dial(t, srv, "")
	only := dial(t, srv, "?game=745002")
	waitClients(t, h, 2)

	h.Publish("hype", "745001", map[string]any{"value": 42})
	h.Publish("moment", "745002", map[string]any{"headline": "Drama index hits 150"})

	first := read(t, all)
	if first.Type != "hype" || first.GameID != "745001" || !first.TS.Equal(h.now()) {
		t.Errorf("unexpected envelope: %+v", first)
	}
	var payload struct{ Value int }
	if err := json.Unmarshal(first.Payload, &payload); err != nil || payload.Value != 42 {
		t.Errorf("payload = %s, %v", first.Payload, err)
	}
	if second := read(t, all); second.Type != "moment" {
		t.Errorf("unfiltered client missed the moment: %+v", second)
	}

	got := read(t, only)
	if got.Type != "moment" || got.GameID != "745002" {
		t.Errorf("filtered client received %+v", got)
	}
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv, "")
	waitClients(t, h, 1)
	conn.Close()
	waitClients(t, h, 0)

	// Publishing with nobody connected is a no-op.
	h.Publish("pulse", "745001", []int{40})
}
