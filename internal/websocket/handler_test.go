package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"
)

func TestHandleWebSocketReceivesBroadcast(t *testing.T) {
	hub := NewHub(slog.Default())
	srv := httptest.NewServer(HandleWebSocket(hub))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := ws.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Broadcast(Event{Type: EventPostCreated, ID: 3, Title: "Hello"})

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != EventPostCreated || got.Title != "Hello" {
		t.Errorf("event = %+v", got)
	}

	conn.Close(ws.StatusNormalClosure, "")
	deadline = time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never unregistered")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
