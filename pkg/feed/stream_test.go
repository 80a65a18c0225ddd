package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebsocketStreamDeliversEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		messages := []string{
			`{"type":"transaction","transaction":{"hash":"0xaaa","created_at":"2026-08-30T12:00:00Z"}}`,
			`{"type":"heartbeat"}`,
			`{"type":"transaction","transaction":{"hash":"0xbbb","created_at":"2026-08-30T12:00:05Z"}}`,
		}
		for _, m := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}

		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	stream := NewWebsocketStream(url, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := stream.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer stream.Close()

	var got []string
	timeout := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case e := <-stream.Events():
			got = append(got, e.Hash)
		case <-timeout:
			t.Fatalf("timed out, received %v", got)
		}
	}

	if got[0] != "0xaaa" || got[1] != "0xbbb" {
		t.Errorf("events = %v, want [0xaaa 0xbbb]", got)
	}
}

func TestWebsocketStreamRequiresURL(t *testing.T) {
	stream := NewWebsocketStream("", nil)
	if err := stream.Start(context.Background()); err == nil {
		t.Fatal("expected error for empty URL, got nil")
	}
}

func TestNextBackoff(t *testing.T) {
	tests := []struct {
		name    string
		current time.Duration
		want    time.Duration
	}{
		{"doubles", 1 * time.Second, 2 * time.Second},
		{"keeps doubling", 8 * time.Second, 16 * time.Second},
		{"caps at max", 16 * time.Second, 30 * time.Second},
		{"stays at cap", 30 * time.Second, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextBackoff(tt.current); got != tt.want {
				t.Errorf("nextBackoff(%v) = %v, want %v", tt.current, got, tt.want)
			}
		})
	}
}
