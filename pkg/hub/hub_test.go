package hub

import (
	"encoding/json"
	"testing"
	"time"
)

func waitForClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("client count = %d, want %d", h.ClientCount(), want)
}

func TestHub_BroadcastReachesClient(t *testing.T) {
	h := New("test")
	go h.Run()

	c := &Client{hub: h, send: make(chan Message, 4)}
	h.register <- c
	waitForClients(t, h, 1)

	if err := h.BroadcastJSON(map[string]string{"state": "tracking"}); err != nil {
		t.Fatalf("BroadcastJSON: %v", err)
	}

	select {
	case msg := <-c.send:
		var decoded map[string]string
		if err := json.Unmarshal(msg.Data, &decoded); err != nil {
			t.Fatalf("broadcast payload not JSON: %v", err)
		}
		if decoded["state"] != "tracking" {
			t.Fatalf("payload = %v", decoded)
		}
	case <-time.After(time.Second):
		t.Fatal("broadcast never delivered")
	}

	h.unregister <- c
	waitForClients(t, h, 0)
	if _, open := <-c.send; open {
		t.Fatal("send channel still open after unregister")
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	h := New("test")
	go h.Run()

	c := &Client{hub: h, send: make(chan Message, 1)}
	h.register <- c
	waitForClients(t, h, 1)

	// Nothing drains the send buffer, so the second delivery overflows
	// and the hub evicts the client.
	h.Broadcast(Message{Data: []byte("one")})
	h.Broadcast(Message{Data: []byte("two")})
	waitForClients(t, h, 0)
}

func TestHub_BroadcastJSONRejectsUnencodable(t *testing.T) {
	h := New("test")
	if err := h.BroadcastJSON(make(chan int)); err == nil {
		t.Fatal("expected marshal error")
	}
}
