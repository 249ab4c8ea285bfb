package dev

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) ReloadMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg ReloadMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	return msg
}

func TestHubAcknowledgesSubscribers(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	conn := dialHub(t, server)
	defer conn.Close()

	if msg := readMessage(t, conn); msg.Type != "connected" {
		t.Errorf("first frame type = %q, want connected", msg.Type)
	}
}

func TestHubBroadcastReachesLiveSubscribers(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	var conns []*websocket.Conn
	for i := 0; i < 3; i++ {
		conn := dialHub(t, server)
		defer conn.Close()
		readMessage(t, conn) // connected ack
		conns = append(conns, conn)
	}

	// One subscriber leaves before the broadcast.
	dead := dialHub(t, server)
	readMessage(t, dead)
	dead.Close()
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast(ReloadMessage{Type: "reload", ReloadType: "page", Epoch: 7})

	for i, conn := range conns {
		msg := readMessage(t, conn)
		if msg.Type != "reload" || msg.ReloadType != "page" || msg.Epoch != 7 {
			t.Errorf("subscriber %d got %+v, want reload/page/7", i, msg)
		}
	}
}

func TestHubPrunesSubscriberThatStopsPonging(t *testing.T) {
	hub := newHub(20*time.Millisecond, 100*time.Millisecond)
	defer hub.Close()
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	conn := dialHub(t, server)
	defer conn.Close()
	readMessage(t, conn)
	if hub.ClientCount() != 1 {
		t.Fatalf("ClientCount = %d, want 1", hub.ClientCount())
	}

	// Stop reading. Pongs are only sent while the peer reads, so the
	// connection stays open at the TCP level but goes silent at the
	// protocol level, exactly like a vanished browser.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount = %d, silent subscriber never pruned", hub.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHubClientCountTracksDisconnects(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	conn := dialHub(t, server)
	readMessage(t, conn)
	if hub.ClientCount() != 1 {
		t.Fatalf("ClientCount = %d, want 1", hub.ClientCount())
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount = %d after disconnect, want 0", hub.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
