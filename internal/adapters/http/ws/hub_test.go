package ws_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	wsHub "github.com/okian/soe/internal/adapters/http/ws"
	"github.com/okian/soe/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
	m.Run()
}

// startHub serves hub over httptest and runs it until the test ends.
func startHub(t *testing.T, hub *wsHub.Hub) (string, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(hub)
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http"), cancel
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wsHub.Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m wsHub.Message
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

func waitForClients(t *testing.T, hub *wsHub.Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients: got %d, want %d", hub.Count(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_SendsOverviewOnConnect(t *testing.T) {
	hub := wsHub.New(wsHub.WithOverview(func(context.Context) (any, error) {
		return map[string]int{"historySize": 2}, nil
	}))
	url, _ := startHub(t, hub)

	m := readMessage(t, dial(t, url))
	if m.Event != wsHub.EventOverview {
		t.Errorf("event: got %q, want %q", m.Event, wsHub.EventOverview)
	}
	data, ok := m.Data.(map[string]any)
	if !ok || data["historySize"] != float64(2) {
		t.Errorf("data: got %v", m.Data)
	}
	if m.At.IsZero() {
		t.Error("at: missing")
	}
}

func TestHub_OverviewErrorIsSkipped(t *testing.T) {
	hub := wsHub.New(wsHub.WithOverview(func(context.Context) (any, error) {
		return nil, errors.New("store down")
	}))
	url, _ := startHub(t, hub)
	conn := dial(t, url)
	waitForClients(t, hub, 1)

	hub.Publish(context.Background(), "snapshot.saved", map[string]string{"id": "3"})
	if m := readMessage(t, conn); m.Event != "snapshot.saved" {
		t.Errorf("event: got %q, want snapshot.saved", m.Event)
	}
}

func TestHub_PublishReachesEveryClient(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	hub := wsHub.New(wsHub.WithClock(func() time.Time { return at }))
	url, _ := startHub(t, hub)

	a, b := dial(t, url), dial(t, url)
	waitForClients(t, hub, 2)

	hub.Publish(context.Background(), "analysis.completed", map[string]string{"snapshotId": "1", "status": "ready"})

	for _, conn := range []*websocket.Conn{a, b} {
		m := readMessage(t, conn)
		if m.Event != "analysis.completed" {
			t.Errorf("event: got %q", m.Event)
		}
		if !m.At.Equal(at) {
			t.Errorf("at: got %v, want %v", m.At, at)
		}
	}
}

func TestHub_ClientDisconnectUnregisters(t *testing.T) {
	hub := wsHub.New()
	url, _ := startHub(t, hub)

	conn := dial(t, url)
	waitForClients(t, hub, 1)
	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHub_RunClosesClientsOnCancel(t *testing.T) {
	hub := wsHub.New()
	url, cancel := startHub(t, hub)

	conn := dial(t, url)
	waitForClients(t, hub, 1)
	cancel()
	waitForClients(t, hub, 0)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected the connection to be closed")
	}
}

func TestHub_RejectsPlainHTTP(t *testing.T) {
	hub := wsHub.New()
	w := httptest.NewRecorder()
	hub.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", w.Code, http.StatusBadRequest)
	}
}
