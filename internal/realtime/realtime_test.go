package realtime_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ggproduction/onboarding/internal/platform/cache/cachetest"
	"github.com/ggproduction/onboarding/internal/realtime"
)

func recv(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return nil
}

func testBus(t *testing.T, bus realtime.Bus) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan []byte, 4)
	if err := bus.Subscribe(ctx, realtime.LeaderboardChannel, func(p []byte) { got <- p }); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	other := make(chan []byte, 4)
	if err := bus.Subscribe(ctx, "other", func(p []byte) { other <- p }); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := bus.Publish(ctx, realtime.LeaderboardChannel, []byte(`{"reason":"test"}`)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if msg := recv(t, got); string(msg) != `{"reason":"test"}` {
		t.Errorf("payload = %s, want %s", msg, `{"reason":"test"}`)
	}
	select {
	case msg := <-other:
		t.Errorf("other channel received %s", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMemoryBus(t *testing.T) {
	testBus(t, realtime.NewMemoryBus())
}

func TestMemoryBus_Closed(t *testing.T) {
	bus := realtime.NewMemoryBus()
	_ = bus.Close()
	if err := bus.Publish(context.Background(), realtime.LeaderboardChannel, nil); err == nil {
		t.Error("Publish() on closed bus should fail")
	}
	if err := bus.Subscribe(context.Background(), realtime.LeaderboardChannel, func([]byte) {}); err == nil {
		t.Error("Subscribe() on closed bus should fail")
	}
}

func TestRedisBus(t *testing.T) {
	c := cachetest.Start(t)
	bus, err := realtime.NewRedisBus(c.Client)
	if err != nil {
		t.Fatalf("NewRedisBus() error = %v", err)
	}
	testBus(t, bus)
}

func TestNewRedisBus_NilClient(t *testing.T) {
	if _, err := realtime.NewRedisBus(nil); err == nil {
		t.Error("NewRedisBus(nil) should fail")
	}
}

type board struct {
	Viewer string `json:"viewer"`
	Seq    int32  `json:"seq"`
}

func startHub(t *testing.T, fn realtime.BoardFunc) (*realtime.Hub, *realtime.MemoryBus, string) {
	t.Helper()
	bus := realtime.NewMemoryBus()
	hub := realtime.NewHub(bus, fn)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := hub.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, r.URL.Query().Get("viewer"))
	}))
	t.Cleanup(srv.Close)
	return hub, bus, srv.URL
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	return conn
}

func readBoard(t *testing.T, conn *websocket.Conn) board {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var b board
	if err := wsjson.Read(ctx, conn, &b); err != nil {
		t.Fatalf("wsjson.Read() error = %v", err)
	}
	return b
}

func TestHub_StreamsBoardOnConnectAndChange(t *testing.T) {
	var calls atomic.Int32
	hub, bus, url := startHub(t, func(_ context.Context, viewerID string) (any, error) {
		return board{Viewer: viewerID, Seq: calls.Add(1)}, nil
	})

	conn := dial(t, url+"?viewer=learner-1")
	defer conn.CloseNow()

	first := readBoard(t, conn)
	if first.Viewer != "learner-1" || first.Seq != 1 {
		t.Errorf("first board = %+v, want viewer learner-1 seq 1", first)
	}
	if got := hub.Clients(); got != 1 {
		t.Errorf("Clients() = %d, want 1", got)
	}

	if err := bus.Publish(context.Background(), realtime.LeaderboardChannel, []byte(`{}`)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	second := readBoard(t, conn)
	if second.Seq != 2 {
		t.Errorf("second board seq = %d, want 2", second.Seq)
	}

	conn.Close(websocket.StatusNormalClosure, "")
	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := hub.Clients(); got != 0 {
		t.Errorf("Clients() after close = %d, want 0", got)
	}
}

func TestHub_ClosesWhenBoardFails(t *testing.T) {
	_, _, url := startHub(t, func(context.Context, string) (any, error) {
		return nil, errors.New("store down")
	})

	conn := dial(t, url+"?viewer=learner-1")
	defer conn.CloseNow()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var b board
	err := wsjson.Read(ctx, conn, &b)
	if got := websocket.CloseStatus(err); got != websocket.StatusInternalError {
		t.Errorf("close status = %v, want %v (err = %v)", got, websocket.StatusInternalError, err)
	}
}
