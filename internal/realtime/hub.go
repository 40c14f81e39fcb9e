package realtime

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

// BoardFunc builds the leaderboard payload for one viewer.
type BoardFunc func(ctx context.Context, viewerID string) (any, error)

// Hub keeps the connected leaderboard viewers and refreshes them whenever a
// change notification arrives on the bus.
type Hub struct {
	bus     Bus
	board   BoardFunc
	origins []string

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	viewerID string
	// notify holds at most one pending refresh; bursts coalesce.
	notify chan struct{}
}

// NewHub creates a hub. origins lists the host patterns allowed to open
// cross-origin connections.
func NewHub(bus Bus, board BoardFunc, origins ...string) *Hub {
	return &Hub{
		bus:     bus,
		board:   board,
		origins: origins,
		clients: make(map[*client]struct{}),
	}
}

// Start subscribes the hub to leaderboard notifications. The subscription
// ends when ctx is done.
func (h *Hub) Start(ctx context.Context) error {
	return h.bus.Subscribe(ctx, LeaderboardChannel, func([]byte) { h.Broadcast() })
}

// Broadcast schedules a refresh for every connected viewer.
func (h *Hub) Broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.notify <- struct{}{}:
		default:
		}
	}
}

// Clients returns the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// Serve upgrades the request to a websocket and streams viewerID's
// leaderboard: once on connect and again after every change. Messages from
// the client are ignored.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, viewerID string) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		slog.Warn("websocket accept failed", "viewer_id", viewerID, "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(r.Context())
	c := &client{viewerID: viewerID, notify: make(chan struct{}, 1)}
	c.notify <- struct{}{}
	h.add(c)
	defer h.remove(c)

	slog.Debug("leaderboard viewer connected", "viewer_id", viewerID)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.notify:
			board, err := h.board(ctx, viewerID)
			if err != nil {
				if ctx.Err() == nil {
					slog.Error("build leaderboard for stream", "viewer_id", viewerID, "error", err)
					conn.Close(websocket.StatusInternalError, "leaderboard unavailable")
				}
				return
			}
			if err := h.write(ctx, conn, board); err != nil {
				if !errors.Is(err, context.Canceled) {
					slog.Debug("leaderboard stream closed", "viewer_id", viewerID, "error", err)
				}
				return
			}
		}
	}
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}
