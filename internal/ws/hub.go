// Package ws fans stock updates out to every connected terminal.
package ws

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"bargalileo/internal/domain"
	applog "bargalileo/internal/log"
)

// stockConn is what the hub needs from a connection. *websocket.Conn
// satisfies it.
type stockConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type subscriber struct {
	terminal string
	conn     stockConn
}

// Hub tracks the live /ws/stock_updates/ connections. A broadcast reaches
// every terminal except the one whose mutation produced it: the originator
// already charged its own ledger from the response.
type Hub struct {
	mu   sync.Mutex
	subs map[string]subscriber
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]subscriber)}
}

// Serve owns a terminal's connection for its lifetime. Incoming frames are
// drained and discarded; the feed is push-only. The upgrade middleware stows
// the X-Terminal-ID header in the "terminal" local.
func (h *Hub) Serve(conn *websocket.Conn) {
	terminal, _ := conn.Locals("terminal").(string)
	id := h.subscribe(terminal, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(id)
}

func (h *Hub) subscribe(terminal string, conn stockConn) string {
	id := uuid.NewString()
	h.mu.Lock()
	h.subs[id] = subscriber{terminal: terminal, conn: conn}
	n := len(h.subs)
	h.mu.Unlock()
	applog.Event("ws.connect", map[string]any{"conn": id, "terminal": terminal, "total": n})
	return id
}

func (h *Hub) drop(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	delete(h.subs, id)
	n := len(h.subs)
	h.mu.Unlock()
	if ok {
		_ = sub.conn.Close()
	}
	applog.Event("ws.disconnect", map[string]any{"conn": id, "total": n})
}

// BroadcastStock pushes a stock delta to every terminal other than origin
// (empty origin reaches all: external restocks have no terminal). Dead
// connections are dropped on write failure; their reader will notice shortly
// anyway.
func (h *Hub) BroadcastStock(delta domain.StockDelta, origin string) {
	evt := domain.StockEvent{Type: domain.EventStockUpdate, Message: delta}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		if origin != "" && sub.terminal == origin {
			continue
		}
		if err := sub.conn.WriteJSON(evt); err != nil {
			delete(h.subs, id)
			_ = sub.conn.Close()
			applog.Warn("ws.write_failed", map[string]any{"conn": id, "err": err.Error()})
		}
	}
}

// Count reports connected terminals, for the health endpoint.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
