package ws

import (
	"errors"
	"sync"
	"testing"

	"bargalileo/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	events []domain.StockEvent
	fail   bool
	closed bool
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.events = append(c.events, v.(domain.StockEvent))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *fakeConn) last() domain.StockEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[len(c.events)-1]
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestBroadcastSkipsOriginator(t *testing.T) {
	h := NewHub()
	origin, other, anon := &fakeConn{}, &fakeConn{}, &fakeConn{}
	h.subscribe("term-a", origin)
	h.subscribe("term-b", other)
	h.subscribe("", anon)

	h.BroadcastStock(domain.StockDelta{ProductID: 3, Delta: -2}, "term-a")
	if origin.count() != 0 {
		t.Fatalf("originator received %d events, want 0", origin.count())
	}
	if other.count() != 1 || anon.count() != 1 {
		t.Fatalf("other=%d anon=%d, want 1 each", other.count(), anon.count())
	}
	evt := other.last()
	if evt.Type != domain.EventStockUpdate || evt.Message.ProductID != 3 || evt.Message.Delta != -2 {
		t.Fatalf("event %+v", evt)
	}

	// no origin: the delta reaches every terminal
	h.BroadcastStock(domain.StockDelta{ProductID: 3, Delta: 5}, "")
	if origin.count() != 1 || other.count() != 2 || anon.count() != 2 {
		t.Fatalf("origin=%d other=%d anon=%d after unattributed broadcast",
			origin.count(), other.count(), anon.count())
	}
}

func TestBroadcastDropsDeadConnections(t *testing.T) {
	h := NewHub()
	dead := &fakeConn{fail: true}
	live := &fakeConn{}
	h.subscribe("term-a", dead)
	h.subscribe("term-b", live)

	h.BroadcastStock(domain.StockDelta{ProductID: 1, Delta: -1}, "")
	if h.Count() != 1 {
		t.Fatalf("count=%d, want 1 after dropping the dead conn", h.Count())
	}
	if !dead.isClosed() {
		t.Fatal("dead conn not closed")
	}
	if live.count() != 1 {
		t.Fatalf("live conn got %d events, want 1", live.count())
	}
}

func TestDropRemovesSubscriber(t *testing.T) {
	h := NewHub()
	c := &fakeConn{}
	id := h.subscribe("term-a", c)
	if h.Count() != 1 {
		t.Fatalf("count=%d", h.Count())
	}
	h.drop(id)
	if h.Count() != 0 {
		t.Fatalf("count=%d after drop", h.Count())
	}
	if !c.isClosed() {
		t.Fatal("conn not closed on drop")
	}
}
