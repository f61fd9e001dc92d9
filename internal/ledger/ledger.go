// Package ledger holds the client's best-known available quantity per
// product: server stock at load minus every pending reservation known to this
// terminal. It is a hint for UI gating, never the stock authority; the
// server re-validates every write.
package ledger

import (
	"fmt"
	"sync"

	"bargalileo/internal/domain"
)

type Ledger struct {
	mu    sync.RWMutex
	avail map[int]int
}

func New() *Ledger {
	return &Ledger{avail: make(map[int]int)}
}

// Initialize resets the ledger for a new editing session:
// available = stock − reserved, with reserved defaulting to 0 per product.
// reserved counts pending quantities across all active pedidos, this
// terminal's own included, so later checks are against total remaining
// capacity.
func (l *Ledger) Initialize(productos []domain.Producto, reserved map[int]int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.avail = make(map[int]int, len(productos))
	for _, p := range productos {
		l.avail[p.ID] = p.Stock - reserved[p.ID]
	}
}

// CanReserve reports whether delta more units of a product fit in the
// remaining capacity.
func (l *Ledger) CanReserve(productoID, delta int) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.avail[productoID] >= delta
}

// Reserve subtracts delta units. Callers must gate with CanReserve first;
// an insufficient balance returns an error and changes nothing.
func (l *Ledger) Reserve(productoID, delta int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.avail[productoID] < delta {
		return fmt.Errorf("ledger: reserve %d of producto %d exceeds available %d", delta, productoID, l.avail[productoID])
	}
	l.avail[productoID] -= delta
	return nil
}

// ApplyExternalDelta applies an authoritative push event unconditionally.
// Negative delta: another terminal reserved units. Positive: a release.
func (l *Ledger) ApplyExternalDelta(productoID, delta int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.avail[productoID] += delta
}

// Reconcile adjusts the ledger by the signed per-product difference between
// two confirmed order snapshots. This is the only path by which local
// mutations reach the ledger (confirm-then-apply): the delta charged is the
// one the server actually committed, not the one requested.
func (l *Ledger) Reconcile(prev, next *domain.Pedido) {
	deltas := make(map[int]int)
	if prev != nil {
		for _, it := range prev.Items {
			deltas[it.Producto.ID] -= it.Cantidad
		}
	}
	if next != nil {
		for _, it := range next.Items {
			deltas[it.Producto.ID] += it.Cantidad
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, d := range deltas {
		l.avail[id] -= d
	}
}

// Available returns the remaining capacity for a product. Display callers
// should floor at zero; a negative value only means external reservations
// outran this terminal's snapshot.
func (l *Ledger) Available(productoID int) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.avail[productoID]
}

// Snapshot copies the current balances.
func (l *Ledger) Snapshot() map[int]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[int]int, len(l.avail))
	for k, v := range l.avail {
		out[k] = v
	}
	return out
}
