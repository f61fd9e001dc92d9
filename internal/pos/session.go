// Package pos implements the terminal-side order/stock core: the editing
// session state machine, the table board and the UI ports they drive.
package pos

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"bargalileo/internal/domain"
	"bargalileo/internal/ledger"
	"bargalileo/internal/validate"
)

type State int

const (
	StateClosed State = iota
	StateLoading
	StateReady
)

const (
	msgSinStock       = "No hay stock disponible"
	msgSinItems       = "No hay items en el pedido"
	msgConfirmInvoice = "¿Estás seguro de que deseas facturar este pedido? Esta acción actualizará el inventario."
	msgConfirmRemove  = "¿Estás seguro de que deseas eliminar este item del pedido?"
)

// Session owns one mesa's order editing. All collaborators are injected; no
// shared package state, so independent sessions (and tests) don't bleed into
// each other. The ledger is shared with the realtime feed, which writes
// concurrently through HandleStockDelta.
type Session struct {
	api     API
	ledger  *ledger.Ledger
	notify  Notifier
	confirm Confirmer
	render  Renderer

	mu        sync.Mutex
	state     State
	epoch     int // bumped on every Open/Close; stale responses are dropped
	busy      map[string]bool
	mesa      domain.Mesa
	pedido    *domain.Pedido
	productos []domain.Producto
	users     []domain.Usuario
}

func NewSession(api API, led *ledger.Ledger, notify Notifier, confirm Confirmer, render Renderer) *Session {
	return &Session{
		api:     api,
		ledger:  led,
		notify:  notify,
		confirm: confirm,
		render:  render,
		busy:    make(map[string]bool),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Pedido() *domain.Pedido {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pedido
}

func (s *Session) Mesa() domain.Mesa {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mesa
}

// Open resets the session for a mesa: order, catalog and customer directory
// are fetched in parallel and the ledger is rebuilt from stock minus pending
// reservations. Idempotent given unchanged server state.
func (s *Session) Open(ctx context.Context, mesaID int) error {
	s.mu.Lock()
	s.epoch++
	e := s.epoch
	s.state = StateLoading
	s.mu.Unlock()

	var (
		wg      sync.WaitGroup
		mp      *domain.MesaPedido
		users   []domain.Usuario
		mpErr   error
		userErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		mp, mpErr = s.api.MesaPedido(ctx, mesaID)
	}()
	go func() {
		defer wg.Done()
		users, userErr = s.api.Users(ctx)
	}()
	wg.Wait()

	if mpErr != nil || userErr != nil {
		err := mpErr
		if err == nil {
			err = userErr
		}
		s.notify.Error(domain.UserMessage(err))
		s.mu.Lock()
		if s.epoch == e {
			s.state = StateClosed
		}
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	if s.epoch != e {
		s.mu.Unlock()
		return nil
	}
	s.mesa = mp.Mesa
	s.pedido = &mp.Pedido
	s.productos = mp.Productos
	s.users = users
	s.ledger.Initialize(mp.Productos, mp.ReservasStock)
	s.state = StateReady
	s.mu.Unlock()

	s.renderAll()
	return nil
}

// Close abandons the session. In-flight responses become tolerant no-ops.
func (s *Session) Close() {
	s.mu.Lock()
	s.epoch++
	s.state = StateClosed
	s.pedido = nil
	s.productos = nil
	s.busy = make(map[string]bool)
	s.mu.Unlock()
}

// Refresh re-fetches authoritative order and stock state without the full
// open cycle. Used after customer changes and after a feed reconnect, since
// missed deltas cannot be replayed.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return nil
	}
	e := s.epoch
	mesaID := s.mesa.ID
	s.mu.Unlock()

	mp, err := s.api.MesaPedido(ctx, mesaID)
	if err != nil {
		s.notify.Error(domain.UserMessage(err))
		return err
	}

	s.mu.Lock()
	if s.epoch != e {
		s.mu.Unlock()
		return nil
	}
	s.mesa = mp.Mesa
	s.pedido = &mp.Pedido
	s.productos = mp.Productos
	s.ledger.Initialize(mp.Productos, mp.ReservasStock)
	s.mu.Unlock()

	s.renderAll()
	return nil
}

// AddOrIncrement adds one unit of a product: a new line, or +1 on the
// existing one (the server folds that). Validation happens against the
// ledger before any request; an insufficient balance issues no request.
func (s *Session) AddOrIncrement(ctx context.Context, productoID int) error {
	return s.Add(ctx, productoID, 1)
}

// Add adds cantidad units. The quantity stepper clamps to the remaining
// capacity before calling this, so cantidad is taken as-is here and gated.
func (s *Session) Add(ctx context.Context, productoID, cantidad int) error {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return nil
	}
	if !s.ledger.CanReserve(productoID, cantidad) {
		msg := s.stockMessage(productoID)
		s.mu.Unlock()
		s.notify.Error(msg)
		return nil
	}
	key := fmt.Sprintf("add:%d", productoID)
	if s.busy[key] {
		s.mu.Unlock()
		return nil
	}
	s.busy[key] = true
	e := s.epoch
	mesaID := s.mesa.ID
	prev := s.pedido
	s.mu.Unlock()

	pedido, err := s.api.AgregarItem(ctx, mesaID, productoID, cantidad)
	s.applyMutation(key, e, prev, pedido, err)
	return err
}

// ChangeQuantity sets a line to nueva units. Below 1 it delegates to
// RemoveItem; growth is gated on the signed delta against the ledger.
func (s *Session) ChangeQuantity(ctx context.Context, itemID, nueva int) error {
	if nueva < 1 {
		return s.RemoveItem(ctx, itemID)
	}

	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return nil
	}
	item := s.pedido.Item(itemID)
	if item == nil {
		s.mu.Unlock()
		return nil
	}
	delta := nueva - item.Cantidad
	if delta > 0 && !s.ledger.CanReserve(item.Producto.ID, delta) {
		msg := s.stockMessage(item.Producto.ID)
		s.mu.Unlock()
		s.notify.Error(msg)
		return nil
	}
	key := fmt.Sprintf("item:%d", itemID)
	if s.busy[key] {
		s.mu.Unlock()
		return nil
	}
	s.busy[key] = true
	e := s.epoch
	prev := s.pedido
	s.mu.Unlock()

	pedido, err := s.api.ActualizarItem(ctx, itemID, nueva)
	s.applyMutation(key, e, prev, pedido, err)
	return err
}

// RemoveItem deletes a line after confirmation. Declining is a no-op; the
// confirmed delete restores the line's quantity to the ledger.
func (s *Session) RemoveItem(ctx context.Context, itemID int) error {
	s.mu.Lock()
	if s.state != StateReady || s.pedido.Item(itemID) == nil {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	ok, err := s.confirm.Confirm(ctx, msgConfirmRemove)
	if err != nil || !ok {
		return err
	}

	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return nil
	}
	key := fmt.Sprintf("item:%d", itemID)
	if s.busy[key] {
		s.mu.Unlock()
		return nil
	}
	s.busy[key] = true
	e := s.epoch
	prev := s.pedido
	s.mu.Unlock()

	pedido, apiErr := s.api.EliminarItem(ctx, itemID)
	s.applyMutation(key, e, prev, pedido, apiErr)
	if apiErr == nil {
		s.notify.Toast("Item eliminado del pedido")
	}
	return apiErr
}

// Invoice finalizes the pedido. Empty orders are rejected locally with no
// request. On success the session closes (the original page navigated away)
// and the factura URL is returned for the terminal to show.
func (s *Session) Invoice(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return "", nil
	}
	if s.pedido == nil || len(s.pedido.Items) == 0 {
		s.mu.Unlock()
		s.notify.Error(msgSinItems)
		return "", nil
	}
	pedidoID := s.pedido.ID
	s.mu.Unlock()

	ok, err := s.confirm.Confirm(ctx, msgConfirmInvoice)
	if err != nil || !ok {
		return "", err
	}

	res, err := s.api.Facturar(ctx, pedidoID)
	if err != nil {
		// No local state was touched for this operation, so the editor
		// stays open and usable.
		s.notify.Error(domain.UserMessage(err))
		return "", err
	}

	s.notify.Toast("Pedido facturado exitosamente")
	s.Close()
	return res.FacturaURL, nil
}

// AssignUser attaches a customer to the pedido and refreshes from the server.
func (s *Session) AssignUser(ctx context.Context, userID int) error {
	return s.manageUser(ctx, userID, "add")
}

// RemoveUser detaches a customer.
func (s *Session) RemoveUser(ctx context.Context, userID int) error {
	return s.manageUser(ctx, userID, "remove")
}

func (s *Session) manageUser(ctx context.Context, userID int, action string) error {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return nil
	}
	pedidoID := s.pedido.ID
	s.mu.Unlock()

	if err := s.api.ManageUser(ctx, pedidoID, userID, action); err != nil {
		s.notify.Error(domain.UserMessage(err))
		return err
	}
	return s.Refresh(ctx)
}

// SearchUsers filters the prefetched directory by substring, minus customers
// already on the pedido.
func (s *Session) SearchUsers(q string) []domain.Usuario {
	q = strings.ToLower(strings.TrimSpace(q))

	s.mu.Lock()
	defer s.mu.Unlock()

	assigned := make(map[int]bool)
	if s.pedido != nil {
		for _, u := range s.pedido.Usuarios {
			assigned[u.ID] = true
		}
	}
	var out []domain.Usuario
	for _, u := range s.users {
		if assigned[u.ID] {
			continue
		}
		if q == "" || strings.Contains(strings.ToLower(u.Username), q) {
			out = append(out, u)
		}
	}
	return out
}

// HandleStockDelta is the realtime feed's entry point. The delta lands on
// the ledger unconditionally; open editors re-render both views but never
// refetch the order.
func (s *Session) HandleStockDelta(productoID, delta int) {
	s.ledger.ApplyExternalDelta(productoID, delta)

	s.mu.Lock()
	open := s.state == StateReady
	s.mu.Unlock()
	if open {
		s.renderAll()
	}
}

// ClampCantidad bounds a stepper quantity to [1, remaining]. Silent clamping
// is the stepper's contract, unlike the reserve gate.
func (s *Session) ClampCantidad(productoID, n int) int {
	return validate.ClampCantidad(n, s.ledger.Available(productoID))
}

// applyMutation finishes a mutation round-trip: clears the control's busy
// flag, drops stale responses, and on success replaces the order wholesale
// and charges the ledger with the committed delta.
func (s *Session) applyMutation(key string, e int, prev, next *domain.Pedido, err error) {
	s.mu.Lock()
	delete(s.busy, key)
	if err != nil {
		s.mu.Unlock()
		s.notify.Error(domain.UserMessage(err))
		return
	}
	if s.epoch != e {
		// Editor was closed or reopened while the request was in flight.
		s.mu.Unlock()
		return
	}
	s.ledger.Reconcile(prev, next)
	s.pedido = next
	s.mu.Unlock()
	s.renderAll()
}

// stockMessage picks between the hard out-of-stock message and the
// remaining-capacity one. Caller holds s.mu.
func (s *Session) stockMessage(productoID int) string {
	restante := s.ledger.Available(productoID)
	if restante <= 0 {
		return msgSinStock
	}
	return fmt.Sprintf("Stock insuficiente. Solo puedes agregar %d más.", restante)
}

func (s *Session) renderAll() {
	s.mu.Lock()
	entries := make([]CatalogEntry, 0, len(s.productos))
	for _, p := range s.productos {
		restante := s.ledger.Available(p.ID)
		if restante < 0 {
			restante = 0
		}
		entries = append(entries, CatalogEntry{Producto: p, Restante: restante, Agotado: restante == 0})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Producto.Nombre < entries[j].Producto.Nombre
	})

	view := PedidoView{MesaNombre: s.mesa.Nombre}
	if s.pedido != nil {
		view.Items = append(view.Items, s.pedido.Items...)
		view.Total = s.pedido.Total
		view.Usuarios = append(view.Usuarios, s.pedido.Usuarios...)
	}
	s.mu.Unlock()

	s.render.RenderCatalog(entries)
	s.render.RenderPedido(view)
}
