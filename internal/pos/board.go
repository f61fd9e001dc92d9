package pos

import (
	"context"
	"sync"

	"bargalileo/internal/domain"
)

const msgConfirmLiberar = "¿Liberar la mesa? Se eliminarán los pedidos sin facturar."

// Board mirrors the mesas list and gates estado transitions. Estado changes
// go through form submissions and end in a full reload of the list, which
// sidesteps client/server drift for this object entirely.
type Board struct {
	api     BoardAPI
	notify  Notifier
	confirm Confirmer

	mu    sync.Mutex
	mesas []domain.Mesa
}

func NewBoard(api BoardAPI, notify Notifier, confirm Confirmer) *Board {
	return &Board{api: api, notify: notify, confirm: confirm}
}

func (b *Board) Load(ctx context.Context) error {
	mesas, err := b.api.Mesas(ctx)
	if err != nil {
		b.notify.Error(domain.UserMessage(err))
		return err
	}
	b.mu.Lock()
	b.mesas = mesas
	b.mu.Unlock()
	return nil
}

func (b *Board) Mesas() []domain.Mesa {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Mesa, len(b.mesas))
	copy(out, b.mesas)
	return out
}

func (b *Board) Mesa(id int) (domain.Mesa, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.mesas {
		if m.ID == id {
			return m, true
		}
	}
	return domain.Mesa{}, false
}

// CanManage reports whether the manage-order action is available: only
// occupied mesas expose it.
func (b *Board) CanManage(m domain.Mesa) bool {
	return m.Estado == domain.EstadoOcupada
}

// TienePedidos checks for unbilled items on the mesa's active pedido.
// Lookup failures count as "no pedidos", matching the original's tolerant
// check before estado changes.
func (b *Board) TienePedidos(ctx context.Context, mesaID int) bool {
	mp, err := b.api.MesaPedido(ctx, mesaID)
	if err != nil {
		return false
	}
	return len(mp.Pedido.Items) > 0
}

// ChangeEstado submits an estado transition. Moving an occupied mesa with
// active pedidos to any non-occupied estado is blocked locally with an
// estado-specific message and nothing is submitted; the server re-validates
// regardless.
func (b *Board) ChangeEstado(ctx context.Context, mesaID int, estado string) error {
	if estado != domain.EstadoOcupada && b.TienePedidos(ctx, mesaID) {
		b.notify.Error(mensajeBloqueo(estado))
		return nil
	}
	if err := b.api.CambiarEstado(ctx, mesaID, estado); err != nil {
		b.notify.Error(domain.UserMessage(err))
		return err
	}
	return b.Load(ctx)
}

// Liberar is the dedicated force-release pathway: it warns that unbilled
// pedidos will be deleted, then submits. It stays separate from ChangeEstado
// because only this flow may drop pedidos.
func (b *Board) Liberar(ctx context.Context, mesaID int) error {
	ok, err := b.confirm.Confirm(ctx, msgConfirmLiberar)
	if err != nil || !ok {
		return err
	}
	if err := b.api.Liberar(ctx, mesaID); err != nil {
		b.notify.Error(domain.UserMessage(err))
		return err
	}
	b.notify.Toast("Mesa liberada")
	return b.Load(ctx)
}

func mensajeBloqueo(estado string) string {
	switch estado {
	case domain.EstadoDisponible:
		return "No se puede cambiar la mesa a disponible mientras tenga pedidos activos. Complete o cancele el pedido primero."
	case domain.EstadoReservada:
		return "No se puede reservar una mesa que tiene pedidos activos. Complete el pedido primero."
	case domain.EstadoFueraDeServicio:
		return "No se puede poner fuera de servicio una mesa con pedidos activos. Complete el pedido primero."
	}
	return "La mesa tiene pedidos activos."
}
