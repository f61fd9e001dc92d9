package pos

import (
	"context"

	"bargalileo/internal/domain"
)

// API is the slice of the bar server contract the editor needs. Satisfied by
// *client.Client; tests substitute a spy.
type API interface {
	MesaPedido(ctx context.Context, mesaID int) (*domain.MesaPedido, error)
	Users(ctx context.Context) ([]domain.Usuario, error)
	AgregarItem(ctx context.Context, mesaID, productoID, cantidad int) (*domain.Pedido, error)
	ActualizarItem(ctx context.Context, itemID, cantidad int) (*domain.Pedido, error)
	EliminarItem(ctx context.Context, itemID int) (*domain.Pedido, error)
	ManageUser(ctx context.Context, pedidoID, userID int, action string) error
	Facturar(ctx context.Context, pedidoID int) (*domain.FacturaResult, error)
}

// BoardAPI is the slice the table board needs.
type BoardAPI interface {
	Mesas(ctx context.Context) ([]domain.Mesa, error)
	MesaPedido(ctx context.Context, mesaID int) (*domain.MesaPedido, error)
	CambiarEstado(ctx context.Context, mesaID int, estado string) error
	Liberar(ctx context.Context, mesaID int) error
}

// Notifier shows transient messages. Implementations must not block.
type Notifier interface {
	Toast(msg string)
	Error(msg string)
}

// Confirmer asks the user to confirm a destructive action. Returning false
// with a nil error is a decline, which is always a safe no-op.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// CatalogEntry is a product as the catalog view shows it: zero-remaining
// entries are disabled, not hidden, so unavailability reads differently from
// absence.
type CatalogEntry struct {
	Producto domain.Producto
	Restante int
	Agotado  bool
}

type PedidoView struct {
	MesaNombre string
	Items      []domain.PedidoItem
	Total      float64
	Usuarios   []domain.Usuario
}

// Renderer redraws the two live views. Called after every confirmed
// mutation and after every external stock delta while the editor is open.
type Renderer interface {
	RenderCatalog(entries []CatalogEntry)
	RenderPedido(view PedidoView)
}
