package services

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"bargalileo/internal/domain"
	"bargalileo/internal/repos"
)

// OrderService implements the pedido lifecycle: bootstrap, line mutations,
// customer assignment and billing. Every confirmed mutation returns the
// authoritative pedido plus the stock delta to push to the terminals.
type OrderService struct {
	db        *sqlx.DB
	Mesas     *repos.MesaRepo
	Productos *repos.ProductoRepo
	Pedidos   *repos.PedidoRepo
	Facturas  *repos.FacturaRepo
	Users     *repos.UserRepo
}

func NewOrderService(db *sqlx.DB, mesas *repos.MesaRepo, productos *repos.ProductoRepo, pedidos *repos.PedidoRepo, facturas *repos.FacturaRepo, users *repos.UserRepo) *OrderService {
	return &OrderService{db: db, Mesas: mesas, Productos: productos, Pedidos: pedidos, Facturas: facturas, Users: users}
}

func badRequest(format string, args ...any) error {
	return &domain.APIError{Status: 400, Message: fmt.Sprintf(format, args...)}
}

func notFound(msg string) error {
	return &domain.APIError{Status: 404, Message: msg}
}

// MesaPedido builds the editing-session bootstrap: mesa, its active pedido
// (created on first open), the catalog and pending reservations across all
// active pedidos.
func (s *OrderService) MesaPedido(mesaID int) (*domain.MesaPedido, error) {
	mesa, err := s.Mesas.Get(mesaID)
	if err == sql.ErrNoRows {
		return nil, notFound("Mesa no encontrada")
	}
	if err != nil {
		return nil, err
	}

	pedidoID, err := s.Pedidos.EnsureActivo(mesaID)
	if err != nil {
		return nil, err
	}
	pedido, err := s.Pedidos.Load(pedidoID)
	if err != nil {
		return nil, err
	}
	productos, err := s.Productos.ListActivos()
	if err != nil {
		return nil, err
	}
	reservas, err := s.Pedidos.ReservasActivas()
	if err != nil {
		return nil, err
	}

	return &domain.MesaPedido{
		Mesa:          mesa,
		Pedido:        pedido,
		Productos:     productos,
		ReservasStock: reservas,
	}, nil
}

// AgregarItem adds cantidad units to the mesa's active pedido, folding into
// the existing line when the product is already ordered. The stock check is
// against the line's total required quantity.
func (s *OrderService) AgregarItem(mesaID, productoID, cantidad int) (*domain.Pedido, domain.StockDelta, error) {
	none := domain.StockDelta{}
	if cantidad < 1 {
		return nil, none, badRequest("Cantidad no válida")
	}

	producto, err := s.Productos.GetActivo(productoID)
	if err == sql.ErrNoRows {
		return nil, none, notFound("Producto no encontrado")
	}
	if err != nil {
		return nil, none, err
	}

	pedidoID, err := s.Pedidos.EnsureActivo(mesaID)
	if err != nil {
		return nil, none, err
	}

	item, exists, err := s.Pedidos.ItemDe(pedidoID, productoID)
	if err != nil {
		return nil, none, err
	}
	requerida := cantidad
	if exists {
		requerida += item.Cantidad
	}
	if producto.Stock < requerida {
		return nil, none, badRequest("Stock insuficiente para %s. Disponible: %d", producto.Nombre, producto.Stock)
	}

	if exists {
		err = s.Pedidos.SetItemCantidad(item.ID, requerida)
	} else {
		err = s.Pedidos.InsertItem(pedidoID, productoID, cantidad, producto.PrecioVenta)
	}
	if err != nil {
		return nil, none, err
	}

	pedido, err := s.Pedidos.Load(pedidoID)
	if err != nil {
		return nil, none, err
	}
	return &pedido, domain.StockDelta{ProductID: productoID, Delta: -cantidad}, nil
}

// ActualizarItem sets a line to nueva units. Zero deletes the line. The
// broadcast delta is the signed change against the previous quantity.
func (s *OrderService) ActualizarItem(itemID, nueva int) (*domain.Pedido, domain.StockDelta, error) {
	none := domain.StockDelta{}

	item, err := s.Pedidos.Item(itemID)
	if err == sql.ErrNoRows {
		return nil, none, notFound("Item no encontrado")
	}
	if err != nil {
		return nil, none, err
	}

	producto, err := s.Productos.Get(item.ProductoID)
	if err != nil {
		return nil, none, err
	}
	activo, err := s.Productos.Activo(item.ProductoID)
	if err != nil {
		return nil, none, err
	}
	if !activo {
		return nil, none, badRequest("El producto %s está archivado y no puede modificarse.", producto.Nombre)
	}
	if nueva < 0 {
		return nil, none, badRequest("Cantidad no válida")
	}
	if producto.Stock < nueva {
		return nil, none, badRequest("Stock insuficiente para %s. Disponible: %d", producto.Nombre, producto.Stock)
	}

	if nueva == 0 {
		err = s.Pedidos.DeleteItem(itemID)
	} else {
		err = s.Pedidos.SetItemCantidad(itemID, nueva)
	}
	if err != nil {
		return nil, none, err
	}

	pedido, err := s.Pedidos.Load(item.PedidoID)
	if err != nil {
		return nil, none, err
	}
	return &pedido, domain.StockDelta{ProductID: item.ProductoID, Delta: -(nueva - item.Cantidad)}, nil
}

// EliminarItem drops a line and releases its full quantity back to the
// terminals' view of stock.
func (s *OrderService) EliminarItem(itemID int) (*domain.Pedido, domain.StockDelta, error) {
	none := domain.StockDelta{}

	item, err := s.Pedidos.Item(itemID)
	if err == sql.ErrNoRows {
		return nil, none, notFound("Item no encontrado")
	}
	if err != nil {
		return nil, none, err
	}

	if err := s.Pedidos.DeleteItem(itemID); err != nil {
		return nil, none, err
	}
	pedido, err := s.Pedidos.Load(item.PedidoID)
	if err != nil {
		return nil, none, err
	}
	return &pedido, domain.StockDelta{ProductID: item.ProductoID, Delta: item.Cantidad}, nil
}

// ManageUser attaches or detaches a customer. A customer can sit on at most
// one active pedido at a time.
func (s *OrderService) ManageUser(pedidoID, userID int, action string) error {
	if userID == 0 || (action != "add" && action != "remove") {
		return badRequest("Datos inválidos")
	}

	user, err := s.Users.Get(userID)
	if err == sql.ErrNoRows {
		return notFound("Usuario no encontrado")
	}
	if err != nil {
		return err
	}

	if action == "add" {
		busy, err := s.Pedidos.UsuarioEnOtroPedido(userID, pedidoID)
		if err != nil {
			return err
		}
		if busy {
			return badRequest("El cliente %s ya está en otra mesa.", user.Username)
		}
		return s.Pedidos.AddUsuario(pedidoID, userID)
	}
	return s.Pedidos.RemoveUsuario(pedidoID, userID)
}

// Facturar bills the pedido atomically: every line's stock is decremented,
// the factura gets the next correlative numero, and the mesa frees up. Any
// short line aborts the whole thing.
func (s *OrderService) Facturar(pedidoID int) (*domain.FacturaResult, error) {
	items, err := s.Pedidos.Items(pedidoID)
	if err != nil {
		return nil, err
	}
	pedido, err := s.Pedidos.Load(pedidoID)
	if err != nil {
		return nil, err
	}
	mesaID, err := s.Pedidos.MesaDe(pedidoID)
	if err == sql.ErrNoRows {
		return nil, notFound("Pedido no encontrado")
	}
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, it := range items {
		ok, err := s.Productos.Decrement(tx, it.ProductoID, it.Cantidad)
		if err != nil {
			return nil, err
		}
		if !ok {
			producto, perr := s.Productos.Get(it.ProductoID)
			if perr != nil {
				return nil, perr
			}
			return nil, badRequest("No hay stock suficiente para %q. Pedido no facturado.", producto.Nombre)
		}
	}

	facturaID, _, err := s.Facturas.CreateTx(tx, pedidoID, pedido.Total)
	if err != nil {
		return nil, err
	}
	if err := s.Pedidos.SetEstadoTx(tx, pedidoID, domain.PedidoFacturado); err != nil {
		return nil, err
	}
	if err := s.Mesas.SetEstadoTx(tx, mesaID, domain.EstadoDisponible); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &domain.FacturaResult{
		Success:    true,
		FacturaURL: fmt.Sprintf("/facturas/%d/", facturaID),
	}, nil
}
