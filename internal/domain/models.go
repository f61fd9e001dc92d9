package domain

// Estados de mesa. The wire values are the Spanish strings the original
// system stored, including the space in "fuera de servicio".
const (
	EstadoDisponible      = "disponible"
	EstadoOcupada         = "ocupada"
	EstadoReservada       = "reservada"
	EstadoFueraDeServicio = "fuera de servicio"
)

// Estados de pedido.
const (
	PedidoEnProceso = "en_proceso"
	PedidoFacturado = "facturado"
	PedidoCancelado = "cancelado"
)

type Mesa struct {
	ID          int    `json:"id" db:"id"`
	Nombre      string `json:"nombre" db:"nombre"`
	Descripcion string `json:"descripcion,omitempty" db:"descripcion"`
	Estado      string `json:"estado" db:"estado"`
}

// Producto is a catalog entry as served by /api/mesas/{id}/pedido/.
// Immutable for the duration of an editing session.
type Producto struct {
	ID          int     `json:"id_producto" db:"id_producto"`
	Nombre      string  `json:"nombre" db:"nombre"`
	PrecioVenta float64 `json:"precio_venta" db:"precio_venta"`
	Stock       int     `json:"stock" db:"stock"`
	Imagen      string  `json:"imagen,omitempty" db:"imagen"`
}

type ProductoRef struct {
	ID     int    `json:"id"`
	Nombre string `json:"nombre"`
}

type PedidoItem struct {
	ID             int         `json:"id"`
	Producto       ProductoRef `json:"producto"`
	Cantidad       int         `json:"cantidad"`
	PrecioUnitario float64     `json:"precio_unitario"`
	Subtotal       float64     `json:"subtotal"`
}

type Usuario struct {
	ID       int    `json:"id" db:"id"`
	Username string `json:"username" db:"username"`
	Nombre   string `json:"nombre,omitempty" db:"nombre"`
}

// Pedido is replaced wholesale by every successful mutation response; it is
// never synthesized or merged client-side.
type Pedido struct {
	ID       int          `json:"id"`
	Items    []PedidoItem `json:"items"`
	Total    float64      `json:"total"`
	Usuarios []Usuario    `json:"usuarios"`
}

// Item returns the line for itemID, or nil.
func (p *Pedido) Item(itemID int) *PedidoItem {
	if p == nil {
		return nil
	}
	for i := range p.Items {
		if p.Items[i].ID == itemID {
			return &p.Items[i]
		}
	}
	return nil
}

// CantidadDe returns the ordered quantity for a product, 0 if absent.
func (p *Pedido) CantidadDe(productoID int) int {
	if p == nil {
		return 0
	}
	n := 0
	for _, it := range p.Items {
		if it.Producto.ID == productoID {
			n += it.Cantidad
		}
	}
	return n
}

// MesaPedido is the full payload of GET /api/mesas/{id}/pedido/.
// ReservasStock counts pending (unbilled) quantities per product across all
// active pedidos, the requesting mesa's own included.
type MesaPedido struct {
	Mesa          Mesa        `json:"mesa"`
	Pedido        Pedido      `json:"pedido"`
	Productos     []Producto  `json:"productos"`
	ReservasStock map[int]int `json:"reservas_stock"`
}

type FacturaResult struct {
	Success    bool   `json:"success"`
	FacturaURL string `json:"factura_url,omitempty"`
}

// Stock-update push event, the only websocket message type the client
// consumes. Other types are ignored.
const EventStockUpdate = "stock_update"

type StockDelta struct {
	ProductID int `json:"product_id"`
	Delta     int `json:"delta"`
}

type StockEvent struct {
	Type    string     `json:"type"`
	Message StockDelta `json:"message"`
}
