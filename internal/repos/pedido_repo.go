package repos

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"bargalileo/internal/domain"
)

type PedidoRepo struct{ db *sqlx.DB }

func NewPedidoRepo(db *sqlx.DB) *PedidoRepo { return &PedidoRepo{db: db} }

// ItemRow is a pedido line as stored, before serialization into the
// response shape.
type ItemRow struct {
	ID             int     `db:"id"`
	PedidoID       int     `db:"pedido_id"`
	ProductoID     int     `db:"producto_id"`
	Cantidad       int     `db:"cantidad"`
	PrecioUnitario float64 `db:"precio_unitario"`
}

// EnsureActivo returns the mesa's en_proceso pedido, creating one if none
// exists. Opening a mesa's order view is what occupies it.
func (r *PedidoRepo) EnsureActivo(mesaID int) (int, error) {
	var id int
	err := r.db.Get(&id, `
		SELECT id FROM pedidos WHERE mesa_id = ? AND estado = 'en_proceso'
	`, mesaID)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	res, err := r.db.Exec(`INSERT INTO pedidos(mesa_id) VALUES(?)`, mesaID)
	if err != nil {
		return 0, err
	}
	id64, err := res.LastInsertId()
	return int(id64), err
}

// Load assembles the full pedido: lines joined with product names in insert
// order, then the attached customers.
func (r *PedidoRepo) Load(pedidoID int) (domain.Pedido, error) {
	p := domain.Pedido{ID: pedidoID, Items: []domain.PedidoItem{}, Usuarios: []domain.Usuario{}}

	rows := []struct {
		ItemRow
		Nombre string `db:"nombre"`
	}{}
	if err := r.db.Select(&rows, `
		SELECT i.id, i.pedido_id, i.producto_id, i.cantidad, i.precio_unitario, p.nombre
		FROM pedido_items i
		JOIN productos p ON p.id_producto = i.producto_id
		WHERE i.pedido_id = ?
		ORDER BY i.id
	`, pedidoID); err != nil {
		return p, err
	}
	for _, row := range rows {
		sub := float64(row.Cantidad) * row.PrecioUnitario
		p.Items = append(p.Items, domain.PedidoItem{
			ID:             row.ID,
			Producto:       domain.ProductoRef{ID: row.ProductoID, Nombre: row.Nombre},
			Cantidad:       row.Cantidad,
			PrecioUnitario: row.PrecioUnitario,
			Subtotal:       sub,
		})
		p.Total += sub
	}

	if err := r.db.Select(&p.Usuarios, `
		SELECT u.id, u.username, u.nombre
		FROM pedido_usuarios pu
		JOIN users u ON u.id = pu.user_id
		WHERE pu.pedido_id = ?
		ORDER BY u.username
	`, pedidoID); err != nil {
		return p, err
	}
	return p, nil
}

// ReservasActivas sums pending quantities per product across every
// en_proceso pedido, for the bootstrap payload.
func (r *PedidoRepo) ReservasActivas() (map[int]int, error) {
	rows := []struct {
		ProductoID int `db:"producto_id"`
		Cantidad   int `db:"cantidad"`
	}{}
	err := r.db.Select(&rows, `
		SELECT i.producto_id, SUM(i.cantidad) AS cantidad
		FROM pedido_items i
		JOIN pedidos p ON p.id = i.pedido_id
		WHERE p.estado = 'en_proceso'
		GROUP BY i.producto_id
	`)
	if err != nil {
		return nil, err
	}
	out := make(map[int]int, len(rows))
	for _, row := range rows {
		out[row.ProductoID] = row.Cantidad
	}
	return out, nil
}

func (r *PedidoRepo) Item(itemID int) (ItemRow, error) {
	var it ItemRow
	err := r.db.Get(&it, `
		SELECT id, pedido_id, producto_id, cantidad, precio_unitario
		FROM pedido_items WHERE id = ?
	`, itemID)
	return it, err
}

// ItemDe finds the pedido's existing line for a product, if any.
func (r *PedidoRepo) ItemDe(pedidoID, productoID int) (ItemRow, bool, error) {
	var it ItemRow
	err := r.db.Get(&it, `
		SELECT id, pedido_id, producto_id, cantidad, precio_unitario
		FROM pedido_items WHERE pedido_id = ? AND producto_id = ?
	`, pedidoID, productoID)
	if err == sql.ErrNoRows {
		return ItemRow{}, false, nil
	}
	return it, err == nil, err
}

func (r *PedidoRepo) InsertItem(pedidoID, productoID, cantidad int, precio float64) error {
	_, err := r.db.Exec(`
		INSERT INTO pedido_items(pedido_id, producto_id, cantidad, precio_unitario)
		VALUES(?, ?, ?, ?)
	`, pedidoID, productoID, cantidad, precio)
	return err
}

func (r *PedidoRepo) SetItemCantidad(itemID, cantidad int) error {
	_, err := r.db.Exec(`UPDATE pedido_items SET cantidad = ? WHERE id = ?`, cantidad, itemID)
	return err
}

func (r *PedidoRepo) DeleteItem(itemID int) error {
	_, err := r.db.Exec(`DELETE FROM pedido_items WHERE id = ?`, itemID)
	return err
}

func (r *PedidoRepo) Items(pedidoID int) ([]ItemRow, error) {
	var out []ItemRow
	err := r.db.Select(&out, `
		SELECT id, pedido_id, producto_id, cantidad, precio_unitario
		FROM pedido_items WHERE pedido_id = ?
		ORDER BY id
	`, pedidoID)
	return out, err
}

func (r *PedidoRepo) MesaDe(pedidoID int) (int, error) {
	var id int
	err := r.db.Get(&id, `SELECT mesa_id FROM pedidos WHERE id = ?`, pedidoID)
	return id, err
}

func (r *PedidoRepo) SetEstadoTx(tx *sqlx.Tx, pedidoID int, estado string) error {
	_, err := tx.Exec(`UPDATE pedidos SET estado = ? WHERE id = ?`, estado, pedidoID)
	return err
}

func (r *PedidoRepo) AddUsuario(pedidoID, userID int) error {
	_, err := r.db.Exec(`
		INSERT INTO pedido_usuarios(pedido_id, user_id) VALUES(?, ?)
		ON CONFLICT(pedido_id, user_id) DO NOTHING
	`, pedidoID, userID)
	return err
}

func (r *PedidoRepo) RemoveUsuario(pedidoID, userID int) error {
	_, err := r.db.Exec(`
		DELETE FROM pedido_usuarios WHERE pedido_id = ? AND user_id = ?
	`, pedidoID, userID)
	return err
}

// UsuarioEnOtroPedido reports whether the customer already sits on a
// different active pedido.
func (r *PedidoRepo) UsuarioEnOtroPedido(userID, pedidoID int) (bool, error) {
	var n int
	err := r.db.Get(&n, `
		SELECT COUNT(*)
		FROM pedido_usuarios pu
		JOIN pedidos p ON p.id = pu.pedido_id
		WHERE pu.user_id = ? AND p.estado = 'en_proceso' AND p.id != ?
	`, userID, pedidoID)
	return n > 0, err
}

// TieneItemsActivos reports whether the mesa has unbilled lines, the guard
// on estado transitions away from ocupada.
func (r *PedidoRepo) TieneItemsActivos(mesaID int) (bool, error) {
	var n int
	err := r.db.Get(&n, `
		SELECT COUNT(*)
		FROM pedido_items i
		JOIN pedidos p ON p.id = i.pedido_id
		WHERE p.mesa_id = ? AND p.estado = 'en_proceso'
	`, mesaID)
	return n > 0, err
}

// DeleteSinFacturar removes the mesa's pedidos that never got a factura and
// returns how many went away. Billed pedidos survive as history.
func (r *PedidoRepo) DeleteSinFacturar(mesaID int) (int, error) {
	res, err := r.db.Exec(`
		DELETE FROM pedidos
		WHERE mesa_id = ?
		  AND id NOT IN (SELECT pedido_id FROM facturas)
	`, mesaID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
