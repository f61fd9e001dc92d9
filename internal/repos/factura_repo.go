package repos

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
)

type FacturaRepo struct{ db *sqlx.DB }

func NewFacturaRepo(db *sqlx.DB) *FacturaRepo { return &FacturaRepo{db: db} }

type FacturaRow struct {
	ID       int     `db:"id"`
	Numero   string  `db:"numero"`
	PedidoID int     `db:"pedido_id"`
	Mesa     string  `db:"mesa"`
	Total    float64 `db:"total"`
	Fecha    string  `db:"fecha"`
}

type FacturaItemRow struct {
	Nombre   string  `db:"nombre"`
	Cantidad int     `db:"cantidad"`
	Precio   float64 `db:"precio_unitario"`
	Subtotal float64 `db:"subtotal"`
}

// CreateTx issues the next correlative numero, zero-padded to 8 digits,
// inside the billing transaction.
func (r *FacturaRepo) CreateTx(tx *sqlx.Tx, pedidoID int, total float64) (int, string, error) {
	var last string
	err := tx.Get(&last, `SELECT numero FROM facturas ORDER BY id DESC LIMIT 1`)
	next := 1
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return 0, "", err
	default:
		n, convErr := strconv.Atoi(last)
		if convErr != nil {
			return 0, "", fmt.Errorf("factura numero corrupto %q: %w", last, convErr)
		}
		next = n + 1
	}
	numero := fmt.Sprintf("%08d", next)

	res, err := tx.Exec(`
		INSERT INTO facturas(numero, pedido_id, total) VALUES(?, ?, ?)
	`, numero, pedidoID, total)
	if err != nil {
		return 0, "", err
	}
	id, err := res.LastInsertId()
	return int(id), numero, err
}

func (r *FacturaRepo) Get(id int) (FacturaRow, []FacturaItemRow, error) {
	var f FacturaRow
	if err := r.db.Get(&f, `
		SELECT f.id, f.numero, f.pedido_id, m.nombre AS mesa, f.total, f.fecha
		FROM facturas f
		JOIN pedidos p ON p.id = f.pedido_id
		JOIN mesas m ON m.id = p.mesa_id
		WHERE f.id = ?
	`, id); err != nil {
		return FacturaRow{}, nil, err
	}

	var items []FacturaItemRow
	if err := r.db.Select(&items, `
		SELECT pr.nombre, i.cantidad, i.precio_unitario,
		       (i.cantidad * i.precio_unitario) AS subtotal
		FROM pedido_items i
		JOIN productos pr ON pr.id_producto = i.producto_id
		WHERE i.pedido_id = ?
		ORDER BY pr.nombre
	`, f.PedidoID); err != nil {
		return FacturaRow{}, nil, err
	}
	return f, items, nil
}

func (r *FacturaRepo) ListLatest(limit int) ([]FacturaRow, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []FacturaRow
	err := r.db.Select(&out, `
		SELECT f.id, f.numero, f.pedido_id, m.nombre AS mesa, f.total, f.fecha
		FROM facturas f
		JOIN pedidos p ON p.id = f.pedido_id
		JOIN mesas m ON m.id = p.mesa_id
		ORDER BY f.id DESC
		LIMIT ?
	`, limit)
	return out, err
}
