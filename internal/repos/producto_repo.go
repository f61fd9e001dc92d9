package repos

import (
	"github.com/jmoiron/sqlx"

	"bargalileo/internal/domain"
)

type ProductoRepo struct{ db *sqlx.DB }

func NewProductoRepo(db *sqlx.DB) *ProductoRepo { return &ProductoRepo{db: db} }

// ListActivos returns the sellable catalog ordered by nombre.
func (r *ProductoRepo) ListActivos() ([]domain.Producto, error) {
	var out []domain.Producto
	err := r.db.Select(&out, `
		SELECT id_producto, nombre, precio_venta, stock, imagen
		FROM productos
		WHERE activo = 1
		ORDER BY nombre
	`)
	return out, err
}

func (r *ProductoRepo) Get(id int) (domain.Producto, error) {
	var p domain.Producto
	err := r.db.Get(&p, `
		SELECT id_producto, nombre, precio_venta, stock, imagen
		FROM productos
		WHERE id_producto = ?
	`, id)
	return p, err
}

// GetActivo fetches a product only if it is still sellable.
func (r *ProductoRepo) GetActivo(id int) (domain.Producto, error) {
	var p domain.Producto
	err := r.db.Get(&p, `
		SELECT id_producto, nombre, precio_venta, stock, imagen
		FROM productos
		WHERE id_producto = ? AND activo = 1
	`, id)
	return p, err
}

func (r *ProductoRepo) Activo(id int) (bool, error) {
	var n int
	err := r.db.Get(&n, `SELECT activo FROM productos WHERE id_producto = ?`, id)
	return n == 1, err
}

// Decrement takes n units off stock, refusing to go below zero.
func (r *ProductoRepo) Decrement(tx *sqlx.Tx, id, n int) (bool, error) {
	res, err := tx.Exec(`
		UPDATE productos SET stock = stock - ?
		WHERE id_producto = ? AND stock >= ?
	`, n, id, n)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows == 1, err
}

func (r *ProductoRepo) Create(nombre string, precio float64, stock int) (int, error) {
	res, err := r.db.Exec(`
		INSERT INTO productos(nombre, precio_venta, stock) VALUES(?, ?, ?)
	`, nombre, precio, stock)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return int(id), err
}

func (r *ProductoRepo) SetStock(id, stock int) error {
	_, err := r.db.Exec(`UPDATE productos SET stock = ? WHERE id_producto = ?`, stock, id)
	return err
}

// Archive hides a product from the catalog without breaking past pedidos.
func (r *ProductoRepo) Archive(id int) error {
	_, err := r.db.Exec(`UPDATE productos SET activo = 0 WHERE id_producto = ?`, id)
	return err
}
