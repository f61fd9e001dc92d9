package repos

import (
	"github.com/jmoiron/sqlx"

	"bargalileo/internal/domain"
)

type MesaRepo struct{ db *sqlx.DB }

func NewMesaRepo(db *sqlx.DB) *MesaRepo { return &MesaRepo{db: db} }

func (r *MesaRepo) List() ([]domain.Mesa, error) {
	var out []domain.Mesa
	err := r.db.Select(&out, `
		SELECT id, nombre, descripcion, estado
		FROM mesas
		ORDER BY nombre
	`)
	return out, err
}

func (r *MesaRepo) Get(id int) (domain.Mesa, error) {
	var m domain.Mesa
	err := r.db.Get(&m, `
		SELECT id, nombre, descripcion, estado
		FROM mesas
		WHERE id = ?
	`, id)
	return m, err
}

func (r *MesaRepo) SetEstado(id int, estado string) error {
	_, err := r.db.Exec(`UPDATE mesas SET estado = ? WHERE id = ?`, estado, id)
	return err
}

func (r *MesaRepo) SetEstadoTx(tx *sqlx.Tx, id int, estado string) error {
	_, err := tx.Exec(`UPDATE mesas SET estado = ? WHERE id = ?`, estado, id)
	return err
}

// NombreDisponible reports whether nombre is free to use, ignoring mesa
// excludeID (0 to check against every mesa).
func (r *MesaRepo) NombreDisponible(nombre string, excludeID int) (bool, error) {
	var n int
	err := r.db.Get(&n, `
		SELECT COUNT(*) FROM mesas
		WHERE LOWER(nombre) = LOWER(?) AND id != ?
	`, nombre, excludeID)
	return n == 0, err
}

func (r *MesaRepo) Create(nombre, descripcion string) (int, error) {
	res, err := r.db.Exec(`
		INSERT INTO mesas(nombre, descripcion) VALUES(?, ?)
	`, nombre, descripcion)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return int(id), err
}

func (r *MesaRepo) Update(id int, nombre, descripcion string) error {
	_, err := r.db.Exec(`
		UPDATE mesas SET nombre = ?, descripcion = ? WHERE id = ?
	`, nombre, descripcion, id)
	return err
}
