package repos

import (
	"github.com/jmoiron/sqlx"

	"bargalileo/internal/domain"
)

type UserRepo struct{ db *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// ListActivos returns every active account, the customer directory the
// terminals search over.
func (r *UserRepo) ListActivos() ([]domain.Usuario, error) {
	var out []domain.Usuario
	err := r.db.Select(&out, `
		SELECT id, username, nombre
		FROM users
		WHERE is_active = 1
		ORDER BY username
	`)
	return out, err
}

func (r *UserRepo) Get(id int) (domain.Usuario, error) {
	var u domain.Usuario
	err := r.db.Get(&u, `
		SELECT id, username, nombre
		FROM users
		WHERE id = ? AND is_active = 1
	`, id)
	return u, err
}
