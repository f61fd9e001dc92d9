package repos

import (
	"log"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Seed baseline data if DB is empty (mesas/productos)
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}
	// Ensure users exist (idempotent; safe to run every start)
	if err := seedUsers(db); err != nil {
		return nil, err
	}

	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Mesas
CREATE TABLE IF NOT EXISTS mesas(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  nombre TEXT NOT NULL,
  descripcion TEXT NOT NULL DEFAULT '',
  estado TEXT NOT NULL DEFAULT 'disponible'
    CHECK (estado IN ('disponible','ocupada','reservada','fuera de servicio'))
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_mesas_nombre_nocase ON mesas(LOWER(nombre));

-- Productos
CREATE TABLE IF NOT EXISTS productos(
  id_producto INTEGER PRIMARY KEY AUTOINCREMENT,
  nombre TEXT NOT NULL,
  precio_venta NUMERIC NOT NULL CHECK (precio_venta >= 0),
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  imagen TEXT NOT NULL DEFAULT '',
  activo INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_productos_nombre ON productos(LOWER(nombre));
CREATE INDEX IF NOT EXISTS idx_productos_activo ON productos(activo);

-- Pedidos
CREATE TABLE IF NOT EXISTS pedidos(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  mesa_id INTEGER NOT NULL REFERENCES mesas(id) ON DELETE RESTRICT,
  estado TEXT NOT NULL DEFAULT 'en_proceso'
    CHECK (estado IN ('en_proceso','facturado','cancelado')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_pedidos_mesa   ON pedidos(mesa_id);
CREATE INDEX IF NOT EXISTS idx_pedidos_estado ON pedidos(estado);

CREATE TABLE IF NOT EXISTS pedido_items(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  pedido_id INTEGER NOT NULL REFERENCES pedidos(id) ON DELETE CASCADE,
  producto_id INTEGER NOT NULL REFERENCES productos(id_producto) ON DELETE RESTRICT,
  cantidad INTEGER NOT NULL CHECK (cantidad >= 1),
  precio_unitario NUMERIC NOT NULL,
  UNIQUE (pedido_id, producto_id)
);
CREATE INDEX IF NOT EXISTS idx_pedido_items_pedido   ON pedido_items(pedido_id);
CREATE INDEX IF NOT EXISTS idx_pedido_items_producto ON pedido_items(producto_id);

CREATE TABLE IF NOT EXISTS pedido_usuarios(
  pedido_id INTEGER NOT NULL REFERENCES pedidos(id) ON DELETE CASCADE,
  user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  PRIMARY KEY (pedido_id, user_id)
);

-- Facturas
CREATE TABLE IF NOT EXISTS facturas(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  numero TEXT NOT NULL UNIQUE,
  pedido_id INTEGER NOT NULL UNIQUE REFERENCES pedidos(id) ON DELETE RESTRICT,
  total NUMERIC NOT NULL,
  fecha TEXT DEFAULT CURRENT_TIMESTAMP
);

-- Users
CREATE TABLE IF NOT EXISTS users(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT NOT NULL UNIQUE,
  nombre TEXT NOT NULL DEFAULT '',
  password_hash TEXT NOT NULL,
  is_staff INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users(LOWER(username));
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM mesas`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo mesas/productos")

	tx := db.MustBegin()
	tx.MustExec(`INSERT INTO mesas(nombre,descripcion) VALUES
	  ('Mesa 1','Ventana'),
	  ('Mesa 2','Ventana'),
	  ('Mesa 3','Centro'),
	  ('Mesa 4','Centro'),
	  ('Mesa 5','Terraza'),
	  ('Mesa 6','Terraza'),
	  ('Barra 1',''),
	  ('Barra 2','')`)

	tx.MustExec(`INSERT INTO productos(nombre,precio_venta,stock) VALUES
	  ('Cerveza Artesanal',4.50,48),
	  ('Vino Tinto Copa',6.00,30),
	  ('Gin Tonic',8.50,25),
	  ('Mojito',7.50,20),
	  ('Agua Mineral',2.00,60),
	  ('Nachos con Queso',9.00,15),
	  ('Tabla de Quesos',14.00,10),
	  ('Hamburguesa Galileo',12.50,18)`)

	return tx.Commit()
}

// seedUsers ensures a handful of customers and one staff account exist
// (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		Username, Nombre, Raw string
		Staff                 int
	}
	users := []u{
		{"carlos", "Carlos Pérez", "Passw0rd!", 0},
		{"maria", "María López", "Passw0rd!", 0},
		{"pedro", "Pedro Gómez", "Passw0rd!", 0},
		{"admin", "Administrador", "Passw0rd!", 1},
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		h, _ := bcrypt.GenerateFromPassword([]byte(x.Raw), 12)
		if _, err := tx.Exec(`
			INSERT INTO users(username,nombre,password_hash,is_staff)
			VALUES(?,?,?,?)
			ON CONFLICT(username) DO NOTHING
		`, x.Username, x.Nombre, string(h), x.Staff); err != nil {
			return err
		}
	}

	return tx.Commit()
}
