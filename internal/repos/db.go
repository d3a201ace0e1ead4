package repos

import (
	"database/sql"
	"errors"
	"log"
	"strings"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"cellarbook/internal/domain"
)

// OpenDB opens the database, ensures the schema and seeds demo data.
func OpenDB(dsn string) (*sqlx.DB, error) {
	return Open(dsn, true)
}

func Open(dsn string, seed bool) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection: keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Ensure users exist (idempotent; safe to run every start)
	if err := seedUsers(db); err != nil {
		return nil, err
	}
	if seed {
		if err := seedDemoData(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Users & Sessions
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL CHECK (role IN ('USER','ADMIN')),
  provider TEXT NOT NULL DEFAULT 'local',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

-- Customers
CREATE TABLE IF NOT EXISTS customers(
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL REFERENCES users(id),
  name TEXT NOT NULL,
  email TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  address TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL DEFAULT '',
  notes TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_customers_owner ON customers(owner_id, LOWER(name));

-- Wines
CREATE TABLE IF NOT EXISTS wines(
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL REFERENCES users(id),
  name TEXT NOT NULL,
  type TEXT NOT NULL CHECK (type IN ('RED','WHITE','ROSE','SPARKLING','DESSERT','FORTIFIED')),
  region TEXT NOT NULL DEFAULT '',
  year INTEGER NOT NULL,
  price NUMERIC NOT NULL CHECK (price >= 0),
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  stock_alert INTEGER NOT NULL DEFAULT 0 CHECK (stock_alert >= 0),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_wines_owner ON wines(owner_id, LOWER(name));
CREATE INDEX IF NOT EXISTS idx_wines_type  ON wines(type);

-- Orders
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL REFERENCES users(id),
  customer_id TEXT NOT NULL REFERENCES customers(id) ON DELETE RESTRICT,
  status TEXT NOT NULL DEFAULT 'PENDING'
    CHECK (status IN ('PENDING','CONFIRMED','FULFILLED','INVOICED','CANCELLED')),
  total NUMERIC NOT NULL DEFAULT 0,
  notes TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_orders_owner_status ON orders(owner_id, status);
CREATE INDEX IF NOT EXISTS idx_orders_created_at   ON orders(created_at);

CREATE TABLE IF NOT EXISTS order_lines(
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  wine_id TEXT NOT NULL REFERENCES wines(id) ON DELETE RESTRICT,
  wine_name TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  unit_price NUMERIC NOT NULL,
  discount NUMERIC NOT NULL DEFAULT 0,
  total NUMERIC NOT NULL,
  reserved INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_order_lines_order ON order_lines(order_id);
CREATE INDEX IF NOT EXISTS idx_order_lines_wine  ON order_lines(wine_id);

-- Invoices
CREATE TABLE IF NOT EXISTS invoices(
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL REFERENCES users(id),
  order_id TEXT NOT NULL UNIQUE REFERENCES orders(id) ON DELETE RESTRICT,
  customer_id TEXT NOT NULL REFERENCES customers(id),
  number TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING','PAID','CANCELLED')),
  total NUMERIC NOT NULL,
  issued_at TEXT NOT NULL,
  due_at TEXT NOT NULL,
  paid_at TEXT,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(owner_id, number)
);
CREATE INDEX IF NOT EXISTS idx_invoices_owner_status ON invoices(owner_id, status);

CREATE TABLE IF NOT EXISTS invoice_lines(
  id TEXT PRIMARY KEY,
  invoice_id TEXT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
  wine_id TEXT NOT NULL,
  description TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  discount NUMERIC NOT NULL DEFAULT 0,
  total NUMERIC NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_invoice_lines_invoice ON invoice_lines(invoice_id);
`
	_, err := db.Exec(schema)
	return err
}

// seedUsers ensures the admin and two shop accounts exist (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Email, Name, Role, Hash string
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("Passw0rd!"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	users := []u{
		{"u-admin", "admin@cellarbook.test", "Admin", domain.RoleAdmin, string(hash)},
		{"u-cave", "cave@cellarbook.test", "La Cave", domain.RoleUser, string(hash)},
		{"u-somm", "sommelier@cellarbook.test", "Sommelier", domain.RoleUser, string(hash)},
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,name,password_hash,role)
			VALUES(?,?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.Name, x.Hash, x.Role); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// seedDemoData gives the demo shop a small cellar and two customers when it has none.
func seedDemoData(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM wines WHERE owner_id = 'u-cave'`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	log.Println("[seed] inserting demo wines/customers")

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT INTO wines(id,owner_id,name,type,region,year,price,stock,stock_alert) VALUES
	  ('w-barolo','u-cave','Barolo Riserva','RED','Piemonte',2016,58.00,12,4),
	  ('w-chablis','u-cave','Chablis Premier Cru','WHITE','Bourgogne',2020,32.50,24,6),
	  ('w-champagne','u-cave','Champagne Brut','SPARKLING','Champagne',2018,45.00,3,5),
	  ('w-provence','u-cave','Côtes de Provence Rosé','ROSE','Provence',2022,14.90,40,10),
	  ('w-sauternes','u-cave','Sauternes','DESSERT','Bordeaux',2015,39.00,0,2)`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO customers(id,owner_id,name,email,phone,address,city) VALUES
	  ('c-martin','u-cave','Claire Martin','claire.martin@example.com','+33 6 12 34 56 78','12 rue des Vignes','Lyon'),
	  ('c-dupont','u-cave','Bistro Dupont','contact@bistro-dupont.example','+33 4 78 00 11 22','3 place Bellecour','Lyon')`); err != nil {
		return err
	}
	return tx.Commit()
}

func withTx(db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// notFound maps sql.ErrNoRows onto the domain sentinel.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isFKViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
