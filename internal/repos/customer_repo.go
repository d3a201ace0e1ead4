package repos

import (
	"strings"

	"cellarbook/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type CustomerRepo struct{ db *sqlx.DB }

func NewCustomerRepo(db *sqlx.DB) *CustomerRepo { return &CustomerRepo{db: db} }

const customerCols = `id, owner_id, name, email, phone, address, city, notes,
    COALESCE(created_at,'') AS created_at, COALESCE(updated_at,'') AS updated_at`

// List returns the owner's customers, optionally filtered by name/email/city.
func (r *CustomerRepo) List(ownerID, q string, limit, offset int) ([]domain.Customer, error) {
	where := `owner_id = ?`
	args := []any{ownerID}
	if q != "" {
		like := "%" + strings.ToLower(q) + "%"
		where += ` AND (LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(city) LIKE ?)`
		args = append(args, like, like, like)
	}
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, offset)

	out := []domain.Customer{}
	err := r.db.Select(&out, `SELECT `+customerCols+` FROM customers WHERE `+where+`
		ORDER BY LOWER(name) LIMIT ? OFFSET ?`, args...)
	return out, err
}

func (r *CustomerRepo) Get(ownerID, id string) (domain.Customer, error) {
	var c domain.Customer
	err := r.db.Get(&c, `SELECT `+customerCols+` FROM customers WHERE id = ? AND owner_id = ?`, id, ownerID)
	return c, notFound(err)
}

func (r *CustomerRepo) Create(c *domain.Customer) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.Exec(`
		INSERT INTO customers(id, owner_id, name, email, phone, address, city, notes)
		VALUES(?,?,?,?,?,?,?,?)
	`, c.ID, c.OwnerID, c.Name, c.Email, c.Phone, c.Address, c.City, c.Notes)
	return err
}

func (r *CustomerRepo) Update(c domain.Customer) error {
	res, err := r.db.Exec(`
		UPDATE customers
		SET name=?, email=?, phone=?, address=?, city=?, notes=?, updated_at=CURRENT_TIMESTAMP
		WHERE id=? AND owner_id=?
	`, c.Name, c.Email, c.Phone, c.Address, c.City, c.Notes, c.ID, c.OwnerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete fails with ErrInUse while orders still reference the customer.
func (r *CustomerRepo) Delete(ownerID, id string) error {
	res, err := r.db.Exec(`DELETE FROM customers WHERE id=? AND owner_id=?`, id, ownerID)
	if isFKViolation(err) {
		return domain.ErrInUse
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
