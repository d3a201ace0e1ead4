package repos

import (
	"cellarbook/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderCols = `o.id, o.owner_id, o.customer_id, c.name AS customer_name, o.status, o.total, o.notes,
    COALESCE(o.created_at,'') AS created_at, COALESCE(o.updated_at,'') AS updated_at`

const lineCols = `id, order_id, wine_id, wine_name, quantity, unit_price, discount, total, reserved`

type OrderFilter struct {
	Status     domain.OrderStatus
	CustomerID string
}

// Create stores the order header and its priced lines in one transaction,
// taking stock for every line. Lines whose wine is short are rejected with a
// *domain.StockError, unless allowBackorder is set: then they are stored
// unreserved and wait for fulfillment.
func (r *OrderRepo) Create(o *domain.Order, allowBackorder bool) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = domain.OrderPending
	}
	return withTx(r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.Exec(`
			INSERT INTO orders(id, owner_id, customer_id, status, total, notes, created_at)
			VALUES(?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		`, o.ID, o.OwnerID, o.CustomerID, o.Status, o.Total, o.Notes); err != nil {
			if isFKViolation(err) {
				return domain.ErrNotFound
			}
			return err
		}

		var short []domain.Shortage
		for i := range o.Lines {
			l := &o.Lines[i]
			if l.ID == "" {
				l.ID = uuid.NewString()
			}
			l.OrderID = o.ID
			ok, err := decrementStock(tx, l.WineID, l.Quantity)
			if err != nil {
				return err
			}
			l.Reserved = ok
			if !ok && !allowBackorder {
				have, err := currentStock(tx, l.WineID)
				if err != nil {
					return notFound(err)
				}
				short = append(short, domain.Shortage{WineID: l.WineID, WineName: l.WineName, Requested: l.Quantity, Available: have})
			}
		}
		if len(short) > 0 {
			return &domain.StockError{Shortages: short}
		}

		for _, l := range o.Lines {
			if _, err := tx.Exec(`
				INSERT INTO order_lines(id, order_id, wine_id, wine_name, quantity, unit_price, discount, total, reserved)
				VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, l.ID, l.OrderID, l.WineID, l.WineName, l.Quantity, l.UnitPrice, l.Discount, l.Total, l.Reserved); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *OrderRepo) Get(ownerID, id string) (domain.Order, error) {
	var o domain.Order
	if err := r.db.Get(&o, `
		SELECT `+orderCols+`
		FROM orders o JOIN customers c ON c.id = o.customer_id
		WHERE o.id = ? AND o.owner_id = ?
	`, id, ownerID); err != nil {
		return domain.Order{}, notFound(err)
	}
	lines := []domain.OrderLine{}
	if err := r.db.Select(&lines, `SELECT `+lineCols+` FROM order_lines WHERE order_id = ? ORDER BY wine_name`, id); err != nil {
		return domain.Order{}, err
	}
	o.Lines = lines
	return o, nil
}

func (r *OrderRepo) List(ownerID string, f OrderFilter, limit, offset int) ([]domain.Order, error) {
	where := `o.owner_id = ?`
	args := []any{ownerID}
	if f.Status != "" {
		where += ` AND o.status = ?`
		args = append(args, f.Status)
	}
	if f.CustomerID != "" {
		where += ` AND o.customer_id = ?`
		args = append(args, f.CustomerID)
	}
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, offset)

	out := []domain.Order{}
	err := r.db.Select(&out, `
		SELECT `+orderCols+`
		FROM orders o JOIN customers c ON c.id = o.customer_id
		WHERE `+where+`
		ORDER BY datetime(o.created_at) DESC, o.id
		LIMIT ? OFFSET ?
	`, args...)
	return out, err
}

// ListAll returns orders with their lines, for exports.
func (r *OrderRepo) ListAll(ownerID string) ([]domain.Order, error) {
	orders, err := r.List(ownerID, OrderFilter{}, 100000, 0)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		lines := []domain.OrderLine{}
		if err := r.db.Select(&lines, `SELECT `+lineCols+` FROM order_lines WHERE order_id = ? ORDER BY wine_name`, orders[i].ID); err != nil {
			return nil, err
		}
		orders[i].Lines = lines
	}
	return orders, nil
}

// SetStatus moves the order from one status to another. It fails with
// ErrConflict when the order is no longer in status from.
func (r *OrderRepo) SetStatus(ownerID, id string, from, to domain.OrderStatus) error {
	return withTx(r.db, func(tx *sqlx.Tx) error {
		return casOrderStatus(tx, ownerID, id, from, to)
	})
}

// Fulfill moves a CONFIRMED order to FULFILLED, taking stock for every line
// that is still unreserved. Any shortage rolls the whole step back.
func (r *OrderRepo) Fulfill(ownerID, id string) error {
	return withTx(r.db, func(tx *sqlx.Tx) error {
		if err := casOrderStatus(tx, ownerID, id, domain.OrderConfirmed, domain.OrderFulfilled); err != nil {
			return err
		}
		var lines []domain.OrderLine
		if err := tx.Select(&lines, `SELECT `+lineCols+` FROM order_lines WHERE order_id = ? AND reserved = 0`, id); err != nil {
			return err
		}
		var short []domain.Shortage
		for _, l := range lines {
			ok, err := decrementStock(tx, l.WineID, l.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				have, err := currentStock(tx, l.WineID)
				if err != nil {
					return err
				}
				short = append(short, domain.Shortage{WineID: l.WineID, WineName: l.WineName, Requested: l.Quantity, Available: have})
			}
		}
		if len(short) > 0 {
			return &domain.StockError{Shortages: short}
		}
		_, err := tx.Exec(`UPDATE order_lines SET reserved = 1 WHERE order_id = ?`, id)
		return err
	})
}

// Cancel moves a PENDING or CONFIRMED order to CANCELLED and returns the
// reserved bottles to stock.
func (r *OrderRepo) Cancel(ownerID, id string, from domain.OrderStatus) error {
	if !from.CanTransition(domain.OrderCancelled) {
		return &domain.TransitionError{From: string(from), To: string(domain.OrderCancelled)}
	}
	return withTx(r.db, func(tx *sqlx.Tx) error {
		if err := casOrderStatus(tx, ownerID, id, from, domain.OrderCancelled); err != nil {
			return err
		}
		var lines []domain.OrderLine
		if err := tx.Select(&lines, `SELECT `+lineCols+` FROM order_lines WHERE order_id = ? AND reserved = 1`, id); err != nil {
			return err
		}
		for _, l := range lines {
			if err := restock(tx, l.WineID, l.Quantity); err != nil {
				return err
			}
		}
		_, err := tx.Exec(`UPDATE order_lines SET reserved = 0 WHERE order_id = ?`, id)
		return err
	})
}

// Shortages reports, without changing anything, which unreserved lines of
// the order the current stock cannot serve.
func (r *OrderRepo) Shortages(id string) ([]domain.Shortage, error) {
	short := []domain.Shortage{}
	err := r.db.Select(&short, `
		SELECT l.wine_id, l.wine_name, l.quantity AS requested, w.stock AS available
		FROM order_lines l JOIN wines w ON w.id = l.wine_id
		WHERE l.order_id = ? AND l.reserved = 0 AND w.stock < l.quantity
		ORDER BY l.wine_name
	`, id)
	return short, err
}

func casOrderStatus(tx *sqlx.Tx, ownerID, id string, from, to domain.OrderStatus) error {
	res, err := tx.Exec(`
		UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND owner_id = ? AND status = ?
	`, to, id, ownerID, from)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	var n int
	if err := tx.Get(&n, `SELECT COUNT(*) FROM orders WHERE id = ? AND owner_id = ?`, id, ownerID); err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}
