package repos

import (
	"fmt"
	"time"

	"cellarbook/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type InvoiceRepo struct{ db *sqlx.DB }

func NewInvoiceRepo(db *sqlx.DB) *InvoiceRepo { return &InvoiceRepo{db: db} }

const invoiceCols = `i.id, i.owner_id, i.order_id, i.customer_id, c.name AS customer_name, i.number, i.status,
    i.total, i.issued_at, i.due_at, COALESCE(i.paid_at,'') AS paid_at, COALESCE(i.created_at,'') AS created_at`

const invoiceLineCols = `id, invoice_id, wine_id, description, quantity, unit_price, discount, total`

// CreateFromOrder bills a FULFILLED order: the order moves to INVOICED and an
// invoice mirroring its lines is written, numbered INV-<year>-<seq> per owner.
func (r *InvoiceRepo) CreateFromOrder(ownerID, orderID string, issued time.Time, dueDays int) (domain.Invoice, error) {
	inv := domain.Invoice{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		OrderID:  orderID,
		Status:   domain.InvoicePending,
		IssuedAt: issued.Format("2006-01-02"),
		DueAt:    issued.AddDate(0, 0, dueDays).Format("2006-01-02"),
	}
	err := withTx(r.db, func(tx *sqlx.Tx) error {
		if err := casOrderStatus(tx, ownerID, orderID, domain.OrderFulfilled, domain.OrderInvoiced); err != nil {
			return err
		}
		var o domain.Order
		if err := tx.Get(&o, `
			SELECT `+orderCols+`
			FROM orders o JOIN customers c ON c.id = o.customer_id
			WHERE o.id = ?
		`, orderID); err != nil {
			return err
		}
		inv.CustomerID = o.CustomerID
		inv.CustomerName = o.CustomerName
		inv.Total = o.Total

		prefix := fmt.Sprintf("INV-%d-", issued.Year())
		var seq int
		if err := tx.Get(&seq, `SELECT COUNT(*) FROM invoices WHERE owner_id = ? AND number LIKE ?`, ownerID, prefix+"%"); err != nil {
			return err
		}
		inv.Number = fmt.Sprintf("%s%04d", prefix, seq+1)

		if _, err := tx.Exec(`
			INSERT INTO invoices(id, owner_id, order_id, customer_id, number, status, total, issued_at, due_at)
			VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, inv.ID, inv.OwnerID, inv.OrderID, inv.CustomerID, inv.Number, inv.Status, inv.Total, inv.IssuedAt, inv.DueAt); err != nil {
			return err
		}

		var lines []domain.OrderLine
		if err := tx.Select(&lines, `SELECT `+lineCols+` FROM order_lines WHERE order_id = ? ORDER BY wine_name`, orderID); err != nil {
			return err
		}
		for _, l := range lines {
			il := domain.InvoiceLine{
				ID: uuid.NewString(), InvoiceID: inv.ID, WineID: l.WineID, Description: l.WineName,
				Quantity: l.Quantity, UnitPrice: l.UnitPrice, Discount: l.Discount, Total: l.Total,
			}
			if _, err := tx.Exec(`
				INSERT INTO invoice_lines(id, invoice_id, wine_id, description, quantity, unit_price, discount, total)
				VALUES(?, ?, ?, ?, ?, ?, ?, ?)
			`, il.ID, il.InvoiceID, il.WineID, il.Description, il.Quantity, il.UnitPrice, il.Discount, il.Total); err != nil {
				return err
			}
			inv.Lines = append(inv.Lines, il)
		}
		return nil
	})
	if err != nil {
		return domain.Invoice{}, err
	}
	return inv, nil
}

func (r *InvoiceRepo) Get(ownerID, id string) (domain.Invoice, error) {
	return r.getWhere(`i.id = ? AND i.owner_id = ?`, id, ownerID)
}

func (r *InvoiceRepo) ByOrder(ownerID, orderID string) (domain.Invoice, error) {
	return r.getWhere(`i.order_id = ? AND i.owner_id = ?`, orderID, ownerID)
}

func (r *InvoiceRepo) getWhere(where string, args ...any) (domain.Invoice, error) {
	var inv domain.Invoice
	if err := r.db.Get(&inv, `
		SELECT `+invoiceCols+`
		FROM invoices i JOIN customers c ON c.id = i.customer_id
		WHERE `+where, args...); err != nil {
		return domain.Invoice{}, notFound(err)
	}
	lines := []domain.InvoiceLine{}
	if err := r.db.Select(&lines, `SELECT `+invoiceLineCols+` FROM invoice_lines WHERE invoice_id = ? ORDER BY description`, inv.ID); err != nil {
		return domain.Invoice{}, err
	}
	inv.Lines = lines
	return inv, nil
}

func (r *InvoiceRepo) List(ownerID string, status domain.InvoiceStatus, limit, offset int) ([]domain.Invoice, error) {
	where := `i.owner_id = ?`
	args := []any{ownerID}
	if status != "" {
		where += ` AND i.status = ?`
		args = append(args, status)
	}
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, offset)

	out := []domain.Invoice{}
	err := r.db.Select(&out, `
		SELECT `+invoiceCols+`
		FROM invoices i JOIN customers c ON c.id = i.customer_id
		WHERE `+where+`
		ORDER BY i.issued_at DESC, i.number DESC
		LIMIT ? OFFSET ?
	`, args...)
	return out, err
}

// SetStatus moves a PENDING invoice to PAID or CANCELLED.
func (r *InvoiceRepo) SetStatus(ownerID, id string, from, to domain.InvoiceStatus, at time.Time) error {
	var paidAt any
	if to == domain.InvoicePaid {
		paidAt = at.Format("2006-01-02")
	}
	res, err := r.db.Exec(`
		UPDATE invoices SET status = ?, paid_at = COALESCE(?, paid_at)
		WHERE id = ? AND owner_id = ? AND status = ?
	`, to, paidAt, id, ownerID, from)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	var n int
	if err := r.db.Get(&n, `SELECT COUNT(*) FROM invoices WHERE id = ? AND owner_id = ?`, id, ownerID); err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}
