package domain

import "github.com/shopspring/decimal"

type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "PENDING"
	InvoicePaid      InvoiceStatus = "PAID"
	InvoiceCancelled InvoiceStatus = "CANCELLED"
)

func (s InvoiceStatus) CanTransition(to InvoiceStatus) bool {
	return s == InvoicePending && (to == InvoicePaid || to == InvoiceCancelled)
}

func (s InvoiceStatus) Valid() bool {
	return s == InvoicePending || s == InvoicePaid || s == InvoiceCancelled
}

type Invoice struct {
	ID           string          `db:"id" json:"id"`
	OwnerID      string          `db:"owner_id" json:"-"`
	OrderID      string          `db:"order_id" json:"order_id"`
	CustomerID   string          `db:"customer_id" json:"customer_id"`
	CustomerName string          `db:"customer_name" json:"customer_name"`
	Number       string          `db:"number" json:"number"`
	Status       InvoiceStatus   `db:"status" json:"status"`
	Total        decimal.Decimal `db:"total" json:"total"`
	IssuedAt     string          `db:"issued_at" json:"issued_at"`
	DueAt        string          `db:"due_at" json:"due_at"`
	PaidAt       string          `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt    string          `db:"created_at" json:"created_at"`
	Lines        []InvoiceLine   `db:"-" json:"lines,omitempty"`
}

type InvoiceLine struct {
	ID          string          `db:"id" json:"id"`
	InvoiceID   string          `db:"invoice_id" json:"-"`
	WineID      string          `db:"wine_id" json:"wine_id"`
	Description string          `db:"description" json:"description"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	Discount    decimal.Decimal `db:"discount" json:"discount"`
	Total       decimal.Decimal `db:"total" json:"total"`
}
