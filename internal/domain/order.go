package domain

import "github.com/shopspring/decimal"

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderFulfilled OrderStatus = "FULFILLED"
	OrderInvoiced  OrderStatus = "INVOICED"
	OrderCancelled OrderStatus = "CANCELLED"
)

var OrderStatuses = []OrderStatus{OrderPending, OrderConfirmed, OrderFulfilled, OrderInvoiced, OrderCancelled}

// Next returns the linear successor of s, or "" when s has none.
func (s OrderStatus) Next() OrderStatus {
	switch s {
	case OrderPending:
		return OrderConfirmed
	case OrderConfirmed:
		return OrderFulfilled
	case OrderFulfilled:
		return OrderInvoiced
	}
	return ""
}

func (s OrderStatus) CanTransition(to OrderStatus) bool {
	if to == OrderCancelled {
		return s == OrderPending || s == OrderConfirmed
	}
	return to != "" && s.Next() == to
}

func (s OrderStatus) Terminal() bool { return s == OrderInvoiced || s == OrderCancelled }

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type Order struct {
	ID           string          `db:"id" json:"id"`
	OwnerID      string          `db:"owner_id" json:"-"`
	CustomerID   string          `db:"customer_id" json:"customer_id"`
	CustomerName string          `db:"customer_name" json:"customer_name"`
	Status       OrderStatus     `db:"status" json:"status"`
	Total        decimal.Decimal `db:"total" json:"total"`
	Notes        string          `db:"notes" json:"notes"`
	CreatedAt    string          `db:"created_at" json:"created_at"`
	UpdatedAt    string          `db:"updated_at" json:"updated_at"`
	Lines        []OrderLine     `db:"-" json:"lines,omitempty"`
}

// Backordered reports whether some line still waits for stock.
func (o Order) Backordered() bool {
	for _, l := range o.Lines {
		if !l.Reserved {
			return true
		}
	}
	return false
}

type OrderLine struct {
	ID        string          `db:"id" json:"id"`
	OrderID   string          `db:"order_id" json:"-"`
	WineID    string          `db:"wine_id" json:"wine_id"`
	WineName  string          `db:"wine_name" json:"wine_name"`
	Quantity  int             `db:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
	Discount  decimal.Decimal `db:"discount" json:"discount"`
	Total     decimal.Decimal `db:"total" json:"total"`
	Reserved  bool            `db:"reserved" json:"reserved"`
}

var hundred = decimal.NewFromInt(100)

// LineTotal is qty × unit × (1 − pct/100), rounded to cents.
func LineTotal(qty int, unit, discountPct decimal.Decimal) decimal.Decimal {
	gross := unit.Mul(decimal.NewFromInt(int64(qty)))
	factor := hundred.Sub(discountPct).Div(hundred)
	return gross.Mul(factor).Round(2)
}

func OrderTotal(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total)
	}
	return total
}
