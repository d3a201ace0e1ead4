package repos

import (
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"cellarbook/internal/domain"
)

type DashboardRepo struct{ db *sqlx.DB }

func NewDashboardRepo(db *sqlx.DB) *DashboardRepo { return &DashboardRepo{db: db} }

type StatusCount struct {
	Status string `db:"status" json:"status"`
	Count  int    `db:"n" json:"count"`
}

type Totals struct {
	Customers   int             `db:"customers" json:"customers"`
	Wines       int             `db:"wines" json:"wines"`
	Bottles     int             `db:"bottles" json:"bottles"`
	StockValue  decimal.Decimal `db:"stock_value" json:"stock_value"`
	Revenue     decimal.Decimal `db:"revenue" json:"revenue"`
	Outstanding decimal.Decimal `db:"outstanding" json:"outstanding"`
	Overdue     int             `db:"overdue" json:"overdue"`
}

type WineSales struct {
	WineID   string          `db:"wine_id" json:"wine_id"`
	WineName string          `db:"wine_name" json:"wine_name"`
	Bottles  int             `db:"bottles" json:"bottles"`
	Revenue  decimal.Decimal `db:"revenue" json:"revenue"`
}

type MonthSales struct {
	Month   string          `db:"month" json:"month"`
	Orders  int             `db:"orders" json:"orders"`
	Revenue decimal.Decimal `db:"revenue" json:"revenue"`
}

// cents drops the binary float noise SQLite leaves on REAL sums.
func cents(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// Totals aggregates headline figures; revenue counts PAID invoices only and
// outstanding counts PENDING ones.
func (r *DashboardRepo) Totals(ownerID, today string) (Totals, error) {
	var t Totals
	err := r.db.Get(&t, `
		SELECT
		  (SELECT COUNT(*) FROM customers WHERE owner_id = ?) AS customers,
		  (SELECT COUNT(*) FROM wines WHERE owner_id = ?) AS wines,
		  (SELECT COALESCE(SUM(stock),0) FROM wines WHERE owner_id = ?) AS bottles,
		  (SELECT ROUND(COALESCE(SUM(stock*price),0),2) FROM wines WHERE owner_id = ?) AS stock_value,
		  (SELECT ROUND(COALESCE(SUM(total),0),2) FROM invoices WHERE owner_id = ? AND status = 'PAID') AS revenue,
		  (SELECT ROUND(COALESCE(SUM(total),0),2) FROM invoices WHERE owner_id = ? AND status = 'PENDING') AS outstanding,
		  (SELECT COUNT(*) FROM invoices WHERE owner_id = ? AND status = 'PENDING' AND due_at < ?) AS overdue
	`, ownerID, ownerID, ownerID, ownerID, ownerID, ownerID, ownerID, today)
	t.StockValue = cents(t.StockValue)
	t.Revenue = cents(t.Revenue)
	t.Outstanding = cents(t.Outstanding)
	return t, err
}

func (r *DashboardRepo) OrdersByStatus(ownerID string) ([]StatusCount, error) {
	out := []StatusCount{}
	err := r.db.Select(&out, `SELECT status, COUNT(*) AS n FROM orders WHERE owner_id = ? GROUP BY status ORDER BY status`, ownerID)
	return out, err
}

// TopWines ranks wines by bottles sold on orders that were not cancelled.
func (r *DashboardRepo) TopWines(ownerID string, limit int) ([]WineSales, error) {
	out := []WineSales{}
	err := r.db.Select(&out, `
		SELECT l.wine_id, l.wine_name, SUM(l.quantity) AS bottles, ROUND(COALESCE(SUM(l.total),0),2) AS revenue
		FROM order_lines l JOIN orders o ON o.id = l.order_id
		WHERE o.owner_id = ? AND o.status <> 'CANCELLED'
		GROUP BY l.wine_id, l.wine_name
		ORDER BY bottles DESC, l.wine_name
		LIMIT ?
	`, ownerID, limit)
	for i := range out {
		out[i].Revenue = cents(out[i].Revenue)
	}
	return out, err
}

func (r *DashboardRepo) MonthlySales(ownerID string, months int) ([]MonthSales, error) {
	out := []MonthSales{}
	err := r.db.Select(&out, `
		SELECT strftime('%Y-%m', created_at) AS month, COUNT(*) AS orders, ROUND(COALESCE(SUM(total),0),2) AS revenue
		FROM orders
		WHERE owner_id = ? AND status <> 'CANCELLED'
		GROUP BY month
		ORDER BY month DESC
		LIMIT ?
	`, ownerID, months)
	for i := range out {
		out[i].Revenue = cents(out[i].Revenue)
	}
	return out, err
}

func (r *DashboardRepo) RecentOrders(ownerID string, limit int) ([]domain.Order, error) {
	return NewOrderRepo(r.db).List(ownerID, OrderFilter{}, limit, 0)
}
