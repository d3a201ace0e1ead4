// Package export renders owner data as CSV downloads and invoices as PDF.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"cellarbook/internal/domain"
)

// Kinds lists the datasets that can be exported as CSV.
var Kinds = []string{"customers", "wines", "orders", "invoices"}

func ValidKind(kind string) bool {
	for _, k := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func writeAll(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		for i := range r {
			r[i] = cell(r[i])
		}
		if err := cw.Write(r); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// cell neutralises values a spreadsheet would evaluate as a formula.
func cell(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return s
		}
		return "'" + s
	}
	return s
}

func Customers(w io.Writer, cs []domain.Customer) error {
	rows := make([][]string, 0, len(cs))
	for _, c := range cs {
		rows = append(rows, []string{c.ID, c.Name, c.Email, c.Phone, c.Address, c.City, c.Notes, c.CreatedAt})
	}
	return writeAll(w, []string{"id", "name", "email", "phone", "address", "city", "notes", "created_at"}, rows)
}

func Wines(w io.Writer, ws []domain.Wine) error {
	rows := make([][]string, 0, len(ws))
	for _, x := range ws {
		rows = append(rows, []string{
			x.ID, x.Name, string(x.Type), x.Region, strconv.Itoa(x.Year),
			x.Price.StringFixed(2), strconv.Itoa(x.Stock), strconv.Itoa(x.StockAlert), x.Availability().Status,
		})
	}
	return writeAll(w, []string{"id", "name", "type", "region", "year", "price", "stock", "stock_alert", "availability"}, rows)
}

// Orders writes one row per order line so quantities and discounts survive.
func Orders(w io.Writer, orders []domain.Order) error {
	var rows [][]string
	for _, o := range orders {
		for _, l := range o.Lines {
			rows = append(rows, []string{
				o.ID, o.CreatedAt, o.CustomerName, string(o.Status), o.Total.StringFixed(2),
				l.WineName, strconv.Itoa(l.Quantity), l.UnitPrice.StringFixed(2), l.Discount.String(), l.Total.StringFixed(2),
			})
		}
	}
	return writeAll(w, []string{"order_id", "created_at", "customer", "status", "order_total", "wine", "quantity", "unit_price", "discount_pct", "line_total"}, rows)
}

func Invoices(w io.Writer, is []domain.Invoice) error {
	rows := make([][]string, 0, len(is))
	for _, i := range is {
		rows = append(rows, []string{
			i.Number, i.OrderID, i.CustomerName, string(i.Status), i.Total.StringFixed(2), i.IssuedAt, i.DueAt, i.PaidAt,
		})
	}
	return writeAll(w, []string{"number", "order_id", "customer", "status", "total", "issued_at", "due_at", "paid_at"}, rows)
}
