package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cellarbook/internal/domain"
)

func readCSV(t *testing.T, b []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCustomersCSV(t *testing.T) {
	var buf bytes.Buffer
	err := Customers(&buf, []domain.Customer{
		{ID: "c1", Name: "Claire, Martin", Email: "claire@example.com", City: "Lyon"},
		{ID: "c2", Name: "=HYPERLINK(\"x\")"},
	})
	require.NoError(t, err)

	rows := readCSV(t, buf.Bytes())
	require.Len(t, rows, 3)
	assert.Equal(t, "id", rows[0][0])
	assert.Equal(t, "Claire, Martin", rows[1][1])
	assert.Equal(t, "'=HYPERLINK(\"x\")", rows[2][1])
}

func TestWinesCSVIncludesAvailability(t *testing.T) {
	var buf bytes.Buffer
	err := Wines(&buf, []domain.Wine{
		{ID: "w1", Name: "Barolo", Type: domain.WineRed, Year: 2018, Price: decimal.RequireFromString("58"), Stock: 2, StockAlert: 4},
	})
	require.NoError(t, err)

	rows := readCSV(t, buf.Bytes())
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"w1", "Barolo", "RED", "", "2018", "58.00", "2", "4", domain.LowStock}, rows[1])
}

func TestOrdersCSVOneRowPerLine(t *testing.T) {
	var buf bytes.Buffer
	o := domain.Order{ID: "o1", CustomerName: "Bistro", Status: domain.OrderPending, Total: decimal.RequireFromString("96.93"),
		Lines: []domain.OrderLine{
			{WineName: "A", Quantity: 2, UnitPrice: decimal.RequireFromString("41.50"), Discount: decimal.RequireFromString("10"), Total: decimal.RequireFromString("74.70")},
			{WineName: "B", Quantity: 1, UnitPrice: decimal.RequireFromString("22.23"), Discount: decimal.Zero, Total: decimal.RequireFromString("22.23")},
		}}
	require.NoError(t, Orders(&buf, []domain.Order{o}))

	rows := readCSV(t, buf.Bytes())
	require.Len(t, rows, 3)
	assert.Equal(t, "74.70", rows[1][9])
	assert.Equal(t, "96.93", rows[2][4])
}

func TestInvoicePDF(t *testing.T) {
	var buf bytes.Buffer
	inv := domain.Invoice{
		Number: "INV-2026-0001", CustomerName: "Claire Martin", Status: domain.InvoicePending,
		IssuedAt: "2026-10-19", DueAt: "2026-11-18", Total: decimal.RequireFromString("29.80"),
		Lines: []domain.InvoiceLine{{Description: "Côtes de Provence Rosé", Quantity: 2,
			UnitPrice: decimal.RequireFromString("14.90"), Discount: decimal.Zero, Total: decimal.RequireFromString("29.80")}},
	}
	require.NoError(t, InvoicePDF(&buf, Seller{Name: "Cave", Email: "cave@cellarbook.test"}, inv))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestValidKind(t *testing.T) {
	assert.True(t, ValidKind("orders"))
	assert.False(t, ValidKind("users"))
}
