package services

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cellarbook/internal/domain"
	"cellarbook/internal/repos"
)

const shop = "u-cave"

type env struct {
	users     *repos.UserRepo
	wines     *WineService
	customers *CustomerService
	orders    *OrderService
	invoices  *InvoiceService
	dash      *DashboardService
	export    *ExportService
}

func newEnv(t *testing.T) env {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	now := func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }
	customerRepo, wineRepo := repos.NewCustomerRepo(db), repos.NewWineRepo(db)
	orderRepo, invoiceRepo := repos.NewOrderRepo(db), repos.NewInvoiceRepo(db)

	inv := NewInvoiceService(invoiceRepo, 30)
	inv.Now = now
	dash := NewDashboardService(repos.NewDashboardRepo(db), wineRepo)
	dash.Now = now
	return env{
		users:     repos.NewUserRepo(db),
		wines:     NewWineService(wineRepo),
		customers: NewCustomerService(customerRepo),
		orders:    NewOrderService(orderRepo, wineRepo, customerRepo, inv),
		invoices:  inv,
		dash:      dash,
		export:    NewExportService(customerRepo, wineRepo, orderRepo, invoiceRepo),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestOrderLifecycleToInvoice(t *testing.T) {
	e := newEnv(t)

	o, err := e.orders.Create(shop, OrderInput{
		CustomerID: "c-dupont",
		Lines: []LineInput{
			{WineID: "w-barolo", Quantity: 2, Discount: "10"},
			{WineID: "w-chablis", Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, o.Status)
	assert.True(t, o.Total.Equal(dec("136.90")), o.Total.String())

	steps := []domain.OrderStatus{domain.OrderConfirmed, domain.OrderFulfilled, domain.OrderInvoiced}
	var res AdvanceResult
	for _, want := range steps {
		res, err = e.orders.Advance(shop, o.ID, "")
		require.NoError(t, err)
		assert.Equal(t, want, res.Order.Status)
	}
	require.NotNil(t, res.Invoice)
	assert.Equal(t, "INV-2026-0001", res.Invoice.Number)
	assert.Equal(t, "2026-10-19", res.Invoice.IssuedAt)
	assert.Equal(t, "2026-11-18", res.Invoice.DueAt)
	assert.True(t, res.Invoice.Total.Equal(o.Total))
	assert.Len(t, res.Invoice.Lines, 2)

	_, err = e.orders.Advance(shop, o.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	w, err := e.wines.Get(shop, "w-barolo")
	require.NoError(t, err)
	assert.Equal(t, 10, w.Stock)
}

func TestCreateMergesRepeatedWines(t *testing.T) {
	e := newEnv(t)
	o, err := e.orders.Create(shop, OrderInput{
		CustomerID: "c-martin",
		Lines: []LineInput{
			{WineID: "w-provence", Quantity: 2},
			{WineID: "w-provence", Quantity: 3},
		},
	})
	require.NoError(t, err)
	require.Len(t, o.Lines, 1)
	assert.Equal(t, 5, o.Lines[0].Quantity)
	assert.True(t, o.Total.Equal(dec("74.5")))
}

func TestCreateRejectsBadInput(t *testing.T) {
	e := newEnv(t)
	line := []LineInput{{WineID: "w-barolo", Quantity: 1}}

	cases := map[string]OrderInput{
		"no lines":           {CustomerID: "c-martin"},
		"unknown customer":   {CustomerID: "c-nobody", Lines: line},
		"zero quantity":      {CustomerID: "c-martin", Lines: []LineInput{{WineID: "w-barolo", Quantity: 0}}},
		"discount over 100":  {CustomerID: "c-martin", Lines: []LineInput{{WineID: "w-barolo", Quantity: 1, Discount: "101"}}},
		"unknown wine":       {CustomerID: "c-martin", Lines: []LineInput{{WineID: "w-nope", Quantity: 1}}},
		"conflicting rebate": {CustomerID: "c-martin", Lines: []LineInput{{WineID: "w-barolo", Quantity: 1, Discount: "5"}, {WineID: "w-barolo", Quantity: 1}}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.orders.Create(shop, in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	_, err := e.orders.Create("u-somm", OrderInput{CustomerID: "c-martin", Lines: line})
	assert.ErrorIs(t, err, domain.ErrValidation, "customers belong to their owner")
}

func TestShortageFailsUnlessBackorder(t *testing.T) {
	e := newEnv(t)
	in := OrderInput{CustomerID: "c-martin", Lines: []LineInput{{WineID: "w-champagne", Quantity: 5}}}

	_, err := e.orders.Create(shop, in)
	var se *domain.StockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 3, se.Shortages[0].Available)

	in.AllowBackorder = true
	o, err := e.orders.Create(shop, in)
	require.NoError(t, err)
	assert.True(t, o.Backordered())

	res, err := e.orders.Advance(shop, o.ID, domain.OrderPending)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderConfirmed, res.Order.Status)
	require.Len(t, res.Shortages, 1, "confirmation acknowledges the shortage")

	_, err = e.orders.Advance(shop, o.ID, domain.OrderConfirmed)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = e.wines.AdjustStock(shop, "w-champagne", 2)
	require.NoError(t, err)
	res, err = e.orders.Advance(shop, o.ID, domain.OrderConfirmed)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderFulfilled, res.Order.Status)
}

func TestAdvanceWithStaleStatusConflicts(t *testing.T) {
	e := newEnv(t)
	o, err := e.orders.Create(shop, OrderInput{CustomerID: "c-martin", Lines: []LineInput{{WineID: "w-chablis", Quantity: 1}}})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.orders.Advance(shop, o.ID, domain.OrderPending)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrConflict)
	}
	assert.Equal(t, 1, ok, "exactly one advance wins")

	got, err := e.orders.Get(shop, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderConfirmed, got.Status)
}

func TestCancelRestocksAndIsLimitedToEarlyStatuses(t *testing.T) {
	e := newEnv(t)
	o, err := e.orders.Create(shop, OrderInput{CustomerID: "c-martin", Lines: []LineInput{{WineID: "w-chablis", Quantity: 4}}})
	require.NoError(t, err)

	got, err := e.orders.Cancel(shop, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, got.Status)
	w, _ := e.wines.Get(shop, "w-chablis")
	assert.Equal(t, 24, w.Stock)

	o2, err := e.orders.Create(shop, OrderInput{CustomerID: "c-martin", Lines: []LineInput{{WineID: "w-chablis", Quantity: 1}}})
	require.NoError(t, err)
	_, err = e.orders.Advance(shop, o2.ID, "")
	require.NoError(t, err)
	_, err = e.orders.Advance(shop, o2.ID, "")
	require.NoError(t, err)
	_, err = e.orders.Cancel(shop, o2.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestInvoicePayAndCancel(t *testing.T) {
	e := newEnv(t)
	billed := func() domain.Invoice {
		o, err := e.orders.Create(shop, OrderInput{CustomerID: "c-martin", Lines: []LineInput{{WineID: "w-provence", Quantity: 1}}})
		require.NoError(t, err)
		var res AdvanceResult
		for i := 0; i < 3; i++ {
			res, err = e.orders.Advance(shop, o.ID, "")
			require.NoError(t, err)
		}
		return *res.Invoice
	}

	inv := billed()
	paid, err := e.invoices.MarkPaid(shop, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePaid, paid.Status)
	assert.Equal(t, "2026-10-19", paid.PaidAt)

	_, err = e.invoices.MarkPaid(shop, inv.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = e.invoices.Cancel(shop, inv.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	inv2 := billed()
	assert.Equal(t, "INV-2026-0002", inv2.Number)
	cancelled, err := e.invoices.Cancel(shop, inv2.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceCancelled, cancelled.Status)
	assert.Empty(t, cancelled.PaidAt)

	pending, err := e.invoices.List(shop, "PENDING", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
	_, err = e.invoices.List(shop, "LOST", 1, 10)
	assert.ErrorIs(t, err, domain.ErrValidation)

	d, err := e.dash.Build(shop)
	require.NoError(t, err)
	assert.True(t, d.Totals.Revenue.Round(2).Equal(dec("14.9")))
	assert.True(t, d.Totals.Outstanding.IsZero())
}

func TestCustomerAndWineValidation(t *testing.T) {
	e := newEnv(t)

	_, err := e.customers.Create(shop, CustomerInput{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = e.customers.Create(shop, CustomerInput{Name: "Ana", Email: "not-an-email"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	c, err := e.customers.Create(shop, CustomerInput{Name: "Ana Souza", Email: "Ana@Example.com", City: "Porto"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", c.Email)

	c, err = e.customers.Update(shop, c.ID, CustomerInput{Name: "Ana Souza", City: "Lisboa"})
	require.NoError(t, err)
	assert.Equal(t, "Lisboa", c.City)
	_, err = e.customers.Update("u-somm", c.ID, CustomerInput{Name: "X"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.wines.Create(shop, WineInput{Name: "Rioja", Type: "RED", Year: "2019", Price: "-1"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = e.wines.Create(shop, WineInput{Name: "Rioja", Type: "ORANGE", Year: "2019", Price: "12"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	w, err := e.wines.Create(shop, WineInput{Name: "Rioja Crianza", Type: "red", Region: "Rioja", Year: "2019", Price: "12,50", Stock: "6", StockAlert: "6"})
	require.NoError(t, err)
	assert.True(t, w.Price.Equal(dec("12.5")))

	a, err := e.wines.Availability(shop, w.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LowStock, a.Status)

	w, err = e.wines.Update(shop, w.ID, WineInput{Name: "Rioja Crianza", Type: "RED", Year: "2019", Price: "13", Stock: "99", StockAlert: "2"})
	require.NoError(t, err)
	assert.Equal(t, 6, w.Stock, "stock only moves through adjustments and orders")

	_, err = e.wines.AdjustStock(shop, w.ID, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestExportCSVKinds(t *testing.T) {
	e := newEnv(t)
	for _, kind := range []string{"customers", "wines", "orders", "invoices"} {
		buf := new(strings.Builder)
		require.NoError(t, e.export.CSV(buf, shop, kind), kind)
		assert.NotEmpty(t, buf.String(), kind)
	}
	assert.ErrorIs(t, e.export.CSV(new(strings.Builder), shop, "users"), domain.ErrValidation)
}

func TestOrderInputDecodesDiscountForms(t *testing.T) {
	cases := map[string]Percent{
		`{"wine_id":"w-barolo","quantity":1,"discount":10}`:    "10",
		`{"wine_id":"w-barolo","quantity":1,"discount":12.5}`:  "12.5",
		`{"wine_id":"w-barolo","quantity":1,"discount":"7.5"}`: "7.5",
		`{"wine_id":"w-barolo","quantity":1,"discount":null}`:  "",
		`{"wine_id":"w-barolo","quantity":1}`:                  "",
	}
	for raw, want := range cases {
		var l LineInput
		require.NoError(t, json.Unmarshal([]byte(raw), &l), raw)
		assert.Equal(t, want, l.Discount, raw)
	}

	var l LineInput
	assert.Error(t, json.Unmarshal([]byte(`{"discount":[1]}`), &l))
}
