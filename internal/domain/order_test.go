package domain_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cellarbook/internal/domain"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to domain.OrderStatus
		ok       bool
	}{
		{domain.OrderPending, domain.OrderConfirmed, true},
		{domain.OrderConfirmed, domain.OrderFulfilled, true},
		{domain.OrderFulfilled, domain.OrderInvoiced, true},
		{domain.OrderPending, domain.OrderCancelled, true},
		{domain.OrderConfirmed, domain.OrderCancelled, true},
		{domain.OrderPending, domain.OrderFulfilled, false},
		{domain.OrderFulfilled, domain.OrderCancelled, false},
		{domain.OrderInvoiced, domain.OrderCancelled, false},
		{domain.OrderCancelled, domain.OrderPending, false},
		{domain.OrderInvoiced, "", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
	assert.True(t, domain.OrderInvoiced.Terminal())
	assert.True(t, domain.OrderCancelled.Terminal())
	assert.Equal(t, domain.OrderStatus(""), domain.OrderCancelled.Next())
}

func TestInvoiceStatusTransitions(t *testing.T) {
	assert.True(t, domain.InvoicePending.CanTransition(domain.InvoicePaid))
	assert.True(t, domain.InvoicePending.CanTransition(domain.InvoiceCancelled))
	assert.False(t, domain.InvoicePaid.CanTransition(domain.InvoiceCancelled))
	assert.False(t, domain.InvoiceCancelled.CanTransition(domain.InvoicePaid))
}

func TestLineAndOrderTotals(t *testing.T) {
	unit := decimal.RequireFromString("24.90")
	l1 := domain.OrderLine{Total: domain.LineTotal(3, unit, decimal.Zero)}
	l2 := domain.OrderLine{Total: domain.LineTotal(2, decimal.RequireFromString("12.35"), decimal.NewFromInt(10))}

	assert.Equal(t, "74.70", l1.Total.StringFixed(2))
	// 24.70 * 0.9 = 22.23
	assert.Equal(t, "22.23", l2.Total.StringFixed(2))
	assert.Equal(t, "96.93", domain.OrderTotal([]domain.OrderLine{l1, l2}).StringFixed(2))
	assert.True(t, domain.LineTotal(5, unit, decimal.NewFromInt(100)).IsZero())
}

func TestAvailabilityFor(t *testing.T) {
	assert.Equal(t, domain.OutOfStock, domain.AvailabilityFor(0, 3).Status)
	assert.Equal(t, domain.LowStock, domain.AvailabilityFor(3, 3).Status)
	assert.Equal(t, domain.InStock, domain.AvailabilityFor(4, 3).Status)
}

func TestErrorsMatchSentinels(t *testing.T) {
	var err error = &domain.StockError{Shortages: []domain.Shortage{{WineName: "Barolo", Requested: 4, Available: 1}}}
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Barolo (need 4, have 1)")

	err = domain.Invalid("email", "malformed")
	require.ErrorIs(t, err, domain.ErrValidation)
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "email", ve.Field)
}
