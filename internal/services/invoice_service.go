package services

import (
	"time"

	"cellarbook/internal/domain"
	"cellarbook/internal/repos"
	"cellarbook/internal/validate"
)

type InvoiceService struct {
	Invoices *repos.InvoiceRepo
	DueDays  int
	Now      func() time.Time
}

func NewInvoiceService(invoices *repos.InvoiceRepo, dueDays int) *InvoiceService {
	return &InvoiceService{Invoices: invoices, DueDays: dueDays, Now: time.Now}
}

// FromOrder bills a FULFILLED order and moves it to INVOICED.
func (s *InvoiceService) FromOrder(ownerID, orderID string) (domain.Invoice, error) {
	return s.Invoices.CreateFromOrder(ownerID, orderID, s.Now().UTC(), s.DueDays)
}

func (s *InvoiceService) Get(ownerID, id string) (domain.Invoice, error) {
	return s.Invoices.Get(ownerID, id)
}

func (s *InvoiceService) ByOrder(ownerID, orderID string) (domain.Invoice, error) {
	return s.Invoices.ByOrder(ownerID, orderID)
}

func (s *InvoiceService) List(ownerID, status string, page, pageSize int) ([]domain.Invoice, error) {
	var st domain.InvoiceStatus
	if status != "" {
		var ok bool
		if st, ok = validate.InvoiceStatus(status); !ok {
			return nil, domain.Invalid("status", "unknown invoice status")
		}
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 25
	}
	return s.Invoices.List(ownerID, st, pageSize, (page-1)*pageSize)
}

func (s *InvoiceService) MarkPaid(ownerID, id string) (domain.Invoice, error) {
	return s.settle(ownerID, id, domain.InvoicePaid)
}

func (s *InvoiceService) Cancel(ownerID, id string) (domain.Invoice, error) {
	return s.settle(ownerID, id, domain.InvoiceCancelled)
}

func (s *InvoiceService) settle(ownerID, id string, to domain.InvoiceStatus) (domain.Invoice, error) {
	inv, err := s.Invoices.Get(ownerID, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	if !inv.Status.CanTransition(to) {
		return domain.Invoice{}, &domain.TransitionError{From: string(inv.Status), To: string(to)}
	}
	if err := s.Invoices.SetStatus(ownerID, id, inv.Status, to, s.Now().UTC()); err != nil {
		return domain.Invoice{}, err
	}
	return s.Invoices.Get(ownerID, id)
}
