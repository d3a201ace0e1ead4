package services

import (
	"fmt"
	"io"

	"cellarbook/internal/domain"
	"cellarbook/internal/export"
	"cellarbook/internal/repos"
)

type ExportService struct {
	Customers *repos.CustomerRepo
	Wines     *repos.WineRepo
	Orders    *repos.OrderRepo
	Invoices  *repos.InvoiceRepo
}

func NewExportService(customers *repos.CustomerRepo, wines *repos.WineRepo, orders *repos.OrderRepo, invoices *repos.InvoiceRepo) *ExportService {
	return &ExportService{Customers: customers, Wines: wines, Orders: orders, Invoices: invoices}
}

const exportLimit = 100000

// CSV writes every record of the given kind owned by ownerID.
func (s *ExportService) CSV(w io.Writer, ownerID, kind string) error {
	switch kind {
	case "customers":
		cs, err := s.Customers.List(ownerID, "", exportLimit, 0)
		if err != nil {
			return err
		}
		return export.Customers(w, cs)
	case "wines":
		ws, err := s.Wines.List(ownerID, repos.WineFilter{}, exportLimit, 0)
		if err != nil {
			return err
		}
		return export.Wines(w, ws)
	case "orders":
		os, err := s.Orders.ListAll(ownerID)
		if err != nil {
			return err
		}
		return export.Orders(w, os)
	case "invoices":
		is, err := s.Invoices.List(ownerID, "", exportLimit, 0)
		if err != nil {
			return err
		}
		return export.Invoices(w, is)
	}
	return domain.Invalid("kind", fmt.Sprintf("unknown export %q", kind))
}

func (s *ExportService) InvoicePDF(w io.Writer, owner *domain.User, invoiceID string) (domain.Invoice, error) {
	inv, err := s.Invoices.Get(owner.ID, invoiceID)
	if err != nil {
		return domain.Invoice{}, err
	}
	return inv, export.InvoicePDF(w, export.Seller{Name: owner.Name, Email: owner.Email}, inv)
}
