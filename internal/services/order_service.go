package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"cellarbook/internal/domain"
	"cellarbook/internal/repos"
	"cellarbook/internal/validate"
)

type LineInput struct {
	WineID   string  `json:"wine_id"`
	Quantity int     `json:"quantity"`
	Discount Percent `json:"discount"`
}

// Percent is a raw discount percentage. JSON clients may send it as a number
// or as a string; validation happens in validate.Discount.
type Percent string

func (p *Percent) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*p = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = Percent(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("discount: %w", err)
		}
		*p = Percent(n.String())
	}
	return nil
}

type OrderInput struct {
	CustomerID     string      `json:"customer_id"`
	Lines          []LineInput `json:"lines"`
	AllowBackorder bool        `json:"allow_backorder"`
	Notes          string      `json:"notes"`
}

// AdvanceResult describes one step of the order lifecycle. Shortages lists
// what was acknowledged on confirmation; Invoice is set on the INVOICED step.
type AdvanceResult struct {
	Order     domain.Order      `json:"order"`
	Shortages []domain.Shortage `json:"shortages,omitempty"`
	Invoice   *domain.Invoice   `json:"invoice,omitempty"`
}

type OrderService struct {
	Orders    *repos.OrderRepo
	Wines     *repos.WineRepo
	Customers *repos.CustomerRepo
	Invoices  *InvoiceService
}

func NewOrderService(orders *repos.OrderRepo, wines *repos.WineRepo, customers *repos.CustomerRepo, invoices *InvoiceService) *OrderService {
	return &OrderService{Orders: orders, Wines: wines, Customers: customers, Invoices: invoices}
}

// Create places a PENDING order for one of the owner's customers, pricing each
// line from the wine's current price and taking stock in the same transaction.
func (s *OrderService) Create(ownerID string, in OrderInput) (domain.Order, error) {
	customerID, ok := validate.ID(in.CustomerID)
	if !ok {
		return domain.Order{}, domain.Invalid("customer_id", "choose a customer")
	}
	notes, ok := validate.Text(in.Notes, 1000)
	if !ok {
		return domain.Order{}, domain.Invalid("notes", "notes are too long")
	}
	lines, err := mergeLines(in.Lines)
	if err != nil {
		return domain.Order{}, err
	}

	cust, err := s.Customers.Get(ownerID, customerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Order{}, domain.Invalid("customer_id", "unknown customer")
		}
		return domain.Order{}, err
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.WineID)
	}
	wines, err := s.Wines.GetMany(ownerID, ids)
	if err != nil {
		return domain.Order{}, err
	}

	o := domain.Order{OwnerID: ownerID, CustomerID: cust.ID, CustomerName: cust.Name, Notes: notes}
	for _, l := range lines {
		w, ok := wines[l.WineID]
		if !ok {
			return domain.Order{}, domain.Invalid("wine_id", "unknown wine "+l.WineID)
		}
		o.Lines = append(o.Lines, domain.OrderLine{
			WineID:    w.ID,
			WineName:  w.Name,
			Quantity:  l.Quantity,
			UnitPrice: w.Price,
			Discount:  l.discount,
			Total:     domain.LineTotal(l.Quantity, w.Price, l.discount),
		})
	}
	o.Total = domain.OrderTotal(o.Lines)

	if err := s.Orders.Create(&o, in.AllowBackorder); err != nil {
		return domain.Order{}, err
	}
	return s.Orders.Get(ownerID, o.ID)
}

type mergedLine struct {
	WineID   string
	Quantity int
	discount decimal.Decimal
}

// mergeLines validates the raw lines and folds repeated wines into one line.
// Repeated wines must carry the same discount.
func mergeLines(in []LineInput) ([]mergedLine, error) {
	if len(in) == 0 {
		return nil, domain.Invalid("lines", "add at least one wine")
	}
	byWine := map[string]int{}
	var out []mergedLine
	for _, l := range in {
		id, ok := validate.ID(l.WineID)
		if !ok {
			return nil, domain.Invalid("wine_id", "choose a wine")
		}
		if !validate.Quantity(l.Quantity) {
			return nil, domain.Invalid("quantity", "quantity must be between 1 and 10000")
		}
		d, ok := validate.Discount(string(l.Discount))
		if !ok {
			return nil, domain.Invalid("discount", "discount must be between 0 and 100")
		}
		if i, seen := byWine[id]; seen {
			if !out[i].discount.Equal(d) {
				return nil, domain.Invalid("discount", "the same wine appears with different discounts")
			}
			out[i].Quantity += l.Quantity
			if !validate.Quantity(out[i].Quantity) {
				return nil, domain.Invalid("quantity", "quantity must be between 1 and 10000")
			}
			continue
		}
		byWine[id] = len(out)
		out = append(out, mergedLine{WineID: id, Quantity: l.Quantity, discount: d})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].WineID < out[j].WineID })
	return out, nil
}

func (s *OrderService) Get(ownerID, id string) (domain.Order, error) {
	return s.Orders.Get(ownerID, id)
}

func (s *OrderService) List(ownerID string, status, customerID string, page, pageSize int) ([]domain.Order, error) {
	var f repos.OrderFilter
	if status != "" {
		st, ok := validate.OrderStatus(status)
		if !ok {
			return nil, domain.Invalid("status", "unknown order status")
		}
		f.Status = st
	}
	if customerID != "" {
		id, ok := validate.ID(customerID)
		if !ok {
			return nil, domain.Invalid("customer_id", "invalid customer")
		}
		f.CustomerID = id
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 25
	}
	return s.Orders.List(ownerID, f, pageSize, (page-1)*pageSize)
}

// Advance moves the order one step along PENDING, CONFIRMED, FULFILLED,
// INVOICED. When from is non-empty the order must still be in that status,
// so a repeated submit of the same step fails with ErrConflict.
func (s *OrderService) Advance(ownerID, id string, from domain.OrderStatus) (AdvanceResult, error) {
	o, err := s.Orders.Get(ownerID, id)
	if err != nil {
		return AdvanceResult{}, err
	}
	if from != "" && o.Status != from {
		return AdvanceResult{}, domain.ErrConflict
	}
	to := o.Status.Next()
	if to == "" {
		return AdvanceResult{}, &domain.TransitionError{From: string(o.Status), To: "next"}
	}

	var res AdvanceResult
	switch to {
	case domain.OrderConfirmed:
		short, err := s.Orders.Shortages(o.ID)
		if err != nil {
			return AdvanceResult{}, err
		}
		if err := s.Orders.SetStatus(ownerID, o.ID, o.Status, to); err != nil {
			return AdvanceResult{}, err
		}
		res.Shortages = short
	case domain.OrderFulfilled:
		if err := s.Orders.Fulfill(ownerID, o.ID); err != nil {
			return AdvanceResult{}, err
		}
	case domain.OrderInvoiced:
		inv, err := s.Invoices.FromOrder(ownerID, o.ID)
		if err != nil {
			return AdvanceResult{}, err
		}
		res.Invoice = &inv
	}

	if res.Order, err = s.Orders.Get(ownerID, o.ID); err != nil {
		return AdvanceResult{}, err
	}
	return res, nil
}

// Cancel ends a PENDING or CONFIRMED order and returns its reserved stock.
func (s *OrderService) Cancel(ownerID, id string) (domain.Order, error) {
	o, err := s.Orders.Get(ownerID, id)
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.Orders.Cancel(ownerID, o.ID, o.Status); err != nil {
		return domain.Order{}, err
	}
	return s.Orders.Get(ownerID, o.ID)
}

// Shortages lists the backordered lines the current stock cannot serve yet.
func (s *OrderService) Shortages(ownerID, id string) ([]domain.Shortage, error) {
	o, err := s.Orders.Get(ownerID, id)
	if err != nil {
		return nil, err
	}
	return s.Orders.Shortages(o.ID)
}
