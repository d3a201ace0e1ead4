package services

import (
	"cellarbook/internal/domain"
	"cellarbook/internal/repos"
	"cellarbook/internal/validate"
)

type WineService struct {
	Wines *repos.WineRepo
}

func NewWineService(wines *repos.WineRepo) *WineService {
	return &WineService{Wines: wines}
}

// WineInput carries raw form values; Stock is only read on creation.
type WineInput struct {
	Name       string `json:"name" form:"name"`
	Type       string `json:"type" form:"type"`
	Region     string `json:"region" form:"region"`
	Year       string `json:"year" form:"year"`
	Price      string `json:"price" form:"price"`
	Stock      string `json:"stock" form:"stock"`
	StockAlert string `json:"stock_alert" form:"stock_alert"`
}

func (in WineInput) toWine(withStock bool) (domain.Wine, error) {
	var w domain.Wine
	var ok bool
	if w.Name, ok = validate.Name(in.Name); !ok {
		return w, domain.Invalid("name", "name must be 1-80 characters")
	}
	if w.Type, ok = validate.WineType(in.Type); !ok {
		return w, domain.Invalid("type", "choose a wine type")
	}
	if w.Region, ok = validate.Text(in.Region, 80); !ok {
		return w, domain.Invalid("region", "region is too long")
	}
	if w.Year, ok = validate.Year(in.Year); !ok {
		return w, domain.Invalid("year", "enter a vintage between 1900 and next year")
	}
	if w.Price, ok = validate.Money(in.Price); !ok {
		return w, domain.Invalid("price", "enter a non-negative price with at most two decimals")
	}
	if in.StockAlert != "" {
		if w.StockAlert, ok = validate.Count(in.StockAlert); !ok {
			return w, domain.Invalid("stock_alert", "enter a non-negative whole number")
		}
	}
	if withStock && in.Stock != "" {
		if w.Stock, ok = validate.Count(in.Stock); !ok {
			return w, domain.Invalid("stock", "enter a non-negative whole number")
		}
	}
	return w, nil
}

func (s *WineService) List(ownerID string, q, wineType string, lowOnly bool, page, pageSize int) ([]domain.Wine, error) {
	f := repos.WineFilter{LowStock: lowOnly}
	if q != "" {
		var ok bool
		if f.Q, ok = validate.Q(q); !ok {
			return nil, domain.Invalid("q", "enter a valid search")
		}
	}
	if wineType != "" {
		var ok bool
		if f.Type, ok = validate.WineType(wineType); !ok {
			return nil, domain.Invalid("type", "unknown wine type")
		}
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 25
	}
	return s.Wines.List(ownerID, f, pageSize, (page-1)*pageSize)
}

func (s *WineService) Get(ownerID, id string) (domain.Wine, error) {
	return s.Wines.Get(ownerID, id)
}

func (s *WineService) Create(ownerID string, in WineInput) (domain.Wine, error) {
	w, err := in.toWine(true)
	if err != nil {
		return w, err
	}
	w.OwnerID = ownerID
	if err := s.Wines.Create(&w); err != nil {
		return domain.Wine{}, err
	}
	return w, nil
}

func (s *WineService) Update(ownerID, id string, in WineInput) (domain.Wine, error) {
	w, err := in.toWine(false)
	if err != nil {
		return w, err
	}
	w.ID, w.OwnerID = id, ownerID
	if err := s.Wines.Update(w); err != nil {
		return domain.Wine{}, err
	}
	return s.Wines.Get(ownerID, id)
}

func (s *WineService) Delete(ownerID, id string) error {
	return s.Wines.Delete(ownerID, id)
}

// AdjustStock records a delivery (positive delta) or a write-off (negative).
func (s *WineService) AdjustStock(ownerID, id string, delta int) (int, error) {
	if delta == 0 {
		return 0, domain.Invalid("delta", "enter a non-zero quantity")
	}
	return s.Wines.AdjustStock(ownerID, id, delta)
}

// Availability classifies the wine's stock against its alert threshold.
func (s *WineService) Availability(ownerID, id string) (domain.Availability, error) {
	w, err := s.Wines.Get(ownerID, id)
	if err != nil {
		return domain.Availability{}, err
	}
	return w.Availability(), nil
}
