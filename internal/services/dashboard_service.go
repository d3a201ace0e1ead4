package services

import (
	"time"

	"cellarbook/internal/domain"
	"cellarbook/internal/repos"
)

// Dashboard is the read model behind the home page and /api/v1/dashboard.
type Dashboard struct {
	Totals         repos.Totals        `json:"totals"`
	OrdersByStatus []repos.StatusCount `json:"orders_by_status"`
	TopWines       []repos.WineSales   `json:"top_wines"`
	MonthlySales   []repos.MonthSales  `json:"monthly_sales"`
	LowStock       []domain.Wine       `json:"low_stock"`
	RecentOrders   []domain.Order      `json:"recent_orders"`
}

type DashboardService struct {
	Stats *repos.DashboardRepo
	Wines *repos.WineRepo
	Now   func() time.Time
}

func NewDashboardService(stats *repos.DashboardRepo, wines *repos.WineRepo) *DashboardService {
	return &DashboardService{Stats: stats, Wines: wines, Now: time.Now}
}

func (s *DashboardService) Build(ownerID string) (Dashboard, error) {
	var d Dashboard
	var err error
	if d.Totals, err = s.Stats.Totals(ownerID, s.Now().UTC().Format("2006-01-02")); err != nil {
		return d, err
	}
	if d.OrdersByStatus, err = s.Stats.OrdersByStatus(ownerID); err != nil {
		return d, err
	}
	if d.TopWines, err = s.Stats.TopWines(ownerID, 5); err != nil {
		return d, err
	}
	if d.MonthlySales, err = s.Stats.MonthlySales(ownerID, 6); err != nil {
		return d, err
	}
	if d.LowStock, err = s.Wines.LowStock(ownerID); err != nil {
		return d, err
	}
	if d.RecentOrders, err = s.Stats.RecentOrders(ownerID, 5); err != nil {
		return d, err
	}
	return d, nil
}
