package domain

import "github.com/shopspring/decimal"

type WineType string

const (
	WineRed       WineType = "RED"
	WineWhite     WineType = "WHITE"
	WineRose      WineType = "ROSE"
	WineSparkling WineType = "SPARKLING"
	WineDessert   WineType = "DESSERT"
	WineFortified WineType = "FORTIFIED"
)

var WineTypes = []WineType{WineRed, WineWhite, WineRose, WineSparkling, WineDessert, WineFortified}

type Customer struct {
	ID        string `db:"id" json:"id"`
	OwnerID   string `db:"owner_id" json:"-"`
	Name      string `db:"name" json:"name"`
	Email     string `db:"email" json:"email"`
	Phone     string `db:"phone" json:"phone"`
	Address   string `db:"address" json:"address"`
	City      string `db:"city" json:"city"`
	Notes     string `db:"notes" json:"notes"`
	CreatedAt string `db:"created_at" json:"created_at"`
	UpdatedAt string `db:"updated_at" json:"updated_at"`
}

type Wine struct {
	ID         string          `db:"id" json:"id"`
	OwnerID    string          `db:"owner_id" json:"-"`
	Name       string          `db:"name" json:"name"`
	Type       WineType        `db:"type" json:"type"`
	Region     string          `db:"region" json:"region"`
	Year       int             `db:"year" json:"year"`
	Price      decimal.Decimal `db:"price" json:"price"`
	Stock      int             `db:"stock" json:"stock"`
	StockAlert int             `db:"stock_alert" json:"stock_alert"`
	CreatedAt  string          `db:"created_at" json:"created_at"`
	UpdatedAt  string          `db:"updated_at" json:"updated_at"`
}

func (w Wine) Availability() Availability { return AvailabilityFor(w.Stock, w.StockAlert) }

const (
	InStock    = "IN_STOCK"
	LowStock   = "LOW_STOCK"
	OutOfStock = "OUT_OF_STOCK"
)

type Availability struct {
	Status string `json:"status"` // IN_STOCK | LOW_STOCK | OUT_OF_STOCK
	Stock  int    `json:"stock"`
	Alert  int    `json:"alert"`
}

// AvailabilityFor classifies a stock level against its alert threshold.
func AvailabilityFor(stock, alert int) Availability {
	status := InStock
	switch {
	case stock <= 0:
		status = OutOfStock
	case stock <= alert:
		status = LowStock
	}
	return Availability{Status: status, Stock: stock, Alert: alert}
}
