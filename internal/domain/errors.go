package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInUse             = errors.New("record is referenced by other records")
	ErrConflict          = errors.New("record changed concurrently")
	ErrDuplicate         = errors.New("record already exists")
	ErrValidation        = errors.New("invalid input")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Reason }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func Invalid(field, reason string) error { return &ValidationError{Field: field, Reason: reason} }

type Shortage struct {
	WineID    string `db:"wine_id" json:"wine_id"`
	WineName  string `db:"wine_name" json:"wine_name"`
	Requested int    `db:"requested" json:"requested"`
	Available int    `db:"available" json:"available"`
}

// StockError lists every line that could not be served from stock.
type StockError struct {
	Shortages []Shortage
}

func (e *StockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s (need %d, have %d)", s.WineName, s.Requested, s.Available))
	}
	return "insufficient stock for " + strings.Join(parts, ", ")
}

func (e *StockError) Is(target error) bool { return target == ErrInsufficientStock }

type TransitionError struct {
	From, To string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }
