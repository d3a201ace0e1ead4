package repos

import (
	"fmt"
	"strings"

	"cellarbook/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type WineRepo struct{ db *sqlx.DB }

func NewWineRepo(db *sqlx.DB) *WineRepo { return &WineRepo{db: db} }

const wineCols = `id, owner_id, name, type, region, year, price, stock, stock_alert,
    COALESCE(created_at,'') AS created_at, COALESCE(updated_at,'') AS updated_at`

type WineFilter struct {
	Q        string
	Type     domain.WineType
	LowStock bool
}

func (r *WineRepo) List(ownerID string, f WineFilter, limit, offset int) ([]domain.Wine, error) {
	where := `owner_id = ?`
	args := []any{ownerID}
	if f.Q != "" {
		like := "%" + strings.ToLower(f.Q) + "%"
		where += ` AND (LOWER(name) LIKE ? OR LOWER(region) LIKE ?)`
		args = append(args, like, like)
	}
	if f.Type != "" {
		where += ` AND type = ?`
		args = append(args, f.Type)
	}
	if f.LowStock {
		where += ` AND stock <= stock_alert`
	}
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, offset)

	out := []domain.Wine{}
	err := r.db.Select(&out, `SELECT `+wineCols+` FROM wines WHERE `+where+`
		ORDER BY LOWER(name), year LIMIT ? OFFSET ?`, args...)
	return out, err
}

func (r *WineRepo) Get(ownerID, id string) (domain.Wine, error) {
	var w domain.Wine
	err := r.db.Get(&w, `SELECT `+wineCols+` FROM wines WHERE id = ? AND owner_id = ?`, id, ownerID)
	return w, notFound(err)
}

// GetMany loads the owner's wines by id; unknown ids are simply absent from the map.
func (r *WineRepo) GetMany(ownerID string, ids []string) (map[string]domain.Wine, error) {
	out := map[string]domain.Wine{}
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT `+wineCols+` FROM wines WHERE owner_id = ? AND id IN (?)`, ownerID, ids)
	if err != nil {
		return nil, err
	}
	var rows []domain.Wine
	if err := r.db.Select(&rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, w := range rows {
		out[w.ID] = w
	}
	return out, nil
}

func (r *WineRepo) Create(w *domain.Wine) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	_, err := r.db.Exec(`
		INSERT INTO wines(id, owner_id, name, type, region, year, price, stock, stock_alert)
		VALUES(?,?,?,?,?,?,?,?,?)
	`, w.ID, w.OwnerID, w.Name, w.Type, w.Region, w.Year, w.Price, w.Stock, w.StockAlert)
	return err
}

// Update saves catalogue fields. Stock moves only through AdjustStock and orders.
func (r *WineRepo) Update(w domain.Wine) error {
	res, err := r.db.Exec(`
		UPDATE wines
		SET name=?, type=?, region=?, year=?, price=?, stock_alert=?, updated_at=CURRENT_TIMESTAMP
		WHERE id=? AND owner_id=?
	`, w.Name, w.Type, w.Region, w.Year, w.Price, w.StockAlert, w.ID, w.OwnerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *WineRepo) Delete(ownerID, id string) error {
	res, err := r.db.Exec(`DELETE FROM wines WHERE id=? AND owner_id=?`, id, ownerID)
	if isFKViolation(err) {
		return domain.ErrInUse
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AdjustStock applies delta and returns the new level. A delta that would
// take stock below zero is rejected with a *domain.StockError.
func (r *WineRepo) AdjustStock(ownerID, id string, delta int) (int, error) {
	var level int
	err := withTx(r.db, func(tx *sqlx.Tx) error {
		var w domain.Wine
		if err := tx.Get(&w, `SELECT `+wineCols+` FROM wines WHERE id = ? AND owner_id = ?`, id, ownerID); err != nil {
			return notFound(err)
		}
		if w.Stock+delta < 0 {
			return &domain.StockError{Shortages: []domain.Shortage{{
				WineID: w.ID, WineName: w.Name, Requested: -delta, Available: w.Stock,
			}}}
		}
		if _, err := tx.Exec(`UPDATE wines SET stock = stock + ?, updated_at=CURRENT_TIMESTAMP WHERE id = ?`, delta, id); err != nil {
			return err
		}
		level = w.Stock + delta
		return nil
	})
	return level, err
}

func (r *WineRepo) LowStock(ownerID string) ([]domain.Wine, error) {
	out := []domain.Wine{}
	err := r.db.Select(&out, `SELECT `+wineCols+` FROM wines
		WHERE owner_id = ? AND stock <= stock_alert ORDER BY stock, LOWER(name)`, ownerID)
	return out, err
}

// decrementStock subtracts by units only if enough stock exists.
// It reports false, without error, when stock is short.
func decrementStock(tx *sqlx.Tx, wineID string, by int) (bool, error) {
	res, err := tx.Exec(`
		UPDATE wines
		SET stock = stock - ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock >= ?
	`, by, wineID, by)
	if err != nil {
		return false, fmt.Errorf("decrement stock for %s: %w", wineID, err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func restock(tx *sqlx.Tx, wineID string, by int) error {
	_, err := tx.Exec(`UPDATE wines SET stock = stock + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, by, wineID)
	return err
}

func currentStock(tx *sqlx.Tx, wineID string) (int, error) {
	var n int
	err := tx.Get(&n, `SELECT stock FROM wines WHERE id = ?`, wineID)
	return n, err
}
