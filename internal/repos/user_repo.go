package repos

import (
	"cellarbook/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = `id,email,name,password_hash,role,provider,COALESCE(created_at,'') AS created_at`

func (r *UserRepo) ByEmail(email string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `SELECT `+userCols+` FROM users WHERE LOWER(email)=LOWER(?)`, email)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepo) ByID(id string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `SELECT `+userCols+` FROM users WHERE id=?`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// Create inserts a credentials account. ID is assigned when empty.
func (r *UserRepo) Create(u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	if u.Provider == "" {
		u.Provider = "local"
	}
	_, err := r.DB.Exec(`INSERT INTO users(id,email,name,password_hash,role,provider) VALUES(?,?,?,?,?,?)`,
		u.ID, u.Email, u.Name, u.Hash, u.Role, u.Provider)
	if isUniqueViolation(err) {
		return domain.ErrDuplicate
	}
	return err
}

// UpsertOAuth returns the account for email, creating it on first sign-in.
// Existing credentials accounts keep their password and provider.
func (r *UserRepo) UpsertOAuth(provider, email, name string) (*domain.User, error) {
	if _, err := r.DB.Exec(`
		INSERT INTO users(id,email,name,password_hash,role,provider)
		VALUES(?,?,?,'',?,?)
		ON CONFLICT(email) DO UPDATE SET updated_at=CURRENT_TIMESTAMP
	`, uuid.NewString(), email, name, domain.RoleUser, provider); err != nil {
		return nil, err
	}
	return r.ByEmail(email)
}

func (r *UserRepo) List() ([]domain.User, error) {
	out := []domain.User{}
	err := r.DB.Select(&out, `SELECT `+userCols+` FROM users ORDER BY email`)
	return out, err
}

func (r *UserRepo) BindSession(sid, userID string) error {
	_, err := r.DB.Exec(`INSERT INTO sessions(id,user_id,last_seen)
                          VALUES(?,?,CURRENT_TIMESTAMP)
                          ON CONFLICT(id) DO UPDATE SET user_id=excluded.user_id,last_seen=CURRENT_TIMESTAMP`, sid, userID)
	return err
}

func (r *UserRepo) SessionUser(sid string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `
      SELECT u.id,u.email,u.name,u.password_hash,u.role,u.provider,COALESCE(u.created_at,'') AS created_at
      FROM sessions s
      JOIN users u ON u.id=s.user_id
      WHERE s.id=?`, sid)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepo) UnbindSession(sid string) error {
	_, err := r.DB.Exec(`UPDATE sessions SET user_id=NULL,last_seen=CURRENT_TIMESTAMP WHERE id=?`, sid)
	return err
}

// DeleteUserCascade removes a user together with everything the account owns:
// invoices, orders, customers, wines and sessions.
func (r *UserRepo) DeleteUserCascade(userID string) error {
	return withTx(r.DB, func(tx *sqlx.Tx) error {
		var n int
		if err := tx.Get(&n, `SELECT COUNT(*) FROM users WHERE id=?`, userID); err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrNotFound
		}
		stmts := []string{
			`DELETE FROM invoices WHERE owner_id=?`, // invoice_lines cascade
			`DELETE FROM orders WHERE owner_id=?`,   // order_lines cascade
			`DELETE FROM customers WHERE owner_id=?`,
			`DELETE FROM wines WHERE owner_id=?`,
			`DELETE FROM sessions WHERE user_id=?`,
			`DELETE FROM users WHERE id=?`,
		}
		for _, q := range stmts {
			if _, err := tx.Exec(q, userID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *UserRepo) SetRole(id, role string) error {
	res, err := r.DB.Exec(`UPDATE users SET role = ? WHERE id = ?`, role, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
