package services

import (
	"errors"

	"cellarbook/internal/domain"
	"cellarbook/internal/repos"
	"cellarbook/internal/validate"

	"golang.org/x/crypto/bcrypt"
)

var ErrBadCreds = errors.New("invalid email or password")

type AuthService struct {
	Users *repos.UserRepo
}

// Register creates a credentials account with a bcrypt-hashed password.
func (s *AuthService) Register(email, name, password string) (*domain.User, error) {
	email, ok := validate.Email(email)
	if !ok {
		return nil, domain.Invalid("email", "enter a valid email address")
	}
	name, ok = validate.Name(name)
	if !ok {
		return nil, domain.Invalid("name", "name must be 1-80 characters")
	}
	if !validate.Password(password) {
		return nil, domain.Invalid("password", "use 8-64 characters with upper, lower, digit and symbol")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &domain.User{Email: email, Name: name, Hash: string(h), Role: domain.RoleUser, Provider: "local"}
	if err := s.Users.Create(u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks credentials without touching sessions.
func (s *AuthService) Authenticate(email, password string) (*domain.User, error) {
	u, err := s.Users.ByEmail(email)
	if err != nil {
		return nil, ErrBadCreds
	}
	if u.Hash == "" || bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	return u, nil
}

func (s *AuthService) Login(sid, email, password string) (*domain.User, error) {
	u, err := s.Authenticate(email, password)
	if err != nil {
		return nil, err
	}
	if err := s.Users.BindSession(sid, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Logout(sid string) error {
	return s.Users.UnbindSession(sid)
}

func (s *AuthService) CurrentUser(sid string) (*domain.User, error) {
	return s.Users.SessionUser(sid)
}

// StartSession binds sid to an already authenticated user (OAuth sign-in).
func (s *AuthService) StartSession(sid string, u *domain.User) error {
	return s.Users.BindSession(sid, u.ID)
}
