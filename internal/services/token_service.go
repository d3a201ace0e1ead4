package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"cellarbook/internal/domain"
	"cellarbook/internal/repos"
)

var ErrBadToken = errors.New("invalid or expired token")

const tokenIssuer = "cellarbook"

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 bearer tokens for the JSON API.
type TokenService struct {
	Secret []byte
	TTL    time.Duration
	Users  *repos.UserRepo
	Now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration, users *repos.UserRepo) *TokenService {
	return &TokenService{Secret: []byte(secret), TTL: ttl, Users: users, Now: time.Now}
}

func (s *TokenService) Issue(u *domain.User) (string, time.Time, error) {
	now := s.Now()
	exp := now.Add(s.TTL)
	claims := Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies the token and loads its user; tokens of deleted users fail.
func (s *TokenService) Parse(token string) (*domain.User, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.Now),
	)
	if err != nil {
		return nil, ErrBadToken
	}
	u, err := s.Users.ByID(claims.Subject)
	if err != nil {
		return nil, ErrBadToken
	}
	return u, nil
}
