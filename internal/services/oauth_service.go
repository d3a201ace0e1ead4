package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"cellarbook/internal/config"
	"cellarbook/internal/domain"
	"cellarbook/internal/repos"
	"cellarbook/internal/validate"
)

var ErrOAuthDisabled = errors.New("oauth login is not configured")

// OAuthService signs users in through a generic OAuth2 provider that exposes
// an OpenID-style userinfo endpoint returning at least "email".
type OAuthService struct {
	Provider    string
	UserInfoURL string
	Conf        *oauth2.Config
	Users       *repos.UserRepo
	// HTTPClient is used for the token exchange when set (tests).
	HTTPClient *http.Client
}

func NewOAuthService(cfg config.OAuthConfig, users *repos.UserRepo) *OAuthService {
	s := &OAuthService{Provider: cfg.Provider, UserInfoURL: cfg.UserInfoURL, Users: users}
	if !cfg.Enabled() {
		return s
	}
	s.Conf = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.AuthURL,
			TokenURL: cfg.TokenURL,
		},
	}
	return s
}

func (s *OAuthService) Enabled() bool { return s != nil && s.Conf != nil }

func (s *OAuthService) AuthURL(state string) (string, error) {
	if !s.Enabled() {
		return "", ErrOAuthDisabled
	}
	return s.Conf.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

type userInfo struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	EmailVerified *bool  `json:"email_verified"`
}

// Complete exchanges the authorization code, reads the provider's userinfo
// and returns the matching local account, creating it on first sign-in.
func (s *OAuthService) Complete(ctx context.Context, code string) (*domain.User, error) {
	if !s.Enabled() {
		return nil, ErrOAuthDisabled
	}
	if s.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.HTTPClient)
	}
	tok, err := s.Conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth exchange: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.Conf.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("oauth userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oauth userinfo: status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&info); err != nil {
		return nil, fmt.Errorf("oauth userinfo: %w", err)
	}
	if info.EmailVerified != nil && !*info.EmailVerified {
		return nil, domain.Invalid("email", "provider reports the email as unverified")
	}
	email, ok := validate.Email(info.Email)
	if !ok {
		return nil, domain.Invalid("email", "provider returned no usable email")
	}
	name, ok := validate.Name(info.Name)
	if !ok {
		name = email
	}
	return s.Users.UpsertOAuth(s.Provider, email, name)
}
