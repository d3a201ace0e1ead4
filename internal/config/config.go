package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string        `mapstructure:"port"`
	DBDSN          string        `mapstructure:"db_dsn"`
	LogFile        string        `mapstructure:"log_file"`
	SeedDemo       bool          `mapstructure:"seed_demo"`
	CookieSecure   bool          `mapstructure:"cookie_secure"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTL         time.Duration `mapstructure:"jwt_ttl"`
	InvoiceDueDays int           `mapstructure:"invoice_due_days"`
	CORSOrigins    string        `mapstructure:"cors_origins"`

	OAuthProvider     string `mapstructure:"oauth_provider"`
	OAuthClientID     string `mapstructure:"oauth_client_id"`
	OAuthClientSecret string `mapstructure:"oauth_client_secret"`
	OAuthAuthURL      string `mapstructure:"oauth_auth_url"`
	OAuthTokenURL     string `mapstructure:"oauth_token_url"`
	OAuthUserInfoURL  string `mapstructure:"oauth_userinfo_url"`
	OAuthRedirectURL  string `mapstructure:"oauth_redirect_url"`
}

// OAuthConfig describes a single generic OAuth2 provider. Login through it is
// disabled while ClientID is empty.
type OAuthConfig struct {
	Provider     string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	RedirectURL  string
}

func (o OAuthConfig) Enabled() bool { return o.ClientID != "" }

func (c Config) OAuth() OAuthConfig {
	return OAuthConfig{
		Provider:     c.OAuthProvider,
		ClientID:     c.OAuthClientID,
		ClientSecret: c.OAuthClientSecret,
		AuthURL:      c.OAuthAuthURL,
		TokenURL:     c.OAuthTokenURL,
		UserInfoURL:  c.OAuthUserInfoURL,
		RedirectURL:  c.OAuthRedirectURL,
	}
}

func defaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("db_dsn", "cellarbook.db") // sqlite file in project root
	v.SetDefault("log_file", "./cellarbook.log")
	v.SetDefault("seed_demo", true)
	v.SetDefault("cookie_secure", false)
	v.SetDefault("jwt_secret", "change-me")
	v.SetDefault("jwt_ttl", 24*time.Hour)
	v.SetDefault("invoice_due_days", 30)
	v.SetDefault("cors_origins", "*")
	v.SetDefault("oauth_provider", "google")
	v.SetDefault("oauth_client_id", "")
	v.SetDefault("oauth_client_secret", "")
	v.SetDefault("oauth_auth_url", "https://accounts.google.com/o/oauth2/auth")
	v.SetDefault("oauth_token_url", "https://oauth2.googleapis.com/token")
	v.SetDefault("oauth_userinfo_url", "https://openidconnect.googleapis.com/v1/userinfo")
	v.SetDefault("oauth_redirect_url", "http://localhost:8080/auth/oauth/callback")
}

// Load reads defaults, an optional cellarbook.yaml and the environment
// (PORT, DB_DSN, LOG_FILE, JWT_SECRET, OAUTH_CLIENT_ID, ...), in that order.
func Load() (Config, error) {
	v := viper.New()
	defaults(v)

	v.SetConfigName("cellarbook")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.cellarbook")
	v.AddConfigPath("/etc/cellarbook")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.JWTSecret == "change-me" {
		log.Printf("[config] JWT_SECRET uses the default value; set it outside development")
	}
	log.Printf("[config] PORT=%s DB_DSN=%s LOG_FILE=%s SEED_DEMO=%t OAUTH=%t",
		cfg.Port, cfg.DBDSN, cfg.LogFile, cfg.SeedDemo, cfg.OAuth().Enabled())
	return cfg, nil
}

// Defaults returns the built-in configuration without reading files or the
// environment. Tests start from it.
func Defaults() Config {
	v := viper.New()
	defaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}
