package auth

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
)

// AppConfig is the process-wide configuration. It is loaded once from the
// environment and treated as immutable afterwards; services receive it through
// the Config interface and never read ambient state.
type AppConfig struct {
	SigningKey    string        `env:"JWT_SECRET"`
	Issuer        string        `env:"AUTH_ISSUER" envDefault:"tapcanvas"`
	AdminEmails   []string      `env:"ADMIN_EMAILS" envSeparator:","`
	LoginURL      string        `env:"LOGIN_URL"`
	CookieName    string        `env:"AUTH_COOKIE_NAME" envDefault:"tap_token"`
	CookieDomain  string        `env:"AUTH_COOKIE_DOMAIN" envDefault:"tapcanvas.com"`
	UserTokenTTL  time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"168h"`
	GuestTokenTTL time.Duration `env:"AUTH_GUEST_TOKEN_TTL" envDefault:"24h"`
	MailFrom      string        `env:"MAIL_FROM"`
	MailFromName  string        `env:"MAIL_FROM_NAME" envDefault:"TapCanvas"`
	MailRelayURL  string        `env:"MAIL_RELAY_URL" envDefault:"https://api.mailchannels.net/tx/v1/send"`
	MailTimeout   time.Duration `env:"MAIL_TIMEOUT" envDefault:"10s"`
}

var _ Config = (*AppConfig)(nil)

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to parse auth configuration")
	}
	cfg.AdminEmails = normalizeAdminEmails(cfg.AdminEmails)
	return cfg, nil
}

func normalizeAdminEmails(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		e = NormalizeEmail(e)
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (c *AppConfig) GetSigningKey() string { return c.SigningKey }

func (c *AppConfig) GetIssuer() string { return c.Issuer }

func (c *AppConfig) GetAdminEmails() []string { return c.AdminEmails }

func (c *AppConfig) GetUserTokenTTL() time.Duration { return c.UserTokenTTL }

func (c *AppConfig) GetGuestTokenTTL() time.Duration { return c.GuestTokenTTL }

func (c *AppConfig) GetCookieName() string { return c.CookieName }

func (c *AppConfig) GetCookieDomain() string { return c.CookieDomain }

func (c *AppConfig) GetLoginURL() string { return c.LoginURL }

func (c *AppConfig) GetMailFrom() string { return c.MailFrom }

func (c *AppConfig) GetMailFromName() string { return c.MailFromName }

func (c *AppConfig) GetMailRelayURL() string { return c.MailRelayURL }

func (c *AppConfig) GetMailTimeout() time.Duration { return c.MailTimeout }
