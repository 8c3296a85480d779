package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// TokenIssuer signs and validates session tokens.
type TokenIssuer interface {
	Issue(claims *SessionClaims, ttl time.Duration) (string, error)
	Validate(token string) (*SessionClaims, error)
}

// Mailer delivers transactional email. Implementations must be time-bounded;
// a slow or failing transport surfaces as ErrMailTransport, never a hang.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// AdminPolicy resolves administrative privilege. Both signals are independent:
// a stored admin role or membership in the configured email allowlist grants
// admin, neither alone is authoritative for the other.
type AdminPolicy interface {
	IsAdmin(user *User) bool
	IsAdminEmail(email string) bool
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAdminEmails() []string
	GetUserTokenTTL() time.Duration
	GetGuestTokenTTL() time.Duration
	GetCookieName() string
	GetCookieDomain() string
	GetLoginURL() string
	GetMailFrom() string
	GetMailFromName() string
	GetMailRelayURL() string
	GetMailTimeout() time.Duration
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
