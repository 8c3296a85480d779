package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// guestSessionTTL is the lifetime of a guest token. Guests re-authenticate by
// creating a fresh session.
const guestSessionTTL = 24 * time.Hour

// GuestSessionService mints ephemeral guest identities. Nothing is persisted:
// the identity lives entirely inside the signed token.
type GuestSessionService struct {
	tokens TokenIssuer
	logger Logger
	ttl    time.Duration
}

func NewGuestSessionService(tokens TokenIssuer) *GuestSessionService {
	return &GuestSessionService{
		tokens: tokens,
		logger: defLogger{},
		ttl:    guestSessionTTL,
	}
}

// WithLogger overrides the default logger.
func (s *GuestSessionService) WithLogger(logger Logger) *GuestSessionService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithTTL overrides the guest token lifetime.
func (s *GuestSessionService) WithTTL(ttl time.Duration) *GuestSessionService {
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

// Create mints a guest session from an optional nickname. The login handle is
// derived the same way as registered handles, with ID based fallbacks when the
// nickname is empty or unusable.
func (s *GuestSessionService) Create(nickname string) (string, *SessionClaims, error) {
	id := uuid.New()

	nickname = strings.TrimSpace(nickname)
	if runes := []rune(nickname); len(runes) > maxLoginLength {
		nickname = string(runes[:maxLoginLength])
	}

	login := sanitizeHandle(nickname)
	if login == "" {
		login = "guest_" + id.String()[:8]
	}

	name := nickname
	if name == "" {
		name = "Guest " + strings.ToUpper(id.String()[:4])
	}

	claims := &SessionClaims{
		Login: login,
		Name:  name,
		Guest: true,
	}
	claims.Subject = id.String()

	token, err := s.tokens.Issue(claims, s.ttl)
	if err != nil {
		return "", nil, err
	}

	s.logger.Debug("guest session created for %s", login)

	return token, claims, nil
}

// sanitizeHandle applies the login character rules to an arbitrary display
// string.
func sanitizeHandle(raw string) string {
	handle := loginSanitizer.ReplaceAllString(raw, "")
	handle = strings.ToLower(handle)
	if len(handle) > maxLoginLength {
		handle = handle[:maxLoginLength]
	}
	return handle
}
