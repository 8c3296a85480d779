package auth

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuestService() (*GuestSessionService, *TokenService) {
	tokens := NewTokenService([]byte("secret"), "tapcanvas", nil)
	return NewGuestSessionService(tokens), tokens
}

func TestGuestSessionFromNickname(t *testing.T) {
	guests, tokens := newGuestService()

	token, claims, err := guests.Create("Space Cadet!")
	require.NoError(t, err)

	assert.Equal(t, "spacecadet", claims.Login)
	assert.Equal(t, "Space Cadet!", claims.Name)
	assert.True(t, claims.IsGuest())
	assert.Equal(t, RoleNone, claims.Role())
	assert.Empty(t, claims.Email)

	parsed, err := tokens.Validate(token)
	require.NoError(t, err)
	assert.True(t, parsed.IsGuest())
	assert.Equal(t, claims.Login, parsed.Login)

	ttl := parsed.Expires().Sub(parsed.IssuedAt())
	assert.Equal(t, 24*time.Hour, ttl)
}

func TestGuestSessionFallbacks(t *testing.T) {
	guests, _ := newGuestService()

	_, claims, err := guests.Create("")
	require.NoError(t, err)

	require.NotEmpty(t, claims.UserID())
	assert.Equal(t, "guest_"+claims.UserID()[:8], claims.Login)
	assert.Equal(t, "Guest "+strings.ToUpper(claims.UserID()[:4]), claims.Name)
}

func TestGuestSessionUnusableNickname(t *testing.T) {
	guests, _ := newGuestService()

	// every rune is stripped by the handle rules but the display name stays
	_, claims, err := guests.Create("!!!")
	require.NoError(t, err)

	assert.Equal(t, "guest_"+claims.UserID()[:8], claims.Login)
	assert.Equal(t, "!!!", claims.Name)
}

func TestGuestSessionTruncatesLongNickname(t *testing.T) {
	guests, _ := newGuestService()

	_, claims, err := guests.Create(strings.Repeat("a", 100))
	require.NoError(t, err)

	assert.Len(t, claims.Login, maxLoginLength)
	assert.Len(t, claims.Name, maxLoginLength)
}

func TestGuestSessionTruncatesOnRuneBoundary(t *testing.T) {
	guests, _ := newGuestService()

	_, claims, err := guests.Create(strings.Repeat("é", 100))
	require.NoError(t, err)

	assert.True(t, utf8.ValidString(claims.Name))
	assert.Equal(t, maxLoginLength, utf8.RuneCountInString(claims.Name))
}

func TestGuestSessionsAreDistinct(t *testing.T) {
	guests, _ := newGuestService()

	_, first, err := guests.Create("friend")
	require.NoError(t, err)
	_, second, err := guests.Create("friend")
	require.NoError(t, err)

	assert.NotEqual(t, first.UserID(), second.UserID())
	assert.Equal(t, first.Login, second.Login)
}
