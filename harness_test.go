package auth

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/mattn/go-sqlite3"
)

const (
	sqliteCreateUsers = `CREATE TABLE users (
    id TEXT NOT NULL PRIMARY KEY,
    login TEXT NOT NULL,
    name TEXT,
    avatar_url TEXT,
    email TEXT NOT NULL UNIQUE,
    role TEXT NOT NULL DEFAULT '',
    guest BOOLEAN NOT NULL DEFAULT FALSE,
    last_seen_at TIMESTAMP NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP
);`

	sqliteCreateVerificationCodes = `CREATE TABLE email_verification_codes (
    id TEXT NOT NULL PRIMARY KEY,
    email TEXT NOT NULL,
    code TEXT NOT NULL,
    expires_at TIMESTAMP NOT NULL,
    verified BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

	sqliteCreateInvitationCodes = `CREATE TABLE invitation_codes (
    id TEXT NOT NULL PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    created_by TEXT NOT NULL,
    is_used BOOLEAN NOT NULL DEFAULT FALSE,
    used_by TEXT NULL,
    used_at TIMESTAMP NULL,
    expires_at TIMESTAMP NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	for _, ddl := range []string{
		sqliteCreateUsers,
		sqliteCreateVerificationCodes,
		sqliteCreateInvitationCodes,
	} {
		_, err = bunDB.Exec(ddl)
		require.NoError(t, err)
	}

	t.Cleanup(func() {
		_ = bunDB.Close()
		_ = db.Close()
	})

	return bunDB
}

type testConfig struct {
	signingKey   string
	issuer       string
	adminEmails  []string
	userTTL      time.Duration
	guestTTL     time.Duration
	cookieName   string
	cookieDomain string
	loginURL     string
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey:   "test-signing-key",
		issuer:       "tapcanvas",
		adminEmails:  []string{"admin@tapcanvas.com"},
		userTTL:      7 * 24 * time.Hour,
		guestTTL:     24 * time.Hour,
		cookieName:   "tap_token",
		cookieDomain: "tapcanvas.com",
		loginURL:     "https://tapcanvas.com/login",
	}
}

func (c *testConfig) GetSigningKey() string          { return c.signingKey }
func (c *testConfig) GetIssuer() string              { return c.issuer }
func (c *testConfig) GetAdminEmails() []string       { return c.adminEmails }
func (c *testConfig) GetUserTokenTTL() time.Duration { return c.userTTL }
func (c *testConfig) GetGuestTokenTTL() time.Duration {
	return c.guestTTL
}
func (c *testConfig) GetCookieName() string         { return c.cookieName }
func (c *testConfig) GetCookieDomain() string       { return c.cookieDomain }
func (c *testConfig) GetLoginURL() string           { return c.loginURL }
func (c *testConfig) GetMailFrom() string           { return "no-reply@tapcanvas.com" }
func (c *testConfig) GetMailFromName() string       { return "TapCanvas" }
func (c *testConfig) GetMailRelayURL() string       { return "https://relay.test/send" }
func (c *testConfig) GetMailTimeout() time.Duration { return time.Second }
