package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupApp(t *testing.T) (*fiber.App, *Auther, RepositoryManager, *MockMailer) {
	t.Helper()
	db := setupTestDB(t)
	repo := NewRepositoryManager(db)
	mailer := &MockMailer{}
	cfg := newTestConfig()

	auther := NewAuthenticator(repo, mailer, cfg)

	app := fiber.New()
	NewAuthController(auther, cfg).RegisterRoutes(app)

	return app, auther, repo, mailer
}

func postJSON(t *testing.T, app *fiber.App, host, path string, payload any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Host = host
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestHTTPGuestLoginSetsCookie(t *testing.T) {
	app, _, _, _ := setupApp(t)

	resp := postJSON(t, app, "app.tapcanvas.com", "/auth/guest", fiber.Map{"nickname": "drifter"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	require.NotEmpty(t, body["token"])

	user := body["user"].(map[string]any)
	assert.Equal(t, true, user["guest"])
	assert.Equal(t, "drifter", user["login"])

	cookie := findCookie(resp, "tap_token")
	require.NotNil(t, cookie)
	assert.Equal(t, ".tapcanvas.com", cookie.Domain)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteNoneMode, cookie.SameSite)
	assert.Equal(t, int(24*60*60), cookie.MaxAge)
	assert.Equal(t, "/", cookie.Path)
	assert.False(t, cookie.HttpOnly)
}

func TestHTTPGuestLoginLocalhostCookie(t *testing.T) {
	app, _, _, _ := setupApp(t)

	resp := postJSON(t, app, "localhost:5173", "/auth/guest", fiber.Map{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cookie := findCookie(resp, "tap_token")
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Domain)
	assert.False(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
}

func TestHTTPSendAndVerifyCode(t *testing.T) {
	app, _, repo, mailer := setupApp(t)
	ctx := context.Background()

	mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	// registered user logging back in
	existing, err := NewUserDirectory(repo.Users()).Create(ctx, "fan@example.com", false)
	require.NoError(t, err)

	resp := postJSON(t, app, "app.tapcanvas.com", "/auth/email/send-code", fiber.Map{"email": "fan@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	record, err := repo.VerificationCodes().LatestUnverified(ctx, "fan@example.com")
	require.NoError(t, err)

	resp = postJSON(t, app, "app.tapcanvas.com", "/auth/email/verify", fiber.Map{
		"email": "fan@example.com",
		"code":  record.Code,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	user := body["user"].(map[string]any)
	assert.Equal(t, existing.ID.String(), user["id"])

	cookie := findCookie(resp, "tap_token")
	require.NotNil(t, cookie)
	assert.Equal(t, int(7*24*60*60), cookie.MaxAge)
}

func TestHTTPVerifyCodeValidation(t *testing.T) {
	app, _, _, _ := setupApp(t)

	// non-numeric code never reaches the service
	resp := postJSON(t, app, "app.tapcanvas.com", "/auth/email/verify", fiber.Map{
		"email": "fan@example.com",
		"code":  "abc123",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTPVerifyCodeErrorShape(t *testing.T) {
	app, _, _, _ := setupApp(t)

	resp := postJSON(t, app, "app.tapcanvas.com", "/auth/email/verify", fiber.Map{
		"email": "fan@example.com",
		"code":  "123456",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	errPayload := body["error"].(map[string]any)
	assert.Equal(t, TextCodeCodeNotFound, errPayload["text_code"])
}

func TestHTTPGenerateInvitationRequiresAdmin(t *testing.T) {
	app, auther, _, _ := setupApp(t)

	// guests carry a valid token but are never admins
	token, _, err := auther.GuestLogin("drifter")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/invitation/generate", nil)
	req.Host = "app.tapcanvas.com"
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHTTPGenerateAndListInvitations(t *testing.T) {
	app, _, repo, _ := setupApp(t)
	ctx := context.Background()

	admin, err := NewUserDirectory(repo.Users()).Create(ctx, "admin@tapcanvas.com", true)
	require.NoError(t, err)

	cfg := newTestConfig()
	tokens := NewTokenService([]byte(cfg.signingKey), cfg.issuer, nil)
	token, err := tokens.Issue(ClaimsFromUser(admin), cfg.userTTL)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/invitation/generate", nil)
	req.Host = "app.tapcanvas.com"
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	invitation := body["invitation"].(map[string]any)
	assert.Len(t, invitation["code"], 32)

	req = httptest.NewRequest(http.MethodGet, "/auth/invitation/list", nil)
	req.Host = "app.tapcanvas.com"
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body = decodeBody(t, resp)
	invitations := body["invitations"].([]any)
	assert.Len(t, invitations, 1)
}

func TestHTTPSessionRedirectsAnonymousToLogin(t *testing.T) {
	app, _, _, _ := setupApp(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/session?redirect=https://app.tapcanvas.com/board", nil)
	req.Host = "app.tapcanvas.com"

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get(fiber.HeaderLocation))
	require.NoError(t, err)
	assert.Equal(t, "tapcanvas.com", location.Host)
	assert.Equal(t, "/login", location.Path)
	assert.Equal(t, "https://app.tapcanvas.com/board", location.Query().Get("redirect"))
}

func TestHTTPSessionRedirectsWithAuthParams(t *testing.T) {
	app, auther, _, _ := setupApp(t)

	token, _, err := auther.GuestLogin("drifter")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/session?redirect=https://app.tapcanvas.com/board", nil)
	req.Host = "app.tapcanvas.com"
	req.AddCookie(&http.Cookie{Name: "tap_token", Value: token})

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get(fiber.HeaderLocation))
	require.NoError(t, err)
	assert.Equal(t, "app.tapcanvas.com", location.Host)
	assert.Equal(t, token, location.Query().Get("tap_token"))
	assert.Contains(t, location.Query().Get("tap_user"), `"login":"drifter"`)
}

func TestHTTPSessionDropsUnsafeRedirect(t *testing.T) {
	app, auther, _, _ := setupApp(t)

	token, claims, err := auther.GuestLogin("drifter")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/session?redirect=javascript:alert(1)", nil)
	req.Host = "app.tapcanvas.com"
	req.AddCookie(&http.Cookie{Name: "tap_token", Value: token})

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	user := body["user"].(map[string]any)
	assert.Equal(t, claims.Login, user["login"])
}

func TestHTTPSessionResolvesRelativeRedirect(t *testing.T) {
	app, auther, _, _ := setupApp(t)

	token, _, err := auther.GuestLogin("drifter")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/session?redirect=/board/42", nil)
	req.Host = "app.tapcanvas.com"
	req.AddCookie(&http.Cookie{Name: "tap_token", Value: token})

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get(fiber.HeaderLocation))
	require.NoError(t, err)
	assert.Equal(t, "tapcanvas.com", location.Host)
	assert.Equal(t, "/board/42", location.Path)
	assert.Equal(t, token, location.Query().Get("tap_token"))
}

func TestHTTPSessionAcceptsRedirectURIAlias(t *testing.T) {
	app, _, _, _ := setupApp(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/session?redirect_uri=https://app.tapcanvas.com/board", nil)
	req.Host = "app.tapcanvas.com"

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get(fiber.HeaderLocation))
	require.NoError(t, err)
	assert.Equal(t, "/login", location.Path)
	assert.Equal(t, "https://app.tapcanvas.com/board", location.Query().Get("redirect"))
}

func TestHTTPSessionAuthenticatedJSON(t *testing.T) {
	app, auther, _, _ := setupApp(t)

	token, claims, err := auther.GuestLogin("drifter")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.Host = "app.tapcanvas.com"
	req.AddCookie(&http.Cookie{Name: "tap_token", Value: token})

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, token, body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, claims.Login, user["login"])
}

func TestHTTPSessionAnonymousJSON(t *testing.T) {
	app, _, _, _ := setupApp(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.Host = "app.tapcanvas.com"

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["authenticated"])
	assert.Equal(t, "Unauthorized", body["error"])
	assert.Equal(t, "https://tapcanvas.com/login", body["loginUrl"])
}

func TestHTTPSessionWithExpiredToken(t *testing.T) {
	app, _, _, _ := setupApp(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.Host = "app.tapcanvas.com"
	req.AddCookie(&http.Cookie{Name: "tap_token", Value: "garbage"})

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["authenticated"])
}
