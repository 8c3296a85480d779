package auth

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// CookieOptions describes how the session cookie is attached for a given
// request host.
type CookieOptions struct {
	Name     string
	Domain   string
	MaxAge   time.Duration
	Secure   bool
	SameSite string
}

// resolveCookieOptions picks cookie attributes from the request host. Local
// development hosts get a lax first-party cookie; everything else gets a
// cross-site cookie, scoped to the apex domain when the host belongs to it.
func resolveCookieOptions(host string, cfg Config, guest bool) CookieOptions {
	host = strings.ToLower(host)
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}

	opts := CookieOptions{
		Name:   cfg.GetCookieName(),
		MaxAge: cfg.GetUserTokenTTL(),
	}
	if guest {
		opts.MaxAge = cfg.GetGuestTokenTTL()
	}

	if strings.Contains(host, "localhost") || strings.Contains(host, "127.0.0.1") {
		opts.SameSite = fiber.CookieSameSiteLaxMode
		opts.Secure = false
		return opts
	}

	opts.SameSite = fiber.CookieSameSiteNoneMode
	opts.Secure = true

	apex := cfg.GetCookieDomain()
	if apex != "" && (host == apex || strings.HasSuffix(host, "."+apex)) {
		opts.Domain = "." + apex
	}

	return opts
}

// attachAuthCookie writes the session cookie on the response.
func attachAuthCookie(c *fiber.Ctx, token string, opts CookieOptions) {
	c.Cookie(&fiber.Cookie{
		Name:     opts.Name,
		Value:    token,
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   int(opts.MaxAge.Seconds()),
		Secure:   opts.Secure,
		HTTPOnly: false,
		SameSite: opts.SameSite,
	})
}

// normalizeRedirectTarget resolves a caller supplied redirect against the
// login URL and rejects anything that is not plain http or https. Unsafe or
// malformed targets are treated as absent.
func normalizeRedirectTarget(raw string, base *url.URL) *url.URL {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var target *url.URL
	var err error
	if base != nil {
		target, err = base.Parse(raw)
	} else {
		target, err = url.Parse(raw)
	}
	if err != nil {
		return nil
	}

	switch target.Scheme {
	case "http", "https":
		return target
	default:
		return nil
	}
}

// appendAuthParams adds the token and a compact user payload to the redirect
// target's query string.
func appendAuthParams(target *url.URL, cookieName, token string, claims *SessionClaims) (*url.URL, error) {
	payload, err := json.Marshal(sessionUserPayload(claims))
	if err != nil {
		return nil, err
	}

	q := target.Query()
	q.Set(cookieName, token)
	q.Set("tap_user", string(payload))
	target.RawQuery = q.Encode()

	return target, nil
}

// buildLoginRedirectURL points an unauthenticated session request back at the
// hosted login page, preserving the original redirect target.
func buildLoginRedirectURL(loginURL string, redirect *url.URL) string {
	base, err := url.Parse(loginURL)
	if err != nil || loginURL == "" {
		return loginURL
	}

	if redirect != nil {
		q := base.Query()
		q.Set("redirect", redirect.String())
		base.RawQuery = q.Encode()
	}

	return base.String()
}

// sessionUserPayload is the user shape exposed to HTTP clients.
func sessionUserPayload(claims *SessionClaims) fiber.Map {
	return fiber.Map{
		"id":        claims.UserID(),
		"login":     claims.Login,
		"name":      claims.Name,
		"avatarUrl": claims.AvatarURL,
		"email":     claims.Email,
		"role":      claims.UserRole,
		"guest":     claims.Guest,
	}
}
