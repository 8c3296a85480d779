package auth

import (
	"net/http"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
)

// AuthController exposes the login flows over HTTP.
type AuthController struct {
	Debug  bool
	Logger Logger
	Config Config
	Auther *Auther
}

func NewAuthController(auther *Auther, cfg Config) *AuthController {
	return &AuthController{
		Logger: defLogger{},
		Config: cfg,
		Auther: auther,
	}
}

// RegisterRoutes mounts the auth endpoints under /auth.
func (a *AuthController) RegisterRoutes(app fiber.Router) {
	group := app.Group("/auth")

	group.Post("/email/send-code", a.SendCode)
	group.Post("/email/verify", a.VerifyCode)
	group.Post("/guest", a.GuestLogin)
	group.Get("/session", a.Session)

	protected := RequireSession(a.Auther, a.Config, a.renderError)
	group.Post("/invitation/generate", protected, a.GenerateInvitation)
	group.Get("/invitation/list", protected, a.ListInvitations)
}

// SendCodePayload is the send-code request body.
type SendCodePayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r SendCodePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
	)
}

// SendCode emails a verification code to the address in the payload.
func (a *AuthController) SendCode(c *fiber.Ctx) error {
	payload := SendCodePayload{}
	if err := c.BodyParser(&payload); err != nil {
		return a.badRequest(c, err)
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(c, err)
	}

	if err := a.Auther.SendCode(c.UserContext(), payload.Email); err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"sent": true,
	})
}

// VerifyCodePayload is the verify request body.
type VerifyCodePayload struct {
	Email          string `form:"email" json:"email"`
	Code           string `form:"code" json:"code"`
	InvitationCode string `form:"invitation_code" json:"invitation_code"`
}

// Validate will validate the payload
func (r VerifyCodePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Code, validation.Required, validation.Length(6, 6), is.Digit),
	)
}

// VerifyCode consumes the emailed code, resolves the session, and sets the
// auth cookie.
func (a *AuthController) VerifyCode(c *fiber.Ctx) error {
	payload := VerifyCodePayload{}
	if err := c.BodyParser(&payload); err != nil {
		return a.badRequest(c, err)
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(c, err)
	}

	token, claims, err := a.Auther.VerifyCode(
		c.UserContext(),
		payload.Email,
		payload.Code,
		payload.InvitationCode,
	)
	if err != nil {
		return a.renderError(c, err)
	}

	attachAuthCookie(c, token, resolveCookieOptions(c.Hostname(), a.Config, false))

	return c.JSON(fiber.Map{
		"token": token,
		"user":  sessionUserPayload(claims),
	})
}

// GuestLoginPayload is the guest login request body.
type GuestLoginPayload struct {
	Nickname string `form:"nickname" json:"nickname"`
}

// Validate will validate the payload
func (r GuestLoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Nickname, validation.Length(0, 64)),
	)
}

// GuestLogin mints a stateless guest session and sets the auth cookie with
// the shorter guest lifetime.
func (a *AuthController) GuestLogin(c *fiber.Ctx) error {
	payload := GuestLoginPayload{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return a.badRequest(c, err)
		}
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(c, err)
	}

	token, claims, err := a.Auther.GuestLogin(payload.Nickname)
	if err != nil {
		return a.renderError(c, err)
	}

	attachAuthCookie(c, token, resolveCookieOptions(c.Hostname(), a.Config, true))

	return c.JSON(fiber.Map{
		"token": token,
		"user":  sessionUserPayload(claims),
	})
}

// GenerateInvitationPayload is the invitation issuance request body.
type GenerateInvitationPayload struct {
	ExpiresInDays int `form:"expires_in_days" json:"expires_in_days"`
}

// Validate will validate the payload
func (r GenerateInvitationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ExpiresInDays, validation.Min(0), validation.Max(365)),
	)
}

// GenerateInvitation issues a new invitation code for the authenticated admin.
func (a *AuthController) GenerateInvitation(c *fiber.Ctx) error {
	claims, err := GetSession(c)
	if err != nil {
		return a.renderError(c, err)
	}

	adminID, err := uuid.Parse(claims.UserID())
	if err != nil || claims.IsGuest() {
		return a.renderError(c, ErrNotAuthorized)
	}

	payload := GenerateInvitationPayload{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return a.badRequest(c, err)
		}
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(c, err)
	}

	invitation, err := a.Auther.Invitations().Issue(c.UserContext(), adminID, payload.ExpiresInDays)
	if err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"invitation": invitationPayload(invitation),
	})
}

// ListInvitations returns the admin's own invitations, newest first.
func (a *AuthController) ListInvitations(c *fiber.Ctx) error {
	claims, err := GetSession(c)
	if err != nil {
		return a.renderError(c, err)
	}

	adminID, err := uuid.Parse(claims.UserID())
	if err != nil || claims.IsGuest() {
		return a.renderError(c, ErrNotAuthorized)
	}

	records, err := a.Auther.Invitations().List(c.UserContext(), adminID)
	if err != nil {
		return a.renderError(c, err)
	}

	invitations := make([]fiber.Map, 0, len(records))
	for _, record := range records {
		invitations = append(invitations, invitationPayload(record))
	}

	return c.JSON(fiber.Map{
		"invitations": invitations,
	})
}

// Session reports the current session. A safe redirect target, passed as
// redirect or redirect_uri, turns the response into a 302: authenticated
// requests land on the target with the token and user as query parameters,
// anonymous requests land on the hosted login page. Without a redirect the
// handler answers in JSON, 401 for anonymous callers.
func (a *AuthController) Session(c *fiber.Ctx) error {
	requested := c.Query("redirect")
	if requested == "" {
		requested = c.Query("redirect_uri")
	}
	redirect := normalizeRedirectTarget(requested, a.sessionRedirectBase(c))

	token := resolveRequestToken(c, a.Config.GetCookieName())
	if token != "" {
		claims, err := a.Auther.SessionFromToken(token)
		if err == nil {
			if redirect != nil {
				target, err := appendAuthParams(redirect, a.Config.GetCookieName(), token, claims)
				if err != nil {
					return a.renderError(c, err)
				}
				return c.Redirect(target.String(), http.StatusFound)
			}

			return c.JSON(fiber.Map{
				"authenticated": true,
				"token":         token,
				"user":          sessionUserPayload(claims),
			})
		}
		a.Logger.Debug("session token rejected: %v", err)
	}

	loginURL := buildLoginRedirectURL(a.Config.GetLoginURL(), redirect)
	if loginURL != "" && redirect != nil {
		return c.Redirect(loginURL, http.StatusFound)
	}

	payload := fiber.Map{
		"authenticated": false,
		"error":         "Unauthorized",
	}
	if loginURL != "" {
		payload["loginUrl"] = loginURL
	}

	return c.Status(http.StatusUnauthorized).JSON(payload)
}

// sessionRedirectBase resolves relative redirect targets against the hosted
// login page, falling back to the request URL when no login page is
// configured.
func (a *AuthController) sessionRedirectBase(c *fiber.Ctx) *url.URL {
	if base, err := url.Parse(a.Config.GetLoginURL()); err == nil && base.Host != "" {
		return base
	}

	base, err := url.Parse(c.BaseURL() + c.OriginalURL())
	if err != nil {
		return nil
	}
	return base
}

func (a *AuthController) badRequest(c *fiber.Ctx, err error) error {
	return c.Status(http.StatusBadRequest).JSON(fiber.Map{
		"error": fiber.Map{
			"message": err.Error(),
		},
	})
}

// renderError maps rich errors onto their HTTP status and a stable payload
// shape.
func (a *AuthController) renderError(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	if a.Debug {
		a.Logger.Debug("request failed: %s %s", richErr.Message, print.MaybePrettyJSON(richErr.Metadata))
	}

	status := richErr.Code
	if status == 0 {
		status = http.StatusInternalServerError
	}

	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"message":   richErr.Message,
			"text_code": richErr.TextCode,
		},
	})
}

func invitationPayload(record *InvitationCode) fiber.Map {
	return fiber.Map{
		"id":            record.ID,
		"code":          record.Code,
		"is_used":       record.IsUsed,
		"used_by":       record.UsedBy,
		"used_by_email": record.UsedByEmail,
		"used_at":       record.UsedAt,
		"expires_at":    record.ExpiresAt,
		"created_at":    record.CreatedAt,
	}
}
