package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidEmail       = "auth_invalid_email"
	TextCodeCodeNotFound       = "auth_code_not_found"
	TextCodeCodeMismatch       = "auth_code_mismatch"
	TextCodeCodeExpired        = "auth_code_expired"
	TextCodeInvitationRequired = "auth_invitation_required"
	TextCodeInvitationNotFound = "auth_invitation_not_found"
	TextCodeInvitationUsed     = "auth_invitation_used"
	TextCodeInvitationExpired  = "auth_invitation_expired"
	TextCodeNotAuthorized      = "auth_not_authorized"
	TextCodeUserNotFound       = "auth_user_not_found"
	TextCodeMailTransport      = "auth_mail_transport"
	TextCodeMailNotConfigured  = "auth_mail_not_configured"
	TextCodeMissingSigningKey  = "auth_missing_signing_key"
	TextCodeTokenExpired       = "auth_token_expired"
	TextCodeTokenMalformed     = "auth_token_malformed"
)

// ErrInvalidEmail is returned when an email address fails normalization.
var ErrInvalidEmail = errors.New("enter a valid email address", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidEmail).
	WithCode(errors.CodeBadRequest)

// ErrCodeNotFound is returned when no unverified code exists for the email.
var ErrCodeNotFound = errors.New("verification code not found or already used, request a new one", errors.CategoryNotFound).
	WithTextCode(TextCodeCodeNotFound).
	WithCode(errors.CodeBadRequest)

// ErrCodeMismatch is returned when the submitted code does not match. The
// stored record is left untouched and may be retried with the correct code.
var ErrCodeMismatch = errors.New("verification code is incorrect", errors.CategoryValidation).
	WithTextCode(TextCodeCodeMismatch).
	WithCode(errors.CodeBadRequest)

// ErrCodeExpired is returned when the verification code is past its expiry.
var ErrCodeExpired = errors.New("verification code expired, request a new one", errors.CategoryBadInput).
	WithTextCode(TextCodeCodeExpired).
	WithCode(errors.CodeBadRequest)

// ErrInvitationRequired is returned when a first-time registration omits the
// invitation code.
var ErrInvitationRequired = errors.New("first-time registration requires an invitation code", errors.CategoryValidation).
	WithTextCode(TextCodeInvitationRequired).
	WithCode(errors.CodeBadRequest)

// ErrInvitationNotFound is returned for an unknown invitation code.
var ErrInvitationNotFound = errors.New("invitation code is invalid", errors.CategoryNotFound).
	WithTextCode(TextCodeInvitationNotFound).
	WithCode(errors.CodeBadRequest)

// ErrInvitationUsed is returned when the invitation code was already redeemed.
var ErrInvitationUsed = errors.New("invitation code has already been used", errors.CategoryConflict).
	WithTextCode(TextCodeInvitationUsed).
	WithCode(errors.CodeConflict)

// ErrInvitationExpired is returned when the invitation code is past its expiry.
var ErrInvitationExpired = errors.New("invitation code expired", errors.CategoryBadInput).
	WithTextCode(TextCodeInvitationExpired).
	WithCode(errors.CodeBadRequest)

// ErrNotAuthorized is returned when an admin-only operation is attempted by a
// caller that satisfies neither admin signal.
var ErrNotAuthorized = errors.New("not authorized to manage invitation codes", errors.CategoryAuthz).
	WithTextCode(TextCodeNotAuthorized).
	WithCode(errors.CodeForbidden)

// ErrUserNotFound is returned when a user lookup finds no record.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrMailTransport is returned when email dispatch fails. The stored
// verification code is not rolled back; the caller may retry the send.
var ErrMailTransport = errors.New("failed to send email", errors.CategoryInternal).
	WithTextCode(TextCodeMailTransport).
	WithCode(errors.CodeInternal)

// ErrMailNotConfigured is returned when mail relay credentials are missing.
var ErrMailNotConfigured = errors.New("email service not configured", errors.CategoryInternal).
	WithTextCode(TextCodeMailNotConfigured).
	WithCode(errors.CodeInternal)

// ErrMissingSigningKey is returned when the token signing secret is absent.
var ErrMissingSigningKey = errors.New("token signing key not configured", errors.CategoryInternal).
	WithTextCode(TextCodeMissingSigningKey).
	WithCode(errors.CodeInternal)

// ErrTokenExpired is returned for tokens past their exp claim.
var ErrTokenExpired = errors.New("session token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail parsing or signature
// verification.
var ErrTokenMalformed = errors.New("session token malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// HasTextCode reports whether err carries the given text code.
func HasTextCode(err error, textCode string) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == textCode
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if HasTextCode(err, TextCodeTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if HasTextCode(err, TextCodeTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}
