// Package auth implements passwordless, email-code authentication with an
// invitation-gated registration flow and stateless guest sessions.
//
// Email flow:
//   - VerificationCodeService emails a short-lived 6-digit code and records it
//     in the email_verification_codes table. Codes are consumed exactly once
//     via a conditional update so concurrent verification attempts have a
//     single winner.
//   - Auther composes the flow: a verified code either logs an existing user
//     in (7-day token) or, gated by a single-use invitation code, registers a
//     new user inside one transaction.
//
// Invitations:
//   - InvitationCodeService issues 32-character single-use codes. Issuance and
//     listing require AdminPolicy approval, which combines two independent
//     signals: the stored role column and the configured email allowlist.
//
// Guests:
//   - GuestSessionService synthesizes an identity that lives only inside its
//     signed token (24-hour TTL). Guests never touch the users table.
//
// Tokens are compact HS256 JWTs signed by TokenService with the process-wide
// signing key. SessionClaims is the single claims shape shared by guest and
// registered sessions.
package auth
