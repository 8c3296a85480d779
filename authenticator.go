package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Auther orchestrates the login flows: emailed verification codes, invitation
// gated registration, and stateless guest sessions.
type Auther struct {
	repo         RepositoryManager
	directory    *UserDirectory
	verification *VerificationCodeService
	invitations  *InvitationCodeService
	guests       *GuestSessionService
	tokens       TokenIssuer
	policy       AdminPolicy
	userTTL      time.Duration
	logger       Logger
}

// NewAuthenticator wires the auth services from the repository manager and
// configuration.
func NewAuthenticator(repo RepositoryManager, mailer Mailer, opts Config) *Auther {
	tokens := NewTokenService([]byte(opts.GetSigningKey()), opts.GetIssuer(), defLogger{})
	policy := NewAdminPolicy(opts.GetAdminEmails())

	return &Auther{
		repo:         repo,
		directory:    NewUserDirectory(repo.Users()),
		verification: NewVerificationCodeService(repo.VerificationCodes(), repo.Users(), mailer),
		invitations:  NewInvitationCodeService(repo.InvitationCodes(), repo.Users(), policy),
		guests:       NewGuestSessionService(tokens).WithTTL(opts.GetGuestTokenTTL()),
		tokens:       tokens,
		policy:       policy,
		userTTL:      opts.GetUserTokenTTL(),
		logger:       defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
		s.directory.WithLogger(logger)
		s.verification.WithLogger(logger)
		s.invitations.WithLogger(logger)
		s.guests.WithLogger(logger)
	}
	return s
}

// WithTokenIssuer replaces the token backend for every flow.
func (s *Auther) WithTokenIssuer(tokens TokenIssuer) *Auther {
	if tokens != nil {
		s.tokens = tokens
		s.guests = NewGuestSessionService(tokens).WithLogger(s.logger).WithTTL(s.guests.ttl)
	}
	return s
}

// Invitations exposes the invitation service for admin surfaces.
func (s *Auther) Invitations() *InvitationCodeService {
	return s.invitations
}

// SendCode emails a verification code to the address.
func (s *Auther) SendCode(ctx context.Context, email string) error {
	return s.verification.SendCode(ctx, email)
}

// VerifyCode consumes the emailed code and resolves a session. Existing users
// log straight in. New users must carry a valid invitation code; without one
// the consumed verification code is spent and the caller has to restart the
// flow with a fresh code.
func (s *Auther) VerifyCode(ctx context.Context, email, code, invitationCode string) (string, *SessionClaims, error) {
	fresh, err := s.verification.VerifyAndConsume(ctx, email, code)
	if err != nil {
		return "", nil, err
	}

	var user *User
	if fresh {
		user, err = s.registerWithInvitation(ctx, email, invitationCode)
	} else {
		user, err = s.loginExisting(ctx, email)
	}
	if err != nil {
		return "", nil, err
	}

	claims := ClaimsFromUser(user)

	token, err := s.tokens.Issue(claims, s.userTTL)
	if err != nil {
		return "", nil, err
	}

	return token, claims, nil
}

// GuestLogin mints a stateless guest session without touching storage.
func (s *Auther) GuestLogin(nickname string) (string, *SessionClaims, error) {
	return s.guests.Create(nickname)
}

// SessionFromToken validates the token and returns the claims it carries.
func (s *Auther) SessionFromToken(token string) (*SessionClaims, error) {
	return s.tokens.Validate(token)
}

func (s *Auther) loginExisting(ctx context.Context, email string) (*User, error) {
	user, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := s.directory.TouchLogin(ctx, user.ID); err != nil {
		return nil, err
	}

	return user, nil
}

// registerWithInvitation creates the account and redeems the invitation in one
// transaction, so a redemption lost to a concurrent user rolls the account
// back.
func (s *Auther) registerWithInvitation(ctx context.Context, email, invitationCode string) (*User, error) {
	if invitationCode == "" {
		return nil, ErrInvitationRequired
	}

	invitation, err := s.invitations.Validate(ctx, invitationCode)
	if err != nil {
		return nil, err
	}

	var user *User
	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		user, txErr = s.directory.CreateTx(ctx, tx, email, s.policy.IsAdminEmail(email))
		if txErr != nil {
			return txErr
		}

		return s.invitations.RedeemTx(ctx, tx, invitation.ID, user.ID)
	})
	if err != nil {
		var authErr *goerrors.Error
		if goerrors.As(err, &authErr) {
			return nil, authErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to register user")
	}

	s.logger.Info("registered %s with invitation %s", user.Email, invitation.ID)

	return user, nil
}
