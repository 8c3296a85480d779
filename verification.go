package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// verificationCodeTTL is how long an emailed code stays redeemable.
const verificationCodeTTL = 5 * time.Minute

// VerificationCodeService issues short lived email codes and consumes them on
// verification. Consumed codes stay in storage as an audit trail.
type VerificationCodeService struct {
	codes  VerificationCodes
	users  Users
	mailer Mailer
	logger Logger
	ttl    time.Duration
	now    func() time.Time
}

func NewVerificationCodeService(codes VerificationCodes, users Users, mailer Mailer) *VerificationCodeService {
	return &VerificationCodeService{
		codes:  codes,
		users:  users,
		mailer: mailer,
		logger: defLogger{},
		ttl:    verificationCodeTTL,
		now:    time.Now,
	}
}

// WithLogger overrides the default logger.
func (s *VerificationCodeService) WithLogger(logger Logger) *VerificationCodeService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithClock overrides the time source, mostly for tests.
func (s *VerificationCodeService) WithClock(now func() time.Time) *VerificationCodeService {
	if now != nil {
		s.now = now
	}
	return s
}

// SendCode generates a fresh code for the email, persists it, and delivers it
// through the mailer. The code record survives a delivery failure so support
// can diagnose lost mail, but the caller still gets the transport error.
func (s *VerificationCodeService) SendCode(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}

	code, err := GenerateVerificationCode()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification code")
	}

	now := s.now().UTC()
	record := &VerificationCode{
		ID:        uuid.New(),
		Email:     email,
		Code:      code,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: &now,
	}

	if _, err := s.codes.Create(ctx, record); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist verification code").
			WithMetadata(map[string]any{
				"email": email,
			})
	}

	subject, body, err := renderVerificationEmail(code, int(s.ttl.Minutes()))
	if err != nil {
		return err
	}

	if err := s.mailer.Send(ctx, email, subject, body); err != nil {
		s.logger.Error("verification code delivery failed for %s: %v", email, err)
		return err
	}

	s.logger.Info("verification code sent to %s", email)

	return nil
}

// VerifyAndConsume checks the submitted code against the latest unverified
// record for the email and consumes it. It reports whether the email belongs
// to an existing user: fresh is true when no account exists yet.
func (s *VerificationCodeService) VerifyAndConsume(ctx context.Context, email, code string) (fresh bool, err error) {
	email = NormalizeEmail(email)

	record, err := s.codes.LatestUnverified(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return false, ErrCodeNotFound
		}
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up verification code")
	}

	if record.Code != code {
		return false, ErrCodeMismatch
	}

	if record.Expired(s.now().UTC()) {
		return false, ErrCodeExpired
	}

	if err := s.codes.Consume(ctx, record.ID); err != nil {
		if repository.IsRecordNotFound(err) {
			return false, ErrCodeNotFound
		}
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume verification code")
	}

	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if repository.IsRecordNotFound(err) {
			return true, nil
		}
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up user")
	}

	return false, nil
}
