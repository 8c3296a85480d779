package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// invitationCodeRetries bounds how many times issuance retries on a code
// collision before giving up.
const invitationCodeRetries = 3

// InvitationCodeService manages single use registration invitations. Only
// admins may issue or list them.
type InvitationCodeService struct {
	invitations InvitationCodes
	users       Users
	policy      AdminPolicy
	logger      Logger
	now         func() time.Time
}

func NewInvitationCodeService(invitations InvitationCodes, users Users, policy AdminPolicy) *InvitationCodeService {
	return &InvitationCodeService{
		invitations: invitations,
		users:       users,
		policy:      policy,
		logger:      defLogger{},
		now:         time.Now,
	}
}

// WithLogger overrides the default logger.
func (s *InvitationCodeService) WithLogger(logger Logger) *InvitationCodeService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithClock overrides the time source, mostly for tests.
func (s *InvitationCodeService) WithClock(now func() time.Time) *InvitationCodeService {
	if now != nil {
		s.now = now
	}
	return s
}

// Issue generates a new invitation on behalf of the admin. A non positive
// expiresInDays leaves the invitation without an expiry.
func (s *InvitationCodeService) Issue(ctx context.Context, adminUserID uuid.UUID, expiresInDays int) (*InvitationCode, error) {
	if err := s.requireAdmin(ctx, adminUserID); err != nil {
		return nil, err
	}

	now := s.now().UTC()

	var expiresAt *time.Time
	if expiresInDays > 0 {
		exp := now.Add(time.Duration(expiresInDays) * 24 * time.Hour)
		expiresAt = &exp
	}

	var lastErr error
	for attempt := 0; attempt < invitationCodeRetries; attempt++ {
		code, err := GenerateInvitationCode()
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate invitation code")
		}

		record := &InvitationCode{
			ID:        uuid.New(),
			Code:      code,
			CreatedBy: adminUserID,
			ExpiresAt: expiresAt,
			CreatedAt: &now,
		}

		if _, err := s.invitations.Create(ctx, record); err != nil {
			if isUniqueViolation(err) {
				lastErr = err
				continue
			}
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist invitation code")
		}

		s.logger.Info("invitation %s issued by %s", record.ID, adminUserID)

		return record, nil
	}

	return nil, goerrors.Wrap(lastErr, goerrors.CategoryInternal, "failed to generate a unique invitation code")
}

// Validate checks that the code exists, is unused, and has not expired. It
// does not consume the invitation.
func (s *InvitationCodeService) Validate(ctx context.Context, code string) (*InvitationCode, error) {
	record, err := s.invitations.GetByCode(ctx, code)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrInvitationNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up invitation code")
	}

	if record.IsUsed {
		return nil, ErrInvitationUsed
	}

	if record.Expired(s.now().UTC()) {
		return nil, ErrInvitationExpired
	}

	return record, nil
}

// Redeem marks the invitation as used by the given user.
func (s *InvitationCodeService) Redeem(ctx context.Context, id uuid.UUID, usedBy uuid.UUID) error {
	return s.RedeemTx(ctx, nil, id, usedBy)
}

// RedeemTx marks the invitation used inside the caller's transaction. Losing
// the conditional update to a concurrent redeemer surfaces as
// ErrInvitationUsed.
func (s *InvitationCodeService) RedeemTx(ctx context.Context, tx bun.IDB, id uuid.UUID, usedBy uuid.UUID) error {
	at := s.now().UTC()

	var err error
	if tx != nil {
		err = s.invitations.RedeemTx(ctx, tx, id, usedBy, at)
	} else {
		err = s.invitations.Redeem(ctx, id, usedBy, at)
	}
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrInvitationUsed
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to redeem invitation code")
	}

	return nil
}

// List returns the admin's own invitations, newest first.
func (s *InvitationCodeService) List(ctx context.Context, adminUserID uuid.UUID) ([]*InvitationCode, error) {
	if err := s.requireAdmin(ctx, adminUserID); err != nil {
		return nil, err
	}

	records, err := s.invitations.ListByCreator(ctx, adminUserID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list invitation codes")
	}

	return records, nil
}

// requireAdmin resolves the user and applies the admin policy. A missing user
// is reported the same way as a non admin so callers cannot probe for IDs.
func (s *InvitationCodeService) requireAdmin(ctx context.Context, userID uuid.UUID) error {
	user, err := s.users.GetByID(ctx, userID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrNotAuthorized
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up user")
	}

	if !s.policy.IsAdmin(user) {
		return ErrNotAuthorized
	}

	return nil
}
