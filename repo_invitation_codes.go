package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// maxInvitationListSize caps how many invitations a single listing returns.
const maxInvitationListSize = 100

type InvitationCodes interface {
	repository.Repository[*InvitationCode]

	GetByCode(ctx context.Context, code string) (*InvitationCode, error)
	GetByCodeTx(ctx context.Context, tx bun.IDB, code string) (*InvitationCode, error)
	Redeem(ctx context.Context, id uuid.UUID, usedBy uuid.UUID, at time.Time) error
	RedeemTx(ctx context.Context, tx bun.IDB, id uuid.UUID, usedBy uuid.UUID, at time.Time) error
	ListByCreator(ctx context.Context, createdBy uuid.UUID) ([]*InvitationCode, error)
}

type invitationCodes struct {
	repository.Repository[*InvitationCode]
	db *bun.DB
}

var _ InvitationCodes = (*invitationCodes)(nil)

func NewInvitationCodesRepository(db *bun.DB) InvitationCodes {
	repo := repository.NewRepository[*InvitationCode](db, repository.ModelHandlers[*InvitationCode]{
		NewRecord: func() *InvitationCode { return &InvitationCode{} },
		GetID: func(i *InvitationCode) uuid.UUID {
			if i == nil {
				return uuid.Nil
			}
			return i.ID
		},
		SetID: func(i *InvitationCode, id uuid.UUID) {
			if i != nil {
				i.ID = id
			}
		},
		GetIdentifier: func() string {
			return "code"
		},
	})

	return &invitationCodes{
		Repository: repo,
		db:         db,
	}
}

func (r *invitationCodes) GetByCode(ctx context.Context, code string) (*InvitationCode, error) {
	return r.GetByCodeTx(ctx, r.db, code)
}

func (r *invitationCodes) GetByCodeTx(ctx context.Context, tx bun.IDB, code string) (*InvitationCode, error) {
	record := &InvitationCode{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.code = ?", code).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"code": code,
				})
		}
		return nil, err
	}

	return record, nil
}

func (r *invitationCodes) Redeem(ctx context.Context, id uuid.UUID, usedBy uuid.UUID, at time.Time) error {
	return r.RedeemTx(ctx, r.db, id, usedBy, at)
}

// RedeemTx marks the invitation used with a conditional update so two users
// racing on the same code produce exactly one winner. Zero affected rows means
// the invitation was already redeemed.
func (r *invitationCodes) RedeemTx(ctx context.Context, tx bun.IDB, id uuid.UUID, usedBy uuid.UUID, at time.Time) error {
	res, err := tx.NewUpdate().
		Model((*InvitationCode)(nil)).
		Set("is_used = ?", true).
		Set("used_by = ?", usedBy).
		Set("used_at = ?", at).
		Where("id = ?", id).
		Where("is_used = ?", false).
		Exec(ctx)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

// ListByCreator returns the creator's invitations, newest first, joined with
// the redeeming user's email when the code was used.
func (r *invitationCodes) ListByCreator(ctx context.Context, createdBy uuid.UUID) ([]*InvitationCode, error) {
	records := []*InvitationCode{}
	err := r.db.NewSelect().
		Model(&records).
		ColumnExpr("inv.*").
		ColumnExpr("usr.email AS used_by_email").
		Join("LEFT JOIN users AS usr ON usr.id = inv.used_by").
		Where("inv.created_by = ?", createdBy).
		Order("inv.created_at DESC").
		Limit(maxInvitationListSize).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}
