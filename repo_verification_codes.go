package auth

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type VerificationCodes interface {
	repository.Repository[*VerificationCode]

	LatestUnverified(ctx context.Context, email string) (*VerificationCode, error)
	LatestUnverifiedTx(ctx context.Context, tx bun.IDB, email string) (*VerificationCode, error)
	Consume(ctx context.Context, id uuid.UUID) error
	ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type verificationCodes struct {
	repository.Repository[*VerificationCode]
	db *bun.DB
}

var _ VerificationCodes = (*verificationCodes)(nil)

func NewVerificationCodesRepository(db *bun.DB) VerificationCodes {
	repo := repository.NewRepository[*VerificationCode](db, repository.ModelHandlers[*VerificationCode]{
		NewRecord: func() *VerificationCode { return &VerificationCode{} },
		GetID: func(v *VerificationCode) uuid.UUID {
			if v == nil {
				return uuid.Nil
			}
			return v.ID
		},
		SetID: func(v *VerificationCode, id uuid.UUID) {
			if v != nil {
				v.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &verificationCodes{
		Repository: repo,
		db:         db,
	}
}

func (r *verificationCodes) LatestUnverified(ctx context.Context, email string) (*VerificationCode, error) {
	return r.LatestUnverifiedTx(ctx, r.db, email)
}

// LatestUnverifiedTx returns the most recently created unverified code for the
// email. Older unverified records are ignored: only the newest one is
// redeemable.
func (r *verificationCodes) LatestUnverifiedTx(ctx context.Context, tx bun.IDB, email string) (*VerificationCode, error) {
	record := &VerificationCode{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Where("?TableAlias.verified = ?", false).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}

	return record, nil
}

func (r *verificationCodes) Consume(ctx context.Context, id uuid.UUID) error {
	return r.ConsumeTx(ctx, r.db, id)
}

// ConsumeTx marks the code verified with a conditional update so that
// concurrent consumers have a single winner. A zero-row update means another
// caller already consumed the record.
func (r *verificationCodes) ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewUpdate().
		Model((*VerificationCode)(nil)).
		Set("verified = ?", true).
		Where("id = ?", id).
		Where("verified = ?", false).
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
