package identity

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Verifications tracks outstanding one-time codes keyed by target email.
// Expiry is a stored value; callers compare it against the clock, the
// store never expires entries on its own.
type Verifications interface {
	Put(ctx context.Context, entry *Verification) error
	PutTx(ctx context.Context, tx bun.IDB, entry *Verification) error
	Get(ctx context.Context, email string) (*Verification, error)
	GetTx(ctx context.Context, tx bun.IDB, email string) (*Verification, error)
	Delete(ctx context.Context, email string) error
	DeleteTx(ctx context.Context, tx bun.IDB, email string) error
}

type verifications struct {
	db *bun.DB
}

var _ Verifications = (*verifications)(nil)

func NewVerificationsRepository(db *bun.DB) Verifications {
	return &verifications{db: db}
}

func (a *verifications) Put(ctx context.Context, entry *Verification) error {
	return a.PutTx(ctx, a.db, entry)
}

// PutTx upserts the single entry for the email in one statement, replacing
// any previous code wholesale. Two racing issuers serialize here: last
// writer wins on the row.
func (a *verifications) PutTx(ctx context.Context, tx bun.IDB, entry *Verification) error {
	now := time.Now()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.Email = NormalizeEmail(entry.Email)
	if entry.CreatedAt == nil {
		entry.CreatedAt = &now
	}
	entry.UpdatedAt = &now

	_, err := tx.NewInsert().
		Model(entry).
		On("CONFLICT (email) DO UPDATE").
		Set("hashed_code = EXCLUDED.hashed_code").
		Set("expiration_time = EXCLUDED.expiration_time").
		Set("user_id = EXCLUDED.user_id").
		Set("created_at = EXCLUDED.created_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store verification code")
	}

	return nil
}

func (a *verifications) Get(ctx context.Context, email string) (*Verification, error) {
	return a.GetTx(ctx, a.db, email)
}

func (a *verifications) GetTx(ctx context.Context, tx bun.IDB, email string) (*Verification, error) {
	record := &Verification{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCodeNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve verification code")
	}

	return record, nil
}

func (a *verifications) Delete(ctx context.Context, email string) error {
	return a.DeleteTx(ctx, a.db, email)
}

// DeleteTx is idempotent: deleting a missing entry is not an error.
func (a *verifications) DeleteTx(ctx context.Context, tx bun.IDB, email string) error {
	_, err := tx.NewDelete().
		Model((*Verification)(nil)).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete verification code")
	}

	return nil
}
