package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Emails owns EmailRecord rows: secondary addresses plus the mirror of
// each user's primary login email.
type Emails interface {
	repository.Repository[*EmailRecord]

	Add(ctx context.Context, userID uuid.UUID, email string) (*EmailRecord, error)
	AddTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, email string) (*EmailRecord, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*EmailRecord, error)
	MarkVerified(ctx context.Context, userID uuid.UUID, email string) error
	MarkVerifiedTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, email string) error
	SetStatus(ctx context.Context, userID uuid.UUID, email string, status Status) (bool, error)
	SetStatusTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, email string, status Status) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*EmailRecord, error)
	ListByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]*EmailRecord, error)
}

type emails struct {
	repository.Repository[*EmailRecord]
	db *bun.DB
}

var _ Emails = (*emails)(nil)

func NewEmailsRepository(db *bun.DB) Emails {
	repo := repository.NewRepository[*EmailRecord](db, repository.ModelHandlers[*EmailRecord]{
		NewRecord: func() *EmailRecord { return &EmailRecord{} },
		GetID: func(e *EmailRecord) uuid.UUID {
			if e == nil {
				return uuid.Nil
			}
			return e.ID
		},
		SetID: func(e *EmailRecord, id uuid.UUID) {
			if e != nil {
				e.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &emails{
		Repository: repo,
		db:         db,
	}
}

func (a *emails) Add(ctx context.Context, userID uuid.UUID, email string) (*EmailRecord, error) {
	return a.AddTx(ctx, a.db, userID, email)
}

// AddTx creates an email record in the created state. The address must be
// unused across the whole collection, including other users' login emails.
func (a *emails) AddTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, email string) (*EmailRecord, error) {
	email = NormalizeEmail(email)

	taken, err := tx.NewSelect().
		Model((*EmailRecord)(nil)).
		Where("?TableAlias.email = ?", email).
		Exists(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing email record")
	}

	if !taken {
		// the owner's own login email is mirrored here at registration,
		// so only other users' login emails count as taken
		taken, err = tx.NewSelect().
			Model((*User)(nil)).
			Where("?TableAlias.email = ?", email).
			Where("?TableAlias.id != ?", userID).
			Exists(ctx)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing login email")
		}
	}

	if taken {
		return nil, ErrEmailTaken
	}

	record := &EmailRecord{
		ID:     uuid.New(),
		UserID: userID,
		Email:  email,
	}
	record.EnsureStatus()

	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *emails) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*EmailRecord, error) {
	record := &EmailRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrEmailNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve email record")
	}

	return record, nil
}

func (a *emails) MarkVerified(ctx context.Context, userID uuid.UUID, email string) error {
	return a.MarkVerifiedTx(ctx, a.db, userID, email)
}

// MarkVerifiedTx transitions the email record to verified and active.
// Safe to repeat; the row converges on the same state.
func (a *emails) MarkVerifiedTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, email string) error {
	res, err := tx.NewUpdate().
		Model((*EmailRecord)(nil)).
		Set("is_verified = TRUE").
		Set("status = ?", StatusActive).
		Set("updated_at = ?", time.Now()).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark email verified")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read update result")
	}

	if rows == 0 {
		return ErrEmailNotFound
	}

	return nil
}

func (a *emails) SetStatus(ctx context.Context, userID uuid.UUID, email string, status Status) (bool, error) {
	return a.SetStatusTx(ctx, a.db, userID, email, status)
}

// SetStatusTx updates the record status and reports whether a row actually
// changed, so callers can distinguish "not found" from "already there".
func (a *emails) SetStatusTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, email string, status Status) (bool, error) {
	res, err := tx.NewUpdate().
		Model((*EmailRecord)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now()).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Where("?TableAlias.status != ?", status).
		Exec(ctx)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update email status")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read update result")
	}

	return rows > 0, nil
}

func (a *emails) ListByUser(ctx context.Context, userID uuid.UUID) ([]*EmailRecord, error) {
	return a.ListByUserTx(ctx, a.db, userID)
}

func (a *emails) ListByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]*EmailRecord, error) {
	records := []*EmailRecord{}
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list email records")
	}

	return records, nil
}
