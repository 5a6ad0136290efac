package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var ResetUserPasswordSQL = `UPDATE "users" AS "usr"
SET
	"is_verified" = TRUE,
	"password_hash" = ?,
	"updated_at" = ?
WHERE
	"usr"."id" = ?
RETURNING *;`

// Users owns User records. It is the sole writer of persisted user state.
type Users interface {
	repository.Repository[*User]

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetByUserID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUserIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	MarkVerified(ctx context.Context, id uuid.UUID) (bool, error)
	MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error)
	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

// RegisterTx inserts a new user. The address must be unused across the
// whole collection, login emails and secondary email records alike;
// duplicates fail with ErrEmailTaken before any row is written.
func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user)

	exists, err := tx.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.email = ?", user.Email).
		Exists(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing user")
	}

	if !exists {
		exists, err = tx.NewSelect().
			Model((*EmailRecord)(nil)).
			Where("?TableAlias.email = ?", user.Email).
			Exists(ctx)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing email record")
		}
	}

	if exists {
		return nil, ErrEmailTaken
	}

	return a.Repository.CreateTx(ctx, tx, user)
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user by email")
	}

	return record, nil
}

func (a *users) GetByUserID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.GetByUserIDTx(ctx, a.db, id)
}

func (a *users) GetByUserIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user by id")
	}

	return record, nil
}

func (a *users) MarkVerified(ctx context.Context, id uuid.UUID) (bool, error) {
	return a.MarkVerifiedTx(ctx, a.db, id)
}

// MarkVerifiedTx flips the user to verified and active. The update is
// guarded by is_verified = FALSE so a second verification of the same or
// another email never double-fires: it reports false instead.
func (a *users) MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error) {
	res, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("is_verified = TRUE").
		Set("status = ?", StatusActive).
		Set("updated_at = ?", time.Now()).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.is_verified = FALSE").
		Exec(ctx)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark user verified")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read update result")
	}

	return rows > 0, nil
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) Update(ctx context.Context, record *User, criteria ...repository.UpdateCriteria) (*User, error) {
	return a.UpdateTx(ctx, a.db, record, criteria...)
}

// UpdateTx merges the non-zero fields of record and always stamps updated_at.
func (a *users) UpdateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.UpdateCriteria) (*User, error) {
	now := time.Now()
	record.UpdatedAt = &now
	if record.Email != "" {
		record.Email = NormalizeEmail(record.Email)
	}
	return a.Repository.UpdateTx(ctx, tx, record, criteria...)
}

func (a *users) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.ResetPasswordTx(ctx, a.db, id, passwordHash)
}

// ResetPasswordTx swaps the password hash. A consumed reset code proved
// control of the login email, so the user is marked verified as well.
func (a *users) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := a.Repository.RawTx(ctx, tx, ResetUserPasswordSQL, passwordHash, time.Now(), id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return ErrUserNotFound
	}

	return nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	record.Email = NormalizeEmail(record.Email)
	record.EnsureStatus()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
