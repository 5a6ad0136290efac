package identity

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Emails() Emails
	Devices() Devices
	Verifications() Verifications
}

type mngr struct {
	db            *bun.DB
	users         Users
	emails        Emails
	devices       Devices
	verifications Verifications
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:            db,
		users:         NewUsersRepository(db),
		emails:        NewEmailsRepository(db),
		devices:       NewDevicesRepository(db),
		verifications: NewVerificationsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.emails == nil {
		return errors.New("repository emails should be initialized")
	}

	if m.devices == nil {
		return errors.New("repository devices should be initialized")
	}

	if m.verifications == nil {
		return errors.New("repository verifications should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

// GetUserData assembles the read-only projection of a user's email and
// device records.
func GetUserData(ctx context.Context, repo RepositoryManager, userID uuid.UUID) (*UserData, error) {
	emails, err := repo.Emails().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	devices, err := repo.Devices().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &UserData{Emails: emails, Devices: devices}, nil
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Emails() Emails {
	return m.emails
}

func (m mngr) Devices() Devices {
	return m.devices
}

func (m mngr) Verifications() Verifications {
	return m.verifications
}
