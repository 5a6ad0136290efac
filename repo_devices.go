package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Devices owns DeviceRecord rows binding advertising identifiers to users.
type Devices interface {
	repository.Repository[*DeviceRecord]

	Add(ctx context.Context, userID uuid.UUID, advertisingID string) (*DeviceRecord, error)
	AddTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, advertisingID string) (*DeviceRecord, error)
	SetStatus(ctx context.Context, userID uuid.UUID, advertisingID string, status Status) (bool, error)
	SetStatusTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, advertisingID string, status Status) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*DeviceRecord, error)
	ListByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]*DeviceRecord, error)
}

type devices struct {
	repository.Repository[*DeviceRecord]
	db *bun.DB
}

var _ Devices = (*devices)(nil)

func NewDevicesRepository(db *bun.DB) Devices {
	repo := repository.NewRepository[*DeviceRecord](db, repository.ModelHandlers[*DeviceRecord]{
		NewRecord: func() *DeviceRecord { return &DeviceRecord{} },
		GetID: func(d *DeviceRecord) uuid.UUID {
			if d == nil {
				return uuid.Nil
			}
			return d.ID
		},
		SetID: func(d *DeviceRecord, id uuid.UUID) {
			if d != nil {
				d.ID = id
			}
		},
		GetIdentifier: func() string {
			return "advertising_id"
		},
	})

	return &devices{
		Repository: repo,
		db:         db,
	}
}

func (a *devices) Add(ctx context.Context, userID uuid.UUID, advertisingID string) (*DeviceRecord, error) {
	return a.AddTx(ctx, a.db, userID, advertisingID)
}

// AddTx persists a device in the active state. Malformed identifiers are
// rejected; the all-zero sentinel means "no device" and is dropped without
// a write, returning a nil record.
func (a *devices) AddTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, advertisingID string) (*DeviceRecord, error) {
	if !IsValidAdvertisingID(advertisingID) {
		return nil, ErrInvalidAdvertisingID
	}

	if IsZeroAdvertisingID(advertisingID) {
		return nil, nil
	}

	record := &DeviceRecord{
		ID:            uuid.New(),
		UserID:        userID,
		AdvertisingID: NormalizeAdvertisingID(advertisingID),
	}
	record.EnsureStatus()

	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *devices) SetStatus(ctx context.Context, userID uuid.UUID, advertisingID string, status Status) (bool, error) {
	return a.SetStatusTx(ctx, a.db, userID, advertisingID, status)
}

// SetStatusTx updates the record status and reports whether a row actually
// changed, so callers can distinguish "not found" from "already there".
func (a *devices) SetStatusTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, advertisingID string, status Status) (bool, error) {
	res, err := tx.NewUpdate().
		Model((*DeviceRecord)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now()).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.advertising_id = ?", NormalizeAdvertisingID(advertisingID)).
		Where("?TableAlias.status != ?", status).
		Exec(ctx)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update device status")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read update result")
	}

	return rows > 0, nil
}

func (a *devices) ListByUser(ctx context.Context, userID uuid.UUID) ([]*DeviceRecord, error) {
	return a.ListByUserTx(ctx, a.db, userID)
}

func (a *devices) ListByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]*DeviceRecord, error) {
	records := []*DeviceRecord{}
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list device records")
	}

	return records, nil
}
