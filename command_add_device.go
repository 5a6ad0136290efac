package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

type AddDeviceMessage struct {
	UserID        uuid.UUID `json:"user_id"`
	AdvertisingID string    `json:"advertising_id"`
	OnResponse    func(resp *AddDeviceResponse)
}

func (e AddDeviceMessage) Type() string { return "user.add_device" }

type AddDeviceResponse struct {
	Device *DeviceRecord
	// Added is false when the zero sentinel was silently dropped
	Added bool
}

type AddDeviceHandler struct {
	repo RepositoryManager
}

func NewAddDeviceHandler(repo RepositoryManager) *AddDeviceHandler {
	return &AddDeviceHandler{repo: repo}
}

func (h *AddDeviceHandler) Execute(ctx context.Context, event AddDeviceMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled while adding device",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *AddDeviceHandler) execute(ctx context.Context, event AddDeviceMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	device, err := h.repo.Devices().Add(ctx, event.UserID, event.AdvertisingID)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to add device")
	}

	if event.OnResponse != nil {
		event.OnResponse(&AddDeviceResponse{
			Device: device,
			Added:  device != nil,
		})
	}

	return nil
}
