package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	AdvertisingID string `json:"advertising_id"`
	UseHashid     bool
	OnResponse    func(resp *RegisterUserResponse)
}

func (e RegisterUserMessage) Type() string { return "user.register" }

type RegisterUserResponse struct {
	User             *User
	Device           *DeviceRecord
	VerificationSent bool
}

type RegisterUserHandler struct {
	repo     RepositoryManager
	verifier *Verifier
}

func NewRegisterUserHandler(repo RepositoryManager, verifier *Verifier) *RegisterUserHandler {
	return &RegisterUserHandler{repo: repo, verifier: verifier}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	user := &User{}
	resp := &RegisterUserResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	// malformed identifiers fail before any row is written; the zero
	// sentinel is treated as absent further down
	if event.AdvertisingID != "" && !IsValidAdvertisingID(event.AdvertisingID) {
		return ErrInvalidAdvertisingID
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = event.Email
		user.Status = StatusCreated
		// a real device identifier provisionally activates the account
		// before email verification completes
		if IsActivatableAdvertisingID(event.AdvertisingID) {
			user.Status = StatusActive
		}
		if event.UseHashid {
			if id, err := hashid.NewUUID(NormalizeEmail(event.Email)); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			return err
		}

		// the login email is mirrored as an email record so primary and
		// secondary addresses share one verification path
		mirror := &EmailRecord{
			ID:     uuid.New(),
			UserID: user.ID,
			Email:  user.Email,
			Status: user.Status,
		}
		if _, err = h.repo.Emails().CreateTx(ctx, tx, mirror); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mirror login email")
		}

		// no-device registrations skip the insert; the zero sentinel is
		// dropped silently inside AddTx
		if event.AdvertisingID != "" {
			if resp.Device, err = h.repo.Devices().AddTx(ctx, tx, user.ID, event.AdvertisingID); err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	if err := h.verifier.Issue(ctx, user.Email, user.ID); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue verification code")
	}

	resp.User = user
	resp.VerificationSent = true

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
