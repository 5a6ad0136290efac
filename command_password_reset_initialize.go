package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type InitializePasswordResetMessage struct {
	Email      string `json:"email"`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (e InitializePasswordResetMessage) Type() string { return "user.password_reset_init" }

type InitializePasswordResetResponse struct {
	Email string
	Sent  bool
}

type InitializePasswordResetHandler struct {
	repo     RepositoryManager
	verifier *Verifier
}

// NewInitializePasswordResetHandler expects the password reset verifier
// instantiation, not the email one.
func NewInitializePasswordResetHandler(repo RepositoryManager, verifier *Verifier) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{repo: repo, verifier: verifier}
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	email := NormalizeEmail(event.Email)

	user, err := h.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}

	if err := h.verifier.Issue(ctx, email, user.ID); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue reset code")
	}

	if event.OnResponse != nil {
		event.OnResponse(&InitializePasswordResetResponse{Email: email, Sent: true})
	}

	return nil
}
