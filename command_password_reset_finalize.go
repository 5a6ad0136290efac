package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type FinalizePasswordResetMessage struct {
	Email      string `json:"email"`
	Code       string `json:"reset_code"`
	Password   string `json:"new_password"`
	OnResponse func(resp *FinalizePasswordResetResponse)
}

func (e FinalizePasswordResetMessage) Type() string { return "user.password_reset_finalize" }

type FinalizePasswordResetResponse struct {
	Email   string
	Success bool
}

type FinalizePasswordResetHandler struct {
	repo     RepositoryManager
	verifier *Verifier
}

// NewFinalizePasswordResetHandler expects the password reset verifier
// instantiation, not the email one.
func NewFinalizePasswordResetHandler(repo RepositoryManager, verifier *Verifier) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{repo: repo, verifier: verifier}
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	hash, err := HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	// the code is single use: consumption swaps the hash and deletes the
	// entry in one transaction
	if err := h.verifier.Consume(ctx, event.Email, event.Code, ResetPasswordAction(h.repo, hash)); err != nil {
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(&FinalizePasswordResetResponse{
			Email:   NormalizeEmail(event.Email),
			Success: true,
		})
	}

	return nil
}
