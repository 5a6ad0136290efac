package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type VerifyEmailMessage struct {
	Email      string `json:"email"`
	Code       string `json:"verification_code"`
	OnResponse func(resp *VerifyEmailResponse)
}

func (e VerifyEmailMessage) Type() string { return "user.verify_email" }

type VerifyEmailResponse struct {
	Email    string
	Verified bool
}

type VerifyEmailHandler struct {
	verifier *Verifier
}

func NewVerifyEmailHandler(verifier *Verifier) *VerifyEmailHandler {
	return &VerifyEmailHandler{verifier: verifier}
}

func (h *VerifyEmailHandler) Execute(ctx context.Context, event VerifyEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyEmailHandler) execute(ctx context.Context, event VerifyEmailMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := h.verifier.Consume(ctx, event.Email, event.Code); err != nil {
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(&VerifyEmailResponse{
			Email:    NormalizeEmail(event.Email),
			Verified: true,
		})
	}

	return nil
}
