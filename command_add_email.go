package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AddEmailMessage struct {
	UserID     uuid.UUID `json:"user_id"`
	Email      string    `json:"email"`
	OnResponse func(resp *AddEmailResponse)
}

func (e AddEmailMessage) Type() string { return "user.add_email" }

type AddEmailResponse struct {
	Email            *EmailRecord
	VerificationSent bool
}

type AddEmailHandler struct {
	repo     RepositoryManager
	verifier *Verifier
}

func NewAddEmailHandler(repo RepositoryManager, verifier *Verifier) *AddEmailHandler {
	return &AddEmailHandler{repo: repo, verifier: verifier}
}

func (h *AddEmailHandler) Execute(ctx context.Context, event AddEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled while adding email",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *AddEmailHandler) execute(ctx context.Context, event AddEmailMessage) error {
	resp := &AddEmailResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := h.repo.Emails().AddTx(ctx, tx, event.UserID, event.Email)
		if err != nil {
			return err
		}

		resp.Email = record
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "add email transaction failed")
	}

	if err := h.verifier.Issue(ctx, resp.Email.Email, event.UserID); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue verification code")
	}

	resp.VerificationSent = true

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
