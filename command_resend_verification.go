package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

type ResendVerificationMessage struct {
	Email      string `json:"email"`
	OnResponse func(resp *ResendVerificationResponse)
}

func (e ResendVerificationMessage) Type() string { return "user.resend_verification" }

type ResendVerificationResponse struct {
	Email string
	Sent  bool
}

type ResendVerificationHandler struct {
	repo     RepositoryManager
	verifier *Verifier
}

func NewResendVerificationHandler(repo RepositoryManager, verifier *Verifier) *ResendVerificationHandler {
	return &ResendVerificationHandler{repo: repo, verifier: verifier}
}

func (h *ResendVerificationHandler) Execute(ctx context.Context, event ResendVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during verification resend",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResendVerificationHandler) execute(ctx context.Context, event ResendVerificationMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	email := NormalizeEmail(event.Email)

	record, err := h.repo.Emails().GetByIdentifier(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrEmailNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve email record for resend")
	}

	if record.Verified {
		return ErrEmailAlreadyVerified
	}

	// subject to the issue cooldown; a fresh code supersedes the old entry
	if err := h.verifier.Issue(ctx, email, record.UserID); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reissue verification code")
	}

	if event.OnResponse != nil {
		event.OnResponse(&ResendVerificationResponse{Email: email, Sent: true})
	}

	return nil
}
