package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UpdateUserMessage carries the mutable user attributes. Empty fields are
// left untouched.
type UpdateUserMessage struct {
	UserID     uuid.UUID `json:"user_id"`
	Email      string    `json:"email"`
	Password   string    `json:"password"`
	OnResponse func(resp *UpdateUserResponse)
}

func (e UpdateUserMessage) Type() string { return "user.update" }

type UpdateUserResponse struct {
	User *User
}

type UpdateUserHandler struct {
	repo RepositoryManager
}

func NewUpdateUserHandler(repo RepositoryManager) *UpdateUserHandler {
	return &UpdateUserHandler{repo: repo}
}

func (h *UpdateUserHandler) Execute(ctx context.Context, event UpdateUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateUserHandler) execute(ctx context.Context, event UpdateUserMessage) error {
	resp := &UpdateUserResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Email == "" && event.Password == "" {
		return goerrors.New("nothing to update", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := &User{}
		record.ID = event.UserID

		if event.Email != "" {
			email := NormalizeEmail(event.Email)

			taken, err := tx.NewSelect().
				Model((*User)(nil)).
				Where("?TableAlias.email = ?", email).
				Where("?TableAlias.id != ?", event.UserID).
				Exists(ctx)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing login email")
			}
			if taken {
				return ErrEmailTaken
			}

			record.Email = email
		}

		if event.Password != "" {
			hash, err := HashPassword(event.Password)
			if err != nil {
				var richErr *goerrors.Error
				if goerrors.As(err, &richErr) {
					return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
				}
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
			}
			record.PasswordHash = hash
		}

		criteria := []repository.UpdateCriteria{
			repository.UpdateByID(event.UserID.String()),
		}

		updated, err := h.repo.Users().UpdateTx(ctx, tx, record, criteria...)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrUserNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user")
		}

		resp.User = updated
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user update transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
