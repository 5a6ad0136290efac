package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterUserCommand(t *testing.T) {
	repo := setupRepo(t)
	notifier := newCaptureNotifier()
	ctx := context.Background()

	user, code := registerTestUser(t, repo, notifier, "Ada@Example.com", "Sup3rS3cret!", testAdvertisingID)

	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, identity.StatusActive, user.Status, "valid device identifier activates the account")
	assert.False(t, user.Verified)
	assert.NotEmpty(t, code)

	// the login email is mirrored into the email collection
	emails, err := repo.Emails().ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, emails, 1)
	assert.Equal(t, "ada@example.com", emails[0].Email)

	devices, err := repo.Devices().ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, testAdvertisingID, devices[0].AdvertisingID)
}

func TestRegisterUserCommandWithoutDevice(t *testing.T) {
	repo := setupRepo(t)
	notifier := newCaptureNotifier()

	user, _ := registerTestUser(t, repo, notifier, "ada@example.com", "Sup3rS3cret!", "")

	assert.Equal(t, identity.StatusCreated, user.Status)

	devices, err := repo.Devices().ListByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestRegisterUserCommandDropsZeroSentinel(t *testing.T) {
	repo := setupRepo(t)
	notifier := newCaptureNotifier()

	user, _ := registerTestUser(t, repo, notifier, "ada@example.com", "Sup3rS3cret!", identity.ZeroAdvertisingID)

	assert.Equal(t, identity.StatusCreated, user.Status, "the zero sentinel never activates")

	devices, err := repo.Devices().ListByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestRegisterUserCommandRejectsMalformedDevice(t *testing.T) {
	repo := setupRepo(t)
	handler := identity.NewRegisterUserHandler(repo, identity.NewEmailVerifier(repo, newCaptureNotifier()))

	err := handler.Execute(context.Background(), identity.RegisterUserMessage{
		Email:         "ada@example.com",
		Password:      "Sup3rS3cret!",
		AdvertisingID: "not-a-device-id",
	})
	assert.ErrorIs(t, err, identity.ErrInvalidAdvertisingID)
}

func TestRegisterUserCommandDuplicateEmail(t *testing.T) {
	repo := setupRepo(t)
	notifier := newCaptureNotifier()

	registerTestUser(t, repo, notifier, "ada@example.com", "Sup3rS3cret!", "")

	handler := identity.NewRegisterUserHandler(repo, identity.NewEmailVerifier(repo, notifier))
	err := handler.Execute(context.Background(), identity.RegisterUserMessage{
		Email:    "ADA@example.com",
		Password: "An0therS3cret!",
	})
	assert.ErrorIs(t, err, identity.ErrEmailTaken)
}

func TestVerifyEmailCommand(t *testing.T) {
	repo := setupRepo(t)
	notifier := newCaptureNotifier()
	ctx := context.Background()

	user, code := registerTestUser(t, repo, notifier, "ada@example.com", "Sup3rS3cret!", "")

	handler := identity.NewVerifyEmailHandler(identity.NewEmailVerifier(repo, notifier))

	var resp *identity.VerifyEmailResponse
	err := handler.Execute(ctx, identity.VerifyEmailMessage{
		Email:      "ADA@example.com",
		Code:       code,
		OnResponse: func(r *identity.VerifyEmailResponse) { resp = r },
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "ada@example.com", resp.Email)
	assert.True(t, resp.Verified)

	verified, err := repo.Users().GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, verified.Verified)
	assert.Equal(t, identity.StatusActive, verified.Status)
}

func TestVerifyEmailCommandWrongCode(t *testing.T) {
	repo := setupRepo(t)
	notifier := newCaptureNotifier()

	registerTestUser(t, repo, notifier, "ada@example.com", "Sup3rS3cret!", "")

	handler := identity.NewVerifyEmailHandler(identity.NewEmailVerifier(repo, notifier))
	err := handler.Execute(context.Background(), identity.VerifyEmailMessage{
		Email: "ada@example.com",
		Code:  "000000",
	})
	assert.ErrorIs(t, err, identity.ErrCodeInvalid)
}

func TestResendVerificationCommand(t *testing.T) {
	repo := setupRepo(t)
	notifier := newCaptureNotifier()
	ctx := context.Background()

	_, firstCode := registerTestUser(t, repo, notifier, "ada@example.com", "Sup3rS3cret!", "")

	// a shifted clock gets past the resend cooldown
	later := time.Now().Add(time.Minute * 2)
	verifier := identity.NewEmailVerifier(repo, notifier,
		identity.WithVerifierClock(func() time.Time { return later }))
	handler := identity.NewResendVerificationHandler(repo, verifier)

	var resp *identity.ResendVerificationResponse
	err := handler.Execute(ctx, identity.ResendVerificationMessage{
		Email:      "ada@example.com",
		OnResponse: func(r *identity.ResendVerificationResponse) { resp = r },
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Sent)

	mail := waitForMail(t, notifier)
	newCode := codeFromBody(t, mail.Body)
	if newCode == firstCode {
		t.Skip("reissued code collided with the original")
	}

	// the reissued code supersedes the original
	verify := identity.NewVerifyEmailHandler(identity.NewEmailVerifier(repo, notifier))
	err = verify.Execute(ctx, identity.VerifyEmailMessage{Email: "ada@example.com", Code: firstCode})
	assert.ErrorIs(t, err, identity.ErrCodeInvalid)

	err = verify.Execute(ctx, identity.VerifyEmailMessage{Email: "ada@example.com", Code: newCode})
	assert.NoError(t, err)
}

func TestResendVerificationCommandUnknownEmail(t *testing.T) {
	repo := setupRepo(t)
	handler := identity.NewResendVerificationHandler(repo, identity.NewEmailVerifier(repo, newCaptureNotifier()))

	err := handler.Execute(context.Background(), identity.ResendVerificationMessage{Email: "nobody@example.com"})
	assert.ErrorIs(t, err, identity.ErrEmailNotFound)
}

func TestResendVerificationCommandAlreadyVerified(t *testing.T) {
	repo := setupRepo(t)
	notifier := newCaptureNotifier()
	ctx := context.Background()

	_, code := registerTestUser(t, repo, notifier, "ada@example.com", "Sup3rS3cret!", "")

	verify := identity.NewVerifyEmailHandler(identity.NewEmailVerifier(repo, notifier))
	require.NoError(t, verify.Execute(ctx, identity.VerifyEmailMessage{Email: "ada@example.com", Code: code}))

	handler := identity.NewResendVerificationHandler(repo, identity.NewEmailVerifier(repo, notifier))
	err := handler.Execute(ctx, identity.ResendVerificationMessage{Email: "ada@example.com"})
	assert.ErrorIs(t, err, identity.ErrEmailAlreadyVerified)
}

func TestAddEmailCommand(t *testing.T) {
	repo := setupRepo(t)
	notifier := newCaptureNotifier()
	ctx := context.Background()

	user, _ := registerTestUser(t, repo, notifier, "ada@example.com", "Sup3rS3cret!", "")

	handler := identity.NewAddEmailHandler(repo, identity.NewEmailVerifier(repo, notifier))

	var resp *identity.AddEmailResponse
	err := handler.Execute(ctx, identity.AddEmailMessage{
		UserID:     user.ID,
		Email:      "Work@Example.com",
		OnResponse: func(r *identity.AddEmailResponse) { resp = r },
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.NotNil(t, resp.Email)
	assert.Equal(t, "work@example.com", resp.Email.Email)
	assert.True(t, resp.VerificationSent)

	mail := waitForMail(t, notifier)
	assert.Equal(t, "work@example.com", mail.To)

	emails, err := repo.Emails().ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, emails, 2)
}

func TestAddEmailCommandDuplicate(t *testing.T) {
	repo := setupRepo(t)
	notifier := newCaptureNotifier()

	user, _ := registerTestUser(t, repo, notifier, "ada@example.com", "Sup3rS3cret!", "")
	registerTestUser(t, repo, notifier, "grace@example.com", "Sup3rS3cret!", "")

	handler := identity.NewAddEmailHandler(repo, identity.NewEmailVerifier(repo, notifier))
	err := handler.Execute(context.Background(), identity.AddEmailMessage{
		UserID: user.ID,
		Email:  "grace@example.com",
	})
	assert.ErrorIs(t, err, identity.ErrEmailTaken)
}

func TestAddDeviceCommand(t *testing.T) {
	repo := setupRepo(t)
	notifier := newCaptureNotifier()
	ctx := context.Background()

	user, _ := registerTestUser(t, repo, notifier, "ada@example.com", "Sup3rS3cret!", "")

	handler := identity.NewAddDeviceHandler(repo)

	var resp *identity.AddDeviceResponse
	err := handler.Execute(ctx, identity.AddDeviceMessage{
		UserID:        user.ID,
		AdvertisingID: testAdvertisingID,
		OnResponse:    func(r *identity.AddDeviceResponse) { resp = r },
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Added)
	require.NotNil(t, resp.Device)
	assert.Equal(t, testAdvertisingID, resp.Device.AdvertisingID)
}

func TestAddDeviceCommandZeroSentinel(t *testing.T) {
	repo := setupRepo(t)
	notifier := newCaptureNotifier()

	user, _ := registerTestUser(t, repo, notifier, "ada@example.com", "Sup3rS3cret!", "")

	handler := identity.NewAddDeviceHandler(repo)

	var resp *identity.AddDeviceResponse
	err := handler.Execute(context.Background(), identity.AddDeviceMessage{
		UserID:        user.ID,
		AdvertisingID: identity.ZeroAdvertisingID,
		OnResponse:    func(r *identity.AddDeviceResponse) { resp = r },
	})
	require.NoError(t, err, "the zero sentinel is dropped, not rejected")
	require.NotNil(t, resp)
	assert.False(t, resp.Added)
	assert.Nil(t, resp.Device)
}

func TestUpdateUserCommand(t *testing.T) {
	repo := setupRepo(t)
	notifier := newCaptureNotifier()
	ctx := context.Background()

	user, _ := registerTestUser(t, repo, notifier, "ada@example.com", "OldPassw0rd!", "")

	handler := identity.NewUpdateUserHandler(repo)

	var resp *identity.UpdateUserResponse
	err := handler.Execute(ctx, identity.UpdateUserMessage{
		UserID:     user.ID,
		Email:      "New@Example.com",
		Password:   "NewPassw0rd!",
		OnResponse: func(r *identity.UpdateUserResponse) { resp = r },
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "new@example.com", resp.User.Email)

	updated, err := repo.Users().GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.NoError(t, identity.ComparePasswordAndHash("NewPassw0rd!", updated.PasswordHash))
	assert.Error(t, identity.ComparePasswordAndHash("OldPassw0rd!", updated.PasswordHash))
}

func TestUpdateUserCommandEmailTaken(t *testing.T) {
	repo := setupRepo(t)
	notifier := newCaptureNotifier()

	user, _ := registerTestUser(t, repo, notifier, "ada@example.com", "Sup3rS3cret!", "")
	registerTestUser(t, repo, notifier, "grace@example.com", "Sup3rS3cret!", "")

	handler := identity.NewUpdateUserHandler(repo)
	err := handler.Execute(context.Background(), identity.UpdateUserMessage{
		UserID: user.ID,
		Email:  "grace@example.com",
	})
	assert.ErrorIs(t, err, identity.ErrEmailTaken)
}

func TestUpdateUserCommandNothingToUpdate(t *testing.T) {
	repo := setupRepo(t)
	notifier := newCaptureNotifier()

	user, _ := registerTestUser(t, repo, notifier, "ada@example.com", "Sup3rS3cret!", "")

	handler := identity.NewUpdateUserHandler(repo)
	err := handler.Execute(context.Background(), identity.UpdateUserMessage{UserID: user.ID})
	assert.Error(t, err)
}

func TestPasswordResetCommands(t *testing.T) {
	repo := setupRepo(t)
	notifier := newCaptureNotifier()
	ctx := context.Background()

	user, _ := registerTestUser(t, repo, notifier, "ada@example.com", "OldPassw0rd!", "")

	resetVerifier := identity.NewPasswordResetVerifier(repo, notifier)

	initHandler := identity.NewInitializePasswordResetHandler(repo, resetVerifier)
	err := initHandler.Execute(ctx, identity.InitializePasswordResetMessage{Email: "ada@example.com"})
	require.NoError(t, err)

	mail := waitForMail(t, notifier)
	code := codeFromBody(t, mail.Body)

	finalHandler := identity.NewFinalizePasswordResetHandler(repo, resetVerifier)

	var resp *identity.FinalizePasswordResetResponse
	err = finalHandler.Execute(ctx, identity.FinalizePasswordResetMessage{
		Email:      "ada@example.com",
		Code:       code,
		Password:   "NewPassw0rd!",
		OnResponse: func(r *identity.FinalizePasswordResetResponse) { resp = r },
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Success)

	updated, err := repo.Users().GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.NoError(t, identity.ComparePasswordAndHash("NewPassw0rd!", updated.PasswordHash))
	assert.True(t, updated.Verified, "a consumed reset code proves control of the email")

	// the code is single use
	err = finalHandler.Execute(ctx, identity.FinalizePasswordResetMessage{
		Email:    "ada@example.com",
		Code:     code,
		Password: "Anoth3rPass!",
	})
	assert.ErrorIs(t, err, identity.ErrCodeNotFound)
}

func TestInitializePasswordResetUnknownEmail(t *testing.T) {
	repo := setupRepo(t)
	handler := identity.NewInitializePasswordResetHandler(repo, identity.NewPasswordResetVerifier(repo, newCaptureNotifier()))

	err := handler.Execute(context.Background(), identity.InitializePasswordResetMessage{Email: "nobody@example.com"})
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}
