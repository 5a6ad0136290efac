package identity

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-identity/middleware/jwtware"
	"github.com/google/uuid"
)

// passwordCharset restricts passwords to the accepted alphabet. The
// per-class checks live in validatePasswordComplexity since RE2 has no
// lookaheads.
var passwordCharset = regexp.MustCompile(`^[A-Za-z\d@$!%*?&]{8,}$`)

const passwordSpecials = "@$!%*?&"

// ValidatePasswordComplexity requires at least one lowercase letter, one
// uppercase letter, one digit, and one special character.
func ValidatePasswordComplexity(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	if !passwordCharset.MatchString(s) ||
		!strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") ||
		!strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") ||
		!strings.ContainsAny(s, "0123456789") ||
		!strings.ContainsAny(s, passwordSpecials) {
		return goerrors.New(
			"password must be at least 8 characters and contain an uppercase letter, a lowercase letter, a number, and a special character",
			goerrors.CategoryValidation,
		)
	}

	return nil
}

func validateAdvertisingID(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !IsValidAdvertisingID(s) {
		return goerrors.New("invalid advertising id format", goerrors.CategoryValidation)
	}
	return nil
}

type RegisterPayload struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	AdvertisingID string `json:"advertising_id"`
}

func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.By(ValidatePasswordComplexity)),
		validation.Field(&r.AdvertisingID, validation.By(validateAdvertisingID)),
	)
}

type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type VerifyEmailPayload struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (r VerifyEmailPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Code, validation.Required, validation.Length(CodeLength, CodeLength), is.Digit),
	)
}

type ResendVerificationPayload struct {
	Email string `json:"email"`
}

func (r ResendVerificationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

type EmailAddPayload struct {
	Email string `json:"email"`
}

func (r EmailAddPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

type AdvertisingIDPayload struct {
	AdvertisingID string `json:"advertising_id"`
}

func (r AdvertisingIDPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AdvertisingID, validation.Required, validation.By(validateAdvertisingID)),
	)
}

type ForgotPasswordPayload struct {
	Email string `json:"email"`
}

func (r ForgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

type ResetPasswordPayload struct {
	Email       string `json:"email"`
	ResetCode   string `json:"reset_code"`
	NewPassword string `json:"new_password"`
}

func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.ResetCode, validation.Required, validation.Length(CodeLength, CodeLength)),
		validation.Field(&r.NewPassword, validation.Required, validation.By(ValidatePasswordComplexity)),
	)
}

type UpdateUserPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r UpdateUserPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, is.Email),
		validation.Field(&r.Password, validation.By(ValidatePasswordComplexity)),
	)
}

// HTTPController exposes the identity flows as a JSON API.
type HTTPController struct {
	repo         RepositoryManager
	auth         Authenticator
	tokenService TokenService
	limiter      RateLimiter
	logger       Logger

	register   *RegisterUserHandler
	verify     *VerifyEmailHandler
	resend     *ResendVerificationHandler
	addEmail   *AddEmailHandler
	addDevice  *AddDeviceHandler
	updateUser *UpdateUserHandler
	resetInit  *InitializePasswordResetHandler
	resetFin   *FinalizePasswordResetHandler
}

// HTTPControllerOption customizes an HTTPController
type HTTPControllerOption func(*HTTPController)

// WithHTTPLogger sets the controller logger
func WithHTTPLogger(logger Logger) HTTPControllerOption {
	return func(a *HTTPController) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithHTTPRateLimiter sets the limiter guarding sensitive endpoints
func WithHTTPRateLimiter(limiter RateLimiter) HTTPControllerOption {
	return func(a *HTTPController) {
		if limiter != nil {
			a.limiter = limiter
		}
	}
}

// NewHTTPController wires the command handlers behind the JSON routes.
// The emailVerifier and resetVerifier are the two flow instantiations
// from NewEmailVerifier and NewPasswordResetVerifier.
func NewHTTPController(
	repo RepositoryManager,
	auth Authenticator,
	tokenService TokenService,
	emailVerifier *Verifier,
	resetVerifier *Verifier,
	opts ...HTTPControllerOption,
) *HTTPController {
	a := &HTTPController{
		repo:         repo,
		auth:         auth,
		tokenService: tokenService,
		limiter:      NewRateLimiter(),
		logger:       defLogger{},

		register:   NewRegisterUserHandler(repo, emailVerifier),
		verify:     NewVerifyEmailHandler(emailVerifier),
		resend:     NewResendVerificationHandler(repo, emailVerifier),
		addEmail:   NewAddEmailHandler(repo, emailVerifier),
		addDevice:  NewAddDeviceHandler(repo),
		updateUser: NewUpdateUserHandler(repo),
		resetInit:  NewInitializePasswordResetHandler(repo, resetVerifier),
		resetFin:   NewFinalizePasswordResetHandler(repo, resetVerifier),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	return a
}

// RegisterRoutes mounts all identity endpoints on the router.
func (a *HTTPController) RegisterRoutes(app fiber.Router) {
	protect := jwtware.New(jwtware.Config{
		TokenValidator: tokenValidatorAdapter{service: a.tokenService},
	})

	app.Post("/register", a.rateLimit(LimitWrite), a.Register)
	app.Post("/login", a.rateLimit(LimitLogin), a.Login)
	app.Post("/verify-email", a.rateLimit(LimitWrite), a.VerifyEmail)
	app.Post("/resend-verification", a.rateLimit(LimitVerificationSend), a.ResendVerification)
	app.Post("/forgot-password", a.rateLimit(LimitVerificationSend), a.ForgotPassword)
	app.Post("/reset-password", a.rateLimit(LimitWrite), a.ResetPassword)

	app.Put("/update-user", protect, a.rateLimit(LimitWrite), a.UpdateUser)
	app.Post("/add-email", protect, a.rateLimit(LimitWrite), a.AddEmail)
	app.Post("/add-advertising-id", protect, a.rateLimit(LimitWrite), a.AddAdvertisingID)
	app.Put("/disable-email/:email", protect, a.rateLimit(LimitWrite), a.DisableEmail)
	app.Put("/disable-advertising-id/:id", protect, a.rateLimit(LimitWrite), a.DisableAdvertisingID)
	app.Get("/user-data", protect, a.UserData)

	app.Get("/check-verification/:email", a.CheckVerification)
}

// tokenValidatorAdapter bridges the TokenService to the middleware
// without an import cycle.
type tokenValidatorAdapter struct {
	service TokenService
}

func (t tokenValidatorAdapter) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := t.service.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (a *HTTPController) rateLimit(limit Limit) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if a.limiter != nil && !a.limiter.Allow(c.IP(), limit) {
			return a.respondError(c, ErrRateLimited)
		}
		return c.Next()
	}
}

// currentUserID reads the user id the JWT middleware stored on the request.
func (a *HTTPController) currentUserID(c *fiber.Ctx) (uuid.UUID, error) {
	claims, ok := c.Locals("user").(jwtware.AuthClaims)
	if !ok {
		return uuid.Nil, ErrTokenMalformed
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return uuid.Nil, ErrTokenMalformed
	}

	return id, nil
}

func (a *HTTPController) Register(c *fiber.Ctx) error {
	payload := new(RegisterPayload)
	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(c, err.Error())
	}

	var resp *RegisterUserResponse
	err := a.register.Execute(c.Context(), RegisterUserMessage{
		Email:         payload.Email,
		Password:      payload.Password,
		AdvertisingID: payload.AdvertisingID,
		OnResponse:    func(r *RegisterUserResponse) { resp = r },
	})
	if err != nil {
		return a.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully. Please check your email for the verification code.",
		"user_id": resp.User.ID,
	})
}

func (a *HTTPController) Login(c *fiber.Ctx) error {
	payload := new(LoginPayload)
	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(c, err.Error())
	}

	token, err := a.auth.Login(c.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (a *HTTPController) VerifyEmail(c *fiber.Ctx) error {
	payload := new(VerifyEmailPayload)
	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(c, err.Error())
	}

	err := a.verify.Execute(c.Context(), VerifyEmailMessage{
		Email: payload.Email,
		Code:  payload.Code,
	})
	if err != nil {
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Email verified successfully"})
}

func (a *HTTPController) ResendVerification(c *fiber.Ctx) error {
	payload := new(ResendVerificationPayload)
	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(c, err.Error())
	}

	err := a.resend.Execute(c.Context(), ResendVerificationMessage{
		Email: payload.Email,
	})
	if err != nil {
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Verification email resent. Please check your email."})
}

func (a *HTTPController) ForgotPassword(c *fiber.Ctx) error {
	payload := new(ForgotPasswordPayload)
	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(c, err.Error())
	}

	err := a.resetInit.Execute(c.Context(), InitializePasswordResetMessage{
		Email: payload.Email,
	})
	if err != nil {
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Password reset email sent"})
}

func (a *HTTPController) ResetPassword(c *fiber.Ctx) error {
	payload := new(ResetPasswordPayload)
	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(c, err.Error())
	}

	err := a.resetFin.Execute(c.Context(), FinalizePasswordResetMessage{
		Email:    payload.Email,
		Code:     payload.ResetCode,
		Password: payload.NewPassword,
	})
	if err != nil {
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Password reset successfully"})
}

func (a *HTTPController) UpdateUser(c *fiber.Ctx) error {
	userID, err := a.currentUserID(c)
	if err != nil {
		return a.respondError(c, err)
	}

	payload := new(UpdateUserPayload)
	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(c, err.Error())
	}

	err = a.updateUser.Execute(c.Context(), UpdateUserMessage{
		UserID:   userID,
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "User data updated successfully"})
}

func (a *HTTPController) AddEmail(c *fiber.Ctx) error {
	userID, err := a.currentUserID(c)
	if err != nil {
		return a.respondError(c, err)
	}

	payload := new(EmailAddPayload)
	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(c, err.Error())
	}

	err = a.addEmail.Execute(c.Context(), AddEmailMessage{
		UserID: userID,
		Email:  payload.Email,
	})
	if err != nil {
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Email added successfully. Please check your email for the verification code."})
}

func (a *HTTPController) AddAdvertisingID(c *fiber.Ctx) error {
	userID, err := a.currentUserID(c)
	if err != nil {
		return a.respondError(c, err)
	}

	payload := new(AdvertisingIDPayload)
	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(c, err.Error())
	}

	err = a.addDevice.Execute(c.Context(), AddDeviceMessage{
		UserID:        userID,
		AdvertisingID: payload.AdvertisingID,
	})
	if err != nil {
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Advertising ID added successfully"})
}

func (a *HTTPController) DisableEmail(c *fiber.Ctx) error {
	userID, err := a.currentUserID(c)
	if err != nil {
		return a.respondError(c, err)
	}

	email := c.Params("email")
	if email == "" {
		return a.badRequest(c, "email is required")
	}

	changed, err := a.repo.Emails().SetStatus(c.Context(), userID, email, StatusDisabled)
	if err != nil {
		return a.respondError(c, err)
	}

	if !changed {
		return c.JSON(fiber.Map{"message": "Email not found"})
	}

	return c.JSON(fiber.Map{"message": "Email disabled successfully"})
}

func (a *HTTPController) DisableAdvertisingID(c *fiber.Ctx) error {
	userID, err := a.currentUserID(c)
	if err != nil {
		return a.respondError(c, err)
	}

	advertisingID := c.Params("id")
	if advertisingID == "" {
		return a.badRequest(c, "advertising id is required")
	}

	changed, err := a.repo.Devices().SetStatus(c.Context(), userID, advertisingID, StatusDisabled)
	if err != nil {
		return a.respondError(c, err)
	}

	if !changed {
		return c.JSON(fiber.Map{"message": "Advertising ID not found"})
	}

	return c.JSON(fiber.Map{"message": "Advertising ID disabled successfully"})
}

func (a *HTTPController) UserData(c *fiber.Ctx) error {
	userID, err := a.currentUserID(c)
	if err != nil {
		return a.respondError(c, err)
	}

	data, err := GetUserData(c.Context(), a.repo, userID)
	if err != nil {
		return a.respondError(c, err)
	}

	return c.JSON(data)
}

func (a *HTTPController) CheckVerification(c *fiber.Ctx) error {
	email := c.Params("email")
	if email == "" {
		return a.badRequest(c, "email is required")
	}

	user, err := a.repo.Users().GetByEmail(c.Context(), email)
	if err != nil {
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"email":       user.Email,
		"is_verified": user.Verified,
	})
}

func (a *HTTPController) badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// respondError maps structured errors onto HTTP statuses and a stable
// JSON error body.
func (a *HTTPController) respondError(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "an unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	status := statusFromError(richErr)
	if status >= fiber.StatusInternalServerError {
		a.logger.Error("request failed: %s", richErr.Error())
	}

	body := fiber.Map{"error": richErr.Message}
	if richErr.TextCode != "" {
		body["text_code"] = richErr.TextCode
	}

	return c.Status(status).JSON(body)
}

func statusFromError(richErr *goerrors.Error) int {
	switch richErr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return fiber.StatusBadRequest
	case goerrors.CategoryAuth:
		return fiber.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return fiber.StatusForbidden
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	case goerrors.CategoryConflict:
		return fiber.StatusConflict
	case goerrors.CategoryRateLimit:
		return fiber.StatusTooManyRequests
	}

	if richErr.Code > 0 {
		return richErr.Code
	}

	return fiber.StatusInternalServerError
}
