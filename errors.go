package identity

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeEmailTaken      = "identity_email_taken"
	TextCodeUserNotFound    = "identity_user_not_found"
	TextCodeEmailNotFound   = "identity_email_not_found"
	TextCodeEmailVerified   = "identity_email_already_verified"
	TextCodeDeviceNotFound  = "identity_device_not_found"
	TextCodeInvalidDeviceID = "identity_invalid_advertising_id"
	TextCodeCodeNotFound    = "verification_code_not_found"
	TextCodeCodeExpired     = "verification_code_expired"
	TextCodeCodeInvalid     = "verification_code_invalid"
	TextCodeResendCooldown  = "verification_resend_cooldown"
	TextCodeRateLimited     = "identity_rate_limited"
	TextCodeInvalidCreds    = "identity_invalid_credentials"
	TextCodeNotVerified     = "identity_email_not_verified"
	TextCodeAccountDisabled = "identity_account_disabled"
	TextCodeTokenExpired    = "identity_token_expired"
	TextCodeTokenMalformed  = "identity_token_malformed"
	TextCodeEmptyPassword   = "identity_empty_password"
	TextCodeMissingSubject  = "identity_token_missing_subject"
)

// ErrEmailTaken is returned when a registration or add-email hits an
// address that already belongs to a user.
var ErrEmailTaken = errors.New("email already registered", errors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(errors.CodeConflict)

// ErrUserNotFound is returned when a lookup by id or email finds no user.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrEmailNotFound is returned when a user has no email record for the address.
var ErrEmailNotFound = errors.New("email record not found", errors.CategoryNotFound).
	WithTextCode(TextCodeEmailNotFound).
	WithCode(errors.CodeNotFound)

// ErrEmailAlreadyVerified is returned when a resend targets an address
// that already completed verification.
var ErrEmailAlreadyVerified = errors.New("email is already verified", errors.CategoryConflict).
	WithTextCode(TextCodeEmailVerified).
	WithCode(errors.CodeConflict)

// ErrDeviceNotFound is returned when a user has no device for the advertising id.
var ErrDeviceNotFound = errors.New("device record not found", errors.CategoryNotFound).
	WithTextCode(TextCodeDeviceNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvalidAdvertisingID is returned for identifiers that are not in the
// canonical 8-4-4-4-12 hexadecimal grouping.
var ErrInvalidAdvertisingID = errors.New("invalid advertising id format", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidDeviceID).
	WithCode(errors.CodeBadRequest)

// ErrCodeNotFound is returned when no verification entry exists for the email.
var ErrCodeNotFound = errors.New("verification code not found", errors.CategoryNotFound).
	WithTextCode(TextCodeCodeNotFound).
	WithCode(errors.CodeNotFound)

// ErrCodeExpired is returned when the entry exists but its expiration time
// has passed.
var ErrCodeExpired = errors.New("verification code expired", errors.CategoryValidation).
	WithTextCode(TextCodeCodeExpired).
	WithCode(errors.CodeBadRequest)

// ErrCodeInvalid is returned when the presented code does not match the
// stored hash.
var ErrCodeInvalid = errors.New("invalid verification code", errors.CategoryValidation).
	WithTextCode(TextCodeCodeInvalid).
	WithCode(errors.CodeBadRequest)

// ErrResendCooldown is returned when a new code is requested before the
// cooldown window since the previous issuance has elapsed.
var ErrResendCooldown = errors.New("please wait before requesting a new code", errors.CategoryRateLimit).
	WithTextCode(TextCodeResendCooldown)

// ErrRateLimited is returned when a caller exceeds a named rate limit.
var ErrRateLimited = errors.New("too many requests", errors.CategoryRateLimit).
	WithTextCode(TextCodeRateLimited)

// ErrMismatchedHashAndPassword is returned on credential mismatch. Unknown
// identifiers map to the same error so callers cannot probe for accounts.
var ErrMismatchedHashAndPassword = errors.New("incorrect email or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrNotVerified is returned when an unverified account attempts to log in.
// Deliberately distinct from ErrMismatchedHashAndPassword.
var ErrNotVerified = errors.New("email not verified", errors.CategoryAuthz).
	WithTextCode(TextCodeNotVerified).
	WithCode(errors.CodeForbidden)

// ErrAccountDisabled is returned when a disabled account attempts to log in.
var ErrAccountDisabled = errors.New("account is disabled", errors.CategoryAuthz).
	WithTextCode(TextCodeAccountDisabled).
	WithCode(errors.CodeForbidden)

// ErrTokenExpired is returned for session tokens past their expiry claim.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail signature or structural
// validation.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMissingSubject is returned when a valid token carries no subject claim.
var ErrTokenMissingSubject = errors.New("token is missing subject", errors.CategoryAuth).
	WithTextCode(TextCodeMissingSubject).
	WithCode(errors.CodeUnauthorized)

// ErrIdentityNotFound is returned when a valid token resolves to a user
// that no longer exists.
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryAuth).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString is returned when an empty secret is given to the hasher.
var ErrNoEmptyString = errors.New("value should not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for malformed tokens
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
