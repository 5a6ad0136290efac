package identity

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	// DefaultVerificationTTL is how long an email verification code stays valid
	DefaultVerificationTTL = 5 * time.Minute
	// DefaultPasswordResetTTL is how long a password reset code stays valid
	DefaultPasswordResetTTL = 15 * time.Minute
	// DefaultResendCooldown is the minimum interval between issuances for
	// the same address
	DefaultResendCooldown = time.Minute
	// DefaultDeliveryTimeout bounds the detached notifier dispatch
	DefaultDeliveryTimeout = 30 * time.Second
)

// ConsumeAction is the terminal action executed inside the consumption
// transaction after a code has been validated.
type ConsumeAction func(ctx context.Context, tx bun.IDB, entry *Verification) error

// Verifier coordinates issuing, resending, and consuming one-time codes.
// The email verification and password reset flows are two instantiations
// of the same contract, differing in TTL, alphabet, mail copy, and the
// terminal action.
type Verifier struct {
	repo            RepositoryManager
	notifier        Notifier
	ttl             time.Duration
	cooldown        time.Duration
	alphabet        string
	length          int
	subject         string
	bodyFormat      string
	logger          Logger
	now             func() time.Time
	onConsume       ConsumeAction
	deliveryTimeout time.Duration
}

// VerifierOption customizes a Verifier
type VerifierOption func(*Verifier)

// WithVerifierTTL sets the code time to live
func WithVerifierTTL(ttl time.Duration) VerifierOption {
	return func(v *Verifier) {
		if ttl > 0 {
			v.ttl = ttl
		}
	}
}

// WithVerifierCooldown sets the minimum interval between issuances
func WithVerifierCooldown(cooldown time.Duration) VerifierOption {
	return func(v *Verifier) {
		if cooldown >= 0 {
			v.cooldown = cooldown
		}
	}
}

// WithVerifierAlphabet sets the code alphabet
func WithVerifierAlphabet(alphabet string) VerifierOption {
	return func(v *Verifier) {
		if alphabet != "" {
			v.alphabet = alphabet
		}
	}
}

// WithVerifierCodeLength sets the code length
func WithVerifierCodeLength(length int) VerifierOption {
	return func(v *Verifier) {
		if length > 0 {
			v.length = length
		}
	}
}

// WithVerifierMail sets the notification subject and body format. The
// body format receives the plaintext code and the TTL.
func WithVerifierMail(subject, bodyFormat string) VerifierOption {
	return func(v *Verifier) {
		v.subject = subject
		v.bodyFormat = bodyFormat
	}
}

// WithVerifierLogger sets the logger
func WithVerifierLogger(logger Logger) VerifierOption {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithVerifierClock injects a custom clock (useful for tests)
func WithVerifierClock(clock func() time.Time) VerifierOption {
	return func(v *Verifier) {
		if clock != nil {
			v.now = clock
		}
	}
}

// WithConsumeAction sets the default terminal action run when a code is
// successfully consumed.
func WithConsumeAction(action ConsumeAction) VerifierOption {
	return func(v *Verifier) {
		v.onConsume = action
	}
}

// NewVerifier creates a bare Verifier. Most callers want NewEmailVerifier
// or NewPasswordResetVerifier.
func NewVerifier(repo RepositoryManager, notifier Notifier, opts ...VerifierOption) *Verifier {
	if notifier == nil {
		notifier = discardNotifier{}
	}

	v := &Verifier{
		repo:            repo,
		notifier:        notifier,
		ttl:             DefaultVerificationTTL,
		cooldown:        DefaultResendCooldown,
		alphabet:        AlphabetAlphanumeric,
		length:          CodeLength,
		subject:         "Your verification code",
		bodyFormat:      "Your verification code is: %s\nThis code will expire in %s.",
		logger:          defLogger{},
		now:             time.Now,
		deliveryTimeout: DefaultDeliveryTimeout,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}

	return v
}

// NewEmailVerifier builds the email verification instantiation: digit
// codes, a short TTL, and a terminal action that marks the email record
// verified and flips the owning user exactly once.
func NewEmailVerifier(repo RepositoryManager, notifier Notifier, opts ...VerifierOption) *Verifier {
	defaults := []VerifierOption{
		WithVerifierAlphabet(AlphabetDigits),
		WithVerifierTTL(DefaultVerificationTTL),
		WithVerifierMail(
			"Verify your email",
			"Your verification code is: %s\nThis code will expire in %s.",
		),
		WithConsumeAction(MarkEmailVerifiedAction(repo)),
	}

	return NewVerifier(repo, notifier, append(defaults, opts...)...)
}

// NewPasswordResetVerifier builds the password reset instantiation:
// alphanumeric codes, a longer TTL, and no resend cooldown. A new reset
// request always supersedes the outstanding code, even one issued by the
// email verification flow moments earlier. The terminal action is
// supplied at consumption time since it carries the new password hash.
func NewPasswordResetVerifier(repo RepositoryManager, notifier Notifier, opts ...VerifierOption) *Verifier {
	defaults := []VerifierOption{
		WithVerifierAlphabet(AlphabetAlphanumeric),
		WithVerifierTTL(DefaultPasswordResetTTL),
		WithVerifierCooldown(0),
		WithVerifierMail(
			"Reset your password",
			"Your password reset code is: %s\nThis code will expire in %s.",
		),
	}

	return NewVerifier(repo, notifier, append(defaults, opts...)...)
}

// MarkEmailVerifiedAction returns the email verification terminal action.
func MarkEmailVerifiedAction(repo RepositoryManager) ConsumeAction {
	return func(ctx context.Context, tx bun.IDB, entry *Verification) error {
		if err := repo.Emails().MarkVerifiedTx(ctx, tx, entry.UserID, entry.Email); err != nil {
			return err
		}

		// only flips users that are not verified yet; repeat
		// verifications are no-ops at the user level
		_, err := repo.Users().MarkVerifiedTx(ctx, tx, entry.UserID)
		return err
	}
}

// ResetPasswordAction returns a terminal action that swaps the user's
// password hash.
func ResetPasswordAction(repo RepositoryManager, passwordHash string) ConsumeAction {
	return func(ctx context.Context, tx bun.IDB, entry *Verification) error {
		return repo.Users().ResetPasswordTx(ctx, tx, entry.UserID, passwordHash)
	}
}

// Issue generates, hashes, and stores a new code for the email, then hands
// the plaintext to the notifier in a detached task. An unexpired entry
// younger than the cooldown fails with ErrResendCooldown. Issuing always
// supersedes any prior entry for the address.
//
// Two racing calls can both pass the cooldown read before either writes;
// they then serialize at the store and the later writer's code wins. That
// narrow window is accepted.
func (v *Verifier) Issue(ctx context.Context, email string, userID uuid.UUID) error {
	email = NormalizeEmail(email)
	now := v.now()

	existing, err := v.repo.Verifications().Get(ctx, email)
	if err != nil && !goerrors.IsNotFound(err) {
		return err
	}

	if existing != nil && !existing.Expired(now) && existing.CreatedAt != nil {
		if v.cooldown > 0 && IsWithinThresholdPeriod(now, *existing.CreatedAt, v.cooldown) {
			return ErrResendCooldown
		}
	}

	code, err := GenerateCode(v.length, v.alphabet)
	if err != nil {
		return err
	}

	hashed, err := HashCode(code)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash verification code")
	}

	entry := &Verification{
		Email:          email,
		HashedCode:     hashed,
		ExpirationTime: now.Add(v.ttl),
		UserID:         userID,
		CreatedAt:      &now,
	}

	if err := v.repo.Verifications().Put(ctx, entry); err != nil {
		return err
	}

	// delivery is fire and forget: the operation is complete once the
	// code is durably stored
	go v.deliver(email, code)

	return nil
}

func (v *Verifier) deliver(email, code string) {
	ctx, cancel := context.WithTimeout(context.Background(), v.deliveryTimeout)
	defer cancel()

	body := fmt.Sprintf(v.bodyFormat, code, v.ttl)
	if err := v.notifier.Send(ctx, email, v.subject, body); err != nil {
		// the plaintext code is never logged
		v.logger.Error("failed to deliver verification code to %s: %s", email, err)
	}
}

// Consume validates a presented code and, on success, runs the configured
// terminal action plus any extras in a single transaction before deleting
// the entry. The transition is terminal: a second consumption of the same
// code fails with ErrCodeNotFound.
func (v *Verifier) Consume(ctx context.Context, email, code string, actions ...ConsumeAction) error {
	email = NormalizeEmail(email)

	err := v.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		entry, err := v.repo.Verifications().GetTx(ctx, tx, email)
		if err != nil {
			return err
		}

		if entry.Expired(v.now()) {
			return ErrCodeExpired
		}

		if err := CompareCodeAndHash(code, entry.HashedCode); err != nil {
			return err
		}

		if v.onConsume != nil {
			if err := v.onConsume(ctx, tx, entry); err != nil {
				return err
			}
		}

		for _, action := range actions {
			if action == nil {
				continue
			}
			if err := action(ctx, tx, entry); err != nil {
				return err
			}
		}

		return v.repo.Verifications().DeleteTx(ctx, tx, email)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume verification code")
	}

	return nil
}
