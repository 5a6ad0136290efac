package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Auther converts credentials into session tokens and tokens back into
// live users.
type Auther struct {
	repo         RepositoryManager
	tokenService TokenService
	logger       Logger
	activity     ActivitySink
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repo RepositoryManager, cfg Config) *Auther {
	tokenService := NewTokenService(
		[]byte(cfg.GetSigningKey()),
		time.Duration(cfg.GetTokenExpiration())*time.Minute,
		cfg.GetIssuer(),
		cfg.GetAudience(),
		defLogger{},
	)

	return &Auther{
		repo:         repo,
		tokenService: tokenService,
		logger:       defLogger{},
		activity:     noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink sets the sink that receives login audit events
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activity = normalizeActivitySink(sink)
	return s
}

// WithTokenService overrides the token service (useful for tests)
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the credentials and returns a signed session token.
// Unknown emails and wrong passwords return the same error; unverified
// and disabled accounts return distinct, Forbidden-class errors.
func (s *Auther) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			s.recordLogin(ctx, ActivityEventLoginFailure, "", email)
			return "", ErrMismatchedHashAndPassword
		}
		s.logger.Error("Login user lookup error: %s", err)
		return "", err
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		s.recordLogin(ctx, ActivityEventLoginFailure, user.ID.String(), user.Email)
		return "", ErrMismatchedHashAndPassword
	}

	if user.Status == StatusDisabled {
		return "", ErrAccountDisabled
	}

	// provisional activation via a device identifier also admits the
	// user, even before any email is verified
	if !user.Verified && user.Status != StatusActive {
		return "", ErrNotVerified
	}

	token, err := s.tokenService.Generate(NewUserIdentity(user))
	if err != nil {
		s.logger.Error("Login token generation error: %s", err)
		return "", err
	}

	s.recordLogin(ctx, ActivityEventLoginSuccess, user.ID.String(), user.Email)

	return token, nil
}

func (s *Auther) recordLogin(ctx context.Context, event ActivityEventType, userID, email string) {
	err := s.activity.Record(ctx, ActivityEvent{
		EventType:  event,
		UserID:     userID,
		Email:      NormalizeEmail(email),
		OccurredAt: time.Now(),
	})
	if err != nil {
		s.logger.Error("failed to record %s activity: %s", event, err)
	}
}

// Session validates a token and returns its lightweight session
// projection without touching the store.
func (s *Auther) Session(token string) (*SessionObject, error) {
	claims, err := s.tokenService.Validate(token)
	if err != nil {
		return nil, err
	}
	return SessionFromClaims(claims)
}

// Authenticate resolves a session token back into a live user. Invalid,
// expired, and orphaned tokens all fail with Unauthorized-class errors.
func (s *Auther) Authenticate(ctx context.Context, token string) (*User, error) {
	claims, err := s.tokenService.Validate(token)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, ErrTokenMalformed
	}

	user, err := s.repo.Users().GetByUserID(ctx, id)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	return user, nil
}
