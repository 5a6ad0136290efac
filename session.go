package identity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionObject is the serializable projection of a validated token. It
// is what an application keeps in memory once the heavy token parsing is
// done.
type SessionObject struct {
	UserID         string     `json:"user_id,omitempty"`
	Audience       []string   `json:"audience,omitempty"`
	Issuer         string     `json:"issuer,omitempty"`
	IssuedAt       *time.Time `json:"issued_at,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

func (s *SessionObject) GetUserID() string {
	return s.UserID
}

func (s *SessionObject) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

func (s *SessionObject) GetAudience() []string {
	return s.Audience
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

// Expired reports whether the session passed its expiration date.
func (s *SessionObject) Expired(now time.Time) bool {
	if s.ExpirationDate == nil {
		return false
	}
	return now.After(*s.ExpirationDate)
}

func (s SessionObject) String() string {
	issuedAt := "<nil>"
	if s.IssuedAt != nil {
		issuedAt = s.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf(
		"user=%s aud=%v iss=%s iat=%s",
		s.UserID,
		s.Audience,
		s.Issuer,
		issuedAt,
	)
}

// SessionFromClaims creates a SessionObject from validated token claims.
func SessionFromClaims(claims AuthClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrTokenMalformed
	}

	var audience []string
	var issuer string
	if jwtClaims, ok := claims.(*JWTClaims); ok {
		audience = append(audience, jwtClaims.RegisteredClaims.Audience...)
		issuer = jwtClaims.RegisteredClaims.Issuer
	}

	issuedAt := claims.IssuedAt()
	expiresAt := claims.Expires()

	return &SessionObject{
		UserID:         claims.UserID(),
		Audience:       audience,
		Issuer:         issuer,
		IssuedAt:       &issuedAt,
		ExpirationDate: &expiresAt,
	}, nil
}
