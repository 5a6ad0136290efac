package identity_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	_, ok := identity.FromContext(ctx)
	assert.False(t, ok)

	user := &identity.User{ID: uuid.New(), Email: "ada@example.com"}
	ctx = identity.WithContext(ctx, user)

	found, ok := identity.FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, user.ID, found.ID)
}

func TestClaimsContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	_, ok := identity.GetClaims(ctx)
	assert.False(t, ok)

	claims := &identity.JWTClaims{UID: "user-42"}
	ctx = identity.WithClaimsContext(ctx, claims)

	found, ok := identity.GetClaims(ctx)
	require.True(t, ok)
	assert.Equal(t, "user-42", found.UserID())
}
