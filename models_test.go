package identity_test

import (
	"testing"
	"time"

	"github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    identity.Status
		to      identity.Status
		allowed bool
	}{
		{"created to active", identity.StatusCreated, identity.StatusActive, true},
		{"created to disabled", identity.StatusCreated, identity.StatusDisabled, true},
		{"active to disabled", identity.StatusActive, identity.StatusDisabled, true},
		{"disabled to active", identity.StatusDisabled, identity.StatusActive, true},
		{"active to created", identity.StatusActive, identity.StatusCreated, false},
		{"disabled to created", identity.StatusDisabled, identity.StatusCreated, false},
		{"same state is a no-op", identity.StatusActive, identity.StatusActive, true},
		{"unknown source", "archived", identity.StatusActive, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, identity.CanTransition(tt.from, tt.to))
		})
	}
}

func TestEnsureStatusDefaults(t *testing.T) {
	user := &identity.User{}
	user.EnsureStatus()
	assert.Equal(t, identity.StatusCreated, user.Status)

	email := &identity.EmailRecord{}
	email.EnsureStatus()
	assert.Equal(t, identity.StatusCreated, email.Status)

	device := &identity.DeviceRecord{}
	device.EnsureStatus()
	assert.Equal(t, identity.StatusActive, device.Status)

	// an explicit status is never overwritten
	user = &identity.User{Status: identity.StatusActive}
	user.EnsureStatus()
	assert.Equal(t, identity.StatusActive, user.Status)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "pepe@example.com", identity.NormalizeEmail("  Pepe@Example.COM "))
	assert.Equal(t, "", identity.NormalizeEmail("   "))
}

func TestVerificationExpired(t *testing.T) {
	now := time.Now()
	entry := &identity.Verification{ExpirationTime: now.Add(5 * time.Minute)}

	assert.False(t, entry.Expired(now))
	assert.False(t, entry.Expired(now.Add(5*time.Minute)))
	assert.True(t, entry.Expired(now.Add(5*time.Minute+time.Second)))
}
