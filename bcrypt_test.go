package identity_test

import (
	"testing"

	"github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "Valid password",
			password: "securePassword123!",
			wantErr:  false,
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  true, // bcrypt can hash empty strings!
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := identity.HashPassword(tt.password)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.NotEmpty(t, hash)

			err = identity.ComparePasswordAndHash(tt.password, hash)
			assert.NoError(t, err)
		})
	}
}

func TestComparePasswordAndHash(t *testing.T) {
	password := "testPassword123!"
	hash, err := identity.HashPassword(password)
	assert.NoError(t, err)

	tests := []struct {
		name     string
		password string
		hash     string
		wantErr  bool
	}{
		{
			name:     "Matching password",
			password: password,
			hash:     hash,
			wantErr:  false,
		},
		{
			name:     "Wrong password",
			password: "wrongPassword",
			hash:     hash,
			wantErr:  true,
		},
		{
			name:     "Invalid hash",
			password: password,
			hash:     "invalidhash",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := identity.ComparePasswordAndHash(tt.password, tt.hash)

			if tt.wantErr {
				assert.Error(t, err)
				if tt.hash == hash {
					assert.Equal(t, identity.ErrMismatchedHashAndPassword, err)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHashCodeRoundTrip(t *testing.T) {
	code, err := identity.GenerateCode(identity.CodeLength, identity.AlphabetDigits)
	assert.NoError(t, err)

	hash, err := identity.HashCode(code)
	assert.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, code, hash)

	assert.NoError(t, identity.CompareCodeAndHash(code, hash))
}

func TestCompareCodeAndHashRejectsWrongCode(t *testing.T) {
	hash, err := identity.HashCode("123456")
	assert.NoError(t, err)

	err = identity.CompareCodeAndHash("654321", hash)
	assert.Error(t, err)
	assert.Equal(t, identity.ErrCodeInvalid, err)
}
