package identity_test

import (
	"strings"
	"testing"

	"github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
)

func TestGenerateCode(t *testing.T) {
	tests := []struct {
		name     string
		length   int
		alphabet string
		wantLen  int
	}{
		{
			name:     "Digit code",
			length:   identity.CodeLength,
			alphabet: identity.AlphabetDigits,
			wantLen:  identity.CodeLength,
		},
		{
			name:     "Alphanumeric code",
			length:   identity.CodeLength,
			alphabet: identity.AlphabetAlphanumeric,
			wantLen:  identity.CodeLength,
		},
		{
			name:     "Custom length",
			length:   10,
			alphabet: identity.AlphabetDigits,
			wantLen:  10,
		},
		{
			name:     "Zero length falls back to default",
			length:   0,
			alphabet: identity.AlphabetDigits,
			wantLen:  identity.CodeLength,
		},
		{
			name:     "Empty alphabet falls back to default",
			length:   identity.CodeLength,
			alphabet: "",
			wantLen:  identity.CodeLength,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := identity.GenerateCode(tt.length, tt.alphabet)
			assert.NoError(t, err)
			assert.Len(t, code, tt.wantLen)

			alphabet := tt.alphabet
			if alphabet == "" {
				alphabet = identity.AlphabetAlphanumeric
			}
			for _, r := range code {
				assert.True(t, strings.ContainsRune(alphabet, r),
					"code %q contains %q outside alphabet %q", code, r, alphabet)
			}
		})
	}
}

func TestGenerateCodeUniqueness(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code, err := identity.GenerateCode(identity.CodeLength, identity.AlphabetAlphanumeric)
		assert.NoError(t, err)
		seen[code] = true
	}

	// 36^6 possibilities make 100 draws colliding vanishingly unlikely
	assert.Greater(t, len(seen), 95)
}
