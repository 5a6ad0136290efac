package jwtware

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func tokenWithAlg(alg string) *jwt.Token {
	return &jwt.Token{Header: map[string]any{"alg": alg}}
}

func TestKeyfuncOptionsRefreshErrorHandlerIsSafe(t *testing.T) {
	opts := keyfuncOptions(nil)
	require.NotNil(t, opts.RefreshErrorHandler)
	require.NotPanics(t, func() {
		opts.RefreshErrorHandler(errors.New("refresh failed"))
	})

	require.Equal(t, time.Hour, opts.RefreshInterval)
	require.Equal(t, 5*time.Minute, opts.RefreshRateLimit)
	require.Equal(t, 10*time.Second, opts.RefreshTimeout)
	require.True(t, opts.RefreshUnknownKID)
}

func TestGetExtractorsParsesLookupChain(t *testing.T) {
	tests := []struct {
		name   string
		lookup string
		count  int
	}{
		{"single header", "header:Authorization", 1},
		{"header and cookie", "header:Authorization,cookie:jwt", 2},
		{"all sources", "header:Authorization, query:auth_token, param:token, cookie:jwt", 4},
		{"unknown source ignored", "header:Authorization,body:token", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Len(t, GetExtractors(tt.lookup), tt.count)
		})
	}
}

func TestSigningKeyFuncPinsAlgorithm(t *testing.T) {
	fn := signingKeyFunc(SigningKey{Key: []byte("secret"), JWTAlg: "HS256"})

	key, err := fn(tokenWithAlg("HS256"))
	require.NoError(t, err)
	require.Equal(t, []byte("secret"), key)

	_, err = fn(tokenWithAlg("HS384"))
	require.Error(t, err)
}
