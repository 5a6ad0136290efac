package identity

import (
	"crypto/rand"
	"math/big"

	"github.com/goliatone/go-errors"
)

const (
	// AlphabetAlphanumeric is used for registration and password reset codes
	AlphabetAlphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// AlphabetDigits is used for email verification codes typed on mobile keypads
	AlphabetDigits = "0123456789"

	// CodeLength is the fixed length of one-time codes
	CodeLength = 6
)

// GenerateCode produces a random one-time code of the given length drawn
// from the alphabet. The source is crypto/rand; each position is selected
// with uniform probability.
func GenerateCode(length int, alphabet string) (string, error) {
	if length <= 0 {
		length = CodeLength
	}
	if alphabet == "" {
		alphabet = AlphabetAlphanumeric
	}

	max := big.NewInt(int64(len(alphabet)))
	code := make([]byte, length)

	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errors.Wrap(err, errors.CategoryInternal, "failed to read random source")
		}
		code[i] = alphabet[n.Int64()]
	}

	return string(code), nil
}
