package identity

import (
	"regexp"
	"strings"
)

// ZeroAdvertisingID is the reserved sentinel mobile clients send when ad
// tracking is unavailable. Creation paths must drop it silently.
const ZeroAdvertisingID = "00000000-0000-0000-0000-000000000000"

var advertisingIDPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// NormalizeAdvertisingID lowercases an identifier; the wire contract is
// case-insensitive but we persist a single canonical form.
func NormalizeAdvertisingID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// IsValidAdvertisingID reports whether the identifier matches the
// canonical 8-4-4-4-12 hexadecimal grouping. The all-zero sentinel is
// well-formed; use IsZeroAdvertisingID to detect it.
func IsValidAdvertisingID(id string) bool {
	return advertisingIDPattern.MatchString(NormalizeAdvertisingID(id))
}

// IsZeroAdvertisingID reports whether the identifier is the "absent" sentinel.
func IsZeroAdvertisingID(id string) bool {
	return NormalizeAdvertisingID(id) == ZeroAdvertisingID
}

// IsActivatableAdvertisingID reports whether the identifier can satisfy
// the provisional activation invariant: well-formed and not the sentinel.
func IsActivatableAdvertisingID(id string) bool {
	return IsValidAdvertisingID(id) && !IsZeroAdvertisingID(id)
}
