package identity

import "time"

// IsWithinThresholdPeriod checks if t falls inside the threshold period
// ending at now.
func IsWithinThresholdPeriod(now, t time.Time, threshold time.Duration) bool {
	return t.After(now.Add(-threshold))
}

// IsOutsideThresholdPeriod is the negation of IsWithinThresholdPeriod
func IsOutsideThresholdPeriod(now, t time.Time, threshold time.Duration) bool {
	return !IsWithinThresholdPeriod(now, t, threshold)
}
