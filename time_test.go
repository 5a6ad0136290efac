package identity_test

import (
	"testing"
	"time"

	"github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
)

func TestIsWithinThresholdPeriod(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		inputTime time.Time
		threshold time.Duration
		expected  bool
	}{
		{
			name:      "Within 1 hour threshold",
			inputTime: now.Add(-30 * time.Minute),
			threshold: time.Hour,
			expected:  true,
		},
		{
			name:      "Outside 1 hour threshold",
			inputTime: now.Add(-90 * time.Minute),
			threshold: time.Hour,
			expected:  false,
		},
		{
			name:      "At exact threshold",
			inputTime: now.Add(-1 * time.Hour),
			threshold: time.Hour,
			expected:  false, // we check if time is AFTER threshold
		},
		{
			name:      "Future time",
			inputTime: now.Add(1 * time.Hour),
			threshold: 2 * time.Hour,
			expected:  true,
		},
		{
			name:      "Zero threshold excludes the past",
			inputTime: now.Add(-time.Second),
			threshold: 0,
			expected:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := identity.IsWithinThresholdPeriod(now, tt.inputTime, tt.threshold)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestIsOutsideThresholdPeriod(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		inputTime time.Time
		threshold time.Duration
		expected  bool
	}{
		{
			name:      "Within 1 hour threshold",
			inputTime: now.Add(-30 * time.Minute),
			threshold: time.Hour,
			expected:  false,
		},
		{
			name:      "Outside 1 hour threshold",
			inputTime: now.Add(-90 * time.Minute),
			threshold: time.Hour,
			expected:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := identity.IsOutsideThresholdPeriod(now, tt.inputTime, tt.threshold)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestThresholdFunctionsComplementary(t *testing.T) {
	// IsWithinThresholdPeriod and IsOutsideThresholdPeriod should return opposite values

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	testTimes := []time.Time{
		now,
		now.Add(-30 * time.Minute),
		now.Add(-2 * time.Hour),
		now.Add(1 * time.Hour),
	}

	thresholds := []time.Duration{
		time.Hour,
		24 * time.Hour,
		15 * time.Minute,
		2*time.Hour + 30*time.Minute,
	}

	for _, inputTime := range testTimes {
		for _, threshold := range thresholds {
			within := identity.IsWithinThresholdPeriod(now, inputTime, threshold)
			outside := identity.IsOutsideThresholdPeriod(now, inputTime, threshold)

			assert.NotEqual(t, within, outside, "IsWithinThresholdPeriod and IsOutsideThresholdPeriod should be complementary")
		}
	}
}
