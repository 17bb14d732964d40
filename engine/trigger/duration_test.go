package trigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDelay(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Should return nil for a nil value", func(t *testing.T) {
		assert.Nil(t, ParseDelay(nil, now))
	})

	t.Run("Should return nil for an empty string", func(t *testing.T) {
		assert.Nil(t, ParseDelay("", now))
	})

	t.Run("Should pass through a time.Time value", func(t *testing.T) {
		future := now.Add(time.Hour)
		got := ParseDelay(future, now)
		assert.Equal(t, future, *got)
	})

	t.Run("Should accept a future RFC3339 string", func(t *testing.T) {
		future := now.Add(2 * time.Hour)
		got := ParseDelay(future.Format(time.RFC3339), now)
		assert.NotNil(t, got)
		assert.True(t, got.Equal(future))
	})

	t.Run("Should elide a past RFC3339 string to nil", func(t *testing.T) {
		past := now.Add(-time.Hour)
		assert.Nil(t, ParseDelay(past.Format(time.RFC3339), now))
	})

	t.Run("Should parse a natural-language duration string", func(t *testing.T) {
		got := ParseDelay("1w2d3h4m5s", now)
		assert.NotNil(t, got)
		want := now.Add(
			7*24*time.Hour + 2*24*time.Hour + 3*time.Hour + 4*time.Minute + 5*time.Second,
		)
		assert.True(t, got.Equal(want))
	})

	t.Run("Should return nil for a string matching no duration component", func(t *testing.T) {
		assert.Nil(t, ParseDelay("not-a-duration", now))
	})

	t.Run("Should return nil for an unsupported type", func(t *testing.T) {
		assert.Nil(t, ParseDelay(42, now))
	})
}

func TestStringifyDuration(t *testing.T) {
	tests := []struct {
		name    string
		seconds int64
		want    *string
	}{
		{"zero seconds yields nil", 0, nil},
		{"negative seconds yields nil", -5, nil},
		{"seconds only", 45, ptr("45s")},
		{"minutes and seconds", 125, ptr("2m5s")},
		{"hours only", 3600, ptr("1h")},
		{"days and hours", 26*secondsPerHour + 0, ptr("1d2h")},
		{"weeks days hours minutes seconds", secondsPerWeek + secondsPerDay + secondsPerHour + secondsPerMinute + 1, ptr("1w1d1h1m1s")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StringifyDuration(tt.seconds)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require := assert.New(t)
			require.NotNil(got)
			require.Equal(*tt.want, *got)
		})
	}
}

func ptr(s string) *string { return &s }
