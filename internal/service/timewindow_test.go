package service_test

import (
	"testing"
	"time"

	"github.com/opsdesk/deskd/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessWindow_Contains(t *testing.T) {
	window, err := service.NewBusinessWindow("07:30", "19:00")
	require.NoError(t, err)

	tests := []struct {
		clock string
		want  bool
	}{
		{"07:29", false},
		{"07:30", true},
		{"12:00", true},
		{"19:00", true},
		{"19:01", false},
		{"00:00", false},
		{"23:59", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, window.Contains(tt.clock), tt.clock)
	}
}

func TestBusinessWindow_RejectsMalformedClock(t *testing.T) {
	window, err := service.NewBusinessWindow("07:30", "19:00")
	require.NoError(t, err)

	assert.False(t, window.Contains("25:00"))
	assert.False(t, window.Contains("noon"))
	assert.False(t, window.Contains(""))
}

func TestNewBusinessWindow_InvertedBounds(t *testing.T) {
	_, err := service.NewBusinessWindow("19:00", "07:30")
	assert.Error(t, err)
}

func TestCombineDueMoment(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	dueTime := "14:45"
	combined := service.CombineDueMoment(date, &dueTime)
	assert.Equal(t, time.Date(2026, 3, 10, 14, 45, 0, 0, time.UTC), combined)

	// Missing time means start of the day.
	combined = service.CombineDueMoment(date, nil)
	assert.Equal(t, date, combined)
}

func TestElapsedFraction(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	dueAt := createdAt.Add(10 * time.Hour)

	assert.InDelta(t, 0.0, service.ElapsedFraction(createdAt, dueAt, createdAt), 1e-9)
	assert.InDelta(t, 0.5, service.ElapsedFraction(createdAt, dueAt, createdAt.Add(5*time.Hour)), 1e-9)
	assert.InDelta(t, 1.0, service.ElapsedFraction(createdAt, dueAt, dueAt), 1e-9)

	// Past the deadline the fraction keeps growing.
	assert.Greater(t, service.ElapsedFraction(createdAt, dueAt, dueAt.Add(time.Hour)), 1.0)
}

func TestElapsedFraction_ZeroWindowStaysFinite(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	// createdAt == dueAt must not divide by zero.
	got := service.ElapsedFraction(at, at, at.Add(time.Second))
	assert.False(t, got != got, "fraction must not be NaN")
	assert.Greater(t, got, 1.0)
}

func TestStartOfDay(t *testing.T) {
	at := time.Date(2026, 3, 10, 18, 22, 41, 12345, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), service.StartOfDay(at))
}
