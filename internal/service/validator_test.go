package service_test

import (
	"testing"
	"time"

	"github.com/opsdesk/deskd/internal/domain"
	"github.com/opsdesk/deskd/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator(t *testing.T) *service.Validator {
	t.Helper()
	window, err := service.NewBusinessWindow("07:30", "19:00")
	require.NoError(t, err)
	return service.NewValidator(window)
}

func TestValidateTitle(t *testing.T) {
	validator := newTestValidator(t)

	assert.NoError(t, validator.ValidateTitle("Quarterly report"))
	assert.ErrorIs(t, validator.ValidateTitle(""), domain.ErrEmptyTitle)
	assert.ErrorIs(t, validator.ValidateTitle("   \t"), domain.ErrEmptyTitle)
}

func TestValidateSchedule_BusinessHours(t *testing.T) {
	validator := newTestValidator(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	tomorrow := now.AddDate(0, 0, 1)

	inside := "07:30"
	assert.NoError(t, validator.ValidateSchedule(&tomorrow, &inside, now))

	edge := "19:00"
	assert.NoError(t, validator.ValidateSchedule(&tomorrow, &edge, now))

	early := "07:29"
	assert.ErrorIs(t, validator.ValidateSchedule(&tomorrow, &early, now), domain.ErrOutsideBusinessHours)

	late := "19:01"
	assert.ErrorIs(t, validator.ValidateSchedule(&tomorrow, &late, now), domain.ErrOutsideBusinessHours)

	malformed := "9am"
	assert.ErrorIs(t, validator.ValidateSchedule(&tomorrow, &malformed, now), domain.ErrInvalidDueTime)
}

func TestValidateSchedule_SameDayPast(t *testing.T) {
	validator := newTestValidator(t)
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	today := service.StartOfDay(now)

	past := "13:00"
	assert.ErrorIs(t, validator.ValidateSchedule(&today, &past, now), domain.ErrDueMomentInPast)

	future := "15:00"
	assert.NoError(t, validator.ValidateSchedule(&today, &future, now))

	// A bare date today is start of day, which is accepted; the
	// past check only applies when a due time pins the moment.
	assert.NoError(t, validator.ValidateSchedule(&today, nil, now))

	// Yesterday's 13:00 is not a same-day conflict; overdue is a
	// read-side projection, not a write-time rejection.
	yesterday := today.AddDate(0, 0, -1)
	assert.NoError(t, validator.ValidateSchedule(&yesterday, &past, now))
}

func TestValidateSchedule_SameDayPastNonUTCServer(t *testing.T) {
	validator := newTestValidator(t)

	// Due dates arrive at UTC midnight regardless of server TZ; the
	// gate must still fire when now is read off a non-UTC clock.
	zone := time.FixedZone("UTC+3", 3*60*60)
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, zone) // 11:00 UTC
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	past := "10:00"
	assert.ErrorIs(t, validator.ValidateSchedule(&today, &past, now), domain.ErrDueMomentInPast)

	future := "12:00"
	assert.NoError(t, validator.ValidateSchedule(&today, &future, now))
}

func TestValidateRecurrence(t *testing.T) {
	validator := newTestValidator(t)

	assert.NoError(t, validator.ValidateRecurrence(nil))
	assert.NoError(t, validator.ValidateRecurrence(&domain.RecurrenceDescriptor{Frequency: domain.RecurrenceNone}))
	assert.NoError(t, validator.ValidateRecurrence(&domain.RecurrenceDescriptor{Frequency: domain.RecurrenceWeekly}))
	assert.ErrorIs(t, validator.ValidateRecurrence(&domain.RecurrenceDescriptor{Frequency: "FORTNIGHTLY"}), domain.ErrInvalidRecurrence)
}
