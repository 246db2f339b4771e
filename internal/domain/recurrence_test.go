package domain_test

import (
	"testing"

	"github.com/opsdesk/deskd/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_NilDescriptor(t *testing.T) {
	var descriptor *domain.RecurrenceDescriptor
	assert.Nil(t, descriptor.Compile())
}

func TestCompile_FrequencyNone(t *testing.T) {
	descriptor := &domain.RecurrenceDescriptor{Frequency: domain.RecurrenceNone}
	assert.Nil(t, descriptor.Compile())
}

func TestCompile_FullRule(t *testing.T) {
	descriptor := &domain.RecurrenceDescriptor{
		Frequency: domain.RecurrenceWeekly,
		Interval:  2,
		Count:     5,
	}

	rule := descriptor.Compile()
	require.NotNil(t, rule)
	assert.Equal(t, "FREQ=WEEKLY;INTERVAL=2;COUNT=5", *rule)
}

func TestCompile_OmitsZeroQualifiers(t *testing.T) {
	descriptor := &domain.RecurrenceDescriptor{Frequency: domain.RecurrenceDaily}

	rule := descriptor.Compile()
	require.NotNil(t, rule)
	assert.Equal(t, "FREQ=DAILY", *rule)

	descriptor.Count = 10
	rule = descriptor.Compile()
	require.NotNil(t, rule)
	assert.Equal(t, "FREQ=DAILY;COUNT=10", *rule)
}

func TestCompile_Deterministic(t *testing.T) {
	descriptor := &domain.RecurrenceDescriptor{
		Frequency: domain.RecurrenceMonthly,
		Interval:  3,
		Count:     12,
	}

	first := descriptor.Compile()
	require.NotNil(t, first)
	for i := 0; i < 10; i++ {
		next := descriptor.Compile()
		require.NotNil(t, next)
		assert.Equal(t, *first, *next)
	}
}

func TestRecurrenceFrequency_IsValid(t *testing.T) {
	for _, freq := range []domain.RecurrenceFrequency{
		domain.RecurrenceNone,
		domain.RecurrenceDaily,
		domain.RecurrenceWeekly,
		domain.RecurrenceMonthly,
		domain.RecurrenceYearly,
	} {
		assert.True(t, freq.IsValid(), string(freq))
	}

	assert.False(t, domain.RecurrenceFrequency("HOURLY").IsValid())
	assert.False(t, domain.RecurrenceFrequency("").IsValid())
}
