package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opsdesk/deskd/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPolicy_EmptyPathReturnsDefaults(t *testing.T) {
	policy, err := config.LoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPolicy(), policy)
}

func TestLoadPolicy_PartialOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	content := []byte(`
business_hours_end: "18:00"
escalate_percent: 40
calendar:
  base_url: "http://calendar.internal"
  dispatch_spec: "@every 1m"
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	policy, err := config.LoadPolicy(path)
	require.NoError(t, err)

	assert.Equal(t, "18:00", policy.BusinessHoursEnd)
	assert.Equal(t, 40.0, policy.EscalatePercent)
	assert.Equal(t, "http://calendar.internal", policy.Calendar.BaseURL)
	assert.Equal(t, "@every 1m", policy.Calendar.DispatchSpec)

	// Unnamed fields keep their defaults.
	assert.Equal(t, "07:30", policy.BusinessHoursStart)
	assert.Equal(t, 70.0, policy.ForcePercent)
	assert.Equal(t, 60, policy.Calendar.EventMinutes)
	assert.Equal(t, 5, policy.Calendar.MaxAttempts)
}

func TestLoadPolicy_MissingFile(t *testing.T) {
	_, err := config.LoadPolicy("/nonexistent/policy.yaml")
	assert.Error(t, err)
}

func TestLoadPolicy_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("business_hours_end: [oops"), 0o644))

	_, err := config.LoadPolicy(path)
	assert.Error(t, err)
}
