package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCirculation_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_URL", "REMOTE_TIMEOUT", "OVERDUE_SWEEP_SCHEDULE", "CHAOS_CATALOG_FAILURE_RATE", "CHAOS_CATALOG_LATENCY"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadCirculation()
	require.NoError(t, err)

	assert.Equal(t, "8082", cfg.Port)
	assert.Equal(t, defaultDatabaseURL, cfg.DatabaseURL)
	assert.Equal(t, 3*time.Second, cfg.RemoteTimeout)
	assert.Empty(t, cfg.OverdueSweepSchedule)
	assert.Zero(t, cfg.ChaosCatalogFailureRate)
}

func TestLoadCirculation_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("REMOTE_TIMEOUT", "750ms")
	t.Setenv("OVERDUE_SWEEP_SCHEDULE", "0 0 * * *")
	t.Setenv("CHAOS_CATALOG_FAILURE_RATE", "0.25")
	t.Setenv("CHAOS_CATALOG_LATENCY", "100ms")

	cfg, err := LoadCirculation()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.RemoteTimeout)
	assert.Equal(t, "0 0 * * *", cfg.OverdueSweepSchedule)
	assert.InDelta(t, 0.25, cfg.ChaosCatalogFailureRate, 1e-9)
	assert.Equal(t, 100*time.Millisecond, cfg.ChaosCatalogLatency)
}

func TestLoadCirculation_InvalidValues(t *testing.T) {
	t.Setenv("REMOTE_TIMEOUT", "soon")
	_, err := LoadCirculation()
	assert.ErrorContains(t, err, "REMOTE_TIMEOUT")

	t.Setenv("REMOTE_TIMEOUT", "")
	t.Setenv("CHAOS_CATALOG_FAILURE_RATE", "1.5")
	_, err = LoadCirculation()
	assert.ErrorContains(t, err, "between 0 and 1")
}

func TestLoadGateway(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("CATALOG_SERVICE_URL", "http://catalog:8081")

	cfg := LoadGateway()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://catalog:8081", cfg.CatalogServiceURL)
	assert.Equal(t, defaultCirculation, cfg.CirculationServiceURL)
}
