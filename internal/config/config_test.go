package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NadafAyan/BloodShare/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("REGISTRY_STORE", "")
	t.Setenv("REGISTRY_CITIES", "")
	t.Setenv("EVENTS_KAFKA_BROKERS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.Registry.Store)
	assert.Equal(t, domain.DefaultCities, cfg.Registry.Cities)
	assert.Zero(t, cfg.Registry.SearchCacheTTL())
	assert.Equal(t, 3, cfg.Registry.RetryAttempts)
	assert.Equal(t, 50, cfg.Registry.DefaultPageSize)
	assert.Equal(t, 200, cfg.Registry.MaxPageSize)
	assert.Empty(t, cfg.Events.KafkaBrokers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("REGISTRY_STORE", "Memory")
	t.Setenv("REGISTRY_CITIES", "Nagpur, Surat ,,")
	t.Setenv("REGISTRY_SEARCH_CACHE_TTL_SECONDS", "15")
	t.Setenv("REGISTRY_RETRY_INTERVAL_MS", "250")
	t.Setenv("EVENTS_KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Registry.Store)
	assert.Equal(t, []string{"Nagpur", "Surat"}, cfg.Registry.Cities)
	assert.Equal(t, 15*time.Second, cfg.Registry.SearchCacheTTL())
	assert.Equal(t, 250*time.Millisecond, cfg.Registry.RetryInterval())
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Events.KafkaBrokers)
	assert.Equal(t, 5*time.Second, cfg.App.RequestTimeout())
}

func TestLoad_RejectsUnknownStore(t *testing.T) {
	t.Setenv("REGISTRY_STORE", "sqlite")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REGISTRY_STORE")
}

func TestLoad_RejectsInconsistentPageSizes(t *testing.T) {
	t.Setenv("REGISTRY_STORE", "memory")
	t.Setenv("REGISTRY_DEFAULT_PAGE_SIZE", "500")
	t.Setenv("REGISTRY_MAX_PAGE_SIZE", "100")

	_, err := Load()
	require.Error(t, err)
}
