package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsepipe/ingest/internal/config"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	c, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "standard", c.DataIntelligence.PerformanceMode)
	assert.Equal(t, 1.0, c.DataIntelligence.Sampling.Rate)
	assert.Equal(t, "sqlite", c.Persistence.Database.Type)
	assert.Equal(t, "file_watcher", c.Adapter.Type)
}

func TestLoadParsesRecognizedKeys(t *testing.T) {
	doc := `
data_intelligence:
  enabled: true
  performance_mode: comprehensive
  sampling:
    enabled: true
    rate: 0.25
    minimum_batch_size: 10
  features:
    ingestion_tracking:
      enabled: true
      export_formats: [json, csv]
    audit_trail:
      enabled: true
      detail_level: comprehensive
    quality_scoring:
      enabled: true
      sampling_rate: 0.5
    terminology_validation:
      enabled: true
      code_systems: [icd10, snomed]
persistence:
  database:
    type: postgresql
    dsn: postgres://localhost/pulsepipe
adapter:
  type: file_watcher
  watch_path: /data/inbox
  extensions: [.hl7, .x12]
  continuous: true
  scan_interval: 5s
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	c, err := config.Load(path)
	require.NoError(t, err)

	assert.True(t, c.DataIntelligence.Enabled)
	assert.Equal(t, "comprehensive", c.DataIntelligence.PerformanceMode)
	assert.Equal(t, 0.25, c.DataIntelligence.Sampling.Rate)
	assert.Equal(t, []string{"json", "csv"}, c.DataIntelligence.Features.IngestionTracking.ExportFormats)
	assert.Equal(t, "comprehensive", c.DataIntelligence.Features.AuditTrail.DetailLevel)
	assert.Equal(t, []string{"icd10", "snomed"}, c.DataIntelligence.Features.TerminologyValidation.CodeSystems)
	assert.Equal(t, "postgresql", c.Persistence.Database.Type)
	assert.Equal(t, "/data/inbox", c.Adapter.WatchPath)
	assert.True(t, c.Adapter.Continuous)
}

func TestLoadRejectsInvalidPerformanceMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_intelligence:\n  performance_mode: turbo\n"), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)

	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "data_intelligence.performance_mode", cfgErr.Path)
}

func TestLoadRejectsSamplingRateOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_intelligence:\n  sampling:\n    rate: 1.5\n"), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)

	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "data_intelligence.sampling.rate", cfgErr.Path)
}

func TestLoadRejectsUnknownDatabaseType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("persistence:\n  database:\n    type: oracle\n"), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)

	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "persistence.database.type", cfgErr.Path)
}

func TestLoadRejectsUnknownCodeSystem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"data_intelligence:\n  features:\n    terminology_validation:\n      code_systems: [made_up]\n"), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)

	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "data_intelligence.features.terminology_validation.code_systems", cfgErr.Path)
}

func TestLoadIgnoresUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("unknown_section:\n  foo: bar\n"), 0o644))

	c, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "standard", c.DataIntelligence.PerformanceMode)
}
