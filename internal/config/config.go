// Package config loads the ingestion pipeline's YAML configuration
// document into typed structs, one sub-struct per concern, following
// the teacher's composition-of-policies style in
// engine/config/unified_config.go (UnifiedBusinessConfig bundling
// FetchPolicy/ProcessPolicy/SinkPolicy/GlobalSettings) and its
// file-loading idiom in packages/engine/config/runtime.go's
// LoadConfiguration (missing file -> defaults, os.ReadFile + yaml.Unmarshal,
// wrapped errors).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigurationError names the offending key path and the reason its
// value was rejected.
type ConfigurationError struct {
	Path   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Path, e.Reason)
}

// Config is the root of the recognized configuration document.
type Config struct {
	DataIntelligence DataIntelligence `yaml:"data_intelligence"`
	Persistence      Persistence      `yaml:"persistence"`
	Adapter          Adapter          `yaml:"adapter"`
}

// DataIntelligence is the data_intelligence.* tree: the master switch,
// performance-mode preset, sampling floor, and one sub-struct per
// optional feature.
type DataIntelligence struct {
	Enabled         bool            `yaml:"enabled"`
	PerformanceMode string          `yaml:"performance_mode"`
	Sampling        Sampling        `yaml:"sampling"`
	Features        Features        `yaml:"features"`
}

// Sampling is the global sampling floor applied across features.
type Sampling struct {
	Enabled          bool    `yaml:"enabled"`
	Rate             float64 `yaml:"rate"`
	MinimumBatchSize int     `yaml:"minimum_batch_size"`
}

// Features bundles every data_intelligence.features.* sub-tree.
type Features struct {
	IngestionTracking      IngestionTracking      `yaml:"ingestion_tracking"`
	AuditTrail             AuditTrail             `yaml:"audit_trail"`
	QualityScoring         QualityScoring         `yaml:"quality_scoring"`
	TerminologyValidation  TerminologyValidation  `yaml:"terminology_validation"`
	PerformanceTracking    PerformanceTracking    `yaml:"performance_tracking"`
	SystemMetrics          SystemMetrics          `yaml:"system_metrics"`
}

type IngestionTracking struct {
	Enabled            bool     `yaml:"enabled"`
	StoreFailedRecords bool     `yaml:"store_failed_records"`
	ExportMetrics      bool     `yaml:"export_metrics"`
	ExportFormats      []string `yaml:"export_formats"`
}

type AuditTrail struct {
	Enabled             bool   `yaml:"enabled"`
	DetailLevel         string `yaml:"detail_level"`
	RecordLevelTracking bool   `yaml:"record_level_tracking"`
	StructuredErrors    bool   `yaml:"structured_errors"`
}

type QualityScoring struct {
	Enabled             bool    `yaml:"enabled"`
	SamplingRate        float64 `yaml:"sampling_rate"`
	CompletenessScoring bool    `yaml:"completeness_scoring"`
	ConsistencyChecks   bool    `yaml:"consistency_checks"`
	OutlierDetection    bool    `yaml:"outlier_detection"`
	AggregateScoring    bool    `yaml:"aggregate_scoring"`
}

type TerminologyValidation struct {
	Enabled               bool     `yaml:"enabled"`
	CodeSystems           []string `yaml:"code_systems"`
	CoverageReporting     bool     `yaml:"coverage_reporting"`
	UnmappedTermsCollection bool   `yaml:"unmapped_terms_collection"`
	ComplianceReports     bool     `yaml:"compliance_reports"`
}

type PerformanceTracking struct {
	Enabled                  bool `yaml:"enabled"`
	StepTiming               bool `yaml:"step_timing"`
	ResourceMonitoring       bool `yaml:"resource_monitoring"`
	BottleneckAnalysis       bool `yaml:"bottleneck_analysis"`
	OptimizationRecommendations bool `yaml:"optimization_recommendations"`
}

type SystemMetrics struct {
	Enabled                   bool `yaml:"enabled"`
	HardwareDetection         bool `yaml:"hardware_detection"`
	ResourceUtilization       bool `yaml:"resource_utilization"`
	GPUDetection              bool `yaml:"gpu_detection"`
	OSDetection               bool `yaml:"os_detection"`
	InfrastructureRecommendations bool `yaml:"infrastructure_recommendations"`
}

// Persistence is the persistence.database.* tree; engine-specific
// fields beyond Type apply only to the selected engine.
type Persistence struct {
	Database Database `yaml:"database"`
}

type Database struct {
	Type string `yaml:"type"` // sqlite, postgresql, mongodb

	// sqlite / postgresql
	Path string `yaml:"path,omitempty"`
	DSN  string `yaml:"dsn,omitempty"`

	// document engine (mongodb)
	Host        string `yaml:"host,omitempty"`
	Port        int    `yaml:"port,omitempty"`
	DatabaseName string `yaml:"database,omitempty"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TLS         bool   `yaml:"tls,omitempty"`
	TLSCAFile   string `yaml:"tls_ca_file,omitempty"`
	TLSCertFile string `yaml:"tls_cert_file,omitempty"`
	ReplicaSet  string `yaml:"replica_set,omitempty"`
	AuthSource  string `yaml:"auth_source,omitempty"`
}

// Adapter is the adapter.* tree configuring the ingestion source.
type Adapter struct {
	Type         string   `yaml:"type"` // currently only "file_watcher"
	WatchPath    string   `yaml:"watch_path"`
	Extensions   []string `yaml:"extensions"`
	Continuous   bool     `yaml:"continuous"`
	ScanInterval string   `yaml:"scan_interval"`
}

var validDatabaseTypes = map[string]bool{"sqlite": true, "postgresql": true, "mongodb": true}
var validPerformanceModes = map[string]bool{"fast": true, "standard": true, "comprehensive": true}
var validDetailLevels = map[string]bool{"minimal": true, "standard": true, "comprehensive": true}
var validExportFormats = map[string]bool{"json": true, "csv": true, "xlsx": true, "yaml": true}
var validCodeSystems = map[string]bool{"icd10": true, "icd9": true, "snomed": true, "rxnorm": true, "loinc": true, "cpt": true, "hcpcs": true}

// Default returns a Config with every documented default applied,
// mirroring UnifiedBusinessConfig.ApplyDefaults's per-concern defaulting.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.DataIntelligence.PerformanceMode == "" {
		c.DataIntelligence.PerformanceMode = "standard"
	}
	if c.DataIntelligence.Sampling.Rate == 0 {
		c.DataIntelligence.Sampling.Rate = 1.0
	}
	if c.DataIntelligence.Sampling.MinimumBatchSize == 0 {
		c.DataIntelligence.Sampling.MinimumBatchSize = 1
	}
	if len(c.DataIntelligence.Features.IngestionTracking.ExportFormats) == 0 {
		c.DataIntelligence.Features.IngestionTracking.ExportFormats = []string{"json"}
	}
	if c.DataIntelligence.Features.AuditTrail.DetailLevel == "" {
		c.DataIntelligence.Features.AuditTrail.DetailLevel = "standard"
	}
	if c.Adapter.Type == "" {
		c.Adapter.Type = "file_watcher"
	}
	if len(c.Adapter.Extensions) == 0 {
		c.Adapter.Extensions = []string{".json"}
	}
	if c.Adapter.ScanInterval == "" {
		c.Adapter.ScanInterval = "1s"
	}
	if c.Persistence.Database.Type == "" {
		c.Persistence.Database.Type = "sqlite"
	}
}

// Load reads path as YAML into a Config, applying defaults and then
// validating. A missing file yields a default Config, matching
// RuntimeConfigManager.LoadConfiguration's "file absent -> empty
// config" behavior.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects any recognized key whose value falls outside its
// documented domain, returning a *ConfigurationError naming the path.
func (c *Config) Validate() error {
	if !validPerformanceModes[c.DataIntelligence.PerformanceMode] {
		return &ConfigurationError{Path: "data_intelligence.performance_mode", Reason: fmt.Sprintf("must be one of fast/standard/comprehensive, got %q", c.DataIntelligence.PerformanceMode)}
	}
	if r := c.DataIntelligence.Sampling.Rate; r < 0 || r > 1 {
		return &ConfigurationError{Path: "data_intelligence.sampling.rate", Reason: fmt.Sprintf("must be in [0,1], got %v", r)}
	}
	if c.DataIntelligence.Sampling.MinimumBatchSize < 1 {
		return &ConfigurationError{Path: "data_intelligence.sampling.minimum_batch_size", Reason: "must be >= 1"}
	}
	for _, f := range c.DataIntelligence.Features.IngestionTracking.ExportFormats {
		if !validExportFormats[f] {
			return &ConfigurationError{Path: "data_intelligence.features.ingestion_tracking.export_formats", Reason: fmt.Sprintf("unrecognized format %q", f)}
		}
	}
	if !validDetailLevels[c.DataIntelligence.Features.AuditTrail.DetailLevel] {
		return &ConfigurationError{Path: "data_intelligence.features.audit_trail.detail_level", Reason: fmt.Sprintf("must be one of minimal/standard/comprehensive, got %q", c.DataIntelligence.Features.AuditTrail.DetailLevel)}
	}
	if r := c.DataIntelligence.Features.QualityScoring.SamplingRate; r < 0 || r > 1 {
		return &ConfigurationError{Path: "data_intelligence.features.quality_scoring.sampling_rate", Reason: fmt.Sprintf("must be in [0,1], got %v", r)}
	}
	for _, cs := range c.DataIntelligence.Features.TerminologyValidation.CodeSystems {
		if !validCodeSystems[cs] {
			return &ConfigurationError{Path: "data_intelligence.features.terminology_validation.code_systems", Reason: fmt.Sprintf("unrecognized code system %q", cs)}
		}
	}
	if !validDatabaseTypes[c.Persistence.Database.Type] {
		return &ConfigurationError{Path: "persistence.database.type", Reason: fmt.Sprintf("must be one of sqlite/postgresql/mongodb, got %q", c.Persistence.Database.Type)}
	}
	if c.Adapter.Type != "file_watcher" {
		return &ConfigurationError{Path: "adapter.type", Reason: fmt.Sprintf("unrecognized adapter type %q", c.Adapter.Type)}
	}
	return nil
}
