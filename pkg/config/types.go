package config

import (
	"time"

	"github.com/openfroyo/ppactl/pkg/engine"
	"github.com/openfroyo/ppactl/pkg/telemetry"
)

// Config is the ppactl configuration file.
type Config struct {
	// Archives names the PPAs packages move through.
	Archives ArchivesConfig `yaml:"archives"`

	// Distribution owns the PPAs and series (e.g. "ubuntu").
	Distribution string `yaml:"distribution" validate:"required"`

	// Whitelist is the set of source packages ppactl may copy.
	Whitelist []string `yaml:"whitelist" validate:"min=1,dive,required"`

	// Launchpad configures the web service client.
	Launchpad LaunchpadConfig `yaml:"launchpad"`

	// Wait holds the build waiter defaults.
	Wait WaitConfig `yaml:"wait"`

	// History configures the run history database.
	History HistoryConfig `yaml:"history"`

	Logging telemetry.LoggingConfig `yaml:"logging"`
	Metrics telemetry.MetricsConfig `yaml:"metrics"`
	Tracing telemetry.TracingConfig `yaml:"tracing"`
}

// ArchivesConfig names the staging and release PPAs of one owner.
type ArchivesConfig struct {
	// Owner is the Launchpad team or person owning both PPAs.
	Owner string `yaml:"owner" validate:"required"`

	// Proposed is the staging PPA.
	Proposed string `yaml:"proposed" validate:"required"`

	// Release is the public PPA.
	Release string `yaml:"release" validate:"required,nefield=Proposed"`
}

// LaunchpadConfig configures the Launchpad client.
type LaunchpadConfig struct {
	// APIRoot is the web service root URL.
	APIRoot string `yaml:"api_root" validate:"required,url"`

	// CredentialsFile is a launchpadlib credentials file. Empty means anonymous
	// access, which can read but not copy.
	CredentialsFile string `yaml:"credentials_file"`

	// RequestsPerSecond caps the request rate. Zero disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`

	// Burst is the number of requests allowed above the rate at once.
	Burst int `yaml:"burst" validate:"gte=0"`

	// Timeout bounds each HTTP request.
	Timeout time.Duration `yaml:"timeout" validate:"min=1s"`

	// Debug logs every HTTP request.
	Debug bool `yaml:"debug"`
}

// WaitConfig holds wait-for-builds defaults.
type WaitConfig struct {
	Interval time.Duration `yaml:"interval" validate:"min=1s"`
	Timeout  time.Duration `yaml:"timeout" validate:"min=1s"`
}

// HistoryConfig configures the run history database.
type HistoryConfig struct {
	// Path is the SQLite database file. Empty disables history.
	Path string `yaml:"path"`
}

// ProposedRef returns the staging archive.
func (c *Config) ProposedRef() engine.ArchiveRef {
	return engine.ArchiveRef{Owner: c.Archives.Owner, Name: c.Archives.Proposed}
}

// ReleaseRef returns the public archive.
func (c *Config) ReleaseRef() engine.ArchiveRef {
	return engine.ArchiveRef{Owner: c.Archives.Owner, Name: c.Archives.Release}
}

// ArchiveRef returns the archive called name under the configured owner.
func (c *Config) ArchiveRef(name string) engine.ArchiveRef {
	return engine.ArchiveRef{Owner: c.Archives.Owner, Name: name}
}

// Telemetry builds the telemetry configuration for a ppactl process.
func (c *Config) Telemetry(version string) *telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = version
	cfg.Logging = c.Logging
	cfg.Tracing = c.Tracing
	cfg.Metrics = c.Metrics
	return cfg
}
