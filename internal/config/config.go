// Package config defines importer configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file, PDMIMPORT_* env vars and
//   command line flags, in that order.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// DumpPath is the pre-decoded pump dump to import.
	DumpPath string `koanf:"dump_path"`

	// ResultPath is the audit log, truncated at the start of every run.
	ResultPath string `koanf:"result_path"`

	// CredentialsPath holds "user:password" for the store connection string.
	CredentialsPath string `koanf:"credentials_path"`

	// StoreDriver is "mongo" or "memory".
	StoreDriver string `koanf:"store_driver"`

	// MongoURI overrides the connection string built from credentials.
	MongoURI string `koanf:"mongo_uri"`

	// MongoHost is the SRV host used with CredentialsPath.
	MongoHost string `koanf:"mongo_host"`

	// Database and collection names.
	Database             string `koanf:"database"`
	GlucoseCollection    string `koanf:"glucose_collection"`
	TreatmentsCollection string `koanf:"treatments_collection"`
	StatusCollection     string `koanf:"status_collection"`

	// Commit enables writes. When false the run is a dry run.
	Commit bool `koanf:"commit"`

	// Purge deletes prior pump documents before importing. Requires Commit.
	Purge bool `koanf:"purge"`

	// Bootstrap imports everything when no prior download event exists.
	Bootstrap bool `koanf:"bootstrap"`

	// StoreTimeoutMS bounds connecting to the store.
	StoreTimeoutMS int `koanf:"store_timeout_ms"`

	// PushgatewayURL, when set, receives the run's metrics.
	PushgatewayURL string `koanf:"pushgateway_url"`

	// MetricsJob is the Pushgateway job name.
	MetricsJob string `koanf:"metrics_job"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		DumpPath:             "dump.jsonl",
		ResultPath:           "result.json",
		CredentialsPath:      "secrets",
		StoreDriver:          DriverMongo,
		MongoHost:            "cluster0-xtbt8.mongodb.net",
		Database:             "cgm",
		GlucoseCollection:    "bg",
		TreatmentsCollection: "treatments",
		StatusCollection:     "devicestatus",
		StoreTimeoutMS:       30_000,
		MetricsJob:           "pdmimport",
	}
}

// StoreTimeout returns StoreTimeoutMS as a duration.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutMS) * time.Millisecond
}

// Validate checks the configuration for values the importer cannot run with.
func (c *Config) Validate() error {
	required := map[string]string{
		"dump_path":             c.DumpPath,
		"result_path":           c.ResultPath,
		"database":              c.Database,
		"glucose_collection":    c.GlucoseCollection,
		"treatments_collection": c.TreatmentsCollection,
		"status_collection":     c.StatusCollection,
	}
	for key, v := range required {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s must not be empty", ErrInvalidConfig, key)
		}
	}
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" && (c.CredentialsPath == "" || c.MongoHost == "") {
			return fmt.Errorf("%w: mongo_uri or credentials_path and mongo_host are required", ErrInvalidConfig)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	if c.StoreTimeoutMS <= 0 {
		return fmt.Errorf("%w: store_timeout_ms must be positive", ErrInvalidConfig)
	}
	if c.PushgatewayURL != "" {
		if _, err := url.ParseRequestURI(c.PushgatewayURL); err != nil {
			return fmt.Errorf("%w: pushgateway_url: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// StoreURI returns the connection string. MongoURI wins when set; otherwise
// the trimmed contents of CredentialsPath are embedded in an SRV URI.
func (c *Config) StoreURI() (string, error) {
	if c.MongoURI != "" {
		return c.MongoURI, nil
	}
	b, err := os.ReadFile(c.CredentialsPath)
	if err != nil {
		return "", fmt.Errorf("%w: read credentials: %w", ErrCredentials, err)
	}
	creds := strings.TrimSpace(string(b))
	if creds == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrCredentials, c.CredentialsPath)
	}
	return fmt.Sprintf("mongodb+srv://%s@%s/%s?retryWrites=true&w=majority", creds, c.MongoHost, c.Database), nil
}
