package config

import (
	"fmt"
	"time"
)

// ConnectorConfig is the single configuration structure every connector is
// built from. The registry picks the factory by Type; the factory reads the
// sections it understands.
type ConnectorConfig struct {
	// Name identifies the connector instance
	Name string `yaml:"name" json:"name"`
	// Type selects the registered connector (e.g., "postgres", "mongodb", "s3")
	Type string `yaml:"type" json:"type"`

	// Credentials holds connection secrets (DSNs, passwords, access keys).
	// Use ${VAR} substitution rather than literal secrets in files.
	Credentials map[string]string `yaml:"credentials" json:"credentials"`
	// ConnectionParams holds non-secret connector options (schema, region,
	// compression, directory, ...)
	ConnectionParams map[string]string `yaml:"connection_params" json:"connection_params"`

	// Timeouts define various timeout durations
	Timeouts TimeoutConfig `yaml:"timeouts" json:"timeouts"`

	// Performance settings control connection pooling and sampling
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
}

// TimeoutConfig contains all timeout-related settings.
type TimeoutConfig struct {
	// Connection timeout for establishing a session
	Connection time.Duration `yaml:"connection" json:"connection"`
	// Request timeout for individual extract/load calls (0 = none)
	Request time.Duration `yaml:"request" json:"request"`
	// Idle timeout before pooled connections are closed
	Idle time.Duration `yaml:"idle" json:"idle"`
}

// PerformanceConfig contains connector performance settings.
type PerformanceConfig struct {
	// MaxConnections caps pooled connections for SQL connectors
	MaxConnections int `yaml:"max_connections" json:"max_connections"`
	// SampleSize bounds how many records schemaless connectors read to infer a schema
	SampleSize int `yaml:"sample_size" json:"sample_size"`
}

// NewConnectorConfig creates a ConnectorConfig with defaults filled in.
//
// Example:
//
//	cfg := config.NewConnectorConfig("crm", "postgres")
//	cfg.Credentials["connection_string"] = os.Getenv("CRM_DSN")
func NewConnectorConfig(name, connectorType string) *ConnectorConfig {
	cfg := &ConnectorConfig{
		Name:             name,
		Type:             connectorType,
		Credentials:      make(map[string]string),
		ConnectionParams: make(map[string]string),
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values with production defaults
func (c *ConnectorConfig) ApplyDefaults() {
	if c.Credentials == nil {
		c.Credentials = make(map[string]string)
	}
	if c.ConnectionParams == nil {
		c.ConnectionParams = make(map[string]string)
	}
	if c.Timeouts.Connection <= 0 {
		c.Timeouts.Connection = 10 * time.Second
	}
	if c.Timeouts.Idle <= 0 {
		c.Timeouts.Idle = 5 * time.Minute
	}
	if c.Performance.MaxConnections <= 0 {
		c.Performance.MaxConnections = 4
	}
	if c.Performance.SampleSize <= 0 {
		c.Performance.SampleSize = 100
	}
}

// Validate checks the configuration for required fields
func (c *ConnectorConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("connector name is required")
	}
	if c.Type == "" {
		return fmt.Errorf("connector %s: type is required", c.Name)
	}
	if c.Timeouts.Connection < 0 || c.Timeouts.Request < 0 {
		return fmt.Errorf("connector %s: timeouts must not be negative", c.Name)
	}
	return nil
}

// Credential returns a credential value, or def when unset
func (c *ConnectorConfig) Credential(key, def string) string {
	if v, ok := c.Credentials[key]; ok && v != "" {
		return v
	}
	return def
}

// Param returns a connection parameter, or def when unset
func (c *ConnectorConfig) Param(key, def string) string {
	if v, ok := c.ConnectionParams[key]; ok && v != "" {
		return v
	}
	return def
}
