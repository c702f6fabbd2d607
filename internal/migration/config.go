package migration

import (
	"github.com/ajitpratap0/nebula-migrate/pkg/config"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/core"
	"github.com/ajitpratap0/nebula-migrate/pkg/errors"
	"github.com/ajitpratap0/nebula-migrate/pkg/transform"
)

// Config describes one migration run. The engine never modifies it.
type Config struct {
	Source       core.Connector
	Target       core.Connector
	SourceObject string
	TargetObject string
	Mappings     []transform.Mapping
	// BatchSize caps records per LoadData call; zero means config.DefaultBatchSize
	BatchSize int
}

// NewConfig builds and validates a Config
func NewConfig(source, target core.Connector, sourceObject, targetObject string, mappings []transform.Mapping, batchSize int) (Config, error) {
	cfg := Config{
		Source:       source,
		Target:       target,
		SourceObject: sourceObject,
		TargetObject: targetObject,
		Mappings:     mappings,
		BatchSize:    batchSize,
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = config.DefaultBatchSize
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromJob builds a Config from a job file and the connectors created for it
func FromJob(job *config.JobConfig, source, target core.Connector) (Config, error) {
	if job == nil {
		return Config{}, errors.New(errors.ErrorTypeConfig, "job configuration cannot be nil")
	}
	return NewConfig(source, target, job.SourceObject, job.TargetObject,
		transform.FromConfig(job.Mappings), job.BatchSize)
}

// Validate checks the config without touching either connector
func (c Config) Validate() error {
	_, err := c.compile()
	return err
}

// EffectiveBatchSize returns BatchSize with the default applied
func (c Config) EffectiveBatchSize() int {
	if c.BatchSize == 0 {
		return config.DefaultBatchSize
	}
	return c.BatchSize
}

func (c Config) compile() (*transform.Pipeline, error) {
	switch {
	case c.Source == nil || c.Target == nil:
		return nil, errors.New(errors.ErrorTypeValidation, "source and target connectors are required")
	case c.SourceObject == "":
		return nil, errors.New(errors.ErrorTypeValidation, "source object is required")
	case c.TargetObject == "":
		return nil, errors.New(errors.ErrorTypeValidation, "target object is required")
	case c.BatchSize < 0:
		return nil, errors.Newf(errors.ErrorTypeValidation, "batch size must be positive, got %d", c.BatchSize)
	}
	return transform.Compile(c.Mappings)
}
