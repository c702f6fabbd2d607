package config

import "fmt"

// DefaultBatchSize is used when a job leaves batch_size unset
const DefaultBatchSize = 1000

// JobConfig describes one migration as it is written in a job file.
//
//	source:
//	  name: legacy
//	  type: postgres
//	  credentials:
//	    connection_string: ${LEGACY_DSN}
//	target:
//	  name: crm
//	  type: mongodb
//	  credentials:
//	    uri: ${CRM_URI}
//	  connection_params:
//	    database: crm
//	source_object: public.customers
//	target_object: contacts
//	batch_size: 500
//	mappings:
//	  - source_field: name
//	    target_field: full_name
//	    transformation: strip
type JobConfig struct {
	Source       ConnectorConfig `yaml:"source" json:"source"`
	Target       ConnectorConfig `yaml:"target" json:"target"`
	SourceObject string          `yaml:"source_object" json:"source_object"`
	TargetObject string          `yaml:"target_object" json:"target_object"`
	Mappings     []MappingConfig `yaml:"mappings" json:"mappings"`
	BatchSize    int             `yaml:"batch_size" json:"batch_size"`
}

// MappingConfig is the file representation of a field mapping
type MappingConfig struct {
	SourceField    string `yaml:"source_field" json:"source_field"`
	TargetField    string `yaml:"target_field" json:"target_field"`
	Transformation string `yaml:"transformation,omitempty" json:"transformation,omitempty"`
}

// ApplyDefaults fills zero values for the job and both connectors
func (j *JobConfig) ApplyDefaults() {
	if j.BatchSize == 0 {
		j.BatchSize = DefaultBatchSize
	}
	j.Source.ApplyDefaults()
	j.Target.ApplyDefaults()
}

// Validate checks the structural fields of a job file. Transformation names
// are checked later, when the mappings are compiled.
func (j *JobConfig) Validate() error {
	if err := j.Source.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := j.Target.Validate(); err != nil {
		return fmt.Errorf("target: %w", err)
	}
	if j.SourceObject == "" {
		return fmt.Errorf("source_object is required")
	}
	if j.TargetObject == "" {
		return fmt.Errorf("target_object is required")
	}
	if j.BatchSize < 0 {
		return fmt.Errorf("batch_size must be positive, got %d", j.BatchSize)
	}
	if len(j.Mappings) == 0 {
		return fmt.Errorf("at least one mapping is required")
	}
	for i, m := range j.Mappings {
		if m.SourceField == "" || m.TargetField == "" {
			return fmt.Errorf("mapping %d: source_field and target_field are required", i)
		}
	}
	return nil
}
