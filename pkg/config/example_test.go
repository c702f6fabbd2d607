package config_test

import (
	"fmt"

	"github.com/ajitpratap0/nebula-migrate/pkg/config"
)

// ExampleNewConnectorConfig demonstrates the defaults a connector starts with.
func ExampleNewConnectorConfig() {
	cfg := config.NewConnectorConfig("warehouse", "postgres")

	fmt.Printf("Connection Timeout: %s\n", cfg.Timeouts.Connection)
	fmt.Printf("Max Connections: %d\n", cfg.Performance.MaxConnections)
	fmt.Printf("Sample Size: %d\n", cfg.Performance.SampleSize)

	// Output:
	// Connection Timeout: 10s
	// Max Connections: 4
	// Sample Size: 100
}

// ExampleParse shows a job definition being read from YAML.
func ExampleParse() {
	doc := []byte(`
source: {name: legacy, type: memory}
target: {name: crm, type: memory}
source_object: customers
target_object: contacts
mappings:
  - {source_field: name, target_field: NAME, transformation: upper}
`)

	var job config.JobConfig
	if err := config.Parse(doc, &job); err != nil {
		fmt.Println(err)
		return
	}
	job.ApplyDefaults()

	fmt.Println(job.Source.Type, "->", job.Target.Type)
	fmt.Println(job.BatchSize)
	fmt.Println(job.Mappings[0].Transformation)

	// Output:
	// memory -> memory
	// 1000
	// upper
}
