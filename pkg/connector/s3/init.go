package s3

import (
	"github.com/ajitpratap0/nebula-migrate/pkg/config"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/core"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/registry"
)

func init() {
	registry.Register(ConnectorType, func(cfg *config.ConnectorConfig) (core.Connector, error) {
		c, err := New(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}, &registry.ConnectorInfo{
		Description:  "Amazon S3 (and S3-compatible) connector storing JSON part files per object prefix",
		Version:      "1.0.0",
		Capabilities: []string{"extract", "load", "schema", "compression"},
		ConfigSchema: map[string]interface{}{
			"bucket":      map[string]interface{}{"type": "string", "required": true},
			"prefix":      map[string]interface{}{"type": "string"},
			"region":      map[string]interface{}{"type": "string", "default": "us-east-1"},
			"endpoint":    map[string]interface{}{"type": "string", "description": "custom endpoint for S3-compatible stores"},
			"format":      map[string]interface{}{"type": "string", "enum": []string{"jsonl", "json"}, "default": "jsonl"},
			"compression": map[string]interface{}{"type": "string", "enum": []string{"none", "gzip", "snappy", "lz4", "zstd", "s2"}},
		},
	})
}
