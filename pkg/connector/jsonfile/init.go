package jsonfile

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
		Description:  "Local directory of JSON or JSON Lines files, optionally compressed",
		Version:      "1.0.0",
		Capabilities: []string{"extract", "load", "schema", "compression"},
		ConfigSchema: map[string]interface{}{
			"directory":   map[string]interface{}{"type": "string", "required": true},
			"create":      map[string]interface{}{"type": "bool", "default": true},
			"format":      map[string]interface{}{"type": "string", "enum": []string{"jsonl", "json"}, "default": "jsonl"},
			"compression": map[string]interface{}{"type": "string", "enum": []string{"none", "gzip", "snappy", "lz4", "zstd", "s2"}},
		},
	})
}
