package mongodb

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
		Description:  "MongoDB connector with sampled schema inference and transactional loads",
		Version:      "1.0.0",
		Capabilities: []string{"extract", "load", "schema", "custom_queries", "transactions"},
		ConfigSchema: map[string]interface{}{
			"connection_string": map[string]interface{}{
				"type":        "string",
				"required":    true,
				"description": "MongoDB connection URI",
			},
			"database":     map[string]interface{}{"type": "string", "required": true},
			"transactions": map[string]interface{}{"type": "bool", "default": true},
		},
	})
}
