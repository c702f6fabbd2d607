package postgres

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
		Description:  "PostgreSQL connector with connection pooling and transactional loads",
		Version:      "1.0.0",
		Capabilities: []string{"extract", "load", "schema", "custom_queries", "transactions"},
		ConfigSchema: map[string]interface{}{
			"connection_string": map[string]interface{}{
				"type":        "string",
				"required":    false,
				"description": "PostgreSQL DSN; replaces host, port, database, user and password",
			},
			"host":     map[string]interface{}{"type": "string", "required": false},
			"port":     map[string]interface{}{"type": "string", "default": "5432"},
			"database": map[string]interface{}{"type": "string", "required": false},
			"schema":   map[string]interface{}{"type": "string", "default": defaultSchema},
			"sslmode":  map[string]interface{}{"type": "string", "default": "prefer"},
		},
	})
}
