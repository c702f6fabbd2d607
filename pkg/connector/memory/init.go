package memory

import (
	"github.com/ajitpratap0/nebula-migrate/pkg/config"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/core"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/registry"
)

func init() {
	registry.Register(ConnectorType, func(cfg *config.ConnectorConfig) (core.Connector, error) {
		return New(cfg), nil
	}, &registry.ConnectorInfo{
		Description:  "In-process record store for dry runs and tests",
		Version:      "1.0.0",
		Capabilities: []string{"extract", "load", "schema"},
		ConfigSchema: map[string]interface{}{},
	})
}
