// Package registry maps connector type names to factories. Connector
// packages register themselves from init; callers import them for side
// effects and then build instances by name:
//
//	import _ "github.com/ajitpratap0/nebula-migrate/pkg/connector/postgres"
//
//	conn, err := registry.Create(cfg) // cfg.Type == "postgres"
package registry

import (
	"sort"
	"sync"

	"github.com/ajitpratap0/nebula-migrate/pkg/config"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/core"
	"github.com/ajitpratap0/nebula-migrate/pkg/errors"
	"github.com/ajitpratap0/nebula-migrate/pkg/logger"
	"go.uber.org/zap"
)

// Factory creates a connector instance from its configuration. The returned
// connector is constructed but not connected.
type Factory func(cfg *config.ConnectorConfig) (core.Connector, error)

// Registry manages connector registration and instantiation
type Registry struct {
	factories map[string]Factory
	infos     map[string]*ConnectorInfo
	mu        sync.RWMutex
	logger    *zap.Logger
}

// ConnectorInfo provides information about a connector type
type ConnectorInfo struct {
	Name         string                 `json:"name"`
	Description  string                 `json:"description"`
	Version      string                 `json:"version"`
	Capabilities []string               `json:"capabilities"`
	ConfigSchema map[string]interface{} `json:"config_schema"`
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates a new connector registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		infos:     make(map[string]*ConnectorInfo),
		logger:    logger.Get().With(zap.String("component", "connector_registry")),
	}
}

// Register registers a connector factory under name. Registering the same
// name twice is a config error.
func (r *Registry) Register(name string, factory Factory, info *ConnectorInfo) error {
	if name == "" || factory == nil {
		return errors.New(errors.ErrorTypeConfig, "connector name and factory are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return errors.Newf(errors.ErrorTypeConfig, "connector %s already registered", name)
	}

	r.factories[name] = factory
	if info != nil {
		info.Name = name
		r.infos[name] = info
	}
	r.logger.Debug("connector registered", zap.String("name", name))
	return nil
}

// Create builds a connector for cfg.Type
func (r *Registry) Create(cfg *config.ConnectorConfig) (core.Connector, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "connector configuration cannot be nil")
	}

	r.mu.RLock()
	factory, exists := r.factories[cfg.Type]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "connector type %s not registered", cfg.Type)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid connector configuration")
	}

	conn, err := factory(cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create connector "+cfg.Type)
	}
	return conn, nil
}

// List returns the registered connector types, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has checks if a connector type is registered
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[name]
	return exists
}

// Info returns the metadata registered for a connector type
func (r *Registry) Info(name string) (*ConnectorInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.infos[name]
	return info, ok
}

// Clear removes all registered connectors (mainly for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories = make(map[string]Factory)
	r.infos = make(map[string]*ConnectorInfo)
}

// Global registry functions

// Register registers a connector in the global registry. It panics on a
// duplicate name, since registration happens from init.
func Register(name string, factory Factory, info *ConnectorInfo) {
	if err := globalRegistry.Register(name, factory, info); err != nil {
		panic(err)
	}
}

// Create creates a connector from the global registry
func Create(cfg *config.ConnectorConfig) (core.Connector, error) {
	return globalRegistry.Create(cfg)
}

// List returns registered types from the global registry
func List() []string {
	return globalRegistry.List()
}

// Has checks if a type is registered in the global registry
func Has(name string) bool {
	return globalRegistry.Has(name)
}

// Info returns connector metadata from the global registry
func Info(name string) (*ConnectorInfo, bool) {
	return globalRegistry.Info(name)
}

// GetRegistry returns the global registry instance.
func GetRegistry() *Registry {
	return globalRegistry
}
