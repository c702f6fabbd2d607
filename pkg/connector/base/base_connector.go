// Package base provides the foundation every bundled connector embeds:
// identity, configuration, a scoped logger, session state and the timeout
// contexts derived from ConnectorConfig.
//
// # Usage
//
//	type MyConnector struct {
//	    *base.BaseConnector
//	    // connector-specific fields
//	}
//
//	func NewMyConnector(cfg *config.ConnectorConfig) (core.Connector, error) {
//	    return &MyConnector{BaseConnector: base.NewBaseConnector("my-type", cfg)}, nil
//	}
//
// Connect implementations call MarkConnected after the session is live;
// Disconnect implementations return early when IsConnected is false and call
// MarkDisconnected once resources are released.
package base

import (
	"context"
	"sync"

	"github.com/ajitpratap0/nebula-migrate/pkg/config"
	"github.com/ajitpratap0/nebula-migrate/pkg/logger"
	"github.com/ajitpratap0/nebula-migrate/pkg/metrics"
	"go.uber.org/zap"
)

// BaseConnector carries the state shared by all connectors.
type BaseConnector struct {
	name          string
	connectorType string
	config        *config.ConnectorConfig
	logger        *zap.Logger

	mu        sync.Mutex
	connected bool
}

// NewBaseConnector creates the base for a connector of the given registered
// type. A nil cfg is replaced by defaults named after the type.
func NewBaseConnector(connectorType string, cfg *config.ConnectorConfig) *BaseConnector {
	if cfg == nil {
		cfg = config.NewConnectorConfig(connectorType, connectorType)
	}
	cfg.ApplyDefaults()

	name := cfg.Name
	if name == "" {
		name = connectorType
	}

	return &BaseConnector{
		name:          name,
		connectorType: connectorType,
		config:        cfg,
		logger: logger.Get().With(
			zap.String("connector", name),
			zap.String("connector_type", connectorType),
		),
	}
}

// Name returns the connector instance name
func (bc *BaseConnector) Name() string {
	return bc.name
}

// Type returns the registered connector type
func (bc *BaseConnector) Type() string {
	return bc.connectorType
}

// GetConfig returns the connector configuration
func (bc *BaseConnector) GetConfig() *config.ConnectorConfig {
	return bc.config
}

// GetLogger returns the connector-scoped logger
func (bc *BaseConnector) GetLogger() *zap.Logger {
	return bc.logger
}

// IsConnected reports whether a session is live
func (bc *BaseConnector) IsConnected() bool {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.connected
}

// MarkConnected records that the session is live
func (bc *BaseConnector) MarkConnected() {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if !bc.connected {
		bc.connected = true
		metrics.ActiveConnections.WithLabelValues(bc.connectorType).Inc()
		bc.logger.Debug("connected")
	}
}

// MarkDisconnected records that the session was released
func (bc *BaseConnector) MarkDisconnected() {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if bc.connected {
		bc.connected = false
		metrics.ActiveConnections.WithLabelValues(bc.connectorType).Dec()
		bc.logger.Debug("disconnected")
	}
}

// ConnectContext bounds session establishment by Timeouts.Connection
func (bc *BaseConnector) ConnectContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d := bc.config.Timeouts.Connection; d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// RequestContext bounds a single extract or load call by Timeouts.Request.
// A zero Request timeout leaves ctx unbounded.
func (bc *BaseConnector) RequestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d := bc.config.Timeouts.Request; d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}
