// Package catalog keeps the connector instances created at runtime, keyed by
// id. It checks connectivity when an instance is created, serves schema
// lookups and lends connectors to migrations one run at a time.
package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ajitpratap0/nebula-migrate/pkg/config"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/base"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/core"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/registry"
	"github.com/ajitpratap0/nebula-migrate/pkg/errors"
	"github.com/ajitpratap0/nebula-migrate/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StatusConnected is recorded when the connection test succeeds. A failed
// test is recorded as "error: <message>".
const StatusConnected = "connected"

// Entry describes a stored connector
type Entry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Busy      bool      `json:"busy"`
	CreatedAt time.Time `json:"created_at"`
}

type entry struct {
	Entry
	connector core.Connector
}

// Catalog is safe for concurrent use
type Catalog struct {
	registry *registry.Registry
	logger   *zap.Logger

	mu      sync.RWMutex
	entries map[string]*entry
}

// New creates a catalog backed by reg; nil uses the global registry
func New(reg *registry.Registry) *Catalog {
	if reg == nil {
		reg = registry.GetRegistry()
	}
	return &Catalog{
		registry: reg,
		logger:   logger.Get().With(zap.String("component", "catalog")),
		entries:  make(map[string]*entry),
	}
}

// Create builds a connector from cfg, tests its connection and stores it.
// A failed connection test is not an error: the entry is stored with an
// error status. Unknown types and invalid configs are returned as errors.
func (c *Catalog) Create(ctx context.Context, cfg *config.ConnectorConfig) (Entry, error) {
	conn, err := c.registry.Create(cfg)
	if err != nil {
		return Entry{}, err
	}
	return c.Add(ctx, conn), nil
}

// Add stores an already constructed connector after testing its connection
func (c *Catalog) Add(ctx context.Context, conn core.Connector) Entry {
	status := StatusConnected
	if err := base.TestConnection(ctx, conn); err != nil {
		status = "error: " + err.Error()
	}

	e := &entry{
		Entry: Entry{
			ID:        uuid.New().String(),
			Name:      conn.Name(),
			Type:      conn.Type(),
			Status:    status,
			CreatedAt: time.Now(),
		},
		connector: conn,
	}

	c.mu.Lock()
	c.entries[e.ID] = e
	c.mu.Unlock()

	c.logger.Info("connector added",
		zap.String("id", e.ID),
		zap.String("type", e.Type),
		zap.String("status", status))
	return e.Entry
}

// Get returns the stored entry
func (c *Catalog) Get(id string) (Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[id]
	if !ok {
		return Entry{}, notFound(id)
	}
	return e.Entry, nil
}

// List returns all entries, oldest first
func (c *Catalog) List() []Entry {
	c.mu.RLock()
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.Entry)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Schema introspects a stored connector in its own session
func (c *Catalog) Schema(ctx context.Context, id string) ([]core.SchemaObject, error) {
	conns, release, err := c.Acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()

	return base.DiscoverSchema(ctx, conns[0])
}

// Acquire lends the connectors with the given ids to a single run. It fails
// with ErrorTypeConflict when any of them is busy or an id is repeated, and
// with ErrorTypeNotFound for unknown ids. release returns them.
func (c *Catalog) Acquire(ids ...string) ([]core.Connector, func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool, len(ids))
	entries := make([]*entry, 0, len(ids))
	for _, id := range ids {
		e, ok := c.entries[id]
		if !ok {
			return nil, nil, notFound(id)
		}
		if e.Busy || seen[id] {
			return nil, nil, errors.Newf(errors.ErrorTypeConflict, "connector %s is already in use", id)
		}
		seen[id] = true
		entries = append(entries, e)
	}

	conns := make([]core.Connector, len(entries))
	for i, e := range entries {
		e.Busy = true
		conns[i] = e.connector
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for _, e := range entries {
				e.Busy = false
			}
		})
	}
	return conns, release, nil
}

// Delete disconnects and removes a connector. Busy connectors cannot be
// deleted.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	e, ok := c.entries[id]
	if !ok {
		c.mu.Unlock()
		return notFound(id)
	}
	if e.Busy {
		c.mu.Unlock()
		return errors.Newf(errors.ErrorTypeConflict, "connector %s is in use", id)
	}
	delete(c.entries, id)
	c.mu.Unlock()

	if err := e.connector.Disconnect(ctx); err != nil {
		c.logger.Warn("disconnect on delete failed", zap.String("id", id), zap.Error(err))
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to disconnect connector "+id)
	}
	c.logger.Info("connector deleted", zap.String("id", id))
	return nil
}

func notFound(id string) error {
	return errors.Newf(errors.ErrorTypeNotFound, "connector %s not found", id)
}
