// Package memory implements an in-process connector backed by maps of
// records. It is registered as "memory" and serves local dry runs, demos
// and tests; hooks allow injecting failures at each connector operation.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ajitpratap0/nebula-migrate/pkg/config"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/base"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/core"
	"github.com/ajitpratap0/nebula-migrate/pkg/errors"
	"github.com/ajitpratap0/nebula-migrate/pkg/models"
	"github.com/ajitpratap0/nebula-migrate/pkg/schema"
	"go.uber.org/zap"
)

// ConnectorType is the registry name of the memory connector
const ConnectorType = "memory"

// RejectFunc inspects a record while a load is staged. A non-nil error
// aborts the load and discards the staged batch.
type RejectFunc func(target string, index int, record models.Record) error

// Stats counts calls per operation
type Stats struct {
	Connects    int64
	Disconnects int64
	Extracts    int64
	Loads       int64
}

// Option configures a Connector
type Option func(*Connector)

// WithConnectError makes every Connect fail with err
func WithConnectError(err error) Option {
	return func(c *Connector) { c.connectErr = err }
}

// WithExtractError makes every ExtractData fail with err
func WithExtractError(err error) Option {
	return func(c *Connector) { c.extractErr = err }
}

// WithRejectFunc installs a per-record load hook
func WithRejectFunc(fn RejectFunc) Option {
	return func(c *Connector) { c.reject = fn }
}

// WithObject seeds an object with records
func WithObject(name string, records []models.Record) Option {
	return func(c *Connector) { c.put(name, cloneAll(records)) }
}

// Connector stores objects as ordered record slices
type Connector struct {
	*base.BaseConnector

	mu      sync.RWMutex
	objects map[string][]models.Record
	order   []string

	inferrer   *schema.TypeInferenceEngine
	connectErr error
	extractErr error
	reject     RejectFunc

	connects    atomic.Int64
	disconnects atomic.Int64
	extracts    atomic.Int64
	loads       atomic.Int64
}

// New creates a memory connector. cfg may be nil.
func New(cfg *config.ConnectorConfig, opts ...Option) *Connector {
	c := &Connector{
		BaseConnector: base.NewBaseConnector(ConnectorType, cfg),
		objects:       make(map[string][]models.Record),
	}
	c.inferrer = schema.NewTypeInferenceEngine(c.GetLogger())
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect marks the session live
func (c *Connector) Connect(ctx context.Context) error {
	c.connects.Add(1)
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "connect cancelled")
	}
	if c.connectErr != nil {
		return errors.Wrap(c.connectErr, errors.ErrorTypeConnection, "failed to connect to memory store")
	}
	c.MarkConnected()
	return nil
}

// Disconnect marks the session released
func (c *Connector) Disconnect(ctx context.Context) error {
	c.disconnects.Add(1)
	c.MarkDisconnected()
	return nil
}

// GetSchema infers one object per stored record set, in creation order
func (c *Connector) GetSchema(ctx context.Context) ([]core.SchemaObject, error) {
	if !c.IsConnected() {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	objects := make([]core.SchemaObject, 0, len(c.order))
	sampleSize := c.GetConfig().Performance.SampleSize
	for _, name := range c.order {
		records := c.objects[name]
		if sampleSize > 0 && len(records) > sampleSize {
			records = records[:sampleSize]
		}
		objects = append(objects, c.inferrer.InferObject(name, core.ObjectTypeCollection, records))
	}
	return objects, nil
}

// ExtractData returns copies of an object's records. Queries are not
// supported by this connector.
func (c *Connector) ExtractData(ctx context.Context, req core.ExtractRequest) ([]models.Record, error) {
	c.extracts.Add(1)
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !c.IsConnected() {
		return nil, errors.New(errors.ErrorTypeConnection, "not connected")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.extractErr != nil {
		return nil, c.extractErr
	}
	if req.Query != "" {
		return nil, errors.New(errors.ErrorTypeQuery, "memory connector does not support queries")
	}

	c.mu.RLock()
	records, ok := c.objects[req.ObjectName]
	c.mu.RUnlock()
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "object %s not found", req.ObjectName)
	}

	if req.Limit > 0 && len(records) > req.Limit {
		records = records[:req.Limit]
	}
	return cloneAll(records), nil
}

// LoadData appends records to target. The batch is staged on a copy and
// swapped in only after every record passed the reject hook.
func (c *Connector) LoadData(ctx context.Context, target string, records []models.Record) (int, error) {
	c.loads.Add(1)
	if !c.IsConnected() {
		return 0, errors.New(errors.ErrorTypeConnection, "not connected")
	}
	if len(records) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	existing := c.objects[target]
	staged := make([]models.Record, len(existing), len(existing)+len(records))
	copy(staged, existing)

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return 0, errors.Wrap(err, errors.ErrorTypeLoad, "load into "+target+" rolled back")
		}
		if c.reject != nil {
			if err := c.reject(target, i, rec); err != nil {
				c.GetLogger().Warn("load rolled back",
					zap.String("target", target),
					zap.Int("record_index", i),
					zap.Error(err))
				return 0, errors.Wrap(err, errors.ErrorTypeLoad, "load into "+target+" rolled back")
			}
		}
		staged = append(staged, rec.Clone())
	}

	c.putLocked(target, staged)
	return len(records), nil
}

// Records returns a copy of an object's records
func (c *Connector) Records(object string) []models.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneAll(c.objects[object])
}

// Stats returns call counters
func (c *Connector) Stats() Stats {
	return Stats{
		Connects:    c.connects.Load(),
		Disconnects: c.disconnects.Load(),
		Extracts:    c.extracts.Load(),
		Loads:       c.loads.Load(),
	}
}

func (c *Connector) put(name string, records []models.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(name, records)
}

func (c *Connector) putLocked(name string, records []models.Record) {
	if _, ok := c.objects[name]; !ok {
		c.order = append(c.order, name)
	}
	c.objects[name] = records
}

func cloneAll(records []models.Record) []models.Record {
	if records == nil {
		return nil
	}
	out := make([]models.Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
