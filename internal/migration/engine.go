// Package migration runs a single source-to-target migration: connect both
// connectors, extract the source object, apply the field mappings and load
// the result into the target object in batches.
//
// # Basic Usage
//
//	cfg, err := migration.NewConfig(src, dst, "customers", "customers_copy",
//	    []transform.Mapping{{SourceField: "name", TargetField: "NAME", Transformation: "upper"}},
//	    500)
//	if err != nil {
//	    return err
//	}
//	result := migration.NewEngine().Run(ctx, cfg)
//	if !result.Succeeded() {
//	    log.Printf("migration failed: %s", result.Error)
//	}
//
// Run never returns an error; failures are reported through Result.Status
// and Result.Error. Both connectors are disconnected on every exit path.
package migration

import (
	"context"
	"time"

	"github.com/ajitpratap0/nebula-migrate/pkg/connector/core"
	"github.com/ajitpratap0/nebula-migrate/pkg/errors"
	"github.com/ajitpratap0/nebula-migrate/pkg/logger"
	"github.com/ajitpratap0/nebula-migrate/pkg/metrics"
	"github.com/ajitpratap0/nebula-migrate/pkg/models"
	"github.com/ajitpratap0/nebula-migrate/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Engine executes migrations. An Engine holds no per-run state and may run
// several migrations concurrently as long as they use distinct connectors.
type Engine struct {
	logger   *zap.Logger
	observer StateObserver
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithStateObserver registers a callback for state transitions
func WithStateObserver(fn StateObserver) Option {
	return func(e *Engine) { e.observer = fn }
}

// NewEngine creates an engine
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger: logger.Get().With(zap.String("component", "migration_engine")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run carries the per-run state through the stages
type run struct {
	engine *Engine
	cfg    Config
	result *Result
	logger *zap.Logger
}

// Run executes cfg and returns its result
func (e *Engine) Run(ctx context.Context, cfg Config) *Result {
	r := &run{
		engine: e,
		cfg:    cfg,
		result: &Result{State: StateIdle, StartedAt: time.Now()},
		logger: e.logger.With(
			zap.String("source_object", cfg.SourceObject),
			zap.String("target_object", cfg.TargetObject)),
	}
	if jobID, ok := logger.JobID(ctx); ok {
		r.logger = r.logger.With(zap.String("job_id", jobID))
	}

	ctx, span := observability.StartSpan(ctx, "migration.run",
		attribute.String("migration.source_object", cfg.SourceObject),
		attribute.String("migration.target_object", cfg.TargetObject),
		attribute.Int("migration.batch_size", cfg.EffectiveBatchSize()))

	metrics.JobsInFlight.Inc()
	defer metrics.JobsInFlight.Dec()

	err := r.execute(ctx)

	res := r.result
	res.CompletedAt = time.Now()
	if err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
		res.FailedStage = res.State
		r.transition(StateFailed)
		r.logger.Error("migration failed",
			zap.Error(err),
			zap.String("failed_stage", string(res.FailedStage)),
			zap.Int("processed_records", res.ProcessedRecords),
			zap.Int("success_count", res.SuccessCount))
	} else {
		res.Status = StatusCompleted
		r.transition(StateCompleted)
		r.logger.Info("migration completed",
			zap.Int("total_records", res.TotalRecords),
			zap.Int("batches", res.Batches),
			zap.Duration("duration", res.Duration()))
	}

	span.SetAttributes(
		attribute.Int("migration.total_records", res.TotalRecords),
		attribute.Int("migration.processed_records", res.ProcessedRecords),
		attribute.Int("migration.success_count", res.SuccessCount))
	observability.EndSpan(span, err)
	metrics.MigrationRuns.WithLabelValues(res.Status).Inc()

	return res
}

func (r *run) execute(ctx context.Context) error {
	pipeline, err := r.cfg.compile()
	if err != nil {
		return err
	}

	src, dst := r.cfg.Source, r.cfg.Target

	r.transition(StateConnecting)
	defer r.disconnect(ctx, dst)
	defer r.disconnect(ctx, src)

	if err := r.stage(ctx, "connect", src, "", func(ctx context.Context) error {
		return src.Connect(ctx)
	}); err != nil {
		return err
	}
	if err := r.stage(ctx, "connect", dst, "", func(ctx context.Context) error {
		return dst.Connect(ctx)
	}); err != nil {
		return err
	}

	r.transition(StateExtracting)
	var records []models.Record
	if err := r.stage(ctx, "extract", src, r.cfg.SourceObject, func(ctx context.Context) error {
		var err error
		records, err = src.ExtractData(ctx, core.ObjectRequest(r.cfg.SourceObject))
		return err
	}); err != nil {
		return err
	}
	r.result.TotalRecords = len(records)
	r.logger.Debug("extracted records", zap.Int("count", len(records)))

	r.transition(StateTransforming)
	timer := metrics.NewTimer("transform")
	transformed := pipeline.Apply(records)
	timer.ObserveStage()

	r.transition(StateLoading)
	for i, batch := range models.Partition(transformed, r.cfg.EffectiveBatchSize()) {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeTimeout, "migration cancelled")
		}
		if err := r.loadBatch(ctx, i, batch); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) loadBatch(ctx context.Context, index int, batch []models.Record) error {
	dst := r.cfg.Target
	var loaded int
	err := r.stage(ctx, "load", dst, r.cfg.TargetObject, func(ctx context.Context) error {
		var err error
		loaded, err = dst.LoadData(ctx, r.cfg.TargetObject, batch)
		return err
	})

	status := metrics.Status(err)
	metrics.BatchesLoaded.WithLabelValues(dst.Type(), status).Inc()
	if err != nil {
		metrics.RecordsProcessed.WithLabelValues(dst.Type(), status).Add(float64(len(batch)))
		return err
	}

	metrics.RecordsProcessed.WithLabelValues(dst.Type(), status).Add(float64(loaded))
	r.result.recordBatch(len(batch), loaded)
	r.logger.Debug("batch loaded",
		zap.Int("batch", index),
		zap.Int("size", len(batch)),
		zap.Int("loaded", loaded))
	return nil
}

// stage runs one connector call inside a span and records its duration
func (r *run) stage(ctx context.Context, name string, c core.Connector, object string, fn func(ctx context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, "migration."+name,
		observability.ConnectorAttributes(c.Type(), c.Name(), object)...)
	timer := metrics.NewTimer(name)

	err := fn(ctx)

	timer.ObserveStage()
	observability.EndSpan(span, err)
	return err
}

func (r *run) disconnect(ctx context.Context, c core.Connector) {
	if err := c.Disconnect(context.WithoutCancel(ctx)); err != nil {
		r.logger.Warn("disconnect failed",
			zap.String("connector", c.Name()),
			zap.Error(err))
	}
}

func (r *run) transition(to State) {
	from := r.result.State
	if from == to {
		return
	}
	r.result.State = to
	r.logger.Debug("state transition",
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	if r.engine.observer != nil {
		r.engine.observer(from, to)
	}
}
