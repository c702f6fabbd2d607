package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-migrate/internal/catalog"
	"github.com/ajitpratap0/nebula-migrate/internal/migration"
	"github.com/ajitpratap0/nebula-migrate/internal/scheduler"
	"github.com/ajitpratap0/nebula-migrate/pkg/config"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/registry"
	jsonpool "github.com/ajitpratap0/nebula-migrate/pkg/json"
	"github.com/ajitpratap0/nebula-migrate/pkg/logger"
	"github.com/ajitpratap0/nebula-migrate/pkg/metrics"
)

const pollInterval = 200 * time.Millisecond

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "migrate v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available connectors",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Available Connectors:")
			for _, name := range registry.List() {
				info, ok := registry.Info(name)
				if !ok {
					fmt.Fprintf(out, "  - %s\n", name)
					continue
				}
				fmt.Fprintf(out, "  - %-10s %s %v\n", name, info.Description, info.Capabilities)
			}
		},
	}
}

func newTestCmd() *cobra.Command {
	var connectorFile string
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test a connector's connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConnector(connectorFile)
			if err != nil {
				return err
			}

			entry, err := catalog.New(nil).Create(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), entry); err != nil {
				return err
			}
			if entry.Status != catalog.StatusConnected {
				return fmt.Errorf("connection test failed for %s", cfg.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&connectorFile, "connector", "c", "", "Path to connector configuration YAML file (required)")
	_ = cmd.MarkFlagRequired("connector")
	return cmd
}

func newSchemaCmd() *cobra.Command {
	var connectorFile string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the objects and fields a connector exposes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConnector(connectorFile)
			if err != nil {
				return err
			}

			cat := catalog.New(nil)
			entry, err := cat.Create(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			objects, err := cat.Schema(cmd.Context(), entry.ID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), objects)
		},
	}
	cmd.Flags().StringVarP(&connectorFile, "connector", "c", "", "Path to connector configuration YAML file (required)")
	_ = cmd.MarkFlagRequired("connector")
	return cmd
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	var jobFile string
	var async bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a migration job",
		Long: `Run a migration described by a job file and print its final status as JSON.

Example:
  migrate run --job customers.yaml --async --metrics-addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if addr := v.GetString(keyMetricsAddr); addr != "" {
				shutdown := serveMetrics(addr)
				defer shutdown()
			}

			status, err := runJob(ctx, jobFile, async, v.GetInt(keyWorkers))
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), status); err != nil {
				return err
			}
			if status.Status != migration.StatusCompleted {
				reason := status.Status
				if status.Result != nil {
					reason = status.Result.Error
				}
				return fmt.Errorf("migration %s failed: %s", status.JobID, reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&jobFile, "job", "j", "", "Path to job configuration YAML file (required)")
	cmd.Flags().BoolVar(&async, "async", false, "Submit to the worker pool and poll for completion")
	_ = cmd.MarkFlagRequired("job")
	return cmd
}

// runJob creates both connectors, runs the migration and returns its final
// status. Interrupting ctx cancels the job.
func runJob(ctx context.Context, jobFile string, async bool, workers int) (scheduler.JobStatus, error) {
	job, err := config.LoadJob(jobFile)
	if err != nil {
		return scheduler.JobStatus{}, err
	}

	log := logger.Get().With(
		zap.String("component", "migrate-cli"),
		zap.String("source", job.Source.Type),
		zap.String("target", job.Target.Type),
	)

	cat := catalog.New(nil)
	src, err := cat.Create(ctx, &job.Source)
	if err != nil {
		return scheduler.JobStatus{}, fmt.Errorf("source connector: %w", err)
	}
	dst, err := cat.Create(ctx, &job.Target)
	if err != nil {
		return scheduler.JobStatus{}, fmt.Errorf("target connector: %w", err)
	}
	for _, e := range []catalog.Entry{src, dst} {
		if e.Status != catalog.StatusConnected {
			log.Warn("connection test failed", zap.String("connector", e.Name), zap.String("status", e.Status))
		}
	}

	conns, release, err := cat.Acquire(src.ID, dst.ID)
	if err != nil {
		return scheduler.JobStatus{}, err
	}
	defer release()

	cfg, err := migration.FromJob(job, conns[0], conns[1])
	if err != nil {
		return scheduler.JobStatus{}, err
	}

	sched := scheduler.New(scheduler.WithWorkers(workers))
	defer sched.Close()

	log.Info("starting migration",
		zap.String("source_object", job.SourceObject),
		zap.String("target_object", job.TargetObject),
		zap.Int("batch_size", cfg.EffectiveBatchSize()),
		zap.Bool("async", async))

	if !async {
		id := sched.Schedule(ctx, cfg)
		return sched.Status(id), nil
	}

	id := sched.Submit(ctx, cfg)
	return waitForJob(ctx, sched, id, pollInterval), nil
}

// waitForJob polls until the job is terminal or unknown, cancelling it once
// ctx is done
func waitForJob(ctx context.Context, sched *scheduler.Scheduler, id string, interval time.Duration) scheduler.JobStatus {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	done := ctx.Done()
	for {
		status := sched.Status(id)
		if status.Terminal() || status.Status == scheduler.StatusNotFound {
			return status
		}
		select {
		case <-done:
			sched.Cancel(id)
			done = nil
		case <-ticker.C:
		}
	}
}

func serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := jsonpool.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
