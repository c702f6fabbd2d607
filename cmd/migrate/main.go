package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/nebula-migrate/pkg/logger"
	"github.com/ajitpratap0/nebula-migrate/pkg/observability"

	// Import all available connectors to register them
	_ "github.com/ajitpratap0/nebula-migrate/pkg/connector/jsonfile"
	_ "github.com/ajitpratap0/nebula-migrate/pkg/connector/memory"
	_ "github.com/ajitpratap0/nebula-migrate/pkg/connector/mongodb"
	_ "github.com/ajitpratap0/nebula-migrate/pkg/connector/mysql"
	_ "github.com/ajitpratap0/nebula-migrate/pkg/connector/postgres"
	_ "github.com/ajitpratap0/nebula-migrate/pkg/connector/s3"
)

var version = "0.1.0"

// Settings keys shared by flags, MIGRATE_* environment variables and the
// optional settings file
const (
	keyLogLevel    = "log-level"
	keyLogFormat   = "log-format"
	keyMetricsAddr = "metrics-addr"
	keyWorkers     = "workers"
	keyTrace       = "trace"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var settingsFile string
	var shutdownTracing observability.ShutdownFunc

	root := &cobra.Command{
		Use:   "migrate",
		Short: "Move records between data systems through field mappings",
		Long: `migrate connects a source and a target connector, extracts an object,
applies field mappings and transformations, and loads the result in batches.

Settings can be given as flags, as MIGRATE_* environment variables
(MIGRATE_LOG_LEVEL, MIGRATE_WORKERS, ...) or in a settings file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if settingsFile != "" {
				v.SetConfigFile(settingsFile)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("failed to read settings %s: %w", settingsFile, err)
				}
			}

			if err := logger.Init(logger.Config{
				Level:    v.GetString(keyLogLevel),
				Encoding: v.GetString(keyLogFormat),
			}); err != nil {
				return err
			}

			if v.GetBool(keyTrace) {
				cfg := observability.DefaultTracingConfig()
				cfg.ServiceVersion = version
				cfg.Writer = cmd.ErrOrStderr()
				shutdown, err := observability.InitTracing(cfg)
				if err != nil {
					return err
				}
				shutdownTracing = shutdown
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if shutdownTracing != nil {
				if err := shutdownTracing(context.Background()); err != nil {
					return err
				}
			}
			_ = logger.Sync()
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&settingsFile, "settings", "", "Path to a settings file (yaml, json or toml)")
	flags.String(keyLogLevel, "warn", "Log level (debug, info, warn, error)")
	flags.String(keyLogFormat, "console", "Log encoding (json, console)")
	flags.String(keyMetricsAddr, "", "Serve Prometheus metrics on this address while running (e.g. :9090)")
	flags.Int(keyWorkers, runtime.NumCPU(), "Worker count for asynchronous jobs")
	flags.Bool(keyTrace, false, "Export OpenTelemetry spans to stderr")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix("MIGRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root.AddCommand(
		newVersionCmd(),
		newListCmd(),
		newTestCmd(),
		newSchemaCmd(),
		newRunCmd(v),
	)
	return root
}
