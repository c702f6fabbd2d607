// Package connector groups the connector framework used by the migration
// engine.
//
// # Architecture Overview
//
// The connector tree is organized into several sub-packages:
//
//   - core: the Connector interface (Connect, Disconnect, GetSchema,
//     ExtractData, LoadData) and the SchemaObject/SchemaField model every
//     connector reports.
//
//   - base: BaseConnector, embedded by every bundled connector. It carries
//     identity, configuration, a scoped zap logger, session state and the
//     timeout contexts, plus WithSession and the SQL helpers.
//
//   - registry: maps type names to factories. Connector packages register
//     themselves from init, so a blank import makes a type available.
//
//   - postgres, mysql, mongodb: database connectors with transactional loads.
//
//   - s3, jsonfile: object-store and local-file connectors storing JSON or
//     JSON Lines, optionally compressed.
//
//   - memory: an in-process store for dry runs and tests.
//
// # Contract
//
// A connector instance holds one session and must not be shared by two
// concurrent migrations. LoadData is atomic per call: either all records in
// the call are committed or none are. Disconnect must run on every exit path,
// including after a failed Connect; base.WithSession does this for ad-hoc
// callers.
//
// # Example Usage
//
//	cfg := config.NewConnectorConfig("legacy", "postgres")
//	cfg.Credentials["connection_string"] = os.Getenv("LEGACY_DSN")
//
//	conn, err := registry.Create(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	objects, err := base.DiscoverSchema(ctx, conn)
package connector
