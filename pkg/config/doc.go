// Package config provides configuration for connectors and migration jobs.
//
// Two structures cover everything a migration needs:
//
//   - ConnectorConfig: one connector instance (type, credentials, params,
//     timeouts, pool sizing). The connector registry builds connectors from it.
//   - JobConfig: a source and a target ConnectorConfig, the object names on
//     each side, the field mappings and the batch size.
//
// Files are YAML. ${VAR_NAME} references are replaced with environment values
// before parsing, so secrets stay out of the files:
//
//	job, err := config.LoadJob("jobs/customers.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Application-level settings (log level, metrics address, worker count) are
// not part of this package; the CLI binds them through viper.
package config
