// Package file provides the TOML configuration file adapter.
//
// The file uses tables for each settings group:
//
//	[store]
//	backend = "postgres"
//	postgres_dsn = "postgres://permsync@localhost/permsync"
//
//	[workflow]
//	brokers = ["kafka-1:9092", "kafka-2:9092"]
//
// Keys are exposed flattened to dot notation ("store.backend").
package file
