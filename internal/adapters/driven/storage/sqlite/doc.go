// Package sqlite implements the permission store on SQLite.
//
// The adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. One database backs every store interface:
//
//   - ConnectorStore: connector rows
//   - ObjectStore: external object records and their permissions
//   - WebhookStore: push-notification channels
//   - SchedulerStore: background task state and history
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Each applied version is recorded in
// schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.permsync/data/permsync.db
//
// # Concurrency
//
// The database runs in WAL mode. BulkDestroy runs in a single transaction.
package sqlite
