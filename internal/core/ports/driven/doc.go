// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - ConnectorStore: Connector persistence
//   - ObjectStore: External object metadata and permission state
//   - WebhookStore: Registered provider webhooks
//   - RemoteProvider: Outbound calls to a SaaS provider
//   - ConnectionManager: OAuth connections held by the connection broker
//   - WorkflowClient: Start, signal and stop the sync workflow
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - AncestorCache: Without it, memoized hierarchies are walked on every call.
//   - WebhookRegistrar: Without it, Drive connectors run without push notifications.
//   - SchedulerStore: Without it, background tasks are not scheduled.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
