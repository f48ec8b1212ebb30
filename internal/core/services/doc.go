// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Only the permission and connector services reach remote providers, and
// only through driven.RemoteProvider.
package services
