// Package domain defines the core business entities for permsync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Connector: One tenant/provider integration
//   - ExternalObject: Locally cached metadata about a remote object
//   - Permission: The closed read/none sync permission
//   - Internal node ids: The opaque ids exposed to callers
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
