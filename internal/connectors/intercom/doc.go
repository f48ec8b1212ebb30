// Package intercom implements the remote provider for Intercom workspaces.
//
// It reads help centers, collections, articles and teams through the
// Intercom REST API. Every request is authenticated with the broker token
// of the connector's connection and pinned to a single API version with
// the Intercom-Version header.
//
// Object parentage follows the permission tree:
//   - help centers and teams are roots
//   - top-level collections have no parent and are scoped to their help center
//   - nested collections point at their parent collection
//   - articles point at their collection
package intercom
