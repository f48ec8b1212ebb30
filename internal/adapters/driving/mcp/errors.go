// Package mcp exposes permission management over the Model Context Protocol,
// so assistants can inspect and change which remote objects a connector syncs.
package mcp

import "errors"

// ErrMissingPermissionService is returned when the permission service is not provided.
var ErrMissingPermissionService = errors.New("mcp: permission service is required")
