package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider or object kind.
	ErrUnsupportedType = errors.New("unsupported type")

	// Connector Errors.

	// ErrConnectorNotFound indicates the connector id does not exist.
	ErrConnectorNotFound = errors.New("connector not found")

	// ErrOAuthTargetMismatch indicates an attempt to rebind a connector
	// to a connection that points at a different remote workspace.
	ErrOAuthTargetMismatch = errors.New("oauth target mismatch")

	// Permission Errors.

	// ErrInvalidPermission indicates a permission value outside read/none.
	ErrInvalidPermission = errors.New("invalid permission value")

	// ErrRemoteFetchFailed indicates the remote provider could not return an object.
	ErrRemoteFetchFailed = errors.New("remote fetch failed")

	// Infrastructure Errors.

	// ErrStoreTransactionFailed indicates a multi-row store transaction failed
	// and was rolled back.
	ErrStoreTransactionFailed = errors.New("store transaction failed")

	// ErrSignalDeliveryFailed indicates the workflow runtime rejected a signal.
	ErrSignalDeliveryFailed = errors.New("signal delivery failed")

	// ErrWebhookNotConfigured indicates the public URL or webhook secret is missing.
	ErrWebhookNotConfigured = errors.New("webhook endpoint not configured")
)

// HTTPError is returned by remote provider clients for non-2xx responses.
type HTTPError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether the remote answered 404.
func (e *HTTPError) IsNotFound() bool {
	return e.StatusCode == 404
}

// RemoteFetchError wraps a failed provider lookup for one node of a batch.
type RemoteFetchError struct {
	NodeID     string
	Kind       ObjectKind
	ExternalID string
	Err        error
}

// Error implements the error interface.
func (e *RemoteFetchError) Error() string {
	return fmt.Sprintf("fetch %s %q (%s): %v", e.Kind, e.ExternalID, e.NodeID, e.Err)
}

// Unwrap returns the provider error.
func (e *RemoteFetchError) Unwrap() error {
	return e.Err
}

// Is matches ErrRemoteFetchFailed.
func (e *RemoteFetchError) Is(target error) bool {
	return target == ErrRemoteFetchFailed
}
