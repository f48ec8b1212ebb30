package driving

import "context"

// Scheduler runs background tasks like webhook renewal.
type Scheduler interface {
	// Start runs scheduled tasks until the context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop waits for running tasks and returns.
	Stop() error
}
