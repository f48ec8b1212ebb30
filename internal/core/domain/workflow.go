package domain

// SyncRequest asks the workflow runtime to start or signal a connector sync.
type SyncRequest struct {
	ConnectorID int64

	// Cursor resumes an incremental sync. Nil starts from scratch.
	Cursor *string

	// ScopeIDs are the internal node ids of the root containers whose
	// permissions changed. Empty for a full launch.
	ScopeIDs []string
}
