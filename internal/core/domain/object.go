package domain

import "time"

// ProviderType identifies a remote SaaS provider.
type ProviderType string

// Supported providers.
const (
	ProviderIntercom    ProviderType = "intercom"
	ProviderGoogleDrive ProviderType = "google_drive"
)

// IsValid returns true if the provider is supported.
func (p ProviderType) IsValid() bool {
	switch p {
	case ProviderIntercom, ProviderGoogleDrive:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p ProviderType) String() string {
	return string(p)
}

// ObjectKind identifies the type of an external object.
type ObjectKind string

// Object kinds known to the hierarchy.
const (
	KindWorkspace  ObjectKind = "workspace"
	KindHelpCenter ObjectKind = "help_center"
	KindCollection ObjectKind = "collection"
	KindArticle    ObjectKind = "article"
	KindTeam       ObjectKind = "team"
	KindDriveFile  ObjectKind = "drive_file"
)

// AllKinds lists every object kind in probing order.
var AllKinds = []ObjectKind{
	KindWorkspace,
	KindHelpCenter,
	KindCollection,
	KindArticle,
	KindTeam,
	KindDriveFile,
}

// Provider returns the provider that owns objects of this kind.
func (k ObjectKind) Provider() ProviderType {
	switch k {
	case KindWorkspace, KindHelpCenter, KindCollection, KindArticle, KindTeam:
		return ProviderIntercom
	case KindDriveFile:
		return ProviderGoogleDrive
	default:
		return ""
	}
}

// IsValid returns true if the kind is known.
func (k ObjectKind) IsValid() bool {
	return k.Provider() != ""
}

// String returns the string representation.
func (k ObjectKind) String() string {
	return string(k)
}

// Connector is one tenant/provider pairing.
type Connector struct {
	// ID is assigned by the store on creation.
	ID int64

	// Provider is the remote SaaS provider.
	Provider ProviderType

	// ConnectionID is the handle of the OAuth connection held by the
	// connection broker.
	ConnectionID string

	// RemoteWorkspaceID identifies the remote account the connection points
	// at. A connector can never be rebound to another remote account.
	RemoteWorkspaceID string

	// WorkspaceID, DataSourceName and WorkspaceAPIKey bind the connector to
	// the data source it feeds.
	WorkspaceID     string
	DataSourceName  string
	WorkspaceAPIKey string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Metadata keys stored on external objects.
const (
	// MetaConversationsSlidingWindow is the number of days of conversations
	// synced for an Intercom workspace.
	MetaConversationsSlidingWindow = "conversations_sliding_window"

	// MetaMimeType is the mime type of a Drive file.
	MetaMimeType = "mime_type"

	// DefaultConversationsSlidingWindow is set on workspace creation.
	DefaultConversationsSlidingWindow = "90"

	// DriveFolderMimeType is the mime type Drive uses for folders.
	DriveFolderMimeType = "application/vnd.google-apps.folder"
)

// ExternalObject is locally cached metadata about a remote object.
// Records are exclusively owned by their connector.
type ExternalObject struct {
	ConnectorID int64
	Kind        ObjectKind
	ExternalID  string
	Name        string

	// ParentID and ParentKind link the object to its parent in the
	// provider hierarchy. Empty for roots and top-level objects.
	ParentID   string
	ParentKind ObjectKind

	// ScopeID is the external id of the enclosing root container used
	// when signaling the sync workflow (e.g. the help center of a collection).
	ScopeID string

	Permission Permission
	URL        string
	Metadata   map[string]string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NodeID returns the internal node id of the object.
func (o *ExternalObject) NodeID() string {
	return EncodeNodeID(o.ConnectorID, o.Kind, o.ExternalID)
}

// IsRead reports whether the object is currently synced.
func (o *ExternalObject) IsRead() bool {
	return o.Permission == PermissionRead
}
