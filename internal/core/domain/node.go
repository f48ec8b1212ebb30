package domain

// NodeType is how a node is rendered in a permission tree.
type NodeType string

// Node types.
const (
	NodeTypeFolder  NodeType = "folder"
	NodeTypeChannel NodeType = "channel"
	NodeTypeFile    NodeType = "file"
)

// ConnectorNode is one entry of a permission tree listing.
type ConnectorNode struct {
	Provider         ProviderType `json:"provider"`
	InternalID       string       `json:"internalId"`
	ParentInternalID string       `json:"parentInternalId,omitempty"`
	Type             NodeType     `json:"type"`
	Title            string       `json:"title"`
	SourceURL        string       `json:"sourceUrl,omitempty"`
	Expandable       bool         `json:"expandable"`
	PreventSelection bool         `json:"preventSelection"`
	Permission       Permission   `json:"permission"`
}

// NodeTypeFor returns the listing type of a kind.
func NodeTypeFor(kind ObjectKind) NodeType {
	switch kind {
	case KindTeam:
		return NodeTypeChannel
	case KindArticle:
		return NodeTypeFile
	default:
		return NodeTypeFolder
	}
}
