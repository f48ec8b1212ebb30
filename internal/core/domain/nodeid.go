package domain

import (
	"strconv"
	"strings"
)

// kindTags maps each kind to the tag prefixing its internal node ids.
var kindTags = map[ObjectKind]string{
	KindWorkspace:  "intercom-workspace",
	KindHelpCenter: "intercom-help-center",
	KindCollection: "intercom-collection",
	KindArticle:    "intercom-article",
	KindTeam:       "intercom-team",
	KindDriveFile:  "gdrive-file",
}

// conversationsTag prefixes the synthetic node grouping Intercom teams.
const conversationsTag = "intercom-teams"

// ConversationsTitle is the display name of the synthetic teams node.
const ConversationsTitle = "Conversations"

// EncodeNodeID builds the internal node id for an external object.
// The format is "<kind tag>-<connector id>-<external id>".
func EncodeNodeID(connectorID int64, kind ObjectKind, externalID string) string {
	return nodePrefix(connectorID, kindTags[kind]) + externalID
}

// DecodeNodeID extracts the external id from an internal node id of the
// given kind. ok is false when the id belongs to another kind or connector,
// or carries no external id.
func DecodeNodeID(connectorID int64, kind ObjectKind, nodeID string) (externalID string, ok bool) {
	tag, known := kindTags[kind]
	if !known {
		return "", false
	}
	externalID, ok = strings.CutPrefix(nodeID, nodePrefix(connectorID, tag))
	if !ok || externalID == "" {
		return "", false
	}
	return externalID, true
}

// ProbeNodeID tries every kind and returns the first that decodes nodeID.
func ProbeNodeID(connectorID int64, nodeID string) (ObjectKind, string, bool) {
	for _, kind := range AllKinds {
		if externalID, ok := DecodeNodeID(connectorID, kind, nodeID); ok {
			return kind, externalID, true
		}
	}
	return "", "", false
}

// ConversationsNodeID is the id of the synthetic node that parents every
// Intercom team of a connector.
func ConversationsNodeID(connectorID int64) string {
	return conversationsTag + "-" + strconv.FormatInt(connectorID, 10)
}

// IsConversationsNodeID reports whether nodeID is the synthetic teams node.
func IsConversationsNodeID(connectorID int64, nodeID string) bool {
	return nodeID == ConversationsNodeID(connectorID)
}

func nodePrefix(connectorID int64, tag string) string {
	return tag + "-" + strconv.FormatInt(connectorID, 10) + "-"
}
