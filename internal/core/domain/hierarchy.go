package domain

import "time"

// Hierarchy describes how a provider nests its objects.
type Hierarchy struct {
	Provider ProviderType

	// RootKinds have no parents; their ancestor chain is always empty.
	RootKinds []ObjectKind

	// MaxDepth is the maximum number of parent hops walked when resolving
	// ancestors. Parent pointers come from the remote provider, so the walk
	// is always bounded.
	MaxDepth int

	// Memoized providers cache ancestor chains in the AncestorCache.
	Memoized bool
}

// IntercomMaxCollectionDepth is the deepest collection nesting Intercom exposes.
const IntercomMaxCollectionDepth = 3

// DriveMaxDepth bounds parent walks through Drive folders.
const DriveMaxDepth = 100

// AncestorCacheTTL is how long memoized ancestor chains are kept.
const AncestorCacheTTL = 10 * time.Minute

var hierarchies = map[ProviderType]Hierarchy{
	ProviderIntercom: {
		Provider:  ProviderIntercom,
		RootKinds: []ObjectKind{KindWorkspace, KindHelpCenter, KindTeam},
		MaxDepth:  IntercomMaxCollectionDepth,
	},
	ProviderGoogleDrive: {
		Provider: ProviderGoogleDrive,
		MaxDepth: DriveMaxDepth,
		Memoized: true,
	},
}

// HierarchyFor returns the hierarchy rules of a provider.
func HierarchyFor(p ProviderType) (Hierarchy, bool) {
	h, ok := hierarchies[p]
	return h, ok
}

// IsRoot reports whether kind is a root of this hierarchy.
func (h Hierarchy) IsRoot(kind ObjectKind) bool {
	for _, k := range h.RootKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// ScopeKind returns the kind of the root container that encloses objects of
// the given kind, or the kind itself when it is its own scope.
func ScopeKind(kind ObjectKind) ObjectKind {
	switch kind {
	case KindCollection, KindArticle:
		return KindHelpCenter
	default:
		return kind
	}
}

// IsSelectable reports whether callers may toggle the permission of a kind.
// Articles follow their collection and workspaces are implicit.
func IsSelectable(kind ObjectKind) bool {
	switch kind {
	case KindHelpCenter, KindCollection, KindTeam, KindDriveFile:
		return true
	default:
		return false
	}
}
