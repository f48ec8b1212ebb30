package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driven"
	"github.com/custodia-labs/permsync/internal/logger"
	"github.com/custodia-labs/permsync/internal/metrics"
)

// DefaultMemoKey segments the ancestor cache when callers supply none.
const DefaultMemoKey = "default"

// HierarchyResolver computes ancestor chains from locally stored parent links.
type HierarchyResolver struct {
	objects driven.ObjectStore
	cache   driven.AncestorCache
	ttl     time.Duration
}

// NewHierarchyResolver creates a resolver. cache may be nil.
func NewHierarchyResolver(objects driven.ObjectStore, cache driven.AncestorCache) *HierarchyResolver {
	return &HierarchyResolver{
		objects: objects,
		cache:   cache,
		ttl:     domain.AncestorCacheTTL,
	}
}

// Ancestors returns the ancestor node ids of nodeID, nearest parent first and
// root scope last. Roots and unknown ids have no ancestors.
func (r *HierarchyResolver) Ancestors(ctx context.Context, connectorID int64, nodeID string) ([]string, error) {
	kind, externalID, ok := domain.ProbeNodeID(connectorID, nodeID)
	if !ok {
		logger.Debug("ancestors: %s is not a node of connector %d", nodeID, connectorID)
		return []string{}, nil
	}

	h, ok := domain.HierarchyFor(kind.Provider())
	if !ok || h.IsRoot(kind) {
		return []string{}, nil
	}

	if h.Memoized {
		chain, err := r.LocalParents(ctx, connectorID, externalID, DefaultMemoKey)
		if err != nil {
			return nil, err
		}
		ancestors := make([]string, 0, len(chain))
		for _, id := range chain[1:] {
			ancestors = append(ancestors, domain.EncodeNodeID(connectorID, kind, id))
		}
		return ancestors, nil
	}

	return r.walk(ctx, connectorID, h, kind, externalID)
}

// walk follows parent links of a non-memoized hierarchy, capped at MaxDepth hops.
func (r *HierarchyResolver) walk(ctx context.Context, connectorID int64, h domain.Hierarchy, kind domain.ObjectKind, externalID string) ([]string, error) {
	start, err := r.objects.Find(ctx, connectorID, kind, externalID)
	if err != nil {
		return nil, fmt.Errorf("find %s %s: %w", kind, externalID, err)
	}
	ancestors := []string{}
	if start == nil {
		return ancestors, nil
	}

	scopeID := start.ScopeID
	cur := start
	for hops := 0; cur != nil && cur.ParentID != "" && !h.IsRoot(cur.ParentKind); hops++ {
		if hops == h.MaxDepth {
			logger.Warn("ancestors of %s truncated after %d levels, remote hierarchy is deeper than expected",
				domain.EncodeNodeID(connectorID, kind, externalID), h.MaxDepth)
			cur = nil
			break
		}
		ancestors = append(ancestors, domain.EncodeNodeID(connectorID, cur.ParentKind, cur.ParentID))

		parent, err := r.objects.Find(ctx, connectorID, cur.ParentKind, cur.ParentID)
		if err != nil {
			return nil, fmt.Errorf("find %s %s: %w", cur.ParentKind, cur.ParentID, err)
		}
		if parent != nil && scopeID == "" {
			scopeID = parent.ScopeID
		}
		cur = parent
	}

	// A parent link pointing straight at a root closes the chain.
	if cur != nil && cur.ParentID != "" && h.IsRoot(cur.ParentKind) {
		ancestors = appendUnique(ancestors, domain.EncodeNodeID(connectorID, cur.ParentKind, cur.ParentID))
	}
	if scopeID != "" {
		ancestors = appendUnique(ancestors, domain.EncodeNodeID(connectorID, domain.ScopeKind(kind), scopeID))
	}
	return ancestors, nil
}

// LocalParents returns the self-inclusive chain of external ids from a Drive
// object up to its top-most known folder. Results are memoized per
// (connector, object, memoKey); pass a fresh memoKey after changing parent links.
func (r *HierarchyResolver) LocalParents(ctx context.Context, connectorID int64, objectID, memoKey string) ([]string, error) {
	return r.localParents(ctx, connectorID, objectID, memoKey, 0)
}

func (r *HierarchyResolver) localParents(ctx context.Context, connectorID int64, objectID, memoKey string, depth int) ([]string, error) {
	key := strconv.FormatInt(connectorID, 10) + ":" + objectID + ":" + memoKey
	if r.cache != nil {
		chain, hit, err := r.cache.Get(ctx, key)
		switch {
		case err != nil:
			logger.Warn("ancestor cache get %s: %v", key, err)
		case hit:
			metrics.AncestorCacheLookupsTotal.WithLabelValues("hit").Inc()
			return chain, nil
		}
		metrics.AncestorCacheLookupsTotal.WithLabelValues("miss").Inc()
	}

	chain := []string{objectID}
	obj, err := r.objects.Find(ctx, connectorID, domain.KindDriveFile, objectID)
	if err != nil {
		return nil, fmt.Errorf("find drive file %s: %w", objectID, err)
	}
	if obj != nil && obj.ParentID != "" {
		if depth+1 >= domain.DriveMaxDepth {
			logger.Warn("drive parents of %s truncated after %d levels", objectID, domain.DriveMaxDepth)
		} else {
			parents, err := r.localParents(ctx, connectorID, obj.ParentID, memoKey, depth+1)
			if err != nil {
				return nil, err
			}
			chain = append(chain, parents...)
		}
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, chain, r.ttl); err != nil {
			logger.Warn("ancestor cache set %s: %v", key, err)
		}
	}
	return chain, nil
}

// Scope returns the internal id of the root container signaled when obj
// changes. memoKey segments memoized lookups; callers that just changed
// parent links pass a key no earlier lookup used.
func (r *HierarchyResolver) Scope(ctx context.Context, obj *domain.ExternalObject, memoKey string) (string, error) {
	h, ok := domain.HierarchyFor(obj.Kind.Provider())
	if !ok || h.IsRoot(obj.Kind) {
		return obj.NodeID(), nil
	}

	if h.Memoized {
		chain, err := r.LocalParents(ctx, obj.ConnectorID, obj.ExternalID, memoKey)
		if err != nil {
			return "", err
		}
		return domain.EncodeNodeID(obj.ConnectorID, obj.Kind, chain[len(chain)-1]), nil
	}

	if obj.ScopeID != "" {
		return domain.EncodeNodeID(obj.ConnectorID, domain.ScopeKind(obj.Kind), obj.ScopeID), nil
	}
	ancestors, err := r.walk(ctx, obj.ConnectorID, h, obj.Kind, obj.ExternalID)
	if err != nil {
		return "", err
	}
	if len(ancestors) == 0 {
		return obj.NodeID(), nil
	}
	return ancestors[len(ancestors)-1], nil
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
