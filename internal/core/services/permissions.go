package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driven"
	"github.com/custodia-labs/permsync/internal/core/ports/driving"
	"github.com/custodia-labs/permsync/internal/logger"
	"github.com/custodia-labs/permsync/internal/metrics"
)

var _ driving.PermissionManager = (*PermissionService)(nil)

// PermissionService applies permission batches and answers tree queries.
type PermissionService struct {
	connectors driven.ConnectorStore
	objects    driven.ObjectStore
	providers  *ProviderRegistry
	resolver   *HierarchyResolver
	trigger    *SyncTrigger
}

// NewPermissionService creates a permission service.
func NewPermissionService(
	connectors driven.ConnectorStore,
	objects driven.ObjectStore,
	providers *ProviderRegistry,
	resolver *HierarchyResolver,
	trigger *SyncTrigger,
) *PermissionService {
	return &PermissionService{
		connectors: connectors,
		objects:    objects,
		providers:  providers,
		resolver:   resolver,
		trigger:    trigger,
	}
}

// SetPermissions parses raw values and applies them.
func (s *PermissionService) SetPermissions(ctx context.Context, connectorID int64, raw map[string]string) error {
	batch, err := domain.ParsePermissionChanges(raw)
	if err != nil {
		return err
	}
	return s.Apply(ctx, connectorID, batch)
}

// Apply applies the batch in node id order. Validation happens before any
// mutation. The first remote or store failure aborts the rest of the batch
// without undoing entries already committed. When any record actually
// changed, the workflow is signaled once with the deduplicated scopes.
// Scopes are resolved after every entry is applied, under a memo key unique
// to the call, so chains cached before the batch or halfway through it are
// never read.
func (s *PermissionService) Apply(ctx context.Context, connectorID int64, batch domain.PermissionChangeBatch) error {
	if err := batch.Validate(); err != nil {
		return err
	}
	connector, err := s.connectors.Get(ctx, connectorID)
	if err != nil {
		return fmt.Errorf("get connector %d: %w", connectorID, err)
	}

	var changed []*domain.ExternalObject
	for _, nodeID := range batch.SortedIDs() {
		kind, externalID, ok := domain.ProbeNodeID(connectorID, nodeID)
		if !ok || !domain.IsSelectable(kind) || kind.Provider() != connector.Provider {
			logger.Warn("connector %d: skipping unknown node %q", connectorID, nodeID)
			continue
		}

		var obj *domain.ExternalObject
		switch batch[nodeID] {
		case domain.PermissionNone:
			obj, err = s.revoke(ctx, connectorID, kind, externalID)
		case domain.PermissionRead:
			obj, err = s.grant(ctx, connector, nodeID, kind, externalID)
		}
		if err != nil {
			return err
		}
		if obj != nil {
			metrics.PermissionTransitionsTotal.WithLabelValues(
				string(connector.Provider), string(kind), string(batch[nodeID])).Inc()
			changed = append(changed, obj)
		}

		if kind == domain.KindHelpCenter && batch[nodeID] == domain.PermissionRead {
			children, err := s.grantCollections(ctx, connector, domain.KindHelpCenter, externalID, 0)
			if err != nil {
				return err
			}
			changed = append(changed, children...)
		}
	}

	if len(changed) == 0 {
		return nil
	}
	memoKey := uuid.NewString()
	scopes := make(map[string]struct{})
	for _, obj := range changed {
		scope, err := s.resolver.Scope(ctx, obj, memoKey)
		if err != nil {
			return fmt.Errorf("resolve scope of %s: %w", obj.NodeID(), err)
		}
		scopes[scope] = struct{}{}
	}
	scopeIDs := make([]string, 0, len(scopes))
	for id := range scopes {
		scopeIDs = append(scopeIDs, id)
	}
	sort.Strings(scopeIDs)

	logger.L().Infow("permissions applied", "connector_id", connectorID, "scopes", scopeIDs)
	return s.trigger.Signal(ctx, connectorID, scopeIDs)
}

// grantCollections makes every remote collection under a help center
// readable, descending through nested collections up to the provider's
// nesting cap. Records already readable are left untouched.
func (s *PermissionService) grantCollections(ctx context.Context, connector *domain.Connector, parentKind domain.ObjectKind, parentID string, depth int) ([]*domain.ExternalObject, error) {
	remote, err := s.providers.Get(connector.Provider)
	if err != nil {
		return nil, err
	}
	listed, err := remote.ListObjects(ctx, connector, domain.KindCollection, parentKind, parentID)
	if err != nil {
		return nil, fmt.Errorf("%w: list collections of %s %s: %w", domain.ErrRemoteFetchFailed, parentKind, parentID, err)
	}

	var changed []*domain.ExternalObject
	for i := range listed {
		child := listed[i]
		child.ConnectorID = connector.ID
		child.Kind = domain.KindCollection

		obj, err := s.objects.Find(ctx, connector.ID, domain.KindCollection, child.ExternalID)
		if err != nil {
			return nil, fmt.Errorf("find collection %s: %w", child.ExternalID, err)
		}
		switch {
		case obj == nil:
			child.Permission = domain.PermissionRead
			if err := s.objects.Upsert(ctx, &child); err != nil {
				return nil, fmt.Errorf("create collection %s: %w", child.ExternalID, err)
			}
			changed = append(changed, &child)
			s.countCascade(connector)
		case obj.Permission == domain.PermissionNone:
			if err := s.objects.SetPermission(ctx, connector.ID, domain.KindCollection, child.ExternalID, domain.PermissionRead); err != nil {
				return nil, fmt.Errorf("grant collection %s: %w", child.ExternalID, err)
			}
			obj.Permission = domain.PermissionRead
			changed = append(changed, obj)
			s.countCascade(connector)
		}

		if depth+1 >= domain.IntercomMaxCollectionDepth {
			continue
		}
		nested, err := s.grantCollections(ctx, connector, domain.KindCollection, child.ExternalID, depth+1)
		if err != nil {
			return nil, err
		}
		changed = append(changed, nested...)
	}
	return changed, nil
}

func (s *PermissionService) countCascade(connector *domain.Connector) {
	metrics.PermissionTransitionsTotal.WithLabelValues(
		string(connector.Provider), string(domain.KindCollection), string(domain.PermissionRead)).Inc()
}

// revoke flips a read record to none. Missing or already revoked records
// are left untouched.
func (s *PermissionService) revoke(ctx context.Context, connectorID int64, kind domain.ObjectKind, externalID string) (*domain.ExternalObject, error) {
	obj, err := s.objects.Find(ctx, connectorID, kind, externalID)
	if err != nil {
		return nil, fmt.Errorf("find %s %s: %w", kind, externalID, err)
	}
	if obj == nil {
		return nil, nil
	}

	switch obj.Permission {
	case domain.PermissionRead:
		if err := s.objects.SetPermission(ctx, connectorID, kind, externalID, domain.PermissionNone); err != nil {
			return nil, fmt.Errorf("revoke %s %s: %w", kind, externalID, err)
		}
		obj.Permission = domain.PermissionNone
		return obj, nil
	case domain.PermissionNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("%s %s: %w: %q", kind, externalID, domain.ErrInvalidPermission, string(obj.Permission))
	}
}

// grant makes a record readable, fetching it from the provider first when
// it is not known locally.
func (s *PermissionService) grant(ctx context.Context, connector *domain.Connector, nodeID string, kind domain.ObjectKind, externalID string) (*domain.ExternalObject, error) {
	obj, err := s.objects.Find(ctx, connector.ID, kind, externalID)
	if err != nil {
		return nil, fmt.Errorf("find %s %s: %w", kind, externalID, err)
	}

	if obj == nil {
		obj, err = s.fetch(ctx, connector, nodeID, kind, externalID)
		if err != nil {
			return nil, err
		}
		obj.Permission = domain.PermissionRead
		if err := s.objects.Upsert(ctx, obj); err != nil {
			return nil, fmt.Errorf("create %s %s: %w", kind, externalID, err)
		}
		return obj, nil
	}

	switch obj.Permission {
	case domain.PermissionNone:
		if err := s.objects.SetPermission(ctx, connector.ID, kind, externalID, domain.PermissionRead); err != nil {
			return nil, fmt.Errorf("grant %s %s: %w", kind, externalID, err)
		}
		obj.Permission = domain.PermissionRead
		return obj, nil
	case domain.PermissionRead:
		return nil, nil
	default:
		return nil, fmt.Errorf("%s %s: %w: %q", kind, externalID, domain.ErrInvalidPermission, string(obj.Permission))
	}
}

func (s *PermissionService) fetch(ctx context.Context, connector *domain.Connector, nodeID string, kind domain.ObjectKind, externalID string) (*domain.ExternalObject, error) {
	remote, err := s.providers.Get(connector.Provider)
	if err == nil {
		var obj *domain.ExternalObject
		obj, err = remote.FetchObject(ctx, connector, kind, externalID)
		metrics.RemoteFetchesTotal.WithLabelValues(string(connector.Provider), string(kind), metrics.Outcome(err)).Inc()
		if err == nil {
			obj.ConnectorID = connector.ID
			obj.Kind = kind
			obj.ExternalID = externalID
			return obj, nil
		}
	}
	return nil, &domain.RemoteFetchError{NodeID: nodeID, Kind: kind, ExternalID: externalID, Err: err}
}

// Ancestors returns the ancestor node ids of a node, nearest first.
func (s *PermissionService) Ancestors(ctx context.Context, connectorID int64, nodeID string) ([]string, error) {
	if _, err := s.connectors.Get(ctx, connectorID); err != nil {
		return nil, fmt.Errorf("get connector %d: %w", connectorID, err)
	}
	return s.resolver.Ancestors(ctx, connectorID, nodeID)
}

// Titles resolves node ids to names. Lookups for different kinds run
// concurrently; ids that match no stored record map to nil.
func (s *PermissionService) Titles(ctx context.Context, connectorID int64, nodeIDs []string) (map[string]*string, error) {
	titles := make(map[string]*string, len(nodeIDs))
	byKind := make(map[domain.ObjectKind][]string)
	for _, nodeID := range nodeIDs {
		titles[nodeID] = nil
		if domain.IsConversationsNodeID(connectorID, nodeID) {
			title := domain.ConversationsTitle
			titles[nodeID] = &title
			continue
		}
		if kind, externalID, ok := domain.ProbeNodeID(connectorID, nodeID); ok {
			byKind[kind] = append(byKind[kind], externalID)
		}
	}

	kinds := make([]domain.ObjectKind, 0, len(byKind))
	for kind := range byKind {
		kinds = append(kinds, kind)
	}
	found := make([][]domain.ExternalObject, len(kinds))

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			objs, err := s.objects.FindMany(gctx, connectorID, kind, byKind[kind])
			if err != nil {
				return fmt.Errorf("find %s titles: %w", kind, err)
			}
			found[i] = objs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, objs := range found {
		for i := range objs {
			name := objs[i].Name
			titles[objs[i].NodeID()] = &name
		}
	}
	return titles, nil
}

// Retrieve lists the children of parentID, or the roots when parentID is
// empty. readOnly listings come from the store; full listings come from the
// provider merged with the locally stored permissions.
func (s *PermissionService) Retrieve(ctx context.Context, connectorID int64, parentID string, readOnly bool) ([]domain.ConnectorNode, error) {
	connector, err := s.connectors.Get(ctx, connectorID)
	if err != nil {
		return nil, fmt.Errorf("get connector %d: %w", connectorID, err)
	}

	var nodes []domain.ConnectorNode
	switch connector.Provider {
	case domain.ProviderIntercom:
		nodes, err = s.retrieveIntercom(ctx, connector, parentID, readOnly)
	case domain.ProviderGoogleDrive:
		nodes, err = s.retrieveDrive(ctx, connector, parentID, readOnly)
	default:
		err = fmt.Errorf("%w: provider %q", domain.ErrUnsupportedType, connector.Provider)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Title != nodes[j].Title {
			return nodes[i].Title < nodes[j].Title
		}
		return nodes[i].InternalID < nodes[j].InternalID
	})
	return nodes, nil
}

func (s *PermissionService) retrieveIntercom(ctx context.Context, connector *domain.Connector, parentID string, readOnly bool) ([]domain.ConnectorNode, error) {
	id := connector.ID
	switch {
	case parentID == "":
		nodes, err := s.listLevel(ctx, connector, levelQuery{kind: domain.KindHelpCenter}, readOnly)
		if err != nil {
			return nil, err
		}
		conversations, err := s.conversationsNode(ctx, id, readOnly)
		if err != nil {
			return nil, err
		}
		if conversations != nil {
			nodes = append(nodes, *conversations)
		}
		return nodes, nil

	case domain.IsConversationsNodeID(id, parentID):
		return s.listLevel(ctx, connector, levelQuery{kind: domain.KindTeam, parentNodeID: parentID}, readOnly)
	}

	kind, externalID, ok := domain.ProbeNodeID(id, parentID)
	if !ok {
		return nil, fmt.Errorf("%w: node %q", domain.ErrInvalidInput, parentID)
	}
	switch kind {
	case domain.KindHelpCenter, domain.KindCollection:
		return s.listLevel(ctx, connector, levelQuery{
			kind:         domain.KindCollection,
			parentKind:   kind,
			parentID:     externalID,
			parentNodeID: parentID,
		}, readOnly)
	default:
		return []domain.ConnectorNode{}, nil
	}
}

func (s *PermissionService) retrieveDrive(ctx context.Context, connector *domain.Connector, parentID string, readOnly bool) ([]domain.ConnectorNode, error) {
	q := levelQuery{kind: domain.KindDriveFile}
	if parentID != "" {
		externalID, ok := domain.DecodeNodeID(connector.ID, domain.KindDriveFile, parentID)
		if !ok {
			return nil, fmt.Errorf("%w: node %q", domain.ErrInvalidInput, parentID)
		}
		q.parentKind = domain.KindDriveFile
		q.parentID = externalID
		q.parentNodeID = parentID
	}
	return s.listLevel(ctx, connector, q, readOnly)
}

// conversationsNode builds the synthetic node grouping Intercom teams.
// Read-only listings only show it when at least one team is synced.
func (s *PermissionService) conversationsNode(ctx context.Context, connectorID int64, readOnly bool) (*domain.ConnectorNode, error) {
	teams, err := s.objects.FindAllByPermission(ctx, connectorID, domain.KindTeam, domain.PermissionRead)
	if err != nil {
		return nil, fmt.Errorf("list read teams: %w", err)
	}
	permission := domain.PermissionNone
	if len(teams) > 0 {
		permission = domain.PermissionRead
	} else if readOnly {
		return nil, nil
	}
	return &domain.ConnectorNode{
		Provider:         domain.ProviderIntercom,
		InternalID:       domain.ConversationsNodeID(connectorID),
		Type:             domain.NodeTypeChannel,
		Title:            domain.ConversationsTitle,
		Expandable:       true,
		PreventSelection: true,
		Permission:       permission,
	}, nil
}

type levelQuery struct {
	kind         domain.ObjectKind
	parentKind   domain.ObjectKind
	parentID     string
	parentNodeID string
}

func (s *PermissionService) listLevel(ctx context.Context, connector *domain.Connector, q levelQuery, readOnly bool) ([]domain.ConnectorNode, error) {
	if readOnly {
		filter := driven.ObjectFilter{Kind: q.kind, Permission: domain.PermissionRead}
		switch {
		case q.parentKind == domain.KindHelpCenter:
			filter.ScopeID = q.parentID
			filter.TopLevel = true
		case q.parentID != "":
			filter.ParentID = q.parentID
		case q.kind != domain.KindTeam:
			filter.TopLevel = true
		}
		objs, err := s.objects.List(ctx, connector.ID, filter)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", q.kind, err)
		}
		return toNodes(objs, q.parentNodeID), nil
	}

	remote, err := s.providers.Get(connector.Provider)
	if err != nil {
		return nil, err
	}
	objs, err := remote.ListObjects(ctx, connector, q.kind, q.parentKind, q.parentID)
	if err != nil {
		var httpErr *domain.HTTPError
		if errors.As(err, &httpErr) {
			return nil, fmt.Errorf("%w: list %s: %w", domain.ErrRemoteFetchFailed, q.kind, err)
		}
		return nil, fmt.Errorf("list %s: %w", q.kind, err)
	}

	ids := make([]string, len(objs))
	for i := range objs {
		objs[i].ConnectorID = connector.ID
		objs[i].Kind = q.kind
		ids[i] = objs[i].ExternalID
	}
	local, err := s.objects.FindMany(ctx, connector.ID, q.kind, ids)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", q.kind, err)
	}
	permissions := make(map[string]domain.Permission, len(local))
	for _, obj := range local {
		permissions[obj.ExternalID] = obj.Permission
	}
	for i := range objs {
		objs[i].Permission = domain.PermissionNone
		if p, ok := permissions[objs[i].ExternalID]; ok {
			objs[i].Permission = p
		}
	}
	return toNodes(objs, q.parentNodeID), nil
}

func toNodes(objs []domain.ExternalObject, parentNodeID string) []domain.ConnectorNode {
	nodes := make([]domain.ConnectorNode, 0, len(objs))
	for i := range objs {
		obj := &objs[i]
		nodes = append(nodes, domain.ConnectorNode{
			Provider:         obj.Kind.Provider(),
			InternalID:       obj.NodeID(),
			ParentInternalID: parentNodeID,
			Type:             domain.NodeTypeFor(obj.Kind),
			Title:            obj.Name,
			SourceURL:        obj.URL,
			Expandable:       isExpandable(obj),
			PreventSelection: !domain.IsSelectable(obj.Kind),
			Permission:       obj.Permission,
		})
	}
	return nodes
}

func isExpandable(obj *domain.ExternalObject) bool {
	switch obj.Kind {
	case domain.KindHelpCenter, domain.KindCollection:
		return true
	case domain.KindDriveFile:
		return obj.Metadata[domain.MetaMimeType] == domain.DriveFolderMimeType
	default:
		return false
	}
}
