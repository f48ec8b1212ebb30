package intercom

import (
	"context"
	"fmt"

	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driven"
)

// Ensure Provider implements the RemoteProvider interface.
var _ driven.RemoteProvider = (*Provider)(nil)

// Provider maps Intercom resources to external objects.
type Provider struct {
	client *Client
}

// NewProvider creates an Intercom provider.
func NewProvider(client *Client) *Provider {
	return &Provider{client: client}
}

// Provider returns domain.ProviderIntercom.
func (p *Provider) Provider() domain.ProviderType {
	return domain.ProviderIntercom
}

// FetchWorkspace returns the Intercom app behind a connection.
func (p *Provider) FetchWorkspace(ctx context.Context, connectionID string) (*driven.RemoteWorkspace, error) {
	me, err := p.client.GetMe(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if me.App.IDCode == "" {
		return nil, fmt.Errorf("intercom: connection %s has no workspace", connectionID)
	}
	return &driven.RemoteWorkspace{ID: me.App.IDCode, Name: me.App.Name}, nil
}

// FetchObject fetches one object by kind.
func (p *Provider) FetchObject(ctx context.Context, connector *domain.Connector, kind domain.ObjectKind, externalID string) (*domain.ExternalObject, error) {
	connectionID := connector.ConnectionID
	switch kind {
	case domain.KindWorkspace:
		ws, err := p.FetchWorkspace(ctx, connectionID)
		if err != nil {
			return nil, err
		}
		if ws.ID != externalID {
			return nil, &domain.HTTPError{StatusCode: 404, Body: "workspace " + externalID + " not found"}
		}
		return &domain.ExternalObject{Name: ws.Name}, nil

	case domain.KindHelpCenter:
		hc, err := p.client.GetHelpCenter(ctx, connectionID, externalID)
		if err != nil {
			return nil, err
		}
		return helpCenterObject(hc), nil

	case domain.KindCollection:
		c, err := p.client.GetCollection(ctx, connectionID, externalID)
		if err != nil {
			return nil, err
		}
		return collectionObject(c), nil

	case domain.KindArticle:
		a, err := p.client.GetArticle(ctx, connectionID, externalID)
		if err != nil {
			return nil, err
		}
		obj := &domain.ExternalObject{
			ExternalID: string(a.ID),
			Name:       a.Title,
			URL:        a.URL,
		}
		if a.ParentID != "" && (a.ParentType == "" || a.ParentType == "collection") {
			obj.ParentID = string(a.ParentID)
			obj.ParentKind = domain.KindCollection
		}
		return obj, nil

	case domain.KindTeam:
		t, err := p.client.GetTeam(ctx, connectionID, externalID)
		if err != nil {
			return nil, err
		}
		return &domain.ExternalObject{ExternalID: string(t.ID), Name: t.Name}, nil

	default:
		return nil, fmt.Errorf("%w: intercom kind %q", domain.ErrUnsupportedType, kind)
	}
}

// ListObjects lists the direct children of a parent.
func (p *Provider) ListObjects(ctx context.Context, connector *domain.Connector, kind, parentKind domain.ObjectKind, parentID string) ([]domain.ExternalObject, error) {
	connectionID := connector.ConnectionID
	switch {
	case kind == domain.KindHelpCenter && parentID == "":
		hcs, err := p.client.ListHelpCenters(ctx, connectionID)
		if err != nil {
			return nil, err
		}
		objs := make([]domain.ExternalObject, 0, len(hcs))
		for i := range hcs {
			objs = append(objs, *helpCenterObject(&hcs[i]))
		}
		return objs, nil

	case kind == domain.KindTeam && parentID == "":
		teams, err := p.client.ListTeams(ctx, connectionID)
		if err != nil {
			return nil, err
		}
		objs := make([]domain.ExternalObject, 0, len(teams))
		for _, t := range teams {
			objs = append(objs, domain.ExternalObject{ExternalID: string(t.ID), Name: t.Name})
		}
		return objs, nil

	case kind == domain.KindCollection && (parentKind == domain.KindHelpCenter || parentKind == domain.KindCollection):
		all, err := p.client.ListCollections(ctx, connectionID)
		if err != nil {
			return nil, err
		}
		var objs []domain.ExternalObject
		for i := range all {
			c := &all[i]
			if parentKind == domain.KindHelpCenter && (string(c.HelpCenterID) != parentID || c.ParentID != "") {
				continue
			}
			if parentKind == domain.KindCollection && string(c.ParentID) != parentID {
				continue
			}
			objs = append(objs, *collectionObject(c))
		}
		return objs, nil

	default:
		return nil, fmt.Errorf("%w: intercom listing of %s under %s", domain.ErrUnsupportedType, kind, parentKind)
	}
}

func helpCenterObject(hc *HelpCenter) *domain.ExternalObject {
	name := hc.DisplayName
	if name == "" {
		name = hc.Identifier
	}
	return &domain.ExternalObject{
		ExternalID: string(hc.ID),
		Name:       name,
		URL:        hc.URL,
	}
}

func collectionObject(c *Collection) *domain.ExternalObject {
	obj := &domain.ExternalObject{
		ExternalID: string(c.ID),
		Name:       c.Name,
		URL:        c.URL,
		ScopeID:    string(c.HelpCenterID),
	}
	if c.ParentID != "" {
		obj.ParentID = string(c.ParentID)
		obj.ParentKind = domain.KindCollection
	}
	return obj
}
