package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cachemem "github.com/custodia-labs/permsync/internal/adapters/driven/cache/memory"
	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driven"
)

func TestPermissionService_Apply_GrantUnknownTeam(t *testing.T) {
	ctx := context.Background()
	f := newFixture(domain.ProviderIntercom, 42)
	f.remote.addObject(domain.ExternalObject{Kind: domain.KindTeam, ExternalID: "t1", Name: "Eng"})

	teamNode := domain.EncodeNodeID(42, domain.KindTeam, "t1")
	err := f.permissions.Apply(ctx, 42, domain.PermissionChangeBatch{teamNode: domain.PermissionRead})
	require.NoError(t, err)

	team, err := f.objects.Find(ctx, 42, domain.KindTeam, "t1")
	require.NoError(t, err)
	require.NotNil(t, team)
	assert.Equal(t, "Eng", team.Name)
	assert.Equal(t, domain.PermissionRead, team.Permission)

	assert.Equal(t, 1, f.remote.fetchCount())
	assert.Equal(t, 1, f.store.Writes())
	require.Len(t, f.workflow.launches, 1)
	assert.Equal(t, int64(42), f.workflow.launches[0].ConnectorID)
	assert.Nil(t, f.workflow.launches[0].Cursor)
	assert.Equal(t, []string{teamNode}, f.workflow.launches[0].ScopeIDs)
}

func TestPermissionService_Apply_NoneOnNoneIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(domain.ProviderIntercom, 42)
	f.seed(domain.ExternalObject{ConnectorID: 42, Kind: domain.KindTeam, ExternalID: "t1", Permission: domain.PermissionNone})
	before := f.store.Writes()

	err := f.permissions.Apply(ctx, 42, domain.PermissionChangeBatch{
		domain.EncodeNodeID(42, domain.KindTeam, "t1"):  domain.PermissionNone,
		domain.EncodeNodeID(42, domain.KindTeam, "t-x"): domain.PermissionNone,
	})
	require.NoError(t, err)
	assert.Equal(t, before, f.store.Writes())
	assert.Empty(t, f.workflow.launches)
	assert.Zero(t, f.remote.fetchCount())
}

func TestPermissionService_Apply_ReadOnReadDoesNotFetch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(domain.ProviderIntercom, 42)
	f.seed(domain.ExternalObject{ConnectorID: 42, Kind: domain.KindTeam, ExternalID: "t1", Permission: domain.PermissionRead})
	before := f.store.Writes()

	err := f.permissions.Apply(ctx, 42, domain.PermissionChangeBatch{
		domain.EncodeNodeID(42, domain.KindTeam, "t1"): domain.PermissionRead,
	})
	require.NoError(t, err)
	assert.Zero(t, f.remote.fetchCount())
	assert.Equal(t, before, f.store.Writes())
	assert.Empty(t, f.workflow.launches)
}

func TestPermissionService_Apply_RevokeAndFlip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(domain.ProviderIntercom, 42)
	f.seed(
		domain.ExternalObject{ConnectorID: 42, Kind: domain.KindTeam, ExternalID: "t1", Permission: domain.PermissionRead},
		domain.ExternalObject{ConnectorID: 42, Kind: domain.KindTeam, ExternalID: "t2", Permission: domain.PermissionNone},
	)

	err := f.permissions.Apply(ctx, 42, domain.PermissionChangeBatch{
		domain.EncodeNodeID(42, domain.KindTeam, "t1"): domain.PermissionNone,
		domain.EncodeNodeID(42, domain.KindTeam, "t2"): domain.PermissionRead,
	})
	require.NoError(t, err)

	t1, _ := f.objects.Find(ctx, 42, domain.KindTeam, "t1")
	t2, _ := f.objects.Find(ctx, 42, domain.KindTeam, "t2")
	assert.Equal(t, domain.PermissionNone, t1.Permission)
	assert.Equal(t, domain.PermissionRead, t2.Permission)
	assert.Zero(t, f.remote.fetchCount())

	require.Len(t, f.workflow.launches, 1)
	assert.Equal(t, []string{
		domain.EncodeNodeID(42, domain.KindTeam, "t1"),
		domain.EncodeNodeID(42, domain.KindTeam, "t2"),
	}, f.workflow.launches[0].ScopeIDs)
}

func TestPermissionService_Apply_SharedScopeSignaledOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(domain.ProviderIntercom, 42)
	batch := domain.PermissionChangeBatch{}
	for _, id := range []string{"c1", "c2", "c3", "c4", "c5"} {
		f.remote.addObject(domain.ExternalObject{Kind: domain.KindCollection, ExternalID: id, Name: id, ScopeID: "hc"})
		batch[domain.EncodeNodeID(42, domain.KindCollection, id)] = domain.PermissionRead
	}

	require.NoError(t, f.permissions.Apply(ctx, 42, batch))

	assert.Equal(t, 5, f.remote.fetchCount())
	require.Len(t, f.workflow.launches, 1)
	assert.Equal(t, []string{domain.EncodeNodeID(42, domain.KindHelpCenter, "hc")}, f.workflow.launches[0].ScopeIDs)
}

func TestPermissionService_Apply_InvalidPermissionRejectsBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(domain.ProviderIntercom, 42)
	f.seed(domain.ExternalObject{ConnectorID: 42, Kind: domain.KindTeam, ExternalID: "t1", Permission: domain.PermissionNone})
	before := f.store.Writes()

	err := f.permissions.Apply(ctx, 42, domain.PermissionChangeBatch{
		domain.EncodeNodeID(42, domain.KindTeam, "t1"): domain.PermissionRead,
		domain.EncodeNodeID(42, domain.KindTeam, "t2"): domain.Permission("write"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidPermission))
	assert.Equal(t, before, f.store.Writes())
	assert.Empty(t, f.workflow.launches)
}

func TestPermissionService_SetPermissions_InvalidRaw(t *testing.T) {
	f := newFixture(domain.ProviderIntercom, 42)
	err := f.permissions.SetPermissions(context.Background(), 42, map[string]string{"intercom-team-42-t1": "admin"})
	assert.ErrorIs(t, err, domain.ErrInvalidPermission)
}

func TestPermissionService_Apply_ConnectorNotFound(t *testing.T) {
	f := newFixture(domain.ProviderIntercom, 42)
	err := f.permissions.Apply(context.Background(), 7, domain.PermissionChangeBatch{
		domain.EncodeNodeID(7, domain.KindTeam, "t1"): domain.PermissionRead,
	})
	assert.ErrorIs(t, err, domain.ErrConnectorNotFound)
	assert.Zero(t, f.remote.fetchCount())
}

func TestPermissionService_Apply_FetchFailureAborts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(domain.ProviderIntercom, 42)
	f.seed(domain.ExternalObject{ConnectorID: 42, Kind: domain.KindCollection, ExternalID: "a", ScopeID: "hc"})
	f.remote.fetchErr["collection/b"] = &domain.HTTPError{StatusCode: 500, Body: "upstream down"}
	f.remote.addObject(domain.ExternalObject{Kind: domain.KindCollection, ExternalID: "c", ScopeID: "hc"})

	err := f.permissions.Apply(ctx, 42, domain.PermissionChangeBatch{
		domain.EncodeNodeID(42, domain.KindCollection, "a"): domain.PermissionRead,
		domain.EncodeNodeID(42, domain.KindCollection, "b"): domain.PermissionRead,
		domain.EncodeNodeID(42, domain.KindCollection, "c"): domain.PermissionRead,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRemoteFetchFailed))

	var fetchErr *domain.RemoteFetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "b", fetchErr.ExternalID)
	var httpErr *domain.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 500, httpErr.StatusCode)

	// Entries before the failure stay committed, later ones never run.
	a, _ := f.objects.Find(ctx, 42, domain.KindCollection, "a")
	assert.Equal(t, domain.PermissionRead, a.Permission)
	c, _ := f.objects.Find(ctx, 42, domain.KindCollection, "c")
	assert.Nil(t, c)
	assert.Empty(t, f.workflow.launches)
}

func TestPermissionService_Apply_SignalFailureKeepsMutations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(domain.ProviderIntercom, 42)
	f.workflow.launchErr = errors.New("broker unavailable")
	f.seed(domain.ExternalObject{ConnectorID: 42, Kind: domain.KindTeam, ExternalID: "t1", Permission: domain.PermissionNone})

	err := f.permissions.Apply(ctx, 42, domain.PermissionChangeBatch{
		domain.EncodeNodeID(42, domain.KindTeam, "t1"): domain.PermissionRead,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSignalDeliveryFailed))

	t1, _ := f.objects.Find(ctx, 42, domain.KindTeam, "t1")
	assert.Equal(t, domain.PermissionRead, t1.Permission)
}

func TestPermissionService_Apply_SkipsUnknownAndUnselectable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(domain.ProviderIntercom, 42)

	err := f.permissions.Apply(ctx, 42, domain.PermissionChangeBatch{
		"garbage-string": domain.PermissionRead,
		domain.EncodeNodeID(42, domain.KindArticle, "a1"):    domain.PermissionRead,
		domain.EncodeNodeID(42, domain.KindDriveFile, "f1"):  domain.PermissionRead,
		domain.EncodeNodeID(43, domain.KindTeam, "t1"):       domain.PermissionRead,
		domain.EncodeNodeID(42, domain.KindWorkspace, "ws1"): domain.PermissionRead,
	})
	require.NoError(t, err)
	assert.Zero(t, f.remote.fetchCount())
	assert.Empty(t, f.workflow.launches)
}

func TestPermissionService_Apply_DriveScopeIsTopFolder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(domain.ProviderGoogleDrive, 42)
	f.seed(driveTree()[:2]...)
	f.remote.addObject(domain.ExternalObject{Kind: domain.KindDriveFile, ExternalID: "leaf", Name: "Leaf",
		ParentID: "mid", ParentKind: domain.KindDriveFile})

	err := f.permissions.Apply(ctx, 42, domain.PermissionChangeBatch{
		domain.EncodeNodeID(42, domain.KindDriveFile, "leaf"): domain.PermissionRead,
	})
	require.NoError(t, err)
	require.Len(t, f.workflow.launches, 1)
	assert.Equal(t, []string{domain.EncodeNodeID(42, domain.KindDriveFile, "root")}, f.workflow.launches[0].ScopeIDs)
}

func TestPermissionService_Apply_DriveBatchResolvesScopesAfterWrites(t *testing.T) {
	for name, cache := range map[string]driven.AncestorCache{"uncached": nil, "cached": cachemem.New()} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(domain.ProviderGoogleDrive, 42)
			f.useCache(cache)
			f.remote.addObject(domain.ExternalObject{Kind: domain.KindDriveFile, ExternalID: "a-file", Name: "A",
				ParentID: "b-folder", ParentKind: domain.KindDriveFile})
			f.remote.addObject(domain.ExternalObject{Kind: domain.KindDriveFile, ExternalID: "b-folder", Name: "B",
				ParentID: "z-top", ParentKind: domain.KindDriveFile})

			// A chain cached before the batch must not leak into its scopes.
			_, err := f.resolver.Ancestors(ctx, 42, domain.EncodeNodeID(42, domain.KindDriveFile, "b-folder"))
			require.NoError(t, err)

			err = f.permissions.Apply(ctx, 42, domain.PermissionChangeBatch{
				domain.EncodeNodeID(42, domain.KindDriveFile, "a-file"):   domain.PermissionRead,
				domain.EncodeNodeID(42, domain.KindDriveFile, "b-folder"): domain.PermissionRead,
			})
			require.NoError(t, err)
			require.Len(t, f.workflow.launches, 1)
			assert.Equal(t, []string{domain.EncodeNodeID(42, domain.KindDriveFile, "z-top")}, f.workflow.launches[0].ScopeIDs)
		})
	}
}

func TestPermissionService_Apply_HelpCenterGrantCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(domain.ProviderIntercom, 42)
	f.seed(
		domain.ExternalObject{ConnectorID: 42, Kind: domain.KindHelpCenter, ExternalID: "hc", Name: "Help", Permission: domain.PermissionRead},
		domain.ExternalObject{ConnectorID: 42, Kind: domain.KindCollection, ExternalID: "c1", Name: "C1", ScopeID: "hc", Permission: domain.PermissionNone},
		domain.ExternalObject{ConnectorID: 42, Kind: domain.KindCollection, ExternalID: "c3", Name: "C3", ScopeID: "hc", Permission: domain.PermissionRead},
	)
	f.remote.listed = []domain.ExternalObject{
		{Kind: domain.KindCollection, ExternalID: "c1", Name: "C1", ScopeID: "hc"},
		{Kind: domain.KindCollection, ExternalID: "c2", Name: "C2", ScopeID: "hc", ParentID: "c1", ParentKind: domain.KindCollection},
		{Kind: domain.KindCollection, ExternalID: "c3", Name: "C3", ScopeID: "hc"},
		{Kind: domain.KindCollection, ExternalID: "other", Name: "Other", ScopeID: "hc2"},
	}

	// The help center itself is already readable; its children still change.
	err := f.permissions.Apply(ctx, 42, domain.PermissionChangeBatch{
		domain.EncodeNodeID(42, domain.KindHelpCenter, "hc"): domain.PermissionRead,
	})
	require.NoError(t, err)

	for _, id := range []string{"c1", "c2", "c3"} {
		c, err := f.objects.Find(ctx, 42, domain.KindCollection, id)
		require.NoError(t, err)
		require.NotNil(t, c, id)
		assert.Equal(t, domain.PermissionRead, c.Permission, id)
	}
	other, err := f.objects.Find(ctx, 42, domain.KindCollection, "other")
	require.NoError(t, err)
	assert.Nil(t, other)

	require.Len(t, f.workflow.launches, 1)
	assert.Equal(t, []string{domain.EncodeNodeID(42, domain.KindHelpCenter, "hc")}, f.workflow.launches[0].ScopeIDs)

	// Nothing left to change: no signal.
	require.NoError(t, f.permissions.Apply(ctx, 42, domain.PermissionChangeBatch{
		domain.EncodeNodeID(42, domain.KindHelpCenter, "hc"): domain.PermissionRead,
	}))
	assert.Len(t, f.workflow.launches, 1)
}

func TestPermissionService_Apply_HelpCenterCascadeFailureAborts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(domain.ProviderIntercom, 42)
	f.remote.addObject(domain.ExternalObject{Kind: domain.KindHelpCenter, ExternalID: "hc", Name: "Help"})
	f.remote.listErr = &domain.HTTPError{StatusCode: 503, Body: "unavailable"}

	err := f.permissions.Apply(ctx, 42, domain.PermissionChangeBatch{
		domain.EncodeNodeID(42, domain.KindHelpCenter, "hc"): domain.PermissionRead,
	})
	assert.ErrorIs(t, err, domain.ErrRemoteFetchFailed)
	assert.Empty(t, f.workflow.launches)
}

func TestPermissionService_Apply_HelpCenterRevokeDoesNotList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(domain.ProviderIntercom, 42)
	f.seed(domain.ExternalObject{ConnectorID: 42, Kind: domain.KindHelpCenter, ExternalID: "hc", Name: "Help", Permission: domain.PermissionRead})

	require.NoError(t, f.permissions.Apply(ctx, 42, domain.PermissionChangeBatch{
		domain.EncodeNodeID(42, domain.KindHelpCenter, "hc"): domain.PermissionNone,
	}))
	assert.Empty(t, f.remote.lists)
	require.Len(t, f.workflow.launches, 1)
}

func TestPermissionService_Titles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(domain.ProviderIntercom, 42)
	f.seed(intercomTree(42)...)
	f.seed(domain.ExternalObject{ConnectorID: 42, Kind: domain.KindTeam, ExternalID: "t1", Name: "Eng"})

	ids := []string{
		domain.EncodeNodeID(42, domain.KindHelpCenter, "hc"),
		domain.EncodeNodeID(42, domain.KindCollection, "c2"),
		domain.EncodeNodeID(42, domain.KindArticle, "a1"),
		domain.EncodeNodeID(42, domain.KindTeam, "t1"),
		domain.EncodeNodeID(42, domain.KindTeam, "missing"),
		domain.ConversationsNodeID(42),
		"garbage-string",
	}
	titles, err := f.permissions.Titles(ctx, 42, ids)
	require.NoError(t, err)
	require.Len(t, titles, len(ids))

	assert.Equal(t, "Help", *titles[ids[0]])
	assert.Equal(t, "C2", *titles[ids[1]])
	assert.Equal(t, "A1", *titles[ids[2]])
	assert.Equal(t, "Eng", *titles[ids[3]])
	assert.Nil(t, titles[ids[4]])
	assert.Equal(t, domain.ConversationsTitle, *titles[ids[5]])
	assert.Nil(t, titles[ids[6]])
}

func TestPermissionService_Ancestors(t *testing.T) {
	f := newFixture(domain.ProviderIntercom, 42)
	f.seed(intercomTree(42)...)

	ancestors, err := f.permissions.Ancestors(context.Background(), 42, domain.EncodeNodeID(42, domain.KindCollection, "c2"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		domain.EncodeNodeID(42, domain.KindCollection, "c1"),
		domain.EncodeNodeID(42, domain.KindHelpCenter, "hc"),
	}, ancestors)

	_, err = f.permissions.Ancestors(context.Background(), 9, "x")
	assert.ErrorIs(t, err, domain.ErrConnectorNotFound)
}

func TestPermissionService_Retrieve_ReadOnlyRoots(t *testing.T) {
	ctx := context.Background()
	f := newFixture(domain.ProviderIntercom, 42)
	f.seed(
		domain.ExternalObject{ConnectorID: 42, Kind: domain.KindHelpCenter, ExternalID: "hc2", Name: "Zeta", Permission: domain.PermissionRead},
		domain.ExternalObject{ConnectorID: 42, Kind: domain.KindHelpCenter, ExternalID: "hc1", Name: "Alpha", Permission: domain.PermissionRead},
		domain.ExternalObject{ConnectorID: 42, Kind: domain.KindHelpCenter, ExternalID: "hc3", Name: "Beta", Permission: domain.PermissionNone},
		domain.ExternalObject{ConnectorID: 42, Kind: domain.KindTeam, ExternalID: "t1", Name: "Eng", Permission: domain.PermissionRead},
	)

	nodes, err := f.permissions.Retrieve(ctx, 42, "", true)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, "Alpha", nodes[0].Title)
	assert.Equal(t, domain.ConversationsTitle, nodes[1].Title)
	assert.True(t, nodes[1].PreventSelection)
	assert.Equal(t, domain.PermissionRead, nodes[1].Permission)
	assert.Equal(t, "Zeta", nodes[2].Title)
	assert.True(t, nodes[2].Expandable)

	teams, err := f.permissions.Retrieve(ctx, 42, domain.ConversationsNodeID(42), true)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, domain.NodeTypeChannel, teams[0].Type)
	assert.Equal(t, domain.ConversationsNodeID(42), teams[0].ParentInternalID)
}

func TestPermissionService_Retrieve_ReadOnlyHidesEmptyConversations(t *testing.T) {
	f := newFixture(domain.ProviderIntercom, 42)
	nodes, err := f.permissions.Retrieve(context.Background(), 42, "", true)
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestPermissionService_Retrieve_MergesRemoteWithLocal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(domain.ProviderIntercom, 42)
	f.remote.listed = []domain.ExternalObject{
		{Kind: domain.KindCollection, ExternalID: "c2", Name: "Second", ScopeID: "hc"},
		{Kind: domain.KindCollection, ExternalID: "c1", Name: "First", ScopeID: "hc"},
	}
	f.seed(domain.ExternalObject{ConnectorID: 42, Kind: domain.KindCollection, ExternalID: "c2", Name: "Second",
		ScopeID: "hc", Permission: domain.PermissionRead})

	parent := domain.EncodeNodeID(42, domain.KindHelpCenter, "hc")
	nodes, err := f.permissions.Retrieve(ctx, 42, parent, false)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "First", nodes[0].Title)
	assert.Equal(t, domain.PermissionNone, nodes[0].Permission)
	assert.Equal(t, "Second", nodes[1].Title)
	assert.Equal(t, domain.PermissionRead, nodes[1].Permission)
	assert.Equal(t, parent, nodes[1].ParentInternalID)

	readOnly, err := f.permissions.Retrieve(ctx, 42, parent, true)
	require.NoError(t, err)
	require.Len(t, readOnly, 1)
	assert.Equal(t, domain.EncodeNodeID(42, domain.KindCollection, "c2"), readOnly[0].InternalID)
}

func TestPermissionService_Retrieve_InvalidParent(t *testing.T) {
	f := newFixture(domain.ProviderIntercom, 42)
	_, err := f.permissions.Retrieve(context.Background(), 42, "garbage-string", false)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
