package intercom

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/permsync/internal/core/domain"
)

type staticTokens struct{}

func (staticTokens) AccessToken(context.Context, domain.ProviderType, string) (string, error) {
	return "tok", nil
}

func (staticTokens) DeleteConnection(context.Context, domain.ProviderType, string) error {
	return nil
}

var testConnector = &domain.Connector{ID: 7, Provider: domain.ProviderIntercom, ConnectionID: "conn-1"}

func newTestProvider(t *testing.T, routes map[string]string) *Provider {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, DefaultAPIVersion, r.Header.Get("Intercom-Version"))

		key := r.URL.Path
		if page := r.URL.Query().Get("page"); page != "" {
			key += "?page=" + page
		}
		body, ok := routes[key]
		if !ok {
			http.Error(w, `{"type":"error.list","errors":[{"code":"not_found"}]}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set(HeaderRateRemaining, "9000")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return NewProvider(NewClient(Config{BaseURL: server.URL}, staticTokens{}))
}

func TestFlexID(t *testing.T) {
	var v struct {
		A FlexID `json:"a"`
		B FlexID `json:"b"`
		C FlexID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"12","b":34,"c":null}`), &v))
	assert.Equal(t, FlexID("12"), v.A)
	assert.Equal(t, FlexID("34"), v.B)
	assert.Equal(t, FlexID(""), v.C)
}

func TestProvider_FetchWorkspace(t *testing.T) {
	p := newTestProvider(t, map[string]string{
		"/me": `{"type":"admin","app":{"id_code":"abc123","name":"Acme"}}`,
	})

	ws, err := p.FetchWorkspace(context.Background(), "conn-1")
	require.NoError(t, err)
	assert.Equal(t, "abc123", ws.ID)
	assert.Equal(t, "Acme", ws.Name)
	assert.Equal(t, domain.ProviderIntercom, p.Provider())
}

func TestProvider_FetchObject(t *testing.T) {
	p := newTestProvider(t, map[string]string{
		"/help_center/help_centers/hc": `{"id":"hc","display_name":"Help","url":"https://help.acme.io"}`,
		"/help_center/collections/c2":  `{"id":"c2","name":"Billing","parent_id":"c1","help_center_id":99}`,
		"/help_center/collections/c1":  `{"id":"c1","name":"Accounts","parent_id":null,"help_center_id":99}`,
		"/articles/a1":                 `{"id":"a1","title":"Refunds","parent_id":2,"parent_type":"collection"}`,
		"/teams/t1":                    `{"type":"team","id":"t1","name":"Support"}`,
	})
	ctx := context.Background()

	hc, err := p.FetchObject(ctx, testConnector, domain.KindHelpCenter, "hc")
	require.NoError(t, err)
	assert.Equal(t, "Help", hc.Name)
	assert.Equal(t, "https://help.acme.io", hc.URL)

	nested, err := p.FetchObject(ctx, testConnector, domain.KindCollection, "c2")
	require.NoError(t, err)
	assert.Equal(t, "c1", nested.ParentID)
	assert.Equal(t, domain.KindCollection, nested.ParentKind)
	assert.Equal(t, "99", nested.ScopeID)

	top, err := p.FetchObject(ctx, testConnector, domain.KindCollection, "c1")
	require.NoError(t, err)
	assert.Empty(t, top.ParentID)
	assert.Equal(t, "99", top.ScopeID)

	a, err := p.FetchObject(ctx, testConnector, domain.KindArticle, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Refunds", a.Name)
	assert.Equal(t, "2", a.ParentID)

	team, err := p.FetchObject(ctx, testConnector, domain.KindTeam, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Support", team.Name)
}

func TestProvider_FetchObject_NotFound(t *testing.T) {
	p := newTestProvider(t, map[string]string{})

	_, err := p.FetchObject(context.Background(), testConnector, domain.KindCollection, "missing")
	var httpErr *domain.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Contains(t, httpErr.Body, "not_found")
}

func TestProvider_FetchObject_UnsupportedKind(t *testing.T) {
	p := newTestProvider(t, map[string]string{})

	_, err := p.FetchObject(context.Background(), testConnector, domain.KindDriveFile, "f")
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestProvider_FetchObject_WorkspaceMismatch(t *testing.T) {
	p := newTestProvider(t, map[string]string{
		"/me": `{"app":{"id_code":"abc123","name":"Acme"}}`,
	})

	ws, err := p.FetchObject(context.Background(), testConnector, domain.KindWorkspace, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Acme", ws.Name)

	_, err = p.FetchObject(context.Background(), testConnector, domain.KindWorkspace, "other")
	var httpErr *domain.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.True(t, httpErr.IsNotFound())
}

func TestProvider_ListObjects(t *testing.T) {
	p := newTestProvider(t, map[string]string{
		"/help_center/help_centers": `{"type":"list","data":[{"id":1,"display_name":"Help"},{"id":2,"identifier":"internal"}]}`,
		"/teams":                    `{"type":"team.list","teams":[{"id":"t1","name":"Support"},{"id":"t2","name":"Sales"}]}`,
		"/help_center/collections?page=1": `{"type":"list","data":[
			{"id":"c1","name":"Accounts","help_center_id":1,"parent_id":null},
			{"id":"c2","name":"Billing","help_center_id":1,"parent_id":"c1"}
		],"pages":{"page":1,"total_pages":2}}`,
		"/help_center/collections?page=2": `{"type":"list","data":[
			{"id":"c3","name":"Other","help_center_id":2,"parent_id":null}
		],"pages":{"page":2,"total_pages":2}}`,
	})
	ctx := context.Background()

	hcs, err := p.ListObjects(ctx, testConnector, domain.KindHelpCenter, "", "")
	require.NoError(t, err)
	require.Len(t, hcs, 2)
	assert.Equal(t, "Help", hcs[0].Name)
	assert.Equal(t, "internal", hcs[1].Name)

	teams, err := p.ListObjects(ctx, testConnector, domain.KindTeam, "", "")
	require.NoError(t, err)
	assert.Len(t, teams, 2)

	top, err := p.ListObjects(ctx, testConnector, domain.KindCollection, domain.KindHelpCenter, "1")
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "c1", top[0].ExternalID)

	children, err := p.ListObjects(ctx, testConnector, domain.KindCollection, domain.KindCollection, "c1")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "c2", children[0].ExternalID)

	other, err := p.ListObjects(ctx, testConnector, domain.KindCollection, domain.KindHelpCenter, "2")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "c3", other[0].ExternalID)

	_, err = p.ListObjects(ctx, testConnector, domain.KindArticle, domain.KindCollection, "c1")
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}
