package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHierarchyFor(t *testing.T) {
	intercom, ok := HierarchyFor(ProviderIntercom)
	require.True(t, ok)
	assert.True(t, intercom.IsRoot(KindHelpCenter))
	assert.True(t, intercom.IsRoot(KindTeam))
	assert.False(t, intercom.IsRoot(KindCollection))
	assert.Equal(t, 3, intercom.MaxDepth)
	assert.False(t, intercom.Memoized)

	drive, ok := HierarchyFor(ProviderGoogleDrive)
	require.True(t, ok)
	assert.True(t, drive.Memoized)
	assert.False(t, drive.IsRoot(KindDriveFile))

	_, ok = HierarchyFor("slack")
	assert.False(t, ok)
}

func TestObjectKind_Provider(t *testing.T) {
	assert.Equal(t, ProviderIntercom, KindArticle.Provider())
	assert.Equal(t, ProviderGoogleDrive, KindDriveFile.Provider())
	assert.False(t, ObjectKind("page").IsValid())
}

func TestScopeKind(t *testing.T) {
	assert.Equal(t, KindHelpCenter, ScopeKind(KindCollection))
	assert.Equal(t, KindHelpCenter, ScopeKind(KindArticle))
	assert.Equal(t, KindTeam, ScopeKind(KindTeam))
}

func TestIsSelectable(t *testing.T) {
	assert.True(t, IsSelectable(KindCollection))
	assert.False(t, IsSelectable(KindArticle))
	assert.False(t, IsSelectable(KindWorkspace))
}

func TestWebhook_ExpiresWithin(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	w := Webhook{ExpirationTsMs: now.Add(30 * time.Minute).UnixMilli()}
	assert.True(t, w.ExpiresWithin(now, time.Hour))
	assert.False(t, w.ExpiresWithin(now, 10*time.Minute))
}

func TestScheduledTask_IsDue_Basic(t *testing.T) {
	now := time.Now()
	assert.True(t, (&ScheduledTask{Enabled: true, NextRun: now}).IsDue(now))
	assert.True(t, (&ScheduledTask{Enabled: true}).IsDue(now))
	assert.False(t, (&ScheduledTask{Enabled: false}).IsDue(now))
	assert.False(t, (&ScheduledTask{Enabled: true, NextRun: now.Add(time.Minute)}).IsDue(now))
}
