package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/permsync/internal/core/domain"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func newTestClient() (*Client, *fakeWriter) {
	w := &fakeWriter{}
	c := newClient(w, "connector-sync")
	c.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return c, w
}

func decode(t *testing.T, msg kafka.Message) Command {
	t.Helper()
	var cmd Command
	require.NoError(t, json.Unmarshal(msg.Value, &cmd))
	return cmd
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestClient_LaunchFromScratch(t *testing.T) {
	c, w := newTestClient()

	require.NoError(t, c.Launch(context.Background(), domain.SyncRequest{ConnectorID: 42}))
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "42", string(msg.Key))
	assert.Equal(t, TypeLaunch, header(msg, "type"))

	cmd := decode(t, msg)
	assert.Equal(t, TypeLaunch, cmd.Type)
	assert.Equal(t, int64(42), cmd.ConnectorID)
	assert.Nil(t, cmd.Cursor)
	assert.Empty(t, cmd.ScopeIDs)
	assert.NotEmpty(t, cmd.ID)
	assert.Equal(t, cmd.ID, header(msg, "message_id"))
	assert.Equal(t, 2026, cmd.Timestamp.Year())
	assert.NotContains(t, string(msg.Value), "cursor")
}

func TestClient_LaunchWithScopesIsSignal(t *testing.T) {
	c, w := newTestClient()
	cursor := "c-1"

	require.NoError(t, c.Launch(context.Background(), domain.SyncRequest{
		ConnectorID: 42,
		Cursor:      &cursor,
		ScopeIDs:    []string{"intercom-team-42-t1"},
	}))

	cmd := decode(t, w.messages[0])
	assert.Equal(t, TypeSignal, cmd.Type)
	require.NotNil(t, cmd.Cursor)
	assert.Equal(t, "c-1", *cmd.Cursor)
	assert.Equal(t, []string{"intercom-team-42-t1"}, cmd.ScopeIDs)
}

func TestClient_Stop(t *testing.T) {
	c, w := newTestClient()

	require.NoError(t, c.Stop(context.Background(), 7))
	cmd := decode(t, w.messages[0])
	assert.Equal(t, TypeStop, cmd.Type)
	assert.Equal(t, "7", header(w.messages[0], "connector_id"))

	require.NoError(t, c.Close())
	assert.True(t, w.closed)
}

func TestClient_WriteFailure(t *testing.T) {
	c, w := newTestClient()
	w.err = errors.New("leader not available")

	err := c.Launch(context.Background(), domain.SyncRequest{ConnectorID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}
