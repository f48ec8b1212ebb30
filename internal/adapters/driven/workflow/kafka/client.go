// Package kafka publishes sync workflow commands to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driven"
	"github.com/custodia-labs/permsync/internal/logger"
)

// Message types understood by the sync workers.
const (
	TypeLaunch = "sync.launch"
	TypeSignal = "sync.signal"
	TypeStop   = "sync.stop"
)

// Config holds Kafka configuration.
type Config struct {
	Brokers []string
	Topic   string
}

// Command is the JSON payload of a workflow message.
type Command struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	ConnectorID int64     `json:"connector_id"`
	Cursor      *string   `json:"cursor,omitempty"`
	ScopeIDs    []string  `json:"scope_ids,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// messageWriter is the subset of *kafka.Writer the client needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Client implements driven.WorkflowClient over Kafka. Messages are keyed by
// connector so commands for one connector stay ordered.
type Client struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

var _ driven.WorkflowClient = (*Client)(nil)

// NewClient creates a client writing to cfg.Topic.
func NewClient(cfg Config) *Client {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newClient(writer, cfg.Topic)
}

func newClient(writer messageWriter, topic string) *Client {
	return &Client{writer: writer, topic: topic, now: time.Now}
}

// Launch starts a sync, or signals the running one when req carries scopes.
func (c *Client) Launch(ctx context.Context, req domain.SyncRequest) error {
	cmd := &Command{
		Type:        TypeLaunch,
		ConnectorID: req.ConnectorID,
		Cursor:      req.Cursor,
		ScopeIDs:    req.ScopeIDs,
	}
	if len(req.ScopeIDs) > 0 {
		cmd.Type = TypeSignal
	}
	return c.publish(ctx, cmd)
}

// Stop asks the workers to terminate the connector's sync.
func (c *Client) Stop(ctx context.Context, connectorID int64) error {
	return c.publish(ctx, &Command{Type: TypeStop, ConnectorID: connectorID})
}

// Close flushes and closes the writer.
func (c *Client) Close() error {
	return c.writer.Close()
}

func (c *Client) publish(ctx context.Context, cmd *Command) error {
	cmd.ID = uuid.NewString()
	cmd.Timestamp = c.now().UTC()

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal %s command: %w", cmd.Type, err)
	}

	key := strconv.FormatInt(cmd.ConnectorID, 10)
	err = c.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(cmd.Type)},
			{Key: "connector_id", Value: []byte(key)},
			{Key: "message_id", Value: []byte(cmd.ID)},
		},
	})
	if err != nil {
		logger.L().Errorw("failed to publish workflow command",
			"topic", c.topic, "type", cmd.Type, "connector_id", cmd.ConnectorID, "error", err)
		return err
	}
	logger.Debug("published %s for connector %d to %s", cmd.Type, cmd.ConnectorID, c.topic)
	return nil
}
