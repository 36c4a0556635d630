package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("chatrecords-events")

// Subjects published by the record services
const (
	FileCreated = "files.created"
	FileDeleted = "files.deleted"
	FileShared  = "files.shared"

	MessageCreated         = "messages.created"
	MessageUpdated         = "messages.updated"
	MessageDeleted         = "messages.deleted"
	MessageReactionAdded   = "messages.reaction_added"
	MessageReactionRemoved = "messages.reaction_removed"
	MessagePinned          = "messages.pinned"
	MessageUnpinned        = "messages.unpinned"
)

// StreamName is the JetStream stream holding every record event
const StreamName = "chat-records"

// Event is the JSON payload of a lifecycle notification
type Event struct {
	Type        string    `json:"type"`
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id,omitempty"`
	ChannelID   string    `json:"channel_id,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	Emoji       string    `json:"emoji,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher delivers lifecycle events. Callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards events
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error { return nil }

// NATSPublisher publishes events to JetStream with a unique message id per event
type NATSPublisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// ConnectNATS connects to NATS, initializes JetStream and ensures the stream exists
func ConnectNATS(url, clientName string, logger *logrus.Logger) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize JetStream: %w", err)
	}

	if err := ensureStream(js); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ensure stream %s: %w", StreamName, err)
	}

	logger.WithField("stream", StreamName).Info("NATS connected and JetStream initialized")
	return &NATSPublisher{conn: conn, js: js}, nil
}

func ensureStream(js nats.JetStreamContext) error {
	if _, err := js.StreamInfo(StreamName); err == nil {
		return nil
	}

	_, err := js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{"files.*", "messages.*"},
		Storage:  nats.FileStorage,
		MaxAge:   30 * 24 * time.Hour,
	})
	return err
}

// Publish sends the event on the subject named by its type
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	ctx, span := tracer.Start(ctx, "nats.publish",
		trace.WithAttributes(
			attribute.String("subject", event.Type),
			attribute.String("record_id", event.ID),
		),
	)
	defer span.End()

	data, err := Encode(event)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if _, err := p.js.Publish(event.Type, data, nats.MsgId(uuid.NewString()), nats.Context(ctx)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

// Close drains pending publishes and closes the connection
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// Encode renders the wire form of an event
func Encode(event Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}
