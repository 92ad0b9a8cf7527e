package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	UserCreated = "user.created"
	UserDeleted = "user.deleted"
	JobCreated  = "job.created"
	JobUpdated  = "job.updated"
	JobDeleted  = "job.deleted"
	CVUploaded  = "cv.uploaded"
	CVDeleted   = "cv.deleted"
)

const defaultPublishTimeout = 3 * time.Second

// Event is the payload published for every entity change. It carries ids
// only, never entity content.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	EntityID   string    `json:"entity_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Publisher emits entity events on a single channel. A Publisher without a
// backend discards events.
type Publisher struct {
	backend Backend
	channel string
	log     logrus.FieldLogger
	timeout time.Duration
}

// NewPublisher constructs a Publisher. backend may be nil.
func NewPublisher(backend Backend, channel string, log logrus.FieldLogger) *Publisher {
	return &Publisher{
		backend: backend,
		channel: channel,
		log:     log,
		timeout: defaultPublishTimeout,
	}
}

// Emit publishes an event of the given type. Failures are logged and never
// returned; the entity change has already been committed.
func (p *Publisher) Emit(ctx context.Context, eventType, entityID string) {
	if p == nil || p.backend == nil {
		return
	}

	event := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		p.log.WithError(err).WithField("event_type", eventType).Error("failed to encode event")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if _, err := p.backend.Publish(ctx, p.channel, data, map[string]string{"type": eventType}); err != nil {
		p.log.WithError(err).WithFields(logrus.Fields{
			"event_type": eventType,
			"entity_id":  entityID,
		}).Warn("failed to publish event")
	}
}

// Subscribe decodes events from the publisher's channel and passes them to fn.
func (p *Publisher) Subscribe(ctx context.Context, fn func(ctx context.Context, event Event) error) error {
	if p.backend == nil {
		return errors.New("no events backend configured")
	}
	return p.backend.Subscribe(ctx, p.channel, func(ctx context.Context, msg Message) error {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			// Undecodable payloads are dropped rather than redelivered forever.
			p.log.WithError(err).WithField("message_id", msg.ID).Warn("discarding malformed event")
			return nil
		}
		return fn(ctx, event)
	})
}

// Close closes the underlying backend.
func (p *Publisher) Close() error {
	if p == nil || p.backend == nil {
		return nil
	}
	return p.backend.Close()
}
