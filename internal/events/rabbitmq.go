package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tutrabajo/apiserver/config"
)

// RabbitMQClient publishes events to a queue named after the channel through
// the default exchange. Publishes run in confirm mode, so Publish returns only
// once the broker has taken responsibility for the message.
type RabbitMQClient struct {
	conn            *amqp.Connection
	queueDurable    bool
	queueAutoDelete bool

	// mu guards publishCh, which amqp does not allow to be shared between
	// concurrent publishers, and declared.
	mu        sync.Mutex
	publishCh *amqp.Channel
	declared  map[string]struct{}
}

// NewRabbitMQClient dials the broker and opens a confirming publish channel.
func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	return &RabbitMQClient{
		conn:            conn,
		publishCh:       ch,
		queueDurable:    cfg.QueueDurable,
		queueAutoDelete: cfg.QueueAutoDelete,
		declared:        make(map[string]struct{}),
	}, nil
}

// Publish sends data to the channel's queue and waits for the broker ack.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}

	msg := newPublishing(data, attrs)

	r.mu.Lock()
	if _, ok := r.declared[channel]; !ok {
		if err := r.declare(r.publishCh, channel); err != nil {
			r.mu.Unlock()
			return "", err
		}
		r.declared[channel] = struct{}{}
	}
	confirm, err := r.publishCh.PublishWithDeferredConfirmWithContext(ctx, "", channel, false, false, msg)
	r.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", channel, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return "", fmt.Errorf("confirm publish to %s: %w", channel, err)
	}
	if !acked {
		return "", fmt.Errorf("broker nacked message %s on %s", msg.MessageId, channel)
	}
	return msg.MessageId, nil
}

// Subscribe consumes the channel's queue on its own amqp channel until ctx
// ends. A handler error requeues the delivery.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}

	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}
	defer ch.Close()

	if err := r.declare(ch, channel); err != nil {
		return err
	}
	deliveries, err := ch.ConsumeWithContext(ctx, channel, "jobboard-tail-"+uuid.NewString(), false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", channel, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("rabbitmq delivery channel closed")
			}
			if err := handler(ctx, messageFromDelivery(delivery)); err != nil {
				_ = delivery.Nack(false, true)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

// Close closes the publish channel and the connection.
func (r *RabbitMQClient) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.publishCh != nil {
		_ = r.publishCh.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func (r *RabbitMQClient) declare(ch *amqp.Channel, queue string) error {
	if _, err := ch.QueueDeclare(queue, r.queueDurable, r.queueAutoDelete, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return nil
}

func newPublishing(data []byte, attrs map[string]string) amqp.Publishing {
	headers := make(amqp.Table, len(attrs))
	for key, value := range attrs {
		headers[key] = value
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Headers:      headers,
		Body:         data,
	}
	if eventType, ok := attrs["type"]; ok {
		msg.Type = eventType
	}
	return msg
}

func messageFromDelivery(d amqp.Delivery) Message {
	return Message{
		ID:         d.MessageId,
		Data:       d.Body,
		Attributes: headersToAttributes(d.Headers),
	}
}

func headersToAttributes(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for key, value := range headers {
		switch typed := value.(type) {
		case string:
			attrs[key] = typed
		case []byte:
			attrs[key] = string(typed)
		default:
			attrs[key] = fmt.Sprint(value)
		}
	}
	return attrs
}
