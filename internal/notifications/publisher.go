package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/pfstore/storefront-backend/pkg/logger"
)

// EventType names the notification events emitted by the order lifecycle.
type EventType string

const (
	EventOrderCreated    EventType = "order.created"
	EventOrderPaid       EventType = "order.paid"
	EventOrderCancelled  EventType = "order.cancelled"
	EventOrderStatus     EventType = "order.status_changed"
	EventReturnRequested EventType = "order.return_requested"
)

// Event is the notification payload published for downstream channels
// (email, LINE push, admin console).
type Event struct {
	ID          uuid.UUID `json:"id"`
	Type        EventType `json:"type"`
	UserID      uuid.UUID `json:"user_id"`
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Data        any       `json:"data,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type topicPublisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) *gcppubsub.PublishResult
}

// Publisher emits notification events. Implementations must be safe for
// best-effort use: order flows never fail on notification errors.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

type publisher struct {
	topic topicPublisher
	logg  *logger.Logger
}

// NewPublisher builds a Pub/Sub-backed notification publisher.
func NewPublisher(topic topicPublisher, logg *logger.Logger) (Publisher, error) {
	if topic == nil {
		return nil, fmt.Errorf("pubsub topic publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &publisher{topic: topic, logg: logg}, nil
}

// Publish sends each event and aggregates failures; callers log and move on.
func (p *publisher) Publish(ctx context.Context, events ...Event) error {
	var errs error
	for _, event := range events {
		if event.ID == uuid.Nil {
			event.ID = uuid.New()
		}
		if event.OccurredAt.IsZero() {
			event.OccurredAt = time.Now().UTC()
		}

		payload, err := json.Marshal(event)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("marshal event %s: %w", event.Type, err))
			continue
		}

		result := p.topic.Publish(ctx, &gcppubsub.Message{
			Data: payload,
			Attributes: map[string]string{
				"event_type": string(event.Type),
			},
		})
		if _, err := result.Get(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("publish event %s: %w", event.Type, err))
		}
	}
	return errs
}

// NopPublisher discards events; used when the notifications flag is off.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...Event) error { return nil }
