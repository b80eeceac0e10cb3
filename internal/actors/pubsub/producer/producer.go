package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/rbroggi/clerksync/internal/core/model"
)

// Message attributes set on every published user event.
const (
	AttributeEventType = "event_type"
	AttributeClerkID   = "clerk_id"
)

// NewProducer creates a new producer.
func NewProducer(topic *pubsub.Topic) (*Producer, error) {
	if topic == nil {
		return nil, errors.New("topic is nil")
	}
	return &Producer{topic: topic}, nil
}

// Producer is the pubsub producer of user events.
type Producer struct {
	topic *pubsub.Topic
}

// Send publishes event as JSON and blocks until the broker acknowledges it.
func (p *Producer) Send(ctx context.Context, event model.UserEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("error marshaling user-event: %w", err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			AttributeEventType: string(event.Type()),
			AttributeClerkID:   clerkID(event),
		},
	})
	// Block until the result is returned and a server-generated
	// ID is returned for the published message.
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("pubsub: result.Get: %w", err)
	}
	return nil
}

func clerkID(event model.UserEvent) string {
	if event.After != nil {
		return event.After.ClerkID
	}
	if event.Before != nil {
		return event.Before.ClerkID
	}
	return ""
}
