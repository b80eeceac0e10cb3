package subscriber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
	"github.com/rbroggi/clerksync/internal/core/model"
	"github.com/rbroggi/clerksync/internal/core/ports"

	log "github.com/sirupsen/logrus"
)

// usersTable is the table whose change stream is consumed.
const usersTable = "users"

// SubscriberArgs contain the mandatory arguments to build a subscriber.
type SubscriberArgs struct {
	// Subscription is a pubsub subscription
	Subscription *pubsub.Subscription

	// UserEventHandler is a event handler
	UserEventHandler ports.UserEventHandler
}

// Subscriber is a pubsub async subscriber
type Subscriber struct {
	subscription     *pubsub.Subscription
	userEventHandler ports.UserEventHandler
}

// NewSubscriber creates a subscriber
func NewSubscriber(args SubscriberArgs) *Subscriber {
	return &Subscriber{
		subscription:     args.Subscription,
		userEventHandler: args.UserEventHandler,
	}
}

// Consume starts the subscriber. This is a blocking method and should be started in it's own go-routine.
// The way to terminate the method is to cancel the context in input.
func (s *Subscriber) Consume(ctx context.Context) error {
	if err := s.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.process(ctx, msg)
	}); err != nil {
		return fmt.Errorf("error receiving messages from subscription: %w", err)
	}
	return nil
}

func (s *Subscriber) process(ctx context.Context, msg *pubsub.Message) {
	logger := log.WithField("message_id", msg.ID)

	userEvent, err := decodeMsgIntoUserEvent(msg.ID, msg.Data)
	if errors.Is(err, ErrIgnoreEvent) {
		logger.WithError(err).Debug("skipping change event")
		msg.Ack()
		return
	}
	if err != nil {
		logger.WithError(err).Error("error decoding message into user-event")
		msg.Nack()
		return
	}

	if err := s.userEventHandler.Handle(ctx, *userEvent); err != nil {
		logger.WithError(err).Error("error in user event handler")
		msg.Nack()
		return
	}
	msg.Ack()
}

var (
	ErrIgnoreEvent = errors.New("event should be ignored")
)

func decodeMsgIntoUserEvent(id string, data []byte) (*model.UserEvent, error) {
	// tombstones follow deletes when the connector runs with tombstones enabled
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, fmt.Errorf("tombstone: %w", ErrIgnoreEvent)
	}
	debeziumMsg := new(debeziumMessage)
	if err := json.Unmarshal(data, debeziumMsg); err != nil {
		return nil, fmt.Errorf("json unmarshal error: %w", err)
	}

	if debeziumMsg.Payload.Source.Table != usersTable {
		return nil, fmt.Errorf("table %q: %w", debeziumMsg.Payload.Source.Table, ErrIgnoreEvent)
	}

	userEvent := &model.UserEvent{ID: id}
	userBefore, err := translateUserToModel(debeziumMsg.Payload.Before)
	if err != nil {
		return nil, fmt.Errorf("before image: %w", err)
	}
	userEvent.Before = userBefore
	userAfter, err := translateUserToModel(debeziumMsg.Payload.After)
	if err != nil {
		return nil, fmt.Errorf("after image: %w", err)
	}
	userEvent.After = userAfter

	return userEvent, nil
}

func translateUserToModel(dbzUser *debeziumUser) (*model.User, error) {
	if dbzUser == nil {
		return nil, nil
	}
	id, err := uuid.Parse(dbzUser.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", dbzUser.ID, err)
	}

	deletedAt := time.Time{}
	if dbzUser.DeletedAt != nil {
		deletedAt = dbzUser.DeletedAt.Time
	}

	return &model.User{
		ID:        id.String(),
		ClerkID:   dbzUser.ClerkID,
		Email:     dbzUser.Email,
		Username:  dbzUser.Username,
		FirstName: dbzUser.FirstName,
		LastName:  dbzUser.LastName,
		Photo:     dbzUser.Photo,
		CreatedAt: dbzUser.CreatedAt.Time,
		UpdatedAt: dbzUser.UpdatedAt.Time,
		DeletedAt: deletedAt,
	}, nil
}

type debeziumMessage struct {
	// Payload is the debezium segment containing the change.
	Payload payload `json:"payload"`
}

type payload struct {
	Op     string        `json:"op"`
	Source source        `json:"source"`
	Before *debeziumUser `json:"before"`
	After  *debeziumUser `json:"after"`
}

type source struct {
	Schema string `json:"schema"`
	Table  string `json:"table"`
}

type debeziumUser struct {
	ID        string        `json:"id"`
	ClerkID   string        `json:"clerk_id"`
	Email     string        `json:"email"`
	Username  string        `json:"username"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	Photo     string        `json:"photo"`
	CreatedAt DebeziumTime  `json:"created_at"`
	UpdatedAt DebeziumTime  `json:"updated_at"`
	DeletedAt *DebeziumTime `json:"deleted_at"`
}

// DebeziumTime decodes the temporal encodings of the connector: ISO-8601 strings for
// timestamptz columns and microseconds from epoch for timestamp columns.
type DebeziumTime struct {
	time.Time
}

func (dt *DebeziumTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return err
		}
		dt.Time = t.UTC()
		return nil
	}
	var micros int64
	if err := json.Unmarshal(b, &micros); err != nil {
		return err
	}
	dt.Time = time.UnixMicro(micros).UTC()
	return nil
}
