package httpapi

import (
	"encoding/json"
	"fmt"

	"github.com/rbroggi/clerksync/internal/core/model"
)

// clerkEnvelope is the outer object of every Clerk webhook delivery.
type clerkEnvelope struct {
	Type   string          `json:"type"`
	Object string          `json:"object"`
	Data   json.RawMessage `json:"data"`
}

type clerkEmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// clerkUser is the data object of user.created and user.updated. Nullable strings decode as empty.
type clerkUser struct {
	ID             string              `json:"id"`
	EmailAddresses []clerkEmailAddress `json:"email_addresses"`
	Username       string              `json:"username"`
	FirstName      string              `json:"first_name"`
	LastName       string              `json:"last_name"`
	ImageURL       string              `json:"image_url"`
}

// clerkDeletedObject is the data object of user.deleted.
type clerkDeletedObject struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

// decodeEvent translates a verified delivery body into its event variant.
func decodeEvent(body []byte) (model.Event, error) {
	envelope := new(clerkEnvelope)
	if err := json.Unmarshal(body, envelope); err != nil {
		return nil, fmt.Errorf("json unmarshal error: %w", err)
	}

	eventType := model.EventType(envelope.Type)
	switch eventType {
	case model.EventUserCreated:
		u, err := decodeData[clerkUser](envelope)
		if err != nil {
			return nil, err
		}
		created := model.UserCreated{
			ClerkID:   u.ID,
			Username:  u.Username,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Photo:     u.ImageURL,
		}
		if len(u.EmailAddresses) > 0 {
			created.Email = u.EmailAddresses[0].EmailAddress
		}
		return created, nil
	case model.EventUserUpdated:
		u, err := decodeData[clerkUser](envelope)
		if err != nil {
			return nil, err
		}
		return model.UserUpdated{
			ClerkID:   u.ID,
			Username:  u.Username,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Photo:     u.ImageURL,
		}, nil
	case model.EventUserDeleted:
		d, err := decodeData[clerkDeletedObject](envelope)
		if err != nil {
			return nil, err
		}
		return model.UserDeleted{ClerkID: d.ID}, nil
	default:
		return model.UnrecognizedEvent{Type: eventType, Data: envelope.Data}, nil
	}
}

func decodeData[T any](envelope *clerkEnvelope) (*T, error) {
	data := new(T)
	if len(envelope.Data) == 0 {
		return nil, fmt.Errorf("%s event without data", envelope.Type)
	}
	if err := json.Unmarshal(envelope.Data, data); err != nil {
		return nil, fmt.Errorf("%s data unmarshal error: %w", envelope.Type, err)
	}
	return data, nil
}
