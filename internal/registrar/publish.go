package registrar

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/ilofleet/sentinel/internal/client"
	"github.com/ilofleet/sentinel/internal/queue"
)

// newMessageID is a var so tests can substitute a deterministic
// generator.
var newMessageID = uuid.New

func marshalRegistrationRequest(req queue.RegistrationRequest) ([]byte, error) {
	return json.Marshal(req)
}

func (r *Registrar) publishRegistration(ctx context.Context, uc *client.UnauthenticatedClient) error {
	if r.publisher == nil {
		return nil
	}
	payload, err := json.Marshal(uc)
	if err != nil {
		return err
	}
	return r.publisher.Publish(ctx, queue.Message{
		Queue:   queue.UnauthenticatedClientQueue,
		ID:      newMessageID(),
		Payload: payload,
	})
}
