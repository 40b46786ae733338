package websocket

import (
	"encoding/json"

	"github.com/growthpath/growthpath-be/internal/models"
)

// Actions carried in the Action field.
const (
	ActionActivity = "activity"
	ActionPing     = "ping"
	ActionPong     = "pong"
	ActionError    = "error"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload,omitempty"`
}

// NewActivityMessage encodes an activity feed entry.
func NewActivityMessage(event models.Event) ([]byte, error) {
	return json.Marshal(Message{Action: ActionActivity, Payload: event})
}

// NewPongMessage answers a client ping.
func NewPongMessage() []byte {
	b, _ := json.Marshal(Message{Action: ActionPong})
	return b
}

// NewErrorMessage reports a problem with a client request.
func NewErrorMessage(msg string) []byte {
	b, _ := json.Marshal(Message{Action: ActionError, Payload: map[string]string{"message": msg}})
	return b
}
