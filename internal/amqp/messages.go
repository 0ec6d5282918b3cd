package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Entity names the kind of record a change message refers to.
type Entity string

const (
	EntityExpense  Entity = "expense"
	EntityBudget   Entity = "budget"
	EntityCategory Entity = "category"
)

// Action names what happened to the record.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
	ActionSet     Action = "set"
)

// ChangeMessage is published after a write has been committed. It carries
// identifiers only; consumers read the current state from the repository.
type ChangeMessage struct {
	Entity    Entity    `json:"entity"`
	Action    Action    `json:"action"`
	ID        int64     `json:"id,omitempty"`
	UserID    int64     `json:"user_id,omitempty"`
	ActorID   int64     `json:"actor_id"`
	Period    string    `json:"period,omitempty"`
	Category  string    `json:"category,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChangeMessage stamps a message with the current time.
func NewChangeMessage(entity Entity, action Action, actorID int64) ChangeMessage {
	return ChangeMessage{
		Entity:    entity,
		Action:    action,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
	}
}

// RoutingKey is "<entity>.<action>".
func (m ChangeMessage) RoutingKey() string {
	return string(m.Entity) + "." + string(m.Action)
}

// ToJSON converts the message to JSON bytes
func (m ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON creates a message from JSON bytes
func ChangeMessageFromJSON(data []byte) (ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ChangeMessage{}, err
	}
	if msg.Entity == "" || msg.Action == "" {
		return ChangeMessage{}, fmt.Errorf("change message missing entity or action")
	}
	return msg, nil
}
