package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"ledger/internal/core"

	"github.com/google/uuid"
)

// Event actions published after a ledger mutation commits.
const (
	ActionCreated     = "created"
	ActionUpdated     = "updated"
	ActionDeleted     = "deleted"
	ActionDeactivated = "deactivated"
	ActionRoleChanged = "role_changed"
)

// LedgerEvent is a lightweight notice that an entity changed. It carries
// identifiers only; consumers read current state from the database.
type LedgerEvent struct {
	ID             string    `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	UserID         int64     `json:"user_id"`
	Action         string    `json:"action"`
	Entity         string    `json:"entity"`
	EntityID       int64     `json:"entity_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewLedgerEvent creates an event with a fresh id, attributed to actor.
func NewLedgerEvent(actor core.Actor, action, entity string, entityID int64) *LedgerEvent {
	return &LedgerEvent{
		ID:             uuid.NewString(),
		OrganizationID: actor.OrganizationID,
		UserID:         actor.UserID,
		Action:         action,
		Entity:         entity,
		EntityID:       entityID,
		Timestamp:      time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and validates an event.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (m *LedgerEvent) Validate() error {
	if _, err := uuid.Parse(m.ID); err != nil {
		return errors.New("event id is not a uuid")
	}
	if m.OrganizationID <= 0 {
		return errors.New("event has no organization")
	}
	if m.Action == "" || m.Entity == "" {
		return errors.New("event has no action or entity")
	}
	return nil
}

// AuditLog converts the event to the row the audit worker stores.
func (m *LedgerEvent) AuditLog() core.AuditLog {
	return core.AuditLog{
		EventID:        m.ID,
		OrganizationID: m.OrganizationID,
		UserID:         m.UserID,
		Action:         m.Action,
		Entity:         m.Entity,
		EntityID:       m.EntityID,
		CreatedAt:      m.Timestamp,
	}
}
