// Package events provides a typed event bus using Watermill for decoupled component communication.
// Events are categorized by priority levels with specific delivery latency guarantees.
package events

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// =============================================================================
// Event Interface and Base Types
// =============================================================================

// Event is the interface that all typed events must implement.
type Event interface {
	GetID() ulid.ULID
	GetType() string
	GetPriority() Priority
	GetTimestamp() time.Time
	GetSource() string
	Payload() ([]byte, error)
}

// EventMetadata contains optional metadata for events.
type EventMetadata struct {
	CorrelationID string            `json:"correlationId,omitempty"`
	CausationID   string            `json:"causationId,omitempty"`
	UserID        string            `json:"userId,omitempty"`
	RequestID     string            `json:"requestId,omitempty"`
	SessionID     string            `json:"sessionId,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// BaseEvent is the base struct for all typed events.
type BaseEvent struct {
	ID        ulid.ULID     `json:"id"`
	Type      string        `json:"type"`
	Priority  Priority      `json:"priority"`
	Timestamp time.Time     `json:"timestamp"`
	Source    string        `json:"source"`
	Metadata  EventMetadata `json:"metadata,omitempty"`
}

func (e *BaseEvent) GetID() ulid.ULID         { return e.ID }
func (e *BaseEvent) GetType() string          { return e.Type }
func (e *BaseEvent) GetPriority() Priority    { return e.Priority }
func (e *BaseEvent) GetTimestamp() time.Time  { return e.Timestamp }
func (e *BaseEvent) GetSource() string        { return e.Source }
func (e *BaseEvent) Payload() ([]byte, error) { return json.Marshal(e) }

func NewBaseEvent(eventType string, priority Priority, source string) BaseEvent {
	return BaseEvent{
		ID:        ulid.Make(),
		Type:      eventType,
		Priority:  priority,
		Timestamp: time.Now(),
		Source:    source,
		Metadata:  EventMetadata{},
	}
}

func NewBaseEventWithMetadata(eventType string, priority Priority, source string, metadata EventMetadata) BaseEvent {
	return BaseEvent{
		ID: ulid.Make(), Type: eventType, Priority: priority,
		Timestamp: time.Now(), Source: source, Metadata: metadata,
	}
}

// =============================================================================
// Common Types
// =============================================================================

// SessionStatus mirrors the persisted session status enum so status-change
// events can carry a typed value instead of a free string.
type SessionStatus string

const (
	SessionStatusInitialization SessionStatus = "initialization"
	SessionStatusComplete       SessionStatus = "complete"
	SessionStatusUpdating       SessionStatus = "updating"
	SessionStatusDeleted        SessionStatus = "deleted"
	SessionStatusError          SessionStatus = "error"
)

// ChangeType represents the type of change made to a resource.
type ChangeType string

const (
	ChangeTypeCreate ChangeType = "create"
	ChangeTypeUpdate ChangeType = "update"
	ChangeTypeDelete ChangeType = "delete"
)

// GenericEvent is a simple event for cases where a specific event type doesn't exist yet.
type GenericEvent struct {
	BaseEvent
	Data map[string]interface{} `json:"data"`
}

func (e *GenericEvent) Payload() ([]byte, error) { return json.Marshal(e) }

func NewGenericEvent(eventType string, priority Priority, source string, data map[string]interface{}) *GenericEvent {
	return &GenericEvent{BaseEvent: NewBaseEvent(eventType, priority, source), Data: data}
}
