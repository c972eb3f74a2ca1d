package shared

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents an important business occurrence in the domain.
// Events are immutable once constructed; every field is write-once.
type DomainEvent interface {
	// EventID returns a unique identifier for this event instance
	EventID() string

	// EventType returns the type of event (e.g., "MemoryEntryCreated")
	EventType() string

	// AggregateID returns the ID of the aggregate that generated this event
	AggregateID() string

	// Timestamp returns when the event occurred
	Timestamp() time.Time

	// Version returns the version of the aggregate when the event occurred
	Version() int

	// EventData returns the event-specific data
	EventData() map[string]interface{}
}

// BaseEvent provides common functionality for all domain events.
type BaseEvent struct {
	eventID     string
	eventType   string
	aggregateID string
	timestamp   time.Time
	version     int
}

// NewBaseEvent creates a new base event with common fields.
// The version is supplied by the owning aggregate, never self-assigned.
func NewBaseEvent(eventType, aggregateID string, version int) BaseEvent {
	return BaseEvent{
		eventID:     NewEventID(),
		eventType:   eventType,
		aggregateID: aggregateID,
		timestamp:   time.Now(),
		version:     version,
	}
}

// EventID returns the unique event identifier.
func (e BaseEvent) EventID() string {
	return e.eventID
}

// EventType returns the type of event.
func (e BaseEvent) EventType() string {
	return e.eventType
}

// AggregateID returns the aggregate identifier.
func (e BaseEvent) AggregateID() string {
	return e.aggregateID
}

// Timestamp returns the event timestamp.
func (e BaseEvent) Timestamp() time.Time {
	return e.timestamp
}

// Version returns the aggregate version.
func (e BaseEvent) Version() int {
	return e.version
}

// NewEventID generates a globally unique, prefixed event identifier.
// Collisions are treated as statistically impossible; there is no
// collision detection.
func NewEventID() string {
	return "evt_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
