package memory

import (
	"mnemonic-backend/internal/domain/shared"
)

// Event types raised by the memory entry aggregate.
const (
	EventMemoryEntryCreated = "MemoryEntryCreated"
	EventMemoryEntryUpdated = "MemoryEntryUpdated"
	EventConflictDetected   = "ConflictDetected"
	EventConfidenceUpdated  = "ConfidenceUpdated"
)

// EntryCreatedEvent is fired when a new memory entry is created.
type EntryCreatedEvent struct {
	shared.BaseEvent
	Problem  string `json:"problem"`
	Solution string `json:"solution"`
	Category string `json:"category"`
}

// NewEntryCreatedEvent creates a new EntryCreatedEvent.
func NewEntryCreatedEvent(entryID string, version int, problem, solution, category string) *EntryCreatedEvent {
	return &EntryCreatedEvent{
		BaseEvent: shared.NewBaseEvent(EventMemoryEntryCreated, entryID, version),
		Problem:   problem,
		Solution:  solution,
		Category:  category,
	}
}

// EventData returns the event-specific data.
func (e *EntryCreatedEvent) EventData() map[string]interface{} {
	return map[string]interface{}{
		"problem":  e.Problem,
		"solution": e.Solution,
		"category": e.Category,
	}
}

// EntryUpdatedEvent is fired when an entry's solution is revised.
type EntryUpdatedEvent struct {
	shared.BaseEvent
	OldSolution string `json:"old_solution"`
	NewSolution string `json:"new_solution"`
	Reason      string `json:"reason"`
}

// NewEntryUpdatedEvent creates a new EntryUpdatedEvent.
func NewEntryUpdatedEvent(entryID string, version int, oldSolution, newSolution, reason string) *EntryUpdatedEvent {
	return &EntryUpdatedEvent{
		BaseEvent:   shared.NewBaseEvent(EventMemoryEntryUpdated, entryID, version),
		OldSolution: oldSolution,
		NewSolution: newSolution,
		Reason:      reason,
	}
}

// EventData returns the event-specific data.
func (e *EntryUpdatedEvent) EventData() map[string]interface{} {
	return map[string]interface{}{
		"old_solution": e.OldSolution,
		"new_solution": e.NewSolution,
		"reason":       e.Reason,
	}
}

// ConflictDetectedEvent is fired when a conflicting entry is recorded
// against this one. The event is recorded even when the conflict ID is
// already known; only the state application de-duplicates.
type ConflictDetectedEvent struct {
	shared.BaseEvent
	ConflictID     string `json:"conflict_id"`
	Strategy       string `json:"strategy"`
	TotalConflicts int    `json:"total_conflicts"`
}

// NewConflictDetectedEvent creates a new ConflictDetectedEvent.
func NewConflictDetectedEvent(entryID string, version int, conflictID, strategy string, totalConflicts int) *ConflictDetectedEvent {
	return &ConflictDetectedEvent{
		BaseEvent:      shared.NewBaseEvent(EventConflictDetected, entryID, version),
		ConflictID:     conflictID,
		Strategy:       strategy,
		TotalConflicts: totalConflicts,
	}
}

// EventData returns the event-specific data.
func (e *ConflictDetectedEvent) EventData() map[string]interface{} {
	return map[string]interface{}{
		"conflict_id":     e.ConflictID,
		"strategy":        e.Strategy,
		"total_conflicts": e.TotalConflicts,
	}
}

// ConfidenceUpdatedEvent is fired when the confidence score changes.
type ConfidenceUpdatedEvent struct {
	shared.BaseEvent
	OldConfidence float64 `json:"old_confidence"`
	NewConfidence float64 `json:"new_confidence"`
}

// NewConfidenceUpdatedEvent creates a new ConfidenceUpdatedEvent.
func NewConfidenceUpdatedEvent(entryID string, version int, oldConfidence, newConfidence float64) *ConfidenceUpdatedEvent {
	return &ConfidenceUpdatedEvent{
		BaseEvent:     shared.NewBaseEvent(EventConfidenceUpdated, entryID, version),
		OldConfidence: oldConfidence,
		NewConfidence: newConfidence,
	}
}

// EventData returns the event-specific data.
func (e *ConfidenceUpdatedEvent) EventData() map[string]interface{} {
	return map[string]interface{}{
		"old_confidence": e.OldConfidence,
		"new_confidence": e.NewConfidence,
	}
}
