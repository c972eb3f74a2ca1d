// Package memory contains the memory entry aggregate: a problem/solution
// pair whose state changes only via recorded domain events.
package memory

import (
	"time"

	"mnemonic-backend/internal/domain/shared"
)

// Entry is the memory entry aggregate root. It has no terminal state;
// every command raises exactly one event.
type Entry struct {
	shared.AggregateBase

	problem     string
	solution    string
	category    string
	confidence  float64
	conflictIDs []string
	createdAt   time.Time
	updatedAt   time.Time
}

// CreateEntry allocates a new entry ID and raises MemoryEntryCreated.
func CreateEntry(problem, solution, category string) *Entry {
	entry := &Entry{
		AggregateBase: shared.NewAggregateBase(shared.NewAggregateID("mem")),
	}
	entry.Raise(entry, NewEntryCreatedEvent(entry.ID(), entry.NextVersion(), problem, solution, category))
	return entry
}

// EntryFromHistory reconstructs an entry purely by replaying its committed
// event sequence in order.
func EntryFromHistory(history []shared.DomainEvent) *Entry {
	if len(history) == 0 {
		return nil
	}
	entry := &Entry{
		AggregateBase: shared.NewAggregateBase(history[0].AggregateID()),
	}
	for _, event := range history {
		entry.ReplayEvent(entry, event)
	}
	return entry
}

// UpdateSolution revises the solution, raising MemoryEntryUpdated.
func (m *Entry) UpdateSolution(newSolution, reason string) {
	m.Raise(m, NewEntryUpdatedEvent(m.ID(), m.NextVersion(), m.solution, newSolution, reason))
}

// AddConflict records a conflicting entry, raising ConflictDetected. The
// event is raised even if the conflict ID is already known.
func (m *Entry) AddConflict(conflictID, strategy string) {
	m.Raise(m, NewConflictDetectedEvent(m.ID(), m.NextVersion(), conflictID, strategy, len(m.conflictIDs)+1))
}

// SetConfidence overwrites the confidence score, raising ConfidenceUpdated.
// The domain does not clamp the score; range enforcement belongs to the
// caller-facing boundary.
func (m *Entry) SetConfidence(score float64) {
	m.Raise(m, NewConfidenceUpdatedEvent(m.ID(), m.NextVersion(), m.confidence, score))
}

// Apply transitions entry state for a single event. It is total over every
// event type the entry raises and idempotent-safe under replay.
func (m *Entry) Apply(event shared.DomainEvent) {
	switch e := event.(type) {
	case *EntryCreatedEvent:
		m.problem = e.Problem
		m.solution = e.Solution
		m.category = e.Category
		m.confidence = 0.0
		m.createdAt = e.Timestamp()
		m.updatedAt = e.Timestamp()
	case *EntryUpdatedEvent:
		m.solution = e.NewSolution
		m.updatedAt = e.Timestamp()
	case *ConflictDetectedEvent:
		m.addConflictID(e.ConflictID)
	case *ConfidenceUpdatedEvent:
		m.confidence = e.NewConfidence
	}
}

// addConflictID appends only if absent, so replaying duplicate
// ConflictDetected events leaves a single occurrence.
func (m *Entry) addConflictID(conflictID string) {
	for _, id := range m.conflictIDs {
		if id == conflictID {
			return
		}
	}
	m.conflictIDs = append(m.conflictIDs, conflictID)
}

// Problem returns the problem description.
func (m *Entry) Problem() string { return m.problem }

// Solution returns the current solution.
func (m *Entry) Solution() string { return m.solution }

// Category returns the entry category.
func (m *Entry) Category() string { return m.category }

// Confidence returns the current confidence score.
func (m *Entry) Confidence() float64 { return m.confidence }

// HasConflicts reports whether any conflicts have been recorded.
func (m *Entry) HasConflicts() bool { return len(m.conflictIDs) > 0 }

// EntrySnapshot is an immutable copy of entry state, safe to hold after
// the engine's lock is released.
type EntrySnapshot struct {
	ID          string
	Problem     string
	Solution    string
	Category    string
	Confidence  float64
	ConflictIDs []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Version     int
}

// Snapshot returns a durable copy of the entry's observable state.
func (m *Entry) Snapshot() EntrySnapshot {
	conflicts := make([]string, len(m.conflictIDs))
	copy(conflicts, m.conflictIDs)
	return EntrySnapshot{
		ID:          m.ID(),
		Problem:     m.problem,
		Solution:    m.solution,
		Category:    m.category,
		Confidence:  m.confidence,
		ConflictIDs: conflicts,
		CreatedAt:   m.createdAt,
		UpdatedAt:   m.updatedAt,
		Version:     m.Version(),
	}
}
