// Package search contains the search session aggregate: an explicit state
// machine tracking one retrieval attempt across its layers and results.
package search

import (
	"time"

	"mnemonic-backend/internal/domain/shared"
)

// Status is the session lifecycle state.
type Status string

const (
	// StatusActive is the initial state; mutations are accepted.
	StatusActive Status = "active"
	// StatusCompleted is terminal.
	StatusCompleted Status = "completed"
	// StatusFailed is terminal.
	StatusFailed Status = "failed"
)

// Session is the search session aggregate root. Once a session reaches a
// terminal state, every further transition is rejected without raising an
// event.
type Session struct {
	shared.AggregateBase

	query           string
	layersUsed      []string
	resultIDs       []string
	finalConfidence float64
	status          Status
	startedAt       time.Time
	completedAt     time.Time
}

// StartSession allocates a new session ID and raises SearchSessionStarted.
func StartSession(query string) *Session {
	session := &Session{
		AggregateBase: shared.NewAggregateBase(shared.NewAggregateID("search")),
	}
	session.Raise(session, NewSessionStartedEvent(session.ID(), session.NextVersion(), query))
	return session
}

// SessionFromHistory reconstructs a session purely by replaying its
// committed event sequence in order.
func SessionFromHistory(history []shared.DomainEvent) *Session {
	if len(history) == 0 {
		return nil
	}
	session := &Session{
		AggregateBase: shared.NewAggregateBase(history[0].AggregateID()),
	}
	for _, event := range history {
		session.ReplayEvent(session, event)
	}
	return session
}

// AddLayer records a retrieval layer. Returns false without raising an
// event when the session is no longer active.
func (s *Session) AddLayer(layerType string) bool {
	if s.status != StatusActive {
		return false
	}
	s.Raise(s, NewLayerAddedEvent(s.ID(), s.NextVersion(), layerType, len(s.layersUsed)+1))
	return true
}

// AddResult attributes a result to the session. Returns false without
// raising an event when the session is no longer active.
func (s *Session) AddResult(resultID string, confidence float64) bool {
	if s.status != StatusActive {
		return false
	}
	s.Raise(s, NewResultAddedEvent(s.ID(), s.NextVersion(), resultID, confidence, len(s.resultIDs)+1))
	return true
}

// Complete transitions active -> completed. Transitions out of a terminal
// state are rejected.
func (s *Session) Complete(finalConfidence float64) bool {
	if s.status != StatusActive {
		return false
	}
	duration := time.Since(s.startedAt)
	s.Raise(s, NewSessionCompletedEvent(s.ID(), s.NextVersion(), finalConfidence, duration, len(s.layersUsed), len(s.resultIDs)))
	return true
}

// Fail transitions active -> failed. Transitions out of a terminal state
// are rejected.
func (s *Session) Fail(reason string) bool {
	if s.status != StatusActive {
		return false
	}
	duration := time.Since(s.startedAt)
	s.Raise(s, NewSessionFailedEvent(s.ID(), s.NextVersion(), reason, duration))
	return true
}

// Apply transitions session state for a single event. It is total over
// every event type the session raises and idempotent-safe under replay.
func (s *Session) Apply(event shared.DomainEvent) {
	switch e := event.(type) {
	case *SessionStartedEvent:
		s.query = e.Query
		s.status = StatusActive
		s.startedAt = e.Timestamp()
	case *LayerAddedEvent:
		s.layersUsed = appendUnique(s.layersUsed, e.LayerType)
	case *ResultAddedEvent:
		s.resultIDs = appendUnique(s.resultIDs, e.ResultID)
	case *SessionCompletedEvent:
		s.status = StatusCompleted
		s.finalConfidence = e.FinalConfidence
		s.completedAt = e.Timestamp()
	case *SessionFailedEvent:
		s.status = StatusFailed
		s.completedAt = e.Timestamp()
	}
}

// appendUnique appends only if absent, keeping insertion order.
func appendUnique(values []string, value string) []string {
	for _, v := range values {
		if v == value {
			return values
		}
	}
	return append(values, value)
}

// Query returns the search query.
func (s *Session) Query() string { return s.query }

// Status returns the lifecycle state.
func (s *Session) Status() Status { return s.status }

// LayersUsed returns the ordered, de-duplicated layer list.
func (s *Session) LayersUsed() []string { return s.layersUsed }

// FinalConfidence returns the confidence recorded on completion.
func (s *Session) FinalConfidence() float64 { return s.finalConfidence }

// SessionSnapshot is an immutable copy of session state, safe to hold
// after the engine's lock is released.
type SessionSnapshot struct {
	ID              string
	Query           string
	LayersUsed      []string
	ResultIDs       []string
	FinalConfidence float64
	Status          Status
	StartedAt       time.Time
	CompletedAt     time.Time
	Version         int
}

// Snapshot returns a durable copy of the session's observable state.
func (s *Session) Snapshot() SessionSnapshot {
	layers := make([]string, len(s.layersUsed))
	copy(layers, s.layersUsed)
	results := make([]string, len(s.resultIDs))
	copy(results, s.resultIDs)
	return SessionSnapshot{
		ID:              s.ID(),
		Query:           s.query,
		LayersUsed:      layers,
		ResultIDs:       results,
		FinalConfidence: s.finalConfidence,
		Status:          s.status,
		StartedAt:       s.startedAt,
		CompletedAt:     s.completedAt,
		Version:         s.Version(),
	}
}
