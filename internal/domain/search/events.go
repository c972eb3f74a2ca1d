package search

import (
	"time"

	"mnemonic-backend/internal/domain/shared"
)

// Event types raised by the search session aggregate.
const (
	EventSessionStarted   = "SearchSessionStarted"
	EventLayerAdded       = "LayerAdded"
	EventResultAdded      = "ResultAdded"
	EventSessionCompleted = "SearchSessionCompleted"
	EventSessionFailed    = "SearchSessionFailed"
)

// SessionStartedEvent is fired when a new search session begins.
type SessionStartedEvent struct {
	shared.BaseEvent
	Query     string    `json:"query"`
	StartedAt time.Time `json:"started_at"`
}

// NewSessionStartedEvent creates a new SessionStartedEvent.
func NewSessionStartedEvent(sessionID string, version int, query string) *SessionStartedEvent {
	e := &SessionStartedEvent{
		BaseEvent: shared.NewBaseEvent(EventSessionStarted, sessionID, version),
		Query:     query,
	}
	e.StartedAt = e.Timestamp()
	return e
}

// EventData returns the event-specific data.
func (e *SessionStartedEvent) EventData() map[string]interface{} {
	return map[string]interface{}{
		"query":      e.Query,
		"started_at": e.StartedAt.Unix(),
	}
}

// LayerAddedEvent is fired when a retrieval layer participates in the
// session.
type LayerAddedEvent struct {
	shared.BaseEvent
	LayerType  string `json:"layer_type"`
	LayerOrder int    `json:"layer_order"`
}

// NewLayerAddedEvent creates a new LayerAddedEvent.
func NewLayerAddedEvent(sessionID string, version int, layerType string, layerOrder int) *LayerAddedEvent {
	return &LayerAddedEvent{
		BaseEvent:  shared.NewBaseEvent(EventLayerAdded, sessionID, version),
		LayerType:  layerType,
		LayerOrder: layerOrder,
	}
}

// EventData returns the event-specific data.
func (e *LayerAddedEvent) EventData() map[string]interface{} {
	return map[string]interface{}{
		"layer_type":  e.LayerType,
		"layer_order": e.LayerOrder,
	}
}

// ResultAddedEvent is fired when a result is attributed to the session.
type ResultAddedEvent struct {
	shared.BaseEvent
	ResultID     string  `json:"result_id"`
	Confidence   float64 `json:"confidence"`
	TotalResults int     `json:"total_results"`
}

// NewResultAddedEvent creates a new ResultAddedEvent.
func NewResultAddedEvent(sessionID string, version int, resultID string, confidence float64, totalResults int) *ResultAddedEvent {
	return &ResultAddedEvent{
		BaseEvent:    shared.NewBaseEvent(EventResultAdded, sessionID, version),
		ResultID:     resultID,
		Confidence:   confidence,
		TotalResults: totalResults,
	}
}

// EventData returns the event-specific data.
func (e *ResultAddedEvent) EventData() map[string]interface{} {
	return map[string]interface{}{
		"result_id":     e.ResultID,
		"confidence":    e.Confidence,
		"total_results": e.TotalResults,
	}
}

// SessionCompletedEvent is fired when a session reaches the completed
// terminal state.
type SessionCompletedEvent struct {
	shared.BaseEvent
	FinalConfidence float64       `json:"final_confidence"`
	Duration        time.Duration `json:"duration_ms"`
	LayersUsed      int           `json:"layers_used"`
	ResultsFound    int           `json:"results_found"`
}

// NewSessionCompletedEvent creates a new SessionCompletedEvent.
func NewSessionCompletedEvent(sessionID string, version int, finalConfidence float64, duration time.Duration, layersUsed, resultsFound int) *SessionCompletedEvent {
	return &SessionCompletedEvent{
		BaseEvent:       shared.NewBaseEvent(EventSessionCompleted, sessionID, version),
		FinalConfidence: finalConfidence,
		Duration:        duration,
		LayersUsed:      layersUsed,
		ResultsFound:    resultsFound,
	}
}

// EventData returns the event-specific data.
func (e *SessionCompletedEvent) EventData() map[string]interface{} {
	return map[string]interface{}{
		"final_confidence": e.FinalConfidence,
		"duration_ms":      e.Duration.Milliseconds(),
		"layers_used":      e.LayersUsed,
		"results_found":    e.ResultsFound,
	}
}

// SessionFailedEvent is fired when a session reaches the failed terminal
// state.
type SessionFailedEvent struct {
	shared.BaseEvent
	Reason   string        `json:"reason"`
	Duration time.Duration `json:"duration_ms"`
}

// NewSessionFailedEvent creates a new SessionFailedEvent.
func NewSessionFailedEvent(sessionID string, version int, reason string, duration time.Duration) *SessionFailedEvent {
	return &SessionFailedEvent{
		BaseEvent: shared.NewBaseEvent(EventSessionFailed, sessionID, version),
		Reason:    reason,
		Duration:  duration,
	}
}

// EventData returns the event-specific data.
func (e *SessionFailedEvent) EventData() map[string]interface{} {
	return map[string]interface{}{
		"reason":      e.Reason,
		"duration_ms": e.Duration.Milliseconds(),
	}
}
