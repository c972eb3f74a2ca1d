// Package memory provides the application service over the domain memory
// engine: a stateless façade that forwards commands and queries and
// formats read results as structured documents for external callers.
package memory

import (
	"time"

	"go.uber.org/zap"

	"mnemonic-backend/internal/engine"
	"mnemonic-backend/internal/infrastructure/events"
	"mnemonic-backend/internal/knowledge"
)

// EntryDocument is the read model for a memory entry.
type EntryDocument struct {
	ID           string    `json:"id"`
	Problem      string    `json:"problem"`
	Solution     string    `json:"solution"`
	Category     string    `json:"category"`
	Confidence   float64   `json:"confidence"`
	ConflictIDs  []string  `json:"conflict_ids"`
	HasConflicts bool      `json:"has_conflicts"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int       `json:"version"`
}

// SessionDocument is the read model for a search session.
type SessionDocument struct {
	ID              string     `json:"id"`
	Query           string     `json:"query"`
	LayersUsed      []string   `json:"layers_used"`
	ResultIDs       []string   `json:"result_ids"`
	FinalConfidence float64    `json:"final_confidence"`
	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Version         int        `json:"version"`
}

// Service is the memory application service.
type Service struct {
	engine *engine.Engine
	logger *zap.Logger
}

// NewService creates the application service.
func NewService(eng *engine.Engine, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{engine: eng, logger: logger}
}

// Initialize wires the domain engine with the given category pattern sets.
func (s *Service) Initialize(categories map[string][]string) error {
	if err := s.engine.InitializeDomain(categories); err != nil {
		s.logger.Error("domain initialization failed", zap.Error(err))
		return err
	}
	return nil
}

// Shutdown stops the engine's event bus.
func (s *Service) Shutdown() {
	s.engine.Shutdown()
}

// CreateMemoryEntry records a new problem/solution pair and returns its ID.
func (s *Service) CreateMemoryEntry(problem, solution, category string) string {
	id := s.engine.CreateMemoryEntry(problem, solution, category)
	s.logger.Info("memory entry created",
		zap.String("entry_id", id),
		zap.String("category", category),
	)
	return id
}

// UpdateMemoryEntry revises an entry's solution. Returns false for an
// unknown ID.
func (s *Service) UpdateMemoryEntry(entryID, newSolution, reason string) bool {
	return s.engine.UpdateMemoryEntry(entryID, newSolution, reason)
}

// AddConflict records a conflicting entry. Returns false for an unknown ID.
func (s *Service) AddConflict(entryID, conflictID, strategy string) bool {
	return s.engine.AddConflict(entryID, conflictID, strategy)
}

// SetConfidence overwrites an entry's confidence score. Returns false for
// an unknown ID.
func (s *Service) SetConfidence(entryID string, score float64) bool {
	return s.engine.SetConfidence(entryID, score)
}

// GetMemoryEntry returns the entry document, or false for an unknown ID.
func (s *Service) GetMemoryEntry(entryID string) (EntryDocument, bool) {
	snapshot, ok := s.engine.GetMemoryEntry(entryID)
	if !ok {
		return EntryDocument{}, false
	}
	return EntryDocument{
		ID:           snapshot.ID,
		Problem:      snapshot.Problem,
		Solution:     snapshot.Solution,
		Category:     snapshot.Category,
		Confidence:   snapshot.Confidence,
		ConflictIDs:  snapshot.ConflictIDs,
		HasConflicts: len(snapshot.ConflictIDs) > 0,
		CreatedAt:    snapshot.CreatedAt,
		UpdatedAt:    snapshot.UpdatedAt,
		Version:      snapshot.Version,
	}, true
}

// StartSearchSession begins a retrieval session and returns its ID.
func (s *Service) StartSearchSession(query string) string {
	return s.engine.StartSearchSession(query)
}

// AddSearchLayer records a retrieval layer. Returns false for an unknown
// ID or a terminal session.
func (s *Service) AddSearchLayer(sessionID, layerType string) bool {
	return s.engine.AddSearchLayer(sessionID, layerType)
}

// AddSearchResult attributes a result to a session. Returns false for an
// unknown ID or a terminal session.
func (s *Service) AddSearchResult(sessionID, resultID string, confidence float64) bool {
	return s.engine.AddSearchResult(sessionID, resultID, confidence)
}

// CompleteSearchSession finishes a session. Returns false for an unknown
// ID or a terminal session.
func (s *Service) CompleteSearchSession(sessionID string, confidence float64) bool {
	return s.engine.CompleteSearchSession(sessionID, confidence)
}

// FailSearchSession marks a session failed. Returns false for an unknown
// ID or a terminal session.
func (s *Service) FailSearchSession(sessionID, reason string) bool {
	return s.engine.FailSearchSession(sessionID, reason)
}

// GetSearchSession returns the session document, or false for an unknown
// ID.
func (s *Service) GetSearchSession(sessionID string) (SessionDocument, bool) {
	snapshot, ok := s.engine.GetSearchSession(sessionID)
	if !ok {
		return SessionDocument{}, false
	}
	doc := SessionDocument{
		ID:              snapshot.ID,
		Query:           snapshot.Query,
		LayersUsed:      snapshot.LayersUsed,
		ResultIDs:       snapshot.ResultIDs,
		FinalConfidence: snapshot.FinalConfidence,
		Status:          string(snapshot.Status),
		StartedAt:       snapshot.StartedAt,
		Version:         snapshot.Version,
	}
	if !snapshot.CompletedAt.IsZero() {
		completedAt := snapshot.CompletedAt
		doc.CompletedAt = &completedAt
	}
	return doc, true
}

// SearchMemories performs a ranked suggestion lookup.
func (s *Service) SearchMemories(query, context string, maxResults int) knowledge.SuggestionSet {
	return s.engine.SearchWithContext(query, context, maxResults)
}

// Statistics returns engine, bus and knowledge-store statistics.
func (s *Service) Statistics() engine.Statistics {
	return s.engine.Statistics()
}

// Subscribe registers an external event handler for cross-cutting
// concerns such as statistics, logging or notification relays.
func (s *Service) Subscribe(eventType string, handler events.Handler) {
	s.engine.Subscribe(eventType, handler)
}

// ReloadCategories replaces the categorizer's pattern sets at runtime.
func (s *Service) ReloadCategories(categories map[string][]string) error {
	return s.engine.ReloadCategories(categories)
}
