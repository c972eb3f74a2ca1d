// Package engine implements the domain memory engine: it owns the event
// bus and the aggregate collections, and orchestrates every command and
// query under a single reader-writer lock.
package engine

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"mnemonic-backend/internal/domain/memory"
	"mnemonic-backend/internal/domain/search"
	"mnemonic-backend/internal/domain/shared"
	apperrors "mnemonic-backend/internal/errors"
	"mnemonic-backend/internal/infrastructure/events"
	"mnemonic-backend/internal/knowledge"
	"mnemonic-backend/internal/observability"
)

// Statistics reports live aggregate counts plus bus and store internals.
type Statistics struct {
	MemoryEntries  int                  `json:"memory_entries"`
	SearchSessions int                  `json:"search_sessions"`
	EventBus       events.Statistics    `json:"event_stats"`
	Knowledge      knowledge.StoreStats `json:"engine_stats"`
}

// Engine is the domain memory engine. All mutating commands are serialized
// by the exclusive side of one lock, even across unrelated aggregates;
// queries share the read side. Committed events are dispatched by the bus
// on its own goroutine, never inline with a command, so subscribed
// handlers may call back into the engine without self-deadlocking.
type Engine struct {
	mu       sync.RWMutex
	bus      *events.Bus
	entries  map[string]*memory.Entry
	sessions map[string]*search.Session
	store    *knowledge.Store

	initialized bool
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// New creates an engine with a stopped bus. InitializeDomain must succeed
// before the bus dispatches anything.
func New(logger *zap.Logger, metrics *observability.Metrics) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		bus:      events.NewBus(logger.Named("eventbus"), metrics),
		entries:  make(map[string]*memory.Entry),
		sessions: make(map[string]*search.Session),
		logger:   logger,
		metrics:  metrics,
	}
}

// InitializeDomain compiles the category pattern sets, wires the baseline
// subscriptions and starts the bus. If pattern compilation fails the call
// aborts before the bus starts and nothing is partially wired; retrying is
// safe. Initializing an already-initialized engine is a no-op.
func (e *Engine) InitializeDomain(categories map[string][]string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		return nil
	}

	store, err := knowledge.NewStore(categories)
	if err != nil {
		return apperrors.Wrap(err, "failed to initialize categorization layer")
	}
	e.store = store

	// Extension hooks; side-effect-free today.
	e.bus.Subscribe(memory.EventMemoryEntryCreated, e.handleEntryCreated)
	e.bus.Subscribe(memory.EventMemoryEntryUpdated, e.handleEntryUpdated)
	e.bus.Subscribe(search.EventSessionStarted, e.handleSessionStarted)
	e.bus.Subscribe(search.EventSessionCompleted, e.handleSessionCompleted)

	e.bus.Start()
	e.initialized = true
	e.logger.Info("domain engine initialized", zap.Int("categories", len(categories)))
	return nil
}

// Shutdown stops the bus. Events still queued are dropped.
func (e *Engine) Shutdown() {
	e.bus.Stop()
}

// Subscribe registers an external handler for cross-cutting concerns.
func (e *Engine) Subscribe(eventType string, handler events.Handler) {
	e.bus.Subscribe(eventType, handler)
}

// CreateMemoryEntry constructs a new entry aggregate, commits its events
// and stores the solution in the compatibility cache.
func (e *Engine) CreateMemoryEntry(problem, solution, category string) string {
	defer e.observe("create_memory_entry")()

	entry := memory.CreateEntry(problem, solution, category)

	e.mu.Lock()
	e.commit(entry)
	e.entries[entry.ID()] = entry
	store := e.store
	e.mu.Unlock()

	// Backward-compatible storage path; not part of the event-sourced model.
	if store != nil {
		store.AddSolution(problem, category, solution, false)
	}
	return entry.ID()
}

// UpdateMemoryEntry revises an entry's solution. Returns false for an
// unknown ID; no event is raised in that case.
func (e *Engine) UpdateMemoryEntry(entryID, newSolution, reason string) bool {
	defer e.observe("update_memory_entry")()

	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.entries[entryID]
	if !ok {
		return false
	}
	entry.UpdateSolution(newSolution, reason)
	e.commit(entry)
	return true
}

// AddConflict records a conflicting entry against an existing one.
func (e *Engine) AddConflict(entryID, conflictID, strategy string) bool {
	defer e.observe("add_conflict")()

	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.entries[entryID]
	if !ok {
		return false
	}
	entry.AddConflict(conflictID, strategy)
	e.commit(entry)
	return true
}

// SetConfidence overwrites an entry's confidence score.
func (e *Engine) SetConfidence(entryID string, score float64) bool {
	defer e.observe("set_confidence")()

	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.entries[entryID]
	if !ok {
		return false
	}
	entry.SetConfidence(score)
	e.commit(entry)
	return true
}

// StartSearchSession constructs a new session aggregate and commits its
// start event.
func (e *Engine) StartSearchSession(query string) string {
	defer e.observe("start_search_session")()

	session := search.StartSession(query)

	e.mu.Lock()
	e.commit(session)
	e.sessions[session.ID()] = session
	e.mu.Unlock()

	return session.ID()
}

// AddSearchLayer records a retrieval layer on a session. Returns false for
// an unknown ID or a session already in a terminal state.
func (e *Engine) AddSearchLayer(sessionID, layerType string) bool {
	defer e.observe("add_search_layer")()

	e.mu.Lock()
	defer e.mu.Unlock()
	session, ok := e.sessions[sessionID]
	if !ok || !session.AddLayer(layerType) {
		return false
	}
	e.commit(session)
	return true
}

// AddSearchResult attributes a result to a session.
func (e *Engine) AddSearchResult(sessionID, resultID string, confidence float64) bool {
	defer e.observe("add_search_result")()

	e.mu.Lock()
	defer e.mu.Unlock()
	session, ok := e.sessions[sessionID]
	if !ok || !session.AddResult(resultID, confidence) {
		return false
	}
	e.commit(session)
	return true
}

// CompleteSearchSession transitions a session to completed. Returns false
// for an unknown ID or a session already in a terminal state.
func (e *Engine) CompleteSearchSession(sessionID string, confidence float64) bool {
	defer e.observe("complete_search_session")()

	e.mu.Lock()
	defer e.mu.Unlock()
	session, ok := e.sessions[sessionID]
	if !ok || !session.Complete(confidence) {
		return false
	}
	e.commit(session)
	return true
}

// FailSearchSession transitions a session to failed.
func (e *Engine) FailSearchSession(sessionID, reason string) bool {
	defer e.observe("fail_search_session")()

	e.mu.Lock()
	defer e.mu.Unlock()
	session, ok := e.sessions[sessionID]
	if !ok || !session.Fail(reason) {
		return false
	}
	e.commit(session)
	return true
}

// GetMemoryEntry returns an immutable snapshot of an entry's state.
func (e *Engine) GetMemoryEntry(entryID string) (memory.EntrySnapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, ok := e.entries[entryID]
	if !ok {
		return memory.EntrySnapshot{}, false
	}
	return entry.Snapshot(), true
}

// GetSearchSession returns an immutable snapshot of a session's state.
func (e *Engine) GetSearchSession(sessionID string) (search.SessionSnapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	session, ok := e.sessions[sessionID]
	if !ok {
		return search.SessionSnapshot{}, false
	}
	return session.Snapshot(), true
}

// SearchWithContext performs a ranked lookup through the compatibility
// suggestion engine.
func (e *Engine) SearchWithContext(problem, context string, maxResults int) knowledge.SuggestionSet {
	e.mu.RLock()
	store := e.store
	e.mu.RUnlock()
	if store == nil {
		return knowledge.SuggestionSet{Suggestions: []knowledge.Suggestion{}, Context: context}
	}
	return store.Suggestions(problem, context, maxResults)
}

// ReloadCategories replaces the categorizer's pattern sets at runtime.
// Invalid patterns leave the previous sets in effect.
func (e *Engine) ReloadCategories(categories map[string][]string) error {
	e.mu.RLock()
	store := e.store
	e.mu.RUnlock()
	if store == nil {
		return apperrors.NewInternal("engine not initialized", nil)
	}
	return store.Categorizer().Reload(categories)
}

// Statistics reports live aggregate counts plus bus and store internals.
func (e *Engine) Statistics() Statistics {
	e.mu.RLock()
	entryCount := len(e.entries)
	sessionCount := len(e.sessions)
	store := e.store
	e.mu.RUnlock()

	stats := Statistics{
		MemoryEntries:  entryCount,
		SearchSessions: sessionCount,
		EventBus:       e.bus.Statistics(),
	}
	if store != nil {
		stats.Knowledge = store.Stats()
	}
	return stats
}

// commit drains an aggregate's uncommitted events and publishes each, in
// order, to the bus. Publish is a non-blocking enqueue, so holding the
// write lock here cannot deadlock against dispatch.
func (e *Engine) commit(aggregate shared.Aggregate) {
	for _, event := range aggregate.UncommittedEvents() {
		e.bus.Publish(event)
	}
	aggregate.MarkEventsCommitted()
}

// observe times one command for the metrics histogram.
func (e *Engine) observe(command string) func() {
	start := time.Now()
	return func() {
		e.metrics.ObserveCommand(command, time.Since(start))
	}
}

func (e *Engine) handleEntryCreated(event shared.DomainEvent) {
	e.logger.Debug("memory entry created",
		zap.String("entry_id", event.AggregateID()),
		zap.Int("version", event.Version()),
	)
}

func (e *Engine) handleEntryUpdated(event shared.DomainEvent) {
	e.logger.Debug("memory entry updated",
		zap.String("entry_id", event.AggregateID()),
		zap.Int("version", event.Version()),
	)
}

func (e *Engine) handleSessionStarted(event shared.DomainEvent) {
	e.logger.Debug("search session started",
		zap.String("session_id", event.AggregateID()),
	)
}

func (e *Engine) handleSessionCompleted(event shared.DomainEvent) {
	e.logger.Debug("search session completed",
		zap.String("session_id", event.AggregateID()),
		zap.Any("data", event.EventData()),
	)
}
