package engine_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mnemonic-backend/internal/domain/memory"
	"mnemonic-backend/internal/domain/search"
	"mnemonic-backend/internal/domain/shared"
	"mnemonic-backend/internal/engine"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e := engine.New(zap.NewNop(), nil)
	require.NoError(t, e.InitializeDomain(testCategories()))
	t.Cleanup(e.Shutdown)
	return e
}

func testCategories() map[string][]string {
	return map[string][]string{
		"build":       {`npm (install|run|ci)`, `cannot find module`},
		"permissions": {`EACCES`, `permission denied`},
		"network":     {`ECONNREFUSED`, `ETIMEDOUT`},
	}
}

// eventLog subscribes to engine events and records them for polling.
type eventLog struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (l *eventLog) handle(event shared.DomainEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

func (l *eventLog) types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.events))
	for _, event := range l.events {
		out = append(out, event.EventType())
	}
	return out
}

func TestEngine_InitializeDomainIsIdempotent(t *testing.T) {
	// Arrange
	e := engine.New(zap.NewNop(), nil)
	defer e.Shutdown()

	// Act & Assert
	require.NoError(t, e.InitializeDomain(testCategories()))
	require.NoError(t, e.InitializeDomain(testCategories()))
	assert.True(t, e.Statistics().EventBus.Running)
}

func TestEngine_InitializeDomainRejectsBadPattern(t *testing.T) {
	// Arrange
	e := engine.New(zap.NewNop(), nil)
	defer e.Shutdown()

	// Act
	err := e.InitializeDomain(map[string][]string{"broken": {`(unclosed`}})

	// Assert: the failure leaves the engine uninitialized and the bus
	// stopped; retrying with valid patterns succeeds.
	require.Error(t, err)
	assert.False(t, e.Statistics().EventBus.Running)
	require.NoError(t, e.InitializeDomain(testCategories()))
	assert.True(t, e.Statistics().EventBus.Running)
}

func TestEngine_CreateMemoryEntryStoresAndRetrieves(t *testing.T) {
	// Arrange
	e := newTestEngine(t)

	// Act: an npm permission failure, the canonical storage round trip.
	id := e.CreateMemoryEntry(
		"npm install fails with EACCES permission denied",
		"Run: sudo chown -R $(whoami) ~/.npm",
		"",
	)

	// Assert
	require.NotEmpty(t, id)
	snapshot, ok := e.GetMemoryEntry(id)
	require.True(t, ok)
	assert.Equal(t, id, snapshot.ID)
	assert.Equal(t, "Run: sudo chown -R $(whoami) ~/.npm", snapshot.Solution)
	assert.Equal(t, 1, snapshot.Version)

	// The compatibility cache indexed it under the auto-detected category.
	set := e.SearchWithContext("npm install fails with EACCES permission denied", "ci", 5)
	require.Equal(t, 1, set.TotalFound)
	assert.Equal(t, "Run: sudo chown -R $(whoami) ~/.npm", set.Suggestions[0].Solution)
	assert.Equal(t, "ci", set.Context)
}

func TestEngine_CreateMemoryEntryPublishesEvent(t *testing.T) {
	// Arrange
	e := newTestEngine(t)
	log := &eventLog{}
	e.Subscribe(memory.EventMemoryEntryCreated, log.handle)

	// Act
	id := e.CreateMemoryEntry("problem", "solution", "build")

	// Assert
	require.Eventually(t, func() bool { return log.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	log.mu.Lock()
	defer log.mu.Unlock()
	assert.Equal(t, id, log.events[0].AggregateID())
	assert.Equal(t, 1, log.events[0].Version())
}

func TestEngine_UpdateAndReplayMatch(t *testing.T) {
	// Arrange: capture the full committed event stream for one entry.
	e := newTestEngine(t)
	log := &eventLog{}
	for _, eventType := range []string{
		memory.EventMemoryEntryCreated,
		memory.EventMemoryEntryUpdated,
		memory.EventConfidenceUpdated,
	} {
		e.Subscribe(eventType, log.handle)
	}

	// Act
	id := e.CreateMemoryEntry("cannot find module 'express'", "npm install express", "build")
	require.True(t, e.UpdateMemoryEntry(id, "npm ci", "lockfile drift"))
	require.True(t, e.SetConfidence(id, 0.9))

	// Assert: rebuilding purely from the published events reproduces the
	// live aggregate's state.
	require.Eventually(t, func() bool { return log.count() == 3 }, 2*time.Second, 5*time.Millisecond)
	log.mu.Lock()
	history := append([]shared.DomainEvent(nil), log.events...)
	log.mu.Unlock()

	replayed := memory.EntryFromHistory(history)
	require.NotNil(t, replayed)

	live, ok := e.GetMemoryEntry(id)
	require.True(t, ok)
	assert.Equal(t, live, replayed.Snapshot())
	assert.Equal(t, "npm ci", replayed.Solution())
	assert.Equal(t, 0.9, replayed.Confidence())
	assert.Equal(t, 3, replayed.Version())
}

func TestEngine_CommandsOnUnknownEntryReturnFalse(t *testing.T) {
	// Arrange
	e := newTestEngine(t)

	// Act & Assert
	assert.False(t, e.UpdateMemoryEntry("mem_missing", "fix", "reason"))
	assert.False(t, e.AddConflict("mem_missing", "mem_other", ""))
	assert.False(t, e.SetConfidence("mem_missing", 0.5))
	_, ok := e.GetMemoryEntry("mem_missing")
	assert.False(t, ok)
}

func TestEngine_DuplicateConflictKeepsSingleID(t *testing.T) {
	// Arrange
	e := newTestEngine(t)
	id := e.CreateMemoryEntry("problem", "solution", "build")

	// Act: the same conflict reported twice.
	require.True(t, e.AddConflict(id, "mem_dup", "newer_solution"))
	require.True(t, e.AddConflict(id, "mem_dup", "newer_solution"))

	// Assert: two events were recorded (version 3) but state holds one ID.
	snapshot, ok := e.GetMemoryEntry(id)
	require.True(t, ok)
	assert.Equal(t, 3, snapshot.Version)
	assert.Equal(t, []string{"mem_dup"}, snapshot.ConflictIDs)
}

func TestEngine_SearchSessionLifecycle(t *testing.T) {
	// Arrange
	e := newTestEngine(t)
	log := &eventLog{}
	for _, eventType := range []string{
		search.EventSessionStarted,
		search.EventLayerAdded,
		search.EventResultAdded,
		search.EventSessionCompleted,
	} {
		e.Subscribe(eventType, log.handle)
	}

	// Act
	id := e.StartSearchSession("ECONNREFUSED on deploy")
	require.True(t, e.AddSearchLayer(id, "vector"))
	require.True(t, e.AddSearchLayer(id, "keyword"))
	require.True(t, e.AddSearchResult(id, "mem_1", 0.7))
	require.True(t, e.CompleteSearchSession(id, 0.82))

	// Assert
	snapshot, ok := e.GetSearchSession(id)
	require.True(t, ok)
	assert.Equal(t, search.StatusCompleted, snapshot.Status)
	assert.Equal(t, []string{"vector", "keyword"}, snapshot.LayersUsed)
	assert.Equal(t, []string{"mem_1"}, snapshot.ResultIDs)
	assert.Equal(t, 0.82, snapshot.FinalConfidence)
	assert.Equal(t, 5, snapshot.Version)

	require.Eventually(t, func() bool { return log.count() == 5 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{
		search.EventSessionStarted,
		search.EventLayerAdded,
		search.EventLayerAdded,
		search.EventResultAdded,
		search.EventSessionCompleted,
	}, log.types())
}

func TestEngine_TerminalSessionRejectsCommands(t *testing.T) {
	// Arrange
	e := newTestEngine(t)
	id := e.StartSearchSession("query")
	require.True(t, e.FailSearchSession(id, "nothing matched"))

	// Act & Assert
	assert.False(t, e.AddSearchLayer(id, "vector"))
	assert.False(t, e.AddSearchResult(id, "mem_1", 0.5))
	assert.False(t, e.CompleteSearchSession(id, 0.9))
	assert.False(t, e.FailSearchSession(id, "again"))

	snapshot, ok := e.GetSearchSession(id)
	require.True(t, ok)
	assert.Equal(t, search.StatusFailed, snapshot.Status)
	assert.Equal(t, 2, snapshot.Version)
}

func TestEngine_CommandsOnUnknownSessionReturnFalse(t *testing.T) {
	// Arrange
	e := newTestEngine(t)

	// Act & Assert
	assert.False(t, e.AddSearchLayer("search_missing", "vector"))
	assert.False(t, e.CompleteSearchSession("search_missing", 0.5))
	assert.False(t, e.FailSearchSession("search_missing", "no"))
	_, ok := e.GetSearchSession("search_missing")
	assert.False(t, ok)
}

func TestEngine_HandlerMayReenterEngine(t *testing.T) {
	// Arrange: a subscriber that issues engine commands and queries from
	// inside dispatch. Dispatch runs on the bus goroutine, never inline
	// with the publishing command, so this must not deadlock.
	e := newTestEngine(t)
	var once sync.Once
	done := make(chan string, 1)
	e.Subscribe(memory.EventMemoryEntryCreated, func(event shared.DomainEvent) {
		once.Do(func() {
			_, _ = e.GetMemoryEntry(event.AggregateID())
			done <- e.StartSearchSession("follow-up for " + event.AggregateID())
		})
	})

	// Act
	e.CreateMemoryEntry("problem", "solution", "build")

	// Assert
	select {
	case sessionID := <-done:
		_, ok := e.GetSearchSession(sessionID)
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("handler re-entry deadlocked")
	}
}

func TestEngine_ConcurrentCommandsAreSerialized(t *testing.T) {
	// Arrange
	e := newTestEngine(t)
	id := e.CreateMemoryEntry("problem", "solution", "build")

	// Act: hammer one aggregate from many goroutines.
	const workers = 8
	const perWorker = 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				assert.True(t, e.SetConfidence(id, 0.5))
			}
		}()
	}
	wg.Wait()

	// Assert: every command raised exactly one event.
	snapshot, ok := e.GetMemoryEntry(id)
	require.True(t, ok)
	assert.Equal(t, 1+workers*perWorker, snapshot.Version)
}

func TestEngine_Statistics(t *testing.T) {
	// Arrange
	e := newTestEngine(t)
	e.CreateMemoryEntry("npm run build fails", "clear the cache", "")
	e.CreateMemoryEntry("ETIMEDOUT fetching registry", "set a proxy", "")
	e.StartSearchSession("query")

	// Act
	stats := e.Statistics()

	// Assert
	assert.Equal(t, 2, stats.MemoryEntries)
	assert.Equal(t, 1, stats.SearchSessions)
	assert.True(t, stats.EventBus.Running)
	assert.GreaterOrEqual(t, stats.EventBus.HandlerCount, 4)
	assert.Equal(t, 2, stats.Knowledge.Categories)
}

func TestEngine_ReloadCategoriesSwapsPatterns(t *testing.T) {
	// Arrange
	e := newTestEngine(t)

	// Act
	err := e.ReloadCategories(map[string][]string{"docker": {`no space left on device`}})

	// Assert: new patterns drive categorization for subsequent entries.
	require.NoError(t, err)
	e.CreateMemoryEntry("build failed: no space left on device", "prune images", "")
	stats := e.Statistics()
	_, ok := stats.Knowledge.CategoryBreakdown["docker"]
	assert.True(t, ok)
}

func TestEngine_ReloadCategoriesKeepsOldPatternsOnError(t *testing.T) {
	// Arrange
	e := newTestEngine(t)

	// Act
	err := e.ReloadCategories(map[string][]string{"bad": {`[unclosed`}})

	// Assert
	require.Error(t, err)
	e.CreateMemoryEntry("npm install exploded", "retry", "")
	_, ok := e.Statistics().Knowledge.CategoryBreakdown["build"]
	assert.True(t, ok)
}

func TestEngine_ShutdownStopsBus(t *testing.T) {
	// Arrange
	e := engine.New(zap.NewNop(), nil)
	require.NoError(t, e.InitializeDomain(testCategories()))

	// Act
	e.Shutdown()

	// Assert
	assert.False(t, e.Statistics().EventBus.Running)
}
