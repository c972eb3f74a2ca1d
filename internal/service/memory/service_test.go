package memory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mnemonic-backend/internal/domain/memory"
	"mnemonic-backend/internal/domain/shared"
	"mnemonic-backend/internal/engine"
	memoryservice "mnemonic-backend/internal/service/memory"
)

func newTestService(t *testing.T) *memoryservice.Service {
	t.Helper()
	eng := engine.New(zap.NewNop(), nil)
	service := memoryservice.NewService(eng, zap.NewNop())
	require.NoError(t, service.Initialize(map[string][]string{
		"build": {`npm (install|run|ci)`},
	}))
	t.Cleanup(service.Shutdown)
	return service
}

func TestService_EntryDocumentMapping(t *testing.T) {
	// Arrange
	service := newTestService(t)
	id := service.CreateMemoryEntry("npm install fails", "clear the cache", "build")
	require.True(t, service.AddConflict(id, "mem_other", ""))

	// Act
	doc, ok := service.GetMemoryEntry(id)

	// Assert
	require.True(t, ok)
	assert.Equal(t, id, doc.ID)
	assert.Equal(t, "npm install fails", doc.Problem)
	assert.Equal(t, "clear the cache", doc.Solution)
	assert.Equal(t, "build", doc.Category)
	assert.Equal(t, []string{"mem_other"}, doc.ConflictIDs)
	assert.True(t, doc.HasConflicts)
	assert.Equal(t, 2, doc.Version)
	assert.False(t, doc.CreatedAt.IsZero())
}

func TestService_GetMemoryEntryUnknownID(t *testing.T) {
	// Arrange
	service := newTestService(t)

	// Act
	_, ok := service.GetMemoryEntry("mem_missing")

	// Assert
	assert.False(t, ok)
}

func TestService_SessionDocumentOmitsCompletionUntilTerminal(t *testing.T) {
	// Arrange
	service := newTestService(t)
	id := service.StartSearchSession("query")

	// Act
	active, ok := service.GetSearchSession(id)
	require.True(t, ok)
	require.True(t, service.CompleteSearchSession(id, 0.9))
	completed, ok := service.GetSearchSession(id)
	require.True(t, ok)

	// Assert
	assert.Equal(t, "active", active.Status)
	assert.Nil(t, active.CompletedAt)
	assert.Equal(t, "completed", completed.Status)
	require.NotNil(t, completed.CompletedAt)
	assert.False(t, completed.CompletedAt.IsZero())
	assert.Equal(t, 0.9, completed.FinalConfidence)
}

func TestService_SearchMemories(t *testing.T) {
	// Arrange
	service := newTestService(t)
	service.CreateMemoryEntry("npm install fails", "clear the cache", "")

	// Act
	set := service.SearchMemories("npm install fails", "local dev", 5)

	// Assert
	assert.Equal(t, 1, set.TotalFound)
	assert.Equal(t, "local dev", set.Context)
}

func TestService_SubscribeReceivesEvents(t *testing.T) {
	// Arrange
	service := newTestService(t)
	received := make(chan shared.DomainEvent, 1)
	service.Subscribe(memory.EventMemoryEntryCreated, func(event shared.DomainEvent) {
		select {
		case received <- event:
		default:
		}
	})

	// Act
	id := service.CreateMemoryEntry("npm install fails", "fix", "build")

	// Assert
	select {
	case event := <-received:
		assert.Equal(t, id, event.AggregateID())
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber never received the event")
	}
}

func TestService_StatisticsReflectsActivity(t *testing.T) {
	// Arrange
	service := newTestService(t)
	service.CreateMemoryEntry("npm install fails", "fix", "build")

	// Act
	stats := service.Statistics()

	// Assert
	assert.Equal(t, 1, stats.MemoryEntries)
	assert.Equal(t, 0, stats.SearchSessions)
	assert.True(t, stats.EventBus.Running)
}
