package search_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mnemonic-backend/internal/domain/search"
)

func TestSession_Start(t *testing.T) {
	// Act
	session := search.StartSession("npm EACCES")

	// Assert
	assert.NotEmpty(t, session.ID())
	assert.Equal(t, "npm EACCES", session.Query())
	assert.Equal(t, search.StatusActive, session.Status())
	assert.Equal(t, 1, session.Version())

	events := session.UncommittedEvents()
	require.Len(t, events, 1)
	started, ok := events[0].(*search.SessionStartedEvent)
	require.True(t, ok)
	assert.Equal(t, search.EventSessionStarted, started.EventType())
	assert.Equal(t, "npm EACCES", started.Query)
}

func TestSession_Lifecycle(t *testing.T) {
	// Arrange
	session := search.StartSession("query")

	// Act
	require.True(t, session.AddLayer("vector"))
	require.True(t, session.AddLayer("keyword"))
	require.True(t, session.AddResult("mem_1", 0.7))
	require.True(t, session.Complete(0.85))

	// Assert
	assert.Equal(t, search.StatusCompleted, session.Status())
	assert.Equal(t, 0.85, session.FinalConfidence())
	assert.Equal(t, []string{"vector", "keyword"}, session.LayersUsed())
	assert.Equal(t, 5, session.Version())

	snapshot := session.Snapshot()
	assert.Equal(t, []string{"mem_1"}, snapshot.ResultIDs)
	assert.False(t, snapshot.CompletedAt.IsZero())
}

func TestSession_CompletedRejectsFurtherTransitions(t *testing.T) {
	// Arrange
	session := search.StartSession("query")
	require.True(t, session.Complete(0.5))
	session.MarkEventsCommitted()
	versionBefore := session.Version()

	// Act
	layerOK := session.AddLayer("vector")
	resultOK := session.AddResult("mem_1", 0.7)
	completeOK := session.Complete(0.9)
	failOK := session.Fail("too late")

	// Assert: every rejection is silent, no event, no version change.
	assert.False(t, layerOK)
	assert.False(t, resultOK)
	assert.False(t, completeOK)
	assert.False(t, failOK)
	assert.Equal(t, versionBefore, session.Version())
	assert.Empty(t, session.UncommittedEvents())
	assert.Equal(t, search.StatusCompleted, session.Status())
	assert.Equal(t, 0.5, session.FinalConfidence())
}

func TestSession_FailedIsTerminal(t *testing.T) {
	// Arrange
	session := search.StartSession("query")
	require.True(t, session.Fail("no results"))

	// Act & Assert
	assert.Equal(t, search.StatusFailed, session.Status())
	assert.False(t, session.Complete(0.9))
	assert.Equal(t, search.StatusFailed, session.Status())
}

func TestSession_FailEventCarriesReason(t *testing.T) {
	// Arrange
	session := search.StartSession("query")
	session.MarkEventsCommitted()

	// Act
	require.True(t, session.Fail("backend unavailable"))

	// Assert
	events := session.UncommittedEvents()
	require.Len(t, events, 1)
	failed, ok := events[0].(*search.SessionFailedEvent)
	require.True(t, ok)
	assert.Equal(t, "backend unavailable", failed.Reason)
	assert.GreaterOrEqual(t, failed.Duration.Nanoseconds(), int64(0))
}

func TestSession_DuplicateLayerRaisesEventButDeduplicatesState(t *testing.T) {
	// Arrange
	session := search.StartSession("query")
	session.MarkEventsCommitted()

	// Act
	require.True(t, session.AddLayer("vector"))
	require.True(t, session.AddLayer("vector"))

	// Assert
	assert.Equal(t, 3, session.Version())
	assert.Equal(t, []string{"vector"}, session.LayersUsed())
	assert.Len(t, session.UncommittedEvents(), 2)
}

func TestSession_CompletedEventSummarizesSession(t *testing.T) {
	// Arrange
	session := search.StartSession("query")
	require.True(t, session.AddLayer("vector"))
	require.True(t, session.AddResult("mem_1", 0.6))
	require.True(t, session.AddResult("mem_2", 0.8))
	session.MarkEventsCommitted()

	// Act
	require.True(t, session.Complete(0.8))

	// Assert
	events := session.UncommittedEvents()
	require.Len(t, events, 1)
	completed, ok := events[0].(*search.SessionCompletedEvent)
	require.True(t, ok)
	assert.Equal(t, 0.8, completed.FinalConfidence)
	assert.Equal(t, 1, completed.LayersUsed)
	assert.Equal(t, 2, completed.ResultsFound)
}

func TestSession_ReplayReproducesState(t *testing.T) {
	// Arrange
	session := search.StartSession("ETIMEDOUT during deploy")
	session.AddLayer("vector")
	session.AddLayer("graph")
	session.AddResult("mem_3", 0.4)
	session.Complete(0.65)
	history := session.UncommittedEvents()

	// Act
	replayed := search.SessionFromHistory(history)

	// Assert
	require.NotNil(t, replayed)
	assert.Equal(t, session.Snapshot(), replayed.Snapshot())
	assert.Empty(t, replayed.UncommittedEvents())
}

func TestSession_FromEmptyHistoryIsNil(t *testing.T) {
	assert.Nil(t, search.SessionFromHistory(nil))
}
