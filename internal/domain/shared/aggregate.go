package shared

// EventApplier applies a domain event to aggregate state. Implementations
// must be total over every event type the aggregate raises, and each
// application must be idempotent-safe under replay: applying the same
// event sequence twice, from scratch, yields identical state.
type EventApplier interface {
	Apply(event DomainEvent)
}

// Aggregate is the contract every aggregate root satisfies. State changes
// happen only through raised events; direct field mutation outside an
// Apply method breaks replay.
type Aggregate interface {
	EventApplier

	// ID returns the unique identifier of the aggregate
	ID() string

	// Version returns the number of events raised so far
	Version() int

	// UncommittedEvents drains and returns events that haven't been committed
	UncommittedEvents() []DomainEvent

	// MarkEventsCommitted discards the uncommitted buffer
	MarkEventsCommitted()
}

// AggregateBase provides common functionality for all aggregate roots:
// the version counter and the ordered uncommitted event buffer.
type AggregateBase struct {
	id          string
	version     int
	uncommitted []DomainEvent
}

// NewAggregateBase creates a new aggregate base with version 0.
func NewAggregateBase(id string) AggregateBase {
	return AggregateBase{id: id}
}

// ID returns the aggregate ID.
func (a *AggregateBase) ID() string {
	return a.id
}

// Version returns the current version. It increases by exactly one per
// raised event.
func (a *AggregateBase) Version() int {
	return a.version
}

// NextVersion returns the version the next raised event must carry.
func (a *AggregateBase) NextVersion() int {
	return a.version + 1
}

// Raise records a freshly constructed event in the uncommitted buffer and
// synchronously applies it, so in-memory state reflects the change before
// the command returns. The event must carry NextVersion().
func (a *AggregateBase) Raise(applier EventApplier, event DomainEvent) {
	a.version = event.Version()
	a.uncommitted = append(a.uncommitted, event)
	applier.Apply(event)
}

// ReplayEvent applies a previously committed event during reconstruction.
// Nothing is buffered; the version advances to the event's version.
func (a *AggregateBase) ReplayEvent(applier EventApplier, event DomainEvent) {
	a.version = event.Version()
	applier.Apply(event)
}

// UncommittedEvents drains the buffer and returns its contents in order.
func (a *AggregateBase) UncommittedEvents() []DomainEvent {
	events := a.uncommitted
	a.uncommitted = nil
	return events
}

// MarkEventsCommitted clears the uncommitted buffer without returning it.
func (a *AggregateBase) MarkEventsCommitted() {
	a.uncommitted = nil
}
