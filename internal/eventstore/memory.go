// internal/eventstore/memory.go
package eventstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MemoryStore is an in-process journal. It is the default backend.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[uuid.UUID][]Event
	nextID int64
	tracer trace.Tracer
	now    func() time.Time
}

// NewMemoryStore creates an empty in-memory journal.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[uuid.UUID][]Event),
		tracer: otel.Tracer("hinlibs/eventstore"),
		now:    time.Now,
	}
}

// AppendEvents atomically appends events with optimistic concurrency control
func (ms *MemoryStore) AppendEvents(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, events []Event) error {
	_, span := ms.tracer.Start(ctx, "eventstore.append", appendSpanAttributes(aggregateID, aggregateType, expectedVersion, len(events)))
	defer span.End()

	if expectedVersion < 0 {
		return ErrInvalidVersion
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	current := len(ms.events[aggregateID])
	if current != expectedVersion {
		span.SetAttributes(
			attribute.Int("actual.version", current),
			attribute.Bool("conflict.detected", true),
		)
		return ErrConcurrencyConflict
	}

	createdAt := ms.now().UTC()
	for i, event := range events {
		ms.nextID++
		event.ID = ms.nextID
		event.AggregateID = aggregateID
		event.AggregateType = aggregateType
		event.Version = expectedVersion + i + 1
		event.CreatedAt = createdAt
		ms.events[aggregateID] = append(ms.events[aggregateID], event)

		span.AddEvent("event.appended", trace.WithAttributes(
			attribute.Int64("event.id", event.ID),
			attribute.Int("event.version", event.Version),
			attribute.String("event.type", event.EventType),
		))
	}

	span.SetAttributes(attribute.Bool("append.success", true))
	return nil
}

// LoadEvents retrieves all events for an aggregate with optional version range
func (ms *MemoryStore) LoadEvents(ctx context.Context, aggregateID uuid.UUID, fromVersion, toVersion int) ([]Event, error) {
	_, span := ms.tracer.Start(ctx, "eventstore.load", loadSpanAttributes(aggregateID, fromVersion, toVersion))
	defer span.End()

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var events []Event
	for _, event := range ms.events[aggregateID] {
		if event.Version < fromVersion {
			continue
		}
		if toVersion > 0 && event.Version > toVersion {
			break
		}
		events = append(events, event)
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}

// GetCurrentVersion returns the latest version for an aggregate
func (ms *MemoryStore) GetCurrentVersion(ctx context.Context, aggregateID uuid.UUID) (int, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.events[aggregateID]), nil
}
