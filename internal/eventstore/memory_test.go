// internal/eventstore/memory_test.go
package eventstore

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type testPayload struct {
	Message string `json:"message"`
}

type testingT interface {
	require.TestingT
	Helper()
}

func mustEvent(t testingT, eventType, message string) Event {
	t.Helper()
	event, err := NewEvent(eventType, testPayload{Message: message})
	require.NoError(t, err)
	return event
}

func TestMemoryStoreAppendAndLoad(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	aggregateID := uuid.New()

	err := store.AppendEvents(ctx, aggregateID, "item", 0, []Event{
		mustEvent(t, "ItemCheckedOut", "first"),
		mustEvent(t, "ItemReturned", "second"),
	})
	require.NoError(t, err)

	events, err := store.LoadEvents(ctx, aggregateID, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].Version)
	assert.Equal(t, 2, events[1].Version)
	assert.Equal(t, "item", events[0].AggregateType)
	assert.Equal(t, aggregateID, events[1].AggregateID)
	assert.JSONEq(t, `{"message":"second"}`, string(events[1].EventData))
	assert.Less(t, events[0].ID, events[1].ID)

	version, err := store.GetCurrentVersion(ctx, aggregateID)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestMemoryStoreRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	aggregateID := uuid.New()

	require.NoError(t, store.AppendEvents(ctx, aggregateID, "item", 0, []Event{mustEvent(t, "HoldPlaced", "a")}))

	err := store.AppendEvents(ctx, aggregateID, "item", 0, []Event{mustEvent(t, "HoldPlaced", "b")})
	assert.ErrorIs(t, err, ErrConcurrencyConflict)

	err = store.AppendEvents(ctx, aggregateID, "item", -1, nil)
	assert.ErrorIs(t, err, ErrInvalidVersion)

	events, err := store.LoadEvents(ctx, aggregateID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestMemoryStoreLoadRange(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	aggregateID := uuid.New()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.AppendEvents(ctx, aggregateID, "item", i, []Event{mustEvent(t, "HoldPlaced", "x")}))
	}

	events, err := store.LoadEvents(ctx, aggregateID, 2, 4)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, 2, events[0].Version)
	assert.Equal(t, 4, events[2].Version)

	events, err = store.LoadEvents(ctx, uuid.New(), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestMemoryStoreVersionsAreContiguous(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		store := NewMemoryStore()
		aggregateID := uuid.New()

		batches := rapid.SliceOfN(rapid.IntRange(1, 4), 1, 10).Draw(t, "batches")
		expected := 0
		for _, size := range batches {
			events := make([]Event, size)
			for i := range events {
				events[i] = mustEvent(t, "HoldPlaced", "x")
			}
			if err := store.AppendEvents(ctx, aggregateID, "item", expected, events); err != nil {
				t.Fatalf("append at version %d: %v", expected, err)
			}
			expected += size
		}

		loaded, err := store.LoadEvents(ctx, aggregateID, 0, 0)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if len(loaded) != expected {
			t.Fatalf("expected %d events, got %d", expected, len(loaded))
		}
		for i, event := range loaded {
			if event.Version != i+1 {
				t.Fatalf("event %d has version %d", i, event.Version)
			}
		}
	})
}

func TestMetadataScan(t *testing.T) {
	var m Metadata
	require.NoError(t, m.Scan([]byte(`{"patron":"Alice"}`)))
	assert.Equal(t, "Alice", m["patron"])

	require.NoError(t, m.Scan(nil))
	assert.Nil(t, m)

	assert.Error(t, m.Scan(42))

	value, err := Metadata(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), value)
}
