// internal/eventstore/eventstore.go

// Package eventstore keeps an append-only journal of circulation events,
// versioned per aggregate with optimistic concurrency control.
package eventstore

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")
	ErrInvalidVersion      = errors.New("invalid version number")
)

// Event represents a domain event with full metadata
type Event struct {
	ID            int64           `json:"id" db:"id"`
	AggregateID   uuid.UUID       `json:"aggregate_id" db:"aggregate_id"`
	AggregateType string          `json:"aggregate_type" db:"aggregate_type"`
	EventType     string          `json:"event_type" db:"event_type"`
	EventData     json.RawMessage `json:"event_data" db:"event_data"`
	Metadata      Metadata        `json:"metadata,omitempty" db:"metadata"`
	Version       int             `json:"version" db:"version"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// Metadata carries free-form string annotations stored as a JSON object.
type Metadata map[string]string

// Value implements driver.Valuer.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *Metadata) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(raw, m)
}

// Store is implemented by every journal backend.
type Store interface {
	// AppendEvents atomically appends events when the aggregate is at expectedVersion.
	AppendEvents(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, events []Event) error
	// LoadEvents returns events with fromVersion <= version <= toVersion; toVersion 0 means no upper bound.
	LoadEvents(ctx context.Context, aggregateID uuid.UUID, fromVersion, toVersion int) ([]Event, error)
	// GetCurrentVersion returns the latest version for an aggregate, 0 if it has no events.
	GetCurrentVersion(ctx context.Context, aggregateID uuid.UUID) (int, error)
}

// NewEvent builds an unsaved event with the payload marshalled to JSON.
func NewEvent(eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal event data: %w", err)
	}
	return Event{EventType: eventType, EventData: data}, nil
}

func appendSpanAttributes(aggregateID uuid.UUID, aggregateType string, expectedVersion int, count int) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String("aggregate.id", aggregateID.String()),
		attribute.String("aggregate.type", aggregateType),
		attribute.Int("expected.version", expectedVersion),
		attribute.Int("event.count", count),
	)
}

func loadSpanAttributes(aggregateID uuid.UUID, fromVersion, toVersion int) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String("aggregate.id", aggregateID.String()),
		attribute.Int("from.version", fromVersion),
		attribute.Int("to.version", toVersion),
	)
}
