// internal/chaos/journal.go
package chaos

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"

	"hinlibs/internal/eventstore"
)

var ErrJournalOutage = errors.New("journal outage injected")

// FlakyJournal wraps a journal so appends can be made to fail on demand.
// Reads always pass through.
type FlakyJournal struct {
	eventstore.Store
	failing atomic.Bool
}

func NewFlakyJournal(inner eventstore.Store) *FlakyJournal {
	return &FlakyJournal{Store: inner}
}

// SetFailing turns the outage on or off.
func (j *FlakyJournal) SetFailing(failing bool) {
	j.failing.Store(failing)
}

func (j *FlakyJournal) AppendEvents(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, events []eventstore.Event) error {
	if j.failing.Load() {
		return ErrJournalOutage
	}
	return j.Store.AppendEvents(ctx, aggregateID, aggregateType, expectedVersion, events)
}
