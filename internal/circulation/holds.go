// internal/circulation/holds.go
package circulation

import (
	"context"
	"fmt"
	"slices"
)

// PlaceHold queues the patron for an item and returns their 1-based position.
// Holds are accepted whether or not the item is currently on the shelf.
func (s *Store) PlaceHold(ctx context.Context, patron string, itemID int) (position int, err error) {
	ctx, span := s.startSpan(ctx, "place_hold", patron, itemID)
	defer func() { s.finish(ctx, span, "place_hold", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.patronLocked(patron)
	if err != nil {
		return 0, err
	}
	it, err := s.itemLocked(itemID)
	if err != nil {
		return 0, err
	}
	if user.HasLoan(itemID) {
		return 0, reject(KindPolicy, ErrAlreadyCheckedOut, patron, itemID,
			fmt.Sprintf("you already have %q checked out", it.Title))
	}
	if user.HasHold(itemID) {
		return 0, reject(KindPolicy, ErrAlreadyOnHold, patron, itemID,
			fmt.Sprintf("you already placed a hold on %q", it.Title))
	}

	if err := s.recordLocked(ctx, it, patron, EventHoldPlaced, HoldPlacedEvent{
		ItemID:   itemID,
		Patron:   patron,
		Position: it.Holds.Len() + 1,
	}); err != nil {
		return 0, err
	}

	position = it.Holds.Enqueue(user.Name)
	user.Holds = append(user.Holds, itemID)
	return position, nil
}

// CancelHold removes the patron's first entry from the item's hold queue. The
// other holders keep their relative order.
func (s *Store) CancelHold(ctx context.Context, patron string, itemID int) (err error) {
	ctx, span := s.startSpan(ctx, "cancel_hold", patron, itemID)
	defer func() { s.finish(ctx, span, "cancel_hold", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.patronLocked(patron)
	if err != nil {
		return err
	}
	it, err := s.itemLocked(itemID)
	if err != nil {
		return err
	}
	if !it.Holds.Contains(patron) {
		return reject(KindPolicy, ErrNoHold, patron, itemID,
			fmt.Sprintf("you have no hold on %q", it.Title))
	}

	if err := s.recordLocked(ctx, it, patron, EventHoldCancelled, HoldCancelledEvent{
		ItemID: itemID,
		Patron: patron,
	}); err != nil {
		return err
	}

	it.Holds.Remove(patron)
	user.Holds = slices.DeleteFunc(user.Holds, func(id int) bool { return id == itemID })
	return nil
}

// HoldPosition returns the patron's 1-based rank in the item's hold queue, or
// -1 when the item does not exist or the patron is not queued.
func (s *Store) HoldPosition(ctx context.Context, patron string, itemID int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, err := s.itemLocked(itemID)
	if err != nil {
		return -1
	}
	return it.Holds.Position(patron)
}

// HoldQueue returns the names waiting for an item, head first.
func (s *Store) HoldQueue(ctx context.Context, itemID int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, err := s.itemLocked(itemID)
	if err != nil {
		return nil, err
	}
	names := it.Holds.Names()
	if names == nil {
		names = []string{}
	}
	return names, nil
}
