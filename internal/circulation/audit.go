// internal/circulation/audit.go
package circulation

import (
	"context"
	"fmt"
)

// Audit cross-checks the user and item tables and returns every disagreement.
// An empty result means all circulation invariants hold.
func (s *Store) Audit(ctx context.Context) []Inconsistency {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []Inconsistency
	add := func(subject, format string, args ...any) {
		found = append(found, Inconsistency{Subject: subject, Detail: fmt.Sprintf(format, args...)})
	}

	for _, u := range s.users {
		subject := "user " + u.Name
		if len(u.ActiveLoans) > MaxActiveLoans {
			add(subject, "%d active loans exceeds cap of %d", len(u.ActiveLoans), MaxActiveLoans)
		}
		if !u.IsPatron() && (len(u.ActiveLoans) > 0 || len(u.Holds) > 0) {
			add(subject, "%s has circulation records", u.Role)
		}
		for _, id := range u.ActiveLoans {
			i, ok := s.itemIndex[id]
			if !ok {
				add(subject, "loan of unknown item %d", id)
				continue
			}
			if !s.items[i].Status.BorrowedBy(u.Name) {
				add(subject, "loan of item %d not recorded on the item", id)
			}
		}
		seen := map[int]bool{}
		for _, id := range u.Holds {
			if seen[id] {
				add(subject, "duplicate hold on item %d", id)
			}
			seen[id] = true
			i, ok := s.itemIndex[id]
			if !ok {
				add(subject, "hold on unknown item %d", id)
				continue
			}
			if !s.items[i].Holds.Contains(u.Name) {
				add(subject, "hold on item %d missing from its queue", id)
			}
		}
	}

	for _, it := range s.items {
		subject := fmt.Sprintf("item %d", it.ID)
		if (it.Status.Borrower == nil) != (it.Status.DueDate == nil) {
			add(subject, "borrower and due date out of step")
		}
		if it.Status.Borrower != nil {
			name := *it.Status.Borrower
			i, ok := s.userIndex[name]
			if !ok {
				add(subject, "borrowed by unknown user %q", name)
			} else if !s.users[i].HasLoan(it.ID) {
				add(subject, "borrower %q has no loan record", name)
			}
		}
		seen := map[string]bool{}
		for _, name := range it.Holds.Names() {
			if seen[name] {
				add(subject, "%q queued twice", name)
			}
			seen[name] = true
			i, ok := s.userIndex[name]
			if !ok {
				add(subject, "hold queued for unknown user %q", name)
			} else if !s.users[i].HasHold(it.ID) {
				add(subject, "queued user %q has no hold record", name)
			}
		}
	}

	return found
}
