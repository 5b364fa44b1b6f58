// internal/circulation/domain.go
package circulation

import (
	"time"
)

const (
	// MaxActiveLoans is how many items a patron may hold at once.
	MaxActiveLoans = 3
	// LoanDays is the loan period; the due date is the checkout date plus this many days.
	LoanDays = 14
)

const (
	aggregateType = "item"

	EventItemCheckedOut = "ItemCheckedOut"
	EventItemReturned   = "ItemReturned"
	EventHoldPlaced     = "HoldPlaced"
	EventHoldCancelled  = "HoldCancelled"
)

// Checkout represents an item checked out by a patron.
type Checkout struct {
	ItemID       int       `json:"item_id"`
	Title        string    `json:"title"`
	Patron       string    `json:"patron"`
	CheckoutDate time.Time `json:"checkout_date"`
	DueDate      time.Time `json:"due_date"`
}

// ItemCheckedOutEvent is journalled when an item is checked out.
type ItemCheckedOutEvent struct {
	ItemID  int       `json:"item_id"`
	Patron  string    `json:"patron"`
	DueDate time.Time `json:"due_date"`
}

// ItemReturnedEvent is journalled when an item is returned.
type ItemReturnedEvent struct {
	ItemID     int       `json:"item_id"`
	Patron     string    `json:"patron"`
	ReturnDate time.Time `json:"return_date"`
}

// HoldPlacedEvent is journalled when a patron joins an item's hold queue.
type HoldPlacedEvent struct {
	ItemID   int    `json:"item_id"`
	Patron   string `json:"patron"`
	Position int    `json:"position"`
}

// HoldCancelledEvent is journalled when a patron leaves an item's hold queue.
type HoldCancelledEvent struct {
	ItemID int    `json:"item_id"`
	Patron string `json:"patron"`
}

// Inconsistency describes a place where the user and item tables disagree.
type Inconsistency struct {
	Subject string `json:"subject"`
	Detail  string `json:"detail"`
}

// DueDate returns the due date for a checkout made at now: the calendar date
// LoanDays ahead, at midnight in now's location.
func DueDate(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+LoanDays, 0, 0, 0, 0, now.Location())
}
