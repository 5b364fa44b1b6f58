// internal/circulation/errors.go
package circulation

import (
	"errors"

	"hinlibs/internal/membership"
)

// Kind classifies why an operation was rejected.
type Kind int

const (
	// KindNotFound means a user or item id does not exist.
	KindNotFound Kind = iota + 1
	// KindPolicy is an expected, user-facing refusal.
	KindPolicy
	// KindConsistency means the user and item tables disagree.
	KindConsistency
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPolicy:
		return "policy"
	case KindConsistency:
		return "consistency"
	}
	return "unknown"
}

var (
	ErrUserNotFound      = membership.ErrUserNotFound
	ErrItemNotFound      = errors.New("item not found")
	ErrNotPatron         = errors.New("only patrons take part in circulation")
	ErrLoanCapReached    = errors.New("loan cap reached")
	ErrItemUnavailable   = errors.New("item is not available")
	ErrAlreadyAvailable  = errors.New("item is already available")
	ErrNotBorrower       = errors.New("item is not checked out by you")
	ErrLoanRecordMissing = errors.New("loan record not found")
	ErrAlreadyCheckedOut = errors.New("item is already checked out by you")
	ErrAlreadyOnHold     = errors.New("item is already on hold")
	ErrNoHold            = errors.New("no hold on this item")
)

// RejectionError is returned when an operation is refused before any state
// changes. It unwraps to one of the Err* sentinels.
type RejectionError struct {
	Kind    Kind
	Reason  error
	Patron  string
	ItemID  int
	Message string
}

func (e *RejectionError) Error() string {
	return e.Message
}

func (e *RejectionError) Unwrap() error {
	return e.Reason
}

// KindOf returns the rejection kind of err, or 0 when err is not a rejection.
func KindOf(err error) Kind {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Kind
	}
	return 0
}

func reject(kind Kind, reason error, patron string, itemID int, message string) *RejectionError {
	return &RejectionError{
		Kind:    kind,
		Reason:  reason,
		Patron:  patron,
		ItemID:  itemID,
		Message: message,
	}
}
