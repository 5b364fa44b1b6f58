// internal/membership/domain.go
package membership

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrMissingName     = errors.New("please enter a name")
	ErrSessionNotFound = errors.New("session not found")
	ErrRateLimited     = errors.New("rate limit exceeded")
)

// Role decides which desk a user gets. Only patrons take part in circulation.
type Role int

const (
	RolePatron Role = iota + 1
	RoleLibrarian
	RoleAdmin
)

// String returns the display name of the role.
func (r Role) String() string {
	switch r {
	case RolePatron:
		return "Patron"
	case RoleLibrarian:
		return "Librarian"
	case RoleAdmin:
		return "Admin"
	}
	return "Unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	for _, candidate := range []Role{RolePatron, RoleLibrarian, RoleAdmin} {
		if candidate.String() == string(text) {
			*r = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown role %q", text)
}

// User is a member of the roster. Name is the primary key and is matched exactly.
type User struct {
	Name        string `json:"name"`
	Role        Role   `json:"role"`
	ActiveLoans []int  `json:"active_loans"`
	Holds       []int  `json:"holds"`
}

// IsPatron reports whether the user may borrow and place holds.
func (u User) IsPatron() bool {
	return u.Role == RolePatron
}

// HasLoan reports whether itemID is among the user's active loans.
func (u User) HasLoan(itemID int) bool {
	return slices.Contains(u.ActiveLoans, itemID)
}

// HasHold reports whether the user is waiting for itemID.
func (u User) HasHold(itemID int) bool {
	return slices.Contains(u.Holds, itemID)
}

// Clone returns a copy that shares no slices with u.
func (u User) Clone() User {
	out := u
	out.ActiveLoans = append([]int{}, u.ActiveLoans...)
	out.Holds = append([]int{}, u.Holds...)
	return out
}

// Session is an unauthenticated desk session opened by name entry.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	StartedAt time.Time `json:"started_at"`
}
