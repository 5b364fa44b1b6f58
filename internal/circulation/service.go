// internal/circulation/service.go
package circulation

import (
	"context"

	"hinlibs/internal/catalog"
	"hinlibs/internal/eventstore"
	"hinlibs/internal/membership"
)

// Service defines the interface for the circulation desk.
type Service interface {
	LookupUser(ctx context.Context, name string) (membership.User, error)
	UpsertUser(ctx context.Context, user membership.User)
	Users(ctx context.Context) []membership.User
	Items(ctx context.Context) []catalog.Item
	Item(ctx context.Context, id int) (catalog.Item, error)

	BorrowItem(ctx context.Context, patron string, itemID int) (*Checkout, error)
	ReturnItem(ctx context.Context, patron string, itemID int) error
	PlaceHold(ctx context.Context, patron string, itemID int) (int, error)
	CancelHold(ctx context.Context, patron string, itemID int) error
	HoldPosition(ctx context.Context, patron string, itemID int) int
	HoldQueue(ctx context.Context, itemID int) ([]string, error)

	History(ctx context.Context, itemID int) ([]eventstore.Event, error)
	ClearCurrentUserState(ctx context.Context, name string)
	Audit(ctx context.Context) []Inconsistency
}
