// internal/membership/service.go
package membership

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the desk session service.
type Service interface {
	Enter(ctx context.Context, name string) (*Session, error)
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	Leave(ctx context.Context, id uuid.UUID) error
}

// Directory is the user table the sessions are opened against.
type Directory interface {
	LookupUser(ctx context.Context, name string) (User, error)
	ClearCurrentUserState(ctx context.Context, name string)
}
