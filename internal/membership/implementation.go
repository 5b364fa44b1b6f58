// internal/membership/implementation.go
package membership

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limits bounds how fast new sessions can be opened. Unlimited disables the
// limiter and ignores the other fields.
type Limits struct {
	PerMinute int
	Burst     int
	Unlimited bool
}

// DefaultLimits allows 30 name entries a minute with a burst of 5. It is meant
// for the HTTP surface.
var DefaultLimits = Limits{PerMinute: 30, Burst: 5}

// DeskLimits never refuses a name; the terminal desk has a single local user.
var DeskLimits = Limits{Unlimited: true}

// service implements the Service interface.
type service struct {
	directory   Directory
	rateLimiter *rate.Limiter
	log         *zap.Logger
	now         func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]Session
}

// NewService creates a new session service over the given user directory.
func NewService(directory Directory, limits Limits, log *zap.Logger) Service {
	return &service{
		directory:   directory,
		rateLimiter: newLimiter(limits),
		log:         log,
		now:         time.Now,
		sessions:    make(map[uuid.UUID]Session),
	}
}

func newLimiter(limits Limits) *rate.Limiter {
	if limits.Unlimited {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if limits.PerMinute <= 0 {
		limits.PerMinute = DefaultLimits.PerMinute
	}
	if limits.Burst <= 0 {
		limits.Burst = DefaultLimits.Burst
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(limits.PerMinute)), limits.Burst)
}

// Enter opens a session for the user with the given name. Leading and trailing
// whitespace is ignored; the rest must match a roster name exactly.
func (s *service) Enter(ctx context.Context, name string) (*Session, error) {
	if !s.rateLimiter.Allow() {
		return nil, ErrRateLimited
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMissingName
	}

	user, err := s.directory.LookupUser(ctx, name)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("no user named %q: %w", name, ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	session := Session{
		ID:        uuid.New(),
		Name:      user.Name,
		Role:      user.Role,
		StartedAt: s.now(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.log.Info("session opened",
		zap.String("session_id", session.ID.String()),
		zap.String("user", session.Name),
		zap.Stringer("role", session.Role),
	)
	return &session, nil
}

// Get returns an open session.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

// Leave closes the session and runs the directory's reset hook for its user.
func (s *service) Leave(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	session, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	s.directory.ClearCurrentUserState(ctx, session.Name)
	s.log.Info("session closed",
		zap.String("session_id", id.String()),
		zap.String("user", session.Name),
		zap.Duration("duration", s.now().Sub(session.StartedAt)),
	)
	return nil
}
