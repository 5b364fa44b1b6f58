// internal/circulation/implementation.go
package circulation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"hinlibs/internal/catalog"
	"hinlibs/internal/eventstore"
	"hinlibs/internal/membership"
)

// Store is the circulation desk's single source of truth for users and items.
// Every operation runs its checks and mutations under one lock, so a rejected
// call never leaves partial state behind.
type Store struct {
	mu        sync.RWMutex
	users     []membership.User
	userIndex map[string]int
	items     []catalog.Item
	itemIndex map[int]int

	events eventstore.Store
	runID  uuid.UUID
	now    func() time.Time
	log    *zap.Logger
	tracer trace.Tracer
	ops    metric.Int64Counter
}

var _ Service = (*Store)(nil)

// Option configures a Store.
type Option func(*storeOptions)

type storeOptions struct {
	users          []membership.User
	items          []catalog.Item
	events         eventstore.Store
	now            func() time.Time
	log            *zap.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithSeed replaces the demo roster and catalogue.
func WithSeed(users []membership.User, items []catalog.Item) Option {
	return func(o *storeOptions) {
		o.users = users
		o.items = items
	}
}

// WithClock sets the time source used for due dates and journal entries.
func WithClock(now func() time.Time) Option {
	return func(o *storeOptions) { o.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *storeOptions) { o.log = log }
}

// WithEventStore sets the journal backend. The default is an in-memory journal.
func WithEventStore(es eventstore.Store) Option {
	return func(o *storeOptions) { o.events = es }
}

// WithTracerProvider sets the tracer provider. The default is the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *storeOptions) { o.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider. The default is the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *storeOptions) { o.meterProvider = mp }
}

// NewStore builds a store seeded with the demo roster and catalogue unless
// WithSeed says otherwise.
func NewStore(opts ...Option) (*Store, error) {
	o := storeOptions{
		users:          membership.SeedUsers(),
		items:          catalog.SeedItems(),
		now:            time.Now,
		log:            zap.NewNop(),
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.events == nil {
		o.events = eventstore.NewMemoryStore()
	}

	ops, err := o.meterProvider.Meter("hinlibs/circulation").Int64Counter(
		"circulation.operations",
		metric.WithDescription("Circulation operations by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operations counter: %w", err)
	}

	s := &Store{
		userIndex: make(map[string]int, len(o.users)),
		itemIndex: make(map[int]int, len(o.items)),
		events:    o.events,
		runID:     uuid.New(),
		now:       o.now,
		log:       o.log,
		tracer:    o.tracerProvider.Tracer("hinlibs/circulation"),
		ops:       ops,
	}

	for _, u := range o.users {
		s.upsertLocked(u)
	}
	for _, it := range o.items {
		if it.ID <= 0 {
			return nil, fmt.Errorf("invalid item id %d: must be positive", it.ID)
		}
		if _, dup := s.itemIndex[it.ID]; dup {
			return nil, fmt.Errorf("duplicate item id %d", it.ID)
		}
		s.itemIndex[it.ID] = len(s.items)
		s.items = append(s.items, it.Clone())
	}

	return s, nil
}

// LookupUser returns a copy of the user with exactly this name.
func (s *Store) LookupUser(ctx context.Context, name string) (membership.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.userIndex[name]
	if !ok {
		return membership.User{}, reject(KindNotFound, ErrUserNotFound, name, 0,
			fmt.Sprintf("no user named %q", name))
	}
	return s.users[i].Clone(), nil
}

// UpsertUser replaces the user with the same name, or appends it. The record is
// stored as given; callers are trusted to have applied only legal transitions.
func (s *Store) UpsertUser(ctx context.Context, user membership.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(user)
}

func (s *Store) upsertLocked(user membership.User) {
	if i, ok := s.userIndex[user.Name]; ok {
		s.users[i] = user.Clone()
		return
	}
	s.userIndex[user.Name] = len(s.users)
	s.users = append(s.users, user.Clone())
}

// Users returns a snapshot of the roster in registration order.
func (s *Store) Users(ctx context.Context) []membership.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]membership.User, len(s.users))
	for i, u := range s.users {
		out[i] = u.Clone()
	}
	return out
}

// Items returns a snapshot of the catalogue in id order.
func (s *Store) Items(ctx context.Context) []catalog.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]catalog.Item, len(s.items))
	for i, it := range s.items {
		out[i] = it.Clone()
	}
	return out
}

// Item returns a snapshot of one catalogue item.
func (s *Store) Item(ctx context.Context, id int) (catalog.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, err := s.itemLocked(id)
	if err != nil {
		return catalog.Item{}, err
	}
	return it.Clone(), nil
}

// BorrowItem lends an available item to a patron. Checks run in order: loan
// cap, item exists, item available; the first failure is reported.
func (s *Store) BorrowItem(ctx context.Context, patron string, itemID int) (checkout *Checkout, err error) {
	ctx, span := s.startSpan(ctx, "borrow", patron, itemID)
	defer func() { s.finish(ctx, span, "borrow", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.patronLocked(patron)
	if err != nil {
		return nil, err
	}
	if len(user.ActiveLoans) >= MaxActiveLoans {
		return nil, reject(KindPolicy, ErrLoanCapReached, patron, itemID,
			fmt.Sprintf("borrowing blocked: you already have %d active loans", MaxActiveLoans))
	}
	it, err := s.itemLocked(itemID)
	if err != nil {
		return nil, err
	}
	if !it.Status.Available() {
		return nil, reject(KindPolicy, ErrItemUnavailable, patron, itemID,
			fmt.Sprintf("item %q is not available to borrow", it.Title))
	}

	now := s.now()
	due := DueDate(now)
	if err := s.recordLocked(ctx, it, patron, EventItemCheckedOut, ItemCheckedOutEvent{
		ItemID:  itemID,
		Patron:  patron,
		DueDate: due,
	}); err != nil {
		return nil, err
	}

	it.Status.CheckOut(user.Name, due)
	user.ActiveLoans = append(user.ActiveLoans, itemID)

	return &Checkout{
		ItemID:       itemID,
		Title:        it.Title,
		Patron:       user.Name,
		CheckoutDate: now,
		DueDate:      due,
	}, nil
}

// ReturnItem takes an item back from the patron who borrowed it. The item's
// hold queue is left untouched; nobody is promoted automatically.
func (s *Store) ReturnItem(ctx context.Context, patron string, itemID int) (err error) {
	ctx, span := s.startSpan(ctx, "return", patron, itemID)
	defer func() { s.finish(ctx, span, "return", err) }()

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
	if it.Status.Available() {
		return reject(KindPolicy, ErrAlreadyAvailable, patron, itemID,
			fmt.Sprintf("item %q is already available", it.Title))
	}
	if !it.Status.BorrowedBy(patron) {
		return reject(KindPolicy, ErrNotBorrower, patron, itemID,
			fmt.Sprintf("item %q is not checked out by you", it.Title))
	}
	if !user.HasLoan(itemID) {
		return reject(KindConsistency, ErrLoanRecordMissing, patron, itemID,
			fmt.Sprintf("internal error: loan record not found for %q", it.Title))
	}

	if err := s.recordLocked(ctx, it, patron, EventItemReturned, ItemReturnedEvent{
		ItemID:     itemID,
		Patron:     patron,
		ReturnDate: s.now(),
	}); err != nil {
		return err
	}

	user.ActiveLoans = slices.DeleteFunc(user.ActiveLoans, func(id int) bool { return id == itemID })
	it.Status.CheckIn()
	return nil
}

// ClearCurrentUserState is called when a desk session for name ends. The store
// keeps no per-session state, so there is nothing to tear down.
func (s *Store) ClearCurrentUserState(ctx context.Context, name string) {
	s.log.Debug("session state cleared", zap.String("user", name))
}

// History returns the journalled circulation events for an item, oldest first.
func (s *Store) History(ctx context.Context, itemID int) ([]eventstore.Event, error) {
	s.mu.RLock()
	_, err := s.itemLocked(itemID)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	events, err := s.events.LoadEvents(ctx, s.aggregateID(itemID), 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return events, nil
}

func (s *Store) patronLocked(name string) (*membership.User, error) {
	i, ok := s.userIndex[name]
	if !ok {
		return nil, reject(KindNotFound, ErrUserNotFound, name, 0,
			fmt.Sprintf("no user named %q", name))
	}
	user := &s.users[i]
	if !user.IsPatron() {
		return nil, reject(KindPolicy, ErrNotPatron, name, 0,
			fmt.Sprintf("%s users cannot borrow or place holds", user.Role))
	}
	return user, nil
}

func (s *Store) itemLocked(id int) (*catalog.Item, error) {
	i, ok := s.itemIndex[id]
	if !ok {
		return nil, reject(KindNotFound, ErrItemNotFound, "", id,
			fmt.Sprintf("internal error: item %d not found", id))
	}
	return &s.items[i], nil
}

// recordLocked journals one event for the item before its state changes, so a
// journal failure aborts the operation cleanly.
func (s *Store) recordLocked(ctx context.Context, it *catalog.Item, patron, eventType string, payload any) error {
	event, err := eventstore.NewEvent(eventType, payload)
	if err != nil {
		return err
	}
	event.Metadata = eventstore.Metadata{
		"patron": patron,
		"run_id": s.runID.String(),
	}

	if err := s.events.AppendEvents(ctx, s.aggregateID(it.ID), aggregateType, it.Version, []eventstore.Event{event}); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	it.Version++
	return nil
}

// aggregateID derives a stable per-run journal id for an item, so a shared
// journal never mixes versions from different processes.
func (s *Store) aggregateID(itemID int) uuid.UUID {
	return uuid.NewSHA1(s.runID, []byte(aggregateType+":"+strconv.Itoa(itemID)))
}

func (s *Store) startSpan(ctx context.Context, op, patron string, itemID int) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "circulation."+op,
		trace.WithAttributes(
			attribute.String("patron", patron),
			attribute.Int("item.id", itemID),
		),
	)
}

func (s *Store) finish(ctx context.Context, span trace.Span, op string, err error) {
	defer span.End()

	outcome := "success"
	fields := []zap.Field{zap.String("op", op)}
	var rej *RejectionError

	switch {
	case err == nil:
		s.log.Debug("circulation operation succeeded", fields...)
	case errors.As(err, &rej):
		outcome = "rejected"
		fields = append(fields,
			zap.String("patron", rej.Patron),
			zap.Int("item_id", rej.ItemID),
			zap.Stringer("kind", rej.Kind),
			zap.String("reason", rej.Message),
		)
		span.SetAttributes(attribute.String("rejection.kind", rej.Kind.String()))
		if rej.Kind == KindConsistency {
			span.SetStatus(codes.Error, rej.Message)
			s.log.Error("circulation tables out of sync", fields...)
		} else {
			s.log.Debug("circulation operation rejected", fields...)
		}
	default:
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Error("circulation operation failed", append(fields, zap.Error(err))...)
	}

	span.SetAttributes(attribute.String("outcome", outcome))
	s.ops.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}
