// internal/chaos/experiments.go
package chaos

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"hinlibs/internal/circulation"
	"hinlibs/internal/membership"
)

// RegisterExperiments registers all predefined chaos experiments with the engine.
func (e *Engine) RegisterExperiments() {
	e.RegisterExperiment(e.ConcurrentBorrowRaceExperiment(100))
	e.RegisterExperiment(e.LoanCapPressureExperiment())
	e.RegisterExperiment(e.HoldQueueChurnExperiment(25))
	if e.journal != nil {
		e.RegisterExperiment(e.JournalOutageExperiment(50))
	}
}

// inconsistencyMetric is the steady state every experiment shares: the user
// and item tables agree.
func (e *Engine) inconsistencyMetric() Metric {
	return Metric{
		Name: "inconsistencies",
		Query: func(ctx context.Context) (float64, error) {
			return float64(len(e.store.Audit(ctx))), nil
		},
		Threshold: Threshold{Operator: "==", Value: 0},
	}
}

func (e *Engine) maxLoansMetric() Metric {
	return Metric{
		Name: "max_active_loans",
		Query: func(ctx context.Context) (float64, error) {
			most := 0
			for _, u := range e.store.Users(ctx) {
				most = max(most, len(u.ActiveLoans))
			}
			return float64(most), nil
		},
		Threshold: Threshold{Operator: "<=", Value: circulation.MaxActiveLoans},
	}
}

func (e *Engine) patrons(ctx context.Context) []string {
	var names []string
	for _, u := range e.store.Users(ctx) {
		if u.IsPatron() {
			names = append(names, u.Name)
		}
	}
	return names
}

func (e *Engine) availableItems(ctx context.Context) []int {
	var ids []int
	for _, it := range e.store.Items(ctx) {
		if it.Status.Available() {
			ids = append(ids, it.ID)
		}
	}
	return ids
}

// ConcurrentBorrowRaceExperiment fires many simultaneous borrows at one item.
func (e *Engine) ConcurrentBorrowRaceExperiment(concurrency int) Experiment {
	var target int

	return Experiment{
		Name:        "concurrent-borrow-race",
		Hypothesis:  "Exactly one patron wins when many borrow the same item at once",
		SteadyState: []Metric{e.inconsistencyMetric()},
		Method: []Action{
			{
				Type:       "concurrent-borrows",
				Target:     "circulation-store",
				Parameters: map[string]any{"concurrency": concurrency},
				Execute: func(ctx context.Context) error {
					patrons := e.patrons(ctx)
					items := e.availableItems(ctx)
					if len(patrons) == 0 || len(items) == 0 {
						return errors.New("no patrons or available items to race on")
					}
					target = items[0]

					var (
						wg   sync.WaitGroup
						wins atomic.Int32
						odd  atomic.Int32
					)
					for i := 0; i < concurrency; i++ {
						wg.Add(1)
						go func(name string) {
							defer wg.Done()
							_, err := e.store.BorrowItem(ctx, name, target)
							switch {
							case err == nil:
								wins.Add(1)
							case circulation.KindOf(err) != circulation.KindPolicy:
								odd.Add(1)
							}
						}(patrons[i%len(patrons)])
					}
					wg.Wait()

					if wins.Load() != 1 {
						return fmt.Errorf("item %d lent %d times", target, wins.Load())
					}
					if odd.Load() > 0 {
						return fmt.Errorf("%d borrows failed with something other than a policy refusal", odd.Load())
					}
					return nil
				},
			},
		},
		Rollback: []Action{
			{
				Type:   "return-items",
				Target: "circulation-store",
				Execute: func(ctx context.Context) error {
					it, err := e.store.Item(ctx, target)
					if err != nil || it.Status.Available() {
						return err
					}
					return e.store.ReturnItem(ctx, *it.Status.Borrower, target)
				},
			},
		},
		Validation: []Assertion{
			{
				Metric:    "inconsistencies",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "Loans and item statuses must agree after the race",
			},
		},
		Duration:    2 * time.Second,
		BlastRadius: 0.05,
	}
}

// LoanCapPressureExperiment has one patron try to borrow the whole shelf at once.
func (e *Engine) LoanCapPressureExperiment() Experiment {
	var patron string

	return Experiment{
		Name:        "loan-cap-pressure",
		Hypothesis:  "A patron never holds more than the loan cap, even under concurrent borrows",
		SteadyState: []Metric{e.inconsistencyMetric(), e.maxLoansMetric()},
		Method: []Action{
			{
				Type:   "concurrent-borrows",
				Target: "circulation-store",
				Execute: func(ctx context.Context) error {
					patrons := e.patrons(ctx)
					if len(patrons) == 0 {
						return errors.New("no patrons to pressure")
					}
					patron = patrons[0]

					items := e.availableItems(ctx)
					var (
						wg   sync.WaitGroup
						wins atomic.Int32
					)
					for _, id := range items {
						wg.Add(1)
						go func(id int) {
							defer wg.Done()
							if _, err := e.store.BorrowItem(ctx, patron, id); err == nil {
								wins.Add(1)
							}
						}(id)
					}
					wg.Wait()

					if want := min(len(items), circulation.MaxActiveLoans); int(wins.Load()) > want {
						return fmt.Errorf("%s borrowed %d items, cap is %d", patron, wins.Load(), circulation.MaxActiveLoans)
					}
					return nil
				},
			},
		},
		Rollback: []Action{
			{
				Type:   "return-items",
				Target: "circulation-store",
				Execute: func(ctx context.Context) error {
					user, err := e.store.LookupUser(ctx, patron)
					if err != nil {
						return err
					}
					var errs []error
					for _, id := range user.ActiveLoans {
						errs = append(errs, e.store.ReturnItem(ctx, patron, id))
					}
					return errors.Join(errs...)
				},
			},
		},
		Validation: []Assertion{
			{
				Metric:    "max_active_loans",
				Condition: func(v float64) bool { return v <= circulation.MaxActiveLoans },
				Message:   "No patron may exceed the loan cap",
			},
			{
				Metric:    "inconsistencies",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "Loans and item statuses must agree under pressure",
			},
		},
		Duration:    2 * time.Second,
		BlastRadius: 0.25,
	}
}

// HoldQueueChurnExperiment has every patron join and leave the same hold
// queues concurrently for a number of rounds.
func (e *Engine) HoldQueueChurnExperiment(rounds int) Experiment {
	return Experiment{
		Name:        "hold-queue-churn",
		Hypothesis:  "Hold queues and patron hold lists never drift apart under concurrent churn",
		SteadyState: []Metric{e.inconsistencyMetric()},
		Method: []Action{
			{
				Type:       "hold-churn",
				Target:     "circulation-store",
				Parameters: map[string]any{"rounds": rounds},
				Execute: func(ctx context.Context) error {
					items := e.store.Items(ctx)
					ids := make([]int, 0, 3)
					for _, it := range items[:min(3, len(items))] {
						ids = append(ids, it.ID)
					}

					var (
						wg  sync.WaitGroup
						odd atomic.Int32
					)
					for _, name := range e.patrons(ctx) {
						wg.Add(1)
						go func(name string) {
							defer wg.Done()
							for r := 0; r < rounds; r++ {
								id := ids[rand.IntN(len(ids))]
								if _, err := e.store.PlaceHold(ctx, name, id); err != nil && circulation.KindOf(err) != circulation.KindPolicy {
									odd.Add(1)
								}
								if rand.IntN(4) == 0 {
									continue
								}
								if err := e.store.CancelHold(ctx, name, id); err != nil && circulation.KindOf(err) != circulation.KindPolicy {
									odd.Add(1)
								}
							}
						}(name)
					}
					wg.Wait()

					if odd.Load() > 0 {
						return fmt.Errorf("%d hold operations failed with something other than a policy refusal", odd.Load())
					}
					return nil
				},
			},
		},
		Rollback: []Action{
			{
				Type:    "cancel-holds",
				Target:  "circulation-store",
				Execute: e.cancelAllHolds,
			},
		},
		Validation: []Assertion{
			{
				Metric:    "inconsistencies",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "Hold queues must match patron hold lists",
			},
		},
		Duration:    2 * time.Second,
		BlastRadius: 0.15,
	}
}

// JournalOutageExperiment makes every journal append fail and checks that
// refused operations leave nothing behind.
func (e *Engine) JournalOutageExperiment(attempts int) Experiment {
	var loansBefore, holdsBefore int

	return Experiment{
		Name:        "journal-outage",
		Hypothesis:  "When the journal is down every circulation operation fails without changing state",
		SteadyState: []Metric{e.inconsistencyMetric()},
		Method: []Action{
			{
				Type:       "journal-outage",
				Target:     "journal",
				Parameters: map[string]any{"attempts": attempts},
				Execute: func(ctx context.Context) error {
					if e.journal == nil {
						return errors.New("no journal registered")
					}
					loansBefore, holdsBefore = e.countRecords(ctx)
					e.journal.SetFailing(true)

					patrons := e.patrons(ctx)
					items := e.availableItems(ctx)
					if len(patrons) == 0 || len(items) == 0 {
						return errors.New("no patrons or available items")
					}

					var (
						wg        sync.WaitGroup
						succeeded atomic.Int32
					)
					for i := 0; i < attempts; i++ {
						wg.Add(1)
						go func(name string, id int, hold bool) {
							defer wg.Done()
							var err error
							if hold {
								_, err = e.store.PlaceHold(ctx, name, id)
							} else {
								_, err = e.store.BorrowItem(ctx, name, id)
							}
							if err == nil {
								succeeded.Add(1)
							}
						}(patrons[i%len(patrons)], items[i%len(items)], i%2 == 0)
					}
					wg.Wait()

					if succeeded.Load() > 0 {
						return fmt.Errorf("%d operations succeeded while the journal was down", succeeded.Load())
					}
					if loans, holds := e.countRecords(ctx); loans != loansBefore || holds != holdsBefore {
						return fmt.Errorf("state changed during outage: loans %d->%d, holds %d->%d", loansBefore, loans, holdsBefore, holds)
					}
					return nil
				},
			},
		},
		Rollback: []Action{
			{
				Type:   "restore-journal",
				Target: "journal",
				Execute: func(ctx context.Context) error {
					if e.journal != nil {
						e.journal.SetFailing(false)
					}
					return nil
				},
			},
		},
		Validation: []Assertion{
			{
				Metric:    "inconsistencies",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "Failed appends must not leave half-applied operations",
			},
		},
		Duration:    time.Second,
		BlastRadius: 1.0,
	}
}

func (e *Engine) countRecords(ctx context.Context) (loans, holds int) {
	for _, u := range e.store.Users(ctx) {
		loans += len(u.ActiveLoans)
		holds += len(u.Holds)
	}
	return loans, holds
}

func (e *Engine) cancelAllHolds(ctx context.Context) error {
	var errs []error
	for _, u := range e.store.Users(ctx) {
		if u.Role != membership.RolePatron {
			continue
		}
		for _, id := range u.Holds {
			errs = append(errs, e.store.CancelHold(ctx, u.Name, id))
		}
	}
	return errors.Join(errs...)
}
