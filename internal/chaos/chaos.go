// internal/chaos/chaos.go
package chaos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"hinlibs/internal/circulation"
)

var ErrSteadyStateInvalid = errors.New("steady state invalid - aborting experiment")

// Experiment defines a chaos engineering test against the circulation store.
type Experiment struct {
	Name        string
	Hypothesis  string
	SteadyState []Metric
	Method      []Action
	Rollback    []Action
	Validation  []Assertion
	Duration    time.Duration
	BlastRadius float64 // 0.0 to 1.0 (share of the catalogue touched)
}

// Metric defines a measurable system property
type Metric struct {
	Name      string
	Query     func(context.Context) (float64, error)
	Threshold Threshold
}

type Threshold struct {
	Operator string // >, <, >=, <=, ==
	Value    float64
}

// Action represents a load or fault injection step, or its rollback.
type Action struct {
	Type       string // concurrent-borrows, hold-churn, journal-outage
	Target     string
	Parameters map[string]any
	Execute    func(context.Context) error
}

// Assertion validates experiment outcome
type Assertion struct {
	Metric    string
	Condition func(float64) bool
	Message   string
}

// ExperimentResult captures experiment execution data
type ExperimentResult struct {
	ExperimentName   string                 `json:"experiment_name"`
	StartTime        time.Time              `json:"start_time"`
	EndTime          time.Time              `json:"end_time"`
	Duration         time.Duration          `json:"duration"`
	HypothesisHeld   bool                   `json:"hypothesis_held"`
	SteadyStateValid bool                   `json:"steady_state_valid"`
	Violations       []MetricViolation      `json:"violations"`
	FailedAssertions []string               `json:"failed_assertions,omitempty"`
	Observations     map[string][]DataPoint `json:"observations"`
	ErrorEvents      []ErrorEvent           `json:"error_events"`
	MTTR             *time.Duration         `json:"mttr,omitempty"`
}

type MetricViolation struct {
	MetricName string    `json:"metric_name"`
	Expected   float64   `json:"expected"`
	Actual     float64   `json:"actual"`
	Timestamp  time.Time `json:"timestamp"`
}

type DataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

type ErrorEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error"`
	Component string    `json:"component"`
}

// Engine orchestrates chaos experiments
type Engine struct {
	tracer         trace.Tracer
	store          circulation.Service
	journal        *FlakyJournal
	log            *zap.Logger
	out            io.Writer
	sampleInterval time.Duration
	pause          time.Duration
	experiments    []Experiment
	results        []ExperimentResult
	mu             sync.Mutex
}

type Option func(*Engine)

// WithSampleInterval sets how often metrics are sampled while observing.
func WithSampleInterval(d time.Duration) Option {
	return func(e *Engine) { e.sampleInterval = d }
}

// WithPause sets the wait between game day scenarios.
func WithPause(d time.Duration) Option {
	return func(e *Engine) { e.pause = d }
}

// WithOutput sets where game day reports are written. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(e *Engine) { e.out = w }
}

func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracer = tp.Tracer("hinlibs/chaos") }
}

// WithJournal enables the journal outage experiment. j must be the journal
// the store was built with.
func WithJournal(j *FlakyJournal) Option {
	return func(e *Engine) { e.journal = j }
}

func NewEngine(store circulation.Service, opts ...Option) *Engine {
	e := &Engine{
		tracer:         otel.Tracer("hinlibs/chaos"),
		store:          store,
		log:            zap.NewNop(),
		out:            os.Stdout,
		sampleInterval: time.Second,
		pause:          5 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterExperiment adds an experiment to the test suite
func (e *Engine) RegisterExperiment(exp Experiment) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.experiments = append(e.experiments, exp)
}

// Experiments returns the list of registered experiments.
func (e *Engine) Experiments() []Experiment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Experiment(nil), e.experiments...)
}

// Results returns the results of every experiment run so far.
func (e *Engine) Results() []ExperimentResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ExperimentResult(nil), e.results...)
}

// RunExperiment executes a single chaos experiment
func (e *Engine) RunExperiment(ctx context.Context, exp Experiment) (*ExperimentResult, error) {
	ctx, span := e.tracer.Start(ctx, "chaos.run_experiment",
		trace.WithAttributes(
			attribute.String("experiment.name", exp.Name),
		),
	)
	defer span.End()

	result := &ExperimentResult{
		ExperimentName: exp.Name,
		StartTime:      time.Now(),
		Observations:   make(map[string][]DataPoint),
		ErrorEvents:    make([]ErrorEvent, 0),
	}

	// Phase 1: Validate steady state
	span.AddEvent("validating_steady_state")
	if valid, violations := e.validateSteadyState(ctx, exp.SteadyState); !valid {
		result.SteadyStateValid = false
		result.Violations = violations
		return result, ErrSteadyStateInvalid
	}
	result.SteadyStateValid = true

	// Phase 2: Inject chaos
	span.AddEvent("injecting_chaos")
	for _, action := range exp.Method {
		if err := action.Execute(ctx); err != nil {
			e.recordError(result, action.Target, err)
			span.RecordError(err)
		}
	}

	// Phase 3: Observe system behavior
	span.AddEvent("observing_system")
	e.observe(ctx, exp, result)

	// Phase 4: Rollback chaos injection
	span.AddEvent("rolling_back")
	for _, action := range exp.Rollback {
		if err := action.Execute(ctx); err != nil {
			e.recordError(result, action.Target, err)
			span.RecordError(err)
		}
	}

	// Phase 5: Validate assertions
	span.AddEvent("validating_assertions")
	result.FailedAssertions = e.validateAssertions(exp.Validation, result)
	result.HypothesisHeld = len(result.FailedAssertions) == 0 && len(result.ErrorEvents) == 0
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	e.mu.Lock()
	e.results = append(e.results, *result)
	e.mu.Unlock()

	span.SetAttributes(
		attribute.Bool("hypothesis_held", result.HypothesisHeld),
		attribute.Int("violations", len(result.Violations)),
	)
	e.log.Info("experiment finished",
		zap.String("experiment", exp.Name),
		zap.Bool("hypothesis_held", result.HypothesisHeld),
		zap.Int("violations", len(result.Violations)),
		zap.Int("errors", len(result.ErrorEvents)),
	)

	return result, nil
}

// observe samples the steady state metrics until the experiment duration
// elapses. There is always at least one sample.
func (e *Engine) observe(ctx context.Context, exp Experiment, result *ExperimentResult) {
	observationCtx, cancel := context.WithTimeout(ctx, exp.Duration)
	defer cancel()

	recoveryStart := time.Time{}
	systemRecovered := false

	sample := func() {
		for _, metric := range exp.SteadyState {
			value, err := metric.Query(ctx)
			if err != nil {
				e.recordError(result, metric.Name, err)
				continue
			}

			now := time.Now()
			result.Observations[metric.Name] = append(result.Observations[metric.Name], DataPoint{Timestamp: now, Value: value})

			if !evaluateThreshold(value, metric.Threshold) {
				if recoveryStart.IsZero() {
					recoveryStart = now
				}
				result.Violations = append(result.Violations, MetricViolation{
					MetricName: metric.Name,
					Expected:   metric.Threshold.Value,
					Actual:     value,
					Timestamp:  now,
				})
			} else if !recoveryStart.IsZero() && !systemRecovered {
				mttr := now.Sub(recoveryStart)
				result.MTTR = &mttr
				systemRecovered = true
			}
		}
	}

	sample()

	ticker := time.NewTicker(e.sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-observationCtx.Done():
			return
		case <-ticker.C:
			sample()
		}
	}
}

func (e *Engine) recordError(result *ExperimentResult, component string, err error) {
	result.ErrorEvents = append(result.ErrorEvents, ErrorEvent{
		Timestamp: time.Now(),
		Error:     err.Error(),
		Component: component,
	})
}

func (e *Engine) validateSteadyState(ctx context.Context, metrics []Metric) (bool, []MetricViolation) {
	violations := make([]MetricViolation, 0)

	for _, metric := range metrics {
		value, err := metric.Query(ctx)
		if err != nil {
			violations = append(violations, MetricViolation{
				MetricName: metric.Name,
				Expected:   metric.Threshold.Value,
				Actual:     -1,
				Timestamp:  time.Now(),
			})
			continue
		}

		if !evaluateThreshold(value, metric.Threshold) {
			violations = append(violations, MetricViolation{
				MetricName: metric.Name,
				Expected:   metric.Threshold.Value,
				Actual:     value,
				Timestamp:  time.Now(),
			})
		}
	}

	return len(violations) == 0, violations
}

func evaluateThreshold(value float64, threshold Threshold) bool {
	switch threshold.Operator {
	case ">":
		return value > threshold.Value
	case "<":
		return value < threshold.Value
	case ">=":
		return value >= threshold.Value
	case "<=":
		return value <= threshold.Value
	case "==":
		return value == threshold.Value
	default:
		return false
	}
}

// validateAssertions checks each assertion against the last observation of
// its metric and returns the messages of those that failed.
func (e *Engine) validateAssertions(assertions []Assertion, result *ExperimentResult) []string {
	var failed []string
	for _, assertion := range assertions {
		observations := result.Observations[assertion.Metric]
		if len(observations) == 0 {
			failed = append(failed, assertion.Message+" (no observations)")
			continue
		}

		finalValue := observations[len(observations)-1].Value
		if !assertion.Condition(finalValue) {
			failed = append(failed, assertion.Message)
		}
	}
	return failed
}

// GameDay orchestrates a series of chaos experiments.
type GameDay struct {
	Name         string
	Date         time.Time
	Scenarios    []Experiment
	Participants []string
}

// ExecuteGameDay runs every scenario in order and reports each result. It
// returns an error naming the scenarios whose hypothesis did not hold.
func (e *Engine) ExecuteGameDay(ctx context.Context, gameDay GameDay) error {
	ctx, span := e.tracer.Start(ctx, "chaos.game_day",
		trace.WithAttributes(
			attribute.String("gameday.name", gameDay.Name),
		),
	)
	defer span.End()

	fmt.Fprintf(e.out, "🎮 Starting Game Day: %s\n", gameDay.Name)
	fmt.Fprintf(e.out, "📅 Date: %s\n", gameDay.Date.Format(time.RFC1123))
	if len(gameDay.Participants) > 0 {
		fmt.Fprintf(e.out, "👥 Participants: %v\n", gameDay.Participants)
	}

	var failed []string
	for i, scenario := range gameDay.Scenarios {
		fmt.Fprintf(e.out, "\n🔬 Experiment %d/%d: %s\n", i+1, len(gameDay.Scenarios), scenario.Name)
		fmt.Fprintf(e.out, "💡 Hypothesis: %s\n", scenario.Hypothesis)

		result, err := e.RunExperiment(ctx, scenario)
		if err != nil {
			fmt.Fprintf(e.out, "❌ Experiment failed: %v\n", err)
			failed = append(failed, scenario.Name)
			continue
		}

		e.printExperimentResult(result)
		if !result.HypothesisHeld {
			failed = append(failed, scenario.Name)
		}

		if i < len(gameDay.Scenarios)-1 && e.pause > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.pause):
			}
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("hypothesis violated in %d experiment(s): %v", len(failed), failed)
	}
	return nil
}

func (e *Engine) printExperimentResult(result *ExperimentResult) {
	if result.HypothesisHeld {
		fmt.Fprintf(e.out, "✅ Hypothesis held - System behaved as expected\n")
	} else {
		fmt.Fprintf(e.out, "❌ Hypothesis violated - Unexpected behavior observed\n")
	}

	if len(result.Violations) > 0 {
		fmt.Fprintf(e.out, "⚠️  Violations detected: %d\n", len(result.Violations))
		for _, v := range result.Violations {
			fmt.Fprintf(e.out, "   - %s: expected %.2f, got %.2f\n", v.MetricName, v.Expected, v.Actual)
		}
	}
	for _, msg := range result.FailedAssertions {
		fmt.Fprintf(e.out, "   - assertion failed: %s\n", msg)
	}
	for _, ev := range result.ErrorEvents {
		fmt.Fprintf(e.out, "   - error in %s: %s\n", ev.Component, ev.Error)
	}

	if result.MTTR != nil {
		fmt.Fprintf(e.out, "⏱️  MTTR: %s\n", *result.MTTR)
	}

	fmt.Fprintf(e.out, "📊 Duration: %s\n", result.Duration)
}
