package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/tendant/wso2is-populate/pkg/errors"
)

// Phase is how far reconciliation got.
type Phase string

const (
	PhasePending    Phase = "pending"
	PhaseDeleted    Phase = "deleted"
	PhaseRegistered Phase = "registered"
	PhaseCreated    Phase = "created"
	PhaseIdentified Phase = "identified"
	PhaseConfigured Phase = "configured"
	PhaseFailed     Phase = "failed"

	// PhaseOrphaned: the OAuth registration exists but the service provider
	// does not, and the server refuses both to create and to delete it.
	PhaseOrphaned Phase = "orphaned"
)

// ErrOrphanedRegistration marks a run left in PhaseOrphaned. Match it with
// errors.Is.
var ErrOrphanedRegistration = errors.New(errors.ErrCodeOrphanedRegistration,
	"OAuth registration exists without a service provider; remove it on the server by hand")

// Step is one remote operation of the reconciliation pipeline.
type Step interface {
	// Name returns the unique name of this step
	Name() string

	// Order returns the execution order (lower numbers execute first)
	Order() int

	// Execute performs the step and records its effect in state
	Execute(ctx context.Context, state *State) error

	// ShouldSkip determines if this step should be skipped based on current state
	ShouldSkip(ctx context.Context, state *State) bool
}

// State carries data between steps.
type State struct {
	Desired Application

	// ID is the numeric service provider id, set by fetch_id.
	ID string

	Phase Phase

	// Registered is true once register succeeded in this run.
	Registered bool

	API    API
	Logger *slog.Logger
}

// StepReport describes one executed or skipped step.
type StepReport struct {
	Name     string
	Skipped  bool
	Duration time.Duration
	Err      error
}

// Result is the outcome of Reconcile.
type Result struct {
	Application string
	ID          string
	Phase       Phase
	Steps       []StepReport
}

// StepRegistry manages and orders steps.
type StepRegistry struct {
	steps []Step
}

// NewStepRegistry creates an empty registry.
func NewStepRegistry() *StepRegistry {
	return &StepRegistry{steps: make([]Step, 0)}
}

// AddStep adds a step to the registry
func (r *StepRegistry) AddStep(step Step) *StepRegistry {
	r.steps = append(r.steps, step)
	return r
}

// OrderedSteps returns the steps sorted by Order. Steps with equal order keep
// insertion order.
func (r *StepRegistry) OrderedSteps() []Step {
	ordered := make([]Step, len(r.steps))
	copy(ordered, r.steps)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order() < ordered[j].Order()
	})
	return ordered
}

// Reconciler runs the steps strictly in order against one API. A failing step
// stops the run.
type Reconciler struct {
	registry *StepRegistry
	api      API
	logger   *slog.Logger
}

// NewReconciler builds a reconciler for registry. See DefaultSteps.
func NewReconciler(registry *StepRegistry, api API, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		registry: registry,
		api:      api,
		logger:   logger.With(slog.String("component", "application_reconciler")),
	}
}

// NewDefaultReconciler uses delete, register, create, fetch_id and update.
func NewDefaultReconciler(api API, logger *slog.Logger) *Reconciler {
	registry := NewStepRegistry()
	for _, s := range DefaultSteps() {
		registry.AddStep(s)
	}
	return NewReconciler(registry, api, logger)
}

// Reconcile brings the remote service provider to app. The returned Result is
// never nil; on error its Phase is PhaseFailed or PhaseOrphaned.
func (r *Reconciler) Reconcile(ctx context.Context, app Application) (*Result, error) {
	result := &Result{Application: app.Name, Phase: PhasePending}
	if err := app.Validate(); err != nil {
		result.Phase = PhaseFailed
		return result, err
	}

	state := &State{
		Desired: app,
		Phase:   PhasePending,
		API:     r.api,
		Logger:  r.logger,
	}

	for _, step := range r.registry.OrderedSteps() {
		if step.ShouldSkip(ctx, state) {
			r.logger.Debug("step skipped", "step", step.Name())
			result.Steps = append(result.Steps, StepReport{Name: step.Name(), Skipped: true})
			continue
		}

		r.logger.Info("step started", "step", step.Name(), "application", app.Name)
		start := time.Now()
		err := step.Execute(ctx, state)
		result.Steps = append(result.Steps, StepReport{Name: step.Name(), Duration: time.Since(start), Err: err})

		if err != nil {
			result.ID = state.ID
			if errors.Is(err, ErrOrphanedRegistration) {
				result.Phase = PhaseOrphaned
			} else {
				result.Phase = PhaseFailed
			}
			r.logger.Error("step failed", "step", step.Name(), "phase", result.Phase, "error", err)
			return result, fmt.Errorf("application %s: step %s: %w", app.Name, step.Name(), err)
		}
	}

	result.ID = state.ID
	result.Phase = state.Phase
	return result, nil
}

// Step orders used by DefaultSteps.
const (
	OrderDelete   = 100
	OrderRegister = 200
	OrderCreate   = 300
	OrderFetchID  = 400
	OrderUpdate   = 500
)
