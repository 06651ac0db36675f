package execution

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/testforge/testforge/errors"
)

// Result is what a runner capability reports back: success flag, the
// full captured log text, and any produced artifacts.
type Result struct {
	OK        bool
	Logs      string
	Artifacts []Artifact
}

// Runner is an external capability invoked with kind-specific
// parameters. Runners own their timeouts; the context is cancelled only
// on dispatcher shutdown. Runners report failure through Result.OK, not
// by panicking, but a panic is contained by the orchestrator anyway.
type Runner func(ctx context.Context, params Params) Result

// Registry maps execution kinds to runner capabilities.
// Thread-safe for concurrent registration and lookup.
type Registry struct {
	mu      sync.RWMutex
	runners map[string]Runner
}

// NewRegistry creates an empty runner registry
func NewRegistry() *Registry {
	return &Registry{runners: make(map[string]Runner)}
}

// Register adds a runner for a kind.
// Panics if a runner is already registered for that kind.
func (r *Registry) Register(kind string, runner Runner) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runners[kind]; exists {
		panic(fmt.Sprintf("runner already registered for kind: %s", kind))
	}
	r.runners[kind] = runner
}

// Get retrieves the runner for a kind, or nil if none is registered
func (r *Registry) Get(kind string) Runner {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.runners[kind]
}

// Has checks if a runner is registered for a kind
func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.runners[kind]
	return exists
}

// Kinds returns all registered kinds
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.runners))
	for kind := range r.runners {
		kinds = append(kinds, kind)
	}
	return kinds
}

// Orchestrator binds execution kinds to runner capabilities and manages
// the create → dispatch → transition sequence.
type Orchestrator struct {
	store      *Store
	dispatcher *Dispatcher
	registry   *Registry
	logger     *zap.SugaredLogger
}

// NewOrchestrator creates an orchestrator.
// Callers must register runners before dispatching their kinds.
func NewOrchestrator(store *Store, dispatcher *Dispatcher, registry *Registry, logger *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{
		store:      store,
		dispatcher: dispatcher,
		registry:   registry,
		logger:     logger.Named("orchestrator"),
	}
}

// Registry returns the runner registry for registering capabilities
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Store returns the execution record store
func (o *Orchestrator) Store() *Store {
	return o.store
}

// Start creates an execution record for kind+params and dispatches the
// run out-of-band. Returns the execution id immediately; the record is
// observable as queued before any runner work happens.
func (o *Orchestrator) Start(kind string, params Params, testCaseID string) string {
	id := o.store.Create(kind, params, testCaseID)

	o.logger.Infow("Execution queued",
		"execution_id", id,
		"kind", kind)

	o.dispatcher.Submit(kind, func(ctx context.Context) {
		o.run(ctx, id, kind, params)
	})

	return id
}

// run is the dispatched body of one execution. The deferred MarkResult
// guarantees the record reaches a terminal state even when the runner
// panics: an execution must never be left stuck in running.
func (o *Orchestrator) run(ctx context.Context, id string, kind string, params Params) {
	notes, _ := params["notes"].(string)
	o.store.MarkRunning(id, notes)

	var res Result
	done := false

	defer func() {
		if r := recover(); r != nil {
			res = Result{OK: false, Logs: fmt.Sprintf("runner panic: %v", r)}
			o.logger.Errorw("Runner panicked",
				"execution_id", id,
				"kind", kind,
				"panic", r)
		} else if !done {
			res = Result{OK: false, Logs: "runner did not produce a result"}
		}
		o.store.MarkResult(id, res.OK, res.Logs, res.Artifacts)

		o.logger.Infow("Execution finished",
			"execution_id", id,
			"kind", kind,
			"ok", res.OK)
	}()

	runner := o.registry.Get(kind)
	if runner == nil {
		res = Result{OK: false, Logs: fmt.Sprintf("unknown kind: %s", kind)}
		done = true
		return
	}

	res = runner(ctx, params)
	done = true
}

// Rerun looks up a prior execution and starts a fresh one sharing its
// kind and params verbatim. The original record is never mutated. The
// test-case back-reference carries over so reruns of a saved test stay
// attached to it. Returns ErrNotFound for an unknown id.
func (o *Orchestrator) Rerun(id string) (string, error) {
	prior, ok := o.store.Get(id)
	if !ok {
		return "", errors.NewNotFoundError("execution not found: %s", id)
	}

	newID := o.Start(prior.Kind, prior.Params, prior.TestCaseID)

	o.logger.Infow("Execution rerun",
		"prior_execution_id", id,
		"execution_id", newID,
		"kind", prior.Kind)

	return newID, nil
}
