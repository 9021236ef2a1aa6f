// Package runner implements the Plan Runner (Pump): the single-threaded
// cooperative control loop that owns every plan's lifecycle, dispatches
// ready nodes through the job pipeline, and persists state after every
// transition.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dagforge/dagforge/internal/agentdelegate"
	"github.com/dagforge/dagforge/internal/config"
	"github.com/dagforge/dagforge/internal/engine"
	engineexec "github.com/dagforge/dagforge/internal/engine/exec"
	"github.com/dagforge/dagforge/internal/engine/phase"
	"github.com/dagforge/dagforge/internal/engine/persist"
	"github.com/dagforge/dagforge/internal/errors"
	"github.com/dagforge/dagforge/internal/evidence"
	"github.com/dagforge/dagforge/internal/event"
	"github.com/dagforge/dagforge/internal/gitops"
	"github.com/dagforge/dagforge/internal/logging"
)

// planEntry bundles a plan with the state machine owning its transitions.
type planEntry struct {
	plan *engine.Plan
	sm   *engine.StateMachine
}

// Runner owns every in-process plan and the pump loop that advances them.
type Runner struct {
	mu    sync.Mutex
	plans map[string]*planEntry

	store     *persist.Store
	git       gitops.Ops
	delegator agentdelegate.Delegator
	evidence  *evidence.Validator
	registry  *engineexec.Registry
	bus       *event.Bus
	logger    *logging.Logger
	pipeline  phase.Pipeline

	maxParallel  int
	pumpInterval time.Duration

	mergePrefer   string
	pushOnSuccess bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// Deps bundles the Runner's collaborators, mirroring spec §9's "pass
// everything by reference, no global singletons" guidance.
type Deps struct {
	Store     *persist.Store
	Git       gitops.Ops
	Delegator agentdelegate.Delegator
	Evidence  *evidence.Validator
	Bus       *event.Bus
	Logger    *logging.Logger

	MaxParallel  int
	PumpInterval time.Duration

	// MergePrefer is the conflict-resolution side handed to the agent
	// delegator during forward/reverse integration: "ours" or "theirs".
	MergePrefer string
	// PushOnSuccess pushes the target branch after a successful reverse
	// integration merge.
	PushOnSuccess bool
}

// DepsFromEngineConfig copies the engine tunables out of a loaded
// config.EngineConfig into a Deps value. Callers still fill in the
// collaborator fields (Store, Git, Delegator, Evidence, Bus, Logger)
// themselves, since those aren't config-shaped.
func DepsFromEngineConfig(cfg *config.EngineConfig) Deps {
	return Deps{
		MaxParallel:   cfg.MaxParallel,
		PumpInterval:  cfg.PumpInterval(),
		MergePrefer:   cfg.Merge.Prefer,
		PushOnSuccess: cfg.Merge.PushOnSuccess,
	}
}

// New constructs a Runner. It does not start the pump; call Initialize then Start.
func New(deps Deps) *Runner {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	if deps.Bus == nil {
		deps.Bus = event.NewBus()
	}
	if deps.MaxParallel <= 0 {
		deps.MaxParallel = 8
	}
	if deps.PumpInterval <= 0 {
		deps.PumpInterval = time.Second
	}
	if deps.MergePrefer == "" {
		deps.MergePrefer = "theirs"
	}

	return &Runner{
		plans:         make(map[string]*planEntry),
		store:         deps.Store,
		git:           deps.Git,
		delegator:     deps.Delegator,
		evidence:      deps.Evidence,
		registry:      engineexec.NewRegistry(deps.Store.LogPath),
		bus:           deps.Bus,
		logger:        logger.WithPhase("runner"),
		pipeline:      phase.Default(),
		maxParallel:   deps.MaxParallel,
		pumpInterval:  deps.PumpInterval,
		mergePrefer:   deps.MergePrefer,
		pushOnSuccess: deps.PushOnSuccess,
		stop:          make(chan struct{}),
	}
}

// Initialize loads every persisted plan (crash recovery already applied by
// the store), instantiates a state machine for each, and registers them.
func (r *Runner) Initialize() error {
	plans, err := r.store.LoadAll()
	if err != nil {
		return fmt.Errorf("failed to load plans: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range plans {
		r.plans[p.ID] = &planEntry{plan: p, sm: engine.NewStateMachine(p, r.logger)}
	}
	return nil
}

// Start launches the pump loop on its own goroutine.
func (r *Runner) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.pumpInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				r.pumpOnce()
			}
		}
	}()
}

// Stop halts the pump loop and waits for the in-flight tick to finish.
func (r *Runner) Stop() {
	close(r.stop)
	r.wg.Wait()
}

// Enqueue builds a plan from spec, registers it, persists it, and emits
// planCreated.
func (r *Runner) Enqueue(spec *engine.PlanSpec) (*engine.Plan, error) {
	plan, err := engine.Build(spec)
	if err != nil {
		return nil, err
	}
	plan.ID = uuid.NewString()
	if plan.MaxParallel == 0 {
		plan.MaxParallel = r.maxParallel
	}
	plan.WorktreeRoot = r.store.WorktreeRoot(plan.ID)

	r.mu.Lock()
	r.plans[plan.ID] = &planEntry{plan: plan, sm: engine.NewStateMachine(plan, r.logger)}
	r.mu.Unlock()

	if err := r.store.Save(plan); err != nil {
		return nil, err
	}
	r.bus.Publish(engine.NewPlanCreatedEvent(plan))
	return plan, nil
}

// Cancel cancels every running/scheduled node of planID and persists the result.
func (r *Runner) Cancel(planID string) error {
	entry, ok := r.entry(planID)
	if !ok {
		return errors.ErrNodeNotFound
	}
	for nodeID, state := range entry.plan.NodeStates {
		if state.Status == engine.StatusRunning || state.Status == engine.StatusScheduled {
			r.registry.Cancel(planID, nodeID)
		}
	}
	entry.sm.CancelAll()
	return r.store.Save(entry.plan)
}

// Delete cancels planID, removes it from memory and persistence, and kicks
// off best-effort worktree cleanup.
func (r *Runner) Delete(planID string) error {
	entry, ok := r.entry(planID)
	if !ok {
		return errors.ErrNodeNotFound
	}
	_ = r.Cancel(planID)

	r.mu.Lock()
	delete(r.plans, planID)
	r.mu.Unlock()

	if err := r.store.Delete(planID); err != nil {
		return err
	}

	go r.cleanupAllWorktrees(entry.plan)

	r.bus.Publish(engine.NewPlanDeletedEvent(planID))
	return nil
}

// Pause flips isPaused so the pump stops dispatching new nodes for planID.
// Active nodes run to completion.
func (r *Runner) Pause(planID string) error {
	entry, ok := r.entry(planID)
	if !ok {
		return errors.ErrNodeNotFound
	}
	entry.plan.IsPaused = true
	return r.store.Save(entry.plan)
}

// Resume clears isPaused (and any spurious endedAt) so the pump resumes
// dispatching planID.
func (r *Runner) Resume(planID string) error {
	entry, ok := r.entry(planID)
	if !ok {
		return errors.ErrNodeNotFound
	}
	entry.plan.IsPaused = false
	if entry.sm.ComputePlanStatus() == engine.PlanRunning || entry.sm.ComputePlanStatus() == engine.PlanPending {
		entry.plan.EndedAt = nil
	}
	return r.store.Save(entry.plan)
}

func (r *Runner) entry(planID string) (*planEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.plans[planID]
	return e, ok
}

func (r *Runner) snapshotEntries() []*planEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*planEntry, 0, len(r.plans))
	for _, e := range r.plans {
		out = append(out, e)
	}
	return out
}

// pumpOnce is a single cooperative tick: compute the global running count,
// then give each eligible plan a chance to dispatch work. No two ticks
// overlap because dispatched executions run as detached goroutines that
// never block the tick itself. Scheduling decisions across plans fan out
// through an errgroup so one plan's selection never waits on another's; the
// shared globalRunning budget is protected by budgetMu so concurrent plans
// still see a consistent view of capacity.
func (r *Runner) pumpOnce() {
	entries := r.snapshotEntries()

	globalRunning := 0
	for _, e := range entries {
		globalRunning += runningJobCount(e.plan)
	}

	var (
		budgetMu        sync.Mutex
		anyTransitioned bool
	)

	g, _ := errgroup.WithContext(context.Background())
	for _, e := range entries {
		e := e
		g.Go(func() error {
			status := e.sm.ComputePlanStatus()
			if status != engine.PlanPending && status != engine.PlanRunning {
				return nil
			}
			if e.plan.IsPaused {
				return nil
			}

			if e.plan.StartedAt == nil {
				now := time.Now()
				e.plan.StartedAt = &now
				r.bus.Publish(engine.NewPlanStartedEvent(e.plan))
			}

			budgetMu.Lock()
			selected := engine.SelectNodes(e.plan, e.sm, globalRunning, r.maxParallel)
			for _, nodeID := range selected {
				if e.sm.Transition(nodeID, engine.StatusScheduled, nil) {
					anyTransitioned = true
					globalRunning++
					r.dispatch(e, nodeID)
				}
			}
			budgetMu.Unlock()

			r.publishStateMachineEvents(e)
			return nil
		})
	}
	// Errors are never returned by the per-plan closures above (a failing
	// dispatch transitions its own node to failed rather than aborting the
	// tick), so this only ever surfaces a future genuine scheduling fault.
	if err := g.Wait(); err != nil {
		r.logger.Warn("pump tick reported an error", "err", err)
	}

	if anyTransitioned {
		for _, e := range entries {
			r.store.Save(e.plan)
		}
	}
}

// publishStateMachineEvents drains e's internal state-machine events and
// republishes each as the corresponding externally-visible engine event,
// so a given plan transition is announced on the bus exactly once.
func (r *Runner) publishStateMachineEvents(e *planEntry) {
	for _, evt := range e.sm.DrainEvents() {
		switch evt.Type {
		case engine.EventNodeTransition:
			r.bus.Publish(engine.NewNodeTransitionEvent(e.plan.ID, evt.NodeID, evt.From, evt.To))
		case engine.EventNodeStarted:
			r.bus.Publish(engine.NewNodeStartedEvent(e.plan.ID, evt.NodeID))
		case engine.EventNodeCompleted:
			r.bus.Publish(engine.NewNodeCompletedEvent(e.plan.ID, evt.NodeID, evt.Success))
		case engine.EventPlanComplete:
			r.bus.Publish(engine.NewPlanCompletedEvent(e.plan.ID, evt.Status))
		}
	}
}

// runningJobCount counts only job-work nodes, excluding coordination nodes
// (sub-plans and work-less jobs), matching the scheduler's own accounting.
func runningJobCount(plan *engine.Plan) int {
	count := 0
	for id, s := range plan.NodeStates {
		if s.Status != engine.StatusRunning && s.Status != engine.StatusScheduled {
			continue
		}
		if n := plan.Nodes[id]; n != nil && n.HasWork() {
			count++
		}
	}
	return count
}

// dispatch runs node's execution asynchronously; it never blocks the
// calling pump tick.
func (r *Runner) dispatch(e *planEntry, nodeID string) {
	node := e.plan.Node(nodeID)
	if node == nil {
		return
	}

	if node.Kind == engine.NodeKindSubPlan {
		go r.runSubPlan(e, node)
		return
	}

	go r.runJob(e, node)
}

// cleanupAllWorktrees removes every worktree for plan, ignoring the normal
// eligibility rules, for use when the whole plan is deleted.
func (r *Runner) cleanupAllWorktrees(plan *engine.Plan) {
	for _, state := range plan.NodeStates {
		if state.WorktreePath != "" {
			_ = r.git.RemoveWorktreeSafe(plan.RepoPath, state.WorktreePath)
		}
	}
}
