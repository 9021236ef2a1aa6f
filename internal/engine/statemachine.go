package engine

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dagforge/dagforge/internal/logging"
)

// transitionTable enumerates every legal (from, to) pair. Terminal statuses
// have no entry and therefore no outgoing edges.
var transitionTable = map[NodeStatus]map[NodeStatus]bool{
	StatusPending: {
		StatusReady:    true,
		StatusBlocked:  true,
		StatusCanceled: true,
	},
	StatusReady: {
		StatusScheduled: true,
		StatusBlocked:   true,
		StatusCanceled:  true,
	},
	StatusScheduled: {
		StatusRunning:  true,
		StatusFailed:   true,
		StatusCanceled: true,
	},
	StatusRunning: {
		StatusSucceeded: true,
		StatusFailed:    true,
		StatusCanceled:  true,
	},
}

// EventType names an event the StateMachine emits on StateMachine.Events().
type EventType string

const (
	EventNodeTransition EventType = "nodeTransition"
	EventNodeReady      EventType = "nodeReady"
	EventNodeStarted    EventType = "nodeStarted"
	EventNodeCompleted  EventType = "nodeCompleted"
	EventPlanComplete   EventType = "planComplete"
)

// Event is a single emitted state-machine occurrence.
type Event struct {
	Type      EventType  `json:"type"`
	PlanID    string     `json:"planId"`
	NodeID    string     `json:"nodeId,omitempty"`
	From      NodeStatus `json:"from,omitempty"`
	To        NodeStatus `json:"to,omitempty"`
	Success   bool       `json:"success,omitempty"`
	Status    PlanStatus `json:"status,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// StateMachine is the single source of truth for one Plan's per-node state.
// Every exported method that mutates state must be called from at most one
// goroutine at a time per Plan; StateMachine itself serializes with a mutex
// so callers do not have to, but concurrent transitions on the SAME plan from
// multiple goroutines are allowed to interleave in any order (the mutex only
// guarantees atomicity of a single transition, not sequencing across calls).
type StateMachine struct {
	mu     sync.Mutex
	plan   *Plan
	logger *logging.Logger
	events []Event
}

// NewStateMachine wraps plan with a StateMachine. logger may be nil, in
// which case a no-op logger is used.
func NewStateMachine(plan *Plan, logger *logging.Logger) *StateMachine {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &StateMachine{plan: plan, logger: logger.WithPhase("statemachine")}
}

// Plan returns the underlying plan. Callers must not mutate it directly.
func (sm *StateMachine) Plan() *Plan {
	return sm.plan
}

// DrainEvents returns and clears all events recorded so far.
func (sm *StateMachine) DrainEvents() []Event {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	out := sm.events
	sm.events = nil
	return out
}

func (sm *StateMachine) emit(e Event) {
	e.PlanID = sm.plan.ID
	e.Timestamp = time.Now()
	sm.events = append(sm.events, e)
}

// Transition attempts to move nodeId to newStatus. It returns true if the
// transition was legal and applied, false otherwise (logged at warn level,
// no state change). updates, if non-nil, is applied to the node's state
// atomically with the status change.
func (sm *StateMachine) Transition(nodeID string, newStatus NodeStatus, updates func(*NodeExecutionState)) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.transitionLocked(nodeID, newStatus, updates)
}

func (sm *StateMachine) transitionLocked(nodeID string, newStatus NodeStatus, updates func(*NodeExecutionState)) bool {
	state, ok := sm.plan.NodeStates[nodeID]
	if !ok {
		sm.logger.Warn("transition on unknown node", "node", nodeID)
		return false
	}

	allowed := transitionTable[state.Status]
	if !allowed[newStatus] {
		sm.logger.Warn("rejected invalid transition", "node", nodeID, "from", state.Status, "to", newStatus)
		return false
	}

	from := state.Status
	now := time.Now()

	state.Status = newStatus
	if updates != nil {
		updates(state)
	}

	switch newStatus {
	case StatusScheduled:
		if state.ScheduledAt == nil {
			state.ScheduledAt = &now
		}
	case StatusRunning:
		if state.StartedAt == nil {
			state.StartedAt = &now
		}
	}
	if newStatus.IsTerminal() && state.EndedAt == nil {
		state.EndedAt = &now
	}

	state.Version++
	sm.plan.StateVersion++

	sm.emit(Event{Type: EventNodeTransition, NodeID: nodeID, From: from, To: newStatus})
	if newStatus == StatusRunning {
		sm.emit(Event{Type: EventNodeStarted, NodeID: nodeID})
	}

	switch newStatus {
	case StatusSucceeded:
		sm.onSucceeded(nodeID)
	case StatusFailed:
		sm.onFailed(nodeID)
	}

	if newStatus == StatusSucceeded || newStatus == StatusFailed || newStatus == StatusCanceled {
		sm.emit(Event{Type: EventNodeCompleted, NodeID: nodeID, Success: newStatus == StatusSucceeded})
	}

	if newStatus.IsTerminal() {
		status := sm.computePlanStatusLocked()
		if status != PlanPending && status != PlanRunning {
			sm.emit(Event{Type: EventPlanComplete, Status: status})
		}
	}

	return true
}

// onSucceeded propagates readiness to dependents whose every dependency has
// now succeeded.
func (sm *StateMachine) onSucceeded(nodeID string) {
	node := sm.plan.Nodes[nodeID]
	if node == nil {
		return
	}
	for _, depID := range node.Dependents {
		dep := sm.plan.NodeStates[depID]
		if dep == nil || dep.Status != StatusPending {
			continue
		}
		if sm.areDependenciesMetLocked(depID) {
			sm.transitionLocked(depID, StatusReady, nil)
			sm.emit(Event{Type: EventNodeReady, NodeID: depID})
		}
	}
}

// onFailed breadth-first walks dependents, blocking any non-terminal node
// exactly once.
func (sm *StateMachine) onFailed(nodeID string) {
	node := sm.plan.Nodes[nodeID]
	if node == nil {
		return
	}
	visited := make(map[string]bool)
	queue := append([]string{}, node.Dependents...)
	failedName := node.Name

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		state := sm.plan.NodeStates[id]
		if state == nil || state.Status.IsTerminal() {
			continue
		}

		msg := fmt.Sprintf("Blocked: dependency '%s' failed", failedName)
		sm.transitionLocked(id, StatusBlocked, func(s *NodeExecutionState) {
			s.Error = msg
		})

		if n := sm.plan.Nodes[id]; n != nil {
			queue = append(queue, n.Dependents...)
		}
	}
}

// areDependenciesMetLocked reports whether every dependency of nodeId has
// succeeded.
func (sm *StateMachine) areDependenciesMetLocked(nodeID string) bool {
	node := sm.plan.Nodes[nodeID]
	if node == nil {
		return false
	}
	for _, depID := range node.Dependencies {
		dep := sm.plan.NodeStates[depID]
		if dep == nil || dep.Status != StatusSucceeded {
			return false
		}
	}
	return true
}

// AreDependenciesMet is the exported, locked form of areDependenciesMetLocked.
func (sm *StateMachine) AreDependenciesMet(nodeID string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.areDependenciesMetLocked(nodeID)
}

// HasDependencyFailed reports whether any (transitive) dependency of nodeId
// is failed or blocked.
func (sm *StateMachine) HasDependencyFailed(nodeID string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	visited := make(map[string]bool)
	var walk func(id string) bool
	walk = func(id string) bool {
		if visited[id] {
			return false
		}
		visited[id] = true
		node := sm.plan.Nodes[id]
		if node == nil {
			return false
		}
		for _, depID := range node.Dependencies {
			state := sm.plan.NodeStates[depID]
			if state != nil && (state.Status == StatusFailed || state.Status == StatusBlocked) {
				return true
			}
			if walk(depID) {
				return true
			}
		}
		return false
	}
	return walk(nodeID)
}

// NodeStatusOf returns the current status of nodeId.
func (sm *StateMachine) NodeStatusOf(nodeID string) (NodeStatus, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	s, ok := sm.plan.NodeStates[nodeID]
	if !ok {
		return "", false
	}
	return s.Status, true
}

// NodeState returns a pointer to the live state for nodeId. Callers outside
// this package should treat it as read-only except via Transition.
func (sm *StateMachine) NodeState(nodeID string) *NodeExecutionState {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.plan.NodeStates[nodeID]
}

// GetReadyNodes returns every node currently in StatusReady, ordered by
// declaration index so the result is deterministic across runs regardless
// of the underlying map's iteration order.
func (sm *StateMachine) GetReadyNodes() []string {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	var ready []string
	for id, s := range sm.plan.NodeStates {
		if s.Status == StatusReady {
			ready = append(ready, id)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		return sm.plan.Nodes[ready[i]].DeclarationIndex < sm.plan.Nodes[ready[j]].DeclarationIndex
	})
	return ready
}

// GetStatusCounts returns the number of nodes currently in each status.
func (sm *StateMachine) GetStatusCounts() map[NodeStatus]int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	counts := make(map[NodeStatus]int)
	for _, s := range sm.plan.NodeStates {
		counts[s.Status]++
	}
	return counts
}

// GetBaseCommitsForNode returns the ordered, non-empty CompletedCommit values
// of nodeId's dependencies. The first is the worktree branch point; the rest
// are forward-integrated.
func (sm *StateMachine) GetBaseCommitsForNode(nodeID string) []string {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	node := sm.plan.Nodes[nodeID]
	if node == nil {
		return nil
	}
	var commits []string
	for _, depID := range node.Dependencies {
		if s := sm.plan.NodeStates[depID]; s != nil && s.CompletedCommit != "" {
			commits = append(commits, s.CompletedCommit)
		}
	}
	return commits
}

// CancelAll transitions every non-terminal node to canceled. Idempotent: a
// second call finds nothing to cancel and is a no-op.
func (sm *StateMachine) CancelAll() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for id, s := range sm.plan.NodeStates {
		if !s.Status.IsTerminal() {
			sm.transitionLocked(id, StatusCanceled, nil)
		}
	}
}

// ComputePlanStatus derives the whole-plan status from the current multiset
// of node statuses.
func (sm *StateMachine) ComputePlanStatus() PlanStatus {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.computePlanStatusLocked()
}

func (sm *StateMachine) computePlanStatusLocked() PlanStatus {
	counts := make(map[NodeStatus]int)
	for _, s := range sm.plan.NodeStates {
		counts[s.Status]++
	}
	total := len(sm.plan.NodeStates)

	if counts[StatusRunning] > 0 || counts[StatusScheduled] > 0 {
		return PlanRunning
	}

	nonTerminalOpen := counts[StatusReady] + counts[StatusPending]
	if nonTerminalOpen > 0 {
		if sm.plan.StartedAt != nil {
			return PlanRunning
		}
		return PlanPending
	}

	if sm.plan.IsPaused {
		nonTerminal := 0
		for _, s := range sm.plan.NodeStates {
			if !s.Status.IsTerminal() {
				nonTerminal++
			}
		}
		if nonTerminal > 0 {
			return PlanPaused
		}
	}

	if counts[StatusCanceled] > 0 {
		return PlanCanceled
	}
	if counts[StatusFailed] > 0 && counts[StatusSucceeded] > 0 {
		return PlanPartial
	}
	if counts[StatusFailed] > 0 || counts[StatusBlocked] == total {
		return PlanFailed
	}
	if counts[StatusSucceeded] > 0 {
		return PlanSucceeded
	}
	return PlanPending
}
