package engine

import "time"

// The engine publishes its lifecycle notifications onto the shared event
// bus so the TUI and other subscribers can react without a direct
// dependency on the runner.

type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{eventType: eventType, timestamp: time.Now()}
}

// PlanCreatedEvent is emitted when a plan is enqueued.
type PlanCreatedEvent struct {
	baseEvent
	Plan *Plan
}

func NewPlanCreatedEvent(plan *Plan) PlanCreatedEvent {
	return PlanCreatedEvent{baseEvent: newBaseEvent("engine.plan.created"), Plan: plan}
}

// PlanStartedEvent is emitted on a plan's first pump dispatch.
type PlanStartedEvent struct {
	baseEvent
	Plan *Plan
}

func NewPlanStartedEvent(plan *Plan) PlanStartedEvent {
	return PlanStartedEvent{baseEvent: newBaseEvent("engine.plan.started"), Plan: plan}
}

// PlanCompletedEvent is emitted when a plan reaches a terminal PlanStatus.
type PlanCompletedEvent struct {
	baseEvent
	PlanID string
	Status PlanStatus
}

func NewPlanCompletedEvent(planID string, status PlanStatus) PlanCompletedEvent {
	return PlanCompletedEvent{baseEvent: newBaseEvent("engine.plan.completed"), PlanID: planID, Status: status}
}

// PlanDeletedEvent is emitted when a plan is removed from the runner.
type PlanDeletedEvent struct {
	baseEvent
	PlanID string
}

func NewPlanDeletedEvent(planID string) PlanDeletedEvent {
	return PlanDeletedEvent{baseEvent: newBaseEvent("engine.plan.deleted"), PlanID: planID}
}

// NodeTransitionEvent is emitted on every accepted node status transition.
type NodeTransitionEvent struct {
	baseEvent
	PlanID string
	NodeID string
	From   NodeStatus
	To     NodeStatus
}

func NewNodeTransitionEvent(planID, nodeID string, from, to NodeStatus) NodeTransitionEvent {
	return NodeTransitionEvent{baseEvent: newBaseEvent("engine.node.transition"), PlanID: planID, NodeID: nodeID, From: from, To: to}
}

// NodeStartedEvent is emitted when a node begins its job pipeline.
type NodeStartedEvent struct {
	baseEvent
	PlanID string
	NodeID string
}

func NewNodeStartedEvent(planID, nodeID string) NodeStartedEvent {
	return NodeStartedEvent{baseEvent: newBaseEvent("engine.node.started"), PlanID: planID, NodeID: nodeID}
}

// NodeCompletedEvent is emitted when a node's pipeline finishes, successfully or not.
type NodeCompletedEvent struct {
	baseEvent
	PlanID  string
	NodeID  string
	Success bool
}

func NewNodeCompletedEvent(planID, nodeID string, success bool) NodeCompletedEvent {
	return NodeCompletedEvent{baseEvent: newBaseEvent("engine.node.completed"), PlanID: planID, NodeID: nodeID, Success: success}
}
