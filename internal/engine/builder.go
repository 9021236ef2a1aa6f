package engine

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	validatorpkg "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dagforge/dagforge/internal/errors"
)

// structValidator runs the struct-tag checks declared on PlanSpec and its
// nested specs (required fields, oneof/gte bounds). Graph-shaped validation
// (cycles, unknown producerIds, duplicate IDs) stays hand-written below,
// since go-playground/validator has no notion of cross-node edges.
var structValidator = validatorpkg.New()

// rawNode is the builder's working representation of one node before
// dependents/roots/leaves are derived.
type rawNode struct {
	node *Node
	deps []string // producerIds, resolved below
}

// color marks DFS visitation state for cycle detection.
type color int

const (
	colorUnvisited color = iota
	colorVisiting
	colorVisited
)

// Build validates a PlanSpec and returns an immutable topology with fresh
// per-node execution state. All collected issues are joined into a single
// aggregated *errors.ValidationError-wrapping error; the build either fully
// succeeds or returns no plan at all.
func Build(spec *PlanSpec) (*Plan, error) {
	if spec == nil {
		return nil, errors.NewValidationError("plan spec is nil").WithCause(errors.ErrEmptyPlan)
	}

	var issues []error

	if err := structValidator.Struct(spec); err != nil {
		if verrs, ok := err.(validatorpkg.ValidationErrors); ok {
			for _, fe := range verrs {
				issues = append(issues, errors.NewValidationError(
					fmt.Sprintf("field %s failed %q validation", fe.Namespace(), fe.Tag())).
					WithField(fe.Namespace()))
			}
		} else {
			issues = append(issues, errors.NewValidationError("plan spec validation failed").WithCause(err))
		}
	}

	producerSeen := make(map[string]bool)
	raws := make(map[string]*rawNode) // keyed by node ID
	producerIDToNodeID := make(map[string]string)

	declarationIndex := 0
	addRaw := func(producerID, name string, deps []string, n *Node) {
		if producerID == "" {
			issues = append(issues, errors.NewValidationError("job/subplan missing producerId"))
			return
		}
		if producerSeen[producerID] {
			issues = append(issues, errors.NewValidationError(fmt.Sprintf("duplicate producerId %q", producerID)).
				WithCause(errors.ErrDuplicateProducerID))
			return
		}
		producerSeen[producerID] = true

		id := uuid.NewString()
		n.ID = id
		n.ProducerID = producerID
		if n.Name == "" {
			n.Name = name
		}
		n.DeclarationIndex = declarationIndex
		declarationIndex++
		producerIDToNodeID[producerID] = id
		raws[id] = &rawNode{node: n, deps: deps}
	}

	for _, j := range spec.Jobs {
		job := j
		addRaw(job.ProducerID, job.Name, job.Dependencies, &Node{
			Kind:             NodeKindJob,
			Task:             job.Task,
			Work:             job.Work,
			Prechecks:        job.Prechecks,
			Postchecks:       job.Postchecks,
			Instructions:     job.Instructions,
			BaseBranch:       job.BaseBranch,
			Labels:           job.Labels,
			ExpectsNoChanges: job.ExpectsNoChanges,
			Name:             job.Name,
		})
	}
	for _, s := range spec.SubPlans {
		sp := s
		addRaw(sp.ProducerID, sp.Name, sp.Dependencies, &Node{
			Kind:               NodeKindSubPlan,
			SubPlanSpec:        sp.Spec,
			SubPlanMaxParallel: sp.MaxParallel,
			Name:               sp.Name,
		})
	}

	if len(raws) == 0 {
		issues = append(issues, errors.ErrEmptyPlan)
	}

	// Resolve dependency producerIds to node IDs.
	for id, raw := range raws {
		resolved := make([]string, 0, len(raw.deps))
		for _, dep := range raw.deps {
			depID, ok := producerIDToNodeID[dep]
			if !ok {
				issues = append(issues, errors.NewValidationError(
					fmt.Sprintf("job %q depends on unknown producerId %q", raw.node.ProducerID, dep)).
					WithCause(errors.ErrUnknownDependency))
				continue
			}
			resolved = append(resolved, depID)
		}
		raws[id].node.Dependencies = resolved
	}

	if len(issues) > 0 {
		return nil, aggregateValidation(issues)
	}

	// Compute dependents as the reverse edges.
	for id, raw := range raws {
		for _, depID := range raw.node.Dependencies {
			dep := raws[depID]
			dep.node.Dependents = append(dep.node.Dependents, id)
		}
	}

	// Cycle detection via 3-color DFS, reported in producerId form.
	if cyclePath := detectCycle(raws); cyclePath != nil {
		names := make([]string, len(cyclePath))
		for i, id := range cyclePath {
			names[i] = raws[id].node.ProducerID
		}
		issues = append(issues, errors.NewValidationError(
			fmt.Sprintf("dependency cycle detected: %s", strings.Join(names, " -> "))).
			WithCause(errors.ErrCycleDetected))
		return nil, aggregateValidation(issues)
	}

	var roots, leaves []string
	for id, raw := range raws {
		if len(raw.node.Dependencies) == 0 {
			roots = append(roots, id)
		}
		if len(raw.node.Dependents) == 0 {
			leaves = append(leaves, id)
		}
	}
	if len(roots) == 0 {
		issues = append(issues, errors.ErrNoRoots)
		return nil, aggregateValidation(issues)
	}

	nodes := make(map[string]*Node, len(raws))
	states := make(map[string]*NodeExecutionState, len(raws))
	for id, raw := range raws {
		nodes[id] = raw.node
		initial := StatusPending
		for _, r := range roots {
			if r == id {
				initial = StatusReady
				break
			}
		}
		states[id] = NewNodeExecutionState(initial)
	}

	planID := uuid.NewString()

	baseBranch := spec.BaseBranch
	if baseBranch == "" {
		baseBranch = "main"
	}
	maxParallel := spec.MaxParallel
	if maxParallel <= 0 {
		maxParallel = 4
	}
	cleanUp := true
	if spec.CleanUpSuccessfulWork != nil {
		cleanUp = *spec.CleanUpSuccessfulWork
	}

	worktreeRoot := filepath.Join(spec.RepoPath, ".worktrees", planID[:8])

	plan := &Plan{
		ID:                    planID,
		Spec:                  spec,
		Nodes:                 nodes,
		ProducerIDToNodeID:    producerIDToNodeID,
		Roots:                 roots,
		Leaves:                leaves,
		NodeStates:            states,
		RepoPath:              spec.RepoPath,
		BaseBranch:            baseBranch,
		TargetBranch:          spec.TargetBranch,
		WorktreeRoot:          worktreeRoot,
		CreatedAt:             time.Now(),
		CleanUpSuccessfulWork: cleanUp,
		MaxParallel:           maxParallel,
		StateVersion:          1,
	}

	return plan, nil
}

// detectCycle runs a three-color DFS over the raw node graph and returns the
// cycle path (node IDs, root-to-repeat) if one exists, or nil otherwise.
func detectCycle(raws map[string]*rawNode) []string {
	colors := make(map[string]color, len(raws))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		colors[id] = colorVisiting
		stack = append(stack, id)

		for _, dep := range raws[id].node.Dependencies {
			switch colors[dep] {
			case colorVisiting:
				// Found the cycle: trim stack to the repeated node.
				for i, s := range stack {
					if s == dep {
						cycle := append(append([]string{}, stack[i:]...), dep)
						return cycle
					}
				}
				return []string{dep, id, dep}
			case colorUnvisited:
				if cyc := visit(dep); cyc != nil {
					return cyc
				}
			}
		}

		stack = stack[:len(stack)-1]
		colors[id] = colorVisited
		return nil
	}

	// Stable iteration order isn't required for correctness of detection.
	for id := range raws {
		if colors[id] == colorUnvisited {
			if cyc := visit(id); cyc != nil {
				return cyc
			}
		}
	}
	return nil
}

// aggregateValidation joins every collected issue into one error, carrying
// every detail rather than only the first.
func aggregateValidation(issues []error) error {
	return errors.Join(issues...)
}
