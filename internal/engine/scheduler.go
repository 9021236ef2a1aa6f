package engine

import "sort"

// selectNodes picks, from ready, the subset to dispatch given the number of
// free slots available. Priority is descending dependent-count, then stable
// input order — "more children unlocked first."
func selectNodes(plan *Plan, ready []string, available int) []string {
	if available <= 0 || len(ready) == 0 {
		return nil
	}

	ordered := make([]string, len(ready))
	copy(ordered, ready)

	sort.SliceStable(ordered, func(i, j int) bool {
		ni, nj := plan.Nodes[ordered[i]], plan.Nodes[ordered[j]]
		return len(ni.Dependents) > len(nj.Dependents)
	})

	if available > len(ordered) {
		available = len(ordered)
	}
	return ordered[:available]
}

// SelectNodes is the stateless scheduler contract: given a plan, its state
// machine, and the global count of currently running job-work nodes across
// every plan, it returns the node IDs to dispatch next. It never mutates
// plan or stateMachine.
func SelectNodes(plan *Plan, sm *StateMachine, globalRunningCount, globalMaxParallel int) []string {
	ready := sm.GetReadyNodes()
	if len(ready) == 0 {
		return nil
	}

	currentDagRunning := 0
	for id, s := range plan.NodeStates {
		if s.Status != StatusRunning && s.Status != StatusScheduled {
			continue
		}
		if node := plan.Nodes[id]; node != nil && node.HasWork() {
			currentDagRunning++
		}
	}

	planSlots := plan.MaxParallel - currentDagRunning
	globalSlots := globalMaxParallel - globalRunningCount
	available := planSlots
	if globalSlots < available {
		available = globalSlots
	}

	return selectNodes(plan, ready, available)
}
