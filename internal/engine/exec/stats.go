package exec

import (
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats is the per-node process snapshot the UI polls.
type ProcessStats struct {
	PID       int
	Running   bool
	Children  []int
	StartedAt time.Time
}

// SnapshotQuery takes one OS-wide process listing and answers per-pid
// questions against it, so a UI polling many nodes at once pays the listing
// cost once instead of once per node.
type SnapshotQuery struct {
	processes map[int32]*process.Process
	children  map[int32][]int32
}

// Snapshot takes a single process-table listing.
func Snapshot() (*SnapshotQuery, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	q := &SnapshotQuery{
		processes: make(map[int32]*process.Process, len(procs)),
		children:  make(map[int32][]int32, len(procs)),
	}
	for _, p := range procs {
		q.processes[p.Pid] = p
		if ppid, err := p.Ppid(); err == nil {
			q.children[ppid] = append(q.children[ppid], p.Pid)
		}
	}
	return q, nil
}

// IsRunning reports whether pid is present in the snapshot.
func (q *SnapshotQuery) IsRunning(pid int) bool {
	_, ok := q.processes[int32(pid)]
	return ok
}

// Tree returns pid plus every descendant present in the snapshot.
func (q *SnapshotQuery) Tree(pid int) []int {
	tree := []int{pid}
	queue := []int32{int32(pid)}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range q.children[cur] {
			tree = append(tree, int(child))
			queue = append(queue, child)
		}
	}
	return tree
}

// For builds ProcessStats for pid from this snapshot.
func (q *SnapshotQuery) For(pid int) ProcessStats {
	stats := ProcessStats{PID: pid}
	p, ok := q.processes[int32(pid)]
	if !ok {
		return stats
	}
	stats.Running = true
	stats.Children = q.Tree(pid)[1:]
	if createdMS, err := p.CreateTime(); err == nil {
		stats.StartedAt = time.UnixMilli(createdMS)
	}
	return stats
}
