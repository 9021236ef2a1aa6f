package exec

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func testLogPath(dir string) func(planID, nodeID string, attempt int) string {
	return func(planID, nodeID string, attempt int) string {
		return filepath.Join(dir, planID+"-"+nodeID+".log")
	}
}

func TestRegistryBeginEndLifecycle(t *testing.T) {
	r := NewRegistry(testLogPath(t.TempDir()))
	key := ExecutionKey{PlanID: "p1", NodeID: "n1", Attempt: 1}

	exec, err := r.Begin(key)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	exec.WriteLine("hello")

	if _, ok := r.Latest("p1", "n1"); !ok {
		t.Fatal("expected Latest to find the active execution")
	}

	r.End(key)
	if _, ok := r.Latest("p1", "n1"); ok {
		t.Error("expected Latest to be gone after End")
	}
}

func TestRegistryEndDoesNotClobberNewerAttempt(t *testing.T) {
	r := NewRegistry(testLogPath(t.TempDir()))
	first := ExecutionKey{PlanID: "p1", NodeID: "n1", Attempt: 1}
	second := ExecutionKey{PlanID: "p1", NodeID: "n1", Attempt: 2}

	if _, err := r.Begin(first); err != nil {
		t.Fatalf("Begin first: %v", err)
	}
	if _, err := r.Begin(second); err != nil {
		t.Fatalf("Begin second: %v", err)
	}

	r.End(first)
	if _, ok := r.Latest("p1", "n1"); !ok {
		t.Fatal("expected the newer attempt to remain findable after the older one ends")
	}
}

func TestRegistryCancelMarksAbortedAndIsIdempotent(t *testing.T) {
	r := NewRegistry(testLogPath(t.TempDir()))
	key := ExecutionKey{PlanID: "p1", NodeID: "n1", Attempt: 1}

	exec, err := r.Begin(key)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	r.Cancel("p1", "n1")
	if !exec.IsAborted() {
		t.Fatal("expected execution to be marked aborted")
	}

	// Canceling again, and canceling an unknown node, must not panic.
	r.Cancel("p1", "n1")
	r.Cancel("p1", "unknown")
}

func TestActiveExecutionLinesReturnsFromOffset(t *testing.T) {
	r := NewRegistry(testLogPath(t.TempDir()))
	exec, err := r.Begin(ExecutionKey{PlanID: "p1", NodeID: "n1", Attempt: 1})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	exec.WriteLine("one")
	exec.WriteLine("two")
	exec.WriteLine("three")

	lines := exec.Lines(1)
	if len(lines) != 2 || lines[0] != "two" || lines[1] != "three" {
		t.Fatalf("expected lines from offset 1, got %v", lines)
	}

	if lines := exec.Lines(10); lines != nil {
		t.Errorf("expected nil for an out-of-range offset, got %v", lines)
	}
}

func TestRegistryCancelKillsTheReportedProcess(t *testing.T) {
	r := NewRegistry(testLogPath(t.TempDir()))
	key := ExecutionKey{PlanID: "p1", NodeID: "n1", Attempt: 1}

	active, err := r.Begin(key)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	done := make(chan SpawnResult, 1)
	go func() {
		done <- Run(context.Background(), SpawnOptions{
			Command: "sleep 5",
			OnStart: active.SetProcess,
		})
	}()

	// Give the child a moment to report its pid before canceling.
	time.Sleep(100 * time.Millisecond)
	r.Cancel("p1", "n1")

	select {
	case result := <-done:
		if result.ExitCode == 0 {
			t.Errorf("expected the canceled process to not exit cleanly, got %+v", result)
		}
	case <-time.After(4 * time.Second):
		t.Fatal("expected Cancel to kill the sleeping process well before its own timeout")
	}
}

func TestExecutionKeyString(t *testing.T) {
	k := ExecutionKey{PlanID: "p1", NodeID: "n1", Attempt: 3}
	if got := k.String(); got != "p1:n1:3" {
		t.Errorf("unexpected key string: %q", got)
	}
}
