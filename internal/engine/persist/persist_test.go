package persist

import (
	"testing"
	"time"

	"github.com/dagforge/dagforge/internal/engine"
)

func samplePlan(id string) *engine.Plan {
	now := time.Now()
	return &engine.Plan{
		ID:         id,
		Spec:       &engine.PlanSpec{Name: "sample"},
		Nodes:      map[string]*engine.Node{"n1": {ID: "n1", Kind: engine.NodeKindJob}},
		NodeStates: map[string]*engine.NodeExecutionState{"n1": engine.NewNodeExecutionState(engine.StatusRunning)},
		CreatedAt:  now,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	plan := samplePlan("plan-1")
	if err := store.Save(plan); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load("plan-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ID != plan.ID {
		t.Errorf("expected id %q, got %q", plan.ID, loaded.ID)
	}
}

func TestLoadRecoversCrashedNodes(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	plan := samplePlan("plan-2")
	if err := store.Save(plan); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load("plan-2")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	state := loaded.NodeStates["n1"]
	if state.Status != engine.StatusFailed {
		t.Errorf("expected a running node to recover to failed, got %s", state.Status)
	}
	if state.Error == "" {
		t.Errorf("expected a crash-recovery error message to be set")
	}
	if state.PID != nil {
		t.Errorf("expected pid to be cleared on crash recovery")
	}
}

func TestLoadAllSkipsCorruptedPlan(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := store.Save(samplePlan("good")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(samplePlan("bad")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Corrupt the second plan file directly.
	if err := writeCorrupt(store.planPath("bad")); err != nil {
		t.Fatalf("corrupting plan file: %v", err)
	}

	plans, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(plans) != 1 || plans[0].ID != "good" {
		t.Fatalf("expected only the uncorrupted plan to load, got %v", plans)
	}
}

func TestDeleteRemovesPlanAndIndexEntry(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	plan := samplePlan("to-delete")
	if err := store.Save(plan); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete("to-delete"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := store.Load("to-delete"); err == nil {
		t.Fatal("expected Load to fail after Delete")
	}

	entries, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, e := range entries {
		if e.ID == "to-delete" {
			t.Fatalf("expected index to no longer list the deleted plan")
		}
	}
}

func writeCorrupt(path string) error {
	return atomicWriteFile(path, []byte("{not json"), 0644)
}
