// Package evidence validates the work-done proof a job may leave behind when
// its commit phase finds no uncommitted changes to stage.
package evidence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Method names how a node's commit phase was satisfied without a new commit.
type Method string

const (
	MethodEvidenceFile    Method = "evidence_file"
	MethodExpectsNoChange Method = "expects_no_changes"
	MethodNone            Method = "none"
)

// File is the JSON document a job writes to
// <worktree>/.orchestrator/evidence/<nodeId>.json to prove it did work even
// though no tracked file was modified.
type File struct {
	Version   int       `json:"version"`
	NodeID    string    `json:"nodeId"`
	Timestamp time.Time `json:"timestamp"`
	Summary   string    `json:"summary"`
}

// Result is the validator's verdict.
type Result struct {
	Valid    bool
	Reason   string
	Evidence *File
	Method   Method
}

// Validator reads the evidence file for one node and classifies whether the
// commit phase may consider it satisfied.
type Validator struct{}

// New returns a Validator. It has no configuration: it only reads a fixed,
// worktree-relative path.
func New() *Validator { return &Validator{} }

// path returns <worktreePath>/.orchestrator/evidence/<nodeId>.json.
func (v *Validator) path(worktreePath, nodeID string) string {
	return filepath.Join(worktreePath, ".orchestrator", "evidence", nodeID+".json")
}

// Validate checks for an evidence file; expectsNoChanges, when true, is
// itself sufficient even with no file present.
func (v *Validator) Validate(worktreePath, nodeID string, expectsNoChanges bool) Result {
	data, err := os.ReadFile(v.path(worktreePath, nodeID))
	if err != nil {
		if expectsNoChanges {
			return Result{Valid: true, Reason: "node declared expectsNoChanges", Method: MethodExpectsNoChange}
		}
		return Result{Valid: false, Reason: "no evidence file and no uncommitted changes", Method: MethodNone}
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		if expectsNoChanges {
			return Result{Valid: true, Reason: "node declared expectsNoChanges (evidence file unparseable)", Method: MethodExpectsNoChange}
		}
		return Result{Valid: false, Reason: "evidence file is not valid JSON: " + err.Error(), Method: MethodNone}
	}

	if f.Version != 1 {
		return Result{Valid: false, Reason: "unsupported evidence schema version", Method: MethodNone}
	}

	return Result{Valid: true, Reason: f.Summary, Evidence: &f, Method: MethodEvidenceFile}
}

// Write serializes and writes an evidence file for nodeId. Used by tests and
// by shell/process workloads that want to self-report without a real file
// change (agents are expected to write this themselves).
func (v *Validator) Write(worktreePath, nodeID, summary string) error {
	f := File{Version: 1, NodeID: nodeID, Timestamp: time.Now(), Summary: summary}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Join(worktreePath, ".orchestrator", "evidence")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(v.path(worktreePath, nodeID), data, 0644)
}
