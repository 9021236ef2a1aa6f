package evidence

import (
	"encoding/json"
	"os"
	"testing"
)

func TestValidateMissingFileExpectsNoChanges(t *testing.T) {
	v := New()
	result := v.Validate(t.TempDir(), "node-1", true)
	if !result.Valid {
		t.Fatal("expected expectsNoChanges to satisfy validation with no evidence file")
	}
	if result.Method != MethodExpectsNoChange {
		t.Errorf("expected method expects_no_changes, got %s", result.Method)
	}
}

func TestValidateMissingFileNoExpectation(t *testing.T) {
	v := New()
	result := v.Validate(t.TempDir(), "node-1", false)
	if result.Valid {
		t.Fatal("expected validation to fail with neither an evidence file nor expectsNoChanges")
	}
	if result.Method != MethodNone {
		t.Errorf("expected method none, got %s", result.Method)
	}
}

func TestWriteThenValidateSucceeds(t *testing.T) {
	dir := t.TempDir()
	v := New()

	if err := v.Write(dir, "node-1", "ran a script with side effects outside git"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	result := v.Validate(dir, "node-1", false)
	if !result.Valid {
		t.Fatalf("expected a written evidence file to validate, got reason: %s", result.Reason)
	}
	if result.Method != MethodEvidenceFile {
		t.Errorf("expected method evidence_file, got %s", result.Method)
	}
	if result.Evidence == nil || result.Evidence.Summary != "ran a script with side effects outside git" {
		t.Errorf("expected evidence summary to round-trip, got %+v", result.Evidence)
	}
}

func TestValidateRejectsUnsupportedSchemaVersion(t *testing.T) {
	dir := t.TempDir()
	v := New()
	if err := v.Write(dir, "node-1", "summary"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Overwrite with a future schema version.
	f := File{Version: 2, NodeID: "node-1", Summary: "summary"}
	overwrite(t, v, dir, "node-1", f)

	result := v.Validate(dir, "node-1", false)
	if result.Valid {
		t.Fatal("expected an unsupported schema version to fail validation")
	}
}

func overwrite(t *testing.T, v *Validator, dir, nodeID string, f File) {
	t.Helper()
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(v.path(dir, nodeID), data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}
