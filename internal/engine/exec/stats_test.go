package exec

import (
	"os"
	"testing"
)

func TestSnapshotFindsCurrentProcess(t *testing.T) {
	snap, err := Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	pid := os.Getpid()
	if !snap.IsRunning(pid) {
		t.Fatalf("expected the current process (pid %d) to appear in its own snapshot", pid)
	}

	stats := snap.For(pid)
	if !stats.Running {
		t.Error("expected For to report the current process as running")
	}
	if stats.PID != pid {
		t.Errorf("expected stats.PID %d, got %d", pid, stats.PID)
	}
}

func TestSnapshotForUnknownPidReportsNotRunning(t *testing.T) {
	snap, err := Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	stats := snap.For(1 << 30)
	if stats.Running {
		t.Error("expected an implausible pid to report not running")
	}
}
