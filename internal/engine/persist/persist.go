// Package persist implements crash-safe, atomic persistence of engine Plans
// to disk, grounded on the write-then-rename primitive used by Claudio's
// session store.
package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dagforge/dagforge/internal/engine"
	"github.com/dagforge/dagforge/internal/logging"
)

// IndexEntry is one row of the plans-index.json directory listing.
type IndexEntry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists Plans under storagePath as one JSON document per plan plus
// a flat index document, using write-then-rename so a save never leaves a
// half-written file visible.
type Store struct {
	storagePath string
	logger      *logging.Logger
	mu          sync.Mutex
}

// New creates a Store rooted at storagePath, creating it and its logs/
// subdirectory if necessary.
func New(storagePath string, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if err := os.MkdirAll(filepath.Join(storagePath, "logs"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage path: %w", err)
	}
	return &Store{storagePath: storagePath, logger: logger.WithPhase("persist")}, nil
}

func (s *Store) planPath(id string) string {
	return filepath.Join(s.storagePath, fmt.Sprintf("plan-%s.json", id))
}

func (s *Store) indexPath() string {
	return filepath.Join(s.storagePath, "plans-index.json")
}

// WorktreeRoot returns the directory under which planID's node worktrees are
// created.
func (s *Store) WorktreeRoot(planID string) string {
	return filepath.Join(s.storagePath, "worktrees", planID)
}

// LogPath returns the path for one job execution's append-only log file.
func (s *Store) LogPath(planID, nodeID string, attempt int) string {
	if attempt > 0 {
		return filepath.Join(s.storagePath, "logs", fmt.Sprintf("%s-%s-%d.log", planID, nodeID, attempt))
	}
	return filepath.Join(s.storagePath, "logs", fmt.Sprintf("%s-%s.log", planID, nodeID))
}

// Save atomically writes plan's full JSON document and refreshes the index.
func (s *Store) Save(plan *engine.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}
	if err := atomicWriteFile(s.planPath(plan.ID), data, 0644); err != nil {
		return err
	}
	return s.refreshIndexLocked(plan.ID, plan.Spec.Name, plan.CreatedAt)
}

// Load reads and deserializes one plan, applying crash recovery: any node
// found with status running is normalized to failed with a distinctive
// error and its pid cleared, since the process that owned it is gone.
func (s *Store) Load(id string) (*engine.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.planPath(id))
	if err != nil {
		return nil, err
	}

	var plan engine.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		s.logger.Error("corrupted plan file, skipping", "plan", id, "err", err)
		return nil, err
	}

	recoverCrashedNodes(&plan)
	return &plan, nil
}

// recoverCrashedNodes implements the §4.4 crash-recovery rule in place.
func recoverCrashedNodes(plan *engine.Plan) {
	for _, state := range plan.NodeStates {
		if state.Status == engine.StatusRunning {
			state.Status = engine.StatusFailed
			state.Error = "crashed before restart"
			state.PID = nil
			if state.EndedAt == nil {
				now := time.Now()
				state.EndedAt = &now
			}
		}
	}
}

// LoadAll loads every plan referenced by the index. Corrupted per-plan files
// are logged and skipped rather than aborting the whole load.
func (s *Store) LoadAll() ([]*engine.Plan, error) {
	entries, err := s.readIndex()
	if err != nil {
		return nil, err
	}

	var plans []*engine.Plan
	for _, e := range entries {
		p, err := s.Load(e.ID)
		if err != nil {
			s.logger.Warn("skipping unloadable plan", "plan", e.ID, "err", err)
			continue
		}
		plans = append(plans, p)
	}
	return plans, nil
}

// Delete removes a plan's JSON document and its index entry.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.planPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete plan file: %w", err)
	}
	return s.removeFromIndexLocked(id)
}

// List returns the current index entries. A corrupted index file is treated
// as empty and will be rebuilt on next save.
func (s *Store) List() ([]IndexEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readIndex()
}

func (s *Store) readIndex() ([]IndexEntry, error) {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read index: %w", err)
	}

	var entries []IndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("corrupted plan index, treating as empty", "err", err)
		return nil, nil
	}
	return entries, nil
}

func (s *Store) refreshIndexLocked(id, name string, createdAt time.Time) error {
	entries, err := s.readIndex()
	if err != nil {
		entries = nil
	}

	found := false
	for i := range entries {
		if entries[i].ID == id {
			entries[i].Name = name
			found = true
			break
		}
	}
	if !found {
		entries = append(entries, IndexEntry{ID: id, Name: name, CreatedAt: createdAt})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	return atomicWriteFile(s.indexPath(), data, 0644)
}

func (s *Store) removeFromIndexLocked(id string) error {
	entries, err := s.readIndex()
	if err != nil {
		entries = nil
	}
	out := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			out = append(out, e)
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	return atomicWriteFile(s.indexPath(), data, 0644)
}

// atomicWriteFile writes data to a temp file in dir's directory, fsyncs it,
// then renames it into place so readers never observe a half-written file.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set temp file permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file into place: %w", err)
	}

	success = true
	return nil
}
