package phase

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dagforge/dagforge/internal/engine"
)

// orchestratorDirs are created under .orchestrator/ in every worktree.
var orchestratorDirs = []string{"evidence", "instructions", "cli-state"}

// gitignoreEntry is appended to the worktree's .gitignore so the
// orchestration scaffolding never gets accidentally committed.
const gitignoreEntry = ".orchestrator/"

// Setup ensures the worktree has its per-plan orchestration scaffolding and
// that .gitignore excludes it.
func Setup(pc *PhaseContext) PhaseResult {
	root := filepath.Join(pc.WorktreePath, ".orchestrator")
	for _, dir := range orchestratorDirs {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			return PhaseResult{Status: engine.StepFailed, Error: "failed to create orchestrator directory: " + err.Error()}
		}
	}

	if err := ensureGitignoreEntry(pc.WorktreePath); err != nil {
		return PhaseResult{Status: engine.StepFailed, Error: "failed to update .gitignore: " + err.Error()}
	}

	return PhaseResult{Status: engine.StepSuccess}
}

func ensureGitignoreEntry(worktreePath string) error {
	path := filepath.Join(worktreePath, ".gitignore")

	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	for _, line := range strings.Split(string(existing), "\n") {
		if strings.TrimSpace(line) == gitignoreEntry {
			return nil
		}
	}

	content := string(existing)
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += gitignoreEntry + "\n"

	return os.WriteFile(path, []byte(content), 0644)
}
