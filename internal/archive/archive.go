// Package archive keeps a git history of card exports. Each snapshot
// writes the Markdown export into a repository and commits it, so the
// evolution of the card collection stays reviewable with ordinary git
// tooling.
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const exportFile = "cards.md"

// Snapshot writes content to cards.md inside dir, initializing dir as a
// git repository if needed, and commits the change. It returns the commit
// hash, or an empty string when nothing changed since the last snapshot.
func Snapshot(dir string, content []byte, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory %s: %w", dir, err)
	}

	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainInit(dir, false)
	}
	if err != nil {
		return "", fmt.Errorf("failed to open archive repository at %s: %w", dir, err)
	}

	path := filepath.Join(dir, exportFile)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get archive worktree: %w", err)
	}
	if _, err := worktree.Add(exportFile); err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", exportFile, err)
	}

	status, err := worktree.Status()
	if err != nil {
		return "", fmt.Errorf("failed to get archive status: %w", err)
	}
	if status.IsClean() {
		return "", nil
	}

	hash, err := worktree.Commit(fmt.Sprintf("srs snapshot %s", now.UTC().Format("2006-01-02 15:04:05")), &git.CommitOptions{
		Author: &object.Signature{
			Name:  "srs",
			Email: "srs@localhost",
			When:  now,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit archive snapshot: %w", err)
	}
	return hash.String(), nil
}
