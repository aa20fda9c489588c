package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func TestSnapshotCreatesRepoAndCommit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archive")

	hash, err := Snapshot(dir, []byte("# SRS Cards Export\n"), testNow)
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	content, err := os.ReadFile(filepath.Join(dir, "cards.md"))
	require.NoError(t, err)
	assert.Equal(t, "# SRS Cards Export\n", string(content))

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, hash, commit.Hash.String())
	assert.Contains(t, commit.Message, "srs snapshot")
}

func TestSnapshotSkipsWhenUnchanged(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archive")
	content := []byte("unchanged\n")

	first, err := Snapshot(dir, content, testNow)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := Snapshot(dir, content, testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, second, "identical content must not produce a new commit")

	third, err := Snapshot(dir, []byte("changed\n"), testNow.Add(2*time.Hour))
	require.NoError(t, err)
	require.NotEmpty(t, third)
	assert.NotEqual(t, first, third)
}
