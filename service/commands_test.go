package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"blogfront/app/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixturePath = "../app/repositories/testdata/blog.yaml"

// runCommand executes the CLI with args and stdin, returning stdout and the error.
func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// setupTestDB points the badger driver at a fresh directory.
func setupTestDB(t *testing.T) string {
	dbPath := filepath.Join(t.TempDir(), "badger")
	t.Setenv("BLOGFRONT_DATABASE_DRIVER", "badger")
	t.Setenv("BLOGFRONT_DATABASE_DSN", dbPath)
	return dbPath
}

func countPosts(t *testing.T, dbPath string) int {
	store, err := repositories.OpenBadgerStore(dbPath)
	require.NoError(t, err)
	defer store.Close()
	posts, err := repositories.NewQueries(store, nil).MostRecentPosts(context.Background(), 100)
	require.NoError(t, err)
	return len(posts)
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "blogfront version test\n", out)
}

func TestUnknownCommand(t *testing.T) {
	out, err := runCommand(t, "", "unknown")
	assert.Error(t, err)
	assert.Contains(t, out, `unknown command "unknown"`)
}

func TestSeedCommand(t *testing.T) {
	t.Run("badger", func(t *testing.T) {
		dbPath := setupTestDB(t)

		out, err := runCommand(t, "", "seed", fixturePath)
		require.NoError(t, err)
		assert.Contains(t, out, "Seeded 3 authors, 3 tags, 4 posts, 3 comments, 6 likes")
		assert.Equal(t, 4, countPosts(t, dbPath))
	})

	t.Run("sqlite", func(t *testing.T) {
		dsn := filepath.Join(t.TempDir(), "blog.db")
		t.Setenv("BLOGFRONT_DATABASE_DRIVER", "sqlite")
		t.Setenv("BLOGFRONT_DATABASE_DSN", dsn)

		out, err := runCommand(t, "", "seed", fixturePath)
		require.NoError(t, err)
		assert.Contains(t, out, "4 posts")
		assert.FileExists(t, dsn)
	})

	t.Run("missing fixture", func(t *testing.T) {
		setupTestDB(t)
		_, err := runCommand(t, "", "seed", "nope.yaml")
		assert.ErrorContains(t, err, "read fixture")
	})

	t.Run("needs an argument", func(t *testing.T) {
		_, err := runCommand(t, "", "seed")
		assert.Error(t, err)
	})
}

func TestBackupAndRestore(t *testing.T) {
	dbPath := setupTestDB(t)
	backupFile := filepath.Join(t.TempDir(), "backups", "blog.bak")

	t.Run("backup non-existent database", func(t *testing.T) {
		_, err := runCommand(t, "", "backup", backupFile)
		assert.ErrorContains(t, err, "no database exists to backup")
	})

	_, err := runCommand(t, "", "seed", fixturePath)
	require.NoError(t, err)

	t.Run("backup existing database", func(t *testing.T) {
		out, err := runCommand(t, "", "backup", backupFile)
		require.NoError(t, err)
		assert.Contains(t, out, "Database backed up successfully to "+backupFile)
		assert.FileExists(t, backupFile)
	})

	t.Run("restore into a fresh database", func(t *testing.T) {
		restored := filepath.Join(t.TempDir(), "restored")
		t.Setenv("BLOGFRONT_DATABASE_DSN", restored)

		out, err := runCommand(t, "", "restore", backupFile)
		require.NoError(t, err)
		assert.Contains(t, out, "Database restored successfully")
		assert.Equal(t, 4, countPosts(t, restored))
	})

	t.Run("restore non-existent backup", func(t *testing.T) {
		_, err := runCommand(t, "", "restore", "nonexistent.db")
		assert.ErrorContains(t, err, "backup file does not exist")
	})

	t.Run("restore empty backup", func(t *testing.T) {
		empty := filepath.Join(t.TempDir(), "empty.db")
		require.NoError(t, os.WriteFile(empty, nil, 0644))
		_, err := runCommand(t, "", "restore", empty)
		assert.ErrorContains(t, err, "backup file is empty")
	})

	t.Run("sql driver is rejected", func(t *testing.T) {
		t.Setenv("BLOGFRONT_DATABASE_DRIVER", "sqlite")
		t.Setenv("BLOGFRONT_DATABASE_DSN", filepath.Join(t.TempDir(), "blog.db"))
		_, err := runCommand(t, "", "restore", backupFile)
		assert.ErrorContains(t, err, "need the badger driver")
	})

	assert.Equal(t, 4, countPosts(t, dbPath))
}

func TestCleanCommand(t *testing.T) {
	dbPath := setupTestDB(t)
	_, err := runCommand(t, "", "seed", fixturePath)
	require.NoError(t, err)

	t.Run("cancelled", func(t *testing.T) {
		out, err := runCommand(t, "n\n", "clean")
		require.NoError(t, err)
		assert.Contains(t, out, "Operation cancelled")
		assert.Equal(t, 4, countPosts(t, dbPath))
	})

	t.Run("confirmed", func(t *testing.T) {
		out, err := runCommand(t, "y\n", "clean")
		require.NoError(t, err)
		assert.Contains(t, out, "Database cleaned successfully")
		assert.Equal(t, 0, countPosts(t, dbPath))
	})

	t.Run("skip prompt", func(t *testing.T) {
		out, err := runCommand(t, "", "clean", "--yes")
		require.NoError(t, err)
		assert.NotContains(t, out, "Are you sure")
	})
}

func TestInvalidConfig(t *testing.T) {
	t.Setenv("BLOGFRONT_DATABASE_DRIVER", "mysql")
	_, err := runCommand(t, "", "seed", fixturePath)
	assert.ErrorContains(t, err, "invalid config")
}
