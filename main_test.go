package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lms/config"
	"lms/library"
)

func execute(t *testing.T, cfg config.App, args ...string) string {
	t.Helper()
	cmd := newRootCmd(cfg)
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return buf.String()
}

func TestRestoreSearchStatusExport(t *testing.T) {
	dir := t.TempDir()
	cfg := config.App{DBPath: filepath.Join(dir, "lib.db"), LogLevel: "error"}

	snap := library.Snapshot{
		Books: []library.Book{
			{ISBN: "111", Title: "Dune", Author: "Frank Herbert", Genre: "Science Fiction", Available: true},
			{ISBN: "222", Title: "Emma", Author: "Jane Austen", Genre: "Romance", Available: true},
		},
		Users: []library.User{
			{ID: "S1", Name: "Sam", Email: "sam@example.com", Class: library.Student, Borrowed: []string{}},
		},
		Records: []library.BorrowingRecord{},
	}
	in := filepath.Join(dir, "in.json")
	f, err := os.Create(in)
	require.NoError(t, err)
	require.NoError(t, library.ExportJSON(f, snap))
	require.NoError(t, f.Close())

	out := execute(t, cfg, "restore", in)
	assert.Equal(t, "Restored 2 books, 1 users, 0 records.\n", out)

	out = execute(t, cfg, "search", "AUSTEN")
	assert.Contains(t, out, "Found 1 book(s) matching 'AUSTEN'")
	assert.Contains(t, out, "Emma")

	out = execute(t, cfg, "status")
	assert.Contains(t, out, "Books:        2")
	assert.Contains(t, out, "Open loans:   0")

	out = execute(t, cfg, "overdue")
	assert.Equal(t, "No overdue books at the moment.\n", out)

	got, err := library.ImportJSON(strings.NewReader(execute(t, cfg, "export")))
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "a very ...", truncateString("a very long title", 10))
}
