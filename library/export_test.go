package library

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportImportJSON(t *testing.T) {
	lib := populated(t)
	snap := lib.Snapshot()

	var buf bytes.Buffer
	require.NoError(t, ExportJSON(&buf, snap))
	assert.Contains(t, buf.String(), `"isbn": "111"`)
	assert.NotContains(t, buf.String(), `"max_books"`, "class policy is derived, not exported")

	got, err := ImportJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	restored, err := Restore(got)
	require.NoError(t, err)
	// The fixture lends in March 2025 on a manual clock; on the system clock
	// both open loans are long overdue.
	assert.Len(t, restored.Overdue(), 2)
}

func TestImportJSONRejectsGarbage(t *testing.T) {
	_, err := ImportJSON(strings.NewReader("{not json"))
	assert.Error(t, err)
}

func TestReadManifest(t *testing.T) {
	in := `title,author,genre,isbn
# comment lines are ignored
Dune, Frank Herbert, Science Fiction, 111
"Emma, a novel",Jane Austen,Romance,222
`
	books, err := ReadManifest(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []Book{
		{Title: "Dune", Author: "Frank Herbert", Genre: "Science Fiction", ISBN: "111"},
		{Title: "Emma, a novel", Author: "Jane Austen", Genre: "Romance", ISBN: "222"},
	}, books)
}

func TestReadManifestErrors(t *testing.T) {
	_, err := ReadManifest(strings.NewReader("Dune,Frank Herbert,Science Fiction\n"))
	assert.Error(t, err, "missing column")

	_, err = ReadManifest(strings.NewReader("Dune,Frank Herbert,Science Fiction, \n"))
	assert.Error(t, err, "empty isbn")
}
