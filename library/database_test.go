package library

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func populated(t *testing.T) *Library {
	t.Helper()
	lib, clock := newManager(t)
	lib.RegisterUser("Sam", "sam@example.com", "S1", 1)
	lib.RegisterUser("Fay", "fay@example.com", "F1", 2)
	lib.AddBook("Dune", "Frank Herbert", "Science Fiction", "111")
	lib.AddBook("Emma", "Jane Austen", "Romance", "222")
	lib.AddBook("Gone", "Someone", "Drama", "333")

	require.True(t, lib.BorrowBook("S1", "333").OK)
	clock.Advance(time.Hour)
	require.True(t, lib.ReturnBook("S1", "333").OK)
	require.True(t, lib.RemoveBook("333").OK)
	require.True(t, lib.BorrowBook("F1", "222").OK)
	clock.Advance(time.Minute)
	require.True(t, lib.BorrowBook("S1", "111").OK)
	return lib
}

func TestEmptyDatabaseLoadsEmptyLibrary(t *testing.T) {
	db := tempDB(t)
	lib, err := LoadData(context.Background(), db)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assert.Empty(t, lib.Books())
	assert.Empty(t, lib.Users())
	assert.Empty(t, lib.History())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)
	lib := populated(t)

	if err := lib.SaveData(ctx, db); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadData(ctx, db)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want, got := lib.Snapshot(), loaded.Snapshot()
	assert.Equal(t, want.Books, got.Books)
	assert.Equal(t, want.Users, got.Users)
	require.Len(t, got.Records, len(want.Records))
	for i := range want.Records {
		w, g := want.Records[i], got.Records[i]
		assert.Equal(t, w.UserID, g.UserID)
		assert.Equal(t, w.ISBN, g.ISBN)
		assert.True(t, w.BorrowedAt.Equal(g.BorrowedAt), "borrowed_at %v != %v", w.BorrowedAt, g.BorrowedAt)
		if w.ReturnedAt == nil {
			assert.Nil(t, g.ReturnedAt)
		} else {
			require.NotNil(t, g.ReturnedAt)
			assert.True(t, w.ReturnedAt.Equal(*g.ReturnedAt))
		}
	}

	open, err := db.OpenLoanCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, open)
}

func TestSaveReplacesPreviousState(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)
	lib := populated(t)
	require.NoError(t, lib.SaveData(ctx, db))

	require.True(t, lib.ReturnBook("S1", "111").OK)
	require.True(t, lib.RemoveBook("111").OK)
	require.NoError(t, lib.SaveData(ctx, db))

	loaded, err := LoadData(ctx, db)
	require.NoError(t, err)
	_, ok := loaded.FindBook("111")
	assert.False(t, ok)
	assert.Len(t, loaded.Books(), 1)
	assert.Len(t, loaded.History(), 3)

	open, err := db.OpenLoanCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, open)
}

func TestReopenKeepsSchemaAndData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "lib.db")

	db, err := NewDatabase(path)
	require.NoError(t, err)
	require.NoError(t, populated(t).SaveData(ctx, db))
	require.NoError(t, db.Close())

	db, err = NewDatabase(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	lib, err := LoadData(ctx, db)
	require.NoError(t, err)
	assert.Len(t, lib.Users(), 2)
	u, _ := lib.FindUser("S1")
	assert.Equal(t, []string{"111"}, u.Borrowed)
}

func TestSaveRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)
	require.NoError(t, populated(t).SaveData(ctx, db))

	bad := Snapshot{
		Users: []User{{ID: "dup", Class: Student}, {ID: "dup", Class: Student}},
	}
	assert.Error(t, db.Save(ctx, bad))

	lib, err := LoadData(ctx, db)
	require.NoError(t, err)
	assert.Len(t, lib.Users(), 2, "failed save must leave the previous state")
}
