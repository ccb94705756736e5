package library

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Database stores library snapshots in SQLite. It implements Store.
type Database struct {
	db *sql.DB
}

// NewDatabase opens (or creates) the SQLite database at dbPath and applies
// schema migrations.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Enable busy_timeout and foreign keys.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Database{db: db}, nil
}

func (d *Database) Close() error { return d.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL,
            class INTEGER NOT NULL,
            position INTEGER NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS books (
            isbn TEXT PRIMARY KEY,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            genre TEXT NOT NULL,
            available BOOLEAN NOT NULL DEFAULT 1,
            position INTEGER NOT NULL
        );`,
		// isbn carries no foreign key: closed records outlive removed books.
		`CREATE TABLE IF NOT EXISTS borrowings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id TEXT NOT NULL REFERENCES users(id),
            isbn TEXT NOT NULL,
            borrowed_at DATETIME NOT NULL,
            returned_at DATETIME
        );`,
		`CREATE INDEX IF NOT EXISTS idx_borrowings_open ON borrowings(isbn) WHERE returned_at IS NULL;`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Snapshots
// ---------------------------------------------------------------------------

// Save replaces the stored state with s in one transaction.
func (d *Database) Save(ctx context.Context, s Snapshot) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin save")
	}
	defer tx.Rollback()

	for _, table := range []string{"borrowings", "books", "users"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return errors.Wrapf(err, "clear %s", table)
		}
	}

	if err := insertUsers(ctx, tx, s.Users); err != nil {
		return err
	}
	if err := insertBooks(ctx, tx, s.Books); err != nil {
		return err
	}
	if err := insertRecords(ctx, tx, s.Records); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit save")
}

func insertUsers(ctx context.Context, tx *sql.Tx, users []User) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO users(id,name,email,class,position) VALUES(?,?,?,?,?)`)
	if err != nil {
		return errors.Wrap(err, "prepare users")
	}
	defer stmt.Close()
	for i, u := range users {
		if _, err := stmt.ExecContext(ctx, u.ID, u.Name, u.Email, int(u.Class), i); err != nil {
			return errors.Wrapf(err, "insert user %s", u.ID)
		}
	}
	return nil
}

func insertBooks(ctx context.Context, tx *sql.Tx, books []Book) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO books(isbn,title,author,genre,available,position) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return errors.Wrap(err, "prepare books")
	}
	defer stmt.Close()
	for i, b := range books {
		if _, err := stmt.ExecContext(ctx, b.ISBN, b.Title, b.Author, b.Genre, b.Available, i); err != nil {
			return errors.Wrapf(err, "insert book %s", b.ISBN)
		}
	}
	return nil
}

func insertRecords(ctx context.Context, tx *sql.Tx, records []BorrowingRecord) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO borrowings(user_id,isbn,borrowed_at,returned_at) VALUES(?,?,?,?)`)
	if err != nil {
		return errors.Wrap(err, "prepare borrowings")
	}
	defer stmt.Close()
	for _, r := range records {
		var returned sql.NullTime
		if r.ReturnedAt != nil {
			returned = sql.NullTime{Time: r.ReturnedAt.UTC(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, r.UserID, r.ISBN, r.BorrowedAt.UTC(), returned); err != nil {
			return errors.Wrapf(err, "insert borrowing %s/%s", r.UserID, r.ISBN)
		}
	}
	return nil
}

// Load reads the stored state. An empty database yields an empty snapshot.
func (d *Database) Load(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	var err error
	if s.Users, err = d.loadUsers(ctx); err != nil {
		return Snapshot{}, err
	}
	if s.Books, err = d.loadBooks(ctx); err != nil {
		return Snapshot{}, err
	}
	if s.Records, err = d.loadRecords(ctx); err != nil {
		return Snapshot{}, err
	}

	// Borrowed sets follow the open records, in borrow order.
	byID := make(map[string]*User, len(s.Users))
	for i := range s.Users {
		byID[s.Users[i].ID] = &s.Users[i]
	}
	for _, r := range s.Records {
		if u, ok := byID[r.UserID]; ok && r.Open() {
			u.Borrowed = append(u.Borrowed, r.ISBN)
		}
	}
	return s, nil
}

func (d *Database) loadUsers(ctx context.Context) ([]User, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id,name,email,class FROM users ORDER BY position`)
	if err != nil {
		return nil, errors.Wrap(err, "query users")
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u := User{Borrowed: []string{}}
		var class int
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &class); err != nil {
			return nil, errors.Wrap(err, "scan user")
		}
		u.Class = UserClass(class)
		users = append(users, u)
	}
	return users, errors.Wrap(rows.Err(), "iterate users")
}

func (d *Database) loadBooks(ctx context.Context) ([]Book, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT isbn,title,author,genre,available FROM books ORDER BY position`)
	if err != nil {
		return nil, errors.Wrap(err, "query books")
	}
	defer rows.Close()

	books := []Book{}
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ISBN, &b.Title, &b.Author, &b.Genre, &b.Available); err != nil {
			return nil, errors.Wrap(err, "scan book")
		}
		books = append(books, b)
	}
	return books, errors.Wrap(rows.Err(), "iterate books")
}

func (d *Database) loadRecords(ctx context.Context) ([]BorrowingRecord, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT user_id,isbn,borrowed_at,returned_at FROM borrowings ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "query borrowings")
	}
	defer rows.Close()

	records := []BorrowingRecord{}
	for rows.Next() {
		var (
			r        BorrowingRecord
			returned sql.NullTime
		)
		if err := rows.Scan(&r.UserID, &r.ISBN, &r.BorrowedAt, &returned); err != nil {
			return nil, errors.Wrap(err, "scan borrowing")
		}
		if returned.Valid {
			t := returned.Time
			r.ReturnedAt = &t
		}
		records = append(records, r)
	}
	return records, errors.Wrap(rows.Err(), "iterate borrowings")
}

// OpenLoanCount reports how many loans are open in the stored state.
func (d *Database) OpenLoanCount(ctx context.Context) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM borrowings WHERE returned_at IS NULL`).Scan(&n)
	return n, errors.Wrap(err, "count open loans")
}
