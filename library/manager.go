package library

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// maxIDAttempts bounds retries when a generated user ID collides.
const maxIDAttempts = 3

// Library is a thin façade over the catalog, the directory and the lending
// engine, keeping CLI code simple. One mutex guards every call.
type Library struct {
	mu sync.Mutex

	catalog   *Catalog
	directory *Directory
	lending   *LendingEngine

	clock Clock
	ids   IDGenerator
	log   *slog.Logger
}

// Option configures a Library.
type Option func(*Library)

func WithClock(c Clock) Option { return func(l *Library) { l.clock = c } }

func WithLogger(log *slog.Logger) Option { return func(l *Library) { l.log = log } }

func WithIDGenerator(g IDGenerator) Option { return func(l *Library) { l.ids = g } }

// New returns an empty library.
func New(opts ...Option) *Library {
	c, d := NewCatalog(), NewDirectory()
	l := &Library{
		catalog:   c,
		directory: d,
		lending:   NewLendingEngine(c, d),
		clock:     SystemClock{},
		ids:       UUIDGenerator{},
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Restore rebuilds a library from a snapshot. Availability and borrowed sets
// are derived from the open records; a snapshot that disagrees with its own
// records is rejected.
func Restore(s Snapshot, opts ...Option) (*Library, error) {
	l := New(opts...)
	for _, b := range s.Books {
		if err := l.catalog.Add(b); err != nil {
			return nil, errors.Wrap(err, "restore books")
		}
	}
	for _, u := range s.Users {
		if _, err := l.directory.Register(u.Name, u.Email, u.ID, u.Class); err != nil {
			return nil, errors.Wrapf(err, "restore user %s", u.ID)
		}
	}
	for _, r := range s.Records {
		if err := l.lending.replay(r); err != nil {
			return nil, errors.Wrap(err, "restore history")
		}
	}

	for _, b := range s.Books {
		if got := l.catalog.lookup(b.ISBN); got.Available != b.Available {
			return nil, errors.Errorf("restore: book %s availability disagrees with history", b.ISBN)
		}
	}
	for _, u := range s.Users {
		got := l.directory.lookup(u.ID)
		if len(got.Borrowed) != len(u.Borrowed) {
			return nil, errors.Errorf("restore: user %s borrowed set disagrees with history", u.ID)
		}
		for _, isbn := range u.Borrowed {
			if !got.HasBorrowed(isbn) {
				return nil, errors.Errorf("restore: user %s borrowed set disagrees with history", u.ID)
			}
		}
	}
	return l, nil
}

// ------------------ Book helpers ------------------

func (l *Library) AddBook(title, author, genre, isbn string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.catalog.Add(Book{Title: title, Author: author, Genre: genre, ISBN: isbn})
	return l.outcome("add book", err, fmt.Sprintf("Book %s added successfully.", isbn), "isbn", isbn)
}

// RemoveBook deletes a book from the catalog. Books out on loan are refused
// with KindBookStillBorrowed; their history stays intact either way.
func (l *Library) RemoveBook(isbn string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.catalog.Remove(isbn)
	return l.outcome("remove book", err, "Book removed successfully", "isbn", isbn)
}

func (l *Library) FindBook(isbn string) (Book, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.catalog.Find(isbn)
}

func (l *Library) SearchBooks(query string) []Book {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.catalog.Search(query)
}

func (l *Library) Books() []Book {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.catalog.All()
}

// ------------------ User helpers ------------------

// RegisterUser registers a user under class tag 1 (Student), 2 (Faculty) or 3 (Guest).
func (l *Library) RegisterUser(name, email, userID string, class int) (User, Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.register(name, email, userID, class)
}

// RegisterWithGeneratedID registers a user under an ID from the configured
// generator, drawing a fresh ID when one collides.
func (l *Library) RegisterWithGeneratedID(name, email string, class int) (User, Result) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var (
		u   User
		res Result
	)
	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		u, res = l.register(name, email, l.ids.NewID(), class)
		if res.Kind != KindDuplicateUser {
			return u, res
		}
		l.log.Warn("generated user id collided", "attempt", attempt)
	}
	return u, res
}

func (l *Library) register(name, email, userID string, class int) (User, Result) {
	u, err := l.directory.Register(name, email, userID, UserClass(class))
	res := l.outcome("register user", err, fmt.Sprintf("User %s successfully registered.", userID), "user_id", userID)
	return u, res
}

func (l *Library) FindUser(userID string) (User, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.directory.Find(userID)
}

func (l *Library) Users() []User {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.directory.All()
}

// ------------------ Circulation ------------------

func (l *Library) BorrowBook(userID, isbn string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.lending.Borrow(userID, isbn, l.clock.Now())
	return l.outcome("borrow book", err, fmt.Sprintf("Book %s has successfully been borrowed.", isbn), "user_id", userID, "isbn", isbn)
}

func (l *Library) ReturnBook(userID, isbn string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.lending.Return(userID, isbn, l.clock.Now())
	return l.outcome("return book", err, fmt.Sprintf("Book %s has successfully been returned.", isbn), "user_id", userID, "isbn", isbn)
}

// Overdue lists overdue loans in history order, each resolved to its user and
// book. The clock is read once for the whole listing.
func (l *Library) Overdue() []OverdueLoan {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	records := l.lending.Overdue(now)
	res := make([]OverdueLoan, 0, len(records))
	for _, r := range records {
		u, _ := l.directory.Find(r.UserID)
		b, _ := l.catalog.Find(r.ISBN)
		res = append(res, OverdueLoan{
			BorrowingRecord: r,
			User:            u,
			Book:            b,
			Late:            now.Sub(r.DueAt(u.Policy())),
		})
	}
	return res
}

// History returns every borrowing record, oldest first.
func (l *Library) History() []BorrowingRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lending.History()
}

// ------------------ Persistence ------------------

// Store persists whole-library snapshots.
type Store interface {
	Save(ctx context.Context, s Snapshot) error
	Load(ctx context.Context) (Snapshot, error)
}

// Snapshot copies the full state out of the library.
func (l *Library) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{
		Books:   l.catalog.All(),
		Users:   l.directory.All(),
		Records: l.lending.History(),
	}
}

// SaveData writes the current state to the store.
func (l *Library) SaveData(ctx context.Context, st Store) error {
	s := l.Snapshot()
	if err := st.Save(ctx, s); err != nil {
		return errors.Wrap(err, "save library")
	}
	l.log.Debug("library saved", "books", len(s.Books), "users", len(s.Users), "records", len(s.Records))
	return nil
}

// LoadData builds a library from the store's last snapshot.
func LoadData(ctx context.Context, st Store, opts ...Option) (*Library, error) {
	s, err := st.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load library")
	}
	return Restore(s, opts...)
}

// ------------------ Utilities ------------------

func (l *Library) outcome(op string, err error, okMsg string, attrs ...any) Result {
	if err != nil {
		l.log.Info(op+" rejected", append(attrs, "kind", KindOf(err).String())...)
		return failed(err)
	}
	l.log.Debug(op, attrs...)
	return succeeded(okMsg)
}

// PrettyBook formats a book for lists.
func PrettyBook(b Book) string {
	return fmt.Sprintf("%-15s %-30s %-25s %-15s %-10t", b.ISBN, b.Title, b.Author, b.Genre, b.Available)
}

// PrettyDuration renders d rounded to the second, e.g. "2d3h4m5s".
func PrettyDuration(d time.Duration) string {
	d = d.Round(time.Second)
	days := d / (24 * time.Hour)
	rest := d % (24 * time.Hour)
	if days == 0 {
		return rest.String()
	}
	return fmt.Sprintf("%dd%s", days, rest.String())
}
