package library

import (
	"fmt"
	"slices"
	"time"
)

// LendingEngine owns the borrowing history and applies borrow and return
// against the catalog and the directory. The history is append-only; records
// are only ever closed, never removed.
type LendingEngine struct {
	catalog   *Catalog
	directory *Directory
	history   []BorrowingRecord
}

func NewLendingEngine(c *Catalog, d *Directory) *LendingEngine {
	return &LendingEngine{catalog: c, directory: d}
}

func (e *LendingEngine) resolve(userID, isbn string) (*User, *Book, error) {
	u := e.directory.lookup(userID)
	if u == nil {
		return nil, nil, newError(KindUserNotFound, fmt.Sprintf("User %s does not exist.", userID))
	}
	b := e.catalog.lookup(isbn)
	if b == nil {
		return nil, nil, newError(KindBookNotFound, fmt.Sprintf("Book %s does not exist.", isbn))
	}
	return u, b, nil
}

// Borrow lends the book to the user at time now. Every check runs before any
// state is touched, so a failed borrow leaves everything unchanged.
func (e *LendingEngine) Borrow(userID, isbn string, now time.Time) error {
	u, b, err := e.resolve(userID, isbn)
	if err != nil {
		return err
	}
	if !u.CanBorrow() {
		return newError(KindBorrowLimitReached, "You cannot borrow more books.")
	}
	if !b.Available {
		return newError(KindBookUnavailable, "Book is unavailable.")
	}

	b.Available = false
	u.Borrowed = append(u.Borrowed, isbn)
	e.history = append(e.history, BorrowingRecord{UserID: userID, ISBN: isbn, BorrowedAt: now})
	return nil
}

// Return closes the user's open loan of the book. The history is scanned
// newest first so a re-borrowed book closes its latest record.
func (e *LendingEngine) Return(userID, isbn string, now time.Time) error {
	u, b, err := e.resolve(userID, isbn)
	if err != nil {
		return err
	}
	if !u.HasBorrowed(isbn) {
		return newError(KindNotBorrowedByUser, "Book is not borrowed by this user.")
	}

	for i := len(e.history) - 1; i >= 0; i-- {
		r := &e.history[i]
		if r.UserID != userID || r.ISBN != isbn || !r.Open() {
			continue
		}
		returned := now
		r.ReturnedAt = &returned
		u.Borrowed = slices.DeleteFunc(u.Borrowed, func(s string) bool { return s == isbn })
		b.Available = true
		return nil
	}
	return newError(KindRecordNotFound, "Borrowing record not found (maybe already returned).")
}

// Overdue returns, in history order, the open records held longer than the
// borrower's class allows.
func (e *LendingEngine) Overdue(now time.Time) []BorrowingRecord {
	res := []BorrowingRecord{}
	for _, r := range e.history {
		if !r.Open() {
			continue
		}
		u := e.directory.lookup(r.UserID)
		if u == nil {
			continue
		}
		if now.Sub(r.BorrowedAt) > u.Policy().LoanPeriod() {
			res = append(res, r.clone())
		}
	}
	return res
}

// History returns a copy of every record, oldest first.
func (e *LendingEngine) History() []BorrowingRecord {
	res := make([]BorrowingRecord, 0, len(e.history))
	for _, r := range e.history {
		res = append(res, r.clone())
	}
	return res
}

// OpenRecords returns the open records referencing isbn.
func (e *LendingEngine) OpenRecords(isbn string) []BorrowingRecord {
	var res []BorrowingRecord
	for _, r := range e.history {
		if r.ISBN == isbn && r.Open() {
			res = append(res, r.clone())
		}
	}
	return res
}

// replay appends a historical record while rebuilding state from a snapshot.
// Open records re-apply their effects on the book and the user.
func (e *LendingEngine) replay(r BorrowingRecord) error {
	u, b, err := e.resolve(r.UserID, r.ISBN)
	if r.Open() {
		if err != nil {
			return fmt.Errorf("open record %s/%s: %w", r.UserID, r.ISBN, err)
		}
		if !b.Available {
			return fmt.Errorf("open record %s/%s: book already lent", r.UserID, r.ISBN)
		}
		if !u.CanBorrow() {
			return fmt.Errorf("open record %s/%s: user over class limit", r.UserID, r.ISBN)
		}
		b.Available = false
		u.Borrowed = append(u.Borrowed, r.ISBN)
	} else if e.directory.lookup(r.UserID) == nil {
		// Closed records may outlive their book but never their user.
		return fmt.Errorf("closed record for unknown user %s", r.UserID)
	}
	e.history = append(e.history, r.clone())
	return nil
}
