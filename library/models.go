package library

import (
	"slices"
	"time"
)

// UserClass selects the lending policy a user is registered under.
// The numeric values are the class tags accepted on the console (1, 2, 3).
type UserClass int

const (
	Student UserClass = iota + 1
	Faculty
	Guest
)

// Policy holds the per-class lending limits.
type Policy struct {
	MaxBorrowDays int `json:"max_borrow_days"`
	MaxBooks      int `json:"max_books"`
}

var policies = map[UserClass]Policy{
	Student: {MaxBorrowDays: 14, MaxBooks: 3},
	Faculty: {MaxBorrowDays: 30, MaxBooks: 10},
	Guest:   {MaxBorrowDays: 7, MaxBooks: 1},
}

// Valid reports whether c is one of Student, Faculty or Guest.
func (c UserClass) Valid() bool {
	_, ok := policies[c]
	return ok
}

func (c UserClass) Policy() Policy { return policies[c] }

func (c UserClass) String() string {
	switch c {
	case Student:
		return "Student"
	case Faculty:
		return "Faculty"
	case Guest:
		return "Guest"
	}
	return "Unknown"
}

// LoanPeriod is the time a book may stay out before it counts as overdue.
func (p Policy) LoanPeriod() time.Duration {
	return time.Duration(p.MaxBorrowDays) * 24 * time.Hour
}

// User is a registered borrower. Borrowed lists the ISBNs currently out,
// in the order they were borrowed.
type User struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Class    UserClass `json:"class"`
	Borrowed []string  `json:"borrowed"`
}

func (u User) Policy() Policy { return u.Class.Policy() }

// CanBorrow reports whether the user is below the class book limit.
func (u User) CanBorrow() bool { return len(u.Borrowed) < u.Policy().MaxBooks }

func (u User) HasBorrowed(isbn string) bool { return slices.Contains(u.Borrowed, isbn) }

func (u User) clone() User {
	u.Borrowed = slices.Clone(u.Borrowed)
	if u.Borrowed == nil {
		u.Borrowed = []string{}
	}
	return u
}

// Book is a single catalog entry; there is one copy per ISBN.
type Book struct {
	ISBN      string `json:"isbn"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Genre     string `json:"genre"`
	Available bool   `json:"available"`
}

// BorrowingRecord is one loan in the lending history. It references the user
// and the book by identifier. A nil ReturnedAt marks the loan as open.
type BorrowingRecord struct {
	UserID     string     `json:"user_id"`
	ISBN       string     `json:"isbn"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
}

func (r BorrowingRecord) Open() bool { return r.ReturnedAt == nil }

// DueAt is the moment after which the loan is overdue under policy p.
func (r BorrowingRecord) DueAt(p Policy) time.Time {
	return r.BorrowedAt.Add(p.LoanPeriod())
}

func (r BorrowingRecord) clone() BorrowingRecord {
	if r.ReturnedAt != nil {
		t := *r.ReturnedAt
		r.ReturnedAt = &t
	}
	return r
}

// OverdueLoan is an open record past its due date, resolved against the
// catalog and the directory for display.
type OverdueLoan struct {
	BorrowingRecord
	User User `json:"user"`
	Book Book `json:"book"`
	// Late is how long the loan has been overdue.
	Late time.Duration `json:"late"`
}

// Snapshot represents the complete library state for persistence.
type Snapshot struct {
	Books   []Book            `json:"books"`
	Users   []User            `json:"users"`
	Records []BorrowingRecord `json:"records"`
}
