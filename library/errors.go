package library

import "errors"

// ErrorKind classifies an expected, recoverable failure of a library operation.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindDuplicateISBN
	KindNotFound
	KindDuplicateUser
	KindInvalidUserClass
	KindUserNotFound
	KindBookNotFound
	KindBorrowLimitReached
	KindBookUnavailable
	KindNotBorrowedByUser
	KindRecordNotFound
	KindBookStillBorrowed
)

var kindNames = map[ErrorKind]string{
	KindNone:               "None",
	KindDuplicateISBN:      "DuplicateISBN",
	KindNotFound:           "NotFound",
	KindDuplicateUser:      "DuplicateUser",
	KindInvalidUserClass:   "InvalidUserClass",
	KindUserNotFound:       "UserNotFound",
	KindBookNotFound:       "BookNotFound",
	KindBorrowLimitReached: "BorrowLimitReached",
	KindBookUnavailable:    "BookUnavailable",
	KindNotBorrowedByUser:  "NotBorrowedByUser",
	KindRecordNotFound:     "RecordNotFound",
	KindBookStillBorrowed:  "BookStillBorrowed",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Error is a domain failure carrying its kind and a message fit for display.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error of the same kind, so the Err* sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Sentinels for errors.Is comparisons.
var (
	ErrDuplicateISBN      = newError(KindDuplicateISBN, "duplicate isbn")
	ErrNotFound           = newError(KindNotFound, "book not found")
	ErrDuplicateUser      = newError(KindDuplicateUser, "duplicate user")
	ErrInvalidUserClass   = newError(KindInvalidUserClass, "invalid user class")
	ErrUserNotFound       = newError(KindUserNotFound, "user not found")
	ErrBookNotFound       = newError(KindBookNotFound, "book not found")
	ErrBorrowLimitReached = newError(KindBorrowLimitReached, "borrow limit reached")
	ErrBookUnavailable    = newError(KindBookUnavailable, "book unavailable")
	ErrNotBorrowedByUser  = newError(KindNotBorrowedByUser, "book not borrowed by user")
	ErrRecordNotFound     = newError(KindRecordNotFound, "borrowing record not found")
	ErrBookStillBorrowed  = newError(KindBookStillBorrowed, "book still borrowed")
)

// KindOf extracts the kind of a domain error, or KindNone.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNone
}

// Result is the outcome of a mutating operation: success or a failure kind,
// plus a human readable message in both cases.
type Result struct {
	OK      bool
	Kind    ErrorKind
	Message string
}

func succeeded(msg string) Result {
	return Result{OK: true, Message: msg}
}

func failed(err error) Result {
	return Result{Kind: KindOf(err), Message: err.Error()}
}

// Err returns the failure as an *Error, or nil on success.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return newError(r.Kind, r.Message)
}
