// Package console is the menu-driven front end of the library. It reads
// choices and fields line by line, calls into library.Library and prints the
// outcome; it holds no lending logic of its own.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"lms/library"
)

// Console runs the interactive menu loop.
type Console struct {
	lib      *library.Library
	sc       *bufio.Scanner
	out      io.Writer
	prompts  bool
	onChange func() error
}

type Option func(*Console)

// WithPrompts toggles menus and input prompts; results are always printed.
func WithPrompts(on bool) Option { return func(c *Console) { c.prompts = on } }

// WithChangeHook registers fn to run after every successful mutation.
func WithChangeHook(fn func() error) Option { return func(c *Console) { c.onChange = fn } }

func New(lib *library.Library, in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		lib:     lib,
		sc:      bufio.NewScanner(in),
		out:     out,
		prompts: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run shows the main menu until the user exits or input ends.
func (c *Console) Run() error {
	for {
		c.menu("\n=== Library Management ===",
			"1. Book Management",
			"2. User Management",
			"3. Borrowing Operations",
			"0. Exit")

		choice, err := c.choice(3, 0)
		if err != nil {
			return ignoreEOF(err)
		}

		switch choice {
		case 1:
			err = c.handleBookManagement()
		case 2:
			err = c.handleUserManagement()
		case 3:
			err = c.handleBorrowingOperations()
		case 0:
			c.println("Goodbye!")
			return nil
		}
		if err != nil {
			return ignoreEOF(err)
		}
	}
}

// ------------------ Book management ------------------

func (c *Console) handleBookManagement() error {
	c.menu("\n--- Book Management ---",
		"1. Add book",
		"2. Remove book",
		"3. Find book",
		"4. Search books",
		"5. List books",
		"0. Back")

	choice, err := c.choice(5, 0)
	if err != nil {
		return err
	}

	switch choice {
	case 1:
		return c.handleAddBook()
	case 2:
		isbn, err := c.field("Enter isbn: ")
		if err != nil {
			return err
		}
		c.report(c.lib.RemoveBook(isbn))
	case 3:
		isbn, err := c.field("Enter isbn: ")
		if err != nil {
			return err
		}
		book, ok := c.lib.FindBook(isbn)
		if !ok {
			c.printf("Book %s does not exist.\n", isbn)
			return nil
		}
		c.println("\nFound book:")
		c.printBook(book)
	case 4:
		query, err := c.field("Enter query: ")
		if err != nil {
			return err
		}
		books := c.lib.SearchBooks(query)
		if len(books) == 0 {
			c.println("No books found matching the query.")
			return nil
		}
		for i, b := range books {
			c.printf("\n%d) Book %s:\n", i, b.ISBN)
			c.printBook(b)
		}
	case 5:
		books := c.lib.Books()
		if len(books) == 0 {
			c.println("No books in library.")
			return nil
		}
		c.printf("%-15s %-30s %-25s %-15s %-10s\n", "ISBN", "Title", "Author", "Genre", "Available")
		c.println(strings.Repeat("-", 100))
		for _, b := range books {
			c.println(library.PrettyBook(b))
		}
	}
	return nil
}

func (c *Console) handleAddBook() error {
	title, err := c.field("Enter title: ")
	if err != nil {
		return err
	}
	author, err := c.field("Enter author: ")
	if err != nil {
		return err
	}
	genre, err := c.field("Enter genre: ")
	if err != nil {
		return err
	}
	isbn, err := c.field("Enter isbn: ")
	if err != nil {
		return err
	}

	if c.report(c.lib.AddBook(title, author, genre, isbn)) {
		book, _ := c.lib.FindBook(isbn)
		c.printBook(book)
	}
	return nil
}

func (c *Console) printBook(b library.Book) {
	c.printf("%s by %s\n", b.Title, b.Author)
	c.printf("Genre: %s\n", b.Genre)
	if !b.Available {
		c.println("Currently borrowed")
	}
}

// ------------------ User management ------------------

func (c *Console) handleUserManagement() error {
	c.menu("\n--- User Management ---",
		"1. Register User",
		"2. Find User",
		"3. List Users",
		"0. Back")

	choice, err := c.choice(3, 0)
	if err != nil {
		return err
	}

	switch choice {
	case 1:
		return c.handleAddUser()
	case 2:
		userID, err := c.field("Enter userId: ")
		if err != nil {
			return err
		}
		user, ok := c.lib.FindUser(userID)
		if !ok {
			c.printf("User %s does not exist.\n", userID)
			return nil
		}
		c.println("\nFound user:")
		c.printUser(user)
	case 3:
		users := c.lib.Users()
		if len(users) == 0 {
			c.println("No users registered.")
			return nil
		}
		c.printf("%-10s %-25s %-30s %-8s %s\n", "ID", "Name", "Email", "Class", "Borrowed")
		c.println(strings.Repeat("-", 90))
		for _, u := range users {
			c.printf("%-10s %-25s %-30s %-8s %d/%d\n", u.ID, u.Name, u.Email, u.Class, len(u.Borrowed), u.Policy().MaxBooks)
		}
	}
	return nil
}

func (c *Console) handleAddUser() error {
	name, err := c.field("Enter name: ")
	if err != nil {
		return err
	}
	email, err := c.field("Enter email: ")
	if err != nil {
		return err
	}
	c.menu("Choose a user type. User types:\n1 - Student\n2 - Faculty\n3 - Guest")
	class, err := c.choice(3, 1)
	if err != nil {
		return err
	}

	user, res := c.lib.RegisterWithGeneratedID(name, email, class)
	if c.report(res) {
		c.printUser(user)
	}
	return nil
}

func (c *Console) printUser(u library.User) {
	c.printf("User ID: %s\n", u.ID)
	c.printf("Name: %s\n", u.Name)
	c.printf("Email: %s\n", u.Email)
	c.printf("Type: %s\n", u.Class)
}

// ------------------ Borrowing operations ------------------

func (c *Console) handleBorrowingOperations() error {
	c.menu("\n--- Borrowing Operations ---",
		"1. Borrow book",
		"2. Return book",
		"3. Overdue books",
		"0. Back")

	choice, err := c.choice(3, 0)
	if err != nil {
		return err
	}

	switch choice {
	case 1, 2:
		userID, err := c.field("Enter userId: ")
		if err != nil {
			return err
		}
		isbn, err := c.field("Enter isbn: ")
		if err != nil {
			return err
		}
		if choice == 1 {
			c.report(c.lib.BorrowBook(userID, isbn))
		} else {
			c.report(c.lib.ReturnBook(userID, isbn))
		}
	case 3:
		c.printOverdue()
	}
	return nil
}

func (c *Console) printOverdue() {
	loans := c.lib.Overdue()
	if len(loans) == 0 {
		c.println("No overdue books at the moment.")
		return
	}
	for i, loan := range loans {
		c.printf("\n%d) RECORD:\n", i)
		c.println("[BOOK]")
		c.printBook(loan.Book)
		c.println("[USER]")
		c.printUser(loan.User)
		c.println("[TIME SINCE THE OVERDUE]")
		c.println(library.PrettyDuration(loan.Late))
	}
}

// ------------------ Input/output ------------------

// report prints the result message and runs the change hook on success.
func (c *Console) report(res library.Result) bool {
	c.println(res.Message)
	if res.OK && c.onChange != nil {
		if err := c.onChange(); err != nil {
			c.printf("Warning: changes were not saved: %v\n", err)
		}
	}
	return res.OK
}

func (c *Console) field(prompt string) (string, error) {
	if c.prompts {
		fmt.Fprint(c.out, prompt)
	}
	if !c.sc.Scan() {
		if err := c.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(c.sc.Text()), nil
}

// choice reads integers until one falls within [minval, maxval].
func (c *Console) choice(maxval, minval int) (int, error) {
	for {
		line, err := c.field("Choose an action (integer): ")
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(line)
		if err == nil && minval <= n && n <= maxval {
			return n, nil
		}
		c.println("Invalid choice")
	}
}

func (c *Console) menu(lines ...string) {
	if !c.prompts {
		return
	}
	for _, l := range lines {
		fmt.Fprintln(c.out, l)
	}
}

func (c *Console) println(s string) { fmt.Fprintln(c.out, s) }

func (c *Console) printf(format string, args ...any) { fmt.Fprintf(c.out, format, args...) }

func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
