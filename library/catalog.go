package library

import (
	"fmt"
	"slices"
	"strings"
)

// Catalog is the book registry keyed by ISBN. It keeps insertion order for
// listing and search. Not safe for concurrent use; Library serialises access.
type Catalog struct {
	books map[string]*Book
	order []string
}

func NewCatalog() *Catalog {
	return &Catalog{books: make(map[string]*Book)}
}

// Add inserts b as an available book.
func (c *Catalog) Add(b Book) error {
	if _, ok := c.books[b.ISBN]; ok {
		return newError(KindDuplicateISBN, fmt.Sprintf("ISBN %s already exists.", b.ISBN))
	}
	b.Available = true
	c.books[b.ISBN] = &b
	c.order = append(c.order, b.ISBN)
	return nil
}

// Remove deletes the book. A book that is out on loan cannot be removed.
func (c *Catalog) Remove(isbn string) error {
	b, ok := c.books[isbn]
	if !ok {
		return newError(KindNotFound, fmt.Sprintf("ISBN %s does not exist.", isbn))
	}
	if !b.Available {
		return newError(KindBookStillBorrowed, fmt.Sprintf("Book %s is currently borrowed and cannot be removed.", isbn))
	}
	delete(c.books, isbn)
	c.order = slices.DeleteFunc(c.order, func(s string) bool { return s == isbn })
	return nil
}

func (c *Catalog) Find(isbn string) (Book, bool) {
	b, ok := c.books[isbn]
	if !ok {
		return Book{}, false
	}
	return *b, true
}

// Search returns, in catalog order, every book whose title, author, genre or
// ISBN contains query, ignoring case. An empty query matches every book.
func (c *Catalog) Search(query string) []Book {
	query = strings.ToLower(query)
	res := []Book{}
	for _, isbn := range c.order {
		b := c.books[isbn]
		if strings.Contains(strings.ToLower(b.Title), query) ||
			strings.Contains(strings.ToLower(b.Author), query) ||
			strings.Contains(strings.ToLower(b.Genre), query) ||
			strings.Contains(strings.ToLower(b.ISBN), query) {
			res = append(res, *b)
		}
	}
	return res
}

// All returns every book in catalog order.
func (c *Catalog) All() []Book {
	res := make([]Book, 0, len(c.order))
	for _, isbn := range c.order {
		res = append(res, *c.books[isbn])
	}
	return res
}

func (c *Catalog) Len() int { return len(c.order) }

func (c *Catalog) lookup(isbn string) *Book { return c.books[isbn] }
