package library

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// ReadManifest parses a CSV book list with the columns title, author, genre,
// isbn. A header row starting with "title" is skipped.
func ReadManifest(r io.Reader) ([]Book, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var books []Book
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return books, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "read manifest")
		}
		if row == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "title") {
			continue
		}
		b := Book{
			Title:  strings.TrimSpace(rec[0]),
			Author: strings.TrimSpace(rec[1]),
			Genre:  strings.TrimSpace(rec[2]),
			ISBN:   strings.TrimSpace(rec[3]),
		}
		if b.ISBN == "" {
			return nil, errors.Errorf("manifest row %d: isbn is empty", row)
		}
		books = append(books, b)
	}
}
