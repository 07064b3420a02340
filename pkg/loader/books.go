package loader

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// LoadBooks decodes books.yaml, a list of maps keyed ":id", ":author", ":year".
// Plain "id", "author", "year" keys are accepted too; every other key lands in Extra.
func LoadBooks(r io.Reader) ([]models.BookRecord, error) {
	var raw []map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}

	books := make([]models.BookRecord, 0, len(raw))
	for i, entry := range raw {
		if entry == nil {
			return nil, fmt.Errorf("book %d: empty entry", i)
		}
		book := models.BookRecord{}
		for key, value := range entry {
			switch strings.TrimPrefix(key, ":") {
			case "id":
				book.ID = scalarText(value)
			case "author":
				book.Author = scalarText(value)
			case "year":
				book.YearRaw = value
			default:
				if book.Extra == nil {
					book.Extra = make(map[string]any)
				}
				book.Extra[key] = value
			}
		}
		books = append(books, book)
	}
	return books, nil
}

func scalarText(value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}
