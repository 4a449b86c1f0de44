// Package catalog holds the read-only library dataset: books, the assistant's
// persona and its canned messages.
//
// A Catalog is built once at startup and never mutated, so it is safe for
// concurrent use without locking.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed data/library.yaml
var defaultData []byte

// Errors returned by the loaders.
var (
	ErrEmptyCatalog  = errors.New("catalog: no books")
	ErrDuplicateBook = errors.New("catalog: duplicate book id")
	ErrUnknownFormat = errors.New("catalog: unknown file format")
)

// Catalog is an immutable, indexed view over LibraryData.
type Catalog struct {
	data  LibraryData
	byID  map[string]int
	books []Book
}

// New indexes data. Book IDs are normalized to upper case and must be unique.
func New(data LibraryData) (*Catalog, error) {
	if len(data.Books) == 0 {
		return nil, ErrEmptyCatalog
	}
	c := &Catalog{
		data:  data,
		byID:  make(map[string]int, len(data.Books)),
		books: make([]Book, len(data.Books)),
	}
	for i, b := range data.Books {
		b.ID = strings.ToUpper(strings.TrimSpace(b.ID))
		if _, dup := c.byID[b.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBook, b.ID)
		}
		c.byID[b.ID] = i
		c.books[i] = b
	}
	c.data.Books = c.books
	return c, nil
}

// Default returns the catalog built from the embedded dataset.
func Default() (*Catalog, error) {
	return Parse(defaultData, "yaml")
}

// Load reads a catalog file, picking the decoder from its extension
// (.yaml, .yml, .toml, .json).
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(raw, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
}

// Parse decodes raw catalog data in the given format.
func Parse(raw []byte, format string) (*Catalog, error) {
	var data LibraryData
	var err error
	switch format {
	case "yaml", "yml":
		err = yaml.Unmarshal(raw, &data)
	case "toml":
		_, err = toml.NewDecoder(bytes.NewReader(raw)).Decode(&data)
	case "json":
		err = json.Unmarshal(raw, &data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: decode %s: %w", format, err)
	}
	return New(data)
}

// Books returns all books in dataset order. The slice must not be modified.
func (c *Catalog) Books() []Book {
	return c.books
}

// Len returns the number of books.
func (c *Catalog) Len() int {
	return len(c.books)
}

// Lookup finds a book by ID, case-insensitively.
func (c *Catalog) Lookup(id string) (Book, bool) {
	i, ok := c.byID[strings.ToUpper(strings.TrimSpace(id))]
	if !ok {
		return Book{}, false
	}
	return c.books[i], true
}

// Search returns books whose ID equals query or whose title contains every
// word of query. At most limit results are returned; limit <= 0 means no limit.
func (c *Catalog) Search(query string, limit int) []Book {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	if b, ok := c.Lookup(query); ok {
		return []Book{b}
	}

	words := strings.Fields(strings.ToLower(query))
	var out []Book
	for _, b := range c.books {
		title := strings.ToLower(b.Title)
		match := true
		for _, w := range words {
			if !strings.Contains(title, w) {
				match = false
				break
			}
		}
		if match {
			out = append(out, b)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}

// BotName returns the assistant's display name.
func (c *Catalog) BotName() string {
	return c.data.BotName
}

// Behavior returns the persona descriptors.
func (c *Catalog) Behavior() Behavior {
	return c.data.Behavior
}

// Templates returns the canned response strings.
func (c *Catalog) Templates() Templates {
	return c.data.Templates
}

// WelcomeMessages returns all welcome messages.
func (c *Catalog) WelcomeMessages() []string {
	return c.data.WelcomeMessages
}

// RandomWelcome picks one welcome message, or "" if there are none.
func (c *Catalog) RandomWelcome() string {
	msgs := c.data.WelcomeMessages
	if len(msgs) == 0 {
		return ""
	}
	return msgs[rand.IntN(len(msgs))]
}

// BooksJSON renders the book list as indented JSON for prompt embedding.
func (c *Catalog) BooksJSON() string {
	b, err := json.MarshalIndent(c.books, "", "  ")
	if err != nil {
		// Book has only string fields; Marshal cannot fail.
		return "[]"
	}
	return string(b)
}
