// Package entity finds catalog book identifiers in free text.
package entity

import (
	"regexp"
	"strings"

	"github.com/teslashibe/go-librarian/pkg/catalog"
)

// idPattern matches a shelf letter A, B or C followed by two or three digits.
var idPattern = regexp.MustCompile(`(?i)\b([ABC]\d{2,3})\b`)

// Lookup is the subset of *catalog.Catalog used for resolution.
type Lookup interface {
	Lookup(id string) (catalog.Book, bool)
}

// IDs returns every identifier-shaped token in text, upper-cased, in order of
// appearance. Duplicates are kept.
func IDs(text string) []string {
	matches := idPattern.FindAllStringSubmatch(text, -1)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, strings.ToUpper(m[1]))
	}
	return ids
}

// First returns the first identifier in text that exists in the catalog.
func First(text string, cat Lookup) (catalog.Book, bool) {
	for _, id := range IDs(text) {
		if b, ok := cat.Lookup(id); ok {
			return b, true
		}
	}
	return catalog.Book{}, false
}

// All returns every distinct catalog book mentioned in text, in order of first
// appearance. Unknown identifiers are dropped.
func All(text string, cat Lookup) []catalog.Book {
	seen := make(map[string]bool)
	var out []catalog.Book
	for _, id := range IDs(text) {
		if seen[id] {
			continue
		}
		seen[id] = true
		if b, ok := cat.Lookup(id); ok {
			out = append(out, b)
		}
	}
	return out
}
