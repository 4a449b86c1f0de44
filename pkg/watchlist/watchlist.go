// Package watchlist persists the user's bookmarked books.
//
// A watchlist is ordered newest first and holds each book at most once.
// Adding a book that is already present leaves the list untouched.
package watchlist

import (
	"context"
	"time"

	"github.com/teslashibe/go-librarian/pkg/catalog"
)

// Entry is one bookmarked book.
type Entry struct {
	BookID  string    `json:"bookId"`
	Title   string    `json:"title"`
	List    string    `json:"list"`
	SavedAt time.Time `json:"savedAt"`
}

// NewEntry bookmarks b at time t.
func NewEntry(b catalog.Book, t time.Time) Entry {
	return Entry{BookID: b.ID, Title: b.Title, List: b.List, SavedAt: t}
}

// Store is a durable watchlist. Every mutating call returns the list as it
// stands afterwards.
type Store interface {
	Get(ctx context.Context) ([]Entry, error)
	Add(ctx context.Context, e Entry) ([]Entry, error)
	Remove(ctx context.Context, bookID string) ([]Entry, error)
	Clear(ctx context.Context) error
	Close() error
}

// prepend returns list with e in front, or list itself when e.BookID is
// already present.
func prepend(list []Entry, e Entry) ([]Entry, bool) {
	for _, item := range list {
		if item.BookID == e.BookID {
			return list, false
		}
	}
	out := make([]Entry, 0, len(list)+1)
	out = append(out, e)
	return append(out, list...), true
}

// without returns list minus the entry for bookID.
func without(list []Entry, bookID string) []Entry {
	out := make([]Entry, 0, len(list))
	for _, item := range list {
		if item.BookID != bookID {
			out = append(out, item)
		}
	}
	return out
}
