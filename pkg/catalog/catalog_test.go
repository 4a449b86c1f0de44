package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.NotZero(t, c.Len())
	assert.NotEmpty(t, c.Behavior().Persona)
	assert.NotEmpty(t, c.RandomWelcome())

	b, ok := c.Lookup("b12")
	require.True(t, ok)
	assert.Equal(t, "B12", b.ID)
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New(LibraryData{Books: []Book{{ID: "A01"}, {ID: "a01"}}})
	assert.ErrorIs(t, err, ErrDuplicateBook)

	_, err = New(LibraryData{})
	assert.ErrorIs(t, err, ErrEmptyCatalog)
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		format string
		raw    string
	}{
		{"json", `{"botName":"x","books":[{"id":"A01","title":"One","list":"L"}]}`},
		{"yaml", "bot_name: x\nbooks:\n  - {id: A01, title: One, list: L}\n"},
		{"toml", "bot_name = \"x\"\n[[books]]\nid = \"A01\"\ntitle = \"One\"\nlist = \"L\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			c, err := Parse([]byte(tt.raw), tt.format)
			require.NoError(t, err)
			assert.Equal(t, "x", c.BotName())
			b, ok := c.Lookup("A01")
			require.True(t, ok)
			assert.Equal(t, "One", b.Title)
			assert.Equal(t, "L", b.List)
		})
	}

	_, err := Parse([]byte("x"), "xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestLoadByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[books]]\nid = \"C100\"\ntitle = \"T\"\nlist = \"L\"\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	_, ok := c.Lookup("c100")
	assert.True(t, ok)
}

func TestSearch(t *testing.T) {
	c, err := New(LibraryData{Books: []Book{
		{ID: "A01", Title: "Brief History of Time"},
		{ID: "A02", Title: "History of Rome"},
		{ID: "A03", Title: "Poems"},
	}})
	require.NoError(t, err)

	assert.Len(t, c.Search("history", 0), 2)
	assert.Len(t, c.Search("history", 1), 1)
	assert.Equal(t, "A03", c.Search("a03", 0)[0].ID)
	assert.Empty(t, c.Search("  ", 0))
	assert.Len(t, c.Search("brief time", 0), 1)
}

func TestBooksJSON(t *testing.T) {
	c, err := New(LibraryData{Books: []Book{{ID: "A01", Title: "T", List: "L"}}})
	require.NoError(t, err)
	assert.Contains(t, c.BooksJSON(), `"id": "A01"`)
	assert.NotContains(t, c.BooksJSON(), "lang")
}
