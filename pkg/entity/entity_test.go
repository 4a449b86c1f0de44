package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-librarian/pkg/catalog"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(catalog.LibraryData{Books: []catalog.Book{
		{ID: "A05", Title: "Five", List: "History"},
		{ID: "B12", Title: "Twelve", List: "Literature"},
		{ID: "C100", Title: "Hundred", List: "Hadith"},
	}})
	require.NoError(t, err)
	return c
}

func TestAllDropsUnknown(t *testing.T) {
	cat := testCatalog(t)
	got := All("الكتاب B12 متوفر، وأيضا C007", cat)
	require.Len(t, got, 1)
	assert.Equal(t, "B12", got[0].ID)
	assert.Equal(t, "Twelve", got[0].Title)
}

func TestIDs(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"see a05 and B12", []string{"A05", "B12"}},
		{"C100 then c100", []string{"C100", "C100"}},
		{"D12 is not a shelf", []string{}},
		{"A1 too short, A1234 too long", []string{}},
		{"XA05 glued", []string{}},
		{"(B12)", []string{"B12"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, IDs(tt.text))
		})
	}
}

func TestFirst(t *testing.T) {
	cat := testCatalog(t)

	b, ok := First("C999 is missing but a05 exists", cat)
	require.True(t, ok)
	assert.Equal(t, "A05", b.ID)

	_, ok = First("nothing here", cat)
	assert.False(t, ok)
}

func TestAllDeduplicates(t *testing.T) {
	cat := testCatalog(t)
	got := All("B12, b12, A05, B12", cat)
	require.Len(t, got, 2)
	assert.Equal(t, "B12", got[0].ID)
	assert.Equal(t, "A05", got[1].ID)
}
