package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPage_CurrentPageDerivation(t *testing.T) {
	tests := []struct {
		name string
		page Page
		want int
	}{
		{
			name: "next cursor encodes page 3, so we are on 2",
			page: Page{Count: 80, Results: make([]Summary, 25), Next: "https://api.example.com/orders/?page=3"},
			want: 2,
		},
		{
			name: "no next, previous encodes page 4, so we are on 5",
			page: Page{Count: 120, Results: make([]Summary, 20), Previous: "https://api.example.com/orders/?page=4"},
			want: 5,
		},
		{
			name: "no cursors, 40 results total: last page of two",
			page: Page{Count: 40, Results: make([]Summary, 15)},
			want: 2,
		},
		{
			name: "empty listing defaults to page 1",
			page: Page{Count: 0, Results: nil},
			want: 1,
		},
		{
			name: "single page listing",
			page: Page{Count: 10, Results: make([]Summary, 10)},
			want: 1,
		},
		{
			name: "next cursor without page param falls through to default",
			page: Page{Count: 50, Results: make([]Summary, 25), Next: "https://api.example.com/orders/?cursor=abc"},
			want: 1,
		},
		{
			name: "page param recognized among other params",
			page: Page{Count: 80, Results: make([]Summary, 25), Next: "https://api.example.com/orders/?status=pending&page=2"},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.page.CurrentPage())
		})
	}
}

func TestPage_TotalPages(t *testing.T) {
	assert.Equal(t, 1, Page{Count: 0}.TotalPages())
	assert.Equal(t, 1, Page{Count: 25}.TotalPages())
	assert.Equal(t, 2, Page{Count: 26}.TotalPages())
	assert.Equal(t, 2, Page{Count: 40}.TotalPages())
	assert.Equal(t, 4, Page{Count: 100}.TotalPages())
}

func TestPage_CursorPresence(t *testing.T) {
	p := Page{Next: "https://api.example.com/orders/?page=2"}
	assert.True(t, p.HasNext())
	assert.False(t, p.HasPrevious())
}
