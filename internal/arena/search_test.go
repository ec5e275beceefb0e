package arena

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTeams = []Team{
	{ID: "t1", Name: "Red Foxes", Tag: "RFX"},
	{ID: "t2", Name: "Blue Owls", Tag: "OWL"},
	{ID: "t3", Name: "Night Foxglove", Tag: "NFG"},
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{name: "empty text matches all", text: "", expected: []string{"t1", "t2", "t3"}},
		{name: "case insensitive name", text: "FOX", expected: []string{"t1", "t3"}},
		{name: "tag", text: "owl", expected: []string{"t2"}},
		{name: "surrounding spaces", text: "  blue ", expected: []string{"t2"}},
		{name: "no match", text: "dragons", expected: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := []string{}
			for _, team := range Search(testTeams, tt.text) {
				ids = append(ids, team.ID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestSearchPostTags(t *testing.T) {
	posts := []Post{{ID: "p1", Content: "gg wp", Tags: []string{"Finals"}}, {ID: "p2", Content: "lfg"}}

	found := Search(posts, "final")

	require.Len(t, found, 1)
	assert.Equal(t, "p1", found[0].ID)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}
	tests := []struct {
		name     string
		page     int
		pageSize int
		expected Page[int]
	}{
		{name: "first page", page: 1, pageSize: 3, expected: Page[int]{Items: []int{1, 2, 3}, Page: 1, PageSize: 3, Total: 7, TotalPages: 3}},
		{name: "last partial page", page: 3, pageSize: 3, expected: Page[int]{Items: []int{7}, Page: 3, PageSize: 3, Total: 7, TotalPages: 3}},
		{name: "out of range", page: 4, pageSize: 3, expected: Page[int]{Items: []int{}, Page: 4, PageSize: 3, Total: 7, TotalPages: 3}},
		{name: "invalid page", page: 0, pageSize: 5, expected: Page[int]{Items: []int{1, 2, 3, 4, 5}, Page: 1, PageSize: 5, Total: 7, TotalPages: 2}},
		{name: "default page size", page: 1, pageSize: 0, expected: Page[int]{Items: items, Page: 1, PageSize: 10, Total: 7, TotalPages: 1}},
		{name: "huge page", page: math.MaxInt/2 + 2, pageSize: 10, expected: Page[int]{Items: []int{}, Page: math.MaxInt/2 + 2, PageSize: 10, Total: 7, TotalPages: 1}},
		{name: "largest page", page: math.MaxInt, pageSize: 100, expected: Page[int]{Items: []int{}, Page: math.MaxInt, PageSize: 100, Total: 7, TotalPages: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.expected, Paginate(items, tt.page, tt.pageSize)); diff != "" {
				t.Errorf("unexpected page (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPaginateCapsPageSize(t *testing.T) {
	page := Paginate(make([]int, 250), 1, 1000)

	assert.Equal(t, 100, page.PageSize)
	assert.Len(t, page.Items, 100)
	assert.Equal(t, 3, page.TotalPages)
}

func TestPaginateEmpty(t *testing.T) {
	page := Paginate([]int{}, 1, 10)

	assert.Equal(t, 0, page.Total)
	assert.Equal(t, 0, page.TotalPages)
	assert.Empty(t, page.Items)
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind("Teams")
	require.NoError(t, err)
	assert.Equal(t, KindTeams, kind)

	kind, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindAll, kind)

	_, err = ParseKind("games")
	assert.Error(t, err)
}
