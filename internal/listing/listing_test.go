package listing

import (
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unearthify/pkg/platform/validation"
)

type artist struct {
	Name    string
	Country string
	Status  string
	Works   int
}

var artistFields = Fields[artist]{
	Search: []func(artist) string{
		func(a artist) string { return a.Name },
		func(a artist) string { return a.Country },
	},
	Filters: map[string]func(artist) string{
		"status":  func(a artist) string { return a.Status },
		"country": func(a artist) string { return a.Country },
	},
	Sorts: map[string]SortField[artist]{
		"name":  ByText(func(a artist) string { return a.Name }),
		"works": ByNumber(func(a artist) float64 { return float64(a.Works) }),
	},
}

var fixture = []artist{
	{Name: "Ben Enwonwu", Country: "Nigeria", Status: "approved", Works: 120},
	{Name: "El Anatsui", Country: "Ghana", Status: "pending", Works: 9},
	{Name: "bruce onobrakpeya", Country: "Nigeria", Status: "approved", Works: 80},
	{Name: "Ablade Glover", Country: "Ghana", Status: "rejected", Works: 80},
	{Name: "Uche Okeke", Country: "Nigeria", Status: "pending", Works: 45},
}

func names(items []artist) []string {
	out := make([]string, len(items))
	for i, a := range items {
		out[i] = a.Name
	}
	return out
}

func TestFilter(t *testing.T) {
	t.Run("empty search returns everything", func(t *testing.T) {
		got := Filter(fixture, artistFields, "", nil)
		assert.Empty(t, cmp.Diff(fixture, got))
	})

	t.Run("search is a case-insensitive substring over every searchable field", func(t *testing.T) {
		got := Filter(fixture, artistFields, "GHA", nil)
		assert.Equal(t, []string{"El Anatsui", "Ablade Glover"}, names(got))

		got = Filter(fixture, artistFields, "oke", nil)
		assert.Equal(t, []string{"Uche Okeke"}, names(got))
	})

	t.Run("filters are exact and combine with search", func(t *testing.T) {
		got := Filter(fixture, artistFields, "nigeria", map[string]string{"status": "APPROVED"})
		assert.Equal(t, []string{"Ben Enwonwu", "bruce onobrakpeya"}, names(got))

		got = Filter(fixture, artistFields, "", map[string]string{"status": "approv"})
		assert.Empty(t, got, "filters do not substring-match")
	})

	t.Run("clearing a filter restores the original set", func(t *testing.T) {
		narrowed := Filter(fixture, artistFields, "", map[string]string{"country": "Ghana"})
		require.Len(t, narrowed, 2)

		restored := Filter(fixture, artistFields, "", map[string]string{"country": ""})
		assert.Empty(t, cmp.Diff(fixture, restored))
	})

	t.Run("unknown filter keys are ignored", func(t *testing.T) {
		got := Filter(fixture, artistFields, "", map[string]string{"medium": "bronze"})
		assert.Len(t, got, len(fixture))
	})
}

func TestSort(t *testing.T) {
	t.Run("strings compare case-insensitively", func(t *testing.T) {
		items := Filter(fixture, artistFields, "", nil)
		Sort(items, artistFields, "name", Asc)
		assert.Equal(t, []string{"Ablade Glover", "Ben Enwonwu", "bruce onobrakpeya", "El Anatsui", "Uche Okeke"}, names(items))
	})

	t.Run("numbers compare numerically and ties stay stable", func(t *testing.T) {
		items := Filter(fixture, artistFields, "", nil)
		Sort(items, artistFields, "works", Asc)
		assert.Equal(t, []string{"El Anatsui", "Uche Okeke", "bruce onobrakpeya", "Ablade Glover", "Ben Enwonwu"}, names(items))

		Sort(items, artistFields, "works", Desc)
		assert.Equal(t, []string{"Ben Enwonwu", "bruce onobrakpeya", "Ablade Glover", "Uche Okeke", "El Anatsui"}, names(items))
	})

	t.Run("re-applying the same sort is idempotent", func(t *testing.T) {
		once := Filter(fixture, artistFields, "", nil)
		Sort(once, artistFields, "works", Desc)
		twice := append([]artist(nil), once...)
		Sort(twice, artistFields, "works", Desc)
		assert.Empty(t, cmp.Diff(once, twice))
	})

	t.Run("unknown key keeps input order", func(t *testing.T) {
		items := Filter(fixture, artistFields, "", nil)
		Sort(items, artistFields, "birthplace", Asc)
		assert.Empty(t, cmp.Diff(fixture, items))
	})
}

func numbered(n int) []artist {
	out := make([]artist, n)
	for i := range out {
		name := fmt.Sprintf("Sculptor %02d", i+1)
		if i%2 == 1 {
			name = fmt.Sprintf("Painter %02d", i+1)
		}
		out[i] = artist{Name: name, Works: i + 1}
	}
	return out
}

func TestSortByTimeKeepsNanoseconds(t *testing.T) {
	type stamped struct {
		Name string
		At   time.Time
	}
	fields := Fields[stamped]{
		Sorts: map[string]SortField[stamped]{
			"at": ByTime(func(s stamped) time.Time { return s.At }),
		},
	}
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	items := []stamped{
		{Name: "first", At: base},
		{Name: "second", At: base.Add(time.Nanosecond)},
		{Name: "third", At: base.Add(100 * time.Nanosecond)},
	}

	Sort(items, fields, "at", Desc)
	got := make([]string, len(items))
	for i, it := range items {
		got[i] = it.Name
	}
	assert.Equal(t, []string{"third", "second", "first"}, got)
}

func TestApplyTwentyFiveItemsTwelveMatches(t *testing.T) {
	items := numbered(25)
	for i := range 12 {
		items[i*2].Country = "Benin"
	}
	q := Query{Search: "benin", SortKey: "works", SortOrder: Asc, Page: 1, PageSize: 10}

	first := Apply(items, artistFields, q)
	assert.Equal(t, 12, first.Total)
	assert.Equal(t, 2, first.TotalPages)
	require.Len(t, first.Items, 10)
	assert.Equal(t, 1, first.Items[0].Works)
	assert.Equal(t, 19, first.Items[9].Works)

	q.Page = 2
	second := Apply(items, artistFields, q)
	require.Len(t, second.Items, 2)
	assert.Equal(t, []int{21, 23}, []int{second.Items[0].Works, second.Items[1].Works})
}

func TestPaginate(t *testing.T) {
	items := numbered(25)

	cases := []struct {
		name           string
		page, pageSize int
		wantPage       int
		wantLen        int
		wantTotalPages int
	}{
		{"first page", 1, 10, 1, 10, 3},
		{"last partial page", 3, 10, 3, 5, 3},
		{"page beyond the end clamps to last", 9, 10, 3, 5, 3},
		{"page zero clamps to first", 0, 10, 1, 10, 3},
		{"default page size", 1, 0, 1, DefaultPageSize, 3},
		{"page size larger than input", 1, 100, 1, 25, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Paginate(items, tc.page, tc.pageSize)
			assert.Equal(t, tc.wantPage, p.Page)
			assert.Len(t, p.Items, tc.wantLen)
			assert.Equal(t, tc.wantTotalPages, p.TotalPages)
			assert.LessOrEqual(t, (p.Page-1)*p.PageSize+len(p.Items), p.Total)
		})
	}

	t.Run("empty input", func(t *testing.T) {
		p := Paginate([]artist{}, 4, 10)
		assert.Equal(t, 1, p.Page)
		assert.Empty(t, p.Items)
		assert.Zero(t, p.TotalPages)
	})

	t.Run("appending to a page does not clobber the source", func(t *testing.T) {
		p := Paginate(items, 1, 10)
		_ = append(p.Items, artist{Name: "intruder"})
		assert.Equal(t, "Sculptor 11", items[10].Name)
	})
}

func TestQueryState(t *testing.T) {
	var q Query

	q.ToggleSort("name")
	assert.Equal(t, Asc, q.SortOrder)
	q.ToggleSort("name")
	assert.Equal(t, Desc, q.SortOrder)
	q.ToggleSort("name")
	assert.Equal(t, Asc, q.SortOrder, "toggling twice returns to ascending")

	q.ToggleSort("name")
	q.ToggleSort("works")
	assert.Equal(t, "works", q.SortKey)
	assert.Equal(t, Asc, q.SortOrder, "a new key starts ascending")

	q.Page = 4
	q.SetSearch("okeke")
	assert.Equal(t, 1, q.Page)

	q.Page = 3
	q.SetFilter("status", "pending")
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, map[string]string{"status": "pending"}, q.Filters)

	q.Page = 2
	q.SetFilter("status", "")
	assert.Equal(t, 1, q.Page)
	assert.Empty(t, q.Filters)
}

func TestParseQuery(t *testing.T) {
	values := url.Values{
		"search":         {"lagos"},
		"sort":           {"name"},
		"order":          {"DESC"},
		"page":           {"2"},
		"page_size":      {"500"},
		"filter.country": {"Nigeria"},
		"status":         {"deleted"},
	}
	got := ParseQuery(values, Query{})

	want := Query{
		Search:    "lagos",
		SortKey:   "name",
		SortOrder: Desc,
		Page:      2,
		PageSize:  MaxPageSize,
		Filters:   map[string]string{"country": "Nigeria", "status": "deleted"},
	}
	assert.Empty(t, cmp.Diff(want, got))

	t.Run("malformed numbers fall back to defaults", func(t *testing.T) {
		got := ParseQuery(url.Values{"page": {"x"}, "page_size": {"-3"}}, Query{PageSize: 25})
		assert.Equal(t, 1, got.Page)
		assert.Equal(t, 25, got.PageSize)
	})

	t.Run("defaults are not mutated", func(t *testing.T) {
		defaults := Query{Filters: map[string]string{"status": "pending"}}
		_ = ParseQuery(url.Values{"filter.country": {"Ghana"}}, defaults)
		assert.Equal(t, map[string]string{"status": "pending"}, defaults.Filters)
	})

	t.Run("long search terms are cut", func(t *testing.T) {
		long := strings.Repeat("é", validation.MaxSearchLength+5)
		got := ParseQuery(url.Values{"search": {long}}, Query{})
		assert.Equal(t, validation.MaxSearchLength, utf8.RuneCountInString(got.Search))
	})

	t.Run("round-trips through Values", func(t *testing.T) {
		assert.Empty(t, cmp.Diff(want, ParseQuery(want.Values(), Query{})))
	})
}
