// Package listing implements the list pipeline shared by every catalog
// screen and endpoint: filter, then stable sort, then paginate.
package listing

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

const DefaultPageSize = 10

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// SortField compares by Time, then Number, then lower-cased Text, using the
// first accessor that is set.
type SortField[T any] struct {
	Text   func(T) string
	Number func(T) float64
	Time   func(T) time.Time
}

// ByText sorts case-insensitively on a string accessor.
func ByText[T any](fn func(T) string) SortField[T] {
	return SortField[T]{Text: fn}
}

// ByNumber sorts numerically.
func ByNumber[T any](fn func(T) float64) SortField[T] {
	return SortField[T]{Number: fn}
}

// ByTime sorts chronologically at full nanosecond precision.
func ByTime[T any](fn func(T) time.Time) SortField[T] {
	return SortField[T]{Time: fn}
}

// Fields parameterizes the pipeline for one record type.
type Fields[T any] struct {
	// Search accessors are matched by case-insensitive substring.
	Search []func(T) string
	// Filters are matched exactly (case-insensitive) against Query.Filters.
	Filters map[string]func(T) string
	Sorts   map[string]SortField[T]
}

// Page is one slice of a filtered, sorted collection.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Apply runs filter, sort and paginate. items is not modified.
func Apply[T any](items []T, f Fields[T], q Query) Page[T] {
	filtered := Filter(items, f, q.Search, q.Filters)
	Sort(filtered, f, q.SortKey, q.SortOrder)
	return Paginate(filtered, q.Page, q.PageSize)
}

// Filter returns the items whose searchable fields contain search and whose
// filter fields equal every non-empty value in filters. An empty search and
// no filters return a copy of items. Unknown filter keys are ignored.
func Filter[T any](items []T, f Fields[T], search string, filters map[string]string) []T {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]T, 0, len(items))
	for _, item := range items {
		if needle != "" && !matchesSearch(item, f.Search, needle) {
			continue
		}
		if !matchesFilters(item, f.Filters, filters) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matchesSearch[T any](item T, fields []func(T) string, needle string) bool {
	for _, get := range fields {
		if strings.Contains(strings.ToLower(get(item)), needle) {
			return true
		}
	}
	return false
}

func matchesFilters[T any](item T, accessors map[string]func(T) string, filters map[string]string) bool {
	for key, want := range filters {
		if want == "" {
			continue
		}
		get, ok := accessors[key]
		if !ok {
			continue
		}
		if !strings.EqualFold(get(item), want) {
			return false
		}
	}
	return true
}

// Sort orders items in place by key. Ties keep their input order. An unknown
// or empty key leaves items untouched.
func Sort[T any](items []T, f Fields[T], key string, order SortOrder) {
	field, ok := f.Sorts[key]
	if !ok {
		return
	}
	compare := func(a, b T) int {
		if field.Time != nil {
			return field.Time(a).Compare(field.Time(b))
		}
		if field.Number != nil {
			return cmp.Compare(field.Number(a), field.Number(b))
		}
		return strings.Compare(strings.ToLower(field.Text(a)), strings.ToLower(field.Text(b)))
	}
	if order == Desc {
		slices.SortStableFunc(items, func(a, b T) int { return compare(b, a) })
		return
	}
	slices.SortStableFunc(items, compare)
}

// Paginate returns the 1-indexed page of items. page is clamped into
// [1, TotalPages] and pageSize <= 0 means DefaultPageSize.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	total := len(items)
	totalPages := (total + pageSize - 1) / pageSize
	page = max(1, min(page, totalPages))

	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)
	return Page[T]{
		Items:      items[start:end:end],
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}
