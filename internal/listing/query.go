package listing

import (
	"maps"
	"net/url"
	"strconv"
	"strings"

	"unearthify/pkg/platform/validation"
)

const MaxPageSize = 100

// Query is the per-screen list state. It is never persisted.
type Query struct {
	Search    string            `json:"search,omitempty"`
	Filters   map[string]string `json:"filters,omitempty"`
	SortKey   string            `json:"sort,omitempty"`
	SortOrder SortOrder         `json:"order,omitempty"`
	Page      int               `json:"page"`
	PageSize  int               `json:"page_size"`
}

// ToggleSort flips the direction when key is already the sort key and
// otherwise switches to key ascending.
func (q *Query) ToggleSort(key string) {
	if q.SortKey == key {
		if q.SortOrder == Desc {
			q.SortOrder = Asc
		} else {
			q.SortOrder = Desc
		}
		return
	}
	q.SortKey = key
	q.SortOrder = Asc
}

// SetSearch replaces the search text and returns to the first page.
func (q *Query) SetSearch(text string) {
	q.Search = text
	q.Page = 1
}

// SetFilter sets (or with "" clears) one exact-match filter and returns to
// the first page.
func (q *Query) SetFilter(key, value string) {
	if value == "" {
		delete(q.Filters, key)
	} else {
		if q.Filters == nil {
			q.Filters = make(map[string]string)
		}
		q.Filters[key] = value
	}
	q.Page = 1
}

// Values encodes q in the form ParseQuery reads.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.SortKey != "" {
		v.Set("sort", q.SortKey)
		v.Set("order", string(q.SortOrder))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	for k, val := range q.Filters {
		v.Set("filter."+k, val)
	}
	return v
}

// ParseQuery reads search, sort, order, page, page_size and filter.<field>
// parameters over defaults. "status" is shorthand for filter.status.
// Malformed numbers fall back to the defaults; page_size is capped at
// MaxPageSize.
func ParseQuery(values url.Values, defaults Query) Query {
	q := defaults
	q.Filters = maps.Clone(defaults.Filters)

	if v := values.Get("search"); v != "" {
		if r := []rune(v); len(r) > validation.MaxSearchLength {
			v = string(r[:validation.MaxSearchLength])
		}
		q.Search = v
	}
	if v := values.Get("sort"); v != "" {
		q.SortKey = v
		q.SortOrder = Asc
	}
	switch SortOrder(strings.ToLower(values.Get("order"))) {
	case Asc:
		q.SortOrder = Asc
	case Desc:
		q.SortOrder = Desc
	}
	if n, err := strconv.Atoi(values.Get("page")); err == nil && n > 0 {
		q.Page = n
	}
	if n, err := strconv.Atoi(values.Get("page_size")); err == nil && n > 0 {
		q.PageSize = min(n, MaxPageSize)
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}

	for key, vals := range values {
		field, ok := strings.CutPrefix(key, "filter.")
		if !ok || field == "" || len(vals) == 0 {
			continue
		}
		q.SetFilterValue(field, vals[0])
	}
	if v := values.Get("status"); v != "" {
		q.SetFilterValue("status", v)
	}
	return q
}

// SetFilterValue sets a filter without touching the page.
func (q *Query) SetFilterValue(key, value string) {
	if value == "" {
		return
	}
	if q.Filters == nil {
		q.Filters = make(map[string]string)
	}
	q.Filters[key] = value
}
