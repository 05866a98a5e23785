package query

import "time"

// Filter is an explicit operator/value pair for one field.
type Filter struct {
	Operator Operator    `json:"operator"`
	Value    interface{} `json:"value"`
}

// DateRange bounds a field between two instants. String bounds are
// parsed as RFC3339 or YYYY-MM-DD; missing bounds are omitted.
type DateRange struct {
	Field string      `json:"field"`
	Start interface{} `json:"start,omitempty"`
	End   interface{} `json:"end,omitempty"`
}

// Params is the raw, loosely-typed query input for a list operation,
// parsed once per request and compiled into an Expression, sort keys
// and a Pagination window.
type Params struct {
	Search       string             `json:"search,omitempty"`
	Q            string             `json:"q,omitempty"`
	SearchFields []string           `json:"searchFields,omitempty"`
	Filters      map[string]Filter  `json:"filters,omitempty"`
	Where        map[string]any     `json:"where,omitempty"`
	DateRange    *DateRange         `json:"dateRange,omitempty"`
	OrderBy      []SortKey          `json:"orderBy,omitempty"`
	SortBy       string             `json:"sortBy,omitempty"`
	SortOrder    Direction          `json:"sortOrder,omitempty"`
	Page         int                `json:"page,omitempty"`
	Limit        int                `json:"limit,omitempty"`
	Include      []string           `json:"include,omitempty"`
	Select       []string           `json:"select,omitempty"`
}

// SearchTerm returns the free-text search term, preferring Search over Q.
func (p Params) SearchTerm() string {
	if p.Search != "" {
		return p.Search
	}
	return p.Q
}

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// BuildPagination clamps page and limit into their valid ranges and
// derives the offset. Out-of-range values are clamped, never rejected.
func BuildPagination(p Params) Pagination {
	page := p.Page
	if page < 1 {
		page = 1
	}

	limit := p.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Pagination{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// BuildOrderBy compiles the sort keys. Explicit OrderBy entries come
// first, followed by a key derived from SortBy/SortOrder when set.
// With no sort requested at all the default is createdAt descending.
func BuildOrderBy(p Params) []SortKey {
	var keys []SortKey
	keys = append(keys, p.OrderBy...)

	if p.SortBy != "" {
		dir := p.SortOrder
		if dir != DirectionAsc && dir != DirectionDesc {
			dir = DirectionAsc
		}
		keys = append(keys, SortKey{Field: p.SortBy, Direction: dir})
	}

	if len(keys) == 0 {
		return []SortKey{{Field: "createdAt", Direction: DirectionDesc}}
	}
	return keys
}

// parseDateBound converts a date range bound to a time value. Strings
// are parsed as RFC3339 then YYYY-MM-DD; time values pass through.
// Unparseable bounds are returned as-is for the adapter to reject.
func parseDateBound(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return v
}
