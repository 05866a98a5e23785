package query

import (
	"sort"
	"strings"
)

// SearchStrategy selects how a free-text search term is transformed
// into pattern conditions.
type SearchStrategy string

const (
	StrategyContains   SearchStrategy = "contains"
	StrategyStartsWith SearchStrategy = "startsWith"
	StrategyExact      SearchStrategy = "exact"
	StrategyFuzzy      SearchStrategy = "fuzzy"
)

// SearchConfig is a resource's free-text search configuration.
type SearchConfig struct {
	Fields        []string       `json:"fields,omitempty"`
	Strategy      SearchStrategy `json:"strategy,omitempty"`
	CaseSensitive bool           `json:"caseSensitive,omitempty"`
}

// resolveSearchFields picks the target fields for a search term:
// request fields win, then the resource config, then "name".
func resolveSearchFields(p Params, cfg *SearchConfig) []string {
	if len(p.SearchFields) > 0 {
		return p.SearchFields
	}
	if cfg != nil && len(cfg.Fields) > 0 {
		return cfg.Fields
	}
	return []string{"name"}
}

// BuildSearchConditions compiles the free-text search term into an OR
// group with one condition per target field. Returns an empty
// expression when no term is set.
func BuildSearchConditions(p Params, cfg *SearchConfig) Expression {
	term := p.SearchTerm()
	if term == "" {
		return Expression{Logic: LogicOr}
	}

	strategy := StrategyContains
	caseSensitive := false
	if cfg != nil {
		if cfg.Strategy != "" {
			strategy = cfg.Strategy
		}
		caseSensitive = cfg.CaseSensitive
	}

	op := OpILike
	if caseSensitive {
		op = OpLike
	} else {
		term = NormalizeTerm(term)
	}

	value := term
	switch strategy {
	case StrategyContains:
		value = "%" + term + "%"
	case StrategyStartsWith:
		value = term + "%"
	case StrategyExact:
		op = OpEqual
	case StrategyFuzzy:
		value = fuzzyPattern(term)
	}

	group := Expression{Logic: LogicOr}
	for _, field := range resolveSearchFields(p, cfg) {
		group.AddCondition(Condition{Field: field, Operator: op, Value: value})
	}
	return group
}

// fuzzyPattern interleaves wildcards between every character of the
// term, so "abc" matches any string containing a, b, c in order.
func fuzzyPattern(term string) string {
	var b strings.Builder
	b.WriteString("%")
	for _, r := range term {
		b.WriteRune(r)
		b.WriteString("%")
	}
	return b.String()
}

// BuildFullTextConditions tokenizes the search term on whitespace and
// emits one ilike condition per term per field, OR-combined. Used for
// multi-term matching where any term hitting any field qualifies.
func BuildFullTextConditions(term string, fields []string) Expression {
	group := Expression{Logic: LogicOr}
	if len(fields) == 0 {
		fields = []string{"name"}
	}
	for _, tok := range Tokenize(term) {
		pattern := "%" + NormalizeTerm(tok) + "%"
		for _, field := range fields {
			group.AddCondition(Condition{Field: field, Operator: OpILike, Value: pattern})
		}
	}
	return group
}

// BuildExpression compiles the full query into one boolean tree:
// an AND of the search OR-group, explicit filters, implicit where
// equalities and date range bounds. Sources are additive with no
// deduplication; search and where on the same field both apply.
func BuildExpression(p Params, cfg *SearchConfig) Expression {
	root := Expression{Logic: LogicAnd}

	root.AddGroup(BuildSearchConditions(p, cfg))

	for _, field := range sortedKeys(p.Filters) {
		f := p.Filters[field]
		root.AddCondition(Condition{Field: field, Operator: f.Operator, Value: f.Value})
	}

	if dr := p.DateRange; dr != nil && dr.Field != "" {
		if dr.Start != nil {
			root.AddCondition(Condition{Field: dr.Field, Operator: OpGreaterThanOrEqual, Value: parseDateBound(dr.Start)})
		}
		if dr.End != nil {
			root.AddCondition(Condition{Field: dr.Field, Operator: OpLessThanOrEqual, Value: parseDateBound(dr.End)})
		}
	}

	for _, field := range sortedKeys(p.Where) {
		root.AddCondition(Condition{Field: field, Operator: OpEqual, Value: p.Where[field]})
	}

	return root
}

// sortedKeys keeps compiled condition order stable so cache keys
// derived from the expression are deterministic.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
