package query

// Operator identifies a comparison operator in a condition.
// Adapters translate these into their native query language.
type Operator string

const (
	OpEqual              Operator = "eq"
	OpNotEqual           Operator = "ne"
	OpGreaterThan        Operator = "gt"
	OpGreaterThanOrEqual Operator = "gte"
	OpLessThan           Operator = "lt"
	OpLessThanOrEqual    Operator = "lte"
	OpLike               Operator = "like"
	OpILike              Operator = "ilike"
	OpNotLike            Operator = "notLike"
	OpIn                 Operator = "in"
	OpNotIn              Operator = "notIn"
	OpBetween            Operator = "between"
)

// Condition is a single field/operator/value filter predicate.
type Condition struct {
	Field    string      `json:"field"`
	Operator Operator    `json:"operator"`
	Value    interface{} `json:"value"`
}

// Logic combines conditions and groups within an expression.
type Logic string

const (
	LogicAnd Logic = "and"
	LogicOr  Logic = "or"
)

// Expression is a boolean tree of conditions. Search conditions compile
// into an OR group while filters, where clauses and date ranges are AND
// siblings, so adapters must walk the tree rather than flatten it.
type Expression struct {
	Logic      Logic        `json:"logic"`
	Conditions []Condition  `json:"conditions,omitempty"`
	Groups     []Expression `json:"groups,omitempty"`
}

// And builds an AND expression from the given conditions.
func And(conditions ...Condition) Expression {
	return Expression{Logic: LogicAnd, Conditions: conditions}
}

// Or builds an OR expression from the given conditions.
func Or(conditions ...Condition) Expression {
	return Expression{Logic: LogicOr, Conditions: conditions}
}

// IsEmpty reports whether the expression contains no conditions at any depth.
func (e Expression) IsEmpty() bool {
	if len(e.Conditions) > 0 {
		return false
	}
	for _, g := range e.Groups {
		if !g.IsEmpty() {
			return false
		}
	}
	return true
}

// AddCondition appends a condition to the expression.
func (e *Expression) AddCondition(c Condition) {
	e.Conditions = append(e.Conditions, c)
}

// AddGroup appends a nested group, skipping empty groups.
func (e *Expression) AddGroup(g Expression) {
	if g.IsEmpty() {
		return
	}
	e.Groups = append(e.Groups, g)
}

// Direction is a sort direction.
type Direction string

const (
	DirectionAsc  Direction = "asc"
	DirectionDesc Direction = "desc"
)

// SortKey is a single ordering term.
type SortKey struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// Pagination is the compiled page window for a list operation.
type Pagination struct {
	Page   int `json:"page"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
