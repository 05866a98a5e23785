package query

// FilterBuilder accumulates conditions through a fluent interface.
// It is sugar over the Condition shape and adds no semantics.
type FilterBuilder struct {
	conditions []Condition
}

// NewFilterBuilder creates an empty filter builder.
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{}
}

func (b *FilterBuilder) add(field string, op Operator, value interface{}) *FilterBuilder {
	b.conditions = append(b.conditions, Condition{Field: field, Operator: op, Value: value})
	return b
}

func (b *FilterBuilder) Equals(field string, value interface{}) *FilterBuilder {
	return b.add(field, OpEqual, value)
}

func (b *FilterBuilder) NotEquals(field string, value interface{}) *FilterBuilder {
	return b.add(field, OpNotEqual, value)
}

func (b *FilterBuilder) GreaterThan(field string, value interface{}) *FilterBuilder {
	return b.add(field, OpGreaterThan, value)
}

func (b *FilterBuilder) GreaterThanOrEqual(field string, value interface{}) *FilterBuilder {
	return b.add(field, OpGreaterThanOrEqual, value)
}

func (b *FilterBuilder) LessThan(field string, value interface{}) *FilterBuilder {
	return b.add(field, OpLessThan, value)
}

func (b *FilterBuilder) LessThanOrEqual(field string, value interface{}) *FilterBuilder {
	return b.add(field, OpLessThanOrEqual, value)
}

func (b *FilterBuilder) Like(field string, pattern string) *FilterBuilder {
	return b.add(field, OpLike, pattern)
}

func (b *FilterBuilder) In(field string, values ...interface{}) *FilterBuilder {
	return b.add(field, OpIn, values)
}

func (b *FilterBuilder) NotIn(field string, values ...interface{}) *FilterBuilder {
	return b.add(field, OpNotIn, values)
}

func (b *FilterBuilder) Between(field string, low, high interface{}) *FilterBuilder {
	return b.add(field, OpBetween, []interface{}{low, high})
}

// Build returns the accumulated conditions.
func (b *FilterBuilder) Build() []Condition {
	return b.conditions
}

// Expression returns the accumulated conditions as an AND expression.
func (b *FilterBuilder) Expression() Expression {
	return And(b.conditions...)
}

// Reset discards all accumulated conditions.
func (b *FilterBuilder) Reset() *FilterBuilder {
	b.conditions = nil
	return b
}
