package adapter

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/bitechdev/ResourceSpec/pkg/query"
)

// compileExpression renders a condition tree as a SQL fragment with ?
// placeholders and the matching argument list. IN lists are expanded
// to one placeholder per element so the output works with any driver.
// An empty or nil expression compiles to an empty fragment.
func compileExpression(expr *query.Expression) (string, []interface{}) {
	if expr == nil || expr.IsEmpty() {
		return "", nil
	}

	var (
		parts []string
		args  []interface{}
	)
	for _, c := range expr.Conditions {
		sql, condArgs := compileCondition(c)
		if sql == "" {
			continue
		}
		parts = append(parts, sql)
		args = append(args, condArgs...)
	}
	for i := range expr.Groups {
		sql, groupArgs := compileExpression(&expr.Groups[i])
		if sql == "" {
			continue
		}
		parts = append(parts, "("+sql+")")
		args = append(args, groupArgs...)
	}
	if len(parts) == 0 {
		return "", nil
	}

	joiner := " AND "
	if expr.Logic == query.LogicOr {
		joiner = " OR "
	}
	return strings.Join(parts, joiner), args
}

func compileCondition(c query.Condition) (string, []interface{}) {
	col := quoteColumn(c.Field)

	switch c.Operator {
	case query.OpEqual:
		if c.Value == nil {
			return col + " IS NULL", nil
		}
		return col + " = ?", []interface{}{c.Value}
	case query.OpNotEqual:
		if c.Value == nil {
			return col + " IS NOT NULL", nil
		}
		return col + " != ?", []interface{}{c.Value}
	case query.OpGreaterThan:
		return col + " > ?", []interface{}{c.Value}
	case query.OpGreaterThanOrEqual:
		return col + " >= ?", []interface{}{c.Value}
	case query.OpLessThan:
		return col + " < ?", []interface{}{c.Value}
	case query.OpLessThanOrEqual:
		return col + " <= ?", []interface{}{c.Value}
	case query.OpLike:
		return col + " LIKE ?", []interface{}{c.Value}
	case query.OpILike:
		return col + " ILIKE ?", []interface{}{c.Value}
	case query.OpNotLike:
		return col + " NOT LIKE ?", []interface{}{c.Value}
	case query.OpIn:
		return compileInList(col+" IN", c.Value)
	case query.OpNotIn:
		return compileInList(col+" NOT IN", c.Value)
	case query.OpBetween:
		bounds := valueSlice(c.Value)
		if len(bounds) != 2 {
			return "", nil
		}
		return col + " BETWEEN ? AND ?", bounds
	default:
		return "", nil
	}
}

func compileInList(prefix string, value interface{}) (string, []interface{}) {
	items := valueSlice(value)
	if len(items) == 0 {
		// An empty IN list matches nothing; empty NOT IN matches all.
		if strings.HasSuffix(prefix, " NOT IN") {
			return "1 = 1", nil
		}
		return "1 = 0", nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(items)), ", ")
	return fmt.Sprintf("%s (%s)", prefix, placeholders), items
}

func valueSlice(value interface{}) []interface{} {
	if items, ok := value.([]interface{}); ok {
		return items
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil
	}
	items := make([]interface{}, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items
}

// quoteColumn wraps a column name in double quotes. Identifiers come
// from resource definitions and compiled query parameters, never raw
// user SQL, but quoting keeps camelCase field names intact.
func quoteColumn(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, ``) + `"`
}

func compileOrderBy(keys []query.SortKey) string {
	if len(keys) == 0 {
		return ""
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		dir := "ASC"
		if k.Direction == query.DirectionDesc {
			dir = "DESC"
		}
		parts = append(parts, quoteColumn(k.Field)+" "+dir)
	}
	return strings.Join(parts, ", ")
}
