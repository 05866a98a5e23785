package adapter

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bitechdev/ResourceSpec/pkg/query"
)

// MemoryAdapter is a mutex-guarded in-memory store evaluating the
// condition expression tree directly. It backs tests and demos and is
// safe for concurrent use.
type MemoryAdapter struct {
	mu     sync.RWMutex
	models map[string][]Record
	custom map[string]CustomOperation
}

// NewMemoryAdapter creates an empty in-memory adapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		models: make(map[string][]Record),
		custom: make(map[string]CustomOperation),
	}
}

// Create stores a copy of the record, generating a uuid id when the
// payload has none.
func (m *MemoryAdapter) Create(ctx context.Context, params CreateParams) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := cloneRecord(params.Data)
	if rec == nil {
		rec = Record{}
	}
	if _, ok := rec["id"]; !ok {
		rec["id"] = uuid.NewString()
	}
	m.models[params.Model] = append(m.models[params.Model], rec)
	return cloneRecord(rec), nil
}

// FindFirst returns the first matching record or nil.
func (m *MemoryAdapter) FindFirst(ctx context.Context, params FindParams) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.models[params.Model] {
		ok, err := matchExpression(rec, params.Where)
		if err != nil {
			return nil, err
		}
		if ok {
			return cloneRecord(rec), nil
		}
	}
	return nil, nil
}

// FindMany returns matching records after ordering and pagination.
func (m *MemoryAdapter) FindMany(ctx context.Context, params FindParams) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Record
	for _, rec := range m.models[params.Model] {
		ok, err := matchExpression(rec, params.Where)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, cloneRecord(rec))
		}
	}

	sortRecords(matched, params.OrderBy)

	if params.Offset > 0 {
		if params.Offset >= len(matched) {
			return []Record{}, nil
		}
		matched = matched[params.Offset:]
	}
	if params.Limit > 0 && params.Limit < len(matched) {
		matched = matched[:params.Limit]
	}
	if matched == nil {
		matched = []Record{}
	}
	return matched, nil
}

// Update applies data to every matching record and returns the first.
func (m *MemoryAdapter) Update(ctx context.Context, params UpdateParams) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var first Record
	for _, rec := range m.models[params.Model] {
		ok, err := matchExpression(rec, params.Where)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		for k, v := range params.Data {
			rec[k] = v
		}
		if first == nil {
			first = cloneRecord(rec)
		}
	}
	if first == nil {
		return nil, fmt.Errorf("no record matched update on model %s", params.Model)
	}
	return first, nil
}

// Delete removes every matching record.
func (m *MemoryAdapter) Delete(ctx context.Context, params DeleteParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.models[params.Model][:0]
	for _, rec := range m.models[params.Model] {
		ok, err := matchExpression(rec, params.Where)
		if err != nil {
			return err
		}
		if !ok {
			kept = append(kept, rec)
		}
	}
	m.models[params.Model] = kept
	return nil
}

// Count returns the number of matching records.
func (m *MemoryAdapter) Count(ctx context.Context, params CountParams) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, rec := range m.models[params.Model] {
		ok, err := matchExpression(rec, params.Where)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// RegisterCustomOperation installs a named escape-hatch operation.
func (m *MemoryAdapter) RegisterCustomOperation(name string, fn CustomOperation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.custom[name] = fn
}

// ExecuteCustomOperation dispatches a named custom operation.
func (m *MemoryAdapter) ExecuteCustomOperation(ctx context.Context, name string, params map[string]interface{}) (interface{}, error) {
	m.mu.RLock()
	fn, ok := m.custom[name]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrCustomOperationNotFound
	}
	return fn(ctx, params)
}

func cloneRecord(rec Record) Record {
	if rec == nil {
		return nil
	}
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

func matchExpression(rec Record, expr *query.Expression) (bool, error) {
	if expr == nil || expr.IsEmpty() {
		return true, nil
	}

	isOr := expr.Logic == query.LogicOr

	for _, c := range expr.Conditions {
		ok, err := matchCondition(rec, c)
		if err != nil {
			return false, err
		}
		if isOr && ok {
			return true, nil
		}
		if !isOr && !ok {
			return false, nil
		}
	}

	for _, g := range expr.Groups {
		if g.IsEmpty() {
			continue
		}
		ok, err := matchExpression(rec, &g)
		if err != nil {
			return false, err
		}
		if isOr && ok {
			return true, nil
		}
		if !isOr && !ok {
			return false, nil
		}
	}

	// an OR that matched nothing fails; an AND that rejected nothing passes
	return !isOr, nil
}

func matchCondition(rec Record, c query.Condition) (bool, error) {
	value, present := rec[c.Field]

	// eq nil means "absent or null", matching SQL IS NULL semantics
	if c.Value == nil {
		switch c.Operator {
		case query.OpEqual:
			return !present || value == nil, nil
		case query.OpNotEqual:
			return present && value != nil, nil
		}
	}

	switch c.Operator {
	case query.OpEqual:
		return present && compareValues(value, c.Value) == 0, nil
	case query.OpNotEqual:
		return !present || compareValues(value, c.Value) != 0, nil
	case query.OpGreaterThan:
		return present && compareValues(value, c.Value) > 0, nil
	case query.OpGreaterThanOrEqual:
		return present && compareValues(value, c.Value) >= 0, nil
	case query.OpLessThan:
		return present && compareValues(value, c.Value) < 0, nil
	case query.OpLessThanOrEqual:
		return present && compareValues(value, c.Value) <= 0, nil
	case query.OpLike:
		return present && matchPattern(value, c.Value, false), nil
	case query.OpILike:
		return present && matchPattern(value, c.Value, true), nil
	case query.OpNotLike:
		return !present || !matchPattern(value, c.Value, false), nil
	case query.OpIn:
		return present && valueIn(value, c.Value), nil
	case query.OpNotIn:
		return !present || !valueIn(value, c.Value), nil
	case query.OpBetween:
		bounds, ok := c.Value.([]interface{})
		if !ok || len(bounds) != 2 {
			return false, fmt.Errorf("between requires a [low, high] pair, got %v", c.Value)
		}
		return present && compareValues(value, bounds[0]) >= 0 && compareValues(value, bounds[1]) <= 0, nil
	}
	return false, fmt.Errorf("unsupported operator %q", c.Operator)
}

// compareValues orders two loosely-typed values: numbers numerically,
// times chronologically, everything else by string form.
func compareValues(a, b interface{}) int {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}

	if at, aok := toTime(a); aok {
		if bt, bok := toTime(b); bok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			}
			return 0
		}
	}

	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// matchPattern evaluates a SQL LIKE pattern (% and _ wildcards).
func matchPattern(value, pattern interface{}, caseInsensitive bool) bool {
	v := fmt.Sprintf("%v", value)
	p := fmt.Sprintf("%v", pattern)

	var b strings.Builder
	b.WriteString("^")
	for _, r := range p {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")

	expr := b.String()
	if caseInsensitive {
		expr = "(?i)" + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return false
	}
	return re.MatchString(v)
}

func valueIn(value, set interface{}) bool {
	items, ok := set.([]interface{})
	if !ok {
		return compareValues(value, set) == 0
	}
	for _, item := range items {
		if compareValues(value, item) == 0 {
			return true
		}
	}
	return false
}

func sortRecords(records []Record, keys []query.SortKey) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, key := range keys {
			cmp := compareValues(records[i][key.Field], records[j][key.Field])
			if cmp == 0 {
				continue
			}
			if key.Direction == query.DirectionDesc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}
