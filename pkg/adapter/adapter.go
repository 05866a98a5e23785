package adapter

import (
	"context"
	"errors"

	"github.com/bitechdev/ResourceSpec/pkg/query"
)

// Record is the adapter-agnostic row shape exchanged with the engine.
type Record = map[string]interface{}

// CreateParams holds the inputs for a create call.
type CreateParams struct {
	Model   string
	Data    Record
	Include []string
}

// FindParams holds the inputs for findFirst/findMany calls. Where is a
// boolean expression tree; adapters must honor its and/or structure,
// not flatten it into a bare AND list.
type FindParams struct {
	Model   string
	Where   *query.Expression
	OrderBy []query.SortKey
	Limit   int
	Offset  int
	Include []string
	Select  []string
}

// UpdateParams holds the inputs for an update call.
type UpdateParams struct {
	Model   string
	Where   *query.Expression
	Data    Record
	Include []string
}

// DeleteParams holds the inputs for a delete call.
type DeleteParams struct {
	Model   string
	Where   *query.Expression
	Cascade bool
}

// CountParams holds the inputs for a count call.
type CountParams struct {
	Model string
	Where *query.Expression
}

// CustomOperation is an adapter-specific escape hatch (raw SQL, batch
// upsert, transactions) dispatched by name.
type CustomOperation func(ctx context.Context, params map[string]interface{}) (interface{}, error)

// Adapter is the storage contract the engine requires from any backing
// store. Implementations must be safe for concurrent use by multiple
// in-flight operations.
type Adapter interface {
	Create(ctx context.Context, params CreateParams) (Record, error)
	FindFirst(ctx context.Context, params FindParams) (Record, error)
	FindMany(ctx context.Context, params FindParams) ([]Record, error)
	Update(ctx context.Context, params UpdateParams) (Record, error)
	Delete(ctx context.Context, params DeleteParams) error
	Count(ctx context.Context, params CountParams) (int64, error)
}

// CustomOperator is optionally implemented by adapters exposing named
// custom operations.
type CustomOperator interface {
	ExecuteCustomOperation(ctx context.Context, name string, params map[string]interface{}) (interface{}, error)
}

// ByID builds the expression matching a single record by primary key.
func ByID(id interface{}) *query.Expression {
	expr := query.And(query.Condition{Field: "id", Operator: query.OpEqual, Value: id})
	return &expr
}

// ErrCustomOperationNotFound is returned when a named custom operation
// is not registered on the adapter.
var ErrCustomOperationNotFound = errors.New("custom operation is not registered")
