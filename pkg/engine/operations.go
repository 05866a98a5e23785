package engine

import (
	"context"
	"sync"
	"time"

	"github.com/bitechdev/ResourceSpec/pkg/adapter"
	"github.com/bitechdev/ResourceSpec/pkg/query"
	"github.com/bitechdev/ResourceSpec/pkg/resource"
	"github.com/bitechdev/ResourceSpec/pkg/tracing"
)

// Request carries the inputs of one operation invocation.
type Request struct {
	ID    interface{}
	Data  adapter.Record
	Query query.Params
	User  *resource.Identity
	Meta  *resource.RequestMeta
}

// PageInfo describes the window a list result covers.
type PageInfo struct {
	Page   int   `json:"page"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
	Total  int64 `json:"total"`
}

// ListResult is the assembled output of a list operation.
type ListResult struct {
	Items      []adapter.Record `json:"items"`
	Pagination PageInfo         `json:"pagination"`
}

// Execute runs one CRUD operation end to end and returns the typed
// result: a record for create/read/update, nil for delete, and a
// *ListResult for list.
func (e *Engine) Execute(ctx context.Context, name string, op resource.Operation, req Request) (result interface{}, err error) {
	def, err := e.Resource(name)
	if err != nil {
		return nil, err
	}
	if !def.Endpoints.Enabled(op) {
		return nil, &NotFoundError{Resource: name}
	}

	start := time.Now()
	e.metrics.IncOperationsInFlight()
	defer e.metrics.DecOperationsInFlight()

	ctx, span := tracing.StartOperationSpan(ctx, name, string(op))
	defer span.End()

	hc := &resource.Context{
		Context:   ctx,
		User:      req.User,
		Resource:  name,
		Operation: op,
		Data:      req.Data,
		ID:        req.ID,
		Request:   req.Meta,
		Adapter:   e.adapter,
	}

	switch op {
	case resource.OpCreate:
		result, err = e.create(ctx, def, hc)
	case resource.OpRead:
		result, err = e.read(ctx, def, hc)
	case resource.OpUpdate:
		result, err = e.update(ctx, def, hc)
	case resource.OpDelete:
		err = e.delete(ctx, def, hc)
	case resource.OpList:
		result, err = e.list(ctx, def, hc, req.Query)
	default:
		err = &NotFoundError{Resource: name}
	}

	tracing.RecordError(ctx, err)
	e.metrics.RecordOperation(name, string(op), statusOf(err), time.Since(start))
	return result, err
}

// Create runs a create operation.
func (e *Engine) Create(ctx context.Context, name string, req Request) (adapter.Record, error) {
	out, err := e.Execute(ctx, name, resource.OpCreate, req)
	if err != nil {
		return nil, err
	}
	return out.(adapter.Record), nil
}

// Read fetches a single record by id.
func (e *Engine) Read(ctx context.Context, name string, req Request) (adapter.Record, error) {
	out, err := e.Execute(ctx, name, resource.OpRead, req)
	if err != nil {
		return nil, err
	}
	return out.(adapter.Record), nil
}

// Update runs an update operation.
func (e *Engine) Update(ctx context.Context, name string, req Request) (adapter.Record, error) {
	out, err := e.Execute(ctx, name, resource.OpUpdate, req)
	if err != nil {
		return nil, err
	}
	return out.(adapter.Record), nil
}

// Delete runs a delete operation.
func (e *Engine) Delete(ctx context.Context, name string, req Request) error {
	_, err := e.Execute(ctx, name, resource.OpDelete, req)
	return err
}

// List runs a list operation.
func (e *Engine) List(ctx context.Context, name string, req Request) (*ListResult, error) {
	out, err := e.Execute(ctx, name, resource.OpList, req)
	if err != nil {
		return nil, err
	}
	return out.(*ListResult), nil
}

func (e *Engine) create(ctx context.Context, def *resource.Definition, hc *resource.Context) (adapter.Record, error) {
	if hc.Data == nil {
		hc.Data = adapter.Record{}
	}

	if err := e.runMiddlewares(def, hc); err != nil {
		return nil, err
	}
	if err := e.evaluatePermission(def, hc); err != nil {
		return nil, err
	}
	if err := e.executeBefore(def, hc); err != nil {
		return nil, err
	}

	if fieldErrs := def.Schema.Validate(hc.Data); len(fieldErrs) > 0 {
		return nil, &ValidationError{Resource: def.Name, Fields: fieldErrs}
	}

	created, err := e.adapter.Create(ctx, adapter.CreateParams{
		Model: def.ModelName(),
		Data:  hc.Data,
	})
	if err != nil {
		return nil, err
	}
	hc.Result = created
	hc.ID = created["id"]
	e.counts.Invalidate(ctx, def.ModelName())

	if err := e.executeAfter(def, hc); err != nil {
		return nil, err
	}

	e.audit.LogFromContext(hc, nil, created)
	return created, nil
}

func (e *Engine) read(ctx context.Context, def *resource.Definition, hc *resource.Context) (adapter.Record, error) {
	existing, err := e.fetchExisting(ctx, def, hc.ID)
	if err != nil {
		return nil, err
	}
	hc.ExistingData = existing

	if err := e.runMiddlewares(def, hc); err != nil {
		return nil, err
	}
	if err := e.evaluatePermission(def, hc); err != nil {
		return nil, err
	}
	if err := e.executeBefore(def, hc); err != nil {
		return nil, err
	}

	hc.Result = existing

	if err := e.executeAfter(def, hc); err != nil {
		return nil, err
	}

	e.audit.LogFromContext(hc, existing, nil)
	return existing, nil
}

func (e *Engine) update(ctx context.Context, def *resource.Definition, hc *resource.Context) (adapter.Record, error) {
	if hc.Data == nil {
		hc.Data = adapter.Record{}
	}

	existing, err := e.fetchExisting(ctx, def, hc.ID)
	if err != nil {
		return nil, err
	}
	hc.ExistingData = existing

	if err := e.runMiddlewares(def, hc); err != nil {
		return nil, err
	}
	if err := e.evaluatePermission(def, hc); err != nil {
		return nil, err
	}
	if err := e.executeBefore(def, hc); err != nil {
		return nil, err
	}

	if fieldErrs := def.Schema.ValidatePartial(hc.Data); len(fieldErrs) > 0 {
		return nil, &ValidationError{Resource: def.Name, Fields: fieldErrs}
	}

	updated, err := e.adapter.Update(ctx, adapter.UpdateParams{
		Model: def.ModelName(),
		Where: adapter.ByID(hc.ID),
		Data:  hc.Data,
	})
	if err != nil {
		return nil, err
	}
	hc.Result = updated
	e.counts.Invalidate(ctx, def.ModelName())

	if err := e.executeAfter(def, hc); err != nil {
		return nil, err
	}

	e.audit.LogFromContext(hc, existing, updated)
	return updated, nil
}

func (e *Engine) delete(ctx context.Context, def *resource.Definition, hc *resource.Context) error {
	existing, err := e.fetchExisting(ctx, def, hc.ID)
	if err != nil {
		return err
	}
	hc.ExistingData = existing

	if err := e.runMiddlewares(def, hc); err != nil {
		return err
	}
	if err := e.evaluatePermission(def, hc); err != nil {
		return err
	}
	if err := e.executeBefore(def, hc); err != nil {
		return err
	}

	if def.SoftDelete() {
		now := time.Now()
		_, err = e.adapter.Update(ctx, adapter.UpdateParams{
			Model: def.ModelName(),
			Where: adapter.ByID(hc.ID),
			Data:  adapter.Record{"deletedAt": now, "updatedAt": now},
		})
	} else {
		err = e.adapter.Delete(ctx, adapter.DeleteParams{
			Model: def.ModelName(),
			Where: adapter.ByID(hc.ID),
		})
	}
	if err != nil {
		return err
	}
	e.counts.Invalidate(ctx, def.ModelName())

	if err := e.executeAfter(def, hc); err != nil {
		return err
	}

	e.audit.LogFromContext(hc, existing, nil)
	return nil
}

func (e *Engine) list(ctx context.Context, def *resource.Definition, hc *resource.Context, params query.Params) (*ListResult, error) {
	if err := e.runMiddlewares(def, hc); err != nil {
		return nil, err
	}
	if err := e.evaluatePermission(def, hc); err != nil {
		return nil, err
	}
	if err := e.executeBefore(def, hc); err != nil {
		return nil, err
	}

	where := query.BuildExpression(params, def.Search)
	if def.SoftDelete() {
		where.AddCondition(query.Condition{Field: "deletedAt", Operator: query.OpEqual, Value: nil})
	}
	orderBy := query.BuildOrderBy(params)
	page := query.BuildPagination(params)

	var (
		wg       sync.WaitGroup
		items    []adapter.Record
		total    int64
		findErr  error
		countErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		items, findErr = e.adapter.FindMany(ctx, adapter.FindParams{
			Model:   def.ModelName(),
			Where:   &where,
			OrderBy: orderBy,
			Limit:   page.Limit,
			Offset:  page.Offset,
			Include: params.Include,
			Select:  params.Select,
		})
	}()
	go func() {
		defer wg.Done()
		total, countErr = e.countTotal(ctx, def.ModelName(), &where, orderBy)
	}()
	wg.Wait()

	if findErr != nil {
		return nil, findErr
	}
	if countErr != nil {
		return nil, countErr
	}

	result := &ListResult{
		Items: items,
		Pagination: PageInfo{
			Page:   page.Page,
			Limit:  page.Limit,
			Offset: page.Offset,
			Total:  total,
		},
	}
	hc.Result = result

	if err := e.executeAfter(def, hc); err != nil {
		return nil, err
	}

	e.audit.LogFromContext(hc, nil, nil)
	return result, nil
}

// countTotal resolves the list total through the count cache when one
// is configured.
func (e *Engine) countTotal(ctx context.Context, model string, where *query.Expression, orderBy []query.SortKey) (int64, error) {
	if e.counts != nil {
		if total, ok := e.counts.Get(ctx, model, where, orderBy); ok {
			e.metrics.RecordCacheHit("counts")
			return total, nil
		}
		e.metrics.RecordCacheMiss("counts")
	}

	total, err := e.adapter.Count(ctx, adapter.CountParams{Model: model, Where: where})
	if err != nil {
		return 0, err
	}
	if e.counts != nil {
		e.counts.Set(ctx, model, where, orderBy, total)
	}
	return total, nil
}

// fetchExisting loads the target record for read/update/delete before
// permission evaluation. A missing record fails with NotFound before
// any permission predicate runs.
func (e *Engine) fetchExisting(ctx context.Context, def *resource.Definition, id interface{}) (adapter.Record, error) {
	where := adapter.ByID(id)
	if def.SoftDelete() {
		where.AddCondition(query.Condition{Field: "deletedAt", Operator: query.OpEqual, Value: nil})
	}

	existing, err := e.adapter.FindFirst(ctx, adapter.FindParams{
		Model: def.ModelName(),
		Where: where,
	})
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &NotFoundError{Resource: def.Name, ID: id}
	}
	return existing, nil
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsValidation(err):
		return "validation"
	case IsForbidden(err):
		return "forbidden"
	case IsNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}
