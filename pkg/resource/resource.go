package resource

import (
	"context"

	"github.com/bitechdev/ResourceSpec/pkg/adapter"
	"github.com/bitechdev/ResourceSpec/pkg/query"
)

// Operation identifies one of the five generated CRUD operations.
type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpList   Operation = "list"
)

// DeleteStrategy is the engine-level delete policy for a resource.
// Soft delete stamps deletedAt through the adapter's update instead of
// removing the row, and list/read filter deleted records out.
type DeleteStrategy string

const (
	DeleteHard DeleteStrategy = "hard"
	DeleteSoft DeleteStrategy = "soft"
)

// Identity is the typed current-user structure threaded through the
// operation context. ID is required; Role and Claims are open
// extension points for permission predicates.
type Identity struct {
	ID     string
	Role   string
	Claims map[string]interface{}
}

// Claim returns a claim value, nil when absent.
func (i *Identity) Claim(key string) interface{} {
	if i == nil || i.Claims == nil {
		return nil
	}
	return i.Claims[key]
}

// RequestMeta carries transport metadata through the pipeline for
// audit purposes. The engine never interprets it beyond audit fields.
type RequestMeta struct {
	Headers   map[string]string
	IP        string
	RequestID string
}

// Header returns a header value, empty when absent.
func (r *RequestMeta) Header(name string) string {
	if r == nil || r.Headers == nil {
		return ""
	}
	return r.Headers[name]
}

// Context is the per-invocation mutable bag threading the user,
// operation kind, payload and intermediate results through the
// pipeline. It is constructed fresh per request and discarded after.
type Context struct {
	Context   context.Context
	User      *Identity
	Resource  string
	Operation Operation

	// Data is the create/update payload. Before hooks may enrich it,
	// e.g. inject timestamps or the owner id.
	Data adapter.Record

	// ID is the target record identifier for read/update/delete.
	ID interface{}

	// ExistingData is the pre-operation record, fetched before
	// permission evaluation for read/update/delete so ownership
	// checks see the real prior state.
	ExistingData adapter.Record

	// Result is populated after the storage call, visible to after hooks.
	Result interface{}

	Request *RequestMeta

	// Adapter lets hooks perform additional storage calls.
	Adapter adapter.Adapter
}

// Ctx returns the embedded context.Context, never nil.
func (c *Context) Ctx() context.Context {
	if c.Context == nil {
		return context.Background()
	}
	return c.Context
}

// PermissionFunc decides whether the operation is authorized. A false
// result fails the operation; a returned error propagates unchanged.
type PermissionFunc func(hc *Context) (bool, error)

// MiddlewareFunc enriches the context before permission evaluation,
// e.g. attaching the authenticated user from a session lookup.
type MiddlewareFunc func(hc *Context) error

// Endpoints enables or disables generated operations. A nil map means
// all operations are enabled.
type Endpoints map[Operation]bool

// Enabled reports whether the operation is enabled; operations absent
// from the map default to enabled.
func (e Endpoints) Enabled(op Operation) bool {
	if e == nil {
		return true
	}
	enabled, ok := e[op]
	if !ok {
		return true
	}
	return enabled
}

// Definition is the static configuration for one resource. It is
// constructed once at startup and must not be mutated afterwards.
type Definition struct {
	// Name is the unique identifier, also the storage model name
	// unless Model overrides it.
	Name string

	// Model overrides the storage model/table name.
	Model string

	Schema      *Schema
	Permissions map[Operation]PermissionFunc
	Hooks       Hooks
	Middlewares []MiddlewareFunc
	Endpoints   Endpoints
	Search      *query.SearchConfig

	// DeleteStrategy defaults to hard delete when empty.
	DeleteStrategy DeleteStrategy
}

// ModelName returns the storage model name for this resource.
func (d *Definition) ModelName() string {
	if d.Model != "" {
		return d.Model
	}
	return d.Name
}

// SoftDelete reports whether this resource deletes by stamping deletedAt.
func (d *Definition) SoftDelete() bool {
	return d.DeleteStrategy == DeleteSoft
}

// Normalize folds legacy hook aliases into their canonical names and
// must be called once when the definition is registered. It returns
// the definition for chaining.
func (d *Definition) Normalize() *Definition {
	d.Hooks = d.Hooks.Normalize()
	return d
}
