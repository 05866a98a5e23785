package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/bitechdev/ResourceSpec/pkg/adapter"
	"github.com/bitechdev/ResourceSpec/pkg/audit"
	"github.com/bitechdev/ResourceSpec/pkg/cache"
	"github.com/bitechdev/ResourceSpec/pkg/logger"
	"github.com/bitechdev/ResourceSpec/pkg/metrics"
	"github.com/bitechdev/ResourceSpec/pkg/plugin"
	"github.com/bitechdev/ResourceSpec/pkg/resource"
)

// Engine executes CRUD operations for registered resources: it
// evaluates permissions, runs lifecycle hooks, compiles list queries,
// delegates to the storage adapter and emits audit events.
//
// Definitions are registered at startup; operations may then run
// concurrently. The engine itself holds no per-record state.
type Engine struct {
	adapter     adapter.Adapter
	plugins     *plugin.Registry
	audit       *audit.Logger
	metrics     metrics.Provider
	counts      *cache.CountCache
	middlewares []resource.MiddlewareFunc

	mu        sync.RWMutex
	resources map[string]*resource.Definition
}

// Option configures an Engine.
type Option func(*Engine)

// WithPlugins injects the plugin registry. Plugins contribute hooks
// to every resource.
func WithPlugins(registry *plugin.Registry) Option {
	return func(e *Engine) { e.plugins = registry }
}

// WithAudit enables audit logging of mutation operations.
func WithAudit(l *audit.Logger) Option {
	return func(e *Engine) { e.audit = l }
}

// WithMetrics sets the metrics provider.
func WithMetrics(p metrics.Provider) Option {
	return func(e *Engine) { e.metrics = p }
}

// WithCountCache enables memoized list totals.
func WithCountCache(c *cache.CountCache) Option {
	return func(e *Engine) { e.counts = c }
}

// WithMiddleware appends engine-wide middlewares, run before each
// resource's own middlewares.
func WithMiddleware(mw ...resource.MiddlewareFunc) Option {
	return func(e *Engine) { e.middlewares = append(e.middlewares, mw...) }
}

// NewEngine creates an engine over the given storage adapter.
func NewEngine(adp adapter.Adapter, opts ...Option) *Engine {
	e := &Engine{
		adapter:   adp,
		metrics:   &metrics.NoOpProvider{},
		resources: make(map[string]*resource.Definition),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.plugins == nil {
		e.plugins = plugin.NewRegistry()
	}
	return e
}

// RegisterResource adds a resource definition. Hook aliases are
// normalized here, once, so the execution path only sees canonical
// names. Definitions must not be mutated after registration.
func (e *Engine) RegisterResource(def *resource.Definition) error {
	if def == nil || def.Name == "" {
		return fmt.Errorf("resource definition requires a name")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.resources[def.Name]; exists {
		return fmt.Errorf("resource %q is already registered", def.Name)
	}

	e.resources[def.Name] = def.Normalize()
	logger.Info("Registered resource %s (model: %s)", def.Name, def.ModelName())
	return nil
}

// Resource returns a registered definition.
func (e *Engine) Resource(name string) (*resource.Definition, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	def, ok := e.resources[name]
	if !ok {
		return nil, &NotFoundError{Resource: name}
	}
	return def, nil
}

// Adapter returns the storage adapter.
func (e *Engine) Adapter() adapter.Adapter {
	return e.adapter
}

// ExecuteCustom dispatches a named adapter operation outside the CRUD
// set (raw SQL, batch upserts). The adapter must support custom
// operations.
func (e *Engine) ExecuteCustom(ctx context.Context, name string, params map[string]interface{}) (interface{}, error) {
	custom, ok := e.adapter.(adapter.CustomOperator)
	if !ok {
		return nil, adapter.ErrCustomOperationNotFound
	}
	return custom.ExecuteCustomOperation(ctx, name, params)
}

// runMiddlewares executes engine-wide middlewares then the resource's
// own, in order. Any error aborts the pipeline.
func (e *Engine) runMiddlewares(def *resource.Definition, hc *resource.Context) error {
	for _, mw := range e.middlewares {
		if err := mw(hc); err != nil {
			return err
		}
	}
	for _, mw := range def.Middlewares {
		if err := mw(hc); err != nil {
			return err
		}
	}
	return nil
}
