package engine

import (
	"github.com/bitechdev/ResourceSpec/pkg/resource"
)

// executeHook invokes one callback, tolerating absence.
func executeHook(fn resource.HookFunc, hc *resource.Context) error {
	if fn == nil {
		return nil
	}
	return fn(hc)
}

// executeBefore runs the before phase: plugin hooks first, then the
// resource's own hook. Plugins get first refusal before a
// user-supplied hook mutates data on the way in.
func (e *Engine) executeBefore(def *resource.Definition, hc *resource.Context) error {
	name := resource.BeforeHookName(hc.Operation)
	if err := e.plugins.ExecuteHooks(name, hc); err != nil {
		return err
	}
	return executeHook(def.Hooks[name], hc)
}

// executeAfter runs the after phase: the resource's own hook first,
// then plugin hooks. The resource reacts to its own result before
// cross-cutting plugins observe it.
func (e *Engine) executeAfter(def *resource.Definition, hc *resource.Context) error {
	name := resource.AfterHookName(hc.Operation)
	if err := executeHook(def.Hooks[name], hc); err != nil {
		return err
	}
	return e.plugins.ExecuteHooks(name, hc)
}

// evaluatePermission applies the resource's predicate for the
// operation. An absent predicate allows; a false result denies; a
// predicate error propagates unchanged.
//
// For read/update/delete the caller must have bound ExistingData into
// the context before calling, so ownership predicates observe the
// real prior state.
func (e *Engine) evaluatePermission(def *resource.Definition, hc *resource.Context) error {
	fn, ok := def.Permissions[hc.Operation]
	if !ok || fn == nil {
		return nil
	}

	allowed, err := fn(hc)
	if err != nil {
		return err
	}
	if !allowed {
		return &ForbiddenError{Resource: def.Name, Operation: hc.Operation}
	}
	return nil
}
