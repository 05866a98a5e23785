package resource

// HookName identifies a lifecycle callback slot. The canonical names
// are the before/after pairs; the legacy on* aliases are accepted at
// the definition boundary and folded away by Hooks.Normalize.
type HookName string

const (
	BeforeCreate HookName = "beforeCreate"
	AfterCreate  HookName = "afterCreate"
	BeforeUpdate HookName = "beforeUpdate"
	AfterUpdate  HookName = "afterUpdate"
	BeforeDelete HookName = "beforeDelete"
	AfterDelete  HookName = "afterDelete"
	BeforeRead   HookName = "beforeRead"
	AfterRead    HookName = "afterRead"
	BeforeList   HookName = "beforeList"
	AfterList    HookName = "afterList"

	// Legacy aliases from the first hook naming generation. When both
	// the alias and its canonical name are set, the alias wins.
	OnCreate HookName = "onCreate"
	OnUpdate HookName = "onUpdate"
	OnDelete HookName = "onDelete"
)

// HookFunc is the signature for lifecycle callbacks. A returned error
// aborts the whole operation and propagates to the caller unwrapped.
type HookFunc func(hc *Context) error

// Hooks maps hook names to callbacks for one resource.
type Hooks map[HookName]HookFunc

var legacyAliases = map[HookName]HookName{
	OnCreate: BeforeCreate,
	OnUpdate: BeforeUpdate,
	OnDelete: BeforeDelete,
}

// Normalize returns a copy with legacy aliases folded into their
// canonical before-hook slots. A legacy alias replaces a canonical
// hook registered for the same phase, so both are never executed.
func (h Hooks) Normalize() Hooks {
	if h == nil {
		return nil
	}

	out := make(Hooks, len(h))
	for name, fn := range h {
		if _, isLegacy := legacyAliases[name]; isLegacy {
			continue
		}
		out[name] = fn
	}
	for alias, canonical := range legacyAliases {
		if fn, ok := h[alias]; ok {
			out[canonical] = fn
		}
	}
	return out
}

// BeforeHookName maps an operation to its before-hook slot.
func BeforeHookName(op Operation) HookName {
	switch op {
	case OpCreate:
		return BeforeCreate
	case OpUpdate:
		return BeforeUpdate
	case OpDelete:
		return BeforeDelete
	case OpRead:
		return BeforeRead
	case OpList:
		return BeforeList
	}
	return ""
}

// AfterHookName maps an operation to its after-hook slot.
func AfterHookName(op Operation) HookName {
	switch op {
	case OpCreate:
		return AfterCreate
	case OpUpdate:
		return AfterUpdate
	case OpDelete:
		return AfterDelete
	case OpRead:
		return AfterRead
	case OpList:
		return AfterList
	}
	return ""
}
