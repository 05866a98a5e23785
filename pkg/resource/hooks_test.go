package resource

import "testing"

func TestHooksNormalizeLegacyWins(t *testing.T) {
	var order []string
	hooks := Hooks{
		OnCreate:     func(hc *Context) error { order = append(order, "onCreate"); return nil },
		BeforeCreate: func(hc *Context) error { order = append(order, "beforeCreate"); return nil },
	}

	normalized := hooks.Normalize()

	if _, ok := normalized[OnCreate]; ok {
		t.Error("Expected legacy alias to be folded away")
	}

	fn, ok := normalized[BeforeCreate]
	if !ok {
		t.Fatal("Expected a beforeCreate hook after normalization")
	}
	if err := fn(&Context{}); err != nil {
		t.Fatalf("Unexpected hook error: %v", err)
	}
	if len(order) != 1 || order[0] != "onCreate" {
		t.Errorf("Expected only the legacy hook to run, got %v", order)
	}
}

func TestHooksNormalizeAllAliases(t *testing.T) {
	called := make(map[HookName]bool)
	mark := func(name HookName) HookFunc {
		return func(hc *Context) error { called[name] = true; return nil }
	}

	hooks := Hooks{
		OnCreate: mark(OnCreate),
		OnUpdate: mark(OnUpdate),
		OnDelete: mark(OnDelete),
	}

	normalized := hooks.Normalize()

	for alias, canonical := range map[HookName]HookName{
		OnCreate: BeforeCreate,
		OnUpdate: BeforeUpdate,
		OnDelete: BeforeDelete,
	} {
		fn, ok := normalized[canonical]
		if !ok {
			t.Fatalf("Expected %s to map to %s", alias, canonical)
		}
		_ = fn(&Context{})
		if !called[alias] {
			t.Errorf("Expected %s callback under %s", alias, canonical)
		}
	}
}

func TestHooksNormalizeKeepsCanonical(t *testing.T) {
	hooks := Hooks{
		BeforeUpdate: func(hc *Context) error { return nil },
		AfterCreate:  func(hc *Context) error { return nil },
	}
	normalized := hooks.Normalize()

	if normalized[BeforeUpdate] == nil || normalized[AfterCreate] == nil {
		t.Error("Expected canonical hooks preserved without aliases present")
	}
}

func TestHooksNormalizeNil(t *testing.T) {
	var hooks Hooks
	if got := hooks.Normalize(); got != nil {
		t.Errorf("Expected nil hooks to stay nil, got %v", got)
	}
}

func TestHookNameMapping(t *testing.T) {
	tests := []struct {
		op     Operation
		before HookName
		after  HookName
	}{
		{OpCreate, BeforeCreate, AfterCreate},
		{OpUpdate, BeforeUpdate, AfterUpdate},
		{OpDelete, BeforeDelete, AfterDelete},
		{OpRead, BeforeRead, AfterRead},
		{OpList, BeforeList, AfterList},
	}

	for _, tt := range tests {
		if got := BeforeHookName(tt.op); got != tt.before {
			t.Errorf("BeforeHookName(%s): got %s, want %s", tt.op, got, tt.before)
		}
		if got := AfterHookName(tt.op); got != tt.after {
			t.Errorf("AfterHookName(%s): got %s, want %s", tt.op, got, tt.after)
		}
	}
}

func TestEndpointsDefaults(t *testing.T) {
	var e Endpoints
	if !e.Enabled(OpCreate) {
		t.Error("Expected nil endpoints to enable everything")
	}

	e = Endpoints{OpDelete: false}
	if e.Enabled(OpDelete) {
		t.Error("Expected delete disabled")
	}
	if !e.Enabled(OpList) {
		t.Error("Expected unlisted operations enabled")
	}
}
