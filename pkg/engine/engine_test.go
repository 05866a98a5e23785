package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bitechdev/ResourceSpec/pkg/adapter"
	"github.com/bitechdev/ResourceSpec/pkg/audit"
	"github.com/bitechdev/ResourceSpec/pkg/cache"
	"github.com/bitechdev/ResourceSpec/pkg/plugin"
	"github.com/bitechdev/ResourceSpec/pkg/query"
	"github.com/bitechdev/ResourceSpec/pkg/resource"
)

func productSchema() *resource.Schema {
	return resource.NewSchema(
		resource.Field{Name: "name", Kind: resource.KindString, Required: true},
		resource.Field{Name: "price", Kind: resource.KindFloat, Min: resource.Min(0)},
		resource.Field{Name: "status", Kind: resource.KindString, Default: "draft"},
	)
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *adapter.MemoryAdapter) {
	t.Helper()
	mem := adapter.NewMemoryAdapter()
	eng := NewEngine(mem, opts...)
	return eng, mem
}

func registerProducts(t *testing.T, eng *Engine, def *resource.Definition) {
	t.Helper()
	if def == nil {
		def = &resource.Definition{Name: "products"}
	}
	if def.Schema == nil {
		def.Schema = productSchema()
	}
	if err := eng.RegisterResource(def); err != nil {
		t.Fatalf("RegisterResource failed: %v", err)
	}
}

type countingAdapter struct {
	*adapter.MemoryAdapter
	creates int
}

func (c *countingAdapter) Create(ctx context.Context, params adapter.CreateParams) (adapter.Record, error) {
	c.creates++
	return c.MemoryAdapter.Create(ctx, params)
}

func TestCreateEndToEnd(t *testing.T) {
	counting := &countingAdapter{MemoryAdapter: adapter.NewMemoryAdapter()}
	eng := NewEngine(counting)
	registerProducts(t, eng, &resource.Definition{
		Name: "products",
		Schema: resource.NewSchema(
			resource.Field{Name: "name", Kind: resource.KindString, Required: true},
			resource.Field{Name: "price", Kind: resource.KindFloat, Min: resource.Min(0)},
		),
		Permissions: map[resource.Operation]resource.PermissionFunc{
			resource.OpCreate: func(hc *resource.Context) (bool, error) { return true, nil },
		},
		Hooks: resource.Hooks{
			resource.BeforeCreate: func(hc *resource.Context) error {
				hc.Data["status"] = "draft"
				return resource.TimestampHook(hc)
			},
		},
	})
	mem := counting.MemoryAdapter

	out, err := eng.Create(context.Background(), "products", Request{
		Data: adapter.Record{"name": "Widget", "price": 9.99},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if out["name"] != "Widget" {
		t.Errorf("Expected name Widget, got %v", out["name"])
	}
	if out["price"] != 9.99 {
		t.Errorf("Expected price 9.99, got %v", out["price"])
	}
	if out["status"] != "draft" {
		t.Errorf("Expected status draft injected by hook, got %v", out["status"])
	}
	if counting.creates != 1 {
		t.Errorf("Expected exactly 1 adapter create call, got %d", counting.creates)
	}
	if _, ok := out["createdAt"].(time.Time); !ok {
		t.Errorf("Expected createdAt timestamp, got %v", out["createdAt"])
	}
	if _, ok := out["updatedAt"].(time.Time); !ok {
		t.Errorf("Expected updatedAt timestamp, got %v", out["updatedAt"])
	}
	if out["id"] == nil {
		t.Error("Expected generated id")
	}

	total, err := mem.Count(context.Background(), adapter.CountParams{Model: "products"})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if total != 1 {
		t.Errorf("Expected 1 stored record, got %d", total)
	}
}

func TestCreateValidationFailure(t *testing.T) {
	eng, mem := newTestEngine(t)
	registerProducts(t, eng, nil)

	_, err := eng.Create(context.Background(), "products", Request{
		Data: adapter.Record{"price": -1.0},
	})
	if err == nil {
		t.Fatal("Expected validation error, got nil")
	}
	if !IsValidation(err) {
		t.Errorf("Expected validation error kind, got %v", err)
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		if verr.Fields["name"] == "" {
			t.Error("Expected field error for name")
		}
		if verr.Fields["price"] == "" {
			t.Error("Expected field error for price")
		}
	}

	total, _ := mem.Count(context.Background(), adapter.CountParams{Model: "products"})
	if total != 0 {
		t.Errorf("Expected no record written after validation failure, got %d", total)
	}
}

func TestHookOrdering(t *testing.T) {
	var order []string
	hook := func(name string) resource.HookFunc {
		return func(hc *resource.Context) error {
			order = append(order, name)
			return nil
		}
	}

	registry := plugin.NewRegistry()
	if err := registry.Register(&plugin.Plugin{
		ID: "first",
		Hooks: resource.Hooks{
			resource.BeforeCreate: hook("plugin-first-before"),
			resource.AfterCreate:  hook("plugin-first-after"),
		},
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := registry.Register(&plugin.Plugin{
		ID: "second",
		Hooks: resource.Hooks{
			resource.BeforeCreate: hook("plugin-second-before"),
			resource.AfterCreate:  hook("plugin-second-after"),
		},
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	eng, _ := newTestEngine(t, WithPlugins(registry))
	registerProducts(t, eng, &resource.Definition{
		Name: "products",
		Hooks: resource.Hooks{
			resource.BeforeCreate: hook("resource-before"),
			resource.AfterCreate:  hook("resource-after"),
		},
	})

	_, err := eng.Create(context.Background(), "products", Request{
		Data: adapter.Record{"name": "Widget"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	want := []string{
		"plugin-first-before",
		"plugin-second-before",
		"resource-before",
		"resource-after",
		"plugin-first-after",
		"plugin-second-after",
	}
	if len(order) != len(want) {
		t.Fatalf("Expected %d hook calls, got %d: %v", len(want), len(order), order)
	}
	for i, name := range want {
		if order[i] != name {
			t.Errorf("Expected hook %d to be %s, got %s", i, name, order[i])
		}
	}
}

func TestBeforeHookErrorAbortsWrite(t *testing.T) {
	hookErr := errors.New("payload rejected")
	eng, mem := newTestEngine(t)
	registerProducts(t, eng, &resource.Definition{
		Name: "products",
		Hooks: resource.Hooks{
			resource.BeforeCreate: func(hc *resource.Context) error { return hookErr },
		},
	})

	_, err := eng.Create(context.Background(), "products", Request{
		Data: adapter.Record{"name": "Widget"},
	})
	if !errors.Is(err, hookErr) {
		t.Errorf("Expected hook error to pass through unwrapped, got %v", err)
	}

	total, _ := mem.Count(context.Background(), adapter.CountParams{Model: "products"})
	if total != 0 {
		t.Errorf("Expected no record after before hook failure, got %d", total)
	}
}

func TestLegacyAliasPrecedence(t *testing.T) {
	var calls []string
	eng, _ := newTestEngine(t)
	registerProducts(t, eng, &resource.Definition{
		Name: "products",
		Hooks: resource.Hooks{
			resource.BeforeCreate: func(hc *resource.Context) error {
				calls = append(calls, "canonical")
				return nil
			},
			resource.OnCreate: func(hc *resource.Context) error {
				calls = append(calls, "legacy")
				return nil
			},
		},
	})

	_, err := eng.Create(context.Background(), "products", Request{
		Data: adapter.Record{"name": "Widget"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if len(calls) != 1 || calls[0] != "legacy" {
		t.Errorf("Expected only the legacy hook to run, got %v", calls)
	}
}

func TestPermissionDeniedBlocksDelete(t *testing.T) {
	afterRan := false
	eng, mem := newTestEngine(t)
	registerProducts(t, eng, &resource.Definition{
		Name: "products",
		Permissions: map[resource.Operation]resource.PermissionFunc{
			resource.OpDelete: func(hc *resource.Context) (bool, error) {
				return hc.User != nil && hc.User.Role == "admin", nil
			},
		},
		Hooks: resource.Hooks{
			resource.AfterDelete: func(hc *resource.Context) error {
				afterRan = true
				return nil
			},
		},
	})

	created, err := mem.Create(context.Background(), adapter.CreateParams{
		Model: "products",
		Data:  adapter.Record{"name": "Widget"},
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	err = eng.Delete(context.Background(), "products", Request{
		ID:   created["id"],
		User: &resource.Identity{ID: "u1", Role: "viewer"},
	})
	if !IsForbidden(err) {
		t.Fatalf("Expected forbidden error, got %v", err)
	}
	if afterRan {
		t.Error("Expected afterDelete to be skipped on denial")
	}

	total, _ := mem.Count(context.Background(), adapter.CountParams{Model: "products"})
	if total != 1 {
		t.Errorf("Expected record to survive denied delete, got %d records", total)
	}

	err = eng.Delete(context.Background(), "products", Request{
		ID:   created["id"],
		User: &resource.Identity{ID: "u2", Role: "admin"},
	})
	if err != nil {
		t.Fatalf("Delete as admin failed: %v", err)
	}
	if !afterRan {
		t.Error("Expected afterDelete to run on allowed delete")
	}
}

func TestExistingDataBoundBeforePermission(t *testing.T) {
	eng, mem := newTestEngine(t)
	registerProducts(t, eng, &resource.Definition{
		Name: "products",
		Permissions: map[resource.Operation]resource.PermissionFunc{
			resource.OpUpdate: func(hc *resource.Context) (bool, error) {
				if hc.ExistingData == nil {
					return false, errors.New("existing data not bound")
				}
				return hc.ExistingData["userId"] == hc.User.ID, nil
			},
		},
	})

	created, _ := mem.Create(context.Background(), adapter.CreateParams{
		Model: "products",
		Data:  adapter.Record{"name": "Widget", "userId": "owner"},
	})

	_, err := eng.Update(context.Background(), "products", Request{
		ID:   created["id"],
		Data: adapter.Record{"name": "Gadget"},
		User: &resource.Identity{ID: "intruder"},
	})
	if !IsForbidden(err) {
		t.Errorf("Expected forbidden for non-owner, got %v", err)
	}

	out, err := eng.Update(context.Background(), "products", Request{
		ID:   created["id"],
		Data: adapter.Record{"name": "Gadget"},
		User: &resource.Identity{ID: "owner"},
	})
	if err != nil {
		t.Fatalf("Update as owner failed: %v", err)
	}
	if out["name"] != "Gadget" {
		t.Errorf("Expected updated name Gadget, got %v", out["name"])
	}
}

func TestMissingRecordNotFoundBeforePermission(t *testing.T) {
	permissionRan := false
	eng, _ := newTestEngine(t)
	registerProducts(t, eng, &resource.Definition{
		Name: "products",
		Permissions: map[resource.Operation]resource.PermissionFunc{
			resource.OpRead: func(hc *resource.Context) (bool, error) {
				permissionRan = true
				return true, nil
			},
		},
	})

	_, err := eng.Read(context.Background(), "products", Request{ID: "missing"})
	if !IsNotFound(err) {
		t.Fatalf("Expected not found error, got %v", err)
	}
	if IsForbidden(err) {
		t.Error("A missing record must not surface as forbidden")
	}
	if permissionRan {
		t.Error("Expected permission predicate to be skipped for missing record")
	}
}

func TestListPagination(t *testing.T) {
	eng, mem := newTestEngine(t)
	registerProducts(t, eng, nil)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 45; i++ {
		_, err := mem.Create(context.Background(), adapter.CreateParams{
			Model: "products",
			Data: adapter.Record{
				"name":      fmt.Sprintf("item-%02d", i),
				"createdAt": base.Add(time.Duration(i) * time.Minute),
			},
		})
		if err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	out, err := eng.List(context.Background(), "products", Request{
		Query: query.Params{Page: 3, Limit: 20},
	})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(out.Items) != 5 {
		t.Errorf("Expected 5 items on last page, got %d", len(out.Items))
	}
	if out.Pagination.Total != 45 {
		t.Errorf("Expected total 45, got %d", out.Pagination.Total)
	}
	if out.Pagination.Page != 3 || out.Pagination.Limit != 20 || out.Pagination.Offset != 40 {
		t.Errorf("Expected page 3 limit 20 offset 40, got %+v", out.Pagination)
	}

	// Default ordering is createdAt desc, so the last page holds the
	// oldest records.
	if out.Items[len(out.Items)-1]["name"] != "item-00" {
		t.Errorf("Expected oldest record last, got %v", out.Items[len(out.Items)-1]["name"])
	}
}

func TestListSearchAndFilter(t *testing.T) {
	eng, mem := newTestEngine(t)
	registerProducts(t, eng, &resource.Definition{
		Name:   "products",
		Search: &query.SearchConfig{Fields: []string{"name"}},
	})

	seed := []adapter.Record{
		{"name": "red widget", "status": "active"},
		{"name": "blue widget", "status": "draft"},
		{"name": "red gadget", "status": "active"},
	}
	for _, rec := range seed {
		if _, err := mem.Create(context.Background(), adapter.CreateParams{Model: "products", Data: rec}); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	out, err := eng.List(context.Background(), "products", Request{
		Query: query.Params{
			Search: "widget",
			Where:  map[string]interface{}{"status": "active"},
		},
	})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(out.Items) != 1 {
		t.Fatalf("Expected 1 item matching search and filter, got %d", len(out.Items))
	}
	if out.Items[0]["name"] != "red widget" {
		t.Errorf("Expected red widget, got %v", out.Items[0]["name"])
	}
}

func TestSoftDelete(t *testing.T) {
	eng, mem := newTestEngine(t)
	registerProducts(t, eng, &resource.Definition{
		Name:           "products",
		DeleteStrategy: resource.DeleteSoft,
	})

	created, _ := mem.Create(context.Background(), adapter.CreateParams{
		Model: "products",
		Data:  adapter.Record{"name": "Widget"},
	})

	if err := eng.Delete(context.Background(), "products", Request{ID: created["id"]}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	// The row survives in storage with a deletedAt stamp.
	raw, err := mem.FindFirst(context.Background(), adapter.FindParams{
		Model: "products",
		Where: adapter.ByID(created["id"]),
	})
	if err != nil {
		t.Fatalf("FindFirst failed: %v", err)
	}
	if raw == nil {
		t.Fatal("Expected soft-deleted row to remain in storage")
	}
	if raw["deletedAt"] == nil {
		t.Error("Expected deletedAt stamp on soft-deleted row")
	}

	// Reads and lists through the engine no longer see it.
	if _, err := eng.Read(context.Background(), "products", Request{ID: created["id"]}); !IsNotFound(err) {
		t.Errorf("Expected not found after soft delete, got %v", err)
	}
	out, err := eng.List(context.Background(), "products", Request{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(out.Items) != 0 || out.Pagination.Total != 0 {
		t.Errorf("Expected empty list after soft delete, got %d items total %d", len(out.Items), out.Pagination.Total)
	}

	// Deleting it again reports not found.
	if err := eng.Delete(context.Background(), "products", Request{ID: created["id"]}); !IsNotFound(err) {
		t.Errorf("Expected not found on repeat delete, got %v", err)
	}
}

func TestDisabledEndpoint(t *testing.T) {
	eng, _ := newTestEngine(t)
	registerProducts(t, eng, &resource.Definition{
		Name:      "products",
		Endpoints: resource.Endpoints{resource.OpDelete: false},
	})

	err := eng.Delete(context.Background(), "products", Request{ID: "p1"})
	if !IsNotFound(err) {
		t.Errorf("Expected not found for disabled endpoint, got %v", err)
	}

	if _, err := eng.Create(context.Background(), "products", Request{
		Data: adapter.Record{"name": "Widget"},
	}); err != nil {
		t.Errorf("Expected other endpoints to stay enabled, got %v", err)
	}
}

func TestUnknownResource(t *testing.T) {
	eng, _ := newTestEngine(t)
	_, err := eng.Read(context.Background(), "ghosts", Request{ID: "g1"})
	if !IsNotFound(err) {
		t.Errorf("Expected not found for unknown resource, got %v", err)
	}
}

func TestAuditEmission(t *testing.T) {
	sink := audit.NewMemorySink()
	eng, _ := newTestEngine(t, WithAudit(audit.NewLogger(sink)))
	registerProducts(t, eng, nil)

	created, err := eng.Create(context.Background(), "products", Request{
		Data: adapter.Record{"name": "Widget"},
		User: &resource.Identity{ID: "u1", Role: "admin"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := eng.Update(context.Background(), "products", Request{
		ID:   created["id"],
		Data: adapter.Record{"name": "Gadget"},
		User: &resource.Identity{ID: "u1", Role: "admin"},
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	events := sink.Events()
	if len(events) != 2 {
		t.Fatalf("Expected 2 audit events, got %d", len(events))
	}

	if events[0].Operation != resource.OpCreate || events[0].UserID != "u1" {
		t.Errorf("Unexpected create event: %+v", events[0])
	}
	update := events[1]
	if update.Operation != resource.OpUpdate {
		t.Errorf("Expected update event, got %s", update.Operation)
	}
	if update.DataBefore["name"] != "Widget" || update.DataAfter["name"] != "Gadget" {
		t.Errorf("Expected before/after snapshots, got %v -> %v", update.DataBefore, update.DataAfter)
	}
	found := false
	for _, f := range update.Changed {
		if f == "name" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected name in changed fields, got %v", update.Changed)
	}
}

type failingSink struct{}

func (failingSink) Write(ctx context.Context, event *audit.Event) error {
	return errors.New("sink unavailable")
}
func (failingSink) Close() error { return nil }

func TestAuditFailureDoesNotFailOperation(t *testing.T) {
	eng, _ := newTestEngine(t, WithAudit(audit.NewLogger(failingSink{})))
	registerProducts(t, eng, nil)

	out, err := eng.Create(context.Background(), "products", Request{
		Data: adapter.Record{"name": "Widget"},
	})
	if err != nil {
		t.Fatalf("Expected operation to succeed despite sink failure, got %v", err)
	}
	if out["name"] != "Widget" {
		t.Errorf("Expected created record, got %v", out)
	}
}

func TestCountCacheInvalidation(t *testing.T) {
	provider := cache.NewMemoryProvider(nil)
	counts := cache.NewCountCache(provider, time.Minute)
	eng, mem := newTestEngine(t, WithCountCache(counts))
	registerProducts(t, eng, nil)

	for i := 0; i < 3; i++ {
		if _, err := mem.Create(context.Background(), adapter.CreateParams{
			Model: "products",
			Data:  adapter.Record{"name": fmt.Sprintf("item-%d", i)},
		}); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	out, err := eng.List(context.Background(), "products", Request{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if out.Pagination.Total != 3 {
		t.Fatalf("Expected total 3, got %d", out.Pagination.Total)
	}

	// Second list serves the total from cache.
	out, err = eng.List(context.Background(), "products", Request{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if out.Pagination.Total != 3 {
		t.Errorf("Expected cached total 3, got %d", out.Pagination.Total)
	}

	// A create invalidates the model's cached totals.
	if _, err := eng.Create(context.Background(), "products", Request{
		Data: adapter.Record{"name": "item-3"},
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	out, err = eng.List(context.Background(), "products", Request{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if out.Pagination.Total != 4 {
		t.Errorf("Expected total 4 after invalidation, got %d", out.Pagination.Total)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewRateLimiter(1, 2)
	eng, _ := newTestEngine(t, WithMiddleware(limiter.Middleware()))
	registerProducts(t, eng, nil)

	user := &resource.Identity{ID: "u1"}
	for i := 0; i < 2; i++ {
		if _, err := eng.Create(context.Background(), "products", Request{
			Data: adapter.Record{"name": fmt.Sprintf("item-%d", i)},
			User: user,
		}); err != nil {
			t.Fatalf("Expected request %d within burst to pass, got %v", i, err)
		}
	}

	_, err := eng.Create(context.Background(), "products", Request{
		Data: adapter.Record{"name": "over-budget"},
		User: user,
	})
	if !IsRateLimited(err) {
		t.Errorf("Expected rate limit rejection, got %v", err)
	}

	// Another user has their own bucket.
	if _, err := eng.Create(context.Background(), "products", Request{
		Data: adapter.Record{"name": "other"},
		User: &resource.Identity{ID: "u2"},
	}); err != nil {
		t.Errorf("Expected separate bucket per user, got %v", err)
	}
}

func TestExecuteCustomOperation(t *testing.T) {
	eng, mem := newTestEngine(t)
	mem.RegisterCustomOperation("bulkArchive", func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		return len(params), nil
	})

	out, err := eng.ExecuteCustom(context.Background(), "bulkArchive", map[string]interface{}{"before": "2026-01-01"})
	if err != nil {
		t.Fatalf("ExecuteCustom failed: %v", err)
	}
	if out != 1 {
		t.Errorf("Expected 1, got %v", out)
	}

	_, err = eng.ExecuteCustom(context.Background(), "missing", nil)
	if !errors.Is(err, adapter.ErrCustomOperationNotFound) {
		t.Errorf("Expected ErrCustomOperationNotFound, got %v", err)
	}
}

func TestDuplicateResourceRegistration(t *testing.T) {
	eng, _ := newTestEngine(t)
	registerProducts(t, eng, nil)

	err := eng.RegisterResource(&resource.Definition{Name: "products", Schema: productSchema()})
	if err == nil {
		t.Error("Expected duplicate registration to fail")
	}
}
