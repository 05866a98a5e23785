package audit

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/bitechdev/ResourceSpec/pkg/adapter"
	"github.com/bitechdev/ResourceSpec/pkg/resource"
)

type failingSink struct{}

func (failingSink) Write(ctx context.Context, event *Event) error {
	return errors.New("sink down")
}

func (failingSink) Close() error { return nil }

func TestLoggerEnabledOperations(t *testing.T) {
	sink := NewMemorySink()
	l := NewLogger(sink)

	l.Log(context.Background(), &Event{Resource: "product", Operation: resource.OpCreate})
	l.Log(context.Background(), &Event{Resource: "product", Operation: resource.OpList})
	l.Log(context.Background(), &Event{Resource: "product", Operation: resource.OpRead})

	events := sink.Events()
	if len(events) != 1 {
		t.Fatalf("Expected only the create audited by default, got %d", len(events))
	}
	if events[0].Operation != resource.OpCreate {
		t.Errorf("Expected create event, got %s", events[0].Operation)
	}
}

func TestLoggerCustomOperations(t *testing.T) {
	sink := NewMemorySink()
	l := NewLogger(sink, resource.OpRead)

	l.Log(context.Background(), &Event{Resource: "product", Operation: resource.OpRead})
	l.Log(context.Background(), &Event{Resource: "product", Operation: resource.OpCreate})

	if len(sink.Events()) != 1 {
		t.Errorf("Expected only read audited, got %d events", len(sink.Events()))
	}
}

func TestLoggerStampsEvent(t *testing.T) {
	sink := NewMemorySink()
	l := NewLogger(sink)

	l.Log(context.Background(), &Event{Resource: "product", Operation: resource.OpUpdate})

	event := sink.Events()[0]
	if event.ID == "" {
		t.Error("Expected generated event id")
	}
	if event.Timestamp.IsZero() {
		t.Error("Expected timestamp stamped")
	}
}

func TestLoggerSwallowsSinkErrors(t *testing.T) {
	l := NewLogger(failingSink{})

	// must not panic or propagate
	l.Log(context.Background(), &Event{Resource: "product", Operation: resource.OpDelete})
}

func TestLoggerNilSafe(t *testing.T) {
	var l *Logger
	if l.Enabled(resource.OpCreate) {
		t.Error("Expected nil logger to be disabled")
	}
	l.Log(context.Background(), &Event{Operation: resource.OpCreate})
	l.LogFromContext(&resource.Context{Operation: resource.OpCreate}, nil, nil)
}

func TestLogFromContext(t *testing.T) {
	sink := NewMemorySink()
	l := NewLogger(sink)

	hc := &resource.Context{
		User:      &resource.Identity{ID: "user-1", Role: "admin"},
		Resource:  "product",
		Operation: resource.OpUpdate,
		ID:        "42",
		Request: &resource.RequestMeta{
			Headers:   map[string]string{"user-agent": "cli/1.0", "x-forwarded-for": "10.0.0.9"},
			RequestID: "req-7",
		},
	}

	before := adapter.Record{"name": "Old", "price": 1.0}
	after := adapter.Record{"name": "New", "price": 1.0}
	l.LogFromContext(hc, before, after)

	events := sink.Events()
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.UserID != "user-1" || e.UserRole != "admin" {
		t.Errorf("Expected user identity captured, got %+v", e)
	}
	if e.RecordID != "42" {
		t.Errorf("Expected record id 42, got %v", e.RecordID)
	}
	if e.IPAddress != "10.0.0.9" {
		t.Errorf("Expected forwarded ip, got %s", e.IPAddress)
	}
	if e.UserAgent != "cli/1.0" {
		t.Errorf("Expected user agent, got %s", e.UserAgent)
	}
	if e.Metadata["request_id"] != "req-7" {
		t.Errorf("Expected request id metadata, got %v", e.Metadata)
	}
	if !reflect.DeepEqual(e.Changed, []string{"name"}) {
		t.Errorf("Expected changed fields [name], got %v", e.Changed)
	}
}

func TestChangedFields(t *testing.T) {
	tests := []struct {
		name   string
		before adapter.Record
		after  adapter.Record
		want   []string
	}{
		{"NoChange", adapter.Record{"a": 1}, adapter.Record{"a": 1}, nil},
		{"ValueChanged", adapter.Record{"a": 1}, adapter.Record{"a": 2}, []string{"a"}},
		{"FieldAdded", adapter.Record{"a": 1}, adapter.Record{"a": 1, "b": 2}, []string{"b"}},
		{"FieldRemoved", adapter.Record{"a": 1, "b": 2}, adapter.Record{"a": 1}, []string{"b"}},
		{"CreateOnly", nil, adapter.Record{"a": 1, "b": 2}, []string{"a", "b"}},
		{"DeleteOnly", adapter.Record{"a": 1, "b": 2}, nil, []string{"a", "b"}},
		{"BothNil", nil, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChangedFields(tt.before, tt.after)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ChangedFields: got %v, want %v", got, tt.want)
			}
			for _, field := range got {
				if field == "" {
					t.Errorf("ChangedFields emitted an empty field name: %v", got)
				}
			}
		})
	}
}

func TestRedaction(t *testing.T) {
	sink := NewMemorySink()
	l := NewLogger(sink)
	l.Redact = []string{"password"}

	l.Log(context.Background(), &Event{
		Resource:  "user",
		Operation: resource.OpCreate,
		DataAfter: adapter.Record{"name": "a", "password": "hunter2"},
	})

	event := sink.Events()[0]
	if event.DataAfter["password"] != "[redacted]" {
		t.Errorf("Expected password redacted, got %v", event.DataAfter["password"])
	}
	if event.DataAfter["name"] != "a" {
		t.Errorf("Expected other fields intact, got %v", event.DataAfter)
	}
}
