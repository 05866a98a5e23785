package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bitechdev/ResourceSpec/pkg/adapter"
	"github.com/bitechdev/ResourceSpec/pkg/logger"
	"github.com/bitechdev/ResourceSpec/pkg/resource"
)

// Event is one structured audit record for a mutation operation.
type Event struct {
	ID         string                 `json:"id"`
	UserID     string                 `json:"user_id,omitempty"`
	UserRole   string                 `json:"user_role,omitempty"`
	Resource   string                 `json:"resource"`
	Operation  resource.Operation     `json:"operation"`
	RecordID   interface{}            `json:"record_id,omitempty"`
	DataBefore adapter.Record         `json:"data_before,omitempty"`
	DataAfter  adapter.Record         `json:"data_after,omitempty"`
	Changed    []string               `json:"changed_fields,omitempty"`
	IPAddress  string                 `json:"ip_address,omitempty"`
	UserAgent  string                 `json:"user_agent,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Logger writes audit events to a sink for an enabled set of
// operations. Sink failures are logged and swallowed; an audit
// failure never fails the underlying operation.
type Logger struct {
	sink    Sink
	enabled map[resource.Operation]bool

	// Redact lists field names scrubbed from before/after snapshots.
	Redact []string
}

// NewLogger creates an audit logger over the given sink. With no
// explicit operations the mutation set create/update/delete is used.
func NewLogger(sink Sink, operations ...resource.Operation) *Logger {
	if len(operations) == 0 {
		operations = []resource.Operation{resource.OpCreate, resource.OpUpdate, resource.OpDelete}
	}
	enabled := make(map[resource.Operation]bool, len(operations))
	for _, op := range operations {
		enabled[op] = true
	}
	return &Logger{sink: sink, enabled: enabled}
}

// Enabled reports whether the operation kind is audited.
func (l *Logger) Enabled(op resource.Operation) bool {
	return l != nil && l.sink != nil && l.enabled[op]
}

// Log stamps and writes the event. No-op when the sink is absent or
// the operation is not enabled.
func (l *Logger) Log(ctx context.Context, event *Event) {
	if event == nil || !l.Enabled(event.Operation) {
		return
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	event.Timestamp = time.Now()
	event.DataBefore = redactRecord(event.DataBefore, l.Redact)
	event.DataAfter = redactRecord(event.DataAfter, l.Redact)
	if event.Changed == nil {
		event.Changed = ChangedFields(event.DataBefore, event.DataAfter)
	}

	if err := l.sink.Write(ctx, event); err != nil {
		logger.Error("Audit sink failed for %s.%s: %v", event.Resource, event.Operation, err)
	}
}

// LogFromContext derives an event from an operation context and
// writes it.
func (l *Logger) LogFromContext(hc *resource.Context, before, after adapter.Record) {
	if hc == nil || !l.Enabled(hc.Operation) {
		return
	}

	event := &Event{
		Resource:   hc.Resource,
		Operation:  hc.Operation,
		RecordID:   hc.ID,
		DataBefore: before,
		DataAfter:  after,
		Metadata:   map[string]interface{}{},
	}
	if hc.User != nil {
		event.UserID = hc.User.ID
		event.UserRole = hc.User.Role
	}
	if req := hc.Request; req != nil {
		event.IPAddress = req.IP
		if event.IPAddress == "" {
			event.IPAddress = req.Header("x-forwarded-for")
		}
		event.UserAgent = req.Header("user-agent")
		if req.RequestID != "" {
			event.Metadata["request_id"] = req.RequestID
		}
		if event.UserAgent != "" {
			event.Metadata["user_agent"] = event.UserAgent
		}
	}

	l.Log(hc.Ctx(), event)
}
