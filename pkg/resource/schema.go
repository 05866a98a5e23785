package resource

import (
	"fmt"
	"time"

	"github.com/bitechdev/ResourceSpec/pkg/adapter"
)

// FieldKind is the declared type of a schema field.
type FieldKind string

const (
	KindString FieldKind = "string"
	KindInt    FieldKind = "int"
	KindFloat  FieldKind = "float"
	KindBool   FieldKind = "bool"
	KindTime   FieldKind = "time"
	KindAny    FieldKind = "any"
)

// Field declares one schema field.
type Field struct {
	Name     string
	Kind     FieldKind
	Required bool

	// Default is applied when the field is absent from the payload.
	Default interface{}

	// Min is the lower bound for int/float fields.
	Min *float64
}

// Min returns a pointer suitable for Field.Min.
func Min(v float64) *float64 {
	return &v
}

// Schema is the structural validator for a resource. The canonical
// record shape is id, the declared fields, createdAt and updatedAt;
// the id and timestamp fields are engine-managed and not declared.
type Schema struct {
	Fields []Field
}

// NewSchema builds a schema from field declarations.
func NewSchema(fields ...Field) *Schema {
	return &Schema{Fields: fields}
}

// Validate checks data against the schema, applying defaults for
// absent optional fields. It returns field-level error messages,
// empty when the payload is valid. Data is mutated in place so before
// hooks and validation see the same record.
func (s *Schema) Validate(data adapter.Record) map[string]string {
	errs := make(map[string]string)
	if s == nil {
		return errs
	}

	for _, f := range s.Fields {
		value, present := data[f.Name]
		if !present || value == nil {
			if f.Default != nil {
				data[f.Name] = f.Default
				continue
			}
			if f.Required {
				errs[f.Name] = "is required"
			}
			continue
		}

		if msg := checkKind(f, value); msg != "" {
			errs[f.Name] = msg
		}
	}

	return errs
}

// ValidatePartial checks only the fields present in data, for update
// payloads where absent fields keep their stored values. Required
// checks and defaults do not apply.
func (s *Schema) ValidatePartial(data adapter.Record) map[string]string {
	errs := make(map[string]string)
	if s == nil {
		return errs
	}

	for _, f := range s.Fields {
		value, present := data[f.Name]
		if !present || value == nil {
			continue
		}
		if msg := checkKind(f, value); msg != "" {
			errs[f.Name] = msg
		}
	}
	return errs
}

func checkKind(f Field, value interface{}) string {
	switch f.Kind {
	case KindString:
		if _, ok := value.(string); !ok {
			return fmt.Sprintf("must be a string, got %T", value)
		}
	case KindInt:
		n, ok := asFloat(value)
		if !ok || n != float64(int64(n)) {
			return fmt.Sprintf("must be an integer, got %v", value)
		}
		if f.Min != nil && n < *f.Min {
			return fmt.Sprintf("must be at least %v", *f.Min)
		}
	case KindFloat:
		n, ok := asFloat(value)
		if !ok {
			return fmt.Sprintf("must be a number, got %T", value)
		}
		if f.Min != nil && n < *f.Min {
			return fmt.Sprintf("must be at least %v", *f.Min)
		}
	case KindBool:
		if _, ok := value.(bool); !ok {
			return fmt.Sprintf("must be a boolean, got %T", value)
		}
	case KindTime:
		switch v := value.(type) {
		case time.Time:
		case string:
			if _, err := time.Parse(time.RFC3339, v); err != nil {
				return "must be an RFC3339 timestamp"
			}
		default:
			return fmt.Sprintf("must be a timestamp, got %T", value)
		}
	case KindAny, "":
	}
	return ""
}

// asFloat widens the numeric types JSON decoding and Go literals
// produce into float64 for range checks.
func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}
