package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bitechdev/ResourceSpec/pkg/resource"
)

// ValidationError reports schema validation failures with field-level
// detail. The write was never applied.
type ValidationError struct {
	Resource string
	Fields   map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+" "+msg)
	}
	sort.Strings(parts)
	return fmt.Sprintf("validation failed for %s: %s", e.Resource, strings.Join(parts, "; "))
}

// ForbiddenError reports a permission predicate denial. No mutating
// hook or adapter call has happened.
type ForbiddenError struct {
	Resource  string
	Operation resource.Operation
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("operation %s on %s is forbidden", e.Operation, e.Resource)
}

// NotFoundError reports that an id did not resolve to an existing
// record, or that the operation is disabled for the resource.
type NotFoundError struct {
	Resource string
	ID       interface{}
}

func (e *NotFoundError) Error() string {
	if e.ID == nil {
		return fmt.Sprintf("resource %s not found", e.Resource)
	}
	return fmt.Sprintf("%s with id %v not found", e.Resource, e.ID)
}

// IsValidation reports whether err is a schema validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsForbidden reports whether err is a permission denial.
func IsForbidden(err error) bool {
	var f *ForbiddenError
	return errors.As(err, &f)
}

// IsNotFound reports whether err is a missing-record failure.
func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}
