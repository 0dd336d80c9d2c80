package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("already exists")
	ErrValidation = errors.New("validation failed")
)

// StoreError wraps any persistence failure with the operation that was
// running and the entity it was running on. Backend driver errors never
// leave the store layer undressed.
type StoreError struct {
	Op     string // operation name, e.g. "save document"
	Entity string // full name of the document/object/class involved
	Err    error
}

func (e *StoreError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Entity, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError wraps err; a nil err yields nil so callers can wrap
// unconditionally on their return path.
func NewStoreError(op, entity string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Entity: entity, Err: err}
}

// InvalidMappingError indicates a custom class mapping that failed
// column/type validation. The previous catalog stays usable.
type InvalidMappingError struct {
	ClassName string
	Reason    string
}

func (e *InvalidMappingError) Error() string {
	return fmt.Sprintf("invalid custom mapping for class %q: %s", e.ClassName, e.Reason)
}

// MappingInjectionError indicates a failure while provisioning the
// dedicated table or rebuilding the mapping catalog.
type MappingInjectionError struct {
	ClassName string
	Err       error
}

func (e *MappingInjectionError) Error() string {
	return fmt.Sprintf("inject custom mapping for class %q: %v", e.ClassName, e.Err)
}

func (e *MappingInjectionError) Unwrap() error { return e.Err }

// PropertyLoadError names everything needed to find the row that could
// not be loaded: the owning document, class, object number and property.
type PropertyLoadError struct {
	Document string
	Class    string
	Number   int
	Property string
	Err      error
}

func (e *PropertyLoadError) Error() string {
	return fmt.Sprintf("load property %q of object %s#%d (class %s): %v",
		e.Property, e.Document, e.Number, e.Class, e.Err)
}

func (e *PropertyLoadError) Unwrap() error { return e.Err }
