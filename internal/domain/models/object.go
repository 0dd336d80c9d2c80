package models

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Object is a numbered instance of a class attached to a document: a
// collection of named properties.
type Object struct {
	DocumentName string // full name of the owning document
	ClassName    string
	Number       int
	GUID         string

	fields         map[string]Property
	fieldsToRemove []string
}

// NewObject builds an empty object.
func NewObject(documentName, className string, number int) *Object {
	return &Object{
		DocumentName: documentName,
		ClassName:    className,
		Number:       number,
		GUID:         uuid.NewString(),
		fields:       map[string]Property{},
	}
}

// ID derives the object's stable numeric identity from its owning
// document, class and number.
func (o *Object) ID() int64 {
	return HashID(fmt.Sprintf("%s:%s:%d", o.DocumentName, o.ClassName, o.Number))
}

// SetField indexes the property under its own name.
func (o *Object) SetField(p Property) {
	if o.fields == nil {
		o.fields = map[string]Property{}
	}
	o.fields[p.Name()] = p
}

// Field returns the named property, or nil.
func (o *Object) Field(name string) Property { return o.fields[name] }

// FieldNames lists present field names, sorted.
func (o *Object) FieldNames() []string {
	out := make([]string, 0, len(o.fields))
	for n := range o.fields {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// RemoveField journals a property for removal at the next save.
func (o *Object) RemoveField(name string) {
	if _, ok := o.fields[name]; !ok {
		return
	}
	delete(o.fields, name)
	o.fieldsToRemove = append(o.fieldsToRemove, name)
}

// FieldsToRemove exposes the pending removal journal.
func (o *Object) FieldsToRemove() []string { return o.fieldsToRemove }

// ClearFieldsToRemove drains the journal after a save has applied it.
func (o *Object) ClearFieldsToRemove() { o.fieldsToRemove = nil }

// Validate checks the indexing invariant: every property must be keyed
// under its own declared name. A mismatch means corrupted in-memory
// state and is fatal to the save.
func (o *Object) Validate() error {
	for key, p := range o.fields {
		if p.Name() != key {
			return fmt.Errorf("object %s#%d (class %s): property indexed as %q declares name %q",
				o.DocumentName, o.Number, o.ClassName, key, p.Name())
		}
	}
	return nil
}

// Clone deep-copies the object, journal excluded.
func (o *Object) Clone() *Object {
	out := &Object{
		DocumentName: o.DocumentName,
		ClassName:    o.ClassName,
		Number:       o.Number,
		GUID:         o.GUID,
		fields:       make(map[string]Property, len(o.fields)),
	}
	for n, p := range o.fields {
		out.fields[n] = p.Clone()
	}
	return out
}
