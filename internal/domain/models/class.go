package models

import (
	"encoding/xml"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// FieldDescriptor declares one property of a class: its name, its
// storage kind, and whether a list-kind field accepts multiple values.
type FieldDescriptor struct {
	Name        string       `xml:"name,attr" yaml:"name"`
	Kind        PropertyKind `xml:"kind,attr" yaml:"kind"`
	MultiSelect bool         `xml:"multiSelect,attr,omitempty" yaml:"multi_select,omitempty"`
}

// StorageKind resolves the concrete kind a fresh property of this field
// would use. A multi-select field always stores as a list regardless of
// its declared kind.
func (f *FieldDescriptor) StorageKind() PropertyKind {
	if f.MultiSelect {
		return KindList
	}
	return f.Kind
}

// NewProperty builds an empty property shaped for this field.
func (f *FieldDescriptor) NewProperty() (Property, error) {
	return NewProperty(f.StorageKind(), f.Name)
}

// ColumnSpec is one column of a custom mapping: which declared property
// it stores and the SQL type of the column.
type ColumnSpec struct {
	Property string `yaml:"property"`
	Name     string `yaml:"column"`
	Type     string `yaml:"type"`
}

// CustomMapping routes a class's properties into a dedicated table
// instead of the generic per-kind property tables. Declarations are
// authored as a small YAML fragment attached to the class.
type CustomMapping struct {
	Table   string       `yaml:"table"`
	Columns []ColumnSpec `yaml:"columns"`
}

// ParseCustomMapping decodes a mapping declaration.
func ParseCustomMapping(src []byte) (*CustomMapping, error) {
	var m CustomMapping
	if err := yaml.Unmarshal(src, &m); err != nil {
		return nil, fmt.Errorf("parse custom mapping: %w", err)
	}
	return &m, nil
}

// Column returns the column mapped to the given property, if any.
func (m *CustomMapping) Column(property string) (ColumnSpec, bool) {
	for _, c := range m.Columns {
		if c.Property == property {
			return c, true
		}
	}
	return ColumnSpec{}, false
}

// MappedProperties lists the property names the mapping covers, sorted.
func (m *CustomMapping) MappedProperties() []string {
	out := make([]string, 0, len(m.Columns))
	for _, c := range m.Columns {
		out = append(out, c.Property)
	}
	sort.Strings(out)
	return out
}

// Class is the schema descriptor for a document's objects: a named set
// of field declarations. When the class belongs to a document, its name
// is the document's full name.
type Class struct {
	Name          string
	Fields        map[string]*FieldDescriptor
	CustomMapping *CustomMapping
	// CustomClass names an alternate physical row shape for objects of
	// this class. Deletes consult it: rows are always generic-shaped.
	CustomClass string

	fieldsToRemove []string
}

// NewClass builds an empty class.
func NewClass(name string) *Class {
	return &Class{Name: name, Fields: map[string]*FieldDescriptor{}}
}

// AddField declares or replaces a field.
func (c *Class) AddField(f *FieldDescriptor) {
	if c.Fields == nil {
		c.Fields = map[string]*FieldDescriptor{}
	}
	c.Fields[f.Name] = f
}

// RemoveField journals a field for removal. The stored values are only
// touched at the next save; until then a reload still sees the field.
func (c *Class) RemoveField(name string) {
	if _, ok := c.Fields[name]; !ok {
		return
	}
	delete(c.Fields, name)
	c.fieldsToRemove = append(c.fieldsToRemove, name)
}

// FieldsToRemove exposes the pending removal journal.
func (c *Class) FieldsToRemove() []string { return c.fieldsToRemove }

// ClearFieldsToRemove drains the journal after a save has applied it.
func (c *Class) ClearFieldsToRemove() { c.fieldsToRemove = nil }

// FieldNames lists declared field names, sorted.
func (c *Class) FieldNames() []string {
	out := make([]string, 0, len(c.Fields))
	for n := range c.Fields {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Empty reports whether the class declares nothing.
func (c *Class) Empty() bool { return len(c.Fields) == 0 }

// NewObject builds an object conforming to this class with every field
// present and empty.
func (c *Class) NewObject(documentName string, number int) (*Object, error) {
	obj := NewObject(documentName, c.Name, number)
	for _, name := range c.FieldNames() {
		p, err := c.Fields[name].NewProperty()
		if err != nil {
			return nil, err
		}
		obj.SetField(p)
	}
	return obj, nil
}

// Clone deep-copies the class, journal excluded.
func (c *Class) Clone() *Class {
	out := NewClass(c.Name)
	out.CustomClass = c.CustomClass
	for n, f := range c.Fields {
		cp := *f
		out.Fields[n] = &cp
	}
	if c.CustomMapping != nil {
		m := CustomMapping{Table: c.CustomMapping.Table, Columns: append([]ColumnSpec(nil), c.CustomMapping.Columns...)}
		out.CustomMapping = &m
	}
	return out
}

type xmlClass struct {
	XMLName xml.Name          `xml:"class"`
	Name    string            `xml:"name,attr"`
	Custom  string            `xml:"customClass,attr,omitempty"`
	Fields  []FieldDescriptor `xml:"field"`
}

// MarshalXML serializes the class to the form stored on the document
// row. Fields are emitted in name order so the output is stable.
func (c *Class) MarshalXML() (string, error) {
	x := xmlClass{Name: c.Name, Custom: c.CustomClass}
	for _, n := range c.FieldNames() {
		x.Fields = append(x.Fields, *c.Fields[n])
	}
	b, err := xml.Marshal(x)
	if err != nil {
		return "", fmt.Errorf("marshal class %q: %w", c.Name, err)
	}
	return string(b), nil
}

// ParseClassXML rebuilds a class from its stored form.
func ParseClassXML(src string) (*Class, error) {
	var x xmlClass
	if err := xml.Unmarshal([]byte(src), &x); err != nil {
		return nil, fmt.Errorf("parse class xml: %w", err)
	}
	c := NewClass(x.Name)
	c.CustomClass = x.Custom
	for i := range x.Fields {
		f := x.Fields[i]
		c.AddField(&f)
	}
	return c, nil
}
