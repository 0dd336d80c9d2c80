package models

import (
	"fmt"
	"sort"
	"time"
)

// PropertyKind identifies the concrete storage type of a property. The
// set of kinds is a closed enumeration: every kind is registered once
// at package init and unknown kinds are rejected at construction time.
type PropertyKind string

const (
	KindString      PropertyKind = "string"
	KindLargeString PropertyKind = "largestring"
	KindInteger     PropertyKind = "integer"
	KindLong        PropertyKind = "long"
	KindFloat       PropertyKind = "float"
	KindDouble      PropertyKind = "double"
	KindBoolean     PropertyKind = "boolean"
	KindDate        PropertyKind = "date"
	KindList        PropertyKind = "list"
)

// Property is a single named value (or ordered list of values) attached
// to one object.
type Property interface {
	Name() string
	Kind() PropertyKind
	Value() any
	SetValue(v any) error
	Clone() Property
}

type factory func(name string) Property

var kindRegistry = map[PropertyKind]factory{}

func registerKind(kind PropertyKind, f factory) {
	if _, dup := kindRegistry[kind]; dup {
		panic(fmt.Sprintf("property kind %q registered twice", kind))
	}
	kindRegistry[kind] = f
}

func init() {
	registerKind(KindString, func(name string) Property { return &StringProperty{name: name} })
	registerKind(KindLargeString, func(name string) Property { return &LargeStringProperty{name: name} })
	registerKind(KindInteger, func(name string) Property { return &IntegerProperty{name: name, kind: KindInteger} })
	registerKind(KindLong, func(name string) Property { return &IntegerProperty{name: name, kind: KindLong} })
	registerKind(KindBoolean, func(name string) Property { return &IntegerProperty{name: name, kind: KindBoolean} })
	registerKind(KindFloat, func(name string) Property { return &FloatProperty{name: name, kind: KindFloat} })
	registerKind(KindDouble, func(name string) Property { return &FloatProperty{name: name, kind: KindDouble} })
	registerKind(KindDate, func(name string) Property { return &DateProperty{name: name} })
	registerKind(KindList, func(name string) Property { return &ListProperty{name: name} })
}

// NewProperty builds an empty property of the given kind.
func NewProperty(kind PropertyKind, name string) (Property, error) {
	f, ok := kindRegistry[kind]
	if !ok {
		return nil, fmt.Errorf("unknown property kind %q", kind)
	}
	return f(name), nil
}

// Kinds lists every registered kind, sorted.
func Kinds() []PropertyKind {
	out := make([]PropertyKind, 0, len(kindRegistry))
	for k := range kindRegistry {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// StringProperty holds a short string, stored in the short-string table.
type StringProperty struct {
	name string
	Val  string
}

func (p *StringProperty) Name() string       { return p.name }
func (p *StringProperty) Kind() PropertyKind { return KindString }
func (p *StringProperty) Value() any         { return p.Val }

func (p *StringProperty) SetValue(v any) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("property %q: want string, got %T", p.name, v)
	}
	p.Val = s
	return nil
}

func (p *StringProperty) Clone() Property {
	c := *p
	return &c
}

// LargeStringProperty holds an unbounded string (text column). It is
// deliberately a distinct type from StringProperty: the two are stored
// in different tables and the store recovers from historical rows that
// sit in the wrong one.
type LargeStringProperty struct {
	name string
	Val  string
}

func (p *LargeStringProperty) Name() string       { return p.name }
func (p *LargeStringProperty) Kind() PropertyKind { return KindLargeString }
func (p *LargeStringProperty) Value() any         { return p.Val }

func (p *LargeStringProperty) SetValue(v any) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("property %q: want string, got %T", p.name, v)
	}
	p.Val = s
	return nil
}

func (p *LargeStringProperty) Clone() Property {
	c := *p
	return &c
}

// IntegerProperty backs the integer, long and boolean kinds; booleans
// store as 0/1 in the integer table.
type IntegerProperty struct {
	name string
	kind PropertyKind
	Val  int64
}

func (p *IntegerProperty) Name() string       { return p.name }
func (p *IntegerProperty) Kind() PropertyKind { return p.kind }
func (p *IntegerProperty) Value() any {
	if p.kind == KindBoolean {
		return p.Val != 0
	}
	return p.Val
}

func (p *IntegerProperty) SetValue(v any) error {
	switch x := v.(type) {
	case int:
		p.Val = int64(x)
	case int32:
		p.Val = int64(x)
	case int64:
		p.Val = x
	case bool:
		if x {
			p.Val = 1
		} else {
			p.Val = 0
		}
	default:
		return fmt.Errorf("property %q: want integer, got %T", p.name, v)
	}
	return nil
}

func (p *IntegerProperty) Clone() Property {
	c := *p
	return &c
}

// FloatProperty backs the float and double kinds.
type FloatProperty struct {
	name string
	kind PropertyKind
	Val  float64
}

func (p *FloatProperty) Name() string       { return p.name }
func (p *FloatProperty) Kind() PropertyKind { return p.kind }
func (p *FloatProperty) Value() any         { return p.Val }

func (p *FloatProperty) SetValue(v any) error {
	switch x := v.(type) {
	case float32:
		p.Val = float64(x)
	case float64:
		p.Val = x
	case int:
		p.Val = float64(x)
	default:
		return fmt.Errorf("property %q: want float, got %T", p.name, v)
	}
	return nil
}

func (p *FloatProperty) Clone() Property {
	c := *p
	return &c
}

// DateProperty holds a timestamp.
type DateProperty struct {
	name string
	Val  time.Time
}

func (p *DateProperty) Name() string       { return p.name }
func (p *DateProperty) Kind() PropertyKind { return KindDate }
func (p *DateProperty) Value() any         { return p.Val }

func (p *DateProperty) SetValue(v any) error {
	t, ok := v.(time.Time)
	if !ok {
		return fmt.Errorf("property %q: want time.Time, got %T", p.name, v)
	}
	p.Val = t
	return nil
}

func (p *DateProperty) Clone() Property {
	c := *p
	return &c
}

// ListProperty holds an ordered list of strings, one row per item in
// the list-item table. The list is always fully materialized in memory;
// there is no lazy window onto the stored rows.
type ListProperty struct {
	name string
	Vals []string
}

func (p *ListProperty) Name() string       { return p.name }
func (p *ListProperty) Kind() PropertyKind { return KindList }
func (p *ListProperty) Value() any         { return p.Vals }

func (p *ListProperty) SetValue(v any) error {
	switch x := v.(type) {
	case []string:
		p.Vals = append([]string(nil), x...)
	case string:
		// Single value folded into a one-element list; this is how
		// values survive a single-valued to multi-valued migration.
		p.Vals = []string{x}
	default:
		return fmt.Errorf("property %q: want []string, got %T", p.name, v)
	}
	return nil
}

func (p *ListProperty) Clone() Property {
	c := &ListProperty{name: p.name, Vals: append([]string(nil), p.Vals...)}
	return c
}

// ScalarString renders any property value as its canonical string form,
// used when converting between storage kinds.
func ScalarString(p Property) string {
	switch v := p.Value().(type) {
	case string:
		return v
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int64:
		return fmt.Sprintf("%d", v)
	case float64:
		return fmt.Sprintf("%g", v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case []string:
		if len(v) == 0 {
			return ""
		}
		return v[0]
	default:
		return fmt.Sprintf("%v", v)
	}
}
