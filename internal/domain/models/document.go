package models

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
	"time"
)

// HashID derives a stable numeric identity from a string key. Document
// and object ids are pure functions of their qualified names, so two
// processes agree on the row id without coordination.
func HashID(key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int64(h.Sum64())
}

// DocumentID derives a document's row id from its full name and locale.
func DocumentID(fullName, locale string) int64 {
	return HashID(fullName + ":" + locale)
}

// Document is one wiki page: content, metadata, its class descriptor,
// its named collections of objects, and its attachment list.
type Document struct {
	ID     int64
	Space  string
	Name   string
	Locale string

	Title         string
	Content       string
	Author        string
	ContentAuthor string
	Creator       string
	Parent        string
	Version       string
	Date          time.Time
	ContentDate   time.Time
	CreationDate  time.Time

	// ContentDirty/MetaDataDirty drive version advancement and
	// archival on save.
	ContentDirty  bool
	MetaDataDirty bool

	// HasAttachments/HasObjects are stored flags that spare the load
	// path needless child queries.
	HasAttachments bool
	HasObjects     bool

	// IsNew marks a document with no stored row yet: set by the
	// constructor and by the "no such document" outcome of a load,
	// cleared once a row exists. Absence is not an error.
	IsNew bool

	Class       *Class
	ClassXML    string
	Attachments []*Attachment

	// objects maps class name to the numbered instances of that class.
	// A nil slot is an object that existed and was removed.
	objects         map[string][]*Object
	objectsToRemove []*Object

	original *Document
}

// NewDocument builds a document reference for the given location.
func NewDocument(space, name string) *Document {
	d := &Document{
		Space:   space,
		Name:    name,
		Version: "1.1",
		IsNew:   true,
		Class:   NewClass(space + "." + name),
		objects: map[string][]*Object{},
	}
	d.ID = DocumentID(d.FullName(), d.Locale)
	return d
}

// FullName is the space-qualified page name.
func (d *Document) FullName() string { return d.Space + "." + d.Name }

// Objects returns the instances of the given class, removed slots
// included as nil holes (numbers are positional).
func (d *Document) Objects(className string) []*Object {
	return d.objects[className]
}

// ObjectClassNames lists the class names with at least one slot, sorted.
func (d *Document) ObjectClassNames() []string {
	out := make([]string, 0, len(d.objects))
	for n := range d.objects {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// AddObject appends an object under its class name, numbering it after
// the last slot.
func (d *Document) AddObject(obj *Object) {
	if d.objects == nil {
		d.objects = map[string][]*Object{}
	}
	obj.Number = len(d.objects[obj.ClassName])
	obj.DocumentName = d.FullName()
	d.objects[obj.ClassName] = append(d.objects[obj.ClassName], obj)
	d.HasObjects = true
}

// SetObject places an object at its declared number, growing the slice
// with nil holes as needed. Used by the load path.
func (d *Document) SetObject(obj *Object) {
	if d.objects == nil {
		d.objects = map[string][]*Object{}
	}
	slots := d.objects[obj.ClassName]
	for len(slots) <= obj.Number {
		slots = append(slots, nil)
	}
	slots[obj.Number] = obj
	d.objects[obj.ClassName] = slots
	d.HasObjects = true
}

// RemoveObject nils the object's slot and journals it for deletion at
// the next save. An unsaved removal is invisible to the database.
func (d *Document) RemoveObject(obj *Object) {
	slots := d.objects[obj.ClassName]
	if obj.Number >= len(slots) || slots[obj.Number] == nil {
		return
	}
	slots[obj.Number] = nil
	d.objectsToRemove = append(d.objectsToRemove, obj)
}

// ObjectsToRemove exposes the pending removal journal.
func (d *Document) ObjectsToRemove() []*Object { return d.objectsToRemove }

// ClearObjectsToRemove drains the journal after a save has applied it.
func (d *Document) ClearObjectsToRemove() { d.objectsToRemove = nil }

// Attachment finds an attachment by filename, or nil.
func (d *Document) Attachment(filename string) *Attachment {
	for _, a := range d.Attachments {
		if a.Filename == filename {
			return a
		}
	}
	return nil
}

// AddAttachment registers an attachment with this document.
func (d *Document) AddAttachment(a *Attachment) {
	a.DocID = d.ID
	d.Attachments = append(d.Attachments, a)
	d.HasAttachments = true
}

// Original is the deep copy captured at the last load/save/delete,
// kept for diffing against the current state.
func (d *Document) Original() *Document { return d.original }

// RefreshOriginal re-snapshots the document. Every store operation
// finishes with this so the original always equals the persisted state.
func (d *Document) RefreshOriginal() {
	d.original = d.Clone()
}

// Clone deep-copies the document. The snapshot reference and the
// removal journal are not carried over.
func (d *Document) Clone() *Document {
	out := *d
	out.original = nil
	out.objectsToRemove = nil
	if d.Class != nil {
		out.Class = d.Class.Clone()
	}
	out.objects = make(map[string][]*Object, len(d.objects))
	for name, slots := range d.objects {
		cp := make([]*Object, len(slots))
		for i, obj := range slots {
			if obj != nil {
				cp[i] = obj.Clone()
			}
		}
		out.objects[name] = cp
	}
	out.Attachments = make([]*Attachment, len(d.Attachments))
	for i, a := range d.Attachments {
		out.Attachments[i] = a.Clone()
	}
	return &out
}

// NextVersion advances an "N.M" version string by one minor step, or by
// one major step when major is set. An empty version starts at 1.1.
func NextVersion(version string, major bool) string {
	maj, min := 1, 0
	if i := strings.IndexByte(version, '.'); i > 0 {
		if a, err := strconv.Atoi(version[:i]); err == nil {
			maj = a
		}
		if b, err := strconv.Atoi(version[i+1:]); err == nil {
			min = b
		}
	}
	if major {
		return fmt.Sprintf("%d.1", maj+1)
	}
	return fmt.Sprintf("%d.%d", maj, min+1)
}
