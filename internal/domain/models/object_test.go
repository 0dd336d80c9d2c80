package models

import (
	"testing"
)

func TestObjectIDIdentityKey(t *testing.T) {
	a := NewObject("Main.WebHome", "Blog.Post", 0)
	b := NewObject("Main.WebHome", "Blog.Post", 0)
	if a.ID() != b.ID() {
		t.Error("ID() differs for the same identity triple")
	}
	if a.ID() == NewObject("Main.WebHome", "Blog.Post", 1).ID() {
		t.Error("ID() ignores number")
	}
	if a.ID() == NewObject("Main.Other", "Blog.Post", 0).ID() {
		t.Error("ID() ignores document")
	}
	if a.GUID == b.GUID {
		t.Error("GUID not unique per instance")
	}
}

func TestObjectValidate(t *testing.T) {
	obj := NewObject("Main.WebHome", "Blog.Post", 0)
	prop, _ := NewProperty(KindString, "title")
	obj.SetField(prop)
	if err := obj.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	// Force the invariant break: a property indexed under a foreign key.
	obj.fields["subtitle"] = prop
	if err := obj.Validate(); err == nil {
		t.Error("Validate() error = nil, want indexing mismatch")
	}
}

func TestObjectRemoveFieldJournals(t *testing.T) {
	obj := NewObject("Main.WebHome", "Blog.Post", 0)
	prop, _ := NewProperty(KindString, "title")
	obj.SetField(prop)

	obj.RemoveField("title")
	if obj.Field("title") != nil {
		t.Error("removed field still present")
	}
	if got := obj.FieldsToRemove(); len(got) != 1 || got[0] != "title" {
		t.Errorf("FieldsToRemove() = %v, want [title]", got)
	}

	obj.RemoveField("title")
	if got := obj.FieldsToRemove(); len(got) != 1 {
		t.Errorf("FieldsToRemove() after repeat = %v, want one entry", got)
	}

	obj.ClearFieldsToRemove()
	if got := obj.FieldsToRemove(); got != nil {
		t.Errorf("FieldsToRemove() after clear = %v, want nil", got)
	}
}

func TestObjectCloneIsDeep(t *testing.T) {
	obj := NewObject("Main.WebHome", "Blog.Post", 0)
	prop, _ := NewProperty(KindString, "title")
	_ = prop.SetValue("first")
	obj.SetField(prop)

	clone := obj.Clone()
	_ = clone.Field("title").SetValue("second")

	if got := obj.Field("title").Value(); got != "first" {
		t.Errorf("clone mutation leaked: Value() = %v", got)
	}
	if clone.GUID != obj.GUID {
		t.Error("clone GUID differs from original")
	}
}
