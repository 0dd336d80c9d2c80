package models

import (
	"testing"
)

func TestHashIDDeterministic(t *testing.T) {
	a := HashID("Main.WebHome:")
	b := HashID("Main.WebHome:")
	if a != b {
		t.Errorf("HashID() not deterministic: %d vs %d", a, b)
	}
	if HashID("Main.WebHome:") == HashID("Main.WebHome:fr") {
		t.Error("HashID() collides on different keys")
	}
}

func TestDocumentIDVariesByLocale(t *testing.T) {
	base := DocumentID("Main.WebHome", "")
	fr := DocumentID("Main.WebHome", "fr")
	if base == fr {
		t.Error("DocumentID() identical for default and fr locale")
	}
	if base != DocumentID("Main.WebHome", "") {
		t.Error("DocumentID() not deterministic")
	}
}

func TestNextVersion(t *testing.T) {
	tests := []struct {
		version string
		major   bool
		want    string
	}{
		{version: "1.1", major: false, want: "1.2"},
		{version: "1.9", major: false, want: "1.10"},
		{version: "1.3", major: true, want: "2.1"},
		{version: "12.4", major: false, want: "12.5"},
		{version: "12.4", major: true, want: "13.1"},
		{version: "", major: false, want: "1.1"},
		{version: "", major: true, want: "2.1"},
	}
	for _, tt := range tests {
		if got := NextVersion(tt.version, tt.major); got != tt.want {
			t.Errorf("NextVersion(%q, %v) = %q, want %q", tt.version, tt.major, got, tt.want)
		}
	}
}

func TestNewDocumentDefaults(t *testing.T) {
	doc := NewDocument("Main", "WebHome")
	if doc.FullName() != "Main.WebHome" {
		t.Errorf("FullName() = %q, want Main.WebHome", doc.FullName())
	}
	if doc.Version != "1.1" {
		t.Errorf("Version = %q, want 1.1", doc.Version)
	}
	if doc.ID != DocumentID("Main.WebHome", "") {
		t.Errorf("ID = %d, want %d", doc.ID, DocumentID("Main.WebHome", ""))
	}
	// A constructor-built document is new until a load or save says
	// otherwise; its first save must keep version 1.1, not advance past it.
	if !doc.IsNew {
		t.Error("IsNew = false, want true")
	}
}

func TestAddObjectNumbersSequentially(t *testing.T) {
	doc := NewDocument("Main", "WebHome")
	first := NewObject("", "Blog.Post", 0)
	second := NewObject("", "Blog.Post", 0)
	doc.AddObject(first)
	doc.AddObject(second)

	if first.Number != 0 || second.Number != 1 {
		t.Errorf("numbers = %d, %d, want 0, 1", first.Number, second.Number)
	}
	if first.DocumentName != "Main.WebHome" {
		t.Errorf("DocumentName = %q, want Main.WebHome", first.DocumentName)
	}
	if !doc.HasObjects {
		t.Error("HasObjects = false, want true")
	}
}

func TestSetObjectGrowsWithNilHoles(t *testing.T) {
	doc := NewDocument("Main", "WebHome")
	obj := NewObject("Main.WebHome", "Blog.Post", 3)
	doc.SetObject(obj)

	slots := doc.Objects("Blog.Post")
	if len(slots) != 4 {
		t.Fatalf("len(slots) = %d, want 4", len(slots))
	}
	for i := 0; i < 3; i++ {
		if slots[i] != nil {
			t.Errorf("slots[%d] = %v, want nil hole", i, slots[i])
		}
	}
	if slots[3] != obj {
		t.Error("slots[3] is not the placed object")
	}
}

func TestRemoveObjectJournalsDeferred(t *testing.T) {
	doc := NewDocument("Main", "WebHome")
	obj := NewObject("Main.WebHome", "Blog.Post", 0)
	doc.AddObject(obj)

	doc.RemoveObject(obj)

	if got := doc.Objects("Blog.Post"); got[0] != nil {
		t.Error("removed slot not nilled")
	}
	if got := doc.ObjectsToRemove(); len(got) != 1 || got[0] != obj {
		t.Errorf("ObjectsToRemove() = %v, want the removed object", got)
	}

	// Removing the same slot twice does not double-journal.
	doc.RemoveObject(obj)
	if got := doc.ObjectsToRemove(); len(got) != 1 {
		t.Errorf("ObjectsToRemove() after repeat = %d entries, want 1", len(got))
	}

	doc.ClearObjectsToRemove()
	if got := doc.ObjectsToRemove(); got != nil {
		t.Errorf("ObjectsToRemove() after clear = %v, want nil", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	doc := NewDocument("Main", "WebHome")
	doc.Content = "original content"
	doc.Class.AddField(&FieldDescriptor{Name: "title", Kind: KindString})

	obj := NewObject("Main.WebHome", "Blog.Post", 0)
	prop, _ := NewProperty(KindString, "title")
	_ = prop.SetValue("first")
	obj.SetField(prop)
	doc.AddObject(obj)

	att := NewAttachment(doc.ID, "logo.png", []byte{1, 2, 3})
	doc.AddAttachment(att)

	clone := doc.Clone()
	clone.Content = "mutated"
	clone.Objects("Blog.Post")[0].Field("title").SetValue("second")
	clone.Attachments[0].Content[0] = 9
	clone.Class.Fields["title"].Kind = KindLargeString

	if doc.Content != "original content" {
		t.Error("content mutation leaked into original")
	}
	if got := doc.Objects("Blog.Post")[0].Field("title").Value(); got != "first" {
		t.Errorf("object mutation leaked: Value() = %v", got)
	}
	if doc.Attachments[0].Content[0] != 1 {
		t.Error("attachment mutation leaked into original")
	}
	if doc.Class.Fields["title"].Kind != KindString {
		t.Error("class mutation leaked into original")
	}
}

func TestRefreshOriginalSnapshots(t *testing.T) {
	doc := NewDocument("Main", "WebHome")
	doc.Content = "v1"
	doc.RefreshOriginal()

	doc.Content = "v2"
	orig := doc.Original()
	if orig == nil {
		t.Fatal("Original() = nil after RefreshOriginal")
	}
	if orig.Content != "v1" {
		t.Errorf("Original().Content = %q, want v1", orig.Content)
	}
	if orig.Original() != nil {
		t.Error("snapshot carries its own snapshot")
	}
}

func TestAttachmentLookup(t *testing.T) {
	doc := NewDocument("Main", "WebHome")
	doc.AddAttachment(NewAttachment(doc.ID, "a.txt", nil))
	doc.AddAttachment(NewAttachment(doc.ID, "b.txt", nil))

	if got := doc.Attachment("b.txt"); got == nil || got.Filename != "b.txt" {
		t.Errorf("Attachment(b.txt) = %v", got)
	}
	if got := doc.Attachment("missing.txt"); got != nil {
		t.Errorf("Attachment(missing) = %v, want nil", got)
	}
	if !doc.HasAttachments {
		t.Error("HasAttachments = false, want true")
	}
}
