package models

import (
	"testing"
	"time"
)

func TestIncrementVersion(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a := NewAttachment(1, "logo.png", nil)

	a.IncrementVersion(now)
	if a.Version != "1.1" {
		t.Errorf("first version = %q, want 1.1", a.Version)
	}
	if !a.Date.Equal(now) {
		t.Errorf("Date = %v, want %v", a.Date, now)
	}

	a.IncrementVersion(now.Add(time.Hour))
	if a.Version != "1.2" {
		t.Errorf("second version = %q, want 1.2", a.Version)
	}
}

func TestAttachmentIDDeterministic(t *testing.T) {
	if AttachmentID(7, "a.txt") != AttachmentID(7, "a.txt") {
		t.Error("AttachmentID() not deterministic")
	}
	if AttachmentID(7, "a.txt") == AttachmentID(8, "a.txt") {
		t.Error("AttachmentID() ignores document id")
	}
	if AttachmentID(7, "a.txt") == AttachmentID(7, "b.txt") {
		t.Error("AttachmentID() ignores filename")
	}
}

func TestArchiveRevisionLookup(t *testing.T) {
	ar := &AttachmentArchive{AttachmentID: 1}
	ar.Append(AttachmentRevision{Version: "1.1", Content: []byte("one")})
	ar.Append(AttachmentRevision{Version: "1.2", Content: []byte("two")})

	if got := ar.Versions(); len(got) != 2 || got[0] != "1.1" || got[1] != "1.2" {
		t.Errorf("Versions() = %v", got)
	}

	rev := ar.Revision("1.2")
	if rev == nil || string(rev.Content) != "two" {
		t.Errorf("Revision(1.2) = %v", rev)
	}
	if got := ar.Revision("9.9"); got != nil {
		t.Errorf("Revision(9.9) = %v, want nil", got)
	}
}

func TestArchiveCloneIsDeep(t *testing.T) {
	ar := &AttachmentArchive{AttachmentID: 1}
	ar.Append(AttachmentRevision{Version: "1.1", Content: []byte("one")})

	clone := ar.Clone()
	clone.Revisions[0].Content[0] = 'X'

	if string(ar.Revisions[0].Content) != "one" {
		t.Error("clone mutation leaked into original archive")
	}
}
