package postgres

import (
	"context"
	"testing"
	"time"

	"wikistore/internal/domain/models"
)

func voidStoreAt(now time.Time) *VoidAttachmentArchiveStore {
	return &VoidAttachmentArchiveStore{now: func() time.Time { return now }}
}

func TestVoidArchiveAdvancesVersionOnly(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := voidStoreAt(now)
	att := models.NewAttachment(1, "logo.png", []byte("v1"))

	if err := s.UpdateArchive(context.Background(), att); err != nil {
		t.Fatalf("UpdateArchive() error = %v", err)
	}
	if att.Version != "1.1" {
		t.Errorf("Version = %q, want 1.1", att.Version)
	}

	if err := s.UpdateArchive(context.Background(), att); err != nil {
		t.Fatalf("UpdateArchive() error = %v", err)
	}
	if att.Version != "1.2" {
		t.Errorf("Version = %q, want 1.2", att.Version)
	}
}

func TestVoidArchiveRevisionOnlyCurrent(t *testing.T) {
	s := voidStoreAt(time.Now())
	att := models.NewAttachment(1, "logo.png", []byte("current"))
	att.Version = "1.3"

	rev, err := s.Revision(context.Background(), att, "1.3")
	if err != nil {
		t.Fatalf("Revision() error = %v", err)
	}
	if rev == nil || string(rev.Content) != "current" {
		t.Errorf("Revision(current) = %v, want current content", rev)
	}

	rev, err = s.Revision(context.Background(), att, "1.2")
	if err != nil {
		t.Fatalf("Revision() error = %v", err)
	}
	if rev != nil {
		t.Errorf("Revision(older) = %v, want nil", rev)
	}
}

func TestVoidArchiveRevisionUnversioned(t *testing.T) {
	s := voidStoreAt(time.Now())
	att := models.NewAttachment(1, "logo.png", nil)

	rev, err := s.Revision(context.Background(), att, "")
	if err != nil {
		t.Fatalf("Revision() error = %v", err)
	}
	if rev != nil {
		t.Errorf("Revision() on unversioned attachment = %v, want nil", rev)
	}
}

func TestVoidArchiveSynthesizes(t *testing.T) {
	s := voidStoreAt(time.Now())
	att := models.NewAttachment(1, "logo.png", []byte("current"))
	att.Version = "1.2"

	archive, err := s.LoadArchive(context.Background(), att)
	if err != nil {
		t.Fatalf("LoadArchive() error = %v", err)
	}
	if got := archive.Versions(); len(got) != 1 || got[0] != "1.2" {
		t.Errorf("Versions() = %v, want [1.2]", got)
	}

	// An unversioned attachment synthesizes an empty history.
	fresh := models.NewAttachment(2, "new.png", nil)
	archive, err = s.LoadArchive(context.Background(), fresh)
	if err != nil {
		t.Fatalf("LoadArchive() error = %v", err)
	}
	if len(archive.Versions()) != 0 {
		t.Errorf("Versions() = %v, want empty", archive.Versions())
	}
}
