package postgres

import (
	"context"
	"testing"
	"time"

	"wikistore/internal/domain/models"
	"wikistore/internal/domain/repositories"
)

// The first save of a freshly constructed document must store version
// 1.1; only later content or metadata changes advance the counter.
func TestSaveDocumentFirstSaveKeepsInitialVersion(t *testing.T) {
	config := testConfig(Flags{})
	store := NewDocumentStore(config, NewVoidAttachmentArchiveStore(), NewDocumentArchiveStore(config), nil, nil)
	tx := &stubTx{}
	ctx := repositories.SetTx(context.Background(), tx)

	doc := models.NewDocument("Main", "WebHome")
	doc.Content = "hello"
	doc.ContentDirty = true
	if err := store.SaveDocument(ctx, doc); err != nil {
		t.Fatalf("SaveDocument() error = %v", err)
	}
	if doc.Version != "1.1" {
		t.Errorf("Version after first save = %q, want 1.1", doc.Version)
	}
	if doc.IsNew {
		t.Error("IsNew still set after save")
	}

	// A later dirty save of the now-stored document advances.
	tx.results = []stubResult{{pattern: "FROM wiki.documents", rows: [][]any{{true}}}}
	doc.Content = "hello world"
	doc.ContentDirty = true
	if err := store.SaveDocument(ctx, doc); err != nil {
		t.Fatalf("SaveDocument() error = %v", err)
	}
	if doc.Version != "1.2" {
		t.Errorf("Version after second save = %q, want 1.2", doc.Version)
	}
}

// Deleting through a bare reference must still cascade: children are
// enumerated from their tables, not from the in-memory snapshot, which
// on a never-loaded document is empty.
func TestDeleteDocumentBareReferenceCascades(t *testing.T) {
	config := testConfig(Flags{})
	store := NewDocumentStore(config, NewVoidAttachmentArchiveStore(), NewDocumentArchiveStore(config), nil, nil)

	attDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tx := &stubTx{results: []stubResult{
		{pattern: "FROM wiki.attachments", rows: [][]any{
			{int64(11), "a.txt", "1.1", "alice", attDate, []byte("payload")},
		}},
		{pattern: "FROM wiki.objects", rows: [][]any{
			{"Blog.Post", 0},
		}},
	}}
	ctx := repositories.SetTx(context.Background(), tx)

	doc := models.NewDocument("Main", "WebHome")
	if err := store.DeleteDocument(ctx, doc); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}

	attDeletes := tx.execsMatching("DELETE FROM wiki.attachments")
	if len(attDeletes) != 1 {
		t.Fatalf("got %d attachment deletes, want 1", len(attDeletes))
	}
	if got := attDeletes[0].args[0].(int64); got != 11 {
		t.Errorf("attachment delete id = %d, want 11", got)
	}

	objID := models.NewObject("Main.WebHome", "Blog.Post", 0).ID()
	for _, table := range []string{"wiki.strings", "wiki.list_items", "wiki.properties"} {
		deletes := tx.execsMatching("DELETE FROM " + table)
		if len(deletes) != 1 {
			t.Fatalf("got %d deletes on %s, want 1", len(deletes), table)
		}
		if got := deletes[0].args[0].(int64); got != objID {
			t.Errorf("%s delete object id = %d, want %d", table, got, objID)
		}
	}
	objDeletes := tx.execsMatching("DELETE FROM wiki.objects")
	if len(objDeletes) != 1 {
		t.Fatalf("got %d object row deletes, want 1", len(objDeletes))
	}
	if got := objDeletes[0].args[0].(int64); got != objID {
		t.Errorf("object row delete id = %d, want %d", got, objID)
	}

	docDeletes := tx.execsMatching("DELETE FROM wiki.documents")
	if len(docDeletes) != 1 {
		t.Fatalf("got %d document row deletes, want 1", len(docDeletes))
	}
	if got := docDeletes[0].args[0].(int64); got != models.DocumentID("Main.WebHome", "") {
		t.Errorf("document row delete id = %d", got)
	}
}
