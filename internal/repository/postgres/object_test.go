package postgres

import (
	"context"
	"strings"
	"testing"

	"wikistore/internal/domain/models"
	"wikistore/internal/domain/repositories"
)

func taggedClass() *models.Class {
	c := models.NewClass("Blog.Post")
	c.AddField(&models.FieldDescriptor{Name: "title", Kind: models.KindString})
	c.AddField(&models.FieldDescriptor{Name: "tags", Kind: models.KindString, MultiSelect: true})
	c.CustomMapping = &models.CustomMapping{
		Table: "blog_post",
		Columns: []models.ColumnSpec{
			{Property: "title", Name: "title", Type: "varchar(255)"},
			{Property: "tags", Name: "tags", Type: "text"},
		},
	}
	return c
}

func taggedObject(t *testing.T) *models.Object {
	t.Helper()
	obj := models.NewObject("Blog.First", "Blog.Post", 0)
	title, err := models.NewProperty(models.KindString, "title")
	if err != nil {
		t.Fatal(err)
	}
	if err := title.SetValue("hello"); err != nil {
		t.Fatal(err)
	}
	tags, err := models.NewProperty(models.KindList, "tags")
	if err != nil {
		t.Fatal(err)
	}
	if err := tags.SetValue([]string{"go", "sql", "wiki"}); err != nil {
		t.Fatal(err)
	}
	obj.SetField(title)
	obj.SetField(tags)
	return obj
}

func TestMappedHandledExcludesLists(t *testing.T) {
	obj := taggedObject(t)
	mapping := taggedClass().CustomMapping

	handled := mappedHandled(obj, mapping)
	if !handled["title"] {
		t.Error("title not handled by the mapped row")
	}
	if handled["tags"] {
		t.Error("list field handled by the mapped row; its elements would never reach the list tables")
	}
}

func TestMappedHandledSkipsUnsetFields(t *testing.T) {
	obj := models.NewObject("Blog.First", "Blog.Post", 0)
	mapping := taggedClass().CustomMapping
	if handled := mappedHandled(obj, mapping); len(handled) != 0 {
		t.Errorf("handled = %v, want empty", handled)
	}
}

// A custom-mapped object with a multi-valued field must store every
// element through the generic list tables; the dedicated row carries
// only the single-valued columns.
func TestSaveObjectKeepsEveryListElement(t *testing.T) {
	store := newObjectStore(testConfig(Flags{CustomMappings: true}))
	tx := &stubTx{}
	ctx := repositories.SetTx(context.Background(), tx)

	class := taggedClass()
	obj := taggedObject(t)
	if err := store.SaveObject(ctx, obj, class); err != nil {
		t.Fatalf("SaveObject() error = %v", err)
	}

	mapped := tx.execsMatching("INSERT INTO wiki.blog_post")
	if len(mapped) != 1 {
		t.Fatalf("got %d mapped inserts, want 1", len(mapped))
	}
	if strings.Contains(mapped[0].sql, "tags") {
		t.Errorf("mapped insert carries the list column: %s", mapped[0].sql)
	}
	if mapped[0].args[1] != "hello" {
		t.Errorf("mapped title = %v, want hello", mapped[0].args[1])
	}

	items := tx.execsMatching("INSERT INTO wiki.list_items")
	want := []string{"go", "sql", "wiki"}
	if len(items) != len(want) {
		t.Fatalf("got %d list item inserts, want %d", len(items), len(want))
	}
	for i, item := range items {
		if ord := item.args[2].(int); ord != i {
			t.Errorf("item %d ord = %d, want %d", i, ord, i)
		}
		if value := item.args[3].(string); value != want[i] {
			t.Errorf("item %d value = %q, want %q", i, value, want[i])
		}
	}
}
