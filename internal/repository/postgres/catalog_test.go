package postgres

import (
	"errors"
	"testing"

	"wikistore/internal/domain"
	"wikistore/internal/domain/models"
)

func mappedClass() *models.Class {
	c := models.NewClass("Blog.Post")
	c.AddField(&models.FieldDescriptor{Name: "title", Kind: models.KindString})
	c.AddField(&models.FieldDescriptor{Name: "views", Kind: models.KindLong})
	c.AddField(&models.FieldDescriptor{Name: "published", Kind: models.KindBoolean})
	c.AddField(&models.FieldDescriptor{Name: "tags", Kind: models.KindString, MultiSelect: true})
	return c
}

func TestValidateCustomMapping(t *testing.T) {
	tests := []struct {
		name    string
		mapping *models.CustomMapping
		wantErr bool
	}{
		{
			name: "valid mapping",
			mapping: &models.CustomMapping{
				Table: "blog_post",
				Columns: []models.ColumnSpec{
					{Property: "title", Name: "title", Type: "varchar(255)"},
					{Property: "views", Name: "view_count", Type: "bigint"},
				},
			},
		},
		{
			name: "boolean into integer column allowed",
			mapping: &models.CustomMapping{
				Table: "blog_post",
				Columns: []models.ColumnSpec{
					{Property: "published", Name: "published", Type: "integer"},
				},
			},
		},
		{
			name: "multi select maps through text column",
			mapping: &models.CustomMapping{
				Table: "blog_post",
				Columns: []models.ColumnSpec{
					{Property: "tags", Name: "tags", Type: "text"},
				},
			},
		},
		{
			name:    "no table",
			mapping: &models.CustomMapping{Columns: []models.ColumnSpec{{Property: "title", Name: "title", Type: "text"}}},
			wantErr: true,
		},
		{
			name:    "no columns",
			mapping: &models.CustomMapping{Table: "blog_post"},
			wantErr: true,
		},
		{
			name: "bad table ident",
			mapping: &models.CustomMapping{
				Table:   "blog post; drop table",
				Columns: []models.ColumnSpec{{Property: "title", Name: "title", Type: "text"}},
			},
			wantErr: true,
		},
		{
			name: "duplicate column",
			mapping: &models.CustomMapping{
				Table: "blog_post",
				Columns: []models.ColumnSpec{
					{Property: "title", Name: "val", Type: "text"},
					{Property: "views", Name: "val", Type: "bigint"},
				},
			},
			wantErr: true,
		},
		{
			name: "undeclared property",
			mapping: &models.CustomMapping{
				Table:   "blog_post",
				Columns: []models.ColumnSpec{{Property: "ghost", Name: "ghost", Type: "text"}},
			},
			wantErr: true,
		},
		{
			name: "incompatible column type",
			mapping: &models.CustomMapping{
				Table:   "blog_post",
				Columns: []models.ColumnSpec{{Property: "views", Name: "views", Type: "text"}},
			},
			wantErr: true,
		},
		{
			name: "malformed column type",
			mapping: &models.CustomMapping{
				Table:   "blog_post",
				Columns: []models.ColumnSpec{{Property: "title", Name: "title", Type: "varchar(255); drop table x"}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCustomMapping(mappedClass(), tt.mapping)
			if tt.wantErr {
				if err == nil {
					t.Fatal("ValidateCustomMapping() error = nil, want error")
				}
				var invalid *domain.InvalidMappingError
				if !errors.As(err, &invalid) {
					t.Errorf("error type = %T, want *InvalidMappingError", err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidateCustomMapping() error = %v", err)
			}
		})
	}
}

func TestNormalizeColumnType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "varchar(255)", want: "varchar"},
		{in: "VARCHAR(255)", want: "varchar"},
		{in: " numeric(10, 2) ", want: "numeric"},
		{in: "double precision", want: "double precision"},
		{in: "text", want: "text"},
	}
	for _, tt := range tests {
		if got := normalizeColumnType(tt.in); got != tt.want {
			t.Errorf("normalizeColumnType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCatalogMappingSnapshot(t *testing.T) {
	cat := NewCatalog()
	if got := cat.Mapping("Blog.Post"); got != nil {
		t.Errorf("Mapping() on empty catalog = %v, want nil", got)
	}
	if got := cat.Version(); got != 0 {
		t.Errorf("Version() = %d, want 0", got)
	}
}
