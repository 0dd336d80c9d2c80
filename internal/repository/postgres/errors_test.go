package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsPgDuplicateError(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505"}
	if !IsPgDuplicateError(dup) {
		t.Error("unique violation not recognized")
	}
	if !IsPgDuplicateError(fmt.Errorf("save row: %w", dup)) {
		t.Error("wrapped unique violation not recognized")
	}
	if IsPgDuplicateError(&pgconn.PgError{Code: "42P01"}) {
		t.Error("unrelated code reported as duplicate")
	}
	if IsPgDuplicateError(nil) {
		t.Error("nil reported as duplicate")
	}
}

func TestIsPgNoRowsError(t *testing.T) {
	if !IsPgNoRowsError(pgx.ErrNoRows) {
		t.Error("pgx.ErrNoRows not recognized")
	}
	if !IsPgNoRowsError(fmt.Errorf("point query: %w", pgx.ErrNoRows)) {
		t.Error("wrapped pgx.ErrNoRows not recognized")
	}
	if IsPgNoRowsError(errors.New("boom")) {
		t.Error("unrelated error reported as no rows")
	}
}

func TestIsPgUndefinedTableError(t *testing.T) {
	missing := &pgconn.PgError{Code: "42P01"}
	if !IsPgUndefinedTableError(missing) {
		t.Error("undefined table not recognized")
	}
	if !IsPgUndefinedTableError(fmt.Errorf("load mapped row: %w", missing)) {
		t.Error("wrapped undefined table not recognized")
	}
	if IsPgUndefinedTableError(&pgconn.PgError{Code: "23505"}) {
		t.Error("unrelated code reported as undefined table")
	}
}
