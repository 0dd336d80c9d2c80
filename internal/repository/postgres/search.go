package postgres

import (
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"wikistore/internal/domain"
	"wikistore/internal/domain/models"
)

// Criterion is one column comparison in a structured document search.
// Column names and operators are validated before they reach SQL; the
// value always travels as a bind parameter.
type Criterion struct {
	Column   string
	Operator string
	Value    any
}

var searchOperators = map[string]bool{
	"=":    true,
	"<>":   true,
	"<":    true,
	">":    true,
	"<=":   true,
	">=":   true,
	"like": true,
}

// BuildWhere turns criteria into a WHERE fragment with positional
// parameters starting at $1. Unknown operators and malformed column
// names are rejected.
func BuildWhere(criteria []Criterion) (string, []any, error) {
	if len(criteria) == 0 {
		return "", nil, nil
	}
	var clauses []string
	var params []any
	for _, c := range criteria {
		if err := validation.Validate(c.Column,
			validation.Required, validation.Match(identPattern)); err != nil {
			return "", nil, fmt.Errorf("search column %q: %w", c.Column, domain.ErrValidation)
		}
		op := strings.ToLower(strings.TrimSpace(c.Operator))
		if !searchOperators[op] {
			return "", nil, fmt.Errorf("search operator %q: %w", c.Operator, domain.ErrValidation)
		}
		params = append(params, c.Value)
		clauses = append(clauses, fmt.Sprintf("%s %s $%d", c.Column, op, len(params)))
	}
	return strings.Join(clauses, " AND "), params, nil
}

// Search runs a caller-supplied SELECT and returns the raw rows. The
// statement must use positional parameters; limit and offset of zero
// mean unbounded.
func (s *PostgresDocumentStore) Search(ctx context.Context, stmt string, params []any, limit, offset int) (results [][]any, err error) {
	ctx, txn, err := BeginTxn(ctx, s.pool, false)
	if err != nil {
		return nil, domain.NewStoreError("search", "", err)
	}
	defer func() {
		err = domain.NewStoreError("search", "", EndTxn(ctx, txn, err))
	}()

	stmt = applyWindow(stmt, &params, limit, offset)
	db := GetExecutor(ctx, s.pool)
	rows, err := db.Query(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("run search: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		values, verr := rows.Values()
		if verr != nil {
			err = fmt.Errorf("read search row: %w", verr)
			return nil, err
		}
		results = append(results, values)
	}
	return results, rows.Err()
}

// SearchDocuments finds documents whose row matches the criteria and
// loads each one fully. When checkAccess is set and an authorizer is
// wired, documents the caller may not view are dropped from the result.
func (s *PostgresDocumentStore) SearchDocuments(ctx context.Context, criteria []Criterion, limit, offset int, checkAccess bool) (docs []*models.Document, err error) {
	ctx, txn, err := BeginTxn(ctx, s.pool, false)
	if err != nil {
		return nil, domain.NewStoreError("search documents", "", err)
	}
	defer func() {
		err = domain.NewStoreError("search documents", "", EndTxn(ctx, txn, err))
	}()

	where, params, err := BuildWhere(criteria)
	if err != nil {
		return nil, err
	}
	stmt := fmt.Sprintf("SELECT space, name, locale FROM %s", s.tables.Documents)
	if where != "" {
		stmt += " WHERE " + where
	}
	stmt += " ORDER BY space, name, locale"
	stmt = applyWindow(stmt, &params, limit, offset)

	db := GetExecutor(ctx, s.pool)
	rows, err := db.Query(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("search document rows: %w", err)
	}
	type docKey struct {
		space, name, locale string
	}
	var keys []docKey
	for rows.Next() {
		var k docKey
		if err = rows.Scan(&k.space, &k.name, &k.locale); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		keys = append(keys, k)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	for _, k := range keys {
		doc := models.NewDocument(k.space, k.name)
		doc.Locale = k.locale
		if err = s.LoadDocument(ctx, doc); err != nil {
			return nil, err
		}
		if checkAccess && s.authorizer != nil && !s.authorizer.CheckAccess(ctx, "view", doc) {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// applyWindow appends LIMIT and OFFSET as bind parameters so callers
// never splice numbers into the statement text.
func applyWindow(stmt string, params *[]any, limit, offset int) string {
	if limit > 0 {
		*params = append(*params, limit)
		stmt += fmt.Sprintf(" LIMIT $%d", len(*params))
	}
	if offset > 0 {
		*params = append(*params, offset)
		stmt += fmt.Sprintf(" OFFSET $%d", len(*params))
	}
	return stmt
}
