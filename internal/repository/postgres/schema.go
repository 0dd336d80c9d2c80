package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"wikistore/internal/domain"
)

// identPattern is the shape accepted for wiki schema names and
// custom-mapping identifiers. Everything else is rejected before it can
// reach interpolated DDL.
var identPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidateIdent rejects anything unfit to be interpolated as an SQL
// identifier.
func ValidateIdent(name string) error {
	return validation.Validate(name,
		validation.Required,
		validation.Length(1, 63),
		validation.Match(identPattern),
	)
}

// Provisioner creates and drops whole wiki schemas.
type Provisioner struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewProvisioner creates a wiki provisioner.
func NewProvisioner(pool *pgxpool.Pool, logger *slog.Logger) *Provisioner {
	return &Provisioner{pool: pool, logger: logger}
}

// CreateWiki provisions the schema and every table of a new wiki.
// Creating an already-provisioned wiki is an error.
func (p *Provisioner) CreateWiki(ctx context.Context, wiki string) error {
	if err := ValidateIdent(wiki); err != nil {
		return fmt.Errorf("wiki name %q: %w", wiki, domain.ErrValidation)
	}
	exists, err := p.WikiExists(ctx, wiki)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("wiki %q: %w", wiki, domain.ErrConflict)
	}
	if _, err := p.pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA %s", wiki)); err != nil {
		return fmt.Errorf("create schema %s: %w", wiki, err)
	}
	tables := NewTableNames(wiki)
	if _, err := p.pool.Exec(ctx, schemaDDL(tables)); err != nil {
		return fmt.Errorf("create tables for %s: %w", wiki, err)
	}
	p.logger.Info("wiki created", "wiki", wiki)
	return nil
}

// DeleteWiki drops the wiki's schema and everything in it, dedicated
// custom-mapping tables included.
func (p *Provisioner) DeleteWiki(ctx context.Context, wiki string) error {
	if err := ValidateIdent(wiki); err != nil {
		return fmt.Errorf("wiki name %q: %w", wiki, domain.ErrValidation)
	}
	if _, err := p.pool.Exec(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", wiki)); err != nil {
		return fmt.Errorf("drop schema %s: %w", wiki, err)
	}
	p.logger.Info("wiki deleted", "wiki", wiki)
	return nil
}

// WikiExists reports whether the wiki's schema is provisioned.
func (p *Provisioner) WikiExists(ctx context.Context, wiki string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)",
		wiki,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check schema %s: %w", wiki, err)
	}
	return exists, nil
}

// schemaDDL renders the per-wiki table set. Ids are derived from
// qualified names, so every table keys on plain BIGINT ids; referential
// cleanup is the orchestrator's job, not the database's.
func schemaDDL(t *TableNames) string {
	return fmt.Sprintf(`
	CREATE TABLE %s (
		id BIGINT PRIMARY KEY,
		space TEXT NOT NULL,
		name TEXT NOT NULL,
		locale TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		parent TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		version TEXT NOT NULL DEFAULT '1.1',
		author TEXT NOT NULL DEFAULT '',
		content_author TEXT NOT NULL DEFAULT '',
		creator TEXT NOT NULL DEFAULT '',
		date TIMESTAMPTZ NOT NULL DEFAULT now(),
		content_date TIMESTAMPTZ NOT NULL DEFAULT now(),
		creation_date TIMESTAMPTZ NOT NULL DEFAULT now(),
		class_xml TEXT NOT NULL DEFAULT '',
		has_attachments BOOLEAN NOT NULL DEFAULT FALSE,
		has_objects BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE (space, name, locale)
	);

	CREATE TABLE %s (
		id BIGINT PRIMARY KEY,
		doc_id BIGINT NOT NULL,
		filename TEXT NOT NULL,
		version TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		date TIMESTAMPTZ NOT NULL DEFAULT now(),
		content BYTEA NOT NULL DEFAULT ''::bytea,
		UNIQUE (doc_id, filename)
	);

	CREATE TABLE %s (
		attachment_id BIGINT NOT NULL,
		ord INTEGER NOT NULL,
		version TEXT NOT NULL,
		author TEXT NOT NULL DEFAULT '',
		date TIMESTAMPTZ NOT NULL DEFAULT now(),
		is_full BOOLEAN NOT NULL,
		payload BYTEA NOT NULL,
		PRIMARY KEY (attachment_id, version)
	);

	CREATE TABLE %s (
		doc_id BIGINT NOT NULL,
		ord INTEGER NOT NULL,
		version TEXT NOT NULL,
		author TEXT NOT NULL DEFAULT '',
		date TIMESTAMPTZ NOT NULL DEFAULT now(),
		is_full BOOLEAN NOT NULL,
		payload BYTEA NOT NULL,
		PRIMARY KEY (doc_id, version)
	);

	CREATE TABLE %s (
		id BIGINT PRIMARY KEY,
		doc_name TEXT NOT NULL,
		class_name TEXT NOT NULL,
		number INTEGER NOT NULL,
		guid TEXT NOT NULL DEFAULT '',
		UNIQUE (doc_name, class_name, number)
	);

	CREATE TABLE %s (
		object_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		PRIMARY KEY (object_id, name)
	);

	CREATE TABLE %s (
		object_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		value VARCHAR(768) NOT NULL DEFAULT '',
		PRIMARY KEY (object_id, name)
	);

	CREATE TABLE %s (
		object_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		value TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (object_id, name)
	);

	CREATE TABLE %s (
		object_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		value BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (object_id, name)
	);

	CREATE TABLE %s (
		object_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		value DOUBLE PRECISION NOT NULL DEFAULT 0,
		PRIMARY KEY (object_id, name)
	);

	CREATE TABLE %s (
		object_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		value TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (object_id, name)
	);

	CREATE TABLE %s (
		object_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		PRIMARY KEY (object_id, name)
	);

	CREATE TABLE %s (
		object_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		ord INTEGER NOT NULL,
		value TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (object_id, name, ord)
	);

	CREATE TABLE %s (
		name TEXT PRIMARY KEY,
		custom_class TEXT NOT NULL DEFAULT '',
		custom_mapping TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE %s (
		class_name TEXT NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		multi_select BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (class_name, name)
	);

	CREATE TABLE %s (
		doc_id BIGINT NOT NULL,
		target TEXT NOT NULL,
		full_name TEXT NOT NULL,
		PRIMARY KEY (doc_id, target)
	);
	CREATE INDEX ON %s (target);

	CREATE TABLE %s (
		doc_id BIGINT PRIMARY KEY,
		owner TEXT NOT NULL,
		token TEXT NOT NULL,
		date TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`,
		t.Documents,
		t.Attachments,
		t.AttachmentArchive,
		t.DocumentArchive,
		t.Objects,
		t.Properties,
		t.Strings,
		t.LargeStrings,
		t.Integers,
		t.Floats,
		t.Dates,
		t.Lists,
		t.ListItems,
		t.Classes,
		t.ClassFields,
		t.Links,
		t.Links,
		t.Locks,
	)
}
