package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"wikistore/internal/domain/models"
	"wikistore/internal/domain/repositories"
)

// PostgresLinkStore tracks outgoing links. Link rows are derived data:
// every save recomputes them from rendered content and replaces the
// stored set wholesale.
type PostgresLinkStore struct {
	pool     *pgxpool.Pool
	tables   *TableNames
	logger   *slog.Logger
	renderer repositories.Renderer
}

// NewLinkStore creates the link tracker. renderer may be nil, in which
// case every document simply has no outgoing links.
func NewLinkStore(config *RepositoryConfig, renderer repositories.Renderer) repositories.LinkStore {
	return newLinkStore(config, renderer)
}

func newLinkStore(config *RepositoryConfig, renderer repositories.Renderer) *PostgresLinkStore {
	return &PostgresLinkStore{
		pool:     config.Pool,
		tables:   config.Tables,
		logger:   config.Logger,
		renderer: renderer,
	}
}

// SaveLinks deletes the document's link rows and re-inserts one per
// reference the renderer extracts. A rendering failure downgrades to
// "no links": link recomputation must never abort the surrounding save.
func (s *PostgresLinkStore) SaveLinks(ctx context.Context, doc *models.Document) error {
	if err := s.DeleteLinks(ctx, doc.ID); err != nil {
		return err
	}

	var refs []string
	if s.renderer != nil {
		extracted, err := s.renderer.ExtractLinks(ctx, doc.Content, doc)
		if err != nil {
			s.logger.Warn("link extraction failed, storing no links",
				"document", doc.FullName(), "error", err)
		} else {
			refs = extracted
		}
	}

	seen := map[string]bool{}
	targets := make([]string, 0, len(refs))
	for _, r := range refs {
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		targets = append(targets, r)
	}
	sort.Strings(targets)

	db := GetExecutor(ctx, s.pool)
	for _, target := range targets {
		if _, err := db.Exec(ctx, fmt.Sprintf(
			"INSERT INTO %s (doc_id, target, full_name) VALUES ($1, $2, $3)", s.tables.Links),
			doc.ID, target, doc.FullName()); err != nil {
			return fmt.Errorf("save link to %q: %w", target, err)
		}
	}
	return nil
}

// LoadLinks returns the stored outgoing links of a document.
func (s *PostgresLinkStore) LoadLinks(ctx context.Context, docID int64) ([]models.Link, error) {
	db := GetExecutor(ctx, s.pool)
	rows, err := db.Query(ctx, fmt.Sprintf(
		"SELECT doc_id, target, full_name FROM %s WHERE doc_id = $1 ORDER BY target", s.tables.Links), docID)
	if err != nil {
		return nil, fmt.Errorf("load links: %w", err)
	}
	defer rows.Close()
	var links []models.Link
	for rows.Next() {
		var l models.Link
		if err := rows.Scan(&l.DocID, &l.Target, &l.FullName); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// DeleteLinks removes every outgoing link of a document.
func (s *PostgresLinkStore) DeleteLinks(ctx context.Context, docID int64) error {
	db := GetExecutor(ctx, s.pool)
	if _, err := db.Exec(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE doc_id = $1", s.tables.Links), docID); err != nil {
		return fmt.Errorf("delete links: %w", err)
	}
	return nil
}

// LoadBacklinks is the reverse lookup: which documents link to the
// given full name.
func (s *PostgresLinkStore) LoadBacklinks(ctx context.Context, targetFullName string) ([]string, error) {
	db := GetExecutor(ctx, s.pool)
	rows, err := db.Query(ctx, fmt.Sprintf(
		"SELECT DISTINCT full_name FROM %s WHERE target = $1 ORDER BY full_name", s.tables.Links),
		targetFullName)
	if err != nil {
		return nil, fmt.Errorf("load backlinks: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan backlink: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
