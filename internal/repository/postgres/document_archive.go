package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"wikistore/internal/domain"
	"wikistore/internal/domain/models"
	"wikistore/internal/domain/repositories"
)

// PostgresDocumentArchiveStore keeps the revision history of document
// content, delta-encoded the same way as the attachment diff archive.
type PostgresDocumentArchiveStore struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewDocumentArchiveStore creates the document archive store.
func NewDocumentArchiveStore(config *RepositoryConfig) repositories.DocumentArchiveStore {
	return &PostgresDocumentArchiveStore{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func (s *PostgresDocumentArchiveStore) loadChain(ctx context.Context, docID int64) ([]models.AttachmentRevision, error) {
	db := GetExecutor(ctx, s.pool)
	rows, err := db.Query(ctx, fmt.Sprintf(
		"SELECT version, is_full, payload FROM %s WHERE doc_id = $1 ORDER BY ord",
		s.tables.DocumentArchive), docID)
	if err != nil {
		return nil, fmt.Errorf("load document archive: %w", err)
	}
	defer rows.Close()

	var stored []archiveRow
	for rows.Next() {
		var r archiveRow
		if err := rows.Scan(&r.version, &r.isFull, &r.payload); err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}
		stored = append(stored, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return materializeChain(stored)
}

// UpdateArchive records the document's current content under its
// current version. A version already archived is left alone, so a save
// that advanced nothing archives nothing.
func (s *PostgresDocumentArchiveStore) UpdateArchive(ctx context.Context, doc *models.Document) error {
	revisions, err := s.loadChain(ctx, doc.ID)
	if err != nil {
		return err
	}
	if chainHasVersion(revisions, doc.Version) {
		return nil
	}

	isFull, payload := nextChainPayload(revisions, []byte(doc.Content))

	db := GetExecutor(ctx, s.pool)
	if _, err := db.Exec(ctx, fmt.Sprintf(
		"INSERT INTO %s (doc_id, ord, version, author, date, is_full, payload) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		s.tables.DocumentArchive),
		doc.ID, len(revisions), doc.Version, doc.Author, time.Now(), isFull, payload); err != nil {
		return fmt.Errorf("append document revision %s: %w", doc.Version, err)
	}
	return nil
}

// Versions lists the archived version strings, oldest first.
func (s *PostgresDocumentArchiveStore) Versions(ctx context.Context, doc *models.Document) ([]string, error) {
	db := GetExecutor(ctx, s.pool)
	rows, err := db.Query(ctx, fmt.Sprintf(
		"SELECT version FROM %s WHERE doc_id = $1 ORDER BY ord", s.tables.DocumentArchive), doc.ID)
	if err != nil {
		return nil, fmt.Errorf("list document versions: %w", err)
	}
	defer rows.Close()
	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// RevisionContent reconstructs the content stored at the given version.
func (s *PostgresDocumentArchiveStore) RevisionContent(ctx context.Context, doc *models.Document, version string) (string, error) {
	revisions, err := s.loadChain(ctx, doc.ID)
	if err != nil {
		return "", err
	}
	for _, rev := range revisions {
		if rev.Version == version {
			return string(rev.Content), nil
		}
	}
	return "", fmt.Errorf("document %s revision %s: %w", doc.FullName(), version, domain.ErrNotFound)
}

// DeleteArchive drops the document's whole history.
func (s *PostgresDocumentArchiveStore) DeleteArchive(ctx context.Context, doc *models.Document) error {
	db := GetExecutor(ctx, s.pool)
	if _, err := db.Exec(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE doc_id = $1", s.tables.DocumentArchive), doc.ID); err != nil {
		return fmt.Errorf("delete document archive: %w", err)
	}
	return nil
}
