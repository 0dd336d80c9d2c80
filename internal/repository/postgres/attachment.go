package postgres

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"wikistore/internal/domain"
	"wikistore/internal/domain/models"
	"wikistore/internal/domain/repositories"
)

// PostgresAttachmentStore persists attachment metadata and content.
// Version history goes through whichever archive store the installation
// plugged in.
type PostgresAttachmentStore struct {
	pool    *pgxpool.Pool
	tables  *TableNames
	logger  *slog.Logger
	archive repositories.AttachmentArchiveStore
}

// NewAttachmentStore creates the attachment store.
func NewAttachmentStore(config *RepositoryConfig, archive repositories.AttachmentArchiveStore) repositories.AttachmentStore {
	return newAttachmentStore(config, archive)
}

func newAttachmentStore(config *RepositoryConfig, archive repositories.AttachmentArchiveStore) *PostgresAttachmentStore {
	return &PostgresAttachmentStore{
		pool:    config.Pool,
		tables:  config.Tables,
		logger:  config.Logger,
		archive: archive,
	}
}

// SaveAttachmentList persists every attachment of the document.
func (s *PostgresAttachmentStore) SaveAttachmentList(ctx context.Context, doc *models.Document) error {
	for _, att := range doc.Attachments {
		if err := s.SaveAttachmentContent(ctx, att); err != nil {
			return err
		}
	}
	return nil
}

// SaveAttachmentContent upserts one attachment row. When the content
// differs from what is stored the archive records a new revision and
// the version counter advances first, so the row always carries the
// version its content belongs to.
func (s *PostgresAttachmentStore) SaveAttachmentContent(ctx context.Context, att *models.Attachment) error {
	db := GetExecutor(ctx, s.pool)

	var stored []byte
	var exists bool
	err := db.QueryRow(ctx, fmt.Sprintf(
		"SELECT content FROM %s WHERE id = $1", s.tables.Attachments), att.ID).Scan(&stored)
	switch {
	case err == nil:
		exists = true
	case IsPgNoRowsError(err):
		exists = false
	default:
		return fmt.Errorf("check attachment %q: %w", att.Filename, err)
	}

	if !exists || !bytes.Equal(stored, att.Content) {
		if err := s.archive.UpdateArchive(ctx, att); err != nil {
			return fmt.Errorf("archive attachment %q: %w", att.Filename, err)
		}
	}

	if exists {
		_, err = db.Exec(ctx, fmt.Sprintf(
			"UPDATE %s SET version = $2, author = $3, date = $4, content = $5 WHERE id = $1",
			s.tables.Attachments),
			att.ID, att.Version, att.Author, att.Date, att.Content)
	} else {
		_, err = db.Exec(ctx, fmt.Sprintf(
			"INSERT INTO %s (id, doc_id, filename, version, author, date, content) VALUES ($1, $2, $3, $4, $5, $6, $7)",
			s.tables.Attachments),
			att.ID, att.DocID, att.Filename, att.Version, att.Author, att.Date, att.Content)
	}
	if err != nil {
		return fmt.Errorf("save attachment %q: %w", att.Filename, err)
	}
	return nil
}

// LoadAttachmentList fills the document's attachment list, content
// included.
func (s *PostgresAttachmentStore) LoadAttachmentList(ctx context.Context, doc *models.Document) error {
	db := GetExecutor(ctx, s.pool)
	rows, err := db.Query(ctx, fmt.Sprintf(
		"SELECT id, filename, version, author, date, content FROM %s WHERE doc_id = $1 ORDER BY filename",
		s.tables.Attachments), doc.ID)
	if err != nil {
		return fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	doc.Attachments = nil
	for rows.Next() {
		att := &models.Attachment{DocID: doc.ID}
		if err := rows.Scan(&att.ID, &att.Filename, &att.Version, &att.Author, &att.Date, &att.Content); err != nil {
			return fmt.Errorf("scan attachment: %w", err)
		}
		doc.Attachments = append(doc.Attachments, att)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate attachments: %w", err)
	}
	doc.HasAttachments = len(doc.Attachments) > 0
	return nil
}

// LoadAttachmentContent fills content and version for one attachment.
func (s *PostgresAttachmentStore) LoadAttachmentContent(ctx context.Context, att *models.Attachment) error {
	db := GetExecutor(ctx, s.pool)
	err := db.QueryRow(ctx, fmt.Sprintf(
		"SELECT version, author, date, content FROM %s WHERE id = $1", s.tables.Attachments),
		att.ID).Scan(&att.Version, &att.Author, &att.Date, &att.Content)
	if err != nil {
		if IsPgNoRowsError(err) {
			return fmt.Errorf("attachment %q: %w", att.Filename, domain.ErrNotFound)
		}
		return fmt.Errorf("load attachment %q: %w", att.Filename, err)
	}
	return nil
}

// DeleteAttachment removes the attachment and its whole history.
func (s *PostgresAttachmentStore) DeleteAttachment(ctx context.Context, att *models.Attachment) error {
	if err := s.archive.DeleteArchive(ctx, att); err != nil {
		return fmt.Errorf("delete attachment archive %q: %w", att.Filename, err)
	}
	db := GetExecutor(ctx, s.pool)
	if _, err := db.Exec(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE id = $1", s.tables.Attachments), att.ID); err != nil {
		return fmt.Errorf("delete attachment %q: %w", att.Filename, err)
	}
	return nil
}
