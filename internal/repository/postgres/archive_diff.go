package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"wikistore/internal/domain/models"
	"wikistore/internal/domain/repositories"
)

// DiffAttachmentArchiveStore keeps the full revision history of an
// attachment as a chain of byte deltas: the first revision is stored
// whole, each later one as the delta against its predecessor.
type DiffAttachmentArchiveStore struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
	now    func() time.Time
}

// NewDiffAttachmentArchiveStore creates the diff-based archive store.
func NewDiffAttachmentArchiveStore(config *RepositoryConfig) repositories.AttachmentArchiveStore {
	return &DiffAttachmentArchiveStore{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
		now:    time.Now,
	}
}

// loadChain reads and materializes every revision, oldest first.
func (s *DiffAttachmentArchiveStore) loadChain(ctx context.Context, attachmentID int64) ([]models.AttachmentRevision, error) {
	db := GetExecutor(ctx, s.pool)
	rows, err := db.Query(ctx, fmt.Sprintf(
		"SELECT version, author, date, is_full, payload FROM %s WHERE attachment_id = $1 ORDER BY ord",
		s.tables.AttachmentArchive), attachmentID)
	if err != nil {
		return nil, fmt.Errorf("load attachment archive: %w", err)
	}
	defer rows.Close()

	var stored []archiveRow
	for rows.Next() {
		var r archiveRow
		if err := rows.Scan(&r.version, &r.author, &r.date, &r.isFull, &r.payload); err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}
		stored = append(stored, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return materializeChain(stored)
}

// LoadArchive materializes the attachment's archive and installs it on
// the attachment.
func (s *DiffAttachmentArchiveStore) LoadArchive(ctx context.Context, att *models.Attachment) (*models.AttachmentArchive, error) {
	revisions, err := s.loadChain(ctx, att.ID)
	if err != nil {
		return nil, err
	}
	archive := &models.AttachmentArchive{AttachmentID: att.ID, Revisions: revisions}
	att.Archive = archive
	return archive, nil
}

// UpdateArchive advances the attachment's version counter and records
// its current content as the newest revision. Recording a version that
// is already archived is a no-op, so replaying an unchanged save leaves
// the history alone.
func (s *DiffAttachmentArchiveStore) UpdateArchive(ctx context.Context, att *models.Attachment) error {
	revisions, err := s.loadChain(ctx, att.ID)
	if err != nil {
		return err
	}
	att.IncrementVersion(s.now())

	if chainHasVersion(revisions, att.Version) {
		return nil
	}

	isFull, payload := nextChainPayload(revisions, att.Content)

	db := GetExecutor(ctx, s.pool)
	if _, err := db.Exec(ctx, fmt.Sprintf(
		"INSERT INTO %s (attachment_id, ord, version, author, date, is_full, payload) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		s.tables.AttachmentArchive),
		att.ID, len(revisions), att.Version, att.Author, att.Date, isFull, payload); err != nil {
		return fmt.Errorf("append archive revision %s: %w", att.Version, err)
	}

	if att.Archive == nil {
		att.Archive = &models.AttachmentArchive{AttachmentID: att.ID, Revisions: revisions}
	}
	att.Archive.Append(models.AttachmentRevision{
		Version: att.Version,
		Author:  att.Author,
		Date:    att.Date,
		Content: append([]byte(nil), att.Content...),
	})
	return nil
}

// SaveArchive replaces the stored history with the attachment's
// in-memory archive, re-encoding the delta chain.
func (s *DiffAttachmentArchiveStore) SaveArchive(ctx context.Context, att *models.Attachment) error {
	if att.Archive == nil {
		return nil
	}
	db := GetExecutor(ctx, s.pool)
	if _, err := db.Exec(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE attachment_id = $1", s.tables.AttachmentArchive), att.ID); err != nil {
		return fmt.Errorf("clear attachment archive: %w", err)
	}
	for ord, rev := range att.Archive.Revisions {
		isFull, payload := nextChainPayload(att.Archive.Revisions[:ord], rev.Content)
		if _, err := db.Exec(ctx, fmt.Sprintf(
			"INSERT INTO %s (attachment_id, ord, version, author, date, is_full, payload) VALUES ($1, $2, $3, $4, $5, $6, $7)",
			s.tables.AttachmentArchive),
			att.ID, ord, rev.Version, rev.Author, rev.Date, isFull, payload); err != nil {
			return fmt.Errorf("write archive revision %s: %w", rev.Version, err)
		}
	}
	return nil
}

// DeleteArchive drops the whole history.
func (s *DiffAttachmentArchiveStore) DeleteArchive(ctx context.Context, att *models.Attachment) error {
	db := GetExecutor(ctx, s.pool)
	if _, err := db.Exec(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE attachment_id = $1", s.tables.AttachmentArchive), att.ID); err != nil {
		return fmt.Errorf("delete attachment archive: %w", err)
	}
	return nil
}

// Revision materializes the attachment content at the given version, or
// nil when no such version is archived.
func (s *DiffAttachmentArchiveStore) Revision(ctx context.Context, att *models.Attachment, version string) (*models.AttachmentRevision, error) {
	revisions, err := s.loadChain(ctx, att.ID)
	if err != nil {
		return nil, err
	}
	for i := range revisions {
		if revisions[i].Version == version {
			return &revisions[i], nil
		}
	}
	return nil, nil
}
