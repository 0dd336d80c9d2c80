package postgres

import (
	"context"
	"time"

	"wikistore/internal/domain/models"
	"wikistore/internal/domain/repositories"
)

// VoidAttachmentArchiveStore is the archive variant for installations
// that run without attachment history. It persists nothing: the version
// counter still advances, and the only revision ever retrievable is the
// current one. Behaviorally it is the diff archive restricted to
// exactly one version, the latest, which is what lets history be turned
// off without touching any other code path.
type VoidAttachmentArchiveStore struct {
	now func() time.Time
}

// NewVoidAttachmentArchiveStore creates the no-op archive store.
func NewVoidAttachmentArchiveStore() repositories.AttachmentArchiveStore {
	return &VoidAttachmentArchiveStore{now: time.Now}
}

// LoadArchive lazily installs a synthesized single-revision archive on
// the attachment if none is present yet.
func (s *VoidAttachmentArchiveStore) LoadArchive(_ context.Context, att *models.Attachment) (*models.AttachmentArchive, error) {
	if att.Archive == nil {
		att.Archive = s.synthesize(att)
	}
	return att.Archive, nil
}

// UpdateArchive only advances the version counter and stamps the time.
func (s *VoidAttachmentArchiveStore) UpdateArchive(_ context.Context, att *models.Attachment) error {
	att.IncrementVersion(s.now())
	return nil
}

// SaveArchive never persists anything.
func (s *VoidAttachmentArchiveStore) SaveArchive(context.Context, *models.Attachment) error {
	return nil
}

// DeleteArchive never persists anything, so there is nothing to delete.
func (s *VoidAttachmentArchiveStore) DeleteArchive(context.Context, *models.Attachment) error {
	return nil
}

// Revision answers the current attachment only when the requested
// version string equals its current version, else nil.
func (s *VoidAttachmentArchiveStore) Revision(_ context.Context, att *models.Attachment, version string) (*models.AttachmentRevision, error) {
	if version != att.Version || att.Version == "" {
		return nil, nil
	}
	return &models.AttachmentRevision{
		Version: att.Version,
		Author:  att.Author,
		Date:    att.Date,
		Content: append([]byte(nil), att.Content...),
	}, nil
}

// synthesize builds the one-revision archive representing "this
// attachment, as-is".
func (s *VoidAttachmentArchiveStore) synthesize(att *models.Attachment) *models.AttachmentArchive {
	archive := &models.AttachmentArchive{AttachmentID: att.ID}
	if att.Version != "" {
		archive.Append(models.AttachmentRevision{
			Version: att.Version,
			Author:  att.Author,
			Date:    att.Date,
			Content: append([]byte(nil), att.Content...),
		})
	}
	return archive
}
