package repositories

import (
	"context"

	"wikistore/internal/domain/models"
)

// DocumentStore is the top-level persistence surface for documents. All
// child state (class, objects, attachments, links, archive) is
// sequenced around the document row inside one transaction.
type DocumentStore interface {
	Exists(ctx context.Context, doc *models.Document) (bool, error)
	SaveDocument(ctx context.Context, doc *models.Document) error
	// LoadDocument fills doc in place. A missing row is not an error:
	// doc comes back flagged IsNew.
	LoadDocument(ctx context.Context, doc *models.Document) error
	DeleteDocument(ctx context.Context, doc *models.Document) error
	ClassList(ctx context.Context) ([]string, error)
}

// ObjectStore persists one collection of properties.
type ObjectStore interface {
	SaveObject(ctx context.Context, obj *models.Object, class *models.Class) error
	LoadObject(ctx context.Context, obj *models.Object, class *models.Class) error
	DeleteObject(ctx context.Context, obj *models.Object, class *models.Class) error
}

// ClassStore persists schema descriptors.
type ClassStore interface {
	SaveClass(ctx context.Context, class *models.Class) error
	LoadClass(ctx context.Context, class *models.Class) error
	DeleteClass(ctx context.Context, class *models.Class) error
}

// PropertyStore is the generic typed-property layer under objects.
type PropertyStore interface {
	SaveProperty(ctx context.Context, objectID int64, prop models.Property) error
	// LoadProperty returns the stored value of obj's property named
	// like prop. The returned property may be a different concrete
	// kind than the one passed in when the store recovered from a
	// historical type change.
	LoadProperty(ctx context.Context, obj *models.Object, prop models.Property) (models.Property, error)
	DeleteProperty(ctx context.Context, objectID int64, name string, kind models.PropertyKind) error
}

// AttachmentStore persists attachment metadata and content rows.
type AttachmentStore interface {
	SaveAttachmentList(ctx context.Context, doc *models.Document) error
	LoadAttachmentList(ctx context.Context, doc *models.Document) error
	SaveAttachmentContent(ctx context.Context, att *models.Attachment) error
	LoadAttachmentContent(ctx context.Context, att *models.Attachment) error
	DeleteAttachment(ctx context.Context, att *models.Attachment) error
}

// AttachmentArchiveStore persists the full version history of one
// attachment. Installations that run without history plug in the void
// variant; every other code path stays unchanged.
type AttachmentArchiveStore interface {
	SaveArchive(ctx context.Context, att *models.Attachment) error
	LoadArchive(ctx context.Context, att *models.Attachment) (*models.AttachmentArchive, error)
	DeleteArchive(ctx context.Context, att *models.Attachment) error
	// UpdateArchive records the attachment's current content as the
	// next revision and advances its version counter.
	UpdateArchive(ctx context.Context, att *models.Attachment) error
	// Revision materializes the attachment as of the given version,
	// or nil when that version is not retrievable.
	Revision(ctx context.Context, att *models.Attachment, version string) (*models.AttachmentRevision, error)
}

// DocumentArchiveStore persists the revision history of a document's
// content. Pluggable per installation.
type DocumentArchiveStore interface {
	UpdateArchive(ctx context.Context, doc *models.Document) error
	Versions(ctx context.Context, doc *models.Document) ([]string, error)
	RevisionContent(ctx context.Context, doc *models.Document, version string) (string, error)
	DeleteArchive(ctx context.Context, doc *models.Document) error
}

// LinkStore tracks outgoing references and answers backlink queries.
type LinkStore interface {
	SaveLinks(ctx context.Context, doc *models.Document) error
	LoadLinks(ctx context.Context, docID int64) ([]models.Link, error)
	DeleteLinks(ctx context.Context, docID int64) error
	LoadBacklinks(ctx context.Context, targetFullName string) ([]string, error)
}

// LockStore keeps the single editing lock per document.
type LockStore interface {
	SaveLock(ctx context.Context, lock *models.Lock) error
	// LoadLock returns nil when the document is unlocked.
	LoadLock(ctx context.Context, docID int64) (*models.Lock, error)
	DeleteLock(ctx context.Context, docID int64) error
}
