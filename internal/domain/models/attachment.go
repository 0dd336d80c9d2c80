package models

import (
	"strconv"
	"time"
)

// Attachment is a named binary file attached to one document, with a
// monotonically advancing "N.M" version counter.
type Attachment struct {
	ID       int64
	DocID    int64
	Filename string
	Version  string
	Author   string
	Date     time.Time
	Content  []byte

	Archive *AttachmentArchive
}

// NewAttachment builds an unversioned attachment; the first save stamps
// version 1.1.
func NewAttachment(docID int64, filename string, content []byte) *Attachment {
	return &Attachment{
		ID:       AttachmentID(docID, filename),
		DocID:    docID,
		Filename: filename,
		Content:  content,
	}
}

// AttachmentID derives the attachment row id from its identity key.
func AttachmentID(docID int64, filename string) int64 {
	return HashID("attachment:" + filename + "@" + strconv.FormatInt(docID, 10))
}

// IncrementVersion advances the version counter and stamps now. The
// first increment lands on 1.1.
func (a *Attachment) IncrementVersion(now time.Time) {
	if a.Version == "" {
		a.Version = "1.1"
	} else {
		a.Version = NextVersion(a.Version, false)
	}
	a.Date = now
}

// Clone deep-copies the attachment, archive included.
func (a *Attachment) Clone() *Attachment {
	out := *a
	out.Content = append([]byte(nil), a.Content...)
	if a.Archive != nil {
		out.Archive = a.Archive.Clone()
	}
	return &out
}

// AttachmentRevision is one archived version of an attachment.
type AttachmentRevision struct {
	Version string
	Author  string
	Date    time.Time
	Content []byte
}

// AttachmentArchive is the ordered revision history of one attachment,
// oldest first.
type AttachmentArchive struct {
	AttachmentID int64
	Revisions    []AttachmentRevision
}

// Versions lists the archived version strings, oldest first.
func (ar *AttachmentArchive) Versions() []string {
	out := make([]string, len(ar.Revisions))
	for i, r := range ar.Revisions {
		out[i] = r.Version
	}
	return out
}

// Revision materializes the content stored at the given version, or
// nil when the archive has no such version.
func (ar *AttachmentArchive) Revision(version string) *AttachmentRevision {
	for i := range ar.Revisions {
		if ar.Revisions[i].Version == version {
			return &ar.Revisions[i]
		}
	}
	return nil
}

// Append records a new latest revision.
func (ar *AttachmentArchive) Append(rev AttachmentRevision) {
	ar.Revisions = append(ar.Revisions, rev)
}

// Clone deep-copies the archive.
func (ar *AttachmentArchive) Clone() *AttachmentArchive {
	out := &AttachmentArchive{AttachmentID: ar.AttachmentID}
	out.Revisions = make([]AttachmentRevision, len(ar.Revisions))
	for i, r := range ar.Revisions {
		r.Content = append([]byte(nil), r.Content...)
		out.Revisions[i] = r
	}
	return out
}
