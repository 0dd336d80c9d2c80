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

// groupClassName is the class whose objects are group memberships.
// They are denormalized to a single member field and loaded flat in a
// second pass instead of one round trip per object.
const groupClassName = "Wiki.Groups"

// groupMemberField is the one property a group-membership object holds.
const groupMemberField = "member"

// PostgresDocumentStore is the top-level persistence orchestrator: one
// transaction scope per operation, with class, objects, attachments,
// archive, links and lock sequenced around the document's own row.
type PostgresDocumentStore struct {
	pool       *pgxpool.Pool
	tables     *TableNames
	logger     *slog.Logger
	catalog    *Catalog
	flags      Flags
	objects    *PostgresObjectStore
	classes    *PostgresClassStore
	atts       *PostgresAttachmentStore
	docArchive repositories.DocumentArchiveStore
	links      *PostgresLinkStore
	locks      repositories.LockStore
	authorizer repositories.Authorizer
	now        func() time.Time
}

// NewDocumentStore wires the orchestrator. attArchive and docArchive
// are pluggable per installation; renderer and authorizer are the
// external collaborators and may be nil.
func NewDocumentStore(
	config *RepositoryConfig,
	attArchive repositories.AttachmentArchiveStore,
	docArchive repositories.DocumentArchiveStore,
	renderer repositories.Renderer,
	authorizer repositories.Authorizer,
) *PostgresDocumentStore {
	return &PostgresDocumentStore{
		pool:       config.Pool,
		tables:     config.Tables,
		logger:     config.Logger,
		catalog:    config.Catalog,
		flags:      config.Flags,
		objects:    newObjectStore(config),
		classes:    newClassStore(config),
		atts:       newAttachmentStore(config, attArchive),
		docArchive: docArchive,
		links:      newLinkStore(config, renderer),
		locks:      NewLockStore(config),
		authorizer: authorizer,
		now:        time.Now,
	}
}

var _ repositories.DocumentStore = (*PostgresDocumentStore)(nil)

// Exists reports whether the document's row is present.
func (s *PostgresDocumentStore) Exists(ctx context.Context, doc *models.Document) (exists bool, err error) {
	ctx, txn, err := BeginTxn(ctx, s.pool, false)
	if err != nil {
		return false, domain.NewStoreError("check document", doc.FullName(), err)
	}
	defer func() {
		err = domain.NewStoreError("check document", doc.FullName(), EndTxn(ctx, txn, err))
	}()

	db := GetExecutor(ctx, s.pool)
	id := models.DocumentID(doc.FullName(), doc.Locale)
	err = db.QueryRow(ctx, fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", s.tables.Documents), id).Scan(&exists)
	return exists, err
}

// classFor returns the class to consult for objects of the given class
// name: the document's own class when the names match, else none. Only
// the owning class can carry a custom mapping for its objects.
func (s *PostgresDocumentStore) classFor(doc *models.Document, className string) *models.Class {
	if doc.Class != nil && doc.Class.Name == className {
		return doc.Class
	}
	return nil
}

// SaveDocument persists the document and all its child state inside one
// transaction. The sequence is linear: housekeeping, class XML,
// attachments, archive, the document row itself, deferred object
// removals, class (with storage migrations), live objects, links. On
// success the original snapshot is refreshed; on failure it is left
// untouched so the caller can retry or discard.
func (s *PostgresDocumentStore) SaveDocument(ctx context.Context, doc *models.Document) (err error) {
	ctx, txn, err := BeginTxn(ctx, s.pool, false)
	if err != nil {
		return domain.NewStoreError("save document", doc.FullName(), err)
	}
	defer func() {
		err = domain.NewStoreError("save document", doc.FullName(), EndTxn(ctx, txn, err))
	}()

	now := s.now()
	doc.ID = models.DocumentID(doc.FullName(), doc.Locale)
	doc.Date = now
	if doc.CreationDate.IsZero() {
		doc.CreationDate = now
	}
	if doc.ContentDirty {
		doc.ContentDate = now
	}

	dirty := doc.ContentDirty || doc.MetaDataDirty
	if doc.Version == "" {
		doc.Version = "1.1"
	} else if dirty && !doc.IsNew {
		doc.Version = models.NextVersion(doc.Version, false)
	}

	doc.ClassXML = ""
	if doc.Class != nil && !doc.Class.Empty() {
		doc.ClassXML, err = doc.Class.MarshalXML()
		if err != nil {
			return err
		}
	}

	if len(doc.Attachments) > 0 {
		doc.HasAttachments = true
		if err = s.atts.SaveAttachmentList(ctx, doc); err != nil {
			return err
		}
	}

	if s.flags.DocumentVersioning {
		if dirty || doc.IsNew {
			if err = s.docArchive.UpdateArchive(ctx, doc); err != nil {
				return err
			}
		} else {
			// An unchanged save still guarantees the archive exists.
			versions, verr := s.docArchive.Versions(ctx, doc)
			if verr != nil {
				return verr
			}
			if len(versions) == 0 {
				if err = s.docArchive.UpdateArchive(ctx, doc); err != nil {
					return err
				}
			}
		}
	}

	doc.HasObjects = false
	for _, className := range doc.ObjectClassNames() {
		for _, obj := range doc.Objects(className) {
			if obj != nil {
				doc.HasObjects = true
			}
		}
	}

	if err = s.upsertDocumentRow(ctx, doc); err != nil {
		return err
	}

	for _, obj := range doc.ObjectsToRemove() {
		if err = s.objects.DeleteObject(ctx, obj, s.classFor(doc, obj.ClassName)); err != nil {
			return err
		}
	}
	doc.ClearObjectsToRemove()

	if s.flags.ClassTables && doc.Class != nil && !doc.Class.Empty() {
		if err = s.classes.SaveClass(ctx, doc.Class); err != nil {
			return err
		}
	}

	for _, className := range doc.ObjectClassNames() {
		for _, obj := range doc.Objects(className) {
			if obj == nil {
				continue
			}
			obj.DocumentName = doc.FullName()
			if err = s.objects.SaveObject(ctx, obj, s.classFor(doc, className)); err != nil {
				return err
			}
		}
	}

	if s.flags.Backlinks {
		if err = s.links.SaveLinks(ctx, doc); err != nil {
			return err
		}
	}

	doc.IsNew = false
	doc.ContentDirty = false
	doc.MetaDataDirty = false
	doc.RefreshOriginal()
	return nil
}

func (s *PostgresDocumentStore) upsertDocumentRow(ctx context.Context, doc *models.Document) error {
	db := GetExecutor(ctx, s.pool)
	var exists bool
	err := db.QueryRow(ctx, fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", s.tables.Documents), doc.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check document row: %w", err)
	}
	if exists {
		_, err = db.Exec(ctx, fmt.Sprintf(`
			UPDATE %s SET title = $2, parent = $3, content = $4, version = $5,
				author = $6, content_author = $7, creator = $8,
				date = $9, content_date = $10, creation_date = $11,
				class_xml = $12, has_attachments = $13, has_objects = $14
			WHERE id = $1
		`, s.tables.Documents),
			doc.ID, doc.Title, doc.Parent, doc.Content, doc.Version,
			doc.Author, doc.ContentAuthor, doc.Creator,
			doc.Date, doc.ContentDate, doc.CreationDate,
			doc.ClassXML, doc.HasAttachments, doc.HasObjects)
	} else {
		_, err = db.Exec(ctx, fmt.Sprintf(`
			INSERT INTO %s (id, space, name, locale, title, parent, content, version,
				author, content_author, creator, date, content_date, creation_date,
				class_xml, has_attachments, has_objects)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		`, s.tables.Documents),
			doc.ID, doc.Space, doc.Name, doc.Locale, doc.Title, doc.Parent, doc.Content, doc.Version,
			doc.Author, doc.ContentAuthor, doc.Creator, doc.Date, doc.ContentDate, doc.CreationDate,
			doc.ClassXML, doc.HasAttachments, doc.HasObjects)
	}
	if err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("document %s: %w", doc.FullName(), domain.ErrConflict)
		}
		return fmt.Errorf("save document row: %w", err)
	}
	return nil
}

// LoadDocument fills doc from its stored state. A missing row stops
// early and marks doc as new; that outcome is not an error.
func (s *PostgresDocumentStore) LoadDocument(ctx context.Context, doc *models.Document) (err error) {
	ctx, txn, err := BeginTxn(ctx, s.pool, false)
	if err != nil {
		return domain.NewStoreError("load document", doc.FullName(), err)
	}
	defer func() {
		err = domain.NewStoreError("load document", doc.FullName(), EndTxn(ctx, txn, err))
	}()

	db := GetExecutor(ctx, s.pool)
	doc.ID = models.DocumentID(doc.FullName(), doc.Locale)

	err = db.QueryRow(ctx, fmt.Sprintf(`
		SELECT title, parent, content, version, author, content_author, creator,
			date, content_date, creation_date, class_xml, has_attachments, has_objects
		FROM %s WHERE id = $1
	`, s.tables.Documents), doc.ID).Scan(
		&doc.Title, &doc.Parent, &doc.Content, &doc.Version,
		&doc.Author, &doc.ContentAuthor, &doc.Creator,
		&doc.Date, &doc.ContentDate, &doc.CreationDate,
		&doc.ClassXML, &doc.HasAttachments, &doc.HasObjects)
	if err != nil {
		if IsPgNoRowsError(err) {
			doc.IsNew = true
			doc.RefreshOriginal()
			return nil
		}
		return fmt.Errorf("load document row: %w", err)
	}
	doc.IsNew = false

	if doc.HasAttachments {
		if err = s.atts.LoadAttachmentList(ctx, doc); err != nil {
			return err
		}
	}

	if doc.ClassXML != "" {
		doc.Class, err = models.ParseClassXML(doc.ClassXML)
		if err != nil {
			return err
		}
	} else if doc.Class == nil {
		doc.Class = models.NewClass(doc.FullName())
	}
	if s.flags.ClassTables {
		if err = s.classes.LoadClass(ctx, doc.Class); err != nil {
			return err
		}
	}

	if doc.HasObjects {
		if err = s.loadObjects(ctx, doc); err != nil {
			return err
		}
	}

	doc.RefreshOriginal()
	return nil
}

// loadObjects loads every object row of the document, with the group
// membership second pass going through the flat string table instead of
// per-object loads.
func (s *PostgresDocumentStore) loadObjects(ctx context.Context, doc *models.Document) error {
	db := GetExecutor(ctx, s.pool)
	rows, err := db.Query(ctx, fmt.Sprintf(
		"SELECT class_name, number, guid FROM %s WHERE doc_name = $1 ORDER BY class_name, number",
		s.tables.Objects), doc.FullName())
	if err != nil {
		return fmt.Errorf("list objects: %w", err)
	}
	var regular []*models.Object
	var groups []*models.Object
	for rows.Next() {
		var className, guid string
		var number int
		if err := rows.Scan(&className, &number, &guid); err != nil {
			rows.Close()
			return fmt.Errorf("scan object: %w", err)
		}
		obj := models.NewObject(doc.FullName(), className, number)
		obj.GUID = guid
		if className == groupClassName {
			groups = append(groups, obj)
		} else {
			regular = append(regular, obj)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate objects: %w", err)
	}

	for _, obj := range regular {
		if err := s.objects.LoadObject(ctx, obj, s.classFor(doc, obj.ClassName)); err != nil {
			return err
		}
		doc.SetObject(obj)
	}

	if len(groups) > 0 {
		if err := s.loadGroupObjects(ctx, doc, groups); err != nil {
			return err
		}
	}
	return nil
}

// loadGroupObjects fills the member field of every group object with
// one flat query over the short-string table.
func (s *PostgresDocumentStore) loadGroupObjects(ctx context.Context, doc *models.Document, groups []*models.Object) error {
	db := GetExecutor(ctx, s.pool)
	ids := make([]int64, len(groups))
	byID := make(map[int64]*models.Object, len(groups))
	for i, obj := range groups {
		ids[i] = obj.ID()
		byID[obj.ID()] = obj
	}
	rows, err := db.Query(ctx, fmt.Sprintf(
		"SELECT object_id, value FROM %s WHERE object_id = ANY($1) AND name = $2",
		s.tables.Strings), ids, groupMemberField)
	if err != nil {
		return fmt.Errorf("load group members: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var member string
		if err := rows.Scan(&id, &member); err != nil {
			return fmt.Errorf("scan group member: %w", err)
		}
		obj := byID[id]
		if obj == nil {
			continue
		}
		prop, err := models.NewProperty(models.KindString, groupMemberField)
		if err != nil {
			return err
		}
		if err := prop.SetValue(member); err != nil {
			return err
		}
		obj.SetField(prop)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate group members: %w", err)
	}
	for _, obj := range groups {
		doc.SetObject(obj)
	}
	return nil
}

// DeleteDocument removes the document with everything it owns:
// attachments and their history, links, the class tables, all objects,
// the document archive, the lock and finally the row itself. The
// cascade enumerates children from their tables rather than trusting
// the in-memory snapshot, so a bare reference that was never loaded
// still deletes completely.
func (s *PostgresDocumentStore) DeleteDocument(ctx context.Context, doc *models.Document) (err error) {
	ctx, txn, err := BeginTxn(ctx, s.pool, false)
	if err != nil {
		return domain.NewStoreError("delete document", doc.FullName(), err)
	}
	defer func() {
		err = domain.NewStoreError("delete document", doc.FullName(), EndTxn(ctx, txn, err))
	}()

	doc.ID = models.DocumentID(doc.FullName(), doc.Locale)

	if len(doc.Attachments) == 0 {
		if err = s.atts.LoadAttachmentList(ctx, doc); err != nil {
			return err
		}
	}
	for _, att := range doc.Attachments {
		if err = s.atts.DeleteAttachment(ctx, att); err != nil {
			return err
		}
	}

	if err = s.links.DeleteLinks(ctx, doc.ID); err != nil {
		return err
	}

	if s.flags.ClassTables {
		if doc.Class == nil {
			doc.Class = models.NewClass(doc.FullName())
		}
		if doc.Class.Empty() {
			if err = s.classes.LoadClass(ctx, doc.Class); err != nil {
				return err
			}
		}
		if !doc.Class.Empty() {
			if err = s.classes.DeleteClass(ctx, doc.Class); err != nil {
				return err
			}
		}
	}

	for _, obj := range doc.ObjectsToRemove() {
		if err = s.objects.DeleteObject(ctx, obj, s.classFor(doc, obj.ClassName)); err != nil {
			return err
		}
	}
	doc.ClearObjectsToRemove()

	if err = s.deleteStoredObjects(ctx, doc); err != nil {
		return err
	}

	if s.flags.DocumentVersioning {
		if err = s.docArchive.DeleteArchive(ctx, doc); err != nil {
			return err
		}
	}

	if err = s.locks.DeleteLock(ctx, doc.ID); err != nil {
		return err
	}

	db := GetExecutor(ctx, s.pool)
	if _, err = db.Exec(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE id = $1", s.tables.Documents), doc.ID); err != nil {
		return fmt.Errorf("delete document row: %w", err)
	}

	doc.RefreshOriginal()
	return nil
}

// deleteStoredObjects deletes every object row the document owns in the
// database. Classes other than the document's own are loaded on demand
// so their mapped rows are cleaned up too.
func (s *PostgresDocumentStore) deleteStoredObjects(ctx context.Context, doc *models.Document) error {
	db := GetExecutor(ctx, s.pool)
	rows, err := db.Query(ctx, fmt.Sprintf(
		"SELECT class_name, number FROM %s WHERE doc_name = $1 ORDER BY class_name, number",
		s.tables.Objects), doc.FullName())
	if err != nil {
		return fmt.Errorf("list objects: %w", err)
	}
	type objRef struct {
		className string
		number    int
	}
	var refs []objRef
	for rows.Next() {
		var r objRef
		if err := rows.Scan(&r.className, &r.number); err != nil {
			rows.Close()
			return fmt.Errorf("scan object: %w", err)
		}
		refs = append(refs, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate objects: %w", err)
	}

	loaded := map[string]*models.Class{}
	for _, r := range refs {
		class := s.classFor(doc, r.className)
		if class == nil && s.flags.ClassTables {
			cached, ok := loaded[r.className]
			if !ok {
				cached = models.NewClass(r.className)
				if err := s.classes.LoadClass(ctx, cached); err != nil {
					return err
				}
				loaded[r.className] = cached
			}
			class = cached
		}
		obj := models.NewObject(doc.FullName(), r.className, r.number)
		if err := s.objects.DeleteObject(ctx, obj, class); err != nil {
			return err
		}
	}
	return nil
}

// ClassList lists every class name known to the wiki.
func (s *PostgresDocumentStore) ClassList(ctx context.Context) (names []string, err error) {
	ctx, txn, err := BeginTxn(ctx, s.pool, false)
	if err != nil {
		return nil, domain.NewStoreError("list classes", "", err)
	}
	defer func() {
		err = domain.NewStoreError("list classes", "", EndTxn(ctx, txn, err))
	}()

	db := GetExecutor(ctx, s.pool)
	rows, err := db.Query(ctx, fmt.Sprintf(
		"SELECT name FROM %s ORDER BY name", s.tables.Classes))
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var n string
		if err = rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan class name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
