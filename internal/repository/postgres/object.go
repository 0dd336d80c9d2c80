package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"wikistore/internal/domain"
	"wikistore/internal/domain/models"
	"wikistore/internal/domain/repositories"
)

// PostgresObjectStore persists one collection of properties, choosing
// between the generic per-kind property tables and, when the owning
// class carries an accepted custom mapping, that class's dedicated
// table.
type PostgresObjectStore struct {
	pool    *pgxpool.Pool
	tables  *TableNames
	logger  *slog.Logger
	catalog *Catalog
	flags   Flags
	props   *PostgresPropertyStore
}

// NewObjectStore creates the object store.
func NewObjectStore(config *RepositoryConfig) repositories.ObjectStore {
	return newObjectStore(config)
}

func newObjectStore(config *RepositoryConfig) *PostgresObjectStore {
	return &PostgresObjectStore{
		pool:    config.Pool,
		tables:  config.Tables,
		logger:  config.Logger,
		catalog: config.Catalog,
		flags:   config.Flags,
		props:   newPropertyStore(config),
	}
}

// activeMapping resolves the custom mapping to use for class, injecting
// it into the catalog on first sight. Nil when custom mappings are off
// or the class has none.
func (s *PostgresObjectStore) activeMapping(ctx context.Context, class *models.Class) (*models.CustomMapping, error) {
	if class == nil || class.CustomMapping == nil || !s.flags.CustomMappings {
		return nil, nil
	}
	db := GetExecutor(ctx, s.pool)
	if err := s.catalog.Inject(ctx, db, s.tables, class); err != nil {
		return nil, err
	}
	return s.catalog.Mapping(class.Name), nil
}

// SaveObject upserts the object's own row, writes the custom-mapped
// representation when one exists, delegates every remaining property to
// the generic property layer and finally flushes the pending removal
// journal.
func (s *PostgresObjectStore) SaveObject(ctx context.Context, obj *models.Object, class *models.Class) error {
	if err := obj.Validate(); err != nil {
		return err
	}
	db := GetExecutor(ctx, s.pool)
	id := obj.ID()

	var exists bool
	err := db.QueryRow(ctx, fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", s.tables.Objects), id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check object: %w", err)
	}
	if exists {
		_, err = db.Exec(ctx, fmt.Sprintf(
			"UPDATE %s SET doc_name = $2, class_name = $3, number = $4, guid = $5 WHERE id = $1",
			s.tables.Objects),
			id, obj.DocumentName, obj.ClassName, obj.Number, obj.GUID)
	} else {
		_, err = db.Exec(ctx, fmt.Sprintf(
			"INSERT INTO %s (id, doc_name, class_name, number, guid) VALUES ($1, $2, $3, $4, $5)",
			s.tables.Objects),
			id, obj.DocumentName, obj.ClassName, obj.Number, obj.GUID)
	}
	if err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("object %s/%s#%d: %w", obj.DocumentName, obj.ClassName, obj.Number, domain.ErrConflict)
		}
		return fmt.Errorf("save object row: %w", err)
	}

	handled := map[string]bool{}
	mapping, err := s.activeMapping(ctx, class)
	if err != nil {
		return err
	}
	if mapping != nil {
		if err := s.saveMappedRow(ctx, db, id, obj, mapping); err != nil {
			return err
		}
		handled = mappedHandled(obj, mapping)
	}

	for _, name := range obj.FieldNames() {
		if handled[name] {
			continue
		}
		if err := s.props.SaveProperty(ctx, id, obj.Field(name)); err != nil {
			return err
		}
	}

	for _, name := range obj.FieldsToRemove() {
		if err := s.props.deletePropertyAllKinds(ctx, id, name); err != nil {
			return err
		}
	}
	obj.ClearFieldsToRemove()
	return nil
}

// saveMappedRow upserts the parallel representation in the class's
// dedicated table, restricted to the custom-mapped property names.
func (s *PostgresObjectStore) saveMappedRow(ctx context.Context, db repositories.DBTX, id int64, obj *models.Object, mapping *models.CustomMapping) error {
	table := s.tables.Custom(mapping.Table)

	var exists bool
	err := db.QueryRow(ctx, fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", table), id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check mapped row: %w", err)
	}

	cols := make([]string, 0, len(mapping.Columns))
	args := []any{id}
	for _, col := range mapping.Columns {
		prop := obj.Field(col.Property)
		if prop == nil {
			continue
		}
		if _, isList := prop.(*models.ListProperty); isList {
			// One column cannot carry several values; the generic list
			// tables stay authoritative for multi-valued fields.
			continue
		}
		cols = append(cols, col.Name)
		args = append(args, storageValue(prop))
	}
	if len(cols) == 0 {
		return nil
	}

	var b strings.Builder
	if exists {
		fmt.Fprintf(&b, "UPDATE %s SET ", table)
		for i, c := range cols {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s = $%d", c, i+2)
		}
		b.WriteString(" WHERE id = $1")
	} else {
		fmt.Fprintf(&b, "INSERT INTO %s (id", table)
		for _, c := range cols {
			b.WriteString(", ")
			b.WriteString(c)
		}
		b.WriteString(") VALUES ($1")
		for i := range cols {
			fmt.Fprintf(&b, ", $%d", i+2)
		}
		b.WriteString(")")
	}
	if _, err := db.Exec(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("save mapped row: %w", err)
	}
	return nil
}

// LoadObject loads the object's row and all its properties. With a
// custom mapping the dedicated row pre-populates its fields first; a
// NULL column falls back to the generic layer so historical rows stay
// readable.
func (s *PostgresObjectStore) LoadObject(ctx context.Context, obj *models.Object, class *models.Class) error {
	db := GetExecutor(ctx, s.pool)
	id := obj.ID()

	err := db.QueryRow(ctx, fmt.Sprintf(
		"SELECT guid FROM %s WHERE id = $1", s.tables.Objects), id).Scan(&obj.GUID)
	if err != nil {
		if IsPgNoRowsError(err) {
			return fmt.Errorf("object %s/%s#%d: %w", obj.DocumentName, obj.ClassName, obj.Number, domain.ErrNotFound)
		}
		return fmt.Errorf("load object row: %w", err)
	}

	handled := map[string]bool{}
	mapping, err := s.activeMapping(ctx, class)
	if err != nil {
		return err
	}
	if mapping != nil {
		if err := s.loadMappedRow(ctx, db, id, obj, class, mapping, handled); err != nil {
			return err
		}
	}

	rows, err := db.Query(ctx, fmt.Sprintf(
		"SELECT name, kind FROM %s WHERE object_id = $1 ORDER BY name", s.tables.Properties), id)
	if err != nil {
		return fmt.Errorf("list properties: %w", err)
	}
	type pair struct {
		name string
		kind models.PropertyKind
	}
	var pairs []pair
	for rows.Next() {
		var p pair
		var kind string
		if err := rows.Scan(&p.name, &kind); err != nil {
			rows.Close()
			return fmt.Errorf("scan property pair: %w", err)
		}
		p.kind = models.PropertyKind(kind)
		pairs = append(pairs, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate property pairs: %w", err)
	}

	for _, p := range pairs {
		if handled[p.name] {
			continue
		}
		// Prefer the declared storage kind so a historical type change
		// is surfaced (and recovered) here rather than hidden.
		kind := p.kind
		if class != nil {
			if field, ok := class.Fields[p.name]; ok {
				kind = field.StorageKind()
			}
		}
		prop, err := models.NewProperty(kind, p.name)
		if err != nil {
			return err
		}
		loaded, err := s.props.LoadProperty(ctx, obj, prop)
		if err != nil {
			return err
		}
		obj.SetField(loaded)
	}
	return nil
}

// loadMappedRow reads the dedicated row and pre-populates the fields it
// satisfies, recording them in handled. A stored NULL drops the name
// from that set, so the generic layer still fills it.
func (s *PostgresObjectStore) loadMappedRow(ctx context.Context, db repositories.DBTX, id int64, obj *models.Object, class *models.Class, mapping *models.CustomMapping, handled map[string]bool) error {
	table := s.tables.Custom(mapping.Table)
	cols := make([]string, len(mapping.Columns))
	for i, c := range mapping.Columns {
		cols[i] = c.Name
	}

	rows, err := db.Query(ctx, fmt.Sprintf(
		"SELECT %s FROM %s WHERE id = $1", strings.Join(cols, ", "), table), id)
	if err != nil {
		if IsPgUndefinedTableError(err) {
			// The dedicated table was dropped out from under the catalog;
			// the generic layer still holds every property.
			return nil
		}
		return fmt.Errorf("load mapped row: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return rows.Err()
	}
	values, err := rows.Values()
	if err != nil {
		return fmt.Errorf("read mapped row: %w", err)
	}

	for i, col := range mapping.Columns {
		if values[i] == nil {
			continue
		}
		field, ok := class.Fields[col.Property]
		if !ok || field.StorageKind() == models.KindList {
			continue
		}
		prop, err := field.NewProperty()
		if err != nil {
			return err
		}
		if err := prop.SetValue(values[i]); err != nil {
			return fmt.Errorf("mapped column %s: %w", col.Name, err)
		}
		obj.SetField(prop)
		handled[col.Property] = true
	}
	return rows.Err()
}

// DeleteObject removes the object and every property row it owns. The
// identity is rebuilt from the (document, class, number) triple rather
// than taken from any concrete representation: classes with a custom
// class override materialize objects differently, but the physical rows
// are always generic-shaped.
func (s *PostgresObjectStore) DeleteObject(ctx context.Context, obj *models.Object, class *models.Class) error {
	db := GetExecutor(ctx, s.pool)
	id := models.NewObject(obj.DocumentName, obj.ClassName, obj.Number).ID()

	for _, table := range []string{
		s.tables.ListItems, s.tables.Lists, s.tables.Strings, s.tables.LargeStrings,
		s.tables.Integers, s.tables.Floats, s.tables.Dates, s.tables.Properties,
	} {
		if _, err := db.Exec(ctx, fmt.Sprintf(
			"DELETE FROM %s WHERE object_id = $1", table), id); err != nil {
			return fmt.Errorf("delete object properties from %s: %w", table, err)
		}
	}

	mapping, err := s.activeMapping(ctx, class)
	if err != nil {
		return err
	}
	if mapping != nil {
		if _, err := db.Exec(ctx, fmt.Sprintf(
			"DELETE FROM %s WHERE id = $1", s.tables.Custom(mapping.Table)), id); err != nil {
			return fmt.Errorf("delete mapped row: %w", err)
		}
	}

	if _, err := db.Exec(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE id = $1", s.tables.Objects), id); err != nil {
		return fmt.Errorf("delete object row: %w", err)
	}
	return nil
}

// mappedHandled reports which of obj's fields the dedicated row fully
// represents. A list-valued field never qualifies, whatever the mapping
// declares, so its elements keep flowing through the list tables.
func mappedHandled(obj *models.Object, mapping *models.CustomMapping) map[string]bool {
	handled := map[string]bool{}
	for _, name := range mapping.MappedProperties() {
		prop := obj.Field(name)
		if prop == nil {
			continue
		}
		if _, isList := prop.(*models.ListProperty); isList {
			continue
		}
		handled[name] = true
	}
	return handled
}
