package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"
	"wikistore/internal/domain/models"
	"wikistore/internal/domain/repositories"
)

// PostgresClassStore persists schema descriptors and keeps stored
// property values in step with them: when a field's storage kind
// changes, every existing value of that field across the class is
// re-pointed to the new kind.
type PostgresClassStore struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
	props  *PostgresPropertyStore
}

// NewClassStore creates the class store.
func NewClassStore(config *RepositoryConfig) repositories.ClassStore {
	return newClassStore(config)
}

func newClassStore(config *RepositoryConfig) *PostgresClassStore {
	return &PostgresClassStore{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
		props:  newPropertyStore(config),
	}
}

// SaveClass upserts the class row, applies the pending field-removal
// journal, migrates any field whose storage kind changed, then writes
// the field descriptors.
func (s *PostgresClassStore) SaveClass(ctx context.Context, class *models.Class) error {
	db := GetExecutor(ctx, s.pool)

	var mappingYAML string
	if class.CustomMapping != nil {
		b, err := yaml.Marshal(class.CustomMapping)
		if err != nil {
			return fmt.Errorf("marshal custom mapping: %w", err)
		}
		mappingYAML = string(b)
	}

	var exists bool
	err := db.QueryRow(ctx, fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE name = $1)", s.tables.Classes), class.Name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check class: %w", err)
	}
	if exists {
		_, err = db.Exec(ctx, fmt.Sprintf(
			"UPDATE %s SET custom_class = $2, custom_mapping = $3 WHERE name = $1", s.tables.Classes),
			class.Name, class.CustomClass, mappingYAML)
	} else {
		_, err = db.Exec(ctx, fmt.Sprintf(
			"INSERT INTO %s (name, custom_class, custom_mapping) VALUES ($1, $2, $3)", s.tables.Classes),
			class.Name, class.CustomClass, mappingYAML)
	}
	if err != nil {
		return fmt.Errorf("save class row: %w", err)
	}

	for _, name := range class.FieldsToRemove() {
		if err := s.removeFieldEverywhere(ctx, class.Name, name); err != nil {
			return err
		}
	}
	class.ClearFieldsToRemove()

	for _, name := range class.FieldNames() {
		field := class.Fields[name]
		if err := s.migrateFieldIfNeeded(ctx, class, field); err != nil {
			return err
		}
		if err := s.saveFieldRow(ctx, db, class.Name, field); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresClassStore) saveFieldRow(ctx context.Context, db repositories.DBTX, className string, field *models.FieldDescriptor) error {
	var exists bool
	err := db.QueryRow(ctx, fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE class_name = $1 AND name = $2)", s.tables.ClassFields),
		className, field.Name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check class field %q: %w", field.Name, err)
	}
	if exists {
		_, err = db.Exec(ctx, fmt.Sprintf(
			"UPDATE %s SET kind = $3, multi_select = $4 WHERE class_name = $1 AND name = $2", s.tables.ClassFields),
			className, field.Name, string(field.Kind), field.MultiSelect)
	} else {
		_, err = db.Exec(ctx, fmt.Sprintf(
			"INSERT INTO %s (class_name, name, kind, multi_select) VALUES ($1, $2, $3, $4)", s.tables.ClassFields),
			className, field.Name, string(field.Kind), field.MultiSelect)
	}
	if err != nil {
		return fmt.Errorf("save class field %q: %w", field.Name, err)
	}
	return nil
}

// removeFieldEverywhere drops the field descriptor and every stored
// value of it across all objects of the class.
func (s *PostgresClassStore) removeFieldEverywhere(ctx context.Context, className, fieldName string) error {
	db := GetExecutor(ctx, s.pool)
	if _, err := db.Exec(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE class_name = $1 AND name = $2", s.tables.ClassFields),
		className, fieldName); err != nil {
		return fmt.Errorf("delete class field %q: %w", fieldName, err)
	}
	ids, err := s.objectIDs(ctx, className)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.props.deletePropertyAllKinds(ctx, id, fieldName); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresClassStore) objectIDs(ctx context.Context, className string) ([]int64, error) {
	db := GetExecutor(ctx, s.pool)
	rows, err := db.Query(ctx, fmt.Sprintf(
		"SELECT id, doc_name, number FROM %s WHERE class_name = $1 ORDER BY doc_name, number", s.tables.Objects),
		className)
	if err != nil {
		return nil, fmt.Errorf("list objects of class %q: %w", className, err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		var docName string
		var number int
		if err := rows.Scan(&id, &docName, &number); err != nil {
			return nil, fmt.Errorf("scan object id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// migrateFieldIfNeeded checks the stored kind of the field against what
// a freshly constructed property would use and, when they differ,
// re-points every stored value across the class. The migration is
// all-or-nothing per field: it runs inside a savepoint, and a failure
// additionally clears the field's rows through an independent
// connection so no half-migrated rows survive.
func (s *PostgresClassStore) migrateFieldIfNeeded(ctx context.Context, class *models.Class, field *models.FieldDescriptor) error {
	db := GetExecutor(ctx, s.pool)
	want := field.StorageKind()

	var stored string
	err := db.QueryRow(ctx, fmt.Sprintf(`
		SELECT p.kind FROM %s p
		JOIN %s o ON o.id = p.object_id
		WHERE o.class_name = $1 AND p.name = $2
		LIMIT 1
	`, s.tables.Properties, s.tables.Objects),
		class.Name, field.Name).Scan(&stored)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil // nothing stored yet, nothing to migrate
		}
		return fmt.Errorf("probe stored kind of %q: %w", field.Name, err)
	}
	if models.PropertyKind(stored) == want {
		return nil
	}

	s.logger.Info("migrating property storage kind",
		"class", class.Name, "field", field.Name, "from", stored, "to", want)

	migrate := func(ctx context.Context) error {
		return s.migrateField(ctx, class, field, models.PropertyKind(stored))
	}

	outer := repositories.GetTx(ctx)
	if outer == nil {
		return migrate(ctx)
	}
	sp, err := outer.Begin(ctx) // savepoint under the operation's transaction
	if err != nil {
		return fmt.Errorf("begin migration savepoint: %w", err)
	}
	if err := migrate(repositories.SetTx(ctx, sp)); err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			s.logger.Warn("migration savepoint rollback failed", "error", rbErr)
		}
		s.cleanupField(class.Name, field.Name)
		return err
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration savepoint: %w", err)
	}
	return nil
}

// migrateField moves every stored value of the field from its old kind
// to the declared one, converting between single-valued and list-valued
// representations as the new kind dictates.
func (s *PostgresClassStore) migrateField(ctx context.Context, class *models.Class, field *models.FieldDescriptor, oldKind models.PropertyKind) error {
	db := GetExecutor(ctx, s.pool)
	rows, err := db.Query(ctx, fmt.Sprintf(`
		SELECT o.id, o.doc_name, o.number FROM %s p
		JOIN %s o ON o.id = p.object_id
		WHERE o.class_name = $1 AND p.name = $2
		ORDER BY o.doc_name, o.number
	`, s.tables.Properties, s.tables.Objects),
		class.Name, field.Name)
	if err != nil {
		return fmt.Errorf("list holders of %q: %w", field.Name, err)
	}
	type holder struct {
		id      int64
		docName string
		number  int
	}
	var holders []holder
	for rows.Next() {
		var h holder
		if err := rows.Scan(&h.id, &h.docName, &h.number); err != nil {
			rows.Close()
			return fmt.Errorf("scan holder: %w", err)
		}
		holders = append(holders, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate holders: %w", err)
	}

	for _, h := range holders {
		owner := models.NewObject(h.docName, class.Name, h.number)
		old, err := models.NewProperty(oldKind, field.Name)
		if err != nil {
			return err
		}
		loaded, err := s.props.LoadProperty(ctx, owner, old)
		if err != nil {
			return err
		}
		next, err := field.NewProperty()
		if err != nil {
			return err
		}
		if err := convertProperty(loaded, next); err != nil {
			return fmt.Errorf("convert %q on %s#%d: %w", field.Name, h.docName, h.number, err)
		}
		if err := s.props.deletePropertyAllKinds(ctx, h.id, field.Name); err != nil {
			return err
		}
		if err := s.props.SaveProperty(ctx, h.id, next); err != nil {
			return err
		}
	}
	return nil
}

// cleanupField deletes the field's value rows across the class through
// an independent connection. It runs after a failed migration, outside
// whatever transaction the failure poisoned.
func (s *PostgresClassStore) cleanupField(className, fieldName string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ids, err := s.cleanupObjectIDs(ctx, className)
	if err != nil {
		s.logger.Warn("migration cleanup failed", "class", className, "field", fieldName, "error", err)
		return
	}
	clean := &PostgresPropertyStore{pool: s.pool, tables: s.tables, logger: s.logger}
	for _, id := range ids {
		if err := clean.deletePropertyAllKinds(ctx, id, fieldName); err != nil {
			s.logger.Warn("migration cleanup failed", "class", className, "field", fieldName, "error", err)
			return
		}
	}
}

func (s *PostgresClassStore) cleanupObjectIDs(ctx context.Context, className string) ([]int64, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		"SELECT id FROM %s WHERE class_name = $1", s.tables.Objects), className)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LoadClass fills the class from its stored rows. A class with no row
// is not an error: the descriptor stays as the caller built it.
func (s *PostgresClassStore) LoadClass(ctx context.Context, class *models.Class) error {
	db := GetExecutor(ctx, s.pool)

	var customClass, mappingYAML string
	err := db.QueryRow(ctx, fmt.Sprintf(
		"SELECT custom_class, custom_mapping FROM %s WHERE name = $1", s.tables.Classes),
		class.Name).Scan(&customClass, &mappingYAML)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil
		}
		return fmt.Errorf("load class row: %w", err)
	}
	class.CustomClass = customClass
	if mappingYAML != "" {
		m, err := models.ParseCustomMapping([]byte(mappingYAML))
		if err != nil {
			return fmt.Errorf("class %q: %w", class.Name, err)
		}
		class.CustomMapping = m
	}

	rows, err := db.Query(ctx, fmt.Sprintf(
		"SELECT name, kind, multi_select FROM %s WHERE class_name = $1 ORDER BY name", s.tables.ClassFields),
		class.Name)
	if err != nil {
		return fmt.Errorf("load class fields: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var f models.FieldDescriptor
		var kind string
		if err := rows.Scan(&f.Name, &kind, &f.MultiSelect); err != nil {
			return fmt.Errorf("scan class field: %w", err)
		}
		f.Kind = models.PropertyKind(kind)
		class.AddField(&f)
	}
	return rows.Err()
}

// DeleteClass removes the descriptor rows. Objects of the class are the
// orchestrator's business.
func (s *PostgresClassStore) DeleteClass(ctx context.Context, class *models.Class) error {
	db := GetExecutor(ctx, s.pool)
	if _, err := db.Exec(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE class_name = $1", s.tables.ClassFields), class.Name); err != nil {
		return fmt.Errorf("delete class fields: %w", err)
	}
	if _, err := db.Exec(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE name = $1", s.tables.Classes), class.Name); err != nil {
		return fmt.Errorf("delete class row: %w", err)
	}
	return nil
}

// convertProperty carries a value across a storage-kind change. A
// scalar landing in a list becomes its one-element list; a list landing
// in a scalar keeps its first element.
func convertProperty(old, next models.Property) error {
	switch t := next.(type) {
	case *models.ListProperty:
		if lv, ok := old.(*models.ListProperty); ok {
			t.Vals = append([]string(nil), lv.Vals...)
			return nil
		}
		return t.SetValue(models.ScalarString(old))
	case *models.StringProperty:
		t.Val = models.ScalarString(old)
	case *models.LargeStringProperty:
		t.Val = models.ScalarString(old)
	case *models.IntegerProperty:
		sv := models.ScalarString(old)
		if sv == "" {
			return t.SetValue(int64(0))
		}
		n, err := strconv.ParseInt(sv, 10, 64)
		if err != nil {
			return fmt.Errorf("value %q does not convert to %s", sv, next.Kind())
		}
		return t.SetValue(n)
	case *models.FloatProperty:
		sv := models.ScalarString(old)
		if sv == "" {
			return t.SetValue(float64(0))
		}
		f, err := strconv.ParseFloat(sv, 64)
		if err != nil {
			return fmt.Errorf("value %q does not convert to %s", sv, next.Kind())
		}
		return t.SetValue(f)
	case *models.DateProperty:
		sv := models.ScalarString(old)
		if sv == "" {
			return t.SetValue(time.Time{})
		}
		ts, err := time.Parse(time.RFC3339, sv)
		if err != nil {
			return fmt.Errorf("value %q does not convert to date", sv)
		}
		return t.SetValue(ts)
	default:
		return fmt.Errorf("unhandled conversion target %T", next)
	}
	return nil
}
