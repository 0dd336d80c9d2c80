package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"wikistore/internal/domain"
	"wikistore/internal/domain/models"
	"wikistore/internal/domain/repositories"
)

// PostgresPropertyStore is the generic typed-property layer: one table
// per storage kind, rows keyed by (owning object id, property name),
// plus a master registry row recording which kind each property is
// stored as.
type PostgresPropertyStore struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewPropertyStore creates the EAV property store.
func NewPropertyStore(config *RepositoryConfig) repositories.PropertyStore {
	return newPropertyStore(config)
}

func newPropertyStore(config *RepositoryConfig) *PostgresPropertyStore {
	return &PostgresPropertyStore{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// kindTable maps a property kind to its value table. Integer-family
// kinds share one table, as do the float-family kinds.
func (s *PostgresPropertyStore) kindTable(kind models.PropertyKind) (string, bool) {
	switch kind {
	case models.KindString:
		return s.tables.Strings, true
	case models.KindLargeString:
		return s.tables.LargeStrings, true
	case models.KindInteger, models.KindLong, models.KindBoolean:
		return s.tables.Integers, true
	case models.KindFloat, models.KindDouble:
		return s.tables.Floats, true
	case models.KindDate:
		return s.tables.Dates, true
	case models.KindList:
		return s.tables.Lists, true
	}
	return "", false
}

// SaveProperty writes one property. Existence is decided by a point
// query and followed by a plain INSERT or UPDATE: the value tables are
// differently typed and a generic upsert across them is not worth
// trusting.
func (s *PostgresPropertyStore) SaveProperty(ctx context.Context, objectID int64, prop models.Property) error {
	db := GetExecutor(ctx, s.pool)

	table, ok := s.kindTable(prop.Kind())
	if !ok {
		return fmt.Errorf("save property %q: unknown kind %q", prop.Name(), prop.Kind())
	}

	// Master registry row first, so loads always know the stored kind.
	var found bool
	err := db.QueryRow(ctx, fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE object_id = $1 AND name = $2)", s.tables.Properties),
		objectID, prop.Name()).Scan(&found)
	if err != nil {
		return fmt.Errorf("check property %q: %w", prop.Name(), err)
	}
	if found {
		_, err = db.Exec(ctx, fmt.Sprintf(
			"UPDATE %s SET kind = $3 WHERE object_id = $1 AND name = $2", s.tables.Properties),
			objectID, prop.Name(), string(prop.Kind()))
	} else {
		_, err = db.Exec(ctx, fmt.Sprintf(
			"INSERT INTO %s (object_id, name, kind) VALUES ($1, $2, $3)", s.tables.Properties),
			objectID, prop.Name(), string(prop.Kind()))
	}
	if err != nil {
		return fmt.Errorf("register property %q: %w", prop.Name(), err)
	}

	if list, isList := prop.(*models.ListProperty); isList {
		return s.saveList(ctx, db, objectID, list)
	}

	var exists bool
	err = db.QueryRow(ctx, fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE object_id = $1 AND name = $2)", table),
		objectID, prop.Name()).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check property value %q: %w", prop.Name(), err)
	}

	value := storageValue(prop)
	if exists {
		_, err = db.Exec(ctx, fmt.Sprintf(
			"UPDATE %s SET value = $3 WHERE object_id = $1 AND name = $2", table),
			objectID, prop.Name(), value)
	} else {
		_, err = db.Exec(ctx, fmt.Sprintf(
			"INSERT INTO %s (object_id, name, value) VALUES ($1, $2, $3)", table),
			objectID, prop.Name(), value)
	}
	if err != nil {
		return fmt.Errorf("save property value %q: %w", prop.Name(), err)
	}
	return nil
}

// saveList replaces the list row and its items wholesale; item order is
// the stored order.
func (s *PostgresPropertyStore) saveList(ctx context.Context, db repositories.DBTX, objectID int64, list *models.ListProperty) error {
	var exists bool
	err := db.QueryRow(ctx, fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE object_id = $1 AND name = $2)", s.tables.Lists),
		objectID, list.Name()).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check list %q: %w", list.Name(), err)
	}
	if !exists {
		if _, err := db.Exec(ctx, fmt.Sprintf(
			"INSERT INTO %s (object_id, name) VALUES ($1, $2)", s.tables.Lists),
			objectID, list.Name()); err != nil {
			return fmt.Errorf("save list %q: %w", list.Name(), err)
		}
	}
	if _, err := db.Exec(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE object_id = $1 AND name = $2", s.tables.ListItems),
		objectID, list.Name()); err != nil {
		return fmt.Errorf("clear list items %q: %w", list.Name(), err)
	}
	for ord, v := range list.Vals {
		if _, err := db.Exec(ctx, fmt.Sprintf(
			"INSERT INTO %s (object_id, name, ord, value) VALUES ($1, $2, $3, $4)", s.tables.ListItems),
			objectID, list.Name(), ord, v); err != nil {
			return fmt.Errorf("save list item %q[%d]: %w", list.Name(), ord, err)
		}
	}
	return nil
}

// LoadProperty loads the stored value for obj's property named like
// prop. A short string historically stored as a long string (or the
// reverse) is recovered by retrying with the alternate concrete type
// and copying the value across; any other miss is fatal and names the
// object, class, number and property.
func (s *PostgresPropertyStore) LoadProperty(ctx context.Context, obj *models.Object, prop models.Property) (models.Property, error) {
	db := GetExecutor(ctx, s.pool)
	objectID := obj.ID()

	loaded, err := s.loadValue(ctx, db, objectID, prop)
	if err == nil {
		return loaded, nil
	}
	if !IsPgNoRowsError(err) {
		return nil, s.loadError(obj, prop.Name(), err)
	}

	// Recoverable mismatch: retry the alternate string table.
	var alt models.Property
	switch prop.Kind() {
	case models.KindString:
		alt, _ = models.NewProperty(models.KindLargeString, prop.Name())
	case models.KindLargeString:
		alt, _ = models.NewProperty(models.KindString, prop.Name())
	default:
		return nil, s.loadError(obj, prop.Name(), err)
	}
	loaded, altErr := s.loadValue(ctx, db, objectID, alt)
	if altErr != nil {
		return nil, s.loadError(obj, prop.Name(), err)
	}
	// Copy the value across to the declared kind; the next save will
	// re-point the stored row.
	if setErr := prop.SetValue(loaded.Value()); setErr != nil {
		return nil, s.loadError(obj, prop.Name(), setErr)
	}
	s.logger.Debug("recovered property from alternate string table",
		"object", obj.DocumentName, "property", prop.Name(), "stored_kind", loaded.Kind())
	return prop, nil
}

func (s *PostgresPropertyStore) loadError(obj *models.Object, name string, err error) error {
	return &domain.PropertyLoadError{
		Document: obj.DocumentName,
		Class:    obj.ClassName,
		Number:   obj.Number,
		Property: name,
		Err:      err,
	}
}

// loadValue fills prop from its kind table. Lists are materialized
// fully: later code paths assume eager value slices.
func (s *PostgresPropertyStore) loadValue(ctx context.Context, db repositories.DBTX, objectID int64, prop models.Property) (models.Property, error) {
	if list, isList := prop.(*models.ListProperty); isList {
		var exists bool
		err := db.QueryRow(ctx, fmt.Sprintf(
			"SELECT EXISTS (SELECT 1 FROM %s WHERE object_id = $1 AND name = $2)", s.tables.Lists),
			objectID, list.Name()).Scan(&exists)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, pgx.ErrNoRows
		}
		rows, err := db.Query(ctx, fmt.Sprintf(
			"SELECT value FROM %s WHERE object_id = $1 AND name = $2 ORDER BY ord", s.tables.ListItems),
			objectID, list.Name())
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var vals []string
		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		list.Vals = vals
		return list, nil
	}

	table, ok := s.kindTable(prop.Kind())
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", prop.Kind())
	}
	row := db.QueryRow(ctx, fmt.Sprintf(
		"SELECT value FROM %s WHERE object_id = $1 AND name = $2", table),
		objectID, prop.Name())

	switch p := prop.(type) {
	case *models.StringProperty:
		if err := row.Scan(&p.Val); err != nil {
			return nil, err
		}
	case *models.LargeStringProperty:
		if err := row.Scan(&p.Val); err != nil {
			return nil, err
		}
	case *models.IntegerProperty:
		if err := row.Scan(&p.Val); err != nil {
			return nil, err
		}
	case *models.FloatProperty:
		if err := row.Scan(&p.Val); err != nil {
			return nil, err
		}
	case *models.DateProperty:
		var t time.Time
		if err := row.Scan(&t); err != nil {
			return nil, err
		}
		p.Val = t
	default:
		return nil, fmt.Errorf("unhandled property type %T", prop)
	}
	return prop, nil
}

// DeleteProperty removes one property row and its registry entry.
func (s *PostgresPropertyStore) DeleteProperty(ctx context.Context, objectID int64, name string, kind models.PropertyKind) error {
	db := GetExecutor(ctx, s.pool)
	table, ok := s.kindTable(kind)
	if !ok {
		return fmt.Errorf("delete property %q: unknown kind %q", name, kind)
	}
	if kind == models.KindList {
		if _, err := db.Exec(ctx, fmt.Sprintf(
			"DELETE FROM %s WHERE object_id = $1 AND name = $2", s.tables.ListItems),
			objectID, name); err != nil {
			return fmt.Errorf("delete list items %q: %w", name, err)
		}
	}
	if _, err := db.Exec(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE object_id = $1 AND name = $2", table),
		objectID, name); err != nil {
		return fmt.Errorf("delete property value %q: %w", name, err)
	}
	if _, err := db.Exec(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE object_id = $1 AND name = $2", s.tables.Properties),
		objectID, name); err != nil {
		return fmt.Errorf("unregister property %q: %w", name, err)
	}
	return nil
}

// deletePropertyAllKinds removes a property from every value table; it
// backs removal journals, where the stored kind is no longer known.
func (s *PostgresPropertyStore) deletePropertyAllKinds(ctx context.Context, objectID int64, name string) error {
	db := GetExecutor(ctx, s.pool)
	for _, table := range []string{
		s.tables.ListItems, s.tables.Lists, s.tables.Strings, s.tables.LargeStrings,
		s.tables.Integers, s.tables.Floats, s.tables.Dates, s.tables.Properties,
	} {
		if _, err := db.Exec(ctx, fmt.Sprintf(
			"DELETE FROM %s WHERE object_id = $1 AND name = $2", table),
			objectID, name); err != nil {
			return fmt.Errorf("delete property %q from %s: %w", name, table, err)
		}
	}
	return nil
}

// storageValue renders a property's value in the shape its kind table
// stores.
func storageValue(prop models.Property) any {
	switch p := prop.(type) {
	case *models.StringProperty:
		return p.Val
	case *models.LargeStringProperty:
		return p.Val
	case *models.IntegerProperty:
		return p.Val
	case *models.FloatProperty:
		return p.Val
	case *models.DateProperty:
		return p.Val
	default:
		return prop.Value()
	}
}
