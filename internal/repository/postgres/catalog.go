package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"wikistore/internal/domain"
	"wikistore/internal/domain/models"
	"wikistore/internal/domain/repositories"
)

// columnCompat is the fixed compatibility table keyed by property kind:
// which SQL column types a custom mapping may route each kind into.
// The numeric and boolean rows are deliberately permissive (boolean
// accepts the integer family) to stay loadable against existing
// installations.
var columnCompat = map[models.PropertyKind][]string{
	models.KindString:      {"varchar", "character varying", "char", "text", "clob"},
	models.KindLargeString: {"text", "clob", "varchar", "character varying"},
	models.KindInteger:     {"integer", "int", "smallint", "bigint", "numeric", "decimal", "boolean"},
	models.KindLong:        {"bigint", "integer", "int", "numeric", "decimal"},
	models.KindFloat:       {"real", "float", "double precision", "numeric", "decimal"},
	models.KindDouble:      {"double precision", "real", "float", "numeric", "decimal"},
	models.KindBoolean:     {"boolean", "integer", "int", "smallint", "numeric"},
	models.KindDate:        {"date", "time", "timestamp", "timestamptz", "timestamp with time zone", "timestamp without time zone"},
	models.KindList:        {"varchar", "character varying", "text"},
}

// columnTypePattern constrains the raw declared type to a bare type
// name with an optional length argument; the type itself is then
// checked against the compatibility table.
var columnTypePattern = regexp.MustCompile(`^[A-Za-z ]+(\(\d+(,\s*\d+)?\))?$`)

// normalizeColumnType lowers the declared type and strips any length
// argument, so varchar(255) validates as varchar.
func normalizeColumnType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if i := strings.IndexByte(t, '('); i > 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}

// ValidateCustomMapping checks a mapping declaration against its class:
// every column must map a declared property, through a column type
// compatible with that property's storage kind, and every identifier
// must be safe to interpolate into DDL.
func ValidateCustomMapping(class *models.Class, m *models.CustomMapping) error {
	reject := func(reason string) error {
		return &domain.InvalidMappingError{ClassName: class.Name, Reason: reason}
	}
	if m.Table == "" {
		return reject("no table declared")
	}
	if err := ValidateIdent(m.Table); err != nil {
		return reject(fmt.Sprintf("table name %q: %v", m.Table, err))
	}
	if len(m.Columns) == 0 {
		return reject("no columns declared")
	}
	seen := map[string]bool{}
	for _, col := range m.Columns {
		if err := ValidateIdent(col.Name); err != nil {
			return reject(fmt.Sprintf("column name %q: %v", col.Name, err))
		}
		if seen[col.Name] {
			return reject(fmt.Sprintf("column %q declared twice", col.Name))
		}
		seen[col.Name] = true
		field, ok := class.Fields[col.Property]
		if !ok {
			return reject(fmt.Sprintf("column %q maps property %q which the class does not declare", col.Name, col.Property))
		}
		if !columnTypePattern.MatchString(strings.TrimSpace(col.Type)) {
			return reject(fmt.Sprintf("column %q declares malformed type %q", col.Name, col.Type))
		}
		kind := field.StorageKind()
		allowed, ok := columnCompat[kind]
		if !ok {
			return reject(fmt.Sprintf("property %q has unmappable kind %q", col.Property, kind))
		}
		normalized := normalizeColumnType(col.Type)
		compatible := false
		for _, a := range allowed {
			if normalized == a {
				compatible = true
				break
			}
		}
		if !compatible {
			return reject(fmt.Sprintf("column %q type %q is incompatible with property %q of kind %q",
				col.Name, col.Type, col.Property, kind))
		}
	}
	return nil
}

// Catalog is the process-wide registry of accepted custom mappings. It
// is mutable at runtime: injecting a class folds its dedicated table
// into the catalog. All injections serialize on one lock because they
// mutate shared mapping state; reads take a snapshot and stay valid for
// the rest of their operation even if a rebuild lands meanwhile.
type Catalog struct {
	mu      sync.RWMutex
	version int
	custom  map[string]*models.CustomMapping
}

// NewCatalog builds the baseline catalog with no custom mappings.
func NewCatalog() *Catalog {
	return &Catalog{custom: map[string]*models.CustomMapping{}}
}

// Mapping returns the accepted mapping for a class, or nil.
func (c *Catalog) Mapping(className string) *models.CustomMapping {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.custom[className]
}

// Version identifies the current catalog build.
func (c *Catalog) Version() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Inject folds the class's custom mapping into the catalog and
// provisions its dedicated table. Re-injecting an already-mapped class
// is a cheap no-op. A mapping that fails validation is rejected with
// InvalidMappingError and the previous catalog stays untouched; a
// provisioning failure surfaces as MappingInjectionError.
func (c *Catalog) Inject(ctx context.Context, db repositories.DBTX, tables *TableNames, class *models.Class) error {
	if class.CustomMapping == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, done := c.custom[class.Name]; done {
		return nil
	}
	if err := ValidateCustomMapping(class, class.CustomMapping); err != nil {
		return err
	}

	ddl := customTableDDL(tables, class.CustomMapping)
	if _, err := db.Exec(ctx, ddl); err != nil {
		return &domain.MappingInjectionError{ClassName: class.Name, Err: err}
	}

	m := *class.CustomMapping
	m.Columns = append([]models.ColumnSpec(nil), class.CustomMapping.Columns...)
	c.custom[class.Name] = &m
	c.version++
	return nil
}

// customTableDDL renders the dedicated table for a validated mapping.
// The id column carries the owning object's row id.
func customTableDDL(tables *TableNames, m *models.CustomMapping) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (id BIGINT PRIMARY KEY", tables.Custom(m.Table))
	for _, col := range m.Columns {
		fmt.Fprintf(&b, ", %s %s", col.Name, col.Type)
	}
	b.WriteString(")")
	return b.String()
}
