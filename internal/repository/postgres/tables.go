package postgres

import "fmt"

// TableNames holds the schema-qualified table names of one wiki. Each
// logical wiki lives in its own database schema; qualifying every table
// through this struct is what keeps the stores single-wiki.
type TableNames struct {
	Schema string

	Documents         string
	Attachments       string
	AttachmentArchive string
	DocumentArchive   string
	Objects           string
	Properties        string // master property registry: (object, name) -> kind
	Strings           string
	LargeStrings      string
	Integers          string
	Floats            string
	Dates             string
	Lists             string
	ListItems         string
	Classes           string
	ClassFields       string
	Links             string
	Locks             string
}

// NewTableNames builds the table set for the given wiki schema.
func NewTableNames(schema string) *TableNames {
	q := func(name string) string { return fmt.Sprintf("%s.%s", schema, name) }
	return &TableNames{
		Schema:            schema,
		Documents:         q("documents"),
		Attachments:       q("attachments"),
		AttachmentArchive: q("attachment_archive"),
		DocumentArchive:   q("document_archive"),
		Objects:           q("objects"),
		Properties:        q("properties"),
		Strings:           q("strings"),
		LargeStrings:      q("largestrings"),
		Integers:          q("integers"),
		Floats:            q("floats"),
		Dates:             q("dates"),
		Lists:             q("lists"),
		ListItems:         q("list_items"),
		Classes:           q("classes"),
		ClassFields:       q("class_fields"),
		Links:             q("links"),
		Locks:             q("locks"),
	}
}

// Custom qualifies a custom-mapped class table into the wiki's schema.
func (t *TableNames) Custom(table string) string {
	return fmt.Sprintf("%s.%s", t.Schema, table)
}
