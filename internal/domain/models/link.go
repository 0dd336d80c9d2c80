package models

// Link is one outgoing reference from a document. Link rows are purely
// derived data: the tracker recomputes and replaces them on every save
// that changes rendered content.
type Link struct {
	DocID    int64  // source document row id
	Target   string // referenced full name, as rendered
	FullName string // source document full name
}
