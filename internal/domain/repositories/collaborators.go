package repositories

import (
	"context"

	"wikistore/internal/domain/models"
)

// Renderer is the external rendering engine, consumed only to extract
// the outgoing references of a document's content. A rendering failure
// must never abort the surrounding save; callers treat it as "no
// links."
type Renderer interface {
	ExtractLinks(ctx context.Context, content string, doc *models.Document) ([]string, error)
}

// Authorizer is the external rights service, consulted optionally when
// search results are filtered by view permission.
type Authorizer interface {
	CheckAccess(ctx context.Context, action string, doc *models.Document) bool
}
