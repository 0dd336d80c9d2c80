package postgres

import (
	"fmt"
	"time"

	"wikistore/internal/delta"
	"wikistore/internal/domain/models"
)

// archiveRow is one stored link of a delta chain, its payload still
// encoded. Rows are ordered by ord, with ord 0 holding the full
// snapshot the rest of the chain applies against.
type archiveRow struct {
	version string
	author  string
	date    time.Time
	isFull  bool
	payload []byte
}

// materializeChain replays encoded rows, oldest first, into fully
// reconstructed revisions. Every delta applies against the revision
// directly before it.
func materializeChain(rows []archiveRow) ([]models.AttachmentRevision, error) {
	var revisions []models.AttachmentRevision
	var prev []byte
	for _, r := range rows {
		rev := models.AttachmentRevision{Version: r.version, Author: r.author, Date: r.date}
		if r.isFull {
			rev.Content = append([]byte(nil), r.payload...)
		} else {
			content, err := delta.Apply(prev, r.payload)
			if err != nil {
				return nil, fmt.Errorf("reconstruct revision %s: %w", r.version, err)
			}
			rev.Content = content
		}
		prev = rev.Content
		revisions = append(revisions, rev)
	}
	return revisions, nil
}

// nextChainPayload encodes content as the next link of the chain: a
// full snapshot when the chain is empty, else a delta against the
// newest revision. The new link is stored at ord len(chain).
func nextChainPayload(chain []models.AttachmentRevision, content []byte) (isFull bool, payload []byte) {
	if len(chain) == 0 {
		return true, content
	}
	return false, delta.Encode(chain[len(chain)-1].Content, content)
}

// chainHasVersion reports whether the chain already archives version.
func chainHasVersion(chain []models.AttachmentRevision, version string) bool {
	for _, rev := range chain {
		if rev.Version == version {
			return true
		}
	}
	return false
}
