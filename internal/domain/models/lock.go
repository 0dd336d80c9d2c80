package models

import "time"

// Lock is a single editing lock on one document. Timeout policy lives
// with the caller; the store only keeps the row.
type Lock struct {
	DocID int64
	Owner string
	Token string // opaque, assigned when the lock is first saved
	Date  time.Time
}
