package services

import "time"

// EditWindow is how long after creation a transaction stays editable.
const EditWindow = 12 * time.Hour

// CanEdit reports whether a transaction created at createdAt may still be
// modified at now. The boundary is inclusive: exactly 12 hours after creation
// is still editable, one second later is not. Deletion is never gated by
// this window, only editing is.
func CanEdit(createdAt, now time.Time) bool {
	return now.Sub(createdAt) <= EditWindow
}
