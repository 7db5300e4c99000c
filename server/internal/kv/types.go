package kv

import "time"

// Session is what survives a restart. The catalog is never persisted, it is
// rebuilt by probing.
type Session struct {
	URL     string
	SavedAt time.Time
}
