// Package stats holds the search audit trail types.
package stats

import "time"

// MaxRecent is the number of audit records kept, most recent first.
const MaxRecent = 50

// Record is one search audit entry.
type Record struct {
	Timestamp   time.Time
	Query       string
	TopK        int
	HitCount    int
	ClientAgent string
}

// Snapshot is the current counter and audit list.
type Snapshot struct {
	Total  int64
	Recent []Record
}

// Prepend returns recent with rec in front, capped at MaxRecent.
func Prepend(recent []Record, rec Record) []Record {
	n := len(recent) + 1
	if n > MaxRecent {
		n = MaxRecent
	}
	out := make([]Record, n)
	out[0] = rec
	copy(out[1:], recent)
	return out
}
