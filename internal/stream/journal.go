// Package stream provides the append-only workflow log journal.
package stream

import (
	"sync"
	"time"

	"github.com/ShayCichocki/teamflow/pkg/models"
)

// Journal is an append-only, monotonically sequenced log of workflow entries.
// Entries are immutable once appended; readers always observe a prefix of the
// total order.
type Journal struct {
	mu      sync.RWMutex
	entries []models.LogEntry
}

// New creates an empty journal.
func New() *Journal {
	return &Journal{}
}

// Append assigns the next sequence index to the entry, stamps it, and appends
// it. The stored entry is returned.
func (j *Journal) Append(e models.LogEntry) models.LogEntry {
	j.mu.Lock()
	defer j.mu.Unlock()

	e.Seq = len(j.entries)
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	j.entries = append(j.entries, e)
	return e
}

// Len returns the number of entries appended so far.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.entries)
}

// Entries returns a snapshot of all entries in sequence order.
func (j *Journal) Entries() []models.LogEntry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]models.LogEntry, len(j.entries))
	copy(out, j.entries)
	return out
}

// Since returns all entries with Seq >= seq, in order. Subscribers added late
// use this to catch up before switching to live notification.
func (j *Journal) Since(seq int) []models.LogEntry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if seq < 0 {
		seq = 0
	}
	if seq >= len(j.entries) {
		return nil
	}
	out := make([]models.LogEntry, len(j.entries)-seq)
	copy(out, j.entries[seq:])
	return out
}
