package profiling

import "sync"

// CompletedLog is an append-only, thread-safe ordered collection of finished
// task records. Its iteration order is append order, which is a valid
// linearization of completion times.
type CompletedLog struct {
	mu      sync.RWMutex
	records []TaskRecord
}

// NewCompletedLog creates an empty CompletedLog.
func NewCompletedLog() *CompletedLog {
	return &CompletedLog{}
}

// Append adds a finished record to the log.
func (l *CompletedLog) Append(rec TaskRecord) {
	l.mu.Lock()
	l.records = append(l.records, rec)
	l.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the log. Records appended
// concurrently are either fully present or fully absent; the notes of each
// record are cloned so the snapshot is independent of anything the caller
// holds.
func (l *CompletedLog) Snapshot() []TaskRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snapshot := make([]TaskRecord, len(l.records))
	for i, rec := range l.records {
		snapshot[i] = rec
		snapshot[i].Notes = rec.Notes.Clone()
	}

	return snapshot
}

// Len returns the number of completed records.
func (l *CompletedLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.records)
}

// Clear drops all completed records.
func (l *CompletedLog) Clear() {
	l.mu.Lock()
	l.records = nil
	l.mu.Unlock()
}
