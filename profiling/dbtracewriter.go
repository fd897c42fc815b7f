package profiling

import (
	"fmt"
	"sync"

	"github.com/altiuslab/benchtools/recording"
	"github.com/tebeka/atexit"
)

// TaskTableEntry is the flat, storable form of a completed record.
type TaskTableEntry struct {
	Name      string
	Scope     string
	Kind      string
	StartTime int64
	EndTime   int64
	Runtime   int64
	Status    string
	Hash      string
	Tx        string
}

// SessionTableEntry indexes one recording session.
type SessionTableEntry struct {
	TableName    string
	SessionStart int64
	SessionEnd   int64
}

// SessionIndexTable is the table that indexes recording sessions.
const SessionIndexTable = "sessions"

// DBTraceWriter is an observer that stores completed records in a recording
// backend. Records are grouped into sessions; each session gets its own
// table, indexed in the sessions table.
type DBTraceWriter struct {
	mu         sync.Mutex
	timeTeller TimeTeller
	backend    recording.Store

	recording        bool
	sessionCount     int
	currentTableName string
	sessionStart     TimeNanos
}

// NewDBTraceWriter creates a new DBTraceWriter.
func NewDBTraceWriter(
	timeTeller TimeTeller,
	backend recording.Store,
) *DBTraceWriter {
	backend.CreateTable(SessionIndexTable, SessionTableEntry{})

	w := &DBTraceWriter{
		timeTeller: timeTeller,
		backend:    backend,
	}

	atexit.Register(func() {
		w.Terminate()
	})

	return w
}

// BeginSession opens a new session table. Records completed while the
// session is open are written to it.
func (w *DBTraceWriter) BeginSession() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.recording = true
	w.sessionCount++
	w.sessionStart = w.timeTeller.CurrentTime()
	w.currentTableName = fmt.Sprintf("trace%d", w.sessionCount)
	w.backend.CreateTable(w.currentTableName, TaskTableEntry{})
}

// TaskFinished writes a completed record to the current session table.
// Records completed outside a session are dropped.
func (w *DBTraceWriter) TaskFinished(rec TaskRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.recording || w.currentTableName == "" {
		return
	}

	w.backend.Insert(w.currentTableName, TaskTableEntry{
		Name:      rec.Name,
		Scope:     rec.Scope,
		Kind:      string(rec.Kind),
		StartTime: int64(rec.StartTime),
		EndTime:   int64(rec.EndTime),
		Runtime:   int64(rec.Runtime),
		Status:    rec.Status,
		Hash:      rec.Hash,
		Tx:        rec.Tx,
	})
}

// EndSession closes the current session, writes its index row, and flushes
// the backend.
func (w *DBTraceWriter) EndSession() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.recording {
		return
	}

	w.recording = false

	w.backend.Insert(SessionIndexTable, SessionTableEntry{
		TableName:    w.currentTableName,
		SessionStart: int64(w.sessionStart),
		SessionEnd:   int64(w.timeTeller.CurrentTime()),
	})

	w.backend.Flush()
}

// Terminate flushes the backend.
func (w *DBTraceWriter) Terminate() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.backend.Flush()
}
