package profiling

import (
	"fmt"
	"os"
	"sync"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// CSVTraceWriter is an observer that stores completed records in a CSV file.
type CSVTraceWriter struct {
	path string
	file *os.File

	mu         sync.Mutex
	records    []TaskRecord
	bufferSize int
}

// NewCSVTraceWriter creates a new CSVTraceWriter.
func NewCSVTraceWriter(path string) *CSVTraceWriter {
	return &CSVTraceWriter{
		path:       path,
		bufferSize: 1000,
	}
}

// Init creates the tracing CSV file. If the file already exists, Init
// panics.
func (t *CSVTraceWriter) Init() {
	if t.path == "" {
		t.path = "benchtools_trace_" + xid.New().String()
	}

	filename := t.path + ".csv"
	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	file, err := os.Create(filename)
	if err != nil {
		panic(err)
	}
	t.file = file

	fmt.Fprintf(file, "Name, Scope, Kind, Start, End, Runtime, Status, Hash\n")

	atexit.Register(func() {
		t.Flush()
		err := t.file.Close()
		if err != nil {
			panic(err)
		}
	})
}

// TaskFinished buffers a completed record for writing.
func (t *CSVTraceWriter) TaskFinished(rec TaskRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records = append(t.records, rec)
	if len(t.records) >= t.bufferSize {
		t.flushToFile()
	}
}

// Flush writes the buffered records to the CSV file.
func (t *CSVTraceWriter) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.flushToFile()
}

func (t *CSVTraceWriter) flushToFile() {
	for _, rec := range t.records {
		fmt.Fprintf(t.file, "%s, %s, %s, %d, %d, %d, %s, %s\n",
			rec.Name,
			rec.Scope,
			rec.Kind,
			rec.StartTime,
			rec.EndTime,
			rec.Runtime,
			rec.Status,
			rec.Hash,
		)
	}

	t.records = nil
}
