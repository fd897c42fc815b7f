package profiling

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// A Document is the exported form of a snapshot.
type Document struct {
	Details []Entry `json:"details"`
}

// An Entry is the exported form of one completed record. Which fields are
// present depends on the record's kind: transaction and commit entries carry
// status, tx, and a detail object with the hash; generic entries carry the
// task name and the raw notes.
type Entry struct {
	Type    string    `json:"type"`
	Name    string    `json:"name,omitempty"`
	Tx      string    `json:"tx,omitempty"`
	Start   TimeNanos `json:"start"`
	End     TimeNanos `json:"end"`
	Runtime TimeNanos `json:"runtime"`
	Status  string    `json:"status,omitempty"`
	Detail  *Notes    `json:"detail,omitempty"`
}

// BuildDocument maps a snapshot to its exported document.
func BuildDocument(snapshot []TaskRecord) Document {
	doc := Document{Details: []Entry{}}
	for _, rec := range snapshot {
		doc.Details = append(doc.Details, buildEntry(rec))
	}

	return doc
}

func buildEntry(rec TaskRecord) Entry {
	entry := Entry{
		Type:    string(rec.Kind),
		Start:   rec.StartTime,
		End:     rec.EndTime,
		Runtime: rec.Runtime,
	}

	switch rec.Kind {
	case KindTransaction:
		entry.Tx = rec.Tx
		if entry.Tx == "" {
			entry.Tx = rec.Name
		}

		entry.Status = rec.Status
		if entry.Status == "" {
			entry.Status = "unknown"
		}

		entry.Detail = detailObject(rec)
	case KindCommit:
		entry.Tx = rec.Tx
		entry.Status = rec.Status
		entry.Detail = detailObject(rec)
	default:
		if t, ok := rec.Notes.Get(NoteKeyType); ok {
			entry.Type = t
		} else {
			entry.Type = "other"
		}

		entry.Name = rec.Name
		if rec.Notes.Len() > 0 {
			notes := rec.Notes.Clone()
			entry.Detail = &notes
		}
	}

	return entry
}

// detailObject renders the record's notes with the type slot mirroring the
// inferred kind.
func detailObject(rec TaskRecord) *Notes {
	detail := rec.Notes.Clone()
	detail.Set(NoteKeyType, string(rec.Kind))

	return &detail
}

// RenderJSON renders a snapshot as the exported JSON document.
func RenderJSON(snapshot []TaskRecord) ([]byte, error) {
	doc := BuildDocument(snapshot)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("rendering snapshot: %w", err)
	}

	return data, nil
}

// DumpJSON takes a snapshot, renders it as JSON, and writes it to path. The
// write is atomic: a failure leaves any previous file at path untouched.
func (r *Recorder) DumpJSON(path string) error {
	data, err := RenderJSON(r.Snapshot())
	if err != nil {
		return err
	}

	return writeFileAtomic(path, data)
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it into place, so a reader never observes a partially written file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	f, err := os.CreateTemp(dir, ".benchtools-*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}

	_, err = f.Write(data)
	if err != nil {
		f.Close()
		os.Remove(f.Name())

		return fmt.Errorf("writing %s: %w", path, err)
	}

	err = f.Close()
	if err != nil {
		os.Remove(f.Name())

		return fmt.Errorf("writing %s: %w", path, err)
	}

	err = os.Rename(f.Name(), path)
	if err != nil {
		os.Remove(f.Name())

		return fmt.Errorf("replacing %s: %w", path, err)
	}

	return nil
}
