package profiling

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Unscoped is the scope shared by all callers that use the plain Start/End
// API. Tasks started with the same name under the Unscoped scope alias onto
// a single registry slot.
const Unscoped = "unscoped"

// CommitTaskName is the reserved task name that classifies a task as a
// commit even when no explicit type note is attached.
const CommitTaskName = "commit"

// Reserved note keys. Notes with these keys also populate the typed detail
// slots of the record they are attached to.
const (
	NoteKeyType   = "type"
	NoteKeyHash   = "hash"
	NoteKeyTx     = "tx"
	NoteKeyStatus = "status"
)

// Kind classifies a completed task and governs the shape the exporter emits
// for it.
type Kind string

// The possible task kinds.
const (
	KindGeneric     Kind = "generic"
	KindTransaction Kind = "transaction"
	KindCommit      Kind = "commit"
)

// A TaskKey is the identity of a task instance. Scope separates same-named
// tasks that run concurrently on independent workers.
type TaskKey struct {
	Name  string
	Scope string
}

// A TaskRecord is the state of one task. While the task is pending the
// record lives in the registry and is mutable; once finished it is immutable
// and owned by the completed log.
type TaskRecord struct {
	Name      string
	Scope     string
	Kind      Kind
	StartTime TimeNanos
	EndTime   TimeNanos
	Runtime   TimeNanos
	Notes     Notes

	// Typed detail slots, populated from reserved note keys.
	Hash   string
	Tx     string
	Status string
}

// Key returns the registry key of the record.
func (r TaskRecord) Key() TaskKey {
	return TaskKey{Name: r.Name, Scope: r.Scope}
}

// TaskFilter is a function that can filter interesting tasks. If this
// function returns true, the task is considered useful.
type TaskFilter func(r TaskRecord) bool

// Notes is an ordered string-to-string mapping. Iteration and JSON encoding
// follow insertion order; setting an existing key overwrites its value in
// place.
type Notes struct {
	keys   []string
	values map[string]string
}

// Set upserts a key-value pair.
func (n *Notes) Set(key, value string) {
	if n.values == nil {
		n.values = make(map[string]string)
	}

	if _, ok := n.values[key]; !ok {
		n.keys = append(n.keys, key)
	}

	n.values[key] = value
}

// Get returns the value for key and whether the key is present.
func (n *Notes) Get(key string) (string, bool) {
	v, ok := n.values[key]
	return v, ok
}

// Len returns the number of entries.
func (n *Notes) Len() int {
	return len(n.keys)
}

// Keys returns the keys in insertion order.
func (n *Notes) Keys() []string {
	keys := make([]string, len(n.keys))
	copy(keys, n.keys)

	return keys
}

// Clone returns an independent copy.
func (n *Notes) Clone() Notes {
	c := Notes{}
	for _, k := range n.keys {
		c.Set(k, n.values[k])
	}

	return c
}

// MarshalJSON encodes the notes as a JSON object, keys in insertion order.
func (n Notes) MarshalJSON() ([]byte, error) {
	buf := bytes.Buffer{}
	buf.WriteByte('{')

	for i, k := range n.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}

		vb, err := json.Marshal(n.values[k])
		if err != nil {
			return nil, err
		}

		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into notes, preserving the key order
// of the document.
func (n *Notes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	// Opening brace.
	_, err := dec.Token()
	if err != nil {
		return err
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}

		var value string
		err = dec.Decode(&value)
		if err != nil {
			return err
		}

		n.Set(keyTok.(string), value)
	}

	_, err = dec.Token()

	return err
}

// inferKind decides the kind of a finishing task. An explicit type note
// wins, then a well-formed hash note makes the task a transaction, then the
// reserved commit name makes it a commit.
func inferKind(name string, notes *Notes) Kind {
	if t, ok := notes.Get(NoteKeyType); ok {
		switch Kind(t) {
		case KindTransaction:
			return KindTransaction
		case KindCommit:
			return KindCommit
		}
	}

	if h, ok := notes.Get(NoteKeyHash); ok && isHexDigest(h) {
		return KindTransaction
	}

	if name == CommitTaskName {
		return KindCommit
	}

	return KindGeneric
}

func isHexDigest(s string) bool {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return false
	}

	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}

	return true
}
