// Package profiling provides a concurrent execution-tracing engine. Callers
// mark the start and end of named tasks, attach annotations to tasks in
// flight, and export a consistent snapshot of every completed task as
// structured data.
//
// The package-level functions operate on a single shared Recorder, which
// matches the common case of profiling one process. Hosts that need explicit
// ownership and teardown construct their own Recorder instead.
package profiling

import "sync"

var (
	defaultRecorderOnce sync.Once
	defaultRecorder     *Recorder
)

// Default returns the shared process-wide Recorder, creating it on first
// use.
func Default() *Recorder {
	defaultRecorderOnce.Do(func() {
		defaultRecorder = NewRecorder()
	})

	return defaultRecorder
}

// Start begins timing an unscoped task on the default recorder.
func Start(name string) error {
	return Default().Start(name)
}

// End finishes an unscoped task on the default recorder.
func End(name string) error {
	return Default().End(name)
}

// Note annotates a pending unscoped task on the default recorder.
func Note(name, key, value string) error {
	return Default().Note(name, key, value)
}

// NoteTime attaches the current time as a note on the default recorder.
func NoteTime(name, key string) error {
	return Default().NoteTime(name, key)
}

// StartScoped begins timing a scoped task on the default recorder.
func StartScoped(name, scope string) error {
	return Default().StartScoped(name, scope)
}

// EndScoped finishes a scoped task on the default recorder.
func EndScoped(name, scope string) error {
	return Default().EndScoped(name, scope)
}

// NoteScoped annotates a pending scoped task on the default recorder.
func NoteScoped(name, scope, key, value string) error {
	return Default().NoteScoped(name, scope, key, value)
}

// DumpJSON exports the default recorder's snapshot to a JSON file.
func DumpJSON(path string) error {
	return Default().DumpJSON(path)
}

// DumpZIP exports the default recorder's snapshot to a ZIP archive.
func DumpZIP(path string) error {
	return Default().DumpZIP(path)
}

// Clear drops all pending and completed records on the default recorder.
func Clear() {
	Default().Clear()
}

// PendingKeys returns the keys of tasks on the default recorder that were
// started but never ended.
func PendingKeys() []TaskKey {
	return Default().PendingKeys()
}
