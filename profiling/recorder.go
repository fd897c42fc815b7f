package profiling

import (
	"strconv"
	"sync"
)

// Recorder is the public tracing surface. It owns a registry of pending
// tasks and an append-only log of completed ones, and fans completed records
// out to any attached observers.
//
// All methods are safe for concurrent use. Misuse (duplicate start, end or
// note without a matching start) is reported through the returned error and
// never aborts the caller or corrupts previously recorded state.
type Recorder struct {
	timeTeller TimeTeller
	registry   *Registry
	log        *CompletedLog

	observerLock sync.Mutex
	observers    []Observer
}

// NewRecorder creates a Recorder backed by a fresh monotonic clock.
func NewRecorder() *Recorder {
	return NewRecorderWithTimeTeller(NewClock())
}

// NewRecorderWithTimeTeller creates a Recorder that stamps records with the
// given TimeTeller, injecting the time source as a dependency.
func NewRecorderWithTimeTeller(timeTeller TimeTeller) *Recorder {
	return &Recorder{
		timeTeller: timeTeller,
		registry:   NewRegistry(timeTeller),
		log:        NewCompletedLog(),
	}
}

// AcceptObserver registers an observer that is notified of every completed
// record.
func (r *Recorder) AcceptObserver(o Observer) {
	r.observerLock.Lock()
	r.observers = append(r.observers, o)
	r.observerLock.Unlock()
}

// Start begins timing an unscoped task. A second Start on the same name
// before End returns ErrAlreadyPending and leaves the original timing
// untouched.
func (r *Recorder) Start(name string) error {
	return r.registry.Begin(TaskKey{Name: name, Scope: Unscoped})
}

// End finishes an unscoped task and appends its record to the completed log.
// Ending a task that was never started returns ErrNoSuchPending and appends
// nothing.
func (r *Recorder) End(name string) error {
	return r.finish(TaskKey{Name: name, Scope: Unscoped})
}

// Note attaches a key-value annotation to a pending unscoped task. Noting a
// task that is not pending returns ErrNoSuchPending; records already in the
// completed log are never mutated.
func (r *Recorder) Note(name, key, value string) error {
	return r.registry.Annotate(TaskKey{Name: name, Scope: Unscoped}, key, value)
}

// NoteTime attaches the current time as the value for key on a pending
// unscoped task.
func (r *Recorder) NoteTime(name, key string) error {
	return r.Note(name, key,
		strconv.FormatInt(int64(r.timeTeller.CurrentTime()), 10))
}

// StartScoped, EndScoped, and NoteScoped are the scope-qualified variants of
// Start, End, and Note. Tasks with the same name but different scopes occupy
// independent registry slots, so concurrent workers can reuse a task name
// without colliding.
func (r *Recorder) StartScoped(name, scope string) error {
	return r.registry.Begin(TaskKey{Name: name, Scope: scope})
}

// EndScoped finishes a scoped task.
func (r *Recorder) EndScoped(name, scope string) error {
	return r.finish(TaskKey{Name: name, Scope: scope})
}

// NoteScoped annotates a pending scoped task.
func (r *Recorder) NoteScoped(name, scope, key, value string) error {
	return r.registry.Annotate(TaskKey{Name: name, Scope: scope}, key, value)
}

// Scope returns a view of the recorder bound to the given scope. Each
// concurrent worker should create its own view so that same-named tasks
// never alias.
func (r *Recorder) Scope(scope string) *ScopedRecorder {
	return &ScopedRecorder{recorder: r, scope: scope}
}

func (r *Recorder) finish(key TaskKey) error {
	rec, err := r.registry.Finish(key)
	if err != nil {
		return err
	}

	r.log.Append(rec)

	r.observerLock.Lock()
	observers := r.observers
	r.observerLock.Unlock()

	for _, o := range observers {
		o.TaskFinished(rec)
	}

	return nil
}

// Snapshot returns a consistent point-in-time copy of all completed records.
func (r *Recorder) Snapshot() []TaskRecord {
	return r.log.Snapshot()
}

// PendingKeys returns the keys of all tasks that were started but not yet
// ended.
func (r *Recorder) PendingKeys() []TaskKey {
	return r.registry.PendingKeys()
}

// CompletedCount returns the number of completed records.
func (r *Recorder) CompletedCount() int {
	return r.log.Len()
}

// CurrentTime returns the recorder's clock reading.
func (r *Recorder) CurrentTime() TimeNanos {
	return r.timeTeller.CurrentTime()
}

// Clear drops all pending and completed records. The clock keeps its
// genesis.
func (r *Recorder) Clear() {
	r.registry.Clear()
	r.log.Clear()
}

// A ScopedRecorder is a view of a Recorder with a fixed scope. It carries
// the same Start/End/Note surface, addressed to scope-qualified keys.
type ScopedRecorder struct {
	recorder *Recorder
	scope    string
}

// Start begins timing a task in this view's scope.
func (s *ScopedRecorder) Start(name string) error {
	return s.recorder.StartScoped(name, s.scope)
}

// End finishes a task in this view's scope.
func (s *ScopedRecorder) End(name string) error {
	return s.recorder.EndScoped(name, s.scope)
}

// Note annotates a pending task in this view's scope.
func (s *ScopedRecorder) Note(name, key, value string) error {
	return s.recorder.NoteScoped(name, s.scope, key, value)
}

// NoteTime attaches the current time as the value for key on a pending task
// in this view's scope.
func (s *ScopedRecorder) NoteTime(name, key string) error {
	return s.Note(name, key,
		strconv.FormatInt(int64(s.recorder.timeTeller.CurrentTime()), 10))
}

// ScopeName returns the scope this view is bound to.
func (s *ScopedRecorder) ScopeName() string {
	return s.scope
}
