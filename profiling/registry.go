package profiling

import (
	"hash/fnv"
	"sync"
)

const registryShardCount = 64

type registryShard struct {
	mu      sync.Mutex
	pending map[TaskKey]*TaskRecord
}

// Registry holds the currently pending task records, addressable by TaskKey.
// It is sharded by key hash so that tasks on unrelated keys do not contend
// on a single lock; operations on the same key are serialized by the shard
// lock and therefore observe a single total order.
type Registry struct {
	timeTeller TimeTeller
	shards     [registryShardCount]registryShard
}

// NewRegistry creates a Registry that stamps records with the given
// TimeTeller.
func NewRegistry(timeTeller TimeTeller) *Registry {
	r := &Registry{timeTeller: timeTeller}
	for i := range r.shards {
		r.shards[i].pending = make(map[TaskKey]*TaskRecord)
	}

	return r
}

func (r *Registry) shard(key TaskKey) *registryShard {
	h := fnv.New32a()
	h.Write([]byte(key.Name))
	h.Write([]byte{0})
	h.Write([]byte(key.Scope))

	return &r.shards[h.Sum32()%registryShardCount]
}

// Begin inserts a new pending record for key, stamped with the current time.
// It returns ErrAlreadyPending if a pending record for the key exists; the
// original record and its start time are left untouched.
func (r *Registry) Begin(key TaskKey) error {
	s := r.shard(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[key]; ok {
		return alreadyPendingError(key)
	}

	s.pending[key] = &TaskRecord{
		Name:      key.Name,
		Scope:     key.Scope,
		StartTime: r.timeTeller.CurrentTime(),
	}

	return nil
}

// Annotate upserts a note into the pending record for key. Reserved keys
// also populate the corresponding typed detail slot. Later writes to the
// same key overwrite earlier ones. It returns ErrNoSuchPending if the key
// has no pending record.
func (r *Registry) Annotate(key TaskKey, noteKey, noteValue string) error {
	s := r.shard(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.pending[key]
	if !ok {
		return noSuchPendingError(key)
	}

	rec.Notes.Set(noteKey, noteValue)

	switch noteKey {
	case NoteKeyHash:
		rec.Hash = noteValue
	case NoteKeyTx:
		rec.Tx = noteValue
	case NoteKeyStatus:
		rec.Status = noteValue
	}

	return nil
}

// Finish removes the pending record for key, stamps its end time, computes
// its runtime, infers its kind, and returns it. The returned record is no
// longer reachable through the registry and the key can be reused by a
// future Begin. It returns ErrNoSuchPending if the key has no pending
// record.
func (r *Registry) Finish(key TaskKey) (TaskRecord, error) {
	s := r.shard(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.pending[key]
	if !ok {
		return TaskRecord{}, noSuchPendingError(key)
	}

	delete(s.pending, key)

	rec.EndTime = r.timeTeller.CurrentTime()
	rec.Runtime = rec.EndTime - rec.StartTime
	rec.Kind = inferKind(rec.Name, &rec.Notes)

	return *rec, nil
}

// PendingKeys returns the keys of all currently pending records. Tasks that
// were started but never ended stay pending indefinitely; hosts can use this
// to detect and log leaks.
func (r *Registry) PendingKeys() []TaskKey {
	keys := []TaskKey{}

	for i := range r.shards {
		s := &r.shards[i]

		s.mu.Lock()
		for k := range s.pending {
			keys = append(keys, k)
		}
		s.mu.Unlock()
	}

	return keys
}

// PendingCount returns the number of currently pending records.
func (r *Registry) PendingCount() int {
	count := 0

	for i := range r.shards {
		s := &r.shards[i]

		s.mu.Lock()
		count += len(s.pending)
		s.mu.Unlock()
	}

	return count
}

// Clear drops all pending records.
func (r *Registry) Clear() {
	for i := range r.shards {
		s := &r.shards[i]

		s.mu.Lock()
		s.pending = make(map[TaskKey]*TaskRecord)
		s.mu.Unlock()
	}
}
