// Package session owns the opaque handles AI providers use to let a
// dependent check extend a prior conversation instead of resending context
// (spec.md §4.2). A handle is whatever the provider wants it to be — this
// package only owns the registry's key→handle bookkeeping, the clone/append
// semantics, and the deep-copy snapshot guarantee that makes clone safe to
// call while the source is still in flight.
package session

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/vmihailenco/msgpack/v5"

	mderrors "github.com/checkdag/checkdag/pkg/model/errors"
)

// Mode mirrors model.SessionMode: how a clone relates to its source after
// the snapshot is taken.
type Mode string

const (
	ModeClone  Mode = "clone"
	ModeAppend Mode = "append"
)

// entry is the registry's per-key record. mu serializes snapshot-on-clone
// against concurrent mutation of Handle by the check that owns this key —
// the same "per-key mutex inside a lock-free outer map" idiom as
// model.OutputsView's history, since xsync.MapOf's lock-freedom only
// protects the map structure, not ordering of repeated operations on one
// key.
type entry struct {
	mu     sync.Mutex
	handle any
}

// Registry is the process-wide (or per-run, per the host's choice) Session
// Registry (C2).
type Registry struct {
	entries *xsync.MapOf[string, *entry]
	seq     atomic.Uint64
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{entries: xsync.NewMapOf[string, *entry]()}
}

// DeriveKey builds a human-readable, collision-free key for a clone/append
// target: checkId plus a monotonic suffix (spec.md §4.2: "Keys are
// human-readable, derived from checkId plus a monotonic suffix when
// cloning").
func (r *Registry) DeriveKey(checkID string) string {
	n := r.seq.Add(1)
	return fmt.Sprintf("%s#%d", checkID, n)
}

// Register associates key with handle. Idempotent: registering the same
// key with an equal handle is a no-op. Registering the same key with a
// different handle is a conflict (spec.md §4.2) and does not overwrite the
// existing registration.
func (r *Registry) Register(key string, handle any) error {
	e := &entry{handle: handle}
	actual, loaded := r.entries.LoadOrStore(key, e)
	if !loaded {
		return nil
	}
	actual.mu.Lock()
	defer actual.mu.Unlock()
	if !deepEqual(actual.handle, handle) {
		return mderrors.New(mderrors.ConfigInvalid, "session: conflicting register for key "+key)
	}
	return nil
}

// Get returns the handle registered under key.
func (r *Registry) Get(key string) (any, error) {
	e, ok := r.entries.Load(key)
	if !ok {
		return nil, mderrors.New(mderrors.ConfigInvalid, "session: not found: "+key)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handle, nil
}

// Clone snapshots the handle at srcKey and registers it under dstKey. The
// snapshot is a deep copy (round-tripped through msgpack, the same
// serialize-based deep-copy idiom the teacher's pack uses for
// ExecutionRecord/session data — see DESIGN.md), so subsequent mutation of
// either the source's or the clone's handle never leaks across keys. Safe
// to call while srcKey is concurrently being read/mutated by an in-flight
// check: the source's per-entry mutex is held only long enough to take the
// snapshot, not for the duration of the clone's own lifetime.
func (r *Registry) Clone(srcKey, dstKey string) error {
	src, ok := r.entries.Load(srcKey)
	if !ok {
		return mderrors.New(mderrors.ConfigInvalid, "session: clone source not found: "+srcKey)
	}

	src.mu.Lock()
	snapshot, err := snapshotOf(src.handle)
	src.mu.Unlock()
	if err != nil {
		return mderrors.Wrap(mderrors.ConfigInvalid, "session: snapshot failed for "+srcKey, err)
	}

	r.entries.Store(dstKey, &entry{handle: snapshot})
	return nil
}

// Append registers dstKey as a direct alias of srcKey's handle: both keys
// observe the same underlying conversation, matching session_mode=append's
// "continue the same session" semantics (spec.md §4.2). Unlike Clone, this
// does not snapshot — mutations via either key are visible to the other,
// because the handle value itself (typically a pointer-shaped provider
// session object) is shared, not copied.
func (r *Registry) Append(srcKey, dstKey string) error {
	src, ok := r.entries.Load(srcKey)
	if !ok {
		return mderrors.New(mderrors.ConfigInvalid, "session: append source not found: "+srcKey)
	}
	src.mu.Lock()
	handle := src.handle
	src.mu.Unlock()
	r.entries.Store(dstKey, &entry{handle: handle})
	return nil
}

// Unregister removes key. Best effort — removing an absent key is not an
// error, since a run must never fail on session teardown (spec.md §4.2).
func (r *Registry) Unregister(key string) {
	r.entries.Delete(key)
}

// snapshotOf deep-copies v via a msgpack marshal/unmarshal round trip. This
// only works for handles that are themselves msgpack-serializable (plain
// data, not live resources like open connections); AI provider sessions are
// conversation transcripts, which satisfy that by construction.
func snapshotOf(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	buf, err := msgpack.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := msgpack.Unmarshal(buf, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func deepEqual(a, b any) bool {
	ab, aerr := msgpack.Marshal(a)
	bb, berr := msgpack.Marshal(b)
	if aerr != nil || berr != nil {
		return false
	}
	if len(ab) != len(bb) {
		return false
	}
	for i := range ab {
		if ab[i] != bb[i] {
			return false
		}
	}
	return true
}
