package model

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// history is the append-only, order-preserving list of values produced by
// successive invocations of one check. A private mutex (rather than relying
// on the outer map's own concurrency control) is what gives the "serialized
// and monotonic" append guarantee from SPEC_FULL.md §5: two goroutines
// racing to append to the SAME checkId's history (e.g. two forEach
// iterations of a dependent racing to write their own parent-relative view)
// never interleave.
type history struct {
	mu     sync.Mutex
	values []any
}

// OutputsView is the read-only (from the expression sandbox's perspective)
// projection of per-check outputs the scheduler builds up over a run. Only
// the scheduler (package scheduler) is permitted to call Append; every
// other reader goes through Latest/History/Snapshot.
type OutputsView struct {
	byCheck *xsync.MapOf[string, *history]
}

// NewOutputsView creates an empty projection.
func NewOutputsView() *OutputsView {
	return &OutputsView{byCheck: xsync.NewMapOf[string, *history]()}
}

// Append adds one value to checkId's history and returns the index it was
// stored at (used as ExecutionRecord.OutputRef).
func (o *OutputsView) Append(checkID string, value any) int {
	h, _ := o.byCheck.LoadOrCompute(checkID, func() *history { return &history{} })
	h.mu.Lock()
	defer h.mu.Unlock()
	h.values = append(h.values, value)
	return len(h.values) - 1
}

// Latest returns outputs[checkID]: the last appended value, or nil if the
// check has not produced anything yet.
func (o *OutputsView) Latest(checkID string) any {
	h, ok := o.byCheck.Load(checkID)
	if !ok {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.values) == 0 {
		return nil
	}
	return h.values[len(h.values)-1]
}

// History returns outputs.history[checkID]: every value produced so far, in
// production order. The returned slice is a snapshot copy, safe to read
// without holding any lock.
func (o *OutputsView) History(checkID string) []any {
	h, ok := o.byCheck.Load(checkID)
	if !ok {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]any, len(h.values))
	copy(out, h.values)
	return out
}

// Len reports how many invocations checkID has recorded.
func (o *OutputsView) Len(checkID string) int {
	h, ok := o.byCheck.Load(checkID)
	if !ok {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.values)
}

// Snapshot materializes the whole view as a plain map, suitable for handing
// to the expression sandbox as the `outputs` binding. `history` is exposed
// as a nested key so `outputs.history[checkId]` resolves naturally.
func (o *OutputsView) Snapshot() map[string]any {
	out := map[string]any{}
	histories := map[string]any{}
	o.byCheck.Range(func(checkID string, h *history) bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		if len(h.values) > 0 {
			out[checkID] = h.values[len(h.values)-1]
		}
		vals := make([]any, len(h.values))
		copy(vals, h.values)
		histories[checkID] = vals
		return true
	})
	out["history"] = histories
	return out
}
