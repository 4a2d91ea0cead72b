// Package routing is the Routing Engine (C7, spec.md §4.7): it compiles a
// check's on_init/on_success/on_fail/on_finish hook into concrete re-entry
// instructions, bounded by a per-run, per-checkId loop budget. Routing never
// tail-calls into the scheduler directly (spec.md §9) — it only returns the
// instruction; the scheduler decides when and how to enqueue it.
package routing

import (
	"sync"

	"github.com/checkdag/checkdag/pkg/model"
	mderrors "github.com/checkdag/checkdag/pkg/model/errors"
	"github.com/checkdag/checkdag/pkg/sandbox"
)

// Target is one resolved re-entry: a checkId to enqueue, with an optional
// event override (goto_event, spec.md §4.7) the re-entered check should
// perceive instead of the run's ambient event.
type Target struct {
	CheckID string
	Event   string
}

// Resolution is the routing outcome for one hook evaluation.
type Resolution struct {
	Targets   []Target
	Exhausted []string // checkIds whose re-entry was dropped, budget exhausted
}

// Engine tracks the per-run loop budget across every hook resolution.
type Engine struct {
	mu         sync.Mutex
	budget     int
	loopCounts map[string]int
}

// NewEngine returns a routing Engine with the given per-checkId re-entry
// budget (spec.md §4.7's "per-run budget, default finite, configurable").
func NewEngine(budget int) *Engine {
	return &Engine{budget: budget, loopCounts: make(map[string]int)}
}

// Resolve compiles hook into a Resolution. Composition order (spec.md
// §4.7): `run` ∪ `run_js` are all enqueued first, then at most one of
// `goto` / `goto_js` / `transitions` (checked in that order, first match
// wins). Every resulting target consumes one unit of that checkId's loop
// budget; a target whose budget is exhausted is dropped and reported in
// Exhausted rather than enqueued.
func (e *Engine) Resolve(hook *model.RoutingHook, in sandbox.Inputs) (Resolution, error) {
	if hook.IsEmpty() {
		return Resolution{}, nil
	}

	var ids []string
	ids = append(ids, hook.Run...)

	if hook.RunJS != "" {
		v, err := sandbox.EvalTarget(hook.RunJS, in)
		if err != nil {
			return Resolution{}, mderrors.Wrap(mderrors.ExpressionEvaluationError, "routing: run_js evaluation failed", err)
		}
		ids = append(ids, targetIDs(v)...)
	}

	single, err := e.resolveSingle(hook, in)
	if err != nil {
		return Resolution{}, err
	}
	if single != "" {
		ids = append(ids, single)
	}

	res := Resolution{}
	for _, id := range ids {
		if id == "" {
			continue
		}
		if e.consumeBudget(id) {
			res.Targets = append(res.Targets, Target{CheckID: id, Event: hook.GotoEvent})
		} else {
			res.Exhausted = append(res.Exhausted, id)
		}
	}
	return res, nil
}

// resolveSingle evaluates goto / goto_js / transitions in that order,
// returning the first non-empty checkId.
func (e *Engine) resolveSingle(hook *model.RoutingHook, in sandbox.Inputs) (string, error) {
	if hook.Goto != "" {
		return hook.Goto, nil
	}
	if hook.GotoJS != "" {
		v, err := sandbox.EvalTarget(hook.GotoJS, in)
		if err != nil {
			return "", mderrors.Wrap(mderrors.ExpressionEvaluationError, "routing: goto_js evaluation failed", err)
		}
		ids := targetIDs(v)
		if len(ids) > 0 {
			return ids[0], nil
		}
		return "", nil
	}
	for _, t := range hook.Transitions {
		ok, err := sandbox.EvalBool(t.When, in)
		if err != nil {
			return "", mderrors.Wrap(mderrors.ExpressionEvaluationError, "routing: transition condition failed", err)
		}
		if ok {
			return t.To, nil
		}
	}
	return "", nil
}

func targetIDs(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []string:
		return t
	default:
		return nil
	}
}

// consumeBudget reports whether checkID still has loop budget remaining,
// incrementing its counter as a side effect. Concurrency-safe: multiple
// in-flight checks may resolve routing hooks targeting the same checkId at
// once.
func (e *Engine) consumeBudget(checkID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loopCounts[checkID] >= e.budget {
		return false
	}
	e.loopCounts[checkID]++
	return true
}

// Count returns how many times checkID has been re-entered via routing so
// far this run (for tests and diagnostics).
func (e *Engine) Count(checkID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loopCounts[checkID]
}
