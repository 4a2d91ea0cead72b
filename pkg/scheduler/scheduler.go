// Package scheduler is the DAG Scheduler (C6, spec.md §4.6): it drives
// topological, wave-based, parallel execution of the check graph, gates
// each invocation through `if`/`fail_if`/dependency-failure rules, expands
// forEach fan-out, retries errored checks, and is the only component
// allowed to mutate outputs/history (spec.md §5).
//
// Structurally this follows the teacher's DAGExecutor
// (internal/application/engine/dag_executor.go): build a graph, topological-
// sort it into waves, execute each wave with a bounded semaphore, gate each
// node's execution on its incoming edges' outcome — generalized from the
// teacher's single boolean edge-condition model to this spec's richer
// if/forEach/fail_if/retry/routing contract.
package scheduler

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"sync"
	"time"

	hex "github.com/tmthrgd/go-hex"

	"github.com/checkdag/checkdag/internal/tracing"
	"github.com/checkdag/checkdag/pkg/eventbus"
	"github.com/checkdag/checkdag/pkg/failcond"
	"github.com/checkdag/checkdag/pkg/model"
	mderrors "github.com/checkdag/checkdag/pkg/model/errors"
	"github.com/checkdag/checkdag/pkg/provider"
	"github.com/checkdag/checkdag/pkg/routing"
	"github.com/checkdag/checkdag/pkg/sandbox"
	"github.com/checkdag/checkdag/pkg/session"
)

// checkView adapts *model.CheckDefinition to the graph package's minimal
// checkLike interface.
type checkView struct{ def *model.CheckDefinition }

func (c checkView) dependsOn() []string { return c.def.DependsOn }

// Engine owns the static check graph and the collaborators every
// invocation needs; Run spins up one run's mutable state on top of it.
type Engine struct {
	checks               map[string]*model.CheckDefinition
	graph                *graph
	providers            provider.Manager
	sessions             *session.Registry
	bus                  *eventbus.Bus
	globalFailConditions map[string]model.FailureCondition
	loopBudget           int
}

// New constructs an Engine for one workflow's check graph.
func New(checks map[string]*model.CheckDefinition, providers provider.Manager, sessions *session.Registry, bus *eventbus.Bus, globalFailConditions map[string]model.FailureCondition, loopBudget int) *Engine {
	views := make(map[string]checkLike, len(checks))
	for id, def := range checks {
		views[id] = checkView{def: def}
	}
	return &Engine{
		checks:               checks,
		graph:                buildGraph(views),
		providers:            providers,
		sessions:             sessions,
		bus:                  bus,
		globalFailConditions: globalFailConditions,
		loopBudget:           loopBudget,
	}
}

// Result is what Run returns: the accumulated outputs/statistics for one
// run, ready for the Result Aggregator (C9).
type Result struct {
	Outputs    *model.OutputsView
	Memory     *model.Memory
	Statistics *model.ExecutionStatistics
	Summaries  map[string][]*model.ReviewSummary // checkId -> every iteration's summary, in order
	Records    []*model.ExecutionRecord          // every invocation's record, in completion order, for audit persistence
}

// run is the mutable, per-invocation state threaded through execution.
type run struct {
	engine  *Engine
	ctx     context.Context
	pr      *model.PRInfo
	opts    *model.RunOptions
	outputs *model.OutputsView
	memory  *model.Memory
	stats   *model.ExecutionStatistics
	records []*model.ExecutionRecord
	statsMu sync.Mutex
	routing *routing.Engine
	sem     chan struct{}

	completedMu sync.Mutex
	completed   map[string]*completion

	summariesMu sync.Mutex
	summaries   map[string][]*model.ReviewSummary

	reentryMu sync.Mutex
	reentry   []routing.Target

	sessionKeysMu sync.Mutex
	sessionKeys   map[string]string // checkId -> session registry key of its latest successful run
}

type completion struct {
	outcome   model.Outcome
	itemCount int
}

// Run executes every check reachable from opts.Event (spec.md §4.6),
// including routing-driven re-entries, until the graph is quiescent.
func (e *Engine) Run(ctx context.Context, pr *model.PRInfo, opts *model.RunOptions) (*Result, error) {
	if opts == nil {
		opts = model.DefaultRunOptions()
	}
	maxParallelism := opts.MaxParallelism
	if maxParallelism <= 0 {
		maxParallelism = 1
	}

	r := &run{
		engine:      e,
		ctx:         ctx,
		pr:          pr,
		opts:        opts,
		outputs:     model.NewOutputsView(),
		memory:      model.NewMemory(),
		stats:       model.NewExecutionStatistics(),
		routing:     routing.NewEngine(e.loopBudget),
		sem:         make(chan struct{}, maxParallelism),
		completed:   make(map[string]*completion),
		summaries:   make(map[string][]*model.ReviewSummary),
		sessionKeys: make(map[string]string),
	}

	var roots []string
	for id, def := range e.checks {
		for _, ev := range def.On {
			if ev == opts.Event {
				roots = append(roots, id)
				break
			}
		}
	}

	scope := e.graph.closure(roots)
	if len(scope) > 0 {
		waves, err := e.graph.topologicalWaves(scope)
		if err != nil {
			return nil, err
		}
		for _, wave := range waves {
			if err := r.runWave(wave); err != nil {
				return nil, err
			}
		}
	}

	if err := r.drainRouting(); err != nil {
		return nil, err
	}

	return &Result{
		Outputs:    r.outputs,
		Memory:     r.memory,
		Statistics: r.stats,
		Summaries:  r.summaries,
		Records:    r.records,
	}, nil
}

// runWave executes every checkId in wave concurrently, bounded by
// r.sem — the teacher's executeWave idiom (dag_executor.go), minus the
// priority sort (this spec has no per-check priority field).
func (r *run) runWave(wave []string) error {
	var wg sync.WaitGroup
	errs := make(chan error, len(wave))

	for _, id := range wave {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case <-r.ctx.Done():
				errs <- r.ctx.Err()
				return
			case r.sem <- struct{}{}:
			}
			defer func() { <-r.sem }()

			if err := r.runCheckAllCombos(id); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// drainRouting processes routing-produced re-entries until none remain or
// the run is cancelled. Each re-entry re-runs one check (and, transitively,
// whatever its own routing hooks request), never the check's downstream
// static dependents directly — those already ran in the wave pass; a
// re-entered check's own on_success/on_fail/on_finish may route further.
func (r *run) drainRouting() error {
	for {
		r.reentryMu.Lock()
		if len(r.reentry) == 0 {
			r.reentryMu.Unlock()
			return nil
		}
		next := r.reentry[0]
		r.reentry = r.reentry[1:]
		r.reentryMu.Unlock()

		select {
		case <-r.ctx.Done():
			return r.ctx.Err()
		default:
		}

		if err := r.runCheckAllCombos(next.CheckID); err != nil {
			return err
		}
	}
}

// runCheckAllCombos expands checkID's direct forEach-parent combos (spec.md
// §4.6 forEach semantics) and runs one invocation per combo.
func (r *run) runCheckAllCombos(checkID string) error {
	def, ok := r.engine.checks[checkID]
	if !ok {
		return mderrors.New(mderrors.ConfigInvalid, "scheduler: unknown checkId "+checkID)
	}

	combos := r.combosFor(def)
	if combos == nil {
		// A direct forEach parent produced zero items: skip this check and
		// record it without running anything (spec.md §4.6 "forEach_empty").
		r.recordSkip(checkID, 0, model.SkipReasonForEachEmpty)
		r.setCompletion(checkID, model.OutcomeSkipped, 0)
		return nil
	}

	outcome := model.OutcomeSucceeded
	itemsTotal := 0
	for _, combo := range combos {
		iterOutcome, items, err := r.runOneInvocation(checkID, def, combo)
		if err != nil {
			return err
		}
		itemsTotal += items
		outcome = worseOutcome(outcome, iterOutcome)
	}
	r.setCompletion(checkID, outcome, itemsTotal)
	return nil
}

func worseOutcome(a, b model.Outcome) model.Outcome {
	rank := map[model.Outcome]int{
		model.OutcomeSucceeded: 0,
		model.OutcomeSkipped:   1,
		model.OutcomeFailed:    2,
		model.OutcomeErrored:   3,
	}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// combosFor returns the list of forEach-parent iteration selections to run
// def over. nil (as opposed to an empty non-nil slice) signals "a forEach
// parent produced zero items, do not run at all"; a single empty map
// signals "no forEach parents, run once".
func (r *run) combosFor(def *model.CheckDefinition) []map[string]int {
	var forEachParents []string
	for _, p := range def.DependsOn {
		if parentDef, ok := r.engine.checks[p]; ok && parentDef.ForEach {
			forEachParents = append(forEachParents, p)
		}
	}
	if len(forEachParents) == 0 {
		return []map[string]int{{}}
	}

	combos := []map[string]int{{}}
	for _, parent := range forEachParents {
		n := r.itemCount(parent)
		if n == 0 {
			return nil
		}
		var next []map[string]int
		for _, combo := range combos {
			for i := 0; i < n; i++ {
				c := make(map[string]int, len(combo)+1)
				for k, v := range combo {
					c[k] = v
				}
				c[parent] = i
				next = append(next, c)
			}
		}
		combos = next
	}
	return combos
}

func (r *run) itemCount(checkID string) int {
	r.completedMu.Lock()
	defer r.completedMu.Unlock()
	c, ok := r.completed[checkID]
	if !ok {
		return 0
	}
	return c.itemCount
}

func (r *run) setCompletion(checkID string, outcome model.Outcome, itemCount int) {
	r.completedMu.Lock()
	defer r.completedMu.Unlock()
	r.completed[checkID] = &completion{outcome: outcome, itemCount: itemCount}
}

func (r *run) outcomeOf(checkID string) (model.Outcome, bool) {
	r.completedMu.Lock()
	defer r.completedMu.Unlock()
	c, ok := r.completed[checkID]
	if !ok {
		return "", false
	}
	return c.outcome, true
}

func (r *run) recordSkip(checkID string, iteration int, reason string) {
	r.bus.Publish(eventbus.CheckCompleted, eventbus.CheckCompletedPayload{CheckID: checkID, Iteration: iteration})
	r.recordStat(&model.ExecutionRecord{
		CheckID:    checkID,
		Iteration:  iteration,
		StartedAt:  timeNow(),
		EndedAt:    timeNow(),
		Outcome:    model.OutcomeSkipped,
		SkipReason: reason,
	})
}

func (r *run) recordStat(rec *model.ExecutionRecord) {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	r.stats.Record(rec)
	r.records = append(r.records, rec)
}

// timeNow exists so every timestamp in this package goes through one
// call site — the scheduler's only use of wall-clock time.
func timeNow() time.Time { return time.Now() }

// fingerprintOf hex-encodes a sha256 of a check's provider config plus its
// dependency outputs, so two ExecutionRecords with the same
// InputFingerprint are provably re-runs of the same invocation.
func fingerprintOf(config map[string]any, deps map[string]any) string {
	sum := sha256.New()
	enc := json.NewEncoder(sum)
	_ = enc.Encode(config)
	_ = enc.Encode(deps)
	return hex.EncodeToString(sum.Sum(nil))
}

// runOneInvocation runs def once, for one forEach-combo selection,
// implementing spec.md §4.6's eight-step "Execution order per check".
func (r *run) runOneInvocation(checkID string, def *model.CheckDefinition, combo map[string]int) (model.Outcome, int, error) {
	depResults := r.dependencyResults(def, combo)
	baseInputs := r.sandboxInputs(def, depResults)
	fingerprint := fingerprintOf(def.Config, depResults)

	// 1. if
	if def.If != "" {
		ok, err := sandbox.EvalBool(def.If, baseInputs)
		if err != nil || !ok {
			r.recordSkip(checkID, 0, model.SkipReasonIfCondition)
			return model.OutcomeSkipped, 0, nil
		}
	}

	// 2. dependency_failed + fail_fast
	if r.opts.FailFast {
		for _, p := range def.DependsOn {
			if outcome, ok := r.outcomeOf(p); ok && (outcome == model.OutcomeFailed || outcome == model.OutcomeErrored) {
				r.recordSkip(checkID, 0, model.SkipReasonDependencyFailed)
				return model.OutcomeSkipped, 0, nil
			}
		}
	}

	r.bus.Publish(eventbus.CheckScheduled, eventbus.CheckScheduledPayload{CheckID: checkID})

	// 3. on_init (routing may enqueue more work; doesn't block this call)
	if def.OnInit != nil {
		r.fireHook(checkID, def.OnInit, baseInputs)
	}

	startedAt := timeNow()
	r.bus.Publish(eventbus.CheckStarted, eventbus.CheckStartedPayload{CheckID: checkID, Iteration: 0})

	p, perr := r.engine.providers.GetOrThrow(def.Type)
	if perr != nil {
		return r.finishErrored(checkID, def, startedAt, fingerprint, perr)
	}

	sessionInfo := r.sessionInfoFor(checkID, def)

	ctx := r.ctx
	var cancel context.CancelFunc
	if def.TimeoutMS > 0 {
		ctx, cancel = context.WithTimeout(r.ctx, time.Duration(def.TimeoutMS)*time.Millisecond)
	} else if r.opts.DefaultTimeout > 0 {
		ctx, cancel = context.WithTimeout(r.ctx, r.opts.DefaultTimeout)
	}
	if cancel != nil {
		defer cancel()
	}

	providerConfig := make(map[string]any, len(def.Config)+2)
	for k, v := range def.Config {
		providerConfig[k] = v
	}
	providerConfig["checkId"] = checkID
	if def.Schema != "" {
		providerConfig["schema"] = def.Schema
	}

	spanCtx, span := tracing.StartCheckSpan(ctx, checkID, def.Type)

	var summary *model.ReviewSummary
	execErr := executeWithRetry(spanCtx, def.Retry, func(attempt int, err error) {
		r.bus.Publish(eventbus.CheckStarted, eventbus.CheckStartedPayload{CheckID: checkID, Iteration: 0})
	}, func() error {
		s, err := p.Execute(spanCtx, r.pr, providerConfig, depResults, sessionInfo)
		if err == nil {
			summary = s
		}
		return err
	})
	tracing.EndCheckSpan(span, execErr)

	if execErr != nil {
		return r.finishErrored(checkID, def, startedAt, fingerprint, execErr)
	}
	if summary == nil {
		summary = &model.ReviewSummary{}
	}
	r.registerSessionIfNeeded(checkID, def, summary)

	// 5. transform_js + forEach expansion
	items, itemErr := r.transformAndExpand(def, summary)
	if itemErr != nil {
		return r.finishErrored(checkID, def, startedAt, fingerprint, itemErr)
	}
	if def.ForEach && len(items) == 0 {
		r.recordSkip(checkID, 0, model.SkipReasonForEachEmpty)
		return model.OutcomeErrored, 0, nil
	}

	// 6. append one ReviewSummary per item
	var lastSummary *model.ReviewSummary
	var itemRecords []*model.ExecutionRecord
	for i, item := range items {
		itemSummary := summaryFor(summary, item, def.ForEach)
		outputRef := r.outputs.Append(checkID, itemSummary.EffectiveOutput())
		r.appendSummary(checkID, itemSummary)
		lastSummary = itemSummary

		endedAt := timeNow()
		r.bus.Publish(eventbus.CheckCompleted, eventbus.CheckCompletedPayload{CheckID: checkID, Iteration: i, Result: itemSummary})
		itemRecords = append(itemRecords, &model.ExecutionRecord{
			CheckID:          checkID,
			Iteration:        i,
			StartedAt:        startedAt,
			EndedAt:          endedAt,
			Outcome:          model.OutcomeSucceeded, // refined below once fail_if runs
			OutputRef:        outputRef,
			InputFingerprint: fingerprint,
			IssueCounts:      itemSummary.CountBySeverity(),
		})
	}

	// 7. fail_if / failure_conditions, evaluated once against the last
	// produced item (documented simplification: see DESIGN.md).
	finalInputs := baseInputs
	finalInputs.Output = lastSummary.EffectiveOutput()
	conditions := failcond.Merge(r.engine.globalFailConditions, def.FailureConditions)
	results := failcond.Evaluate(def.FailIf, conditions, finalInputs)

	outcome := model.OutcomeSucceeded
	if failcond.ShouldHaltExecution(results) {
		outcome = model.OutcomeFailed
	}
	for _, rec := range itemRecords {
		rec.Outcome = outcome
		r.recordStat(rec)
	}

	// 8. on_success / on_fail, then on_finish
	hook := def.OnSuccess
	if outcome != model.OutcomeSucceeded {
		hook = def.OnFail
	}
	if hook != nil {
		r.fireHook(checkID, hook, finalInputs)
	}
	if def.OnFinish != nil {
		r.fireHook(checkID, def.OnFinish, finalInputs)
	}

	return outcome, len(items), nil
}

func (r *run) finishErrored(checkID string, def *model.CheckDefinition, startedAt time.Time, fingerprint string, err error) (model.Outcome, int, error) {
	endedAt := timeNow()
	ruleID := def.Type + "/execution_error"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		ruleID = def.Type + "/timeout"
	case errors.Is(err, mderrors.ErrExpressionEvaluationError):
		ruleID = def.Type + "/transform_js_error"
	}
	summary := &model.ReviewSummary{Issues: []model.ReviewIssue{{
		RuleID:   ruleID,
		Message:  err.Error(),
		Severity: model.SeverityError,
	}}}
	r.outputs.Append(checkID, summary.EffectiveOutput())
	r.appendSummary(checkID, summary)
	r.bus.Publish(eventbus.CheckErrored, eventbus.CheckErroredPayload{CheckID: checkID, Error: err})
	r.recordStat(&model.ExecutionRecord{
		CheckID:          checkID,
		StartedAt:        startedAt,
		EndedAt:          endedAt,
		Outcome:          model.OutcomeErrored,
		InputFingerprint: fingerprint,
		IssueCounts:      summary.CountBySeverity(),
	})
	if def.OnFail != nil {
		r.fireHook(checkID, def.OnFail, r.sandboxInputs(def, nil))
	}
	if def.OnFinish != nil {
		r.fireHook(checkID, def.OnFinish, r.sandboxInputs(def, nil))
	}
	return model.OutcomeErrored, 0, nil
}

func (r *run) appendSummary(checkID string, s *model.ReviewSummary) {
	r.summariesMu.Lock()
	defer r.summariesMu.Unlock()
	r.summaries[checkID] = append(r.summaries[checkID], s)
}

// summaryFor materializes the per-item ReviewSummary a forEach expansion
// produces: the item itself becomes Output, the rest of the provider's
// summary (issues, debug) is carried over unchanged, so every item's
// summary repeats the invocation's full issue list (spec.md §4.6 step 6).
func summaryFor(base *model.ReviewSummary, item any, forEach bool) *model.ReviewSummary {
	if !forEach {
		return base
	}
	clone := *base
	clone.Output = item
	return &clone
}

// transformAndExpand applies transform_js (if present) to the provider's
// raw output, then expands it into the list of items this invocation
// produces: a single item when forEach is false, or the iterable's
// elements when forEach is true.
func (r *run) transformAndExpand(def *model.CheckDefinition, summary *model.ReviewSummary) ([]any, error) {
	raw := summary.EffectiveOutput()
	if def.TransformJS == "" {
		if !def.ForEach {
			return []any{raw}, nil
		}
		return sandbox.AsIterable(raw), nil
	}

	in := sandbox.Inputs{Output: raw}
	transformed, err := sandbox.EvalValue(def.TransformJS, in)
	if err != nil {
		return nil, mderrors.Wrap(mderrors.ExpressionEvaluationError, def.ID+" transform_js_error", err)
	}
	if _, isUndef := transformed.(sandbox.Undefined); isUndef {
		return nil, mderrors.New(mderrors.ExpressionEvaluationError, def.ID+" transform_js_error: transform_js returned undefined")
	}
	if !def.ForEach {
		return []any{transformed}, nil
	}
	return sandbox.AsIterable(transformed), nil
}

// dependencyResults assembles the `dependencyResults` map passed to
// Provider.Execute: the selected upstream iteration for forEach parents
// (per combo), and the latest output otherwise (spec.md §4.3, §4.6).
func (r *run) dependencyResults(def *model.CheckDefinition, combo map[string]int) map[string]any {
	out := make(map[string]any, len(def.DependsOn))
	for _, p := range def.DependsOn {
		if idx, ok := combo[p]; ok {
			hist := r.outputs.History(p)
			if idx < len(hist) {
				out[p] = hist[idx]
			}
			continue
		}
		out[p] = r.outputs.Latest(p)
	}
	return out
}

func (r *run) sandboxInputs(def *model.CheckDefinition, depResults map[string]any) sandbox.Inputs {
	outputsSnapshot := r.outputs.Snapshot()
	return sandbox.Inputs{
		Outputs:   outputsSnapshot,
		Inputs:    depResults,
		PR:        r.pr,
		Files:     prFiles(r.pr),
		Env:       envFromRunOptions(r.opts),
		Memory:    memoryAdapter{r.memory},
		CheckName: def.ID,
		Schema:    def.Schema,
		Group:     def.Group,
		Log:       func(args ...any) {},
	}
}

func prFiles(pr *model.PRInfo) any {
	if pr == nil {
		return nil
	}
	return pr.Files
}

func envFromRunOptions(opts *model.RunOptions) map[string]string {
	if opts == nil {
		return nil
	}
	env := make(map[string]string, len(opts.Inputs))
	for k, v := range opts.Inputs {
		if s, ok := v.(string); ok {
			env[k] = s
		}
	}
	return env
}

// memoryAdapter bridges model.Memory to sandbox.MemoryView.
type memoryAdapter struct{ m *model.Memory }

func (a memoryAdapter) Get(key string) any      { return a.m.Get(key) }
func (a memoryAdapter) Set(key string, v any)    { a.m.Set(key, v) }
func (a memoryAdapter) Append(key string, v any) { a.m.Append(key, v) }

// sessionInfoFor derives the SessionInfo contract (spec.md §4.2, §6) from a
// check's config, honoring reuse_ai_session / session_mode: when a direct
// dependency has a registered session, this check's own key is derived from
// it via Clone (fresh, isolated continuation) or Append (same shared
// conversation), and that derived key — not the parent's — is what's handed
// back as ParentSessionID, since it's now this check's own session identity
// going forward.
func (r *run) sessionInfoFor(checkID string, def *model.CheckDefinition) model.SessionInfo {
	reuse, _ := def.Config["reuse_ai_session"].(bool)
	if !reuse {
		return model.SessionInfo{}
	}
	mode := model.SessionModeClone
	if m, ok := def.Config["session_mode"].(string); ok && m == string(model.SessionModeAppend) {
		mode = model.SessionModeAppend
	}

	for _, p := range def.DependsOn {
		parentKey, ok := r.getSessionKey(p)
		if !ok {
			continue
		}
		dstKey := r.engine.sessions.DeriveKey(checkID)
		var err error
		if mode == model.SessionModeAppend {
			err = r.engine.sessions.Append(parentKey, dstKey)
		} else {
			err = r.engine.sessions.Clone(parentKey, dstKey)
		}
		if err != nil {
			continue
		}
		r.setSessionKey(checkID, dstKey)
		return model.SessionInfo{ParentSessionID: dstKey, ReuseSession: true, Mode: mode}
	}
	return model.SessionInfo{}
}

// registerSessionIfNeeded gives an ai-type check its own session registry
// entry the first time it runs (i.e. when sessionInfoFor hasn't already
// derived one from a parent), so its dependents have something to
// clone/append from. The provider's ReviewSummary itself stands in for the
// opaque session handle — a plain data value, which is all Registry.Clone's
// msgpack-based snapshot needs to work.
func (r *run) registerSessionIfNeeded(checkID string, def *model.CheckDefinition, summary *model.ReviewSummary) {
	if def.Type != "ai" {
		return
	}
	if _, ok := r.getSessionKey(checkID); ok {
		return
	}
	key := r.engine.sessions.DeriveKey(checkID)
	if err := r.engine.sessions.Register(key, summary); err != nil {
		return
	}
	r.setSessionKey(checkID, key)
}

func (r *run) getSessionKey(checkID string) (string, bool) {
	r.sessionKeysMu.Lock()
	defer r.sessionKeysMu.Unlock()
	key, ok := r.sessionKeys[checkID]
	return key, ok
}

func (r *run) setSessionKey(checkID, key string) {
	r.sessionKeysMu.Lock()
	defer r.sessionKeysMu.Unlock()
	r.sessionKeys[checkID] = key
}

// fireHook resolves a routing hook and queues its targets for the routing
// drain pass; budget-exhausted targets are recorded as a warning issue on
// the triggering check (spec.md §4.7's RoutingBudgetExhausted).
func (r *run) fireHook(checkID string, hook *model.RoutingHook, in sandbox.Inputs) {
	res, err := r.routing.Resolve(hook, in)
	if err != nil {
		return
	}
	if len(res.Exhausted) > 0 {
		r.outputs.Append(checkID, &model.ReviewSummary{Issues: []model.ReviewIssue{{
			RuleID:   "routing/budget_exhausted",
			Message:  "routing budget exhausted for: " + joinStrings(res.Exhausted),
			Severity: model.SeverityWarning,
		}}})
	}
	if len(res.Targets) == 0 {
		return
	}
	r.reentryMu.Lock()
	r.reentry = append(r.reentry, res.Targets...)
	r.reentryMu.Unlock()
}

func joinStrings(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
