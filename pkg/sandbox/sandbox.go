// Package sandbox evaluates the user-authored expressions that drive
// `if`, `fail_if`, `transform_js`, `goto_js`, `run_js`, and any other
// "_js"-suffixed dynamic field in a check's config (spec.md §4.1).
//
// Every evaluation gets a brand-new goja.Runtime (the same idiom as
// r3e-network-service_layer/system/tee/script_engine.go's gojaScriptEngine:
// `vm := goja.New()` per call). Nothing is ever exposed beyond the
// whitelisted bindings below, so there is no "global object" a script could
// corrupt across calls, no process/require/module, and no bridge back into
// Go beyond the specific helper functions this package defines.
package sandbox

import (
	"fmt"
	"time"

	"github.com/dop251/goja"

	mderrors "github.com/checkdag/checkdag/pkg/model/errors"
)

// Undefined is the sentinel EvalValue returns when a value-expression
// evaluates to JS `undefined`. This is distinct from Go nil (which stands
// in for JS `null`); callers that need to distinguish "no forEach items
// because the transform returned nothing" from "forEach over an explicit
// null" must check for this type (spec.md §4.1, §4.6 S2).
type Undefined struct{}

// Inputs is every binding a sandboxed expression may read.
type Inputs struct {
	Outputs   map[string]any // outputs, including nested "history" key
	Inputs    map[string]any
	PR        any
	Files     any
	Env       map[string]string
	Memory    MemoryView
	CheckName string
	Schema    string
	Group     string
	Log       func(args ...any)

	// Output is the current check's own raw output, bound as the bare
	// identifier `output` — the binding `transform_js` expressions read
	// (spec.md §8 S1: `transform_js: JSON.parse(output).tickets`), distinct
	// from the `outputs` map keyed by checkId.
	Output any
}

// MemoryView is the subset of model.Memory the sandbox needs; defined here
// to avoid an import cycle (model imports nothing from sandbox).
type MemoryView interface {
	Get(key string) any
	Set(key string, value any)
	Append(key string, value any)
}

const defaultTimeout = 2 * time.Second

// newRuntime builds a hardened goja.Runtime with only the Inputs bindings
// and spec helper functions exposed.
func newRuntime(in Inputs) *goja.Runtime {
	vm := goja.New()

	// Hardening, in order:
	//  1. Neuter Function.prototype.constructor so prototype-walking
	//     escapes like ("").constructor.constructor("...")() can't forge a
	//     new function from a string, even though every object's
	//     constructor property is reachable regardless of what's bound in
	//     the global scope.
	//  2. Delete the ambient globals a Node-ish environment would have and
	//     that a sandbox escape would reach for by name. goja never wires
	//     these to the OS/Go process itself, but removing the bindings
	//     means a reference fails fast as a ReferenceError.
	_, _ = vm.RunString(`
		Object.defineProperty(Function.prototype, 'constructor', {
			value: function() { throw new TypeError('Function constructor is disabled in this sandbox'); },
			writable: false,
			configurable: false,
		});
	`)
	g := vm.GlobalObject()
	for _, name := range []string{"process", "require", "module", "global", "globalThis", "Function", "eval"} {
		_ = g.Delete(name)
	}

	_ = vm.Set("outputs", in.Outputs)
	_ = vm.Set("output", in.Output)
	_ = vm.Set("inputs", in.Inputs)
	_ = vm.Set("pr", in.PR)
	_ = vm.Set("files", in.Files)
	_ = vm.Set("env", in.Env)
	_ = vm.Set("checkName", in.CheckName)
	_ = vm.Set("schema", in.Schema)
	_ = vm.Set("group", in.Group)

	logFn := in.Log
	if logFn == nil {
		logFn = func(args ...any) {}
	}
	_ = vm.Set("log", func(call goja.FunctionCall) goja.Value {
		args := make([]any, len(call.Arguments))
		for i, a := range call.Arguments {
			args[i] = a.Export()
		}
		logFn(args...)
		return goja.Undefined()
	})

	if in.Memory != nil {
		memObj := vm.NewObject()
		_ = memObj.Set("get", func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) == 0 {
				return goja.Undefined()
			}
			return vm.ToValue(in.Memory.Get(call.Arguments[0].String()))
		})
		_ = memObj.Set("set", func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) < 2 {
				return goja.Undefined()
			}
			in.Memory.Set(call.Arguments[0].String(), call.Arguments[1].Export())
			return goja.Undefined()
		})
		_ = memObj.Set("append", func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) < 2 {
				return goja.Undefined()
			}
			in.Memory.Append(call.Arguments[0].String(), call.Arguments[1].Export())
			return goja.Undefined()
		})
		_ = vm.Set("memory", memObj)
	} else {
		_ = vm.Set("memory", vm.NewObject())
	}

	_ = vm.Set("always", helperAlways)
	_ = vm.Set("success", helperSuccess)
	_ = vm.Set("failure", helperFailure)
	_ = vm.Set("contains", helperContains)
	_ = vm.Set("startsWith", helperStartsWith)
	_ = vm.Set("countIssues", helperCountIssues)
	_ = vm.Set("hasIssue", helperHasIssue)
	_ = vm.Set("hasIssueWith", helperHasIssueWith)
	_ = vm.Set("hasFileWith", helperHasFileWith)
	_ = vm.Set("hasFileMatching", helperHasFileMatching)

	return vm
}

// run compiles (from cache) and executes source against a fresh, hardened
// runtime, recovering from every panic/goja exception so callers never see
// anything but an (value, error) pair — the hardening contract from
// spec.md §4.1 ("no exception propagates to the scheduler").
func run(source string, in Inputs) (result goja.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = mderrors.Wrap(mderrors.ExpressionEvaluationError, "expression evaluation error", fmt.Errorf("%v", r))
		}
	}()

	prog, cerr := defaultCache.compile(source)
	if cerr != nil {
		return nil, mderrors.Wrap(mderrors.ExpressionEvaluationError, "expression evaluation error: compile failed", cerr)
	}

	vm := newRuntime(in)
	timer := time.AfterFunc(defaultTimeout, func() {
		vm.Interrupt("expression evaluation timed out")
	})
	defer timer.Stop()

	v, rerr := vm.RunProgram(prog)
	if rerr != nil {
		return nil, mderrors.Wrap(mderrors.ExpressionEvaluationError, "expression evaluation error", rerr)
	}
	return v, nil
}

// EvalBool evaluates a boolean expression (`if`, `fail_if`, `when`).
// Null/undefined/any evaluation error is treated as false, matching
// spec.md §4.1 — but a genuine error is still surfaced to the caller so
// components like the failure-condition evaluator can record it (the
// caller decides whether to also treat the false as a config problem).
func EvalBool(source string, in Inputs) (bool, error) {
	if source == "" {
		return false, nil
	}
	v, err := run(source, in)
	if err != nil {
		return false, err
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return false, nil
	}
	return v.ToBoolean(), nil
}

// EvalValue evaluates a value expression (`transform_js`, `value_js`).
// Returns Undefined{} when the script evaluates to JS undefined. A source
// that does not compile as a script but does compile as a function body
// (e.g. one using `return`) is run as an immediately-invoked function.
func EvalValue(source string, in Inputs) (any, error) {
	if source == "" {
		return Undefined{}, nil
	}
	if _, cerr := defaultCache.compile(source); cerr != nil {
		wrapped := "(function(){\n" + source + "\n})()"
		if _, werr := defaultCache.compile(wrapped); werr == nil {
			source = wrapped
		}
	}
	v, err := run(source, in)
	if err != nil {
		return nil, err
	}
	if v == nil || goja.IsUndefined(v) {
		return Undefined{}, nil
	}
	if goja.IsNull(v) {
		return nil, nil
	}
	return v.Export(), nil
}

// AsIterable converts a transform_js/value_js result into the list of items
// a forEach check iterates over: the elements of a JS array, or — when the
// exported value isn't an array — a single-item list wrapping it (spec.md
// §4.6: forEach over a non-array transform result iterates once).
func AsIterable(v any) []any {
	if v == nil {
		return nil
	}
	if items, ok := v.([]any); ok {
		return items
	}
	return []any{v}
}

// EvalTarget evaluates a target expression (`goto_js`, `run_js`). Returns
// nil when the expression yields null/undefined (no routing), a string for
// a single checkId, or []string for a list.
func EvalTarget(source string, in Inputs) (any, error) {
	if source == "" {
		return nil, nil
	}
	v, err := run(source, in)
	if err != nil {
		return nil, err
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	exported := v.Export()
	switch t := exported.(type) {
	case string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, nil
	default:
		return nil, mderrors.New(mderrors.ExpressionEvaluationError, fmt.Sprintf("target expression must return a string or list of strings, got %T", exported))
	}
}
