// Package failcond is the Failure-Condition Evaluator (C5, spec.md §4.5):
// compiles a check's fail_if plus named failure_conditions into per-condition
// verdicts, and exposes the four utility laws spec.md §8 names as pure,
// independently testable functions.
package failcond

import (
	"github.com/checkdag/checkdag/pkg/model"
	"github.com/checkdag/checkdag/pkg/sandbox"
)

// Severity mirrors model.Severity's error/warning/info buckets; failcond
// only ever buckets into these three (model.Severity also has "critical",
// which groupBySeverity folds into "error" per spec.md §4.5's three named
// buckets).
type Severity = model.Severity

// Result is one condition's verdict (spec.md §4.5).
type Result struct {
	Name          string
	Expression    string
	Failed        bool
	Error         string
	Severity      Severity
	HaltExecution bool
}

// Condition is one named boolean check to evaluate, with its metadata.
type Condition struct {
	Name          string
	Expression    string
	Message       string
	Severity      Severity
	HaltExecution bool
}

// Merge combines global conditions with per-check conditions; a per-check
// condition with the same name as a global one overrides it entirely
// (spec.md §4.5: "Per-check conditions override global ones by name").
func Merge(global, perCheck map[string]model.FailureCondition) map[string]model.FailureCondition {
	merged := make(map[string]model.FailureCondition, len(global)+len(perCheck))
	for name, c := range global {
		merged[name] = c
	}
	for name, c := range perCheck {
		merged[name] = c
	}
	return merged
}

// Evaluate runs every condition (plus, if failIf is non-empty, a synthetic
// "fail_if" condition) against in, returning one Result per condition.
// Errors during evaluation never propagate: they are folded into
// Failed=false with a non-empty Error string (spec.md §4.5 closing
// paragraph).
func Evaluate(failIf string, conditions map[string]model.FailureCondition, in sandbox.Inputs) []Result {
	results := make([]Result, 0, len(conditions)+1)

	if failIf != "" {
		results = append(results, evalOne("fail_if", failIf, "", model.SeverityError, true, in))
	}

	for name, c := range conditions {
		sev := Severity(c.Severity)
		if sev == "" {
			sev = model.SeverityError
		}
		results = append(results, evalOne(name, c.Expression, c.Message, sev, c.HaltExecution, in))
	}
	return results
}

func evalOne(name, expr, message string, sev Severity, halt bool, in sandbox.Inputs) Result {
	r := Result{Name: name, Expression: expr, Severity: sev, HaltExecution: halt}
	ok, err := sandbox.EvalBool(expr, in)
	if err != nil {
		r.Failed = false
		r.Error = err.Error()
		return r
	}
	r.Failed = ok
	if ok && message != "" {
		r.Error = message
	}
	return r
}

// ShouldHaltExecution is spec.md §8's testable property 1 for this
// component: true iff some result is both failed and marked haltExecution.
func ShouldHaltExecution(results []Result) bool {
	for _, r := range results {
		if r.Failed && r.HaltExecution {
			return true
		}
	}
	return false
}

// GetFailedConditions returns every failed result, preserving order.
func GetFailedConditions(results []Result) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Failed {
			out = append(out, r)
		}
	}
	return out
}

// GroupBySeverity partitions results into error/warning/info buckets.
// Every bucket's union equals the input, and the buckets are disjoint
// (spec.md §8 testable property 8) — "critical" results are folded into
// "error" since spec.md §4.5 only names three buckets for this function.
func GroupBySeverity(results []Result) map[Severity][]Result {
	buckets := map[Severity][]Result{
		model.SeverityError:   {},
		model.SeverityWarning: {},
		model.SeverityInfo:    {},
	}
	for _, r := range results {
		sev := r.Severity
		if sev == model.SeverityCritical {
			sev = model.SeverityError
		}
		if _, ok := buckets[sev]; !ok {
			sev = model.SeverityError
		}
		buckets[sev] = append(buckets[sev], r)
	}
	return buckets
}

// SuccessSentinelMessage is the formatter spec.md §4.5 names: a fixed
// success sentinel when every condition passed.
const SuccessSentinelMessage = "All failure conditions passed"

// FormatSummary returns SuccessSentinelMessage when every result passed, or
// the failed conditions' messages/expressions otherwise.
func FormatSummary(results []Result) string {
	failed := GetFailedConditions(results)
	if len(failed) == 0 {
		return SuccessSentinelMessage
	}
	msg := ""
	for i, r := range failed {
		if i > 0 {
			msg += "; "
		}
		if r.Error != "" {
			msg += r.Name + ": " + r.Error
		} else {
			msg += r.Name + ": " + r.Expression
		}
	}
	return msg
}
