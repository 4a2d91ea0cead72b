// Package aggregator is the Result Aggregator (C9, spec.md §4.9): it
// projects the scheduler's flat per-checkId summary lists into the
// group → checkId → []ReviewSummary shape external consumers read, removing
// duplicate issues that show up when retries or forEach iterations surface
// the same finding twice.
//
// Grounded on the teacher's node-output-aggregation example
// (examples/node-output-aggregation/main.go): a DataAggregator node collects
// several upstream nodes' outputs under either a "separate" (one key per
// source) or "flatten" (fields merged) strategy. This package keeps the
// "separate" shape — group/checkId keys stay distinct, since spec.md §4.9
// has no flatten-equivalent requirement — and adds the dedupe pass the
// teacher's example doesn't need (mbflow's aggregator never sees retried or
// forEach-repeated nodes).
package aggregator

import (
	"sort"

	"github.com/checkdag/checkdag/pkg/model"
)

// Grouped is the group → checkId → summaries projection spec.md §4.9 names.
type Grouped map[string]map[string][]*model.ReviewSummary

// issueKey identifies a ReviewIssue for dedupe purposes: two issues with the
// same file, line, ruleId and message are the same finding even if they
// came from different forEach iterations or a retry re-run.
type issueKey struct {
	file    string
	line    int
	ruleID  string
	message string
}

// Aggregate groups summaries by each check's configured Group (falling back
// to the checkId itself when Group is unset) and checkId, deduping issues
// within each checkId's combined issue set.
//
// Checks marked CriticalityInternal are left out of this projection: their
// outputs already reached downstream checks via the scheduler's own
// dependency-resolution view (summaries map, unfiltered) before Aggregate
// ever runs, so dropping them here only suppresses what external callers
// see (spec.md §4.9 / criticality: internal).
func Aggregate(checks map[string]*model.CheckDefinition, summaries map[string][]*model.ReviewSummary) Grouped {
	out := Grouped{}
	for checkID, list := range summaries {
		def := checks[checkID]
		if def != nil && def.EffectiveCriticality() == model.CriticalityInternal {
			continue
		}
		group := checkID
		if def != nil && def.Group != "" {
			group = def.Group
		}
		if _, ok := out[group]; !ok {
			out[group] = map[string][]*model.ReviewSummary{}
		}
		out[group][checkID] = dedupeSummaries(list)
	}
	return out
}

// dedupeSummaries returns a copy of summaries with duplicate issues (by
// file/line/ruleId/message) collapsed to their first occurrence, preserving
// per-summary Output/Content/Debug untouched.
func dedupeSummaries(summaries []*model.ReviewSummary) []*model.ReviewSummary {
	seen := map[issueKey]bool{}
	out := make([]*model.ReviewSummary, 0, len(summaries))
	for _, s := range summaries {
		if s == nil {
			continue
		}
		clone := *s
		clone.Issues = make([]model.ReviewIssue, 0, len(s.Issues))
		for _, issue := range s.Issues {
			key := issueKey{file: issue.File, line: issue.Line, ruleID: issue.RuleID, message: issue.Message}
			if seen[key] {
				continue
			}
			seen[key] = true
			clone.Issues = append(clone.Issues, issue)
		}
		out = append(out, &clone)
	}
	return out
}

// AllIssues flattens every issue across a Grouped projection, stable-sorted
// by (file, line) for deterministic external rendering.
func (g Grouped) AllIssues() []model.ReviewIssue {
	var out []model.ReviewIssue
	for _, byCheck := range g {
		for _, summaries := range byCheck {
			for _, s := range summaries {
				out = append(out, s.Issues...)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Line < out[j].Line
	})
	return out
}

// CountBySeverity tallies every issue in the projection by severity.
func (g Grouped) CountBySeverity() map[model.Severity]int {
	counts := map[model.Severity]int{}
	for _, issue := range g.AllIssues() {
		counts[issue.Severity]++
	}
	return counts
}
