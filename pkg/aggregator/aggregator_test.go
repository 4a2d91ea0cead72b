package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/checkdag/checkdag/pkg/model"
)

func TestAggregate_GroupsByDefinedGroupThenCheckID(t *testing.T) {
	checks := map[string]*model.CheckDefinition{
		"lint":     {ID: "lint", Group: "style"},
		"fmtcheck": {ID: "fmtcheck", Group: "style"},
		"security": {ID: "security"}, // no Group: falls back to its own checkId
	}
	summaries := map[string][]*model.ReviewSummary{
		"lint":     {{Issues: []model.ReviewIssue{{File: "a.go", Line: 1, RuleID: "r1", Message: "m1"}}}},
		"fmtcheck": {{Issues: []model.ReviewIssue{{File: "b.go", Line: 2, RuleID: "r2", Message: "m2"}}}},
		"security": {{Issues: []model.ReviewIssue{{File: "c.go", Line: 3, RuleID: "r3", Message: "m3"}}}},
	}

	g := Aggregate(checks, summaries)

	assert.Contains(t, g, "style")
	assert.Contains(t, g["style"], "lint")
	assert.Contains(t, g["style"], "fmtcheck")
	assert.Contains(t, g, "security")
	assert.Contains(t, g["security"], "security")
}

func TestAggregate_OmitsInternalCriticalityChecks(t *testing.T) {
	checks := map[string]*model.CheckDefinition{
		"public": {ID: "public"},
		"hidden": {ID: "hidden", Criticality: model.CriticalityInternal},
	}
	summaries := map[string][]*model.ReviewSummary{
		"public": {{Issues: []model.ReviewIssue{{File: "a.go", Line: 1, RuleID: "r1", Message: "m1"}}}},
		"hidden": {{Issues: []model.ReviewIssue{{File: "b.go", Line: 2, RuleID: "r2", Message: "m2"}}}},
	}

	g := Aggregate(checks, summaries)

	assert.Contains(t, g, "public")
	assert.NotContains(t, g, "hidden")
}

func TestAggregate_DedupesIssuesByFileLineRuleMessage(t *testing.T) {
	checks := map[string]*model.CheckDefinition{"retrycheck": {ID: "retrycheck"}}
	dup := model.ReviewIssue{File: "x.go", Line: 10, RuleID: "dup", Message: "same finding"}
	summaries := map[string][]*model.ReviewSummary{
		"retrycheck": {
			{Issues: []model.ReviewIssue{dup}},
			{Issues: []model.ReviewIssue{dup, {File: "x.go", Line: 11, RuleID: "distinct", Message: "other"}}},
		},
	}

	g := Aggregate(checks, summaries)
	combined := g["retrycheck"]["retrycheck"]

	total := 0
	for _, s := range combined {
		total += len(s.Issues)
	}
	assert.Equal(t, 2, total) // dup collapsed to one, distinct kept
}

func TestGrouped_AllIssuesSortedByFileThenLine(t *testing.T) {
	checks := map[string]*model.CheckDefinition{"c": {ID: "c"}}
	summaries := map[string][]*model.ReviewSummary{
		"c": {{Issues: []model.ReviewIssue{
			{File: "z.go", Line: 1, RuleID: "r", Message: "m1"},
			{File: "a.go", Line: 9, RuleID: "r", Message: "m2"},
			{File: "a.go", Line: 2, RuleID: "r", Message: "m3"},
		}}},
	}

	g := Aggregate(checks, summaries)
	all := g.AllIssues()

	assert.Equal(t, "a.go", all[0].File)
	assert.Equal(t, 2, all[0].Line)
	assert.Equal(t, "a.go", all[1].File)
	assert.Equal(t, 9, all[1].Line)
	assert.Equal(t, "z.go", all[2].File)
}

func TestGrouped_CountBySeverity(t *testing.T) {
	checks := map[string]*model.CheckDefinition{"c": {ID: "c"}}
	summaries := map[string][]*model.ReviewSummary{
		"c": {{Issues: []model.ReviewIssue{
			{File: "a.go", Line: 1, RuleID: "r1", Message: "m1", Severity: model.SeverityError},
			{File: "a.go", Line: 2, RuleID: "r2", Message: "m2", Severity: model.SeverityWarning},
			{File: "a.go", Line: 3, RuleID: "r3", Message: "m3", Severity: model.SeverityError},
		}}},
	}

	counts := Aggregate(checks, summaries).CountBySeverity()
	assert.Equal(t, 2, counts[model.SeverityError])
	assert.Equal(t, 1, counts[model.SeverityWarning])
}
