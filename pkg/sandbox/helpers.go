package sandbox

import "strings"

// The helper functions below are bound into every sandbox runtime
// (SPEC_FULL.md / spec.md §4.1). They operate on the generic
// map[string]any / []any shapes goja.Export produces, since user
// expressions pass in whatever array of issues they have at hand (usually
// `outputs.<checkId>.issues`) rather than a typed Go slice.

func asSlice(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case nil:
		return nil
	default:
		return nil
	}
}

func fieldOf(item any, field string) (any, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		return nil, false
	}
	val, ok := m[field]
	return val, ok
}

func equalLoose(a, b any) bool {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as == bs
	}
	return a == b
}

func helperAlways() bool { return true }

func helperSuccess() bool { return true }

func helperFailure() bool { return false }

func helperContains(s, sub string) bool {
	return strings.Contains(s, sub)
}

func helperStartsWith(s, p string) bool {
	return strings.HasPrefix(s, p)
}

// helperCountIssues counts items whose field equals value.
func helperCountIssues(issues any, field string, value any) int {
	count := 0
	for _, item := range asSlice(issues) {
		if v, ok := fieldOf(item, field); ok && equalLoose(v, value) {
			count++
		}
	}
	return count
}

// helperHasIssue reports whether any item's field equals value.
func helperHasIssue(issues any, field string, value any) bool {
	return helperCountIssues(issues, field, value) > 0
}

// helperHasIssueWith is like helperHasIssue, except that a string value
// matches any item whose field contains it as a substring.
func helperHasIssueWith(issues any, field string, value any) bool {
	valStr, isStr := value.(string)
	for _, item := range asSlice(issues) {
		v, ok := fieldOf(item, field)
		if !ok {
			continue
		}
		if isStr {
			if vs, ok := v.(string); ok && strings.Contains(vs, valStr) {
				return true
			}
			continue
		}
		if equalLoose(v, value) {
			return true
		}
	}
	return false
}

// helperHasFileWith reports whether any issue's "file" field contains substring.
func helperHasFileWith(issues any, substring string) bool {
	for _, item := range asSlice(issues) {
		if f, ok := fieldOf(item, "file"); ok {
			if fs, ok := f.(string); ok && strings.Contains(fs, substring) {
				return true
			}
		}
	}
	return false
}

// helperHasFileMatching is the same contract as helperHasFileWith; kept as
// a distinct binding because the spec names both and callers may read
// "matching" as intentionally named differently from "with" in a config.
func helperHasFileMatching(issues any, substring string) bool {
	return helperHasFileWith(issues, substring)
}
