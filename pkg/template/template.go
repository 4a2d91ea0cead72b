// Package template is a minimal `{{ variable }}` resolver, standing in for
// the out-of-scope Liquid rendering engine (spec.md §1's Out of scope
// list). It follows the teacher's own internal/application/executor's
// TemplateProcessor: a compiled `{{...}}` regex, dotted-path lookups into a
// variables map, and a StrictMode/lenient-placeholder toggle — minus the
// parallel `${expr}` expr-lang pass, since expression evaluation in this
// module already has a single sanctioned path (pkg/sandbox's goja runtime)
// and a template resolver has no business opening a second one.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

var varPattern = regexp.MustCompile(`\{\{\s*([^}]+?)\s*\}\}`)

// Options configures Resolve.
type Options struct {
	// StrictMode fails the whole resolution when a referenced variable is
	// missing. Lenient mode (the default) leaves the placeholder text in
	// place, matching the teacher's "leave placeholder unchanged" idiom.
	StrictMode bool
}

// Resolve substitutes every `{{ path }}` occurrence in s with the value
// found by walking vars along the dot-separated path, stringified with
// fmt.Sprint. Non-string leaves of vars (numbers, bools) stringify via
// fmt.Sprint the same way the teacher's processString does.
func Resolve(s string, vars map[string]any, opts Options) (string, error) {
	if !strings.Contains(s, "{{") {
		return s, nil
	}

	var missing error
	result := varPattern.ReplaceAllStringFunc(s, func(match string) string {
		if missing != nil {
			return match
		}
		sub := varPattern.FindStringSubmatch(match)
		path := strings.TrimSpace(sub[1])
		val, ok := lookup(vars, path)
		if !ok {
			if opts.StrictMode {
				missing = fmt.Errorf("template: variable %q not found", path)
			}
			return match
		}
		return fmt.Sprint(val)
	})
	if missing != nil {
		return "", missing
	}
	return result, nil
}

// lookup walks a dotted path ("pr.title", "env.HOME") through nested
// map[string]any values.
func lookup(vars map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = vars
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}
