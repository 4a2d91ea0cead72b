package sandbox

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMemory struct{ store map[string]any }

func (f *fakeMemory) Get(key string) any        { return f.store[key] }
func (f *fakeMemory) Set(key string, v any)     { f.store[key] = v }
func (f *fakeMemory) Append(key string, v any) {
	existing, _ := f.store[key].([]any)
	f.store[key] = append(existing, v)
}

func TestEvalBool_Basic(t *testing.T) {
	ok, err := EvalBool("1 + 1 == 2", Inputs{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalBool_NullIsFalse(t *testing.T) {
	ok, err := EvalBool("null", Inputs{})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = EvalBool("undefined", Inputs{})
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestSandboxAttack_ProcessExit is S3 from spec.md §8: fail_if: "process.exit(1)"
// must not escape as a Go error/panic — it must yield failed=false with a
// recorded error, and the run must continue normally.
func TestSandboxAttack_ProcessExit(t *testing.T) {
	ok, err := EvalBool("process.exit(1)", Inputs{})
	assert.False(t, ok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expression_evaluation_error")
}

func TestSandboxAttack_RequireAndGlobal(t *testing.T) {
	for _, src := range []string{
		"require('fs')",
		"global.process",
		"globalThis.process",
		"(function(){}).constructor('return 1')()",
		`("").constructor.constructor("return 1")()`,
	} {
		t.Run(src, func(t *testing.T) {
			ok, err := EvalBool(src, Inputs{})
			assert.False(t, ok)
			require.Error(t, err, "expected sandbox violation error for %q", src)
		})
	}
}

func TestEvalValue_Undefined(t *testing.T) {
	v, err := EvalValue("return undefined", Inputs{})
	require.NoError(t, err)
	_, isUndef := v.(Undefined)
	assert.True(t, isUndef)
}

func TestEvalValue_JSONParse(t *testing.T) {
	v, err := EvalValue(`JSON.parse(outputs.A).tickets`, Inputs{
		Outputs: map[string]any{"A": `{"tickets":[{"key":"T-1","p":"high"},{"key":"T-2","p":"low"}]}`},
	})
	require.NoError(t, err)
	items, ok := v.([]any)
	require.True(t, ok)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "T-1", first["key"])
}

func TestEvalTarget_String(t *testing.T) {
	v, err := EvalTarget(`"gate"`, Inputs{})
	require.NoError(t, err)
	assert.Equal(t, "gate", v)
}

func TestEvalTarget_List(t *testing.T) {
	v, err := EvalTarget(`["a","b"]`, Inputs{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, v)
}

func TestEvalTarget_Null(t *testing.T) {
	v, err := EvalTarget("null", Inputs{})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestHelpers_CountAndHasIssue(t *testing.T) {
	issues := []any{
		map[string]any{"severity": "error", "file": "a.go"},
		map[string]any{"severity": "warning", "file": "b.go"},
	}
	ok, err := EvalBool(`countIssues(outputs.issues, "severity", "error") == 1`, Inputs{
		Outputs: map[string]any{"issues": issues},
	})
	require.NoError(t, err)
	assert.True(t, ok)

	in := Inputs{Inputs: map[string]any{"issues": issues}}
	ok, err = EvalBool(`hasIssue(inputs.issues, "severity", "warning")`, in)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvalBool(`hasFileWith(inputs.issues, "a.go")`, in)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryBinding_RoundTrip(t *testing.T) {
	mem := &fakeMemory{store: map[string]any{}}
	_, err := EvalValue(`memory.set("k", "v"); memory.append("list", 1); memory.append("list", 2); return memory.get("k")`, Inputs{Memory: mem})
	require.NoError(t, err)
	assert.Equal(t, "v", mem.store["k"])
	assert.Equal(t, []any{int64(1), int64(2)}, mem.store["list"])
}

func TestLogBinding_Invoked(t *testing.T) {
	var got []string
	_, err := EvalValue(`log("hello", 1); return 1`, Inputs{Log: func(args ...any) {
		for _, a := range args {
			got = append(got, fmt.Sprint(a))
		}
	}})
	require.NoError(t, err)
	assert.Contains(t, strings.Join(got, ","), "hello")
}
