package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/checkdag/checkdag/pkg/model"
	mderrors "github.com/checkdag/checkdag/pkg/model/errors"
	"github.com/checkdag/checkdag/pkg/provider"
	"github.com/checkdag/checkdag/pkg/template"
)

// lineIssuePattern matches the conventional linter output line
// `file:line:col: severity: message`.
var lineIssuePattern = regexp.MustCompile(`^(.+?):(\d+):(\d+):\s*(\w+):\s*(.*)$`)

// CommandProvider is the `command` check type: runs a shell command and
// parses its output into issues, either by the `file:line:col: severity:
// message` line convention or, when config.outputFormat is "json" and a
// jq filter is set, via a gojq-filtered JSON document.
type CommandProvider struct {
	profile model.SandboxProfile
}

// NewCommandProvider builds a CommandProvider. profile's EnvAllowlist, if
// non-empty, restricts the child process's environment to that allowlist
// (SandboxProfile's contract; enforcement happens here via exec.Cmd.Env,
// since bubblewrap-style isolation itself is out of scope).
func NewCommandProvider(profile model.SandboxProfile) *CommandProvider {
	return &CommandProvider{profile: profile}
}

func (p *CommandProvider) Name() string        { return "command" }
func (p *CommandProvider) Description() string  { return "runs a shell command and parses its output into issues" }
func (p *CommandProvider) SupportedConfigKeys() []string {
	return []string{"exec", "cwd", "stdin", "outputFormat", "jqFilter", "transformJs"}
}
func (p *CommandProvider) IsAvailable() bool      { return true }
func (p *CommandProvider) Requirements() []string { return nil }

func (p *CommandProvider) ValidateConfig(config map[string]any) bool {
	cmd, ok := config["exec"].(string)
	return ok && strings.TrimSpace(cmd) != ""
}

func (p *CommandProvider) Execute(ctx context.Context, pr *model.PRInfo, config map[string]any, deps map[string]any, si provider.SessionInfo) (*model.ReviewSummary, error) {
	rawCmd, _ := config["exec"].(string)
	if strings.TrimSpace(rawCmd) == "" {
		return nil, mderrors.New(mderrors.ConfigInvalid, "command: missing exec")
	}

	vars := map[string]any{"outputs": deps}
	if pr != nil {
		vars["pr"] = map[string]any{"number": pr.Number, "title": pr.Title, "baseRef": pr.BaseRef, "headRef": pr.HeadRef}
	}

	cmdline, err := template.Resolve(rawCmd, vars, template.Options{})
	if err != nil {
		cmdline = rawCmd
	}

	cwd, _ := config["cwd"].(string)

	var stdin string
	if rawStdin, ok := config["stdin"].(string); ok {
		if resolved, err := template.Resolve(rawStdin, vars, template.Options{}); err == nil {
			stdin = resolved
		} else {
			stdin = rawStdin
		}
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", cmdline)
	if cwd != "" {
		cmd.Dir = cwd
	}
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	cmd.Env = p.childEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	exitCode := 0
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if runErr != nil && ctx.Err() != nil {
		return &model.ReviewSummary{
			Issues: []model.ReviewIssue{{RuleID: "command/timeout", Message: runErr.Error(), Severity: model.SeverityError}},
		}, nil
	}

	outputFormat, _ := config["outputFormat"].(string)
	jqFilter, _ := config["jqFilter"].(string)

	var issues []model.ReviewIssue
	if outputFormat == "json" && jqFilter != "" {
		parsed, jqErr := filterJSON(stdout.Bytes(), jqFilter)
		if jqErr != nil {
			return &model.ReviewSummary{
				Content: stdout.String(),
				Issues:  []model.ReviewIssue{{RuleID: "command/parse_error", Message: jqErr.Error(), Severity: model.SeverityError}},
			}, nil
		}
		issues = parsed
	} else {
		issues = parseLineIssues(stdout.String())
	}

	summary := &model.ReviewSummary{
		Issues:  issues,
		Content: stdout.String(),
		Debug: &model.Debug{
			Provider: "command",
			Errors:   stderrLines(stderr.String(), exitCode),
		},
	}
	return summary, nil
}

func (p *CommandProvider) childEnv() []string {
	if len(p.profile.EnvAllowlist) == 0 {
		return os.Environ()
	}
	allowed := make(map[string]struct{}, len(p.profile.EnvAllowlist))
	for _, k := range p.profile.EnvAllowlist {
		allowed[k] = struct{}{}
	}
	env := make([]string, 0, len(p.profile.EnvAllowlist))
	for _, kv := range os.Environ() {
		key, _, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if _, ok := allowed[key]; ok {
			env = append(env, kv)
		}
	}
	return env
}

func stderrLines(stderr string, exitCode int) []string {
	var out []string
	if exitCode != 0 {
		out = append(out, fmt.Sprintf("exit code %d", exitCode))
	}
	for _, line := range strings.Split(strings.TrimSpace(stderr), "\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func parseLineIssues(output string) []model.ReviewIssue {
	var issues []model.ReviewIssue
	for _, line := range strings.Split(output, "\n") {
		m := lineIssuePattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		lineNo, _ := strconv.Atoi(m[2])
		issues = append(issues, model.ReviewIssue{
			File:     m[1],
			Line:     lineNo,
			RuleID:   "tool/" + m[4],
			Message:  m[5],
			Severity: severityFromWord(m[4]),
		})
	}
	return issues
}

func severityFromWord(w string) model.Severity {
	switch strings.ToLower(w) {
	case "error", "fatal":
		return model.SeverityError
	case "warning", "warn":
		return model.SeverityWarning
	case "info", "note":
		return model.SeverityInfo
	default:
		return model.SeverityInfo
	}
}

// filterJSON runs a gojq filter over a JSON document and decodes every
// result it yields as either one issue or a slice of issues; results that
// decode as neither are skipped.
func filterJSON(data []byte, filter string) ([]model.ReviewIssue, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("command: invalid JSON output: %w", err)
	}

	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("command: invalid jq filter: %w", err)
	}

	iter := query.Run(doc)
	var issues []model.ReviewIssue
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return nil, fmt.Errorf("command: jq evaluation failed: %w", err)
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			continue
		}
		var one model.ReviewIssue
		if err := json.Unmarshal(encoded, &one); err == nil {
			issues = append(issues, one)
			continue
		}
		var many []model.ReviewIssue
		if err := json.Unmarshal(encoded, &many); err == nil {
			issues = append(issues, many...)
		}
	}
	return issues, nil
}
