// Package builtin holds the seven stock Provider implementations
// (spec.md §4.4), one file each, the way the teacher lays out
// pkg/executor/builtin/*.go.
package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/checkdag/checkdag/pkg/model"
	mderrors "github.com/checkdag/checkdag/pkg/model/errors"
	"github.com/checkdag/checkdag/pkg/provider"
	"github.com/checkdag/checkdag/pkg/template"
)

// schemaRules is the canned `<rules>` text handed to the model when a
// check names a structured schema. Small and closed-set by design: the
// schema language itself is out of scope (it's the contract an external
// parser/output-validator enforces), this only steers the model's own
// output shape.
var schemaRules = map[string]string{
	"review-issues": "Respond with a JSON object: {\"issues\": [{\"file\":string,\"line\":int,\"ruleId\":string,\"message\":string,\"severity\":\"critical\"|\"error\"|\"warning\"|\"info\"}], \"suggestions\": [string]}.",
}

// AIProvider is the `ai` check type: a single OpenAI-compatible chat
// completion per invocation, prompt-assembled in the fixed block order
// spec.md §4.4.1 specifies.
type AIProvider struct {
	client       *openai.Client
	defaultModel string
	projectRoot  string
}

// NewAIProvider builds an AIProvider. baseURL may be empty to use the
// vendor's default endpoint; projectRoot bounds `path`-based prompt
// sources against directory traversal.
func NewAIProvider(apiKey, baseURL, defaultModel, projectRoot string) *AIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &AIProvider{
		client:       openai.NewClientWithConfig(cfg),
		defaultModel: defaultModel,
		projectRoot:  projectRoot,
	}
}

func (p *AIProvider) Name() string        { return "ai" }
func (p *AIProvider) Description() string { return "runs an AI prompt against an OpenAI-compatible chat completion endpoint" }

func (p *AIProvider) SupportedConfigKeys() []string {
	return []string{
		"model", "content", "path", "prompt", "skip_code_context",
		"skip_slack_context", "slack_messages", "reuse_ai_session", "session_mode",
	}
}

func (p *AIProvider) IsAvailable() bool { return p.client != nil }

func (p *AIProvider) Requirements() []string { return []string{"API key for an OpenAI-compatible endpoint"} }

func (p *AIProvider) ValidateConfig(config map[string]any) bool {
	_, hasContent := config["content"]
	_, hasPath := config["path"]
	_, hasPrompt := config["prompt"]
	return hasContent || hasPath || hasPrompt
}

// Execute builds the prompt, calls the chat completion endpoint, and
// parses the response. It never returns a Go error for AI-side failures
// (timeout, malformed JSON) — those become ruleId-suffixed issues per
// spec.md §4.3's non-throwing contract; only setup failures (unresolvable
// prompt source) return an error.
func (p *AIProvider) Execute(ctx context.Context, pr *model.PRInfo, config map[string]any, deps map[string]any, si provider.SessionInfo) (*model.ReviewSummary, error) {
	started := time.Now()

	rawPrompt, err := p.resolvePromptSource(config)
	if err != nil {
		return nil, err
	}

	vars := p.templateVars(pr, deps, config)
	prompt, err := template.Resolve(rawPrompt, vars, template.Options{})
	if err != nil {
		prompt = rawPrompt
	}

	fullPrompt := p.assemblePrompt(pr, config, prompt, si)

	modelName := p.defaultModel
	if m, ok := config["model"].(string); ok && m != "" {
		modelName = m
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fullPrompt},
		},
	})
	elapsed := time.Since(started)

	debug := &model.Debug{
		Provider:     "ai",
		Model:        modelName,
		ProcessingMs: elapsed.Milliseconds(),
		StartedAt:    started.UnixMilli(),
		FinishedAt:   time.Now().UnixMilli(),
	}

	if err != nil {
		ruleID := "ai/error"
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			ruleID = "ai/timeout"
		}
		debug.Errors = []string{err.Error()}
		return &model.ReviewSummary{
			Issues: []model.ReviewIssue{{RuleID: ruleID, Message: err.Error(), Severity: model.SeverityError}},
			Debug:  debug,
		}, nil
	}

	if len(resp.Choices) == 0 {
		return &model.ReviewSummary{
			Issues: []model.ReviewIssue{{RuleID: "ai/error", Message: "empty completion", Severity: model.SeverityError}},
			Debug:  debug,
		}, nil
	}

	content := resp.Choices[0].Message.Content
	schema, _ := config["schema"].(string)

	if schema != "" {
		summary, parseErr := parseStructuredOutput(content)
		if parseErr != nil {
			return &model.ReviewSummary{
				Content: content,
				Issues:  []model.ReviewIssue{{RuleID: "ai/parse_error", Message: parseErr.Error(), Severity: model.SeverityError}},
				Debug:   debug,
			}, nil
		}
		summary.Debug = debug
		return summary, nil
	}

	return &model.ReviewSummary{Content: content, Debug: debug}, nil
}

func parseStructuredOutput(content string) (*model.ReviewSummary, error) {
	var parsed struct {
		Issues      []model.ReviewIssue `json:"issues"`
		Suggestions []string            `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("ai: structured output parse failed: %w", err)
	}
	return &model.ReviewSummary{Issues: parsed.Issues, Suggestions: parsed.Suggestions}, nil
}

// resolvePromptSource implements the three prompt-source shapes spec.md
// §4.4.1 names: inline content, a file path guarded against escaping
// projectRoot, or a structured object carrying its own `content` field.
func (p *AIProvider) resolvePromptSource(config map[string]any) (string, error) {
	if content, ok := config["content"].(string); ok && content != "" {
		return content, nil
	}
	if obj, ok := config["prompt"].(map[string]any); ok {
		if content, ok := obj["content"].(string); ok {
			return content, nil
		}
	}
	if path, ok := config["path"].(string); ok && path != "" {
		return p.readPromptFile(path)
	}
	return "", mderrors.New(mderrors.ConfigInvalid, "ai: config has none of content, path, prompt.content")
}

func (p *AIProvider) readPromptFile(path string) (string, error) {
	root := p.projectRoot
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(filepath.Join(root, path))
	if err != nil {
		return "", mderrors.Wrap(mderrors.ConfigInvalid, "ai: resolving prompt path", err)
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", mderrors.Wrap(mderrors.ConfigInvalid, "ai: resolving project root", err)
	}
	if !strings.HasPrefix(abs, rootAbs+string(filepath.Separator)) && abs != rootAbs {
		return "", mderrors.New(mderrors.ConfigInvalid, "ai: prompt path escapes project root: "+path)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", mderrors.Wrap(mderrors.ConfigInvalid, "ai: reading prompt file", err)
	}
	return string(data), nil
}

func (p *AIProvider) templateVars(pr *model.PRInfo, deps map[string]any, config map[string]any) map[string]any {
	vars := map[string]any{"outputs": deps, "config": config}
	if pr != nil {
		vars["pr"] = map[string]any{
			"number": pr.Number, "title": pr.Title, "body": pr.Body,
			"author": pr.Author, "baseRef": pr.BaseRef, "headRef": pr.HeadRef,
		}
	}
	return vars
}

// assemblePrompt composes the fixed-order context blocks. On session reuse
// the diff/PR-metadata/Slack blocks are replaced by a single <reminder>
// block — a hard invariant (spec.md §4.4.1): no diff or PR metadata may be
// re-sent in a reused session.
func (p *AIProvider) assemblePrompt(pr *model.PRInfo, config map[string]any, instructions string, si provider.SessionInfo) string {
	var b strings.Builder

	if si.ReuseSession {
		b.WriteString("<reminder>\nContinuing a prior session; diff and PR metadata already established, not resent.\n</reminder>\n")
	} else {
		b.WriteString("<review_request>\n")
		b.WriteString(p.contextBlock(pr, config))
		b.WriteString(p.slackBlock(config))
		b.WriteString("</review_request>\n")
	}

	b.WriteString("<instructions>\n")
	b.WriteString(instructions)
	b.WriteString("\n</instructions>\n")

	if schema, ok := config["schema"].(string); ok && schema != "" {
		rules, ok := schemaRules[schema]
		if !ok {
			rules = "Respond with JSON matching the \"" + schema + "\" schema."
		}
		b.WriteString("<rules>\n")
		b.WriteString(rules)
		b.WriteString("\n</rules>\n")
	}

	return b.String()
}

func (p *AIProvider) contextBlock(pr *model.PRInfo, config map[string]any) string {
	skip, _ := config["skip_code_context"].(bool)
	var b strings.Builder
	b.WriteString("<context>\n")
	if pr != nil {
		fmt.Fprintf(&b, "PR #%d: %s\nAuthor: %s\nBase: %s Head: %s\n", pr.Number, pr.Title, pr.Author, pr.BaseRef, pr.HeadRef)
		if !skip && pr.FullDiff != "" {
			b.WriteString(pr.FullDiff)
			b.WriteString("\n")
		}
	}
	b.WriteString("</context>\n")
	return b.String()
}

func (p *AIProvider) slackBlock(config map[string]any) string {
	skip, _ := config["skip_slack_context"].(bool)
	if skip {
		return ""
	}
	msgs, ok := config["slack_messages"].([]any)
	if !ok || len(msgs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("<slack_context>\n")
	for _, m := range msgs {
		fmt.Fprintf(&b, "%v\n", m)
	}
	b.WriteString("</slack_context>\n")
	return b.String()
}
