package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/checkdag/checkdag/pkg/model"
	"github.com/checkdag/checkdag/pkg/provider"
	"github.com/checkdag/checkdag/pkg/template"
)

var logLevelEmoji = map[string]string{
	"info":  "ℹ️",
	"warn":  "⚠️",
	"error": "🛑",
	"debug": "🐛",
}

// LogProvider produces a formatted text artifact for inspection. It never
// fails and never emits issues; frontends surface the Content text.
type LogProvider struct{}

func (LogProvider) Name() string                             { return "log" }
func (LogProvider) Description() string                       { return "emits a formatted text artifact" }
func (LogProvider) SupportedConfigKeys() []string              { return []string{"message", "level"} }
func (LogProvider) IsAvailable() bool                          { return true }
func (LogProvider) Requirements() []string                     { return nil }
func (LogProvider) ValidateConfig(config map[string]any) bool  { return true }

func (LogProvider) Execute(ctx context.Context, pr *model.PRInfo, config map[string]any, deps map[string]any, si provider.SessionInfo) (*model.ReviewSummary, error) {
	msg, _ := config["message"].(string)
	level, _ := config["level"].(string)
	level = strings.ToLower(level)
	if level == "" {
		level = "info"
	}

	vars := map[string]any{"outputs": deps}
	resolved, err := template.Resolve(msg, vars, template.Options{})
	if err != nil {
		resolved = msg
	}

	emoji := logLevelEmoji[level]
	if emoji == "" {
		emoji = "ℹ️"
	}

	return &model.ReviewSummary{Content: fmt.Sprintf("%s %s", emoji, resolved)}, nil
}
