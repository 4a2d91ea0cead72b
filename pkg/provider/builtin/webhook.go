package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/checkdag/checkdag/pkg/model"
	mderrors "github.com/checkdag/checkdag/pkg/model/errors"
	"github.com/checkdag/checkdag/pkg/provider"
)

// webhookEnvelope is the JSON body POSTed to a webhook check's url.
type webhookEnvelope struct {
	PR      *model.PRInfo  `json:"pr"`
	Outputs map[string]any `json:"outputs"`
}

// WebhookProvider is the `webhook` check type: POSTs a JSON envelope and
// expects a JSON body shaped like model.ReviewSummary back. Retries are
// the scheduler's concern (CheckDefinition.Retry wraps every provider
// call uniformly); this only owns the one request's timeout.
type WebhookProvider struct {
	client *http.Client
}

func NewWebhookProvider() *WebhookProvider {
	return &WebhookProvider{client: &http.Client{}}
}

func (p *WebhookProvider) Name() string        { return "webhook" }
func (p *WebhookProvider) Description() string { return "POSTs PR context and dependency outputs to a URL, expects a ReviewSummary back" }
func (p *WebhookProvider) SupportedConfigKeys() []string {
	return []string{"url", "timeoutMs", "headers"}
}
func (p *WebhookProvider) IsAvailable() bool      { return true }
func (p *WebhookProvider) Requirements() []string { return nil }

func (p *WebhookProvider) ValidateConfig(config map[string]any) bool {
	url, ok := config["url"].(string)
	return ok && url != ""
}

func (p *WebhookProvider) Execute(ctx context.Context, pr *model.PRInfo, config map[string]any, deps map[string]any, si provider.SessionInfo) (*model.ReviewSummary, error) {
	url, _ := config["url"].(string)
	if url == "" {
		return nil, mderrors.New(mderrors.ConfigInvalid, "webhook: missing url")
	}

	if timeoutMs, ok := config["timeoutMs"].(float64); ok && timeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
		defer cancel()
	}

	body, err := json.Marshal(webhookEnvelope{PR: pr, Outputs: deps})
	if err != nil {
		return nil, mderrors.Wrap(mderrors.ConfigInvalid, "webhook: encoding request body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, mderrors.Wrap(mderrors.ConfigInvalid, "webhook: building request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if headers, ok := config["headers"].(map[string]any); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				req.Header.Set(k, s)
			}
		}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		ruleID := "webhook/error"
		if ctx.Err() != nil {
			ruleID = "webhook/timeout"
		}
		return &model.ReviewSummary{
			Issues: []model.ReviewIssue{{RuleID: ruleID, Message: err.Error(), Severity: model.SeverityError}},
		}, nil
	}
	defer resp.Body.Close()

	var summary model.ReviewSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return &model.ReviewSummary{
			Issues: []model.ReviewIssue{{RuleID: "webhook/parse_error", Message: err.Error(), Severity: model.SeverityError}},
		}, nil
	}
	if resp.StatusCode >= 400 {
		summary.Issues = append(summary.Issues, model.ReviewIssue{
			RuleID:   "webhook/error",
			Message:  fmt.Sprintf("webhook returned status %d", resp.StatusCode),
			Severity: model.SeverityError,
		})
	}
	return &summary, nil
}
