package model

import "time"

// Criticality suppresses external posting for internal-only checks.
type Criticality string

const (
	CriticalityNormal   Criticality = "normal"
	CriticalityInternal Criticality = "internal"
)

// BackoffMode selects how RetryPolicy spaces out retries.
type BackoffMode string

const (
	BackoffConstant    BackoffMode = "constant"
	BackoffLinear      BackoffMode = "linear"
	BackoffExponential BackoffMode = "exponential"
)

// RetryPolicy configures per-check retry behavior on `errored` outcomes.
type RetryPolicy struct {
	Max             int           `json:"max" validate:"gte=0"`
	Backoff         BackoffMode   `json:"backoff" validate:"omitempty,oneof=constant linear exponential"`
	InitialDelay    time.Duration `json:"initialDelay"`
	MaxDelay        time.Duration `json:"maxDelay"`
	Jitter          float64       `json:"jitter" validate:"gte=0,lte=1"`
	RetryableErrors []string      `json:"retryableErrors,omitempty"`
}

// RoutingTransition is one `{ when, to }` entry of a `transitions` block.
type RoutingTransition struct {
	When string `json:"when"`
	To   string `json:"to"`
}

// RoutingHook is one of on_init/on_success/on_fail/on_finish.
type RoutingHook struct {
	Run         []string            `json:"run,omitempty"`
	RunJS       string              `json:"runJs,omitempty"`
	Goto        string              `json:"goto,omitempty"`
	GotoJS      string              `json:"gotoJs,omitempty"`
	GotoEvent   string              `json:"gotoEvent,omitempty"`
	Transitions []RoutingTransition `json:"transitions,omitempty"`
	Retry       *RetryPolicy        `json:"retry,omitempty"`
}

// IsEmpty reports whether the hook carries no instructions at all.
func (h *RoutingHook) IsEmpty() bool {
	if h == nil {
		return true
	}
	return len(h.Run) == 0 && h.RunJS == "" && h.Goto == "" && h.GotoJS == "" &&
		len(h.Transitions) == 0
}

// FailureCondition is a single named entry of a `failure_conditions` block.
type FailureCondition struct {
	Expression    string `json:"expression" validate:"required"`
	Message       string `json:"message,omitempty"`
	Severity      string `json:"severity,omitempty" validate:"omitempty,oneof=error warning info"`
	HaltExecution bool   `json:"haltExecution,omitempty"`
}

// CheckDefinition is the immutable, config-load-time description of one
// node in the check DAG. Provider-specific fields live in Config.
type CheckDefinition struct {
	ID          string `json:"id" validate:"required"`
	Type        string `json:"type" validate:"required"`
	DependsOn   []string `json:"dependsOn,omitempty"`
	On          []string `json:"on,omitempty"`
	If          string   `json:"if,omitempty"`
	ForEach     bool     `json:"forEach,omitempty"`
	TransformJS string   `json:"transformJs,omitempty"`

	FailIf            string                      `json:"failIf,omitempty"`
	FailureConditions  map[string]FailureCondition `json:"failureConditions,omitempty"`

	OnInit    *RoutingHook `json:"onInit,omitempty"`
	OnSuccess *RoutingHook `json:"onSuccess,omitempty"`
	OnFail    *RoutingHook `json:"onFail,omitempty"`
	OnFinish  *RoutingHook `json:"onFinish,omitempty"`

	Criticality Criticality `json:"criticality,omitempty" validate:"omitempty,oneof=normal internal"`
	Retry       *RetryPolicy `json:"retry,omitempty"`
	TimeoutMS   int64        `json:"timeoutMs,omitempty"`
	Group       string       `json:"group,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Schema      string       `json:"schema,omitempty"`

	// Config carries the provider-specific fields documented by that
	// provider's SupportedConfigKeys(); the scheduler never interprets it.
	Config map[string]any `json:"config,omitempty"`
}

// EffectiveCriticality returns CriticalityNormal when unset.
func (c *CheckDefinition) EffectiveCriticality() Criticality {
	if c.Criticality == "" {
		return CriticalityNormal
	}
	return c.Criticality
}

// OutputConfig configures the shape of the outputs surfaced to frontends.
type OutputConfig struct {
	Format string `json:"format,omitempty"`
}

// WorkflowConfig is the structural Go target a (deliberately out-of-scope)
// YAML loader would populate.
type WorkflowConfig struct {
	Version           string                     `json:"version" validate:"required"`
	AIModel           string                     `json:"aiModel,omitempty"`
	AIProvider        string                     `json:"aiProvider,omitempty"`
	Env               map[string]string          `json:"env,omitempty"`
	Output            OutputConfig               `json:"output,omitempty"`
	FailureConditions map[string]FailureCondition `json:"failureConditions,omitempty"`
	Checks            map[string]CheckDefinition `json:"checks" validate:"required,dive"`
}
