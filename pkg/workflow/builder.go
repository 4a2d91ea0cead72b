package workflow

import "github.com/checkdag/checkdag/pkg/model"

// Builder assembles a model.WorkflowConfig fluently, mirroring the
// teacher's DefinitionBuilder shape (Name/Version/AddNode/.../Build)
// against this module's actual check-definition type instead of a
// generic node/edge graph.
type Builder struct {
	d model.WorkflowConfig
}

// NewBuilder starts an empty workflow config builder.
func NewBuilder() *Builder {
	return &Builder{d: model.WorkflowConfig{Checks: map[string]model.CheckDefinition{}}}
}

func (b *Builder) Version(v string) *Builder    { b.d.Version = v; return b }
func (b *Builder) AIModel(m string) *Builder    { b.d.AIModel = m; return b }
func (b *Builder) AIProvider(p string) *Builder { b.d.AIProvider = p; return b }
func (b *Builder) OutputFormat(f string) *Builder {
	b.d.Output.Format = f
	return b
}

func (b *Builder) EnvKV(key, value string) *Builder {
	if b.d.Env == nil {
		b.d.Env = map[string]string{}
	}
	b.d.Env[key] = value
	return b
}

// AddCheck registers a check under its own ID, overwriting any earlier
// check with the same ID (last write wins, same as a map literal would).
func (b *Builder) AddCheck(c model.CheckDefinition) *Builder {
	if b.d.Checks == nil {
		b.d.Checks = map[string]model.CheckDefinition{}
	}
	b.d.Checks[c.ID] = c
	return b
}

// Build returns the assembled config.
func (b *Builder) Build() model.WorkflowConfig { return b.d }

// CheckBuilder assembles a single model.CheckDefinition fluently,
// mirroring the teacher's NodeDefBuilder.
type CheckBuilder struct {
	c model.CheckDefinition
}

// NewCheckBuilder starts a check builder for the given ID and provider type.
func NewCheckBuilder(id, providerType string) *CheckBuilder {
	return &CheckBuilder{c: model.CheckDefinition{ID: id, Type: providerType}}
}

func (b *CheckBuilder) DependsOn(ids ...string) *CheckBuilder {
	b.c.DependsOn = append(b.c.DependsOn, ids...)
	return b
}

func (b *CheckBuilder) On(events ...string) *CheckBuilder {
	b.c.On = append(b.c.On, events...)
	return b
}

func (b *CheckBuilder) If(expr string) *CheckBuilder { b.c.If = expr; return b }

func (b *CheckBuilder) ForEach(transformJS string) *CheckBuilder {
	b.c.ForEach = true
	b.c.TransformJS = transformJS
	return b
}

func (b *CheckBuilder) TransformJS(expr string) *CheckBuilder { b.c.TransformJS = expr; return b }

func (b *CheckBuilder) FailIf(expr string) *CheckBuilder { b.c.FailIf = expr; return b }

func (b *CheckBuilder) FailureCondition(name string, fc model.FailureCondition) *CheckBuilder {
	if b.c.FailureConditions == nil {
		b.c.FailureConditions = map[string]model.FailureCondition{}
	}
	b.c.FailureConditions[name] = fc
	return b
}

func (b *CheckBuilder) OnInit(h *model.RoutingHook) *CheckBuilder    { b.c.OnInit = h; return b }
func (b *CheckBuilder) OnSuccess(h *model.RoutingHook) *CheckBuilder { b.c.OnSuccess = h; return b }
func (b *CheckBuilder) OnFail(h *model.RoutingHook) *CheckBuilder    { b.c.OnFail = h; return b }
func (b *CheckBuilder) OnFinish(h *model.RoutingHook) *CheckBuilder  { b.c.OnFinish = h; return b }

func (b *CheckBuilder) Criticality(c model.Criticality) *CheckBuilder {
	b.c.Criticality = c
	return b
}

func (b *CheckBuilder) Retry(rp *model.RetryPolicy) *CheckBuilder { b.c.Retry = rp; return b }

func (b *CheckBuilder) TimeoutMS(ms int64) *CheckBuilder { b.c.TimeoutMS = ms; return b }

func (b *CheckBuilder) Group(g string) *CheckBuilder { b.c.Group = g; return b }

func (b *CheckBuilder) Tags(tags ...string) *CheckBuilder {
	b.c.Tags = append(b.c.Tags, tags...)
	return b
}

func (b *CheckBuilder) Schema(s string) *CheckBuilder { b.c.Schema = s; return b }

func (b *CheckBuilder) ConfigKV(key string, value any) *CheckBuilder {
	if b.c.Config == nil {
		b.c.Config = map[string]any{}
	}
	b.c.Config[key] = value
	return b
}

// Build returns the assembled check definition.
func (b *CheckBuilder) Build() model.CheckDefinition { return b.c }

// HookBuilder assembles a model.RoutingHook fluently, mirroring the
// teacher's EdgeDefBuilder/TriggerDefBuilder pair — this module has no
// separate edge/trigger concept, so both collapse into the one hook shape
// every on_init/on_success/on_fail/on_finish slot shares.
type HookBuilder struct {
	h model.RoutingHook
}

// NewHookBuilder starts a routing hook builder.
func NewHookBuilder() *HookBuilder { return &HookBuilder{} }

func (b *HookBuilder) Run(checkIDs ...string) *HookBuilder {
	b.h.Run = append(b.h.Run, checkIDs...)
	return b
}

func (b *HookBuilder) RunJS(expr string) *HookBuilder      { b.h.RunJS = expr; return b }
func (b *HookBuilder) Goto(checkID string) *HookBuilder    { b.h.Goto = checkID; return b }
func (b *HookBuilder) GotoJS(expr string) *HookBuilder     { b.h.GotoJS = expr; return b }
func (b *HookBuilder) GotoEvent(event string) *HookBuilder { b.h.GotoEvent = event; return b }

func (b *HookBuilder) Transition(when, to string) *HookBuilder {
	b.h.Transitions = append(b.h.Transitions, model.RoutingTransition{When: when, To: to})
	return b
}

func (b *HookBuilder) Retry(rp *model.RetryPolicy) *HookBuilder { b.h.Retry = rp; return b }

// Build returns the assembled hook.
func (b *HookBuilder) Build() *model.RoutingHook {
	h := b.h
	return &h
}
