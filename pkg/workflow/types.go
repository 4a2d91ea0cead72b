// Package workflow is a fluent, Go-native alternative to hand-writing a
// model.WorkflowConfig literal. YAML config loading and schema validation
// are out of scope — model.WorkflowConfig is the structural target an
// external loader populates — so this package never parses anything; it
// gives embedders (and this module's own tests) a builder for constructing
// that same struct programmatically, the way the teacher's pkg/workflow
// builds its Definition/NodeDef/EdgeDef/TriggerDef graph fluently instead
// of through a parser.
package workflow

import "github.com/checkdag/checkdag/pkg/model"

// Definition is an alias for model.WorkflowConfig, the struct a loaded
// workflow config actually is and the type Builder.Build returns.
type Definition = model.WorkflowConfig
