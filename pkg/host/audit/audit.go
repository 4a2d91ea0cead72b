// Package audit is the optional execution-record persistence layer the
// Workflow Host (C10) flushes into after a run, grounded on the teacher's
// root internal/infrastructure/storage/bun_store.go: the same
// bun.DB/pgdriver/pgdialect wiring, the same "model struct + NewXModel
// constructor + InitSchema creating tables IfNotExists" shape, adapted
// from mbflow's Workflow/Execution/Event/Node/Edge/Trigger tables to the
// one table this system actually needs — a flat append-only log of
// model.ExecutionRecord.
package audit

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/checkdag/checkdag/pkg/model"
)

// RecordModel is the bun-mapped row for one model.ExecutionRecord.
type RecordModel struct {
	bun.BaseModel `bun:"table:execution_records,alias:er"`

	ID               uuid.UUID      `bun:"id,pk"`
	CheckID          string         `bun:"check_id"`
	Iteration        int            `bun:"iteration"`
	StartedAt        time.Time      `bun:"started_at"`
	EndedAt          time.Time      `bun:"ended_at"`
	ProviderMS       int64          `bun:"provider_ms"`
	InputFingerprint string         `bun:"input_fingerprint"`
	OutputRef        int            `bun:"output_ref"`
	Outcome          string         `bun:"outcome"`
	SkipReason       string         `bun:"skip_reason"`
	IssueCounts      map[string]int `bun:"issue_counts,type:jsonb"`
}

func newRecordModel(rec *model.ExecutionRecord) *RecordModel {
	counts := make(map[string]int, len(rec.IssueCounts))
	for sev, n := range rec.IssueCounts {
		counts[string(sev)] = n
	}
	return &RecordModel{
		ID:               uuid.New(),
		CheckID:          rec.CheckID,
		Iteration:        rec.Iteration,
		StartedAt:        rec.StartedAt,
		EndedAt:          rec.EndedAt,
		ProviderMS:       rec.ProviderMS,
		InputFingerprint: rec.InputFingerprint,
		OutputRef:        rec.OutputRef,
		Outcome:          string(rec.Outcome),
		SkipReason:       rec.SkipReason,
		IssueCounts:      counts,
	}
}

// Sink is a bun-backed model.ExecutionRecord store.
type Sink struct {
	db *bun.DB
}

// NewSink opens a Postgres connection via pgdriver/pgdialect, matching the
// teacher's BunStore construction exactly.
func NewSink(dsn string) *Sink {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return &Sink{db: db}
}

// InitSchema creates the execution_records table if it doesn't exist.
func (s *Sink) InitSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*RecordModel)(nil)).IfNotExists().Exec(ctx)
	return err
}

// Append persists a batch of execution records from one run. Order is not
// significant here — StartedAt/Iteration already capture it — so a single
// bulk insert suffices, unlike the teacher's per-entity multi-statement
// SaveWorkflow transaction.
func (s *Sink) Append(ctx context.Context, records []*model.ExecutionRecord) error {
	if len(records) == 0 {
		return nil
	}
	models := make([]*RecordModel, len(records))
	for i, rec := range records {
		models[i] = newRecordModel(rec)
	}
	_, err := s.db.NewInsert().Model(&models).Exec(ctx)
	return err
}

// Close releases the underlying database connection.
func (s *Sink) Close() error { return s.db.Close() }
