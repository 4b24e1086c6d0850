package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/glowlab/dermascan/internal/core/domain"
)

// ScanAuditLog writes one operational row per resolved scan. It is an audit
// trail for operators; the pipeline never reads it back.
type ScanAuditLog struct {
	db *sql.DB
}

func NewScanAuditLog(db *sql.DB) *ScanAuditLog {
	return &ScanAuditLog{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ScanAuditLog) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent api startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082301)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS scan_audit (
	request_id TEXT PRIMARY KEY,
	degraded BOOLEAN NOT NULL,
	degrade_reason TEXT,
	stage_reached TEXT NOT NULL,
	poll_attempts INT NOT NULL DEFAULT 0,
	duration_ms BIGINT NOT NULL,
	produced_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scan_audit_produced_at ON scan_audit(produced_at DESC);
CREATE INDEX IF NOT EXISTS idx_scan_audit_degraded ON scan_audit(degraded);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ScanAuditLog) Record(ctx context.Context, rec domain.ScanRecord) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO scan_audit (
	request_id, degraded, degrade_reason, stage_reached, poll_attempts, duration_ms, produced_at
) VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (request_id) DO NOTHING
`,
		rec.RequestID, rec.Degraded, rec.DegradeReason, rec.StageReached.String(),
		rec.PollAttempts, rec.Duration.Milliseconds(), rec.ProducedAt,
	)
	if err != nil {
		return fmt.Errorf("insert scan audit: %w", err)
	}
	return nil
}
