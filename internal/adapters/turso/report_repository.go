package turso

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/liftwatch/liftwatch/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	id TEXT PRIMARY KEY,
	experiment_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	verdict TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_experiment ON reports(experiment_id, created_at);
CREATE INDEX IF NOT EXISTS idx_reports_kind ON reports(kind, created_at);
`

type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create reports schema: %w", err)
	}
	return nil
}

func (r *ReportRepository) Save(ctx context.Context, report *domain.Report) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reports (id, experiment_id, kind, verdict, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		report.ID,
		report.ExperimentID,
		report.Kind,
		report.Verdict,
		string(report.Payload),
		report.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, experiment_id, kind, verdict, payload, created_at
		 FROM reports WHERE id = ?`, id)

	report, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("report %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return report, nil
}

func (r *ReportRepository) List(ctx context.Context, experimentID, kind string, limit int) ([]*domain.Report, error) {
	query := `SELECT id, experiment_id, kind, verdict, payload, created_at FROM reports`
	var conds []string
	var args []any
	if experimentID != "" {
		conds = append(conds, "experiment_id = ?")
		args = append(args, experimentID)
	}
	if kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, kind)
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*domain.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}
	return reports, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (*domain.Report, error) {
	var report domain.Report
	var payload, createdAt string
	if err := s.Scan(&report.ID, &report.ExperimentID, &report.Kind, &report.Verdict, &payload, &createdAt); err != nil {
		return nil, err
	}
	report.Payload = []byte(payload)
	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	report.CreatedAt = ts
	return &report, nil
}
