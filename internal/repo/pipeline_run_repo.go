package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/noterag/internal/model"
	"github.com/xxxsen/noterag/internal/pkg/dbutil"
)

// PipelineRunRepo records one row per pipeline stage execution.
type PipelineRunRepo struct {
	db *sql.DB
}

func NewPipelineRunRepo(db *sql.DB) *PipelineRunRepo {
	return &PipelineRunRepo{db: db}
}

func (r *PipelineRunRepo) Create(ctx context.Context, run *model.PipelineRun) error {
	data := map[string]interface{}{
		"stage":       run.Stage,
		"documents":   run.Documents,
		"chunks":      run.Chunks,
		"embedded":    run.Embedded,
		"failed":      run.Failed,
		"status":      run.Status,
		"error":       run.Error,
		"started_at":  run.StartedAt,
		"duration_ms": run.DurationMs,
	}
	sqlStr, args, err := builder.BuildInsert("pipeline_runs", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *PipelineRunRepo) ListRecent(ctx context.Context, limit int) ([]model.PipelineRun, error) {
	if limit <= 0 {
		limit = 20
	}
	where := map[string]interface{}{
		"_orderby": "started_at desc",
		"_limit":   []uint{0, uint(limit)},
	}
	fields := []string{"id", "stage", "documents", "chunks", "embedded", "failed", "status", "error", "started_at", "duration_ms"}
	sqlStr, args, err := builder.BuildSelect("pipeline_runs", where, fields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	runs := make([]model.PipelineRun, 0)
	for rows.Next() {
		var run model.PipelineRun
		if err := rows.Scan(&run.ID, &run.Stage, &run.Documents, &run.Chunks, &run.Embedded,
			&run.Failed, &run.Status, &run.Error, &run.StartedAt, &run.DurationMs); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
