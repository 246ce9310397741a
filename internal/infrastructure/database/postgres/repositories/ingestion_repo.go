package repositories

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moldex-io/moldex/internal/domain/ingestion"
	"github.com/moldex-io/moldex/internal/platform/logging"
	moldexerrors "github.com/moldex-io/moldex/pkg/errors"
	"github.com/moldex-io/moldex/pkg/types/common"
)

type ingestionRepo struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewIngestionRepo constructs an ingestion.Repository backed by pool.
func NewIngestionRepo(pool *pgxpool.Pool, logger logging.Logger) ingestion.Repository {
	return &ingestionRepo{pool: pool, logger: logger}
}

func (r *ingestionRepo) Create(ctx context.Context, job *ingestion.Job) error {
	mapping, err := json.Marshal(job.ColumnMapping)
	if err != nil {
		return wrapDBErr(err, "marshal column mapping")
	}
	stats, err := json.Marshal(job.ChunkStats)
	if err != nil {
		return wrapDBErr(err, "marshal chunk stats")
	}
	rowErrs, err := json.Marshal(job.RowErrors)
	if err != nil {
		return wrapDBErr(err, "marshal row errors")
	}

	const q = `
		INSERT INTO ingestion_jobs (id, filename, storage_key, created_by, status, column_mapping,
			total_rows, chunk_stats, row_errors, created_count, skipped_count, failed_count,
			enrich_requested, prediction_batch_id, failure_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err = r.pool.Exec(ctx, q, job.ID, job.Filename, job.StorageKey, job.CreatedBy, job.Status, mapping,
		job.TotalRows, stats, rowErrs, job.CreatedCount, job.SkippedCount, job.FailedCount,
		job.EnrichRequested, job.PredictionBatchID, job.FailureMessage, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return wrapDBErr(err, "create ingestion job")
	}
	return nil
}

func (r *ingestionRepo) Get(ctx context.Context, id common.ID) (*ingestion.Job, error) {
	const q = `SELECT id, filename, storage_key, created_by, status, column_mapping, total_rows,
		chunk_stats, row_errors, created_count, skipped_count, failed_count, enrich_requested,
		prediction_batch_id, failure_message, created_at, updated_at
		FROM ingestion_jobs WHERE id = $1`
	job, err := r.scanJob(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, moldexerrors.New(moldexerrors.CodeUnexpectedError, "ingestion job not found").WithDetail("job_id", id.String())
	}
	return job, nil
}

func (r *ingestionRepo) scanJob(row pgx.Row) (*ingestion.Job, error) {
	var job ingestion.Job
	var mapping, stats, rowErrs []byte
	err := row.Scan(&job.ID, &job.Filename, &job.StorageKey, &job.CreatedBy, &job.Status, &mapping,
		&job.TotalRows, &stats, &rowErrs, &job.CreatedCount, &job.SkippedCount, &job.FailedCount,
		&job.EnrichRequested, &job.PredictionBatchID, &job.FailureMessage, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBErr(err, "scan ingestion job")
	}
	if err := json.Unmarshal(mapping, &job.ColumnMapping); err != nil {
		return nil, wrapDBErr(err, "unmarshal column mapping")
	}
	if err := json.Unmarshal(stats, &job.ChunkStats); err != nil {
		return nil, wrapDBErr(err, "unmarshal chunk stats")
	}
	if err := json.Unmarshal(rowErrs, &job.RowErrors); err != nil {
		return nil, wrapDBErr(err, "unmarshal row errors")
	}
	return &job, nil
}

func (r *ingestionRepo) Update(ctx context.Context, job *ingestion.Job) error {
	stats, err := json.Marshal(job.ChunkStats)
	if err != nil {
		return wrapDBErr(err, "marshal chunk stats")
	}
	rowErrs, err := json.Marshal(job.RowErrors)
	if err != nil {
		return wrapDBErr(err, "marshal row errors")
	}

	const q = `UPDATE ingestion_jobs SET status = $2, chunk_stats = $3, row_errors = $4,
		created_count = $5, skipped_count = $6, failed_count = $7, prediction_batch_id = $8,
		failure_message = $9, updated_at = $10
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, job.ID, job.Status, stats, rowErrs, job.CreatedCount, job.SkippedCount,
		job.FailedCount, job.PredictionBatchID, job.FailureMessage, job.UpdatedAt)
	if err != nil {
		return wrapDBErr(err, "update ingestion job")
	}
	if tag.RowsAffected() == 0 {
		return moldexerrors.New(moldexerrors.CodeUnexpectedError, "ingestion job not found").WithDetail("job_id", job.ID.String())
	}
	return nil
}
