package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moldex-io/moldex/internal/domain/prediction"
	"github.com/moldex-io/moldex/internal/platform/logging"
	moldexerrors "github.com/moldex-io/moldex/pkg/errors"
	"github.com/moldex-io/moldex/pkg/types/common"
)

type predictionRepo struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewPredictionRepo constructs a prediction.Repository backed by pool.
func NewPredictionRepo(pool *pgxpool.Pool, logger logging.Logger) prediction.Repository {
	return &predictionRepo{pool: pool, logger: logger}
}

func (r *predictionRepo) CreateBatch(ctx context.Context, b *prediction.PredictionBatch) error {
	const q = `
		INSERT INTO prediction_batches (id, molecule_ids, properties, model_name, model_version, status,
			external_job_id, total_count, completed_count, failed_count, error_message, poll_attempts,
			created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.pool.Exec(ctx, q,
		b.ID, moleculeIDStrings(b.MoleculeIDs), b.Properties, b.ModelName, b.ModelVersion, b.Status,
		b.ExternalJobID, b.TotalCount, b.CompletedCount, b.FailedCount, b.ErrorMessage, b.PollAttempts,
		b.CreatedBy, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return wrapDBErr(err, "create prediction batch")
	}
	return nil
}

func (r *predictionRepo) GetBatch(ctx context.Context, id common.ID) (*prediction.PredictionBatch, error) {
	const q = `SELECT id, molecule_ids, properties, model_name, model_version, status, external_job_id,
		total_count, completed_count, failed_count, error_message, poll_attempts, created_by, created_at, updated_at
		FROM prediction_batches WHERE id = $1`
	return r.scanBatch(r.pool.QueryRow(ctx, q, id))
}

func (r *predictionRepo) scanBatch(row pgx.Row) (*prediction.PredictionBatch, error) {
	var b prediction.PredictionBatch
	var ids, props []string
	err := row.Scan(&b.ID, &ids, &props, &b.ModelName, &b.ModelVersion, &b.Status,
		&b.ExternalJobID, &b.TotalCount, &b.CompletedCount, &b.FailedCount, &b.ErrorMessage, &b.PollAttempts,
		&b.CreatedBy, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBErr(err, "scan prediction batch")
	}
	b.Properties = props
	b.MoleculeIDs = make([]common.ID, len(ids))
	for i, id := range ids {
		b.MoleculeIDs[i] = common.ID(id)
	}
	return &b, nil
}

func (r *predictionRepo) UpdateBatch(ctx context.Context, b *prediction.PredictionBatch) error {
	const q = `UPDATE prediction_batches SET status = $2, external_job_id = $3, total_count = $4,
		completed_count = $5, failed_count = $6, error_message = $7, poll_attempts = $8, updated_at = $9
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, b.ID, b.Status, b.ExternalJobID, b.TotalCount, b.CompletedCount,
		b.FailedCount, b.ErrorMessage, b.PollAttempts, b.UpdatedAt)
	if err != nil {
		return wrapDBErr(err, "update prediction batch")
	}
	if tag.RowsAffected() == 0 {
		return moldexerrors.New(moldexerrors.CodePredictionJobNotFound, "prediction batch not found").WithDetail("batch_id", b.ID.String())
	}
	return nil
}

func (r *predictionRepo) ListStaleProcessing(ctx context.Context, cutoff common.Timestamp) ([]*prediction.PredictionBatch, error) {
	const q = `SELECT id, molecule_ids, properties, model_name, model_version, status, external_job_id,
		total_count, completed_count, failed_count, error_message, poll_attempts, created_by, created_at, updated_at
		FROM prediction_batches WHERE status = $1 AND updated_at < $2`
	rows, err := r.pool.Query(ctx, q, prediction.BatchProcessing, cutoff)
	if err != nil {
		return nil, wrapDBErr(err, "list stale processing batches")
	}
	defer rows.Close()

	var out []*prediction.PredictionBatch
	for rows.Next() {
		b, err := r.scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *predictionRepo) CreatePredictions(ctx context.Context, predictions []*prediction.Prediction) error {
	batch := &pgx.Batch{}
	const q = `INSERT INTO predictions (id, batch_id, molecule_id, property_name, value_kind, value_float,
		value_int, value_string, value_bool, confidence, units, model_name, model_version, status,
		error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	for _, p := range predictions {
		batch.Queue(q, p.ID, p.BatchID, p.MoleculeID, p.PropertyName, p.Value.Kind, p.Value.Float,
			p.Value.Int, p.Value.String, p.Value.Bool, p.Confidence, p.Units, p.ModelName, p.ModelVersion,
			p.Status, p.ErrorMessage, p.CreatedAt, p.UpdatedAt)
	}
	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range predictions {
		if _, err := br.Exec(); err != nil {
			return wrapDBErr(err, "create predictions")
		}
	}
	return nil
}

func (r *predictionRepo) GetPredictionsByBatch(ctx context.Context, batchID common.ID) ([]*prediction.Prediction, error) {
	const q = `SELECT id, batch_id, molecule_id, property_name, value_kind, value_float, value_int,
		value_string, value_bool, confidence, units, model_name, model_version, status, error_message,
		created_at, updated_at
		FROM predictions WHERE batch_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, q, batchID)
	if err != nil {
		return nil, wrapDBErr(err, "list predictions by batch")
	}
	defer rows.Close()

	var out []*prediction.Prediction
	for rows.Next() {
		p, err := r.scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *predictionRepo) scanPrediction(row pgx.Row) (*prediction.Prediction, error) {
	var p prediction.Prediction
	err := row.Scan(&p.ID, &p.BatchID, &p.MoleculeID, &p.PropertyName, &p.Value.Kind, &p.Value.Float,
		&p.Value.Int, &p.Value.String, &p.Value.Bool, &p.Confidence, &p.Units, &p.ModelName, &p.ModelVersion,
		&p.Status, &p.ErrorMessage, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, wrapDBErr(err, "scan prediction")
	}
	return &p, nil
}

func (r *predictionRepo) UpsertPrediction(ctx context.Context, p *prediction.Prediction) error {
	const q = `
		INSERT INTO predictions (id, batch_id, molecule_id, property_name, value_kind, value_float,
			value_int, value_string, value_bool, confidence, units, model_name, model_version, status,
			error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (batch_id, molecule_id, property_name) DO UPDATE SET
			value_kind = EXCLUDED.value_kind, value_float = EXCLUDED.value_float, value_int = EXCLUDED.value_int,
			value_string = EXCLUDED.value_string, value_bool = EXCLUDED.value_bool, confidence = EXCLUDED.confidence,
			status = EXCLUDED.status, error_message = EXCLUDED.error_message, updated_at = EXCLUDED.updated_at`
	_, err := r.pool.Exec(ctx, q, p.ID, p.BatchID, p.MoleculeID, p.PropertyName, p.Value.Kind, p.Value.Float,
		p.Value.Int, p.Value.String, p.Value.Bool, p.Confidence, p.Units, p.ModelName, p.ModelVersion,
		p.Status, p.ErrorMessage, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return wrapDBErr(err, "upsert prediction")
	}
	return nil
}

func moleculeIDStrings(ids []common.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
