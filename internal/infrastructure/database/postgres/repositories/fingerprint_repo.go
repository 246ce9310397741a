package repositories

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moldex-io/moldex/internal/domain/chem"
	"github.com/moldex-io/moldex/internal/domain/fingerprint"
	"github.com/moldex-io/moldex/internal/platform/logging"
	moldexerrors "github.com/moldex-io/moldex/pkg/errors"
	"github.com/moldex-io/moldex/pkg/types/common"
)

type fingerprintRepo struct {
	pool   db
	logger logging.Logger
}

// NewFingerprintRepo constructs a fingerprint.Repository backed by pool, the
// system of record ScanByType's brute-force similarity scan reads from.
func NewFingerprintRepo(pool *pgxpool.Pool, logger logging.Logger) fingerprint.Repository {
	return &fingerprintRepo{pool: pool, logger: logger}
}

func (r *fingerprintRepo) Put(ctx context.Context, record *fingerprint.Record) error {
	var sparse []byte
	if record.Data.Sparse != nil {
		encoded, err := json.Marshal(record.Data.Sparse)
		if err != nil {
			return moldexerrors.Wrap(err, moldexerrors.CodeSerializationError, "marshal fingerprint sparse vector")
		}
		sparse = encoded
	}

	const q = `
		INSERT INTO molecule_fingerprints (molecule_id, fp_type, radius, n_bits, min_path, max_path, bits, length, sparse, num_on_bits, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (molecule_id, fp_type) DO UPDATE SET
			radius = EXCLUDED.radius, n_bits = EXCLUDED.n_bits, min_path = EXCLUDED.min_path, max_path = EXCLUDED.max_path,
			bits = EXCLUDED.bits, length = EXCLUDED.length, sparse = EXCLUDED.sparse, num_on_bits = EXCLUDED.num_on_bits,
			updated_at = EXCLUDED.updated_at`
	_, err := r.pool.Exec(ctx, q,
		record.MoleculeID, record.Type, record.Params.Radius, record.Params.NBits, record.Params.MinPath, record.Params.MaxPath,
		record.Data.Bits, record.Data.Length, sparse, record.Data.NumOnBits)
	if err != nil {
		return wrapDBErr(err, "put fingerprint")
	}
	return nil
}

func (r *fingerprintRepo) Get(ctx context.Context, moleculeID common.ID, fpType chem.FingerprintType) (*fingerprint.Record, error) {
	const q = `SELECT molecule_id, fp_type, radius, n_bits, min_path, max_path, bits, length, sparse, num_on_bits, updated_at
		FROM molecule_fingerprints WHERE molecule_id = $1 AND fp_type = $2`
	return scanOneFingerprint(r.pool.QueryRow(ctx, q, moleculeID, fpType))
}

func (r *fingerprintRepo) Delete(ctx context.Context, moleculeID common.ID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM molecule_fingerprints WHERE molecule_id = $1`, moleculeID)
	if err != nil {
		return wrapDBErr(err, "delete fingerprints")
	}
	return nil
}

func (r *fingerprintRepo) ScanByType(ctx context.Context, fpType chem.FingerprintType, next func(*fingerprint.Record) error) error {
	const q = `SELECT molecule_id, fp_type, radius, n_bits, min_path, max_path, bits, length, sparse, num_on_bits, updated_at
		FROM molecule_fingerprints WHERE fp_type = $1`
	rows, err := r.pool.Query(ctx, q, fpType)
	if err != nil {
		return wrapDBErr(err, "scan fingerprints")
	}
	defer rows.Close()

	for rows.Next() {
		record, err := scanOneFingerprint(rows)
		if err != nil {
			return err
		}
		if err := next(record); err != nil {
			return err
		}
	}
	return rows.Err()
}

func scanOneFingerprint(row pgx.Row) (*fingerprint.Record, error) {
	var rec fingerprint.Record
	var bitsCol []byte
	var sparseCol []byte
	var length, numOnBits int
	err := row.Scan(&rec.MoleculeID, &rec.Type, &rec.Params.Radius, &rec.Params.NBits, &rec.Params.MinPath, &rec.Params.MaxPath,
		&bitsCol, &length, &sparseCol, &numOnBits, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBErr(err, "scan fingerprint")
	}

	fp := &chem.Fingerprint{Type: rec.Type, Length: length, NumOnBits: numOnBits}
	if sparseCol != nil {
		var sparse map[int]int
		if err := json.Unmarshal(sparseCol, &sparse); err != nil {
			return nil, moldexerrors.Wrap(err, moldexerrors.CodeSerializationError, "unmarshal fingerprint sparse vector")
		}
		fp.Sparse = sparse
	} else {
		fp.Bits = bitsCol
	}
	rec.Data = fp
	return &rec, nil
}
