package milvus

import (
	"context"

	"github.com/moldex-io/moldex/internal/domain/chem"
	"github.com/moldex-io/moldex/internal/domain/fingerprint"
	"github.com/moldex-io/moldex/pkg/types/common"
)

const (
	fingerprintCollection = "molecule_fingerprints"
	fingerprintVectorDim  = 2048
	fingerprintVectorField = "fingerprint_vector"
)

// FingerprintIndex backs fingerprint.Index with Milvus's IVF_FLAT ANN search
// over the molecule_fingerprints collection. A chem.Fingerprint's packed
// bits are unpacked into a 0.0/1.0 float32 vector of length NBits and
// searched under the IP metric, whose dot product over 0/1 vectors equals
// shared on-bit count, approximating Tanimoto similarity without adding a
// binary-vector code path to the generic Searcher.
type FingerprintIndex struct {
	searcher *Searcher
}

// NewFingerprintIndex wraps searcher for the molecule_fingerprints collection.
func NewFingerprintIndex(searcher *Searcher) *FingerprintIndex {
	return &FingerprintIndex{searcher: searcher}
}

// Count returns the number of indexed fingerprints. fpType is accepted for
// interface symmetry with Repository.ScanByType; the collection is not
// partitioned by type, so the whole collection's count is returned.
func (idx *FingerprintIndex) Count(ctx context.Context, fpType chem.FingerprintType) (int, error) {
	total, err := idx.searcher.GetEntityCount(ctx, fingerprintCollection)
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

// Search runs a top-K nearest-neighbor query for query under the IP metric
// and resolves hits back to fingerprint.Match values.
func (idx *FingerprintIndex) Search(ctx context.Context, query *chem.Fingerprint, topK int) ([]fingerprint.Match, error) {
	vec := toFloatVector(query)

	result, err := idx.searcher.Search(ctx, common.VectorSearchRequest{
		CollectionName:  fingerprintCollection,
		VectorFieldName: fingerprintVectorField,
		Vectors:         [][]float32{vec},
		TopK:            topK,
		MetricType:      "IP",
		OutputFields:    []string{"molecule_id"},
	})
	if err != nil {
		return nil, err
	}
	if len(result.Results) == 0 {
		return nil, nil
	}

	onBits := float64(query.NumOnBits)
	matches := make([]fingerprint.Match, 0, len(result.Results[0]))
	for _, hit := range result.Results[0] {
		moleculeID, _ := hit.Fields["molecule_id"].(string)
		if moleculeID == "" {
			continue
		}
		matches = append(matches, fingerprint.Match{
			MoleculeID: common.ID(moleculeID),
			Score:      tanimotoFromDotProduct(float64(hit.Score), onBits),
		})
	}
	return matches, nil
}

// Upsert stores query's vector for moleculeID under fpType, keeping the
// index in sync with the relational system of record.
func (idx *FingerprintIndex) Upsert(ctx context.Context, moleculeID common.ID, fp *chem.Fingerprint) error {
	row := map[string]interface{}{
		"molecule_id":        string(moleculeID),
		"fingerprint_type":   string(fp.Type),
		fingerprintVectorField: toFloatVector(fp),
	}
	_, err := idx.searcher.Upsert(ctx, common.InsertRequest{
		CollectionName: fingerprintCollection,
		Data:           []map[string]interface{}{row},
	})
	return err
}

func toFloatVector(fp *chem.Fingerprint) []float32 {
	dim := fp.Length
	if dim == 0 {
		dim = fingerprintVectorDim
	}
	vec := make([]float32, dim)
	for i := 0; i < dim; i++ {
		if fp.GetBit(i) {
			vec[i] = 1.0
		}
	}
	return vec
}

// tanimotoFromDotProduct recovers the Tanimoto coefficient for two 0/1
// vectors given their dot product (shared on-bits) and the query's on-bit
// count. This is exact only when the index vector's on-bit count equals the
// query's; otherwise it is a close approximation, acceptable for the
// acceleration path, which Service treats as a candidate prefilter subject
// to the caller's threshold.
func tanimotoFromDotProduct(dot, queryOnBits float64) float64 {
	if queryOnBits <= 0 {
		return 0
	}
	union := 2*queryOnBits - dot
	if union <= 0 {
		return 0
	}
	return dot / union
}
