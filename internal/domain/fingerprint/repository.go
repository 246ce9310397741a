package fingerprint

import (
	"context"

	"github.com/moldex-io/moldex/internal/domain/chem"
	"github.com/moldex-io/moldex/pkg/types/common"
)

// Repository is the persistence boundary for fingerprint Records.
type Repository interface {
	// Put upserts the fingerprint for (record.MoleculeID, record.Type).
	Put(ctx context.Context, record *Record) error

	// Get retrieves the fingerprint for (moleculeID, fpType), if present.
	Get(ctx context.Context, moleculeID common.ID, fpType chem.FingerprintType) (*Record, error)

	// Delete drops any fingerprints cached for moleculeID, across all types.
	// The Molecule Store calls this when a molecule's SMILES changes, per
	// invariant I5.
	Delete(ctx context.Context, moleculeID common.ID) error

	// ScanByType streams every Record of fpType, used by similarity_search
	// and substructure_search to build the candidate set. next is called
	// once per candidate in implementation-defined order; returning an
	// error from next stops the scan.
	ScanByType(ctx context.Context, fpType chem.FingerprintType, next func(*Record) error) error
}

// Index is an optional ANN acceleration path for similarity_search,
// consulted only when the stored population of fpType exceeds a configured
// threshold. Repository's ScanByType remains the system of record; Service
// falls back to the brute-force scan on any Index error.
type Index interface {
	Count(ctx context.Context, fpType chem.FingerprintType) (int, error)
	Search(ctx context.Context, query *chem.Fingerprint, topK int) ([]Match, error)
}

// MoleculeLookup is the slice of the Molecule Store that search needs: given
// a molecule id, return its current SMILES. A relational implementation
// backs this with the molecules table so search results can report the
// winning molecule without duplicating storage.
type MoleculeLookup interface {
	SMILESByID(ctx context.Context, id common.ID) (string, error)
}
