package ingestion

import (
	"context"

	"github.com/moldex-io/moldex/pkg/types/common"
)

// Repository is the persistence boundary for Job rows.
type Repository interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id common.ID) (*Job, error)
	Update(ctx context.Context, job *Job) error
}

// BlobStore is the slice of an object-store client the Accept phase needs:
// persist the raw CSV bytes and mint a retrievable key. A non-goal per spec
// §1 is the object-store *service*; this is only a client boundary.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// MoleculeCreator is the slice of the Molecule Store that Commit needs. Per
// row, CreateOrGet performs the same upsert-by-inchi_key semantics as
// Repository.CreateFromSMILES in internal/domain/molecule; created is false
// when the row's SMILES matched an existing molecule.
type MoleculeCreator interface {
	CreateOrGet(ctx context.Context, smiles string, createdBy common.ID) (moleculeID common.ID, created bool, err error)
	SetProperty(ctx context.Context, moleculeID common.ID, name string, value any) error
}

// PropertyValidator checks a raw CSV cell value against the target
// property's PropertyDefinition, per spec §4.4 phase 4. Unknown and
// custom_-prefixed names are accepted unconditionally by a wired
// implementation.
type PropertyValidator interface {
	CheckValue(ctx context.Context, name string, value any) error
}

// EnrichmentSubmitter is the slice of the Prediction Orchestrator (C6) that
// the optional Enrich phase needs.
type EnrichmentSubmitter interface {
	SubmitDefault(ctx context.Context, moleculeIDs []common.ID, createdBy common.ID) (batchID common.ID, err error)
}
