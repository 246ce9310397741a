package prediction

import (
	"context"

	"github.com/moldex-io/moldex/pkg/types/common"
)

// Repository is the persistence boundary for PredictionBatch and Prediction
// rows.
type Repository interface {
	CreateBatch(ctx context.Context, batch *PredictionBatch) error
	GetBatch(ctx context.Context, id common.ID) (*PredictionBatch, error)
	UpdateBatch(ctx context.Context, batch *PredictionBatch) error

	// ListStaleProcessing returns PROCESSING batches whose UpdatedAt is
	// older than the caller-supplied cutoff, for the scheduled cleanup task
	// (crash recovery for batches stuck in PROCESSING with no further
	// polling scheduled).
	ListStaleProcessing(ctx context.Context, cutoff common.Timestamp) ([]*PredictionBatch, error)

	CreatePredictions(ctx context.Context, predictions []*Prediction) error
	GetPredictionsByBatch(ctx context.Context, batchID common.ID) ([]*Prediction, error)
	UpsertPrediction(ctx context.Context, p *Prediction) error
}

// PredictablePropertyLookup exposes the Molecule Store's PropertyDefinitions
// flagged is_predictable, and the default set used when a caller does not
// specify properties explicitly (e.g. the Ingestion Pipeline's optional
// Enrich phase). Kept as an interface so domain/prediction never imports
// domain/molecule directly.
type PredictablePropertyLookup interface {
	PredictableNames(ctx context.Context) ([]string, error)
	DefaultProperties(ctx context.Context) ([]string, error)
}

// MoleculeSMILESLookup resolves a molecule id to its current SMILES, needed
// to build upstream Submit requests (the external engine speaks SMILES, not
// internal ids).
type MoleculeSMILESLookup interface {
	SMILESByID(ctx context.Context, id common.ID) (string, error)
	IDBySMILES(ctx context.Context, smiles string) (common.ID, error)
}

// PropertyRecorder persists a completed Prediction as a MoleculeProperty
// with Source=PREDICTED, per spec §4.6's polling contract.
type PropertyRecorder interface {
	RecordPredictedProperty(ctx context.Context, moleculeID common.ID, name string, value any, confidence float64, units string) error
}

// PollScheduler is the slice of the Task Runtime (C7) the Orchestrator needs
// to (re)schedule a status poll for a PROCESSING batch.
type PollScheduler interface {
	SchedulePoll(ctx context.Context, batchID common.ID, delaySeconds int) error
}
