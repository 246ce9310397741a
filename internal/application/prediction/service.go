// Package prediction is the application-level use-case layer for the
// Prediction Client/Orchestrator (C5/C6): it wires the domain prediction
// service to the Molecule Store for SMILES resolution and predicted
// property persistence, and adapts its PredictionBatch/Prediction
// aggregates to wire-friendly DTOs.
package prediction

import (
	"context"

	domainMol "github.com/moldex-io/moldex/internal/domain/molecule"
	domainPrediction "github.com/moldex-io/moldex/internal/domain/prediction"
	"github.com/moldex-io/moldex/internal/platform/logging"
	"github.com/moldex-io/moldex/pkg/types/common"
)

// BatchDTO is the wire-friendly representation of a PredictionBatch.
type BatchDTO struct {
	ID             string   `json:"id"`
	MoleculeIDs    []string `json:"molecule_ids"`
	Properties     []string `json:"properties"`
	ModelName      string   `json:"model_name"`
	ModelVersion   string   `json:"model_version"`
	Status         string   `json:"status"`
	ExternalJobID  string   `json:"external_job_id,omitempty"`
	TotalCount     int      `json:"total_count"`
	CompletedCount int      `json:"completed_count"`
	FailedCount    int      `json:"failed_count"`
	ErrorMessage   string   `json:"error_message,omitempty"`
}

// Sharder is the optional collaborator a Service uses to serve a Submit
// call whose moleculeIDs exceed domain/prediction.MaxBatchSize in full,
// splitting it across multiple PredictionBatch rows instead of bouncing it
// off the domain service's per-batch cap. application/task.Service
// implements this by submitting the first shard synchronously and
// enqueuing the rest via the Task Runtime. A Service with none attached
// forwards straight to the domain service, which rejects an oversized
// request rather than truncating it.
type Sharder interface {
	Submit(ctx context.Context, moleculeIDs []common.ID, properties []string, modelName, modelVersion string, createdBy common.ID) (*domainPrediction.PredictionBatch, error)
}

// Service is the application-facing façade over the Prediction
// Orchestrator domain service, composed with the Molecule Store so
// upstream SMILES resolution and predicted-property persistence never
// require domain/prediction to import domain/molecule directly.
type Service struct {
	domain    *domainPrediction.Service
	molecules *domainMol.Service
	sharder   Sharder
	logger    logging.Logger
}

// NewService constructs a Service.
func NewService(domain *domainPrediction.Service, molecules *domainMol.Service, logger logging.Logger) *Service {
	return &Service{domain: domain, molecules: molecules, logger: logger}
}

// UseSharder attaches the collaborator Submit delegates to for requests
// larger than one PredictionBatch's capacity.
func (s *Service) UseSharder(sharder Sharder) {
	s.sharder = sharder
}

// Submit starts a new prediction batch for moleculeIDs x properties,
// sharding across multiple PredictionBatch rows via the attached Sharder
// when moleculeIDs exceeds a single batch's capacity.
func (s *Service) Submit(ctx context.Context, moleculeIDs []string, properties []string, modelName, modelVersion, createdBy string) (*BatchDTO, error) {
	ids := make([]common.ID, len(moleculeIDs))
	for i, id := range moleculeIDs {
		ids[i] = common.ID(id)
	}
	var batch *domainPrediction.PredictionBatch
	var err error
	if s.sharder != nil {
		batch, err = s.sharder.Submit(ctx, ids, properties, modelName, modelVersion, common.ID(createdBy))
	} else {
		batch, err = s.domain.Submit(ctx, ids, properties, modelName, modelVersion, common.ID(createdBy))
	}
	if batch == nil {
		return nil, err
	}
	dto := toBatchDTO(batch)
	return &dto, err
}

// Get retrieves a batch by id.
func (s *Service) Get(ctx context.Context, batchID string) (*BatchDTO, error) {
	batch, err := s.domain.Get(ctx, common.ID(batchID))
	if err != nil {
		return nil, err
	}
	dto := toBatchDTO(batch)
	return &dto, nil
}

// Cancel cancels a batch.
func (s *Service) Cancel(ctx context.Context, batchID string) error {
	return s.domain.Cancel(ctx, common.ID(batchID))
}

// RetryFailed resubmits a FAILED batch.
func (s *Service) RetryFailed(ctx context.Context, batchID string) error {
	return s.domain.RetryFailed(ctx, common.ID(batchID))
}

func toBatchDTO(batch *domainPrediction.PredictionBatch) BatchDTO {
	ids := make([]string, len(batch.MoleculeIDs))
	for i, id := range batch.MoleculeIDs {
		ids[i] = id.String()
	}
	return BatchDTO{
		ID:             batch.ID.String(),
		MoleculeIDs:    ids,
		Properties:     batch.Properties,
		ModelName:      batch.ModelName,
		ModelVersion:   batch.ModelVersion,
		Status:         string(batch.Status),
		ExternalJobID:  batch.ExternalJobID,
		TotalCount:     batch.TotalCount,
		CompletedCount: batch.CompletedCount,
		FailedCount:    batch.FailedCount,
		ErrorMessage:   batch.ErrorMessage,
	}
}

// PredictablePropertyLookup adapts the Molecule Store's PropertyDefinitions
// to domain/prediction.PredictablePropertyLookup: the predictable set is
// every declared, non-custom PropertyDefinition flagged IsPredictable; the
// default enrichment set is the same list, letting a deployment narrow
// "predictable" without a separate "default" list to keep in sync.
type PredictablePropertyLookup struct {
	molecules *domainMol.Service
}

// NewPredictablePropertyLookup constructs a PredictablePropertyLookup.
func NewPredictablePropertyLookup(molecules *domainMol.Service) *PredictablePropertyLookup {
	return &PredictablePropertyLookup{molecules: molecules}
}

func (p *PredictablePropertyLookup) predictableNames(ctx context.Context) ([]string, error) {
	defs, err := p.molecules.ListPropertyDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, d := range defs {
		if d.IsPredictable {
			names = append(names, d.Name)
		}
	}
	return names, nil
}

// PredictableNames implements domain/prediction.PredictablePropertyLookup.
func (p *PredictablePropertyLookup) PredictableNames(ctx context.Context) ([]string, error) {
	return p.predictableNames(ctx)
}

// DefaultProperties implements domain/prediction.PredictablePropertyLookup.
func (p *PredictablePropertyLookup) DefaultProperties(ctx context.Context) ([]string, error) {
	return p.predictableNames(ctx)
}

// MoleculeSMILESLookup adapts the Molecule Store to
// domain/prediction.MoleculeSMILESLookup.
type MoleculeSMILESLookup struct {
	molecules *domainMol.Service
}

// NewMoleculeSMILESLookup constructs a MoleculeSMILESLookup.
func NewMoleculeSMILESLookup(molecules *domainMol.Service) *MoleculeSMILESLookup {
	return &MoleculeSMILESLookup{molecules: molecules}
}

// SMILESByID implements domain/prediction.MoleculeSMILESLookup.
func (l *MoleculeSMILESLookup) SMILESByID(ctx context.Context, id common.ID) (string, error) {
	mol, err := l.molecules.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return mol.SMILES, nil
}

// IDBySMILES implements domain/prediction.MoleculeSMILESLookup.
func (l *MoleculeSMILESLookup) IDBySMILES(ctx context.Context, smiles string) (common.ID, error) {
	mol, err := l.molecules.GetBySMILES(ctx, smiles)
	if err != nil {
		return common.ID(""), err
	}
	return mol.ID, nil
}

// PropertyRecorder adapts the Molecule Store to
// domain/prediction.PropertyRecorder: a completed Prediction is persisted
// as a MoleculeProperty with Source=PREDICTED.
type PropertyRecorder struct {
	molecules *domainMol.Service
}

// NewPropertyRecorder constructs a PropertyRecorder.
func NewPropertyRecorder(molecules *domainMol.Service) *PropertyRecorder {
	return &PropertyRecorder{molecules: molecules}
}

// RecordPredictedProperty implements domain/prediction.PropertyRecorder.
func (r *PropertyRecorder) RecordPredictedProperty(ctx context.Context, moleculeID common.ID, name string, value any, confidence float64, units string) error {
	conf := confidence
	return r.molecules.SetProperty(ctx, &domainMol.MoleculeProperty{
		MoleculeID: moleculeID,
		Name:       name,
		Value:      value,
		Units:      units,
		Source:     domainMol.SourcePredicted,
		Confidence: &conf,
	})
}
