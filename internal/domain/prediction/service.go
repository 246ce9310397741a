package prediction

import (
	"context"

	"github.com/moldex-io/moldex/internal/platform/logging"
	"github.com/moldex-io/moldex/pkg/errors"
	"github.com/moldex-io/moldex/pkg/types/common"
)

// Service is the Prediction Orchestrator (C6): it drives PredictionBatch and
// Prediction rows through their state machines on top of a Repository, the
// external Client (C5), and the Molecule Store/Task Runtime slices it needs,
// per spec §4.6.
type Service struct {
	repo       Repository
	client     Client
	molecules  MoleculeSMILESLookup
	properties PredictablePropertyLookup
	recorder   PropertyRecorder
	scheduler  PollScheduler
	logger     logging.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, client Client, molecules MoleculeSMILESLookup, properties PredictablePropertyLookup, recorder PropertyRecorder, scheduler PollScheduler, logger logging.Logger) *Service {
	return &Service{
		repo:       repo,
		client:     client,
		molecules:  molecules,
		properties: properties,
		recorder:   recorder,
		scheduler:  scheduler,
		logger:     logger,
	}
}

// Submit validates properties against the predictable set and creates a
// single PredictionBatch for moleculeIDs, submitting it synchronously, per
// spec §4.6 step 1. moleculeIDs beyond MaxBatchSize is rejected rather than
// truncated; a caller that needs to serve a larger request in full is
// responsible for sharding it into multiple Submit calls (see
// application/task.Service.Submit, which does this for the CLI and
// enrichment paths).
func (s *Service) Submit(ctx context.Context, moleculeIDs []common.ID, properties []string, modelName, modelVersion string, createdBy common.ID) (*PredictionBatch, error) {
	if err := s.checkPredictable(ctx, properties); err != nil {
		return nil, err
	}
	if len(moleculeIDs) > MaxBatchSize {
		return nil, errors.New(errors.CodeInvalidPredictionParameters,
			"submit exceeds the maximum molecule count for a single batch; shard the request across multiple calls").
			WithDetail("max_batch_size", MaxBatchSize)
	}

	batch, err := NewBatch(moleculeIDs, properties, modelName, modelVersion, createdBy)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		return nil, err
	}

	predictions := make([]*Prediction, 0, batch.TotalCount)
	for _, molID := range moleculeIDs {
		for _, prop := range properties {
			predictions = append(predictions, NewPendingPrediction(batch.ID, molID, prop))
		}
	}
	if err := s.repo.CreatePredictions(ctx, predictions); err != nil {
		return nil, err
	}

	if err := s.submitUpstream(ctx, batch); err != nil {
		batch.Fail(err.Error())
		_ = s.repo.UpdateBatch(ctx, batch)
		return batch, err
	}
	return batch, nil
}

// submitUpstream resolves moleculeIDs to SMILES, calls Client.Submit, and
// transitions batch PENDING -> PROCESSING on success, scheduling the first
// poll.
func (s *Service) submitUpstream(ctx context.Context, batch *PredictionBatch) error {
	smilesList := make([]string, 0, len(batch.MoleculeIDs))
	for _, id := range batch.MoleculeIDs {
		smiles, err := s.molecules.SMILESByID(ctx, id)
		if err != nil {
			return err
		}
		smilesList = append(smilesList, smiles)
	}

	resp, err := s.client.Submit(ctx, SubmitRequest{
		MoleculeSMILES: smilesList,
		Properties:     batch.Properties,
		ModelName:      batch.ModelName,
		ModelVersion:   batch.ModelVersion,
	})
	if err != nil {
		return err
	}
	if err := batch.MarkSubmitted(resp.ExternalJobID); err != nil {
		return err
	}
	if err := s.repo.UpdateBatch(ctx, batch); err != nil {
		return err
	}
	s.logger.Info("prediction batch submitted",
		logging.String("batch_id", batch.ID.String()), logging.String("external_job_id", resp.ExternalJobID))
	if s.scheduler != nil {
		return s.scheduler.SchedulePoll(ctx, batch.ID, PollInterval)
	}
	return nil
}

// Poll drives one polling tick for batchID, per spec §4.6's polling
// contract: processing reschedules, completed fetches and persists results,
// failed (or MaxPollRetries transient errors) transitions the batch to
// FAILED.
func (s *Service) Poll(ctx context.Context, batchID common.ID) error {
	batch, err := s.repo.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if batch.IsTerminal() {
		return nil
	}

	status, err := s.client.GetStatus(ctx, batch.ExternalJobID)
	if err != nil {
		return s.handlePollError(ctx, batch, err)
	}
	batch.PollAttempts = 0

	switch status.State {
	case JobQueued, JobProcessing:
		if s.scheduler != nil {
			return s.scheduler.SchedulePoll(ctx, batch.ID, PollInterval)
		}
		return nil
	case JobFailed:
		batch.Fail(status.ErrorMessage)
		return s.repo.UpdateBatch(ctx, batch)
	case JobCompleted:
		return s.collectResults(ctx, batch)
	default:
		return s.repo.UpdateBatch(ctx, batch)
	}
}

func (s *Service) handlePollError(ctx context.Context, batch *PredictionBatch, pollErr error) error {
	if !errors.IsTransient(pollErr) {
		batch.Fail(pollErr.Error())
		return s.repo.UpdateBatch(ctx, batch)
	}
	batch.PollAttempts++
	if batch.PollAttempts >= MaxPollRetries {
		batch.Fail("prediction status polling exceeded its retry budget: " + pollErr.Error())
		return s.repo.UpdateBatch(ctx, batch)
	}
	if err := s.repo.UpdateBatch(ctx, batch); err != nil {
		return err
	}
	s.logger.Warn("transient prediction polling error, rescheduling",
		logging.String("batch_id", batch.ID.String()), logging.Int("attempt", batch.PollAttempts), logging.Err(pollErr))
	if s.scheduler != nil {
		return s.scheduler.SchedulePoll(ctx, batch.ID, PollInterval)
	}
	return nil
}

// collectResults fetches and persists a completed job's per-molecule
// results, updates each Prediction row, upserts the PREDICTED
// MoleculeProperty, and rolls the batch's completed/failed counts forward.
func (s *Service) collectResults(ctx context.Context, batch *PredictionBatch) error {
	results, err := s.client.GetResults(ctx, batch.ExternalJobID)
	if err != nil {
		return s.handlePollError(ctx, batch, err)
	}

	predictions, err := s.repo.GetPredictionsByBatch(ctx, batch.ID)
	if err != nil {
		return err
	}
	byKey := make(map[string]*Prediction, len(predictions))
	for _, p := range predictions {
		byKey[predictionKey(p.MoleculeID, p.PropertyName)] = p
	}

	completed, failed := 0, 0
	for _, item := range results.Items {
		molID, err := s.molecules.IDBySMILES(ctx, item.MoleculeSMILES)
		if err != nil {
			failed++
			continue
		}
		p, ok := byKey[predictionKey(molID, item.PropertyName)]
		if !ok {
			continue
		}
		if item.ErrorMessage != "" {
			p.Fail(item.ErrorMessage)
			failed++
		} else {
			if err := p.Complete(item.Value, item.Confidence, item.Units, batch.ModelName, batch.ModelVersion); err != nil {
				p.Fail(err.Error())
				failed++
			} else {
				completed++
				if s.recorder != nil {
					if recErr := s.recorder.RecordPredictedProperty(ctx, molID, item.PropertyName, item.Value.Raw(), item.Confidence, item.Units); recErr != nil {
						s.logger.Warn("failed to persist predicted property",
							logging.String("molecule_id", molID.String()), logging.String("property", item.PropertyName), logging.Err(recErr))
					}
				}
			}
		}
		if err := s.repo.UpsertPrediction(ctx, p); err != nil {
			return err
		}
	}

	batch.RecordProgress(batch.CompletedCount+completed, batch.FailedCount+failed)
	return s.repo.UpdateBatch(ctx, batch)
}

func predictionKey(moleculeID common.ID, propertyName string) string {
	return moleculeID.String() + "\x00" + propertyName
}

// Cancel cancels a PENDING or PROCESSING batch: best-effort upstream
// cancel, then force FAILED regardless of upstream outcome, per spec §4.6.
func (s *Service) Cancel(ctx context.Context, batchID common.ID) error {
	batch, err := s.repo.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if batch.ExternalJobID != "" {
		if cancelErr := s.client.Cancel(ctx, batch.ExternalJobID); cancelErr != nil {
			s.logger.Warn("upstream cancel failed, forcing local FAILED anyway",
				logging.String("batch_id", batchID.String()), logging.Err(cancelErr))
		}
	}
	if err := batch.Cancel(); err != nil {
		return err
	}
	return s.repo.UpdateBatch(ctx, batch)
}

// RetryFailed resets batchID from FAILED back to PENDING and resubmits it
// upstream. Per spec §4.6, already-completed predictions are left alone;
// only the batch-level submission is redone.
func (s *Service) RetryFailed(ctx context.Context, batchID common.ID) error {
	batch, err := s.repo.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if err := batch.RetryFromFailed(); err != nil {
		return err
	}
	if err := s.repo.UpdateBatch(ctx, batch); err != nil {
		return err
	}
	if err := s.submitUpstream(ctx, batch); err != nil {
		batch.Fail(err.Error())
		_ = s.repo.UpdateBatch(ctx, batch)
		return err
	}
	return nil
}

// Get retrieves a batch by id.
func (s *Service) Get(ctx context.Context, batchID common.ID) (*PredictionBatch, error) {
	return s.repo.GetBatch(ctx, batchID)
}

func (s *Service) checkPredictable(ctx context.Context, properties []string) error {
	if s.properties == nil {
		return nil
	}
	predictable, err := s.properties.PredictableNames(ctx)
	if err != nil {
		return err
	}
	allowed := make(map[string]bool, len(predictable))
	for _, p := range predictable {
		allowed[p] = true
	}
	for _, p := range properties {
		if IsCustomProperty(p) || !allowed[p] {
			return errors.New(errors.CodeInvalidPredictionParameters, "property is not in the predictable set: "+p).WithDetail("property", p)
		}
	}
	return nil
}
