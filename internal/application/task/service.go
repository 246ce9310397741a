// Package task is the application-level use-case layer for the Task
// Runtime (C7): it registers domain handlers on a domain/task.Runtime for
// prediction-batch polling, sharded prediction submission, and scheduled
// stale-batch cleanup, and exposes adapters the Ingestion Pipeline (C4) and
// Prediction Orchestrator (C6) use to reach the runtime without depending
// on it directly.
package task

import (
	"context"
	"time"

	domainPrediction "github.com/moldex-io/moldex/internal/domain/prediction"
	domainTask "github.com/moldex-io/moldex/internal/domain/task"
	"github.com/moldex-io/moldex/internal/platform/logging"
	"github.com/moldex-io/moldex/pkg/errors"
	"github.com/moldex-io/moldex/pkg/types/common"
)

const (
	KindPollPredictionBatch   = "tasks.ai_predictions.poll_batch"
	KindSubmitPredictionShard = "tasks.ai_predictions.submit_shard"
	KindCleanupStaleBatches   = "tasks.default.cleanup_stale_batches"

	// staleProcessingCutoff bounds how long a batch may sit PROCESSING with
	// no poll observed before the cleanup task force-cancels it, guarding
	// against a crashed worker that never rescheduled the next poll.
	staleProcessingCutoff = 10 * time.Minute

	// cleanupReschedule is how often the cleanup task re-enqueues itself.
	cleanupReschedule = 600
)

// Service registers the Task Runtime handlers that drive prediction
// polling, sharded submission, and batch cleanup.
type Service struct {
	runtime    *domainTask.Runtime
	prediction *domainPrediction.Service
	repo       domainPrediction.Repository
	logger     logging.Logger
}

// NewService constructs a Service and registers its handlers on runtime.
func NewService(runtime *domainTask.Runtime, prediction *domainPrediction.Service, repo domainPrediction.Repository, logger logging.Logger) *Service {
	s := &Service{runtime: runtime, prediction: prediction, repo: repo, logger: logger}
	runtime.Register(KindPollPredictionBatch, domainTask.HandlerFunc(s.handlePoll))
	runtime.Register(KindSubmitPredictionShard, domainTask.HandlerFunc(s.handleSubmitShard))
	runtime.Register(KindCleanupStaleBatches, domainTask.HandlerFunc(s.handleCleanupStaleBatches))
	return s
}

// EnqueueCleanup enqueues the first run of the stale-batch cleanup task;
// the handler reschedules itself thereafter.
func (s *Service) EnqueueCleanup(ctx context.Context) error {
	_, err := s.runtime.Enqueue(ctx, KindCleanupStaleBatches, struct{}{}, 0)
	return err
}

type pollPayload struct {
	BatchID string `json:"batch_id"`
}

// SchedulePoll implements domain/prediction.PollScheduler by enqueuing a
// poll task for batchID. delaySeconds is honored via the task's
// NotBefore once it reaches QUEUED through Reschedule inside handlePoll;
// the initial enqueue always runs as soon as a worker is free, since the
// Orchestrator only calls SchedulePoll after a batch has just moved to
// PROCESSING.
func (s *Service) SchedulePoll(ctx context.Context, batchID common.ID, delaySeconds int) error {
	_, err := s.runtime.Enqueue(ctx, KindPollPredictionBatch, pollPayload{BatchID: batchID.String()}, 0)
	return err
}

func (s *Service) handlePoll(ctx context.Context, t *domainTask.Task) error {
	var p pollPayload
	if err := t.Unmarshal(&p); err != nil {
		return err
	}
	batchID := common.ID(p.BatchID)
	if err := s.prediction.Poll(ctx, batchID); err != nil {
		return err
	}
	batch, err := s.prediction.Get(ctx, batchID)
	if err != nil {
		return err
	}
	if !batch.IsTerminal() {
		t.Reschedule(domainPrediction.PollInterval)
	}
	return nil
}

type submitShardPayload struct {
	MoleculeIDs  []string `json:"molecule_ids"`
	Properties   []string `json:"properties"`
	ModelName    string   `json:"model_name"`
	ModelVersion string   `json:"model_version"`
	CreatedBy    string   `json:"created_by"`
}

func (s *Service) handleSubmitShard(ctx context.Context, t *domainTask.Task) error {
	var p submitShardPayload
	if err := t.Unmarshal(&p); err != nil {
		return err
	}
	ids := make([]common.ID, len(p.MoleculeIDs))
	for i, id := range p.MoleculeIDs {
		ids[i] = common.ID(id)
	}
	_, err := s.prediction.Submit(ctx, ids, p.Properties, p.ModelName, p.ModelVersion, common.ID(p.CreatedBy))
	return err
}

// Submit shards moleculeIDs into MaxBatchSize-sized requests, submitting the
// first synchronously and enqueuing any remaining shards through the Task
// Runtime, so a caller requesting more molecules than a single
// PredictionBatch holds is served in full instead of truncated or
// rejected. The returned batch is the first shard's.
func (s *Service) Submit(ctx context.Context, moleculeIDs []common.ID, properties []string, modelName, modelVersion string, createdBy common.ID) (*domainPrediction.PredictionBatch, error) {
	return submitSharded(ctx, s.prediction, s.runtime, moleculeIDs, properties, modelName, modelVersion, createdBy)
}

func (s *Service) handleCleanupStaleBatches(ctx context.Context, t *domainTask.Task) error {
	cutoff := time.Now().Add(-staleProcessingCutoff)
	stale, err := s.repo.ListStaleProcessing(ctx, cutoff)
	if err != nil {
		return err
	}
	for _, batch := range stale {
		if err := s.prediction.Cancel(ctx, batch.ID); err != nil {
			s.logger.Warn("failed to cancel stale prediction batch",
				logging.String("batch_id", batch.ID.String()), logging.Err(err))
		}
	}
	t.Reschedule(cleanupReschedule)
	return nil
}

// EnrichmentSubmitter implements domain/ingestion.EnrichmentSubmitter,
// bridging the CSV Ingestion Pipeline's optional Enrich phase to the
// Prediction Orchestrator. Because the ingestion contract returns a single
// batch id per call while a CSV import may create far more molecules than
// MaxBatchSize allows in one PredictionBatch, the first shard is submitted
// synchronously (its batch id is what the caller gets back) and any
// remaining shards are submitted asynchronously via the Task Runtime.
type EnrichmentSubmitter struct {
	prediction   *domainPrediction.Service
	properties   domainPrediction.PredictablePropertyLookup
	runtime      *domainTask.Runtime
	modelName    string
	modelVersion string
}

// NewEnrichmentSubmitter constructs an EnrichmentSubmitter. modelName and
// modelVersion select which upstream model default enrichment targets.
func NewEnrichmentSubmitter(prediction *domainPrediction.Service, properties domainPrediction.PredictablePropertyLookup, runtime *domainTask.Runtime, modelName, modelVersion string) *EnrichmentSubmitter {
	return &EnrichmentSubmitter{prediction: prediction, properties: properties, runtime: runtime, modelName: modelName, modelVersion: modelVersion}
}

// SubmitDefault submits moleculeIDs for prediction against the default
// predictable property set, per spec §4.4's optional Enrich phase.
func (e *EnrichmentSubmitter) SubmitDefault(ctx context.Context, moleculeIDs []common.ID, createdBy common.ID) (common.ID, error) {
	properties, err := e.properties.DefaultProperties(ctx)
	if err != nil {
		return common.ID(""), err
	}
	if len(properties) == 0 {
		return common.ID(""), errors.InvalidParam("no predictable properties are configured for default enrichment")
	}

	batch, err := submitSharded(ctx, e.prediction, e.runtime, moleculeIDs, properties, e.modelName, e.modelVersion, createdBy)
	if err != nil {
		return common.ID(""), err
	}
	return batch.ID, nil
}

// submitSharded is the shared sharding path behind both Service.Submit (the
// direct predict-submit CLI path) and EnrichmentSubmitter.SubmitDefault (the
// ingestion Enrich phase): split moleculeIDs into MaxBatchSize-sized shards,
// submit the first synchronously, and enqueue the rest as
// KindSubmitPredictionShard tasks so a request larger than one batch's
// capacity is served in full rather than truncated.
func submitSharded(ctx context.Context, prediction *domainPrediction.Service, runtime *domainTask.Runtime, moleculeIDs []common.ID, properties []string, modelName, modelVersion string, createdBy common.ID) (*domainPrediction.PredictionBatch, error) {
	shards := shardIDs(moleculeIDs, domainPrediction.MaxBatchSize)
	if len(shards) == 0 {
		return nil, errors.InvalidParam("submit requires at least one molecule")
	}

	batch, err := prediction.Submit(ctx, shards[0], properties, modelName, modelVersion, createdBy)
	if err != nil {
		return nil, err
	}

	for _, shard := range shards[1:] {
		ids := make([]string, len(shard))
		for i, id := range shard {
			ids[i] = id.String()
		}
		payload := submitShardPayload{
			MoleculeIDs:  ids,
			Properties:   properties,
			ModelName:    modelName,
			ModelVersion: modelVersion,
			CreatedBy:    createdBy.String(),
		}
		if _, err := runtime.Enqueue(ctx, KindSubmitPredictionShard, payload, 0); err != nil {
			return batch, err
		}
	}
	return batch, nil
}

func shardIDs(ids []common.ID, size int) [][]common.ID {
	if size <= 0 || len(ids) == 0 {
		return nil
	}
	var shards [][]common.ID
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		shards = append(shards, ids[start:end])
	}
	return shards
}
