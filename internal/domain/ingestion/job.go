// Package ingestion implements the Ingestion Pipeline (C4): accepting a CSV
// upload, suggesting and validating a column mapping, streaming the rows
// through the Structure Engine and Molecule Store in bounded chunks, and
// optionally enrolling newly created molecules for prediction enrichment.
package ingestion

import (
	"time"

	"github.com/moldex-io/moldex/pkg/types/common"
)

// Parameters and limits from spec §4.4, enumerated rather than left as magic
// numbers scattered through the pipeline.
const (
	MaxCSVSizeMB         = 100
	MaxRows              = 500_000
	DefaultChunkSize     = 10_000
	BatchInsertSize      = 1_000
	LargeFileThreshold   = 10_000
	DefaultPreviewRows   = 5
	MaxReportedRowErrors = 1_000
)

// Status is a Job's lifecycle state.
type Status string

const (
	StatusAccepted   Status = "accepted"
	StatusProcessing Status = "processing"
	StatusCommitting Status = "committing"
	StatusEnriching  Status = "enriching"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// RowError records why one input row was rejected, preserving its original
// (zero-based) index so the reported error list stays in input order.
type RowError struct {
	Row     int
	Column  string
	Message string
}

// ChunkStat is the per-chunk outcome reported in a Job's final report, per
// spec §4.4 phase 7.
type ChunkStat struct {
	ChunkIndex       int
	RowsProcessed    int
	Created          int
	SkippedDuplicate int
	FailedValidation int
}

// Job is the persisted state of one ingestion run, covering both the inline
// (small file) and background-task (large file, C7) execution paths.
type Job struct {
	ID                common.ID
	Filename          string
	StorageKey        string
	CreatedBy         common.ID
	Status            Status
	ColumnMapping     ColumnMapping
	TotalRows         int
	ChunkStats        []ChunkStat
	RowErrors         []RowError
	CreatedCount      int
	SkippedCount      int
	FailedCount       int
	EnrichRequested   bool
	PredictionBatchID *common.ID
	FailureMessage    string
	CreatedAt         common.Timestamp
	UpdatedAt         common.Timestamp
}

// NewJob starts a fresh Job in the accepted state.
func NewJob(filename, storageKey string, createdBy common.ID, totalRows int, enrich bool) *Job {
	now := time.Now()
	return &Job{
		ID:              common.NewID(),
		Filename:        filename,
		StorageKey:      storageKey,
		CreatedBy:       createdBy,
		Status:          StatusAccepted,
		TotalRows:       totalRows,
		EnrichRequested: enrich,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// RecordChunk appends one chunk's outcome and rolls it into the job totals.
func (j *Job) RecordChunk(stat ChunkStat, rowErrors []RowError) {
	j.ChunkStats = append(j.ChunkStats, stat)
	j.CreatedCount += stat.Created
	j.SkippedCount += stat.SkippedDuplicate
	j.FailedCount += stat.FailedValidation
	for _, re := range rowErrors {
		if len(j.RowErrors) >= MaxReportedRowErrors {
			break
		}
		j.RowErrors = append(j.RowErrors, re)
	}
	j.UpdatedAt = time.Now()
}

// Complete transitions the job to its terminal success state, optionally
// recording the downstream prediction batch id from the Enrich phase.
func (j *Job) Complete(predictionBatchID *common.ID) {
	j.Status = StatusCompleted
	j.PredictionBatchID = predictionBatchID
	j.UpdatedAt = time.Now()
}

// Fail transitions the job to its terminal failure state with message.
func (j *Job) Fail(message string) {
	j.Status = StatusFailed
	j.FailureMessage = message
	j.UpdatedAt = time.Now()
}

// Cancel marks the job cancelled; the pipeline's next chunk checkpoint
// observes this and aborts cleanly, per C7's cancellation contract.
func (j *Job) Cancel() {
	j.Status = StatusCancelled
	j.UpdatedAt = time.Now()
}

// IsTerminal reports whether j has reached a state from which it no longer
// advances.
func (j *Job) IsTerminal() bool {
	switch j.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}
