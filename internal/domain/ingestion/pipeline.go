package ingestion

import (
	"context"
	"strconv"
	"strings"

	"github.com/moldex-io/moldex/internal/domain/chem"
	"github.com/moldex-io/moldex/internal/platform/logging"
	"github.com/moldex-io/moldex/pkg/errors"
	"github.com/moldex-io/moldex/pkg/types/common"
)

// Service is the Ingestion Pipeline domain service, implementing the seven
// phases of spec §4.4.
type Service struct {
	jobs   Repository
	blobs  BlobStore
	logger logging.Logger
}

// NewService constructs a Service.
func NewService(jobs Repository, blobs BlobStore, logger logging.Logger) *Service {
	return &Service{jobs: jobs, blobs: blobs, logger: logger}
}

// PreviewResult is the response of the Preview phase.
type PreviewResult struct {
	Headers    []string
	Rows       [][]string
	TotalRows  int
	Suggestion ColumnMapping
}

// Accept validates and stores a raw CSV upload, minting a Job in the
// accepted state. Per spec §4.4 phase 1, files over MaxCSVSizeMB or whose
// content is not valid CSV are rejected immediately.
func (s *Service) Accept(ctx context.Context, filename string, data []byte, createdBy common.ID, enrichRequested bool) (*Job, error) {
	sizeMB := float64(len(data)) / (1024 * 1024)
	if sizeMB > MaxCSVSizeMB {
		return nil, errors.InvalidParam("CSV file exceeds the maximum allowed size")
	}
	if _, err := readHeader(data); err != nil {
		return nil, err
	}
	totalRows, err := countDataRows(data)
	if err != nil {
		return nil, err
	}
	if totalRows > MaxRows {
		return nil, errors.InvalidParam("CSV file exceeds the maximum allowed row count")
	}

	storageKey := storageKeyFor(filename)
	if err := s.blobs.Put(ctx, storageKey, data); err != nil {
		return nil, err
	}

	job := NewJob(filename, storageKey, createdBy, totalRows, enrichRequested)
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	s.logger.Info("ingestion job accepted",
		logging.String("job_id", job.ID.String()),
		logging.String("filename", filename),
		logging.Int("total_rows", totalRows))
	return job, nil
}

// Preview returns the first numRows rows of jobID's CSV plus a mapping
// suggestion built from catalog, per spec §4.4 phase 2.
func (s *Service) Preview(ctx context.Context, jobID common.ID, numRows int, catalog PropertyCatalog) (*PreviewResult, error) {
	if numRows <= 0 {
		numRows = DefaultPreviewRows
	}
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	data, err := s.blobs.Get(ctx, job.StorageKey)
	if err != nil {
		return nil, err
	}
	headers, rows, err := previewRows(data, numRows)
	if err != nil {
		return nil, err
	}
	return &PreviewResult{
		Headers:    headers,
		Rows:       rows,
		TotalRows:  job.TotalRows,
		Suggestion: SuggestMapping(headers, catalog),
	}, nil
}

// ValidateMapping checks and, on success, attaches mapping to jobID's Job,
// per spec §4.4 phase 3.
func (s *Service) ValidateMapping(ctx context.Context, jobID common.ID, mapping ColumnMapping, knownTargets map[string]bool) error {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	data, err := s.blobs.Get(ctx, job.StorageKey)
	if err != nil {
		return err
	}
	headers, err := readHeader(data)
	if err != nil {
		return err
	}
	if err := mapping.Validate(headers, knownTargets); err != nil {
		return err
	}
	job.ColumnMapping = mapping
	return s.jobs.Update(ctx, job)
}

// Run executes phases 4-7 (Process, Commit, Enrich, Report) for jobID,
// streaming the CSV in DefaultChunkSize-row chunks. A failed chunk is
// recorded and never prevents subsequent chunks from committing, per spec
// §4.4's correctness properties.
func (s *Service) Run(ctx context.Context, jobID common.ID, creator MoleculeCreator, validator PropertyValidator, enricher EnrichmentSubmitter) error {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.ColumnMapping == nil {
		return errors.InvalidParam("job has no validated column mapping")
	}
	data, err := s.blobs.Get(ctx, job.StorageKey)
	if err != nil {
		return err
	}

	job.Status = StatusProcessing
	if err := s.jobs.Update(ctx, job); err != nil {
		return err
	}

	reader, err := newChunkReader(data, DefaultChunkSize)
	if err != nil {
		job.Fail(err.Error())
		_ = s.jobs.Update(ctx, job)
		return err
	}

	var createdIDs []common.ID
	chunkIndex := 0
	for {
		if job.IsTerminal() {
			break
		}
		rows, ok, readErr := reader.next()
		if readErr != nil {
			job.Fail(readErr.Error())
			break
		}
		if !ok {
			break
		}

		refreshed, err := s.jobs.Get(ctx, jobID)
		if err == nil && refreshed.Status == StatusCancelled {
			job.Status = StatusCancelled
			break
		}

		stat, rowErrors, ids := s.commitChunk(ctx, chunkIndex, reader.header, rows, job.ColumnMapping, creator, validator, job.CreatedBy)
		job.RecordChunk(stat, rowErrors)
		createdIDs = append(createdIDs, ids...)
		if err := s.jobs.Update(ctx, job); err != nil {
			return err
		}
		chunkIndex++
	}

	if job.Status == StatusCancelled {
		job.FailureMessage = "cancelled by user"
		return s.jobs.Update(ctx, job)
	}
	if job.Status == StatusFailed {
		return s.jobs.Update(ctx, job)
	}

	var batchID *common.ID
	if job.EnrichRequested && len(createdIDs) > 0 && enricher != nil {
		job.Status = StatusEnriching
		_ = s.jobs.Update(ctx, job)
		id, err := enricher.SubmitDefault(ctx, createdIDs, job.CreatedBy)
		if err != nil {
			s.logger.Warn("enrichment submission failed", logging.String("job_id", jobID.String()), logging.Err(err))
		} else {
			batchID = &id
		}
	}

	job.Complete(batchID)
	s.logger.Info("ingestion job completed",
		logging.String("job_id", jobID.String()),
		logging.Int("created", job.CreatedCount),
		logging.Int("skipped", job.SkippedCount),
		logging.Int("failed", job.FailedCount))
	return s.jobs.Update(ctx, job)
}

// commitChunk runs phase 4 (validate) and phase 5 (commit) for one chunk.
func (s *Service) commitChunk(ctx context.Context, chunkIndex int, header []string, rows []csvRow, mapping ColumnMapping, creator MoleculeCreator, validator PropertyValidator, createdBy common.ID) (ChunkStat, []RowError, []common.ID) {
	stat := ChunkStat{ChunkIndex: chunkIndex, RowsProcessed: len(rows)}
	var rowErrors []RowError
	var createdIDs []common.ID

	smilesCol := ""
	for col, target := range mapping {
		if target == smilesTarget {
			smilesCol = col
			break
		}
	}

	for _, row := range rows {
		rec := asRecord(header, row)
		smiles := strings.TrimSpace(rec[smilesCol])
		if smiles == "" {
			rowErrors = append(rowErrors, RowError{Row: row.index, Column: smilesCol, Message: "missing SMILES value"})
			stat.FailedValidation++
			continue
		}
		if _, err := chem.ParseSMILES(smiles); err != nil {
			rowErrors = append(rowErrors, RowError{Row: row.index, Column: smilesCol, Message: err.Error()})
			stat.FailedValidation++
			continue
		}

		rowFailed := false
		type pendingProp struct {
			name  string
			value any
		}
		var pending []pendingProp
		for col, target := range mapping {
			if target == smilesTarget {
				continue
			}
			raw, present := rec[col]
			if !present || strings.TrimSpace(raw) == "" {
				continue
			}
			value := inferValue(raw)
			if validator != nil {
				if err := validator.CheckValue(ctx, target, value); err != nil {
					rowErrors = append(rowErrors, RowError{Row: row.index, Column: col, Message: err.Error()})
					rowFailed = true
					continue
				}
			}
			pending = append(pending, pendingProp{name: target, value: value})
		}
		if rowFailed {
			stat.FailedValidation++
			continue
		}

		moleculeID, created, err := creator.CreateOrGet(ctx, smiles, createdBy)
		if err != nil {
			rowErrors = append(rowErrors, RowError{Row: row.index, Column: smilesCol, Message: err.Error()})
			stat.FailedValidation++
			continue
		}
		if !created {
			stat.SkippedDuplicate++
			continue
		}
		for _, p := range pending {
			if err := creator.SetProperty(ctx, moleculeID, p.name, p.value); err != nil {
				s.logger.Warn("failed to persist imported property",
					logging.String("molecule_id", moleculeID.String()), logging.String("property", p.name), logging.Err(err))
			}
		}
		stat.Created++
		createdIDs = append(createdIDs, moleculeID)
	}

	return stat, rowErrors, createdIDs
}

// inferValue does a lightweight best-effort type guess for a raw CSV cell;
// the authoritative type check happens in PropertyValidator.
func inferValue(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

func storageKeyFor(filename string) string {
	return "csv_uploads/" + common.NewID().String() + "/" + filename
}
