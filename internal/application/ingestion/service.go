// Package ingestion is the application-level use-case layer for the
// Ingestion Pipeline (C4): it wires the domain ingestion service to the
// Molecule Store and Fingerprint Index so a CSV upload ends up as
// committed molecules with cached fingerprints, and adapts handlers to
// wire-friendly DTOs.
package ingestion

import (
	"context"

	"github.com/moldex-io/moldex/internal/domain/chem"
	domainFP "github.com/moldex-io/moldex/internal/domain/fingerprint"
	domainIngest "github.com/moldex-io/moldex/internal/domain/ingestion"
	domainMol "github.com/moldex-io/moldex/internal/domain/molecule"
	domainTask "github.com/moldex-io/moldex/internal/domain/task"
	"github.com/moldex-io/moldex/internal/platform/logging"
	"github.com/moldex-io/moldex/pkg/types/common"
)

// KindRunJob is the Task Runtime kind under which a CSV ingestion Job's
// Process/Commit/Enrich/Report phases run asynchronously, once Accept and
// ValidateMapping have attached a column mapping.
const KindRunJob = "tasks.csv_processing.run_job"

// JobDTO is the wire-friendly representation of an ingestion Job.
type JobDTO struct {
	ID              string                   `json:"id"`
	Filename        string                   `json:"filename"`
	Status          string                   `json:"status"`
	TotalRows       int                      `json:"total_rows"`
	CreatedCount    int                      `json:"created_count"`
	SkippedCount    int                      `json:"skipped_count"`
	FailedCount     int                      `json:"failed_count"`
	RowErrors       []domainIngest.RowError  `json:"row_errors,omitempty"`
	FailureMessage  string                   `json:"failure_message,omitempty"`
	PredictionBatch string                   `json:"prediction_batch_id,omitempty"`
}

// PreviewDTO is the wire-friendly representation of a Preview result.
type PreviewDTO struct {
	Headers    []string                    `json:"headers"`
	Rows       [][]string                  `json:"rows"`
	TotalRows  int                         `json:"total_rows"`
	Suggestion domainIngest.ColumnMapping  `json:"suggested_mapping"`
}

// Service is the application-facing façade over the Ingestion Pipeline
// domain service, composed with the Molecule Store and Fingerprint Index so
// committed rows are fully enrolled (molecule + properties + fingerprint).
type Service struct {
	domain      *domainIngest.Service
	molecules   *domainMol.Service
	fingerprint *domainFP.Service
	catalog     *propertyCatalog
	logger      logging.Logger
}

// NewService constructs a Service.
func NewService(domain *domainIngest.Service, molecules *domainMol.Service, fingerprint *domainFP.Service, logger logging.Logger) *Service {
	return &Service{
		domain:      domain,
		molecules:   molecules,
		fingerprint: fingerprint,
		catalog:     &propertyCatalog{molecules: molecules},
		logger:      logger,
	}
}

// Accept stores a new CSV upload.
func (s *Service) Accept(ctx context.Context, filename string, data []byte, createdBy string, enrichRequested bool) (*JobDTO, error) {
	job, err := s.domain.Accept(ctx, filename, data, common.ID(createdBy), enrichRequested)
	if err != nil {
		return nil, err
	}
	dto := toJobDTO(job)
	return &dto, nil
}

// Preview returns the first rows of jobID's CSV plus a mapping suggestion
// built from the live PropertyDefinition catalog.
func (s *Service) Preview(ctx context.Context, jobID string, numRows int) (*PreviewDTO, error) {
	result, err := s.domain.Preview(ctx, common.ID(jobID), numRows, s.catalog)
	if err != nil {
		return nil, err
	}
	return &PreviewDTO{
		Headers:    result.Headers,
		Rows:       result.Rows,
		TotalRows:  result.TotalRows,
		Suggestion: result.Suggestion,
	}, nil
}

// ValidateMapping checks and attaches mapping to jobID's Job.
func (s *Service) ValidateMapping(ctx context.Context, jobID string, mapping domainIngest.ColumnMapping) error {
	known, err := s.catalog.knownTargets(ctx)
	if err != nil {
		return err
	}
	return s.domain.ValidateMapping(ctx, common.ID(jobID), mapping, known)
}

// Run executes the Process/Commit/Enrich/Report phases for jobID, using the
// Molecule Store to create molecules and the Fingerprint Index to cache a
// default fingerprint for each one created, and enricher (the Prediction
// Orchestrator façade, when non-nil) to enroll the run's output for
// prediction when the job requested it.
func (s *Service) Run(ctx context.Context, jobID string, enricher domainIngest.EnrichmentSubmitter) error {
	creator := &moleculeCreatorAdapter{molecules: s.molecules, fingerprint: s.fingerprint, logger: s.logger}
	return s.domain.Run(ctx, common.ID(jobID), creator, s.catalog, enricher)
}

type runJobPayload struct {
	JobID string `json:"job_id"`
}

// EnqueueRun enqueues jobID's Process/Commit/Enrich/Report phases to run on
// the Task Runtime, for callers (e.g. the CLI's "ingest --async" flag)
// that want Accept/ValidateMapping to return immediately rather than block
// on a potentially large CSV.
func (s *Service) EnqueueRun(ctx context.Context, runtime *domainTask.Runtime, jobID string) error {
	_, err := runtime.Enqueue(ctx, KindRunJob, runJobPayload{JobID: jobID}, 0)
	return err
}

// RegisterRunHandler registers the KindRunJob handler on runtime, wiring
// enricher as the Prediction Orchestrator façade every asynchronous job run
// submits to when the job requested enrichment. Separate from NewService so
// constructing a Service never requires a Runtime (service_test.go builds
// one directly against fakes).
func (s *Service) RegisterRunHandler(runtime *domainTask.Runtime, enricher domainIngest.EnrichmentSubmitter) {
	runtime.Register(KindRunJob, domainTask.HandlerFunc(func(ctx context.Context, t *domainTask.Task) error {
		var p runJobPayload
		if err := t.Unmarshal(&p); err != nil {
			return err
		}
		return s.Run(ctx, p.JobID, enricher)
	}))
}

func toJobDTO(job *domainIngest.Job) JobDTO {
	dto := JobDTO{
		ID:             job.ID.String(),
		Filename:       job.Filename,
		Status:         string(job.Status),
		TotalRows:      job.TotalRows,
		CreatedCount:   job.CreatedCount,
		SkippedCount:   job.SkippedCount,
		FailedCount:    job.FailedCount,
		RowErrors:      job.RowErrors,
		FailureMessage: job.FailureMessage,
	}
	if job.PredictionBatchID != nil {
		dto.PredictionBatch = job.PredictionBatchID.String()
	}
	return dto
}

// propertyCatalog adapts the Molecule Store's PropertyDefinition repository
// to ingestion.PropertyCatalog (mapping suggestions) and
// ingestion.PropertyValidator (value checks), so domain/ingestion never
// imports domain/molecule directly.
type propertyCatalog struct {
	molecules *domainMol.Service
}

func (c *propertyCatalog) Names() []string {
	defs, err := c.molecules.ListPropertyDefinitions(context.Background())
	if err != nil {
		return nil
	}
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}

func (c *propertyCatalog) DisplayName(name string) string {
	def, err := c.molecules.GetPropertyDefinition(context.Background(), name)
	if err != nil || def == nil {
		return name
	}
	return def.DisplayName
}

func (c *propertyCatalog) CheckValue(ctx context.Context, name string, value any) error {
	if domainMol.IsCustomProperty(name) {
		return nil
	}
	def, err := c.molecules.GetPropertyDefinition(ctx, name)
	if err != nil {
		return err
	}
	if def == nil {
		return nil
	}
	return def.CheckValue(value)
}

func (c *propertyCatalog) knownTargets(ctx context.Context) (map[string]bool, error) {
	defs, err := c.molecules.ListPropertyDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(defs))
	for _, d := range defs {
		known[d.Name] = true
	}
	return known, nil
}

// moleculeCreatorAdapter bridges domainIngest.MoleculeCreator to the
// Molecule Store and Fingerprint Index domain services: CreateOrGet mints a
// molecule (or resolves an existing one by inchi_key) and caches its
// default fingerprint on first creation; SetProperty records IMPORTED
// values.
type moleculeCreatorAdapter struct {
	molecules   *domainMol.Service
	fingerprint *domainFP.Service
	logger      logging.Logger
}

func (a *moleculeCreatorAdapter) CreateOrGet(ctx context.Context, smiles string, createdBy common.ID) (common.ID, bool, error) {
	before, err := a.molecules.GetBySMILES(ctx, smiles)
	existed := err == nil && before != nil

	mol, err := a.molecules.CreateFromSMILES(ctx, smiles, createdBy)
	if err != nil {
		return common.ID(""), false, err
	}
	created := !existed

	if created && a.fingerprint != nil {
		if _, fpErr := a.fingerprint.Put(ctx, mol.ID, smiles, chem.FPMorgan); fpErr != nil {
			a.logger.Warn("failed to cache fingerprint for ingested molecule",
				logging.String("molecule_id", mol.ID.String()), logging.Err(fpErr))
		}
	}
	return mol.ID, created, nil
}

func (a *moleculeCreatorAdapter) SetProperty(ctx context.Context, moleculeID common.ID, name string, value any) error {
	return a.molecules.SetProperty(ctx, &domainMol.MoleculeProperty{
		MoleculeID: moleculeID,
		Name:       name,
		Value:      value,
		Source:     domainMol.SourceImported,
	})
}
