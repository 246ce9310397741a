package ingestion_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/moldex-io/moldex/internal/domain/ingestion"
	"github.com/moldex-io/moldex/internal/testutil"
	"github.com/moldex-io/moldex/pkg/errors"
	"github.com/moldex-io/moldex/pkg/types/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memJobRepository struct {
	mu   sync.Mutex
	jobs map[common.ID]*ingestion.Job
}

func newMemJobRepository() *memJobRepository {
	return &memJobRepository{jobs: make(map[common.ID]*ingestion.Job)}
}

func (r *memJobRepository) Create(ctx context.Context, job *ingestion.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	return nil
}

func (r *memJobRepository) Get(ctx context.Context, id common.ID) (*ingestion.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, errors.New(errors.CodeUnknown, "job not found")
	}
	copied := *job
	return &copied, nil
}

func (r *memJobRepository) Update(ctx context.Context, job *ingestion.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	return nil
}

type memBlobStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{data: make(map[string][]byte)}
}

func (b *memBlobStore) Put(ctx context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = data
	return nil
}

func (b *memBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.data[key]
	if !ok {
		return nil, errors.New(errors.CodeUnknown, "blob not found")
	}
	return d, nil
}

type fakeMoleculeCreator struct {
	mu          sync.Mutex
	byInChIKey  map[string]common.ID
	properties  map[common.ID]map[string]any
}

func newFakeMoleculeCreator() *fakeMoleculeCreator {
	return &fakeMoleculeCreator{
		byInChIKey: make(map[string]common.ID),
		properties: make(map[common.ID]map[string]any),
	}
}

func (c *fakeMoleculeCreator) CreateOrGet(ctx context.Context, smiles string, createdBy common.ID) (common.ID, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := strings.TrimSpace(smiles)
	if id, ok := c.byInChIKey[key]; ok {
		return id, false, nil
	}
	id := common.NewID()
	c.byInChIKey[key] = id
	return id, true, nil
}

func (c *fakeMoleculeCreator) SetProperty(ctx context.Context, moleculeID common.ID, name string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.properties[moleculeID] == nil {
		c.properties[moleculeID] = make(map[string]any)
	}
	c.properties[moleculeID][name] = value
	return nil
}

type fakeCatalog struct{}

func (fakeCatalog) Names() []string             { return []string{"molecular_weight", "logp"} }
func (fakeCatalog) DisplayName(name string) string { return name }

type fakeEnricher struct {
	submitted []common.ID
}

func (e *fakeEnricher) SubmitDefault(ctx context.Context, moleculeIDs []common.ID, createdBy common.ID) (common.ID, error) {
	e.submitted = moleculeIDs
	return common.NewID(), nil
}

const sampleCSV = "smiles,mw\nCCO,46.07\nCO,32.04\nCCO,46.07\nnotasmiles(((,1.0\n"

func TestAcceptRejectsInvalidCSV(t *testing.T) {
	svc := ingestion.NewService(newMemJobRepository(), newMemBlobStore(), testutil.NewMockLogger())
	_, err := svc.Accept(context.Background(), "bad.csv", []byte{0x00, 0x01, 0xFF}, common.NewID(), false)
	assert.Error(t, err)
}

func TestAcceptAndPreview(t *testing.T) {
	svc := ingestion.NewService(newMemJobRepository(), newMemBlobStore(), testutil.NewMockLogger())
	job, err := svc.Accept(context.Background(), "mols.csv", []byte(sampleCSV), common.NewID(), false)
	require.NoError(t, err)
	assert.Equal(t, 4, job.TotalRows)

	preview, err := svc.Preview(context.Background(), job.ID, 2, fakeCatalog{})
	require.NoError(t, err)
	assert.Equal(t, []string{"smiles", "mw"}, preview.Headers)
	assert.Len(t, preview.Rows, 2)
	assert.Equal(t, "smiles", preview.Suggestion["smiles"])
}

func TestValidateMappingRequiresSMILES(t *testing.T) {
	svc := ingestion.NewService(newMemJobRepository(), newMemBlobStore(), testutil.NewMockLogger())
	job, err := svc.Accept(context.Background(), "mols.csv", []byte(sampleCSV), common.NewID(), false)
	require.NoError(t, err)

	err = svc.ValidateMapping(context.Background(), job.ID, ingestion.ColumnMapping{"mw": "molecular_weight"}, map[string]bool{"molecular_weight": true})
	assert.Error(t, err)

	err = svc.ValidateMapping(context.Background(), job.ID, ingestion.ColumnMapping{"smiles": "smiles", "mw": "molecular_weight"}, map[string]bool{"molecular_weight": true})
	assert.NoError(t, err)
}

func TestRunCommitsSkipsAndFails(t *testing.T) {
	jobRepo := newMemJobRepository()
	svc := ingestion.NewService(jobRepo, newMemBlobStore(), testutil.NewMockLogger())
	job, err := svc.Accept(context.Background(), "mols.csv", []byte(sampleCSV), common.NewID(), false)
	require.NoError(t, err)

	mapping := ingestion.ColumnMapping{"smiles": "smiles", "mw": "molecular_weight"}
	require.NoError(t, svc.ValidateMapping(context.Background(), job.ID, mapping, map[string]bool{"molecular_weight": true}))

	creator := newFakeMoleculeCreator()
	require.NoError(t, svc.Run(context.Background(), job.ID, creator, nil, nil))

	final, err := jobRepo.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, ingestion.StatusCompleted, final.Status)
	assert.Equal(t, 2, final.CreatedCount)
	assert.Equal(t, 1, final.SkippedCount)
	assert.Equal(t, 1, final.FailedCount)
	require.Len(t, final.RowErrors, 1)
	assert.Equal(t, 3, final.RowErrors[0].Row)
}

func TestRunEnrichesWhenRequested(t *testing.T) {
	jobRepo := newMemJobRepository()
	svc := ingestion.NewService(jobRepo, newMemBlobStore(), testutil.NewMockLogger())
	job, err := svc.Accept(context.Background(), "mols.csv", []byte(sampleCSV), common.NewID(), true)
	require.NoError(t, err)

	mapping := ingestion.ColumnMapping{"smiles": "smiles", "mw": "molecular_weight"}
	require.NoError(t, svc.ValidateMapping(context.Background(), job.ID, mapping, map[string]bool{"molecular_weight": true}))

	creator := newFakeMoleculeCreator()
	enricher := &fakeEnricher{}
	require.NoError(t, svc.Run(context.Background(), job.ID, creator, nil, enricher))

	final, err := jobRepo.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, ingestion.StatusCompleted, final.Status)
	require.NotNil(t, final.PredictionBatchID)
	assert.Len(t, enricher.submitted, 2)
}
