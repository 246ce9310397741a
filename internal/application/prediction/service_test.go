package prediction_test

import (
	"context"
	"sync"
	"testing"

	appPrediction "github.com/moldex-io/moldex/internal/application/prediction"
	domainMol "github.com/moldex-io/moldex/internal/domain/molecule"
	domainPrediction "github.com/moldex-io/moldex/internal/domain/prediction"
	"github.com/moldex-io/moldex/internal/testutil"
	"github.com/moldex-io/moldex/pkg/types/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memMolRepo struct {
	mu    sync.Mutex
	byID  map[common.ID]*domainMol.Molecule
	props map[string][]*domainMol.PropertyDefinition
	set   []*domainMol.MoleculeProperty
}

func newMemMolRepo() *memMolRepo {
	return &memMolRepo{byID: make(map[common.ID]*domainMol.Molecule)}
}

func (r *memMolRepo) CreateFromSMILES(ctx context.Context, smiles string, createdBy common.ID) (*domainMol.Molecule, bool, error) {
	for _, m := range r.byID {
		if m.SMILES == smiles {
			return m, false, nil
		}
	}
	mol := &domainMol.Molecule{ID: common.NewID(), SMILES: smiles, CreatedBy: createdBy}
	r.byID[mol.ID] = mol
	return mol, true, nil
}
func (r *memMolRepo) Get(ctx context.Context, id common.ID) (*domainMol.Molecule, error) {
	return r.byID[id], nil
}
func (r *memMolRepo) GetBySMILES(ctx context.Context, smiles string) (*domainMol.Molecule, error) {
	for _, m := range r.byID {
		if m.SMILES == smiles {
			return m, nil
		}
	}
	return nil, nil
}
func (r *memMolRepo) GetByInChIKey(ctx context.Context, key string) (*domainMol.Molecule, error) {
	return nil, nil
}
func (r *memMolRepo) SetProperty(ctx context.Context, prop *domainMol.MoleculeProperty) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set = append(r.set, prop)
	return nil
}
func (r *memMolRepo) GetProperty(ctx context.Context, moleculeID common.ID, name string, source *domainMol.PropertySource) (*domainMol.MoleculeProperty, error) {
	return nil, nil
}
func (r *memMolRepo) ListProperties(ctx context.Context, moleculeID common.ID) ([]*domainMol.MoleculeProperty, error) {
	return nil, nil
}
func (r *memMolRepo) Count(ctx context.Context) (int64, error) { return int64(len(r.byID)), nil }
func (r *memMolRepo) Filter(ctx context.Context, criteria domainMol.FilterCriteria, page common.PageRequest) (common.PageResponse[*domainMol.Molecule], error) {
	return common.PageResponse[*domainMol.Molecule]{}, nil
}
func (r *memMolRepo) BatchCreate(ctx context.Context, smilesList []string, createdBy common.ID) (*domainMol.BatchCreateResult, error) {
	return nil, nil
}
func (r *memMolRepo) Update(ctx context.Context, mol *domainMol.Molecule) error { return nil }
func (r *memMolRepo) Delete(ctx context.Context, id common.ID) error           { return nil }
func (r *memMolRepo) GetPropertyDefinition(ctx context.Context, name string) (*domainMol.PropertyDefinition, error) {
	defs := r.props[name]
	if len(defs) == 0 {
		return nil, nil
	}
	return defs[0], nil
}
func (r *memMolRepo) ListPropertyDefinitions(ctx context.Context) ([]*domainMol.PropertyDefinition, error) {
	var all []*domainMol.PropertyDefinition
	for _, defs := range r.props {
		all = append(all, defs...)
	}
	return all, nil
}

func TestPredictablePropertyLookupFiltersFlag(t *testing.T) {
	repo := newMemMolRepo()
	repo.props = map[string][]*domainMol.PropertyDefinition{
		"logp":       {{Name: "logp", IsPredictable: true}},
		"molar_mass": {{Name: "molar_mass", IsPredictable: false}},
	}
	molecules := domainMol.NewService(repo, testutil.NewMockLogger())
	lookup := appPrediction.NewPredictablePropertyLookup(molecules)

	names, err := lookup.PredictableNames(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"logp"}, names)
}

func TestMoleculeSMILESLookupRoundTrips(t *testing.T) {
	repo := newMemMolRepo()
	molecules := domainMol.NewService(repo, testutil.NewMockLogger())
	mol, _, err := repo.CreateFromSMILES(context.Background(), "CCO", common.NewID())
	require.NoError(t, err)

	lookup := appPrediction.NewMoleculeSMILESLookup(molecules)
	smiles, err := lookup.SMILESByID(context.Background(), mol.ID)
	require.NoError(t, err)
	assert.Equal(t, "CCO", smiles)

	id, err := lookup.IDBySMILES(context.Background(), "CCO")
	require.NoError(t, err)
	assert.Equal(t, mol.ID, id)
}

func TestPropertyRecorderPersistsWithPredictedSource(t *testing.T) {
	repo := newMemMolRepo()
	repo.props = map[string][]*domainMol.PropertyDefinition{
		"logp": {{Name: "logp", IsPredictable: true, PropertyType: domainMol.PropertyTypeNumeric}},
	}
	molecules := domainMol.NewService(repo, testutil.NewMockLogger())
	recorder := appPrediction.NewPropertyRecorder(molecules)

	molID := common.NewID()
	require.NoError(t, recorder.RecordPredictedProperty(context.Background(), molID, "logp", 1.5, 0.92, "logP"))

	require.Len(t, repo.set, 1)
	assert.Equal(t, domainMol.SourcePredicted, repo.set[0].Source)
	assert.Equal(t, molID, repo.set[0].MoleculeID)
}

type fakePredClient struct{}

func (c *fakePredClient) Submit(ctx context.Context, req domainPrediction.SubmitRequest) (domainPrediction.SubmitResponse, error) {
	return domainPrediction.SubmitResponse{ExternalJobID: "job-1"}, nil
}
func (c *fakePredClient) GetStatus(ctx context.Context, externalJobID string) (domainPrediction.StatusResponse, error) {
	return domainPrediction.StatusResponse{State: domainPrediction.JobProcessing}, nil
}
func (c *fakePredClient) GetResults(ctx context.Context, externalJobID string) (domainPrediction.ResultsResponse, error) {
	return domainPrediction.ResultsResponse{}, nil
}
func (c *fakePredClient) Cancel(ctx context.Context, externalJobID string) error { return nil }
func (c *fakePredClient) ListModels(ctx context.Context) ([]domainPrediction.ModelInfo, error) {
	return nil, nil
}
func (c *fakePredClient) Health(ctx context.Context) error { return nil }

type memPredRepo struct {
	mu      sync.Mutex
	batches map[common.ID]*domainPrediction.PredictionBatch
}

func newMemPredRepo() *memPredRepo {
	return &memPredRepo{batches: make(map[common.ID]*domainPrediction.PredictionBatch)}
}
func (r *memPredRepo) CreateBatch(ctx context.Context, b *domainPrediction.PredictionBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[b.ID] = b
	return nil
}
func (r *memPredRepo) GetBatch(ctx context.Context, id common.ID) (*domainPrediction.PredictionBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := *r.batches[id]
	return &b, nil
}
func (r *memPredRepo) UpdateBatch(ctx context.Context, b *domainPrediction.PredictionBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[b.ID] = b
	return nil
}
func (r *memPredRepo) ListStaleProcessing(ctx context.Context, cutoff common.Timestamp) ([]*domainPrediction.PredictionBatch, error) {
	return nil, nil
}
func (r *memPredRepo) CreatePredictions(ctx context.Context, predictions []*domainPrediction.Prediction) error {
	return nil
}
func (r *memPredRepo) GetPredictionsByBatch(ctx context.Context, batchID common.ID) ([]*domainPrediction.Prediction, error) {
	return nil, nil
}
func (r *memPredRepo) UpsertPrediction(ctx context.Context, p *domainPrediction.Prediction) error {
	return nil
}

func TestServiceSubmitAndGet(t *testing.T) {
	molRepo := newMemMolRepo()
	molRepo.props = map[string][]*domainMol.PropertyDefinition{
		"logp": {{Name: "logp", IsPredictable: true}},
	}
	molecules := domainMol.NewService(molRepo, testutil.NewMockLogger())
	mol, _, err := molRepo.CreateFromSMILES(context.Background(), "CCO", common.NewID())
	require.NoError(t, err)

	predRepo := newMemPredRepo()
	lookup := appPrediction.NewMoleculeSMILESLookup(molecules)
	props := appPrediction.NewPredictablePropertyLookup(molecules)
	recorder := appPrediction.NewPropertyRecorder(molecules)
	domainSvc := domainPrediction.NewService(predRepo, &fakePredClient{}, lookup, props, recorder, nil, testutil.NewMockLogger())

	appSvc := appPrediction.NewService(domainSvc, molecules, testutil.NewMockLogger())
	batch, err := appSvc.Submit(context.Background(), []string{mol.ID.String()}, []string{"logp"}, "m1", "v1", common.NewID().String())
	require.NoError(t, err)
	assert.Equal(t, "PROCESSING", batch.Status)

	fetched, err := appSvc.Get(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.Equal(t, batch.ID, fetched.ID)
}

type fakeSharder struct {
	called      bool
	moleculeIDs []common.ID
}

func (f *fakeSharder) Submit(ctx context.Context, moleculeIDs []common.ID, properties []string, modelName, modelVersion string, createdBy common.ID) (*domainPrediction.PredictionBatch, error) {
	f.called = true
	f.moleculeIDs = moleculeIDs
	return &domainPrediction.PredictionBatch{ID: common.NewID(), Status: domainPrediction.BatchPending}, nil
}

func TestServiceSubmitDelegatesToSharderWhenAttached(t *testing.T) {
	molecules := domainMol.NewService(newMemMolRepo(), testutil.NewMockLogger())
	domainSvc := domainPrediction.NewService(newMemPredRepo(), &fakePredClient{}, nil, nil, nil, nil, testutil.NewMockLogger())
	appSvc := appPrediction.NewService(domainSvc, molecules, testutil.NewMockLogger())

	sharder := &fakeSharder{}
	appSvc.UseSharder(sharder)

	ids := make([]string, domainPrediction.MaxBatchSize+5)
	for i := range ids {
		ids[i] = common.NewID().String()
	}
	batch, err := appSvc.Submit(context.Background(), ids, []string{"logp"}, "m1", "v1", common.NewID().String())
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.True(t, sharder.called)
	assert.Len(t, sharder.moleculeIDs, len(ids))
}
