package ingestion_test

import (
	"context"
	"sync"
	"testing"

	appIngest "github.com/moldex-io/moldex/internal/application/ingestion"
	"github.com/moldex-io/moldex/internal/domain/chem"
	domainFP "github.com/moldex-io/moldex/internal/domain/fingerprint"
	domainIngest "github.com/moldex-io/moldex/internal/domain/ingestion"
	domainMol "github.com/moldex-io/moldex/internal/domain/molecule"
	"github.com/moldex-io/moldex/internal/testutil"
	"github.com/moldex-io/moldex/pkg/errors"
	"github.com/moldex-io/moldex/pkg/types/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- molecule.Repository fake ---

type memMoleculeRepository struct {
	mu         sync.Mutex
	byID       map[common.ID]*domainMol.Molecule
	byInChIKey map[string]*domainMol.Molecule
	properties map[common.ID][]*domainMol.MoleculeProperty
	defs       map[string]*domainMol.PropertyDefinition
}

func newMemMoleculeRepository() *memMoleculeRepository {
	return &memMoleculeRepository{
		byID:       make(map[common.ID]*domainMol.Molecule),
		byInChIKey: make(map[string]*domainMol.Molecule),
		properties: make(map[common.ID][]*domainMol.MoleculeProperty),
		defs:       make(map[string]*domainMol.PropertyDefinition),
	}
}

func (r *memMoleculeRepository) CreateFromSMILES(ctx context.Context, smiles string, createdBy common.ID) (*domainMol.Molecule, bool, error) {
	mol, err := domainMol.NewMoleculeFromSMILES(smiles, createdBy)
	if err != nil {
		return nil, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byInChIKey[mol.InChIKey]; ok {
		return existing, false, nil
	}
	r.byID[mol.ID] = mol
	r.byInChIKey[mol.InChIKey] = mol
	return mol, true, nil
}

func (r *memMoleculeRepository) Get(ctx context.Context, id common.ID) (*domainMol.Molecule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mol, ok := r.byID[id]
	if !ok {
		return nil, errors.MoleculeNotFound(id.String())
	}
	return mol, nil
}

func (r *memMoleculeRepository) GetBySMILES(ctx context.Context, smiles string) (*domainMol.Molecule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mol := range r.byID {
		if mol.SMILES == smiles {
			return mol, nil
		}
	}
	return nil, errors.MoleculeNotFound(smiles)
}

func (r *memMoleculeRepository) GetByInChIKey(ctx context.Context, key string) (*domainMol.Molecule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mol, ok := r.byInChIKey[key]
	if !ok {
		return nil, errors.MoleculeNotFound(key)
	}
	return mol, nil
}

func (r *memMoleculeRepository) Update(ctx context.Context, mol *domainMol.Molecule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[mol.ID] = mol
	r.byInChIKey[mol.InChIKey] = mol
	return nil
}

func (r *memMoleculeRepository) Delete(ctx context.Context, id common.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

func (r *memMoleculeRepository) SetProperty(ctx context.Context, prop *domainMol.MoleculeProperty) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.properties[prop.MoleculeID] = append(r.properties[prop.MoleculeID], prop)
	return nil
}

func (r *memMoleculeRepository) GetProperty(ctx context.Context, moleculeID common.ID, name string, source *domainMol.PropertySource) (*domainMol.MoleculeProperty, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domainMol.MoleculeProperty
	for _, p := range r.properties[moleculeID] {
		if p.Name != name {
			continue
		}
		if source != nil && p.Source != *source {
			continue
		}
		latest = p
	}
	if latest == nil {
		return nil, errors.New(errors.CodeUnknown, "property not found")
	}
	return latest, nil
}

func (r *memMoleculeRepository) ListProperties(ctx context.Context, moleculeID common.ID) ([]*domainMol.MoleculeProperty, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.properties[moleculeID], nil
}

func (r *memMoleculeRepository) GetPropertyDefinition(ctx context.Context, name string) (*domainMol.PropertyDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.defs[name], nil
}

func (r *memMoleculeRepository) ListPropertyDefinitions(ctx context.Context) ([]*domainMol.PropertyDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defs := make([]*domainMol.PropertyDefinition, 0, len(r.defs))
	for _, d := range r.defs {
		defs = append(defs, d)
	}
	return defs, nil
}

func (r *memMoleculeRepository) Filter(ctx context.Context, criteria domainMol.FilterCriteria, page common.PageRequest) (common.PageResponse[*domainMol.Molecule], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*domainMol.Molecule, 0, len(r.byID))
	for _, mol := range r.byID {
		items = append(items, mol)
	}
	return common.NewPageResponse(items, int64(len(items)), page), nil
}

func (r *memMoleculeRepository) BatchCreate(ctx context.Context, smilesList []string, createdBy common.ID) (*domainMol.BatchCreateResult, error) {
	result := &domainMol.BatchCreateResult{}
	for _, s := range smilesList {
		mol, created, err := r.CreateFromSMILES(ctx, s, createdBy)
		if err != nil {
			result.Failed = append(result.Failed, domainMol.BatchCreateFailure{SMILES: s, Err: err})
			continue
		}
		if created {
			result.Created = append(result.Created, mol)
		} else {
			result.Skipped = append(result.Skipped, mol)
		}
	}
	return result, nil
}

func (r *memMoleculeRepository) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.byID)), nil
}

// --- fingerprint.Repository / MoleculeLookup fakes ---

type memFPRepository struct {
	mu      sync.Mutex
	records map[common.ID]map[chem.FingerprintType]*domainFP.Record
}

func newMemFPRepository() *memFPRepository {
	return &memFPRepository{records: make(map[common.ID]map[chem.FingerprintType]*domainFP.Record)}
}

func (r *memFPRepository) Put(ctx context.Context, record *domainFP.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.records[record.MoleculeID] == nil {
		r.records[record.MoleculeID] = make(map[chem.FingerprintType]*domainFP.Record)
	}
	r.records[record.MoleculeID][record.Type] = record
	return nil
}

func (r *memFPRepository) Get(ctx context.Context, moleculeID common.ID, fpType chem.FingerprintType) (*domainFP.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[moleculeID][fpType]
	if !ok {
		return nil, errors.New(errors.CodeUnknown, "fingerprint not found")
	}
	return rec, nil
}

func (r *memFPRepository) Delete(ctx context.Context, moleculeID common.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, moleculeID)
	return nil
}

func (r *memFPRepository) ScanByType(ctx context.Context, fpType chem.FingerprintType, next func(*domainFP.Record) error) error {
	r.mu.Lock()
	var matches []*domainFP.Record
	for _, byType := range r.records {
		if rec, ok := byType[fpType]; ok {
			matches = append(matches, rec)
		}
	}
	r.mu.Unlock()
	for _, rec := range matches {
		if err := next(rec); err != nil {
			return err
		}
	}
	return nil
}

type moleculeLookupAdapter struct {
	repo *memMoleculeRepository
}

func (a *moleculeLookupAdapter) SMILESByID(ctx context.Context, id common.ID) (string, error) {
	mol, err := a.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return mol.SMILES, nil
}

// --- ingestion.Repository / BlobStore fakes ---

type memJobRepo struct {
	mu   sync.Mutex
	jobs map[common.ID]*domainIngest.Job
}

func newMemJobRepo() *memJobRepo { return &memJobRepo{jobs: make(map[common.ID]*domainIngest.Job)} }

func (r *memJobRepo) Create(ctx context.Context, job *domainIngest.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	return nil
}

func (r *memJobRepo) Get(ctx context.Context, id common.ID) (*domainIngest.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, errors.New(errors.CodeUnknown, "job not found")
	}
	copied := *job
	return &copied, nil
}

func (r *memJobRepo) Update(ctx context.Context, job *domainIngest.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	return nil
}

type memBlobs struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemBlobs() *memBlobs { return &memBlobs{data: make(map[string][]byte)} }

func (b *memBlobs) Put(ctx context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = data
	return nil
}

func (b *memBlobs) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.data[key]
	if !ok {
		return nil, errors.New(errors.CodeUnknown, "blob not found")
	}
	return d, nil
}

const csvBody = "smiles,mw\nCCO,46.07\nCO,32.04\nCCO,46.07\n"

func newTestService() (*appIngest.Service, *memMoleculeRepository) {
	logger := testutil.NewMockLogger()
	molRepo := newMemMoleculeRepository()
	molRepo.defs["molecular_weight"] = &domainMol.PropertyDefinition{Name: "molecular_weight", PropertyType: domainMol.PropertyTypeNumeric}
	molSvc := domainMol.NewService(molRepo, logger)

	fpRepo := newMemFPRepository()
	fpSvc := domainFP.NewService(fpRepo, &moleculeLookupAdapter{repo: molRepo}, logger)

	ingestSvc := domainIngest.NewService(newMemJobRepo(), newMemBlobs(), logger)

	return appIngest.NewService(ingestSvc, molSvc, fpSvc, logger), molRepo
}

func TestAcceptPreviewValidateRun(t *testing.T) {
	svc, molRepo := newTestService()
	ctx := context.Background()

	job, err := svc.Accept(ctx, "mols.csv", []byte(csvBody), common.NewID().String(), false)
	require.NoError(t, err)
	assert.Equal(t, 3, job.TotalRows)

	preview, err := svc.Preview(ctx, job.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "smiles", preview.Suggestion["smiles"])
	assert.Equal(t, "molecular_weight", preview.Suggestion["mw"])

	mapping := domainIngest.ColumnMapping{"smiles": "smiles", "mw": "molecular_weight"}
	require.NoError(t, svc.ValidateMapping(ctx, job.ID, mapping))

	require.NoError(t, svc.Run(ctx, job.ID, nil))

	assert.Equal(t, int64(2), func() int64 { n, _ := molRepo.Count(ctx); return n }())
}
