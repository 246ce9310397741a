package molecule_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moldex-io/moldex/internal/domain/molecule"
	"github.com/moldex-io/moldex/internal/platform/logging"
	"github.com/moldex-io/moldex/pkg/errors"
	"github.com/moldex-io/moldex/pkg/types/common"
)

// memRepository is an in-memory molecule.Repository used to exercise
// Service's validation and orchestration logic without a real database.
type memRepository struct {
	mu         sync.Mutex
	byID       map[common.ID]*molecule.Molecule
	byInChIKey map[string]*molecule.Molecule
	properties map[common.ID][]*molecule.MoleculeProperty
	defs       map[string]*molecule.PropertyDefinition
}

func newMemRepository() *memRepository {
	return &memRepository{
		byID:       make(map[common.ID]*molecule.Molecule),
		byInChIKey: make(map[string]*molecule.Molecule),
		properties: make(map[common.ID][]*molecule.MoleculeProperty),
		defs:       make(map[string]*molecule.PropertyDefinition),
	}
}

func (r *memRepository) CreateFromSMILES(ctx context.Context, smiles string, createdBy common.ID) (*molecule.Molecule, bool, error) {
	mol, err := molecule.NewMoleculeFromSMILES(smiles, createdBy)
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

func (r *memRepository) Get(ctx context.Context, id common.ID) (*molecule.Molecule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mol, ok := r.byID[id]
	if !ok {
		return nil, errors.MoleculeNotFound(id.String())
	}
	return mol, nil
}

func (r *memRepository) GetBySMILES(ctx context.Context, smiles string) (*molecule.Molecule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mol := range r.byID {
		if mol.SMILES == smiles {
			return mol, nil
		}
	}
	return nil, errors.MoleculeNotFound(smiles)
}

func (r *memRepository) GetByInChIKey(ctx context.Context, key string) (*molecule.Molecule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mol, ok := r.byInChIKey[key]
	if !ok {
		return nil, errors.MoleculeNotFound(key)
	}
	return mol, nil
}

func (r *memRepository) Update(ctx context.Context, mol *molecule.Molecule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[mol.ID] = mol
	r.byInChIKey[mol.InChIKey] = mol
	return nil
}

func (r *memRepository) Delete(ctx context.Context, id common.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

func (r *memRepository) SetProperty(ctx context.Context, prop *molecule.MoleculeProperty) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.properties[prop.MoleculeID] = append(r.properties[prop.MoleculeID], prop)
	return nil
}

func (r *memRepository) GetProperty(ctx context.Context, moleculeID common.ID, name string, source *molecule.PropertySource) (*molecule.MoleculeProperty, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *molecule.MoleculeProperty
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

func (r *memRepository) ListProperties(ctx context.Context, moleculeID common.ID) ([]*molecule.MoleculeProperty, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.properties[moleculeID], nil
}

func (r *memRepository) GetPropertyDefinition(ctx context.Context, name string) (*molecule.PropertyDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.defs[name], nil
}

func (r *memRepository) ListPropertyDefinitions(ctx context.Context) ([]*molecule.PropertyDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defs := make([]*molecule.PropertyDefinition, 0, len(r.defs))
	for _, d := range r.defs {
		defs = append(defs, d)
	}
	return defs, nil
}

func (r *memRepository) Filter(ctx context.Context, criteria molecule.FilterCriteria, page common.PageRequest) (common.PageResponse[*molecule.Molecule], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*molecule.Molecule, 0, len(r.byID))
	for _, mol := range r.byID {
		items = append(items, mol)
	}
	return common.NewPageResponse(items, int64(len(items)), page), nil
}

func (r *memRepository) BatchCreate(ctx context.Context, smilesList []string, createdBy common.ID) (*molecule.BatchCreateResult, error) {
	result := &molecule.BatchCreateResult{}
	for _, s := range smilesList {
		mol, created, err := r.CreateFromSMILES(ctx, s, createdBy)
		if err != nil {
			result.Failed = append(result.Failed, molecule.BatchCreateFailure{SMILES: s, Err: err})
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

func (r *memRepository) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.byID)), nil
}

func newTestService() (*molecule.Service, *memRepository) {
	repo := newMemRepository()
	return molecule.NewService(repo, logging.NewNopLogger()), repo
}

func TestServiceCreateFromSMILES_NewMolecule(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService()
	mol, err := svc.CreateFromSMILES(context.Background(), "CCO", common.NewID())
	require.NoError(t, err)
	assert.NotEmpty(t, mol.InChIKey)
}

func TestServiceCreateFromSMILES_DeduplicatesByInChIKey(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService()
	createdBy := common.NewID()
	ctx := context.Background()

	first, err := svc.CreateFromSMILES(ctx, "CCO", createdBy)
	require.NoError(t, err)

	second, err := svc.CreateFromSMILES(ctx, "OCC", createdBy) // equivalent SMILES, written backward
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestServiceBatchCreate(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService()
	result, err := svc.BatchCreate(context.Background(), []string{"CCO", "CCO", "NOT_A_MOL"}, common.NewID())
	require.NoError(t, err)
	assert.Len(t, result.Created, 1)
	assert.Len(t, result.Skipped, 1)
	assert.Len(t, result.Failed, 1)
}

func TestServiceBatchCreate_RejectsEmptyList(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService()
	_, err := svc.BatchCreate(context.Background(), nil, common.NewID())
	assert.Error(t, err)
}

func TestServiceSetProperty_ValidatesAgainstDefinition(t *testing.T) {
	t.Parallel()
	svc, repo := newTestService()
	min, max := 0.0, 500.0
	repo.defs["molecular_weight"] = &molecule.PropertyDefinition{
		Name: "molecular_weight", PropertyType: molecule.PropertyTypeNumeric, MinValue: &min, MaxValue: &max,
	}

	mol, err := svc.CreateFromSMILES(context.Background(), "CCO", common.NewID())
	require.NoError(t, err)

	err = svc.SetProperty(context.Background(), &molecule.MoleculeProperty{
		MoleculeID: mol.ID, Name: "molecular_weight", Value: 600.0, Source: molecule.SourceCalculated,
	})
	assert.Error(t, err)

	err = svc.SetProperty(context.Background(), &molecule.MoleculeProperty{
		MoleculeID: mol.ID, Name: "molecular_weight", Value: 46.07, Source: molecule.SourceCalculated,
	})
	assert.NoError(t, err)
}

func TestServiceFilter(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.CreateFromSMILES(ctx, "CCO", common.NewID())
	require.NoError(t, err)

	page, err := svc.Filter(ctx, molecule.FilterCriteria{}, common.PageRequest{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}
