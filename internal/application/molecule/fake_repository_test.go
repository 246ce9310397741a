package molecule_test

import (
	"context"
	"sync"

	domainMol "github.com/moldex-io/moldex/internal/domain/molecule"
	"github.com/moldex-io/moldex/pkg/errors"
	"github.com/moldex-io/moldex/pkg/types/common"
)

// fakeRepository is a minimal in-memory domainMol.Repository for exercising
// the application-layer Service end to end.
type fakeRepository struct {
	mu         sync.Mutex
	byID       map[common.ID]*domainMol.Molecule
	byInChIKey map[string]*domainMol.Molecule
	properties map[common.ID][]*domainMol.MoleculeProperty
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		byID:       make(map[common.ID]*domainMol.Molecule),
		byInChIKey: make(map[string]*domainMol.Molecule),
		properties: make(map[common.ID][]*domainMol.MoleculeProperty),
	}
}

func (r *fakeRepository) CreateFromSMILES(ctx context.Context, smiles string, createdBy common.ID) (*domainMol.Molecule, bool, error) {
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

func (r *fakeRepository) Get(ctx context.Context, id common.ID) (*domainMol.Molecule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mol, ok := r.byID[id]
	if !ok {
		return nil, errors.MoleculeNotFound(id.String())
	}
	return mol, nil
}

func (r *fakeRepository) GetBySMILES(ctx context.Context, smiles string) (*domainMol.Molecule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mol := range r.byID {
		if mol.SMILES == smiles {
			return mol, nil
		}
	}
	return nil, errors.MoleculeNotFound(smiles)
}

func (r *fakeRepository) GetByInChIKey(ctx context.Context, key string) (*domainMol.Molecule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mol, ok := r.byInChIKey[key]
	if !ok {
		return nil, errors.MoleculeNotFound(key)
	}
	return mol, nil
}

func (r *fakeRepository) Update(ctx context.Context, mol *domainMol.Molecule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[mol.ID] = mol
	r.byInChIKey[mol.InChIKey] = mol
	return nil
}

func (r *fakeRepository) Delete(ctx context.Context, id common.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

func (r *fakeRepository) SetProperty(ctx context.Context, prop *domainMol.MoleculeProperty) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.properties[prop.MoleculeID] = append(r.properties[prop.MoleculeID], prop)
	return nil
}

func (r *fakeRepository) GetProperty(ctx context.Context, moleculeID common.ID, name string, source *domainMol.PropertySource) (*domainMol.MoleculeProperty, error) {
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

func (r *fakeRepository) ListProperties(ctx context.Context, moleculeID common.ID) ([]*domainMol.MoleculeProperty, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.properties[moleculeID], nil
}

func (r *fakeRepository) GetPropertyDefinition(ctx context.Context, name string) (*domainMol.PropertyDefinition, error) {
	return nil, nil
}

func (r *fakeRepository) ListPropertyDefinitions(ctx context.Context) ([]*domainMol.PropertyDefinition, error) {
	return nil, nil
}

func (r *fakeRepository) Filter(ctx context.Context, criteria domainMol.FilterCriteria, page common.PageRequest) (common.PageResponse[*domainMol.Molecule], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*domainMol.Molecule, 0, len(r.byID))
	for _, mol := range r.byID {
		items = append(items, mol)
	}
	return common.NewPageResponse(items, int64(len(items)), page), nil
}

func (r *fakeRepository) BatchCreate(ctx context.Context, smilesList []string, createdBy common.ID) (*domainMol.BatchCreateResult, error) {
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

func (r *fakeRepository) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.byID)), nil
}
