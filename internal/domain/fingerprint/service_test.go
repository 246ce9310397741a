package fingerprint_test

import (
	"context"
	"sync"
	"testing"

	"github.com/moldex-io/moldex/internal/domain/chem"
	"github.com/moldex-io/moldex/internal/domain/fingerprint"
	"github.com/moldex-io/moldex/internal/testutil"
	"github.com/moldex-io/moldex/pkg/errors"
	"github.com/moldex-io/moldex/pkg/types/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepository struct {
	mu      sync.Mutex
	records map[common.ID]map[chem.FingerprintType]*fingerprint.Record
}

func newMemRepository() *memRepository {
	return &memRepository{records: make(map[common.ID]map[chem.FingerprintType]*fingerprint.Record)}
}

func (r *memRepository) Put(ctx context.Context, record *fingerprint.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.records[record.MoleculeID] == nil {
		r.records[record.MoleculeID] = make(map[chem.FingerprintType]*fingerprint.Record)
	}
	r.records[record.MoleculeID][record.Type] = record
	return nil
}

func (r *memRepository) Get(ctx context.Context, moleculeID common.ID, fpType chem.FingerprintType) (*fingerprint.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[moleculeID][fpType]
	if !ok {
		return nil, errors.New(errors.CodeUnknown, "fingerprint not found")
	}
	return rec, nil
}

func (r *memRepository) Delete(ctx context.Context, moleculeID common.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, moleculeID)
	return nil
}

func (r *memRepository) ScanByType(ctx context.Context, fpType chem.FingerprintType, next func(*fingerprint.Record) error) error {
	r.mu.Lock()
	var matches []*fingerprint.Record
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

type memMoleculeLookup struct {
	mu     sync.Mutex
	smiles map[common.ID]string
}

func newMemMoleculeLookup() *memMoleculeLookup {
	return &memMoleculeLookup{smiles: make(map[common.ID]string)}
}

func (m *memMoleculeLookup) put(id common.ID, smiles string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.smiles[id] = smiles
}

func (m *memMoleculeLookup) SMILESByID(ctx context.Context, id common.ID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.smiles[id]
	if !ok {
		return "", errors.New(errors.CodeUnknown, "molecule not found")
	}
	return s, nil
}

func seed(t *testing.T, svc *fingerprint.Service, lookup *memMoleculeLookup, id common.ID, smiles string, fpType chem.FingerprintType) {
	t.Helper()
	lookup.put(id, smiles)
	_, err := svc.Put(context.Background(), id, smiles, fpType)
	require.NoError(t, err)
}

func TestPutAndGet(t *testing.T) {
	svc := fingerprint.NewService(newMemRepository(), newMemMoleculeLookup(), testutil.NewMockLogger())
	id := common.NewID()

	_, err := svc.Put(context.Background(), id, "CCO", chem.FPMorgan)
	require.NoError(t, err)

	rec, err := svc.Get(context.Background(), id, chem.FPMorgan)
	require.NoError(t, err)
	assert.Equal(t, id, rec.MoleculeID)
	assert.Equal(t, chem.FPMorgan, rec.Type)
	assert.NotNil(t, rec.Data)
}

func TestPutRejectsInvalidSMILES(t *testing.T) {
	svc := fingerprint.NewService(newMemRepository(), newMemMoleculeLookup(), testutil.NewMockLogger())
	_, err := svc.Put(context.Background(), common.NewID(), "not-a-smiles(((", chem.FPMorgan)
	assert.Error(t, err)
}

func TestInvalidate(t *testing.T) {
	svc := fingerprint.NewService(newMemRepository(), newMemMoleculeLookup(), testutil.NewMockLogger())
	id := common.NewID()
	_, err := svc.Put(context.Background(), id, "CCO", chem.FPMorgan)
	require.NoError(t, err)

	require.NoError(t, svc.Invalidate(context.Background(), id))

	_, err = svc.Get(context.Background(), id, chem.FPMorgan)
	assert.Error(t, err)
}

func TestSimilaritySearchFindsIdenticalAndSortsByScore(t *testing.T) {
	lookup := newMemMoleculeLookup()
	svc := fingerprint.NewService(newMemRepository(), lookup, testutil.NewMockLogger())

	ethanol := common.NewID()
	methanol := common.NewID()
	benzene := common.NewID()

	seed(t, svc, lookup, ethanol, "CCO", chem.FPMorgan)
	seed(t, svc, lookup, methanol, "CO", chem.FPMorgan)
	seed(t, svc, lookup, benzene, "c1ccccc1", chem.FPMorgan)

	page, err := svc.SimilaritySearch(context.Background(), "CCO", chem.FPMorgan, chem.MetricTanimoto, 0.0, common.PageRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, page.Items)
	assert.Equal(t, ethanol, page.Items[0].MoleculeID)
	assert.InDelta(t, 1.0, page.Items[0].Score, 1e-9)

	for i := 1; i < len(page.Items); i++ {
		assert.GreaterOrEqual(t, page.Items[i-1].Score, page.Items[i].Score)
	}
}

func TestSimilaritySearchRespectsThreshold(t *testing.T) {
	lookup := newMemMoleculeLookup()
	svc := fingerprint.NewService(newMemRepository(), lookup, testutil.NewMockLogger())

	ethanol := common.NewID()
	benzene := common.NewID()
	seed(t, svc, lookup, ethanol, "CCO", chem.FPMorgan)
	seed(t, svc, lookup, benzene, "c1ccccc1", chem.FPMorgan)

	page, err := svc.SimilaritySearch(context.Background(), "CCO", chem.FPMorgan, chem.MetricTanimoto, 0.99, common.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, ethanol, page.Items[0].MoleculeID)
}

func TestSimilaritySearchPaginates(t *testing.T) {
	lookup := newMemMoleculeLookup()
	svc := fingerprint.NewService(newMemRepository(), lookup, testutil.NewMockLogger())

	smilesSet := []string{"CCO", "CO", "CCC", "CCCC", "c1ccccc1"}
	for _, s := range smilesSet {
		seed(t, svc, lookup, common.NewID(), s, chem.FPMorgan)
	}

	page, err := svc.SimilaritySearch(context.Background(), "CCO", chem.FPMorgan, chem.MetricTanimoto, 0.0, common.PageRequest{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.EqualValues(t, 5, page.Total)
	assert.Equal(t, 3, page.TotalPages)
}

func TestSubstructureSearchFindsContainingMolecules(t *testing.T) {
	lookup := newMemMoleculeLookup()
	svc := fingerprint.NewService(newMemRepository(), lookup, testutil.NewMockLogger())

	toluene := common.NewID()
	ethanol := common.NewID()
	seed(t, svc, lookup, toluene, "Cc1ccccc1", chem.FPPattern)
	seed(t, svc, lookup, ethanol, "CCO", chem.FPPattern)

	page, err := svc.SubstructureSearch(context.Background(), "c1ccccc1", chem.FPPattern, common.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, toluene, page.Items[0])
}
