package fingerprint_test

import (
	"context"
	"sync"
	"testing"

	appfp "github.com/moldex-io/moldex/internal/application/fingerprint"
	"github.com/moldex-io/moldex/internal/domain/chem"
	domainFP "github.com/moldex-io/moldex/internal/domain/fingerprint"
	"github.com/moldex-io/moldex/internal/testutil"
	"github.com/moldex-io/moldex/pkg/errors"
	"github.com/moldex-io/moldex/pkg/types/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepository struct {
	mu      sync.Mutex
	records map[common.ID]map[chem.FingerprintType]*domainFP.Record
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{records: make(map[common.ID]map[chem.FingerprintType]*domainFP.Record)}
}

func (r *fakeRepository) Put(ctx context.Context, record *domainFP.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.records[record.MoleculeID] == nil {
		r.records[record.MoleculeID] = make(map[chem.FingerprintType]*domainFP.Record)
	}
	r.records[record.MoleculeID][record.Type] = record
	return nil
}

func (r *fakeRepository) Get(ctx context.Context, moleculeID common.ID, fpType chem.FingerprintType) (*domainFP.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[moleculeID][fpType]
	if !ok {
		return nil, errors.New(errors.CodeUnknown, "not found")
	}
	return rec, nil
}

func (r *fakeRepository) Delete(ctx context.Context, moleculeID common.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, moleculeID)
	return nil
}

func (r *fakeRepository) ScanByType(ctx context.Context, fpType chem.FingerprintType, next func(*domainFP.Record) error) error {
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

type fakeMoleculeLookup struct {
	mu     sync.Mutex
	smiles map[common.ID]string
}

func newFakeMoleculeLookup() *fakeMoleculeLookup {
	return &fakeMoleculeLookup{smiles: make(map[common.ID]string)}
}

func (m *fakeMoleculeLookup) SMILESByID(ctx context.Context, id common.ID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.smiles[id]
	if !ok {
		return "", errors.New(errors.CodeUnknown, "not found")
	}
	return s, nil
}

func newService() (*appfp.Service, *fakeMoleculeLookup) {
	lookup := newFakeMoleculeLookup()
	domainSvc := domainFP.NewService(newFakeRepository(), lookup, testutil.NewMockLogger())
	return appfp.NewService(domainSvc, testutil.NewMockLogger()), lookup
}

func TestPutAndSimilaritySearch(t *testing.T) {
	svc, lookup := newService()
	ethanol := common.NewID().String()
	lookup.smiles[common.ID(ethanol)] = "CCO"

	require.NoError(t, svc.Put(context.Background(), ethanol, "CCO", "morgan"))

	page, err := svc.SimilaritySearch(context.Background(), "CCO", "morgan", "tanimoto", 0.0, common.PageRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, page.Items)
	assert.Equal(t, ethanol, page.Items[0].MoleculeID)
	assert.InDelta(t, 1.0, page.Items[0].Score, 1e-9)
}

func TestSubstructureSearch(t *testing.T) {
	svc, lookup := newService()
	toluene := common.NewID().String()
	lookup.smiles[common.ID(toluene)] = "Cc1ccccc1"

	require.NoError(t, svc.Put(context.Background(), toluene, "Cc1ccccc1", "pattern"))

	page, err := svc.SubstructureSearch(context.Background(), "c1ccccc1", common.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, toluene, page.Items[0])
}
