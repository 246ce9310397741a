package library_test

import (
	"context"
	"sync"

	domainLib "github.com/moldex-io/moldex/internal/domain/library"
	"github.com/moldex-io/moldex/pkg/errors"
	"github.com/moldex-io/moldex/pkg/types/common"
)

// fakeRepository is a minimal in-memory domainLib.Repository for exercising
// the application-layer Service end to end.
type fakeRepository struct {
	mu      sync.Mutex
	libs    map[common.ID]*domainLib.Library
	members map[common.ID]map[common.ID]domainLib.Membership
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		libs:    make(map[common.ID]*domainLib.Library),
		members: make(map[common.ID]map[common.ID]domainLib.Membership),
	}
}

func (r *fakeRepository) Create(ctx context.Context, lib *domainLib.Library) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.libs[lib.ID] = lib
	return nil
}

func (r *fakeRepository) Get(ctx context.Context, id common.ID) (*domainLib.Library, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lib, ok := r.libs[id]
	if !ok {
		return nil, errors.New(errors.CodeUnknown, "library not found")
	}
	return lib, nil
}

func (r *fakeRepository) Update(ctx context.Context, lib *domainLib.Library) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.libs[lib.ID] = lib
	return nil
}

func (r *fakeRepository) Delete(ctx context.Context, id common.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.libs, id)
	delete(r.members, id)
	return nil
}

func (r *fakeRepository) ListByOwner(ctx context.Context, ownerID common.ID, page common.PageRequest) (common.PageResponse[*domainLib.Library], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []*domainLib.Library
	for _, lib := range r.libs {
		if lib.OwnerID == ownerID {
			items = append(items, lib)
		}
	}
	return common.NewPageResponse(items, int64(len(items)), page), nil
}

func (r *fakeRepository) AddMolecule(ctx context.Context, libraryID, moleculeID, addedBy common.ID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.members[libraryID] == nil {
		r.members[libraryID] = make(map[common.ID]domainLib.Membership)
	}
	if _, exists := r.members[libraryID][moleculeID]; exists {
		return false, nil
	}
	r.members[libraryID][moleculeID] = domainLib.Membership{LibraryID: libraryID, MoleculeID: moleculeID, AddedBy: addedBy}
	return true, nil
}

func (r *fakeRepository) RemoveMolecule(ctx context.Context, libraryID, moleculeID common.ID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.members[libraryID][moleculeID]; !exists {
		return false, nil
	}
	delete(r.members[libraryID], moleculeID)
	return true, nil
}

func (r *fakeRepository) GetMolecules(ctx context.Context, libraryID common.ID, page common.PageRequest) (common.PageResponse[common.ID], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []common.ID
	for moleculeID := range r.members[libraryID] {
		ids = append(ids, moleculeID)
	}
	return common.NewPageResponse(ids, int64(len(ids)), page), nil
}
