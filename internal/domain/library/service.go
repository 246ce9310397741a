package library

import (
	"context"

	"github.com/moldex-io/moldex/internal/platform/logging"
	"github.com/moldex-io/moldex/pkg/types/common"
)

// Service is the Library domain service.
type Service struct {
	repo   Repository
	logger logging.Logger
}

// NewService constructs a Service over repo.
func NewService(repo Repository, logger logging.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create validates and persists a new Library.
func (s *Service) Create(ctx context.Context, name, description string, ownerID common.ID, organizationID *common.ID, isPublic bool) (*Library, error) {
	lib, err := New(name, description, ownerID, organizationID, isPublic)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, lib); err != nil {
		return nil, err
	}
	return lib, nil
}

// AddMolecule adds a molecule to a library idempotently.
func (s *Service) AddMolecule(ctx context.Context, libraryID, moleculeID, addedBy common.ID) (bool, error) {
	added, err := s.repo.AddMolecule(ctx, libraryID, moleculeID, addedBy)
	if err != nil {
		return false, err
	}
	if added {
		s.logger.Debug("molecule added to library",
			logging.String("library_id", libraryID.String()),
			logging.String("molecule_id", moleculeID.String()))
	}
	return added, nil
}

// RemoveMolecule removes a molecule from a library idempotently.
func (s *Service) RemoveMolecule(ctx context.Context, libraryID, moleculeID common.ID) (bool, error) {
	return s.repo.RemoveMolecule(ctx, libraryID, moleculeID)
}

// GetMolecules lists a library's member molecule ids, paginated.
func (s *Service) GetMolecules(ctx context.Context, libraryID common.ID, page common.PageRequest) (common.PageResponse[common.ID], error) {
	page.Normalize()
	return s.repo.GetMolecules(ctx, libraryID, page)
}

// Get retrieves a library by id.
func (s *Service) Get(ctx context.Context, id common.ID) (*Library, error) {
	return s.repo.Get(ctx, id)
}

// ListByOwner lists libraries owned by ownerID.
func (s *Service) ListByOwner(ctx context.Context, ownerID common.ID, page common.PageRequest) (common.PageResponse[*Library], error) {
	page.Normalize()
	return s.repo.ListByOwner(ctx, ownerID, page)
}

// Delete removes a library. Per spec §3, this never deletes its molecules —
// only the Repository's DELETE CASCADE on the edge table removes the
// membership rows.
func (s *Service) Delete(ctx context.Context, id common.ID) error {
	return s.repo.Delete(ctx, id)
}
