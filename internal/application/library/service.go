// Package library is the application-level use-case layer for library
// membership management: it adapts HTTP/CLI handlers to the domain service
// in internal/domain/library, translating between wire-friendly DTOs and
// domain entities.
package library

import (
	"context"
	"time"

	domainLib "github.com/moldex-io/moldex/internal/domain/library"
	"github.com/moldex-io/moldex/internal/platform/logging"
	"github.com/moldex-io/moldex/pkg/types/common"
)

// LibraryDTO is the wire-friendly representation of a Library.
type LibraryDTO struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	OwnerID        string    `json:"owner_id"`
	OrganizationID string    `json:"organization_id,omitempty"`
	IsPublic       bool      `json:"is_public"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Service is the application-facing façade over the Library domain service.
type Service struct {
	domain *domainLib.Service
	logger logging.Logger
}

// NewService constructs a Service wrapping the given domain service.
func NewService(domain *domainLib.Service, logger logging.Logger) *Service {
	return &Service{domain: domain, logger: logger}
}

// Create creates a new library.
func (s *Service) Create(ctx context.Context, name, description, ownerID, organizationID string, isPublic bool) (*LibraryDTO, error) {
	var orgPtr *common.ID
	if organizationID != "" {
		id := common.ID(organizationID)
		orgPtr = &id
	}
	lib, err := s.domain.Create(ctx, name, description, common.ID(ownerID), orgPtr, isPublic)
	if err != nil {
		return nil, err
	}
	dto := toDTO(lib)
	return &dto, nil
}

// Get retrieves a library by id.
func (s *Service) Get(ctx context.Context, id string) (*LibraryDTO, error) {
	lib, err := s.domain.Get(ctx, common.ID(id))
	if err != nil {
		return nil, err
	}
	dto := toDTO(lib)
	return &dto, nil
}

// ListByOwner lists libraries owned by ownerID, paginated.
func (s *Service) ListByOwner(ctx context.Context, ownerID string, page common.PageRequest) (common.PageResponse[LibraryDTO], error) {
	result, err := s.domain.ListByOwner(ctx, common.ID(ownerID), page)
	if err != nil {
		return common.PageResponse[LibraryDTO]{}, err
	}
	items := make([]LibraryDTO, len(result.Items))
	for i, lib := range result.Items {
		items[i] = toDTO(lib)
	}
	return common.PageResponse[LibraryDTO]{
		Items: items, Total: result.Total, Page: result.Page, PageSize: result.PageSize, TotalPages: result.TotalPages,
	}, nil
}

// Delete removes a library; its molecules are unaffected.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.domain.Delete(ctx, common.ID(id))
}

// AddMolecule adds a molecule to a library, idempotently.
func (s *Service) AddMolecule(ctx context.Context, libraryID, moleculeID, addedBy string) (bool, error) {
	return s.domain.AddMolecule(ctx, common.ID(libraryID), common.ID(moleculeID), common.ID(addedBy))
}

// RemoveMolecule removes a molecule from a library, idempotently.
func (s *Service) RemoveMolecule(ctx context.Context, libraryID, moleculeID string) (bool, error) {
	return s.domain.RemoveMolecule(ctx, common.ID(libraryID), common.ID(moleculeID))
}

// GetMolecules lists a library's member molecule ids, paginated.
func (s *Service) GetMolecules(ctx context.Context, libraryID string, page common.PageRequest) (common.PageResponse[string], error) {
	result, err := s.domain.GetMolecules(ctx, common.ID(libraryID), page)
	if err != nil {
		return common.PageResponse[string]{}, err
	}
	items := make([]string, len(result.Items))
	for i, id := range result.Items {
		items[i] = id.String()
	}
	return common.PageResponse[string]{
		Items: items, Total: result.Total, Page: result.Page, PageSize: result.PageSize, TotalPages: result.TotalPages,
	}, nil
}

func toDTO(lib *domainLib.Library) LibraryDTO {
	dto := LibraryDTO{
		ID:          lib.ID.String(),
		Name:        lib.Name,
		Description: lib.Description,
		OwnerID:     lib.OwnerID.String(),
		IsPublic:    lib.IsPublic,
		CreatedAt:   lib.CreatedAt,
		UpdatedAt:   lib.UpdatedAt,
	}
	if lib.OrganizationID != nil {
		dto.OrganizationID = lib.OrganizationID.String()
	}
	return dto
}
