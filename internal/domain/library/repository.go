package library

import (
	"context"

	"github.com/moldex-io/moldex/pkg/types/common"
)

// Repository is the persistence boundary for Library aggregates and their
// molecule membership edges.
type Repository interface {
	Create(ctx context.Context, lib *Library) error
	Get(ctx context.Context, id common.ID) (*Library, error)
	Update(ctx context.Context, lib *Library) error
	Delete(ctx context.Context, id common.ID) error
	ListByOwner(ctx context.Context, ownerID common.ID, page common.PageRequest) (common.PageResponse[*Library], error)

	// AddMolecule inserts a membership edge. Returns added=false when the
	// molecule is already a member, per spec §3's idempotent add rule.
	AddMolecule(ctx context.Context, libraryID, moleculeID, addedBy common.ID) (added bool, err error)

	// RemoveMolecule deletes a membership edge. Returns removed=false when
	// the edge did not exist.
	RemoveMolecule(ctx context.Context, libraryID, moleculeID common.ID) (removed bool, err error)

	// GetMolecules lists the molecule ids belonging to libraryID, paginated.
	GetMolecules(ctx context.Context, libraryID common.ID, page common.PageRequest) (common.PageResponse[common.ID], error)
}
