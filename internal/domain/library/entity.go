// Package library implements the Library entity named in spec §3: a
// user-defined, named collection of molecules held by weak reference —
// deleting a Library never deletes its molecules, and deleting a molecule
// only removes its library-edge rows.
package library

import (
	"strings"
	"time"

	"github.com/moldex-io/moldex/pkg/errors"
	"github.com/moldex-io/moldex/pkg/types/common"
)

const (
	minNameLength = 1
	maxNameLength = 100
)

// Library is a named, owned collection of molecules.
type Library struct {
	ID             common.ID
	Name           string
	Description    string
	OwnerID        common.ID
	OrganizationID *common.ID
	IsPublic       bool
	CreatedAt      common.Timestamp
	UpdatedAt      common.Timestamp
}

// Membership is a library_molecule edge, carrying who added a molecule and
// when.
type Membership struct {
	LibraryID  common.ID
	MoleculeID common.ID
	AddedBy    common.ID
	AddedAt    common.Timestamp
}

// New constructs a Library, validating name length per spec §3.
func New(name, description string, ownerID common.ID, organizationID *common.ID, isPublic bool) (*Library, error) {
	name = strings.TrimSpace(name)
	if len(name) < minNameLength || len(name) > maxNameLength {
		return nil, errors.InvalidParam("library name must be 1-100 characters after trimming")
	}
	now := time.Now()
	return &Library{
		ID:             common.NewID(),
		Name:           name,
		Description:    description,
		OwnerID:        ownerID,
		OrganizationID: organizationID,
		IsPublic:       isPublic,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Rename validates and applies a new name.
func (l *Library) Rename(name string) error {
	name = strings.TrimSpace(name)
	if len(name) < minNameLength || len(name) > maxNameLength {
		return errors.InvalidParam("library name must be 1-100 characters after trimming")
	}
	l.Name = name
	l.UpdatedAt = time.Now()
	return nil
}
