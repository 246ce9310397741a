package molecule

import (
	"context"

	"github.com/moldex-io/moldex/pkg/types/common"
)

// PropertyRange bounds a single property within a FilterCriteria.
type PropertyRange struct {
	Min *float64
	Max *float64
}

// FilterCriteria is the structured predicate accepted by Repository.Filter,
// per spec §4.2's filter operation. A relational implementation joins with
// the property rows only when PropertyRanges is non-empty.
type FilterCriteria struct {
	SMILESContains  string
	FormulaContains string
	Status          *Status
	CreatedBy       *common.ID
	LibraryID       *common.ID
	PropertyRanges  map[string]PropertyRange
}

// BatchCreateResult reports per-row outcomes of Repository.BatchCreate, per
// spec §4.2's { created[], skipped[], failed[] } contract.
type BatchCreateResult struct {
	Created []*Molecule
	Skipped []*Molecule
	Failed  []BatchCreateFailure
}

// BatchCreateFailure pairs the offending SMILES with the validation error
// that rejected it.
type BatchCreateFailure struct {
	SMILES string
	Err    error
}

// Repository is the persistence boundary for the Molecule Store (C2). A
// relational implementation backs it with transactional guarantees: a
// unique index on inchi_key makes CreateFromSMILES's upsert race-safe under
// concurrent callers, per spec §4.2's concurrency requirement.
type Repository interface {
	// CreateFromSMILES validates and canonicalizes smiles via the Structure
	// Engine, then performs an atomic upsert-by-inchi_key: if a matching row
	// exists it is returned unchanged (created=false); otherwise a new row
	// is inserted with its CALCULATED properties and created=true.
	CreateFromSMILES(ctx context.Context, smiles string, createdBy common.ID) (mol *Molecule, created bool, err error)

	Get(ctx context.Context, id common.ID) (*Molecule, error)
	GetBySMILES(ctx context.Context, smiles string) (*Molecule, error)
	GetByInChIKey(ctx context.Context, inchiKey string) (*Molecule, error)

	// Update persists an already-recomputed Molecule (see Molecule.Recompute)
	// and invalidates any fingerprints cached for it.
	Update(ctx context.Context, mol *Molecule) error
	Delete(ctx context.Context, id common.ID) error

	SetProperty(ctx context.Context, prop *MoleculeProperty) error
	GetProperty(ctx context.Context, moleculeID common.ID, name string, source *PropertySource) (*MoleculeProperty, error)
	ListProperties(ctx context.Context, moleculeID common.ID) ([]*MoleculeProperty, error)

	GetPropertyDefinition(ctx context.Context, name string) (*PropertyDefinition, error)
	ListPropertyDefinitions(ctx context.Context) ([]*PropertyDefinition, error)

	Filter(ctx context.Context, criteria FilterCriteria, page common.PageRequest) (common.PageResponse[*Molecule], error)

	// BatchCreate processes each SMILES independently: a row failure is
	// reported in Failed without affecting rows already created or skipped,
	// per spec §4.2. Implementations are not required to wrap the whole
	// list in a single transaction; CreateFromSMILES's own atomicity
	// already makes each row's upsert race-safe on its own.
	BatchCreate(ctx context.Context, smilesList []string, createdBy common.ID) (*BatchCreateResult, error)

	Count(ctx context.Context) (int64, error)
}

