// Package molecule is the Molecule Store (C2): the relational aggregate
// built on top of the pure chemistry primitives in internal/domain/chem. It
// owns the Molecule, MoleculeProperty, and PropertyDefinition entities and
// the business rules around their lifecycle (upsert-by-inchi_key, property
// validation against declared ranges, status transitions).
package molecule

import (
	"strings"
	"time"

	"github.com/moldex-io/moldex/internal/domain/chem"
	"github.com/moldex-io/moldex/pkg/errors"
	"github.com/moldex-io/moldex/pkg/types/common"
)

// Status is the Molecule lifecycle state named in spec §3.
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusPending   Status = "PENDING"
	StatusTesting   Status = "TESTING"
	StatusResults   Status = "RESULTS"
	StatusArchived  Status = "ARCHIVED"
)

// PropertySource records where a MoleculeProperty value came from, per
// spec §3's MoleculeProperty.source enum.
type PropertySource string

const (
	SourceCalculated  PropertySource = "CALCULATED"
	SourceImported    PropertySource = "IMPORTED"
	SourcePredicted   PropertySource = "PREDICTED"
	SourceExperimental PropertySource = "EXPERIMENTAL"
)

// PropertyType is a PropertyDefinition's declared value type.
type PropertyType string

const (
	PropertyTypeString  PropertyType = "string"
	PropertyTypeNumeric PropertyType = "numeric"
	PropertyTypeInteger PropertyType = "integer"
	PropertyTypeBoolean PropertyType = "boolean"
)

// PropertyCategory groups PropertyDefinitions for display and filtering.
type PropertyCategory string

const (
	CategoryPhysical      PropertyCategory = "physical"
	CategoryChemical      PropertyCategory = "chemical"
	CategoryBiological    PropertyCategory = "biological"
	CategoryComputational PropertyCategory = "computational"
	CategoryExperimental  PropertyCategory = "experimental"
)

// Molecule is the Molecule Store aggregate root: the canonical structure
// record that properties, fingerprints, and predictions attach to.
type Molecule struct {
	ID               common.ID
	SMILES           string
	InChIKey         string
	Formula          string
	MolecularWeight  float64
	Status           Status
	CreatedBy        common.ID
	CreatedAt        common.Timestamp
	UpdatedAt        common.Timestamp
}

// NewMoleculeFromSMILES validates and canonicalizes smiles via the
// Structure Engine (C1), derives its inchi_key/formula/molecular_weight, and
// returns a new Molecule in AVAILABLE status. It does not touch storage —
// the caller (Repository.CreateFromSMILES) decides whether this is a fresh
// row or an existing one matched by inchi_key.
func NewMoleculeFromSMILES(smiles string, createdBy common.ID) (*Molecule, error) {
	mol, err := chem.ParseSMILES(smiles)
	if err != nil {
		return nil, err
	}
	canonical := chem.CanonicalSMILES(mol)
	inchiKey := chem.InChIKey(chem.InChI(mol))
	now := time.Now()

	return &Molecule{
		ID:              common.NewID(),
		SMILES:          canonical,
		InChIKey:        inchiKey,
		Formula:         chem.MolecularFormula(mol),
		MolecularWeight: chem.MolecularWeight(mol),
		Status:          StatusAvailable,
		CreatedBy:       createdBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Recompute re-derives every structure-dependent field from a new SMILES
// string, per spec §4.2 step 4 ("on SMILES change ... recompute all derived
// fields"). Callers are responsible for invalidating cached fingerprints
// (C3) after calling this.
func (m *Molecule) Recompute(smiles string) error {
	mol, err := chem.ParseSMILES(smiles)
	if err != nil {
		return err
	}
	m.SMILES = chem.CanonicalSMILES(mol)
	m.InChIKey = chem.InChIKey(chem.InChI(mol))
	m.Formula = chem.MolecularFormula(mol)
	m.MolecularWeight = chem.MolecularWeight(mol)
	m.UpdatedAt = time.Now()
	return nil
}

// CalculatedProperties derives the descriptor set C1 computes for every
// newly-created molecule, ready to be persisted as MoleculeProperty rows
// with source=CALCULATED.
func CalculatedProperties(smiles string) (map[string]float64, error) {
	mol, err := chem.ParseSMILES(smiles)
	if err != nil {
		return nil, err
	}
	d := chem.CalculateDescriptors(mol)
	return map[string]float64{
		"logp":               d.LogP,
		"tpsa":               d.TPSA,
		"h_bond_donors":      float64(d.HBondDonors),
		"h_bond_acceptors":   float64(d.HBondAcceptors),
		"rotatable_bonds":    float64(d.RotatableBonds),
		"ring_count":         float64(d.RingCount),
		"aromatic_rings":     float64(d.AromaticRingCount),
		"lipinski_violations": float64(d.LipinskiViolations),
		"qed":                d.QED,
		"bertz_complexity":   d.BertzComplexity,
		"labute_asa":         d.LabuteASA,
	}, nil
}

// MoleculeProperty is a single (molecule, name, source) value row, per
// spec §3's MoleculeProperty entity and invariant I3.
type MoleculeProperty struct {
	MoleculeID common.ID
	Name       string
	Value      any
	Units      string
	Source     PropertySource
	Confidence *float64
	CreatedAt  common.Timestamp
}

// Validate checks MoleculeProperty invariants that do not require a
// PropertyDefinition lookup: a PREDICTED source must carry a confidence in
// [0,1].
func (p *MoleculeProperty) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.InvalidParam("property name cannot be empty")
	}
	if p.Source == SourcePredicted {
		if p.Confidence == nil {
			return errors.New(errors.CodeInvalidPropertyValue, "predicted properties require a confidence value").
				WithDetail("property", p.Name)
		}
		if *p.Confidence < 0 || *p.Confidence > 1 {
			return errors.New(errors.CodeInvalidPropertyValue, "confidence must be in [0,1]").
				WithDetail("property", p.Name)
		}
	}
	return nil
}

// PropertyDefinition declares the type, bounds, and flags for a named
// property, per spec §3. set_property validates candidate values against
// the matching definition.
type PropertyDefinition struct {
	Name          string
	DisplayName   string
	Description   string
	PropertyType  PropertyType
	Category      PropertyCategory
	MinValue      *float64
	MaxValue      *float64
	IsRequired    bool
	IsFilterable  bool
	IsPredictable bool
}

// Validate checks invariant I4: if both bounds are set, MinValue < MaxValue.
func (d *PropertyDefinition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.InvalidParam("property definition name cannot be empty")
	}
	if d.MinValue != nil && d.MaxValue != nil && *d.MinValue >= *d.MaxValue {
		return errors.InvalidParam("min_value must be less than max_value").
			WithDetail("property", d.Name)
	}
	return nil
}

// CheckValue validates value against d's declared type and, for
// numeric/integer types, its [min_value, max_value] bounds. Custom
// properties (name starting with "custom_") have no PropertyDefinition and
// skip this check entirely.
func (d *PropertyDefinition) CheckValue(value any) error {
	switch d.PropertyType {
	case PropertyTypeString:
		if _, ok := value.(string); !ok {
			return errors.InvalidPropertyValue(d.Name, "expected a string value")
		}
	case PropertyTypeBoolean:
		if _, ok := value.(bool); !ok {
			return errors.InvalidPropertyValue(d.Name, "expected a boolean value")
		}
	case PropertyTypeNumeric, PropertyTypeInteger:
		n, ok := toFloat(value)
		if !ok {
			return errors.InvalidPropertyValue(d.Name, "expected a numeric value")
		}
		if d.PropertyType == PropertyTypeInteger && n != float64(int64(n)) {
			return errors.InvalidPropertyValue(d.Name, "expected an integer value")
		}
		if d.MinValue != nil && n < *d.MinValue {
			return errors.InvalidPropertyValue(d.Name, "value below min_value")
		}
		if d.MaxValue != nil && n > *d.MaxValue {
			return errors.InvalidPropertyValue(d.Name, "value above max_value")
		}
	}
	return nil
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// IsCustomProperty reports whether name is a free-form custom property
// (no PropertyDefinition lookup required), per spec §4.4's column-mapping
// validation rule.
func IsCustomProperty(name string) bool {
	return strings.HasPrefix(name, "custom_")
}
