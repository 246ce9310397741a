// Package fingerprint implements the Fingerprint Index (C3): persisted,
// per-(molecule, type) fingerprints plus similarity and substructure search
// over them. All fingerprint computation and scoring is delegated to
// internal/domain/chem (the Structure Engine, C1); this package owns
// storage, candidate scanning, pagination, and tie-breaking.
package fingerprint

import (
	"github.com/moldex-io/moldex/internal/domain/chem"
	"github.com/moldex-io/moldex/pkg/types/common"
)

// Record is a persisted fingerprint row keyed by (molecule_id, type), per
// spec §3's Fingerprint entity.
type Record struct {
	MoleculeID common.ID
	Type       chem.FingerprintType
	Params     chem.FingerprintParams
	Data       *chem.Fingerprint
	UpdatedAt  common.Timestamp
}

// Match is one scored hit of a similarity_search call.
type Match struct {
	MoleculeID common.ID
	Score      float64
}

// FromMolecule computes and wraps a Record for mol's SMILES under fpType,
// using chem's default parameters for that type.
func FromMolecule(moleculeID common.ID, smiles string, fpType chem.FingerprintType) (*Record, error) {
	mol, err := chem.ParseSMILES(smiles)
	if err != nil {
		return nil, err
	}
	params := chem.DefaultFingerprintParams(fpType)
	fp, err := chem.CalculateFingerprint(mol, fpType, params)
	if err != nil {
		return nil, err
	}
	return &Record{MoleculeID: moleculeID, Type: fpType, Params: params, Data: fp}, nil
}
