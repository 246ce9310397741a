package opensearch

import (
	"context"

	domainMol "github.com/moldex-io/moldex/internal/domain/molecule"
	"github.com/moldex-io/moldex/pkg/types/common"
)

// moleculeDocument is the OpenSearch document shape for a molecule, matched
// against MoleculeIndexMapping's field set.
type moleculeDocument struct {
	SMILES           string  `json:"smiles"`
	InChIKey         string  `json:"inchi_key"`
	MolecularFormula string  `json:"molecular_formula"`
	MolecularWeight  float64 `json:"molecular_weight"`
}

// MoleculeIndex adapts an Indexer to domain/molecule.SearchIndex, publishing
// committed molecules to a fixed index name so free-text search (by SMILES
// fragment or formula) can run against OpenSearch instead of a Postgres
// ILIKE scan.
type MoleculeIndex struct {
	indexer   *Indexer
	indexName string
}

// NewMoleculeIndex constructs a MoleculeIndex publishing to indexName.
func NewMoleculeIndex(indexer *Indexer, indexName string) *MoleculeIndex {
	return &MoleculeIndex{indexer: indexer, indexName: indexName}
}

// IndexMolecule upserts mol's document.
func (m *MoleculeIndex) IndexMolecule(ctx context.Context, mol *domainMol.Molecule) error {
	doc := moleculeDocument{
		SMILES:           mol.SMILES,
		InChIKey:         mol.InChIKey,
		MolecularFormula: mol.Formula,
		MolecularWeight:  mol.MolecularWeight,
	}
	return m.indexer.IndexDocument(ctx, m.indexName, mol.ID.String(), doc)
}

// DeleteMolecule removes id's document, tolerating one that was never
// published.
func (m *MoleculeIndex) DeleteMolecule(ctx context.Context, id common.ID) error {
	if err := m.indexer.DeleteDocument(ctx, m.indexName, id.String()); err != nil && err != ErrDocumentNotFound {
		return err
	}
	return nil
}
