// Package chem implements the Structure Engine: SMILES parsing and
// canonicalization, InChI/InChIKey derivation, descriptor calculation,
// fingerprinting, and similarity/substructure primitives. The package is
// pure and stateless — no I/O, no logging, no infrastructure dependency —
// so every other layer can treat it as a deterministic function library,
// per the "one unavoidable external dependency" guidance: everything a
// cheminformatics toolkit would normally provide lives behind this package's
// exported functions and nowhere else.
package chem

import "fmt"

// BondOrder enumerates the chemical bond orders this engine understands.
type BondOrder int

const (
	BondSingle BondOrder = iota
	BondDouble
	BondTriple
	BondAromatic
)

func (b BondOrder) contribution() float64 {
	switch b {
	case BondDouble:
		return 2
	case BondTriple:
		return 3
	case BondAromatic:
		return 1.5
	default:
		return 1
	}
}

// Atom is one vertex of the parsed molecular graph.
type Atom struct {
	Symbol      string
	Aromatic    bool
	Charge      int
	HCount      int // explicit hydrogen count from bracket notation, or -1 if implicit
	Isotope     int
	InRing      bool
	Neighbors   []int // indices into Mol.Atoms
	BondOrders  []BondOrder
	RingBondIdx []int // index into Mol.Bonds for each neighbor, parallel to Neighbors
}

// Bond is one edge of the parsed molecular graph.
type Bond struct {
	A, B  int
	Order BondOrder
}

// Mol is the parsed, in-memory representation of a molecule produced by
// ParseSMILES. It is the Structure Engine's only concrete graph type; every
// other package (molecule, fingerprint, ingestion) interacts with chemistry
// exclusively through functions taking or returning a SMILES string, never
// this struct directly, so Mol's shape can evolve without rippling outward.
type Mol struct {
	Atoms []Atom
	Bonds []Bond
}

// AtomicWeights holds standard atomic weights (g/mol) for the elements this
// engine recognizes. Values are IUPAC 2021 standard atomic weights, given
// to two to four decimal places.
var AtomicWeights = map[string]float64{
	"H": 1.0080, "B": 10.811, "C": 12.011, "N": 14.007, "O": 15.999,
	"F": 18.998, "Si": 28.085, "P": 30.974, "S": 32.06, "Cl": 35.45,
	"As": 74.922, "Se": 78.971, "Br": 79.904, "I": 126.904,
	"Na": 22.990, "K": 39.098, "Li": 6.94, "Mg": 24.305, "Ca": 40.078,
	"Fe": 55.845, "Zn": 65.38, "Cu": 63.546,
}

// AtomicNumbers assigns a canonical sort precedence to elements; used by the
// canonical ranking algorithm (Hill-order adjacent) and Morgan iteration tie
// break.
var AtomicNumbers = map[string]int{
	"H": 1, "Li": 3, "B": 5, "C": 6, "N": 7, "O": 8, "F": 9, "Na": 11,
	"Mg": 12, "Si": 14, "P": 15, "S": 16, "Cl": 17, "K": 19, "Ca": 20,
	"Fe": 26, "Cu": 29, "Zn": 30, "As": 33, "Se": 34, "Br": 35, "I": 53,
}

func defaultValence(symbol string) int {
	switch symbol {
	case "C":
		return 4
	case "N":
		return 3
	case "O":
		return 2
	case "P":
		return 3
	case "S":
		return 2
	case "F", "Cl", "Br", "I", "H":
		return 1
	case "B":
		return 3
	default:
		return 4
	}
}

// degreeWeight is the sum of bond orders incident to an atom, used to derive
// implicit hydrogen counts and, later, descriptor calculations.
func (m *Mol) degreeWeight(idx int) float64 {
	a := &m.Atoms[idx]
	total := 0.0
	for _, ord := range a.BondOrders {
		total += ord.contribution()
	}
	return total
}

// ImplicitHCount returns the number of implicit hydrogens on atom idx,
// derived from its default valence minus the sum of explicit bond orders and
// any charge adjustment, matching the standard SMILES implicit-H convention
// for organic-subset atoms written outside brackets.
func (m *Mol) ImplicitHCount(idx int) int {
	a := &m.Atoms[idx]
	if a.HCount >= 0 {
		return a.HCount
	}
	used := m.degreeWeight(idx)
	valence := defaultValence(a.Symbol)
	if a.Aromatic {
		// aromatic ring atoms contribute one fewer bonding slot already
		// accounted for by the 1.5-order aromatic bonds; no extra offset
		// needed since contribution() already reflects it.
	}
	h := valence - int(used) - a.Charge
	if a.Symbol == "N" && a.Charge > 0 {
		h = valence + a.Charge - int(used)
	}
	if h < 0 {
		h = 0
	}
	return h
}

// String renders a human-readable debug form, not a valid SMILES — use
// Canonicalize or ToSMILES for that.
func (a Atom) String() string {
	return fmt.Sprintf("%s(charge=%d,arom=%v)", a.Symbol, a.Charge, a.Aromatic)
}
