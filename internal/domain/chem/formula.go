package chem

import (
	"fmt"
	"sort"
	"strings"
)

// MolecularFormula returns mol's molecular formula in Hill notation: carbon
// first (if present), hydrogen second (if present), then every other
// element alphabetically, each followed by its count (omitted when 1).
func MolecularFormula(mol *Mol) string {
	counts := elementCounts(mol)
	var sb strings.Builder
	writeElement := func(sym string) {
		if n, ok := counts[sym]; ok && n > 0 {
			sb.WriteString(sym)
			if n > 1 {
				fmt.Fprintf(&sb, "%d", n)
			}
			delete(counts, sym)
		}
	}
	writeElement("C")
	writeElement("H")
	rest := make([]string, 0, len(counts))
	for sym := range counts {
		rest = append(rest, sym)
	}
	sort.Strings(rest)
	for _, sym := range rest {
		writeElement(sym)
	}
	return sb.String()
}

// elementCounts tallies heavy atoms plus implicit and explicit hydrogens.
func elementCounts(mol *Mol) map[string]int {
	counts := make(map[string]int)
	for i, a := range mol.Atoms {
		if a.Symbol == "*" {
			continue
		}
		counts[a.Symbol]++
		counts["H"] += mol.ImplicitHCount(i)
	}
	return counts
}

// MolecularWeight returns the average molecular weight in g/mol, the sum of
// standard atomic weights over every atom (heavy atoms plus hydrogens).
func MolecularWeight(mol *Mol) float64 {
	counts := elementCounts(mol)
	total := 0.0
	for sym, n := range counts {
		w, ok := AtomicWeights[sym]
		if !ok {
			w = 12.0 // unknown element: fall back to carbon-like mass rather than zero
		}
		total += w * float64(n)
	}
	return total
}

// monoisotopicMasses holds the mass of each element's most abundant isotope,
// used by ExactMass.
var monoisotopicMasses = map[string]float64{
	"H": 1.007825, "B": 11.009305, "C": 12.000000, "N": 14.003074,
	"O": 15.994915, "F": 18.998403, "Si": 27.976927, "P": 30.973762,
	"S": 31.972071, "Cl": 34.968853, "Br": 78.918338, "I": 126.904473,
}

// ExactMass returns the monoisotopic mass of mol, the sum of its most
// abundant isotope masses.
func ExactMass(mol *Mol) float64 {
	counts := elementCounts(mol)
	total := 0.0
	for sym, n := range counts {
		m, ok := monoisotopicMasses[sym]
		if !ok {
			m = 12.0
		}
		total += m * float64(n)
	}
	return total
}

// HeavyAtomCount returns the number of non-hydrogen atoms.
func HeavyAtomCount(mol *Mol) int {
	count := 0
	for _, a := range mol.Atoms {
		if a.Symbol != "H" && a.Symbol != "*" {
			count++
		}
	}
	return count
}

// AtomCount returns the total atom count including implicit hydrogens.
func AtomCount(mol *Mol) int {
	total := 0
	for i := range mol.Atoms {
		total++
		total += mol.ImplicitHCount(i)
	}
	return total
}
