package chem

import "github.com/moldex-io/moldex/pkg/errors"

// HasSubstructure reports whether mol contains patternSMILES as a
// substructure, via backtracking subgraph isomorphism (a simplified VF2):
// match pattern atoms to mol atoms one at a time, extending only through
// mol bonds adjacent to the already-matched subgraph, pruning on element
// and bond-order compatibility. Patterns are themselves parsed as SMILES
// rather than full SMARTS query syntax, which covers the common case of
// substructure queries built from example fragments.
func HasSubstructure(mol *Mol, patternSMILES string) (bool, error) {
	pattern, err := ParseSMILES(patternSMILES)
	if err != nil {
		return false, errors.Wrap(err, errors.CodeInvalidSmiles, "invalid substructure pattern")
	}
	if len(pattern.Atoms) == 0 {
		return false, nil
	}
	if len(pattern.Atoms) > len(mol.Atoms) {
		return false, nil
	}

	// Pattern fingerprint prefilter: if any of the pattern's path/ring bits
	// are absent from the candidate, no match is possible. This mirrors
	// spec §4.3's "MAY prefilter with a substructure fingerprint" guidance.
	// Patterns with a '*' atom skip it: their path bits hash the wildcard
	// symbol itself, which no candidate atom carries.
	wildcard := false
	for _, a := range pattern.Atoms {
		if a.Symbol == "*" {
			wildcard = true
		}
	}
	patternFP := patternFingerprint(pattern, 2048)
	candidateFP := patternFingerprint(mol, 2048)
	if !wildcard && !isSubsetFingerprint(patternFP, candidateFP) {
		return false, nil
	}

	matched := make([]int, len(pattern.Atoms))
	for i := range matched {
		matched[i] = -1
	}
	used := make([]bool, len(mol.Atoms))
	return backtrackMatch(pattern, mol, 0, matched, used), nil
}

func isSubsetFingerprint(sub, super *Fingerprint) bool {
	if sub.Bits == nil || super.Bits == nil || len(sub.Bits) != len(super.Bits) {
		return true // cannot compare: skip the prefilter, fall through to exact match
	}
	for i := range sub.Bits {
		if sub.Bits[i]&^super.Bits[i] != 0 {
			return false
		}
	}
	return true
}

// backtrackMatch attempts to extend a partial mapping pattern atom index →
// mol atom index, trying candidate atoms in mol for pattern atom
// patternIdx, then recursing to the next pattern atom.
func backtrackMatch(pattern, mol *Mol, patternIdx int, matched []int, used []bool) bool {
	if patternIdx == len(pattern.Atoms) {
		return true
	}
	pAtom := pattern.Atoms[patternIdx]

	// Determine candidate mol atoms: if patternIdx has an already-matched
	// neighbor, candidates are that neighbor's unused mol-neighbors (graph
	// connectivity-respecting search); otherwise scan the whole molecule.
	var candidates []int
	anchor := firstMatchedNeighbor(pattern, patternIdx, matched)
	if anchor >= 0 {
		molAnchor := matched[anchor]
		candidates = mol.Atoms[molAnchor].Neighbors
	} else {
		for i := range mol.Atoms {
			candidates = append(candidates, i)
		}
	}

	for _, candidate := range candidates {
		if used[candidate] {
			continue
		}
		if !atomCompatible(pAtom, mol.Atoms[candidate]) {
			continue
		}
		if !bondsCompatible(pattern, mol, patternIdx, candidate, matched) {
			continue
		}
		matched[patternIdx] = candidate
		used[candidate] = true
		if backtrackMatch(pattern, mol, patternIdx+1, matched, used) {
			return true
		}
		matched[patternIdx] = -1
		used[candidate] = false
	}
	return false
}

func firstMatchedNeighbor(pattern *Mol, patternIdx int, matched []int) int {
	for _, nb := range pattern.Atoms[patternIdx].Neighbors {
		if nb < patternIdx && matched[nb] >= 0 {
			return nb
		}
	}
	return -1
}

func atomCompatible(pAtom, mAtom Atom) bool {
	if pAtom.Symbol == "*" {
		return true
	}
	return pAtom.Symbol == mAtom.Symbol && pAtom.Aromatic == mAtom.Aromatic
}

// bondsCompatible verifies that every already-matched pattern neighbor of
// patternIdx has a corresponding bond, of compatible order, to the
// candidate mol atom.
func bondsCompatible(pattern, mol *Mol, patternIdx, candidate int, matched []int) bool {
	for j, nb := range pattern.Atoms[patternIdx].Neighbors {
		if nb >= patternIdx || matched[nb] < 0 {
			continue
		}
		molNb := matched[nb]
		found := false
		for k, mNb := range mol.Atoms[candidate].Neighbors {
			if mNb == molNb {
				if mol.Atoms[candidate].BondOrders[k] == pattern.Atoms[patternIdx].BondOrders[j] {
					found = true
				}
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
