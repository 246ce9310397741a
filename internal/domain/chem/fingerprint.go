package chem

import (
	"crypto/sha256"
	"encoding/binary"
	"math/bits"
	"sort"

	"github.com/moldex-io/moldex/pkg/errors"
)

// FingerprintType enumerates every fingerprint kind this engine computes,
// matching the Fingerprint entity's fingerprint_type enum in spec §3.
type FingerprintType string

const (
	FPMorgan    FingerprintType = "morgan"
	FPMACCS     FingerprintType = "maccs"
	FPRDKit     FingerprintType = "rdkit" // path-based, a la RDKitFingerprint
	FPPattern   FingerprintType = "pattern"
	FPLayered   FingerprintType = "layered"
	FPAtomPairs FingerprintType = "atom_pairs"
	FPTorsion   FingerprintType = "torsion"
)

// AllFingerprintTypes lists every supported type, in the order C3 computes
// them when a molecule is first stored.
var AllFingerprintTypes = []FingerprintType{
	FPMorgan, FPMACCS, FPRDKit, FPPattern, FPLayered, FPAtomPairs, FPTorsion,
}

// FingerprintParams carries the type-specific parameters named in spec
// §4.1: Morgan {radius, n_bits}, RDKit path {min_path, max_path, n_bits}.
// Zero values are replaced by DefaultFingerprintParams for the given type.
type FingerprintParams struct {
	Radius  int
	NBits   int
	MinPath int
	MaxPath int
}

// DefaultFingerprintParams returns the default parameters for fpType per
// spec §4.1.
func DefaultFingerprintParams(fpType FingerprintType) FingerprintParams {
	switch fpType {
	case FPRDKit:
		return FingerprintParams{MinPath: 1, MaxPath: 7, NBits: 2048}
	case FPMorgan, FPLayered:
		return FingerprintParams{Radius: 2, NBits: 2048}
	case FPPattern:
		return FingerprintParams{NBits: 2048}
	default:
		return FingerprintParams{}
	}
}

// Fingerprint is either a dense packed bit vector (Bits non-nil) or a
// sparse integer vector (Sparse non-nil), matching spec §3's "serialized
// bit vector or sparse int vector" data shape. Exactly one of the two is
// populated for any given instance.
type Fingerprint struct {
	Type      FingerprintType
	Bits      []byte
	Length    int
	Sparse    map[int]int
	NumOnBits int
}

// IsSparse reports whether fp is a sparse int-vector fingerprint.
func (fp *Fingerprint) IsSparse() bool { return fp.Sparse != nil }

func newDenseFingerprint(fpType FingerprintType, bits_ []byte, length int) *Fingerprint {
	return &Fingerprint{Type: fpType, Bits: bits_, Length: length, NumOnBits: popcountBytes(bits_)}
}

func newSparseFingerprint(fpType FingerprintType, sparse map[int]int) *Fingerprint {
	on := 0
	for _, c := range sparse {
		if c > 0 {
			on++
		}
	}
	return &Fingerprint{Type: fpType, Sparse: sparse, NumOnBits: on}
}

// GetBit reports whether bit index is set in a dense fingerprint.
func (fp *Fingerprint) GetBit(index int) bool {
	if fp.Bits == nil || index < 0 || index >= fp.Length {
		return false
	}
	return fp.Bits[index/8]&(1<<uint(index%8)) != 0
}

func setBit(data []byte, index int) {
	data[index/8] |= 1 << uint(index%8)
}

func popcountBytes(data []byte) int {
	n := 0
	for _, b := range data {
		n += bits.OnesCount8(b)
	}
	return n
}

// CalculateFingerprint dispatches to the algorithm for fpType, applying
// DefaultFingerprintParams for any zero field in params.
func CalculateFingerprint(mol *Mol, fpType FingerprintType, params FingerprintParams) (*Fingerprint, error) {
	defaults := DefaultFingerprintParams(fpType)
	if params.NBits == 0 {
		params.NBits = defaults.NBits
	}
	if params.Radius == 0 {
		params.Radius = defaults.Radius
	}
	if params.MinPath == 0 {
		params.MinPath = defaults.MinPath
	}
	if params.MaxPath == 0 {
		params.MaxPath = defaults.MaxPath
	}

	switch fpType {
	case FPMorgan:
		return morganFingerprint(mol, params.Radius, params.NBits), nil
	case FPMACCS:
		return maccsFingerprint(mol), nil
	case FPRDKit:
		return pathFingerprint(mol, FPRDKit, params.MinPath, params.MaxPath, params.NBits), nil
	case FPPattern:
		return patternFingerprint(mol, params.NBits), nil
	case FPLayered:
		return layeredFingerprint(mol, params.Radius, params.NBits), nil
	case FPAtomPairs:
		return atomPairsFingerprint(mol), nil
	case FPTorsion:
		return torsionFingerprint(mol), nil
	default:
		return nil, errors.New(errors.CodeFingerprintError, "unsupported fingerprint type: "+string(fpType))
	}
}

func hash64(parts ...string) uint64 {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}

// ─────────────────────────────────────────────────────────────────────────────
// Morgan / circular (ECFP-style)
// ─────────────────────────────────────────────────────────────────────────────

// morganFingerprint implements the real Morgan/ECFP algorithm: each atom
// starts with an invariant (element, degree, charge, aromaticity, H count),
// then for radius iterations every atom's code is rehashed from its own
// code plus its neighbors' codes (sorted, bond-order-tagged). Every
// distinct code seen at every radius folds a bit into the vector, matching
// ECFP's "accumulate across all radii" semantics.
func morganFingerprint(mol *Mol, radius, nBits int) *Fingerprint {
	n := len(mol.Atoms)
	data := make([]byte, (nBits+7)/8)
	if n == 0 {
		return newDenseFingerprint(FPMorgan, data, nBits)
	}

	codes := make([]uint64, n)
	for i, a := range mol.Atoms {
		codes[i] = hash64(a.Symbol, itoa(len(a.Neighbors)), itoa(a.Charge), boolStr(a.Aromatic), itoa(mol.ImplicitHCount(i)))
		setBit(data, int(codes[i]%uint64(nBits)))
	}

	for r := 1; r <= radius; r++ {
		next := make([]uint64, n)
		for i := range codes {
			neighCodes := make([]uint64, 0, len(mol.Atoms[i].Neighbors))
			for j, nb := range mol.Atoms[i].Neighbors {
				neighCodes = append(neighCodes, hash64(itoa64(codes[nb]), itoa(int(mol.Atoms[i].BondOrders[j]))))
			}
			sort.Slice(neighCodes, func(a, b int) bool { return neighCodes[a] < neighCodes[b] })
			parts := []string{itoa64(codes[i]), itoa(r)}
			for _, c := range neighCodes {
				parts = append(parts, itoa64(c))
			}
			next[i] = hash64(parts...)
			setBit(data, int(next[i]%uint64(nBits)))
		}
		codes = next
	}
	return newDenseFingerprint(FPMorgan, data, nBits)
}

// ─────────────────────────────────────────────────────────────────────────────
// RDKit-style path fingerprint
// ─────────────────────────────────────────────────────────────────────────────

// pathFingerprint enumerates every simple path with length in [minPath,
// maxPath] bonds and hashes each into the bit vector, matching the
// "RDKitFingerprint" path-based algorithm's documented behavior.
func pathFingerprint(mol *Mol, fpType FingerprintType, minPath, maxPath, nBits int) *Fingerprint {
	data := make([]byte, (nBits+7)/8)
	for length := minPath; length <= maxPath; length++ {
		for _, path := range enumeratePaths(mol, length) {
			h := hashPathAtoms(mol, path)
			setBit(data, int(h%uint64(nBits)))
		}
	}
	return newDenseFingerprint(fpType, data, nBits)
}

func hashPathAtoms(mol *Mol, path []int) uint64 {
	parts := make([]string, 0, len(path)*2)
	for i, atomIdx := range path {
		parts = append(parts, mol.Atoms[atomIdx].Symbol)
		if i > 0 {
			parts = append(parts, itoa(int(bondOrderBetween(mol, path[i-1], atomIdx))))
		}
	}
	return hash64(parts...)
}

// ─────────────────────────────────────────────────────────────────────────────
// Pattern fingerprint (substructure-search prefilter)
// ─────────────────────────────────────────────────────────────────────────────

// patternFingerprint folds ring-membership and short-path environment bits
// so that, per spec §4.3, it can prefilter substructure search candidates:
// if query's pattern fingerprint bits are not a subset of a candidate's,
// the candidate cannot contain the query substructure.
func patternFingerprint(mol *Mol, nBits int) *Fingerprint {
	data := make([]byte, (nBits+7)/8)
	for length := 1; length <= 4; length++ {
		for _, path := range enumeratePaths(mol, length) {
			h := hashPathAtoms(mol, path)
			setBit(data, int(h%uint64(nBits)))
		}
	}
	for _, a := range mol.Atoms {
		if a.InRing {
			h := hash64("ring")
			setBit(data, int(h%uint64(nBits)))
		}
	}
	return newDenseFingerprint(FPPattern, data, nBits)
}

// ─────────────────────────────────────────────────────────────────────────────
// Layered fingerprint
// ─────────────────────────────────────────────────────────────────────────────

// layeredFingerprint is Morgan-like but hashes each radius "shell"
// (neighbors at exactly distance r, not the full accumulated environment)
// independently into its own layer before folding into one bit vector,
// giving a different bit distribution than plain Morgan for the same
// molecule — useful as a second, decorrelated similarity signal.
func layeredFingerprint(mol *Mol, radius, nBits int) *Fingerprint {
	data := make([]byte, (nBits+7)/8)
	n := len(mol.Atoms)
	for start := 0; start < n; start++ {
		shell := map[int]bool{start: true}
		frontier := []int{start}
		for r := 1; r <= radius; r++ {
			var next []int
			for _, cur := range frontier {
				for _, nb := range mol.Atoms[cur].Neighbors {
					if !shell[nb] {
						shell[nb] = true
						next = append(next, nb)
					}
				}
			}
			if len(next) == 0 {
				break
			}
			syms := make([]string, 0, len(next))
			for _, a := range next {
				syms = append(syms, mol.Atoms[a].Symbol)
			}
			sort.Strings(syms)
			parts := append([]string{mol.Atoms[start].Symbol, itoa(r)}, syms...)
			h := hash64(parts...)
			setBit(data, int(h%uint64(nBits)))
			frontier = next
		}
	}
	return newDenseFingerprint(FPLayered, data, nBits)
}

// ─────────────────────────────────────────────────────────────────────────────
// Atom pairs (sparse)
// ─────────────────────────────────────────────────────────────────────────────

// atomPairsFingerprint produces a sparse int vector keyed by a hash of
// (element_i, element_j, topological distance) for every atom pair,
// counting repeated occurrences of the same key.
func atomPairsFingerprint(mol *Mol) *Fingerprint {
	dist := allPairsShortestPath(mol)
	sparse := make(map[int]int)
	n := len(mol.Atoms)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := dist[i][j]
			if d <= 0 {
				continue
			}
			symA, symB := mol.Atoms[i].Symbol, mol.Atoms[j].Symbol
			if symA > symB {
				symA, symB = symB, symA
			}
			key := int(hash64(symA, symB, itoa(d)) % (1 << 20))
			sparse[key]++
		}
	}
	return newSparseFingerprint(FPAtomPairs, sparse)
}

// ─────────────────────────────────────────────────────────────────────────────
// Torsion (sparse)
// ─────────────────────────────────────────────────────────────────────────────

// torsionFingerprint produces a sparse int vector keyed by a hash of every
// 4-atom path's element sequence (a topological torsion descriptor).
func torsionFingerprint(mol *Mol) *Fingerprint {
	sparse := make(map[int]int)
	for _, path := range enumeratePaths(mol, 3) { // 4 atoms, 3 bonds
		syms := make([]string, len(path))
		for i, a := range path {
			syms[i] = mol.Atoms[a].Symbol
		}
		// canonicalize direction so a path and its reverse hash identically
		if len(syms) > 0 && syms[0] > syms[len(syms)-1] {
			for l, r := 0, len(syms)-1; l < r; l, r = l+1, r-1 {
				syms[l], syms[r] = syms[r], syms[l]
			}
		}
		parts := make([]string, len(syms))
		copy(parts, syms)
		key := int(hash64(parts...) % (1 << 20))
		sparse[key]++
	}
	return newSparseFingerprint(FPTorsion, sparse)
}

func allPairsShortestPath(mol *Mol) [][]int {
	n := len(mol.Atoms)
	dist := make([][]int, n)
	for i := range dist {
		dist[i] = make([]int, n)
		for j := range dist[i] {
			if i == j {
				dist[i][j] = 0
			} else {
				dist[i][j] = -1
			}
		}
	}
	for i := 0; i < n; i++ {
		visited := make([]bool, n)
		visited[i] = true
		queue := []int{i}
		d := 0
		for len(queue) > 0 {
			d++
			var next []int
			for _, cur := range queue {
				for _, nb := range mol.Atoms[cur].Neighbors {
					if !visited[nb] {
						visited[nb] = true
						dist[i][nb] = d
						next = append(next, nb)
					}
				}
			}
			queue = next
		}
	}
	return dist
}

// ─────────────────────────────────────────────────────────────────────────────
// MACCS keys (166 structural keys, simplified subset)
// ─────────────────────────────────────────────────────────────────────────────

// maccsFingerprint checks a reduced set of the 166 public MACCS key
// definitions against the parsed graph (element presence, ring membership,
// simple functional-group adjacency) rather than the full SMARTS key table.
func maccsFingerprint(mol *Mol) *Fingerprint {
	const nBits = 166
	data := make([]byte, (nBits+7)/8)

	elementCount := map[string]int{}
	for _, a := range mol.Atoms {
		elementCount[a.Symbol]++
	}
	setIf := func(bit int, cond bool) {
		if cond {
			setBit(data, bit)
		}
	}
	setIf(20, elementCount["N"] > 0)
	setIf(21, elementCount["O"] > 0)
	setIf(22, elementCount["S"] > 0)
	setIf(23, elementCount["F"] > 0)
	setIf(24, elementCount["Cl"] > 0)
	setIf(25, elementCount["Br"] > 0)
	setIf(26, elementCount["I"] > 0)
	setIf(27, elementCount["P"] > 0)
	setIf(40, aromaticRingCount(mol) > 0)
	setIf(41, aromaticRingCount(mol) > 1)
	setIf(42, ringCount(mol) > 0)
	setIf(43, ringCount(mol) > 2)

	for i, a := range mol.Atoms {
		h := mol.ImplicitHCount(i)
		if a.Symbol == "O" && len(a.Neighbors) == 1 {
			for _, bOrd := range a.BondOrders {
				if bOrd == BondDouble {
					setBit(data, 30) // carbonyl
				}
			}
			if h > 0 {
				setBit(data, 35) // hydroxyl
			}
		}
		if a.Symbol == "N" && h >= 1 && len(a.Neighbors) == 1 {
			setBit(data, 34) // primary amine
		}
		if a.Symbol == "C" {
			for j, bOrd := range a.BondOrders {
				nb := a.Neighbors[j]
				if bOrd == BondTriple && mol.Atoms[nb].Symbol == "N" {
					setBit(data, 33) // nitrile
				}
			}
		}
	}

	heavy := HeavyAtomCount(mol)
	setIf(50, heavy > 5)
	setIf(51, heavy > 10)
	setIf(52, heavy > 20)
	setIf(53, heavy > 40)

	return newDenseFingerprint(FPMACCS, data, nBits)
}

func itoa(n int) string   { return itoa64(uint64(int64(n))) }
func itoa64(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
func boolStr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
