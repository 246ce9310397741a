package chem

import "math"

// Descriptors holds every invariant descriptor spec §4.1 names for a single
// molecule, computed once by CalculateDescriptors and cached by callers
// (the Molecule Store persists a subset of these as CALCULATED properties).
type Descriptors struct {
	LogP              float64
	TPSA              float64
	HBondDonors       int
	HBondAcceptors    int
	RotatableBonds    int
	RingCount         int
	AromaticRingCount int
	LipinskiViolations int
	QED               float64
	BertzComplexity   float64
	Chi0, Chi1, Chi2, Chi3, Chi4 float64
	Kappa1, Kappa2, Kappa3       float64
	LabuteASA         float64
	VSA               []float64 // fixed-width PEOE/SMR/SlogP-style surface-area-contribution bins
}

// CalculateDescriptors computes every descriptor in one pass over mol's
// graph. Ring perception uses the cyclomatic-number approximation (edges −
// vertices + components), which matches SSSR ring counts for the
// overwhelmingly common case of simple fused/bridged small-molecule ring
// systems without relying on a full minimum-cycle-basis solver.
func CalculateDescriptors(mol *Mol) Descriptors {
	d := Descriptors{}
	d.RingCount = ringCount(mol)
	d.AromaticRingCount = aromaticRingCount(mol)
	d.RotatableBonds = rotatableBondCount(mol)
	d.HBondDonors, d.HBondAcceptors = hBondCounts(mol)
	d.LogP = crippenLogP(mol)
	d.TPSA = topologicalPSA(mol)
	mw := MolecularWeight(mol)
	d.LipinskiViolations = lipinskiViolations(mw, d.LogP, d.HBondDonors, d.HBondAcceptors)
	d.Chi0, d.Chi1, d.Chi2, d.Chi3, d.Chi4 = connectivityIndices(mol)
	d.Kappa1, d.Kappa2, d.Kappa3 = kappaShapeIndices(mol)
	d.LabuteASA = labuteASA(mol)
	d.VSA = vsaVector(mol)
	d.BertzComplexity = bertzComplexity(mol)
	d.QED = estimateQED(mw, d.LogP, d.HBondDonors, d.HBondAcceptors, d.TPSA, d.RotatableBonds, d.AromaticRingCount)
	return d
}

func ringCount(mol *Mol) int {
	n := len(mol.Atoms)
	if n == 0 {
		return 0
	}
	e := len(mol.Bonds)
	components := countComponents(mol)
	circuitRank := e - n + components
	if circuitRank < 0 {
		return 0
	}
	return circuitRank
}

func countComponents(mol *Mol) int {
	n := len(mol.Atoms)
	visited := make([]bool, n)
	count := 0
	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		count++
		stack := []int{i}
		visited[i] = true
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, nb := range mol.Atoms[cur].Neighbors {
				if !visited[nb] {
					visited[nb] = true
					stack = append(stack, nb)
				}
			}
		}
	}
	return count
}

func aromaticRingCount(mol *Mol) int {
	// Build the subgraph induced by aromatic atoms/bonds and apply the same
	// cyclomatic-number approximation restricted to that subgraph.
	aromaticAtoms := map[int]bool{}
	for i, a := range mol.Atoms {
		if a.Aromatic {
			aromaticAtoms[i] = true
		}
	}
	if len(aromaticAtoms) == 0 {
		return 0
	}
	edges := 0
	for _, b := range mol.Bonds {
		if aromaticAtoms[b.A] && aromaticAtoms[b.B] {
			edges++
		}
	}
	visited := map[int]bool{}
	components := 0
	for a := range aromaticAtoms {
		if visited[a] {
			continue
		}
		components++
		stack := []int{a}
		visited[a] = true
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, nb := range mol.Atoms[cur].Neighbors {
				if aromaticAtoms[nb] && !visited[nb] {
					visited[nb] = true
					stack = append(stack, nb)
				}
			}
		}
	}
	rank := edges - len(aromaticAtoms) + components
	if rank < 0 {
		return 0
	}
	return rank
}

func rotatableBondCount(mol *Mol) int {
	inRingBond := make(map[[2]int]bool)
	if ringCount(mol) > 0 {
		for _, b := range mol.Bonds {
			if mol.Atoms[b.A].InRing && mol.Atoms[b.B].InRing {
				inRingBond[orderedPair(b.A, b.B)] = true
			}
		}
	}
	count := 0
	for _, b := range mol.Bonds {
		if b.Order != BondSingle {
			continue
		}
		if inRingBond[orderedPair(b.A, b.B)] {
			continue
		}
		degA := len(mol.Atoms[b.A].Neighbors)
		degB := len(mol.Atoms[b.B].Neighbors)
		if degA > 1 && degB > 1 {
			count++
		}
	}
	return count
}

func hBondCounts(mol *Mol) (donors, acceptors int) {
	for i, a := range mol.Atoms {
		if a.Symbol != "N" && a.Symbol != "O" {
			continue
		}
		acceptors++
		if mol.ImplicitHCount(i) > 0 {
			donors++
		}
	}
	return donors, acceptors
}

// crippenLogP approximates the Wildman-Crippen atomic contribution method
// with a coarse per-element/per-environment contribution table rather than
// RDKit's full ~70-pattern SMARTS atom-typing.
func crippenLogP(mol *Mol) float64 {
	total := 0.0
	for i, a := range mol.Atoms {
		h := mol.ImplicitHCount(i)
		switch a.Symbol {
		case "C":
			if a.Aromatic {
				total += 0.296
			} else {
				total += 0.137
			}
		case "N":
			total -= 0.50
		case "O":
			if h > 0 {
				total -= 0.26 // hydroxyl-like
			} else {
				total -= 0.15
			}
		case "F":
			total += 0.20
		case "Cl":
			total += 0.65
		case "Br":
			total += 0.85
		case "I":
			total += 1.10
		case "S":
			total += 0.30
		case "P":
			total += 0.20
		}
		total += float64(h) * 0.123
	}
	return total
}

// topologicalPSA approximates Ertl's TPSA using per-atom-type fragment
// contributions for the nitrogen/oxygen types it covers.
func topologicalPSA(mol *Mol) float64 {
	total := 0.0
	for i, a := range mol.Atoms {
		h := mol.ImplicitHCount(i)
		deg := len(a.Neighbors)
		switch a.Symbol {
		case "N":
			switch {
			case a.Aromatic:
				total += 12.89
			case deg == 1 && h == 2:
				total += 26.02 // primary amine
			case deg == 2 && h == 1:
				total += 12.03 // secondary amine
			case deg == 3 && h == 0:
				total += 3.24 // tertiary amine
			default:
				total += 12.36
			}
		case "O":
			switch {
			case deg == 1 && h == 1:
				total += 20.23 // hydroxyl
			case deg == 1 && h == 0:
				total += 17.07 // carbonyl
			case deg == 2:
				total += 9.23 // ether
			default:
				total += 13.14
			}
		}
	}
	return total
}

func lipinskiViolations(mw, logp float64, donors, acceptors int) int {
	violations := 0
	if mw > 500 {
		violations++
	}
	if logp > 5 {
		violations++
	}
	if donors > 5 {
		violations++
	}
	if acceptors > 10 {
		violations++
	}
	return violations
}

// connectivityIndices computes the Randić-family Chi0..Chi4 molecular
// connectivity indices from vertex degrees (Chi0, Chi1) and enumerated
// paths of length 2-4 (Chi2-Chi4), using the standard delta = 1/sqrt(degree)
// bond/path contribution.
func connectivityIndices(mol *Mol) (chi0, chi1, chi2, chi3, chi4 float64) {
	n := len(mol.Atoms)
	delta := make([]float64, n)
	for i, a := range mol.Atoms {
		deg := len(a.Neighbors)
		if deg == 0 {
			delta[i] = 0
		} else {
			delta[i] = 1 / math.Sqrt(float64(deg))
		}
		chi0 += delta[i]
	}
	for _, b := range mol.Bonds {
		chi1 += delta[b.A] * delta[b.B]
	}
	paths2 := enumeratePaths(mol, 2)
	paths3 := enumeratePaths(mol, 3)
	paths4 := enumeratePaths(mol, 4)
	chi2 = pathProductSum(paths2, delta)
	chi3 = pathProductSum(paths3, delta)
	chi4 = pathProductSum(paths4, delta)
	return
}

func pathProductSum(paths [][]int, delta []float64) float64 {
	total := 0.0
	for _, path := range paths {
		product := 1.0
		for _, atom := range path {
			product *= delta[atom]
		}
		total += product
	}
	return total
}

// enumeratePaths returns every simple path of exactly length+1 atoms
// (length bonds), counted once per direction-independent path (smaller
// endpoint listed first) to avoid double counting.
func enumeratePaths(mol *Mol, length int) [][]int {
	var out [][]int
	n := len(mol.Atoms)
	var dfs func(path []int, visited map[int]bool)
	dfs = func(path []int, visited map[int]bool) {
		if len(path) == length+1 {
			if path[0] < path[len(path)-1] {
				cp := append([]int(nil), path...)
				out = append(out, cp)
			}
			return
		}
		last := path[len(path)-1]
		for _, nb := range mol.Atoms[last].Neighbors {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			dfs(append(path, nb), visited)
			visited[nb] = false
		}
	}
	for i := 0; i < n; i++ {
		dfs([]int{i}, map[int]bool{i: true})
	}
	return out
}

// kappaShapeIndices computes the Hall-Kier kappa1-3 molecular shape indices
// from heavy-atom count and path counts of length 1-3.
func kappaShapeIndices(mol *Mol) (k1, k2, k3 float64) {
	a := float64(HeavyAtomCount(mol))
	if a < 1 {
		return 0, 0, 0
	}
	p1 := float64(len(mol.Bonds))
	p2 := float64(len(enumeratePaths(mol, 2)))
	p3 := float64(len(enumeratePaths(mol, 3)))
	if p1 > 0 {
		k1 = a * (a - 1) * (a - 1) / (p1 * p1)
	}
	if p2 > 0 {
		k2 = (a - 1) * (a - 2) * (a - 2) / (p2 * p2)
	}
	if p3 > 0 {
		if int(a)%2 == 1 {
			k3 = (a - 1) * (a - 3) * (a - 3) / (p3 * p3)
		} else {
			k3 = (a - 3) * (a - 2) * (a - 2) / (p3 * p3)
		}
	}
	return
}

// labuteASA approximates Labute's Approximate Surface Area using per-atom
// van der Waals contribution scaled by connectivity, summed over all atoms
// including implicit hydrogens.
func labuteASA(mol *Mol) float64 {
	vdwRadius := map[string]float64{
		"H": 1.20, "C": 1.70, "N": 1.55, "O": 1.52, "F": 1.47,
		"P": 1.80, "S": 1.80, "Cl": 1.75, "Br": 1.85, "I": 1.98,
	}
	total := 0.0
	for i, a := range mol.Atoms {
		r, ok := vdwRadius[a.Symbol]
		if !ok {
			r = 1.70
		}
		area := 4 * math.Pi * r * r
		deg := float64(len(a.Neighbors))
		total += area / (1 + 0.3*deg)

		h := mol.ImplicitHCount(i)
		if h > 0 {
			hr := vdwRadius["H"]
			total += float64(h) * 4 * math.Pi * hr * hr / 1.3
		}
	}
	return total / 10 // normalize to the Å² order of magnitude RDKit reports
}

// vsaVector buckets each atom's approximate surface-area contribution into
// 12 bins keyed by a coarse LogP-contribution range, the same spirit as the
// SlogP_VSA/SMR_VSA/PEOE_VSA descriptor families (fixed-width histograms of
// atomic contributions rather than a single scalar).
func vsaVector(mol *Mol) []float64 {
	const bins = 12
	vec := make([]float64, bins)
	contributions := atomLogPContributions(mol)
	for i := range mol.Atoms {
		contrib := contributions[i]
		bin := vsaBinIndex(contrib, bins)
		r := 1.70
		area := 4 * math.Pi * r * r / 10
		vec[bin] += area
	}
	return vec
}

func atomLogPContributions(mol *Mol) []float64 {
	out := make([]float64, len(mol.Atoms))
	for i, a := range mol.Atoms {
		switch a.Symbol {
		case "C":
			out[i] = 0.14
		case "N":
			out[i] = -0.50
		case "O":
			out[i] = -0.20
		case "S":
			out[i] = 0.30
		default:
			out[i] = 0.10
		}
	}
	return out
}

func vsaBinIndex(contrib float64, bins int) int {
	// map contrib roughly in [-1, 1] to [0, bins-1]
	normalized := (contrib + 1) / 2
	idx := int(normalized * float64(bins))
	if idx < 0 {
		idx = 0
	}
	if idx >= bins {
		idx = bins - 1
	}
	return idx
}

// bertzComplexity approximates the Bertz molecular complexity index as the
// Shannon entropy of the atom-equivalence-class partition (from
// canonicalRanks' convergence) weighted by bond count, capturing both
// structural size and the "how many distinguishable environments" notion
// the original Bertz CT index targets.
func bertzComplexity(mol *Mol) float64 {
	n := len(mol.Atoms)
	if n == 0 {
		return 0
	}
	classes := equivalenceClasses(mol)
	classSize := make(map[int]int)
	for _, c := range classes {
		classSize[c]++
	}
	entropy := 0.0
	for _, size := range classSize {
		p := float64(size) / float64(n)
		entropy -= p * math.Log2(p)
	}
	bonds := float64(len(mol.Bonds))
	return bonds * (entropy + 1) * math.Log2(float64(n)+1)
}

func equivalenceClasses(mol *Mol) []int {
	return rankToClass(canonicalRanks(mol))
}

// estimateQED approximates the Quantitative Estimate of Drug-likeness as a
// geometric mean of individual desirability scores (each mapped to [0,1] by
// a symmetric logistic falloff around a property-specific ideal), in the
// spirit of Bickerton et al.'s ADS composition without their fitted
// per-property spline coefficients.
func estimateQED(mw, logp float64, hbd, hba int, tpsa float64, rotb, aromaticRings int) float64 {
	desirability := func(value, ideal, width float64) float64 {
		z := (value - ideal) / width
		return 1 / (1 + z*z)
	}
	scores := []float64{
		desirability(mw, 300, 150),
		desirability(logp, 2.5, 2.0),
		desirability(float64(hbd), 2, 2.5),
		desirability(float64(hba), 5, 4),
		desirability(tpsa, 70, 40),
		desirability(float64(rotb), 5, 4),
		desirability(float64(aromaticRings), 2, 1.5),
	}
	product := 1.0
	for _, s := range scores {
		if s <= 0 {
			return 0
		}
		product *= s
	}
	return math.Pow(product, 1.0/float64(len(scores)))
}
