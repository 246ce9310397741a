package chem

import (
	"fmt"
	"sort"
	"strings"
)

// canonicalRanks computes a Morgan-style extended-connectivity invariant for
// every atom, iteratively refining each atom's rank from its own properties
// and its neighbors' ranks until the partition stops growing (or a fixed
// iteration cap is hit), then breaks remaining ties deterministically by
// atom index. The result is a stable total order over atoms independent of
// input atom-write order — the basis for both canonical SMILES and InChI's
// connection layer.
func canonicalRanks(m *Mol) []int {
	n := len(m.Atoms)
	if n == 0 {
		return nil
	}
	invariant := make([]int, n)
	for i, a := range m.Atoms {
		invariant[i] = initialInvariant(a, len(a.Neighbors))
	}

	classOf := rankToClass(invariant)
	for iter := 0; iter < n+1; iter++ {
		next := make([]int, n)
		for i := range next {
			neigh := append([]int(nil), m.Atoms[i].Neighbors...)
			sort.Slice(neigh, func(a, b int) bool { return classOf[neigh[a]] < classOf[neigh[b]] })
			parts := make([]string, 0, len(neigh)+1)
			parts = append(parts, fmt.Sprintf("%d", classOf[i]))
			for _, nb := range neigh {
				parts = append(parts, fmt.Sprintf("%d", classOf[nb]))
			}
			next[i] = hashString(strings.Join(parts, "-"))
		}
		newClass := rankToClass(next)
		if countDistinct(newClass) == countDistinct(classOf) {
			classOf = newClass
			break
		}
		classOf = newClass
	}

	// Final deterministic ranking: sort atom indices by (class, index).
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		if classOf[order[a]] != classOf[order[b]] {
			return classOf[order[a]] < classOf[order[b]]
		}
		return order[a] < order[b]
	})
	rank := make([]int, n)
	for pos, atomIdx := range order {
		rank[atomIdx] = pos
	}
	return rank
}

func initialInvariant(a Atom, degree int) int {
	an := AtomicNumbers[a.Symbol]
	arom := 0
	if a.Aromatic {
		arom = 1
	}
	return hashString(fmt.Sprintf("%d-%d-%d-%d-%d", an, degree, a.Charge, arom, a.Isotope))
}

func hashString(s string) int {
	h := 2166136261
	for i := 0; i < len(s); i++ {
		h = (h ^ int(s[i])) * 16777619
	}
	if h < 0 {
		h = -h
	}
	return h
}

func rankToClass(vals []int) []int {
	sorted := append([]int(nil), vals...)
	sort.Ints(sorted)
	classID := make(map[int]int, len(sorted))
	next := 0
	for _, v := range sorted {
		if _, ok := classID[v]; !ok {
			classID[v] = next
			next++
		}
	}
	out := make([]int, len(vals))
	for i, v := range vals {
		out[i] = classID[v]
	}
	return out
}

func countDistinct(vals []int) int {
	seen := make(map[int]bool, len(vals))
	for _, v := range vals {
		seen[v] = true
	}
	return len(seen)
}

// Canonicalize returns the canonical SMILES form of s. Idempotent:
// Canonicalize(Canonicalize(s)) == Canonicalize(s), satisfying property P1.
func Canonicalize(s string) (string, error) {
	mol, err := ParseSMILES(s)
	if err != nil {
		return "", err
	}
	return CanonicalSMILES(mol), nil
}

// CanonicalSMILES serializes mol as canonical SMILES: a depth-first
// traversal starting from the lowest-ranked atom in each connected
// component, always visiting unvisited neighbors in rank order, with ring
// closures numbered in the order they are encountered.
func CanonicalSMILES(m *Mol) string {
	n := len(m.Atoms)
	if n == 0 {
		return ""
	}
	rank := canonicalRanks(m)
	visited := make([]bool, n)

	// order components by the minimum rank of their member atoms
	componentOf := make([]int, n)
	for i := range componentOf {
		componentOf[i] = -1
	}
	var components [][]int
	for i := 0; i < n; i++ {
		if componentOf[i] != -1 {
			continue
		}
		comp := bfsComponent(m, i)
		cid := len(components)
		for _, a := range comp {
			componentOf[a] = cid
		}
		components = append(components, comp)
	}
	sort.Slice(components, func(a, b int) bool {
		return minRank(components[a], rank) < minRank(components[b], rank)
	})

	var fragments []string
	ringCounter := 1
	ringNumberOf := make(map[[2]int]int)
	for _, comp := range components {
		start := comp[0]
		for _, a := range comp {
			if rank[a] < rank[start] {
				start = a
			}
		}
		var sb strings.Builder
		writeDFS(m, start, -1, rank, visited, &sb, ringNumberOf, &ringCounter)
		fragments = append(fragments, sb.String())
	}
	return strings.Join(fragments, ".")
}

func bfsComponent(m *Mol, start int) []int {
	visited := map[int]bool{start: true}
	queue := []int{start}
	var out []int
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur)
		for _, nb := range m.Atoms[cur].Neighbors {
			if !visited[nb] {
				visited[nb] = true
				queue = append(queue, nb)
			}
		}
	}
	return out
}

func minRank(atoms, rank []int) int {
	best := rank[atoms[0]]
	for _, a := range atoms[1:] {
		if rank[a] < best {
			best = rank[a]
		}
	}
	return best
}

func writeDFS(m *Mol, cur, parent int, rank []int, visited []bool, sb *strings.Builder, ringNumberOf map[[2]int]int, ringCounter *int) {
	visited[cur] = true
	sb.WriteString(atomToken(m.Atoms[cur]))

	// ring-closure digits: neighbors already visited that are not the parent
	neigh := append([]int(nil), m.Atoms[cur].Neighbors...)
	sort.Slice(neigh, func(i, j int) bool { return rank[neigh[i]] < rank[neigh[j]] })

	var toVisit []int
	closedHere := map[int]bool{}
	for _, nb := range neigh {
		if nb == parent {
			continue
		}
		if visited[nb] {
			key := orderedPair(cur, nb)
			num, ok := ringNumberOf[key]
			if !ok {
				num = *ringCounter
				*ringCounter++
				ringNumberOf[key] = num
			}
			sb.WriteString(bondToken(bondOrderBetween(m, cur, nb)))
			sb.WriteString(ringDigits(num))
			closedHere[nb] = true
			continue
		}
		toVisit = append(toVisit, nb)
	}

	// Children are rendered first so that ring bonds closed inside them are
	// known; their opening digits are then written right after cur's token.
	// A neighbor reached through an earlier branch is not walked again.
	var sub strings.Builder
	for i, nb := range toVisit {
		if visited[nb] {
			continue
		}
		branch := i < len(toVisit)-1
		if branch {
			sub.WriteString("(")
		}
		sub.WriteString(bondToken(bondOrderBetween(m, cur, nb)))
		writeDFS(m, nb, cur, rank, visited, &sub, ringNumberOf, ringCounter)
		if branch {
			sub.WriteString(")")
		}
	}
	for _, nb := range neigh {
		if num, ok := ringNumberOf[orderedPair(cur, nb)]; ok && !closedHere[nb] {
			sb.WriteString(ringDigits(num))
		}
	}
	sb.WriteString(sub.String())
}

func orderedPair(a, b int) [2]int {
	if a < b {
		return [2]int{a, b}
	}
	return [2]int{b, a}
}

func bondOrderBetween(m *Mol, a, b int) BondOrder {
	for i, nb := range m.Atoms[a].Neighbors {
		if nb == b {
			return m.Atoms[a].BondOrders[i]
		}
	}
	return BondSingle
}

func bondToken(order BondOrder) string {
	switch order {
	case BondDouble:
		return "="
	case BondTriple:
		return "#"
	default:
		return ""
	}
}

func ringDigits(num int) string {
	if num < 10 {
		return fmt.Sprintf("%d", num)
	}
	return fmt.Sprintf("%%%02d", num)
}

func atomToken(a Atom) string {
	sym := a.Symbol
	if a.Aromatic {
		sym = strings.ToLower(sym)
	}
	needsBracket := !organicSubset[a.Symbol] || a.Charge != 0 || a.Isotope != 0 || (a.HCount >= 0 && a.Aromatic)
	if !needsBracket {
		return sym
	}
	var sb strings.Builder
	sb.WriteString("[")
	if a.Isotope > 0 {
		fmt.Fprintf(&sb, "%d", a.Isotope)
	}
	sb.WriteString(sym)
	if a.HCount > 0 {
		sb.WriteString("H")
		if a.HCount > 1 {
			fmt.Fprintf(&sb, "%d", a.HCount)
		}
	}
	if a.Charge != 0 {
		sign := "+"
		if a.Charge < 0 {
			sign = "-"
		}
		n := a.Charge
		if n < 0 {
			n = -n
		}
		sb.WriteString(sign)
		if n > 1 {
			fmt.Fprintf(&sb, "%d", n)
		}
	}
	sb.WriteString("]")
	return sb.String()
}
