package chem

import (
	"math"
	"math/bits"

	"github.com/moldex-io/moldex/pkg/errors"
)

// SimilarityMetric enumerates every metric spec §4.1 names.
type SimilarityMetric string

const (
	MetricTanimoto    SimilarityMetric = "tanimoto"
	MetricDice        SimilarityMetric = "dice"
	MetricCosine      SimilarityMetric = "cosine"
	MetricSokal       SimilarityMetric = "sokal"
	MetricRussel      SimilarityMetric = "russel"
	MetricKulczynski  SimilarityMetric = "kulczynski"
	MetricMcconnaughey SimilarityMetric = "mcconnaughey"
)

// DefaultMetric is tanimoto per spec §4.1.
const DefaultMetric = MetricTanimoto

// Similarity computes metric between two fingerprints of the same type,
// returning a value in [0,1] per property P8. Sparse fingerprints (atom
// pairs, torsion) are compared by intersecting their sparse key sets;
// dense fingerprints are compared bit-for-bit.
func Similarity(a, b *Fingerprint, metric SimilarityMetric) (float64, error) {
	if a == nil || b == nil {
		return 0, errors.InvalidParam("fingerprints cannot be nil")
	}
	if a.Type != b.Type {
		return 0, errors.InvalidParam("fingerprints must share a type")
	}

	var nA, nB, nAB, nTotal int
	if a.IsSparse() || b.IsSparse() {
		nA, nB, nAB, nTotal = sparseCounts(a, b)
	} else {
		if a.Length != b.Length {
			return 0, errors.InvalidParam("dense fingerprints must share a length")
		}
		nA, nB = a.NumOnBits, b.NumOnBits
		nAB = andPopcount(a.Bits, b.Bits)
		nTotal = a.Length
	}

	switch metric {
	case MetricTanimoto:
		return tanimoto(nA, nB, nAB), nil
	case MetricDice:
		return dice(nA, nB, nAB), nil
	case MetricCosine:
		return cosine(nA, nB, nAB), nil
	case MetricSokal:
		return sokalMichener(nA, nB, nAB, nTotal), nil
	case MetricRussel:
		return russelRao(nAB, nTotal), nil
	case MetricKulczynski:
		return kulczynski(nA, nB, nAB), nil
	case MetricMcconnaughey:
		return mcconnaughey(nA, nB, nAB), nil
	default:
		return 0, errors.InvalidParam("unsupported similarity metric: " + string(metric))
	}
}

func tanimoto(nA, nB, nAB int) float64 {
	if nA == 0 && nB == 0 {
		return 1.0
	}
	union := nA + nB - nAB
	if union == 0 {
		return 0
	}
	return float64(nAB) / float64(union)
}

func dice(nA, nB, nAB int) float64 {
	if nA == 0 && nB == 0 {
		return 1.0
	}
	denom := nA + nB
	if denom == 0 {
		return 0
	}
	return 2 * float64(nAB) / float64(denom)
}

func cosine(nA, nB, nAB int) float64 {
	if nA == 0 || nB == 0 {
		return 0
	}
	return float64(nAB) / (math.Sqrt(float64(nA)) * math.Sqrt(float64(nB)))
}

// sokalMichener includes the shared-absence count (both bits off) in the
// numerator and denominator, unlike Tanimoto/Dice which ignore absences.
func sokalMichener(nA, nB, nAB, total int) float64 {
	if total == 0 {
		return 1.0
	}
	bothOff := total - nA - nB + nAB
	return float64(nAB+bothOff) / float64(total)
}

// russelRao normalizes the intersection by the total bit count rather than
// by the union, penalizing fingerprints with few set bits in common even
// when they agree on most zero bits.
func russelRao(nAB, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(nAB) / float64(total)
}

// kulczynski is the arithmetic mean of the two conditional-probability
// ratios nAB/nA and nAB/nB.
func kulczynski(nA, nB, nAB int) float64 {
	if nA == 0 || nB == 0 {
		if nA == 0 && nB == 0 {
			return 1.0
		}
		return 0
	}
	return 0.5 * (float64(nAB)/float64(nA) + float64(nAB)/float64(nB))
}

// mcconnaughey combines the two conditional ratios additively rather than
// averaging, then rescales into [0,1].
func mcconnaughey(nA, nB, nAB int) float64 {
	if nA == 0 && nB == 0 {
		return 1.0
	}
	if nA == 0 || nB == 0 {
		return 0
	}
	raw := (float64(nAB)/float64(nA) + float64(nAB)/float64(nB) - 1)
	return math.Max(0, math.Min(1, (raw+1)/2))
}

func andPopcount(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	count := 0
	for i := 0; i < n; i++ {
		count += bits.OnesCount8(a[i] & b[i])
	}
	return count
}

func sparseCounts(a, b *Fingerprint) (nA, nB, nAB, nTotal int) {
	for _, c := range a.Sparse {
		if c > 0 {
			nA++
		}
	}
	for _, c := range b.Sparse {
		if c > 0 {
			nB++
		}
	}
	seen := map[int]bool{}
	for k, ca := range a.Sparse {
		seen[k] = true
		if ca > 0 {
			if cb, ok := b.Sparse[k]; ok && cb > 0 {
				nAB++
			}
		}
	}
	for k := range b.Sparse {
		seen[k] = true
	}
	nTotal = len(seen)
	return
}
