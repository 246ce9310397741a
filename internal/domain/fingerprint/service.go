package fingerprint

import (
	"context"
	"sort"

	"github.com/moldex-io/moldex/internal/domain/chem"
	"github.com/moldex-io/moldex/internal/platform/logging"
	"github.com/moldex-io/moldex/pkg/types/common"
)

// Service is the Fingerprint Index domain service.
type Service struct {
	repo      Repository
	molecules MoleculeLookup
	logger    logging.Logger

	index          Index
	indexThreshold int
}

// NewService constructs a Service over repo, resolving candidate SMILES
// through molecules.
func NewService(repo Repository, molecules MoleculeLookup, logger logging.Logger) *Service {
	return &Service{repo: repo, molecules: molecules, logger: logger}
}

// UseIndex wires an ANN acceleration path into SimilaritySearch: once the
// stored population of a given fpType passes threshold, Count is queried and
// Search is tried before falling back to the brute-force scan.
func (s *Service) UseIndex(index Index, threshold int) {
	s.index = index
	s.indexThreshold = threshold
}

// Put computes and upserts the fingerprint for moleculeID's current smiles
// under fpType.
func (s *Service) Put(ctx context.Context, moleculeID common.ID, smiles string, fpType chem.FingerprintType) (*Record, error) {
	record, err := FromMolecule(moleculeID, smiles, fpType)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Put(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Get retrieves the fingerprint stored for (moleculeID, fpType).
func (s *Service) Get(ctx context.Context, moleculeID common.ID, fpType chem.FingerprintType) (*Record, error) {
	return s.repo.Get(ctx, moleculeID, fpType)
}

// Invalidate drops every fingerprint cached for moleculeID. The Molecule
// Store calls this after a SMILES change, per invariant I5.
func (s *Service) Invalidate(ctx context.Context, moleculeID common.ID) error {
	return s.repo.Delete(ctx, moleculeID)
}

// SimilaritySearch computes the query fingerprint for querySMILES, scans
// every stored fingerprint of fpType, scores each against the query with
// metric, keeps those with score >= threshold, and returns them sorted by
// score descending, ties broken by molecule id ascending, per spec §4.3.
func (s *Service) SimilaritySearch(ctx context.Context, querySMILES string, fpType chem.FingerprintType, metric chem.SimilarityMetric, threshold float64, page common.PageRequest) (common.PageResponse[Match], error) {
	page.Normalize()

	queryMol, err := chem.ParseSMILES(querySMILES)
	if err != nil {
		return common.PageResponse[Match]{}, err
	}
	params := chem.DefaultFingerprintParams(fpType)
	queryFP, err := chem.CalculateFingerprint(queryMol, fpType, params)
	if err != nil {
		return common.PageResponse[Match]{}, err
	}

	matches, err := s.searchViaIndex(ctx, queryFP, fpType, metric, threshold, page)
	if err != nil {
		return common.PageResponse[Match]{}, err
	}
	if matches == nil {
		matches, err = s.scanForMatches(ctx, queryFP, fpType, metric, threshold)
		if err != nil {
			return common.PageResponse[Match]{}, err
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].MoleculeID < matches[j].MoleculeID
	})

	return paginateMatches(matches, page), nil
}

// searchViaIndex tries the ANN acceleration path, returning nil matches (not
// an error) when no index is wired or the stored population doesn't warrant
// it, so the caller falls back to scanForMatches.
func (s *Service) searchViaIndex(ctx context.Context, queryFP *chem.Fingerprint, fpType chem.FingerprintType, metric chem.SimilarityMetric, threshold float64, page common.PageRequest) ([]Match, error) {
	if s.index == nil || s.indexThreshold <= 0 {
		return nil, nil
	}
	count, err := s.index.Count(ctx, fpType)
	if err != nil || count < s.indexThreshold {
		return nil, nil
	}

	topK := page.Offset() + page.PageSize
	if topK < 1 {
		topK = page.PageSize
	}
	hits, err := s.index.Search(ctx, queryFP, topK)
	if err != nil {
		s.logger.Warn("fingerprint index search failed, falling back to scan", logging.Err(err))
		return nil, nil
	}

	matches := make([]Match, 0, len(hits))
	for _, hit := range hits {
		if hit.Score >= threshold {
			matches = append(matches, hit)
		}
	}
	return matches, nil
}

// scanForMatches is the brute-force candidate scan: the system of record for
// SimilaritySearch, used directly when no index is wired and as the fallback
// when the index is unavailable or under the acceleration threshold.
func (s *Service) scanForMatches(ctx context.Context, queryFP *chem.Fingerprint, fpType chem.FingerprintType, metric chem.SimilarityMetric, threshold float64) ([]Match, error) {
	var matches []Match
	scanErr := s.repo.ScanByType(ctx, fpType, func(record *Record) error {
		score, err := chem.Similarity(queryFP, record.Data, metric)
		if err != nil {
			return nil
		}
		if score >= threshold {
			matches = append(matches, Match{MoleculeID: record.MoleculeID, Score: score})
		}
		return nil
	})
	return matches, scanErr
}

// SubstructureSearch scans every stored fingerprint of patternFPType
// (the pattern fingerprint, used as a cheap prefilter per spec §4.3; a
// pattern with a '*' atom skips the prefilter), then confirms each
// surviving candidate with C1's backtracking subgraph match
// (chem.HasSubstructure) against the candidate's current SMILES.
func (s *Service) SubstructureSearch(ctx context.Context, patternSMILES string, patternFPType chem.FingerprintType, page common.PageRequest) (common.PageResponse[common.ID], error) {
	page.Normalize()

	patternMol, err := chem.ParseSMILES(patternSMILES)
	if err != nil {
		return common.PageResponse[common.ID]{}, err
	}
	params := chem.DefaultFingerprintParams(patternFPType)
	patternFP, err := chem.CalculateFingerprint(patternMol, patternFPType, params)
	if err != nil {
		return common.PageResponse[common.ID]{}, err
	}

	wildcard := false
	for _, a := range patternMol.Atoms {
		if a.Symbol == "*" {
			wildcard = true
		}
	}

	var candidates []common.ID
	scanErr := s.repo.ScanByType(ctx, patternFPType, func(record *Record) error {
		if !wildcard && !isSupersetCandidate(patternFP, record.Data) {
			return nil
		}
		candidates = append(candidates, record.MoleculeID)
		return nil
	})
	if scanErr != nil {
		return common.PageResponse[common.ID]{}, scanErr
	}

	var hits []common.ID
	for _, moleculeID := range candidates {
		smiles, err := s.molecules.SMILESByID(ctx, moleculeID)
		if err != nil {
			continue
		}
		mol, err := chem.ParseSMILES(smiles)
		if err != nil {
			continue
		}
		ok, err := chem.HasSubstructure(mol, patternSMILES)
		if err != nil || !ok {
			continue
		}
		hits = append(hits, moleculeID)
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i] < hits[j] })
	return paginateIDs(hits, page), nil
}

// isSupersetCandidate reports whether every set bit of pattern also appears
// in candidate, a necessary (not sufficient) condition for containment of a
// pattern without '*' atoms that lets SubstructureSearch skip exhaustive
// matching for molecules that cannot possibly contain the pattern.
func isSupersetCandidate(pattern, candidate *chem.Fingerprint) bool {
	if pattern == nil || candidate == nil {
		return true
	}
	if pattern.Type != candidate.Type {
		return true
	}
	for i := 0; i < pattern.Length; i++ {
		if pattern.GetBit(i) && !candidate.GetBit(i) {
			return false
		}
	}
	return true
}

func paginateMatches(items []Match, page common.PageRequest) common.PageResponse[Match] {
	total := int64(len(items))
	offset := page.Offset()
	if offset > len(items) {
		offset = len(items)
	}
	end := offset + page.PageSize
	if end > len(items) {
		end = len(items)
	}
	return common.NewPageResponse(items[offset:end], total, page)
}

func paginateIDs(items []common.ID, page common.PageRequest) common.PageResponse[common.ID] {
	total := int64(len(items))
	offset := page.Offset()
	if offset > len(items) {
		offset = len(items)
	}
	end := offset + page.PageSize
	if end > len(items) {
		end = len(items)
	}
	return common.NewPageResponse(items[offset:end], total, page)
}
