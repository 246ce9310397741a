// Package fingerprint is the application-level use-case layer for the
// Fingerprint Index: it adapts handlers to the domain service in
// internal/domain/fingerprint, translating between wire-friendly DTOs and
// domain entities.
package fingerprint

import (
	"context"

	"github.com/moldex-io/moldex/internal/domain/chem"
	domainFP "github.com/moldex-io/moldex/internal/domain/fingerprint"
	"github.com/moldex-io/moldex/internal/platform/logging"
	"github.com/moldex-io/moldex/pkg/types/common"
)

// MatchDTO is the wire-friendly representation of a similarity_search hit.
type MatchDTO struct {
	MoleculeID string  `json:"molecule_id"`
	Score      float64 `json:"score"`
}

// Service is the application-facing façade over the Fingerprint Index
// domain service.
type Service struct {
	domain *domainFP.Service
	logger logging.Logger
}

// NewService constructs a Service wrapping the given domain service.
func NewService(domain *domainFP.Service, logger logging.Logger) *Service {
	return &Service{domain: domain, logger: logger}
}

// Put computes and stores the fingerprint for a molecule.
func (s *Service) Put(ctx context.Context, moleculeID, smiles, fpType string) error {
	_, err := s.domain.Put(ctx, common.ID(moleculeID), smiles, chem.FingerprintType(fpType))
	return err
}

// SimilaritySearch runs a paginated nearest-neighbor search.
func (s *Service) SimilaritySearch(ctx context.Context, querySMILES, fpType, metric string, threshold float64, page common.PageRequest) (common.PageResponse[MatchDTO], error) {
	result, err := s.domain.SimilaritySearch(ctx, querySMILES, chem.FingerprintType(fpType), chem.SimilarityMetric(metric), threshold, page)
	if err != nil {
		return common.PageResponse[MatchDTO]{}, err
	}
	items := make([]MatchDTO, len(result.Items))
	for i, m := range result.Items {
		items[i] = MatchDTO{MoleculeID: m.MoleculeID.String(), Score: m.Score}
	}
	return common.PageResponse[MatchDTO]{
		Items: items, Total: result.Total, Page: result.Page, PageSize: result.PageSize, TotalPages: result.TotalPages,
	}, nil
}

// SubstructureSearch runs a paginated substructure containment search.
func (s *Service) SubstructureSearch(ctx context.Context, patternSMILES string, page common.PageRequest) (common.PageResponse[string], error) {
	result, err := s.domain.SubstructureSearch(ctx, patternSMILES, chem.FPPattern, page)
	if err != nil {
		return common.PageResponse[string]{}, err
	}
	items := make([]string, len(result.Items))
	for i, id := range result.Items {
		items[i] = id.String()
	}
	return common.PageResponse[string]{
		Items: items, Total: result.Total, Page: result.Page, PageSize: result.PageSize, TotalPages: result.TotalPages,
	}, nil
}
