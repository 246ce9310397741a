// Package molecule is the application-level use-case layer for the
// Molecule Store (C2): it adapts HTTP/CLI handlers to the domain service in
// internal/domain/molecule, translating between wire-friendly DTOs and
// domain entities.
package molecule

import (
	"context"
	"time"

	domainMol "github.com/moldex-io/moldex/internal/domain/molecule"
	"github.com/moldex-io/moldex/internal/platform/logging"
	"github.com/moldex-io/moldex/pkg/types/common"
)

// MoleculeDTO is the wire-friendly representation of a Molecule.
type MoleculeDTO struct {
	ID              string    `json:"id"`
	SMILES          string    `json:"smiles"`
	InChIKey        string    `json:"inchi_key"`
	Formula         string    `json:"formula"`
	MolecularWeight float64   `json:"molecular_weight"`
	Status          string    `json:"status"`
	CreatedBy       string    `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// PropertyDTO is the wire-friendly representation of a MoleculeProperty.
type PropertyDTO struct {
	Name       string   `json:"name"`
	Value      any      `json:"value"`
	Units      string   `json:"units,omitempty"`
	Source     string   `json:"source"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// BatchCreateResultDTO mirrors domainMol.BatchCreateResult for the wire.
type BatchCreateResultDTO struct {
	Created []MoleculeDTO       `json:"created"`
	Skipped []MoleculeDTO       `json:"skipped"`
	Failed  []BatchFailureDTO   `json:"failed"`
}

// BatchFailureDTO reports one rejected row of a batch_create call.
type BatchFailureDTO struct {
	SMILES string `json:"smiles"`
	Error  string `json:"error"`
}

// FilterInput is the application-layer request for Filter.
type FilterInput struct {
	SMILESContains  string
	FormulaContains string
	Status          string
	CreatedBy       string
	LibraryID       string
	PropertyRanges  map[string]domainMol.PropertyRange
	Page            common.PageRequest
}

// Service is the application-facing façade over the Molecule Store domain
// service.
type Service struct {
	domain *domainMol.Service
	logger logging.Logger
}

// NewService constructs a Service wrapping the given domain service.
func NewService(domain *domainMol.Service, logger logging.Logger) *Service {
	return &Service{domain: domain, logger: logger}
}

// CreateFromSMILES creates or returns the existing molecule for smiles.
func (s *Service) CreateFromSMILES(ctx context.Context, smiles, createdBy string) (*MoleculeDTO, error) {
	mol, err := s.domain.CreateFromSMILES(ctx, smiles, common.ID(createdBy))
	if err != nil {
		return nil, err
	}
	dto := toDTO(mol)
	return &dto, nil
}

// Get retrieves a molecule by id.
func (s *Service) Get(ctx context.Context, id string) (*MoleculeDTO, error) {
	mol, err := s.domain.Get(ctx, common.ID(id))
	if err != nil {
		return nil, err
	}
	dto := toDTO(mol)
	return &dto, nil
}

// GetBySMILES retrieves a molecule by SMILES.
func (s *Service) GetBySMILES(ctx context.Context, smiles string) (*MoleculeDTO, error) {
	mol, err := s.domain.GetBySMILES(ctx, smiles)
	if err != nil {
		return nil, err
	}
	dto := toDTO(mol)
	return &dto, nil
}

// GetByInChIKey retrieves a molecule by its InChIKey.
func (s *Service) GetByInChIKey(ctx context.Context, key string) (*MoleculeDTO, error) {
	mol, err := s.domain.GetByInChIKey(ctx, key)
	if err != nil {
		return nil, err
	}
	dto := toDTO(mol)
	return &dto, nil
}

// Filter runs a paginated structured-predicate search.
func (s *Service) Filter(ctx context.Context, input FilterInput) (common.PageResponse[MoleculeDTO], error) {
	criteria := domainMol.FilterCriteria{
		SMILESContains:  input.SMILESContains,
		FormulaContains: input.FormulaContains,
		PropertyRanges:  input.PropertyRanges,
	}
	if input.Status != "" {
		status := domainMol.Status(input.Status)
		criteria.Status = &status
	}
	if input.CreatedBy != "" {
		id := common.ID(input.CreatedBy)
		criteria.CreatedBy = &id
	}
	if input.LibraryID != "" {
		id := common.ID(input.LibraryID)
		criteria.LibraryID = &id
	}

	page, err := s.domain.Filter(ctx, criteria, input.Page)
	if err != nil {
		return common.PageResponse[MoleculeDTO]{}, err
	}
	items := make([]MoleculeDTO, len(page.Items))
	for i, mol := range page.Items {
		items[i] = toDTO(mol)
	}
	return common.PageResponse[MoleculeDTO]{
		Items: items, Total: page.Total, Page: page.Page, PageSize: page.PageSize, TotalPages: page.TotalPages,
	}, nil
}

// BatchCreate ingests a list of SMILES strings.
func (s *Service) BatchCreate(ctx context.Context, smilesList []string, createdBy string) (*BatchCreateResultDTO, error) {
	result, err := s.domain.BatchCreate(ctx, smilesList, common.ID(createdBy))
	if err != nil {
		return nil, err
	}
	out := &BatchCreateResultDTO{}
	for _, mol := range result.Created {
		out.Created = append(out.Created, toDTO(mol))
	}
	for _, mol := range result.Skipped {
		out.Skipped = append(out.Skipped, toDTO(mol))
	}
	for _, f := range result.Failed {
		out.Failed = append(out.Failed, BatchFailureDTO{SMILES: f.SMILES, Error: f.Err.Error()})
	}
	return out, nil
}

// SetProperty upserts a property row.
func (s *Service) SetProperty(ctx context.Context, moleculeID, name string, value any, source string, units string) error {
	return s.domain.SetProperty(ctx, &domainMol.MoleculeProperty{
		MoleculeID: common.ID(moleculeID),
		Name:       name,
		Value:      value,
		Units:      units,
		Source:     domainMol.PropertySource(source),
	})
}

// GetProperty retrieves the most recent value for (molecule, name).
func (s *Service) GetProperty(ctx context.Context, moleculeID, name, source string) (*PropertyDTO, error) {
	var sourcePtr *domainMol.PropertySource
	if source != "" {
		src := domainMol.PropertySource(source)
		sourcePtr = &src
	}
	prop, err := s.domain.GetProperty(ctx, common.ID(moleculeID), name, sourcePtr)
	if err != nil {
		return nil, err
	}
	return &PropertyDTO{
		Name: prop.Name, Value: prop.Value, Units: prop.Units,
		Source: string(prop.Source), Confidence: prop.Confidence,
	}, nil
}

func toDTO(mol *domainMol.Molecule) MoleculeDTO {
	return MoleculeDTO{
		ID:              mol.ID.String(),
		SMILES:          mol.SMILES,
		InChIKey:        mol.InChIKey,
		Formula:         mol.Formula,
		MolecularWeight: mol.MolecularWeight,
		Status:          string(mol.Status),
		CreatedBy:       mol.CreatedBy.String(),
		CreatedAt:       mol.CreatedAt,
		UpdatedAt:       mol.UpdatedAt,
	}
}
