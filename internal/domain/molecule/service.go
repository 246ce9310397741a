package molecule

import (
	"context"
	"time"

	"github.com/moldex-io/moldex/internal/platform/logging"
	"github.com/moldex-io/moldex/pkg/errors"
	"github.com/moldex-io/moldex/pkg/types/common"
)

// Cache is the optional read-through cache a Service consults before
// falling back to the Repository for Get-by-id lookups. A Service with no
// Cache set reads the Repository directly on every call.
type Cache interface {
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error
	Delete(ctx context.Context, keys ...string) error
}

// SearchIndex is the optional full-text acceleration surface a Service can
// publish newly created or updated molecules to, so free-text search (by
// formula or SMILES fragment) can run against an inverted index instead of
// a Postgres ILIKE scan. A Service with no SearchIndex set still works;
// Filter always answers from the Repository regardless.
type SearchIndex interface {
	IndexMolecule(ctx context.Context, mol *Molecule) error
	DeleteMolecule(ctx context.Context, id common.ID) error
}

// Service is the Molecule Store's domain service: it enforces property
// validation against PropertyDefinitions and logs structural events around
// a Repository implementation, which carries the actual transactional
// upsert/filter/batch logic described in spec §4.2.
type Service struct {
	repo     Repository
	logger   logging.Logger
	index    SearchIndex
	cache    Cache
	cacheTTL time.Duration
}

// NewService constructs a Service over repo.
func NewService(repo Repository, logger logging.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// UseSearchIndex attaches a SearchIndex that newly created and updated
// molecules are published to. Indexing failures are logged, never
// propagated: the index is an acceleration path, and the Repository
// remains the system of record.
func (s *Service) UseSearchIndex(index SearchIndex) {
	s.index = index
}

// UseCache attaches a read-through Cache for Get-by-id lookups, with ttl
// applied to each cached entry.
func (s *Service) UseCache(cache Cache, ttl time.Duration) {
	s.cache = cache
	s.cacheTTL = ttl
}

func (s *Service) cacheKey(id common.ID) string {
	return "molecule:" + id.String()
}

func (s *Service) invalidateCache(ctx context.Context, id common.ID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.cacheKey(id)); err != nil {
		s.logger.Warn("cache invalidation failed", logging.String("molecule_id", id.String()), logging.Err(err))
	}
}

func (s *Service) publish(ctx context.Context, mol *Molecule) {
	if s.index == nil || mol == nil {
		return
	}
	if err := s.index.IndexMolecule(ctx, mol); err != nil {
		s.logger.Warn("search index publish failed", logging.String("molecule_id", mol.ID.String()), logging.Err(err))
	}
}

// CreateFromSMILES validates and upserts a molecule by inchi_key, per spec
// §4.2 step 3, then persists its CALCULATED descriptor properties on first
// creation only (a pre-existing molecule's CALCULATED properties are left
// untouched).
func (s *Service) CreateFromSMILES(ctx context.Context, smiles string, createdBy common.ID) (*Molecule, error) {
	mol, created, err := s.repo.CreateFromSMILES(ctx, smiles, createdBy)
	if err != nil {
		s.logger.Warn("create_from_smiles failed", logging.String("smiles", smiles), logging.Err(err))
		return nil, err
	}
	if !created {
		s.logger.Debug("create_from_smiles matched an existing molecule", logging.String("inchi_key", mol.InChIKey))
		return mol, nil
	}

	props, err := CalculatedProperties(mol.SMILES)
	if err != nil {
		s.logger.Warn("calculated property derivation failed", logging.String("molecule_id", mol.ID.String()), logging.Err(err))
		return mol, nil
	}
	for name, value := range props {
		prop := &MoleculeProperty{
			MoleculeID: mol.ID,
			Name:       name,
			Value:      value,
			Source:     SourceCalculated,
			CreatedAt:  mol.CreatedAt,
		}
		if err := s.repo.SetProperty(ctx, prop); err != nil {
			s.logger.Warn("failed to persist calculated property", logging.String("property", name), logging.Err(err))
		}
	}

	s.logger.Info("molecule created", logging.String("molecule_id", mol.ID.String()), logging.String("inchi_key", mol.InChIKey))
	s.publish(ctx, mol)
	return mol, nil
}

// Get retrieves a molecule by id, consulting the Cache first when one is
// attached.
func (s *Service) Get(ctx context.Context, id common.ID) (*Molecule, error) {
	if s.cache == nil {
		return s.repo.Get(ctx, id)
	}
	var mol Molecule
	err := s.cache.GetOrSet(ctx, s.cacheKey(id), &mol, s.cacheTTL, func(ctx context.Context) (interface{}, error) {
		return s.repo.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &mol, nil
}

// GetBySMILES retrieves a molecule by (unparsed) SMILES.
func (s *Service) GetBySMILES(ctx context.Context, smiles string) (*Molecule, error) {
	return s.repo.GetBySMILES(ctx, smiles)
}

// GetByInChIKey retrieves a molecule by its InChIKey.
func (s *Service) GetByInChIKey(ctx context.Context, key string) (*Molecule, error) {
	return s.repo.GetByInChIKey(ctx, key)
}

// SetProperty validates value against name's PropertyDefinition (when one
// exists; custom_-prefixed names skip this check) and the property's own
// invariants, then upserts the row scoped by (molecule_id, name, source).
func (s *Service) SetProperty(ctx context.Context, prop *MoleculeProperty) error {
	if err := prop.Validate(); err != nil {
		return err
	}
	if !IsCustomProperty(prop.Name) {
		def, err := s.repo.GetPropertyDefinition(ctx, prop.Name)
		if err != nil {
			return err
		}
		if def != nil {
			if err := def.CheckValue(prop.Value); err != nil {
				return err
			}
		}
	}
	return s.repo.SetProperty(ctx, prop)
}

// GetProperty returns the most recent value for (molecule_id, name),
// optionally filtered by source.
func (s *Service) GetProperty(ctx context.Context, moleculeID common.ID, name string, source *PropertySource) (*MoleculeProperty, error) {
	return s.repo.GetProperty(ctx, moleculeID, name, source)
}

// GetPropertyDefinition returns the PropertyDefinition for name, or nil if
// name has none (e.g. a custom_-prefixed property).
func (s *Service) GetPropertyDefinition(ctx context.Context, name string) (*PropertyDefinition, error) {
	return s.repo.GetPropertyDefinition(ctx, name)
}

// ListPropertyDefinitions returns every declared PropertyDefinition.
func (s *Service) ListPropertyDefinitions(ctx context.Context) ([]*PropertyDefinition, error) {
	return s.repo.ListPropertyDefinitions(ctx)
}

// Filter runs a paginated structured-predicate search.
func (s *Service) Filter(ctx context.Context, criteria FilterCriteria, page common.PageRequest) (common.PageResponse[*Molecule], error) {
	page.Normalize()
	return s.repo.Filter(ctx, criteria, page)
}

// BatchCreate ingests a list of SMILES strings, delegating the
// upsert-by-inchi_key/transaction semantics to the Repository and logging
// the aggregate outcome, per spec §4.2's batch_create contract.
func (s *Service) BatchCreate(ctx context.Context, smilesList []string, createdBy common.ID) (*BatchCreateResult, error) {
	if len(smilesList) == 0 {
		return nil, errors.InvalidParam("batch_create requires at least one SMILES")
	}
	result, err := s.repo.BatchCreate(ctx, smilesList, createdBy)
	if err != nil {
		return nil, err
	}
	s.logger.Info("batch_create completed",
		logging.Int("created", len(result.Created)),
		logging.Int("skipped", len(result.Skipped)),
		logging.Int("failed", len(result.Failed)))
	for _, mol := range result.Created {
		s.publish(ctx, mol)
	}
	return result, nil
}

// Update recomputes and persists mol after a SMILES change. C3 fingerprint
// invalidation is the Repository implementation's responsibility (spec §4.2
// step 4 / invariant I5).
func (s *Service) Update(ctx context.Context, mol *Molecule, newSMILES string) error {
	if err := mol.Recompute(newSMILES); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, mol); err != nil {
		return err
	}
	s.invalidateCache(ctx, mol.ID)
	s.publish(ctx, mol)
	return nil
}

// Delete removes a molecule and its owned rows.
func (s *Service) Delete(ctx context.Context, id common.ID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateCache(ctx, id)
	if s.index != nil {
		if err := s.index.DeleteMolecule(ctx, id); err != nil {
			s.logger.Warn("search index delete failed", logging.String("molecule_id", id.String()), logging.Err(err))
		}
	}
	return nil
}
