// Package repositories holds the pgxpool-backed implementations of the
// domain persistence boundaries (molecule, library, ingestion, prediction,
// task), built on a *pgxpool.Pool.
package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moldex-io/moldex/internal/domain/molecule"
	"github.com/moldex-io/moldex/internal/platform/logging"
	moldexerrors "github.com/moldex-io/moldex/pkg/errors"
	"github.com/moldex-io/moldex/pkg/types/common"
)

// uniqueViolation is Postgres' SQLSTATE for a unique-index conflict;
// wrapDBErr maps it to CodeDuplicateMolecule. CreateFromSMILES does not
// see it for the inchi_key race: its insert uses ON CONFLICT DO NOTHING
// and then reads the winning row.
const uniqueViolation = "23505"

type moleculeRepo struct {
	pool   db
	logger logging.Logger
}

// NewMoleculeRepo constructs a molecule.Repository backed by pool.
func NewMoleculeRepo(pool *pgxpool.Pool, logger logging.Logger) molecule.Repository {
	return &moleculeRepo{pool: pool, logger: logger}
}

func (r *moleculeRepo) CreateFromSMILES(ctx context.Context, smiles string, createdBy common.ID) (*molecule.Molecule, bool, error) {
	mol, err := molecule.NewMoleculeFromSMILES(smiles, createdBy)
	if err != nil {
		return nil, false, err
	}

	const insert = `
		INSERT INTO molecules (id, smiles, inchi_key, formula, molecular_weight, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (inchi_key) DO NOTHING`
	tag, err := r.pool.Exec(ctx, insert, mol.ID, mol.SMILES, mol.InChIKey, mol.Formula, mol.MolecularWeight, mol.Status, mol.CreatedBy, mol.CreatedAt, mol.UpdatedAt)
	if err != nil {
		return nil, false, wrapDBErr(err, "create molecule")
	}
	if tag.RowsAffected() == 1 {
		return mol, true, nil
	}

	existing, err := r.GetByInChIKey(ctx, mol.InChIKey)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, moldexerrors.Internal("molecule insert conflicted but no row matched its inchi_key")
	}
	return existing, false, nil
}

func (r *moleculeRepo) Get(ctx context.Context, id common.ID) (*molecule.Molecule, error) {
	const q = `SELECT id, smiles, inchi_key, formula, molecular_weight, status, created_by, created_at, updated_at
		FROM molecules WHERE id = $1`
	return r.scanOneMolecule(r.pool.QueryRow(ctx, q, id))
}

func (r *moleculeRepo) GetBySMILES(ctx context.Context, smiles string) (*molecule.Molecule, error) {
	const q = `SELECT id, smiles, inchi_key, formula, molecular_weight, status, created_by, created_at, updated_at
		FROM molecules WHERE smiles = $1`
	return r.scanOneMolecule(r.pool.QueryRow(ctx, q, smiles))
}

func (r *moleculeRepo) GetByInChIKey(ctx context.Context, inchiKey string) (*molecule.Molecule, error) {
	const q = `SELECT id, smiles, inchi_key, formula, molecular_weight, status, created_by, created_at, updated_at
		FROM molecules WHERE inchi_key = $1`
	return r.scanOneMolecule(r.pool.QueryRow(ctx, q, inchiKey))
}

func (r *moleculeRepo) scanOneMolecule(row pgx.Row) (*molecule.Molecule, error) {
	var m molecule.Molecule
	err := row.Scan(&m.ID, &m.SMILES, &m.InChIKey, &m.Formula, &m.MolecularWeight, &m.Status, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBErr(err, "scan molecule")
	}
	return &m, nil
}

func (r *moleculeRepo) Update(ctx context.Context, mol *molecule.Molecule) error {
	const q = `UPDATE molecules SET smiles = $2, inchi_key = $3, formula = $4, molecular_weight = $5, status = $6, updated_at = $7
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, mol.ID, mol.SMILES, mol.InChIKey, mol.Formula, mol.MolecularWeight, mol.Status, mol.UpdatedAt)
	if err != nil {
		return wrapDBErr(err, "update molecule")
	}
	if tag.RowsAffected() == 0 {
		return moldexerrors.MoleculeNotFound(mol.ID.String())
	}
	return nil
}

func (r *moleculeRepo) Delete(ctx context.Context, id common.ID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM molecules WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(err, "delete molecule")
	}
	if tag.RowsAffected() == 0 {
		return moldexerrors.MoleculeNotFound(id.String())
	}
	return nil
}

func (r *moleculeRepo) SetProperty(ctx context.Context, prop *molecule.MoleculeProperty) error {
	value, err := json.Marshal(prop.Value)
	if err != nil {
		return wrapDBErr(err, "marshal property value")
	}
	const q = `
		INSERT INTO molecule_properties (molecule_id, name, value, units, source, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (molecule_id, name, source) DO UPDATE SET value = EXCLUDED.value, units = EXCLUDED.units, confidence = EXCLUDED.confidence, created_at = EXCLUDED.created_at`
	_, err = r.pool.Exec(ctx, q, prop.MoleculeID, prop.Name, value, prop.Units, prop.Source, prop.Confidence)
	if err != nil {
		return wrapDBErr(err, "upsert property")
	}
	return nil
}

func (r *moleculeRepo) GetProperty(ctx context.Context, moleculeID common.ID, name string, source *molecule.PropertySource) (*molecule.MoleculeProperty, error) {
	q := `SELECT molecule_id, name, value, units, source, confidence, created_at FROM molecule_properties
		WHERE molecule_id = $1 AND name = $2`
	args := []any{moleculeID, name}
	if source != nil {
		q += ` AND source = $3`
		args = append(args, *source)
	}
	q += ` ORDER BY created_at DESC LIMIT 1`

	row := r.pool.QueryRow(ctx, q, args...)
	return r.scanOneProperty(row)
}

func (r *moleculeRepo) scanOneProperty(row pgx.Row) (*molecule.MoleculeProperty, error) {
	var p molecule.MoleculeProperty
	var raw []byte
	err := row.Scan(&p.MoleculeID, &p.Name, &raw, &p.Units, &p.Source, &p.Confidence, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBErr(err, "scan property")
	}
	if err := json.Unmarshal(raw, &p.Value); err != nil {
		return nil, wrapDBErr(err, "unmarshal property value")
	}
	return &p, nil
}

func (r *moleculeRepo) ListProperties(ctx context.Context, moleculeID common.ID) ([]*molecule.MoleculeProperty, error) {
	const q = `SELECT molecule_id, name, value, units, source, confidence, created_at FROM molecule_properties
		WHERE molecule_id = $1 ORDER BY name, created_at DESC`
	rows, err := r.pool.Query(ctx, q, moleculeID)
	if err != nil {
		return nil, wrapDBErr(err, "list properties")
	}
	defer rows.Close()

	var out []*molecule.MoleculeProperty
	for rows.Next() {
		p, err := r.scanOneProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *moleculeRepo) GetPropertyDefinition(ctx context.Context, name string) (*molecule.PropertyDefinition, error) {
	const q = `SELECT name, display_name, description, property_type, category, min_value, max_value, is_required, is_filterable, is_predictable
		FROM property_definitions WHERE name = $1`
	row := r.pool.QueryRow(ctx, q, name)
	var d molecule.PropertyDefinition
	err := row.Scan(&d.Name, &d.DisplayName, &d.Description, &d.PropertyType, &d.Category, &d.MinValue, &d.MaxValue, &d.IsRequired, &d.IsFilterable, &d.IsPredictable)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBErr(err, "scan property definition")
	}
	return &d, nil
}

func (r *moleculeRepo) ListPropertyDefinitions(ctx context.Context) ([]*molecule.PropertyDefinition, error) {
	const q = `SELECT name, display_name, description, property_type, category, min_value, max_value, is_required, is_filterable, is_predictable
		FROM property_definitions ORDER BY name`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, wrapDBErr(err, "list property definitions")
	}
	defer rows.Close()

	var out []*molecule.PropertyDefinition
	for rows.Next() {
		var d molecule.PropertyDefinition
		if err := rows.Scan(&d.Name, &d.DisplayName, &d.Description, &d.PropertyType, &d.Category, &d.MinValue, &d.MaxValue, &d.IsRequired, &d.IsFilterable, &d.IsPredictable); err != nil {
			return nil, wrapDBErr(err, "scan property definition")
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (r *moleculeRepo) Filter(ctx context.Context, criteria molecule.FilterCriteria, page common.PageRequest) (common.PageResponse[*molecule.Molecule], error) {
	page.Normalize()
	from, args := buildFilterWhere(criteria)

	// A property_ranges join can match more than one molecule_properties row
	// per molecule (distinct sources for the same name), so both the count
	// and the listing dedupe on molecule id rather than assuming one row in
	// equals one row out.
	var total int64
	countQ := fmt.Sprintf(`SELECT count(DISTINCT m.id) FROM molecules m %s`, from)
	if err := r.pool.QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return common.PageResponse[*molecule.Molecule]{}, wrapDBErr(err, "count filtered molecules")
	}

	args = append(args, page.PageSize, page.Offset())
	listQ := fmt.Sprintf(`SELECT DISTINCT m.id, m.smiles, m.inchi_key, m.formula, m.molecular_weight, m.status, m.created_by, m.created_at, m.updated_at
		FROM molecules m %s ORDER BY m.created_at DESC LIMIT $%d OFFSET $%d`, from, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, listQ, args...)
	if err != nil {
		return common.PageResponse[*molecule.Molecule]{}, wrapDBErr(err, "filter molecules")
	}
	defer rows.Close()

	var items []*molecule.Molecule
	for rows.Next() {
		m, err := r.scanOneMolecule(rows)
		if err != nil {
			return common.PageResponse[*molecule.Molecule]{}, err
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return common.PageResponse[*molecule.Molecule]{}, wrapDBErr(err, "filter molecules")
	}
	return common.NewPageResponse(items, total, page), nil
}

// buildFilterWhere returns the FROM-clause tail (joins, if PropertyRanges is
// non-empty, followed by a WHERE clause) to splice after "FROM molecules m",
// plus its positional args in the order they appear in that tail.
func buildFilterWhere(criteria molecule.FilterCriteria) (string, []any) {
	var clauses []string
	var joins []string
	var args []any
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if criteria.SMILESContains != "" {
		add("m.smiles ILIKE '%%' || $%d || '%%'", criteria.SMILESContains)
	}
	if criteria.FormulaContains != "" {
		add("m.formula ILIKE '%%' || $%d || '%%'", criteria.FormulaContains)
	}
	if criteria.Status != nil {
		add("m.status = $%d", *criteria.Status)
	}
	if criteria.CreatedBy != nil {
		add("m.created_by = $%d", *criteria.CreatedBy)
	}
	if criteria.LibraryID != nil {
		add("m.id IN (SELECT molecule_id FROM library_molecules WHERE library_id = $%d)", *criteria.LibraryID)
	}
	if len(criteria.PropertyRanges) > 0 {
		// Sorted for deterministic placeholder/alias numbering across calls
		// with the same criteria (map iteration order is not stable).
		names := make([]string, 0, len(criteria.PropertyRanges))
		for name := range criteria.PropertyRanges {
			names = append(names, name)
		}
		sort.Strings(names)
		for i, name := range names {
			rng := criteria.PropertyRanges[name]
			alias := fmt.Sprintf("mp%d", i)
			args = append(args, name)
			joins = append(joins, fmt.Sprintf(
				"JOIN molecule_properties %s ON %s.molecule_id = m.id AND %s.name = $%d",
				alias, alias, alias, len(args)))
			if rng.Min != nil {
				args = append(args, *rng.Min)
				clauses = append(clauses, fmt.Sprintf("(%s.value #>> '{}')::double precision >= $%d", alias, len(args)))
			}
			if rng.Max != nil {
				args = append(args, *rng.Max)
				clauses = append(clauses, fmt.Sprintf("(%s.value #>> '{}')::double precision <= $%d", alias, len(args)))
			}
		}
	}

	var sb strings.Builder
	for _, j := range joins {
		sb.WriteString(j)
		sb.WriteString(" ")
	}
	if len(clauses) > 0 {
		sb.WriteString("WHERE ")
		sb.WriteString(strings.Join(clauses, " AND "))
	}
	return sb.String(), args
}

func (r *moleculeRepo) BatchCreate(ctx context.Context, smilesList []string, createdBy common.ID) (*molecule.BatchCreateResult, error) {
	result := &molecule.BatchCreateResult{}
	for _, smiles := range smilesList {
		mol, created, err := r.CreateFromSMILES(ctx, smiles, createdBy)
		if err != nil {
			result.Failed = append(result.Failed, molecule.BatchCreateFailure{SMILES: smiles, Err: err})
			continue
		}
		if created {
			result.Created = append(result.Created, mol)
		} else {
			result.Skipped = append(result.Skipped, mol)
		}
	}
	return result, nil
}

func (r *moleculeRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM molecules`).Scan(&n); err != nil {
		return 0, wrapDBErr(err, "count molecules")
	}
	return n, nil
}

// wrapDBErr classifies a pgx error into the platform's AppError taxonomy,
// mapping a unique violation to CodeDuplicateMolecule so callers can
// branch on it.
func wrapDBErr(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return moldexerrors.Wrap(err, moldexerrors.CodeDuplicateMolecule, op+": unique constraint violated")
	}
	return moldexerrors.Wrap(err, moldexerrors.CodeDatabaseError, op)
}
