package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moldex-io/moldex/internal/domain/library"
	"github.com/moldex-io/moldex/internal/platform/logging"
	moldexerrors "github.com/moldex-io/moldex/pkg/errors"
	"github.com/moldex-io/moldex/pkg/types/common"
)

type libraryRepo struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewLibraryRepo constructs a library.Repository backed by pool.
func NewLibraryRepo(pool *pgxpool.Pool, logger logging.Logger) library.Repository {
	return &libraryRepo{pool: pool, logger: logger}
}

func (r *libraryRepo) Create(ctx context.Context, lib *library.Library) error {
	const q = `INSERT INTO libraries (id, name, description, owner_id, organization_id, is_public, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, q, lib.ID, lib.Name, lib.Description, lib.OwnerID, lib.OrganizationID, lib.IsPublic, lib.CreatedAt, lib.UpdatedAt)
	if err != nil {
		return wrapDBErr(err, "create library")
	}
	return nil
}

func (r *libraryRepo) Get(ctx context.Context, id common.ID) (*library.Library, error) {
	const q = `SELECT id, name, description, owner_id, organization_id, is_public, created_at, updated_at
		FROM libraries WHERE id = $1`
	lib, err := r.scanLibrary(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, err
	}
	if lib == nil {
		return nil, moldexerrors.New(moldexerrors.CodeLibraryNotFound, "library not found").WithDetail("library_id", id.String())
	}
	return lib, nil
}

func (r *libraryRepo) scanLibrary(row pgx.Row) (*library.Library, error) {
	var lib library.Library
	err := row.Scan(&lib.ID, &lib.Name, &lib.Description, &lib.OwnerID, &lib.OrganizationID, &lib.IsPublic, &lib.CreatedAt, &lib.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBErr(err, "scan library")
	}
	return &lib, nil
}

func (r *libraryRepo) Update(ctx context.Context, lib *library.Library) error {
	const q = `UPDATE libraries SET name = $2, description = $3, is_public = $4, updated_at = $5 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, lib.ID, lib.Name, lib.Description, lib.IsPublic, lib.UpdatedAt)
	if err != nil {
		return wrapDBErr(err, "update library")
	}
	if tag.RowsAffected() == 0 {
		return moldexerrors.New(moldexerrors.CodeLibraryNotFound, "library not found").WithDetail("library_id", lib.ID.String())
	}
	return nil
}

func (r *libraryRepo) Delete(ctx context.Context, id common.ID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM libraries WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(err, "delete library")
	}
	if tag.RowsAffected() == 0 {
		return moldexerrors.New(moldexerrors.CodeLibraryNotFound, "library not found").WithDetail("library_id", id.String())
	}
	return nil
}

func (r *libraryRepo) ListByOwner(ctx context.Context, ownerID common.ID, page common.PageRequest) (common.PageResponse[*library.Library], error) {
	page.Normalize()

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM libraries WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return common.PageResponse[*library.Library]{}, wrapDBErr(err, "count libraries by owner")
	}

	const q = `SELECT id, name, description, owner_id, organization_id, is_public, created_at, updated_at
		FROM libraries WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, q, ownerID, page.PageSize, page.Offset())
	if err != nil {
		return common.PageResponse[*library.Library]{}, wrapDBErr(err, "list libraries by owner")
	}
	defer rows.Close()

	var items []*library.Library
	for rows.Next() {
		lib, err := r.scanLibrary(rows)
		if err != nil {
			return common.PageResponse[*library.Library]{}, err
		}
		items = append(items, lib)
	}
	if err := rows.Err(); err != nil {
		return common.PageResponse[*library.Library]{}, wrapDBErr(err, "list libraries by owner")
	}
	return common.NewPageResponse(items, total, page), nil
}

func (r *libraryRepo) AddMolecule(ctx context.Context, libraryID, moleculeID, addedBy common.ID) (bool, error) {
	const q = `INSERT INTO library_molecules (library_id, molecule_id, added_by, added_at)
		VALUES ($1, $2, $3, now()) ON CONFLICT (library_id, molecule_id) DO NOTHING`
	tag, err := r.pool.Exec(ctx, q, libraryID, moleculeID, addedBy)
	if err != nil {
		return false, wrapDBErr(err, "add library molecule")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *libraryRepo) RemoveMolecule(ctx context.Context, libraryID, moleculeID common.ID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM library_molecules WHERE library_id = $1 AND molecule_id = $2`, libraryID, moleculeID)
	if err != nil {
		return false, wrapDBErr(err, "remove library molecule")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *libraryRepo) GetMolecules(ctx context.Context, libraryID common.ID, page common.PageRequest) (common.PageResponse[common.ID], error) {
	page.Normalize()

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM library_molecules WHERE library_id = $1`, libraryID).Scan(&total); err != nil {
		return common.PageResponse[common.ID]{}, wrapDBErr(err, "count library molecules")
	}

	const q = `SELECT molecule_id FROM library_molecules WHERE library_id = $1 ORDER BY added_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, q, libraryID, page.PageSize, page.Offset())
	if err != nil {
		return common.PageResponse[common.ID]{}, wrapDBErr(err, "list library molecules")
	}
	defer rows.Close()

	var items []common.ID
	for rows.Next() {
		var id common.ID
		if err := rows.Scan(&id); err != nil {
			return common.PageResponse[common.ID]{}, wrapDBErr(err, "scan library molecule id")
		}
		items = append(items, id)
	}
	if err := rows.Err(); err != nil {
		return common.PageResponse[common.ID]{}, wrapDBErr(err, "list library molecules")
	}
	return common.NewPageResponse(items, total, page), nil
}
