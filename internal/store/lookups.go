package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/pickimport/internal/core"
)

// The window count is computed before LIMIT, so it reports every match.
const (
	productByCodeSQL = `
SELECT id, default_code, name, count(*) OVER ()
FROM product_product
WHERE default_code = $1 AND active
ORDER BY id
LIMIT 1`

	unitByNameSQL = `
SELECT id, name, count(*) OVER ()
FROM uom_uom
WHERE name = $1 AND active
ORDER BY id
LIMIT 1`

	pickingByIDSQL = `
SELECT id, name, state, picking_type_id, location_id, company_id
FROM stock_picking
WHERE id = $1`
)

// ProductByCode finds the active product whose default code equals code.
func (s *Store) ProductByCode(ctx context.Context, code string) (core.ProductRef, error) {
	var (
		p       core.ProductRef
		matches int64
	)
	err := s.pool.QueryRow(ctx, productByCodeSQL, code).Scan(&p.ID, &p.Code, &p.Name, &matches)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ProductRef{}, core.ErrNotFound
	}
	if err != nil {
		return core.ProductRef{}, fmt.Errorf("query product %q: %w", code, err)
	}
	if matches > 1 {
		return core.ProductRef{}, fmt.Errorf("%w: %d products with code %q", core.ErrAmbiguous, matches, code)
	}
	return p, nil
}

// UnitByName finds the active unit of measure whose name equals name.
func (s *Store) UnitByName(ctx context.Context, name string) (core.UnitRef, error) {
	var (
		u       core.UnitRef
		matches int64
	)
	err := s.pool.QueryRow(ctx, unitByNameSQL, name).Scan(&u.ID, &u.Name, &matches)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.UnitRef{}, core.ErrNotFound
	}
	if err != nil {
		return core.UnitRef{}, fmt.Errorf("query unit %q: %w", name, err)
	}
	if matches > 1 {
		return core.UnitRef{}, fmt.Errorf("%w: %d units named %q", core.ErrAmbiguous, matches, name)
	}
	return u, nil
}

// PickingByID loads a picking. Source location and company may be NULL and
// come back as 0.
func (s *Store) PickingByID(ctx context.Context, id int64) (core.Picking, error) {
	var (
		p        core.Picking
		location pgtype.Int8
		company  pgtype.Int8
	)
	err := s.pool.QueryRow(ctx, pickingByIDSQL, id).
		Scan(&p.ID, &p.Name, &p.State, &p.PickingTypeID, &location, &company)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Picking{}, core.ErrNotFound
	}
	if err != nil {
		return core.Picking{}, fmt.Errorf("query picking %d: %w", id, err)
	}

	p.SourceLocationID = location.Int64
	p.CompanyID = company.Int64
	return p, nil
}
