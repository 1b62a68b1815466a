package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/mobilebook/internal/core/domain"
)

const areaColumns = `provider_id, latitude, longitude, radius_miles, radius_meters, geohash, updated_at`

// AreaRepo implements ports.AreaRepository with pgx.
type AreaRepo struct {
	db *DB
}

// NewAreaRepo creates a new AreaRepo.
func NewAreaRepo(db *DB) *AreaRepo {
	return &AreaRepo{db: db}
}

// Upsert inserts or replaces a provider's area.
func (r *AreaRepo) Upsert(ctx context.Context, a *domain.ServiceArea) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO service_areas (provider_id, latitude, longitude, radius_miles, radius_meters, geohash, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (provider_id) DO UPDATE
		SET latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
		    radius_miles = EXCLUDED.radius_miles, radius_meters = EXCLUDED.radius_meters,
		    geohash = EXCLUDED.geohash, updated_at = EXCLUDED.updated_at
	`, a.ProviderID, a.Center.Latitude, a.Center.Longitude,
		a.RadiusMiles, a.RadiusMeters, a.Geohash, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert area %s: %w", a.ProviderID, err)
	}
	return nil
}

// GetByProvider returns a provider's area.
func (r *AreaRepo) GetByProvider(ctx context.Context, providerID string) (*domain.ServiceArea, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+areaColumns+` FROM service_areas WHERE provider_id = $1`, providerID)
	a, err := scanArea(row)
	if err != nil {
		return nil, notFound(err, "area "+providerID)
	}
	return a, nil
}

// Delete removes a provider's area.
func (r *AreaRepo) Delete(ctx context.Context, providerID string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM service_areas WHERE provider_id = $1`, providerID)
	if err != nil {
		return fmt.Errorf("delete area %s: %w", providerID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("area %s: %w", providerID, domain.ErrNotFound)
	}
	return nil
}

// FindByGeohashBounds returns every area whose center geohash falls in any
// of the inclusive bounds. Each bound is an index range scan.
func (r *AreaRepo) FindByGeohashBounds(ctx context.Context, bounds []domain.GeohashBound) ([]domain.ServiceArea, error) {
	if len(bounds) == 0 {
		return nil, nil
	}

	starts := make([]string, len(bounds))
	ends := make([]string, len(bounds))
	for i, b := range bounds {
		starts[i], ends[i] = b.Start, b.End
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT DISTINCT ON (a.provider_id) a.provider_id, a.latitude, a.longitude,
		       a.radius_miles, a.radius_meters, a.geohash, a.updated_at
		FROM service_areas a
		JOIN unnest($1::text[], $2::text[]) AS b(lo, hi)
		  ON a.geohash >= b.lo COLLATE "C" AND a.geohash <= b.hi COLLATE "C"
		ORDER BY a.provider_id
	`, starts, ends)
	if err != nil {
		return nil, fmt.Errorf("find areas by geohash: %w", err)
	}
	defer rows.Close()

	var out []domain.ServiceArea
	for rows.Next() {
		a, err := scanArea(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanArea(row pgx.Row) (*domain.ServiceArea, error) {
	var a domain.ServiceArea
	if err := row.Scan(
		&a.ProviderID, &a.Center.Latitude, &a.Center.Longitude,
		&a.RadiusMiles, &a.RadiusMeters, &a.Geohash, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}
