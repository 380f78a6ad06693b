package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldlog/api/internal/ids"
	"fieldlog/api/internal/models"
)

type VisitRepository struct {
	pool *pgxpool.Pool
}

func NewVisitRepository(pool *pgxpool.Pool) *VisitRepository {
	return &VisitRepository{pool: pool}
}

func (r *VisitRepository) Create(ctx context.Context, ownerID string, placeName string, loc models.Location, imageURL string) (models.Visit, error) {
	const query = `
		INSERT INTO visits (id, user_id, place_name, latitude, longitude, image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, user_id, place_name, latitude, longitude, image_url, created_at
	`

	row := r.pool.QueryRow(ctx, query,
		ids.New(),
		ownerID,
		strings.TrimSpace(placeName),
		loc.Latitude,
		loc.Longitude,
		imageURL,
	)
	return scanVisit(row)
}

func (r *VisitRepository) FindByID(ctx context.Context, id string) (models.Visit, bool, error) {
	const query = `
		SELECT id, user_id, place_name, latitude, longitude, image_url, created_at
		FROM visits WHERE id = $1
	`

	visit, err := scanVisit(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Visit{}, false, nil
		}
		return models.Visit{}, false, err
	}
	return visit, true, nil
}

func (r *VisitRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Visit, error) {
	const query = `
		SELECT id, user_id, place_name, latitude, longitude, image_url, created_at
		FROM visits
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []models.Visit
	for rows.Next() {
		visit, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, visit)
	}
	return visits, rows.Err()
}

// ListAllWithOwners joins the minimal owner identity onto every visit,
// newest first. Admin-only by policy, enforced upstream.
func (r *VisitRepository) ListAllWithOwners(ctx context.Context) ([]models.VisitWithOwner, error) {
	const query = `
		SELECT v.id, v.user_id, v.place_name, v.latitude, v.longitude, v.image_url, v.created_at,
		       u.id, u.name, u.email, u.role
		FROM visits v
		JOIN users u ON u.id = v.user_id
		ORDER BY v.created_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []models.VisitWithOwner
	for rows.Next() {
		var item models.VisitWithOwner
		if err := rows.Scan(
			&item.ID,
			&item.OwnerID,
			&item.PlaceName,
			&item.Location.Latitude,
			&item.Location.Longitude,
			&item.ImageURL,
			&item.CreatedAt,
			&item.Owner.ID,
			&item.Owner.Name,
			&item.Owner.Email,
			&item.Owner.Role,
		); err != nil {
			return nil, err
		}
		visits = append(visits, item)
	}
	return visits, rows.Err()
}

func (r *VisitRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM visits WHERE id = $1`, id)
	return err
}

// ExistsByImageURL reports whether any visit still references imageURL.
// The orphan sweep uses it to keep live blobs.
func (r *VisitRepository) ExistsByImageURL(ctx context.Context, imageURL string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM visits WHERE image_url = $1)`, imageURL).Scan(&exists)
	return exists, err
}

func scanVisit(row pgx.Row) (models.Visit, error) {
	var visit models.Visit
	err := row.Scan(
		&visit.ID,
		&visit.OwnerID,
		&visit.PlaceName,
		&visit.Location.Latitude,
		&visit.Location.Longitude,
		&visit.ImageURL,
		&visit.CreatedAt,
	)
	return visit, err
}
