package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"parcelview/internal/models"
)

var ErrFavoriteAlreadyExists = errors.New("this parcel is already in favorites")

type AddFavoriteParams struct {
	UserID   uuid.UUID
	ParcelID string
	County   string
	Label    *string
}

func (q *Queries) AddFavorite(ctx context.Context, arg AddFavoriteParams) error {
	query := `INSERT INTO favorite_parcels (user_id, parcel_id, county, label) VALUES ($1, $2, $3, $4)`
	_, err := q.db.Exec(ctx, query, arg.UserID, arg.ParcelID, arg.County, arg.Label)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrFavoriteAlreadyExists
		}
		return err
	}

	return nil
}

func (q *Queries) RemoveFavorite(ctx context.Context, userID uuid.UUID, parcelID string) (bool, error) {
	query := `DELETE FROM favorite_parcels WHERE user_id = $1 AND parcel_id = $2`
	res, err := q.db.Exec(ctx, query, userID, parcelID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (q *Queries) ListFavorites(ctx context.Context, userID uuid.UUID, limit int, offset int) ([]models.FavoriteParcel, error) {
	query := `
		SELECT parcel_id, county, label, created_at
		FROM favorite_parcels
		WHERE user_id = $1
		ORDER BY county, parcel_id LIMIT $2 OFFSET $3
	`
	rows, err := q.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parcels []models.FavoriteParcel
	for rows.Next() {
		var parcel models.FavoriteParcel
		if err := rows.Scan(&parcel.ParcelID, &parcel.County, &parcel.Label, &parcel.CreatedAt); err != nil {
			return nil, err
		}
		parcels = append(parcels, parcel)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if parcels == nil {
		return []models.FavoriteParcel{}, nil
	}

	return parcels, nil
}
