package postgres

import (
	"context"
	"fmt"
	"rent-watch-service/internal/core/domain"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresListingAdapter реализует ListingStoragePort для PostgreSQL.
type PostgresListingAdapter struct {
	pool *pgxpool.Pool
}

// NewPostgresListingAdapter создает новый экземпляр адаптера.
func NewPostgresListingAdapter(pool *pgxpool.Pool) (*PostgresListingAdapter, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &PostgresListingAdapter{
		pool: pool,
	}, nil
}

// EnsureSchema создает таблицу объявлений, если она еще не существует.
func (a *PostgresListingAdapter) EnsureSchema(ctx context.Context) error {
	_, err := a.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS listings (
			id               BIGINT PRIMARY KEY,
			title            TEXT NOT NULL,
			url              TEXT NOT NULL,
			price            INTEGER NOT NULL,
			commission       INTEGER NOT NULL,
			deposit          INTEGER NOT NULL,
			area_sqm         DOUBLE PRECISION NOT NULL,
			floor_number     INTEGER NOT NULL,
			building_floors  INTEGER NOT NULL,
			rooms_amount     INTEGER NOT NULL,
			transit_stop     TEXT NOT NULL,
			minutes_to_stop  INTEGER NOT NULL,
			observed_at      TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS listings_observed_at_idx ON listings (observed_at);
	`)
	if err != nil {
		return fmt.Errorf("PostgresListingAdapter: failed to ensure schema: %w", err)
	}
	return nil
}

// InsertIfAbsent вставляет запись, если объявление с таким id еще не встречалось.
// Возвращает true, если запись действительно была вставлена.
func (a *PostgresListingAdapter) InsertIfAbsent(ctx context.Context, rec domain.ListingRecord) (bool, error) {
	tag, err := a.pool.Exec(ctx, `
		INSERT INTO listings (
			id, title, url, price, commission, deposit, area_sqm,
			floor_number, building_floors, rooms_amount,
			transit_stop, minutes_to_stop, observed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.Title, rec.URL, rec.Price, rec.Commission, rec.Deposit, rec.AreaSqm,
		rec.Floor, rec.BuildingFloors, rec.Rooms,
		rec.TransitStopName, rec.MinutesToTransit, rec.ObservedAt,
	)
	if err != nil {
		return false, fmt.Errorf("PostgresListingAdapter: failed to insert listing %d: %w", rec.ID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// QueryNewer возвращает объявления, замеченные строго позже since и прошедшие фильтр,
// в порядке возрастания observed_at, но не более limit штук.
func (a *PostgresListingAdapter) QueryNewer(ctx context.Context, since time.Time, filter domain.SearchFilter, limit int) ([]domain.ListingRecord, error) {
	query := `SELECT id, title, url, price, commission, deposit, area_sqm,
	                 floor_number, building_floors, rooms_amount,
	                 transit_stop, minutes_to_stop, observed_at
	          FROM listings
	          WHERE observed_at > $1`
	args := []interface{}{since}

	if filter.MinPrice != nil {
		args = append(args, *filter.MinPrice)
		query += fmt.Sprintf(" AND price >= $%d", len(args))
	}
	if filter.MaxPrice != nil {
		args = append(args, *filter.MaxPrice)
		query += fmt.Sprintf(" AND price <= $%d", len(args))
	}
	if len(filter.Rooms) > 0 {
		args = append(args, filter.Rooms)
		query += fmt.Sprintf(" AND rooms_amount = ANY($%d)", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY observed_at ASC LIMIT $%d", len(args))

	rows, err := a.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("PostgresListingAdapter: failed to query newer listings: %w", err)
	}
	defer rows.Close()

	var records []domain.ListingRecord
	for rows.Next() {
		var rec domain.ListingRecord

		if err := rows.Scan(
			&rec.ID, &rec.Title, &rec.URL, &rec.Price, &rec.Commission, &rec.Deposit, &rec.AreaSqm,
			&rec.Floor, &rec.BuildingFloors, &rec.Rooms,
			&rec.TransitStopName, &rec.MinutesToTransit, &rec.ObservedAt,
		); err != nil {
			return nil, fmt.Errorf("PostgresListingAdapter: failed to scan listing: %w", err)
		}

		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("PostgresListingAdapter: error during listings iteration: %w", err)
	}

	return records, nil
}
