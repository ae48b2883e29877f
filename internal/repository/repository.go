package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/septivank/utility-metering-api/internal/db"
	"github.com/shopspring/decimal"
)

var (
	// ErrMeasureNotFound indicates no measure exists for the given UUID
	ErrMeasureNotFound = errors.New("measure not found")
	// ErrMonthAlreadyReported indicates the month-window uniqueness
	// constraint rejected the insert
	ErrMonthAlreadyReported = errors.New("measure already reported for this month")
	// ErrAlreadyConfirmed indicates the measure was confirmed before
	ErrAlreadyConfirmed = errors.New("measure already confirmed")
)

const uniqueViolationCode = "23505"

// Repository handles database operations for measures
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertMeasure inserts a new measure. A violation of the per-month
// uniqueness index is reported as ErrMonthAlreadyReported.
func (r *Repository) InsertMeasure(ctx context.Context, measure *db.Measure) error {
	query := `
		INSERT INTO measures (
			measure_uuid, customer_code, measure_datetime, measure_type,
			measure_value, has_confirmed, image_url, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`

	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx, query,
		measure.MeasureUUID,
		measure.CustomerCode,
		measure.MeasureDatetime,
		measure.MeasureType,
		measure.MeasureValue,
		measure.HasConfirmed,
		measure.ImageURL,
		now,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrMonthAlreadyReported
		}
		return fmt.Errorf("failed to insert measure: %w", err)
	}

	measure.CreatedAt = now
	measure.UpdatedAt = now
	return nil
}

// HasMeasureInWindow reports whether the customer already has a measure
// of the given type inside the half-open window [start, end)
func (r *Repository) HasMeasureInWindow(ctx context.Context, customerCode string, measureType db.MeasureType, start, end time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM measures
			WHERE customer_code = $1
			  AND measure_type = $2
			  AND measure_datetime >= $3
			  AND measure_datetime < $4
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, customerCode, measureType, start, end).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to query measure window: %w", err)
	}

	return exists, nil
}

// GetMeasureByUUID retrieves a single measure by its UUID
func (r *Repository) GetMeasureByUUID(ctx context.Context, measureUUID string) (*db.Measure, error) {
	query := `
		SELECT measure_uuid, customer_code, measure_datetime, measure_type,
		       measure_value, has_confirmed, image_url, created_at, updated_at
		FROM measures
		WHERE measure_uuid = $1
	`

	var measure db.Measure
	err := r.pool.QueryRow(ctx, query, measureUUID).Scan(
		&measure.MeasureUUID,
		&measure.CustomerCode,
		&measure.MeasureDatetime,
		&measure.MeasureType,
		&measure.MeasureValue,
		&measure.HasConfirmed,
		&measure.ImageURL,
		&measure.CreatedAt,
		&measure.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMeasureNotFound
		}
		return nil, fmt.Errorf("failed to query measure: %w", err)
	}

	return &measure, nil
}

// ConfirmMeasure applies the confirmed value to an unconfirmed measure.
// The update is guarded by has_confirmed = false, so confirmation is
// one-shot even under concurrent requests.
func (r *Repository) ConfirmMeasure(ctx context.Context, measureUUID string, confirmedValue decimal.Decimal) error {
	query := `
		UPDATE measures
		SET measure_value = $2, has_confirmed = true, updated_at = $3
		WHERE measure_uuid = $1 AND has_confirmed = false
	`

	tag, err := r.pool.Exec(ctx, query, measureUUID, confirmedValue, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to confirm measure: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Distinguish a missing measure from a repeated confirmation
		existsQuery := `SELECT has_confirmed FROM measures WHERE measure_uuid = $1`
		var hasConfirmed bool
		err := r.pool.QueryRow(ctx, existsQuery, measureUUID).Scan(&hasConfirmed)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrMeasureNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to query measure state: %w", err)
		}
		return ErrAlreadyConfirmed
	}

	return nil
}

// ListMeasuresByCustomer returns all measures for a customer, optionally
// filtered by measure type
func (r *Repository) ListMeasuresByCustomer(ctx context.Context, customerCode string, measureType *db.MeasureType) ([]db.Measure, error) {
	query := `
		SELECT measure_uuid, customer_code, measure_datetime, measure_type,
		       measure_value, has_confirmed, image_url, created_at, updated_at
		FROM measures
		WHERE customer_code = $1
	`
	args := []interface{}{customerCode}

	if measureType != nil {
		query += ` AND measure_type = $2`
		args = append(args, *measureType)
	}

	query += ` ORDER BY measure_datetime DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query measures: %w", err)
	}
	defer rows.Close()

	var measures []db.Measure
	for rows.Next() {
		var measure db.Measure
		if err := rows.Scan(
			&measure.MeasureUUID,
			&measure.CustomerCode,
			&measure.MeasureDatetime,
			&measure.MeasureType,
			&measure.MeasureValue,
			&measure.HasConfirmed,
			&measure.ImageURL,
			&measure.CreatedAt,
			&measure.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan measure: %w", err)
		}
		measures = append(measures, measure)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return measures, nil
}

// RecentConfirmedValues returns the latest confirmed values for a
// customer and measure type, newest first, for the plausibility check
func (r *Repository) RecentConfirmedValues(ctx context.Context, customerCode string, measureType db.MeasureType, limit int) ([]float64, error) {
	query := `
		SELECT measure_value
		FROM measures
		WHERE customer_code = $1 AND measure_type = $2 AND has_confirmed = true
		ORDER BY measure_datetime DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, customerCode, measureType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent values: %w", err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var value float64
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		values = append(values, value)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return values, nil
}
