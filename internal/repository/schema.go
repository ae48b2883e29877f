package repository

import (
	"context"
	"fmt"
)

// The unique index on (customer_code, measure_type, month) closes the
// race between the duplicate check and the insert: two concurrent
// uploads for the same month cannot both commit.
const schema = `
CREATE TABLE IF NOT EXISTS measures (
	measure_uuid     TEXT PRIMARY KEY,
	customer_code    TEXT NOT NULL,
	measure_datetime TIMESTAMPTZ NOT NULL,
	measure_type     TEXT NOT NULL CHECK (measure_type IN ('WATER', 'GAS')),
	measure_value    NUMERIC NOT NULL,
	has_confirmed    BOOLEAN NOT NULL DEFAULT FALSE,
	image_url        TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS measures_customer_type_month_idx
	ON measures (customer_code, measure_type, date_trunc('month', measure_datetime AT TIME ZONE 'UTC'));

CREATE INDEX IF NOT EXISTS measures_customer_idx
	ON measures (customer_code);
`

// EnsureSchema creates the measures table and indexes if missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
